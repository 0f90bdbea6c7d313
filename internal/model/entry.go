package model

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/sakif/moodmap/internal/apperror"
)

// ErrUnknownCategory is returned by the factory for any category outside the
// fixed set. It matches apperror.ErrValidation as well.
var ErrUnknownCategory = apperror.ValidationFailed("type", "unknown mood category")

// Coords is a latitude/longitude pair.
//
// It is stored as a two-element JSON array, [lat, lng], which is the shape
// the map widget and the persisted list both use.
type Coords struct {
	Lat float64
	Lng float64
}

func (c Coords) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{c.Lat, c.Lng})
}

func (c *Coords) UnmarshalJSON(data []byte) error {
	var pair []float64
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("coords: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("coords: want [lat, lng], got %d values", len(pair))
	}
	c.Lat, c.Lng = pair[0], pair[1]
	return nil
}

func (c Coords) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lng)
}

// Entry is one logged mood observation. Entries are never modified after
// creation.
//
// The JSON field names match the persisted list format, so a reloaded list
// decodes straight back into Entry values.
type Entry struct {
	ID          string   `json:"id"`
	Coords      Coords   `json:"coords"`
	Description string   `json:"description"`
	Category    Category `json:"type"`
}

// Factory builds entries. NewID is swappable so tests get stable ids.
type Factory struct {
	NewID func() string
}

// NewFactory returns a Factory that assigns random (v4) UUIDs.
func NewFactory() *Factory {
	return &Factory{NewID: uuid.NewString}
}

// New constructs an entry for the given category tag. Only the exact lower-case
// tags are accepted. The description and coordinates are taken as-is.
func (f *Factory) New(category string, coords Coords, description string) (*Entry, error) {
	c := Category(category)
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}
	return &Entry{
		ID:          f.NewID(),
		Coords:      coords,
		Description: description,
		Category:    c,
	}, nil
}

// NewEntry is Factory.New with the default UUID generator.
func NewEntry(category string, coords Coords, description string) (*Entry, error) {
	return NewFactory().New(category, coords, description)
}
