// Package form holds the state of the entry form: whether it is shown, which
// field has focus and the current input values.
package form

import (
	"sync"

	"github.com/sakif/moodmap/internal/model"
)

// Field names a form input.
type Field string

const (
	FieldType        Field = "type"
	FieldDescription Field = "description"
)

// Values are the current inputs.
type Values struct {
	Category    string `json:"type"`
	Description string `json:"description"`
}

// Snapshot is a copy of the form state for rendering.
type Snapshot struct {
	Visible bool   `json:"visible"`
	Focused Field  `json:"focused,omitempty"`
	Values  Values `json:"values"`
}

// State is safe for concurrent use.
type State struct {
	mu      sync.Mutex
	visible bool
	focused Field
	values  Values
}

// New returns a hidden form with the first category selected.
func New() *State {
	return &State{values: Values{Category: string(model.Categories[0])}}
}

func (s *State) Show() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visible = true
}

// Hide hides the form and clears the description. The selected category is
// kept for the next entry.
func (s *State) Hide() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visible = false
	s.focused = ""
	s.values.Description = ""
}

func (s *State) Focus(f Field) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.focused = f
}

// Fill sets the inputs, as the user typing into the form would.
func (s *State) Fill(v Values) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = v
}

func (s *State) Values() Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values
}

func (s *State) Visible() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visible
}

// Reset returns the form to its initial state.
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visible = false
	s.focused = ""
	s.values = Values{Category: string(model.Categories[0])}
}

func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{Visible: s.visible, Focused: s.focused, Values: s.values}
}
