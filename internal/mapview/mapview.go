// Package mapview is a headless map widget. It keeps the state a Leaflet map
// would hold (view, tile layer, markers, popups, click subscribers) and
// exposes it as a Snapshot the browser page paints.
//
// View is safe for concurrent use. Click handlers run without the view lock
// held, so a handler may call back into the view.
package mapview

import (
	"log/slog"
	"sync"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/moodmap/internal/apperror"
	"github.com/sakif/moodmap/internal/model"
)

// TileLayer is the base map imagery.
type TileLayer struct {
	URL         string `json:"url"`
	Attribution string `json:"attribution"`
}

// ViewOptions controls how SetView moves the map.
type ViewOptions struct {
	Animate     bool          `json:"animate"`
	PanDuration time.Duration `json:"panDuration"`
}

// PopupOptions mirror Leaflet's popup options.
type PopupOptions struct {
	MaxWidth     int    `json:"maxWidth"`
	MinWidth     int    `json:"minWidth"`
	AutoClose    bool   `json:"autoClose"`
	CloseOnClick bool   `json:"closeOnClick"`
	ClassName    string `json:"className,omitempty"`
}

// Popup is either bound to a marker or opened on its own at Coords.
type Popup struct {
	ID      string       `json:"id"`
	Coords  model.Coords `json:"coords"`
	Content string       `json:"content"`
	Options PopupOptions `json:"options"`
	Open    bool         `json:"open"`
}

// Marker is a pin with an optional bound popup.
type Marker struct {
	ID     string       `json:"id"`
	Coords model.Coords `json:"coords"`
	Popup  *Popup       `json:"popup,omitempty"`
}

// Camera is the current view.
type Camera struct {
	Center  model.Coords `json:"center"`
	Zoom    int          `json:"zoom"`
	Options ViewOptions  `json:"options"`
}

// Snapshot is a copy of the full widget state.
type Snapshot struct {
	Ready   bool       `json:"ready"`
	Camera  Camera     `json:"camera"`
	Tiles   *TileLayer `json:"tiles,omitempty"`
	Markers []Marker   `json:"markers"`
	Popups  []Popup    `json:"popups"`
	// Version increases on every change so the page can skip repaints.
	Version uint64 `json:"version"`
}

// View holds the map state.
type View struct {
	mu       sync.Mutex
	ready    bool
	camera   Camera
	tiles    *TileLayer
	markers  []Marker
	popups   []Popup
	handlers []func(model.Coords)
	version  uint64
	logger   *slog.Logger
}

// New returns an empty, not yet loaded view.
func New(logger *slog.Logger) *View {
	return &View{logger: logger}
}

// SetView centres the map. The first call loads the map.
func (v *View) SetView(center model.Coords, zoom int, opts ViewOptions) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.ready {
		v.logger.Debug("map loaded", slog.String("center", center.String()), slog.Int("zoom", zoom))
	}
	v.ready = true
	v.camera = Camera{Center: center, Zoom: zoom, Options: opts}
	v.version++
}

// AddTileLayer sets the base imagery.
func (v *View) AddTileLayer(t TileLayer) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.tiles = &t
	v.version++
}

// AddMarker places a marker with a bound popup. The popup is opened when
// open is true.
func (v *View) AddMarker(coords model.Coords, content string, opts PopupOptions, open bool) Marker {
	v.mu.Lock()
	defer v.mu.Unlock()

	m := Marker{
		ID:     xid.New().String(),
		Coords: coords,
		Popup: &Popup{
			ID:      xid.New().String(),
			Coords:  coords,
			Content: content,
			Options: opts,
			Open:    open,
		},
	}
	if open {
		v.autoClose()
	}
	v.markers = append(v.markers, m)
	v.version++
	return copyMarker(m)
}

// OpenPopup opens a standalone popup at coords.
func (v *View) OpenPopup(coords model.Coords, content string, opts PopupOptions) Popup {
	v.mu.Lock()
	defer v.mu.Unlock()

	p := Popup{
		ID:      xid.New().String(),
		Coords:  coords,
		Content: content,
		Options: opts,
		Open:    true,
	}
	v.autoClose()
	v.popups = append(v.popups, p)
	v.version++
	return p
}

// autoClose closes open popups that asked to be closed when another one
// opens. Caller holds v.mu.
func (v *View) autoClose() {
	for i := range v.markers {
		if p := v.markers[i].Popup; p != nil && p.Open && p.Options.AutoClose {
			p.Open = false
		}
	}
	for i := range v.popups {
		if v.popups[i].Open && v.popups[i].Options.AutoClose {
			v.popups[i].Open = false
		}
	}
}

// OnClick subscribes fn to map clicks.
func (v *View) OnClick(fn func(model.Coords)) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.handlers = append(v.handlers, fn)
}

// Click delivers a click at coords to every subscriber. Standalone popups
// with CloseOnClick are closed first.
func (v *View) Click(coords model.Coords) error {
	v.mu.Lock()
	if !v.ready {
		v.mu.Unlock()
		return apperror.Unavailable("map is not loaded")
	}
	for i := range v.popups {
		if v.popups[i].Open && v.popups[i].Options.CloseOnClick {
			v.popups[i].Open = false
			v.version++
		}
	}
	handlers := make([]func(model.Coords), len(v.handlers))
	copy(handlers, v.handlers)
	v.mu.Unlock()

	for _, fn := range handlers {
		fn(coords)
	}
	return nil
}

// Ready reports whether the map has been loaded.
func (v *View) Ready() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.ready
}

// Reset discards all layers, subscribers and the view, as a page reload would.
func (v *View) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.ready = false
	v.camera = Camera{}
	v.tiles = nil
	v.markers = nil
	v.popups = nil
	v.handlers = nil
	v.version++
}

// Snapshot returns a deep copy of the state.
func (v *View) Snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()

	s := Snapshot{
		Ready:   v.ready,
		Camera:  v.camera,
		Markers: make([]Marker, 0, len(v.markers)),
		Popups:  make([]Popup, len(v.popups)),
		Version: v.version,
	}
	if v.tiles != nil {
		t := *v.tiles
		s.Tiles = &t
	}
	for _, m := range v.markers {
		s.Markers = append(s.Markers, copyMarker(m))
	}
	copy(s.Popups, v.popups)
	return s
}

func copyMarker(m Marker) Marker {
	if m.Popup != nil {
		p := *m.Popup
		m.Popup = &p
	}
	return m
}
