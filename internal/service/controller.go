// Package service contains the application controller: the business layer
// that sits between the transport (HTTP handlers, CLI) and the collaborators
// it drives (map, form, list, storage, geolocation, alerts).
//
// DEPENDENCY INJECTION:
// The controller never builds its collaborators. Each one is an interface
// passed in through Deps, so tests swap in fakes and the CLI swaps in
// headless versions without touching this file.
//
// CONCURRENCY:
// The page sends events over concurrent HTTP requests. Every operation takes
// c.mu, so events are applied one at a time, in arrival order, the same way a
// browser's single event loop would apply them. The geolocation request is
// the only asynchronous step; it runs in its own goroutine and applies its
// result under the same lock.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/sakif/moodmap/internal/apperror"
	"github.com/sakif/moodmap/internal/form"
	"github.com/sakif/moodmap/internal/listview"
	"github.com/sakif/moodmap/internal/mapview"
	"github.com/sakif/moodmap/internal/model"
)

// PositionFailedMessage is shown when geolocation fails.
const PositionFailedMessage = "Could not get your position"

// Popup layout.
const (
	markerPopupMaxWidth = 250
	detailPopupMaxWidth = 300
	popupMinWidth       = 100
)

// MapService is the map widget.
type MapService interface {
	SetView(center model.Coords, zoom int, opts mapview.ViewOptions)
	AddTileLayer(t mapview.TileLayer)
	AddMarker(coords model.Coords, content string, opts mapview.PopupOptions, open bool) mapview.Marker
	OpenPopup(coords model.Coords, content string, opts mapview.PopupOptions) mapview.Popup
	OnClick(fn func(model.Coords))
	Ready() bool
	Reset()
}

// FormService is the entry form.
type FormService interface {
	Show()
	Hide()
	Focus(f form.Field)
	Values() form.Values
	Reset()
}

// ListService is the rendered entry list.
type ListService interface {
	Prepend(it listview.Item)
	Reset()
}

// Store persists the entry list.
type Store interface {
	Load(ctx context.Context) ([]model.Entry, error)
	Save(ctx context.Context, entries []model.Entry) error
	Clear(ctx context.Context) error
}

// Locator answers a single device position request.
type Locator interface {
	CurrentPosition(ctx context.Context) (model.Coords, error)
}

// Alerter shows a message to the user.
type Alerter interface {
	Alert(msg string)
}

// Settings are the map presentation settings.
type Settings struct {
	Zoom        int
	Tiles       mapview.TileLayer
	PanDuration time.Duration
}

// Deps are the controller's collaborators. Factory and Logger are optional.
type Deps struct {
	Map      MapService
	Form     FormService
	List     ListService
	Store    Store
	Locator  Locator
	Alerter  Alerter
	Factory  *model.Factory
	Logger   *slog.Logger
	Settings Settings
}

// Controller mediates every user-facing operation.
type Controller struct {
	mu       sync.Mutex
	deps     Deps
	logger   *slog.Logger
	sanitize *bluemonday.Policy

	entries []model.Entry
	clickAt *model.Coords

	// loadFailed is set when storage could not be read. Saving would then
	// overwrite the stored list with a partial one, so Submit reloads first.
	loadFailed bool

	// reloadMu serializes Initialize, Reload, Reset and Close. They wait on wg
	// and then Add to it again, which must not overlap.
	reloadMu sync.Mutex

	// Geolocation bookkeeping. generation changes on every reload so a
	// stale answer from a cancelled request is ignored.
	generation uint64
	cancelGeo  context.CancelFunc
	wg         sync.WaitGroup
}

// NewController returns a controller. Call Initialize to load state.
func NewController(deps Deps) *Controller {
	if deps.Factory == nil {
		deps.Factory = model.NewFactory()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Settings.Zoom == 0 {
		deps.Settings.Zoom = 13
	}
	if deps.Settings.PanDuration == 0 {
		deps.Settings.PanDuration = time.Second
	}
	return &Controller{
		deps:     deps,
		logger:   deps.Logger,
		sanitize: bluemonday.StrictPolicy(),
	}
}

// Initialize loads the persisted entries, renders the list and starts the
// device position request. The map is loaded when the position arrives; use
// Wait to block until that request has been answered.
func (c *Controller) Initialize(ctx context.Context) error {
	c.reloadMu.Lock()
	defer c.reloadMu.Unlock()
	return c.initialize(ctx)
}

// initialize is Initialize for callers that already hold reloadMu.
func (c *Controller) initialize(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.discard()
	entries, err := c.deps.Store.Load(ctx)
	if err != nil {
		// The journal still opens, but nothing is saved until a load succeeds.
		c.logger.Error("failed to load entries", slog.String("error", err.Error()))
		c.loadFailed = true
		entries = nil
	}
	c.entries = entries
	for _, e := range c.entries {
		c.deps.List.Prepend(listview.ItemFor(e))
	}
	c.logger.Info("journal loaded", slog.Int("entries", len(c.entries)))

	gen := c.generation
	geoCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.cancelGeo = cancel

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer cancel()
		pos, err := c.deps.Locator.CurrentPosition(geoCtx)
		c.positionAnswered(gen, pos, err)
	}()
	return nil
}

// positionAnswered loads the map on success and alerts on failure. There is
// no retry; Reload starts a new request.
func (c *Controller) positionAnswered(gen uint64, pos model.Coords, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		return
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		c.logger.Warn("geolocation failed", slog.String("error", err.Error()))
		c.deps.Alerter.Alert(PositionFailedMessage)
		return
	}
	c.loadMap(pos)
}

// loadMap centres the map, subscribes to clicks and renders a marker for each
// loaded entry. Caller holds c.mu.
func (c *Controller) loadMap(pos model.Coords) {
	c.deps.Map.SetView(pos, c.deps.Settings.Zoom, mapview.ViewOptions{})
	c.deps.Map.AddTileLayer(c.deps.Settings.Tiles)
	c.deps.Map.OnClick(c.OpenForm)
	for _, e := range c.entries {
		c.renderMarker(e)
	}
	c.logger.Info("map loaded", slog.String("center", pos.String()))
}

// retryLoad reads storage again after a failed load and renders what it
// finds. Caller holds c.mu.
func (c *Controller) retryLoad(ctx context.Context) error {
	entries, err := c.deps.Store.Load(ctx)
	if err != nil {
		c.logger.Error("storage still unavailable", slog.String("error", err.Error()))
		return apperror.Unavailable("entries could not be loaded; nothing was saved")
	}
	c.loadFailed = false
	c.entries = entries
	for _, e := range c.entries {
		c.deps.List.Prepend(listview.ItemFor(e))
		c.renderMarker(e)
	}
	c.logger.Info("journal loaded after retry", slog.Int("entries", len(c.entries)))
	return nil
}

// Wait blocks until the pending position request, if any, has been handled.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// OpenForm records the clicked location, shows the form and focuses the
// description.
func (c *Controller) OpenForm(at model.Coords) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.clickAt = &at
	c.deps.Form.Show()
	c.deps.Form.Focus(form.FieldDescription)
}

// Submit creates an entry from the form and the last clicked location.
//
// An unknown category produces no entry and no error: the returned entry is
// nil and nothing is rendered or saved.
func (c *Controller) Submit(ctx context.Context) (*model.Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.clickAt == nil {
		return nil, apperror.ValidationFailed("coords", "click on the map to choose a location first")
	}
	if c.loadFailed {
		if err := c.retryLoad(ctx); err != nil {
			return nil, err
		}
	}

	vals := c.deps.Form.Values()
	e, err := c.deps.Factory.New(vals.Category, *c.clickAt, vals.Description)
	if err != nil {
		if errors.Is(err, model.ErrUnknownCategory) {
			c.logger.Debug("ignoring submit with unknown category", slog.String("type", vals.Category))
			return nil, nil
		}
		return nil, fmt.Errorf("creating entry: %w", err)
	}
	for _, existing := range c.entries {
		if existing.ID == e.ID {
			return nil, apperror.Conflict("entry", e.ID)
		}
	}

	c.entries = append(c.entries, *e)
	c.renderMarker(*e)
	c.deps.List.Prepend(listview.ItemFor(*e))
	c.deps.Form.Hide()

	if err := c.deps.Store.Save(ctx, c.entries); err != nil {
		c.logger.Error("failed to persist entries",
			slog.String("id", e.ID),
			slog.String("error", err.Error()),
		)
		return e, fmt.Errorf("saving entries: %w", err)
	}

	c.logger.Info("entry created",
		slog.String("id", e.ID),
		slog.String("type", string(e.Category)),
		slog.String("coords", e.Coords.String()),
	)
	return e, nil
}

// renderMarker adds the entry's pin with its title popup opened. Caller holds
// c.mu.
func (c *Controller) renderMarker(e model.Entry) {
	if !c.deps.Map.Ready() {
		return
	}
	c.deps.Map.AddMarker(e.Coords, e.Category.Title(), mapview.PopupOptions{
		MaxWidth:     markerPopupMaxWidth,
		MinWidth:     popupMinWidth,
		AutoClose:    false,
		CloseOnClick: false,
		ClassName:    e.Category.PopupClass(),
	}, true)
}

// Select pans the map to the entry. It does nothing while the map is not
// loaded.
func (c *Controller) Select(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, err := c.find(id)
	if err != nil {
		return err
	}
	if !c.deps.Map.Ready() {
		return nil
	}
	c.deps.Map.SetView(e.Coords, c.deps.Settings.Zoom, mapview.ViewOptions{
		Animate:     true,
		PanDuration: c.deps.Settings.PanDuration,
	})
	return nil
}

// Inspect opens a detail popup with the entry's category and description.
// It does nothing while the map is not loaded.
func (c *Controller) Inspect(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, err := c.find(id)
	if err != nil {
		return err
	}
	if !c.deps.Map.Ready() {
		return nil
	}
	c.deps.Map.OpenPopup(e.Coords, c.detailContent(e), mapview.PopupOptions{
		MaxWidth:     detailPopupMaxWidth,
		MinWidth:     popupMinWidth,
		AutoClose:    false,
		CloseOnClick: true,
	})
	return nil
}

// detailContent is the popup HTML. The description is user text, so it is
// reduced to plain escaped text before it is embedded.
func (c *Controller) detailContent(e model.Entry) string {
	return fmt.Sprintf("<strong>%s</strong><br>\nDescription: %s",
		e.Category.Title(), c.sanitize.Sanitize(e.Description))
}

// Reload drops every piece of in-memory state and runs Initialize again on
// the stored list, the way a page reload starts over. A new position request
// is made, so a denied position can be granted afterwards.
func (c *Controller) Reload(ctx context.Context) error {
	c.reloadMu.Lock()
	defer c.reloadMu.Unlock()

	c.mu.Lock()
	c.discard()
	c.mu.Unlock()
	return c.restart(ctx)
}

// Reset clears persisted storage and reloads on the now empty store.
func (c *Controller) Reset(ctx context.Context) error {
	c.reloadMu.Lock()
	defer c.reloadMu.Unlock()

	c.mu.Lock()
	if err := c.deps.Store.Clear(ctx); err != nil {
		c.mu.Unlock()
		return fmt.Errorf("clearing entries: %w", err)
	}
	c.discard()
	c.mu.Unlock()

	c.logger.Info("journal reset")
	return c.restart(ctx)
}

// restart waits for the cancelled position request and initializes again.
// Caller holds reloadMu but not c.mu: the position goroutine needs c.mu to
// finish.
func (c *Controller) restart(ctx context.Context) error {
	c.wg.Wait()
	return c.initialize(ctx)
}

// discard drops in-memory state and cancels a pending position request.
// Caller holds c.mu.
func (c *Controller) discard() {
	c.generation++
	if c.cancelGeo != nil {
		c.cancelGeo()
		c.cancelGeo = nil
	}
	c.entries = nil
	c.clickAt = nil
	c.loadFailed = false
	c.deps.Map.Reset()
	c.deps.List.Reset()
	c.deps.Form.Reset()
}

// Entries returns a copy of the in-memory list in creation order.
func (c *Controller) Entries() []model.Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Get returns one entry by id.
func (c *Controller) Get(id string) (model.Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.find(id)
}

// find looks up id. Caller holds c.mu.
func (c *Controller) find(id string) (model.Entry, error) {
	for _, e := range c.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return model.Entry{}, apperror.NotFound("entry", id)
}

// Close cancels a pending position request and waits for it to finish.
func (c *Controller) Close() {
	c.reloadMu.Lock()
	defer c.reloadMu.Unlock()

	c.mu.Lock()
	c.generation++
	if c.cancelGeo != nil {
		c.cancelGeo()
		c.cancelGeo = nil
	}
	c.mu.Unlock()
	c.wg.Wait()
}
