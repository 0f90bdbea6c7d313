package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/moodmap/internal/apperror"
	"github.com/sakif/moodmap/internal/form"
	"github.com/sakif/moodmap/internal/listview"
	"github.com/sakif/moodmap/internal/mapview"
	"github.com/sakif/moodmap/internal/model"
	"github.com/sakif/moodmap/internal/notify"
)

// Journal is the controller surface the API drives.
type Journal interface {
	Submit(ctx context.Context) (*model.Entry, error)
	Select(id string) error
	Inspect(id string) error
	Reload(ctx context.Context) error
	Reset(ctx context.Context) error
	Entries() []model.Entry
}

// MapWidget receives clicks and exposes the map state for painting.
type MapWidget interface {
	Click(at model.Coords) error
	Snapshot() mapview.Snapshot
}

// FormWidget is the entry form as the page edits it.
type FormWidget interface {
	Fill(v form.Values)
	Snapshot() form.Snapshot
}

// ListWidget is the rendered entry list.
type ListWidget interface {
	Items() []listview.Item
}

// PositionReporter accepts the browser's geolocation answer.
type PositionReporter interface {
	Report(at model.Coords) bool
	Fail() bool
}

// NoticeSource hands out queued alerts once.
type NoticeSource interface {
	Drain() []notify.Notice
}

// JournalDeps groups the collaborators of JournalHandler.
type JournalDeps struct {
	Journal  Journal
	Map      MapWidget
	Form     FormWidget
	List     ListWidget
	Position PositionReporter
	Notices  NoticeSource
}

// JournalHandler exposes the journal operations to the page.
//
// The page is a thin painter: it forwards every user event here and repaints
// from GET /api/state. All state lives server side.
type JournalHandler struct {
	deps   JournalDeps
	logger *slog.Logger
}

// NewJournalHandler creates a JournalHandler.
func NewJournalHandler(deps JournalDeps, logger *slog.Logger) *JournalHandler {
	return &JournalHandler{deps: deps, logger: logger}
}

// PositionRequest is the browser's geolocation result. Error is set instead of
// the coordinates when the user denied access or lookup failed.
type PositionRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Error     string   `json:"error,omitempty"`
}

// coords validates the pair.
func (p PositionRequest) coords() (model.Coords, error) {
	if p.Latitude == nil || p.Longitude == nil {
		return model.Coords{}, apperror.ValidationFailed("coords", "latitude and longitude are required")
	}
	c := model.Coords{Lat: *p.Latitude, Lng: *p.Longitude}
	if c.Lat < -90 || c.Lat > 90 {
		return model.Coords{}, apperror.ValidationFailed("latitude", "latitude must be between -90 and 90")
	}
	if c.Lng < -180 || c.Lng > 180 {
		return model.Coords{}, apperror.ValidationFailed("longitude", "longitude must be between -180 and 180")
	}
	return c, nil
}

// HandlePosition delivers the geolocation answer.
//
// HTTP: POST /api/position
//
// 204 when a pending request took the answer, 202 when nothing was waiting
// (a duplicate answer, or one sent without POST /api/reload first).
func (h *JournalHandler) HandlePosition(w http.ResponseWriter, r *http.Request) {
	var req PositionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	var delivered bool
	if req.Error != "" {
		h.logger.Info("browser reported geolocation failure", slog.String("reason", req.Error))
		delivered = h.deps.Position.Fail()
	} else {
		c, err := req.coords()
		if err != nil {
			writeError(w, err)
			return
		}
		delivered = h.deps.Position.Report(c)
	}

	if !delivered {
		w.WriteHeader(http.StatusAccepted)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleMapClick forwards a map click, which opens the form.
//
// HTTP: POST /api/map/click
func (h *JournalHandler) HandleMapClick(w http.ResponseWriter, r *http.Request) {
	var req PositionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	c, err := req.coords()
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.deps.Map.Click(c); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Form.Snapshot())
}

// CreateEntryRequest is the submitted form.
type CreateEntryRequest struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

// HandleCreate fills the form with the posted values and submits it.
//
// HTTP: POST /api/entries
//
// 201 with the new entry, or 204 when the category is not one of the known
// moods (nothing is created).
func (h *JournalHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateEntryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	h.deps.Form.Fill(form.Values{
		Category:    req.Type,
		Description: req.Description,
	})
	e, err := h.deps.Journal.Submit(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if e == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

// HandleList returns every entry in creation order.
//
// HTTP: GET /api/entries
func (h *JournalHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	entries := h.deps.Journal.Entries()
	if entries == nil {
		entries = []model.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// HandleSelect pans to an entry and opens its detail popup, the two things a
// click on a list item does.
//
// HTTP: POST /api/entries/{id}/select
func (h *JournalHandler) HandleSelect(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.deps.Journal.Select(id); err != nil {
		writeError(w, err)
		return
	}
	if err := h.deps.Journal.Inspect(id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleReload starts the journal over from storage, as a page load does: the
// widgets are rebuilt and a new position request waits for the page's answer.
// Stored entries are kept.
//
// HTTP: POST /api/reload
func (h *JournalHandler) HandleReload(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Journal.Reload(r.Context()); err != nil {
		h.logger.Error("reload failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleReset clears storage and reloads the journal.
//
// HTTP: POST /api/reset
func (h *JournalHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Journal.Reset(r.Context()); err != nil {
		h.logger.Error("reset failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// StateResponse is everything the page needs to repaint.
type StateResponse struct {
	Map     mapview.Snapshot `json:"map"`
	Form    form.Snapshot    `json:"form"`
	List    []listview.Item  `json:"list"`
	Notices []notify.Notice  `json:"notices"`
}

// HandleState returns the current widget state. Notices are delivered once.
//
// HTTP: GET /api/state
func (h *JournalHandler) HandleState(w http.ResponseWriter, r *http.Request) {
	resp := StateResponse{
		Map:     h.deps.Map.Snapshot(),
		Form:    h.deps.Form.Snapshot(),
		List:    h.deps.List.Items(),
		Notices: h.deps.Notices.Drain(),
	}
	if resp.Notices == nil {
		resp.Notices = []notify.Notice{}
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleHealth reports liveness.
//
// HTTP: GET /healthz
func HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
