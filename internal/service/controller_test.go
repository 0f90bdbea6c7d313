package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/sakif/moodmap/internal/apperror"
	"github.com/sakif/moodmap/internal/form"
	"github.com/sakif/moodmap/internal/geo"
	"github.com/sakif/moodmap/internal/listview"
	"github.com/sakif/moodmap/internal/mapview"
	"github.com/sakif/moodmap/internal/model"
	"github.com/sakif/moodmap/internal/notify"
)

// The controller starts a goroutine per position request; every test must
// leave none behind.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// =========================================================================
// FAKE STORE
// =========================================================================

// mockStore keeps the persisted list in memory, encoded as a copy so the
// controller cannot share its slice with "storage".
type mockStore struct {
	mu       sync.Mutex
	entries  []model.Entry
	saves    int
	saveErr  error
	loadErr  error
	clearErr error
}

func (m *mockStore) Load(context.Context) ([]model.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return append([]model.Entry(nil), m.entries...), nil
}

func (m *mockStore) Save(_ context.Context, entries []model.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.entries = append([]model.Entry(nil), entries...)
	return nil
}

func (m *mockStore) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.clearErr != nil {
		return m.clearErr
	}
	m.entries = nil
	return nil
}

// =========================================================================
// TEST HELPER
// =========================================================================

type fixture struct {
	ctrl    *Controller
	store   *mockStore
	mapView *mapview.View
	form    *form.State
	list    *listview.List
	alerts  *notify.Queue
}

var home = model.Coords{Lat: 40.7128, Lng: -74.006}

func newFixture(t *testing.T, locator Locator, stored ...model.Entry) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	f := &fixture{
		store:   &mockStore{entries: stored},
		mapView: mapview.New(logger),
		form:    form.New(),
		list:    listview.New(),
		alerts:  notify.NewQueue(),
	}
	n := 0
	f.ctrl = NewController(Deps{
		Map:     f.mapView,
		Form:    f.form,
		List:    f.list,
		Store:   f.store,
		Locator: locator,
		Alerter: f.alerts,
		Factory: &model.Factory{NewID: func() string { n++; return fmt.Sprintf("e%d", n) }},
		Logger:  logger,
		Settings: Settings{
			Zoom:  13,
			Tiles: mapview.TileLayer{URL: "https://tiles/{z}/{x}/{y}.png"},
		},
	})
	t.Cleanup(f.ctrl.Close)
	return f
}

// start initializes and waits for the position request to be answered.
func (f *fixture) start(t *testing.T) {
	t.Helper()
	require.NoError(t, f.ctrl.Initialize(context.Background()))
	f.ctrl.Wait()
}

// submit clicks the map at at, fills the form and submits.
func (f *fixture) submit(t *testing.T, category, description string, at model.Coords) *model.Entry {
	t.Helper()
	require.NoError(t, f.mapView.Click(at))
	f.form.Fill(form.Values{Category: category, Description: description})
	e, err := f.ctrl.Submit(context.Background())
	require.NoError(t, err)
	return e
}

// =========================================================================
// INITIALIZE
// =========================================================================

func TestInitialize_LoadsMapAtPosition(t *testing.T) {
	f := newFixture(t, geo.Fixed{Coords: home})
	f.start(t)

	snap := f.mapView.Snapshot()
	assert.True(t, snap.Ready)
	assert.Equal(t, home, snap.Camera.Center)
	assert.Equal(t, 13, snap.Camera.Zoom)
	require.NotNil(t, snap.Tiles)
	assert.Equal(t, "https://tiles/{z}/{x}/{y}.png", snap.Tiles.URL)
	assert.Empty(t, f.alerts.Drain())
}

func TestInitialize_RendersStoredEntries(t *testing.T) {
	stored := []model.Entry{
		{ID: "a", Coords: model.Coords{Lat: 1, Lng: 1}, Description: "first", Category: model.Happy},
		{ID: "b", Coords: model.Coords{Lat: 2, Lng: 2}, Description: "second", Category: model.Anxiety},
	}
	f := newFixture(t, geo.Fixed{Coords: home}, stored...)
	f.start(t)

	if diff := cmp.Diff(stored, f.ctrl.Entries()); diff != "" {
		t.Errorf("Entries() mismatch (-want +got):\n%s", diff)
	}

	items := f.list.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "b", items[0].ID, "newest entry is listed first")
	assert.Equal(t, "😰", items[0].Icon)

	markers := f.mapView.Snapshot().Markers
	require.Len(t, markers, 2)
	assert.Equal(t, "Happy", markers[0].Popup.Content)
	assert.Equal(t, "anxiety-popup", markers[1].Popup.Options.ClassName)
	assert.True(t, markers[1].Popup.Open)
}

func TestInitialize_GeolocationFailure(t *testing.T) {
	f := newFixture(t, geo.Denied{}, model.Entry{ID: "a", Category: model.Sad})
	f.start(t)

	alerts := f.alerts.Drain()
	require.Len(t, alerts, 1)
	assert.Equal(t, PositionFailedMessage, alerts[0].Message)

	assert.False(t, f.mapView.Ready())
	assert.ErrorIs(t, f.mapView.Click(home), apperror.ErrUnavailable)

	// The list still renders from storage.
	assert.Len(t, f.list.Items(), 1)

	// Map-dependent operations are no-ops.
	require.NoError(t, f.ctrl.Select("a"))
	require.NoError(t, f.ctrl.Inspect("a"))
	assert.Empty(t, f.mapView.Snapshot().Popups)
}

func TestInitialize_StoreFailureStartsEmpty(t *testing.T) {
	f := newFixture(t, geo.Fixed{Coords: home})
	f.store.loadErr = errors.New("disk gone")
	f.start(t)

	assert.Empty(t, f.ctrl.Entries())
	assert.True(t, f.mapView.Ready())
}

func TestSubmit_AfterFailedLoadKeepsStoredEntries(t *testing.T) {
	stored := []model.Entry{
		{ID: "a", Coords: model.Coords{Lat: 1, Lng: 1}, Category: model.Happy},
		{ID: "b", Coords: model.Coords{Lat: 2, Lng: 2}, Category: model.Sad},
	}
	f := newFixture(t, geo.Fixed{Coords: home}, stored...)
	f.store.loadErr = errors.New("connection refused")
	f.start(t)
	require.Empty(t, f.ctrl.Entries())

	t.Run("storage still down", func(t *testing.T) {
		require.NoError(t, f.mapView.Click(home))
		f.form.Fill(form.Values{Category: "happy", Description: "x"})

		e, err := f.ctrl.Submit(context.Background())
		assert.Nil(t, e)
		assert.ErrorIs(t, err, apperror.ErrUnavailable)
		assert.Zero(t, f.store.saves)
		assert.Equal(t, stored, f.store.entries)
	})

	t.Run("storage back", func(t *testing.T) {
		f.store.mu.Lock()
		f.store.loadErr = nil
		f.store.mu.Unlock()

		e := f.submit(t, "sad", "after outage", model.Coords{Lat: 3, Lng: 3})
		require.NotNil(t, e)

		require.Len(t, f.store.entries, 3)
		if diff := cmp.Diff(stored, f.store.entries[:2]); diff != "" {
			t.Errorf("stored entries changed (-want +got):\n%s", diff)
		}
		assert.Len(t, f.list.Items(), 3)
		assert.Len(t, f.mapView.Snapshot().Markers, 3)
	})
}

func TestInitialize_WaitsForReportedPosition(t *testing.T) {
	loc := geo.NewReported()
	f := newFixture(t, loc)
	require.NoError(t, f.ctrl.Initialize(context.Background()))
	require.Eventually(t, loc.Pending, time.Second, time.Millisecond)
	assert.False(t, f.mapView.Ready())

	require.True(t, loc.Report(home))
	f.ctrl.Wait()
	assert.True(t, f.mapView.Ready())
}

func TestReload_AfterDeniedPosition(t *testing.T) {
	loc := geo.NewReported()
	f := newFixture(t, loc, model.Entry{ID: "a", Coords: home, Category: model.Anxiety})
	require.NoError(t, f.ctrl.Initialize(context.Background()))
	require.Eventually(t, loc.Pending, time.Second, time.Millisecond)

	require.True(t, loc.Fail())
	f.ctrl.Wait()
	require.Len(t, f.alerts.Drain(), 1)
	assert.False(t, f.mapView.Ready())
	assert.False(t, loc.Report(home), "nothing waits for a position after a failure")

	require.NoError(t, f.ctrl.Reload(context.Background()))
	require.Eventually(t, loc.Pending, time.Second, time.Millisecond)
	require.True(t, loc.Report(home))
	f.ctrl.Wait()

	assert.True(t, f.mapView.Ready())
	assert.Len(t, f.ctrl.Entries(), 1, "reload keeps stored entries")
	assert.Len(t, f.mapView.Snapshot().Markers, 1)
	assert.Len(t, f.list.Items(), 1)
}

func TestReload_ConcurrentWithReset(t *testing.T) {
	f := newFixture(t, geo.Fixed{Coords: home})
	f.start(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				assert.NoError(t, f.ctrl.Reset(context.Background()))
			} else {
				assert.NoError(t, f.ctrl.Reload(context.Background()))
			}
		}(i)
	}
	wg.Wait()
	f.ctrl.Wait()

	assert.True(t, f.mapView.Ready())
	assert.Len(t, f.mapView.Snapshot().Markers, 0)
}

// =========================================================================
// OPEN FORM / SUBMIT
// =========================================================================

func TestMapClick_OpensForm(t *testing.T) {
	f := newFixture(t, geo.Fixed{Coords: home})
	f.start(t)

	require.NoError(t, f.mapView.Click(model.Coords{Lat: 1, Lng: 2}))

	snap := f.form.Snapshot()
	assert.True(t, snap.Visible)
	assert.Equal(t, form.FieldDescription, snap.Focused)
}

func TestSubmit_Example(t *testing.T) {
	f := newFixture(t, geo.Fixed{Coords: home})
	f.start(t)

	at := model.Coords{Lat: 40.0, Lng: -73.0}
	e := f.submit(t, "sad", "Rainy commute", at)
	require.NotNil(t, e)

	want := []model.Entry{{ID: "e1", Coords: at, Description: "Rainy commute", Category: model.Sad}}
	if diff := cmp.Diff(want, f.ctrl.Entries()); diff != "" {
		t.Errorf("Entries() mismatch (-want +got):\n%s", diff)
	}

	items := f.list.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "😢", items[0].Icon)
	assert.Equal(t, "Rainy commute", items[0].Description)

	markers := f.mapView.Snapshot().Markers
	require.Len(t, markers, 1)
	assert.Equal(t, at, markers[0].Coords)
	assert.Equal(t, "Sad", markers[0].Popup.Content)
	assert.Equal(t, mapview.PopupOptions{MaxWidth: 250, MinWidth: 100, ClassName: "sad-popup"}, markers[0].Popup.Options)

	assert.False(t, f.form.Visible())
	assert.Empty(t, f.form.Values().Description)

	assert.Equal(t, want, f.store.entries)
}

func TestSubmit_AllCategories(t *testing.T) {
	f := newFixture(t, geo.Fixed{Coords: home})
	f.start(t)

	for i, c := range model.Categories {
		at := model.Coords{Lat: float64(i), Lng: float64(-i)}
		e := f.submit(t, string(c), "note", at)
		require.NotNil(t, e)
		assert.Equal(t, c, e.Category)
		assert.Equal(t, at, e.Coords)
	}
	assert.Len(t, f.ctrl.Entries(), 4)
	assert.Equal(t, 4, f.store.saves)
}

func TestSubmit_UnknownCategoryIsSilent(t *testing.T) {
	f := newFixture(t, geo.Fixed{Coords: home})
	f.start(t)

	require.NoError(t, f.mapView.Click(home))
	f.form.Fill(form.Values{Category: "furious", Description: "x"})

	e, err := f.ctrl.Submit(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, e)
	assert.Empty(t, f.ctrl.Entries())
	assert.Empty(t, f.list.Items())
	assert.Empty(t, f.mapView.Snapshot().Markers)
	assert.Zero(t, f.store.saves)
	assert.True(t, f.form.Visible(), "form stays open")
}

func TestSubmit_CategoryMustMatchExactly(t *testing.T) {
	f := newFixture(t, geo.Fixed{Coords: home})
	f.start(t)

	for _, in := range []string{" HAPPY ", "Happy", " happy", "Anxiety"} {
		require.NoError(t, f.mapView.Click(home))
		f.form.Fill(form.Values{Category: in, Description: "x"})

		e, err := f.ctrl.Submit(context.Background())
		assert.NoError(t, err, in)
		assert.Nil(t, e, in)
	}
	assert.Empty(t, f.ctrl.Entries())
	assert.Zero(t, f.store.saves)
}

func TestSubmit_WithoutClick(t *testing.T) {
	f := newFixture(t, geo.Fixed{Coords: home})
	f.start(t)

	f.form.Fill(form.Values{Category: "happy"})
	_, err := f.ctrl.Submit(context.Background())
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestSubmit_DuplicateIDConflicts(t *testing.T) {
	f := newFixture(t, geo.Fixed{Coords: home}, model.Entry{ID: "e1", Category: model.Happy})
	f.start(t)

	require.NoError(t, f.mapView.Click(home))
	f.form.Fill(form.Values{Category: "happy"})
	_, err := f.ctrl.Submit(context.Background())
	assert.ErrorIs(t, err, apperror.ErrConflict)
	assert.Len(t, f.ctrl.Entries(), 1)
}

func TestSubmit_SaveFailureReturnsError(t *testing.T) {
	f := newFixture(t, geo.Fixed{Coords: home})
	f.start(t)
	boom := errors.New("read-only")
	f.store.saveErr = boom

	require.NoError(t, f.mapView.Click(home))
	f.form.Fill(form.Values{Category: "happy"})
	e, err := f.ctrl.Submit(context.Background())

	assert.ErrorIs(t, err, boom)
	assert.NotNil(t, e)
	assert.Len(t, f.ctrl.Entries(), 1, "entry stays in the session")
}

// =========================================================================
// PERSIST / RELOAD
// =========================================================================

func TestPersistThenReload(t *testing.T) {
	f := newFixture(t, geo.Fixed{Coords: home})
	f.start(t)
	f.submit(t, "happy", "sunny walk", model.Coords{Lat: 51.5, Lng: -0.12})
	f.submit(t, "depression", "long night", model.Coords{Lat: 48.85, Lng: 2.35})
	want := f.ctrl.Entries()

	// A second controller over the same store is a page reload.
	reloaded := newFixture(t, geo.Fixed{Coords: home}, f.store.entries...)
	reloaded.start(t)

	if diff := cmp.Diff(want, reloaded.ctrl.Entries()); diff != "" {
		t.Errorf("reloaded entries mismatch (-want +got):\n%s", diff)
	}
	assert.Len(t, reloaded.mapView.Snapshot().Markers, 2)
}

// =========================================================================
// SELECT / INSPECT
// =========================================================================

func TestSelect_PansToEntry(t *testing.T) {
	f := newFixture(t, geo.Fixed{Coords: home})
	f.start(t)
	at := model.Coords{Lat: 35.6762, Lng: 139.6503}
	e := f.submit(t, "anxiety", "crowded train", at)

	require.NoError(t, f.ctrl.Select(e.ID))

	cam := f.mapView.Snapshot().Camera
	assert.Equal(t, at, cam.Center)
	assert.Equal(t, 13, cam.Zoom)
	assert.True(t, cam.Options.Animate)
	assert.Equal(t, time.Second, cam.Options.PanDuration)
}

func TestSelect_UnknownID(t *testing.T) {
	f := newFixture(t, geo.Fixed{Coords: home})
	f.start(t)

	assert.ErrorIs(t, f.ctrl.Select("nope"), apperror.ErrNotFound)
	assert.ErrorIs(t, f.ctrl.Inspect("nope"), apperror.ErrNotFound)
}

func TestInspect_OpensDetailPopup(t *testing.T) {
	f := newFixture(t, geo.Fixed{Coords: home})
	f.start(t)
	at := model.Coords{Lat: 1, Lng: 2}
	e := f.submit(t, "sad", `Rainy <script>alert("x")</script>commute & more`, at)

	require.NoError(t, f.ctrl.Inspect(e.ID))

	popups := f.mapView.Snapshot().Popups
	require.Len(t, popups, 1)
	p := popups[0]
	assert.Equal(t, at, p.Coords)
	assert.True(t, p.Open)
	assert.Equal(t, mapview.PopupOptions{MaxWidth: 300, MinWidth: 100, CloseOnClick: true}, p.Options)
	assert.Contains(t, p.Content, "<strong>Sad</strong><br>")
	assert.Contains(t, p.Content, "Description: Rainy commute &amp; more")
	assert.NotContains(t, p.Content, "<script>")

	// The stored description is untouched.
	got, err := f.ctrl.Get(e.ID)
	require.NoError(t, err)
	assert.Equal(t, `Rainy <script>alert("x")</script>commute & more`, got.Description)
}

// =========================================================================
// RESET
// =========================================================================

func TestReset_ClearsEverything(t *testing.T) {
	f := newFixture(t, geo.Fixed{Coords: home})
	f.start(t)
	f.submit(t, "happy", "one", home)
	f.submit(t, "sad", "two", home)

	require.NoError(t, f.ctrl.Reset(context.Background()))
	f.ctrl.Wait()

	assert.Empty(t, f.store.entries)
	assert.Empty(t, f.ctrl.Entries())
	assert.Empty(t, f.list.Items())
	assert.Empty(t, f.mapView.Snapshot().Markers)
	assert.True(t, f.mapView.Ready(), "map reloads at the device position")

	// A later reload also starts empty.
	reloaded := newFixture(t, geo.Fixed{Coords: home}, f.store.entries...)
	reloaded.start(t)
	assert.Empty(t, reloaded.ctrl.Entries())
}

func TestReset_WhilePositionPending(t *testing.T) {
	loc := geo.NewReported()
	f := newFixture(t, loc)
	require.NoError(t, f.ctrl.Initialize(context.Background()))
	require.Eventually(t, loc.Pending, time.Second, time.Millisecond)

	require.NoError(t, f.ctrl.Reset(context.Background()))
	require.Eventually(t, loc.Pending, time.Second, time.Millisecond)

	require.True(t, loc.Report(home))
	f.ctrl.Wait()
	assert.True(t, f.mapView.Ready())
	assert.Empty(t, f.alerts.Drain(), "cancelled request does not alert")
}

func TestReset_ClearFailureKeepsState(t *testing.T) {
	f := newFixture(t, geo.Fixed{Coords: home})
	f.start(t)
	f.submit(t, "happy", "one", home)
	f.store.clearErr = errors.New("locked")

	assert.Error(t, f.ctrl.Reset(context.Background()))
	assert.Len(t, f.ctrl.Entries(), 1)
}
