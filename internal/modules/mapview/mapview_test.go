package mapview

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bantay/internal/annotation"
	"bantay/internal/geolocation"
	"bantay/internal/mapengine"
	"bantay/internal/modules/audit"
	"bantay/internal/modules/pin"
	"bantay/internal/types"
)

type recorder struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (r *recorder) Record(_ context.Context, e audit.Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
}

func (r *recorder) actions() []audit.Action {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []audit.Action
	for _, e := range r.entries {
		out = append(out, e.Action)
	}
	return out
}

type pinList []pin.Pin

func (p pinList) List(context.Context) ([]pin.Pin, error) { return p, nil }

// flakyLoader fails the first n loads.
type flakyLoader struct {
	fails atomic.Int32
}

func (l *flakyLoader) Load(ctx context.Context, ref string) (mapengine.Style, error) {
	if l.fails.Add(-1) >= 0 {
		return mapengine.Style{}, errors.New("tile server unreachable")
	}
	return mapengine.DefaultCatalog().Load(ctx, ref)
}

func newManager(t *testing.T, deps Deps) *Manager {
	t.Helper()
	deps.Log = zerolog.Nop()
	m := NewManager(Config{JitterKm: 0.05, Geolocation: geolocation.Options{Timeout: 50 * time.Millisecond}}, deps)
	t.Cleanup(m.CloseAll)
	return m
}

func open(t *testing.T, m *Manager) *View {
	t.Helper()
	v, err := m.Open(context.Background(), OpenRequest{Owner: "uid-1"})
	require.NoError(t, err)
	return v
}

func sceneOf(v *View) *mapengine.Scene {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.scene
}

func TestOpen(t *testing.T) {
	rec := &recorder{}
	m := newManager(t, Deps{Audit: rec})
	v := open(t, m)

	st := v.State()
	assert.Equal(t, StatusReady, st.Status)
	assert.Equal(t, "streets", st.Style)
	require.NotNil(t, st.Scene)
	assert.Len(t, st.Scene.Controls, 3)
	assert.Equal(t, 1, m.Len())
	assert.Contains(t, rec.actions(), audit.ActionViewOpened)

	got, err := m.Get(v.ID)
	require.NoError(t, err)
	assert.Same(t, v, got)
}

func TestOpen_FailureThenRetry(t *testing.T) {
	loader := &flakyLoader{}
	loader.fails.Store(2)
	m := newManager(t, Deps{Loader: loader})

	v, err := m.Open(context.Background(), OpenRequest{})
	require.Error(t, err)
	assert.ErrorIs(t, err, mapengine.ErrStyleLoad)
	require.NotNil(t, v)

	st := v.State()
	assert.Equal(t, StatusError, st.Status)
	assert.NotEmpty(t, st.Error)
	assert.ErrorIs(t, v.Dispatch(Event{Kind: EventPointer, Pointer: &mapengine.PointerEvent{}}), ErrEngineUnavailable)

	assert.Error(t, v.Retry(context.Background()))
	require.NoError(t, v.Retry(context.Background()))
	require.NoError(t, v.Retry(context.Background()))
	assert.Equal(t, StatusReady, v.State().Status)
}

func TestSetInputs_FromStore(t *testing.T) {
	m := newManager(t, Deps{Pins: pinList{
		{ID: "a", Type: "Fire", Lat: 14.1, Lng: 121.5},
		{ID: "b", Type: "Hospital", Lat: 14.2, Lng: 121.4},
	}})
	v := open(t, m)

	require.NoError(t, v.SetInputs(context.Background(), Update{PinSource: PinSourceStore}, false))
	assert.Len(t, v.State().Scene.Markers, 2)
}

func TestSetInputs_SingleCoordinates(t *testing.T) {
	m := newManager(t, Deps{})
	v := open(t, m)

	err := v.SetInputs(context.Background(), Update{
		Single:            &annotation.SingleMarker{Pin: annotation.Pin{Type: "Flood"}},
		SingleCoordinates: "14.1139, 121.5556",
	}, false)
	require.NoError(t, err)

	markers := v.State().Scene.Markers
	require.Len(t, markers, 1)
	assert.InDelta(t, 121.5556, markers[0].LngLat.Lon(), 1e-9)
	assert.InDelta(t, 14.1139, markers[0].LngLat.Lat(), 1e-9)

	require.NoError(t, v.SetInputs(context.Background(), Update{
		Single:            &annotation.SingleMarker{Pin: annotation.Pin{Type: "Flood"}},
		SingleCoordinates: "abc,def",
	}, false))
	markers = v.State().Scene.Markers
	require.Len(t, markers, 1)
	assert.Equal(t, orb.Point{121.5556, 14.1139}, markers[0].LngLat)
}

func TestReportLocation_IgnoresJitter(t *testing.T) {
	m := newManager(t, Deps{})
	v := open(t, m)
	require.NoError(t, v.SetInputs(context.Background(), Update{
		Single: &annotation.SingleMarker{Pin: annotation.Pin{Type: "Fire", Lat: 14.2, Lng: 121.2}},
	}, false))

	require.NoError(t, v.ReportLocation(geolocation.Position{Point: types.Point{Lat: 14.1, Lng: 121.1}}))
	assert.Equal(t, 14.1, v.State().UserLocation.Lat)

	require.NoError(t, v.ReportLocation(geolocation.Position{Point: types.Point{Lat: 14.1001, Lng: 121.1}}))
	assert.Equal(t, 14.1, v.State().UserLocation.Lat)

	require.NoError(t, v.ReportLocation(geolocation.Position{Point: types.Point{Lat: 14.15, Lng: 121.1}}))
	assert.Equal(t, 14.15, v.State().UserLocation.Lat)
	assert.Len(t, v.State().Scene.Markers, 2)

	assert.Error(t, v.ReportLocation(geolocation.Position{Point: types.Point{Lat: 99, Lng: 0}}))
}

func TestPlacemark(t *testing.T) {
	rec := &recorder{}
	m := newManager(t, Deps{Audit: rec})
	v := open(t, m)
	require.NoError(t, v.SetInputs(context.Background(), Update{
		Single: &annotation.SingleMarker{Pin: annotation.Pin{Type: "Fire", Lat: 14.2, Lng: 121.2}},
	}, false))

	require.NoError(t, v.SetPlacemark(true))
	st := v.State()
	assert.True(t, st.Placemark)
	assert.Equal(t, "none", st.Scene.Cursor)
	assert.Len(t, st.Scene.Nodes, 1)

	require.NoError(t, v.Dispatch(Event{Kind: EventMap, Map: &mapengine.MapEvent{Type: mapengine.EventClick, LngLat: orb.Point{121.3, 14.3}}}))
	roles := map[string]int{}
	for _, mk := range v.State().Scene.Markers {
		roles[mk.Role]++
	}
	assert.Equal(t, 1, roles["clicked-location"])
	assert.Contains(t, rec.actions(), audit.ActionPlacemarkDropped)

	require.NoError(t, v.SetPlacemark(false))
	st = v.State()
	assert.Empty(t, st.Scene.Nodes)
	assert.NotEqual(t, "none", st.Scene.Cursor)
}

func TestEditAction_Queued(t *testing.T) {
	rec := &recorder{}
	m := newManager(t, Deps{Audit: rec})
	v := open(t, m)
	require.NoError(t, v.SetInputs(context.Background(), Update{
		Pins: []annotation.Pin{{ID: "p1", Type: "Fire", Lat: 14.1, Lng: 121.5}},
	}, true))

	id := v.State().Scene.Markers[0].ID
	require.NoError(t, v.Dispatch(Event{Kind: EventMarker, MarkerID: id, DOMEvent: mapengine.DOMClick}))

	st := v.State()
	require.Len(t, st.Actions, 1)
	assert.Equal(t, ActionEdit, st.Actions[0].Kind)
	assert.Equal(t, "p1", st.Actions[0].PinID)
	assert.Empty(t, v.State().Actions)
	assert.Contains(t, rec.actions(), audit.ActionEditRequested)
}

func TestDeleteAction_ViaPopup(t *testing.T) {
	m := newManager(t, Deps{})
	v := open(t, m)
	require.NoError(t, v.SetInputs(context.Background(), Update{
		Single:      &annotation.SingleMarker{Pin: annotation.Pin{ID: "p7", Type: "Crime", Lat: 14.1, Lng: 121.5}},
		ShowActions: true,
	}, true))

	require.NoError(t, v.HandleAction("delete", "p7"))
	st := v.State()
	require.Len(t, st.Actions, 1)
	assert.Equal(t, ActionDelete, st.Actions[0].Kind)

	require.NoError(t, v.SetInputs(context.Background(), Update{ShowActions: true}, false))
	assert.ErrorIs(t, v.HandleAction("delete", "p7"), annotation.ErrNotAllowed)
}

func TestSetStyle_Reinitialises(t *testing.T) {
	m := newManager(t, Deps{})
	v := open(t, m)
	require.NoError(t, v.SetInputs(context.Background(), Update{
		Pins: []annotation.Pin{{ID: "a", Type: "Fire", Lat: 14.1, Lng: 121.5}, {ID: "b", Type: "Flood", Lat: 14.2, Lng: 121.4}},
	}, false))
	require.NoError(t, v.SetPlacemark(true))
	old := sceneOf(v)

	require.NoError(t, v.SetStyle(context.Background(), "dark"))
	assert.Empty(t, old.Markers())
	assert.Empty(t, old.Nodes())
	assert.False(t, old.HasControl("navigation"))
	assert.Zero(t, old.PointerListenerCount())

	st := v.State()
	assert.Equal(t, "dark", st.Style)
	assert.Len(t, st.Scene.Markers, 2)
	assert.Len(t, st.Scene.Nodes, 1)
	assert.Len(t, st.Scene.Controls, 3)

	assert.ErrorIs(t, v.SetStyle(context.Background(), "nope"), mapengine.ErrStyleLoad)
	assert.Equal(t, StatusError, v.State().Status)
	require.NoError(t, v.SetStyle(context.Background(), "streets"))
	assert.Len(t, v.State().Scene.Markers, 2)
}

func TestSetStyle_FailureReleasesOldScene(t *testing.T) {
	m := newManager(t, Deps{})
	v := open(t, m)
	require.NoError(t, v.SetInputs(context.Background(), Update{
		Pins: []annotation.Pin{{ID: "a", Type: "Fire", Lat: 14.1, Lng: 121.5}},
	}, false))
	old := sceneOf(v)
	require.Len(t, old.Markers(), 1)

	assert.ErrorIs(t, v.SetStyle(context.Background(), "nope"), mapengine.ErrStyleLoad)
	assert.Empty(t, old.Markers())
	assert.False(t, old.HasControl("navigation"))
	assert.Zero(t, old.ListenerCount(mapengine.EventClick))
	assert.ErrorIs(t, v.SelectDestination(types.Point{Lat: 14.2, Lng: 121.4}, "Calamba"), ErrEngineUnavailable)

	require.NoError(t, v.SetInputs(context.Background(), Update{
		Pins: []annotation.Pin{{ID: "a", Type: "Fire", Lat: 14.1, Lng: 121.5}, {ID: "b", Type: "Flood", Lat: 14.2, Lng: 121.4}},
	}, false))
	assert.Empty(t, old.Markers())

	require.NoError(t, v.SetStyle(context.Background(), "streets"))
	assert.Len(t, v.State().Scene.Markers, 2)
}

func TestDispatch_BadEvents(t *testing.T) {
	m := newManager(t, Deps{})
	v := open(t, m)
	assert.ErrorIs(t, v.Dispatch(Event{Kind: EventMarker}), ErrBadEvent)
	assert.ErrorIs(t, v.Dispatch(Event{Kind: EventMap}), ErrBadEvent)
	assert.ErrorIs(t, v.Dispatch(Event{Kind: "keyboard"}), ErrBadEvent)
	assert.ErrorIs(t, v.Dispatch(Event{Kind: EventMarker, MarkerID: "x", DOMEvent: mapengine.DOMClick}), mapengine.ErrNotFound)
	require.NoError(t, v.Dispatch(Event{Kind: EventPopup, PopupKind: mapengine.PopupHover}))
}

func TestClose(t *testing.T) {
	m := newManager(t, Deps{})
	v := open(t, m)
	require.NoError(t, m.Close(v.ID))
	assert.ErrorIs(t, m.Close(v.ID), ErrViewNotFound)
	_, err := m.Get(v.ID)
	assert.ErrorIs(t, err, ErrViewNotFound)
	assert.ErrorIs(t, v.Dispatch(Event{Kind: EventPopup}), ErrViewNotFound)
	v.Close()
}

func TestLocationRequest(t *testing.T) {
	m := NewManager(Config{JitterKm: 0.05}, Deps{Log: zerolog.Nop()})
	t.Cleanup(m.CloseAll)
	v := open(t, m)

	require.Eventually(t, func() bool { return v.State().LocationRequest != nil }, time.Second, 5*time.Millisecond)
	assert.True(t, v.State().LocationRequest.HighAccuracy)

	require.NoError(t, v.ReportLocation(geolocation.Position{Point: types.Point{Lat: 14.1, Lng: 121.1}}))
	assert.Nil(t, v.State().LocationRequest)
	assert.NotNil(t, v.State().UserLocation)
}
