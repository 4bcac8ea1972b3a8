package mapview

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"bantay/internal/annotation"
	"bantay/internal/cursor"
	"bantay/internal/geo"
	"bantay/internal/geolocation"
	"bantay/internal/mapengine"
	"bantay/internal/modules/audit"
	"bantay/internal/modules/pin"
	"bantay/internal/types"
)

// View hosts one dashboard map: its scene, annotation session, placemark
// cursor and device location.
type View struct {
	ID    string
	Owner string

	cfg  Config
	deps Deps
	log  zerolog.Logger

	ctx  context.Context
	stop context.CancelFunc

	mu        sync.Mutex
	style     string
	width     int
	height    int
	scene     *mapengine.Scene
	initErr   error
	session   *annotation.Session
	cursor    *cursor.Controller
	hostOffs  []func()
	locator   *geolocation.Reported
	inputs    annotation.Inputs
	placemark bool
	actions   []Action
	closed    bool
}

func newView(id, owner, style string, width, height int, cfg Config, deps Deps) *View {
	ctx, stop := context.WithCancel(context.Background())
	return &View{
		ID:      id,
		Owner:   owner,
		cfg:     cfg,
		deps:    deps,
		log:     deps.Log.With().Str("view", id).Logger(),
		ctx:     ctx,
		stop:    stop,
		style:   style,
		width:   width,
		height:  height,
		locator: geolocation.NewReported(),
	}
}

// initLocked opens a scene for the current style and moves the session
// onto it. On failure the view stays in the error state until Retry.
func (v *View) initLocked(ctx context.Context) error {
	scene, err := mapengine.Open(ctx, mapengine.Options{
		Style:   v.style,
		Loader:  v.deps.Loader,
		Center:  v.cfg.Center,
		Zoom:    v.cfg.Zoom,
		Width:   v.width,
		Height:  v.height,
		Timeout: v.cfg.LoadTimeout,
		Log:     v.log,
	})
	if err != nil {
		v.scene = nil
		v.cursor = nil
		v.initErr = err
		return err
	}

	v.scene = scene
	v.initErr = nil
	if v.session == nil {
		v.session = annotation.NewSession(scene, annotation.Deps{
			Router:   v.deps.Router,
			Geocoder: v.deps.Geocoder,
			Callbacks: annotation.Callbacks{
				OnEditPin:   func(id string) { v.queueAction(ActionEdit, id) },
				OnDeletePin: func(id string) { v.queueAction(ActionDelete, id) },
			},
			Controls:   DefaultControls(),
			Log:        v.log,
			Metrics:    v.deps.Metrics,
			RouteColor: v.cfg.RouteColor,
			Padding:    v.cfg.Padding,
		})
		v.session.Rebuild(v.inputs)
	} else if err := v.session.Reattach(scene); err != nil {
		return err
	}

	v.cursor = cursor.New(scene, v.log)
	if v.placemark {
		if err := v.cursor.SetActive(true); err != nil {
			v.log.Warn().Err(err).Msg("restore placement cursor failed")
		}
	}
	v.hostOffs = append(v.hostOffs, scene.On(mapengine.EventClick, "", v.onMapClick))
	return nil
}

// releaseLocked drops the host's own resources on the current scene.
func (v *View) releaseLocked() {
	if v.cursor != nil {
		v.cursor.Close()
	}
	for _, off := range v.hostOffs {
		off()
	}
	v.hostOffs = nil
}

// Retry re-attempts a failed engine initialisation.
func (v *View) Retry(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return ErrViewNotFound
	}
	if v.scene != nil {
		return nil
	}
	return v.initLocked(ctx)
}

// SetStyle re-initialises the engine with another base style. Everything
// owned on the old scene is torn down before the new one is built.
func (v *View) SetStyle(ctx context.Context, style string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return ErrViewNotFound
	}
	v.releaseLocked()
	if v.session != nil {
		v.session.Detach()
	}
	v.style = style
	return v.initLocked(ctx)
}

// SetInputs replaces the view's inputs and rebuilds its annotations.
func (v *View) SetInputs(ctx context.Context, u Update, canEdit bool) error {
	pins := u.Pins
	if u.PinSource == PinSourceStore {
		if v.deps.Pins == nil {
			return fmt.Errorf("%w: no pin store configured", ErrBadEvent)
		}
		stored, err := v.deps.Pins.List(ctx)
		if err != nil {
			return fmt.Errorf("load pins: %w", err)
		}
		pins = FromStore(stored)
	}

	single := u.Single
	if single != nil && strings.TrimSpace(u.SingleCoordinates) != "" {
		p := geo.Normalize(u.SingleCoordinates)
		s := *single
		s.Lat, s.Lng = p.Lat(), p.Lon()
		single = &s
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return ErrViewNotFound
	}
	v.inputs = annotation.Inputs{
		Pins:            pins,
		Single:          single,
		Filters:         u.Filters,
		UserLocation:    v.inputs.UserLocation,
		ClickedLocation: u.ClickedLocation,
		Directions:      u.Directions,
		ShowTravelTime:  u.ShowTravelTime,
		CanEdit:         canEdit,
		ShowActions:     u.ShowActions,
	}
	v.rebuildLocked()
	return nil
}

// rebuildLocked hands the inputs to the session. A session whose scene
// failed to re-initialise keeps them for the next Reattach.
func (v *View) rebuildLocked() {
	if v.session != nil {
		v.session.Rebuild(v.inputs)
	}
}

// ReportLocation records a device fix. Moves smaller than the configured
// jitter distance do not rebuild the map.
func (v *View) ReportLocation(pos geolocation.Position) error {
	if err := v.locator.Report(pos); err != nil {
		return err
	}
	v.applyLocation(pos.Point)
	return nil
}

// ReportLocationError fails a pending location request.
func (v *View) ReportLocationError(reason string) {
	v.locator.ReportError(reason)
}

func (v *View) applyLocation(p types.Point) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	if cur := v.inputs.UserLocation; cur != nil && geo.DistanceKm(*cur, p) < v.cfg.JitterKm {
		return
	}
	v.inputs.UserLocation = &p
	v.rebuildLocked()
}

// locate runs the one-shot device location request. Reports that arrive
// through ReportLocation are applied there; this only fills a missing
// location.
func (v *View) locate() {
	p := geolocation.Locate(v.ctx, v.locator, v.cfg.Geolocation, v.log)
	if p == nil {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed || v.inputs.UserLocation != nil {
		return
	}
	v.inputs.UserLocation = p
	v.rebuildLocked()
}

// SetPlacemark toggles placement mode.
func (v *View) SetPlacemark(active bool) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return ErrViewNotFound
	}
	v.placemark = active
	if v.cursor == nil {
		return nil
	}
	return v.cursor.SetActive(active)
}

func (v *View) onMapClick(e mapengine.MapEvent) {
	v.mu.Lock()
	if v.closed || !v.placemark {
		v.mu.Unlock()
		return
	}
	p := types.Point{Lat: e.LngLat.Lat(), Lng: e.LngLat.Lon()}
	if !geo.Valid(p.Lat, p.Lng) {
		v.mu.Unlock()
		return
	}
	v.inputs.ClickedLocation = &p
	v.rebuildLocked()
	v.mu.Unlock()

	v.audit(audit.Entry{Action: audit.ActionPlacemarkDropped, Lat: &p.Lat, Lng: &p.Lng})
}

// Dispatch forwards a client interaction to the scene. Listeners run
// without the view lock held.
func (v *View) Dispatch(e Event) error {
	v.mu.Lock()
	scene, session := v.scene, v.session
	closed := v.closed
	v.mu.Unlock()
	if closed {
		return ErrViewNotFound
	}
	if scene == nil {
		return ErrEngineUnavailable
	}

	switch e.Kind {
	case EventMarker:
		if e.MarkerID == "" || e.DOMEvent == "" {
			return ErrBadEvent
		}
		return scene.DispatchMarker(e.MarkerID, e.DOMEvent)
	case EventMap:
		if e.Map == nil {
			return ErrBadEvent
		}
		if e.Map.Type == mapengine.EventClick {
			v.auditRouteIntent(*e.Map)
		}
		return scene.DispatchMap(*e.Map)
	case EventPointer:
		if e.Pointer == nil {
			return ErrBadEvent
		}
		scene.DispatchPointer(*e.Pointer)
		return nil
	case EventPopup:
		session.ClosePopup(e.PopupKind)
		return nil
	}
	return fmt.Errorf("%w: kind %q", ErrBadEvent, e.Kind)
}

func (v *View) auditRouteIntent(e mapengine.MapEvent) {
	v.mu.Lock()
	directions := v.inputs.Directions && v.inputs.UserLocation != nil
	v.mu.Unlock()
	if directions {
		lat, lng := e.LngLat.Lat(), e.LngLat.Lon()
		v.audit(audit.Entry{Action: audit.ActionRouteRequested, Lat: &lat, Lng: &lng})
	}
}

// SelectDestination handles a geocoder pick.
func (v *View) SelectDestination(p types.Point, label string) error {
	v.mu.Lock()
	session, scene, closed := v.session, v.scene, v.closed
	v.mu.Unlock()
	if closed {
		return ErrViewNotFound
	}
	if scene == nil {
		return ErrEngineUnavailable
	}
	if err := session.SelectDestination(p, label); err != nil {
		if errors.Is(err, annotation.ErrDetached) {
			return ErrEngineUnavailable
		}
		return err
	}
	v.audit(audit.Entry{Action: audit.ActionRouteRequested, Lat: &p.Lat, Lng: &p.Lng})
	return nil
}

// HandleAction runs a popup button for pinID.
func (v *View) HandleAction(action, pinID string) error {
	v.mu.Lock()
	session, closed := v.session, v.closed
	v.mu.Unlock()
	if closed {
		return ErrViewNotFound
	}
	if session == nil {
		return ErrEngineUnavailable
	}
	return session.HandleAction(action, pinID)
}

func (v *View) queueAction(kind ActionKind, pinID string) {
	v.mu.Lock()
	v.actions = append(v.actions, Action{Kind: kind, PinID: pinID, At: time.Now().UTC()})
	v.mu.Unlock()

	action := audit.ActionEditRequested
	if kind == ActionDelete {
		action = audit.ActionDeleteRequested
	}
	v.audit(audit.Entry{Action: action, PinID: &pinID})
}

func (v *View) audit(e audit.Entry) {
	if v.deps.Audit == nil {
		return
	}
	e.ViewID = v.ID
	e.ActorUID = v.Owner
	v.deps.Audit.Record(v.ctx, e)
}

// State returns the client document and hands over queued actions.
func (v *View) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()

	st := State{
		ID:        v.ID,
		Style:     v.style,
		Status:    StatusReady,
		Placemark: v.placemark,
		Actions:   v.actions,
	}
	v.actions = nil
	if st.Actions == nil {
		st.Actions = []Action{}
	}
	if v.inputs.UserLocation != nil {
		p := *v.inputs.UserLocation
		st.UserLocation = &p
	}
	if opts, ok := v.locator.Requested(); ok {
		st.LocationRequest = &opts
	}
	if v.scene == nil {
		st.Status = StatusError
		if v.initErr != nil {
			st.Error = v.initErr.Error()
		}
		return st
	}
	snap := v.scene.Snapshot()
	st.Scene = &snap
	st.Route = v.session.Route()
	return st
}

// Close releases the view. Safe to call more than once.
func (v *View) Close() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.closed = true
	v.releaseLocked()
	session := v.session
	v.mu.Unlock()

	v.stop()
	if session != nil {
		session.Dispose()
	}
}

// FromStore converts stored pins into annotation pins.
func FromStore(pins []pin.Pin) []annotation.Pin {
	out := make([]annotation.Pin, 0, len(pins))
	for _, p := range pins {
		out = append(out, annotation.Pin{
			ID:           p.ID,
			Type:         p.Type,
			Title:        p.Title,
			Description:  p.Description,
			ReportID:     p.ReportID,
			LocationName: p.LocationName,
			Lat:          p.Lat,
			Lng:          p.Lng,
		})
	}
	return out
}
