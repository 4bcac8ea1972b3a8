package annotation

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/rs/zerolog"

	"bantay/internal/geo"
	"bantay/internal/layers"
	"bantay/internal/mapengine"
	"bantay/internal/maps"
	"bantay/internal/marker"
	"bantay/internal/popup"
	"bantay/internal/registry"
	"bantay/internal/types"
)

// popupOffset lifts popups above the marker icon.
const popupOffset = 25

// visual pairs an engine marker with the listeners attached to it.
type visual struct {
	marker *mapengine.Marker
	offs   []func()
}

func (v *visual) on(ev mapengine.DOMEvent, fn func()) {
	v.offs = append(v.offs, v.marker.On(ev, fn))
}

func (v *visual) detach() {
	for _, off := range v.offs {
		off()
	}
	v.offs = nil
}

// Session is the sole owner of the annotations drawn on one map. All scene
// mutation happens under mu; only routing and reverse geocoding run off it.
type Session struct {
	mu   sync.Mutex
	m    mapengine.Map
	deps Deps
	log  zerolog.Logger

	layers *layers.Controller
	route  *RouteRenderer

	in      Inputs
	epoch   uint64
	visuals []*visual
	mapOffs []func()

	hoverID  string
	clickID  string
	clickRec *popup.Record

	gen     uint64
	cancel  context.CancelFunc
	pending bool
	result  *maps.RouteResult

	geoGen    uint64
	geoCancel context.CancelFunc

	ctx      context.Context
	stop     context.CancelFunc
	disposed bool
	detached bool
	wg       sync.WaitGroup
}

func NewSession(m mapengine.Map, deps Deps) *Session {
	ctx, stop := context.WithCancel(context.Background())
	s := &Session{
		deps: deps,
		log:  deps.Log.With().Str("component", "annotation").Logger(),
		ctx:  ctx,
		stop: stop,
	}
	s.mu.Lock()
	s.bindLocked(m)
	s.mu.Unlock()
	return s
}

// Rebuild tears down every annotation and popup and draws in from scratch.
func (s *Session) Rebuild(in Inputs) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return
	}
	if s.detached {
		s.in = in
		return
	}
	s.teardownLocked()
	s.in = in
	s.buildLocked()
}

// Detach releases everything owned on the current map and leaves the
// session without one. Inputs given to Rebuild while detached are kept and
// drawn by the next Reattach.
func (s *Session) Detach() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed || s.detached {
		return
	}
	s.detachLocked()
}

func (s *Session) detachLocked() {
	s.teardownLocked()
	s.cancelRouteLocked()
	s.releaseLocked()
	s.detached = true
}

// Reattach moves the session onto a freshly initialised map. Everything
// owned on the old map is released first.
func (s *Session) Reattach(m mapengine.Map) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return ErrDisposed
	}
	if !s.detached {
		s.detachLocked()
	}
	s.detached = false
	s.bindLocked(m)
	s.buildLocked()
	return nil
}

// Dispose releases everything the session owns. In-flight routing and
// geocoding results are dropped when they arrive.
func (s *Session) Dispose() {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.disposed = true
	if !s.detached {
		s.detachLocked()
	}
	s.mu.Unlock()
	s.stop()
}

// Wait blocks until background routing and geocoding calls have settled.
func (s *Session) Wait() { s.wg.Wait() }

func (s *Session) Inputs() Inputs {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.in
}

func (s *Session) Route() RouteState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return RouteState{Pending: s.pending, Result: s.result}
}

// MarkerCount returns the number of live annotations.
func (s *Session) MarkerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.visuals)
}

// SelectDestination handles a geocoder pick. A non-empty label opens a
// click popup naming the place.
func (s *Session) SelectDestination(p types.Point, label string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return ErrDisposed
	}
	if s.detached {
		return ErrDetached
	}
	if !geo.Valid(p.Lat, p.Lng) {
		return geo.ErrInvalidCoordinates
	}
	s.requestRouteLocked(p)
	if label != "" {
		s.openClickLocked(popup.Record{Type: registry.Fallback, Title: label, Lat: p.Lat, Lng: p.Lng}, p)
	}
	return nil
}

// HandleAction runs a popup button. Edit and delete need both CanEdit and
// ShowActions; callbacks run after the session lock is released.
func (s *Session) HandleAction(action, id string) error {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return ErrDisposed
	}

	var cb func(string)
	switch action {
	case popup.ActionClose:
		s.closeClickLocked()
		s.mu.Unlock()
		return nil
	case popup.ActionEdit:
		cb = s.deps.Callbacks.OnEditPin
	case popup.ActionDelete:
		cb = s.deps.Callbacks.OnDeletePin
	default:
		s.mu.Unlock()
		return ErrUnknownAction
	}
	if !s.in.CanEdit || !s.in.ShowActions || cb == nil || id == "" {
		s.mu.Unlock()
		return ErrNotAllowed
	}
	if action == popup.ActionDelete {
		s.closeClickLocked()
	}
	s.mu.Unlock()

	cb(id)
	return nil
}

// ClosePopup closes the hover or click popup, e.g. when the user dismisses it.
func (s *Session) ClosePopup(kind mapengine.PopupKind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch kind {
	case mapengine.PopupHover:
		s.closeHoverLocked()
	case mapengine.PopupClick:
		s.closeClickLocked()
	}
}

func (s *Session) bindLocked(m mapengine.Map) {
	s.m = m
	s.layers = layers.NewController(m, s.deps.Log)
	s.route = NewRouteRenderer(m, s.deps.RouteColor, s.deps.Padding)
	for _, c := range s.deps.Controls {
		if m.HasControl(c.ID) {
			continue
		}
		if err := m.AddControl(c); err != nil {
			s.log.Warn().Err(err).Str("control", c.ID).Msg("add control failed")
		}
	}
}

// releaseLocked removes the route, heatmap and controls from the map.
func (s *Session) releaseLocked() {
	if err := s.route.Clear(); err != nil {
		s.log.Warn().Err(err).Msg("clear route failed")
	}
	if err := s.layers.RemoveHeatmap(); err != nil {
		s.log.Warn().Err(err).Msg("remove heatmap failed")
	}
	for _, c := range s.deps.Controls {
		if !s.m.HasControl(c.ID) {
			continue
		}
		if err := s.m.RemoveControl(c.ID); err != nil {
			s.log.Warn().Err(err).Str("control", c.ID).Msg("remove control failed")
		}
	}
}

// teardownLocked removes every annotation, listener and popup. Handlers
// captured before the teardown see a stale epoch and do nothing.
func (s *Session) teardownLocked() {
	s.epoch++
	for _, v := range s.visuals {
		v.detach()
		s.m.RemoveMarker(v.marker.ID)
	}
	s.visuals = nil
	for _, off := range s.mapOffs {
		off()
	}
	s.mapOffs = nil
	s.closeHoverLocked()
	s.closeClickLocked()

	s.geoGen++
	if s.geoCancel != nil {
		s.geoCancel()
		s.geoCancel = nil
	}
}

func (s *Session) routingWantedLocked() bool {
	return s.deps.Router != nil && s.in.UserLocation != nil && (s.in.Directions || s.in.ShowTravelTime)
}

func (s *Session) buildLocked() {
	in := s.in
	s.layers.Apply(in.Filters)

	if !s.routingWantedLocked() {
		s.cancelRouteLocked()
	}
	if !in.Directions || s.result == nil {
		if err := s.route.Clear(); err != nil {
			s.log.Warn().Err(err).Msg("clear route failed")
		}
	}

	s.listenMapLocked()

	if in.Heatmap() {
		var pts []orb.Point
		for _, p := range in.Pins {
			if geo.Valid(p.Lat, p.Lng) {
				pts = append(pts, geo.LngLat(p.point()))
			}
		}
		if err := s.layers.ApplyHeatmap(true, pts); err != nil {
			s.log.Warn().Err(err).Msg("apply heatmap failed")
		}
		return
	}
	if err := s.layers.RemoveHeatmap(); err != nil {
		s.log.Warn().Err(err).Msg("remove heatmap failed")
	}

	if in.Single != nil {
		s.buildSingleLocked(*in.Single)
		return
	}
	for _, p := range in.Pins {
		s.buildPinLocked(p)
	}
}

func (s *Session) buildSingleLocked(sm SingleMarker) {
	in := s.in
	epoch := s.epoch

	if geo.Valid(sm.Lat, sm.Lng) {
		v := s.addMarkerLocked(marker.Build(sm.Type, marker.RoleFeatured, sm.Pulse), sm.point())
		if v != nil {
			rec, at := sm.record(), sm.point()
			v.on(mapengine.DOMClick, func() {
				s.guard(epoch, func() { s.openClickLocked(rec, at) })
			})
		}
		s.requestRouteLocked(sm.point())
	} else {
		s.log.Warn().Str("id", sm.ID).Float64("lat", sm.Lat).Float64("lng", sm.Lng).Msg("single marker has invalid coordinates, skipped")
	}

	if u := in.UserLocation; u != nil && geo.Valid(u.Lat, u.Lng) {
		s.addMarkerLocked(marker.Build("", marker.RoleUserLocation, false), *u)
	}
	if c := in.ClickedLocation; c != nil && geo.Valid(c.Lat, c.Lng) {
		s.addMarkerLocked(marker.Build("", marker.RoleClickedLocation, false), *c)
	}
}

func (s *Session) buildPinLocked(p Pin) {
	if !geo.Valid(p.Lat, p.Lng) {
		s.log.Warn().Str("id", p.ID).Float64("lat", p.Lat).Float64("lng", p.Lng).Msg("pin has invalid coordinates, skipped")
		return
	}
	v := s.addMarkerLocked(marker.Build(p.Type, marker.RoleStandard, false), p.point())
	if v == nil {
		return
	}

	epoch := s.epoch
	rec, at := p.record(), p.point()
	v.on(mapengine.DOMMouseEnter, func() {
		s.guard(epoch, func() { s.openHoverLocked(popup.HoverPreview(rec), at) })
	})
	v.on(mapengine.DOMMouseLeave, func() {
		s.guard(epoch, s.closeHoverLocked)
	})
	v.on(mapengine.DOMClick, func() { s.onPinClick(epoch, p) })
}

func (s *Session) addMarkerLocked(el *marker.Element, at types.Point) *visual {
	mk := mapengine.NewMarker(el, geo.LngLat(at))
	if err := s.m.AddMarker(mk); err != nil {
		s.log.Warn().Err(err).Str("marker", mk.ID).Msg("add marker failed")
		return nil
	}
	v := &visual{marker: mk}
	epoch := s.epoch
	v.on(mapengine.DOMIconError, func() {
		s.guard(epoch, func() { el.IconFailed() })
	})
	s.visuals = append(s.visuals, v)
	return v
}

func (s *Session) onPinClick(epoch uint64, p Pin) {
	s.mu.Lock()
	if s.disposed || s.detached || epoch != s.epoch {
		s.mu.Unlock()
		return
	}
	if cb := s.deps.Callbacks.OnEditPin; s.in.CanEdit && cb != nil {
		s.mu.Unlock()
		cb(p.ID)
		return
	}
	s.requestRouteLocked(p.point())
	s.openClickLocked(p.record(), p.point())
	s.mu.Unlock()
}

func (s *Session) listenMapLocked() {
	epoch := s.epoch
	s.mapOffs = append(s.mapOffs, s.m.On(mapengine.EventClick, "", func(e mapengine.MapEvent) {
		s.onMapClick(epoch, e)
	}))

	for _, f := range registry.Facilities() {
		if f.TilesetLayer == "" {
			continue
		}
		label := f.Label
		s.mapOffs = append(s.mapOffs,
			s.m.On(mapengine.EventMouseMove, f.TilesetLayer, func(e mapengine.MapEvent) {
				var props map[string]any
				if len(e.Features) > 0 {
					props = e.Features[0].Properties
				}
				at := types.Point{Lat: e.LngLat.Lat(), Lng: e.LngLat.Lon()}
				s.guard(epoch, func() { s.openHoverLocked(popup.TilesetFeatureHover(props, label), at) })
			}),
			s.m.On(mapengine.EventMouseLeave, f.TilesetLayer, func(mapengine.MapEvent) {
				s.guard(epoch, s.closeHoverLocked)
			}),
		)
	}
}

func (s *Session) onMapClick(epoch uint64, e mapengine.MapEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed || epoch != s.epoch || !s.in.Directions {
		return
	}
	at := types.Point{Lat: e.LngLat.Lat(), Lng: e.LngLat.Lon()}
	if !geo.Valid(at.Lat, at.Lng) {
		return
	}
	s.requestRouteLocked(at)
	s.reverseGeocodeLocked(at)
}

// guard runs fn under the lock unless the session was disposed or rebuilt
// since the handler was attached.
func (s *Session) guard(epoch uint64, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed || epoch != s.epoch {
		return
	}
	fn()
}

// Popups

func (s *Session) openHoverLocked(html string, at types.Point) {
	s.closeHoverLocked()
	id := uuid.NewString()
	err := s.m.AddPopup(mapengine.Popup{ID: id, Kind: mapengine.PopupHover, LngLat: geo.LngLat(at), HTML: html, Offset: popupOffset})
	if err != nil {
		s.log.Warn().Err(err).Msg("open hover popup failed")
		return
	}
	s.hoverID = id
}

func (s *Session) closeHoverLocked() {
	if s.hoverID == "" {
		return
	}
	s.m.RemovePopup(s.hoverID)
	s.hoverID = ""
}

func (s *Session) openClickLocked(rec popup.Record, at types.Point) {
	s.closeClickLocked()
	id := uuid.NewString()
	err := s.m.AddPopup(mapengine.Popup{
		ID:     id,
		Kind:   mapengine.PopupClick,
		LngLat: geo.LngLat(at),
		HTML:   popup.ClickDetail(rec, s.clickOptionsLocked()),
		Offset: popupOffset,
	})
	if err != nil {
		s.log.Warn().Err(err).Msg("open click popup failed")
		return
	}
	s.clickID = id
	s.clickRec = &rec
}

func (s *Session) closeClickLocked() {
	if s.clickID == "" {
		return
	}
	s.m.RemovePopup(s.clickID)
	s.clickID = ""
	s.clickRec = nil
}

func (s *Session) clickOptionsLocked() popup.ClickOptions {
	opts := popup.ClickOptions{ShowActions: s.in.ShowActions, CanEdit: s.in.CanEdit}
	if !s.in.ShowTravelTime || s.in.UserLocation == nil {
		return opts
	}
	switch {
	case s.pending:
		opts.Travel = &popup.Travel{Loading: true}
	case s.result != nil:
		opts.Travel = &popup.Travel{Duration: s.result.DurationDisplay, Distance: s.result.DistanceDisplay}
	}
	return opts
}

func (s *Session) refreshClickLocked() {
	if s.clickID == "" || s.clickRec == nil {
		return
	}
	html := popup.ClickDetail(*s.clickRec, s.clickOptionsLocked())
	if err := s.m.SetPopupHTML(s.clickID, html); err != nil {
		s.log.Warn().Err(err).Msg("refresh click popup failed")
	}
}

// Routing

// requestRouteLocked starts a travel-time request towards dest and
// supersedes any request still in flight.
func (s *Session) requestRouteLocked(dest types.Point) {
	if !s.routingWantedLocked() {
		return
	}
	s.gen++
	g := s.gen
	if s.cancel != nil {
		s.cancel()
	}
	ctx, cancel := context.WithCancel(s.ctx)
	s.cancel = cancel
	s.pending = true
	origin := *s.in.UserLocation
	s.refreshClickLocked()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		res := s.deps.Router.TravelTime(ctx, origin, dest)
		s.applyRoute(g, res)
	}()
}

func (s *Session) applyRoute(g uint64, res *maps.RouteResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed || g != s.gen {
		s.deps.Metrics.IncStaleRoute()
		s.log.Debug().Uint64("generation", g).Uint64("current", s.gen).Msg("discarding superseded route")
		return
	}
	s.pending = false
	s.cancel = nil
	s.result = res

	var err error
	switch {
	case res == nil:
		err = s.route.Clear()
	case s.in.Directions:
		err = s.route.Render(res.Path)
	}
	if err != nil {
		s.log.Warn().Err(err).Msg("draw route failed")
	}
	s.refreshClickLocked()
}

func (s *Session) cancelRouteLocked() {
	s.gen++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.pending = false
	s.result = nil
	if err := s.route.Clear(); err != nil {
		s.log.Warn().Err(err).Msg("clear route failed")
	}
}

func (s *Session) reverseGeocodeLocked(at types.Point) {
	if s.deps.Geocoder == nil {
		return
	}
	s.geoGen++
	g := s.geoGen
	if s.geoCancel != nil {
		s.geoCancel()
	}
	ctx, cancel := context.WithCancel(s.ctx)
	s.geoCancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		name := s.deps.Geocoder.ReverseGeocode(ctx, at.Lat, at.Lng)

		s.mu.Lock()
		defer s.mu.Unlock()
		if s.disposed || g != s.geoGen {
			return
		}
		s.geoCancel = nil
		s.openClickLocked(popup.Record{Type: registry.Fallback, Title: name, Lat: at.Lat, Lng: at.Lng}, at)
	}()
}
