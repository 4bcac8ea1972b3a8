package mapengine

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/paulmach/orb"
	"github.com/rs/zerolog"

	"bantay/internal/geo"
)

const defaultLoadTimeout = 10 * time.Second

type Options struct {
	Style   string
	Loader  StyleLoader
	Center  orb.Point
	Zoom    float64
	Width   int
	Height  int
	Timeout time.Duration
	Log     zerolog.Logger
}

type listener struct {
	id    int
	layer string
	fn    Listener
}

// Scene is a goroutine-safe in-memory Map and Viewport. Listeners are
// always invoked outside the scene lock so they may call back into it.
type Scene struct {
	mu  sync.Mutex
	log zerolog.Logger

	style  string
	loaded bool
	camera geo.Camera
	width  int
	height int

	markers     map[string]*Marker
	markerOrder []string
	popups      map[string]*Popup
	popupOrder  []string
	sources     map[string]Source
	layers      []Layer
	controls    map[string]Control

	listeners map[Event][]listener
	nextID    int

	cursor           string
	nodes            map[string]*Node
	nodeOrder        []string
	pointerListeners map[DOMEvent]map[int]func(PointerEvent)
}

var (
	_ Map      = (*Scene)(nil)
	_ Viewport = (*Scene)(nil)
)

func NewScene(opts Options) *Scene {
	if opts.Width <= 0 {
		opts.Width = 1024
	}
	if opts.Height <= 0 {
		opts.Height = 768
	}
	center := opts.Center
	if center == (orb.Point{}) {
		center = geo.DefaultLocation
	}
	zoom := opts.Zoom
	if zoom <= 0 {
		zoom = 12
	}
	return &Scene{
		log:              opts.Log.With().Str("component", "scene").Logger(),
		style:            opts.Style,
		camera:           geo.Camera{Center: center, Zoom: zoom},
		width:            opts.Width,
		height:           opts.Height,
		markers:          make(map[string]*Marker),
		popups:           make(map[string]*Popup),
		sources:          make(map[string]Source),
		controls:         make(map[string]Control),
		listeners:        make(map[Event][]listener),
		nodes:            make(map[string]*Node),
		pointerListeners: make(map[DOMEvent]map[int]func(PointerEvent)),
	}
}

// Open creates a scene and loads its base style within opts.Timeout.
func Open(ctx context.Context, opts Options) (*Scene, error) {
	s := NewScene(opts)
	if err := s.Load(ctx, opts.Loader, opts.Timeout); err != nil {
		return nil, err
	}
	return s, nil
}

// Load resolves the scene's style and installs its layers, then emits
// EventLoad. Failures emit EventError and wrap ErrStyleLoad or
// ErrLoadTimeout.
func (s *Scene) Load(ctx context.Context, loader StyleLoader, timeout time.Duration) error {
	if loader == nil {
		loader = DefaultCatalog()
	}
	if timeout <= 0 {
		timeout = defaultLoadTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		style Style
		err   error
	}
	done := make(chan result, 1)
	go func() {
		st, err := loader.Load(ctx, s.style)
		done <- result{st, err}
	}()

	var res result
	select {
	case res = <-done:
	case <-ctx.Done():
		res.err = ctx.Err()
	}

	if res.err != nil {
		err := res.err
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: style %q after %s", ErrLoadTimeout, s.style, timeout)
		} else if !errors.Is(err, ErrStyleLoad) {
			err = fmt.Errorf("%w: %v", ErrStyleLoad, err)
		}
		s.log.Error().Err(err).Str("style", s.style).Msg("map init failed")
		s.emit(MapEvent{Type: EventError, Err: err})
		return err
	}

	s.mu.Lock()
	s.layers = s.layers[:0]
	for _, l := range res.style.Layers {
		s.layers = append(s.layers, Layer{ID: l.ID, Type: l.Type, Source: l.Source, Layout: cloneMap(l.Layout)})
	}
	s.loaded = true
	s.mu.Unlock()

	s.emit(MapEvent{Type: EventLoad})
	return nil
}

func (s *Scene) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

func (s *Scene) Style() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.style
}

// Markers

func (s *Scene) AddMarker(m *Marker) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.markers[m.ID]; ok {
		return fmt.Errorf("marker %s: %w", m.ID, ErrExists)
	}
	s.markers[m.ID] = m
	s.markerOrder = append(s.markerOrder, m.ID)
	return nil
}

func (s *Scene) RemoveMarker(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.markers[id]; !ok {
		return
	}
	delete(s.markers, id)
	s.markerOrder = slices.DeleteFunc(s.markerOrder, func(v string) bool { return v == id })
}

func (s *Scene) Marker(id string) (*Marker, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.markers[id]
	return m, ok
}

// Markers returns the markers in insertion order.
func (s *Scene) Markers() []*Marker {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Marker, 0, len(s.markerOrder))
	for _, id := range s.markerOrder {
		out = append(out, s.markers[id])
	}
	return out
}

// Popups

func (s *Scene) AddPopup(p Popup) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.popups[p.ID]; ok {
		return fmt.Errorf("popup %s: %w", p.ID, ErrExists)
	}
	s.popups[p.ID] = &p
	s.popupOrder = append(s.popupOrder, p.ID)
	return nil
}

func (s *Scene) SetPopupHTML(id, html string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.popups[id]
	if !ok {
		return fmt.Errorf("popup %s: %w", id, ErrNotFound)
	}
	p.HTML = html
	return nil
}

func (s *Scene) RemovePopup(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.popups[id]; !ok {
		return
	}
	delete(s.popups, id)
	s.popupOrder = slices.DeleteFunc(s.popupOrder, func(v string) bool { return v == id })
}

func (s *Scene) Popups() []Popup {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Popup, 0, len(s.popupOrder))
	for _, id := range s.popupOrder {
		out = append(out, *s.popups[id])
	}
	return out
}

// Sources

func (s *Scene) HasSource(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sources[id]
	return ok
}

func (s *Scene) AddSource(id string, src Source) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sources[id]; ok {
		return fmt.Errorf("source %s: %w", id, ErrExists)
	}
	s.sources[id] = src
	return nil
}

func (s *Scene) SetSourceData(id string, data any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	src, ok := s.sources[id]
	if !ok {
		return fmt.Errorf("source %s: %w", id, ErrNotFound)
	}
	src.Data = data
	s.sources[id] = src
	return nil
}

// RemoveSource fails while a layer still references the source.
func (s *Scene) RemoveSource(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sources[id]; !ok {
		return fmt.Errorf("source %s: %w", id, ErrNotFound)
	}
	for _, l := range s.layers {
		if l.Source == id {
			return fmt.Errorf("source %s is in use by layer %s", id, l.ID)
		}
	}
	delete(s.sources, id)
	return nil
}

func (s *Scene) Source(id string) (Source, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	src, ok := s.sources[id]
	return src, ok
}

// Layers

func (s *Scene) layerIndex(id string) int {
	return slices.IndexFunc(s.layers, func(l Layer) bool { return l.ID == id })
}

func (s *Scene) HasLayer(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.layerIndex(id) >= 0
}

func (s *Scene) AddLayer(l Layer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.layerIndex(l.ID) >= 0 {
		return fmt.Errorf("layer %s: %w", l.ID, ErrExists)
	}
	if l.Source != "" {
		if _, ok := s.sources[l.Source]; !ok {
			return fmt.Errorf("layer %s: source %s: %w", l.ID, l.Source, ErrNotFound)
		}
	}
	l.Layout = cloneMap(l.Layout)
	s.layers = append(s.layers, l)
	return nil
}

func (s *Scene) RemoveLayer(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.layerIndex(id)
	if i < 0 {
		return fmt.Errorf("layer %s: %w", id, ErrNotFound)
	}
	s.layers = slices.Delete(s.layers, i, i+1)
	return nil
}

func (s *Scene) SetLayoutProperty(layer, name string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.layerIndex(layer)
	if i < 0 {
		return fmt.Errorf("layer %s: %w", layer, ErrNotFound)
	}
	if s.layers[i].Layout == nil {
		s.layers[i].Layout = make(map[string]any)
	}
	s.layers[i].Layout[name] = value
	return nil
}

func (s *Scene) LayoutProperty(layer, name string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.layerIndex(layer)
	if i < 0 {
		return nil, false
	}
	v, ok := s.layers[i].Layout[name]
	return v, ok
}

func (s *Scene) Layers() []Layer {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Layer, len(s.layers))
	for i, l := range s.layers {
		l.Layout = cloneMap(l.Layout)
		out[i] = l
	}
	return out
}

// Controls

func (s *Scene) HasControl(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.controls[id]
	return ok
}

func (s *Scene) AddControl(c Control) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.controls[c.ID]; ok {
		return fmt.Errorf("control %s: %w", c.ID, ErrExists)
	}
	s.controls[c.ID] = c
	return nil
}

func (s *Scene) RemoveControl(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.controls[id]; !ok {
		return fmt.Errorf("control %s: %w", id, ErrNotFound)
	}
	delete(s.controls, id)
	return nil
}

// Camera

func (s *Scene) FitBounds(b orb.Bound, padding int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.camera = geo.FitBounds(b, s.width, s.height, padding)
}

func (s *Scene) Camera() geo.Camera {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.camera
}

// Events

func (s *Scene) On(ev Event, layer string, fn Listener) (off func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[ev] = append(s.listeners[ev], listener{id: id, layer: layer, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.listeners[ev] = slices.DeleteFunc(s.listeners[ev], func(l listener) bool { return l.id == id })
		})
	}
}

// ListenerCount returns the number of map listeners subscribed to ev.
func (s *Scene) ListenerCount(ev Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listeners[ev])
}

func (s *Scene) emit(e MapEvent) {
	s.mu.Lock()
	ls := slices.Clone(s.listeners[e.Type])
	s.mu.Unlock()

	for _, l := range ls {
		if l.layer == "" {
			l.fn(e)
			continue
		}
		scoped, ok := scopeToLayer(e, l.layer)
		if ok {
			l.fn(scoped)
		}
	}
}

func scopeToLayer(e MapEvent, layer string) (MapEvent, bool) {
	if e.Layer == layer {
		return e, true
	}
	var fs []Feature
	for _, f := range e.Features {
		if f.Layer == layer {
			fs = append(fs, f)
		}
	}
	if len(fs) == 0 {
		return e, false
	}
	e.Features = fs
	return e, true
}

// DispatchMap delivers a client-reported map event.
func (s *Scene) DispatchMap(e MapEvent) error {
	switch e.Type {
	case EventClick, EventMouseMove, EventMouseLeave:
	default:
		return fmt.Errorf("map event %q: %w", e.Type, ErrNotFound)
	}
	s.emit(e)
	return nil
}

// DispatchMarker delivers a client-reported DOM event on a marker element.
func (s *Scene) DispatchMarker(id string, ev DOMEvent) error {
	m, ok := s.Marker(id)
	if !ok {
		return fmt.Errorf("marker %s: %w", id, ErrNotFound)
	}
	m.Fire(ev)
	return nil
}

// Viewport

func (s *Scene) SetCursor(cursor string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursor = cursor
}

func (s *Scene) Cursor() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

func (s *Scene) Size() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height
}

func (s *Scene) AppendChild(n Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.nodes[n.ID]; ok {
		return fmt.Errorf("node %s: %w", n.ID, ErrExists)
	}
	s.nodes[n.ID] = &n
	s.nodeOrder = append(s.nodeOrder, n.ID)
	return nil
}

func (s *Scene) MoveChild(id string, left, top float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nodes[id]
	if !ok {
		return fmt.Errorf("node %s: %w", id, ErrNotFound)
	}
	n.Left, n.Top = left, top
	return nil
}

func (s *Scene) SetChildHidden(id string, hidden bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nodes[id]
	if !ok {
		return fmt.Errorf("node %s: %w", id, ErrNotFound)
	}
	n.Hidden = hidden
	return nil
}

func (s *Scene) RemoveChild(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.nodes[id]; !ok {
		return
	}
	delete(s.nodes, id)
	s.nodeOrder = slices.DeleteFunc(s.nodeOrder, func(v string) bool { return v == id })
}

func (s *Scene) Nodes() []Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Node, 0, len(s.nodeOrder))
	for _, id := range s.nodeOrder {
		out = append(out, *s.nodes[id])
	}
	return out
}

func (s *Scene) AddEventListener(ev DOMEvent, fn func(PointerEvent)) (remove func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pointerListeners[ev] == nil {
		s.pointerListeners[ev] = make(map[int]func(PointerEvent))
	}
	id := s.nextID
	s.nextID++
	s.pointerListeners[ev][id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.pointerListeners[ev], id)
	}
}

// PointerListenerCount returns the number of viewport listeners across events.
func (s *Scene) PointerListenerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, l := range s.pointerListeners {
		n += len(l)
	}
	return n
}

// DispatchPointer delivers a client-reported pointer event on the viewport.
func (s *Scene) DispatchPointer(e PointerEvent) {
	s.mu.Lock()
	ids := make([]int, 0, len(s.pointerListeners[e.Type]))
	for id := range s.pointerListeners[e.Type] {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	fns := make([]func(PointerEvent), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.pointerListeners[e.Type][id])
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(e)
	}
}
