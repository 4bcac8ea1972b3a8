// Package mapengine defines the contract between the marker engine and the
// map renderer, and provides Scene, an in-memory renderer whose state is
// mirrored by the browser client.
package mapengine

import (
	"errors"

	"github.com/paulmach/orb"
)

var (
	ErrExists      = errors.New("map resource already exists")
	ErrNotFound    = errors.New("map resource not found")
	ErrStyleLoad   = errors.New("map style failed to load")
	ErrLoadTimeout = errors.New("map did not finish loading in time")
)

// Event is a map-level event name.
type Event string

const (
	EventLoad       Event = "load"
	EventError      Event = "error"
	EventClick      Event = "click"
	EventMouseMove  Event = "mousemove"
	EventMouseLeave Event = "mouseleave"
)

// DOMEvent is an element-level event name (markers and the viewport).
type DOMEvent string

const (
	DOMMouseEnter   DOMEvent = "mouseenter"
	DOMMouseLeave   DOMEvent = "mouseleave"
	DOMClick        DOMEvent = "click"
	DOMIconError    DOMEvent = "iconerror"
	DOMPointerMove  DOMEvent = "pointermove"
	DOMPointerEnter DOMEvent = "pointerenter"
	DOMPointerLeave DOMEvent = "pointerleave"
)

// Pixel is a position relative to the map viewport's top-left corner.
type Pixel struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Feature is a rendered vector-tile feature under the pointer.
type Feature struct {
	Layer      string         `json:"layer"`
	Properties map[string]any `json:"properties"`
}

type MapEvent struct {
	Type   Event     `json:"type"`
	LngLat orb.Point `json:"lngLat"`
	Point  Pixel     `json:"point"`
	// Layer names the layer a mouseleave refers to.
	Layer    string    `json:"layer,omitempty"`
	Features []Feature `json:"features,omitempty"`
	Err      error     `json:"-"`
}

type Listener func(MapEvent)

type PopupKind string

const (
	PopupHover PopupKind = "hover"
	PopupClick PopupKind = "click"
)

type Popup struct {
	ID     string    `json:"id"`
	Kind   PopupKind `json:"kind"`
	LngLat orb.Point `json:"lngLat"`
	HTML   string    `json:"html"`
	// Offset is the vertical pixel offset above the anchor.
	Offset int `json:"offset"`
}

type Source struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type Layer struct {
	ID     string         `json:"id"`
	Type   string         `json:"type"`
	Source string         `json:"source,omitempty"`
	Paint  map[string]any `json:"paint,omitempty"`
	Layout map[string]any `json:"layout,omitempty"`
}

type Control struct {
	ID       string `json:"id"`
	Position string `json:"position"`
}

// Map is the renderer surface owned by the annotation session. Add calls
// return ErrExists on duplicates; callers check first.
type Map interface {
	AddMarker(m *Marker) error
	RemoveMarker(id string)

	AddPopup(p Popup) error
	SetPopupHTML(id, html string) error
	RemovePopup(id string)

	HasSource(id string) bool
	AddSource(id string, src Source) error
	SetSourceData(id string, data any) error
	RemoveSource(id string) error

	HasLayer(id string) bool
	AddLayer(l Layer) error
	RemoveLayer(id string) error
	SetLayoutProperty(layer, name string, value any) error

	HasControl(id string) bool
	AddControl(c Control) error
	RemoveControl(id string) error

	FitBounds(b orb.Bound, padding int)

	// On subscribes to a map event. A non-empty layer restricts delivery to
	// events over that layer. The returned func unsubscribes.
	On(ev Event, layer string, fn Listener) (off func())
}

type PointerEvent struct {
	Type DOMEvent `json:"type"`
	X    float64  `json:"x"`
	Y    float64  `json:"y"`
}

// Node is an element injected into the viewport on top of the map canvas.
type Node struct {
	ID     string  `json:"id"`
	Class  string  `json:"class"`
	HTML   string  `json:"html"`
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Hidden bool    `json:"hidden"`
}

// Viewport is the DOM container the map renders into.
type Viewport interface {
	SetCursor(cursor string)
	Cursor() string
	AppendChild(n Node) error
	MoveChild(id string, left, top float64) error
	SetChildHidden(id string, hidden bool) error
	RemoveChild(id string)
	AddEventListener(ev DOMEvent, fn func(PointerEvent)) (remove func())
	Size() (width, height int)
}
