// README: Map view host types: inputs from the dashboard, queued pin actions
// and the state document returned to the client.
package mapview

import (
	"errors"
	"time"

	"bantay/internal/annotation"
	"bantay/internal/geolocation"
	"bantay/internal/layers"
	"bantay/internal/mapengine"
	"bantay/internal/types"
)

var (
	ErrViewNotFound      = errors.New("map view not found")
	ErrEngineUnavailable = errors.New("map engine unavailable")
	ErrBadEvent          = errors.New("bad map event")
)

// PinSourceStore asks the view to load pins from the pin store.
const PinSourceStore = "store"

// Update is a full replacement of the view's inputs. The user location is
// owned by the view and is not part of it.
type Update struct {
	Pins      []annotation.Pin         `json:"pins"`
	PinSource string                   `json:"pinSource,omitempty"`
	Single    *annotation.SingleMarker `json:"single,omitempty"`
	// SingleCoordinates, when set, positions Single from a raw "lat,lng"
	// string.
	SingleCoordinates string             `json:"singleCoordinates,omitempty"`
	Filters           layers.FilterState `json:"filters"`
	ClickedLocation   *types.Point       `json:"clickedLocation,omitempty"`

	Directions     bool `json:"directions"`
	ShowTravelTime bool `json:"showTravelTime"`
	ShowActions    bool `json:"showActions"`
}

type ActionKind string

const (
	ActionEdit   ActionKind = "edit"
	ActionDelete ActionKind = "delete"
)

// Action is a pin edit/delete request waiting for the dashboard to handle.
type Action struct {
	Kind  ActionKind `json:"kind"`
	PinID string     `json:"pinId"`
	At    time.Time  `json:"at"`
}

type EventKind string

const (
	EventMarker  EventKind = "marker"
	EventMap     EventKind = "map"
	EventPointer EventKind = "pointer"
	EventPopup   EventKind = "popup"
)

// Event is a client-side interaction forwarded to the view.
type Event struct {
	Kind      EventKind               `json:"kind"`
	MarkerID  string                  `json:"markerId,omitempty"`
	DOMEvent  mapengine.DOMEvent      `json:"domEvent,omitempty"`
	Map       *mapengine.MapEvent     `json:"map,omitempty"`
	Pointer   *mapengine.PointerEvent `json:"pointer,omitempty"`
	PopupKind mapengine.PopupKind     `json:"popupKind,omitempty"`
}

type Status string

const (
	StatusReady Status = "ready"
	StatusError Status = "error"
)

type State struct {
	ID        string                `json:"id"`
	Style     string                `json:"style"`
	Status    Status                `json:"status"`
	Error     string                `json:"error,omitempty"`
	Scene     *mapengine.Snapshot   `json:"scene,omitempty"`
	Route     annotation.RouteState `json:"route"`
	Placemark bool                  `json:"placemark"`
	Actions   []Action              `json:"actions"`
	// LocationRequest is set while the view waits for a device fix.
	LocationRequest *geolocation.Options `json:"locationRequest,omitempty"`
	UserLocation    *types.Point         `json:"userLocation,omitempty"`
}
