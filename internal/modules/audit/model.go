// README: Audit entries for actions taken from map views.
package audit

import (
	"errors"
	"time"

	"bantay/internal/geo"
)

type Action string

const (
	ActionViewOpened       Action = "view_opened"
	ActionEditRequested    Action = "edit_requested"
	ActionDeleteRequested  Action = "delete_requested"
	ActionPlacemarkDropped Action = "placemark_dropped"
	ActionRouteRequested   Action = "route_requested"
)

var ErrInvalidEntry = errors.New("invalid audit entry")

type Entry struct {
	ID        int64     `json:"id"`
	ViewID    string    `json:"viewId"`
	ActorUID  string    `json:"actorUid,omitempty"`
	Action    Action    `json:"action"`
	PinID     *string   `json:"pinId,omitempty"`
	Lat       *float64  `json:"lat,omitempty"`
	Lng       *float64  `json:"lng,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func (e Entry) Validate() error {
	if e.ViewID == "" || e.Action == "" {
		return ErrInvalidEntry
	}
	if (e.Lat == nil) != (e.Lng == nil) {
		return ErrInvalidEntry
	}
	if e.Lat != nil && !geo.Valid(*e.Lat, *e.Lng) {
		return ErrInvalidEntry
	}
	return nil
}
