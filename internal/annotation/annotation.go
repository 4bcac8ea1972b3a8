// README: The annotation session owns every marker, popup, route and heatmap
// on one map. Each input change tears everything down and rebuilds it.
package annotation

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"bantay/internal/layers"
	"bantay/internal/mapengine"
	"bantay/internal/maps"
	"bantay/internal/metrics"
	"bantay/internal/popup"
	"bantay/internal/types"
)

var (
	ErrUnknownAction = errors.New("unknown popup action")
	ErrNotAllowed    = errors.New("action not allowed")
	ErrDisposed      = errors.New("annotation session disposed")
	ErrDetached      = errors.New("annotation session has no map")
)

// Pin is one incident or facility to draw.
type Pin struct {
	ID           string  `json:"id"`
	Type         string  `json:"type"`
	Title        string  `json:"title"`
	Description  string  `json:"description,omitempty"`
	ReportID     string  `json:"reportId,omitempty"`
	LocationName string  `json:"locationName,omitempty"`
	Lat          float64 `json:"lat"`
	Lng          float64 `json:"lng"`
}

func (p Pin) record() popup.Record {
	return popup.Record{
		ID:           p.ID,
		Type:         p.Type,
		Title:        p.Title,
		Description:  p.Description,
		ReportID:     p.ReportID,
		LocationName: p.LocationName,
		Lat:          p.Lat,
		Lng:          p.Lng,
	}
}

func (p Pin) point() types.Point { return types.Point{Lat: p.Lat, Lng: p.Lng} }

// SingleMarker is the one featured location shown while a report is being
// created or previewed.
type SingleMarker struct {
	Pin
	Pulse bool `json:"pulse"`
}

// Inputs is everything a rebuild is derived from.
type Inputs struct {
	Pins            []Pin              `json:"pins"`
	Single          *SingleMarker      `json:"single,omitempty"`
	Filters         layers.FilterState `json:"filters"`
	UserLocation    *types.Point       `json:"userLocation,omitempty"`
	ClickedLocation *types.Point       `json:"clickedLocation,omitempty"`

	Directions     bool `json:"directions"`
	ShowTravelTime bool `json:"showTravelTime"`
	CanEdit        bool `json:"canEdit"`
	ShowActions    bool `json:"showActions"`
}

// Heatmap reports whether the density view replaces discrete markers.
func (in Inputs) Heatmap() bool { return in.Filters[layers.KeyHeatmap] }

type Router interface {
	TravelTime(ctx context.Context, origin, destination types.Point) *maps.RouteResult
}

type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lng float64) string
}

// Callbacks are invoked for edit/delete requests on pins. Either may be nil.
type Callbacks struct {
	OnEditPin   func(id string)
	OnDeletePin func(id string)
}

type Deps struct {
	Router    Router
	Geocoder  Geocoder
	Callbacks Callbacks
	// Controls are installed on the map for the session's lifetime.
	Controls   []mapengine.Control
	Log        zerolog.Logger
	Metrics    *metrics.Metrics
	RouteColor string
	Padding    int
}

// RouteState is the travel-time state exposed to the client.
type RouteState struct {
	Pending bool              `json:"pending"`
	Result  *maps.RouteResult `json:"result,omitempty"`
}
