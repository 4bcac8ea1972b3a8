package maps

import (
	"context"
	"time"

	"github.com/paulmach/orb"
	"github.com/rs/zerolog"
	"googlemaps.github.io/maps"

	"bantay/internal/metrics"
	"bantay/internal/types"
)

// RouteResult is one computed route between an origin and a destination.
type RouteResult struct {
	Origin          types.Point    `json:"origin"`
	Destination     types.Point    `json:"destination"`
	Duration        time.Duration  `json:"-"`
	DurationDisplay string         `json:"duration"`
	DistanceKm      float64        `json:"distanceKm"`
	DistanceDisplay string         `json:"distance"`
	Path            orb.LineString `json:"path"`
}

// RouteService computes driving routes via the Directions API.
type RouteService struct {
	client  DirectionsAPI
	locale  Locale
	log     zerolog.Logger
	metrics *metrics.Metrics
}

// NewRouteService creates a RouteService over the given directions client.
func NewRouteService(client DirectionsAPI, locale Locale, log zerolog.Logger, m *metrics.Metrics) *RouteService {
	return &RouteService{
		client:  client,
		locale:  locale,
		log:     log.With().Str("component", "route").Logger(),
		metrics: m,
	}
}

// TravelTime returns the first route from origin to destination, or nil
// when the service fails or finds nothing. It never returns an error: a
// nil result means travel time is unavailable.
func (s *RouteService) TravelTime(ctx context.Context, origin, destination types.Point) *RouteResult {
	r := &maps.DirectionsRequest{
		Origin:      origin.String(),
		Destination: destination.String(),
		Mode:        maps.TravelModeDriving,
		Language:    s.locale.Language,
		Region:      s.locale.Region,
	}

	routes, _, err := s.client.Directions(ctx, r)
	if err != nil {
		if ctx.Err() != nil {
			s.metrics.IncRoute("cancelled")
			s.log.Debug().Err(err).Msg("directions request cancelled")
			return nil
		}
		s.metrics.IncRoute("error")
		s.log.Warn().Err(err).Stringer("origin", origin).Stringer("destination", destination).Msg("directions request failed")
		return nil
	}
	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		s.metrics.IncRoute("empty")
		s.log.Warn().Stringer("origin", origin).Stringer("destination", destination).Msg("no route found")
		return nil
	}

	route := routes[0]
	var total time.Duration
	meters := 0
	for _, leg := range route.Legs {
		if leg == nil {
			continue
		}
		total += leg.Duration
		meters += leg.Meters
	}
	km, distance := FormatDistance(meters)

	s.metrics.IncRoute("ok")
	return &RouteResult{
		Origin:          origin,
		Destination:     destination,
		Duration:        total,
		DurationDisplay: FormatDuration(total),
		DistanceKm:      km,
		DistanceDisplay: distance,
		Path:            s.path(route, origin, destination),
	}
}

// path decodes the overview polyline, falling back to leg endpoints.
func (s *RouteService) path(route maps.Route, origin, destination types.Point) orb.LineString {
	points, err := route.OverviewPolyline.Decode()
	if err == nil && len(points) >= 2 {
		ls := make(orb.LineString, 0, len(points))
		for _, p := range points {
			ls = append(ls, orb.Point{p.Lng, p.Lat})
		}
		return ls
	}
	if err != nil {
		s.log.Warn().Err(err).Msg("decode overview polyline, using leg endpoints")
	}

	ls := orb.LineString{{origin.Lng, origin.Lat}}
	for _, leg := range route.Legs {
		if leg == nil {
			continue
		}
		ls = append(ls, orb.Point{leg.EndLocation.Lng, leg.EndLocation.Lat})
	}
	if len(ls) < 2 {
		ls = append(ls, orb.Point{destination.Lng, destination.Lat})
	}
	return ls
}
