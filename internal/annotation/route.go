package annotation

import (
	"errors"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"bantay/internal/mapengine"
)

const (
	RouteSource = "route"
	RouteLayer  = "route-line"

	DefaultRouteColor = "#1E88E5"
	DefaultPadding    = 60
)

// RouteRenderer draws at most one route line on the map.
type RouteRenderer struct {
	m       mapengine.Map
	color   string
	padding int
}

func NewRouteRenderer(m mapengine.Map, color string, padding int) *RouteRenderer {
	if color == "" {
		color = DefaultRouteColor
	}
	if padding <= 0 {
		padding = DefaultPadding
	}
	return &RouteRenderer{m: m, color: color, padding: padding}
}

// Render replaces the drawn route with path and fits the camera to it.
// An empty path only clears.
func (r *RouteRenderer) Render(path orb.LineString) error {
	if err := r.Clear(); err != nil {
		return err
	}
	if len(path) == 0 {
		return nil
	}

	if !r.m.HasSource(RouteSource) {
		src := mapengine.Source{Type: "geojson", Data: geojson.NewFeature(path)}
		if err := r.m.AddSource(RouteSource, src); err != nil {
			return err
		}
	}
	if !r.m.HasLayer(RouteLayer) {
		err := r.m.AddLayer(mapengine.Layer{
			ID:     RouteLayer,
			Type:   "line",
			Source: RouteSource,
			Layout: map[string]any{"line-join": "round", "line-cap": "round"},
			Paint: map[string]any{
				"line-color":   r.color,
				"line-width":   5,
				"line-opacity": 0.85,
			},
		})
		if err != nil {
			return err
		}
	}

	r.m.FitBounds(path.Bound(), r.padding)
	return nil
}

// Clear removes the route layer, then its source. Safe to repeat.
func (r *RouteRenderer) Clear() error {
	var errs []error
	if r.m.HasLayer(RouteLayer) {
		errs = append(errs, r.m.RemoveLayer(RouteLayer))
	}
	if r.m.HasSource(RouteSource) {
		errs = append(errs, r.m.RemoveSource(RouteSource))
	}
	return errors.Join(errs...)
}
