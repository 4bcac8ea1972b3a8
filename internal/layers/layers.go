// README: Thematic layer visibility over the base style plus the pin heatmap
// source/layer pair.
package layers

import (
	"errors"
	"slices"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog"

	"bantay/internal/mapengine"
	"bantay/internal/registry"
)

const (
	KeyBoundary      = "boundary"
	KeyBoundaryLabel = "boundaryLabel"
	KeyWaterways     = "waterways"
	KeyRoads         = "roads"
	KeyTraffic       = "traffic"
	KeyHeatmap       = "heatmap"

	// BaseBoundaryLayer belongs to the base style and is never toggled.
	BaseBoundaryLayer = "admin-boundary-base"

	HeatSource = "pins-heat"
	HeatLayer  = "pins-heat"
)

// FilterState maps a filter key to whether its layers are shown.
type FilterState map[string]bool

// Bindings returns the filter key to layer id table. Facility categories
// are keyed by their tileset layer.
func Bindings() map[string][]string {
	b := map[string][]string{
		KeyBoundary:      {"municipal-boundary-fill", "municipal-boundary-line"},
		KeyBoundaryLabel: {"barangay-labels"},
		KeyWaterways:     {"waterway", "waterway-label"},
		KeyRoads:         {"road-primary", "road-secondary", "road-street"},
		KeyTraffic:       {"traffic"},
	}
	for _, f := range registry.Facilities() {
		if f.TilesetLayer != "" {
			b[f.TilesetLayer] = []string{f.TilesetLayer}
		}
	}
	return b
}

type Controller struct {
	m        mapengine.Map
	log      zerolog.Logger
	bindings map[string][]string
}

func NewController(m mapengine.Map, log zerolog.Logger) *Controller {
	return &Controller{
		m:        m,
		log:      log.With().Str("component", "layers").Logger(),
		bindings: Bindings(),
	}
}

// Apply sets the visibility of every bound layer from state. Keys absent
// from state are hidden. Layers the current style lacks are skipped.
func (c *Controller) Apply(state FilterState) {
	keys := make([]string, 0, len(c.bindings))
	for k := range c.bindings {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, k := range keys {
		vis := "none"
		if state[k] {
			vis = "visible"
		}
		for _, id := range c.bindings[k] {
			if id == BaseBoundaryLayer {
				continue
			}
			if !c.m.HasLayer(id) {
				c.log.Warn().Str("layer", id).Str("filter", k).Msg("layer missing from style, skipped")
				continue
			}
			if err := c.m.SetLayoutProperty(id, "visibility", vis); err != nil {
				c.log.Warn().Err(err).Str("layer", id).Msg("set visibility failed")
			}
		}
	}
}

// ApplyHeatmap keeps exactly one heatmap source/layer pair fed by points
// while enabled, and removes it otherwise.
func (c *Controller) ApplyHeatmap(enabled bool, points []orb.Point) error {
	if !enabled {
		return c.RemoveHeatmap()
	}

	fc := geojson.NewFeatureCollection()
	for _, p := range points {
		fc.Append(geojson.NewFeature(p))
	}

	if c.m.HasSource(HeatSource) {
		if err := c.m.SetSourceData(HeatSource, fc); err != nil {
			return err
		}
	} else if err := c.m.AddSource(HeatSource, mapengine.Source{Type: "geojson", Data: fc}); err != nil {
		return err
	}

	if c.m.HasLayer(HeatLayer) {
		return nil
	}
	return c.m.AddLayer(mapengine.Layer{
		ID:     HeatLayer,
		Type:   "heatmap",
		Source: HeatSource,
		Paint: map[string]any{
			"heatmap-weight":    1,
			"heatmap-intensity": 1,
			"heatmap-radius":    24,
			"heatmap-opacity":   0.8,
			"heatmap-color": []any{
				"interpolate", []any{"linear"}, []any{"heatmap-density"},
				0, "rgba(33,102,172,0)",
				0.2, "rgb(103,169,207)",
				0.4, "rgb(209,229,240)",
				0.6, "rgb(253,219,199)",
				0.8, "rgb(239,138,98)",
				1, "rgb(178,24,43)",
			},
		},
	})
}

// RemoveHeatmap removes the heatmap layer, then its source.
func (c *Controller) RemoveHeatmap() error {
	var errs []error
	if c.m.HasLayer(HeatLayer) {
		errs = append(errs, c.m.RemoveLayer(HeatLayer))
	}
	if c.m.HasSource(HeatSource) {
		errs = append(errs, c.m.RemoveSource(HeatSource))
	}
	return errors.Join(errs...)
}
