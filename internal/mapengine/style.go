package mapengine

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// StyleLayer is a layer declared by a base style.
type StyleLayer struct {
	ID     string         `json:"id"`
	Type   string         `json:"type"`
	Source string         `json:"source,omitempty"`
	Layout map[string]any `json:"layout,omitempty"`
}

type Style struct {
	Name   string       `json:"name"`
	Layers []StyleLayer `json:"layers"`
}

// StyleLoader resolves a style reference into a style document.
type StyleLoader interface {
	Load(ctx context.Context, ref string) (Style, error)
}

// Catalog is a fixed set of named styles.
type Catalog map[string]Style

func (c Catalog) Load(ctx context.Context, ref string) (Style, error) {
	if err := ctx.Err(); err != nil {
		return Style{}, err
	}
	s, ok := c[ref]
	if !ok {
		return Style{}, fmt.Errorf("%w: unknown style %q", ErrStyleLoad, ref)
	}
	return cloneStyle(s), nil
}

// HTTPStyleLoader fetches style JSON for http(s) references and resolves
// everything else from Fallback.
type HTTPStyleLoader struct {
	Client   *http.Client
	Fallback Catalog
}

func NewHTTPStyleLoader(timeout time.Duration, fallback Catalog) *HTTPStyleLoader {
	return &HTTPStyleLoader{
		Client:   &http.Client{Timeout: timeout},
		Fallback: fallback,
	}
}

func (l *HTTPStyleLoader) Load(ctx context.Context, ref string) (Style, error) {
	if !strings.HasPrefix(ref, "http://") && !strings.HasPrefix(ref, "https://") {
		return l.Fallback.Load(ctx, ref)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return Style{}, fmt.Errorf("%w: %v", ErrStyleLoad, err)
	}
	resp, err := l.Client.Do(req)
	if err != nil {
		return Style{}, fmt.Errorf("%w: %v", ErrStyleLoad, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Style{}, fmt.Errorf("%w: %s returned %d", ErrStyleLoad, ref, resp.StatusCode)
	}

	var s Style
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return Style{}, fmt.Errorf("%w: decode %s: %v", ErrStyleLoad, ref, err)
	}
	if s.Name == "" {
		s.Name = ref
	}
	return s, nil
}

func cloneStyle(s Style) Style {
	out := Style{Name: s.Name, Layers: make([]StyleLayer, len(s.Layers))}
	for i, l := range s.Layers {
		out.Layers[i] = StyleLayer{ID: l.ID, Type: l.Type, Source: l.Source, Layout: cloneMap(l.Layout)}
	}
	return out
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func hidden(id, typ, source string) StyleLayer {
	return StyleLayer{ID: id, Type: typ, Source: source, Layout: map[string]any{"visibility": "none"}}
}

func visible(id, typ, source string) StyleLayer {
	return StyleLayer{ID: id, Type: typ, Source: source, Layout: map[string]any{"visibility": "visible"}}
}

// DefaultCatalog returns the built-in base styles. Thematic layers start
// hidden; the satellite style carries no street or waterway label layers.
func DefaultCatalog() Catalog {
	thematic := []StyleLayer{
		visible("admin-boundary-base", "line", "composite"),
		hidden("municipal-boundary-fill", "fill", "boundaries"),
		hidden("municipal-boundary-line", "line", "boundaries"),
		hidden("barangay-labels", "symbol", "boundaries"),
		hidden("waterway", "line", "composite"),
		hidden("waterway-label", "symbol", "composite"),
		hidden("road-primary", "line", "composite"),
		hidden("road-secondary", "line", "composite"),
		hidden("road-street", "line", "composite"),
		hidden("traffic", "line", "traffic"),
		hidden("evacuation-centers", "symbol", "facilities"),
		hidden("hospitals", "symbol", "facilities"),
		hidden("fire-stations", "symbol", "facilities"),
		hidden("police-stations", "symbol", "facilities"),
		hidden("barangay-halls", "symbol", "facilities"),
		visible("place-labels", "symbol", "composite"),
	}

	withBackground := func(bg StyleLayer, layers []StyleLayer) []StyleLayer {
		return append([]StyleLayer{bg}, layers...)
	}

	var satellite []StyleLayer
	for _, l := range thematic {
		if l.ID == "road-street" || l.ID == "waterway-label" {
			continue
		}
		satellite = append(satellite, l)
	}

	return Catalog{
		"streets": {
			Name:   "streets",
			Layers: withBackground(visible("background", "background", ""), thematic),
		},
		"dark": {
			Name:   "dark",
			Layers: withBackground(visible("background", "background", ""), thematic),
		},
		"satellite-streets": {
			Name:   "satellite-streets",
			Layers: withBackground(visible("satellite", "raster", "imagery"), satellite),
		},
	}
}
