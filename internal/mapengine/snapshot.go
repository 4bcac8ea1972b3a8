package mapengine

import (
	"github.com/paulmach/orb"

	"bantay/internal/geo"
)

type MarkerView struct {
	ID     string    `json:"id"`
	LngLat orb.Point `json:"lngLat"`
	Role   string    `json:"role"`
	Icon   string    `json:"icon,omitempty"`
	Color  string    `json:"color,omitempty"`
	Pulse  bool      `json:"pulse"`
	HTML   string    `json:"html"`
}

type SourceView struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data any    `json:"data"`
}

type LayerView struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Source     string         `json:"source,omitempty"`
	Visibility string         `json:"visibility"`
	Paint      map[string]any `json:"paint,omitempty"`
}

// Snapshot is the JSON document the browser client renders from.
type Snapshot struct {
	Style    string       `json:"style"`
	Loaded   bool         `json:"loaded"`
	Camera   geo.Camera   `json:"camera"`
	Cursor   string       `json:"cursor,omitempty"`
	Markers  []MarkerView `json:"markers"`
	Popups   []Popup      `json:"popups"`
	Sources  []SourceView `json:"sources"`
	Layers   []LayerView  `json:"layers"`
	Controls []Control    `json:"controls"`
	Nodes    []Node       `json:"nodes"`
}

func (s *Scene) Snapshot() Snapshot {
	markers := s.Markers()
	snap := Snapshot{
		Style:   s.Style(),
		Loaded:  s.Loaded(),
		Camera:  s.Camera(),
		Cursor:  s.Cursor(),
		Popups:  s.Popups(),
		Nodes:   s.Nodes(),
		Markers: make([]MarkerView, 0, len(markers)),
	}

	for _, m := range markers {
		el := m.Element
		snap.Markers = append(snap.Markers, MarkerView{
			ID:     m.ID,
			LngLat: m.LngLat,
			Role:   string(el.Role),
			Icon:   el.Icon,
			Color:  el.Color,
			Pulse:  el.Pulse,
			HTML:   el.HTML(),
		})
	}

	for _, l := range s.Layers() {
		vis, _ := l.Layout["visibility"].(string)
		if vis == "" {
			vis = "visible"
		}
		snap.Layers = append(snap.Layers, LayerView{ID: l.ID, Type: l.Type, Source: l.Source, Visibility: vis, Paint: l.Paint})
	}

	s.mu.Lock()
	for _, l := range s.layers {
		if src, ok := s.sources[l.Source]; ok && !containsSource(snap.Sources, l.Source) {
			snap.Sources = append(snap.Sources, SourceView{ID: l.Source, Type: src.Type, Data: src.Data})
		}
	}
	for id, src := range s.sources {
		if !containsSource(snap.Sources, id) {
			snap.Sources = append(snap.Sources, SourceView{ID: id, Type: src.Type, Data: src.Data})
		}
	}
	for _, c := range s.controls {
		snap.Controls = append(snap.Controls, c)
	}
	s.mu.Unlock()

	return snap
}

func containsSource(views []SourceView, id string) bool {
	for _, v := range views {
		if v.ID == id {
			return true
		}
	}
	return false
}
