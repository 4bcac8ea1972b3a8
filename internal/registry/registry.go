// Package registry maps incident and facility type tags to their visual
// representation: icon asset, fill color and SVG outline paths.
package registry

import "strings"

type Kind string

const (
	KindIncident Kind = "incident"
	KindFacility Kind = "facility"
)

// Fallback is the tag every unknown type resolves to.
const Fallback = "Others"

// FallbackIcon replaces an icon that failed to load.
const FallbackIcon = "/icons/default.png"

// Path is one SVG path of a category outline glyph (24x24 viewBox).
type Path struct {
	D        string `json:"d"`
	FillRule string `json:"fillRule,omitempty"`
}

type Entry struct {
	Tag   string `json:"tag"`
	Label string `json:"label"`
	Kind  Kind   `json:"kind"`
	Icon  string `json:"icon"`
	Color string `json:"color"`
	// Outline is drawn in order inside popup badges.
	Outline []Path `json:"outline"`
	// TilesetLayer is the vector-tile layer that carries this facility
	// category on the base style. Empty for incidents.
	TilesetLayer string `json:"tilesetLayer,omitempty"`
}

var entries = []Entry{
	{Tag: "Fire", Label: "Fire", Kind: KindIncident, Icon: "/icons/fire.png", Color: "#E53935", Outline: flame},
	{Tag: "Flood", Label: "Flood", Kind: KindIncident, Icon: "/icons/flood.png", Color: "#1E88E5", Outline: droplet},
	{Tag: "Landslide", Label: "Landslide", Kind: KindIncident, Icon: "/icons/landslide.png", Color: "#6D4C41", Outline: mountain},
	{Tag: "Earthquake", Label: "Earthquake", Kind: KindIncident, Icon: "/icons/earthquake.png", Color: "#8E24AA", Outline: crack},
	{Tag: "Road Accident", Label: "Road Accident", Kind: KindIncident, Icon: "/icons/road-accident.png", Color: "#FB8C00", Outline: car},
	{Tag: "Medical Emergency", Label: "Medical Emergency", Kind: KindIncident, Icon: "/icons/medical.png", Color: "#D81B60", Outline: cross},
	{Tag: "Power Outage", Label: "Power Outage", Kind: KindIncident, Icon: "/icons/power-outage.png", Color: "#FDD835", Outline: bolt},
	{Tag: "Crime", Label: "Crime", Kind: KindIncident, Icon: "/icons/crime.png", Color: "#424242", Outline: shield},
	{Tag: "Evacuation Center", Label: "Evacuation Center", Kind: KindFacility, Icon: "/icons/evacuation-center.png", Color: "#43A047", Outline: house, TilesetLayer: "evacuation-centers"},
	{Tag: "Hospital", Label: "Hospital", Kind: KindFacility, Icon: "/icons/hospital.png", Color: "#00897B", Outline: cross, TilesetLayer: "hospitals"},
	{Tag: "Fire Station", Label: "Fire Station", Kind: KindFacility, Icon: "/icons/fire-station.png", Color: "#C62828", Outline: flame, TilesetLayer: "fire-stations"},
	{Tag: "Police Station", Label: "Police Station", Kind: KindFacility, Icon: "/icons/police-station.png", Color: "#283593", Outline: shield, TilesetLayer: "police-stations"},
	{Tag: "Barangay Hall", Label: "Barangay Hall", Kind: KindFacility, Icon: "/icons/barangay-hall.png", Color: "#5D4037", Outline: house, TilesetLayer: "barangay-halls"},
	{Tag: Fallback, Label: "Others", Kind: KindIncident, Icon: FallbackIcon, Color: "#757575", Outline: pin},
}

var index = func() map[string]int {
	m := make(map[string]int, len(entries))
	for i, e := range entries {
		m[key(e.Tag)] = i
	}
	return m
}()

func key(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}

// Lookup returns the entry for tag, or the Others entry when tag is unknown.
func Lookup(tag string) Entry {
	i, ok := index[key(tag)]
	if !ok {
		i = index[key(Fallback)]
	}
	e := entries[i]
	e.Outline = append([]Path(nil), e.Outline...)
	return e
}

// Known reports whether tag has its own entry.
func Known(tag string) bool {
	_, ok := index[key(tag)]
	return ok
}

func IconFor(tag string) string { return Lookup(tag).Icon }

func ColorFor(tag string) string { return Lookup(tag).Color }

func OutlinePathsFor(tag string) []Path { return Lookup(tag).Outline }

func KindOf(tag string) Kind { return Lookup(tag).Kind }

// Facilities lists facility entries in table order.
func Facilities() []Entry {
	var out []Entry
	for _, e := range entries {
		if e.Kind == KindFacility {
			out = append(out, Lookup(e.Tag))
		}
	}
	return out
}

// FacilityByLayer finds the facility category drawn by a tileset layer.
func FacilityByLayer(layer string) (Entry, bool) {
	for _, e := range entries {
		if e.TilesetLayer != "" && e.TilesetLayer == layer {
			return Lookup(e.Tag), true
		}
	}
	return Entry{}, false
}
