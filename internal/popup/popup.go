// Package popup renders the markup shown in map popups: the click detail
// card, the lighter hover preview, and the hover card for features that
// come from the base style's vector tiles.
package popup

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cast"

	"bantay/internal/registry"
)

// Record is the pin/marker shape the popups read from.
type Record struct {
	ID           string
	Type         string
	Title        string
	Description  string
	ReportID     string
	LocationName string
	Lat          float64
	Lng          float64
}

// Travel is the travel-time section of a click popup.
type Travel struct {
	Loading  bool
	Duration string
	Distance string
}

type ClickOptions struct {
	ShowActions bool
	// CanEdit is the caller's authorisation; actions need both flags.
	CanEdit bool
	// Travel is nil when travel time is not shown or unavailable.
	Travel *Travel
}

// Action values carried on popup buttons.
const (
	ActionEdit   = "edit"
	ActionDelete = "delete"
	ActionClose  = "close"
)

type badge struct {
	Label   string
	Color   string
	Class   string
	Outline []registry.Path
}

type view struct {
	ID          string
	Badges      []badge
	Title       string
	Location    string
	Coords      string
	Description string
	Travel      *Travel
	Actions     bool
}

// Coords formats a position as "lat, lng" with six decimals.
func Coords(lat, lng float64) string {
	return fmt.Sprintf("%.6f, %.6f", lat, lng)
}

// badges lays out the category row. Incidents carry the report reference
// ahead of the type badge; facilities only show their type.
func badges(rec Record) []badge {
	entry := registry.Lookup(rec.Type)
	typeBadge := badge{Label: entry.Label, Color: entry.Color, Class: "type", Outline: entry.Outline}
	if entry.Kind == registry.KindFacility {
		return []badge{typeBadge}
	}
	var out []badge
	if ref := strings.TrimSpace(rec.ReportID); ref != "" {
		out = append(out, badge{Label: "#" + ref, Color: "#37474F", Class: "report"})
	}
	return append(out, typeBadge)
}

func newView(rec Record) view {
	return view{
		ID:       rec.ID,
		Badges:   badges(rec),
		Title:    strings.TrimSpace(rec.Title),
		Location: strings.TrimSpace(rec.LocationName),
		Coords:   Coords(rec.Lat, rec.Lng),
	}
}

// ClickDetail renders the popup opened by clicking a marker.
func ClickDetail(rec Record, opts ClickOptions) string {
	v := newView(rec)
	v.Travel = opts.Travel
	v.Actions = opts.ShowActions && opts.CanEdit && rec.ID != ""
	return render("click", v)
}

// HoverPreview renders the popup shown while the pointer is over a marker.
func HoverPreview(rec Record) string {
	v := newView(rec)
	v.Description = strings.TrimSpace(rec.Description)
	return render("hover", v)
}

type tilesetView struct {
	Layer       string
	Name        string
	Address     string
	Description string
	Capacity    string
	Contact     string
}

var (
	nameKeys        = []string{"name", "Name", "facility_name", "title"}
	addressKeys     = []string{"address", "Address", "location", "barangay"}
	descriptionKeys = []string{"description", "Description", "remarks"}
	capacityKeys    = []string{"capacity", "Capacity", "max_capacity"}
	contactKeys     = []string{"contact", "Contact", "contact_number", "phone"}
)

// prop returns the first non-empty scalar under any of keys.
func prop(props map[string]any, keys []string) string {
	for _, k := range keys {
		v, ok := props[k]
		if !ok || v == nil {
			continue
		}
		s, err := cast.ToStringE(v)
		if err != nil {
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}

// TilesetFeatureHover renders the hover card for a vector-tile feature.
// Any subset of the properties may be missing.
func TilesetFeatureHover(props map[string]any, layerLabel string) string {
	return render("tileset", tilesetView{
		Layer:       strings.TrimSpace(layerLabel),
		Name:        prop(props, nameKeys),
		Address:     prop(props, addressKeys),
		Description: prop(props, descriptionKeys),
		Capacity:    prop(props, capacityKeys),
		Contact:     prop(props, contactKeys),
	})
}

func render(name string, data any) string {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		log.Error().Err(err).Str("template", name).Msg("render popup")
		return ""
	}
	return buf.String()
}
