// Package marker builds the DOM elements that back map markers.
package marker

import (
	"bytes"
	"html/template"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"bantay/internal/registry"
)

type Role string

const (
	// RoleFeatured is a single emphasised marker (report preview / creation).
	RoleFeatured Role = "featured"
	// RoleStandard is one pin of a batch.
	RoleStandard        Role = "standard"
	RoleUserLocation    Role = "user-location"
	RoleClickedLocation Role = "clicked-location"
)

const (
	FeaturedSize  = 48
	StandardSize  = 36
	IndicatorSize = 18
)

const (
	userLocationColor    = "#1E88E5"
	clickedLocationColor = "#E53935"
)

// Element is the marker's DOM node. Width and Height are always set
// explicitly so the node keeps its box while the engine re-applies zoom
// transforms.
type Element struct {
	ID     string `json:"id"`
	Role   Role   `json:"role"`
	Type   string `json:"type,omitempty"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Icon   string `json:"icon,omitempty"`
	Color  string `json:"color,omitempty"`
	Pulse  bool   `json:"pulse"`
	// Anchor is the point of the element pinned to the coordinate.
	Anchor string `json:"anchor"`

	fellBack bool
}

// Build creates the element for a type tag in the given role. Only
// featured markers honour pulse.
func Build(tag string, role Role, pulse bool) *Element {
	e := &Element{ID: uuid.NewString(), Role: role}
	switch role {
	case RoleUserLocation, RoleClickedLocation:
		e.Width, e.Height = IndicatorSize, IndicatorSize
		e.Anchor = "center"
		e.Color = clickedLocationColor
		if role == RoleUserLocation {
			e.Color = userLocationColor
		}
		return e
	case RoleFeatured:
		e.Width, e.Height = FeaturedSize, FeaturedSize
		e.Pulse = pulse
	default:
		e.Role = RoleStandard
		e.Width, e.Height = StandardSize, StandardSize
	}
	entry := registry.Lookup(tag)
	e.Type = entry.Tag
	e.Icon = entry.Icon
	e.Color = entry.Color
	e.Anchor = "bottom"
	return e
}

// IconFailed swaps the icon for the fallback asset. It only acts once; it
// returns false when the fallback was already in place.
func (e *Element) IconFailed() bool {
	if e.Icon == "" || e.fellBack {
		return false
	}
	log.Warn().Str("icon", e.Icon).Str("marker", e.ID).Msg("marker icon failed to load, using fallback")
	e.fellBack = true
	e.Icon = registry.FallbackIcon
	return true
}

// FellBack reports whether the fallback icon is in use.
func (e *Element) FellBack() bool { return e.fellBack }

var elementTmpl = template.Must(template.New("marker").Parse(
	`{{if .Icon}}<div class="bantay-marker bantay-marker--{{.Role}}{{if .Pulse}} bantay-marker--pulse{{end}}" data-marker-id="{{.ID}}" data-type="{{.Type}}" style="width:{{.Width}}px;height:{{.Height}}px">` +
		`<img src="{{.Icon}}" alt="{{.Type}}" width="{{.Width}}" height="{{.Height}}" draggable="false" style="width:{{.Width}}px;height:{{.Height}}px;display:block">` +
		`</div>` +
		`{{else}}<div class="bantay-indicator bantay-indicator--{{.Role}}" data-marker-id="{{.ID}}" style="width:{{.Width}}px;height:{{.Height}}px;background:{{.Color}}"></div>{{end}}`,
))

// HTML renders the element markup.
func (e *Element) HTML() string {
	var buf bytes.Buffer
	if err := elementTmpl.Execute(&buf, e); err != nil {
		log.Error().Err(err).Str("marker", e.ID).Msg("render marker element")
		return ""
	}
	return buf.String()
}
