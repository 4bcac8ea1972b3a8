// README: Placemark cursor. While placement mode is on, the system cursor is
// hidden and a pin glyph follows the pointer over the map viewport.
package cursor

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"bantay/internal/mapengine"
	"bantay/internal/registry"
)

const (
	GlyphClass = "bantay-placemark-cursor"
	glyphSize  = 32
)

type Controller struct {
	vp  mapengine.Viewport
	log zerolog.Logger

	mu      sync.Mutex
	active  bool
	glyph   string
	prev    string
	removes []func()
}

func New(vp mapengine.Viewport, log zerolog.Logger) *Controller {
	return &Controller{vp: vp, log: log.With().Str("component", "cursor").Logger()}
}

func (c *Controller) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// SetActive turns placement mode on or off. Repeated calls with the same
// value are no-ops.
func (c *Controller) SetActive(active bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if active == c.active {
		return nil
	}
	if !active {
		c.deactivateLocked()
		return nil
	}

	id := uuid.NewString()
	err := c.vp.AppendChild(mapengine.Node{
		ID:     id,
		Class:  GlyphClass,
		HTML:   glyphHTML(),
		Hidden: true,
	})
	if err != nil {
		return fmt.Errorf("append cursor glyph: %w", err)
	}
	c.glyph = id
	c.prev = c.vp.Cursor()
	c.vp.SetCursor("none")
	c.removes = []func(){
		c.vp.AddEventListener(mapengine.DOMPointerMove, c.onMove),
		c.vp.AddEventListener(mapengine.DOMPointerLeave, c.onLeave),
		c.vp.AddEventListener(mapengine.DOMPointerEnter, c.onEnter),
	}
	c.active = true
	c.log.Debug().Str("glyph", id).Msg("placement cursor on")
	return nil
}

// Close deactivates the controller unconditionally.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deactivateLocked()
}

func (c *Controller) deactivateLocked() {
	for _, rm := range c.removes {
		rm()
	}
	c.removes = nil
	if c.glyph != "" {
		c.vp.RemoveChild(c.glyph)
		c.glyph = ""
	}
	if c.active {
		c.vp.SetCursor(c.prev)
	}
	c.active = false
}

// glyphID returns the live glyph, or "" once deactivated. Listeners that
// raced with deactivation see "" and do nothing.
func (c *Controller) glyphID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.glyph
}

func (c *Controller) onMove(e mapengine.PointerEvent) {
	id := c.glyphID()
	if id == "" {
		return
	}
	// Tip of the pin sits on the pointer.
	_ = c.vp.MoveChild(id, e.X-glyphSize/2, e.Y-glyphSize)
	_ = c.vp.SetChildHidden(id, false)
}

func (c *Controller) onLeave(mapengine.PointerEvent) {
	if id := c.glyphID(); id != "" {
		_ = c.vp.SetChildHidden(id, true)
	}
}

func (c *Controller) onEnter(mapengine.PointerEvent) {
	if id := c.glyphID(); id != "" {
		_ = c.vp.SetChildHidden(id, false)
	}
}

func glyphHTML() string {
	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 24 24" style="position:absolute;pointer-events:none">`, glyphSize, glyphSize)
	for _, p := range registry.OutlinePathsFor(registry.Fallback) {
		if p.FillRule != "" {
			fmt.Fprintf(&b, `<path d="%s" fill-rule="%s" fill="#fff"/>`, p.D, p.FillRule)
			continue
		}
		fmt.Fprintf(&b, `<path d="%s" fill="%s"/>`, p.D, registry.ColorFor(registry.Fallback))
	}
	b.WriteString(`</svg>`)
	return b.String()
}
