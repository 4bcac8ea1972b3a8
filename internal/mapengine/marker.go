package mapengine

import (
	"slices"
	"sync"

	"github.com/paulmach/orb"

	"bantay/internal/marker"
)

// Marker is an engine marker wrapping a marker element and the element's
// listeners.
type Marker struct {
	ID      string          `json:"id"`
	Element *marker.Element `json:"element"`
	LngLat  orb.Point       `json:"lngLat"`

	mu        sync.Mutex
	listeners map[DOMEvent]map[int]func()
	next      int
}

func NewMarker(el *marker.Element, at orb.Point) *Marker {
	return &Marker{
		ID:        el.ID,
		Element:   el,
		LngLat:    at,
		listeners: make(map[DOMEvent]map[int]func()),
	}
}

// On attaches fn to the element. The returned func detaches it and is safe
// to call more than once.
func (m *Marker) On(ev DOMEvent, fn func()) (off func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listeners[ev] == nil {
		m.listeners[ev] = make(map[int]func())
	}
	id := m.next
	m.next++
	m.listeners[ev][id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners[ev], id)
	}
}

// Fire delivers ev to the element's listeners in attach order.
func (m *Marker) Fire(ev DOMEvent) {
	m.mu.Lock()
	ids := make([]int, 0, len(m.listeners[ev]))
	for id := range m.listeners[ev] {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	fns := make([]func(), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, m.listeners[ev][id])
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// ListenerCount returns the number of attached listeners across events.
func (m *Marker) ListenerCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, l := range m.listeners {
		n += len(l)
	}
	return n
}
