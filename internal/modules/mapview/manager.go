package mapview

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/rs/zerolog"

	"bantay/internal/annotation"
	"bantay/internal/geolocation"
	"bantay/internal/mapengine"
	"bantay/internal/metrics"
	"bantay/internal/modules/audit"
	"bantay/internal/modules/pin"
)

type Config struct {
	DefaultStyle string
	Width        int
	Height       int
	Center       orb.Point
	Zoom         float64
	LoadTimeout  time.Duration
	RouteColor   string
	Padding      int
	// JitterKm is the smallest device move that rebuilds the map.
	JitterKm    float64
	Geolocation geolocation.Options
}

type PinLister interface {
	List(ctx context.Context) ([]pin.Pin, error)
}

type Auditor interface {
	Record(ctx context.Context, e audit.Entry)
}

type Deps struct {
	Loader   mapengine.StyleLoader
	Router   annotation.Router
	Geocoder annotation.Geocoder
	Pins     PinLister
	Audit    Auditor
	Metrics  *metrics.Metrics
	Log      zerolog.Logger
}

// DefaultControls are the map controls every view carries.
func DefaultControls() []mapengine.Control {
	return []mapengine.Control{
		{ID: "navigation", Position: "top-right"},
		{ID: "geolocate", Position: "top-right"},
		{ID: "geocoder", Position: "top-left"},
	}
}

// Manager is the registry of open views.
type Manager struct {
	cfg  Config
	deps Deps

	mu    sync.RWMutex
	views map[string]*View
}

func NewManager(cfg Config, deps Deps) *Manager {
	if cfg.DefaultStyle == "" {
		cfg.DefaultStyle = "streets"
	}
	if cfg.Geolocation == (geolocation.Options{}) {
		cfg.Geolocation = geolocation.DefaultOptions()
	}
	if deps.Loader == nil {
		deps.Loader = mapengine.DefaultCatalog()
	}
	deps.Log = deps.Log.With().Str("component", "mapview").Logger()
	return &Manager{cfg: cfg, deps: deps, views: make(map[string]*View)}
}

type OpenRequest struct {
	Style  string `json:"style"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Owner  string `json:"-"`
}

// Open registers a new view and initialises its engine. The view is
// registered even when initialisation fails so the client can retry; the
// init error is returned alongside it.
func (m *Manager) Open(ctx context.Context, req OpenRequest) (*View, error) {
	style := req.Style
	if style == "" {
		style = m.cfg.DefaultStyle
	}
	width, height := req.Width, req.Height
	if width <= 0 {
		width = m.cfg.Width
	}
	if height <= 0 {
		height = m.cfg.Height
	}

	v := newView(uuid.NewString(), req.Owner, style, width, height, m.cfg, m.deps)
	v.mu.Lock()
	err := v.initLocked(ctx)
	v.mu.Unlock()

	m.mu.Lock()
	m.views[v.ID] = v
	n := len(m.views)
	m.mu.Unlock()
	m.deps.Metrics.SetActiveViews(n)

	go v.locate()
	v.audit(audit.Entry{Action: audit.ActionViewOpened})

	if err != nil {
		v.log.Warn().Err(err).Str("style", style).Msg("map engine init failed")
	}
	return v, err
}

func (m *Manager) Get(id string) (*View, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.views[id]
	if !ok {
		return nil, ErrViewNotFound
	}
	return v, nil
}

func (m *Manager) Close(id string) error {
	m.mu.Lock()
	v, ok := m.views[id]
	delete(m.views, id)
	n := len(m.views)
	m.mu.Unlock()
	if !ok {
		return ErrViewNotFound
	}
	v.Close()
	m.deps.Metrics.SetActiveViews(n)
	return nil
}

// CloseAll releases every view, e.g. on shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	views := m.views
	m.views = make(map[string]*View)
	m.mu.Unlock()
	for _, v := range views {
		v.Close()
	}
	m.deps.Metrics.SetActiveViews(0)
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.views)
}
