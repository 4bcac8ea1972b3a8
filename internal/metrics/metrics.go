// Package metrics exposes Prometheus instrumentation for the API and the
// marker engine's external service calls.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so tests can create as many as they like.
type Metrics struct {
	registry            *prometheus.Registry
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	routeRequests       *prometheus.CounterVec
	staleRoutes         prometheus.Counter
	geocodeRequests     *prometheus.CounterVec
	geocodeCacheHits    prometheus.Counter
	activeViews         prometheus.Gauge
}

func New() *Metrics {
	registry := prometheus.NewRegistry()

	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bantay",
		Name:      "http_requests_total",
		Help:      "Count of HTTP requests processed by the API",
	}, []string{"method", "path", "status"})

	httpRequestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "bantay",
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests served by the API",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	routeRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bantay",
		Name:      "route_requests_total",
		Help:      "Directions lookups by outcome",
	}, []string{"outcome"})

	staleRoutes := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "bantay",
		Name:      "route_results_discarded_total",
		Help:      "Route results dropped because a newer request superseded them",
	})

	geocodeRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bantay",
		Name:      "geocode_requests_total",
		Help:      "Reverse geocoding lookups by outcome",
	}, []string{"outcome"})

	geocodeCacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "bantay",
		Name:      "geocode_cache_hits_total",
		Help:      "Reverse geocoding lookups served from cache",
	})

	activeViews := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "bantay",
		Name:      "active_map_views",
		Help:      "Map views currently open",
	})

	registry.MustRegister(
		httpRequests,
		httpRequestDuration,
		routeRequests,
		staleRoutes,
		geocodeRequests,
		geocodeCacheHits,
		activeViews,
	)

	return &Metrics{
		registry:            registry,
		httpRequests:        httpRequests,
		httpRequestDuration: httpRequestDuration,
		routeRequests:       routeRequests,
		staleRoutes:         staleRoutes,
		geocodeRequests:     geocodeRequests,
		geocodeCacheHits:    geocodeCacheHits,
		activeViews:         activeViews,
	}
}

// ObserveHTTPRequest records a single HTTP request/response cycle.
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labels := prometheus.Labels{
		"method": method,
		"path":   path,
		"status": strconv.Itoa(status),
	}
	m.httpRequests.With(labels).Inc()
	m.httpRequestDuration.With(labels).Observe(duration.Seconds())
}

// IncRoute counts a directions lookup ("ok", "error", "empty", "cancelled").
func (m *Metrics) IncRoute(outcome string) {
	if m == nil {
		return
	}
	m.routeRequests.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncStaleRoute() {
	if m == nil {
		return
	}
	m.staleRoutes.Inc()
}

// IncGeocode counts a reverse geocoding lookup ("ok", "error", "empty").
func (m *Metrics) IncGeocode(outcome string) {
	if m == nil {
		return
	}
	m.geocodeRequests.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncGeocodeCacheHit() {
	if m == nil {
		return
	}
	m.geocodeCacheHits.Inc()
}

func (m *Metrics) SetActiveViews(n int) {
	if m == nil {
		return
	}
	m.activeViews.Set(float64(n))
}

// Handler exposes the Prometheus registry over HTTP.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("metrics unavailable"))
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
