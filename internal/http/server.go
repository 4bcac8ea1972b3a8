// README: API gateway; holds the services the HTTP routes delegate to.
package http

import (
	"net/http"

	"github.com/rs/zerolog"

	"bantay/internal/annotation"
	"bantay/internal/http/handlers"
	"bantay/internal/infra"
	"bantay/internal/metrics"
	"bantay/internal/modules/mapview"
)

type ServerDeps struct {
	Views    *mapview.Manager
	Geocoder annotation.Geocoder
	Places   handlers.PlaceSearcher
	Router   annotation.Router
	Verifier infra.TokenVerifier
	Metrics  *metrics.Metrics
	Log      zerolog.Logger
}

type Server struct {
	deps ServerDeps
}

func NewServer(deps ServerDeps) *Server {
	deps.Log = deps.Log.With().Str("component", "http").Logger()
	return &Server{deps: deps}
}

func (s *Server) Routes() http.Handler {
	return NewRouter(s.deps)
}
