// README: HTTP router registration.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bantay/internal/http/handlers"
	"bantay/internal/http/middleware"
)

func NewRouter(deps ServerDeps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery(deps.Log), middleware.Logging(deps.Log, deps.Metrics))

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))

	api := r.Group("/api", middleware.Auth(deps.Verifier))

	views := handlers.NewViewHandler(deps.Views, deps.Log)
	api.POST("/views", views.Open)
	api.GET("/views/:id", views.Get)
	api.GET("/views/:id/stream", views.Stream)
	api.DELETE("/views/:id", views.Delete)
	api.POST("/views/:id/retry", views.Retry)
	api.PUT("/views/:id/inputs", views.SetInputs)
	api.PUT("/views/:id/style", views.SetStyle)
	api.POST("/views/:id/location", views.ReportLocation)
	api.PUT("/views/:id/placemark", views.SetPlacemark)
	api.POST("/views/:id/events", views.Dispatch)
	api.POST("/views/:id/destination", views.SelectDestination)

	geo := handlers.NewGeoHandler(deps.Geocoder, deps.Places, deps.Router)
	api.GET("/geocode/reverse", geo.Reverse)
	api.GET("/geocode/search", geo.Search)
	api.GET("/route", geo.Route)

	return r
}
