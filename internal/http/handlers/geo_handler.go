// README: Stateless lookups backing the search box and ad-hoc route checks.
package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cast"

	"bantay/internal/annotation"
	"bantay/internal/geo"
	"bantay/internal/maps"
	"bantay/internal/types"
)

type PlaceSearcher interface {
	Search(ctx context.Context, query string, near *types.Point) []maps.Place
}

type GeoHandler struct {
	geocoder annotation.Geocoder
	places   PlaceSearcher
	router   annotation.Router
}

func NewGeoHandler(geocoder annotation.Geocoder, places PlaceSearcher, router annotation.Router) *GeoHandler {
	return &GeoHandler{geocoder: geocoder, places: places, router: router}
}

// queryPoint reads a lat/lng pair from the named query parameters.
func queryPoint(c *gin.Context, latKey, lngKey string) (types.Point, bool) {
	lat, err := cast.ToFloat64E(c.Query(latKey))
	if err != nil || c.Query(latKey) == "" {
		return types.Point{}, false
	}
	lng, err := cast.ToFloat64E(c.Query(lngKey))
	if err != nil || c.Query(lngKey) == "" {
		return types.Point{}, false
	}
	if !geo.Valid(lat, lng) {
		return types.Point{}, false
	}
	return types.Point{Lat: lat, Lng: lng}, true
}

func (h *GeoHandler) Reverse(c *gin.Context) {
	p, ok := queryPoint(c, "lat", "lng")
	if !ok {
		writeError(c, http.StatusBadRequest, geo.ErrInvalidCoordinates.Error())
		return
	}
	name := maps.UnknownLocation
	if h.geocoder != nil {
		name = h.geocoder.ReverseGeocode(c.Request.Context(), p.Lat, p.Lng)
	}
	writeJSON(c, http.StatusOK, gin.H{"name": name, "location": p})
}

func (h *GeoHandler) Search(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		writeError(c, http.StatusBadRequest, "missing q")
		return
	}
	var near *types.Point
	if p, ok := queryPoint(c, "lat", "lng"); ok {
		near = &p
	}
	results := []maps.Place{}
	if h.places != nil {
		if found := h.places.Search(c.Request.Context(), q, near); found != nil {
			results = found
		}
	}
	writeJSON(c, http.StatusOK, gin.H{"results": results})
}

func (h *GeoHandler) Route(c *gin.Context) {
	origin, ok := queryPoint(c, "fromLat", "fromLng")
	if !ok {
		writeError(c, http.StatusBadRequest, "invalid origin")
		return
	}
	dest, ok := queryPoint(c, "toLat", "toLng")
	if !ok {
		writeError(c, http.StatusBadRequest, "invalid destination")
		return
	}
	if h.router == nil {
		writeError(c, http.StatusServiceUnavailable, "routing unavailable")
		return
	}
	res := h.router.TravelTime(c.Request.Context(), origin, dest)
	if res == nil {
		writeError(c, http.StatusBadGateway, "no route found")
		return
	}
	writeJSON(c, http.StatusOK, res)
}
