package maps

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
	"googlemaps.github.io/maps"

	"bantay/internal/geo"
	"bantay/internal/metrics"
)

// UnknownLocation is returned whenever a place name cannot be resolved.
const UnknownLocation = "Unknown Location"

// Cache stores resolved place names. Misses and failures return ok=false.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string)
}

// GeocodeService resolves coordinates to human-readable place names.
type GeocodeService struct {
	client  GeocodingAPI
	cache   Cache
	group   singleflight.Group
	locale  Locale
	log     zerolog.Logger
	metrics *metrics.Metrics
}

// NewGeocodeService creates a GeocodeService. cache may be nil.
func NewGeocodeService(client GeocodingAPI, cache Cache, locale Locale, log zerolog.Logger, m *metrics.Metrics) *GeocodeService {
	return &GeocodeService{
		client:  client,
		cache:   cache,
		locale:  locale,
		log:     log.With().Str("component", "geocode").Logger(),
		metrics: m,
	}
}

func reverseKey(lat, lng float64) string {
	return fmt.Sprintf("geocode:rev:%.5f,%.5f", lat, lng)
}

// ReverseGeocode returns the first candidate's formatted address, or
// UnknownLocation. Only successful lookups are cached.
func (s *GeocodeService) ReverseGeocode(ctx context.Context, lat, lng float64) string {
	if !geo.Valid(lat, lng) {
		s.log.Warn().Float64("lat", lat).Float64("lng", lng).Msg("reverse geocode with invalid coordinates")
		return UnknownLocation
	}
	key := reverseKey(lat, lng)
	if s.cache != nil {
		if name, ok := s.cache.Get(ctx, key); ok {
			s.metrics.IncGeocodeCacheHit()
			return name
		}
	}

	// The shared lookup runs detached so one caller going away does not
	// fail the others waiting on the same key.
	shared := context.WithoutCancel(ctx)
	ch := s.group.DoChan(key, func() (any, error) {
		results, err := s.client.ReverseGeocode(shared, &maps.GeocodingRequest{
			LatLng:   &maps.LatLng{Lat: lat, Lng: lng},
			Language: s.locale.Language,
			Region:   s.locale.Region,
		})
		if err != nil {
			s.metrics.IncGeocode("error")
			s.log.Warn().Err(err).Float64("lat", lat).Float64("lng", lng).Msg("reverse geocode failed")
			return UnknownLocation, nil
		}
		if len(results) == 0 || strings.TrimSpace(results[0].FormattedAddress) == "" {
			s.metrics.IncGeocode("empty")
			return UnknownLocation, nil
		}
		name := strings.TrimSpace(results[0].FormattedAddress)
		if s.cache != nil {
			s.cache.Set(shared, key, name)
		}
		s.metrics.IncGeocode("ok")
		return name, nil
	})
	select {
	case res := <-ch:
		return res.Val.(string)
	case <-ctx.Done():
		return UnknownLocation
	}
}
