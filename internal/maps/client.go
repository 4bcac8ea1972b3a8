// README: Google Maps Platform client construction shared by the route, geocode and places services.
package maps

import (
	"context"
	"fmt"

	"googlemaps.github.io/maps"
)

// DirectionsAPI is the slice of *maps.Client the route service needs.
type DirectionsAPI interface {
	Directions(ctx context.Context, r *maps.DirectionsRequest) ([]maps.Route, []maps.GeocodedWaypoint, error)
}

// GeocodingAPI is the slice of *maps.Client the geocode service needs.
type GeocodingAPI interface {
	ReverseGeocode(ctx context.Context, r *maps.GeocodingRequest) ([]maps.GeocodingResult, error)
}

// TextSearchAPI is the slice of *maps.Client the places service needs.
type TextSearchAPI interface {
	TextSearch(ctx context.Context, r *maps.TextSearchRequest) (maps.PlacesSearchResponse, error)
}

// NewClient creates a Google Maps client for the given API key.
func NewClient(apiKey string) (*maps.Client, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return client, nil
}

// Locale biases results; empty fields are omitted from requests.
type Locale struct {
	Language string
	Region   string
}
