package maps

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"googlemaps.github.io/maps"

	"bantay/internal/geo"
	"bantay/internal/types"
)

const (
	// searchRadiusMeters biases search results around the caller's position.
	searchRadiusMeters = 20000
	maxSearchResults   = 5
)

// Place is one geocoder-control search candidate.
type Place struct {
	Name     string      `json:"name"`
	Address  string      `json:"address"`
	PlaceID  string      `json:"placeId"`
	Location types.Point `json:"location"`
}

// PlacesService backs the map's search box.
type PlacesService struct {
	client TextSearchAPI
	locale Locale
	log    zerolog.Logger
}

func NewPlacesService(client TextSearchAPI, locale Locale, log zerolog.Logger) *PlacesService {
	return &PlacesService{client: client, locale: locale, log: log.With().Str("component", "places").Logger()}
}

// Search looks up places matching query. When near is set, results are
// biased towards it and returned closest first. Failures yield no results.
func (s *PlacesService) Search(ctx context.Context, query string, near *types.Point) []Place {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}

	r := &maps.TextSearchRequest{
		Query:    query,
		Language: s.locale.Language,
		Region:   s.locale.Region,
	}
	if near != nil && geo.Valid(near.Lat, near.Lng) {
		r.Location = &maps.LatLng{Lat: near.Lat, Lng: near.Lng}
		r.Radius = searchRadiusMeters
	}

	resp, err := s.client.TextSearch(ctx, r)
	if err != nil {
		s.log.Warn().Err(err).Str("query", query).Msg("places search failed")
		return nil
	}

	seen := make(map[string]bool)
	var results []Place
	for _, result := range resp.Results {
		loc := result.Geometry.Location
		if !geo.Valid(loc.Lat, loc.Lng) {
			continue
		}
		if result.PlaceID != "" && seen[result.PlaceID] {
			continue
		}
		seen[result.PlaceID] = true
		results = append(results, Place{
			Name:     result.Name,
			Address:  result.FormattedAddress,
			PlaceID:  result.PlaceID,
			Location: types.Point{Lat: loc.Lat, Lng: loc.Lng},
		})
		if len(results) >= maxSearchResults {
			break
		}
	}

	if near != nil {
		geo.SortByDistance(results, *near, func(p Place) types.Point { return p.Location })
	}
	return results
}
