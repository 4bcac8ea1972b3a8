package geo

import (
	"slices"

	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"

	"bantay/internal/types"
)

// LngLat converts a types.Point into an orb point.
func LngLat(p types.Point) orb.Point {
	return orb.Point{p.Lng, p.Lat}
}

// DistanceKm returns the great-circle distance in kilometres between a and b.
func DistanceKm(a, b types.Point) float64 {
	return orbgeo.DistanceHaversine(LngLat(a), LngLat(b)) / 1000
}

// SortByDistance orders items by their distance from origin, closest first.
// The sort is stable so equally distant items keep their relevance order.
func SortByDistance[T any](items []T, origin types.Point, pos func(T) types.Point) {
	slices.SortStableFunc(items, func(a, b T) int {
		da, db := DistanceKm(origin, pos(a)), DistanceKm(origin, pos(b))
		switch {
		case da < db:
			return -1
		case da > db:
			return 1
		}
		return 0
	})
}
