package geo

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"

	"bantay/internal/types"
)

func TestDistanceKm_KnownDistances(t *testing.T) {
	tests := []struct {
		name      string
		a, b      types.Point
		wantKm    float64
		tolerance float64
	}{
		{"same point", types.Point{Lat: 14.1139, Lng: 121.5556}, types.Point{Lat: 14.1139, Lng: 121.5556}, 0, 0.001},
		{"Calamba to Los Banos (~10km)", types.Point{Lat: 14.2117, Lng: 121.1653}, types.Point{Lat: 14.1699, Lng: 121.2441}, 9.6, 1.5},
		{"New York to Los Angeles (~3944km)", types.Point{Lat: 40.7128, Lng: -74.0060}, types.Point{Lat: 34.0522, Lng: -118.2437}, 3944, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DistanceKm(tt.a, tt.b)
			assert.InDelta(t, tt.wantKm, got, tt.tolerance)
		})
	}
}

func TestDistanceKm_Symmetry(t *testing.T) {
	a := types.Point{Lat: 25, Lng: 121}
	b := types.Point{Lat: 26, Lng: 122}
	assert.InDelta(t, DistanceKm(a, b), DistanceKm(b, a), 0.0001)
}

func TestSortByDistance(t *testing.T) {
	origin := types.Point{Lat: 14.1139, Lng: 121.5556}
	items := []types.Point{
		{Lat: 14.5, Lng: 121.5556},
		{Lat: 14.12, Lng: 121.5556},
		{Lat: 14.2, Lng: 121.5556},
	}
	SortByDistance(items, origin, func(p types.Point) types.Point { return p })
	assert.Equal(t, []types.Point{{Lat: 14.12, Lng: 121.5556}, {Lat: 14.2, Lng: 121.5556}, {Lat: 14.5, Lng: 121.5556}}, items)

	var empty []types.Point
	SortByDistance(empty, origin, func(p types.Point) types.Point { return p })
}

func TestFitBounds(t *testing.T) {
	b := orb.Bound{Min: orb.Point{121.5, 14.1}, Max: orb.Point{121.6, 14.2}}
	cam := FitBounds(b, 800, 600, 50)
	assert.InDelta(t, 121.55, cam.Center.Lon(), 1e-9)
	assert.InDelta(t, 14.15, cam.Center.Lat(), 1e-9)
	assert.Greater(t, cam.Zoom, 10.0)
	assert.Less(t, cam.Zoom, 14.0)

	wider := FitBounds(orb.Bound{Min: orb.Point{121.0, 14.1}, Max: orb.Point{122.0, 14.2}}, 800, 600, 50)
	assert.Less(t, wider.Zoom, cam.Zoom)

	point := FitBounds(orb.Bound{Min: orb.Point{121.5, 14.1}, Max: orb.Point{121.5, 14.1}}, 800, 600, 50)
	assert.Equal(t, 16.0, point.Zoom)
	assert.False(t, math.IsNaN(point.Zoom))
}
