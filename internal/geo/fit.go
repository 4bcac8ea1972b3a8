package geo

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/wroge/wgs84"
)

const (
	// tileSize matches vector-tile renderers (512px tiles).
	tileSize = 512.0
	// worldMeters is the width of the EPSG:3857 plane.
	worldMeters = 2 * 20037508.342789244
	MaxZoom     = 22.0
	// pointZoom is used when the bound has no extent.
	pointZoom = 16.0
)

// Camera is a center/zoom pair.
type Camera struct {
	Center orb.Point `json:"center"`
	Zoom   float64   `json:"zoom"`
}

// FitBounds computes the camera that shows b inside a width x height
// viewport with padding pixels on each side.
func FitBounds(b orb.Bound, width, height, padding int) Camera {
	cam := Camera{Center: b.Center(), Zoom: pointZoom}
	if width <= 0 || height <= 0 {
		return cam
	}

	toMercator := wgs84.EPSG().Transform(4326, 3857)
	minX, minY, _ := toMercator(b.Min.Lon(), b.Min.Lat(), 0)
	maxX, maxY, _ := toMercator(b.Max.Lon(), b.Max.Lat(), 0)
	spanX, spanY := math.Abs(maxX-minX), math.Abs(maxY-minY)
	if spanX == 0 && spanY == 0 {
		return cam
	}

	availW := math.Max(float64(width-2*padding), 1)
	availH := math.Max(float64(height-2*padding), 1)
	zoom := MaxZoom
	if spanX > 0 {
		zoom = math.Min(zoom, math.Log2(availW*worldMeters/(tileSize*spanX)))
	}
	if spanY > 0 {
		zoom = math.Min(zoom, math.Log2(availH*worldMeters/(tileSize*spanY)))
	}
	cam.Zoom = math.Max(0, math.Min(MaxZoom, zoom))
	return cam
}
