// Package geo holds coordinate parsing, validation and Web-Mercator helpers
// shared by the marker engine.
package geo

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/rs/zerolog/log"
)

// DefaultLocation is returned whenever a coordinate cannot be interpreted.
// It is the municipal hall of the pilot LGU, [lng, lat].
var DefaultLocation = orb.Point{121.5556, 14.1139}

// ErrInvalidCoordinates is returned by Parse when the input is not a numeric pair.
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// Valid reports whether lat/lng fall inside WGS84 ranges.
func Valid(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lng) || math.IsInf(lat, 0) || math.IsInf(lng, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// Parse splits "a,b" into two floats. It does not reorder anything.
func Parse(raw string) (float64, float64, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 2 {
		return 0, 0, ErrInvalidCoordinates
	}
	first, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, ErrInvalidCoordinates
	}
	second, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, ErrInvalidCoordinates
	}
	if math.IsNaN(first) || math.IsNaN(second) || math.IsInf(first, 0) || math.IsInf(second, 0) {
		return 0, 0, ErrInvalidCoordinates
	}
	return first, second, nil
}

// Normalize turns a free-form "lat, lng" string into an [lng, lat] point.
// Malformed input logs a warning and yields DefaultLocation.
func Normalize(raw string) orb.Point {
	first, second, err := Parse(raw)
	if err != nil {
		log.Warn().Str("raw", raw).Msg("malformed coordinates, using default location")
		return DefaultLocation
	}
	return NormalizePair(first, second)
}

// NormalizePair maps a (lat, lng) pair to [lng, lat].
//
// Best effort only: when |first| > 90 and |second| <= 90 the first value
// cannot be a latitude, so the pair is read as already being (lng, lat).
// Pairs where both magnitudes are <= 90 are ambiguous and always read as
// (lat, lng).
func NormalizePair(first, second float64) orb.Point {
	lat, lng := first, second
	if math.Abs(first) > 90 && math.Abs(second) <= 90 {
		lat, lng = second, first
	}
	if !Valid(lat, lng) {
		log.Warn().Float64("first", first).Float64("second", second).Msg("coordinates out of range, using default location")
		return DefaultLocation
	}
	return orb.Point{lng, lat}
}
