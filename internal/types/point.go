// README: Shared identifier and WGS84 point value objects.
package types

import "fmt"

type ID string

// Point is a WGS84 position in decimal degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// String formats the point the way the Google Maps web services expect ("lat,lng").
func (p Point) String() string {
	return fmt.Sprintf("%f,%f", p.Lat, p.Lng)
}
