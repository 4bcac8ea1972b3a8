package maps

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// FormatDuration renders a travel duration as "Xh Ym", "Xh" or "Ym".
// Partial minutes are dropped.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	minutes := int(d / time.Minute)
	hours, mins := minutes/60, minutes%60
	switch {
	case hours > 0 && mins > 0:
		return fmt.Sprintf("%dh %dm", hours, mins)
	case hours > 0:
		return fmt.Sprintf("%dh", hours)
	default:
		return fmt.Sprintf("%dm", mins)
	}
}

// FormatDistance converts meters to kilometres rounded to one decimal.
func FormatDistance(meters int) (float64, string) {
	km := math.Round(float64(meters)/100) / 10
	return km, strconv.FormatFloat(km, 'f', 1, 64) + " km"
}
