package catalog

import (
	"fmt"
	"math"

	"github.com/golang/geo/s2"
)

// EarthRadiusKm is the sphere radius used for all catalog distances.
const EarthRadiusKm = 6371.0

// Distance returns the great-circle distance in kilometers between a and b.
// s2.LatLng.Distance is the haversine formula.
func Distance(a, b Location) float64 {
	p1 := s2.LatLngFromDegrees(a.Lat, a.Lng)
	p2 := s2.LatLngFromDegrees(b.Lat, b.Lng)
	return p1.Distance(p2).Radians() * EarthRadiusKm
}

// FormatDistance renders km as whole meters below one kilometer ("500m"),
// otherwise as kilometers with one decimal ("2.3km").
func FormatDistance(km float64) string {
	if km < 1 {
		return fmt.Sprintf("%dm", int64(math.Round(km*1000)))
	}
	return fmt.Sprintf("%.1fkm", km)
}
