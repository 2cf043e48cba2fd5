package catalog

import (
	"math"
	"testing"
)

func TestFormatDistance(t *testing.T) {
	tests := []struct {
		km   float64
		want string
	}{
		{0.5, "500m"},
		{2.345, "2.3km"},
		{0, "0m"},
		{0.0004, "0m"},
		{0.9994, "999m"},
		{1, "1.0km"},
		{12.96, "13.0km"},
	}
	for _, tt := range tests {
		if got := FormatDistance(tt.km); got != tt.want {
			t.Errorf("FormatDistance(%v) = %q, want %q", tt.km, got, tt.want)
		}
	}
}

func TestDistance(t *testing.T) {
	delhi := Location{Lat: 28.6139, Lng: 77.2090}
	mumbai := Location{Lat: 19.0760, Lng: 72.8777}

	if d := Distance(delhi, delhi); d != 0 {
		t.Errorf("same point distance = %v, want 0", d)
	}

	// Haversine on a 6371 km sphere gives ~1148 km for Delhi-Mumbai.
	d := Distance(delhi, mumbai)
	if math.Abs(d-1148) > 5 {
		t.Errorf("Delhi-Mumbai = %.1f km, want ~1148", d)
	}
	if back := Distance(mumbai, delhi); math.Abs(back-d) > 1e-9 {
		t.Errorf("distance not symmetric: %v vs %v", d, back)
	}

	// One degree of latitude along a meridian.
	oneDeg := Distance(Location{Lat: 0, Lng: 0}, Location{Lat: 1, Lng: 0})
	want := EarthRadiusKm * math.Pi / 180
	if math.Abs(oneDeg-want) > 1e-6 {
		t.Errorf("one degree = %v, want %v", oneDeg, want)
	}
}
