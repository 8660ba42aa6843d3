package crs

import "testing"

func TestUPSRoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		lat, lon float64
	}{
		{"north near pole", 88.0, 45.0},
		{"north cap edge", 84.0, 0.0},
		{"north west longitude", 86.5, -120.0},
		{"north date line", 85.0, 180.0},
		{"south near pole", -88.0, 30.0},
		{"south cap edge", -80.0, -60.0},
		{"south prime meridian", -85.0, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			northern, e, n := LonLatToUPS(tt.lat, tt.lon)
			if northern != (tt.lat >= 0) {
				t.Fatalf("hemisphere = %v for lat %v", northern, tt.lat)
			}
			lon, lat := UPSToLonLat(northern, e, n)
			if !almostEqual(lat, tt.lat, 1e-6) || !almostEqual(lon, tt.lon, 1e-6) {
				t.Errorf("round trip = (%v, %v), want (%v, %v)", lat, lon, tt.lat, tt.lon)
			}
		})
	}
}

func TestUPSKnownGeometry(t *testing.T) {
	// On the 0° meridian at 84°N the easting is exactly the false
	// easting and the northing sits south of the pole by the cap radius
	// (roughly 667km).
	_, e, n := LonLatToUPS(84.0, 0.0)
	if !almostEqual(e, 2000000, 1e-3) {
		t.Errorf("easting = %v, want 2000000", e)
	}
	if n < 1300000 || n > 1365000 {
		t.Errorf("northing = %v, want within [1300000, 1365000]", n)
	}

	// The poles project onto the false origin.
	_, e, n = LonLatToUPS(90.0, 0.0)
	if !almostEqual(e, 2000000, 1e-3) || !almostEqual(n, 2000000, 1e-3) {
		t.Errorf("north pole = (%v, %v), want (2000000, 2000000)", e, n)
	}

	lon, lat := UPSToLonLat(true, 2000000, 2000000)
	if lat != 90 || lon != 0 {
		t.Errorf("false origin inverse = (%v, %v), want (0, 90)", lon, lat)
	}

	lon, lat = UPSToLonLat(false, 2000000, 2000000)
	if lat != -90 || lon != 0 {
		t.Errorf("south false origin inverse = (%v, %v), want (0, -90)", lon, lat)
	}
}

func TestUPSQuadrants(t *testing.T) {
	// North aspect: positive longitude pushes east of the pole,
	// and the 0° meridian runs toward the equator (down in northing).
	_, e, n := LonLatToUPS(87.0, 90.0)
	if e <= 2000000 {
		t.Errorf("easting %v not east of pole for lon 90", e)
	}
	if !almostEqual(n, 2000000, 1e-3) {
		t.Errorf("northing %v should stay on the pole line for lon 90", n)
	}

	_, e, n = LonLatToUPS(87.0, 0.0)
	if !almostEqual(e, 2000000, 1e-3) {
		t.Errorf("easting %v should stay on the pole line for lon 0", e)
	}
	if n >= 2000000 {
		t.Errorf("northing %v not south of pole for lon 0", n)
	}

	// South aspect flips the meridian direction.
	_, e, n = LonLatToUPS(-87.0, 0.0)
	if n <= 2000000 {
		t.Errorf("south northing %v should exceed the false origin for lon 0", n)
	}
}
