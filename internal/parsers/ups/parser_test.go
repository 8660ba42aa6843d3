package ups

import (
	"math"
	"strings"
	"testing"

	"coordparse/coord"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		latLo float64
		latHi float64
		lonLo float64
		lonHi float64
		epsg  int
	}{
		{"north west quadrant", "Y 1712267 2135518", 87.0, 87.3, -115.5, -114.9, 32661},
		{"north on the prime meridian", "Z 2000000 1333000", 83.9, 84.1, -0.2, 0.2, 32661},
		{"north pole", "Z 2000000 2000000", 89.9, 90.0, -180, 180, 32661},
		{"south on the prime meridian", "B 2000000 3112963", -80.1, -79.9, -0.2, 0.2, 32761},
		{"south pole", "A 2000000 2000000", -90.0, -89.9, -180, 180, 32761},
		{"lower case letter", "z 2000000 1333000", 83.9, 84.1, -0.2, 0.2, 32661},
		{"comma separated", "Z 2000000, 1333000", 83.9, 84.1, -0.2, 0.2, 32661},
	}
	s := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !s.CanParse(tt.text) {
				t.Fatalf("CanParse(%q) = false, want true", tt.text)
			}
			got, err := s.Parse(tt.text, coord.OrderLatFirst)
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", tt.text, err)
			}
			if got.Lat < tt.latLo || got.Lat > tt.latHi || got.Lon < tt.lonLo || got.Lon > tt.lonHi {
				t.Errorf("Parse(%q) = (%.4f, %.4f), want lat in [%v,%v], lon in [%v,%v]",
					tt.text, got.Lat, got.Lon, tt.latLo, tt.latHi, tt.lonLo, tt.lonHi)
			}
			if got.SourceEPSG != tt.epsg {
				t.Errorf("Parse(%q) epsg = %d, want %d", tt.text, got.SourceEPSG, tt.epsg)
			}
		})
	}
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"easting beyond grid", "Y 5000000 2000000"},
		{"negative shape", "Y -100 2000000"},
		{"far from the pole", "Y 0 0"},
		{"south grid in north zone", "Z 2000000 3800000"},
		{"missing northing", "Z 2000000"},
	}
	s := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Parse(tt.text, coord.OrderLatFirst)
			if coord.KindOf(err) != coord.FormatRejected {
				t.Fatalf("Parse(%q) error = %v, want FormatRejected", tt.text, err)
			}
		})
	}
}

func TestCanParse(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"Y 1712267 2135518", true},
		{"A 2000000 2000000", true},
		{"C 2000000 2000000", false},
		{"33N 315428 5741324", false},
		{"40.7128, -74.0060", false},
	}
	s := New()
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if got := s.CanParse(tt.text); got != tt.want {
				t.Errorf("CanParse(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		lat, lon float64
		zone     byte
	}{
		{"north east", 87.0, 45.0, 'Z'},
		{"north west", 86.0, -120.0, 'Y'},
		{"south east", -85.0, 30.0, 'B'},
		{"south west", -85.0, -30.0, 'A'},
		{"north pole", 90.0, 0.0, 'Z'},
	}
	s := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, err := Encode(tt.lat, tt.lon, 3)
			if err != nil {
				t.Fatalf("Encode(%f, %f) error: %v", tt.lat, tt.lon, err)
			}
			if text[0] != tt.zone {
				t.Fatalf("Encode(%f, %f) = %q, want zone %c", tt.lat, tt.lon, text, tt.zone)
			}
			got, err := s.Parse(text, coord.OrderLatFirst)
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", text, err)
			}
			if !almostEqual(got.Lat, tt.lat, 1e-6) {
				t.Errorf("round trip %q lat = %v, want %v", text, got.Lat, tt.lat)
			}
			if tt.lat != 90 && tt.lat != -90 && !almostEqual(got.Lon, tt.lon, 1e-6) {
				t.Errorf("round trip %q lon = %v, want %v", text, got.Lon, tt.lon)
			}
		})
	}

	if _, err := Encode(60, 0, 0); err == nil {
		t.Error("Encode(60, 0) = nil error, want cap error")
	}
	if out, err := Encode(90, 0, 0); err != nil || !strings.HasPrefix(out, "Z 2000000") {
		t.Errorf("Encode(90, 0) = %q, %v", out, err)
	}
}
