package geohash

import (
	"math"
	"testing"

	"coordparse/coord"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestParse(t *testing.T) {
	tests := []struct {
		text string
		lat  float64
		lon  float64
		tol  float64
	}{
		{"ezs42", 42.605, -5.603, 2e-2},
		{"ezs", 42.890625, -4.921875, 1e-6},
		{"u4pruydqqvj", 57.649111, 10.407440, 1e-5},
		{"EZS42", 42.605, -5.603, 2e-2},
		{"gbsuv", 48.669, -4.329, 2e-2},
	}
	s := New()
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, err := s.Parse(tt.text, coord.OrderLatFirst)
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", tt.text, err)
			}
			if got == nil {
				t.Fatalf("Parse(%q) declined", tt.text)
			}
			if !almostEqual(got.Lat, tt.lat, tt.tol) || !almostEqual(got.Lon, tt.lon, tt.tol) {
				t.Errorf("Parse(%q) = (%f, %f), want (%f, %f)", tt.text, got.Lat, got.Lon, tt.lat, tt.lon)
			}
			if got.Bounds == nil {
				t.Fatalf("Parse(%q) bounds = nil, want cell extent", tt.text)
			}
			if got.Lat < got.Bounds.Min[1] || got.Lat > got.Bounds.Max[1] ||
				got.Lon < got.Bounds.Min[0] || got.Lon > got.Bounds.Max[0] {
				t.Errorf("Parse(%q) center outside bounds", tt.text)
			}
		})
	}
}

func TestParseDeclines(t *testing.T) {
	s := New()
	for _, text := range []string{"ab12cd", "40.7128", "57421", "ez", "u4pruydqqvjabcd"} {
		t.Run(text, func(t *testing.T) {
			got, err := s.Parse(text, coord.OrderLatFirst)
			if err != nil {
				t.Fatalf("Parse(%q) error = %v, want soft decline", text, err)
			}
			if got != nil {
				t.Fatalf("Parse(%q) = (%f, %f), want decline", text, got.Lat, got.Lon)
			}
		})
	}
}

func TestCanParse(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"ezs42", true},
		{"gbsuv7ztq", true},
		{"u4pruydqqvj", true},
		{"57421", false},
		{"ezs4a", false},
		{"ez", false},
		{"drt2zm8h1394mmmm", false},
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

func TestEncode(t *testing.T) {
	hash := Encode(57.649111, 10.407440, 11)
	if hash != "u4pruydqqvj" {
		t.Errorf("Encode = %q, want u4pruydqqvj", hash)
	}
}
