package dms

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
		name string
		text string
		pref coord.Order
		lat  float64
		lon  float64
	}{
		{
			name: "symbols with suffix cardinals",
			text: `40°42'46"N 74°0'21.6"W`,
			lat:  40.712778,
			lon:  -74.006,
		},
		{
			name: "unicode minute second marks",
			text: "40°42′46″N 74°0′21.6″W",
			lat:  40.712778,
			lon:  -74.006,
		},
		{
			name: "comma separated halves",
			text: `40°42'46"N, 74°0'21.6"W`,
			lat:  40.712778,
			lon:  -74.006,
		},
		{
			name: "prefix cardinals",
			text: `N40°42'46" W74°0'21.6"`,
			lat:  40.712778,
			lon:  -74.006,
		},
		{
			name: "cardinals swap roles",
			text: `74°0'21.6"W 40°42'46"N`,
			lat:  40.712778,
			lon:  -74.006,
		},
		{
			name: "bare spaces with cardinals",
			text: "40 42 46N 74 0 21.6W",
			lat:  40.712778,
			lon:  -74.006,
		},
		{
			name: "letter marks",
			text: "40d 42m 46s N, 74d 0m 21.6s W",
			lat:  40.712778,
			lon:  -74.006,
		},
		{
			name: "colon triplets",
			text: "40:42:46N 74:0:21.6W",
			lat:  40.712778,
			lon:  -74.006,
		},
		{
			name: "decimal minutes",
			text: "40°42.767'N 74°0.36'W",
			lat:  40.712783,
			lon:  -74.006,
		},
		{
			name: "decimal degrees with cardinals",
			text: "40.7128N 74.0060W",
			lat:  40.7128,
			lon:  -74.006,
		},
		{
			name: "southern and eastern hemisphere",
			text: `33°51'54"S 151°12'34"E`,
			lat:  -33.865,
			lon:  151.209444,
		},
		{
			name: "signed degrees no cardinals lat first",
			text: `40°42'46" -74°0'21.6"`,
			pref: coord.OrderLatFirst,
			lat:  40.712778,
			lon:  -74.006,
		},
		{
			name: "no cardinals auto corrects order",
			text: "-40.5° 120.25°",
			pref: coord.OrderLatFirst,
			lat:  -40.5,
			lon:  120.25,
		},
		{
			name: "single cardinal fixes one axis",
			text: "40.7128N 74.0060",
			lat:  40.7128,
			lon:  74.006,
		},
	}
	s := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !s.CanParse(tt.text) {
				t.Fatalf("CanParse(%q) = false, want true", tt.text)
			}
			got, err := s.Parse(tt.text, tt.pref)
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", tt.text, err)
			}
			if got == nil {
				t.Fatalf("Parse(%q) declined", tt.text)
			}
			if !almostEqual(got.Lat, tt.lat, 1e-5) || !almostEqual(got.Lon, tt.lon, 1e-5) {
				t.Errorf("Parse(%q) = (%f, %f), want (%f, %f)", tt.text, got.Lat, got.Lon, tt.lat, tt.lon)
			}
			if got.Format != coord.FormatDMS {
				t.Errorf("Parse(%q) format = %s, want dms", tt.text, got.Format)
			}
		})
	}
}

func TestParseDeclines(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"utm magnitude", "33N 315428 5741324"},
		{"component over 360", `400°42'46"N 74°0'21.6"W`},
		{"minutes over 60", `40°72'46"N 74°0'21.6"W`},
		{"seconds over 60", `40°42'99"N 74°0'21.6"W`},
		{"both cardinals same axis", `40°42'46"N 74°0'21.6"S`},
		{"fractional degrees with minutes", `40.5°42'N 74°0'W`},
		{"stray letters in group", `40 deg x 42'N 74°W`},
		{"latitude beyond pole", `95°30'0"N 74°0'0"W`},
		{"three comma groups", "40, 42, 46"},
		{"lone number", "40°"},
	}
	s := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Parse(tt.text, coord.OrderLatFirst)
			if err != nil {
				t.Fatalf("Parse(%q) error = %v, want soft decline", tt.text, err)
			}
			if got != nil {
				t.Fatalf("Parse(%q) = (%f, %f), want decline", tt.text, got.Lat, got.Lon)
			}
		})
	}
}

func TestCanParse(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{`40°42'46"N 74°0'21.6"W`, true},
		{"40:42:46 74:0:21", true},
		{"40d 42m 46s N", true},
		{"40.7128 N", true},
		{"40.7128, -74.0060", false},
		{"IO91wm", false},
		{"ezs42", false},
		{"POINT(-74 40.7)", false},
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
