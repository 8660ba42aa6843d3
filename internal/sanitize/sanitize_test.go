package sanitize

import (
	"strings"
	"testing"

	"coordparse/coord"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain pair", "40.7128, -74.0060", "40.7128, -74.0060"},
		{"collapse spaces", "40.7128,     -74.0060", "40.7128, -74.0060"},
		{"tabs and newlines", "40.7128\t\n-74.0060", "40.7128 -74.0060"},
		{"trim", "  POINT(-74 40)  ", "POINT(-74 40)"},
		{"dms symbols", `40°42′46″N 74°00′22″W`, `40°42′46″N 74°00′22″W`},
		{"ewkt", "SRID=4326;POINT(-74.0060 40.7128)", "SRID=4326;POINT(-74.0060 40.7128)"},
		{"geojson", `{"type":"Point","coordinates":[-74.0060,40.7128]}`, `{"type":"Point","coordinates":[-74.0060,40.7128]}`},
		{"plus code", "87G8Q23F+GF", "87G8Q23F+GF"},
		{"crlf", "40.7\r\n-74.0", "40.7 -74.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Clean(tt.in)
			if err != nil {
				t.Fatalf("Clean(%q) error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("Clean(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCleanRejects(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"only whitespace", "   \t  "},
		{"null byte", "40.7\x00-74.0"},
		{"control char", "40.7\x0140.2"},
		{"emoji", "40.7128 \U0001F600"},
		{"too long", strings.Repeat("1", MaxLen+1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Clean(tt.in); err == nil {
				t.Fatalf("Clean(%q) succeeded, want InvalidInput", tt.in)
			} else if coord.KindOf(err) != coord.InvalidInput {
				t.Errorf("error kind = %v, want InvalidInput", coord.KindOf(err))
			}
		})
	}
}
