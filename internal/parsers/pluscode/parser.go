// Package pluscode decodes Open Location Codes (Plus Codes). Only full
// codes resolve to a location; short codes such as 9G8F+6X need a
// reference location this engine does not have, so they are recognized
// and rejected rather than passed down the pipeline.
package pluscode

import (
	"fmt"
	"regexp"
	"strings"

	olc "github.com/google/open-location-code/go"

	"coordparse/coord"
)

var codeRe = regexp.MustCompile(`(?i)^[23456789CFGHJMPQRVWX0]{2,8}\+[23456789CFGHJMPQRVWX]{0,7}$`)

type Strategy struct{}

func New() *Strategy { return &Strategy{} }

func (*Strategy) Format() coord.Format { return coord.FormatPlusCodes }

func (*Strategy) CanParse(text string) bool {
	return codeRe.MatchString(text)
}

func (*Strategy) Parse(text string, _ coord.Order) (*coord.Result, error) {
	code := strings.ToUpper(strings.TrimSpace(text))
	if !codeRe.MatchString(code) {
		return nil, coord.ErrRejected(coord.FormatPlusCodes, "not a plus code: %q", text)
	}
	if strings.IndexByte(code, '+') < 8 {
		return nil, coord.ErrRejected(coord.FormatPlusCodes, "short plus code %q needs a reference location", code)
	}
	area, err := olc.Decode(code)
	if err != nil {
		return nil, coord.ErrRejected(coord.FormatPlusCodes, "decode %q: %v", code, err)
	}
	lat, lon := area.Center()
	return &coord.Result{
		Lat:        lat,
		Lon:        lon,
		Bounds:     coord.Envelope(area.LngLo, area.LatLo, area.LngHi, area.LatHi),
		Format:     coord.FormatPlusCodes,
		SourceEPSG: 4326,
	}, nil
}

// Encode returns the full code of the given length containing the
// point. Lengths below eight must be even, matching the code grammar.
func Encode(lat, lon float64, length int) (string, error) {
	if length <= 0 {
		length = 10
	}
	if length < 2 || length > 15 || (length < 8 && length%2 != 0) {
		return "", fmt.Errorf("pluscode: code length %d out of range", length)
	}
	if !coord.ValidLat(lat) || !coord.ValidLon(lon) {
		return "", fmt.Errorf("pluscode: coordinate (%f, %f) out of range", lat, lon)
	}
	return olc.Encode(lat, lon, length), nil
}
