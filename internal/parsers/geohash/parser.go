// Package geohash decodes base32 geohash cells. Geohashes share their
// alphabet with ordinary words and several grid formats, so the strategy
// is never classified directly: it only runs as a candidate and declines
// quietly on anything that does not validate.
package geohash

import (
	"strings"

	gh "github.com/mmcloughlin/geohash"

	"coordparse/coord"
)

const alphabet = "0123456789bcdefghjkmnpqrstuvwxyz"

type Strategy struct{}

func New() *Strategy { return &Strategy{} }

func (*Strategy) Format() coord.Format { return coord.FormatGeohash }

func (*Strategy) CanParse(text string) bool {
	if len(text) < 3 || len(text) > 12 {
		return false
	}
	digitsOnly := true
	for _, c := range strings.ToLower(text) {
		if !strings.ContainsRune(alphabet, c) {
			return false
		}
		if c < '0' || c > '9' {
			digitsOnly = false
		}
	}
	// A pure digit run is far more likely a number than a geohash.
	return !digitsOnly
}

func (s *Strategy) Parse(text string, _ coord.Order) (*coord.Result, error) {
	hash := strings.ToLower(strings.TrimSpace(text))
	if !s.CanParse(hash) {
		return nil, nil
	}
	if err := gh.Validate(hash); err != nil {
		return nil, nil
	}
	box := gh.BoundingBox(hash)
	lat, lon := box.Center()
	return &coord.Result{
		Lat:        lat,
		Lon:        lon,
		Bounds:     coord.Envelope(box.MinLng, box.MinLat, box.MaxLng, box.MaxLat),
		Format:     coord.FormatGeohash,
		SourceEPSG: 4326,
	}, nil
}

// Encode returns the geohash cell of the given length containing the
// point.
func Encode(lat, lon float64, chars uint) string {
	return gh.EncodeWithPrecision(lat, lon, chars)
}
