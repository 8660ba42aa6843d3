// Package maidenhead decodes Maidenhead grid locators (IO91wm) of 2, 4,
// 6 or 8 characters. Pair sizes follow the grid definition: 20°x10°
// fields, 2°x1° squares, 5'x2.5' subsquares and a final digit pair at a
// tenth of that. The reported point is the cell centre.
package maidenhead

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"coordparse/coord"
)

var locatorRe = regexp.MustCompile(`^[A-Ra-r]{2}\d{2}([A-Xa-x]{2}(\d{2})?)?$`)

// Cell sizes in degrees of longitude per pair; latitude is half of each.
var lonSizes = [4]float64{20, 2, 2.0 / 24, 2.0 / 240}

type Strategy struct{}

func New() *Strategy { return &Strategy{} }

func (*Strategy) Format() coord.Format { return coord.FormatMaidenhead }

func (*Strategy) CanParse(text string) bool {
	return locatorRe.MatchString(text)
}

func (*Strategy) Parse(text string, _ coord.Order) (*coord.Result, error) {
	loc := strings.ToUpper(strings.TrimSpace(text))
	if !locatorRe.MatchString(loc) {
		return nil, coord.ErrRejected(coord.FormatMaidenhead, "not a grid locator: %q", text)
	}

	lon, lat := -180.0, -90.0
	pairs := len(loc) / 2
	for i := 0; i < pairs; i++ {
		a, b := loc[2*i], loc[2*i+1]
		var stepsA, stepsB float64
		if i%2 == 0 {
			stepsA, stepsB = float64(a-'A'), float64(b-'A')
		} else {
			stepsA, stepsB = float64(a-'0'), float64(b-'0')
		}
		lon += stepsA * lonSizes[i]
		lat += stepsB * lonSizes[i] / 2
	}

	// Cell extent of the last pair, then centre.
	cellLon := lonSizes[pairs-1]
	cellLat := cellLon / 2
	res := &coord.Result{
		Lat:        lat + cellLat/2,
		Lon:        lon + cellLon/2,
		Bounds:     coord.Envelope(lon, lat, lon+cellLon, lat+cellLat),
		Format:     coord.FormatMaidenhead,
		SourceEPSG: 4326,
	}
	return res, nil
}

// Encode returns the locator of the given pair count (1..4) containing
// the point.
func Encode(lat, lon float64, pairs int) (string, error) {
	if pairs < 1 || pairs > 4 {
		return "", fmt.Errorf("maidenhead: pair count %d out of range", pairs)
	}
	if !coord.ValidLat(lat) || !coord.ValidLon(lon) {
		return "", fmt.Errorf("maidenhead: coordinate (%f, %f) out of range", lat, lon)
	}

	x, y := lon+180, lat+90
	// The north pole and the antimeridian belong to the last cell.
	if x >= 360 {
		x = math.Nextafter(360, 0)
	}
	if y >= 180 {
		y = math.Nextafter(180, 0)
	}

	var sb strings.Builder
	for i := 0; i < pairs; i++ {
		sizeLon := lonSizes[i]
		sizeLat := sizeLon / 2
		ix, iy := int(x/sizeLon), int(y/sizeLat)
		if i%2 == 0 {
			sb.WriteByte('A' + byte(ix))
			sb.WriteByte('A' + byte(iy))
		} else {
			sb.WriteByte('0' + byte(ix))
			sb.WriteByte('0' + byte(iy))
		}
		x -= float64(ix) * sizeLon
		y -= float64(iy) * sizeLat
	}
	out := sb.String()
	if pairs >= 3 {
		// Conventional casing: subsquare letters in lower case.
		out = out[:4] + strings.ToLower(out[4:])
	}
	return out, nil
}
