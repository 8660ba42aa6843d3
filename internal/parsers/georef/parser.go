// Package georef decodes World Geographic Reference System references:
// two 15° quadrangle letters, two 1° cell letters, then an even run of
// digits split between easting and northing minutes. The first two
// digits of each half are whole minutes, the rest a decimal fraction.
package georef

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"coordparse/coord"
)

const (
	lonQuads = "ABCDEFGHJKLMNPQRSTUVWXYZ"
	latQuads = "ABCDEFGHJKLM"
	subCells = "ABCDEFGHJKLMNPQ"
)

var georefRe = regexp.MustCompile(`^[A-HJ-NP-Za-hj-np-z]{4}\d{2,10}$`)

type Strategy struct{}

func New() *Strategy { return &Strategy{} }

func (*Strategy) Format() coord.Format { return coord.FormatGEOREF }

func (*Strategy) CanParse(text string) bool {
	return georefRe.MatchString(text)
}

func (*Strategy) Parse(text string, _ coord.Order) (*coord.Result, error) {
	ref := strings.ToUpper(strings.TrimSpace(text))
	if !georefRe.MatchString(ref) {
		return nil, coord.ErrRejected(coord.FormatGEOREF, "not a georef reference: %q", text)
	}
	digits := ref[4:]
	if len(digits)%2 != 0 {
		return nil, coord.ErrRejected(coord.FormatGEOREF, "odd digit count %d", len(digits))
	}

	lonQ := strings.IndexByte(lonQuads, ref[0])
	latQ := strings.IndexByte(latQuads, ref[1])
	lonS := strings.IndexByte(subCells, ref[2])
	latS := strings.IndexByte(subCells, ref[3])
	if lonQ < 0 || latQ < 0 || lonS < 0 || latS < 0 {
		return nil, coord.ErrRejected(coord.FormatGEOREF, "letter outside georef alphabet in %q", ref)
	}

	half := len(digits) / 2
	lonMin, err := minutes(digits[:half])
	if err != nil {
		return nil, coord.ErrRejected(coord.FormatGEOREF, "easting %v", err)
	}
	latMin, err := minutes(digits[half:])
	if err != nil {
		return nil, coord.ErrRejected(coord.FormatGEOREF, "northing %v", err)
	}

	// Cell size implied by the digit count, in degrees.
	size := math.Pow(10, float64(2-half)) / 60
	lonBase := -180 + float64(lonQ)*15 + float64(lonS) + lonMin/60
	latBase := -90 + float64(latQ)*15 + float64(latS) + latMin/60

	return &coord.Result{
		Lat:        latBase + size/2,
		Lon:        lonBase + size/2,
		Bounds:     coord.Envelope(lonBase, latBase, lonBase+size, latBase+size),
		Format:     coord.FormatGEOREF,
		SourceEPSG: 4326,
	}, nil
}

// minutes scales a digit half so its first two digits are whole
// minutes and the remainder a decimal fraction.
func minutes(half string) (float64, error) {
	v, err := strconv.Atoi(half)
	if err != nil {
		return 0, err
	}
	m := float64(v) * math.Pow(10, float64(2-len(half)))
	if m >= 60 {
		return 0, fmt.Errorf("minutes %s out of range", half)
	}
	return m, nil
}

// Encode returns the reference of the point with the given number of
// digits per axis (1..5).
func Encode(lat, lon float64, digits int) (string, error) {
	if digits < 1 || digits > 5 {
		return "", fmt.Errorf("georef: digit count %d out of range", digits)
	}
	if !coord.ValidLat(lat) || !coord.ValidLon(lon) {
		return "", fmt.Errorf("georef: coordinate (%f, %f) out of range", lat, lon)
	}

	x, y := lon+180, lat+90
	if x >= 360 {
		x = math.Nextafter(360, 0)
	}
	if y >= 180 {
		y = math.Nextafter(180, 0)
	}

	qx, qy := int(x/15), int(y/15)
	x, y = x-float64(qx)*15, y-float64(qy)*15
	sx, sy := int(x), int(y)

	scale := math.Pow(10, float64(digits-2))
	ex := int((x - float64(sx)) * 60 * scale)
	ny := int((y - float64(sy)) * 60 * scale)

	return fmt.Sprintf("%c%c%c%c%0*d%0*d",
		lonQuads[qx], latQuads[qy], subCells[sx], subCells[sy],
		digits, ex, digits, ny), nil
}
