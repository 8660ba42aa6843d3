// Package ups decodes Universal Polar Stereographic coordinates given
// as a zone letter and easting/northing meters: A and B are the south
// polar zones, Y and Z the north. The grid is only defined over the
// polar caps, so decoded points outside them are rejected rather than
// returned.
package ups

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"coordparse/coord"
	"coordparse/internal/crs"
)

var upsRe = regexp.MustCompile(`(?i)^([ABYZ])\s+(\d+(?:\.\d*)?)[,\s]+(\d+(?:\.\d*)?)$`)

// Grid extent and cap latitudes, including the half-degree overlap the
// polar grids share with UTM.
const (
	gridMax  = 4000000.0
	northCap = 83.5
	southCap = -79.5
)

type Strategy struct{}

func New() *Strategy { return &Strategy{} }

func (*Strategy) Format() coord.Format { return coord.FormatUPS }

func (*Strategy) CanParse(text string) bool {
	return upsRe.MatchString(text)
}

func (*Strategy) Parse(text string, _ coord.Order) (*coord.Result, error) {
	m := upsRe.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return nil, coord.ErrRejected(coord.FormatUPS, "not a UPS coordinate: %q", text)
	}

	zone := strings.ToUpper(m[1])[0]
	northern := zone == 'Y' || zone == 'Z'
	easting, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return nil, coord.ErrRejected(coord.FormatUPS, "easting %q: %v", m[2], err)
	}
	northing, err := strconv.ParseFloat(m[3], 64)
	if err != nil {
		return nil, coord.ErrRejected(coord.FormatUPS, "northing %q: %v", m[3], err)
	}
	if easting < 0 || easting > gridMax || northing < 0 || northing > gridMax {
		return nil, coord.ErrRejected(coord.FormatUPS, "grid values outside 0-%d m", int(gridMax))
	}

	lon, lat := crs.UPSToLonLat(northern, easting, northing)
	if northern && lat < northCap {
		return nil, coord.ErrRejected(coord.FormatUPS, "point %.2f south of the north polar cap", lat)
	}
	if !northern && lat > southCap {
		return nil, coord.ErrRejected(coord.FormatUPS, "point %.2f north of the south polar cap", lat)
	}

	epsg := crs.EPSGUPSSouth
	if northern {
		epsg = crs.EPSGUPSNorth
	}
	return &coord.Result{Lat: lat, Lon: lon, Format: coord.FormatUPS, SourceEPSG: epsg}, nil
}

// Encode formats a polar-cap point as a UPS coordinate. A and Y cover
// the western halves, B and Z the eastern.
func Encode(lat, lon float64, precision int) (string, error) {
	if lat < northCap && lat > southCap {
		return "", fmt.Errorf("ups: latitude %f outside the polar caps", lat)
	}
	if !coord.ValidLon(lon) {
		return "", fmt.Errorf("ups: longitude %f out of range", lon)
	}
	if precision < 0 {
		precision = 0
	}

	northern, easting, northing := crs.LonLatToUPS(lat, lon)
	var zone byte
	switch {
	case northern && lon < 0:
		zone = 'Y'
	case northern:
		zone = 'Z'
	case lon < 0:
		zone = 'A'
	default:
		zone = 'B'
	}
	return fmt.Sprintf("%c %.*f %.*f", zone, precision, easting, precision, northing), nil
}
