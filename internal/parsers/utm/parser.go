// Package utm decodes UTM coordinates in three shapes: zone first
// ("33N 315428 5741324", optionally with a trailing elevation), unit
// suffixes first ("315428mE 5741324mN 33N") and the bare comma form
// ("315428, 5741324, 33N"). The letter is a hemisphere, N or S; grid
// band letters are not accepted. Elevation tokens are ignored.
package utm

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"coordparse/coord"
	"coordparse/internal/crs"
)

var (
	zoneFirstRe = regexp.MustCompile(`(?i)^(\d{1,2})\s*([NS])\s+(\d+(?:\.\d*)?)\s+(\d+(?:\.\d*)?)(?:\s+\d+(?:\.\d*)?\s*m?)?$`)
	unitFirstRe = regexp.MustCompile(`(?i)^(\d+(?:\.\d*)?)\s*m?\s*E\s*,?\s*(\d+(?:\.\d*)?)\s*m?\s*N\s*,?\s*(\d{1,2})\s*,?\s*([NS])(?:\s*,?\s*\d+(?:\.\d*)?\s*m?)?$`)
	commaRe     = regexp.MustCompile(`(?i)^(\d+(?:\.\d*)?)\s*,\s*(\d+(?:\.\d*)?)\s*,\s*(\d{1,2})\s*,?\s*([NS])$`)
)

type Strategy struct{}

func New() *Strategy { return &Strategy{} }

func (*Strategy) Format() coord.Format { return coord.FormatUTM }

func (*Strategy) CanParse(text string) bool {
	return zoneFirstRe.MatchString(text) || unitFirstRe.MatchString(text) || commaRe.MatchString(text)
}

func (*Strategy) Parse(text string, _ coord.Order) (*coord.Result, error) {
	zone, northern, easting, northing, ok := fields(strings.TrimSpace(text))
	if !ok {
		return nil, coord.ErrRejected(coord.FormatUTM, "not a UTM coordinate: %q", text)
	}
	if zone < 1 || zone > 60 {
		return nil, coord.ErrRejected(coord.FormatUTM, "zone %d out of range 1-60", zone)
	}
	if easting < 0 || easting > 1000000 {
		return nil, coord.ErrRejected(coord.FormatUTM, "easting %v out of range 0-1000000", easting)
	}
	if northing < 0 || northing > 10000000 {
		return nil, coord.ErrRejected(coord.FormatUTM, "northing %v out of range 0-10000000", northing)
	}

	lon, lat := crs.UTMToLonLat(zone, northern, easting, northing)
	if !coord.ValidLat(lat) || !coord.ValidLon(lon) {
		return nil, coord.ErrRejected(coord.FormatUTM, "projection of %q leaves geographic bounds", text)
	}
	return &coord.Result{
		Lat:        lat,
		Lon:        lon,
		Format:     coord.FormatUTM,
		SourceEPSG: crs.UTMEPSG(zone, northern),
	}, nil
}

func fields(text string) (zone int, northern bool, easting, northing float64, ok bool) {
	if m := zoneFirstRe.FindStringSubmatch(text); m != nil {
		return group(m[1], m[2], m[3], m[4])
	}
	if m := unitFirstRe.FindStringSubmatch(text); m != nil {
		return group(m[3], m[4], m[1], m[2])
	}
	if m := commaRe.FindStringSubmatch(text); m != nil {
		return group(m[3], m[4], m[1], m[2])
	}
	return 0, false, 0, 0, false
}

func group(zoneTok, hemiTok, eastTok, northTok string) (int, bool, float64, float64, bool) {
	zone, err := strconv.Atoi(zoneTok)
	if err != nil {
		return 0, false, 0, 0, false
	}
	easting, err := strconv.ParseFloat(eastTok, 64)
	if err != nil {
		return 0, false, 0, 0, false
	}
	northing, err := strconv.ParseFloat(northTok, 64)
	if err != nil {
		return 0, false, 0, 0, false
	}
	northern := hemiTok == "N" || hemiTok == "n"
	return zone, northern, easting, northing, true
}

// Encode formats the point as zone-first UTM with the given decimal
// precision on easting and northing. The UTM graticule covers latitudes
// of roughly 80S to 84N; beyond that the polar grids apply.
func Encode(lat, lon float64, precision int) (string, error) {
	if lat > 84.5 || lat < -80.5 {
		return "", fmt.Errorf("utm: latitude %f outside the UTM domain", lat)
	}
	if lon < -180 || lon > 360 {
		return "", fmt.Errorf("utm: longitude %f out of range", lon)
	}
	if lon > 180 {
		lon -= 360
	}
	if precision < 0 {
		precision = 0
	}

	zone, northern := crs.UTMZone(lat, lon)
	easting, northing := crs.LonLatToUTM(zone, northern, lon, lat)
	hemi := byte('N')
	if !northern {
		hemi = 'S'
	}
	return fmt.Sprintf("%d%c %.*f %.*f", zone, hemi, precision, easting, precision, northing), nil
}
