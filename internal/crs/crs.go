// Package crs provides the coordinate reference system layer: UTM and
// EPSG transforms backed by wroge/wgs84, plus the UPS polar
// stereographic projection which that registry does not carry.
package crs

import (
	"fmt"

	"github.com/wroge/wgs84"
)

// EPSG codes implied by parsed formats.
const (
	EPSGWGS84    = 4326
	EPSGUPSNorth = 32661
	EPSGUPSSouth = 32761
)

// UTMToLonLat projects UTM easting/northing in the given zone back to
// geographic WGS84 coordinates.
func UTMToLonLat(zone int, northern bool, easting, northing float64) (lon, lat float64) {
	f := wgs84.Transform(wgs84.UTM(float64(zone), northern), wgs84.LonLat())
	lon, lat, _ = f(easting, northing, 0)
	return lon, lat
}

// LonLatToUTM projects geographic WGS84 coordinates into the given UTM
// zone.
func LonLatToUTM(zone int, northern bool, lon, lat float64) (easting, northing float64) {
	f := wgs84.Transform(wgs84.LonLat(), wgs84.UTM(float64(zone), northern))
	easting, northing, _ = f(lon, lat, 0)
	return easting, northing
}

// UTMZone picks the UTM zone and hemisphere for a geographic coordinate,
// including the Norway and Svalbard zone exceptions.
func UTMZone(lat, lon float64) (zone int, northern bool) {
	zone = int((lon+180)/6)%60 + 1

	// Western Norway extension of zone 32.
	if lat >= 56 && lat < 64 && lon >= 3 && lon < 12 {
		zone = 32
	}
	// Svalbard uses the odd zones only.
	if lat >= 72 && lat < 84 {
		switch {
		case lon >= 0 && lon < 9:
			zone = 31
		case lon >= 9 && lon < 21:
			zone = 33
		case lon >= 21 && lon < 33:
			zone = 35
		case lon >= 33 && lon < 42:
			zone = 37
		}
	}
	return zone, lat >= 0
}

// UTMEPSG returns the EPSG code of a UTM zone (326xx north, 327xx south).
func UTMEPSG(zone int, northern bool) int {
	if northern {
		return 32600 + zone
	}
	return 32700 + zone
}

// SupportedEPSG reports whether ToWGS84 can resolve the given code.
// The set is restricted to codes the wgs84 registry is known to carry:
// geographic WGS84/ETRS89, Web Mercator, WGS84 UTM, and ETRS89 UTM.
func SupportedEPSG(code int) bool {
	switch {
	case code == 4326 || code == 4258 || code == 3857:
		return true
	case code >= 32601 && code <= 32660: // WGS84 UTM north
		return true
	case code >= 32701 && code <= 32760: // WGS84 UTM south
		return true
	case code >= 25828 && code <= 25838: // ETRS89 UTM
		return true
	}
	return false
}

// GeographicEPSG reports whether the code denotes a geographic
// (angular lon/lat) system rather than a projected one.
func GeographicEPSG(code int) bool {
	return code == 4326 || code == 4258
}

// ToWGS84 transforms a coordinate pair from the given EPSG code into
// geographic WGS84 lon/lat. For geographic codes a/b are lon/lat; for
// projected codes they are easting/northing.
func ToWGS84(code int, a, b float64) (lon, lat float64, err error) {
	if code == EPSGWGS84 {
		return a, b, nil
	}
	if !SupportedEPSG(code) {
		return 0, 0, fmt.Errorf("unsupported SRID %d", code)
	}
	f := wgs84.Transform(wgs84.EPSG().Code(code), wgs84.LonLat())
	lon, lat, _ = f(a, b, 0)
	return lon, lat, nil
}
