// Package mgrs decodes Military Grid Reference System references such
// as 18TWL8540011518: UTM zone, latitude band, 100km square letters,
// then an even run of easting/northing digits. Squares are resolved
// with the standard letter algebra (column sets rotating by zone modulo
// three, row letters with a five-step offset in even zones, repeating
// every 2,000km) and the band letter picks the unique repeat that lands
// inside its latitude range. Polar references without a zone number are
// not handled here.
package mgrs

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"coordparse/coord"
	"coordparse/internal/crs"
)

const (
	bands   = "CDEFGHJKLMNPQRSTUVWX"
	rowRing = "ABCDEFGHJKLMNPQRSTUV"
	colSets = "AJS"
	colRing = "ABCDEFGHJKLMNPQRSTUVWXYZ"
	squareM = 100000.0
	periodM = 2000000.0
)

var mgrsRe = regexp.MustCompile(`^(\d{1,2})\s*([C-HJ-NP-Xc-hj-np-x])\s*([A-HJ-NP-Za-hj-np-z])([A-HJ-NP-Va-hj-np-v])\s*(\d{1,10})$`)

type Strategy struct{}

func New() *Strategy { return &Strategy{} }

func (*Strategy) Format() coord.Format { return coord.FormatMGRS }

func (*Strategy) CanParse(text string) bool {
	return mgrsRe.MatchString(text)
}

func (*Strategy) Parse(text string, _ coord.Order) (*coord.Result, error) {
	m := mgrsRe.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(text)))
	if m == nil {
		return nil, coord.ErrRejected(coord.FormatMGRS, "not an MGRS reference: %q", text)
	}

	zone, _ := strconv.Atoi(m[1])
	if zone < 1 || zone > 60 {
		return nil, coord.ErrRejected(coord.FormatMGRS, "zone %d out of range 1-60", zone)
	}
	band := strings.IndexByte(bands, m[2][0])
	if band < 0 {
		return nil, coord.ErrRejected(coord.FormatMGRS, "band letter %q invalid", m[2])
	}
	digits := m[5]
	if len(digits)%2 != 0 {
		return nil, coord.ErrRejected(coord.FormatMGRS, "odd grid digit count %d", len(digits))
	}

	e100k, err := columnEasting(zone, m[3][0])
	if err != nil {
		return nil, coord.ErrRejected(coord.FormatMGRS, "%v", err)
	}
	n100k, err := rowNorthing(zone, m[4][0])
	if err != nil {
		return nil, coord.ErrRejected(coord.FormatMGRS, "%v", err)
	}

	// Split digits and scale to meters; the reference names the cell's
	// south-west corner.
	p := len(digits) / 2
	cell := math.Pow(10, float64(5-p))
	de, _ := strconv.Atoi(digits[:p])
	dn, _ := strconv.Atoi(digits[p:])
	easting := e100k + float64(de)*cell
	swN := n100k + float64(dn)*cell

	// The row ring repeats every 2,000km; the band letter selects the
	// unique repeat whose latitude falls in its range.
	northern := band >= strings.IndexByte(bands, 'N')
	minLat := float64(band*8 - 80)
	maxLat := minLat + 8
	if m[2][0] == 'X' {
		maxLat = 84
	}
	for k := 0; k <= 4; k++ {
		northing := swN + float64(k)*periodM
		cLon, cLat := crs.UTMToLonLat(zone, northern, easting+cell/2, northing+cell/2)
		if cLat < minLat-0.5 || cLat > maxLat+0.5 {
			continue
		}
		if !coord.ValidLat(cLat) || !coord.ValidLon(cLon) {
			continue
		}
		swLon, swLat := crs.UTMToLonLat(zone, northern, easting, northing)
		neLon, neLat := crs.UTMToLonLat(zone, northern, easting+cell, northing+cell)
		return &coord.Result{
			Lat: cLat,
			Lon: cLon,
			Bounds: coord.Envelope(
				math.Min(swLon, neLon), math.Min(swLat, neLat),
				math.Max(swLon, neLon), math.Max(swLat, neLat)),
			Format:     coord.FormatMGRS,
			SourceEPSG: crs.UTMEPSG(zone, northern),
		}, nil
	}
	return nil, coord.ErrRejected(coord.FormatMGRS, "square %s%s not in band %s of zone %d", m[3], m[4], m[2], zone)
}

// columnEasting resolves a 100km column letter against the zone's
// letter set (zones rotate through A-H, J-R, S-Z).
func columnEasting(zone int, col byte) (float64, error) {
	set := (zone - 1) % 3
	start := strings.IndexByte(colRing, colSets[set])
	idx := strings.IndexByte(colRing, col)
	if idx < start || idx >= start+8 {
		return 0, fmt.Errorf("column letter %c not in zone %d set", col, zone)
	}
	return float64(idx-start+1) * squareM, nil
}

// rowNorthing resolves a 100km row letter to its northing within one
// 2,000km period. Even zones shift the ring by five letters.
func rowNorthing(zone int, row byte) (float64, error) {
	idx := strings.IndexByte(rowRing, row)
	if idx < 0 {
		return 0, fmt.Errorf("row letter %c invalid", row)
	}
	if zone%2 == 0 {
		idx = (idx - 5 + 20) % 20
	}
	return float64(idx) * squareM, nil
}

// Encode formats the point as an MGRS reference with the given digit
// precision per axis (1..5, five digits meaning one meter squares).
func Encode(lat, lon float64, precision int) (string, error) {
	if precision < 1 || precision > 5 {
		return "", fmt.Errorf("mgrs: precision %d out of range 1-5", precision)
	}
	if lat < -80 || lat > 84 {
		return "", fmt.Errorf("mgrs: latitude %f outside the MGRS graticule", lat)
	}
	if !coord.ValidLon(lon) {
		return "", fmt.Errorf("mgrs: longitude %f out of range", lon)
	}

	zone, northern := crs.UTMZone(lat, lon)
	easting, northing := crs.LonLatToUTM(zone, northern, lon, lat)

	band := int((lat + 80) / 8)
	if band > 19 {
		band = 19
	}

	set := (zone - 1) % 3
	start := strings.IndexByte(colRing, colSets[set])
	colIdx := int(easting/squareM) - 1
	if colIdx < 0 || colIdx > 7 {
		return "", fmt.Errorf("mgrs: easting %f outside the zone's square columns", easting)
	}
	rowIdx := int(northing/squareM) % 20
	if zone%2 == 0 {
		rowIdx = (rowIdx + 5) % 20
	}

	cell := math.Pow(10, float64(5-precision))
	de := int(math.Mod(easting, squareM) / cell)
	dn := int(math.Mod(northing, squareM) / cell)

	return fmt.Sprintf("%d%c%c%c%0*d%0*d",
		zone, bands[band], colRing[start+colIdx], rowRing[rowIdx],
		precision, de, precision, dn), nil
}
