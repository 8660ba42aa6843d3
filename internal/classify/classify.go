// Package classify implements the fast format classifier: near-O(1)
// structural checks that label inputs with unmistakable signatures.
// Decimal, DMS, and Geohash are never classified here; they share too
// many characters with other families to label without decoding.
package classify

import (
	"regexp"
	"strings"

	"coordparse/coord"
)

// Signatures with a fixed anchor or alphabet. Checked in strict
// precedence order; first hit wins.
var (
	// WKB hex dump: endian byte 00/01, then type word and doubles.
	wkbHexRe = regexp.MustCompile(`^0[01][0-9A-Fa-f]{18,}$`)

	// EWKT prefix.
	ewktRe = regexp.MustCompile(`(?i)^SRID=\d+;`)

	// WKT geometry keyword with optional dimension qualifier.
	wktRe = regexp.MustCompile(`(?i)^(POINT|LINESTRING|POLYGON|MULTIPOINT|MULTILINESTRING|MULTIPOLYGON|GEOMETRYCOLLECTION)\s*(ZM|Z|M)?\s*\(`)

	// H3 cell index: exactly 15 hex characters.
	h3Re = regexp.MustCompile(`^[0-9A-Fa-f]{15}$`)

	// Full Plus Code: 8 leading characters (0 is padding), a plus,
	// and an optional 2-7 character refinement.
	plusCodeRe = regexp.MustCompile(`(?i)^[23456789CFGHJMPQRVWX0]{8}\+[23456789CFGHJMPQRVWX]{0,7}$`)

	// Compact MGRS: zone, band, two square letters, digits. A bare
	// 100km square reference (no digits) is left to the candidate path.
	mgrsRe = regexp.MustCompile(`^\d{1,2}[C-HJ-NP-Xc-hj-np-x][A-HJ-NP-Za-hj-np-z][A-HJ-NP-Va-hj-np-v]\d{1,10}$`)

	// UTM in its three shapes: zone-first with spaces and an optional
	// elevation, easting-first with mE/mN unit suffixes, and the bare
	// comma form. The letter is a hemisphere, N or S, never a band.
	utmRe = regexp.MustCompile(`(?i)^(?:` +
		`\d{1,2}\s*[NS]\s+\d+(?:\.\d*)?\s+\d+(?:\.\d*)?(?:\s+\d+(?:\.\d*)?\s*m?)?` +
		`|\d+(?:\.\d*)?\s*m?\s*E\s*,?\s*\d+(?:\.\d*)?\s*m?\s*N\s*,?\s*\d{1,2}\s*,?\s*[NS](?:\s*,?\s*\d+(?:\.\d*)?\s*m?)?` +
		`|\d+(?:\.\d*)?\s*,\s*\d+(?:\.\d*)?\s*,\s*\d{1,2}\s*,?\s*[NS]` +
		`)$`)

	// GEOREF: four quad/unit letters then an even run of minute digits.
	georefRe = regexp.MustCompile(`^[A-HJ-NP-Za-hj-np-z]{4}\d{2,10}$`)

	// Maidenhead locator: field, square, optional subsquare and
	// extended square.
	maidenheadRe = regexp.MustCompile(`^[A-Ra-r]{2}\d{2}([A-Xa-x]{2}(\d{2})?)?$`)
)

// Classify labels text when its format signature is unambiguous.
// h3Enabled mirrors the build-time H3 capability: when false the H3
// check is skipped entirely. Classification never decodes.
func Classify(text string, h3Enabled bool) (coord.Format, bool) {
	if text == "" {
		return coord.FormatUnknown, false
	}

	if len(text)%2 == 0 && len(text) >= 20 && wkbHexRe.MatchString(text) {
		return coord.FormatWKB, true
	}
	if strings.HasPrefix(text, "{") &&
		(strings.Contains(text, `"type"`) || strings.Contains(text, `"coordinates"`)) {
		return coord.FormatGeoJSON, true
	}
	if ewktRe.MatchString(text) {
		return coord.FormatEWKT, true
	}
	if wktRe.MatchString(text) {
		return coord.FormatWKT, true
	}
	if h3Enabled && h3Re.MatchString(text) {
		return coord.FormatH3, true
	}
	if plusCodeRe.MatchString(text) {
		return coord.FormatPlusCodes, true
	}
	if mgrsRe.MatchString(text) {
		return coord.FormatMGRS, true
	}
	if utmRe.MatchString(text) {
		return coord.FormatUTM, true
	}
	if georefRe.MatchString(text) {
		return coord.FormatGEOREF, true
	}
	if maidenheadRe.MatchString(text) {
		return coord.FormatMaidenhead, true
	}

	return coord.FormatUnknown, false
}
