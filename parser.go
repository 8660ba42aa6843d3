// Package coordparse turns free-form geographic coordinate text into
// normalized WGS84 positions. Fourteen input families are recognized:
// decimal degrees, DMS, WKT, EWKT, WKB hex, GeoJSON, MGRS, UTM, UPS,
// Plus Codes, Geohash, Maidenhead locators, GEOREF and H3 cell indexes.
//
// A Parser is built once with New and shared; it holds only immutable
// tables and is safe for concurrent use. Each call runs one linear
// pipeline: sanitize, classify, dispatch to a single decoder on a
// classifier hit or walk the candidate strategies on a miss, then as a
// last resort extract a bare numeric pair.
package coordparse

import (
	"coordparse/coord"
	"coordparse/internal/classify"
	"coordparse/internal/parsers/decimal"
	"coordparse/internal/parsers/dms"
	"coordparse/internal/parsers/geohash"
	"coordparse/internal/parsers/geojsonpt"
	"coordparse/internal/parsers/georef"
	"coordparse/internal/parsers/h3grid"
	"coordparse/internal/parsers/maidenhead"
	"coordparse/internal/parsers/mgrs"
	"coordparse/internal/parsers/pluscode"
	"coordparse/internal/parsers/ups"
	"coordparse/internal/parsers/utm"
	"coordparse/internal/parsers/wkb"
	"coordparse/internal/parsers/wkt"
	"coordparse/internal/sanitize"
)

// maxDecodeAttempts bounds the candidate path: ambiguous input gets at
// most this many full decodes before the numeric fallback runs.
const maxDecodeAttempts = 2

// Parser dispatches coordinate text to format strategies. Immutable
// after New; one instance serves any number of goroutines.
type Parser struct {
	h3         bool
	table      [coord.FormatH3 + 1]coord.Strategy
	candidates []coord.Strategy
	fallback   *decimal.Strategy
	formats    []coord.Format
}

// New builds a Parser with every compiled-in format strategy. One wkt
// strategy serves both the WKT and EWKT labels; the H3 entry is present
// only when H3 support is built in.
func New() *Parser {
	p := &Parser{
		h3:       h3grid.Enabled,
		fallback: decimal.New(),
	}

	wktStrategy := wkt.New()
	p.table[coord.FormatWKB] = wkb.New()
	p.table[coord.FormatGeoJSON] = geojsonpt.New()
	p.table[coord.FormatWKT] = wktStrategy
	p.table[coord.FormatEWKT] = wktStrategy
	p.table[coord.FormatPlusCodes] = pluscode.New()
	p.table[coord.FormatMGRS] = mgrs.New()
	p.table[coord.FormatUTM] = utm.New()
	p.table[coord.FormatUPS] = ups.New()
	p.table[coord.FormatGEOREF] = georef.New()
	p.table[coord.FormatMaidenhead] = maidenhead.New()
	p.table[coord.FormatGeohash] = geohash.New()
	p.table[coord.FormatDMS] = dms.New()
	if p.h3 {
		p.table[coord.FormatH3] = h3grid.New()
	}

	// Candidate walk order, most specific signature first. EWKT shares
	// the WKT entry; Decimal is the fallback, never a candidate.
	for _, f := range []coord.Format{
		coord.FormatWKB, coord.FormatGeoJSON, coord.FormatWKT,
		coord.FormatH3, coord.FormatPlusCodes, coord.FormatMGRS,
		coord.FormatUTM, coord.FormatUPS, coord.FormatGEOREF,
		coord.FormatMaidenhead, coord.FormatGeohash, coord.FormatDMS,
	} {
		if s := p.table[f]; s != nil {
			p.candidates = append(p.candidates, s)
		}
	}

	p.formats = []coord.Format{
		coord.FormatWKB, coord.FormatGeoJSON, coord.FormatWKT, coord.FormatEWKT,
	}
	if p.h3 {
		p.formats = append(p.formats, coord.FormatH3)
	}
	p.formats = append(p.formats,
		coord.FormatPlusCodes, coord.FormatMGRS, coord.FormatUTM,
		coord.FormatUPS, coord.FormatGEOREF, coord.FormatMaidenhead,
		coord.FormatGeohash, coord.FormatDMS, coord.FormatDecimal,
	)

	return p
}

// Parse normalizes text to a WGS84 Result. A classifier hit dispatches
// straight to that format's decoder and its verdict is final, success
// or failure. On a miss the candidate strategies run in priority order
// with at most two full decode attempts; strict decoders abort the
// pipeline when their format is malformed, soft ones decline quietly.
// pref resolves the lat/lon order of ambiguous numeric pairs. Errors
// are always *coord.ParseError values.
func (p *Parser) Parse(text string, pref coord.Order) (*coord.Result, error) {
	clean, err := sanitize.Clean(text)
	if err != nil {
		return nil, err
	}

	if f, ok := classify.Classify(clean, p.h3); ok {
		return p.table[f].Parse(clean, pref)
	}

	attempts := 0
	for _, s := range p.candidates {
		if attempts == maxDecodeAttempts {
			break
		}
		if !s.CanParse(clean) {
			continue
		}
		attempts++
		res, err := s.Parse(clean, pref)
		if err != nil {
			return nil, err
		}
		if res != nil {
			return res, nil
		}
	}

	return p.fallback.Parse(clean, pref)
}

// Classify reports the fast classifier's verdict without decoding.
// Input the sanitizer rejects returns (FormatUnknown, false), as does
// anything whose format cannot be named from structure alone.
func (p *Parser) Classify(text string) (coord.Format, bool) {
	clean, err := sanitize.Clean(text)
	if err != nil {
		return coord.FormatUnknown, false
	}
	return classify.Classify(clean, p.h3)
}

// Formats returns the enabled input formats in dispatch priority order,
// ending with the Decimal fallback.
func (p *Parser) Formats() []coord.Format {
	out := make([]coord.Format, len(p.formats))
	copy(out, p.formats)
	return out
}
