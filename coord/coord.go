// Package coord defines the shared vocabulary of the coordinate parsing
// engine: the normalized parse result, format labels, coordinate order
// preference, the strategy contract, and the error taxonomy.
package coord

import (
	"fmt"
	"strings"

	"github.com/paulmach/orb"
)

// Format identifies one coordinate input family.
type Format uint8

const (
	FormatUnknown Format = iota
	FormatDecimal
	FormatDMS
	FormatWKT
	FormatEWKT
	FormatWKB
	FormatGeoJSON
	FormatMGRS
	FormatUTM
	FormatUPS
	FormatPlusCodes
	FormatGeohash
	FormatMaidenhead
	FormatGEOREF
	FormatH3
)

var formatNames = [...]string{
	"unknown",
	"decimal",
	"dms",
	"wkt",
	"ewkt",
	"wkb",
	"geojson",
	"mgrs",
	"utm",
	"ups",
	"pluscodes",
	"geohash",
	"maidenhead",
	"georef",
	"h3",
}

func (f Format) String() string {
	if int(f) < len(formatNames) {
		return formatNames[f]
	}
	return fmt.Sprintf("format(%d)", uint8(f))
}

// MarshalText implements encoding.TextMarshaler so formats serialize as
// their lowercase labels in JSON and text output.
func (f Format) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Format) UnmarshalText(b []byte) error {
	v, ok := ParseFormatLabel(string(b))
	if !ok {
		return fmt.Errorf("unknown format label %q", string(b))
	}
	*f = v
	return nil
}

// ParseFormatLabel maps a label back to its Format. Matching is
// case-insensitive; "unknown" and unrecognized labels return false.
func ParseFormatLabel(s string) (Format, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range formatNames {
		if i == 0 {
			continue
		}
		if s == name {
			return Format(i), true
		}
	}
	return FormatUnknown, false
}

// Order is the caller's preferred interpretation of an ambiguous numeric
// pair. It is pure per-call input and is never stored by the core.
type Order uint8

const (
	// OrderLatFirst reads an ambiguous pair as latitude, longitude.
	OrderLatFirst Order = iota
	// OrderLonFirst reads an ambiguous pair as longitude, latitude.
	OrderLonFirst
)

func (o Order) String() string {
	if o == OrderLonFirst {
		return "lon-first"
	}
	return "lat-first"
}

// ParseOrder maps common spellings of the two orders. Empty input means
// OrderLatFirst.
func ParseOrder(s string) (Order, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "lat", "latlon", "lat-first", "latfirst", "lat,lon", "yx":
		return OrderLatFirst, nil
	case "lon", "lonlat", "lon-first", "lonfirst", "lon,lat", "xy":
		return OrderLonFirst, nil
	}
	return OrderLatFirst, fmt.Errorf("unknown coordinate order %q", s)
}

// Result is one normalized WGS84 coordinate. Bounds carries the precision
// envelope for cell/grid formats and geometry extents; it is nil when the
// input encodes an exact point. SourceEPSG records the CRS the input was
// expressed in before normalization (4326 unless the format carried or
// implied another).
type Result struct {
	Lat        float64    `json:"lat"`
	Lon        float64    `json:"lon"`
	Bounds     *orb.Bound `json:"-"`
	Format     Format     `json:"format"`
	SourceEPSG int        `json:"source_epsg"`
}

// Envelope builds a precision envelope from west/south/east/north edges.
func Envelope(minLon, minLat, maxLon, maxLat float64) *orb.Bound {
	return &orb.Bound{
		Min: orb.Point{minLon, minLat},
		Max: orb.Point{maxLon, maxLat},
	}
}

// Strategy is one format decoder. CanParse is a cheap structural check
// with no decoding; Parse performs the full decode. Parse returns
// (nil, nil) when the text is not this strategy's format ("soft" miss,
// the pipeline continues) and a *ParseError when the text matched the
// format's signature but failed its decode ("strict" failure, the
// pipeline stops). Strategies are stateless and safe for concurrent use.
type Strategy interface {
	Format() Format
	CanParse(text string) bool
	Parse(text string, pref Order) (*Result, error)
}
