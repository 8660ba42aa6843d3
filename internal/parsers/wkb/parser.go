// Package wkb decodes hex-encoded Well-Known Binary geometry, including
// the PostGIS EWKB extension (SRID flag) and ISO dimension offsets.
// Points carrying Z or M ordinates are read from the header directly,
// dropping the extras; plain 2D geometry goes through the orb codec and
// contributes its first point or centroid.
package wkb

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/ewkb"

	"coordparse/coord"
	"coordparse/internal/geom"
)

// Geometry-type word flags used by EWKB.
const (
	flagZ    = 0x80000000
	flagM    = 0x40000000
	flagSRID = 0x20000000
)

const pointType = 1

// Hex dump of at least ten bytes, starting with an endian byte.
var hexRe = regexp.MustCompile(`^0[01][0-9A-Fa-f]{18,}$`)

type Strategy struct{}

func New() *Strategy { return &Strategy{} }

func (*Strategy) Format() coord.Format { return coord.FormatWKB }

func (*Strategy) CanParse(text string) bool {
	t := strings.ReplaceAll(text, " ", "")
	return len(t)%2 == 0 && hexRe.MatchString(t)
}

func (*Strategy) Parse(text string, _ coord.Order) (*coord.Result, error) {
	clean := strings.ReplaceAll(strings.TrimSpace(text), " ", "")
	data, err := hex.DecodeString(clean)
	if err != nil {
		return nil, coord.ErrRejected(coord.FormatWKB, "not a hex dump: %v", err)
	}

	h, err := scanHeader(data)
	if err != nil {
		return nil, coord.ErrRejected(coord.FormatWKB, "%v", err)
	}

	if h.hasZ || h.hasM {
		// orb is strictly 2D; take the leading X,Y of a Z/M point off the
		// wire directly and skip the extra ordinates.
		if h.baseType != pointType {
			return nil, coord.ErrRejected(coord.FormatWKB, "geometry type %d with Z/M ordinates is not supported", h.baseType)
		}
		if len(data) < h.offset+16 {
			return nil, coord.ErrRejected(coord.FormatWKB, "%d bytes is short for a %s point", len(data), dims(h))
		}
		x := math.Float64frombits(h.order.Uint64(data[h.offset:]))
		y := math.Float64frombits(h.order.Uint64(data[h.offset+8:]))
		return geom.FromGeometry(orb.Point{x, y}, h.srid, coord.FormatWKB)
	}

	g, srid, err := ewkb.Unmarshal(data)
	if err != nil {
		return nil, coord.ErrRejected(coord.FormatWKB, "binary geometry: %v", err)
	}
	return geom.FromGeometry(g, srid, coord.FormatWKB)
}

// header is the decoded WKB prefix: endianness, the geometry type with
// its dimension flags resolved, the optional SRID, and the byte offset
// of the first coordinate.
type header struct {
	order      binary.ByteOrder
	baseType   uint32
	srid       int
	hasZ, hasM bool
	offset     int
}

func scanHeader(data []byte) (header, error) {
	var h header
	if len(data) < 5 {
		return h, fmt.Errorf("truncated header: %d bytes", len(data))
	}

	switch data[0] {
	case 0:
		h.order = binary.BigEndian
	case 1:
		h.order = binary.LittleEndian
	default:
		return h, fmt.Errorf("byte-order flag %#02x is not 00 or 01", data[0])
	}

	raw := h.order.Uint32(data[1:5])
	h.hasZ = raw&flagZ != 0
	h.hasM = raw&flagM != 0
	hasSRID := raw&flagSRID != 0

	base := raw &^ (flagZ | flagM | flagSRID)
	// ISO WKB encodes dimensions as +1000/+2000/+3000 type offsets.
	switch {
	case base >= 3001 && base <= 3007:
		base, h.hasZ, h.hasM = base-3000, true, true
	case base >= 2001 && base <= 2007:
		base, h.hasM = base-2000, true
	case base >= 1001 && base <= 1007:
		base, h.hasZ = base-1000, true
	}
	if base < 1 || base > 7 {
		return h, fmt.Errorf("unknown geometry type word %#08x", raw)
	}
	h.baseType = base

	h.offset = 5
	if hasSRID {
		if len(data) < 9 {
			return h, fmt.Errorf("truncated header: %d bytes", len(data))
		}
		h.srid = int(h.order.Uint32(data[5:9]))
		h.offset = 9
	}
	return h, nil
}

func dims(h header) string {
	switch {
	case h.hasZ && h.hasM:
		return "ZM"
	case h.hasZ:
		return "Z"
	}
	return "M"
}
