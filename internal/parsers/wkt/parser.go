// Package wkt decodes Well-Known Text geometry and its EWKT extension
// with an SRID= prefix. POINT with an optional Z/M/ZM qualifier is
// decoded directly, dropping the extra ordinates; other geometry types
// go through the orb codec and contribute their first point or
// centroid.
package wkt

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	orbwkt "github.com/paulmach/orb/encoding/wkt"

	"coordparse/coord"
	"coordparse/internal/geom"
)

var (
	ewktPrefixRe = regexp.MustCompile(`(?i)^SRID=(\d+)\s*;\s*`)
	keywordRe    = regexp.MustCompile(`(?i)^(POINT|LINESTRING|POLYGON|MULTIPOINT|MULTILINESTRING|MULTIPOLYGON|GEOMETRYCOLLECTION)\s*(ZM|Z|M)?\s*\(`)
	pointRe      = regexp.MustCompile(`(?i)^POINT\s*(ZM|Z|M)?\s*\(\s*([^()]+?)\s*\)$`)
	numRe        = regexp.MustCompile(`[+-]?(?:\d+\.\d*|\.\d+|\d+)(?:[eE][+-]?\d+)?`)
)

type Strategy struct{}

func New() *Strategy { return &Strategy{} }

func (*Strategy) Format() coord.Format { return coord.FormatWKT }

func (*Strategy) CanParse(text string) bool {
	if ewktPrefixRe.MatchString(text) {
		return true
	}
	return keywordRe.MatchString(text)
}

func (*Strategy) Parse(text string, _ coord.Order) (*coord.Result, error) {
	body := strings.TrimSpace(text)
	srid := 4326
	format := coord.FormatWKT

	if m := ewktPrefixRe.FindStringSubmatch(body); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return nil, coord.ErrRejected(coord.FormatEWKT, "SRID %q: %v", m[1], err)
		}
		srid = n
		body = body[len(m[0]):]
		format = coord.FormatEWKT
	}

	if !keywordRe.MatchString(body) {
		return nil, coord.ErrRejected(format, "not a geometry: %q", text)
	}
	if !balanced(body) {
		return nil, coord.ErrRejected(format, "unbalanced geometry text: %q", text)
	}

	if m := pointRe.FindStringSubmatch(body); m != nil {
		want := 2 + len(m[1]) // Z or M add one ordinate, ZM adds two
		nums := numRe.FindAllString(m[2], -1)
		if len(nums) != want {
			return nil, coord.ErrRejected(format, "POINT %s has %d ordinates, want %d", strings.ToUpper(m[1]), len(nums), want)
		}
		x, errX := strconv.ParseFloat(nums[0], 64)
		y, errY := strconv.ParseFloat(nums[1], 64)
		if errX != nil || errY != nil {
			return nil, coord.ErrRejected(format, "malformed POINT ordinates in %q", text)
		}
		return geom.FromGeometry(orb.Point{x, y}, srid, format)
	}

	g, err := orbwkt.Unmarshal(body)
	if err != nil {
		return nil, coord.ErrRejected(format, "geometry text: %v", err)
	}
	return geom.FromGeometry(g, srid, format)
}

// balanced verifies parentheses pair up before handing text to the
// geometry codec.
func balanced(s string) bool {
	depth, seen := 0, false
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
			seen = true
		case ')':
			depth--
			if depth < 0 {
				return false
			}
		}
	}
	return depth == 0 && seen
}
