// Package decimal implements the last-resort numeric extractor: it pulls
// the first two numeric tokens out of otherwise unclassified text and
// resolves their order. It runs only after every format strategy has
// passed on the input.
package decimal

import (
	"math"
	"regexp"
	"strconv"

	"coordparse/coord"
)

// Numeric token: optional sign, leading-dot decimals, scientific notation.
var numberRe = regexp.MustCompile(`[+-]?(?:\d+\.\d*|\.\d+|\d+)(?:[eE][+-]?\d+)?`)

type Strategy struct{}

func New() *Strategy { return &Strategy{} }

func (*Strategy) Format() coord.Format { return coord.FormatDecimal }

func (*Strategy) CanParse(text string) bool {
	return len(numberRe.FindAllString(text, 2)) == 2
}

func (*Strategy) Parse(text string, pref coord.Order) (*coord.Result, error) {
	tokens := numberRe.FindAllString(text, 2)
	if len(tokens) < 2 {
		return nil, coord.ErrNoMatch("no coordinate pair in input")
	}

	a, err1 := strconv.ParseFloat(tokens[0], 64)
	b, err2 := strconv.ParseFloat(tokens[1], 64)
	if err1 != nil || err2 != nil {
		return nil, coord.ErrNoMatch("numeric tokens did not parse")
	}

	if looksProjected(a, b) {
		return nil, coord.ErrNoMatch("pair (%v, %v) has projected-coordinate magnitudes", a, b)
	}

	lat, lon, err := coord.ResolveOrder(a, b, pref)
	if err != nil {
		return nil, err
	}
	return &coord.Result{Lat: lat, Lon: lon, Format: coord.FormatDecimal, SourceEPSG: 4326}, nil
}

// looksProjected rejects pairs whose magnitudes cannot be angular
// coordinates. Any value beyond 360 covers both the "both huge" case and
// classic UTM easting/northing ranges in either order; smaller values
// that fit no interpretation surface as OutOfRange from the resolver
// instead.
func looksProjected(a, b float64) bool {
	return math.Abs(a) > 360 || math.Abs(b) > 360
}
