//go:build noh3

// Stub kept so the package compiles without the H3 library. The
// dispatcher checks Enabled and never registers this strategy, so
// Parse here is unreachable in practice.
package h3grid

import (
	"fmt"

	"coordparse/coord"
)

// Enabled reports whether H3 support is compiled in.
const Enabled = false

type Strategy struct{}

func New() *Strategy { return &Strategy{} }

func (*Strategy) Format() coord.Format { return coord.FormatH3 }

func (*Strategy) CanParse(string) bool { return false }

func (*Strategy) Parse(text string, _ coord.Order) (*coord.Result, error) {
	return nil, coord.ErrRejected(coord.FormatH3, "H3 support not compiled in")
}

// Encode always fails without the H3 library.
func Encode(lat, lon float64, res int) (string, error) {
	return "", fmt.Errorf("h3grid: H3 support not compiled in")
}
