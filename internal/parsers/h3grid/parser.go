//go:build !noh3

// Package h3grid decodes H3 cell indexes: 15 hexadecimal characters
// naming a hexagonal cell in Uber's global grid. The result is the
// cell center with the cell boundary as the envelope. The index space
// overlaps 15-digit numeric strings, so validation happens against the
// H3 bit layout, not just the alphabet.
package h3grid

import (
	"fmt"
	"regexp"
	"strings"

	h3 "github.com/uber/h3-go/v4"

	"coordparse/coord"
)

// Enabled reports whether H3 support is compiled in.
const Enabled = true

var cellRe = regexp.MustCompile(`^[0-9A-Fa-f]{15}$`)

type Strategy struct{}

func New() *Strategy { return &Strategy{} }

func (*Strategy) Format() coord.Format { return coord.FormatH3 }

func (*Strategy) CanParse(text string) bool {
	return cellRe.MatchString(text)
}

func (*Strategy) Parse(text string, _ coord.Order) (*coord.Result, error) {
	cell := h3.Cell(h3.IndexFromString(strings.TrimSpace(text)))
	if !cell.IsValid() {
		return nil, coord.ErrRejected(coord.FormatH3, "%q is not a valid H3 cell index", text)
	}
	center, err := cell.LatLng()
	if err != nil {
		return nil, coord.ErrRejected(coord.FormatH3, "cell %s center: %v", cell, err)
	}
	boundary, err := cell.Boundary()
	if err != nil {
		return nil, coord.ErrRejected(coord.FormatH3, "cell %s boundary: %v", cell, err)
	}

	minLat, minLon := center.Lat, center.Lng
	maxLat, maxLon := center.Lat, center.Lng
	for _, v := range boundary {
		if v.Lat < minLat {
			minLat = v.Lat
		}
		if v.Lat > maxLat {
			maxLat = v.Lat
		}
		if v.Lng < minLon {
			minLon = v.Lng
		}
		if v.Lng > maxLon {
			maxLon = v.Lng
		}
	}

	return &coord.Result{
		Lat:        center.Lat,
		Lon:        center.Lng,
		Bounds:     coord.Envelope(minLon, minLat, maxLon, maxLat),
		Format:     coord.FormatH3,
		SourceEPSG: 4326,
	}, nil
}

// Encode returns the index of the cell containing the point at the
// given resolution (0 coarsest, 15 finest).
func Encode(lat, lon float64, res int) (string, error) {
	if res < 0 || res > 15 {
		return "", fmt.Errorf("h3grid: resolution %d out of range", res)
	}
	if !coord.ValidLat(lat) || !coord.ValidLon(lon) {
		return "", fmt.Errorf("h3grid: coordinate (%f, %f) out of range", lat, lon)
	}
	cell, err := h3.LatLngToCell(h3.NewLatLng(lat, lon), res)
	if err != nil {
		return "", fmt.Errorf("h3grid: encode (%f, %f): %w", lat, lon, err)
	}
	return cell.String(), nil
}
