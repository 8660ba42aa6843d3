// Package geojsonpt decodes GeoJSON input: a bare geometry, a feature,
// or a feature collection (first feature wins). Coordinates follow the
// GeoJSON lon,lat order; a third altitude element is discarded by the
// codec. Anything that is not valid GeoJSON is a hard failure, never a
// fall-through to numeric extraction.
package geojsonpt

import (
	"encoding/json"
	"strings"

	"github.com/paulmach/orb/geojson"

	"coordparse/coord"
	"coordparse/internal/geom"
)

type Strategy struct{}

func New() *Strategy { return &Strategy{} }

func (*Strategy) Format() coord.Format { return coord.FormatGeoJSON }

func (*Strategy) CanParse(text string) bool {
	return strings.HasPrefix(text, "{") &&
		(strings.Contains(text, `"type"`) || strings.Contains(text, `"coordinates"`))
}

func (*Strategy) Parse(text string, _ coord.Order) (*coord.Result, error) {
	data := []byte(strings.TrimSpace(text))

	// The type member decides which GeoJSON object this is; geometry
	// types all route through the geometry codec.
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, coord.ErrRejected(coord.FormatGeoJSON, "malformed JSON: %v", err)
	}

	switch probe.Type {
	case "Feature":
		f, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return nil, coord.ErrRejected(coord.FormatGeoJSON, "feature: %v", err)
		}
		return geom.FromGeometry(f.Geometry, 0, coord.FormatGeoJSON)
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return nil, coord.ErrRejected(coord.FormatGeoJSON, "feature collection: %v", err)
		}
		if len(fc.Features) == 0 {
			return nil, coord.ErrRejected(coord.FormatGeoJSON, "feature collection is empty")
		}
		return geom.FromGeometry(fc.Features[0].Geometry, 0, coord.FormatGeoJSON)
	default:
		g, err := geojson.UnmarshalGeometry(data)
		if err != nil {
			return nil, coord.ErrRejected(coord.FormatGeoJSON, "geometry: %v", err)
		}
		return geom.FromGeometry(g.Geometry(), 0, coord.FormatGeoJSON)
	}
}
