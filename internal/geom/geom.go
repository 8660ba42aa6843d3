// Package geom converts decoded geometries into normalized results:
// representative point selection, geographic axis-order validation, and
// SRID reprojection.
package geom

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"coordparse/coord"
	"coordparse/internal/crs"
)

// FromGeometry produces a Result from a geometry expressed in the CRS
// identified by srid (0 means unspecified and is treated as WGS84).
//
// The representative point is the geometry itself for points, the first
// member for multipoints, and the planar centroid for everything else.
// In a geographic CRS the standard axis roles are X=lon, Y=lat; the
// swapped reading is used only when the standard one is invalid
// (auto-correct), and the caller's order preference is never consulted.
func FromGeometry(g orb.Geometry, srid int, f coord.Format) (*coord.Result, error) {
	if g == nil {
		return nil, coord.ErrRejected(f, "empty geometry")
	}
	if srid == 0 {
		srid = crs.EPSGWGS84
	}

	pt, ok := representative(g)
	if !ok {
		return nil, coord.ErrRejected(f, "geometry has no coordinates")
	}

	bounds := envelope(g)

	if crs.GeographicEPSG(srid) {
		lon, lat, swapped, err := resolveAxes(pt, f)
		if err != nil {
			return nil, err
		}
		if srid != crs.EPSGWGS84 {
			lon, lat, _ = crs.ToWGS84(srid, lon, lat)
		}
		if swapped && bounds != nil {
			bounds = coord.Envelope(bounds.Min[1], bounds.Min[0], bounds.Max[1], bounds.Max[0])
		}
		return &coord.Result{Lat: lat, Lon: lon, Bounds: bounds, Format: f, SourceEPSG: srid}, nil
	}

	// Projected source: axes are easting/northing, no order ambiguity.
	lon, lat, err := crs.ToWGS84(srid, pt[0], pt[1])
	if err != nil {
		return nil, coord.ErrRejected(f, "%v", err)
	}
	if !coord.ValidLat(lat) || !coord.ValidLon(lon) {
		return nil, coord.ErrRange(f, "projected coordinate (%v, %v) decodes outside WGS84 bounds", pt[0], pt[1])
	}
	if bounds != nil {
		minLon, minLat, err1 := transformCorner(srid, bounds.Min)
		maxLon, maxLat, err2 := transformCorner(srid, bounds.Max)
		if err1 == nil && err2 == nil {
			bounds = coord.Envelope(minLon, minLat, maxLon, maxLat)
		} else {
			bounds = nil
		}
	}
	return &coord.Result{Lat: lat, Lon: lon, Bounds: bounds, Format: f, SourceEPSG: srid}, nil
}

func transformCorner(srid int, p orb.Point) (lon, lat float64, err error) {
	return crs.ToWGS84(srid, p[0], p[1])
}

// resolveAxes applies the standard-convention-first order rule to a
// geographic point.
func resolveAxes(pt orb.Point, f coord.Format) (lon, lat float64, swapped bool, err error) {
	x, y := pt[0], pt[1]
	switch {
	case coord.ValidLon(x) && coord.ValidLat(y):
		return x, y, false, nil
	case coord.ValidLon(y) && coord.ValidLat(x):
		return y, x, true, nil
	}
	return 0, 0, false, coord.ErrRange(f, "coordinate (%v, %v) fits no geographic interpretation", x, y)
}

// representative picks the point that stands for the whole geometry.
func representative(g orb.Geometry) (orb.Point, bool) {
	switch v := g.(type) {
	case orb.Point:
		return v, true
	case orb.MultiPoint:
		if len(v) == 0 {
			return orb.Point{}, false
		}
		return v[0], true
	case orb.LineString:
		if len(v) == 0 {
			return orb.Point{}, false
		}
	case orb.Ring:
		if len(v) == 0 {
			return orb.Point{}, false
		}
	case orb.Polygon:
		if len(v) == 0 || len(v[0]) == 0 {
			return orb.Point{}, false
		}
	case orb.MultiLineString:
		if len(v) == 0 {
			return orb.Point{}, false
		}
	case orb.MultiPolygon:
		if len(v) == 0 {
			return orb.Point{}, false
		}
	case orb.Collection:
		if len(v) == 0 {
			return orb.Point{}, false
		}
	}

	c, _ := planar.CentroidArea(g)
	if math.IsNaN(c[0]) || math.IsNaN(c[1]) {
		return orb.Point{}, false
	}
	return c, true
}

// envelope returns the geometry extent, or nil for degenerate (point)
// extents.
func envelope(g orb.Geometry) *orb.Bound {
	b := g.Bound()
	if b.Min == b.Max {
		return nil
	}
	return &b
}
