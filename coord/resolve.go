package coord

// ValidLat reports whether v is a legal WGS84 latitude.
func ValidLat(v float64) bool { return v >= -90 && v <= 90 }

// ValidLon reports whether v is a legal WGS84 longitude.
func ValidLon(v float64) bool { return v >= -180 && v <= 180 }

// ResolveOrder decides which of two numbers is the latitude.
//
// Interpretation A reads (c1, c2) as (lat, lon); interpretation B reads
// it as (lon, lat). When both interpretations are valid the caller's
// preference decides; when exactly one is valid it wins regardless of
// preference (auto-correct); when neither is valid the pair is out of
// range.
func ResolveOrder(c1, c2 float64, pref Order) (lat, lon float64, err error) {
	aValid := ValidLat(c1) && ValidLon(c2)
	bValid := ValidLat(c2) && ValidLon(c1)

	switch {
	case aValid && bValid:
		if pref == OrderLonFirst {
			return c2, c1, nil
		}
		return c1, c2, nil
	case aValid:
		return c1, c2, nil
	case bValid:
		return c2, c1, nil
	}
	return 0, 0, ErrRange(FormatUnknown, "no valid lat/lon interpretation of (%v, %v)", c1, c2)
}
