// Package dms decodes degree/minute/second coordinate notation in its
// common spellings: symbol marks (40°42′46″), letter marks (40d 42m 46s),
// colon triplets (40:42:46), decimal degrees or minutes, and N/S/E/W
// cardinals as prefix or suffix. Cardinals assign axis roles regardless
// of their order in the text; without them the caller's order preference
// applies.
package dms

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"coordparse/coord"
)

var (
	numRe   = regexp.MustCompile(`[+-]?(?:\d+\.\d*|\.\d+|\d+)`)
	splitRe = regexp.MustCompile(`[,;|]`)

	// Structural hints that the text is DMS at all.
	symbolRe  = regexp.MustCompile(`\d\s*[°′″'"]`)
	colonRe   = regexp.MustCompile(`\d:\d`)
	dLetterRe = regexp.MustCompile(`(?i)\d\s*d\s*\d`)
)

// Marks that may remain in a coordinate half once numbers and the
// hemisphere letter are removed.
const halfMarks = "°′″'\"dDmMsS: "

const (
	axisNone = iota
	axisLat
	axisLon
)

type Strategy struct{}

func New() *Strategy { return &Strategy{} }

func (*Strategy) Format() coord.Format { return coord.FormatDMS }

func (*Strategy) CanParse(text string) bool {
	if !numRe.MatchString(text) {
		return false
	}
	if symbolRe.MatchString(text) || colonRe.MatchString(text) || dLetterRe.MatchString(text) {
		return true
	}
	return len(cardinalPositions(text)) > 0
}

func (*Strategy) Parse(text string, pref coord.Order) (*coord.Result, error) {
	// Pre-filter: any component too large to be angular means this is
	// not DMS (UTM-like magnitudes must not be claimed here).
	for _, tok := range numRe.FindAllString(text, -1) {
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil || math.Abs(v) > 360 {
			return nil, nil
		}
	}

	a, b, ok := splitHalves(text)
	if !ok {
		return nil, nil
	}

	aVal, aAxis, ok := parseHalf(a)
	if !ok {
		return nil, nil
	}
	bVal, bAxis, ok := parseHalf(b)
	if !ok {
		return nil, nil
	}

	var lat, lon float64
	switch {
	case aAxis == axisLat && bAxis == axisLon:
		lat, lon = aVal, bVal
	case aAxis == axisLon && bAxis == axisLat:
		lat, lon = bVal, aVal
	case aAxis != axisNone && aAxis == bAxis:
		return nil, nil
	case aAxis == axisLat || bAxis == axisLon:
		lat, lon = aVal, bVal
	case aAxis == axisLon || bAxis == axisLat:
		lat, lon = bVal, aVal
	default:
		var err error
		lat, lon, err = coord.ResolveOrder(aVal, bVal, pref)
		if err != nil {
			return nil, nil
		}
	}

	if !coord.ValidLat(lat) || !coord.ValidLon(lon) {
		return nil, nil
	}
	return &coord.Result{Lat: lat, Lon: lon, Format: coord.FormatDMS, SourceEPSG: 4326}, nil
}

// splitHalves cuts the text into its two coordinate groups: explicit
// separators first, then cardinal boundaries, then the midpoint of the
// numeric token run.
func splitHalves(text string) (string, string, bool) {
	if parts := splitRe.Split(text, -1); len(parts) > 1 {
		var halves []string
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				halves = append(halves, p)
			}
		}
		if len(halves) == 2 {
			return halves[0], halves[1], true
		}
		return "", "", false
	}

	if pos := cardinalPositions(text); len(pos) == 2 {
		if strings.ContainsAny(text[:pos[0]], "0123456789") {
			// Suffix style: cut right after the first cardinal.
			return text[:pos[0]+1], text[pos[0]+1:], true
		}
		// Prefix style: cut right before the second cardinal.
		return text[:pos[1]], text[pos[1]:], true
	}

	locs := numRe.FindAllStringIndex(text, -1)
	if len(locs) >= 2 && len(locs)%2 == 0 {
		cut := locs[len(locs)/2][0]
		return text[:cut], text[cut:], true
	}
	return "", "", false
}

// cardinalPositions finds N/S/E/W letters that stand alone (not part of
// a word), which is what distinguishes a hemisphere mark from prose.
func cardinalPositions(text string) []int {
	var pos []int
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case 'N', 'S', 'E', 'W', 'n', 's', 'e', 'w':
		default:
			continue
		}
		if i > 0 && isASCIILetter(text[i-1]) {
			continue
		}
		if i+1 < len(text) && isASCIILetter(text[i+1]) {
			continue
		}
		pos = append(pos, i)
	}
	return pos
}

func isASCIILetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// parseHalf decodes one coordinate group into a signed value and the
// axis its hemisphere letter selects (axisNone without one).
func parseHalf(s string) (float64, int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, 0, false
	}

	hemi := byte(0)
	if c := s[0]; isCardinal(c) && (len(s) == 1 || !isASCIILetter(s[1])) {
		hemi = upper(c)
		s = strings.TrimSpace(s[1:])
	}
	if n := len(s); n > 0 {
		if c := s[n-1]; isCardinal(c) && (n == 1 || !isASCIILetter(s[n-2])) {
			if hemi != 0 {
				return 0, 0, false
			}
			hemi = upper(c)
			s = strings.TrimSpace(s[:n-1])
		}
	}

	nums := numRe.FindAllString(s, -1)
	if len(nums) < 1 || len(nums) > 3 {
		return 0, 0, false
	}

	// Anything besides numbers and DMS marks disqualifies the group.
	for _, r := range numRe.ReplaceAllString(s, "") {
		if !strings.ContainsRune(halfMarks, r) {
			return 0, 0, false
		}
	}

	neg := strings.HasPrefix(nums[0], "-")
	deg, err := strconv.ParseFloat(nums[0], 64)
	if err != nil {
		return 0, 0, false
	}
	deg = math.Abs(deg)

	var min, sec float64
	if len(nums) >= 2 {
		// Only the last component may be fractional, and only the
		// leading one may carry a sign.
		if strings.Contains(nums[0], ".") || !unsignedToken(nums[1]) {
			return 0, 0, false
		}
		if min, err = strconv.ParseFloat(nums[1], 64); err != nil || min >= 60 {
			return 0, 0, false
		}
	}
	if len(nums) == 3 {
		if strings.Contains(nums[1], ".") || !unsignedToken(nums[2]) {
			return 0, 0, false
		}
		if sec, err = strconv.ParseFloat(nums[2], 64); err != nil || sec >= 60 {
			return 0, 0, false
		}
	}

	val := deg + min/60 + sec/3600
	if neg {
		val = -val
	}

	axis := axisNone
	switch hemi {
	case 'N':
		axis, val = axisLat, math.Abs(val)
	case 'S':
		axis, val = axisLat, -math.Abs(val)
	case 'E':
		axis, val = axisLon, math.Abs(val)
	case 'W':
		axis, val = axisLon, -math.Abs(val)
	}
	return val, axis, true
}

func isCardinal(c byte) bool {
	switch c {
	case 'N', 'S', 'E', 'W', 'n', 's', 'e', 'w':
		return true
	}
	return false
}

func upper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - 'a' + 'A'
	}
	return c
}

func unsignedToken(s string) bool {
	return s != "" && s[0] != '+' && s[0] != '-'
}
