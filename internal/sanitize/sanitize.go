// Package sanitize normalizes raw coordinate input before parsing.
// It fails closed: anything outside the character whitelist aborts the
// whole parse.
package sanitize

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"coordparse/coord"
)

// MaxLen is the input length cap in runes. Coordinate strings are short;
// anything past this is not coordinate input.
const MaxLen = 1000

// Punctuation allowed in coordinate text across all supported formats
// (signs, decimal points, DMS marks, separators, geometry delimiters).
const allowedPunct = `+-.°′″'",;:|/\()[]{}<>=`

// Clean validates text against the whitelist, collapses whitespace runs
// to single spaces, and trims. The returned error is always a
// *coord.ParseError with kind InvalidInput.
func Clean(text string) (string, error) {
	if text == "" {
		return "", coord.ErrInvalid("empty input")
	}
	if utf8.RuneCountInString(text) > MaxLen {
		return "", coord.ErrInvalid("input exceeds %d characters", MaxLen)
	}

	var b strings.Builder
	b.Grow(len(text))
	inSpace := false
	for _, r := range text {
		switch {
		case unicode.IsSpace(r):
			if !inSpace {
				b.WriteByte(' ')
				inSpace = true
			}
		case unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune(allowedPunct, r):
			b.WriteRune(r)
			inSpace = false
		default:
			return "", coord.ErrInvalid("disallowed character %q", r)
		}
	}

	out := strings.TrimSpace(b.String())
	if out == "" {
		return "", coord.ErrInvalid("input is only whitespace")
	}
	return out, nil
}
