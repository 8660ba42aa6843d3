package coord

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a parse failure.
type ErrorKind uint8

const (
	// InvalidInput: sanitization failure (empty, oversized, disallowed bytes).
	InvalidInput ErrorKind = iota + 1
	// FormatRejected: the text matched a format's signature but failed that
	// format's decode. Never falls through to numeric extraction.
	FormatRejected
	// NoFormatMatched: classifier, candidate strategies, and the fallback
	// extractor were all exhausted.
	NoFormatMatched
	// OutOfRange: decoded values fit no valid lat/lon interpretation.
	OutOfRange
)

func (k ErrorKind) String() string {
	switch k {
	case InvalidInput:
		return "invalid input"
	case FormatRejected:
		return "format rejected"
	case NoFormatMatched:
		return "no format matched"
	case OutOfRange:
		return "out of range"
	}
	return fmt.Sprintf("error(%d)", uint8(k))
}

// ParseError is the single error type returned by the parsing core.
// Format is set when a family was recognized before the failure, for
// logging and telemetry.
type ParseError struct {
	Kind   ErrorKind
	Format Format
	Reason string
}

func (e *ParseError) Error() string {
	if e.Format != FormatUnknown {
		return fmt.Sprintf("%s (%s): %s", e.Kind, e.Format, e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

// ErrInvalid builds an InvalidInput error.
func ErrInvalid(format string, args ...any) *ParseError {
	return &ParseError{Kind: InvalidInput, Reason: fmt.Sprintf(format, args...)}
}

// ErrRejected builds a FormatRejected error for the given format.
func ErrRejected(f Format, format string, args ...any) *ParseError {
	return &ParseError{Kind: FormatRejected, Format: f, Reason: fmt.Sprintf(format, args...)}
}

// ErrNoMatch builds a NoFormatMatched error.
func ErrNoMatch(format string, args ...any) *ParseError {
	return &ParseError{Kind: NoFormatMatched, Reason: fmt.Sprintf(format, args...)}
}

// ErrRange builds an OutOfRange error for the given format.
func ErrRange(f Format, format string, args ...any) *ParseError {
	return &ParseError{Kind: OutOfRange, Format: f, Reason: fmt.Sprintf(format, args...)}
}

// KindOf extracts the ErrorKind from err, or 0 when err is not a
// *ParseError.
func KindOf(err error) ErrorKind {
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return 0
}
