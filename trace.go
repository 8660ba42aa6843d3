package coordparse

import (
	"coordparse/coord"
	"coordparse/internal/classify"
	"coordparse/internal/sanitize"
)

// Trace records what the pipeline did with one input: the sanitized
// text, the classifier verdict, and every strategy consulted on the way
// to the verdict. Produced only by ParseWithTrace; the plain Parse path
// carries no instrumentation.
type Trace struct {
	Input      string       `json:"input"`      // text after sanitization
	Classified coord.Format `json:"classified"` // fast classifier verdict, unknown on miss
	Attempts   []Attempt    `json:"attempts"`   // strategies consulted, in order
	Fallback   bool         `json:"fallback"`   // whether the numeric fallback ran
}

// Attempt is one strategy consultation. A classifier hit bypasses the
// structural check, so its record always reads CanParse true.
type Attempt struct {
	Format   coord.Format `json:"format"`
	CanParse bool         `json:"can_parse"`
	Decoded  bool         `json:"decoded"`
	Matched  bool         `json:"matched"`
	Error    string       `json:"error,omitempty"`
}

// ParseWithTrace is Parse plus a full pipeline trace for diagnostics.
// The Trace is populated on failures too; it is nil only when the
// sanitizer rejects the input outright.
func (p *Parser) ParseWithTrace(text string, pref coord.Order) (*coord.Result, *Trace, error) {
	clean, err := sanitize.Clean(text)
	if err != nil {
		return nil, nil, err
	}
	tr := &Trace{Input: clean}

	if f, ok := classify.Classify(clean, p.h3); ok {
		tr.Classified = f
		res, err := p.table[f].Parse(clean, pref)
		tr.record(f, res, err)
		return res, tr, err
	}

	attempts := 0
	for _, s := range p.candidates {
		if attempts == maxDecodeAttempts {
			break
		}
		if !s.CanParse(clean) {
			tr.Attempts = append(tr.Attempts, Attempt{Format: s.Format()})
			continue
		}
		attempts++
		res, err := s.Parse(clean, pref)
		tr.record(s.Format(), res, err)
		if err != nil {
			return nil, tr, err
		}
		if res != nil {
			return res, tr, nil
		}
	}

	tr.Fallback = true
	res, err := p.fallback.Parse(clean, pref)
	tr.record(coord.FormatDecimal, res, err)
	return res, tr, err
}

// record appends one full decode attempt.
func (t *Trace) record(f coord.Format, res *coord.Result, err error) {
	a := Attempt{Format: f, CanParse: true, Decoded: true, Matched: res != nil}
	if err != nil {
		a.Error = err.Error()
	}
	t.Attempts = append(t.Attempts, a)
}
