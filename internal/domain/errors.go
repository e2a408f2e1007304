package domain

import (
	"fmt"
	"strings"
)

// FetchError reports a feed request that failed on every allowed attempt.
type FetchError struct {
	URL        string
	Attempts   int
	StatusCode int // last HTTP status seen, 0 for network-level failures
	Err        error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: gave up after %d attempt(s): %v", e.URL, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError reports a feed body that is not valid JSON.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse features: invalid JSON: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// SchemaError reports well-formed JSON missing the expected feature-collection shape.
type SchemaError struct {
	Path   string // e.g. "features", "features[3].attributes", "features[3].attributes.date"
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema: %s: %s", e.Path, e.Reason)
}

// DerivationError reports a rolling statistic that cannot be computed from its input.
type DerivationError struct {
	Column string
	Reason string
}

func (e *DerivationError) Error() string {
	return fmt.Sprintf("derive %s: %s", e.Column, e.Reason)
}

// AlignmentError reports case and hospitalization series that do not pair up by date.
type AlignmentError struct {
	CaseLen     int
	HospitalLen int
	Mismatches  []Mismatch
}

// Mismatch is one index where the two series carry different dates.
type Mismatch struct {
	Index        int
	CaseDate     Date
	HospitalDate Date
}

func (e *AlignmentError) Error() string {
	var b strings.Builder
	b.WriteString("series not aligned")
	if e.CaseLen != e.HospitalLen {
		fmt.Fprintf(&b, ": %d case rows vs %d hospitalization rows", e.CaseLen, e.HospitalLen)
	}
	if n := len(e.Mismatches); n > 0 {
		m := e.Mismatches[0]
		fmt.Fprintf(&b, ": %d date mismatch(es), first at index %d (%s vs %s)", n, m.Index, m.CaseDate, m.HospitalDate)
	}
	return b.String()
}
