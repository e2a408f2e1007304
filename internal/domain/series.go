package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"
)

// DefaultDateField is the Esri timestamp attribute carried by both VT feeds.
const DefaultDateField = "date"

// BuildOptions controls how raw attributes become daily records.
type BuildOptions struct {
	// DateField names the epoch-millisecond attribute. Empty means DefaultDateField.
	DateField string
	// Location is the zone the timestamp is read in before the time of day is
	// dropped. Nil means time.Local.
	Location *time.Location
}

// BuildSeries converts feature attributes to a TimeSeries, one record per
// input in the same order. It does not sort, deduplicate or fill gaps.
func BuildSeries(records []Attributes, opts BuildOptions) (TimeSeries, error) {
	field := opts.DateField
	if field == "" {
		field = DefaultDateField
	}
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}

	series := make(TimeSeries, 0, len(records))
	for i, attrs := range records {
		rawDate, ok := attrs[field]
		if !ok || rawDate == nil {
			return nil, &SchemaError{Path: fmt.Sprintf("features[%d].attributes.%s", i, field), Reason: "missing"}
		}
		ms, err := epochMillis(rawDate)
		if err != nil {
			return nil, &SchemaError{Path: fmt.Sprintf("features[%d].attributes.%s", i, field), Reason: err.Error()}
		}

		rec := DailyRecord{
			Date:   EsriDate(ms, loc),
			Fields: make(map[string]float64, len(attrs)),
		}
		for k, v := range attrs {
			if k == field || v == nil {
				continue
			}
			if f, ok := numeric(v); ok {
				rec.Fields[k] = f
				continue
			}
			if rec.Labels == nil {
				rec.Labels = make(map[string]string)
			}
			rec.Labels[k] = label(v)
		}
		series = append(series, rec)
	}
	return series, nil
}

// EsriDate converts an epoch-millisecond timestamp to the calendar date it
// falls on in loc, discarding the time of day.
func EsriDate(ms int64, loc *time.Location) Date {
	return DateOf(time.UnixMilli(ms).In(loc))
}

func epochMillis(v any) (int64, error) {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, nil
		}
		f, err := n.Float64()
		if err != nil {
			return 0, fmt.Errorf("not an epoch-millisecond number: %q", n.String())
		}
		return int64(math.Floor(f)), nil
	case float64:
		return int64(math.Floor(n)), nil
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("not an epoch-millisecond number: %T", v)
	}
}

func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func label(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case bool:
		return strconv.FormatBool(s)
	default:
		b, err := json.Marshal(s)
		if err != nil {
			return fmt.Sprint(s)
		}
		return string(b)
	}
}

// CheckAlignment verifies that cases and hospitalizations can be paired by
// row index: same length and the same date at every index.
func CheckAlignment(cases, hospitalizations TimeSeries) error {
	n := min(len(cases), len(hospitalizations))
	var mismatches []Mismatch
	for i := 0; i < n; i++ {
		if cases[i].Date != hospitalizations[i].Date {
			mismatches = append(mismatches, Mismatch{Index: i, CaseDate: cases[i].Date, HospitalDate: hospitalizations[i].Date})
		}
	}
	if len(mismatches) == 0 && len(cases) == len(hospitalizations) {
		return nil
	}
	return &AlignmentError{
		CaseLen:     len(cases),
		HospitalLen: len(hospitalizations),
		Mismatches:  mismatches,
	}
}

// Gap is a run of missing days between two consecutive rows.
type Gap struct {
	Index   int // index of the row after the gap
	From    Date
	To      Date
	Missing int
}

// FindGaps returns every place where consecutive rows skip one or more days.
func FindGaps(s TimeSeries) []Gap {
	var gaps []Gap
	for i := 1; i < len(s); i++ {
		if d := s[i].Date.DaysSince(s[i-1].Date); d > 1 {
			gaps = append(gaps, Gap{Index: i, From: s[i-1].Date, To: s[i].Date, Missing: d - 1})
		}
	}
	return gaps
}

// Duplicate is a date that appears on more than one row.
type Duplicate struct {
	Date    Date
	Indexes []int
}

// FindDuplicates returns every repeated date, ordered by first occurrence.
func FindDuplicates(s TimeSeries) []Duplicate {
	seen := make(map[Date][]int, len(s))
	for i, r := range s {
		seen[r.Date] = append(seen[r.Date], i)
	}
	var dups []Duplicate
	for d, idx := range seen {
		if len(idx) > 1 {
			dups = append(dups, Duplicate{Date: d, Indexes: idx})
		}
	}
	sort.Slice(dups, func(i, j int) bool { return dups[i].Indexes[0] < dups[j].Indexes[0] })
	return dups
}

// FindOutOfOrder returns the index of every row dated before its predecessor.
func FindOutOfOrder(s TimeSeries) []int {
	var idx []int
	for i := 1; i < len(s); i++ {
		if s[i].Date.Before(s[i-1].Date) {
			idx = append(idx, i)
		}
	}
	return idx
}
