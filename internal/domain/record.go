package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

const dateLayout = "2006-01-02"

// Date is a calendar day with no time-of-day or zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the calendar date of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// midnightUTC anchors the date at UTC midnight so day arithmetic never
// crosses a DST transition.
func (d Date) midnightUTC() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// In returns local midnight of the date in loc.
func (d Date) In(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// DaysSince returns the number of whole days from other to d. It is negative
// when other is after d.
func (d Date) DaysSince(other Date) int {
	return int(d.midnightUTC().Sub(other.midnightUTC()).Hours() / 24)
}

// AddDays returns the date n days after d.
func (d Date) AddDays(n int) Date {
	return DateOf(d.midnightUTC().AddDate(0, 0, n))
}

func (d Date) Before(other Date) bool { return d.midnightUTC().Before(other.midnightUTC()) }

func (d Date) IsZero() bool { return d == Date{} }

func (d Date) String() string {
	return d.midnightUTC().Format(dateLayout)
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// DailyRecord is one day's row from a feed. Fields holds numeric attributes;
// Labels holds the remaining non-null attributes as text.
type DailyRecord struct {
	Date   Date               `json:"date"`
	Fields map[string]float64 `json:"fields"`
	Labels map[string]string  `json:"labels,omitempty"`
}

// Value returns the named numeric field, or NaN when the record lacks it.
func (r DailyRecord) Value(field string) float64 {
	v, ok := r.Fields[field]
	if !ok {
		return math.NaN()
	}
	return v
}

// TimeSeries is an ordered sequence of daily records in source order.
type TimeSeries []DailyRecord

func (s TimeSeries) Len() int { return len(s) }

// Dates returns the date of every record, by index.
func (s TimeSeries) Dates() []Date {
	out := make([]Date, len(s))
	for i, r := range s {
		out[i] = r.Date
	}
	return out
}

// Column returns the named field for every record, NaN where missing.
func (s TimeSeries) Column(field string) []float64 {
	out := make([]float64, len(s))
	for i, r := range s {
		out[i] = r.Value(field)
	}
	return out
}

// HasColumn reports whether at least one record carries the field.
func (s TimeSeries) HasColumn(field string) bool {
	for _, r := range s {
		if _, ok := r.Fields[field]; ok {
			return true
		}
	}
	return false
}

// DerivedValue is one rolling statistic. Valid is false when the trailing
// window was not full, which is distinct from a computed zero.
type DerivedValue struct {
	Value float64
	Valid bool
}

// Defined returns a valid DerivedValue.
func Defined(v float64) DerivedValue {
	return DerivedValue{Value: v, Valid: true}
}

// MarshalJSON writes null for invalid and non-finite values, which JSON
// cannot represent.
func (v DerivedValue) MarshalJSON() ([]byte, error) {
	if !v.Valid || math.IsNaN(v.Value) || math.IsInf(v.Value, 0) {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(v.Value, 'f', -1, 64)), nil
}

func (v *DerivedValue) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*v = DerivedValue{}
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("derived value: %w", err)
	}
	*v = Defined(f)
	return nil
}

// DerivedSeries holds one DerivedValue per index of its source series.
type DerivedSeries []DerivedValue

// Last returns the final value, or an invalid value for an empty series.
func (s DerivedSeries) Last() DerivedValue {
	if len(s) == 0 {
		return DerivedValue{}
	}
	return s[len(s)-1]
}

// Report is the bundle handed to the rendering side after one run.
type Report struct {
	GeneratedAt      time.Time     `json:"generated_at"`
	PandemicDay      int           `json:"pandemic_day"`
	AverageWindow    int           `json:"average_window"`
	QuarantineDays   int           `json:"quarantine_days"`
	Cases            TimeSeries    `json:"cases"`
	Hospitalizations TimeSeries    `json:"hospitalizations"`
	CaseAverage      DerivedSeries `json:"case_average"`
	ActiveEstimate   DerivedSeries `json:"active_estimate"`
}

// Tail returns a copy of the report restricted to the last n rows of every
// series. Derived values keep the statistics computed over the full history.
func (r Report) Tail(n int) Report {
	out := r
	out.Cases = tail(r.Cases, n)
	out.Hospitalizations = tail(r.Hospitalizations, n)
	out.CaseAverage = tail(r.CaseAverage, n)
	out.ActiveEstimate = tail(r.ActiveEstimate, n)
	return out
}

func tail[S ~[]E, E any](s S, n int) S {
	if n < 0 {
		n = 0
	}
	if n >= len(s) {
		return s
	}
	return s[len(s)-n:]
}
