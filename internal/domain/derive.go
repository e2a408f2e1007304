package domain

import "math"

// Default window lengths used by the VT report.
const (
	DefaultAverageWindow  = 7
	DefaultQuarantineDays = 10 // CDC quarantine recommendation
	DefaultCaseColumn     = "positive_cases"
)

// RollingMean returns the trailing unweighted mean of column over window rows,
// including the current row. Rows before the window fills, and windows
// containing a missing value, are invalid.
func RollingMean(s TimeSeries, column string, window int) (DerivedSeries, error) {
	return rolling(s, column, window, func(sum float64) float64 {
		return sum / float64(window)
	})
}

// ActiveEstimate returns the trailing sum of column over window rows,
// including the current row: the new cases reported recently enough to still
// be inside the quarantine window.
func ActiveEstimate(s TimeSeries, column string, window int) (DerivedSeries, error) {
	return rolling(s, column, window, func(sum float64) float64 {
		return sum
	})
}

func rolling(s TimeSeries, column string, window int, finish func(sum float64) float64) (DerivedSeries, error) {
	if window < 1 {
		return nil, &DerivationError{Column: column, Reason: "window must be at least 1"}
	}
	if len(s) > 0 && !s.HasColumn(column) {
		return nil, &DerivationError{Column: column, Reason: "column not present in series"}
	}

	values := s.Column(column)
	out := make(DerivedSeries, len(values))
	for i := window - 1; i < len(values); i++ {
		// Summed per window rather than as a running total so one NaN only
		// invalidates the windows that contain it.
		var sum float64
		for _, v := range values[i-window+1 : i+1] {
			sum += v
		}
		r := finish(sum)
		if math.IsNaN(r) || math.IsInf(r, 0) {
			continue
		}
		out[i] = Defined(r)
	}
	return out, nil
}
