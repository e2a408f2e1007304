package domain

import "time"

// DefaultPandemicStart is the date the WHO declared COVID-19 a pandemic.
var DefaultPandemicStart = Date{Year: 2020, Month: time.March, Day: 11}

// PandemicDay returns the whole days elapsed from start to the current date
// in loc. A nil loc means time.Local.
func PandemicDay(start Date, loc *time.Location) int {
	if loc == nil {
		loc = time.Local
	}
	return DateOf(clock.Now().In(loc)).DaysSince(start)
}
