// Command validate performs offline integrity checks on saved copies of the
// case and hospitalization feeds. It verifies that every feature becomes one
// daily record, that dates are unique and ordered, that the two series pair
// up by row index, and that the derived statistics can be computed.
//
// Usage:
//
//	curl -o cases.json "$CASE_FEED_URL"
//	curl -o hospital.json "$HOSPITAL_FEED_URL"
//	go run ./cmd/validate -cases cases.json -hospital hospital.json -tz America/New_York
package main

import (
	"flag"
	"fmt"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/couchcryptid/covid-report-etl/internal/domain"
)

// phase tracks pass/fail for a validation phase. Notes are informational
// and never fail a phase.
type phase struct {
	name   string
	errors []string
	notes  []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) notef(format string, args ...any) {
	p.notes = append(p.notes, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// loadedFeed is one feed file parsed and built.
type loadedFeed struct {
	name     string
	features int
	series   domain.TimeSeries
}

func main() {
	casesPath := flag.String("cases", "", "path to a saved case feed response")
	hospitalPath := flag.String("hospital", "", "path to a saved hospitalization feed response")
	tz := flag.String("tz", "Local", "zone Esri timestamps are read in")
	column := flag.String("column", domain.DefaultCaseColumn, "case column used by the derivations")
	flag.Parse()

	if *casesPath == "" || *hospitalPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*casesPath, *hospitalPath, *tz, *column); code != 0 {
		os.Exit(code)
	}
}

func run(casesPath, hospitalPath, tz, column string) int {
	loc := time.Local
	if tz != "Local" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: load zone: %v\n", err)
			return 1
		}
		loc = l
	}
	opts := domain.BuildOptions{Location: loc}

	fmt.Println("=== VT COVID Feed Integrity Validation ===")
	fmt.Println()

	cases, err := loadFeed("cases", casesPath, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load case feed: %v\n", err)
		return 1
	}
	hospital, err := loadFeed("hospitalizations", hospitalPath, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load hospitalization feed: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateRecordParity(cases, hospital),
		validateDates(cases, hospital),
		validateAlignment(cases, hospital),
		validateDerivations(cases, column),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d case rows, %d hospitalization rows\n", cases.series.Len(), hospital.series.Len())

	for _, p := range phases {
		if p.passed() && len(p.notes) == 0 {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
		for _, n := range p.notes {
			fmt.Printf("  note: %s\n", n)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func loadFeed(name, path string, opts domain.BuildOptions) (loadedFeed, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return loadedFeed{}, err
	}
	records, err := domain.ParseFeatures(string(raw))
	if err != nil {
		return loadedFeed{}, err
	}
	series, err := domain.BuildSeries(records, opts)
	if err != nil {
		return loadedFeed{}, err
	}
	return loadedFeed{name: name, features: len(records), series: series}, nil
}

// ── Phases ──

func validateRecordParity(feeds ...loadedFeed) *phase {
	p := &phase{name: "Phase 1: Feature/record parity"}
	for _, f := range feeds {
		if f.features != f.series.Len() {
			p.errorf("%s: %d features but %d records", f.name, f.features, f.series.Len())
		}
		if f.features == 0 {
			p.notef("%s: feed is empty", f.name)
		}
	}
	return p
}

func validateDates(feeds ...loadedFeed) *phase {
	p := &phase{name: "Phase 2: Date uniqueness and order"}
	for _, f := range feeds {
		for _, d := range domain.FindDuplicates(f.series) {
			p.errorf("%s: date %s repeated at rows %v", f.name, d.Date, d.Indexes)
		}
		for _, i := range domain.FindOutOfOrder(f.series) {
			p.errorf("%s: row %d (%s) precedes row %d (%s)", f.name, i, f.series[i].Date, i-1, f.series[i-1].Date)
		}
		for _, g := range domain.FindGaps(f.series) {
			p.notef("%s: %d day(s) missing between %s and %s", f.name, g.Missing, g.From, g.To)
		}
	}
	return p
}

func validateAlignment(cases, hospital loadedFeed) *phase {
	p := &phase{name: "Phase 3: Row-index alignment"}
	if err := domain.CheckAlignment(cases.series, hospital.series); err != nil {
		p.errorf("%v", err)
	}
	return p
}

func validateDerivations(cases loadedFeed, column string) *phase {
	p := &phase{name: "Phase 4: Derivations"}
	checks := []struct {
		name   string
		window int
		fn     func(domain.TimeSeries, string, int) (domain.DerivedSeries, error)
	}{
		{name: "rolling mean", window: domain.DefaultAverageWindow, fn: domain.RollingMean},
		{name: "active estimate", window: domain.DefaultQuarantineDays, fn: domain.ActiveEstimate},
	}
	for _, c := range checks {
		derived, err := c.fn(cases.series, column, c.window)
		if err != nil {
			p.errorf("%s: %v", c.name, err)
			continue
		}
		if len(derived) != cases.series.Len() {
			p.errorf("%s: %d values for %d rows", c.name, len(derived), cases.series.Len())
		}
		if cases.series.Len() >= c.window && !derived.Last().Valid {
			p.notef("%s: latest value undefined (missing %s in the last %d rows)", c.name, column, c.window)
		}
	}
	return p
}
