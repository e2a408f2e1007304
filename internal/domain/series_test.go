package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2020-03-11 00:00 America/New_York (EDT), as published by the provider.
const march11Local = 1583899200000

func loadLocation(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	require.NoError(t, err)
	return loc
}

func TestBuildSeries(t *testing.T) {
	ny := loadLocation(t, "America/New_York")
	raw := `{"features":[
		{"attributes":{"date":1583899200000,"positive_cases":2,"daily_deaths":0,"total_deaths":0,"county":"Chittenden","hd_note":null}},
		{"attributes":{"date":1583985600000,"positive_cases":5,"daily_deaths":1,"total_deaths":1}}
	]}`
	records, err := ParseFeatures(raw)
	require.NoError(t, err)

	series, err := BuildSeries(records, BuildOptions{Location: ny})
	require.NoError(t, err)

	want := TimeSeries{
		{
			Date:   Date{Year: 2020, Month: time.March, Day: 11},
			Fields: map[string]float64{"positive_cases": 2, "daily_deaths": 0, "total_deaths": 0},
			Labels: map[string]string{"county": "Chittenden"},
		},
		{
			Date:   Date{Year: 2020, Month: time.March, Day: 12},
			Fields: map[string]float64{"positive_cases": 5, "daily_deaths": 1, "total_deaths": 1},
		},
	}
	if diff := cmp.Diff(want, series); diff != "" {
		t.Fatalf("series mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildSeries_LengthMatchesFeatures(t *testing.T) {
	for _, n := range []int{0, 1, 7, 31} {
		raw := syntheticFeed(n, 0)
		var env struct {
			Features []json.RawMessage `json:"features"`
		}
		require.NoError(t, json.Unmarshal([]byte(raw), &env))

		records, err := ParseFeatures(raw)
		require.NoError(t, err)
		series, err := BuildSeries(records, BuildOptions{Location: time.UTC})
		require.NoError(t, err)
		assert.Len(t, series, len(env.Features))
	}
}

func TestBuildSeries_PreservesSourceOrder(t *testing.T) {
	records := []Attributes{
		{"date": json.Number("1584057600000"), "positive_cases": json.Number("3")},
		{"date": json.Number("1583971200000"), "positive_cases": json.Number("1")},
		{"date": json.Number("1583971200000"), "positive_cases": json.Number("2")},
	}
	series, err := BuildSeries(records, BuildOptions{Location: time.UTC})
	require.NoError(t, err)

	assert.Equal(t, []Date{
		{Year: 2020, Month: time.March, Day: 13},
		{Year: 2020, Month: time.March, Day: 12},
		{Year: 2020, Month: time.March, Day: 12},
	}, series.Dates())
	assert.Equal(t, []float64{3, 1, 2}, series.Column("positive_cases"))
}

// The provider stamps local midnight. The calendar date depends on the zone
// the timestamp is read in, so a westward zone shifts the day back.
func TestEsriDate_ZoneDependence(t *testing.T) {
	cases := []struct {
		zone string
		want Date
	}{
		{zone: "America/New_York", want: Date{Year: 2020, Month: time.March, Day: 11}},
		{zone: "UTC", want: Date{Year: 2020, Month: time.March, Day: 11}},
		{zone: "Europe/Paris", want: Date{Year: 2020, Month: time.March, Day: 11}},
		{zone: "America/Los_Angeles", want: Date{Year: 2020, Month: time.March, Day: 10}},
	}
	for _, tc := range cases {
		t.Run(tc.zone, func(t *testing.T) {
			assert.Equal(t, tc.want, EsriDate(march11Local, loadLocation(t, tc.zone)))
		})
	}
}

func TestBuildSeries_DefaultsToLocalZone(t *testing.T) {
	records := []Attributes{{"date": json.Number(fmt.Sprint(march11Local))}}
	series, err := BuildSeries(records, BuildOptions{})
	require.NoError(t, err)
	assert.Equal(t, DateOf(time.UnixMilli(march11Local).In(time.Local)), series[0].Date)
}

func TestBuildSeries_FractionalMillisTruncate(t *testing.T) {
	records := []Attributes{{"date": json.Number("86399999.9")}}
	series, err := BuildSeries(records, BuildOptions{Location: time.UTC})
	require.NoError(t, err)
	assert.Equal(t, Date{Year: 1970, Month: time.January, Day: 1}, series[0].Date)
}

func TestBuildSeries_SchemaErrors(t *testing.T) {
	t.Run("missing date", func(t *testing.T) {
		_, err := BuildSeries([]Attributes{{"positive_cases": json.Number("1")}}, BuildOptions{})
		var serr *SchemaError
		require.ErrorAs(t, err, &serr)
		assert.Equal(t, "features[0].attributes.date", serr.Path)
	})

	t.Run("null date", func(t *testing.T) {
		_, err := BuildSeries([]Attributes{{"date": json.Number("1")}, {"date": nil}}, BuildOptions{})
		var serr *SchemaError
		require.ErrorAs(t, err, &serr)
		assert.Equal(t, "features[1].attributes.date", serr.Path)
	})

	t.Run("string date", func(t *testing.T) {
		_, err := BuildSeries([]Attributes{{"report_date": "2020-03-11"}}, BuildOptions{DateField: "report_date"})
		var serr *SchemaError
		require.ErrorAs(t, err, &serr)
		assert.Contains(t, serr.Error(), "report_date")
	})
}

func TestCheckAlignment(t *testing.T) {
	cases := casesSeries(1, 2, 3)

	t.Run("aligned", func(t *testing.T) {
		require.NoError(t, CheckAlignment(cases, casesSeries(0, 0, 0)))
	})

	t.Run("length mismatch", func(t *testing.T) {
		err := CheckAlignment(cases, casesSeries(0, 0))
		var aerr *AlignmentError
		require.ErrorAs(t, err, &aerr)
		assert.Equal(t, 3, aerr.CaseLen)
		assert.Equal(t, 2, aerr.HospitalLen)
		assert.Empty(t, aerr.Mismatches)
		assert.Contains(t, err.Error(), "3 case rows vs 2 hospitalization rows")
	})

	t.Run("date mismatch", func(t *testing.T) {
		hosp := casesSeries(0, 0, 0)
		hosp[1].Date = hosp[1].Date.AddDays(1)
		err := CheckAlignment(cases, hosp)
		var aerr *AlignmentError
		require.ErrorAs(t, err, &aerr)
		require.Len(t, aerr.Mismatches, 1)
		assert.Equal(t, 1, aerr.Mismatches[0].Index)
		assert.Contains(t, err.Error(), "first at index 1 (2020-03-12 vs 2020-03-13)")
	})

	t.Run("both empty", func(t *testing.T) {
		require.NoError(t, CheckAlignment(TimeSeries{}, nil))
	})
}

func TestFindGapsDuplicatesAndDisorder(t *testing.T) {
	s := casesSeries(1, 2, 3, 4, 5)
	s[2].Date = s[2].Date.AddDays(3) // 03-13 -> 03-16
	s[4].Date = s[1].Date            // 03-15 -> 03-12

	gaps := FindGaps(s)
	require.Len(t, gaps, 1)
	assert.Equal(t, Gap{
		Index:   2,
		From:    Date{Year: 2020, Month: time.March, Day: 12},
		To:      Date{Year: 2020, Month: time.March, Day: 16},
		Missing: 3,
	}, gaps[0])

	assert.Equal(t, []Duplicate{{Date: s[1].Date, Indexes: []int{1, 4}}}, FindDuplicates(s))
	assert.Equal(t, []int{3, 4}, FindOutOfOrder(s))

	clean := casesSeries(1, 2, 3)
	assert.Empty(t, FindGaps(clean))
	assert.Empty(t, FindDuplicates(clean))
	assert.Empty(t, FindOutOfOrder(clean))
}

// syntheticFeed renders n consecutive UTC days starting 2020-03-11 with case
// counts offset+1..offset+n.
func syntheticFeed(n, offset int) string {
	start := time.Date(2020, time.March, 11, 0, 0, 0, 0, time.UTC)
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf(`{"attributes":{"date":%d,"positive_cases":%d}}`,
			start.AddDate(0, 0, i).UnixMilli(), offset+i+1)
	}
	return `{"features":[` + strings.Join(parts, ",") + `]}`
}
