// Package domain models the Vermont Department of Health COVID-19 daily
// count feeds and the statistics derived from them.
//
// # Data Source
//
// Both feeds are ArcGIS FeatureServer query endpoints published on
// geodata.vermont.gov:
//
//	VIEW_EPI_DailyCount_PUBLIC       daily cases and deaths
//	VIEW_EMR_Hospitalization_PUBLIC  hospital census and ICU counts
//
// A query with f=json returns a feature collection:
//
//	{"features": [{"attributes": {"date": 1583899200000, "positive_cases": 2, ...}}, ...]}
//
// Only the attributes mapping of each feature is used. Field names are
// provider-defined and passed through untouched; the pipeline reads just the
// date field and whichever numeric column a derivation is asked for.
//
// # Dates
//
// The date attribute is an Esri timestamp: milliseconds since the Unix epoch.
// It is converted to a calendar date in a configurable zone (the process
// local zone by default) and the time of day is dropped. The provider
// publishes local midnight, so a zone west of the publisher can shift every
// record back one day. See [BuildSeries].
//
// # Alignment
//
// Records keep source order. Nothing is sorted, deduplicated or gap-filled,
// and the case and hospitalization series are paired by row index. Use
// [CheckAlignment] to assert that the pairing is also a pairing by date, and
// [FindGaps] / [FindDuplicates] to report irregularities.
//
// # Derivations
//
// [RollingMean] is the trailing unweighted mean of new cases (7 days by
// default). [ActiveEstimate] is the trailing sum of new cases over the
// quarantine window (10 days by default), i.e. every case reported recently
// enough to still be considered active. Positions without a full window are
// invalid rather than zero.
package domain
