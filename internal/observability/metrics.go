package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "covid_report"

// Metrics holds the Prometheus counters, histograms, and gauges for one report run.
type Metrics struct {
	FetchAttempts *prometheus.CounterVec   // labels: feed={cases,hospitalizations}, outcome={success,retry,error}; error counts fetches that gave up
	FetchDuration *prometheus.HistogramVec // labels: feed
	FeedRecords   *prometheus.GaugeVec     // labels: feed

	RunDuration        prometheus.Gauge
	RunSuccess         prometheus.Gauge
	LastSuccessSeconds prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates all report metrics and registers them with a dedicated
// registry, which is what Push ships to the Pushgateway.
func NewMetrics() *Metrics {
	m := newMetrics(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Duration of a single feed request attempt.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)
	m.registry = prometheus.NewRegistry()
	m.registry.MustRegister(
		m.FetchAttempts,
		m.FetchDuration,
		m.FeedRecords,
		m.RunDuration,
		m.RunSuccess,
		m.LastSuccessSeconds,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics for use in tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics(prometheus.HistogramOpts{Namespace: namespace, Name: "fetch_duration_seconds"})
}

// Gatherer returns the registry holding the metrics, or nil for test metrics.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	if m.registry == nil {
		return nil
	}
	return m.registry
}

func newMetrics(fetchDuration prometheus.HistogramOpts) *Metrics {
	return &Metrics{
		FetchAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_attempts_total",
			Help:      "Feed request attempts by feed and outcome.",
		}, []string{"feed", "outcome"}),
		FetchDuration: prometheus.NewHistogramVec(fetchDuration, []string{"feed"}),
		FeedRecords: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "feed_records",
			Help:      "Daily records built from the most recent fetch of each feed.",
		}, []string{"feed"}),
		RunDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last report run.",
		}),
		RunSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_success",
			Help:      "1 if the last report run completed, 0 if it aborted.",
		}),
		LastSuccessSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last completed report run.",
		}),
	}
}
