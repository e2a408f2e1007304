package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/covid-report-etl/internal/config"
	"github.com/couchcryptid/covid-report-etl/internal/domain"
	"github.com/couchcryptid/covid-report-etl/internal/observability"
)

// Feed names used in errors, logs and metric labels.
const (
	FeedCases            = "cases"
	FeedHospitalizations = "hospitalizations"
)

// Fetcher retrieves the raw body of a feed.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Publisher receives the finished report. Rendering lives behind this interface.
type Publisher interface {
	Publish(ctx context.Context, report domain.Report) error
}

// Options are the per-run settings of a Pipeline.
type Options struct {
	CaseFeedURL     string
	HospitalFeedURL string
	Build           domain.BuildOptions
	CaseColumn      string
	AverageWindow   int
	QuarantineDays  int
	PandemicStart   domain.Date
	// RequireAligned aborts the run when the two series cannot be paired by
	// date. When false a misalignment is only logged.
	RequireAligned bool
	// ReportDays limits the published report to its most recent days.
	// Zero publishes the full history.
	ReportDays int
}

// OptionsFromConfig maps the loaded configuration onto run options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		CaseFeedURL:     cfg.CaseFeedURL,
		HospitalFeedURL: cfg.HospitalFeedURL,
		Build:           domain.BuildOptions{DateField: cfg.DateField, Location: cfg.FeedLocation},
		CaseColumn:      cfg.CaseColumn,
		AverageWindow:   cfg.AverageWindow,
		QuarantineDays:  cfg.QuarantineDays,
		PandemicStart:   cfg.PandemicStart,
		RequireAligned:  cfg.RequireAligned,
		ReportDays:      cfg.ReportDays,
	}
}

// Pipeline runs one fetch-parse-build-derive-publish cycle.
type Pipeline struct {
	cases      Fetcher
	hospital   Fetcher
	opts       Options
	publishers []Publisher
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// New creates a Pipeline. The two fetchers may be the same value.
func New(cases, hospital Fetcher, opts Options, logger *slog.Logger, metrics *observability.Metrics, publishers ...Publisher) *Pipeline {
	return &Pipeline{
		cases:      cases,
		hospital:   hospital,
		opts:       opts,
		publishers: publishers,
		logger:     logger,
		metrics:    metrics,
	}
}

// Run builds both series concurrently, derives the case statistics and hands
// the report to every publisher. Any stage failure aborts the whole run and
// cancels the other feed.
func (p *Pipeline) Run(ctx context.Context) (domain.Report, error) {
	start := domain.Now()
	p.metrics.RunSuccess.Set(0)
	defer func() { p.metrics.RunDuration.Set(domain.Now().Sub(start).Seconds()) }()

	report, err := p.run(ctx)
	if err != nil {
		p.logger.Error("report run failed", "error", err)
		return domain.Report{}, err
	}

	p.metrics.RunSuccess.Set(1)
	p.metrics.LastSuccessSeconds.Set(float64(report.GeneratedAt.Unix()))
	p.logger.Info("report run complete", "pandemic_day", report.PandemicDay, "duration", domain.Now().Sub(start))
	return report, nil
}

func (p *Pipeline) run(ctx context.Context) (domain.Report, error) {
	generatedAt := domain.Now()
	pandemicDay := domain.PandemicDay(p.opts.PandemicStart, p.opts.Build.Location)
	p.logger.Info("report run started", "pandemic_day", pandemicDay)

	var cases, hospital domain.TimeSeries
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s, err := p.chain(gctx, FeedCases, p.cases, p.opts.CaseFeedURL)
		cases = s
		return err
	})
	g.Go(func() error {
		s, err := p.chain(gctx, FeedHospitalizations, p.hospital, p.opts.HospitalFeedURL)
		hospital = s
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.Report{}, err
	}

	if err := domain.CheckAlignment(cases, hospital); err != nil {
		if p.opts.RequireAligned {
			return domain.Report{}, &StageError{Stage: StageAlign, Err: err}
		}
		p.logger.Warn("series paired by row index despite misalignment", "error", err)
	}

	average, err := domain.RollingMean(cases, p.opts.CaseColumn, p.opts.AverageWindow)
	if err != nil {
		return domain.Report{}, &StageError{Feed: FeedCases, Stage: StageDerive, URL: p.opts.CaseFeedURL, Err: err}
	}
	active, err := domain.ActiveEstimate(cases, p.opts.CaseColumn, p.opts.QuarantineDays)
	if err != nil {
		return domain.Report{}, &StageError{Feed: FeedCases, Stage: StageDerive, URL: p.opts.CaseFeedURL, Err: err}
	}

	report := domain.Report{
		GeneratedAt:      generatedAt,
		PandemicDay:      pandemicDay,
		AverageWindow:    p.opts.AverageWindow,
		QuarantineDays:   p.opts.QuarantineDays,
		Cases:            cases,
		Hospitalizations: hospital,
		CaseAverage:      average,
		ActiveEstimate:   active,
	}
	if p.opts.ReportDays > 0 {
		report = report.Tail(p.opts.ReportDays)
	}

	for _, pub := range p.publishers {
		if err := pub.Publish(ctx, report); err != nil {
			return domain.Report{}, &StageError{Stage: StagePublish, Err: err}
		}
	}
	return report, nil
}

// chain runs fetch, parse and build for one feed.
func (p *Pipeline) chain(ctx context.Context, feed string, f Fetcher, url string) (domain.TimeSeries, error) {
	raw, err := f.Fetch(ctx, url)
	if err != nil {
		return nil, &StageError{Feed: feed, Stage: StageFetch, URL: url, Err: err}
	}

	records, err := domain.ParseFeatures(raw)
	if err != nil {
		return nil, &StageError{Feed: feed, Stage: StageParse, URL: url, Err: err}
	}

	series, err := domain.BuildSeries(records, p.opts.Build)
	if err != nil {
		return nil, &StageError{Feed: feed, Stage: StageBuild, URL: url, Err: err}
	}

	p.metrics.FeedRecords.WithLabelValues(feed).Set(float64(len(series)))
	p.inspect(feed, series)
	return series, nil
}

// inspect logs irregularities the series keeps: the data is passed on as-is.
func (p *Pipeline) inspect(feed string, s domain.TimeSeries) {
	logger := p.logger.With("feed", feed)
	for _, gap := range domain.FindGaps(s) {
		logger.Warn("date gap in feed", "index", gap.Index, "from", gap.From, "to", gap.To, "missing_days", gap.Missing)
	}
	for _, dup := range domain.FindDuplicates(s) {
		logger.Warn("duplicate date in feed", "date", dup.Date, "indexes", dup.Indexes)
	}
	if idx := domain.FindOutOfOrder(s); len(idx) > 0 {
		logger.Warn("feed rows out of date order", "count", len(idx), "first_index", idx[0])
	}
	logger.Debug("series built", "records", len(s))
}

// IsStage reports whether err was raised by the given stage.
func IsStage(err error, stage string) bool {
	var se *StageError
	return errors.As(err, &se) && se.Stage == stage
}
