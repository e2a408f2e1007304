package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/covid-report-etl/internal/domain"
)

// LogPublisher writes a one-line summary of each report.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (l *LogPublisher) Publish(_ context.Context, r domain.Report) error {
	attrs := []any{
		"pandemic_day", r.PandemicDay,
		"case_rows", len(r.Cases),
		"hospitalization_rows", len(r.Hospitalizations),
	}
	if n := len(r.Cases); n > 0 {
		attrs = append(attrs, "latest_date", r.Cases[n-1].Date)
	}
	if v := r.CaseAverage.Last(); v.Valid {
		attrs = append(attrs, "case_average", v.Value)
	}
	if v := r.ActiveEstimate.Last(); v.Valid {
		attrs = append(attrs, "active_estimate", v.Value)
	}
	l.logger.Info("report ready", attrs...)
	return nil
}
