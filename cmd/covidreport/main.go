// Command covidreport fetches the Vermont COVID-19 case and hospitalization
// feeds, derives the 7-day case average and the active-case estimate, and
// hands the report to the configured publishers. It runs once and exits
// non-zero if any stage fails.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/couchcryptid/covid-report-etl/internal/adapter/arcgis"
	kafkaadapter "github.com/couchcryptid/covid-report-etl/internal/adapter/kafka"
	"github.com/couchcryptid/covid-report-etl/internal/config"
	"github.com/couchcryptid/covid-report-etl/internal/observability"
	"github.com/couchcryptid/covid-report-etl/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runErr := run(ctx, cfg, logger, metrics)

	if cfg.PushgatewayURL != "" {
		pushCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		if err := observability.Push(pushCtx, cfg.PushgatewayURL, metrics); err != nil {
			logger.Error("metrics push failed", "error", err)
		}
		cancel()
	}

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "covidreport: %v\n", runErr)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) error {
	caseFeed := arcgis.NewClient(pipeline.FeedCases, cfg, logger, metrics)
	hospitalFeed := arcgis.NewClient(pipeline.FeedHospitalizations, cfg, logger, metrics)

	publishers := []pipeline.Publisher{pipeline.NewLogPublisher(logger)}
	if cfg.KafkaEnabled() {
		writer := kafkaadapter.NewWriter(cfg, logger)
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}()
		publishers = append(publishers, writer)
		logger.Info("kafka publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaReportTopic)
	}

	p := pipeline.New(caseFeed, hospitalFeed, pipeline.OptionsFromConfig(cfg), logger, metrics, publishers...)
	_, err := p.Run(ctx)
	return err
}
