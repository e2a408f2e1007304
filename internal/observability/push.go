package observability

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus/push"
)

// PushJob is the Pushgateway job name for report runs.
const PushJob = "covid_report"

// Push sends the run's metrics to a Pushgateway. The job exits right after a
// run, so nothing is left to scrape.
func Push(ctx context.Context, gatewayURL string, m *Metrics) error {
	g := m.Gatherer()
	if g == nil {
		return errors.New("metrics have no registry to push")
	}
	if err := push.New(gatewayURL, PushJob).Gatherer(g).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics to %s: %w", gatewayURL, err)
	}
	return nil
}
