package arcgis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/covid-report-etl/internal/config"
	"github.com/couchcryptid/covid-report-etl/internal/domain"
	"github.com/couchcryptid/covid-report-etl/internal/observability"
)

// maxErrorBody caps how much of a failed response body ends up in an error.
const maxErrorBody = 512

// Client fetches ArcGIS FeatureServer query responses for one feed.
// It implements pipeline.Fetcher.
type Client struct {
	feed        string
	httpClient  *http.Client
	userAgent   string
	maxAttempts int
	retryDelay  time.Duration
	policy      string
	clock       clockwork.Clock
	logger      *slog.Logger
	metrics     *observability.Metrics
}

// NewClient creates a feed client using the fetch settings in cfg. The feed
// name labels logs and metrics.
func NewClient(feed string, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		feed: feed,
		httpClient: &http.Client{
			Timeout: cfg.FetchTimeout,
		},
		userAgent:   cfg.UserAgent,
		maxAttempts: cfg.FetchMaxAttempts,
		retryDelay:  cfg.FetchRetryDelay,
		policy:      cfg.FetchRetryPolicy,
		clock:       clockwork.NewRealClock(),
		logger:      logger.With("feed", feed),
		metrics:     metrics,
	}
}

// Fetch GETs url and returns the response body. Failed attempts are retried
// after a fixed delay until maxAttempts is reached, at which point a
// *domain.FetchError describing the last failure is returned.
func (c *Client) Fetch(ctx context.Context, url string) (string, error) {
	var (
		lastErr    error
		lastStatus int
		attempts   int
	)
	for {
		attempts++
		body, status, err := c.do(ctx, url)
		if err == nil {
			c.metrics.FetchAttempts.WithLabelValues(c.feed, "success").Inc()
			c.logger.Debug("feed fetched", "url", url, "attempt", attempts, "bytes", len(body))
			return body, nil
		}
		lastErr, lastStatus = err, status

		if ctx.Err() != nil {
			lastErr = ctx.Err()
			break
		}
		if !c.retryable(status) {
			c.logger.Warn("feed request failed, not retrying", "url", url, "attempt", attempts, "status", status, "error", err)
			break
		}
		if attempts >= c.maxAttempts {
			break
		}
		c.metrics.FetchAttempts.WithLabelValues(c.feed, "retry").Inc()
		c.logger.Warn("feed request failed, retrying", "url", url, "attempt", attempts, "retry_in", c.retryDelay, "error", err)
		if err := c.wait(ctx); err != nil {
			lastErr = err
			break
		}
	}
	c.metrics.FetchAttempts.WithLabelValues(c.feed, "error").Inc()
	return "", &domain.FetchError{URL: url, Attempts: attempts, StatusCode: lastStatus, Err: lastErr}
}

// retryable applies the retry policy to a failed attempt. A zero status
// means the request never produced a response.
func (c *Client) retryable(status int) bool {
	if c.policy != config.RetryTransient {
		return true
	}
	switch {
	case status == 0:
		return true
	case status == http.StatusRequestTimeout, status == http.StatusTooManyRequests:
		return true
	case status >= 500:
		return true
	default:
		return false
	}
}

func (c *Client) wait(ctx context.Context) error {
	if c.retryDelay <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.clock.After(c.retryDelay):
		return nil
	}
}

func (c *Client) do(ctx context.Context, url string) (string, int, error) {
	start := c.clock.Now()
	defer func() {
		c.metrics.FetchDuration.WithLabelValues(c.feed).Observe(c.clock.Since(start).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("%s feed request: %w", c.feed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", resp.StatusCode, &StatusError{Code: resp.StatusCode, Body: string(body)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", 0, fmt.Errorf("read %s feed body: %w", c.feed, err)
	}
	return string(body), resp.StatusCode, nil
}

// StatusError is a non-2xx response from the feed provider.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("arcgis API error: status %d: %s", e.Code, e.Body)
}

// IsStatus reports whether err carries a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}
