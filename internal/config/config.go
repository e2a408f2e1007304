package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"

	"github.com/couchcryptid/covid-report-etl/internal/domain"
)

// Feed endpoints published on geodata.vermont.gov.
const (
	// https://geodata.vermont.gov/datasets/vt-covid-19-daily-counts-table/data
	DefaultCaseFeedURL = "https://services1.arcgis.com/BkFxaEFNwHqX3tAw/arcgis/rest/services/VIEW_EPI_DailyCount_PUBLIC/FeatureServer/0/query?where=1%3D1&outFields=*&outSR=4326&f=json"
	// https://geodata.vermont.gov/datasets/vt-covid-19-hospitalizations-by-date-emr/data
	DefaultHospitalFeedURL = "https://services1.arcgis.com/BkFxaEFNwHqX3tAw/arcgis/rest/services/VIEW_EMR_Hospitalization_PUBLIC/FeatureServer/0/query?where=1%3D1&outFields=*&outSR=4326&f=json"

	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/74.0.3729.108 Safari/537.36"
)

// Retry policies for feed requests.
const (
	// RetryAny retries every failure, including permanent 4xx responses.
	RetryAny = "any"
	// RetryTransient retries network errors, 408, 429 and 5xx only.
	RetryTransient = "transient"
)

// Config holds all job settings, populated from environment variables.
type Config struct {
	CaseFeedURL     string
	HospitalFeedURL string
	UserAgent       string

	FetchMaxAttempts int
	FetchRetryDelay  time.Duration
	FetchTimeout     time.Duration
	FetchRetryPolicy string

	// FeedLocation is the zone Esri timestamps are read in.
	FeedLocation *time.Location
	DateField    string
	CaseColumn   string

	PandemicStart  domain.Date
	AverageWindow  int
	QuarantineDays int
	RequireAligned bool
	// ReportDays trims the published report to its last N days; 0 keeps all.
	ReportDays int

	// Report publishing. Empty KafkaBrokers disables the Kafka publisher.
	KafkaBrokers     []string
	KafkaReportTopic string

	// PushgatewayURL enables a metrics push at exit when set.
	PushgatewayURL string

	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	attempts, err := parseInt("FETCH_MAX_ATTEMPTS", 3, 1, 10)
	if err != nil {
		return nil, err
	}
	retryDelay, err := parseDuration("FETCH_RETRY_DELAY", "1s", true)
	if err != nil {
		return nil, err
	}
	fetchTimeout, err := parseDuration("FETCH_TIMEOUT", "60s", false)
	if err != nil {
		return nil, err
	}
	averageWindow, err := parseInt("AVERAGE_WINDOW", domain.DefaultAverageWindow, 1, 365)
	if err != nil {
		return nil, err
	}
	quarantineDays, err := parseInt("QUARANTINE_DAYS", domain.DefaultQuarantineDays, 1, 365)
	if err != nil {
		return nil, err
	}

	reportDays, err := parseInt("REPORT_DAYS", 0, 0, 10000)
	if err != nil {
		return nil, err
	}

	loc, err := parseLocation(sharedcfg.EnvOrDefault("FEED_TIMEZONE", "Local"))
	if err != nil {
		return nil, err
	}

	start, err := domain.ParseDate(sharedcfg.EnvOrDefault("PANDEMIC_START", domain.DefaultPandemicStart.String()))
	if err != nil {
		return nil, fmt.Errorf("invalid PANDEMIC_START: %w", err)
	}

	requireAligned, err := strconv.ParseBool(sharedcfg.EnvOrDefault("REQUIRE_ALIGNED", "true"))
	if err != nil {
		return nil, errors.New("invalid REQUIRE_ALIGNED")
	}

	var brokers []string
	if v := strings.TrimSpace(os.Getenv("KAFKA_BROKERS")); v != "" {
		brokers = sharedcfg.ParseBrokers(v)
	}

	cfg := &Config{
		CaseFeedURL:     sharedcfg.EnvOrDefault("CASE_FEED_URL", DefaultCaseFeedURL),
		HospitalFeedURL: sharedcfg.EnvOrDefault("HOSPITAL_FEED_URL", DefaultHospitalFeedURL),
		UserAgent:       sharedcfg.EnvOrDefault("USER_AGENT", DefaultUserAgent),

		FetchMaxAttempts: attempts,
		FetchRetryDelay:  retryDelay,
		FetchTimeout:     fetchTimeout,
		FetchRetryPolicy: sharedcfg.EnvOrDefault("FETCH_RETRY_POLICY", RetryAny),

		FeedLocation: loc,
		DateField:    sharedcfg.EnvOrDefault("DATE_FIELD", domain.DefaultDateField),
		CaseColumn:   sharedcfg.EnvOrDefault("CASE_COLUMN", domain.DefaultCaseColumn),

		PandemicStart:  start,
		AverageWindow:  averageWindow,
		QuarantineDays: quarantineDays,
		RequireAligned: requireAligned,
		ReportDays:     reportDays,

		KafkaBrokers:     brokers,
		KafkaReportTopic: sharedcfg.EnvOrDefault("KAFKA_REPORT_TOPIC", "covid-daily-report"),
		PushgatewayURL:   os.Getenv("PUSHGATEWAY_URL"),

		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
	}

	if cfg.CaseFeedURL == "" {
		return nil, errors.New("CASE_FEED_URL is required")
	}
	if cfg.HospitalFeedURL == "" {
		return nil, errors.New("HOSPITAL_FEED_URL is required")
	}
	if cfg.FetchRetryPolicy != RetryAny && cfg.FetchRetryPolicy != RetryTransient {
		return nil, fmt.Errorf("invalid FETCH_RETRY_POLICY %q: want %q or %q", cfg.FetchRetryPolicy, RetryAny, RetryTransient)
	}
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaReportTopic == "" {
		return nil, errors.New("KAFKA_REPORT_TOPIC is required when KAFKA_BROKERS is set")
	}

	return cfg, nil
}

// KafkaEnabled reports whether the report should be published to Kafka.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func parseInt(key string, def, lo, hi int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < lo || n > hi {
		return 0, fmt.Errorf("invalid %s: must be an integer in [%d, %d]", key, lo, hi)
	}
	return n, nil
}

func parseDuration(key, def string, allowZero bool) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d < 0 || (d == 0 && !allowZero) {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseLocation(name string) (*time.Location, error) {
	if name == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid FEED_TIMEZONE: %w", err)
	}
	return loc, nil
}
