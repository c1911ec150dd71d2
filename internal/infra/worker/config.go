// Package worker holds the ingestion worker's runtime configuration and its
// monitoring HTTP server. The worker either runs one ingestion cycle and
// exits, or stays resident and runs cycles on a cron schedule.
package worker

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"pressfeed/internal/pkg/config"
)

// Config holds the configuration for the ingestion worker.
//
// Loading is fail-open for tunables: an invalid value falls back to its
// default with a warning. The classification endpoint and default image have
// no sensible defaults, so Validate rejects a config without them.
type Config struct {
	// CronSchedule is the cron expression for scheduled ingestion, e.g.
	// "30 5 * * *". Empty means run one cycle and exit.
	CronSchedule string

	// Timezone is the IANA timezone the cron schedule is evaluated in.
	// Default: "UTC"
	Timezone string

	// RunTimeout bounds one full ingestion cycle. Default: 30 minutes.
	RunTimeout time.Duration

	// FreshnessWindow bounds how old an entry may be and still be ingested.
	// Default: 24 hours.
	FreshnessWindow time.Duration

	// FetchTimeout bounds a single feed document fetch. Default: 5 seconds.
	FetchTimeout time.Duration

	// ScrapeTimeout bounds a single article page fetch during image
	// resolution. Default: 10 seconds.
	ScrapeTimeout time.Duration

	// ScrapeRate caps article page fetches per second across the run.
	// Default: 4.
	ScrapeRate int

	// ClassifyParallelism caps concurrent classification calls. Default: 2.
	ClassifyParallelism int

	// ClassifyTimeout bounds a single classification HTTP call. Inference
	// can be slow on cold models, so this is far looser than FetchTimeout.
	// Default: 30 seconds.
	ClassifyTimeout time.Duration

	// ClassifyEndpoint is the zero-shot classification endpoint URL.
	// Required.
	ClassifyEndpoint string

	// ClassifyToken is the bearer token for the classification endpoint.
	// Empty means unauthenticated.
	ClassifyToken string

	// MonitorPort is the port for the health and metrics HTTP server, used
	// only in scheduled mode. Default: 9091.
	MonitorPort int

	// LogDir is where per-run log files go. Empty disables file logging.
	LogDir string

	// DefaultImage is the last-resort article image URL. Required.
	DefaultImage string

	// BackupImages maps a feed region to a fallback image URL tried before
	// the default.
	BackupImages map[string]string

	// SlackWebhookURL receives the run summary. Empty disables the
	// notification.
	SlackWebhookURL string
}

// DefaultConfig returns a Config with production defaults. ClassifyEndpoint
// and DefaultImage stay empty; they must come from the environment.
func DefaultConfig() Config {
	return Config{
		CronSchedule:        "",
		Timezone:            "UTC",
		RunTimeout:          30 * time.Minute,
		FreshnessWindow:     24 * time.Hour,
		FetchTimeout:        5 * time.Second,
		ScrapeTimeout:       10 * time.Second,
		ScrapeRate:          4,
		ClassifyParallelism: 2,
		ClassifyTimeout:     30 * time.Second,
		MonitorPort:         9091,
	}
}

// Validate checks the configuration. All violations are collected so an
// operator sees every problem at once.
func (c *Config) Validate() error {
	var errs []error

	if c.CronSchedule != "" {
		if err := config.ValidateCronSchedule(c.CronSchedule); err != nil {
			errs = append(errs, fmt.Errorf("cron schedule: %w", err))
		}
	}
	if err := config.ValidateTimezone(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("timezone: %w", err))
	}
	if err := config.ValidatePositiveDuration(c.RunTimeout); err != nil {
		errs = append(errs, fmt.Errorf("run timeout: %w", err))
	}
	if err := config.ValidatePositiveDuration(c.FreshnessWindow); err != nil {
		errs = append(errs, fmt.Errorf("freshness window: %w", err))
	}
	if err := config.ValidatePositiveDuration(c.FetchTimeout); err != nil {
		errs = append(errs, fmt.Errorf("fetch timeout: %w", err))
	}
	if err := config.ValidatePositiveDuration(c.ScrapeTimeout); err != nil {
		errs = append(errs, fmt.Errorf("scrape timeout: %w", err))
	}
	if err := config.ValidateIntRange(c.ScrapeRate, 1, 50); err != nil {
		errs = append(errs, fmt.Errorf("scrape rate: %w", err))
	}
	if err := config.ValidateIntRange(c.ClassifyParallelism, 1, 16); err != nil {
		errs = append(errs, fmt.Errorf("classify parallelism: %w", err))
	}
	if err := config.ValidatePositiveDuration(c.ClassifyTimeout); err != nil {
		errs = append(errs, fmt.Errorf("classify timeout: %w", err))
	}
	if c.ClassifyEndpoint == "" {
		errs = append(errs, errors.New("classify endpoint is required"))
	} else if err := config.ValidateHTTPURL(c.ClassifyEndpoint); err != nil {
		errs = append(errs, fmt.Errorf("classify endpoint: %w", err))
	}
	if err := config.ValidateIntRange(c.MonitorPort, 1024, 65535); err != nil {
		errs = append(errs, fmt.Errorf("monitor port: %w", err))
	}
	if c.DefaultImage == "" {
		errs = append(errs, errors.New("default image is required"))
	} else if err := config.ValidateHTTPURL(c.DefaultImage); err != nil {
		errs = append(errs, fmt.Errorf("default image: %w", err))
	}
	for region, img := range c.BackupImages {
		if err := config.ValidateHTTPURL(img); err != nil {
			errs = append(errs, fmt.Errorf("backup image for region %q: %w", region, err))
		}
	}
	if c.SlackWebhookURL != "" {
		if err := config.ValidateHTTPURL(c.SlackWebhookURL); err != nil {
			errs = append(errs, fmt.Errorf("slack webhook: %w", err))
		}
	}

	return errors.Join(errs...)
}

// LoadConfigFromEnv loads the worker configuration from environment
// variables on top of the defaults. Invalid tunables fall back with a
// warning; the returned config still needs Validate for the required
// fields.
//
// Environment variables:
//   - INGEST_CRON: Cron expression; empty runs one cycle and exits
//   - INGEST_TIMEZONE: IANA timezone for the schedule (default: "UTC")
//   - INGEST_RUN_TIMEOUT: Duration, e.g. "30m"
//   - FRESHNESS_WINDOW: Duration, e.g. "24h"
//   - FETCH_TIMEOUT: Duration, e.g. "5s"
//   - SCRAPE_TIMEOUT: Duration, e.g. "10s"
//   - SCRAPE_RATE: Page fetches per second, 1-50
//   - CLASSIFY_PARALLELISM: Concurrent classification calls, 1-16
//   - CLASSIFY_TIMEOUT: Duration, e.g. "30s"
//   - CLASSIFY_ENDPOINT: Zero-shot classification endpoint URL (required)
//   - CLASSIFY_TOKEN: Bearer token for the endpoint
//   - MONITOR_PORT: Health and metrics port, 1024-65535
//   - LOG_DIR: Per-run log file directory; empty disables file logging
//   - DEFAULT_IMAGE: Last-resort article image URL (required)
//   - BACKUP_IMAGES: Region fallbacks, "na=https://...,eu=https://..."
//   - SLACK_WEBHOOK_URL: Run summary webhook; empty disables it
func LoadConfigFromEnv(logger *slog.Logger) Config {
	cfg := DefaultConfig()

	cfg.CronSchedule = loadString(logger, "INGEST_CRON", cfg.CronSchedule, config.ValidateCronSchedule)
	cfg.Timezone = loadString(logger, "INGEST_TIMEZONE", cfg.Timezone, config.ValidateTimezone)
	cfg.RunTimeout = loadDuration(logger, "INGEST_RUN_TIMEOUT", cfg.RunTimeout)
	cfg.FreshnessWindow = loadDuration(logger, "FRESHNESS_WINDOW", cfg.FreshnessWindow)
	cfg.FetchTimeout = loadDuration(logger, "FETCH_TIMEOUT", cfg.FetchTimeout)
	cfg.ScrapeTimeout = loadDuration(logger, "SCRAPE_TIMEOUT", cfg.ScrapeTimeout)
	cfg.ScrapeRate = loadInt(logger, "SCRAPE_RATE", cfg.ScrapeRate, 1, 50)
	cfg.ClassifyParallelism = loadInt(logger, "CLASSIFY_PARALLELISM", cfg.ClassifyParallelism, 1, 16)
	cfg.ClassifyTimeout = loadDuration(logger, "CLASSIFY_TIMEOUT", cfg.ClassifyTimeout)
	cfg.ClassifyEndpoint = loadString(logger, "CLASSIFY_ENDPOINT", cfg.ClassifyEndpoint, config.ValidateHTTPURL)
	cfg.ClassifyToken = config.LoadEnvString("CLASSIFY_TOKEN", cfg.ClassifyToken, nil).Value
	cfg.MonitorPort = loadInt(logger, "MONITOR_PORT", cfg.MonitorPort, 1024, 65535)
	cfg.LogDir = config.LoadEnvString("LOG_DIR", cfg.LogDir, nil).Value
	cfg.DefaultImage = loadString(logger, "DEFAULT_IMAGE", cfg.DefaultImage, config.ValidateHTTPURL)
	cfg.SlackWebhookURL = loadString(logger, "SLACK_WEBHOOK_URL", cfg.SlackWebhookURL, config.ValidateHTTPURL)

	images := config.LoadEnvStringMap("BACKUP_IMAGES", cfg.BackupImages)
	cfg.BackupImages = images.Value
	warnFallback(logger, images.Warning, images.FallbackApplied)

	return cfg
}

func loadString(logger *slog.Logger, key, def string, validator func(string) error) string {
	r := config.LoadEnvString(key, def, validator)
	warnFallback(logger, r.Warning, r.FallbackApplied)
	return r.Value
}

func loadInt(logger *slog.Logger, key string, def, min, max int) int {
	r := config.LoadEnvInt(key, def, func(v int) error {
		return config.ValidateIntRange(v, min, max)
	})
	warnFallback(logger, r.Warning, r.FallbackApplied)
	return r.Value
}

func loadDuration(logger *slog.Logger, key string, def time.Duration) time.Duration {
	r := config.LoadEnvDuration(key, def, config.ValidatePositiveDuration)
	warnFallback(logger, r.Warning, r.FallbackApplied)
	return r.Value
}

func warnFallback(logger *slog.Logger, warning string, applied bool) {
	if applied {
		logger.Warn("configuration fallback applied", slog.String("reason", warning))
	}
}
