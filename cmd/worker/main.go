// The worker binary runs the feed ingestion pipeline. Without INGEST_CRON it
// executes one cycle and exits; with a schedule it stays resident, runs
// cycles on the schedule, and serves health and metrics endpoints.
package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"pressfeed/internal/infra/adapter/persistence/postgres"
	"pressfeed/internal/infra/adapter/persistence/sqlite"
	"pressfeed/internal/infra/classifier"
	"pressfeed/internal/infra/db"
	"pressfeed/internal/infra/feedfetch"
	"pressfeed/internal/infra/fetcher"
	"pressfeed/internal/infra/notifier"
	workerPkg "pressfeed/internal/infra/worker"
	"pressfeed/internal/observability/logging"
	"pressfeed/internal/repository"
	"pressfeed/internal/usecase/ingest"
)

func main() {
	logger := logging.NewLogger()
	slog.SetDefault(logger)

	cfg := workerPkg.LoadConfigFromEnv(logger)
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid worker configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("worker configuration loaded",
		slog.String("cron_schedule", cfg.CronSchedule),
		slog.String("timezone", cfg.Timezone),
		slog.Duration("freshness_window", cfg.FreshnessWindow),
		slog.Int("classify_parallelism", cfg.ClassifyParallelism))

	database, feeds, articles := initStorage(logger)
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	slack := notifier.NewSlackNotifier(notifier.SlackConfig{WebhookURL: cfg.SlackWebhookURL})

	if cfg.CronSchedule == "" {
		if err := runCycle(logger, cfg, feeds, articles, slack); err != nil {
			logger.Error("ingestion run failed", slog.Any("error", err))
			os.Exit(1)
		}
		return
	}

	runScheduled(logger, cfg, feeds, articles, slack)
}

// initStorage opens the database per DB_DRIVER ("pgx" or "sqlite3"), applies
// migrations, and returns the matching repository implementations.
func initStorage(logger *slog.Logger) (*sql.DB, repository.FeedRepository, repository.ArticleRepository) {
	driver := os.Getenv("DB_DRIVER")
	if driver == "" {
		driver = "pgx"
	}
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		logger.Error("DB_DSN is required")
		os.Exit(1)
	}

	database, err := db.Open(driver, dsn, db.DefaultConnectionConfig())
	if err != nil {
		logger.Error("failed to open database", slog.Any("error", err))
		os.Exit(1)
	}

	switch driver {
	case "sqlite3":
		if err := db.MigrateUpSQLite(database); err != nil {
			logger.Error("migration failed", slog.Any("error", err))
			os.Exit(1)
		}
		return database, sqlite.NewFeedRepo(database), sqlite.NewArticleRepo(database)
	default:
		if err := db.MigrateUp(database); err != nil {
			logger.Error("migration failed", slog.Any("error", err))
			os.Exit(1)
		}
		return database, postgres.NewFeedRepo(database), postgres.NewArticleRepo(database)
	}
}

// buildIngestService wires one run's worth of pipeline components around the
// given logger, so each cycle's log lines land in that run's log file.
func buildIngestService(cfg workerPkg.Config, feeds repository.FeedRepository, articles repository.ArticleRepository, logger *slog.Logger) *ingest.Service {
	feedClient := &http.Client{
		Timeout: cfg.FetchTimeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12},
		},
	}

	return ingest.NewService(
		feeds,
		articles,
		feedfetch.NewFetcher(feedClient),
		classifier.NewZeroShot(cfg.ClassifyEndpoint, cfg.ClassifyToken, cfg.ClassifyTimeout),
		fetcher.NewImageScraper(cfg.ScrapeTimeout, float64(cfg.ScrapeRate)),
		logger,
		ingest.Config{
			FreshnessWindow:     cfg.FreshnessWindow,
			ClassifyParallelism: int64(cfg.ClassifyParallelism),
			DefaultImage:        cfg.DefaultImage,
			BackupImages:        cfg.BackupImages,
		},
	)
}

// runCycle executes one ingestion cycle under the run timeout, writing to a
// per-run log file and posting the summary to Slack if configured.
func runCycle(baseLogger *slog.Logger, cfg workerPkg.Config, feeds repository.FeedRepository, articles repository.ArticleRepository, slack *notifier.SlackNotifier) error {
	start := time.Now()
	runLogger, closeLog, err := logging.NewRunLogger(cfg.LogDir, start)
	if err != nil {
		baseLogger.Warn("run log file unavailable, logging to stdout only", slog.Any("error", err))
		runLogger = baseLogger
		closeLog = func() error { return nil }
	}
	defer func() {
		if err := closeLog(); err != nil {
			baseLogger.Error("failed to close run log file", slog.Any("error", err))
		}
	}()

	svc := buildIngestService(cfg, feeds, articles, runLogger)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RunTimeout)
	defer cancel()

	report, runErr := svc.Run(ctx)
	if report != nil && slack.Enabled() {
		notifyCtx, notifyCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer notifyCancel()
		if err := slack.NotifyRunSummary(notifyCtx, report.Summary()); err != nil {
			runLogger.Warn("run summary notification failed", slog.Any("error", err))
		}
	}
	return runErr
}

// runScheduled stays resident and runs cycles on the cron schedule until
// SIGINT or SIGTERM.
func runScheduled(logger *slog.Logger, cfg workerPkg.Config, feeds repository.FeedRepository, articles repository.ArticleRepository, slack *notifier.SlackNotifier) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Error("invalid timezone, using UTC", slog.String("timezone", cfg.Timezone), slog.Any("error", err))
		loc = time.UTC
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	monitor := workerPkg.NewMonitorServer(fmt.Sprintf(":%d", cfg.MonitorPort), logger)
	go func() {
		if err := monitor.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("monitor server failed", slog.Any("error", err))
		}
	}()

	c := cron.New(cron.WithLocation(loc))
	_, err = c.AddFunc(cfg.CronSchedule, func() {
		if err := runCycle(logger, cfg, feeds, articles, slack); err != nil {
			logger.Error("scheduled ingestion run failed", slog.Any("error", err))
		}
	})
	if err != nil {
		logger.Error("failed to register cron job", slog.Any("error", err))
		os.Exit(1)
	}
	c.Start()
	monitor.SetReady(true)
	logger.Info("worker started",
		slog.String("schedule", cfg.CronSchedule),
		slog.String("timezone", cfg.Timezone))

	<-ctx.Done()
	logger.Info("shutdown signal received, stopping scheduler")
	cronCtx := c.Stop()
	select {
	case <-cronCtx.Done():
		logger.Info("in-flight run finished")
	case <-time.After(cfg.RunTimeout):
		logger.Warn("gave up waiting for in-flight run")
	}
}
