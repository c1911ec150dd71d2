// The diagnosefeeds binary fetches every registered feed source once, active
// or not, and prints a per-feed health report. It is an administrative tool
// for reviewing the source table: which feeds still publish, which have gone
// dark, and which were auto-deactivated and could be revived.
//
// With -json the report is emitted as a JSON array instead of text.
package main

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"time"

	"pressfeed/internal/domain/entity"
	"pressfeed/internal/infra/adapter/persistence/postgres"
	"pressfeed/internal/infra/adapter/persistence/sqlite"
	"pressfeed/internal/infra/db"
	"pressfeed/internal/infra/feedfetch"
	"pressfeed/internal/observability/logging"
	"pressfeed/internal/repository"
)

// fetchGap is the pause between feeds so the tool does not hammer origin
// servers the way the concurrent worker deliberately never does either.
const fetchGap = 500 * time.Millisecond

type feedReport struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	URL          string `json:"url"`
	Active       bool   `json:"active"`
	FailureCount int    `json:"failure_count"`
	OK           bool   `json:"ok"`
	EntryCount   int    `json:"entry_count,omitempty"`
	LatestEntry  string `json:"latest_entry,omitempty"`
	ElapsedMS    int64  `json:"elapsed_ms"`
	Error        string `json:"error,omitempty"`
}

func main() {
	timeout := flag.Duration("timeout", 30*time.Second, "per-feed fetch timeout")
	asJSON := flag.Bool("json", false, "emit the report as JSON")
	flag.Parse()

	logger := logging.NewTextLogger()
	slog.SetDefault(logger)

	database, repo := openFeedRepo(logger)
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	feeds, err := repo.List(context.Background())
	if err != nil {
		logger.Error("failed to list feed sources", slog.Any("error", err))
		os.Exit(1)
	}
	if len(feeds) == 0 {
		logger.Info("no feed sources registered")
		return
	}

	fetcher := feedfetch.NewFetcher(&http.Client{
		Timeout: *timeout,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
		},
	})

	reports := make([]feedReport, 0, len(feeds))
	for i, feed := range feeds {
		logger.Info("checking feed",
			slog.Int("index", i+1),
			slog.Int("total", len(feeds)),
			slog.String("name", feed.Name))
		reports = append(reports, checkFeed(fetcher, feed, *timeout))
		if i < len(feeds)-1 {
			time.Sleep(fetchGap)
		}
	}

	if *asJSON {
		writeJSON(reports)
		return
	}
	writeText(logger, reports)
}

func checkFeed(fetcher *feedfetch.Fetcher, feed *entity.FeedSource, timeout time.Duration) feedReport {
	report := feedReport{
		ID:           feed.ID,
		Name:         feed.Name,
		URL:          feed.URL,
		Active:       feed.Active,
		FailureCount: feed.FailureCount,
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	start := time.Now()
	entries, err := fetcher.Fetch(ctx, feed)
	report.ElapsedMS = time.Since(start).Milliseconds()

	if err != nil {
		report.Error = err.Error()
		return report
	}

	report.OK = true
	report.EntryCount = len(entries)
	if latest := latestEntry(entries); !latest.IsZero() {
		report.LatestEntry = latest.UTC().Format(time.RFC3339)
	}
	return report
}

func latestEntry(entries []entity.RawEntry) time.Time {
	var latest time.Time
	for _, e := range entries {
		if e.PublishedAt.After(latest) {
			latest = e.PublishedAt
		}
	}
	return latest
}

func writeJSON(reports []feedReport) {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(reports); err != nil {
		slog.Error("failed to encode report", slog.Any("error", err))
		os.Exit(1)
	}
}

func writeText(logger *slog.Logger, reports []feedReport) {
	healthy := 0
	for _, r := range reports {
		if r.OK {
			healthy++
			logger.Info("feed healthy",
				slog.String("name", r.Name),
				slog.Bool("active", r.Active),
				slog.Int("entries", r.EntryCount),
				slog.String("latest", r.LatestEntry),
				slog.Int64("elapsed_ms", r.ElapsedMS))
			continue
		}
		logger.Warn("feed broken",
			slog.String("name", r.Name),
			slog.String("url", r.URL),
			slog.Bool("active", r.Active),
			slog.Int("failure_count", r.FailureCount),
			slog.String("error", r.Error))
	}
	logger.Info("diagnostic completed",
		slog.Int("total", len(reports)),
		slog.Int("healthy", healthy),
		slog.Int("broken", len(reports)-healthy))
}

func openFeedRepo(logger *slog.Logger) (database interface{ Close() error }, repo repository.FeedRepository) {
	driver := os.Getenv("DB_DRIVER")
	if driver == "" {
		driver = "pgx"
	}
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		logger.Error("DB_DSN is required")
		os.Exit(1)
	}

	conn, err := db.Open(driver, dsn, db.DefaultConnectionConfig())
	if err != nil {
		logger.Error("failed to open database", slog.Any("error", err))
		os.Exit(1)
	}

	switch driver {
	case "sqlite3":
		return conn, sqlite.NewFeedRepo(conn)
	default:
		return conn, postgres.NewFeedRepo(conn)
	}
}
