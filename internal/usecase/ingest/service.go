// Package ingest implements the feed ingestion use case: fetch every active
// source, filter and deduplicate the entries, enrich each survivor with an
// image and a category, and persist the result. One call to Run is one
// ingestion cycle.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"pressfeed/internal/domain/entity"
	"pressfeed/internal/observability/metrics"
	"pressfeed/internal/pkg/slug"
	"pressfeed/internal/repository"
)

const defaultClassifyParallelism = 2

// FeedFetcher fetches and parses one source's feed document.
type FeedFetcher interface {
	Fetch(ctx context.Context, feed *entity.FeedSource) ([]entity.RawEntry, error)
}

// Classifier assigns one category from the known label set to an entry.
type Classifier interface {
	Classify(ctx context.Context, title, summary string) (string, error)
}

// ImageScraper extracts a representative image URL from an article page.
type ImageScraper interface {
	ScrapeImage(ctx context.Context, pageURL string) (string, error)
}

// Config carries the tunables of one ingestion service instance.
type Config struct {
	// FreshnessWindow bounds how old a dated entry may be and still be
	// ingested. The boundary is inclusive: an entry published exactly at
	// now minus the window is kept.
	FreshnessWindow time.Duration

	// ClassifyParallelism caps concurrent classification calls across all
	// feed goroutines. Zero means the default of 2.
	ClassifyParallelism int64

	// DefaultImage is the last-resort article image. Required.
	DefaultImage string
	// BackupImages maps a feed region to a fallback image used before the
	// default.
	BackupImages map[string]string
}

// Service orchestrates one ingestion run over all active feed sources.
// Feeds are processed concurrently; a failure in one feed never aborts the
// others.
type Service struct {
	feeds       repository.FeedRepository
	articles    repository.ArticleRepository
	fetcher     FeedFetcher
	classifier  Classifier
	scraper     ImageScraper
	health      *HealthTracker
	cfg         Config
	classifySem *semaphore.Weighted
	logger      *slog.Logger
	now         func() time.Time
}

// NewService wires an ingestion service. scraper may be nil to disable page
// scraping; image resolution then goes straight from embedded images to the
// configured fallbacks.
func NewService(
	feeds repository.FeedRepository,
	articles repository.ArticleRepository,
	fetcher FeedFetcher,
	classifier Classifier,
	scraper ImageScraper,
	logger *slog.Logger,
	cfg Config,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	parallelism := cfg.ClassifyParallelism
	if parallelism <= 0 {
		parallelism = defaultClassifyParallelism
	}
	return &Service{
		feeds:       feeds,
		articles:    articles,
		fetcher:     fetcher,
		classifier:  classifier,
		scraper:     scraper,
		health:      NewHealthTracker(feeds, logger),
		cfg:         cfg,
		classifySem: semaphore.NewWeighted(parallelism),
		logger:      logger,
		now:         time.Now,
	}
}

// Run executes one ingestion cycle over all active sources and returns the
// run report. An error is returned only for run-fatal conditions: the active
// source list could not be loaded, or the context was cancelled. Per-feed
// and per-entry failures are absorbed into the report.
func (s *Service) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	report := NewReport()

	sources, err := s.feeds.ListActive(ctx)
	if err != nil {
		metrics.RecordRun(false, time.Since(start))
		return nil, fmt.Errorf("list active sources: %w", err)
	}
	report.Feeds = len(sources)
	cutoff := s.now().Add(-s.cfg.FreshnessWindow)
	seen := newSeenSet()

	eg, egCtx := errgroup.WithContext(ctx)
	for _, src := range sources {
		src := src
		eg.Go(func() error {
			return s.processFeed(egCtx, src, cutoff, seen, report)
		})
	}
	err = eg.Wait()

	report.Duration = time.Since(start)
	metrics.RecordRun(err == nil, report.Duration)
	s.logSummary(report.Summary(), err)

	if err != nil {
		return report, fmt.Errorf("ingestion run aborted: %w", err)
	}
	return report, nil
}

// processFeed runs the full cycle for one source. It returns an error only
// on context cancellation; every other failure is recorded and absorbed so
// sibling feeds keep running.
func (s *Service) processFeed(ctx context.Context, feed *entity.FeedSource, cutoff time.Time, seen *seenSet, report *Report) error {
	logger := s.logger.With(
		slog.Int64("feed_id", feed.ID),
		slog.String("feed", feed.Name))
	feedStart := time.Now()

	entries, err := s.fetcher.Fetch(ctx, feed)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		s.recordFeedFailure(ctx, feed, err, report, logger)
		return nil
	}
	report.AddFetched(len(entries))
	metrics.RecordFeedFetch(feed.Name, time.Since(feedStart), len(entries))

	fresh, stale := splitFresh(entries, cutoff)
	if stale > 0 {
		report.AddStale(stale)
		metrics.RecordEntriesSkipped("stale", stale)
	}

	links := make([]string, 0, len(fresh))
	for _, e := range fresh {
		links = append(links, e.Link)
	}
	stored, err := s.articles.ExistsByLinkBatch(ctx, links)
	if err != nil {
		// Storage hiccup, not a feed problem: skip the feed this run
		// without touching its health counter.
		logger.Warn("batch link check failed, skipping feed this run",
			slog.Any("error", err))
		return nil
	}

	for _, entry := range fresh {
		if stored[entry.Link] {
			report.AddAlreadyStored()
			metrics.RecordEntrySkipped("already_stored")
			continue
		}
		if !seen.Claim(entry.Link) {
			report.AddDuplicateInRun()
			metrics.RecordEntrySkipped("duplicate_in_run")
			continue
		}
		if err := s.processEntry(ctx, feed, entry, report, logger); err != nil {
			return err
		}
	}

	// The cycle reached the end, so the source is healthy even if single
	// entries were skipped. Bookkeeping survives a cancelled run context.
	safeCtx := context.WithoutCancel(ctx)
	if err := s.health.RecordSuccess(safeCtx, feed, s.now()); err != nil {
		logger.Warn("feed health bookkeeping failed", slog.Any("error", err))
	}

	logger.Info("feed cycle completed",
		slog.Int("entries", len(entries)),
		slog.Int("fresh", len(fresh)),
		slog.Int("stale", stale),
		slog.Duration("duration", time.Since(feedStart)))
	return nil
}

// processEntry enriches one deduplicated entry and persists it. Returns an
// error only on context cancellation; classification and storage failures
// are counted and absorbed.
func (s *Service) processEntry(ctx context.Context, feed *entity.FeedSource, entry entity.RawEntry, report *Report, logger *slog.Logger) error {
	imageURL, tier := s.resolveImage(ctx, feed, entry, logger)
	metrics.RecordImageResolution(tier)

	if err := s.classifySem.Acquire(ctx, 1); err != nil {
		return err
	}
	classifyStart := time.Now()
	category, err := s.classifier.Classify(ctx, entry.Title, entry.Summary)
	s.classifySem.Release(1)
	metrics.RecordClassify(err == nil, time.Since(classifyStart))

	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		report.AddCategorizeError()
		metrics.RecordEntrySkipped("categorize_failed")
		logger.Warn("classification failed, skipping entry",
			slog.String("link", entry.Link),
			slog.String("title", entry.Title),
			slog.Any("error", err))
		return nil
	}

	article := &entity.Article{
		Title:       entry.Title,
		PublishedAt: entry.PublishedAt,
		Link:        entry.Link,
		Summary:     entry.Summary,
		ImageURL:    imageURL,
		Author:      entry.Author,
		Source:      feed.Name,
		Region:      feed.Region,
		Category:    category,
		Slug:        slug.Make(category),
		CreatedAt:   s.now(),
	}

	switch err := s.articles.Create(ctx, article); {
	case errors.Is(err, repository.ErrDuplicateLink):
		// Another run or a racing feed goroutine inserted the link first.
		report.AddDuplicateOnInsert()
		metrics.RecordEntrySkipped("duplicate_on_insert")
	case err != nil:
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		report.AddDBError()
		metrics.RecordEntrySkipped("db_error")
		logger.Error("article insert failed",
			slog.String("link", entry.Link),
			slog.Any("error", err))
	default:
		report.AddSaved(category)
		metrics.RecordArticleSaved(category)
	}
	return nil
}

// recordFeedFailure applies the health policy for a failed fetch cycle and
// adds the feed to the report's failure list.
func (s *Service) recordFeedFailure(ctx context.Context, feed *entity.FeedSource, fetchErr error, report *Report, logger *slog.Logger) {
	metrics.RecordFeedError(feed.Name)
	logger.Warn("feed fetch failed",
		slog.String("url", feed.URL),
		slog.Any("error", fetchErr))

	safeCtx := context.WithoutCancel(ctx)
	count, deactivated, err := s.health.RecordFailure(safeCtx, feed)
	if err != nil {
		logger.Warn("feed health bookkeeping failed", slog.Any("error", err))
	}
	report.AddFeedFailure(FeedFailure{
		Feed:         feed.Name,
		Err:          fetchErr.Error(),
		FailureCount: count,
		Deactivated:  deactivated,
	})
}

// splitFresh partitions entries at the freshness cutoff. Feed documents list
// entries newest first, so the first dated entry past the cutoff ends the
// scan and everything after it counts as stale. Undated entries are stale
// but do not end the scan: a feed that omits dates on a few items can still
// carry fresh ones below them.
func splitFresh(entries []entity.RawEntry, cutoff time.Time) (fresh []entity.RawEntry, stale int) {
	for i, e := range entries {
		if e.PublishedAt.IsZero() {
			stale++
			continue
		}
		if e.PublishedAt.Before(cutoff) {
			stale += len(entries) - i
			return fresh, stale
		}
		fresh = append(fresh, e)
	}
	return fresh, stale
}

// logSummary closes the run with one line per failed feed followed by the
// aggregate counters. The per-feed lines carry the error text and the
// resulting failure count, so a run's failures can be diagnosed from the log
// alone.
func (s *Service) logSummary(sum Summary, runErr error) {
	for _, f := range sum.FailedFeeds {
		s.logger.Warn("feed failed this run",
			slog.String("feed", f.Feed),
			slog.String("error", f.Err),
			slog.Int("failure_count", f.FailureCount),
			slog.Bool("deactivated", f.Deactivated))
	}

	attrs := []any{
		slog.Int("feeds", sum.Feeds),
		slog.Int("failed_feeds", len(sum.FailedFeeds)),
		slog.Int64("fetched", sum.Fetched),
		slog.Int64("stale", sum.Stale),
		slog.Int64("already_stored", sum.AlreadyStored),
		slog.Int64("duplicate_in_run", sum.DuplicateInRun),
		slog.Int64("duplicate_on_insert", sum.DuplicateOnInsert),
		slog.Int64("categorize_errors", sum.CategorizeErrors),
		slog.Int64("db_errors", sum.DBErrors),
		slog.Int64("saved", sum.Saved),
		slog.Any("categories", sum.Categories),
		slog.Duration("duration", sum.Duration),
	}
	if runErr != nil {
		attrs = append(attrs, slog.Any("error", runErr))
		s.logger.Error("ingestion run aborted", attrs...)
		return
	}
	s.logger.Info("ingestion run completed", attrs...)
}
