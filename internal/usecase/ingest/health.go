package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"pressfeed/internal/domain/entity"
	"pressfeed/internal/observability/metrics"
	"pressfeed/internal/repository"
)

// DeactivationThreshold is the number of consecutive failed fetch cycles
// after which a source is taken out of rotation. Reactivation is manual.
const DeactivationThreshold = 2

// HealthTracker maintains the consecutive-failure counter for each feed
// source. A successful cycle resets the counter; a failed cycle increments
// it, and the source is deactivated once the counter reaches the threshold.
type HealthTracker struct {
	feeds  repository.FeedRepository
	logger *slog.Logger
}

// NewHealthTracker creates a tracker over the given feed repository.
func NewHealthTracker(feeds repository.FeedRepository, logger *slog.Logger) *HealthTracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthTracker{feeds: feeds, logger: logger}
}

// RecordSuccess resets the failure counter and stamps the last successful
// fetch time.
func (h *HealthTracker) RecordSuccess(ctx context.Context, feed *entity.FeedSource, at time.Time) error {
	if err := h.feeds.ResetFailures(ctx, feed.ID); err != nil {
		return fmt.Errorf("reset failure count: %w", err)
	}
	if err := h.feeds.TouchFetchedAt(ctx, feed.ID, at); err != nil {
		return fmt.Errorf("update last fetched timestamp: %w", err)
	}
	return nil
}

// RecordFailure increments the failure counter and deactivates the source
// when the counter reaches the threshold. It returns the post-increment
// counter and whether the source was deactivated. A bookkeeping error is
// returned with a zero count; the caller logs it and moves on, the counter
// will be retried next run.
func (h *HealthTracker) RecordFailure(ctx context.Context, feed *entity.FeedSource) (count int, deactivated bool, err error) {
	count, err = h.feeds.IncrementFailure(ctx, feed.ID)
	if err != nil {
		return 0, false, fmt.Errorf("increment failure count: %w", err)
	}
	if count < DeactivationThreshold {
		return count, false, nil
	}

	if err := h.feeds.Deactivate(ctx, feed.ID); err != nil {
		return count, false, fmt.Errorf("deactivate source: %w", err)
	}
	metrics.RecordFeedDeactivated()
	h.logger.Warn("feed source deactivated after consecutive failures",
		slog.Int64("feed_id", feed.ID),
		slog.String("feed", feed.Name),
		slog.Int("failure_count", count))
	return count, true, nil
}
