// Package repository defines the persistence interfaces the ingestion
// pipeline is written against. Concrete implementations live under
// internal/infra/adapter/persistence.
package repository

import (
	"context"
	"time"

	"pressfeed/internal/domain/entity"
)

// FeedRepository manages registered feed sources. The pipeline reads the
// active set and mutates only the health bookkeeping columns.
type FeedRepository interface {
	// ListActive returns the sources whose active flag is set, in id order.
	ListActive(ctx context.Context) ([]*entity.FeedSource, error)
	List(ctx context.Context) ([]*entity.FeedSource, error)
	Create(ctx context.Context, feed *entity.FeedSource) error

	// ResetFailures sets the consecutive-failure counter back to zero.
	ResetFailures(ctx context.Context, id int64) error
	// IncrementFailure bumps the consecutive-failure counter and returns the
	// post-increment value, so the caller can apply the deactivation
	// threshold without a second round trip.
	IncrementFailure(ctx context.Context, id int64) (int, error)
	// Deactivate clears the active flag. Reactivation is a manual,
	// out-of-band operation; no repository method exists for it.
	Deactivate(ctx context.Context, id int64) error

	TouchFetchedAt(ctx context.Context, id int64, t time.Time) error
}
