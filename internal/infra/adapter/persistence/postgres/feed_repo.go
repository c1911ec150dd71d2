// Package postgres provides Postgres implementations of the pipeline's
// repository interfaces, using the pgx stdlib driver.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"pressfeed/internal/domain/entity"
	"pressfeed/internal/repository"
)

type FeedRepo struct{ db *sql.DB }

func NewFeedRepo(db *sql.DB) repository.FeedRepository {
	return &FeedRepo{db: db}
}

// scanFeed scans one feed_sources row, decoding the quirks JSON when present.
func scanFeed(rows *sql.Rows) (*entity.FeedSource, error) {
	var feed entity.FeedSource
	var quirksJSON sql.NullString
	if err := rows.Scan(
		&feed.ID, &feed.Name, &feed.URL, &feed.Region,
		&feed.Active, &feed.FailureCount, &feed.LastFetchedAt, &quirksJSON,
	); err != nil {
		return nil, err
	}

	if quirksJSON.Valid && quirksJSON.String != "" {
		var quirks entity.FeedQuirks
		if err := json.Unmarshal([]byte(quirksJSON.String), &quirks); err != nil {
			return nil, fmt.Errorf("unmarshal quirks: %w", err)
		}
		feed.Quirks = &quirks
	}

	return &feed, nil
}

func (repo *FeedRepo) listWhere(ctx context.Context, op, where string) ([]*entity.FeedSource, error) {
	query := `
SELECT id, name, url, region, active, failure_count, last_fetched_at, quirks
FROM feed_sources
` + where + `
ORDER BY id ASC`
	rows, err := repo.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = rows.Close() }()

	feeds := make([]*entity.FeedSource, 0, 50)
	for rows.Next() {
		feed, err := scanFeed(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		feeds = append(feeds, feed)
	}
	return feeds, rows.Err()
}

func (repo *FeedRepo) List(ctx context.Context) ([]*entity.FeedSource, error) {
	return repo.listWhere(ctx, "List", "")
}

func (repo *FeedRepo) ListActive(ctx context.Context) ([]*entity.FeedSource, error) {
	return repo.listWhere(ctx, "ListActive", "WHERE active = TRUE")
}

func (repo *FeedRepo) Create(ctx context.Context, feed *entity.FeedSource) error {
	if err := feed.Validate(); err != nil {
		return fmt.Errorf("Create: %w", err)
	}

	var quirksJSON any
	if feed.Quirks != nil {
		raw, err := json.Marshal(feed.Quirks)
		if err != nil {
			return fmt.Errorf("Create: marshal quirks: %w", err)
		}
		quirksJSON = string(raw)
	}

	const query = `
INSERT INTO feed_sources (name, url, region, active, failure_count, quirks)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id`
	if err := repo.db.QueryRowContext(ctx, query,
		feed.Name, feed.URL, feed.Region, feed.Active, feed.FailureCount, quirksJSON,
	).Scan(&feed.ID); err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (repo *FeedRepo) ResetFailures(ctx context.Context, id int64) error {
	const query = `UPDATE feed_sources SET failure_count = 0 WHERE id = $1`
	if _, err := repo.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("ResetFailures: %w", err)
	}
	return nil
}

// IncrementFailure bumps the counter atomically and returns the new value via
// RETURNING, so concurrent runs cannot read a stale count.
func (repo *FeedRepo) IncrementFailure(ctx context.Context, id int64) (int, error) {
	const query = `
UPDATE feed_sources SET failure_count = failure_count + 1
WHERE id = $1
RETURNING failure_count`
	var count int
	if err := repo.db.QueryRowContext(ctx, query, id).Scan(&count); err != nil {
		return 0, fmt.Errorf("IncrementFailure: %w", err)
	}
	return count, nil
}

func (repo *FeedRepo) Deactivate(ctx context.Context, id int64) error {
	const query = `UPDATE feed_sources SET active = FALSE WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("Deactivate: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("Deactivate: no rows affected")
	}
	return nil
}

func (repo *FeedRepo) TouchFetchedAt(ctx context.Context, id int64, t time.Time) error {
	const query = `UPDATE feed_sources SET last_fetched_at = $1 WHERE id = $2`
	_, err := repo.db.ExecContext(ctx, query, t, id)
	return err
}
