// Package sqlite provides SQLite implementations of the pipeline's
// repository interfaces, used for local and development runs.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"pressfeed/internal/domain/entity"
	"pressfeed/internal/repository"
)

// FeedRepo implements repository.FeedRepository on SQLite.
type FeedRepo struct{ db *sql.DB }

func NewFeedRepo(db *sql.DB) repository.FeedRepository {
	return &FeedRepo{db: db}
}

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
VALUES (?, ?, ?, ?, ?, ?)`
	res, err := repo.db.ExecContext(ctx, query,
		feed.Name, feed.URL, feed.Region, feed.Active, feed.FailureCount, quirksJSON,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		feed.ID = id
	}
	return nil
}

func (repo *FeedRepo) ResetFailures(ctx context.Context, id int64) error {
	const query = `UPDATE feed_sources SET failure_count = 0 WHERE id = ?`
	if _, err := repo.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("ResetFailures: %w", err)
	}
	return nil
}

func (repo *FeedRepo) IncrementFailure(ctx context.Context, id int64) (int, error) {
	const query = `
UPDATE feed_sources SET failure_count = failure_count + 1
WHERE id = ?
RETURNING failure_count`
	var count int
	if err := repo.db.QueryRowContext(ctx, query, id).Scan(&count); err != nil {
		return 0, fmt.Errorf("IncrementFailure: %w", err)
	}
	return count, nil
}

func (repo *FeedRepo) Deactivate(ctx context.Context, id int64) error {
	const query = `UPDATE feed_sources SET active = FALSE WHERE id = ?`
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
	const query = `UPDATE feed_sources SET last_fetched_at = ? WHERE id = ?`
	_, err := repo.db.ExecContext(ctx, query, t, id)
	return err
}
