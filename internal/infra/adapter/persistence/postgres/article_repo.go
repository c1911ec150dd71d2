package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"pressfeed/internal/domain/entity"
	"pressfeed/internal/repository"
)

// uniqueViolation is the SQLSTATE for unique-constraint violations.
const uniqueViolation = "23505"

type ArticleRepo struct{ db *sql.DB }

func NewArticleRepo(db *sql.DB) repository.ArticleRepository {
	return &ArticleRepo{db: db}
}

// Create inserts the article. A unique-key collision on link, possible when
// two concurrent feeds carry the same syndicated story, is reported as
// repository.ErrDuplicateLink rather than a storage failure.
func (repo *ArticleRepo) Create(ctx context.Context, article *entity.Article) error {
	if err := article.Validate(); err != nil {
		return fmt.Errorf("Create: %w", err)
	}

	const query = `
INSERT INTO articles
       (title, published_at, link, summary, image_url, author, source, region, category, slug, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := repo.db.ExecContext(ctx, query,
		article.Title, article.PublishedAt, article.Link, article.Summary,
		article.ImageURL, nullable(article.Author), article.Source,
		article.Region, article.Category, article.Slug, article.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return repository.ErrDuplicateLink
		}
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (repo *ArticleRepo) ExistsByLink(ctx context.Context, link string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM articles WHERE link = $1)`
	var exists bool
	if err := repo.db.QueryRowContext(ctx, query, link).Scan(&exists); err != nil {
		return false, fmt.Errorf("ExistsByLink: %w", err)
	}
	return exists, nil
}

// ExistsByLinkBatch checks a feed's worth of links in one query.
func (repo *ArticleRepo) ExistsByLinkBatch(ctx context.Context, links []string) (map[string]bool, error) {
	if len(links) == 0 {
		return make(map[string]bool), nil
	}

	const query = `SELECT link FROM articles WHERE link = ANY($1)`
	rows, err := repo.db.QueryContext(ctx, query, pq.Array(links))
	if err != nil {
		return nil, fmt.Errorf("ExistsByLinkBatch: QueryContext: %w", err)
	}
	defer func() { _ = rows.Close() }()

	result := make(map[string]bool)
	for rows.Next() {
		var link string
		if err := rows.Scan(&link); err != nil {
			return nil, fmt.Errorf("ExistsByLinkBatch: Scan: %w", err)
		}
		result[link] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ExistsByLinkBatch: rows.Err: %w", err)
	}
	return result, nil
}

func (repo *ArticleRepo) Count(ctx context.Context) (int64, error) {
	const query = `SELECT COUNT(*) FROM articles`
	var count int64
	if err := repo.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("Count: %w", err)
	}
	return count, nil
}

// nullable maps an empty string to NULL for optional text columns.
func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
