package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sqlite3 "github.com/mattn/go-sqlite3"

	"pressfeed/internal/domain/entity"
	"pressfeed/internal/repository"
)

// ArticleRepo implements repository.ArticleRepository on SQLite.
type ArticleRepo struct{ db *sql.DB }

func NewArticleRepo(db *sql.DB) repository.ArticleRepository {
	return &ArticleRepo{db: db}
}

// Create inserts the article, mapping a unique-constraint violation on link
// to repository.ErrDuplicateLink.
func (repo *ArticleRepo) Create(ctx context.Context, article *entity.Article) error {
	if err := article.Validate(); err != nil {
		return fmt.Errorf("Create: %w", err)
	}

	const query = `
INSERT INTO articles
       (title, published_at, link, summary, image_url, author, source, region, category, slug, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := repo.db.ExecContext(ctx, query,
		article.Title, article.PublishedAt, article.Link, article.Summary,
		article.ImageURL, nullable(article.Author), article.Source,
		article.Region, article.Category, article.Slug, article.CreatedAt,
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return repository.ErrDuplicateLink
		}
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (repo *ArticleRepo) ExistsByLink(ctx context.Context, link string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM articles WHERE link = ?)`
	var exists bool
	if err := repo.db.QueryRowContext(ctx, query, link).Scan(&exists); err != nil {
		return false, fmt.Errorf("ExistsByLink: %w", err)
	}
	return exists, nil
}

// ExistsByLinkBatch expands a placeholder list; SQLite has no array type.
func (repo *ArticleRepo) ExistsByLinkBatch(ctx context.Context, links []string) (map[string]bool, error) {
	if len(links) == 0 {
		return make(map[string]bool), nil
	}

	placeholders := strings.Repeat("?,", len(links))
	placeholders = placeholders[:len(placeholders)-1]
	query := `SELECT link FROM articles WHERE link IN (` + placeholders + `)`

	args := make([]any, len(links))
	for i, link := range links {
		args[i] = link
	}

	rows, err := repo.db.QueryContext(ctx, query, args...)
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

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
