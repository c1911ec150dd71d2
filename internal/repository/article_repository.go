package repository

import (
	"context"
	"errors"

	"pressfeed/internal/domain/entity"
)

// ErrDuplicateLink is returned by Create when the article's link collides
// with a row that is already stored. Concurrent feeds can race on a
// syndicated link, so callers treat this as a benign, expected outcome
// rather than a storage failure.
var ErrDuplicateLink = errors.New("article with this link already exists")

// ArticleRepository persists finished articles. Inserts are keyed by the
// unique link column; there is no update path in the pipeline.
type ArticleRepository interface {
	// Create inserts the article. A unique-key collision on link is reported
	// as ErrDuplicateLink; any other error is a genuine storage failure.
	Create(ctx context.Context, article *entity.Article) error

	ExistsByLink(ctx context.Context, link string) (bool, error)
	// ExistsByLinkBatch checks many links in one query so a feed's worth of
	// entries costs a single round trip. Links absent from the result map
	// are not stored.
	ExistsByLinkBatch(ctx context.Context, links []string) (map[string]bool, error)

	Count(ctx context.Context) (int64, error)
}
