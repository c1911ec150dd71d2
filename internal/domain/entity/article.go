package entity

import (
	"errors"
	"time"
)

// Article is a finished, persisted news article. Rows are insert-only: the
// link column is globally unique and the pipeline never updates an article
// after creation.
type Article struct {
	ID          int64
	Title       string
	PublishedAt time.Time
	Link        string
	Summary     string
	ImageURL    string
	Author      string // empty means no byline; stored as NULL
	Source      string // display name of the feed that carried the entry
	Region      string
	Category    string
	Slug        string
	CreatedAt   time.Time
}

// Validate checks the invariants the persistence layer depends on. An article
// is never stored without a link, a category from the known label set, or a
// resolved image.
func (a *Article) Validate() error {
	if a.Title == "" {
		return errors.New("article title is required")
	}
	if a.Link == "" {
		return errors.New("article link is required")
	}
	if !IsCategory(a.Category) {
		return errors.New("article category is not in the label set")
	}
	if a.ImageURL == "" {
		return errors.New("article image URL is required")
	}
	return nil
}
