// Package entity defines the core domain entities and validation logic for the
// ingestion pipeline: feed sources, raw feed entries, and persisted articles.
package entity

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// FeedQuirks captures per-source parsing oddities that cannot be detected from
// the feed document itself. Dialect (RSS 2.0 vs Atom) is detected from the
// document root, so it never appears here.
type FeedQuirks struct {
	// DescriptionIsHTML is set for sources that ship rendered HTML in their
	// description element. The summary is stripped to plain text before use.
	DescriptionIsHTML bool `json:"description_is_html,omitempty" yaml:"description_is_html"`

	// OmitAuthor is set for sources whose author field carries an opaque
	// internal handle rather than a byline worth persisting.
	OmitAuthor bool `json:"omit_author,omitempty" yaml:"omit_author"`
}

// FeedSource represents one registered RSS/Atom source.
// It is created by administrative seeding and mutated only by the feed health
// tracker: the failure counter resets to zero on any successful fetch cycle,
// and the source is deactivated once the counter reaches the threshold.
// The pipeline never deletes or reactivates a source.
type FeedSource struct {
	ID            int64
	Name          string
	URL           string
	Region        string
	Active        bool
	FailureCount  int
	LastFetchedAt *time.Time
	Quirks        *FeedQuirks
}

// Validate checks that the source carries the fields the pipeline relies on.
func (f *FeedSource) Validate() error {
	if f.Name == "" {
		return errors.New("feed source name is required")
	}
	if f.URL == "" {
		return errors.New("feed source url is required")
	}
	u, err := url.Parse(f.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("feed source url %q is not a valid http(s) URL", f.URL)
	}
	return nil
}
