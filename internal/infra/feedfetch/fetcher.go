// Package feedfetch retrieves and parses RSS/Atom feeds into raw entries.
// It uses the gofeed library, which detects the syndication dialect from the
// document root, so RSS 2.0 item lists and Atom entry lists come out in one
// uniform shape without per-source dispatch.
package feedfetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/sony/gobreaker"

	"pressfeed/internal/domain/entity"
	"pressfeed/internal/resilience/circuitbreaker"
	"pressfeed/internal/utils/text"
)

// userAgent identifies the crawler. Some origin servers reject requests with
// default or empty agents, so a conventional browser-style string is used.
const userAgent = "Mozilla/5.0 (compatible; PressfeedBot/1.0; +https://pressfeed.dev/bot)"

// ErrEmptyFeed is returned when a feed parses cleanly but contains zero
// entries. The orchestrator treats it like any other fetch failure: it counts
// against the feed's health, not against individual entries.
var ErrEmptyFeed = errors.New("feed contains no entries")

// Fetcher fetches and parses one feed URL into raw entries.
// Each feed URL gets its own circuit breaker: an origin that is failing hard
// stops consuming the run's time budget without souring fetches of healthy
// sources.
type Fetcher struct {
	client   *http.Client
	breakers sync.Map // feed URL -> *circuitbreaker.CircuitBreaker
}

// NewFetcher creates a Fetcher around the given HTTP client. The client's
// timeout bounds the whole fetch; callers pass one configured for the run.
func NewFetcher(client *http.Client) *Fetcher {
	return &Fetcher{client: client}
}

func (f *Fetcher) breakerFor(feed *entity.FeedSource) *circuitbreaker.CircuitBreaker {
	if cb, ok := f.breakers.Load(feed.URL); ok {
		return cb.(*circuitbreaker.CircuitBreaker)
	}
	cfg := circuitbreaker.FeedFetchConfig()
	cfg.Name = "feed-fetch/" + feed.Name
	cb, _ := f.breakers.LoadOrStore(feed.URL, circuitbreaker.New(cfg))
	return cb.(*circuitbreaker.CircuitBreaker)
}

// Fetch retrieves the feed and maps its items to entries in document order.
// Any HTTP error, parse error, or empty document is a feed-level failure.
func (f *Fetcher) Fetch(ctx context.Context, feed *entity.FeedSource) ([]entity.RawEntry, error) {
	result, err := f.breakerFor(feed).Execute(func() (interface{}, error) {
		return f.doFetch(ctx, feed)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) {
			slog.Warn("feed fetch circuit breaker open, request rejected",
				slog.String("feed", feed.Name),
				slog.String("url", feed.URL))
		}
		return nil, fmt.Errorf("fetch feed %q: %w", feed.Name, err)
	}
	return result.([]entity.RawEntry), nil
}

func (f *Fetcher) doFetch(ctx context.Context, feed *entity.FeedSource) ([]entity.RawEntry, error) {
	parser := gofeed.NewParser()
	parser.UserAgent = userAgent
	parser.Client = f.client

	parsed, err := parser.ParseURLWithContext(feed.URL, ctx)
	if err != nil {
		return nil, err
	}
	if len(parsed.Items) == 0 {
		return nil, ErrEmptyFeed
	}

	entries := make([]entity.RawEntry, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		entries = append(entries, mapItem(item, feed.Quirks))
	}
	return entries, nil
}

// mapItem converts one gofeed item into a RawEntry, applying the source's
// quirks record.
func mapItem(item *gofeed.Item, quirks *entity.FeedQuirks) entity.RawEntry {
	var published time.Time
	switch {
	case item.PublishedParsed != nil:
		published = *item.PublishedParsed
	case item.UpdatedParsed != nil:
		published = *item.UpdatedParsed
	}

	summary := item.Description
	if summary == "" {
		summary = item.Content
	}
	if quirks != nil && quirks.DescriptionIsHTML {
		summary = text.StripTags(summary)
	}

	author := ""
	if quirks == nil || !quirks.OmitAuthor {
		author = itemAuthor(item)
	}

	return entity.RawEntry{
		Title:         item.Title,
		Link:          item.Link,
		PublishedAt:   published,
		Summary:       summary,
		Author:        author,
		EmbeddedImage: embeddedImage(item),
	}
}

func itemAuthor(item *gofeed.Item) string {
	if len(item.Authors) > 0 && item.Authors[0] != nil {
		return item.Authors[0].Name
	}
	return ""
}

// embeddedImage picks the first usable image reference carried by the item:
// the item image, an image-typed enclosure, then a media:content extension.
func embeddedImage(item *gofeed.Item) string {
	if item.Image != nil && item.Image.URL != "" {
		return item.Image.URL
	}
	for _, enc := range item.Enclosures {
		if enc == nil || enc.URL == "" {
			continue
		}
		if enc.Type == "" || strings.HasPrefix(enc.Type, "image/") {
			return enc.URL
		}
	}
	if media, ok := item.Extensions["media"]; ok {
		for _, ext := range media["content"] {
			if url, ok := ext.Attrs["url"]; ok && url != "" {
				return url
			}
		}
		for _, ext := range media["thumbnail"] {
			if url, ok := ext.Attrs["url"]; ok && url != "" {
				return url
			}
		}
	}
	return ""
}
