package entity

import "time"

// RawEntry is one parsed feed item. It lives only for the duration of a single
// fetch cycle; the pipeline turns it into an Article or drops it.
type RawEntry struct {
	Title       string
	Link        string
	PublishedAt time.Time
	Summary     string
	Author      string

	// EmbeddedImage is the first usable image reference carried by the feed
	// item itself (item image, enclosure, or media:content). Empty when the
	// feed ships no image, in which case the resolver falls through to
	// scraping the article page.
	EmbeddedImage string
}
