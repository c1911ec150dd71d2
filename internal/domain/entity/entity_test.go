package entity

import (
	"testing"
	"time"
)

func validFeed() *FeedSource {
	return &FeedSource{
		Name:   "Morning Post",
		URL:    "https://example.com/feed.xml",
		Region: "eu",
		Active: true,
	}
}

func TestFeedSourceValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*FeedSource)
		wantErr bool
	}{
		{"valid", func(f *FeedSource) {}, false},
		{"http scheme allowed", func(f *FeedSource) { f.URL = "http://example.com/rss" }, false},
		{"missing name", func(f *FeedSource) { f.Name = "" }, true},
		{"missing url", func(f *FeedSource) { f.URL = "" }, true},
		{"ftp scheme rejected", func(f *FeedSource) { f.URL = "ftp://example.com/rss" }, true},
		{"bare path rejected", func(f *FeedSource) { f.URL = "/feed.xml" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validFeed()
			tt.mutate(f)
			err := f.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func validArticle() *Article {
	return &Article{
		Title:       "Markets rally on rate cut",
		PublishedAt: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		Link:        "https://example.com/markets-rally",
		Summary:     "Stocks climbed after the announcement.",
		ImageURL:    "https://img.example.com/rally.jpg",
		Source:      "Morning Post",
		Region:      "eu",
		Category:    "Business",
		Slug:        "business",
		CreatedAt:   time.Now(),
	}
}

func TestArticleValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Article)
		wantErr bool
	}{
		{"valid", func(a *Article) {}, false},
		{"empty author allowed", func(a *Article) { a.Author = "" }, false},
		{"missing title", func(a *Article) { a.Title = "" }, true},
		{"missing link", func(a *Article) { a.Link = "" }, true},
		{"unknown category", func(a *Article) { a.Category = "Astrology" }, true},
		{"empty category", func(a *Article) { a.Category = "" }, true},
		{"missing image", func(a *Article) { a.ImageURL = "" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := validArticle()
			tt.mutate(a)
			err := a.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestIsCategory(t *testing.T) {
	for _, c := range Categories {
		if !IsCategory(c) {
			t.Errorf("IsCategory(%q) = false, want true", c)
		}
	}
	for _, s := range []string{"", "sports", "Sports ", "Weather"} {
		if IsCategory(s) {
			t.Errorf("IsCategory(%q) = true, want false", s)
		}
	}
}
