// Package fetcher fetches third-party article pages and extracts a
// representative image from the HTML. It is the second tier of the image
// fallback chain: it only runs when the feed entry itself carried no image,
// and its failures are absorbed by the tiers below it.
package fetcher

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"pressfeed/internal/resilience/circuitbreaker"
)

const (
	// userAgent mirrors the feed fetcher's agent; article pages routinely
	// serve empty shells or 403s to unidentified clients.
	userAgent = "Mozilla/5.0 (compatible; PressfeedBot/1.0; +https://pressfeed.dev/bot)"

	// maxBodyBytes bounds how much of an article page is read. Images are
	// referenced in the head or early body; a hard cap keeps a pathological
	// page from exhausting memory.
	maxBodyBytes = 2 << 20 // 2 MiB
)

// ErrNoImage is returned when the page was fetched and parsed but no
// extraction rule matched.
var ErrNoImage = errors.New("no extractable image on page")

// ImageScraper fetches article pages and extracts an image URL.
// Safe for concurrent use.
type ImageScraper struct {
	client  *http.Client
	breaker *circuitbreaker.CircuitBreaker
	limiter *rate.Limiter
}

// NewImageScraper creates a scraper with the given timeout and a politeness
// cap of requestsPerSecond across all concurrent feed pipelines.
func NewImageScraper(timeout time.Duration, requestsPerSecond float64) *ImageScraper {
	return &ImageScraper{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
				TLSClientConfig: &tls.Config{
					MinVersion: tls.VersionTLS12,
				},
			},
		},
		breaker: circuitbreaker.New(circuitbreaker.PageScrapeConfig()),
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
	}
}

// ScrapeImage fetches pageURL and extracts an image reference, trying in
// order: Open Graph og:image, the Twitter-card image, the first <img> inside
// an <article> element, then the first <img> anywhere. Relative references
// are resolved against the page URL.
func (s *ImageScraper) ScrapeImage(ctx context.Context, pageURL string) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("scrape rate limit: %w", err)
	}

	result, err := s.breaker.Execute(func() (interface{}, error) {
		return s.doScrape(ctx, pageURL)
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

func (s *ImageScraper) doScrape(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch page: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch page: unexpected status %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("parse page: %w", err)
	}

	img := extractImage(doc)
	if img == "" {
		return "", ErrNoImage
	}
	return resolveRef(pageURL, img), nil
}

// extractImage applies the extraction rules in priority order.
func extractImage(doc *goquery.Document) string {
	if v, ok := doc.Find(`meta[property="og:image"]`).Attr("content"); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	if v, ok := doc.Find(`meta[name="twitter:image"], meta[property="twitter:image"]`).Attr("content"); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	if v, ok := doc.Find("article img").First().Attr("src"); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	if v, ok := doc.Find("img").First().Attr("src"); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return ""
}

// resolveRef resolves ref against base, returning ref untouched when either
// side fails to parse. A protocol-relative or path-relative image reference
// is common on older news sites.
func resolveRef(base, ref string) string {
	baseURL, err := url.Parse(base)
	if err != nil {
		return ref
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return baseURL.ResolveReference(refURL).String()
}
