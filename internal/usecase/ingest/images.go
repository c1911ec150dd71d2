package ingest

import (
	"context"
	"errors"
	"log/slog"

	"pressfeed/internal/domain/entity"
)

// Image resolution tiers, highest priority first. Every article gets an
// image: when the feed carries none and the page scrape yields none, the
// resolver falls back to the region backup and finally the configured
// default.
const (
	TierEmbedded = "embedded"
	TierScraped  = "scraped"
	TierBackup   = "backup"
	TierDefault  = "default"
)

// resolveImage returns the image URL for the entry and the tier that
// produced it. The method never returns an empty URL and never fails: a
// scrape error only moves resolution down a tier.
func (s *Service) resolveImage(ctx context.Context, feed *entity.FeedSource, entry entity.RawEntry, logger *slog.Logger) (string, string) {
	if entry.EmbeddedImage != "" {
		return entry.EmbeddedImage, TierEmbedded
	}

	if s.scraper != nil {
		src, err := s.scraper.ScrapeImage(ctx, entry.Link)
		if err == nil && src != "" {
			return src, TierScraped
		}
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Debug("page image scrape failed, falling back",
				slog.String("link", entry.Link),
				slog.Any("error", err))
		}
	}

	if backup, ok := s.cfg.BackupImages[feed.Region]; ok && backup != "" {
		return backup, TierBackup
	}
	return s.cfg.DefaultImage, TierDefault
}
