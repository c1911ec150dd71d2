package metrics

import "time"

// RecordRun records the outcome and duration of a full ingestion run.
func RecordRun(completed bool, duration time.Duration) {
	outcome := "completed"
	if !completed {
		outcome = "failed"
	}
	IngestRunsTotal.WithLabelValues(outcome).Inc()
	IngestRunDuration.Observe(duration.Seconds())
}

// RecordFeedFetch records one feed's fetch cycle: its duration and the number
// of entries it yielded.
func RecordFeedFetch(feed string, duration time.Duration, entries int) {
	FeedFetchDuration.WithLabelValues(feed).Observe(duration.Seconds())
	EntriesFetchedTotal.WithLabelValues(feed).Add(float64(entries))
}

// RecordFeedError records a failed fetch cycle for a feed.
func RecordFeedError(feed string) {
	FeedFetchErrors.WithLabelValues(feed).Inc()
}

// RecordFeedDeactivated records an auto-deactivation by the health tracker.
func RecordFeedDeactivated() {
	FeedsDeactivatedTotal.Inc()
}

// RecordEntrySkipped records an entry dropped before persistence. Reason is
// one of: stale, already_stored, duplicate_in_run, duplicate_on_insert,
// categorize_failed, db_error.
func RecordEntrySkipped(reason string) {
	EntriesSkippedTotal.WithLabelValues(reason).Inc()
}

// RecordEntriesSkipped records n entries dropped for the same reason.
func RecordEntriesSkipped(reason string, n int) {
	EntriesSkippedTotal.WithLabelValues(reason).Add(float64(n))
}

// RecordArticleSaved records a persisted article under its category.
func RecordArticleSaved(category string) {
	ArticlesSavedTotal.WithLabelValues(category).Inc()
}

// RecordImageResolution records which tier produced an article's image.
// Tier is one of: embedded, scraped, backup, default.
func RecordImageResolution(tier string) {
	ImageResolutionsTotal.WithLabelValues(tier).Inc()
}

// RecordClassify records the final result and total latency of one
// classification call, retries included.
func RecordClassify(success bool, duration time.Duration) {
	result := "success"
	if !success {
		result = "failure"
	}
	ClassifyAttemptsTotal.WithLabelValues(result).Inc()
	ClassifyDuration.Observe(duration.Seconds())
}
