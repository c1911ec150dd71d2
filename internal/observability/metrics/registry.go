// Package metrics provides centralized Prometheus metrics for the ingestion
// pipeline. Collectors are registered with promauto on package init; the
// worker exposes them on the /metrics endpoint when running in daemon mode.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Ingestion run metrics track the outcome of whole runs.
var (
	// IngestRunsTotal counts completed ingestion runs by outcome.
	IngestRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_runs_total",
			Help: "Total number of ingestion runs",
		},
		[]string{"outcome"}, // outcome: completed, failed
	)

	// IngestRunDuration measures wall-clock duration of a full ingestion run.
	IngestRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ingest_run_duration_seconds",
			Help:    "Wall-clock duration of a full ingestion run",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
	)
)

// Per-feed metrics track the health and yield of individual sources.
var (
	// FeedFetchDuration measures time to fetch and process one feed source.
	FeedFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "feed_fetch_duration_seconds",
			Help:    "Time taken to fetch and process one feed source",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		},
		[]string{"feed"},
	)

	// FeedFetchErrors counts failed feed fetch cycles.
	FeedFetchErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_fetch_errors_total",
			Help: "Total number of failed feed fetch cycles",
		},
		[]string{"feed"},
	)

	// FeedsDeactivatedTotal counts sources auto-deactivated by the health
	// tracker.
	FeedsDeactivatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feeds_deactivated_total",
			Help: "Total number of feed sources auto-deactivated after consecutive failures",
		},
	)

	// EntriesFetchedTotal counts raw entries parsed from feeds.
	EntriesFetchedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "entries_fetched_total",
			Help: "Total number of raw entries parsed from feeds",
		},
		[]string{"feed"},
	)

	// EntriesSkippedTotal counts entries dropped before persistence, by reason.
	EntriesSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "entries_skipped_total",
			Help: "Total number of entries skipped before persistence",
		},
		[]string{"reason"}, // reason: stale, already_stored, duplicate_in_run, duplicate_on_insert, categorize_failed, db_error
	)
)

// Article and enrichment metrics track the produce side of the pipeline.
var (
	// ArticlesSavedTotal counts persisted articles by assigned category.
	ArticlesSavedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "articles_saved_total",
			Help: "Total number of articles persisted",
		},
		[]string{"category"},
	)

	// ImageResolutionsTotal counts resolved article images by source tier.
	ImageResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_resolutions_total",
			Help: "Total number of article image resolutions",
		},
		[]string{"tier"}, // tier: embedded, scraped, backup, default
	)

	// ClassifyDuration measures the latency of one classification call,
	// including retries.
	ClassifyDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "classify_duration_seconds",
			Help:    "Latency of a classification call including retries",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		},
	)

	// ClassifyAttemptsTotal counts classification calls by final result.
	ClassifyAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "classify_attempts_total",
			Help: "Total number of classification calls",
		},
		[]string{"result"}, // result: success, failure
	)
)
