package ingest

import (
	"sync"
	"sync/atomic"
	"time"
)

// FeedFailure records one feed whose fetch cycle failed during a run.
type FeedFailure struct {
	Feed         string
	Err          string
	FailureCount int
	Deactivated  bool
}

// Report accumulates counters for one ingestion run. Counter updates are
// atomic and the category histogram is mutex-protected, so feed goroutines
// write to a shared Report without coordination.
type Report struct {
	Feeds    int
	Duration time.Duration

	fetched           atomic.Int64
	stale             atomic.Int64
	alreadyStored     atomic.Int64
	duplicateInRun    atomic.Int64
	duplicateOnInsert atomic.Int64
	dbErrors          atomic.Int64
	categorizeErrors  atomic.Int64
	saved             atomic.Int64

	mu          sync.Mutex
	categories  map[string]int
	failedFeeds []FeedFailure
}

// NewReport returns an empty run report.
func NewReport() *Report {
	return &Report{categories: make(map[string]int)}
}

func (r *Report) AddFetched(n int)      { r.fetched.Add(int64(n)) }
func (r *Report) AddStale(n int)        { r.stale.Add(int64(n)) }
func (r *Report) AddAlreadyStored()     { r.alreadyStored.Add(1) }
func (r *Report) AddDuplicateInRun()    { r.duplicateInRun.Add(1) }
func (r *Report) AddDuplicateOnInsert() { r.duplicateOnInsert.Add(1) }
func (r *Report) AddDBError()           { r.dbErrors.Add(1) }
func (r *Report) AddCategorizeError()   { r.categorizeErrors.Add(1) }

// AddSaved counts one persisted article under its category.
func (r *Report) AddSaved(category string) {
	r.saved.Add(1)
	r.mu.Lock()
	r.categories[category]++
	r.mu.Unlock()
}

// AddFeedFailure records a failed feed cycle.
func (r *Report) AddFeedFailure(f FeedFailure) {
	r.mu.Lock()
	r.failedFeeds = append(r.failedFeeds, f)
	r.mu.Unlock()
}

func (r *Report) Fetched() int64           { return r.fetched.Load() }
func (r *Report) Stale() int64             { return r.stale.Load() }
func (r *Report) AlreadyStored() int64     { return r.alreadyStored.Load() }
func (r *Report) DuplicateInRun() int64    { return r.duplicateInRun.Load() }
func (r *Report) DuplicateOnInsert() int64 { return r.duplicateOnInsert.Load() }
func (r *Report) DBErrors() int64          { return r.dbErrors.Load() }
func (r *Report) CategorizeErrors() int64  { return r.categorizeErrors.Load() }
func (r *Report) Saved() int64             { return r.saved.Load() }

// Summary is an immutable copy of the report, safe to hand to loggers and
// notifiers after the run finishes.
type Summary struct {
	Feeds             int
	Fetched           int64
	Stale             int64
	AlreadyStored     int64
	DuplicateInRun    int64
	DuplicateOnInsert int64
	DBErrors          int64
	CategorizeErrors  int64
	Saved             int64
	Categories        map[string]int
	FailedFeeds       []FeedFailure
	Duration          time.Duration
}

// Summary snapshots the report.
func (r *Report) Summary() Summary {
	r.mu.Lock()
	categories := make(map[string]int, len(r.categories))
	for k, v := range r.categories {
		categories[k] = v
	}
	failed := make([]FeedFailure, len(r.failedFeeds))
	copy(failed, r.failedFeeds)
	r.mu.Unlock()

	return Summary{
		Feeds:             r.Feeds,
		Fetched:           r.Fetched(),
		Stale:             r.Stale(),
		AlreadyStored:     r.AlreadyStored(),
		DuplicateInRun:    r.DuplicateInRun(),
		DuplicateOnInsert: r.DuplicateOnInsert(),
		DBErrors:          r.DBErrors(),
		CategorizeErrors:  r.CategorizeErrors(),
		Saved:             r.Saved(),
		Categories:        categories,
		FailedFeeds:       failed,
		Duration:          r.Duration,
	}
}
