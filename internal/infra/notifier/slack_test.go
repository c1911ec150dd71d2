package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pressfeed/internal/resilience/retry"
	"pressfeed/internal/usecase/ingest"
)

func sampleSummary() ingest.Summary {
	return ingest.Summary{
		Feeds:         5,
		Fetched:       120,
		Stale:         40,
		AlreadyStored: 60,
		Saved:         18,
		Categories:    map[string]int{"Sports": 10, "Politics": 8},
		FailedFeeds: []ingest.FeedFailure{
			{Feed: "Flaky Feed", Err: "timeout", FailureCount: 2, Deactivated: true},
		},
		Duration: 42 * time.Second,
	}
}

func TestNotifyRunSummaryPostsBlockKitPayload(t *testing.T) {
	var got webhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte("ok"))
	}))
	t.Cleanup(srv.Close)

	n := NewSlackNotifier(SlackConfig{WebhookURL: srv.URL})
	require.NoError(t, n.NotifyRunSummary(context.Background(), sampleSummary()))

	require.Len(t, got.Blocks, 2)
	section := got.Blocks[0]
	require.NotNil(t, section.Text)
	assert.Contains(t, section.Text.Text, "*Saved: 18*")
	assert.Contains(t, section.Text.Text, "Sports: 10, Politics: 8")
	assert.Contains(t, got.Blocks[1].Elements[0].Text, "Flaky Feed (deactivated)")
	assert.Contains(t, got.Text, "18 saved")
}

func TestNotifyRunSummaryRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "service unavailable", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	t.Cleanup(srv.Close)

	n := NewSlackNotifier(SlackConfig{WebhookURL: srv.URL})
	n.retryCfg = retry.Config{MaxAttempts: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}

	require.NoError(t, n.NotifyRunSummary(context.Background(), sampleSummary()))
	assert.Equal(t, int32(2), calls.Load())
}

func TestNotifyRunSummaryDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "invalid_payload", http.StatusBadRequest)
	}))
	t.Cleanup(srv.Close)

	n := NewSlackNotifier(SlackConfig{WebhookURL: srv.URL})
	n.retryCfg = retry.Config{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}

	require.Error(t, n.NotifyRunSummary(context.Background(), sampleSummary()))
	assert.Equal(t, int32(1), calls.Load())
}

func TestNotifyRunSummaryDisabledWithoutWebhook(t *testing.T) {
	n := NewSlackNotifier(SlackConfig{})
	assert.False(t, n.Enabled())
	assert.NoError(t, n.NotifyRunSummary(context.Background(), sampleSummary()))
}
