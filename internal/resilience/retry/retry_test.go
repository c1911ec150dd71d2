package retry_test

import (
	"context"
	"errors"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pressfeed/internal/resilience/retry"
)

func fastConfig(attempts int) retry.Config {
	return retry.Config{
		MaxAttempts:  attempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     time.Millisecond,
		Multiplier:   1.0,
	}
}

func TestWithBackoffSucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := retry.WithBackoff(context.Background(), fastConfig(3), func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestWithBackoffRecoversAfterTransientFailures(t *testing.T) {
	calls := 0
	err := retry.WithBackoff(context.Background(), fastConfig(3), func() error {
		calls++
		if calls < 3 {
			return &retry.HTTPError{StatusCode: 503, Message: "unavailable"}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithBackoffExhaustsBudget(t *testing.T) {
	calls := 0
	cause := &retry.HTTPError{StatusCode: 500, Message: "boom"}
	err := retry.WithBackoff(context.Background(), fastConfig(3), func() error {
		calls++
		return cause
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.ErrorIs(t, err, error(cause))
}

func TestWithBackoffStopsOnNonRetryable(t *testing.T) {
	calls := 0
	cause := &retry.HTTPError{StatusCode: 400, Message: "bad input"}
	err := retry.WithBackoff(context.Background(), fastConfig(3), func() error {
		calls++
		return cause
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls, "4xx must not be retried")
	assert.ErrorIs(t, err, error(cause))
}

func TestWithBackoffHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := retry.Config{MaxAttempts: 3, InitialDelay: time.Minute, MaxDelay: time.Minute, Multiplier: 1.0}
	err := retry.WithBackoff(ctx, cfg, func() error {
		return &retry.HTTPError{StatusCode: 500, Message: "boom"}
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"context canceled", context.Canceled, false},
		{"deadline exceeded", context.DeadlineExceeded, false},
		{"connection refused", syscall.ECONNREFUSED, true},
		{"http 500", &retry.HTTPError{StatusCode: 500}, true},
		{"http 429", &retry.HTTPError{StatusCode: 429}, true},
		{"http 408", &retry.HTTPError{StatusCode: 408}, true},
		{"http 404", &retry.HTTPError{StatusCode: 404}, false},
		{"plain error", errors.New("nope"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, retry.IsRetryable(tt.err))
		})
	}
}
