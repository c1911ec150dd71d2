// Package retry applies a bounded-attempt backoff policy to fallible
// network-bound calls. The pipeline has exactly two such dependencies, the
// classification endpoint and the Slack webhook, and both share this
// mechanism with their own Config values.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net"
	"net/http"
	"syscall"
	"time"
)

// Config is a retry policy. A Multiplier of 1.0 gives a fixed inter-attempt
// delay; larger values ramp the delay up to MaxDelay.
type Config struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// InitialDelay is the delay before the first retry.
	InitialDelay time.Duration

	// MaxDelay caps the delay between retries.
	MaxDelay time.Duration

	// Multiplier scales the delay after each failed attempt.
	Multiplier float64

	// JitterFraction is the fraction of the delay added as random jitter,
	// 0.0 to 1.0.
	JitterFraction float64
}

// ClassifierConfig returns the policy for zero-shot classification calls:
// three attempts with a fixed 2s inter-attempt delay and no jitter. The
// inference service fails in bursts (cold models, rate limits), so a short
// fixed pause works better than an exponential ramp.
func ClassifierConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: 2 * time.Second,
		MaxDelay:     2 * time.Second,
		Multiplier:   1.0,
	}
}

// WithBackoff executes fn under the given policy. It returns nil as soon as
// an attempt succeeds, a non-retryable error unchanged, and the last error
// wrapped once all attempts are spent.
func WithBackoff(ctx context.Context, cfg Config, fn func() error) error {
	delay := cfg.InitialDelay

	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil {
			if attempt > 1 {
				slog.Info("operation succeeded after retry", slog.Int("attempt", attempt))
			}
			return nil
		}
		if !IsRetryable(err) {
			slog.Warn("non-retryable error, aborting",
				slog.Int("attempt", attempt),
				slog.Any("error", err))
			return err
		}
		if attempt >= cfg.MaxAttempts {
			return fmt.Errorf("max retry attempts (%d) exceeded: %w", cfg.MaxAttempts, err)
		}

		slog.Warn("operation failed, retrying",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", cfg.MaxAttempts),
			slog.Duration("delay", delay),
			slog.Any("error", err))
		if err := sleep(ctx, delay); err != nil {
			return err
		}
		delay = nextDelay(delay, cfg)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("retry aborted: %w", ctx.Err())
	}
}

func nextDelay(current time.Duration, cfg Config) time.Duration {
	d := time.Duration(float64(current) * cfg.Multiplier)
	if d > cfg.MaxDelay {
		d = cfg.MaxDelay
	}
	if cfg.JitterFraction > 0 {
		frac := cfg.JitterFraction
		if frac > 1.0 {
			frac = 1.0
		}
		// #nosec G404 -- math/rand is fine for backoff jitter.
		d += time.Duration(rand.Float64() * float64(d) * frac)
	}
	return d
}

// IsRetryable reports whether another attempt could plausibly succeed:
// network timeouts, refused or reset connections, and 5xx/429/408 responses.
// Context errors never are; the caller is already being torn down.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ETIMEDOUT) ||
		errors.Is(err, syscall.ENETUNREACH) {
		return true
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		switch {
		case httpErr.StatusCode >= 500 && httpErr.StatusCode < 600:
			return true
		case httpErr.StatusCode == http.StatusTooManyRequests:
			return true
		case httpErr.StatusCode == http.StatusRequestTimeout:
			return true
		}
	}
	return false
}

// HTTPError carries a response status code so IsRetryable can classify it.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}
