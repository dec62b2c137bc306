package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/dgallion1/docgraph/internal/pathstore"
)

const MaxRetries = 3

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	var retryErr *pathstore.RetryableError
	return errors.As(err, &retryErr)
}

// Backoff returns a duration for attempt n (0-indexed) with jitter.
func Backoff(attempt int) time.Duration {
	base := time.Duration(1<<uint(attempt)) * time.Second
	if base > 30*time.Second {
		base = 30 * time.Second
	}
	jitter := time.Duration(rand.Int64N(int64(base) / 2))
	return base + jitter
}

// backoffFunc is swapped out by tests.
var backoffFunc = Backoff

// withRetry runs fn up to MaxRetries times while it fails with a retryable error.
// A server-supplied Retry-After wins over the computed backoff.
func withRetry(ctx context.Context, log *slog.Logger, op string, fn func() error) error {
	var err error
	for attempt := range MaxRetries {
		if err = fn(); err == nil || !IsRetryable(err) {
			return err
		}
		if attempt == MaxRetries-1 {
			break
		}
		wait := backoffFunc(attempt)
		var retryErr *pathstore.RetryableError
		if errors.As(err, &retryErr) && retryErr.RetryAfter > 0 {
			wait = retryErr.RetryAfter
		}
		log.Warn("retryable store error", "op", op, "attempt", attempt, "wait_ms", wait.Milliseconds(), "error", err)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}
