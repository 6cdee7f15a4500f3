// Package retry provides exponential-backoff retries for transient
// network failures.
package retry

import (
	"context"
	"errors"
	"time"
)

// Transient marks an error as retryable (rate limits, timeouts,
// transport-level failures). Wrap with %w to preserve classification.
var Transient = errors.New("transient")

// IsTransient reports whether err carries the Transient marker.
func IsTransient(err error) bool {
	return errors.Is(err, Transient)
}

// Do runs op up to maxAttempts times. Before attempt i (i > 0) it waits
// baseDelay * 2^(i-1). Only transient errors are retried; any other error
// propagates immediately without consuming the remaining attempts.
// Exhausting maxAttempts returns the last transient error.
func Do[T any](ctx context.Context, maxAttempts int, baseDelay time.Duration, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	delay := baseDelay
	var lastErr error

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		if !IsTransient(err) {
			return zero, err
		}
		lastErr = err
	}

	return zero, lastErr
}
