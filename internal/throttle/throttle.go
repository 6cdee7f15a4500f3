// Package throttle enforces a minimum spacing between outbound calls to
// an external endpoint.
package throttle

import (
	"context"
	"sync"
	"time"
)

// Throttle serializes window acquisition: Await blocks until at least
// the configured interval has elapsed since the previous acquisition on
// the same instance. Waiters proceed one per window; wake order is
// unspecified.
type Throttle struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
}

// New creates a throttle with the given minimum interval between calls.
func New(interval time.Duration) *Throttle {
	return &Throttle{interval: interval}
}

// Await blocks until the caller may proceed, then records the new call
// time. Returns early with ctx.Err() if the context is cancelled while
// waiting.
func (t *Throttle) Await(ctx context.Context) error {
	for {
		t.mu.Lock()
		now := time.Now()
		wait := t.interval - now.Sub(t.last)
		if wait <= 0 {
			t.last = now
			t.mu.Unlock()
			return nil
		}
		t.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}
