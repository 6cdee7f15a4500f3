// Package flight provides a single-flight, failure-retriable
// initialization guard shared by network-facing services.
package flight

import (
	"context"
	"sync"
)

// state of the initializer.
type state int

const (
	stateIdle state = iota
	stateInitializing
	stateReady
)

// Initializer coordinates expensive setup so that at most one attempt
// runs at a time. The first caller performs the setup; concurrent
// callers attach to the in-flight attempt and receive its outcome.
// Failure is never cached: the next call after a failure starts a fresh
// attempt. Once ready, calls are no-ops until Reset.
type Initializer struct {
	mu      sync.Mutex
	state   state
	gen     uint64 // bumped by Reset; a stale flight cannot mark Ready
	waiters []chan error
}

// New creates an idle initializer.
func New() *Initializer {
	return &Initializer{}
}

// Ready reports whether initialization has completed successfully.
func (i *Initializer) Ready() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.state == stateReady
}

// Do runs init exactly once for the current flight. If a flight is in
// progress the caller blocks until it resolves and receives the same
// error (or nil) as the initiating caller. If already ready, Do returns
// nil immediately.
func (i *Initializer) Do(ctx context.Context, init func(ctx context.Context) error) error {
	i.mu.Lock()
	switch i.state {
	case stateReady:
		i.mu.Unlock()
		return nil
	case stateInitializing:
		ch := make(chan error, 1)
		i.waiters = append(i.waiters, ch)
		i.mu.Unlock()
		select {
		case err := <-ch:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	i.state = stateInitializing
	gen := i.gen
	i.mu.Unlock()

	err := init(ctx)

	i.mu.Lock()
	switch {
	case err != nil:
		i.state = stateIdle
	case gen != i.gen:
		// Reset raced with this flight: the outcome is delivered to the
		// attached callers but the session is considered torn down.
		i.state = stateIdle
	default:
		i.state = stateReady
	}
	waiters := i.waiters
	i.waiters = nil
	i.mu.Unlock()

	for _, ch := range waiters {
		ch <- err
	}
	return err
}

// Reset returns the initializer to idle so the next Do re-runs init.
// Used when the initialization target changes (endpoint swap, session
// teardown). A reset during an in-flight attempt does not interrupt it;
// the attempt's outcome still reaches its attached callers, but the
// state afterwards is idle, not ready.
func (i *Initializer) Reset() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.gen++
	if i.state == stateReady {
		i.state = stateIdle
	}
}
