package flight

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestDoRunsInitOnce(t *testing.T) {
	i := New()
	var runs atomic.Int32

	const callers = 10
	release := make(chan struct{})
	var wg sync.WaitGroup
	errs := make([]error, callers)

	for c := 0; c < callers; c++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			errs[idx] = i.Do(context.Background(), func(ctx context.Context) error {
				runs.Add(1)
				<-release
				return nil
			})
		}(c)
	}

	// Let the flight start and the rest attach.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := runs.Load(); got != 1 {
		t.Errorf("expected exactly 1 init run, got %d", got)
	}
	for idx, err := range errs {
		if err != nil {
			t.Errorf("caller %d got error: %v", idx, err)
		}
	}
	if !i.Ready() {
		t.Error("expected ready after success")
	}
}

func TestDoSharedFailure(t *testing.T) {
	i := New()
	initErr := errors.New("connect refused")

	const callers = 5
	release := make(chan struct{})
	var wg sync.WaitGroup
	errs := make([]error, callers)

	for c := 0; c < callers; c++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			errs[idx] = i.Do(context.Background(), func(ctx context.Context) error {
				<-release
				return initErr
			})
		}(c)
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for idx, err := range errs {
		if !errors.Is(err, initErr) {
			t.Errorf("caller %d got %v, want the shared init error", idx, err)
		}
	}
	if i.Ready() {
		t.Error("expected not ready after failure")
	}
}

func TestDoFailureNotCached(t *testing.T) {
	i := New()
	calls := 0

	err := i.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return errors.New("first time fails")
	})
	if err == nil {
		t.Fatal("expected failure")
	}

	err = i.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error on retry: %v", err)
	}
	if calls != 2 {
		t.Errorf("expected a fresh attempt after failure, got %d calls", calls)
	}
	if !i.Ready() {
		t.Error("expected ready after successful retry")
	}
}

func TestReadyShortCircuits(t *testing.T) {
	i := New()
	calls := 0
	init := func(ctx context.Context) error {
		calls++
		return nil
	}

	for n := 0; n < 3; n++ {
		if err := i.Do(context.Background(), init); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if calls != 1 {
		t.Errorf("expected 1 init run, got %d", calls)
	}
}

func TestResetForcesReinitialization(t *testing.T) {
	i := New()
	calls := 0
	init := func(ctx context.Context) error {
		calls++
		return nil
	}

	if err := i.Do(context.Background(), init); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	i.Reset()
	if i.Ready() {
		t.Error("expected not ready after reset")
	}
	if err := i.Do(context.Background(), init); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Errorf("expected re-run after reset, got %d calls", calls)
	}
}

func TestResetDuringFlightLeavesIdle(t *testing.T) {
	i := New()
	started := make(chan struct{})
	release := make(chan struct{})

	done := make(chan error, 1)
	go func() {
		done <- i.Do(context.Background(), func(ctx context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()

	<-started
	i.Reset()
	close(release)

	if err := <-done; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if i.Ready() {
		t.Error("stale flight must not mark the initializer ready")
	}
}

func TestDoWaiterContextCancel(t *testing.T) {
	i := New()
	release := make(chan struct{})
	defer close(release)

	started := make(chan struct{})
	go i.Do(context.Background(), func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	})
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := i.Do(ctx, func(ctx context.Context) error { return nil })
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded for waiter, got %v", err)
	}
}
