package platform

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// blockingCycle runs cycles that wait for release.
type blockingCycle struct {
	started chan Source
	release chan struct{}
	active  atomic.Int32
	maxSeen atomic.Int32
	runs    atomic.Int32
}

func newBlockingCycle() *blockingCycle {
	return &blockingCycle{started: make(chan Source, 10), release: make(chan struct{})}
}

func (b *blockingCycle) run(_ context.Context, source Source) error {
	n := b.active.Add(1)
	defer b.active.Add(-1)
	for {
		m := b.maxSeen.Load()
		if n <= m || b.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}
	b.runs.Add(1)
	b.started <- source
	<-b.release
	return nil
}

func waitStarted(t *testing.T, b *blockingCycle) Source {
	t.Helper()
	select {
	case s := <-b.started:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("cycle did not start")
		return ""
	}
}

func TestRunner_RunAndWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var got Source
	r := NewRunner(func(_ context.Context, s Source) error {
		got = s
		return errBoom
	})
	go r.Run(ctx)

	if err := r.RunAndWait(ctx, SourceStartup); !errors.Is(err, errBoom) {
		t.Errorf("RunAndWait() error = %v, want cycle error", err)
	}
	if got != SourceStartup {
		t.Errorf("source = %q, want startup", got)
	}
}

func TestRunner_CoalescesWhileBusy(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := newBlockingCycle()
	r := NewRunner(b.run)
	go r.Run(ctx)

	if !r.Trigger(SourceStartup) {
		t.Fatal("first Trigger() merged")
	}
	waitStarted(t, b)

	// One cycle is running: the next trigger queues, the rest join it.
	if !r.Trigger(SourceSchedule) {
		t.Error("Trigger() while running should queue a cycle")
	}
	if r.Trigger(SourceReload) {
		t.Error("Trigger() with a queued cycle should merge")
	}
	if r.Trigger(SourceAPI) {
		t.Error("Trigger() with a queued cycle should merge")
	}
	if !r.Busy() {
		t.Error("Busy() = false while running")
	}

	b.release <- struct{}{}
	if s := waitStarted(t, b); s != SourceSchedule {
		t.Errorf("queued cycle source = %q, want schedule", s)
	}
	b.release <- struct{}{}

	time.Sleep(50 * time.Millisecond)
	if runs := b.runs.Load(); runs != 2 {
		t.Errorf("runs = %d, want 2", runs)
	}
	if b.maxSeen.Load() != 1 {
		t.Errorf("max concurrent cycles = %d, want 1", b.maxSeen.Load())
	}
}

func TestRunner_WaitersOfMergedTrigger(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := newBlockingCycle()
	r := NewRunner(b.run)
	go r.Run(ctx)

	r.Trigger(SourceStartup)
	waitStarted(t, b)
	r.Trigger(SourceSchedule)

	var wg sync.WaitGroup
	errs := make(chan error, 3)
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- r.RunAndWait(ctx, SourceReload)
		}()
	}

	waitForWaiters(t, r, 3)

	b.release <- struct{}{}
	waitStarted(t, b)
	b.release <- struct{}{}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("RunAndWait() error = %v", err)
		}
	}
	if runs := b.runs.Load(); runs != 2 {
		t.Errorf("runs = %d, want 2", runs)
	}
}

func waitForWaiters(t *testing.T, r *Runner, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		r.mu.Lock()
		queued := 0
		if r.pending != nil {
			queued = len(r.pending.waiters)
		}
		r.mu.Unlock()
		if queued == n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("waiters did not join the queued cycle")
}

func TestRunner_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := NewRunner(func(context.Context, Source) error { return nil })
	cancel()

	if err := r.RunAndWait(ctx, SourceAPI); !errors.Is(err, context.Canceled) {
		t.Errorf("RunAndWait() error = %v, want context.Canceled", err)
	}
}
