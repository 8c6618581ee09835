package platform

import (
	"context"
	"sync"
)

// Source is what started a sync cycle.
type Source string

const (
	SourceStartup  Source = "startup"
	SourceSchedule Source = "schedule"
	SourceReload   Source = "reload"
	SourceAPI      Source = "api"
)

// CycleFunc runs one sync cycle.
type CycleFunc func(ctx context.Context, source Source) error

// Runner is the single consumer of sync cycle triggers.
//
// At most one cycle runs and at most one is queued. A trigger arriving
// while a cycle is queued joins it; waiters of a joined trigger get the
// queued cycle's result.
type Runner struct {
	cycle CycleFunc
	wake  chan struct{}

	mu      sync.Mutex
	pending *request
	running bool
}

type request struct {
	source  Source
	waiters []chan error
}

// NewRunner creates a runner for cycle. Nothing runs until Run is called.
func NewRunner(cycle CycleFunc) *Runner {
	return &Runner{
		cycle: cycle,
		wake:  make(chan struct{}, 1),
	}
}

// Run consumes triggers until ctx is cancelled. Waiters still queued at
// that point receive ctx.Err().
func (r *Runner) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			r.mu.Lock()
			req := r.pending
			r.pending = nil
			r.mu.Unlock()
			if req != nil {
				req.finish(ctx.Err())
			}
			return
		case <-r.wake:
			r.runPending(ctx)
		}
	}
}

func (r *Runner) runPending(ctx context.Context) {
	r.mu.Lock()
	req := r.pending
	r.pending = nil
	r.running = req != nil
	r.mu.Unlock()

	if req == nil {
		return
	}

	err := r.cycle(ctx, req.source)

	r.mu.Lock()
	r.running = false
	r.mu.Unlock()

	req.finish(err)
}

// Trigger queues a cycle. It returns false when the trigger was merged
// into an already queued cycle.
func (r *Runner) Trigger(source Source) bool {
	return r.enqueue(source, nil)
}

// RunAndWait queues a cycle and waits for its result.
func (r *Runner) RunAndWait(ctx context.Context, source Source) error {
	done := make(chan error, 1)
	r.enqueue(source, done)

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Busy reports whether a cycle is running or queued.
func (r *Runner) Busy() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running || r.pending != nil
}

func (r *Runner) enqueue(source Source, waiter chan error) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.pending != nil {
		if waiter != nil {
			r.pending.waiters = append(r.pending.waiters, waiter)
		}
		return false
	}

	r.pending = &request{source: source}
	if waiter != nil {
		r.pending.waiters = append(r.pending.waiters, waiter)
	}
	select {
	case r.wake <- struct{}{}:
	default:
	}
	return true
}

func (req *request) finish(err error) {
	for _, w := range req.waiters {
		w <- err
	}
}
