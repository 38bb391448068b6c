package scoring

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/DhavalSuthar-24/crease/internal/apperror"
)

var errMatchUnloaded = errors.New("scoring: match was unloaded")

// sequencer runs the write operations of one match one at a time, in the
// order they were queued.
type sequencer struct {
	jobs     chan func()
	quit     chan struct{}
	stopOnce sync.Once

	// queued or running jobs
	pending atomic.Int64
}

func newSequencer(depth int) *sequencer {
	if depth <= 0 {
		depth = 64
	}
	s := &sequencer{
		jobs: make(chan func(), depth),
		quit: make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *sequencer) run() {
	for {
		select {
		case job := <-s.jobs:
			job()
		case <-s.quit:
			return
		}
	}
}

// Do queues fn behind everything already submitted and waits for it.
func (s *sequencer) Do(ctx context.Context, fn func() error) error {
	s.pending.Add(1)
	return s.submit(ctx, fn)
}

// TryDo runs fn only when nothing else is queued or running for the match.
func (s *sequencer) TryDo(ctx context.Context, fn func() error) error {
	if !s.pending.CompareAndSwap(0, 1) {
		return apperror.Busy()
	}
	return s.submit(ctx, fn)
}

func (s *sequencer) submit(ctx context.Context, fn func() error) error {
	done := make(chan error, 1)
	// The job leaves pending before its caller wakes, so a caller that
	// goes straight on to TryDo finds the match idle.
	job := func() {
		err := fn()
		s.pending.Add(-1)
		done <- err
	}

	select {
	case s.jobs <- job:
	case <-ctx.Done():
		s.pending.Add(-1)
		return ctx.Err()
	case <-s.quit:
		s.pending.Add(-1)
		return errMatchUnloaded
	}

	// Once queued the job always runs; the caller may stop waiting for it.
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-s.quit:
		return errMatchUnloaded
	}
}

// Busy reports whether any job is queued or running.
func (s *sequencer) Busy() bool {
	return s.pending.Load() > 0
}

func (s *sequencer) Stop() {
	s.stopOnce.Do(func() { close(s.quit) })
}
