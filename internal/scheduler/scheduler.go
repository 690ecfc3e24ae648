// Package scheduler fires world ticks on a wall-clock interval. Missed
// intervals (process downtime) are made up with at most one catch-up
// tick on start; the world never fast-forwards through dead time.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Ticker is the tick capability the scheduler drives.
type Ticker interface {
	Tick(ctx context.Context) error
}

// Scheduler runs ticks at a fixed interval.
type Scheduler struct {
	ticker   Ticker
	interval time.Duration
	lastAt   func(ctx context.Context) (time.Time, error)

	// callbacks run after each successful tick. Register before Run.
	callbacks []func()

	mu      sync.Mutex
	running bool
}

// New creates a scheduler. lastAt reads the persistent watermark of the
// last committed tick and may return the zero time when none exists.
func New(ticker Ticker, interval time.Duration, lastAt func(ctx context.Context) (time.Time, error)) *Scheduler {
	return &Scheduler{ticker: ticker, interval: interval, lastAt: lastAt}
}

// OnTick registers a callback notified after every successful tick,
// e.g. to broadcast the year's chronicle.
func (s *Scheduler) OnTick(fn func()) {
	s.callbacks = append(s.callbacks, fn)
}

// Run blocks until ctx is canceled, firing ticks every interval. If the
// stored watermark shows a full interval elapsed while the process was
// down, exactly one catch-up tick fires immediately.
func (s *Scheduler) Run(ctx context.Context) error {
	if due, err := s.catchUpDue(ctx); err != nil {
		slog.Warn("tick watermark unreadable, skipping catch-up", "error", err)
	} else if due {
		slog.Info("firing catch-up tick")
		s.fire(ctx)
	}

	t := time.NewTicker(s.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			// Fired off the loop so a slow tick delays nothing; the
			// running flag drops overlapping fires.
			go s.fire(ctx)
		}
	}
}

func (s *Scheduler) catchUpDue(ctx context.Context) (bool, error) {
	last, err := s.lastAt(ctx)
	if err != nil {
		return false, err
	}
	if last.IsZero() {
		return false, nil
	}
	return time.Since(last) >= s.interval, nil
}

// fire runs one tick unless one is already in flight. A tick that
// outlasts the interval swallows the overlapping fire instead of
// queueing it.
func (s *Scheduler) fire(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		slog.Warn("tick still running, skipping fire")
		return
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	if err := s.ticker.Tick(ctx); err != nil {
		slog.Error("tick failed", "error", err)
		return
	}
	for _, fn := range s.callbacks {
		fn()
	}
}
