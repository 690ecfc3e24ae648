package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingTicker struct {
	count atomic.Int64
}

func (c *countingTicker) Tick(_ context.Context) error {
	c.count.Add(1)
	return nil
}

func TestCatchUpFiresOnceWhenOverdue(t *testing.T) {
	ticker := &countingTicker{}
	stale := time.Now().Add(-48 * time.Hour)
	s := New(ticker, 24*time.Hour, func(context.Context) (time.Time, error) {
		return stale, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	s.Run(ctx)

	assert.Equal(t, int64(1), ticker.count.Load())
}

func TestNoCatchUpForFreshWorld(t *testing.T) {
	ticker := &countingTicker{}
	s := New(ticker, 24*time.Hour, func(context.Context) (time.Time, error) {
		return time.Time{}, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	s.Run(ctx)

	assert.Equal(t, int64(0), ticker.count.Load())
}

func TestNoCatchUpWhenRecent(t *testing.T) {
	ticker := &countingTicker{}
	recent := time.Now().Add(-time.Minute)
	s := New(ticker, 24*time.Hour, func(context.Context) (time.Time, error) {
		return recent, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	s.Run(ctx)

	assert.Equal(t, int64(0), ticker.count.Load())
}

func TestIntervalFires(t *testing.T) {
	ticker := &countingTicker{}
	s := New(ticker, 20*time.Millisecond, func(context.Context) (time.Time, error) {
		return time.Time{}, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	s.Run(ctx)

	assert.GreaterOrEqual(t, ticker.count.Load(), int64(2))
}

func TestOnTickCallbackFiresAfterTick(t *testing.T) {
	ticker := &countingTicker{}
	stale := time.Now().Add(-48 * time.Hour)
	s := New(ticker, 24*time.Hour, func(context.Context) (time.Time, error) {
		return stale, nil
	})

	var notified atomic.Int64
	s.OnTick(func() { notified.Add(1) })

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	s.Run(ctx)

	assert.Equal(t, int64(1), notified.Load())
}

type failingTicker struct{}

func (failingTicker) Tick(_ context.Context) error {
	return context.DeadlineExceeded
}

func TestOnTickCallbackSkippedOnFailure(t *testing.T) {
	stale := time.Now().Add(-48 * time.Hour)
	s := New(failingTicker{}, 24*time.Hour, func(context.Context) (time.Time, error) {
		return stale, nil
	})

	var notified atomic.Int64
	s.OnTick(func() { notified.Add(1) })

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	s.Run(ctx)

	assert.Equal(t, int64(0), notified.Load())
}

type blockingTicker struct {
	started chan struct{}
	release chan struct{}
	count   atomic.Int64
}

func (b *blockingTicker) Tick(_ context.Context) error {
	if b.count.Add(1) == 1 {
		close(b.started)
		<-b.release
	}
	return nil
}

func TestOverlappingFireIsSkipped(t *testing.T) {
	ticker := &blockingTicker{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	s := New(ticker, 10*time.Millisecond, func(context.Context) (time.Time, error) {
		return time.Time{}, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	<-ticker.started
	// Several intervals elapse while the first tick is still running;
	// every overlapping fire must be dropped.
	time.Sleep(60 * time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, int64(1), ticker.count.Load())
	close(ticker.release)
}
