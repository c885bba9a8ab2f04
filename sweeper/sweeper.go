// Package sweeper removes elapsed session deadlines in the background.
package sweeper

import (
	"context"
	"time"
)

// Target is anything that can drop its elapsed deadlines in one pass.
// *ttlstate.ExpiryCache implements it.
type Target interface {
	Sweep(ctx context.Context) (int, error)
}

// IntervalSweeper sweeps a target at a fixed interval.
// Lazy removal already keeps reads correct; sweeping bounds the memory held
// by sessions that are never read again.
type IntervalSweeper struct {
	target            Target
	interval          time.Duration
	onBackgroundError func(error)
	onSwept           func(int)
}

// NewIntervalSweeper creates a new IntervalSweeper.
// onBackgroundError receives every error returned by a sweep and must not be nil.
func NewIntervalSweeper(target Target, interval time.Duration, onBackgroundError func(error)) *IntervalSweeper {
	if interval <= 0 {
		panic("sweeper: interval must be positive")
	}
	return &IntervalSweeper{
		target:            target,
		interval:          interval,
		onBackgroundError: onBackgroundError,
		onSwept:           func(int) {},
	}
}

// OnSwept registers a callback receiving the number of deadlines removed by each sweep.
func (s *IntervalSweeper) OnSwept(f func(removed int)) *IntervalSweeper {
	s.onSwept = f
	return s
}

// LaunchBackgroundSweeper starts sweeping on a new goroutine.
// It stops when ctx is canceled.
func (s *IntervalSweeper) LaunchBackgroundSweeper(ctx context.Context) {
	go s.poll(ctx)
}

// poll sweeps once right away, then at the fixed interval.
func (s *IntervalSweeper) poll(ctx context.Context) {
	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *IntervalSweeper) sweep(ctx context.Context) {
	removed, err := s.target.Sweep(ctx)
	if err != nil {
		s.onBackgroundError(err)
		return
	}
	s.onSwept(removed)
}
