package expiration

import (
	"math/rand/v2"
	"time"
)

// Policy decides whether a deadline has elapsed.
type Policy interface {
	// IsElapsed returns true if the deadline is no longer in the freshness window at now.
	IsElapsed(now, deadline time.Time) bool
}

// StrictPolicy treats a deadline as elapsed once now reaches it.
type StrictPolicy struct{}

var _ Policy = StrictPolicy{}

// IsElapsed returns true unless the deadline is strictly after now.
func (StrictPolicy) IsElapsed(now, deadline time.Time) bool {
	return !deadline.After(now)
}

// NeverPolicy never lets a recorded deadline elapse.
// Keys without a deadline are still stale.
type NeverPolicy struct{}

var _ Policy = NeverPolicy{}

// IsElapsed always returns false.
func (NeverPolicy) IsElapsed(now, deadline time.Time) bool {
	return false
}

// EarlyPolicy may end a session up to Duration before its deadline.
// Spreading expiry over a window keeps sessions started together from all going stale in the same instant.
type EarlyPolicy struct {
	// Duration is how much earlier the deadline may elapse.
	Duration time.Duration

	// Percentage is the chance in [0, 1] that a query applies the early window.
	Percentage float64

	// Random is the random number generator.
	// If nil, it uses the system default random generator.
	Random *rand.Rand
}

var _ Policy = (*EarlyPolicy)(nil)

// IsElapsed behaves like StrictPolicy, except that with probability Percentage
// the deadline is compared against now + Duration.
func (p *EarlyPolicy) IsElapsed(now, deadline time.Time) bool {
	if p.randFloat64() < p.Percentage {
		now = now.Add(p.Duration)
	}
	return !deadline.After(now)
}

func (p *EarlyPolicy) randFloat64() float64 {
	if p.Random == nil {
		return rand.Float64()
	}
	return p.Random.Float64()
}
