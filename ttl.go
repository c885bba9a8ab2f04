package ttlstate

import (
	"fmt"
	"math"
	"time"
)

// TTL describes a freshness window as a sum of calendar-free components.
// A day is always 24 hours.
type TTL struct {
	Days         int `mapstructure:"days" yaml:"days"`
	Hours        int `mapstructure:"hours" yaml:"hours"`
	Minutes      int `mapstructure:"minutes" yaml:"minutes"`
	Seconds      int `mapstructure:"seconds" yaml:"seconds"`
	Milliseconds int `mapstructure:"milliseconds" yaml:"milliseconds"`
}

// Duration returns the sum of the components.
// It returns zero if the sum does not fit in a time.Duration.
func (t TTL) Duration() time.Duration {
	d, ok := t.sum()
	if !ok {
		return 0
	}
	return d
}

func (t TTL) sum() (time.Duration, bool) {
	components := [...]struct {
		n    int
		unit time.Duration
	}{
		{t.Days, 24 * time.Hour},
		{t.Hours, time.Hour},
		{t.Minutes, time.Minute},
		{t.Seconds, time.Second},
		{t.Milliseconds, time.Millisecond},
	}

	var total time.Duration
	for _, c := range components {
		n := int64(c.n)
		if n > math.MaxInt64/int64(c.unit) || n < math.MinInt64/int64(c.unit) {
			return 0, false
		}
		d := time.Duration(n) * c.unit
		if (d > 0 && total > math.MaxInt64-d) || (d < 0 && total < math.MinInt64-d) {
			return 0, false
		}
		total += d
	}
	return total, true
}

// IsZero reports whether no component is set.
func (t TTL) IsZero() bool {
	return t == TTL{}
}

// Validate returns ErrConfiguration unless the components sum to a positive duration.
func (t TTL) Validate() error {
	d, ok := t.sum()
	if !ok {
		return fmt.Errorf("%w: ttl %+v overflows a duration", ErrConfiguration, t)
	}
	if d <= 0 {
		return fmt.Errorf("%w: ttl must be positive, got %s", ErrConfiguration, d)
	}
	return nil
}

// resolveTTL picks the first positive duration of the candidates.
// Zero means "not given"; a negative candidate is a configuration error.
func resolveTTL(candidates ...time.Duration) (time.Duration, error) {
	for _, ttl := range candidates {
		switch {
		case ttl > 0:
			return ttl, nil
		case ttl < 0:
			return 0, fmt.Errorf("%w: ttl must be positive, got %s", ErrConfiguration, ttl)
		}
	}
	return 0, fmt.Errorf("%w: no ttl given and no default ttl configured", ErrConfiguration)
}
