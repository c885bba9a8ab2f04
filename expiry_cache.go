package ttlstate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/karupanerura/ttl-state/expiration"
	"github.com/karupanerura/ttl-state/internal/logging"
)

// ExpiryCache tracks a freshness deadline per session key.
// It owns no state values; GatedStateStore consults it to decide whether a read is valid.
// It is safe for concurrent use as long as its DeadlineStorage is.
type ExpiryCache struct {
	storage    DeadlineStorage
	clock      Clock
	policy     expiration.Policy
	defaultTTL time.Duration
	metrics    Metrics
	logger     *slog.Logger
}

// ExpiryCacheOption configures an ExpiryCache.
type ExpiryCacheOption interface {
	applyCache(*ExpiryCache)
}

type cacheOptionFunc func(*ExpiryCache)

func (f cacheOptionFunc) applyCache(c *ExpiryCache) {
	f(c)
}

// WithDefaultTTL sets the instance default TTL used when a refresh does not name one.
// Zero leaves the cache without a default.
func WithDefaultTTL(ttl time.Duration) ExpiryCacheOption {
	return cacheOptionFunc(func(c *ExpiryCache) {
		c.defaultTTL = ttl
	})
}

// WithDeadlineStorage sets the deadline storage.
// The default is an in-memory map guarded by a single lock.
func WithDeadlineStorage(storage DeadlineStorage) ExpiryCacheOption {
	return cacheOptionFunc(func(c *ExpiryCache) {
		c.storage = storage
	})
}

// WithClock sets the clock of the cache.
func WithClock(clock Clock) ExpiryCacheOption {
	return cacheOptionFunc(func(c *ExpiryCache) {
		c.clock = clock
	})
}

// WithPolicy sets the expiration policy. The default is expiration.StrictPolicy.
func WithPolicy(policy expiration.Policy) ExpiryCacheOption {
	return cacheOptionFunc(func(c *ExpiryCache) {
		c.policy = policy
	})
}

// WithCacheMetrics sets the metrics sink of the cache.
func WithCacheMetrics(metrics Metrics) ExpiryCacheOption {
	return cacheOptionFunc(func(c *ExpiryCache) {
		c.metrics = metrics
	})
}

// WithCacheLogger sets the logger of the cache.
func WithCacheLogger(logger *slog.Logger) ExpiryCacheOption {
	return cacheOptionFunc(func(c *ExpiryCache) {
		c.logger = logger
	})
}

// NewExpiryCache creates a new ExpiryCache.
// A negative default TTL is rejected with ErrConfiguration.
func NewExpiryCache(opts ...ExpiryCacheOption) (*ExpiryCache, error) {
	c := &ExpiryCache{
		clock:   SystemClock,
		policy:  expiration.StrictPolicy{},
		metrics: NoopMetrics{},
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt.applyCache(c)
	}
	if c.defaultTTL < 0 {
		return nil, fmt.Errorf("%w: default ttl must be positive, got %s", ErrConfiguration, c.defaultTTL)
	}
	if c.storage == nil {
		c.storage = newLockedDeadlineMap()
	}
	return c, nil
}

// DefaultTTL returns the instance default TTL, or zero if none is configured.
func (c *ExpiryCache) DefaultTTL() time.Duration {
	return c.defaultTTL
}

// Clock returns the clock of the cache.
func (c *ExpiryCache) Clock() Clock {
	return c.clock
}

// IsFresh reports whether the key has a deadline that has not elapsed.
// An elapsed deadline is removed as a side effect; a key that was never refreshed is not fresh.
func (c *ExpiryCache) IsFresh(ctx context.Context, key Key) (bool, error) {
	_, fresh, err := c.lookup(ctx, key, c.clock.Now())
	return fresh, err
}

// Refresh sets the deadline of the key to now plus the default TTL.
// It returns ErrConfiguration if the cache has no default TTL.
func (c *ExpiryCache) Refresh(ctx context.Context, key Key) error {
	return c.refresh(ctx, key, 0)
}

// RefreshWithTTL sets the deadline of the key to now plus ttl.
// The ttl overrides the default TTL and must be positive.
func (c *ExpiryCache) RefreshWithTTL(ctx context.Context, key Key, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("%w: ttl must be positive, got %s", ErrConfiguration, ttl)
	}
	return c.refresh(ctx, key, ttl)
}

// Remaining returns how long the key stays fresh, or zero if it is not fresh.
func (c *ExpiryCache) Remaining(ctx context.Context, key Key) (time.Duration, error) {
	now := c.clock.Now()
	deadline, fresh, err := c.lookup(ctx, key, now)
	if err != nil || !fresh {
		return 0, err
	}
	return max(deadline.Sub(now), 0), nil
}

// Sweep removes every elapsed deadline at once.
// It is a no-op returning zero if the storage does not implement DeadlinePurger.
// Sweeping only saves memory: an elapsed deadline already reads as stale.
func (c *ExpiryCache) Sweep(ctx context.Context) (int, error) {
	purger, ok := c.storage.(DeadlinePurger)
	if !ok {
		return 0, nil
	}

	now := c.clock.Now()
	removed, err := purger.PurgeElapsed(ctx, func(deadline time.Time) bool {
		return c.policy.IsElapsed(now, deadline)
	})
	if removed > 0 {
		c.metrics.ObserveExpire(removed)
	}
	if err != nil {
		return removed, fmt.Errorf("sweep deadlines: %w", err)
	}
	c.logger.DebugContext(ctx, "swept elapsed deadlines", "removed", removed)
	return removed, nil
}

// resolveTTL applies the precedence call-site ttl, then the given fallbacks, then the default TTL.
func (c *ExpiryCache) resolveTTL(ttls ...time.Duration) (time.Duration, error) {
	return resolveTTL(append(ttls, c.defaultTTL)...)
}

func (c *ExpiryCache) refresh(ctx context.Context, key Key, ttl time.Duration) error {
	key, err := key.Normalize()
	if err != nil {
		return err
	}
	ttl, err = c.resolveTTL(ttl)
	if err != nil {
		return err
	}
	return c.extend(ctx, key, ttl)
}

// extend writes now + ttl for an already normalized key and resolved ttl.
func (c *ExpiryCache) extend(ctx context.Context, key Key, ttl time.Duration) error {
	deadline := c.clock.Now().Add(ttl)
	if err := c.storage.Set(ctx, key, deadline); err != nil {
		return fmt.Errorf("refresh %s: %w", key, err)
	}
	c.metrics.ObserveRefresh()
	return nil
}

func (c *ExpiryCache) lookup(ctx context.Context, key Key, now time.Time) (time.Time, bool, error) {
	key, err := key.Normalize()
	if err != nil {
		return time.Time{}, false, err
	}
	return c.lookupNormalized(ctx, key, now)
}

// lookupNormalized judges freshness of an already normalized key at now.
func (c *ExpiryCache) lookupNormalized(ctx context.Context, key Key, now time.Time) (time.Time, bool, error) {
	deadline, ok, err := c.storage.Get(ctx, key)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("lookup %s: %w", key, err)
	}
	if !ok {
		return time.Time{}, false, nil
	}
	if !c.policy.IsElapsed(now, deadline) {
		return deadline, true, nil
	}

	// only drop the deadline we saw, a concurrent refresh must survive
	removed, err := c.storage.CompareAndDelete(ctx, key, deadline)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("drop elapsed %s: %w", key, err)
	}
	if removed {
		c.metrics.ObserveExpire(1)
	}
	return time.Time{}, false, nil
}
