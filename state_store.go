package ttlstate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/karupanerura/ttl-state/internal/logging"
	"github.com/karupanerura/ttl-state/internal/panicutil"
	"github.com/sourcegraph/conc/panics"
	"golang.org/x/sync/singleflight"
)

// GatedStateStore stores one state per session and only hands it out while
// the session is fresh in its ExpiryCache. A stale read that still finds a
// stored state is passed to the configured ExpiryHandler.
//
// The store never holds a lock while a handler runs, so handlers may call
// back into the store.
type GatedStateStore[S StateConstraint] struct {
	cache    *ExpiryCache
	states   StateStorage[S]
	handler  ExpiryHandler[S]
	ttl      time.Duration
	clock    Clock
	metrics  Metrics
	logger   *slog.Logger
	coalesce bool
	flights  singleflight.Group
}

// StoreOption configures a GatedStateStore.
type StoreOption[S StateConstraint] interface {
	applyStore(*GatedStateStore[S])
}

type storeOptionFunc[S StateConstraint] func(*GatedStateStore[S])

func (f storeOptionFunc[S]) applyStore(s *GatedStateStore[S]) {
	f(s)
}

// WithStateStorage sets the state storage.
// The default is an in-memory map guarded by a single lock.
func WithStateStorage[S StateConstraint](storage StateStorage[S]) StoreOption[S] {
	return storeOptionFunc[S](func(s *GatedStateStore[S]) {
		s.states = storage
	})
}

// WithHandler sets the expiry handler. The default is DefaultHandler.
func WithHandler[S StateConstraint](handler ExpiryHandler[S]) StoreOption[S] {
	return storeOptionFunc[S](func(s *GatedStateStore[S]) {
		s.handler = handler
	})
}

// WithTTL sets the TTL the store refreshes sessions with.
// Zero falls back to the default TTL of the cache.
func WithTTL[S StateConstraint](ttl time.Duration) StoreOption[S] {
	return storeOptionFunc[S](func(s *GatedStateStore[S]) {
		s.ttl = ttl
	})
}

// WithStoreClock sets the clock used to stamp StateRecord.UpdatedAt.
// The default is the clock of the cache.
func WithStoreClock[S StateConstraint](clock Clock) StoreOption[S] {
	return storeOptionFunc[S](func(s *GatedStateStore[S]) {
		s.clock = clock
	})
}

// WithStoreMetrics sets the metrics sink of the store.
func WithStoreMetrics[S StateConstraint](metrics Metrics) StoreOption[S] {
	return storeOptionFunc[S](func(s *GatedStateStore[S]) {
		s.metrics = metrics
	})
}

// WithStoreLogger sets the logger of the store.
func WithStoreLogger[S StateConstraint](logger *slog.Logger) StoreOption[S] {
	return storeOptionFunc[S](func(s *GatedStateStore[S]) {
		s.logger = logger
	})
}

// WithCoalescedDispatch makes concurrent GetState calls for the same stale
// key share a single handler invocation and its result.
//
// The shared invocation runs on its own goroutine with a context that is not
// canceled with any caller's. Each caller's ctx only bounds its own wait: a
// caller whose ctx is done gets ctx.Err() while the others keep waiting for
// the result. A panic or runtime.Goexit in the handler is raised again on
// every caller that waited for it.
func WithCoalescedDispatch[S StateConstraint]() StoreOption[S] {
	return storeOptionFunc[S](func(s *GatedStateStore[S]) {
		s.coalesce = true
	})
}

// NewGatedStateStore creates a store gated by cache.
// It returns ErrConfiguration if cache is nil or the TTL is negative.
func NewGatedStateStore[S StateConstraint](cache *ExpiryCache, opts ...StoreOption[S]) (*GatedStateStore[S], error) {
	if cache == nil {
		return nil, fmt.Errorf("%w: expiry cache is required", ErrConfiguration)
	}

	s := &GatedStateStore[S]{
		cache:   cache,
		handler: DefaultHandler[S](),
		clock:   cache.Clock(),
		metrics: NoopMetrics{},
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt.applyStore(s)
	}
	if s.ttl < 0 {
		return nil, fmt.Errorf("%w: ttl must be positive, got %s", ErrConfiguration, s.ttl)
	}
	if s.states == nil {
		s.states = newLockedStateMap[S]()
	}
	return s, nil
}

// Cache returns the ExpiryCache gating the store.
func (s *GatedStateStore[S]) Cache() *ExpiryCache {
	return s.cache
}

// Handler returns the configured expiry handler.
func (s *GatedStateStore[S]) Handler() ExpiryHandler[S] {
	return s.handler
}

// SetState stores state for the key.
// A non-zero state also refreshes the key with the store TTL (or the cache
// default); the zero state leaves the freshness of the key untouched.
// If no TTL can be resolved, nothing is written and ErrConfiguration is returned.
func (s *GatedStateStore[S]) SetState(ctx context.Context, key Key, state S) error {
	return s.setState(ctx, key, state, 0)
}

// SetStateWithTTL is like SetState but refreshes with ttl, which must be positive.
func (s *GatedStateStore[S]) SetStateWithTTL(ctx context.Context, key Key, state S, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("%w: ttl must be positive, got %s", ErrConfiguration, ttl)
	}
	return s.setState(ctx, key, state, ttl)
}

// Finish clears the state of the key. Its freshness is left as it is.
func (s *GatedStateStore[S]) Finish(ctx context.Context, key Key) error {
	var zero S
	return s.setState(ctx, key, zero, 0)
}

// GetState returns the state of the key.
//
// While the key is fresh the stored state is returned as is. Once it is
// stale, a stored non-zero state is handed to the expiry handler and the
// handler's result is returned; a zero or missing state is returned as the
// zero value without calling the handler.
//
// A handler runs without any lock held. A SetState for the same key that
// lands while the handler is running is not seen by that GetState call, and
// a handler that clears the state (like DefaultHandler) may overwrite it.
func (s *GatedStateStore[S]) GetState(ctx context.Context, key Key) (S, error) {
	var zero S
	key, err := key.Normalize()
	if err != nil {
		return zero, err
	}

	_, fresh, err := s.cache.lookupNormalized(ctx, key, s.cache.clock.Now())
	if err != nil {
		return zero, err
	}
	record, err := s.states.Get(ctx, key)
	if err != nil {
		return zero, fmt.Errorf("get state %s: %w", key, err)
	}

	switch {
	case fresh:
		s.metrics.ObserveRead(ReadFresh)
		if record == nil {
			return zero, nil
		}
		return record.State, nil
	case record == nil || record.State == zero:
		s.metrics.ObserveRead(ReadStaleMiss)
		return zero, nil
	default:
		s.metrics.ObserveRead(ReadStaleHit)
		return s.dispatch(ctx, key)
	}
}

func (s *GatedStateStore[S]) setState(ctx context.Context, key Key, state S, ttl time.Duration) error {
	key, err := key.Normalize()
	if err != nil {
		return err
	}

	var zero S
	terminal := state == zero
	if !terminal {
		if ttl, err = s.cache.resolveTTL(ttl, s.ttl); err != nil {
			return err
		}
	}

	record := &StateRecord[S]{Key: key, State: state, UpdatedAt: s.clock.Now()}
	if err := s.states.Set(ctx, record); err != nil {
		return fmt.Errorf("set state %s: %w", key, err)
	}
	if terminal {
		return nil
	}
	return s.cache.extend(ctx, key, ttl)
}

func (s *GatedStateStore[S]) dispatch(ctx context.Context, key Key) (S, error) {
	if !s.coalesce {
		return s.invoke(ctx, key)
	}

	flightCtx := context.WithoutCancel(ctx)
	ch := s.flights.DoChan(key.String(), func() (any, error) {
		return s.invokeGuarded(flightCtx, key), nil
	})

	var zero S
	select {
	case res := <-ch:
		r := res.Val.(flightResult[S])
		switch r.exit {
		case panicutil.Panicked:
			panic(r.panicValue)
		case panicutil.Goexited:
			runtime.Goexit()
		}
		return r.state, r.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

type flightResult[S StateConstraint] struct {
	state      S
	err        error
	exit       panicutil.Exit
	panicValue any
}

// invokeGuarded runs invoke on its own goroutine and reports how it left,
// so a panic or runtime.Goexit never escapes the shared flight.
func (s *GatedStateStore[S]) invokeGuarded(ctx context.Context, key Key) flightResult[S] {
	done := make(chan flightResult[S], 1)
	go func() {
		var state S
		panicutil.Call(func() (err error) {
			state, err = s.invoke(ctx, key)
			return
		}, func(err error, exit panicutil.Exit) {
			r := flightResult[S]{state: state, err: err, exit: exit}
			if exit == panicutil.Panicked {
				var recovered *panics.ErrRecovered
				if errors.As(err, &recovered) {
					r.panicValue = recovered.Value
				}
			}
			done <- r
		})
	}()
	return <-done
}

func (s *GatedStateStore[S]) invoke(ctx context.Context, key Key) (S, error) {
	kind := s.handler.Kind()
	logger := s.logger.With("key", key.String(), "handler", string(kind), "dispatch_id", uuid.NewString())
	logger.DebugContext(ctx, "session expired, dispatching handler")

	start := time.Now()
	state, err := s.handler.handle(ctx, key, s)
	elapsed := time.Since(start)
	s.metrics.ObserveDispatch(kind, elapsed, err)

	if err != nil {
		logger.WarnContext(ctx, "expiry handler failed", "error", err, "elapsed", elapsed)
		return state, err
	}
	logger.DebugContext(ctx, "expiry handler finished", "elapsed", elapsed)
	return state, nil
}
