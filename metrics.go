package ttlstate

import "time"

// ReadOutcome classifies a GetState call.
type ReadOutcome int

const (
	// ReadFresh is a read within the freshness window.
	ReadFresh ReadOutcome = iota
	// ReadStaleHit is a stale read that found a stored state and dispatched to the handler.
	ReadStaleHit
	// ReadStaleMiss is a stale read that found no state.
	ReadStaleMiss
)

// String returns the label of the outcome.
func (o ReadOutcome) String() string {
	switch o {
	case ReadFresh:
		return "fresh"
	case ReadStaleHit:
		return "stale_hit"
	case ReadStaleMiss:
		return "stale_miss"
	default:
		return "unknown"
	}
}

// Metrics receives events from ExpiryCache and GatedStateStore.
// Implementations must be thread-safe.
type Metrics interface {
	// ObserveRead is called once per GetState call that got past key resolution and storage reads.
	ObserveRead(ReadOutcome)

	// ObserveRefresh is called when a deadline is written.
	ObserveRefresh()

	// ObserveExpire is called when an elapsed deadline is dropped, lazily or by a sweep.
	ObserveExpire(n int)

	// ObserveDispatch is called after an expiry handler returns.
	ObserveDispatch(kind HandlerKind, elapsed time.Duration, err error)
}

// NoopMetrics is a Metrics that ignores every event.
type NoopMetrics struct{}

var _ Metrics = NoopMetrics{}

func (NoopMetrics) ObserveRead(ReadOutcome)                           {}
func (NoopMetrics) ObserveRefresh()                                   {}
func (NoopMetrics) ObserveExpire(int)                                 {}
func (NoopMetrics) ObserveDispatch(HandlerKind, time.Duration, error) {}
