package ttlstate

import (
	"context"
	"time"
)

// StateConstraint is an interface for state constraints.
// The zero value of the state type is the "no state" sentinel.
type StateConstraint interface {
	comparable
}

// StateRecord is the stored state of a session.
type StateRecord[S StateConstraint] struct {
	// Key is the session key of the record.
	Key Key

	// State is the current state of the session.
	// The zero value means the session has no state.
	State S

	// UpdatedAt is the time of the last write to the record.
	UpdatedAt time.Time
}

// DeadlineStorage is an interface for a storage backend of expiry deadlines.
// Implementations must be thread-safe and each operation must be atomic.
type DeadlineStorage interface {
	// Get retrieves the deadline of the given key.
	// The second return value reports whether a deadline is recorded for the key.
	Get(context.Context, Key) (time.Time, bool, error)

	// Set stores the deadline of the given key.
	// If the key already exists, it must overwrite the existing deadline.
	Set(context.Context, Key, time.Time) error

	// CompareAndDelete removes the deadline of the given key only if it still equals old.
	// It reports whether the deadline was removed. A missing key is not an error.
	CompareAndDelete(ctx context.Context, key Key, old time.Time) (bool, error)
}

// DeadlinePurger is implemented by deadline storages that can drop elapsed deadlines in bulk.
type DeadlinePurger interface {
	// PurgeElapsed removes every deadline for which elapsed returns true.
	// It returns the number of removed deadlines.
	PurgeElapsed(ctx context.Context, elapsed func(deadline time.Time) bool) (int, error)
}

// StateStorage is an interface for a storage backend of session states.
// Implementations must be thread-safe and each operation must be atomic.
type StateStorage[S StateConstraint] interface {
	// Get retrieves the state record of the given key.
	// If the key is not found, it should return nil as the record.
	// It must clone the returned record before returning it.
	Get(context.Context, Key) (*StateRecord[S], error)

	// Set stores the state record.
	// If the key already exists, it must overwrite the existing record.
	// It must clone the input record before storing it.
	Set(context.Context, *StateRecord[S]) error
}
