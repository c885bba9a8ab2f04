package storage

import (
	"context"
	"fmt"
	"time"

	ttlstate "github.com/karupanerura/ttl-state"
)

var _ ttlstate.DeadlineStorage = (*FunctionsDeadlineStorage)(nil)

// FunctionsDeadlineStorage is a ttlstate.DeadlineStorage implementation that uses functions to perform the storage operations.
type FunctionsDeadlineStorage struct {
	// GetFunc retrieves the deadline of a key and reports whether one is recorded.
	GetFunc func(context.Context, ttlstate.Key) (time.Time, bool, error)

	// SetFunc stores the deadline of a key, overwriting any existing one.
	SetFunc func(context.Context, ttlstate.Key, time.Time) error

	// CompareAndDeleteFunc removes the deadline of a key if it still equals the given one.
	CompareAndDeleteFunc func(context.Context, ttlstate.Key, time.Time) (bool, error)
}

// Get calls the GetFunc function.
func (s *FunctionsDeadlineStorage) Get(ctx context.Context, key ttlstate.Key) (time.Time, bool, error) {
	if s.GetFunc == nil {
		return time.Time{}, false, fmt.Errorf("%w: GetFunc is not set", ErrGet)
	}
	return s.GetFunc(ctx, key)
}

// Set calls the SetFunc function.
func (s *FunctionsDeadlineStorage) Set(ctx context.Context, key ttlstate.Key, deadline time.Time) error {
	if s.SetFunc == nil {
		return fmt.Errorf("%w: SetFunc is not set", ErrSet)
	}
	return s.SetFunc(ctx, key, deadline)
}

// CompareAndDelete calls the CompareAndDeleteFunc function.
func (s *FunctionsDeadlineStorage) CompareAndDelete(ctx context.Context, key ttlstate.Key, old time.Time) (bool, error) {
	if s.CompareAndDeleteFunc == nil {
		return false, fmt.Errorf("%w: CompareAndDeleteFunc is not set", ErrDelete)
	}
	return s.CompareAndDeleteFunc(ctx, key, old)
}

var _ ttlstate.StateStorage[string] = (*FunctionsStateStorage[string])(nil)

// FunctionsStateStorage is a ttlstate.StateStorage implementation that uses functions to perform the storage operations.
type FunctionsStateStorage[S ttlstate.StateConstraint] struct {
	// GetFunc retrieves the state record of a key, or nil if there is none.
	GetFunc func(context.Context, ttlstate.Key) (*ttlstate.StateRecord[S], error)

	// SetFunc stores a state record, overwriting any existing one.
	SetFunc func(context.Context, *ttlstate.StateRecord[S]) error
}

// Get calls the GetFunc function.
func (s *FunctionsStateStorage[S]) Get(ctx context.Context, key ttlstate.Key) (*ttlstate.StateRecord[S], error) {
	if s.GetFunc == nil {
		return nil, fmt.Errorf("%w: GetFunc is not set", ErrGet)
	}
	return s.GetFunc(ctx, key)
}

// Set calls the SetFunc function.
func (s *FunctionsStateStorage[S]) Set(ctx context.Context, record *ttlstate.StateRecord[S]) error {
	if s.SetFunc == nil {
		return fmt.Errorf("%w: SetFunc is not set", ErrSet)
	}
	return s.SetFunc(ctx, record)
}
