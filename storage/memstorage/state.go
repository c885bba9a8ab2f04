package memstorage

import (
	"context"

	ttlstate "github.com/karupanerura/ttl-state"
)

// StateStorage is an in-memory ttlstate.StateStorage.
type StateStorage[S ttlstate.StateConstraint] struct {
	table  *table[*ttlstate.StateRecord[S]]
	cloner ttlstate.StateCloner[S]
}

var _ ttlstate.StateStorage[string] = (*StateStorage[string])(nil)

// NewStateStorage creates a new in-memory state storage.
// States are cloned with ttlstate.DefaultStateCloner unless WithCloner is given.
func NewStateStorage[S ttlstate.StateConstraint](opts ...Option) *StateStorage[S] {
	options := defaultOptions()
	for _, opt := range opts {
		opt.apply(&options)
	}
	return &StateStorage[S]{
		table:  newTable[*ttlstate.StateRecord[S]](options.bucketsSize, options.hashKey),
		cloner: stateCloner[S](options),
	}
}

func (s *StateStorage[S]) Get(_ context.Context, key ttlstate.Key) (*ttlstate.StateRecord[S], error) {
	bucket := s.table.resolveBucket(key)
	bucket.mu.RLock()
	defer bucket.mu.RUnlock()

	if record, ok := bucket.m[key]; ok {
		return s.cloneRecord(record), nil
	}
	return nil, nil
}

func (s *StateStorage[S]) Set(_ context.Context, record *ttlstate.StateRecord[S]) error {
	bucket := s.table.resolveBucket(record.Key)
	bucket.mu.Lock()
	defer bucket.mu.Unlock()

	bucket.m[record.Key] = s.cloneRecord(record)
	return nil
}

// Len returns the number of stored records, including cleared ones.
func (s *StateStorage[S]) Len() int {
	return s.table.len()
}

func (s *StateStorage[S]) cloneRecord(record *ttlstate.StateRecord[S]) *ttlstate.StateRecord[S] {
	return &ttlstate.StateRecord[S]{
		Key:       record.Key,
		State:     s.cloner.CloneState(record.State),
		UpdatedAt: record.UpdatedAt,
	}
}
