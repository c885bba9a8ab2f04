package memstorage

import (
	"context"
	"time"

	ttlstate "github.com/karupanerura/ttl-state"
)

// DeadlineStorage is an in-memory ttlstate.DeadlineStorage.
type DeadlineStorage struct {
	table *table[time.Time]
}

var (
	_ ttlstate.DeadlineStorage = (*DeadlineStorage)(nil)
	_ ttlstate.DeadlinePurger  = (*DeadlineStorage)(nil)
)

// NewDeadlineStorage creates a new in-memory deadline storage.
func NewDeadlineStorage(opts ...Option) *DeadlineStorage {
	options := defaultOptions()
	for _, opt := range opts {
		opt.apply(&options)
	}
	return &DeadlineStorage{table: newTable[time.Time](options.bucketsSize, options.hashKey)}
}

func (s *DeadlineStorage) Get(_ context.Context, key ttlstate.Key) (time.Time, bool, error) {
	bucket := s.table.resolveBucket(key)
	bucket.mu.RLock()
	defer bucket.mu.RUnlock()

	deadline, ok := bucket.m[key]
	return deadline, ok, nil
}

func (s *DeadlineStorage) Set(_ context.Context, key ttlstate.Key, deadline time.Time) error {
	bucket := s.table.resolveBucket(key)
	bucket.mu.Lock()
	defer bucket.mu.Unlock()

	bucket.m[key] = deadline
	return nil
}

func (s *DeadlineStorage) CompareAndDelete(_ context.Context, key ttlstate.Key, old time.Time) (bool, error) {
	bucket := s.table.resolveBucket(key)
	bucket.mu.Lock()
	defer bucket.mu.Unlock()

	if deadline, ok := bucket.m[key]; ok && deadline.Equal(old) {
		delete(bucket.m, key)
		return true, nil
	}
	return false, nil
}

// PurgeElapsed removes every deadline for which elapsed returns true.
// Buckets are locked one at a time, so writers on other buckets proceed during a purge.
func (s *DeadlineStorage) PurgeElapsed(ctx context.Context, elapsed func(time.Time) bool) (int, error) {
	removed := 0
	for _, bucket := range s.table.buckets {
		if err := ctx.Err(); err != nil {
			return removed, err
		}

		bucket.mu.Lock()
		for key, deadline := range bucket.m {
			if elapsed(deadline) {
				delete(bucket.m, key)
				removed++
			}
		}
		bucket.mu.Unlock()
	}
	return removed, nil
}

// Len returns the number of recorded deadlines.
func (s *DeadlineStorage) Len() int {
	return s.table.len()
}
