package ttlstate

import (
	"context"
	"sync"
	"time"
)

// lockedDeadlineMap is the fallback DeadlineStorage: one map, one lock.
// storage/memstorage offers a bucketed version for many concurrent sessions.
type lockedDeadlineMap struct {
	mu sync.RWMutex
	m  map[Key]time.Time
}

var (
	_ DeadlineStorage = (*lockedDeadlineMap)(nil)
	_ DeadlinePurger  = (*lockedDeadlineMap)(nil)
)

func newLockedDeadlineMap() *lockedDeadlineMap {
	return &lockedDeadlineMap{m: map[Key]time.Time{}}
}

func (s *lockedDeadlineMap) Get(_ context.Context, key Key) (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	deadline, ok := s.m[key]
	return deadline, ok, nil
}

func (s *lockedDeadlineMap) Set(_ context.Context, key Key, deadline time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = deadline
	return nil
}

func (s *lockedDeadlineMap) CompareAndDelete(_ context.Context, key Key, old time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if deadline, ok := s.m[key]; ok && deadline.Equal(old) {
		delete(s.m, key)
		return true, nil
	}
	return false, nil
}

func (s *lockedDeadlineMap) PurgeElapsed(_ context.Context, elapsed func(time.Time) bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for key, deadline := range s.m {
		if elapsed(deadline) {
			delete(s.m, key)
			removed++
		}
	}
	return removed, nil
}

// lockedStateMap is the fallback StateStorage.
type lockedStateMap[S StateConstraint] struct {
	mu     sync.RWMutex
	m      map[Key]StateRecord[S]
	cloner StateCloner[S]
}

func newLockedStateMap[S StateConstraint]() *lockedStateMap[S] {
	return &lockedStateMap[S]{m: map[Key]StateRecord[S]{}, cloner: DefaultStateCloner[S]()}
}

func (s *lockedStateMap[S]) Get(_ context.Context, key Key) (*StateRecord[S], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.m[key]
	if !ok {
		return nil, nil
	}
	record.State = s.cloner.CloneState(record.State)
	return &record, nil
}

func (s *lockedStateMap[S]) Set(_ context.Context, record *StateRecord[S]) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *record
	stored.State = s.cloner.CloneState(record.State)
	s.m[record.Key] = stored
	return nil
}
