package memstorage

import (
	"sync"

	ttlstate "github.com/karupanerura/ttl-state"
)

type bucket[V any] struct {
	m  map[ttlstate.Key]V
	mu sync.RWMutex
}

// table is a set of buckets addressed by key hash.
type table[V any] struct {
	buckets []*bucket[V]
	hashKey func(ttlstate.Key) int
}

func newTable[V any](size int, hashKey func(ttlstate.Key) int) *table[V] {
	buckets := make([]*bucket[V], size)
	for i := range buckets {
		buckets[i] = &bucket[V]{m: map[ttlstate.Key]V{}}
	}
	return &table[V]{buckets: buckets, hashKey: hashKey}
}

// resolveBucket returns the bucket that corresponds to the given key.
func (t *table[V]) resolveBucket(key ttlstate.Key) *bucket[V] {
	if len(t.buckets) == 1 {
		return t.buckets[0]
	}

	index := t.hashKey(key) % len(t.buckets)
	if index < 0 {
		index *= -1
	}
	return t.buckets[index]
}

// len returns the number of entries across all buckets.
func (t *table[V]) len() int {
	n := 0
	for _, b := range t.buckets {
		b.mu.RLock()
		n += len(b.m)
		b.mu.RUnlock()
	}
	return n
}
