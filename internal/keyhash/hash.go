package keyhash

import (
	"hash"
	"hash/fnv"
	"sync"

	ttlstate "github.com/karupanerura/ttl-state"
)

const (
	// intSize is the size of an int in bits.
	intSize = 32 << (^uint(0) >> 63)

	// separator keeps ("ab", "c") and ("a", "bc") apart.
	separator = 0x00
)

// Key computes the FNV-1a hash of a session key.
// The hash width follows the platform int size.
func Key(key ttlstate.Key) int {
	if intSize == 32 {
		h := hash32Pool.Get()
		defer hash32Pool.Put(h)
		writeKey(h, key)
		return int(h.Sum32())
	}

	h := hash64Pool.Get()
	defer hash64Pool.Put(h)
	writeKey(h, key)
	return int(h.Sum64())
}

// Bucket maps a session key to a bucket index in [0, size).
func Bucket(key ttlstate.Key, size int) int {
	index := Key(key) % size
	if index < 0 {
		index *= -1
	}
	return index
}

func writeKey(h hash.Hash, key ttlstate.Key) {
	_, _ = h.Write([]byte(key.Channel))
	_, _ = h.Write([]byte{separator})
	_, _ = h.Write([]byte(key.Participant))
}

// hash32Pool is a pool for 32-bit FNV-1a hash objects.
var hash32Pool = &resettablePool[hash.Hash32]{
	pool: sync.Pool{
		New: func() any {
			return fnv.New32a()
		},
	},
}

// hash64Pool is a pool for 64-bit FNV-1a hash objects.
var hash64Pool = &resettablePool[hash.Hash64]{
	pool: sync.Pool{
		New: func() any {
			return fnv.New64a()
		},
	},
}

type resetter interface {
	Reset()
}

// resettablePool is a sync.Pool that resets objects before reuse.
type resettablePool[H resetter] struct {
	pool sync.Pool
}

// Put adds an object to the pool after resetting it.
func (p *resettablePool[H]) Put(h H) {
	h.Reset()
	p.pool.Put(h)
}

// Get retrieves an object from the pool.
func (p *resettablePool[H]) Get() H {
	return p.pool.Get().(H)
}
