package memstorage

import (
	"fmt"

	ttlstate "github.com/karupanerura/ttl-state"
	"github.com/karupanerura/ttl-state/internal/keyhash"
)

// DefaultBucketsSize is the default number of buckets in a storage.
var DefaultBucketsSize = 256

// Option is the interface for the options of the in-memory storages.
type Option interface {
	apply(*options)
}

type optionFunc func(*options)

func (f optionFunc) apply(o *options) {
	f(o)
}

// WithKeyHash sets the key hash function used to pick a bucket.
func WithKeyHash(f func(ttlstate.Key) int) Option {
	return optionFunc(func(o *options) {
		o.hashKey = f
	})
}

// WithBucketsSize sets the number of buckets.
// The number of buckets must be a natural number.
func WithBucketsSize(bucketsSize int) Option {
	if bucketsSize <= 0 {
		panic("bucketSize must be natural number")
	}
	return optionFunc(func(o *options) {
		o.bucketsSize = bucketsSize
	})
}

// WithCloner sets the state cloner of a state storage.
// It is ignored by the deadline storage.
func WithCloner[S ttlstate.StateConstraint](cloner ttlstate.StateCloner[S]) Option {
	return optionFunc(func(o *options) {
		o.cloner = cloner
	})
}

type options struct {
	hashKey     func(ttlstate.Key) int
	bucketsSize int
	cloner      any
}

func defaultOptions() options {
	return options{
		hashKey:     keyhash.Key,
		bucketsSize: DefaultBucketsSize,
	}
}

// stateCloner returns the configured cloner for S, or the default one.
func stateCloner[S ttlstate.StateConstraint](o options) ttlstate.StateCloner[S] {
	if o.cloner == nil {
		return ttlstate.DefaultStateCloner[S]()
	}
	cloner, ok := o.cloner.(ttlstate.StateCloner[S])
	if !ok {
		var zero S
		panic(fmt.Sprintf("cloner %T does not clone %T", o.cloner, zero))
	}
	return cloner
}
