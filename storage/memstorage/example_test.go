package memstorage_test

import (
	"context"
	"fmt"
	"time"

	ttlstate "github.com/karupanerura/ttl-state"
	"github.com/karupanerura/ttl-state/storage/memstorage"
)

// Cart is a pointer state, so it needs a Clone method to be stored.
type Cart struct {
	Items []string
}

func (c *Cart) Clone() *Cart {
	return &Cart{Items: append([]string(nil), c.Items...)}
}

func ExampleNewStateStorage() {
	cache, err := ttlstate.NewExpiryCache(
		ttlstate.WithDefaultTTL(time.Hour),
		ttlstate.WithDeadlineStorage(memstorage.NewDeadlineStorage(memstorage.WithBucketsSize(64))),
	)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	store, err := ttlstate.NewGatedStateStore(cache,
		ttlstate.WithStateStorage[*Cart](memstorage.NewStateStorage[*Cart](memstorage.WithBucketsSize(64))),
	)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}

	ctx := context.Background()
	key := ttlstate.MustKey("shop", "user-1")
	cart := &Cart{Items: []string{"apple"}}
	_ = store.SetState(ctx, key, cart)

	// the stored cart is a copy
	cart.Items[0] = "banana"

	got, _ := store.GetState(ctx, key)
	fmt.Println(got.Items)

	// Output:
	// [apple]
}
