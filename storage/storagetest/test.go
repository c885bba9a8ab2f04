// storagetest package provides generic test cases for session storage implementations.
package storagetest

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	ttlstate "github.com/karupanerura/ttl-state"
	"golang.org/x/sync/errgroup"
)

// Keys returns n distinct session keys.
func Keys(n int) []ttlstate.Key {
	keys := make([]ttlstate.Key, n)
	for i := range keys {
		keys[i] = ttlstate.Key{Channel: "chat-" + strconv.Itoa(i%7), Participant: "user-" + strconv.Itoa(i)}
	}
	return keys
}

// BenchmarkSetDeadline benchmarks the Set method of the deadline storage.
func BenchmarkSetDeadline(b *testing.B, storage ttlstate.DeadlineStorage, keys []ttlstate.Key) {
	deadline := time.Now().Add(time.Hour)
	ctx := b.Context()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = storage.Set(ctx, keys[i%len(keys)], deadline)
	}
}

// TestDeadlineConsistency tests the read-your-writes behavior of a deadline storage under concurrent access.
func TestDeadlineConsistency(t *testing.T, provider func() (ttlstate.DeadlineStorage, func())) {
	t.Run("DeadlineConsistency", func(t *testing.T) {
		t.Parallel()

		t.Run("SetAndGet", func(t *testing.T) {
			t.Parallel()

			storage, release := provider()
			defer release()

			base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
			keys := Keys(32)
			rand.Shuffle(len(keys), func(i, j int) {
				keys[i], keys[j] = keys[j], keys[i]
			})

			var eg errgroup.Group
			for _, key := range keys {
				key := key
				eg.Go(func() error {
					if _, ok, err := storage.Get(t.Context(), key); err != nil {
						return err
					} else if ok {
						return fmt.Errorf("unexpected deadline for key %s", key)
					}
					return nil
				})
			}
			if err := eg.Wait(); err != nil {
				t.Fatal(err)
			}

			eg = errgroup.Group{}
			for i, key := range keys {
				i, key := i, key
				eg.Go(func() error {
					return storage.Set(t.Context(), key, base.Add(time.Duration(i)*time.Second))
				})
			}
			if err := eg.Wait(); err != nil {
				t.Fatal(err)
			}

			for i, key := range keys {
				got, ok, err := storage.Get(t.Context(), key)
				if err != nil {
					t.Fatal(err)
				}
				if !ok {
					t.Errorf("key %s: deadline not found", key)
					continue
				}
				if want := base.Add(time.Duration(i) * time.Second); !got.Equal(want) {
					t.Errorf("key %s: got %v, want %v", key, got, want)
				}
			}
		})

		t.Run("Overwrite", func(t *testing.T) {
			t.Parallel()

			storage, release := provider()
			defer release()

			key := ttlstate.Key{Channel: "chat", Participant: "user"}
			first := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
			second := first.Add(time.Minute)
			if err := storage.Set(t.Context(), key, first); err != nil {
				t.Fatal(err)
			}
			if err := storage.Set(t.Context(), key, second); err != nil {
				t.Fatal(err)
			}
			got, ok, err := storage.Get(t.Context(), key)
			if err != nil {
				t.Fatal(err)
			}
			if !ok || !got.Equal(second) {
				t.Errorf("got (%v, %v), want (%v, true)", got, ok, second)
			}
		})

		t.Run("CompareAndDelete", func(t *testing.T) {
			t.Parallel()

			storage, release := provider()
			defer release()

			key := ttlstate.Key{Channel: "chat", Participant: "user"}
			old := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
			current := old.Add(time.Minute)

			if removed, err := storage.CompareAndDelete(t.Context(), key, old); err != nil {
				t.Fatal(err)
			} else if removed {
				t.Error("missing key must not be reported as removed")
			}

			if err := storage.Set(t.Context(), key, current); err != nil {
				t.Fatal(err)
			}
			if removed, err := storage.CompareAndDelete(t.Context(), key, old); err != nil {
				t.Fatal(err)
			} else if removed {
				t.Error("a refreshed deadline must not be removed by a stale comparison")
			}
			if _, ok, _ := storage.Get(t.Context(), key); !ok {
				t.Error("deadline must survive a failed comparison")
			}

			if removed, err := storage.CompareAndDelete(t.Context(), key, current); err != nil {
				t.Fatal(err)
			} else if !removed {
				t.Error("matching deadline must be removed")
			}
			if _, ok, _ := storage.Get(t.Context(), key); ok {
				t.Error("deadline must be gone after removal")
			}
		})
	})
}

// TestPurgeElapsed tests bulk removal of elapsed deadlines.
func TestPurgeElapsed(t *testing.T, provider func() (interface {
	ttlstate.DeadlineStorage
	ttlstate.DeadlinePurger
}, func())) {
	t.Run("PurgeElapsed", func(t *testing.T) {
		t.Parallel()

		storage, release := provider()
		defer release()

		now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		keys := Keys(20)
		for i, key := range keys {
			deadline := now.Add(time.Minute)
			if i%2 == 0 {
				deadline = now.Add(-time.Minute)
			}
			if err := storage.Set(t.Context(), key, deadline); err != nil {
				t.Fatal(err)
			}
		}

		removed, err := storage.PurgeElapsed(t.Context(), func(deadline time.Time) bool {
			return !deadline.After(now)
		})
		if err != nil {
			t.Fatal(err)
		}
		if removed != 10 {
			t.Errorf("removed %d deadlines, want 10", removed)
		}

		for i, key := range keys {
			_, ok, err := storage.Get(t.Context(), key)
			if err != nil {
				t.Fatal(err)
			}
			if want := i%2 != 0; ok != want {
				t.Errorf("key %s: exists=%v, want %v", key, ok, want)
			}
		}
	})
}

// TestStateConsistency tests the read-your-writes behavior of a state storage under concurrent access.
func TestStateConsistency(t *testing.T, provider func() (ttlstate.StateStorage[int8], func())) {
	t.Run("StateConsistency", func(t *testing.T) {
		t.Parallel()

		storage, release := provider()
		defer release()

		updatedAt := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		keys := Keys(32)

		var eg errgroup.Group
		for _, key := range keys {
			key := key
			eg.Go(func() error {
				if record, err := storage.Get(t.Context(), key); err != nil {
					return err
				} else if record != nil {
					return fmt.Errorf("unexpected record for key %s", key)
				}
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			t.Fatal(err)
		}

		eg = errgroup.Group{}
		for i, key := range keys {
			i, key := i, key
			eg.Go(func() error {
				return storage.Set(t.Context(), &ttlstate.StateRecord[int8]{Key: key, State: int8(i), UpdatedAt: updatedAt})
			})
		}
		if err := eg.Wait(); err != nil {
			t.Fatal(err)
		}

		for i, key := range keys {
			got, err := storage.Get(t.Context(), key)
			if err != nil {
				t.Fatal(err)
			}
			want := &ttlstate.StateRecord[int8]{Key: key, State: int8(i), UpdatedAt: updatedAt}
			if df := cmp.Diff(want, got); df != "" {
				t.Errorf("key %s record diff=%s", key, df)
			}
		}

		// a cleared state stays a record
		if err := storage.Set(t.Context(), &ttlstate.StateRecord[int8]{Key: keys[0], UpdatedAt: updatedAt}); err != nil {
			t.Fatal(err)
		}
		got, err := storage.Get(t.Context(), keys[0])
		if err != nil {
			t.Fatal(err)
		}
		if got == nil || got.State != 0 {
			t.Errorf("cleared record = %+v, want a record with zero state", got)
		}
	})
}

// TestClonerState is a pointer state with a Clone method.
type TestClonerState struct {
	step int8
}

// Clone returns a copy of the state.
func (s *TestClonerState) Clone() *TestClonerState {
	return &TestClonerState{step: s.step}
}

// TestCloneState tests that a state storage never shares state pointers with callers.
func TestCloneState(t *testing.T, provider func() (ttlstate.StateStorage[*TestClonerState], func())) {
	t.Run("CloneState", func(t *testing.T) {
		t.Parallel()

		storage, release := provider()
		defer release()

		key := ttlstate.Key{Channel: "chat", Participant: "user"}
		original := &ttlstate.StateRecord[*TestClonerState]{Key: key, State: &TestClonerState{step: 1}}
		if err := storage.Set(t.Context(), original); err != nil {
			t.Fatal(err)
		}

		got, err := storage.Get(t.Context(), key)
		if err != nil {
			t.Fatal(err)
		}
		if original == got || original.State == got.State {
			t.Error("state must be cloned, but got same that")
		}
		if df := cmp.Diff(original, got, cmp.AllowUnexported(TestClonerState{})); df != "" {
			t.Errorf("state diff=%s", df)
		}

		before := got
		got, err = storage.Get(t.Context(), key)
		if err != nil {
			t.Fatal(err)
		}
		if before == got || before.State == got.State {
			t.Error("state must be cloned, but got same that")
		}
	})
}
