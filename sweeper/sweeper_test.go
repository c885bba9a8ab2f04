package sweeper_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	ttlstate "github.com/karupanerura/ttl-state"
	"github.com/karupanerura/ttl-state/storage/memstorage"
	"github.com/karupanerura/ttl-state/sweeper"
)

type mockTarget func(context.Context) (int, error)

func (f mockTarget) Sweep(ctx context.Context) (int, error) {
	return f(ctx)
}

func TestLaunchBackgroundSweeper(t *testing.T) {
	t.Parallel()

	var callCount uint32
	target := mockTarget(func(context.Context) (int, error) {
		atomic.AddUint32(&callCount, 1)
		return 1, nil
	})

	var bgErrs []error
	var swept int64
	var mu sync.Mutex
	s := sweeper.NewIntervalSweeper(target, 200*time.Millisecond, func(err error) {
		mu.Lock()
		defer mu.Unlock()
		bgErrs = append(bgErrs, err)
	}).OnSwept(func(removed int) {
		atomic.AddInt64(&swept, int64(removed))
	})
	s.LaunchBackgroundSweeper(t.Context())

	time.Sleep(100 * time.Millisecond)
	if atomic.LoadUint32(&callCount) != 1 {
		t.Errorf("expect to sweep at first time")
	}

	time.Sleep(200 * time.Millisecond)
	if atomic.LoadUint32(&callCount) != 2 {
		t.Errorf("expect to sweep at second time")
	}
	if got := atomic.LoadInt64(&swept); got != 2 {
		t.Errorf("swept %d deadlines, want 2", got)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(bgErrs) != 0 {
		t.Errorf("should no background errors, but got: %+v", bgErrs)
	}
}

func TestLaunchBackgroundSweeper_Error(t *testing.T) {
	t.Parallel()

	sweepErr := errors.New("sweep error")
	target := mockTarget(func(context.Context) (int, error) {
		return 0, sweepErr
	})

	var bgErrs []error
	var mu sync.Mutex
	s := sweeper.NewIntervalSweeper(target, 200*time.Millisecond, func(err error) {
		mu.Lock()
		defer mu.Unlock()
		bgErrs = append(bgErrs, err)
	})
	s.LaunchBackgroundSweeper(t.Context())

	time.Sleep(100 * time.Millisecond)
	func() {
		mu.Lock()
		defer mu.Unlock()
		if df := cmp.Diff([]error{sweepErr}, bgErrs, cmp.Comparer(func(x, y error) bool {
			return errors.Is(x, y) || errors.Is(y, x)
		})); df != "" {
			t.Errorf("unexpected background errors: %+v", bgErrs)
		}
	}()
}

func TestLaunchBackgroundSweeper_Stop(t *testing.T) {
	t.Parallel()

	var callCount uint32
	target := mockTarget(func(context.Context) (int, error) {
		atomic.AddUint32(&callCount, 1)
		return 0, nil
	})

	ctx, cancel := context.WithCancel(t.Context())
	sweeper.NewIntervalSweeper(target, 50*time.Millisecond, func(error) {}).LaunchBackgroundSweeper(ctx)
	time.Sleep(20 * time.Millisecond)
	cancel()

	time.Sleep(50 * time.Millisecond)
	stopped := atomic.LoadUint32(&callCount)
	time.Sleep(150 * time.Millisecond)
	if got := atomic.LoadUint32(&callCount); got != stopped {
		t.Errorf("swept %d times after cancel", got-stopped)
	}
}

func TestLaunchBackgroundSweeper_ExpiryCache(t *testing.T) {
	t.Parallel()

	clock := ttlstate.NewManualClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	deadlines := memstorage.NewDeadlineStorage()
	cache, err := ttlstate.NewExpiryCache(
		ttlstate.WithClock(clock),
		ttlstate.WithDefaultTTL(time.Second),
		ttlstate.WithDeadlineStorage(deadlines),
	)
	if err != nil {
		t.Fatal(err)
	}
	for _, participant := range []string{"a", "b", "c"} {
		if err := cache.Refresh(t.Context(), ttlstate.MustKey("chat-1", participant)); err != nil {
			t.Fatal(err)
		}
	}
	clock.Advance(2 * time.Second)

	removed := make(chan int, 1)
	sweeper.NewIntervalSweeper(cache, time.Hour, func(err error) {
		t.Errorf("unexpected background error: %v", err)
	}).OnSwept(func(n int) {
		select {
		case removed <- n:
		default:
		}
	}).LaunchBackgroundSweeper(t.Context())

	if n := <-removed; n != 3 {
		t.Errorf("first sweep removed %d, want 3", n)
	}
	if n := deadlines.Len(); n != 0 {
		t.Errorf("%d deadlines left, want 0", n)
	}
}

func TestNewIntervalSweeper_InvalidInterval(t *testing.T) {
	t.Parallel()

	defer func() {
		if r := recover(); r == nil {
			t.Error("a non-positive interval must panic")
		}
	}()
	sweeper.NewIntervalSweeper(mockTarget(nil), 0, func(error) {})
}
