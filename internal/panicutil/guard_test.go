package panicutil_test

import (
	"errors"
	"runtime"
	"sync"
	"testing"

	"github.com/karupanerura/ttl-state/internal/panicutil"
	"github.com/sourcegraph/conc/panics"
)

type exitResult struct {
	err  error
	exit panicutil.Exit
}

func callInGoroutine(f func() error) exitResult {
	var (
		wg     sync.WaitGroup
		result exitResult
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		panicutil.Call(f, func(err error, exit panicutil.Exit) {
			result = exitResult{err: err, exit: exit}
		})
	}()
	wg.Wait()
	return result
}

func TestCall(t *testing.T) {
	t.Parallel()

	t.Run("normal return with no error", func(t *testing.T) {
		t.Parallel()

		got := callInGoroutine(func() error { return nil })
		if got.exit != panicutil.Returned || got.err != nil {
			t.Errorf("unexpected result: %+v", got)
		}
	})

	t.Run("normal return with error", func(t *testing.T) {
		t.Parallel()

		expectedErr := errors.New("expected error")
		got := callInGoroutine(func() error { return expectedErr })
		if got.exit != panicutil.Returned || got.err != expectedErr {
			t.Errorf("unexpected result: %+v", got)
		}
	})

	t.Run("panic with value", func(t *testing.T) {
		t.Parallel()

		got := callInGoroutine(func() error { panic("test panic") })
		if got.exit != panicutil.Panicked {
			t.Fatalf("expected Panicked, got %v", got.exit)
		}
		var recoveredErr *panics.ErrRecovered
		if !errors.As(got.err, &recoveredErr) {
			t.Fatalf("expected *panics.ErrRecovered, got: %T", got.err)
		}
		if recoveredErr.Value != "test panic" {
			t.Errorf("expected panic value 'test panic', got: %v", recoveredErr.Value)
		}
	})

	t.Run("panic with error", func(t *testing.T) {
		t.Parallel()

		customErr := errors.New("custom error")
		got := callInGoroutine(func() error { panic(customErr) })
		var recoveredErr *panics.ErrRecovered
		if !errors.As(got.err, &recoveredErr) {
			t.Fatalf("expected *panics.ErrRecovered, got: %T", got.err)
		}
		if recoveredErr.Value != customErr {
			t.Errorf("expected panic value custom error, got: %v", recoveredErr.Value)
		}
	})

	t.Run("runtime.Goexit", func(t *testing.T) {
		t.Parallel()

		got := callInGoroutine(func() error {
			runtime.Goexit()
			return nil
		})
		if got.exit != panicutil.Goexited || got.err != nil {
			t.Errorf("unexpected result: %+v", got)
		}
	})
}
