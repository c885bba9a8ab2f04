package panicutil

import (
	"github.com/sourcegraph/conc/panics"
)

// Exit describes how a guarded function left.
type Exit int

const (
	// Returned means the function returned normally.
	Returned Exit = iota
	// Panicked means the function panicked and the panic was recovered.
	Panicked
	// Goexited means the function called runtime.Goexit.
	Goexited
)

// Call runs f and reports how it left.
// A panic is recovered and returned as a *panics.ErrRecovered error.
// When f calls runtime.Goexit, the deferred bookkeeping still runs and Call
// reports Goexited to onExit before the goroutine terminates; Call itself does not return.
//
// The two nested defers tell a panic (the inner recover sees a value) from
// runtime.Goexit (neither the return nor the recover is reached).
func Call(f func() error, onExit func(error, Exit)) {
	var (
		err          error
		normalReturn bool
		recovered    bool
		panicValue   panics.Recovered
	)
	defer func() {
		switch {
		case normalReturn:
			onExit(err, Returned)
		case recovered:
			onExit(panicValue.AsError(), Panicked)
		default:
			onExit(nil, Goexited)
		}
	}()
	func() {
		defer func() {
			panicValue = panics.NewRecovered(2, recover())
		}()
		err = f()
		normalReturn = true
	}()
	if !normalReturn {
		recovered = true
	}
}
