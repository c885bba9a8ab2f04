package ttlstate

import (
	"context"
	"runtime"

	"github.com/karupanerura/ttl-state/internal/panicutil"
)

// HandlerKind names an ExpiryHandler variant.
type HandlerKind string

const (
	HandlerDefault HandlerKind = "default"
	HandlerSync    HandlerKind = "sync"
	HandlerAsync   HandlerKind = "async"
)

// HandlerFunc decides what happens to a session whose state went stale.
// It receives the store so it can inspect or rewrite the session, and its
// result becomes the result of the GetState call that triggered it.
type HandlerFunc[S StateConstraint] func(ctx context.Context, key Key, store *GatedStateStore[S]) (S, error)

// ExpiryHandler is the policy a GatedStateStore applies to a stale read that
// still finds a stored state. The set of variants is closed: build one with
// DefaultHandler, SyncHandler or AsyncHandler.
//
// The zero ExpiryHandler behaves like DefaultHandler.
type ExpiryHandler[S StateConstraint] struct {
	kind HandlerKind
	fn   HandlerFunc[S]
}

// DefaultHandler clears the stored state and returns the sentinel.
func DefaultHandler[S StateConstraint]() ExpiryHandler[S] {
	return ExpiryHandler[S]{kind: HandlerDefault}
}

// SyncHandler calls fn on the goroutine of GetState.
// Errors are returned unchanged and panics propagate to the caller.
func SyncHandler[S StateConstraint](fn HandlerFunc[S]) ExpiryHandler[S] {
	if fn == nil {
		panic("ttlstate: SyncHandler requires a function")
	}
	return ExpiryHandler[S]{kind: HandlerSync, fn: fn}
}

// AsyncHandler runs fn on its own goroutine while GetState waits for it.
//
// fn gets a context that is not canceled with ctx: if ctx is done before fn
// returns, GetState returns ctx.Err() and fn keeps running to completion in
// the background. A panic in fn is returned as an
// error wrapping *panics.ErrRecovered (github.com/sourcegraph/conc/panics);
// a runtime.Goexit in fn exits the waiting goroutine too.
func AsyncHandler[S StateConstraint](fn HandlerFunc[S]) ExpiryHandler[S] {
	if fn == nil {
		panic("ttlstate: AsyncHandler requires a function")
	}
	return ExpiryHandler[S]{kind: HandlerAsync, fn: fn}
}

// Kind returns the variant of the handler.
func (h ExpiryHandler[S]) Kind() HandlerKind {
	if h.kind == "" {
		return HandlerDefault
	}
	return h.kind
}

// handle applies the handler to a stale key.
func (h ExpiryHandler[S]) handle(ctx context.Context, key Key, store *GatedStateStore[S]) (S, error) {
	switch h.Kind() {
	case HandlerSync:
		return h.fn(ctx, key, store)
	case HandlerAsync:
		return h.await(ctx, key, store)
	default:
		var zero S
		return zero, store.SetState(ctx, key, zero)
	}
}

type handlerResult[S StateConstraint] struct {
	state S
	err   error
	exit  panicutil.Exit
}

func (h ExpiryHandler[S]) await(ctx context.Context, key Key, store *GatedStateStore[S]) (S, error) {
	done := make(chan handlerResult[S], 1)
	handlerCtx := context.WithoutCancel(ctx)
	go func() {
		var state S
		panicutil.Call(func() (err error) {
			state, err = h.fn(handlerCtx, key, store)
			return
		}, func(err error, exit panicutil.Exit) {
			done <- handlerResult[S]{state: state, err: err, exit: exit}
		})
	}()

	var zero S
	select {
	case r := <-done:
		switch r.exit {
		case panicutil.Goexited:
			runtime.Goexit()
		case panicutil.Panicked:
			return zero, r.err
		}
		return r.state, r.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
