package replay

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	ttlstate "github.com/karupanerura/ttl-state"
	"github.com/karupanerura/ttl-state/internal/logging"
	"github.com/sourcegraph/conc/pool"
)

// StateStarted is the state a /start command puts a session in.
const StateStarted = "test"

// Runner replays scripts against a store, one goroutine per session.
type Runner struct {
	store  *ttlstate.GatedStateStore[string]
	logger *slog.Logger

	mu  sync.Mutex
	out io.Writer

	// Wait pauses a session. It defaults to a real timer.
	Wait func(ctx context.Context, d time.Duration) error
}

// NewRunner creates a Runner writing the transcript to out.
func NewRunner(store *ttlstate.GatedStateStore[string], out io.Writer, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Runner{
		store:  store,
		logger: logger,
		out:    out,
		Wait:   sleep,
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Run replays every session of the script concurrently and waits for all of them.
// The first failing session cancels the others.
func (r *Runner) Run(ctx context.Context, script *Script) error {
	p := pool.New().WithContext(ctx).WithCancelOnError()
	for _, session := range script.Sessions {
		session := session
		p.Go(func(ctx context.Context) error {
			return r.runSession(ctx, session)
		})
	}
	return p.Wait()
}

func (r *Runner) runSession(ctx context.Context, session Session) error {
	key, err := ttlstate.NewKey(session.Channel, session.Participant)
	if err != nil {
		return err
	}

	for _, ev := range session.Events {
		if ev.Wait > 0 {
			r.logger.DebugContext(ctx, "waiting", "key", key.String(), "duration", time.Duration(ev.Wait))
			if err := r.Wait(ctx, time.Duration(ev.Wait)); err != nil {
				return err
			}
			continue
		}

		reply, err := r.Handle(ctx, key, ev.Command)
		if err != nil {
			return fmt.Errorf("%s %s: %w", key, ev.Command, err)
		}
		r.print(key, ev.Command, reply)
	}
	return nil
}

// Handle applies one command to the session and returns the reply.
func (r *Runner) Handle(ctx context.Context, key ttlstate.Key, command string) (string, error) {
	r.logger.DebugContext(ctx, "command received", "key", key.String(), "command", command)

	switch command {
	case "/start":
		if err := r.store.SetState(ctx, key, StateStarted); err != nil {
			return "", err
		}
		return "state: " + StateStarted, nil

	case "/status":
		state, err := r.store.GetState(ctx, key)
		if err != nil {
			return "", err
		}
		if state == "" {
			return "status: none", nil
		}
		return "status: " + state, nil

	case "/stop":
		if err := r.store.Finish(ctx, key); err != nil {
			return "", err
		}
		return "stopped", nil

	default:
		return "unknown command " + command, nil
	}
}

func (r *Runner) print(key ttlstate.Key, command, reply string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, "[%s] %s -> %s\n", key, command, reply)
}
