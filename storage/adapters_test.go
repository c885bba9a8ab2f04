package storage_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	ttlstate "github.com/karupanerura/ttl-state"
	"github.com/karupanerura/ttl-state/storage"
)

func TestFunctionsDeadlineStorage(t *testing.T) {
	t.Parallel()

	key := ttlstate.Key{Channel: "c", Participant: "u"}
	deadline := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	var stored []time.Time
	s := &storage.FunctionsDeadlineStorage{
		GetFunc: func(_ context.Context, k ttlstate.Key) (time.Time, bool, error) {
			return deadline, k == key, nil
		},
		SetFunc: func(_ context.Context, _ ttlstate.Key, d time.Time) error {
			stored = append(stored, d)
			return nil
		},
		CompareAndDeleteFunc: func(_ context.Context, _ ttlstate.Key, old time.Time) (bool, error) {
			return old.Equal(deadline), nil
		},
	}

	got, ok, err := s.Get(t.Context(), key)
	if err != nil || !ok || !got.Equal(deadline) {
		t.Errorf("Get() = (%v, %v, %v)", got, ok, err)
	}
	if err := s.Set(t.Context(), key, deadline); err != nil {
		t.Fatal(err)
	}
	if df := cmp.Diff([]time.Time{deadline}, stored); df != "" {
		t.Errorf("stored diff=%s", df)
	}
	if removed, err := s.CompareAndDelete(t.Context(), key, deadline); err != nil || !removed {
		t.Errorf("CompareAndDelete() = (%v, %v)", removed, err)
	}
}

func TestFunctionsDeadlineStorage_Unset(t *testing.T) {
	t.Parallel()

	s := &storage.FunctionsDeadlineStorage{}
	key := ttlstate.Key{Channel: "c", Participant: "u"}

	if _, _, err := s.Get(t.Context(), key); !errors.Is(err, storage.ErrGet) {
		t.Errorf("expected ErrGet, got %v", err)
	}
	if err := s.Set(t.Context(), key, time.Now()); !errors.Is(err, storage.ErrSet) {
		t.Errorf("expected ErrSet, got %v", err)
	}
	if _, err := s.CompareAndDelete(t.Context(), key, time.Now()); !errors.Is(err, storage.ErrDelete) {
		t.Errorf("expected ErrDelete, got %v", err)
	}
}

func TestFunctionsStateStorage(t *testing.T) {
	t.Parallel()

	key := ttlstate.Key{Channel: "c", Participant: "u"}
	setErr := errors.New("set error")
	s := &storage.FunctionsStateStorage[string]{
		GetFunc: func(_ context.Context, k ttlstate.Key) (*ttlstate.StateRecord[string], error) {
			return &ttlstate.StateRecord[string]{Key: k, State: "menu"}, nil
		},
		SetFunc: func(context.Context, *ttlstate.StateRecord[string]) error {
			return setErr
		},
	}

	got, err := s.Get(t.Context(), key)
	if err != nil {
		t.Fatal(err)
	}
	if df := cmp.Diff(&ttlstate.StateRecord[string]{Key: key, State: "menu"}, got); df != "" {
		t.Errorf("record diff=%s", df)
	}
	if err := s.Set(t.Context(), got); !errors.Is(err, setErr) {
		t.Errorf("expected set error, got %v", err)
	}

	unset := &storage.FunctionsStateStorage[string]{}
	if _, err := unset.Get(t.Context(), key); !errors.Is(err, storage.ErrGet) {
		t.Errorf("expected ErrGet, got %v", err)
	}
	if err := unset.Set(t.Context(), got); !errors.Is(err, storage.ErrSet) {
		t.Errorf("expected ErrSet, got %v", err)
	}
}
