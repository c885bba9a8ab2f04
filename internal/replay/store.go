package replay

import (
	"context"
	"log/slog"

	ttlstate "github.com/karupanerura/ttl-state"
	"github.com/karupanerura/ttl-state/expiration"
	"github.com/karupanerura/ttl-state/internal/config"
	"github.com/karupanerura/ttl-state/storage/memstorage"
)

// ResetHandler logs the expired session and finishes it.
func ResetHandler(logger *slog.Logger) ttlstate.HandlerFunc[string] {
	return func(ctx context.Context, key ttlstate.Key, store *ttlstate.GatedStateStore[string]) (string, error) {
		logger.InfoContext(ctx, "session expired, resetting", "key", key.String())
		return "", store.Finish(ctx, key)
	}
}

// NewStore builds the cache and store described by cfg.
func NewStore(cfg *config.Config, clock ttlstate.Clock, metrics ttlstate.Metrics, logger *slog.Logger) (*ttlstate.GatedStateStore[string], error) {
	buckets := memstorage.WithBucketsSize(cfg.Storage.Buckets)
	cache, err := ttlstate.NewExpiryCache(
		ttlstate.WithDefaultTTL(cfg.Session.TTL.Duration()),
		ttlstate.WithDeadlineStorage(memstorage.NewDeadlineStorage(buckets)),
		ttlstate.WithClock(clock),
		ttlstate.WithPolicy(newPolicy(cfg.Session)),
		ttlstate.WithCacheMetrics(metrics),
		ttlstate.WithCacheLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	opts := []ttlstate.StoreOption[string]{
		ttlstate.WithStateStorage[string](memstorage.NewStateStorage[string](buckets)),
		ttlstate.WithHandler(newHandler(cfg.Handler.Mode, logger)),
		ttlstate.WithStoreMetrics[string](metrics),
		ttlstate.WithStoreLogger[string](logger),
	}
	if cfg.Handler.Coalesce {
		opts = append(opts, ttlstate.WithCoalescedDispatch[string]())
	}
	return ttlstate.NewGatedStateStore(cache, opts...)
}

func newPolicy(cfg config.SessionConfig) expiration.Policy {
	switch cfg.Policy {
	case "early":
		return &expiration.EarlyPolicy{Duration: cfg.Early.Duration, Percentage: cfg.Early.Percentage}
	case "never":
		return expiration.NeverPolicy{}
	default:
		return expiration.StrictPolicy{}
	}
}

func newHandler(mode string, logger *slog.Logger) ttlstate.ExpiryHandler[string] {
	switch ttlstate.HandlerKind(mode) {
	case ttlstate.HandlerSync:
		return ttlstate.SyncHandler(ResetHandler(logger))
	case ttlstate.HandlerAsync:
		return ttlstate.AsyncHandler(ResetHandler(logger))
	default:
		return ttlstate.DefaultHandler[string]()
	}
}
