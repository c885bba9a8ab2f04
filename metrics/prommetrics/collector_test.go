package prommetrics_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	ttlstate "github.com/karupanerura/ttl-state"
	"github.com/karupanerura/ttl-state/metrics/prommetrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector(t *testing.T) {
	t.Parallel()

	c := prommetrics.New("ttlstate")
	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(c))

	c.ObserveRead(ttlstate.ReadFresh)
	c.ObserveRead(ttlstate.ReadFresh)
	c.ObserveRead(ttlstate.ReadStaleHit)
	c.ObserveRefresh()
	c.ObserveExpire(3)
	c.ObserveDispatch(ttlstate.HandlerSync, 2*time.Millisecond, nil)
	c.ObserveDispatch(ttlstate.HandlerAsync, time.Millisecond, errors.New("handler error"))

	expected := `
# HELP ttlstate_session_expirations_total Total number of elapsed session deadlines dropped
# TYPE ttlstate_session_expirations_total counter
ttlstate_session_expirations_total 3
# HELP ttlstate_session_refreshes_total Total number of session deadline refreshes
# TYPE ttlstate_session_refreshes_total counter
ttlstate_session_refreshes_total 1
# HELP ttlstate_state_reads_total Total number of state reads by outcome
# TYPE ttlstate_state_reads_total counter
ttlstate_state_reads_total{outcome="fresh"} 2
ttlstate_state_reads_total{outcome="stale_hit"} 1
# HELP ttlstate_expiry_dispatches_total Total number of expiry handler invocations
# TYPE ttlstate_expiry_dispatches_total counter
ttlstate_expiry_dispatches_total{handler="async",result="error"} 1
ttlstate_expiry_dispatches_total{handler="sync",result="ok"} 1
`
	err := testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"ttlstate_session_expirations_total",
		"ttlstate_session_refreshes_total",
		"ttlstate_state_reads_total",
		"ttlstate_expiry_dispatches_total",
	)
	assert.NoError(t, err)
	assert.Equal(t, 2, testutil.CollectAndCount(c, "ttlstate_expiry_dispatch_duration_seconds"))
}

func TestCollector_WithStore(t *testing.T) {
	t.Parallel()

	c := prommetrics.New("app")
	clock := ttlstate.NewManualClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	cache, err := ttlstate.NewExpiryCache(
		ttlstate.WithClock(clock),
		ttlstate.WithDefaultTTL(time.Second),
		ttlstate.WithCacheMetrics(c),
	)
	require.NoError(t, err)
	store, err := ttlstate.NewGatedStateStore[string](cache, ttlstate.WithStoreMetrics[string](c))
	require.NoError(t, err)

	key := ttlstate.MustKey("chat-1", "user-9")
	require.NoError(t, store.SetState(t.Context(), key, "A"))
	_, err = store.GetState(t.Context(), key)
	require.NoError(t, err)

	clock.Advance(2 * time.Second)
	_, err = store.GetState(t.Context(), key)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(c))
	families, err := reg.Gather()
	require.NoError(t, err)

	values := map[string]float64{}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			if m.GetCounter() != nil {
				values[mf.GetName()] += m.GetCounter().GetValue()
			}
		}
	}
	assert.Equal(t, float64(1), values["app_session_refreshes_total"])
	assert.Equal(t, float64(1), values["app_session_expirations_total"])
	assert.Equal(t, float64(2), values["app_state_reads_total"])
	assert.Equal(t, float64(1), values["app_expiry_dispatches_total"])
}
