package ttlstate_test

import (
	"sync"
	"time"

	ttlstate "github.com/karupanerura/ttl-state"
)

var epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

type dispatchEvent struct {
	Kind ttlstate.HandlerKind
	Err  error
}

type recordingMetrics struct {
	mu         sync.Mutex
	reads      map[ttlstate.ReadOutcome]int
	refreshes  int
	expires    int
	dispatches []dispatchEvent
}

var _ ttlstate.Metrics = (*recordingMetrics)(nil)

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{reads: map[ttlstate.ReadOutcome]int{}}
}

func (m *recordingMetrics) ObserveRead(outcome ttlstate.ReadOutcome) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads[outcome]++
}

func (m *recordingMetrics) ObserveRefresh() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshes++
}

func (m *recordingMetrics) ObserveExpire(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expires += n
}

func (m *recordingMetrics) ObserveDispatch(kind ttlstate.HandlerKind, _ time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dispatches = append(m.dispatches, dispatchEvent{Kind: kind, Err: err})
}

func (m *recordingMetrics) readCount(outcome ttlstate.ReadOutcome) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads[outcome]
}

func (m *recordingMetrics) expireCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.expires
}

func (m *recordingMetrics) refreshCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refreshes
}

func (m *recordingMetrics) dispatchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.dispatches)
}
