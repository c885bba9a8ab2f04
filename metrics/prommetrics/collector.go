// Package prommetrics exports ttlstate events as Prometheus metrics.
package prommetrics

import (
	"time"

	ttlstate "github.com/karupanerura/ttl-state"
	"github.com/prometheus/client_golang/prometheus"
)

// Collector is a ttlstate.Metrics backed by Prometheus collectors.
// Register it with a prometheus.Registerer before use.
type Collector struct {
	reads      *prometheus.CounterVec
	refreshes  prometheus.Counter
	expires    prometheus.Counter
	dispatches *prometheus.CounterVec
	durations  *prometheus.HistogramVec
}

var (
	_ ttlstate.Metrics     = (*Collector)(nil)
	_ prometheus.Collector = (*Collector)(nil)
)

// New creates a Collector whose metric names start with namespace.
func New(namespace string) *Collector {
	return &Collector{
		reads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "state_reads_total",
				Help:      "Total number of state reads by outcome",
			},
			[]string{"outcome"},
		),
		refreshes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_refreshes_total",
			Help:      "Total number of session deadline refreshes",
		}),
		expires: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_expirations_total",
			Help:      "Total number of elapsed session deadlines dropped",
		}),
		dispatches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "expiry_dispatches_total",
				Help:      "Total number of expiry handler invocations",
			},
			[]string{"handler", "result"},
		),
		durations: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "expiry_dispatch_duration_seconds",
				Help:      "Duration of expiry handler invocations",
				Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
			},
			[]string{"handler"},
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.reads.Describe(ch)
	c.refreshes.Describe(ch)
	c.expires.Describe(ch)
	c.dispatches.Describe(ch)
	c.durations.Describe(ch)
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.reads.Collect(ch)
	c.refreshes.Collect(ch)
	c.expires.Collect(ch)
	c.dispatches.Collect(ch)
	c.durations.Collect(ch)
}

func (c *Collector) ObserveRead(outcome ttlstate.ReadOutcome) {
	c.reads.WithLabelValues(outcome.String()).Inc()
}

func (c *Collector) ObserveRefresh() {
	c.refreshes.Inc()
}

func (c *Collector) ObserveExpire(n int) {
	c.expires.Add(float64(n))
}

func (c *Collector) ObserveDispatch(kind ttlstate.HandlerKind, elapsed time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.dispatches.WithLabelValues(string(kind), result).Inc()
	c.durations.WithLabelValues(string(kind)).Observe(elapsed.Seconds())
}
