// Package metrics defines the Prometheus instrumentation of the feed and the oracle.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "burrowfeed"

// Metrics groups every collector. Build one per registry.
type Metrics struct {
	// stream
	ConnectionState  prometheus.Gauge
	Connects         prometheus.Counter
	DialFailures     prometheus.Counter
	MessagesReceived prometheus.Counter
	MalformedDropped prometheus.Counter
	StaleDropped     prometheus.Counter

	// log
	EventsMerged prometheus.Counter
	LogSize      prometheus.Gauge
	LogResets    prometheus.Counter

	// oracle
	RefreshDuration prometheus.Histogram
	RefreshErrors   prometheus.Counter
	RefreshSkipped  prometheus.Counter
	PoolsIndexed    prometheus.Gauge
	ReferencePrice  prometheus.Gauge
}

// New registers all collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ConnectionState: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "connection_state",
			Help:      "Current connection state (0 disconnected, 1 connecting, 2 connected, 3 awaiting retry).",
		}),
		Connects: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "connects_total",
			Help:      "Successful connections, including reconnects.",
		}),
		DialFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "dial_failures_total",
			Help:      "Failed connection attempts.",
		}),
		MessagesReceived: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "messages_received_total",
			Help:      "Frames read from the stream.",
		}),
		MalformedDropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "malformed_messages_total",
			Help:      "Frames that could not be decoded and were dropped.",
		}),
		StaleDropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "stale_messages_total",
			Help:      "Frames from a superseded connection that were not dispatched.",
		}),
		EventsMerged: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "log",
			Name:      "events_received_total",
			Help:      "Raw events handed to the reconciler.",
		}),
		LogSize: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "log",
			Name:      "size",
			Help:      "Number of events in the log.",
		}),
		LogResets: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "log",
			Name:      "resets_total",
			Help:      "Log resets caused by filter changes.",
		}),
		RefreshDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "oracle",
			Name:      "refresh_duration_seconds",
			Help:      "Time to fetch all pools and recompute prices.",
			Buckets:   prometheus.DefBuckets,
		}),
		RefreshErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "oracle",
			Name:      "refresh_errors_total",
			Help:      "Failed refreshes; the previous snapshot is kept.",
		}),
		RefreshSkipped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "oracle",
			Name:      "refresh_skipped_total",
			Help:      "Scheduled refreshes skipped while the host was hidden.",
		}),
		PoolsIndexed: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "oracle",
			Name:      "pools_indexed",
			Help:      "Constant-product pools in the current index.",
		}),
		ReferencePrice: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "oracle",
			Name:      "reference_price_usd",
			Help:      "USD price of one wNEAR; 0 when unknown.",
		}),
	}
}

// NewUnregistered builds collectors on a private registry, for tests and
// components constructed without metrics.
func NewUnregistered() *Metrics {
	return New(prometheus.NewRegistry())
}
