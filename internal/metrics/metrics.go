// Package metrics exposes the ambient Prometheus instrumentation SPEC_FULL.md
// assigns to prometheus/client_golang: per-block executor stats (spec §4.6
// step 6), active-subscription gauges, and auth-rejection counters. None of
// this is spec.md functionality in its own right; it is the telemetry layer
// every other component feeds.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"fuelstreams/internal/executor"
)

// Registry bundles every collector the service registers, grouped by the
// component that feeds it.
type Registry struct {
	BlocksProcessed   *prometheus.CounterVec
	BlockDuration     prometheus.Histogram
	PacketsPerBlock   prometheus.Histogram
	ActiveSubscriptions prometheus.Gauge
	AuthRejections    *prometheus.CounterVec
	WSSessions        prometheus.Gauge
}

// New builds and registers every collector against reg.
func New(reg prometheus.Registerer) *Registry {
	m := &Registry{
		BlocksProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fuelstreams",
			Subsystem: "executor",
			Name:      "blocks_processed_total",
			Help:      "Blocks processed by the executor, labeled by outcome.",
		}, []string{"outcome"}),
		BlockDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "fuelstreams",
			Subsystem: "executor",
			Name:      "block_duration_seconds",
			Help:      "Time to build, persist, and publish one block.",
			Buckets:   prometheus.DefBuckets,
		}),
		PacketsPerBlock: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "fuelstreams",
			Subsystem: "executor",
			Name:      "packets_per_block",
			Help:      "Packet count produced per processed block.",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		}),
		ActiveSubscriptions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "fuelstreams",
			Subsystem: "subscription",
			Name:      "active",
			Help:      "Currently active subscriptions across all sessions.",
		}),
		AuthRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fuelstreams",
			Subsystem: "auth",
			Name:      "rejections_total",
			Help:      "Authorization guard-chain rejections, labeled by reason.",
		}, []string{"reason"}),
		WSSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "fuelstreams",
			Subsystem: "wsgateway",
			Name:      "sessions",
			Help:      "Currently open WebSocket sessions.",
		}),
	}

	reg.MustRegister(m.BlocksProcessed, m.BlockDuration, m.PacketsPerBlock, m.ActiveSubscriptions, m.AuthRejections, m.WSSessions)
	return m
}

// ObserveExecutorStats wires as executor.Executor.OnStats: records the
// per-block outcome, duration, and packet count.
func (m *Registry) ObserveExecutorStats(s executor.Stats) {
	outcome := "success"
	if s.Err != nil {
		outcome = "error"
	}
	m.BlocksProcessed.WithLabelValues(outcome).Inc()
	m.BlockDuration.Observe(s.Duration.Seconds())
	if s.Err == nil {
		m.PacketsPerBlock.Observe(float64(s.PacketCount))
	}
}

// SubscriptionOpened/Closed track the ActiveSubscriptions gauge from
// internal/wsgateway's subscribe/unsubscribe handlers.
func (m *Registry) SubscriptionOpened() { m.ActiveSubscriptions.Inc() }
func (m *Registry) SubscriptionClosed() { m.ActiveSubscriptions.Dec() }

// AuthRejected records an internal/auth guard-chain failure by reason
// (e.g. "scope", "rate_limit_exceeded").
func (m *Registry) AuthRejected(reason string) {
	m.AuthRejections.WithLabelValues(reason).Inc()
}

// WSSessionOpened/Closed track the WSSessions gauge from the gateway's
// session lifecycle.
func (m *Registry) WSSessionOpened() { m.WSSessions.Inc() }
func (m *Registry) WSSessionClosed() { m.WSSessions.Dec() }
