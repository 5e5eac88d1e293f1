package live

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics tracks connections and deliveries of a hub.
//
// Metrics collected:
//   - reactive_live_connections: open WebSocket connections
//   - reactive_live_snapshots_sent_total: snapshots written, by feed
//   - reactive_live_dropped_total: connections dropped for falling behind, by feed
type metrics struct {
	connections prometheus.Gauge
	sent        *prometheus.CounterVec
	dropped     *prometheus.CounterVec
}

func newMetrics(registry prometheus.Registerer, namespace string) *metrics {
	factory := promauto.With(registry)
	return &metrics{
		connections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "live",
			Name:      "connections",
			Help:      "Number of open WebSocket connections",
		}),
		sent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "live",
			Name:      "snapshots_sent_total",
			Help:      "Total number of snapshots written to connections",
		}, []string{"feed"}),
		dropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "live",
			Name:      "dropped_total",
			Help:      "Total number of connections dropped for falling behind",
		}, []string{"feed"}),
	}
}

// The methods below are no-ops on a nil receiver so a hub without a
// registry needs no checks.

func (m *metrics) opened() {
	if m != nil {
		m.connections.Inc()
	}
}

func (m *metrics) closed() {
	if m != nil {
		m.connections.Dec()
	}
}

func (m *metrics) delivered(feed string) {
	if m != nil {
		m.sent.WithLabelValues(feed).Inc()
	}
}

func (m *metrics) drop(feed string) {
	if m != nil {
		m.dropped.WithLabelValues(feed).Inc()
	}
}
