package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsOption customises NewMetrics.
type MetricsOption func(*metricsOptions)

type metricsOptions struct {
	namespace string
	subsystem string
	labels    prometheus.Labels
	registry  prometheus.Registerer
}

// WithNamespace replaces the "reactive" metric name prefix.
func WithNamespace(namespace string) MetricsOption {
	return func(o *metricsOptions) { o.namespace = namespace }
}

// WithSubsystem replaces the "collection" metric name infix.
func WithSubsystem(subsystem string) MetricsOption {
	return func(o *metricsOptions) { o.subsystem = subsystem }
}

// WithConstLabels attaches fixed labels to every series.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(o *metricsOptions) { o.labels = labels }
}

// WithRegistry registers the collectors with r instead of
// prometheus.DefaultRegisterer.
func WithRegistry(r prometheus.Registerer) MetricsOption {
	return func(o *metricsOptions) { o.registry = r }
}

// Metrics is a collection.Observer backed by three counter vectors, named
// <namespace>_<subsystem>_ plus:
//
//	changes_total{collection,op}       change records fired
//	items_total{collection,op}         items carried by those records
//	recomputes_total{collection,cause} views rebuilt from scratch
type Metrics struct {
	changes    *prometheus.CounterVec
	items      *prometheus.CounterVec
	recomputes *prometheus.CounterVec
}

// NewMetrics registers the collectors and returns the observer. Registering
// twice with the same registry panics, as with any promauto collector.
func NewMetrics(opts ...MetricsOption) *Metrics {
	o := metricsOptions{
		namespace: "reactive",
		subsystem: "collection",
		registry:  prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(&o)
	}

	factory := promauto.With(o.registry)
	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		return factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   o.namespace,
			Subsystem:   o.subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: o.labels,
		}, labels)
	}

	return &Metrics{
		changes:    counter("changes_total", "Change records fired.", "collection", "op"),
		items:      counter("items_total", "Items carried by fired change records.", "collection", "op"),
		recomputes: counter("recomputes_total", "Views recomputed from scratch.", "collection", "cause"),
	}
}

// ObserveChange implements collection.Observer.
func (m *Metrics) ObserveChange(collection, op string, count int) {
	m.changes.WithLabelValues(collection, op).Inc()
	m.items.WithLabelValues(collection, op).Add(float64(count))
}

// ObserveRecompute implements collection.Observer.
func (m *Metrics) ObserveRecompute(collection, cause string) {
	m.recomputes.WithLabelValues(collection, cause).Inc()
}

// Changes exposes changes_total, mostly for tests.
func (m *Metrics) Changes() *prometheus.CounterVec { return m.changes }

// Items exposes items_total.
func (m *Metrics) Items() *prometheus.CounterVec { return m.items }

// Recomputes exposes recomputes_total.
func (m *Metrics) Recomputes() *prometheus.CounterVec { return m.recomputes }
