package collection

import "sync/atomic"

// Observer receives instrumentation callbacks from collections and their
// views. Implementations must be cheap and must not mutate collections.
// See package telemetry for Prometheus, OpenTelemetry and slog observers.
type Observer interface {
	// ObserveChange is called once per fired change, before listeners run.
	ObserveChange(collection, op string, count int)

	// ObserveRecompute is called when a view falls back to recomputing its
	// whole content because the parent edit had no local equivalent.
	ObserveRecompute(collection, cause string)
}

// Option configures a Collection, KeyedMap or KeyedSet.
type Option func(*config)

type config struct {
	name     string
	observer Observer
}

// WithName names the collection. Views derive their names from their
// parent's.
func WithName(name string) Option {
	return func(c *config) {
		c.name = name
	}
}

// WithObserver attaches an instrumentation observer. Views inherit their
// parent's observer.
func WithObserver(o Observer) Option {
	return func(c *config) {
		c.observer = o
	}
}

var idCounter uint64

func nextID() uint64 {
	return atomic.AddUint64(&idCounter, 1)
}

func buildConfig(opts []Option) config {
	var c config
	for _, opt := range opts {
		opt(&c)
	}
	return c
}
