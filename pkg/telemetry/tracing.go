package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Default tracer name.
const defaultTracerName = "github.com/vango-dev/reactive"

// TracerConfig configures the OpenTelemetry observer.
type TracerConfig struct {
	// TracerName is the name of the tracer.
	TracerName string

	// Provider is the tracer provider. Default: the global provider.
	Provider trace.TracerProvider

	// Context is the parent context of every span. Default: Background.
	Context context.Context

	// Changes records a span per change as well as per recompute. Views can
	// fire a lot of changes, so this is off by default.
	Changes bool
}

// TracerOption configures the OpenTelemetry observer.
type TracerOption func(*TracerConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) TracerOption {
	return func(c *TracerConfig) {
		c.TracerName = name
	}
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) TracerOption {
	return func(c *TracerConfig) {
		c.Provider = tp
	}
}

// WithSpanContext sets the parent context of every span.
func WithSpanContext(ctx context.Context) TracerOption {
	return func(c *TracerConfig) {
		c.Context = ctx
	}
}

// WithChangeSpans enables a span per change.
func WithChangeSpans(on bool) TracerOption {
	return func(c *TracerConfig) {
		c.Changes = on
	}
}

// Tracer is a collection.Observer that records OpenTelemetry spans.
// Observer callbacks are instantaneous, so spans are ended as soon as they
// start and carry the event as attributes.
type Tracer struct {
	tracer  trace.Tracer
	ctx     context.Context
	changes bool
}

// NewTracer returns a tracing observer.
func NewTracer(opts ...TracerOption) *Tracer {
	config := TracerConfig{
		TracerName: defaultTracerName,
		Context:    context.Background(),
	}
	for _, opt := range opts {
		opt(&config)
	}
	if config.Provider == nil {
		config.Provider = otel.GetTracerProvider()
	}

	return &Tracer{
		tracer:  config.Provider.Tracer(config.TracerName),
		ctx:     config.Context,
		changes: config.Changes,
	}
}

// ObserveChange implements collection.Observer.
func (t *Tracer) ObserveChange(collection, op string, count int) {
	if !t.changes {
		return
	}
	_, span := t.tracer.Start(t.ctx, "reactive.change",
		trace.WithAttributes(
			attribute.String("reactive.collection", collection),
			attribute.String("reactive.op", op),
			attribute.Int("reactive.count", count),
		),
	)
	span.End()
}

// ObserveRecompute implements collection.Observer.
func (t *Tracer) ObserveRecompute(collection, cause string) {
	_, span := t.tracer.Start(t.ctx, "reactive.recompute",
		trace.WithAttributes(
			attribute.String("reactive.collection", collection),
			attribute.String("reactive.cause", cause),
		),
	)
	span.End()
}
