package reactive

import (
	"context"
	"log/slog"
)

// Option configures a derived cell built by Transform, TransformDuplex or
// Aggregate.
type Option func(*options)

type options struct {
	ctx      context.Context
	logger   *slog.Logger
	handlers [2][]func(error)
	fanOut   bool
}

// WithContext sets the context handed to asynchronous stages. Cancelling
// the pipeline's scope does not cancel this context: in-flight work runs to
// completion and only its delivery is suppressed.
func WithContext(ctx context.Context) Option {
	return func(o *options) {
		o.ctx = ctx
	}
}

// WithLogger sets the logger used for asynchronous failures that have no
// error handler and no caller to return to.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithErrorHandler registers fn as an error handler on the derived cell for
// direction dir before its initial value is computed.
func WithErrorHandler(dir Direction, fn func(error)) Option {
	return func(o *options) {
		o.handlers[dir] = append(o.handlers[dir], fn)
	}
}

// WithFanOut sets the fan-out flag of a duplex cell built by
// TransformDuplex.
func WithFanOut(on bool) Option {
	return func(o *options) {
		o.fanOut = on
	}
}

func buildOptions(opts []Option) options {
	o := options{
		ctx:    context.Background(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o *options) install(c interface {
	OnError(Direction, func(error)) func()
}) {
	for dir, handlers := range o.handlers {
		for _, fn := range handlers {
			c.OnError(Direction(dir), fn)
		}
	}
}
