package reactive

import (
	"context"
	"errors"
	"sync"
)

// runContext carries per-pipeline state through the stages of one run.
type runContext struct {
	ctx context.Context
	dir Direction

	// fail receives errors raised after the synchronous part of a run has
	// returned, i.e. from asynchronous stages.
	fail func(error)

	// resumeMu serialises asynchronous continuations, so completions that
	// land together reach the derived cell one at a time.
	resumeMu sync.Mutex
}

// resume continues a run on an asynchronous stage's goroutine.
func (rc *runContext) resume(next func() error) {
	rc.resumeMu.Lock()
	err := next()
	rc.resumeMu.Unlock()
	if err != nil {
		rc.fail(err)
	}
}

// stage runs one input through a chain of operators and hands every
// surviving output to next. Stages never wrap errors returned by next.
type stage[In, Out any] func(rc *runContext, in In, next func(Out) error) error

// Op is a typed chain of pipeline stages from In to Out.
//
// Build chains with Map, TryMap, Filter, AsyncMap and AsyncFilter, join them
// with Then, and extend them in place with the type-preserving methods:
//
//	op := reactive.Then(
//	    reactive.Map(strings.TrimSpace),
//	    reactive.Map(strings.ToUpper),
//	).Filter(func(s string) bool { return s != "" })
type Op[In, Out any] struct {
	run   stage[In, Out]
	names []string
	async bool
}

// Stages returns the names of the stages in application order.
func (o Op[In, Out]) Stages() []string {
	return append([]string(nil), o.names...)
}

// Async reports whether any stage of the chain is asynchronous.
func (o Op[In, Out]) Async() bool {
	return o.async
}

// Identity returns an operator that passes every value through unchanged.
func Identity[T any]() Op[T, T] {
	return Op[T, T]{
		run: func(_ *runContext, in T, next func(T) error) error {
			return next(in)
		},
	}
}

// Map projects every value through fn.
func Map[In, Out any](fn func(In) Out) Op[In, Out] {
	return Op[In, Out]{
		run: func(_ *runContext, in In, next func(Out) error) error {
			return next(fn(in))
		},
		names: []string{"map"},
	}
}

// TryMap projects every value through a projection that can fail. A failure
// becomes an *OperatorError and stops the run.
func TryMap[In, Out any](fn func(In) (Out, error)) Op[In, Out] {
	return Op[In, Out]{
		run: func(rc *runContext, in In, next func(Out) error) error {
			out, err := fn(in)
			if err != nil {
				return &OperatorError{Stage: "map", Direction: rc.dir, Err: err}
			}
			return next(out)
		},
		names: []string{"map"},
	}
}

// Filter passes values for which pred returns true. Rejected values are
// dropped silently.
func Filter[T any](pred func(T) bool) Op[T, T] {
	return Op[T, T]{
		run: func(_ *runContext, in T, next func(T) error) error {
			if !pred(in) {
				return nil
			}
			return next(in)
		},
		names: []string{"filter"},
	}
}

// TryFilter is Filter with a predicate that can fail.
func TryFilter[T any](pred func(T) (bool, error)) Op[T, T] {
	return Op[T, T]{
		run: func(rc *runContext, in T, next func(T) error) error {
			ok, err := pred(in)
			if err != nil {
				return &OperatorError{Stage: "filter", Direction: rc.dir, Err: err}
			}
			if !ok {
				return nil
			}
			return next(in)
		},
		names: []string{"filter"},
	}
}

// AsyncMap runs fn on its own goroutine and continues the chain there when
// it returns. Runs are not ordered relative to each other: a later input can
// finish and be applied before an earlier, slower one. Completions are
// applied one at a time.
func AsyncMap[In, Out any](fn func(context.Context, In) (Out, error)) Op[In, Out] {
	return Op[In, Out]{
		run: func(rc *runContext, in In, next func(Out) error) error {
			go func() {
				out, err := fn(rc.ctx, in)
				if err != nil {
					rc.fail(&OperatorError{Stage: "async map", Direction: rc.dir, Err: err})
					return
				}
				rc.resume(func() error { return next(out) })
			}()
			return nil
		},
		names: []string{"async map"},
		async: true,
	}
}

// AsyncFilter runs pred on its own goroutine and continues the chain there
// when it accepts the value. Ordering is as for AsyncMap.
func AsyncFilter[T any](pred func(context.Context, T) (bool, error)) Op[T, T] {
	return Op[T, T]{
		run: func(rc *runContext, in T, next func(T) error) error {
			go func() {
				ok, err := pred(rc.ctx, in)
				if err != nil {
					rc.fail(&OperatorError{Stage: "async filter", Direction: rc.dir, Err: err})
					return
				}
				if !ok {
					return
				}
				rc.resume(func() error { return next(in) })
			}()
			return nil
		},
		names: []string{"async filter"},
		async: true,
	}
}

// Then composes two operators: values flow through first, then second.
func Then[A, B, C any](first Op[A, B], second Op[B, C]) Op[A, C] {
	names := make([]string, 0, len(first.names)+len(second.names))
	names = append(names, first.names...)
	names = append(names, second.names...)

	return Op[A, C]{
		run: func(rc *runContext, in A, next func(C) error) error {
			return first.run(rc, in, func(mid B) error {
				return second.run(rc, mid, next)
			})
		},
		names: names,
		async: first.async || second.async,
	}
}

// Filter appends a filter stage.
func (o Op[In, Out]) Filter(pred func(Out) bool) Op[In, Out] {
	return Then(o, Filter(pred))
}

// Map appends a type-preserving map stage. Use the Then function to change
// the output type.
func (o Op[In, Out]) Map(fn func(Out) Out) Op[In, Out] {
	return Then(o, Map(fn))
}

// Tap appends a stage that observes every value without changing it.
func (o Op[In, Out]) Tap(fn func(Out)) Op[In, Out] {
	return Then(o, Op[Out, Out]{
		run: func(_ *runContext, in Out, next func(Out) error) error {
			fn(in)
			return next(in)
		},
		names: []string{"tap"},
	})
}

// passthroughError marks an error raised by a cell further down the graph so
// that it is propagated to the caller instead of being routed to this
// cell's handlers.
type passthroughError struct {
	err error
}

func (p *passthroughError) Error() string { return p.err.Error() }
func (p *passthroughError) Unwrap() error { return p.err }

func passthrough(err error) error {
	if err == nil {
		return nil
	}
	return &passthroughError{err: err}
}

// settle turns the result of a synchronous run into what the triggering
// update returns: downstream errors pass through, this pipeline's own faults
// are routed to dst's handlers for dir.
func settle[T any](dst *Cell[T], dir Direction, err error) error {
	if err == nil {
		return nil
	}
	var pt *passthroughError
	if errors.As(err, &pt) {
		return pt.err
	}
	return dst.routeError(dir, err)
}

// asyncFailure returns the sink for failures raised by asynchronous stages.
// They have no caller to return to: unhandled ones are logged.
func asyncFailure[T any](dst *Cell[T], dir Direction, o *options) func(error) {
	return func(err error) {
		var pt *passthroughError
		if errors.As(err, &pt) {
			o.logger.Error("unhandled async pipeline error",
				"cell", dst.ID(), "direction", dir.String(), "error", pt.err)
			return
		}
		if err := dst.routeError(dir, err); err != nil {
			o.logger.Error("unhandled async pipeline error",
				"cell", dst.ID(), "direction", dir.String(), "error", err)
		}
	}
}

// Transform derives a cell from src. Every downstream update of src is run
// through op; each surviving output updates the derived cell. If src is
// primed the initial value is computed before Transform returns, and an
// operator fault at that point is returned as the error.
//
// The subscription on src is registered under scope; cancel the scope to
// stop the pipeline.
func Transform[In, Out any](src *Cell[In], op Op[In, Out], scope *Scope, opts ...Option) (*Cell[Out], error) {
	o := buildOptions(opts)
	dst := NewEmptyCell[Out]()
	o.install(dst)

	var h *Handle
	deliver := func(v Out) error {
		if h != nil && !h.Active() {
			return nil
		}
		return passthrough(dst.UpdateDownstream(v))
	}

	rc := &runContext{ctx: o.ctx, dir: Downstream, fail: asyncFailure(dst, Downstream, &o)}
	handler := func(v In) error {
		return settle(dst, Downstream, op.run(rc, v, deliver))
	}

	h = src.listenErr(handler, scope)

	if v, ok := src.snapshot(); ok && h.Active() {
		if err := handler(v); err != nil {
			h.Cancel()
			return nil, err
		}
	}

	return dst, nil
}

// DuplexOp pairs a downstream operator with the upstream operator that maps
// edits back.
type DuplexOp[A, B any] struct {
	Down Op[A, B]
	Up   Op[B, A]
}

// NewDuplexOp builds a DuplexOp from its two directions.
func NewDuplexOp[A, B any](down Op[A, B], up Op[B, A]) DuplexOp[A, B] {
	return DuplexOp[A, B]{Down: down, Up: up}
}

// DuplexMap builds a DuplexOp from a projection and its inverse.
func DuplexMap[A, B any](down func(A) B, up func(B) A) DuplexOp[A, B] {
	return DuplexOp[A, B]{Down: Map(down), Up: Map(up)}
}

// ThenDuplex composes two duplex operators. Downstream values flow through
// first then second; upstream edits flow back through second then first.
func ThenDuplex[A, B, C any](first DuplexOp[A, B], second DuplexOp[B, C]) DuplexOp[A, C] {
	return DuplexOp[A, C]{
		Down: Then(first.Down, second.Down),
		Up:   Then(second.Up, first.Up),
	}
}

// TransformDuplex derives a duplex cell from src. Downstream updates of src
// run through op.Down into the derived cell; upstream updates of the derived
// cell run through op.Up into src.UpdateUpstream. A direction's update is
// only processed by that direction's operator.
func TransformDuplex[A, B any](src *Duplex[A], op DuplexOp[A, B], scope *Scope, opts ...Option) (*Duplex[B], error) {
	o := buildOptions(opts)
	dst := NewEmptyDuplex[B](o.fanOut)
	o.install(dst)

	var down, up *Handle

	downRC := &runContext{ctx: o.ctx, dir: Downstream, fail: asyncFailure(&dst.Cell, Downstream, &o)}
	downHandler := func(v A) error {
		err := op.Down.run(downRC, v, func(out B) error {
			if down != nil && !down.Active() {
				return nil
			}
			return passthrough(dst.UpdateDownstream(out))
		})
		return settle(&dst.Cell, Downstream, err)
	}

	upRC := &runContext{ctx: o.ctx, dir: Upstream, fail: asyncFailure(&dst.Cell, Upstream, &o)}
	upHandler := func(v B) error {
		err := op.Up.run(upRC, v, func(out A) error {
			if up != nil && !up.Active() {
				return nil
			}
			return passthrough(src.UpdateUpstream(out))
		})
		return settle(&dst.Cell, Upstream, err)
	}

	down = src.listenErr(downHandler, scope)
	up = dst.listenUpstreamErr(upHandler, scope)

	if v, ok := src.snapshot(); ok && down.Active() {
		if err := downHandler(v); err != nil {
			down.Cancel()
			up.Cancel()
			return nil, err
		}
	}

	return dst, nil
}
