package reactive

// SourceKind tags the variant held by a Source.
type SourceKind uint8

const (
	// SourceConst is a plain value that never changes.
	SourceConst SourceKind = iota
	// SourceCell is a one-directional cell.
	SourceCell
	// SourceDuplex is a duplex cell.
	SourceDuplex
)

// String returns a human-readable name for the kind.
func (k SourceKind) String() string {
	switch k {
	case SourceConst:
		return "const"
	case SourceCell:
		return "cell"
	case SourceDuplex:
		return "duplex"
	default:
		return "unknown"
	}
}

// Source is an input to Aggregate: a plain value, a cell or a duplex cell.
type Source[T any] struct {
	kind   SourceKind
	value  T
	cell   *Cell[T]
	duplex *Duplex[T]
}

// Const wraps a plain value.
func Const[T any](v T) Source[T] {
	return Source[T]{kind: SourceConst, value: v}
}

// FromCell wraps a one-directional cell.
func FromCell[T any](c *Cell[T]) Source[T] {
	return Source[T]{kind: SourceCell, cell: c}
}

// FromDuplex wraps a duplex cell. Both directions are observed, so an
// editor's upstream edit is seen even when fan-out is off.
func FromDuplex[T any](d *Duplex[T]) Source[T] {
	return Source[T]{kind: SourceDuplex, duplex: d}
}

// Kind returns the variant tag.
func (s Source[T]) Kind() SourceKind {
	return s.kind
}

// Value returns the current value of the source.
func (s Source[T]) Value() T {
	switch s.kind {
	case SourceCell:
		return s.cell.Value()
	case SourceDuplex:
		return s.duplex.Value()
	default:
		return s.value
	}
}

// watch subscribes fn to every change of the source. Plain values never
// change and produce no handles.
func (s Source[T]) watch(fn func() error, scope *Scope) []*Handle {
	switch s.kind {
	case SourceCell:
		return []*Handle{s.cell.listenErr(func(T) error { return fn() }, scope)}
	case SourceDuplex:
		d := s.duplex
		return []*Handle{
			d.listenErr(func(T) error { return fn() }, scope),
			d.listenUpstreamErr(func(T) error {
				// With fan-out the downstream subscription already saw it.
				if d.FanOut() {
					return nil
				}
				return fn()
			}, scope),
		}
	default:
		return nil
	}
}

// aggregate wires a combinator cell to a set of watchers.
func aggregate[R any](watchers []func(func() error, *Scope) []*Handle, compute func() (R, error), scope *Scope, opts []Option) (*Cell[R], error) {
	o := buildOptions(opts)
	dst := NewEmptyCell[R]()
	o.install(dst)

	recompute := func() error {
		v, err := compute()
		if err != nil {
			return dst.routeError(Downstream, &OperatorError{Stage: "aggregate", Direction: Downstream, Err: err})
		}
		return dst.UpdateDownstream(v)
	}

	var handles []*Handle
	for _, watch := range watchers {
		handles = append(handles, watch(recompute, scope)...)
	}

	if scope == nil || !scope.Cancelled() {
		if err := recompute(); err != nil {
			for _, h := range handles {
				h.Cancel()
			}
			return nil, err
		}
	}

	return dst, nil
}

// Aggregate derives a cell from the current values of sources. fn is called
// with the values in source order whenever any cell source updates, and
// once eagerly for the initial value.
func Aggregate[T, R any](sources []Source[T], fn func(values []T) (R, error), scope *Scope, opts ...Option) (*Cell[R], error) {
	watchers := make([]func(func() error, *Scope) []*Handle, len(sources))
	for i, s := range sources {
		watchers[i] = s.watch
	}

	return aggregate(watchers, func() (R, error) {
		values := make([]T, len(sources))
		for i, s := range sources {
			values[i] = s.Value()
		}
		return fn(values)
	}, scope, opts)
}

// Aggregate2 is Aggregate for two sources of different types.
func Aggregate2[A, B, R any](a Source[A], b Source[B], fn func(A, B) (R, error), scope *Scope, opts ...Option) (*Cell[R], error) {
	return aggregate(
		[]func(func() error, *Scope) []*Handle{a.watch, b.watch},
		func() (R, error) { return fn(a.Value(), b.Value()) },
		scope, opts,
	)
}

// Aggregate3 is Aggregate for three sources of different types.
func Aggregate3[A, B, C, R any](a Source[A], b Source[B], c Source[C], fn func(A, B, C) (R, error), scope *Scope, opts ...Option) (*Cell[R], error) {
	return aggregate(
		[]func(func() error, *Scope) []*Handle{a.watch, b.watch, c.watch},
		func() (R, error) { return fn(a.Value(), b.Value(), c.Value()) },
		scope, opts,
	)
}
