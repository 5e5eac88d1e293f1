package reactive

import (
	"errors"
	"sync/atomic"
)

// Duplex is a two-way bound cell. Producers write downstream with Update;
// an editor writes upstream with UpdateUpstream. Upstream listeners carry
// edits back to the producer.
//
// With fan-out enabled an upstream update also fires the downstream
// listeners, which models one editor and N passive observers of the same
// value.
type Duplex[T any] struct {
	Cell[T]

	up     Channel[T]
	upBusy atomic.Bool
	fanOut atomic.Bool
}

// NewDuplex creates a primed duplex cell.
func NewDuplex[T any](initial T, fanOut bool) *Duplex[T] {
	d := &Duplex[T]{
		Cell: Cell[T]{
			id:     nextID(),
			value:  initial,
			primed: true,
		},
	}
	d.fanOut.Store(fanOut)
	return d
}

// NewEmptyDuplex creates an unprimed duplex cell.
func NewEmptyDuplex[T any](fanOut bool) *Duplex[T] {
	d := &Duplex[T]{Cell: Cell[T]{id: nextID()}}
	d.fanOut.Store(fanOut)
	return d
}

// FanOut reports whether upstream updates also fire downstream listeners.
func (d *Duplex[T]) FanOut() bool {
	return d.fanOut.Load()
}

// SetFanOut changes the fan-out flag.
func (d *Duplex[T]) SetFanOut(on bool) {
	d.fanOut.Store(on)
}

// UpdateUpstream sets the value, fires upstream listeners and, with fan-out
// enabled, downstream listeners as well.
//
// Calling it from inside one of this cell's upstream listeners panics with a
// *ReentrancyError, as does calling it from a downstream listener while
// fan-out is on. Either way the value is left untouched.
func (d *Duplex[T]) UpdateUpstream(v T) error {
	if !d.upBusy.CompareAndSwap(false, true) {
		panic(&ReentrancyError{CellID: d.id, Direction: Upstream})
	}
	defer d.upBusy.Store(false)

	// Fan-out re-enters downstream delivery; refuse before anything moves.
	fanOut := d.fanOut.Load()
	if fanOut && d.downBusy.Load() {
		panic(&ReentrancyError{CellID: d.id, Direction: Downstream})
	}

	d.store(v)
	err := d.up.Fire(v)

	if fanOut {
		if !d.downBusy.CompareAndSwap(false, true) {
			panic(&ReentrancyError{CellID: d.id, Direction: Downstream})
		}
		defer d.downBusy.Store(false)
		err = joinErrors(err, d.down.Fire(v))
	}
	return err
}

// ListenUpstream registers fn for future upstream updates.
func (d *Duplex[T]) ListenUpstream(fn func(T), scope *Scope) *Handle {
	return d.up.Subscribe(fn, scope)
}

// UpstreamListenerCount returns the number of active upstream listeners.
func (d *Duplex[T]) UpstreamListenerCount() int {
	return d.up.Len()
}

func (d *Duplex[T]) listenUpstreamErr(fn func(T) error, scope *Scope) *Handle {
	return d.up.SubscribeErr(fn, scope)
}

func joinErrors(a, b error) error {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	default:
		return errors.Join(a, b)
	}
}
