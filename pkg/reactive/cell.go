package reactive

import (
	"sync"
	"sync/atomic"
)

// Cell is a reactive single-value container. Updates are delivered to
// downstream listeners synchronously before Update returns.
type Cell[T any] struct {
	id uint64

	value  T
	primed bool
	mu     sync.RWMutex

	down     Channel[T]
	downBusy atomic.Bool

	errMu       sync.RWMutex
	errHandlers [2][]*errorHandler
}

type errorHandler struct {
	fn func(error)
}

// NewCell creates a primed cell holding initial.
func NewCell[T any](initial T) *Cell[T] {
	return &Cell[T]{
		id:     nextID(),
		value:  initial,
		primed: true,
	}
}

// NewEmptyCell creates a cell that has never been set. Value returns the zero
// value of T until the first update.
func NewEmptyCell[T any]() *Cell[T] {
	return &Cell[T]{id: nextID()}
}

// ID returns the unique identifier for this cell.
func (c *Cell[T]) ID() uint64 {
	return c.id
}

// Value returns the current value.
func (c *Cell[T]) Value() T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value
}

// Primed reports whether the cell has ever been set.
func (c *Cell[T]) Primed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.primed
}

func (c *Cell[T]) snapshot() (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value, c.primed
}

func (c *Cell[T]) store(v T) {
	c.mu.Lock()
	c.value = v
	c.primed = true
	c.mu.Unlock()
}

// Update sets the value and fires downstream listeners. It is the same as
// UpdateDownstream.
func (c *Cell[T]) Update(v T) error {
	return c.UpdateDownstream(v)
}

// UpdateDownstream sets the value and fires downstream listeners.
//
// Calling it from inside one of this cell's downstream listeners panics with
// a *ReentrancyError and leaves the value untouched. Operator faults raised
// by derived cells without an error handler are returned.
func (c *Cell[T]) UpdateDownstream(v T) error {
	if !c.downBusy.CompareAndSwap(false, true) {
		panic(&ReentrancyError{CellID: c.id, Direction: Downstream})
	}
	defer c.downBusy.Store(false)

	c.store(v)
	return c.down.Fire(v)
}

// Listen registers fn for future downstream updates.
func (c *Cell[T]) Listen(fn func(T), scope *Scope) *Handle {
	return c.down.Subscribe(fn, scope)
}

// ListenAndRepeat registers fn for future updates and, if the cell is
// primed, also delivers the current value immediately.
func (c *Cell[T]) ListenAndRepeat(fn func(T), scope *Scope) *Handle {
	h := c.down.Subscribe(fn, scope)
	if v, ok := c.snapshot(); ok && h.Active() {
		fn(v)
	}
	return h
}

// ListenOnce registers fn for the next downstream update only.
func (c *Cell[T]) ListenOnce(fn func(T), scope *Scope) *Handle {
	return c.down.SubscribeOnce(fn, scope)
}

// listenErr subscribes a derived stage whose failures must reach the
// updating caller.
func (c *Cell[T]) listenErr(fn func(T) error, scope *Scope) *Handle {
	return c.down.SubscribeErr(fn, scope)
}

// ListenerCount returns the number of active downstream listeners.
func (c *Cell[T]) ListenerCount() int {
	return c.down.Len()
}

// OnError registers a handler for operator faults raised while this cell is
// being computed in direction dir. With at least one handler registered,
// faults are delivered to the handlers instead of being returned to the
// caller that triggered them.
func (c *Cell[T]) OnError(dir Direction, fn func(error)) (remove func()) {
	h := &errorHandler{fn: fn}

	c.errMu.Lock()
	c.errHandlers[dir] = append(c.errHandlers[dir], h)
	c.errMu.Unlock()

	return func() {
		c.errMu.Lock()
		defer c.errMu.Unlock()
		handlers := c.errHandlers[dir]
		for i, existing := range handlers {
			if existing == h {
				c.errHandlers[dir] = append(handlers[:i], handlers[i+1:]...)
				return
			}
		}
	}
}

// routeError hands err to the registered handlers for dir. It returns err
// unchanged when nobody is listening so the caller can propagate it.
func (c *Cell[T]) routeError(dir Direction, err error) error {
	if err == nil {
		return nil
	}

	c.errMu.RLock()
	handlers := make([]*errorHandler, len(c.errHandlers[dir]))
	copy(handlers, c.errHandlers[dir])
	c.errMu.RUnlock()

	if len(handlers) == 0 {
		return err
	}
	for _, h := range handlers {
		h.fn(err)
	}
	return nil
}
