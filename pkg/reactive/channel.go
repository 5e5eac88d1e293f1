package reactive

import (
	"errors"
	"sync"
	"sync/atomic"
)

// Handle is returned by every subscribe call. Cancel detaches the
// subscription; it is idempotent.
type Handle struct {
	id     uint64
	active atomic.Bool
	cancel func()
}

// ID returns the unique identifier for this subscription.
func (h *Handle) ID() uint64 {
	return h.id
}

// Active reports whether the subscription still receives deliveries.
func (h *Handle) Active() bool {
	return h.active.Load()
}

// Cancel detaches the subscription.
func (h *Handle) Cancel() {
	if h.active.Swap(false) && h.cancel != nil {
		h.cancel()
	}
}

type subscriber[T any] struct {
	handle *Handle
	fn     func(T) error
	once   bool
}

// Channel is a multi-subscriber delivery primitive. It is the substrate for
// cells, collections and keyed collections.
type Channel[T any] struct {
	subs []*subscriber[T]
	idle func()
	mu   sync.RWMutex
}

// Subscribe registers fn under scope. A nil scope means the subscription
// lives until its handle is cancelled.
func (c *Channel[T]) Subscribe(fn func(T), scope *Scope) *Handle {
	return c.subscribe(func(v T) error { fn(v); return nil }, scope, false)
}

// SubscribeErr is Subscribe for listeners that can fail. Errors are
// returned from Fire.
func (c *Channel[T]) SubscribeErr(fn func(T) error, scope *Scope) *Handle {
	return c.subscribe(fn, scope, false)
}

// SubscribeOnce registers fn for a single delivery, after which the
// subscription cancels itself.
func (c *Channel[T]) SubscribeOnce(fn func(T), scope *Scope) *Handle {
	return c.subscribe(func(v T) error { fn(v); return nil }, scope, true)
}

func (c *Channel[T]) subscribe(fn func(T) error, scope *Scope, once bool) *Handle {
	h := &Handle{id: nextID()}
	h.active.Store(true)
	sub := &subscriber[T]{handle: h, fn: fn, once: once}

	if scope != nil && scope.Cancelled() {
		h.active.Store(false)
		return h
	}

	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.mu.Unlock()

	var removeFromScope func()
	h.cancel = func() {
		c.remove(sub)
		if removeFromScope != nil {
			removeFromScope()
		}
	}
	if scope != nil {
		removeFromScope = scope.OnCancel(h.Cancel)
	}

	return h
}

func (c *Channel[T]) remove(sub *subscriber[T]) {
	c.mu.Lock()
	for i, s := range c.subs {
		if s == sub {
			// Order matters: delivery is FIFO by registration.
			c.subs = append(c.subs[:i], c.subs[i+1:]...)
			break
		}
	}
	idle := c.idle
	if len(c.subs) > 0 {
		idle = nil
	}
	c.mu.Unlock()

	if idle != nil {
		idle()
	}
}

// OnIdle sets fn to run, outside the channel's lock, whenever a
// cancellation leaves the channel without subscribers. It replaces any
// earlier callback.
func (c *Channel[T]) OnIdle(fn func()) {
	c.mu.Lock()
	c.idle = fn
	c.mu.Unlock()
}

// Fire delivers v to a snapshot of the current subscribers in registration
// order. Subscribers added during the fire do not see v; subscribers
// cancelled before their turn are skipped. Every subscriber runs even when
// an earlier one fails; the failures are joined.
func (c *Channel[T]) Fire(v T) error {
	c.mu.RLock()
	subs := make([]*subscriber[T], len(c.subs))
	copy(subs, c.subs)
	c.mu.RUnlock()

	var errs []error
	for _, sub := range subs {
		if !sub.handle.Active() {
			continue
		}
		if sub.once {
			sub.handle.Cancel()
		}
		if err := sub.fn(v); err != nil {
			errs = append(errs, err)
		}
	}

	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	default:
		return errors.Join(errs...)
	}
}

// Len returns the number of active subscribers.
func (c *Channel[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.subs)
}
