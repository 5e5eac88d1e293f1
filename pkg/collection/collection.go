package collection

import (
	"fmt"
	"iter"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/vango-dev/reactive/pkg/reactive"
)

// Collection is an observable ordered sequence. Every successful mutation
// fires exactly one Change to the collection's listeners, synchronously,
// before the mutator returns. The Length cell is updated after the change
// whenever the size changed.
//
// Items are compared with ==, so pointer elements are matched by identity.
type Collection[T comparable] struct {
	id       uint64
	name     string
	observer Observer
	readOnly bool

	mu    sync.RWMutex
	items []T

	changes reactive.Channel[Change[T]]
	busy    atomic.Bool
	length  *reactive.Cell[int]
}

// New creates a collection holding a copy of items.
func New[T comparable](items []T, opts ...Option) *Collection[T] {
	cfg := buildConfig(opts)
	c := &Collection[T]{
		id:       nextID(),
		name:     cfg.name,
		observer: cfg.observer,
		items:    slices.Clone(items),
	}
	if c.name == "" {
		c.name = fmt.Sprintf("collection-%d", c.id)
	}
	c.length = reactive.NewCell(len(c.items))
	return c
}

// ID returns the unique identifier for this collection.
func (c *Collection[T]) ID() uint64 {
	return c.id
}

// Name returns the collection's name.
func (c *Collection[T]) Name() string {
	return c.name
}

// ReadOnly reports whether the collection is a view.
func (c *Collection[T]) ReadOnly() bool {
	return c.readOnly
}

// Len returns the number of items.
func (c *Collection[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// At returns the item at index i.
func (c *Collection[T]) At(i int) (T, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i < 0 || i >= len(c.items) {
		var zero T
		return zero, &BoundsError{Op: "at", Index: i, Count: 1, Len: len(c.items)}
	}
	return c.items[i], nil
}

// ToSlice returns a copy of the content. It never returns nil.
func (c *Collection[T]) ToSlice() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshotLocked()
}

func (c *Collection[T]) snapshotLocked() []T {
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

// All iterates over a snapshot of the content taken when iteration starts.
func (c *Collection[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		for i, v := range c.ToSlice() {
			if !yield(i, v) {
				return
			}
		}
	}
}

// IndexOf returns the position of the first item equal to v, or -1.
func (c *Collection[T]) IndexOf(v T) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Index(c.items, v)
}

// Contains reports whether an item equal to v is present.
func (c *Collection[T]) Contains(v T) bool {
	return c.IndexOf(v) >= 0
}

// Length returns the cell tracking the number of items.
func (c *Collection[T]) Length() *reactive.Cell[int] {
	return c.length
}

// Listen registers fn for future changes.
func (c *Collection[T]) Listen(fn func(Change[T]), scope *reactive.Scope) *reactive.Handle {
	return c.changes.Subscribe(fn, scope)
}

// ListenOnce registers fn for the next change only.
func (c *Collection[T]) ListenOnce(fn func(Change[T]), scope *reactive.Scope) *reactive.Handle {
	return c.changes.SubscribeOnce(fn, scope)
}

// ListenAndRepeat registers fn for future changes and immediately delivers
// the current content as an append at index 0, so a consumer can build its
// state from changes alone.
func (c *Collection[T]) ListenAndRepeat(fn func(Change[T]), scope *reactive.Scope) *reactive.Handle {
	h := c.changes.Subscribe(fn, scope)
	if !h.Active() {
		return h
	}
	items := c.ToSlice()
	fn(Change[T]{
		Kind:     KindAdd,
		Op:       OpAppend,
		Count:    len(items),
		Items:    items,
		NewState: slices.Clone(items),
	})
	return h
}

// ListenerCount returns the number of active change listeners, views
// included.
func (c *Collection[T]) ListenerCount() int {
	return c.changes.Len()
}

func (c *Collection[T]) listenErr(fn func(Change[T]) error, scope *reactive.Scope) *reactive.Handle {
	return c.changes.SubscribeErr(fn, scope)
}

func (c *Collection[T]) writable() error {
	if c.readOnly {
		return fmt.Errorf("%w: %s", ErrReadOnly, c.name)
	}
	return nil
}

// Push appends items. Pushing nothing is a no-op and fires no change.
func (c *Collection[T]) Push(items ...T) error {
	if err := c.writable(); err != nil {
		return err
	}
	return c.insert(OpAppend, c.Len(), items)
}

// Unshift prepends items.
func (c *Collection[T]) Unshift(items ...T) error {
	if err := c.writable(); err != nil {
		return err
	}
	return c.insert(OpPrepend, 0, items)
}

// InsertAt inserts items so that the first of them ends up at index i.
// i may equal Len.
func (c *Collection[T]) InsertAt(i int, items ...T) error {
	if err := c.writable(); err != nil {
		return err
	}
	return c.insert(OpInsert, i, items)
}

// Pop removes and returns the last item.
func (c *Collection[T]) Pop() (T, error) {
	var zero T
	if err := c.writable(); err != nil {
		return zero, err
	}
	removed, err := c.remove(OpRemoveRight, c.Len()-1, 1)
	if len(removed) == 0 {
		return zero, err
	}
	return removed[0], err
}

// Shift removes and returns the first item.
func (c *Collection[T]) Shift() (T, error) {
	var zero T
	if err := c.writable(); err != nil {
		return zero, err
	}
	removed, err := c.remove(OpRemoveLeft, 0, 1)
	if len(removed) == 0 {
		return zero, err
	}
	return removed[0], err
}

// RemoveAt removes and returns the item at index i.
func (c *Collection[T]) RemoveAt(i int) (T, error) {
	var zero T
	if err := c.writable(); err != nil {
		return zero, err
	}
	removed, err := c.remove(OpRemove, i, 1)
	if len(removed) == 0 {
		return zero, err
	}
	return removed[0], err
}

// RemoveRange removes count items starting at index i and returns them.
func (c *Collection[T]) RemoveRange(i, count int) ([]T, error) {
	if err := c.writable(); err != nil {
		return nil, err
	}
	return c.remove(OpRemove, i, count)
}

// RemoveLeft removes the first count items and returns them.
func (c *Collection[T]) RemoveLeft(count int) ([]T, error) {
	if err := c.writable(); err != nil {
		return nil, err
	}
	return c.remove(OpRemoveLeft, 0, count)
}

// RemoveRight removes the last count items and returns them.
func (c *Collection[T]) RemoveRight(count int) ([]T, error) {
	if err := c.writable(); err != nil {
		return nil, err
	}
	return c.remove(OpRemoveRight, c.Len()-count, count)
}

// Swap exchanges the items at indexes i and j.
func (c *Collection[T]) Swap(i, j int) error {
	if err := c.writable(); err != nil {
		return err
	}
	return c.swap(i, j)
}

// SwapItems exchanges the first occurrences of a and b.
func (c *Collection[T]) SwapItems(a, b T) error {
	if err := c.writable(); err != nil {
		return err
	}
	i, j := c.IndexOf(a), c.IndexOf(b)
	if i < 0 {
		return fmt.Errorf("swap %v: %w", a, ErrNotFound)
	}
	if j < 0 {
		return fmt.Errorf("swap %v: %w", b, ErrNotFound)
	}
	return c.swap(i, j)
}

// SetAt replaces the item at index i with v.
func (c *Collection[T]) SetAt(i int, v T) error {
	if err := c.writable(); err != nil {
		return err
	}
	return c.replace(i, v)
}

// Clear removes every item. Clearing an empty collection still fires a
// clear change.
func (c *Collection[T]) Clear() error {
	if err := c.writable(); err != nil {
		return err
	}
	return c.clear()
}

// Merge replaces the content with items and fires one merge change carrying
// both snapshots. Consumers reconcile the two snapshots by identity.
func (c *Collection[T]) Merge(items []T) error {
	if err := c.writable(); err != nil {
		return err
	}
	return c.merge(items)
}

// String implements fmt.Stringer.
func (c *Collection[T]) String() string {
	return fmt.Sprintf("%s%v", c.name, c.ToSlice())
}
