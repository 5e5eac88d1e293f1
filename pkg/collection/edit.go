package collection

import (
	"errors"
	"slices"
)

// The edit primitives below are shared by the public mutators and by the
// views, which bypass the read-only check. Each primitive validates, moves
// the backing slice and fires exactly one change.

func (c *Collection[T]) begin() {
	if !c.busy.CompareAndSwap(false, true) {
		panic(&ReentrancyError{Collection: c.name, ID: c.id})
	}
}

func (c *Collection[T]) end() {
	c.busy.Store(false)
}

// commit installs the result of mutate and fires ch. mutate runs under the
// write lock and must not call back into the collection.
func (c *Collection[T]) commit(ch Change[T], mutate func([]T) []T) error {
	c.mu.Lock()
	prevLen := len(c.items)
	c.items = mutate(c.items)
	ch.NewState = c.snapshotLocked()
	n := len(c.items)
	c.mu.Unlock()

	ch.Kind = ch.Op.Kind()
	if c.observer != nil {
		c.observer.ObserveChange(c.name, ch.Op.String(), ch.Count)
	}

	err := c.changes.Fire(ch)
	if n != prevLen {
		err = joinErrors(err, c.length.Update(n))
	}
	return err
}

func (c *Collection[T]) insert(op Op, index int, items []T) error {
	if len(items) == 0 {
		return nil
	}
	c.begin()
	defer c.end()

	if n := c.Len(); index < 0 || index > n {
		return &BoundsError{Op: op.String(), Index: index, Count: len(items), Len: n}
	}
	items = slices.Clone(items)
	return c.commit(Change[T]{Op: op, Index: index, Count: len(items), Items: items}, func(cur []T) []T {
		return slices.Insert(cur, index, items...)
	})
}

func (c *Collection[T]) remove(op Op, index, count int) ([]T, error) {
	if count == 0 {
		return nil, nil
	}
	c.begin()
	defer c.end()

	c.mu.RLock()
	n := len(c.items)
	if index < 0 || count < 0 || index+count > n {
		c.mu.RUnlock()
		return nil, &BoundsError{Op: op.String(), Index: index, Count: count, Len: n}
	}
	removed := slices.Clone(c.items[index : index+count])
	c.mu.RUnlock()

	err := c.commit(Change[T]{Op: op, Index: index, Count: count, Items: removed}, func(cur []T) []T {
		return slices.Delete(cur, index, index+count)
	})
	return removed, err
}

func (c *Collection[T]) replace(index int, v T) error {
	c.begin()
	defer c.end()

	c.mu.RLock()
	n := len(c.items)
	if index < 0 || index >= n {
		c.mu.RUnlock()
		return &BoundsError{Op: OpReplace.String(), Index: index, Count: 1, Len: n}
	}
	old := c.items[index]
	c.mu.RUnlock()

	ch := Change[T]{Op: OpReplace, Index: index, Count: 1, Items: []T{v}, Target: old, HasTarget: true}
	return c.commit(ch, func(cur []T) []T {
		cur[index] = v
		return cur
	})
}

func (c *Collection[T]) swap(i, j int) error {
	c.begin()
	defer c.end()

	c.mu.RLock()
	n := len(c.items)
	if i < 0 || i >= n || j < 0 || j >= n {
		c.mu.RUnlock()
		bad := i
		if i >= 0 && i < n {
			bad = j
		}
		return &BoundsError{Op: OpSwap.String(), Index: bad, Count: 1, Len: n}
	}
	pair := []T{c.items[i], c.items[j]}
	c.mu.RUnlock()

	return c.commit(Change[T]{Op: OpSwap, Index: i, Index2: j, Count: 2, Items: pair}, func(cur []T) []T {
		cur[i], cur[j] = cur[j], cur[i]
		return cur
	})
}

func (c *Collection[T]) clear() error {
	c.begin()
	defer c.end()

	prev := c.ToSlice()
	ch := Change[T]{Op: OpClear, Count: len(prev), Items: prev, PreviousState: slices.Clone(prev)}
	return c.commit(ch, func(cur []T) []T {
		clear(cur)
		return cur[:0]
	})
}

func (c *Collection[T]) merge(items []T) error {
	c.begin()
	defer c.end()

	next := slices.Clone(items)
	ch := Change[T]{Op: OpMerge, Count: len(next), PreviousState: c.ToSlice()}
	return c.commit(ch, func([]T) []T {
		return next
	})
}

// insertAt inserts at index, labelling the change by where it lands.
func (c *Collection[T]) insertAt(index int, items []T) error {
	op := OpInsert
	switch {
	case index == c.Len():
		op = OpAppend
	case index == 0:
		op = OpPrepend
	}
	return c.insert(op, index, items)
}

// removeAt removes count items at index, labelling the change by where they
// were.
func (c *Collection[T]) removeAt(index, count int) error {
	n := c.Len()
	if index == 0 && count == n && n > 0 {
		return c.clear()
	}
	op := OpRemove
	switch {
	case index == 0:
		op = OpRemoveLeft
	case index+count == n:
		op = OpRemoveRight
	}
	_, err := c.remove(op, index, count)
	return err
}

// move relocates the item at from so that it ends up at to, as a remove
// followed by an insert.
func (c *Collection[T]) move(from, to int) error {
	if from == to {
		return nil
	}
	x, err := c.At(from)
	if err != nil {
		return err
	}
	err = c.removeAt(from, 1)
	return joinErrors(err, c.insertAt(to, []T{x}))
}

// recompute replaces the content of a view with items computed from
// scratch. The observer is told about the fallback; the merge change is
// only fired when the content actually differs.
func (c *Collection[T]) recompute(items []T, cause Op) error {
	if c.observer != nil {
		c.observer.ObserveRecompute(c.name, cause.String())
	}

	c.mu.RLock()
	same := slices.Equal(c.items, items)
	c.mu.RUnlock()
	if same {
		return nil
	}
	return c.merge(items)
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
