package collection

import "github.com/vango-dev/reactive/pkg/reactive"

// maintainer applies parent changes to a view. Every method computes what
// it needs from user functions before touching the view's state, so a
// panicking projection leaves the view at its last consistent content.
type maintainer[T any] interface {
	inserted(ch Change[T]) error
	removed(ch Change[T]) error
	cleared(ch Change[T]) error
	replaced(ch Change[T]) error
	swapped(ch Change[T]) error
	merged(ch Change[T]) error
}

// attach subscribes m to parent's changes under scope.
func attach[T comparable](parent *Collection[T], m maintainer[T], scope *reactive.Scope) *reactive.Handle {
	return parent.listenErr(func(ch Change[T]) error {
		switch ch.Op {
		case OpAppend, OpPrepend, OpInsert:
			return m.inserted(ch)
		case OpRemoveLeft, OpRemoveRight, OpRemove:
			return m.removed(ch)
		case OpClear:
			return m.cleared(ch)
		case OpReplace:
			return m.replaced(ch)
		case OpSwap:
			return m.swapped(ch)
		case OpMerge:
			return m.merged(ch)
		}
		return nil
	}, scope)
}

// newView creates the read-only backing collection of a view.
func newView[U comparable](parentName, kind string, observer Observer, items []U) *Collection[U] {
	v := New(items, WithName(parentName+"."+kind), WithObserver(observer))
	v.readOnly = true
	return v
}

// clearView clears a view unless it is already empty.
func clearView[T comparable](c *Collection[T]) error {
	if c.Len() == 0 {
		return nil
	}
	return c.clear()
}

func ordered(i, j int) (int, int) {
	if i > j {
		return j, i
	}
	return i, j
}

func countTrue(flags []bool) int {
	n := 0
	for _, f := range flags {
		if f {
			n++
		}
	}
	return n
}
