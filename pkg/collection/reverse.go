package collection

import (
	"slices"

	"github.com/vango-dev/reactive/pkg/reactive"
)

type reverseView[T comparable] struct {
	out *Collection[T]
}

// Reverse returns a view holding the parent's items in reverse order.
func (c *Collection[T]) Reverse(scope *reactive.Scope) *Collection[T] {
	v := &reverseView[T]{out: newView(c.name, "reverse", c.observer, reversed(c.ToSlice()))}
	attach(c, v, scope)
	return v.out
}

func reversed[T any](items []T) []T {
	out := slices.Clone(items)
	slices.Reverse(out)
	return out
}

// mirror maps parent position p to a view position; n is the view length.
func mirror(n, p int) int {
	return n - 1 - p
}

func (v *reverseView[T]) inserted(ch Change[T]) error {
	return v.out.insertAt(v.out.Len()-ch.Index, reversed(ch.Items))
}

func (v *reverseView[T]) removed(ch Change[T]) error {
	return v.out.removeAt(v.out.Len()-ch.Index-ch.Count, ch.Count)
}

func (v *reverseView[T]) cleared(Change[T]) error {
	return clearView(v.out)
}

func (v *reverseView[T]) replaced(ch Change[T]) error {
	return v.out.replace(mirror(v.out.Len(), ch.Index), ch.Items[0])
}

func (v *reverseView[T]) swapped(ch Change[T]) error {
	n := v.out.Len()
	return v.out.swap(mirror(n, ch.Index), mirror(n, ch.Index2))
}

func (v *reverseView[T]) merged(ch Change[T]) error {
	return v.out.recompute(reversed(ch.NewState), OpMerge)
}
