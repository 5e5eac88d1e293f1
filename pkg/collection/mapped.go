package collection

import "github.com/vango-dev/reactive/pkg/reactive"

type mapView[T, U comparable] struct {
	out *Collection[U]
	fn  func(T) U
}

// Map returns a view holding fn applied to every parent item. Positions
// correspond one to one, so every parent edit maps to the same edit on the
// view. fn must be pure.
func Map[T, U comparable](parent *Collection[T], fn func(T) U, scope *reactive.Scope) *Collection[U] {
	v := &mapView[T, U]{fn: fn}
	v.out = newView(parent.name, "map", parent.observer, v.project(parent.ToSlice()))
	attach(parent, v, scope)
	return v.out
}

func (v *mapView[T, U]) project(items []T) []U {
	out := make([]U, len(items))
	for i, x := range items {
		out[i] = v.fn(x)
	}
	return out
}

func (v *mapView[T, U]) inserted(ch Change[T]) error {
	return v.out.insertAt(ch.Index, v.project(ch.Items))
}

func (v *mapView[T, U]) removed(ch Change[T]) error {
	return v.out.removeAt(ch.Index, ch.Count)
}

func (v *mapView[T, U]) cleared(Change[T]) error {
	return clearView(v.out)
}

func (v *mapView[T, U]) replaced(ch Change[T]) error {
	return v.out.replace(ch.Index, v.fn(ch.Items[0]))
}

func (v *mapView[T, U]) swapped(ch Change[T]) error {
	return v.out.swap(ch.Index, ch.Index2)
}

func (v *mapView[T, U]) merged(ch Change[T]) error {
	cur := v.out.ToSlice()
	known := make(map[T]U, len(ch.PreviousState))
	for i, x := range ch.PreviousState {
		known[x] = cur[i]
	}

	next := make([]U, len(ch.NewState))
	for i, x := range ch.NewState {
		y, ok := known[x]
		if !ok {
			y = v.fn(x)
			known[x] = y
		}
		next[i] = y
	}
	return v.out.recompute(next, OpMerge)
}
