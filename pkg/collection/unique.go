package collection

import (
	"slices"

	"github.com/vango-dev/reactive/pkg/reactive"
)

type uniqueView[T comparable] struct {
	out *Collection[T]
}

// Unique returns a view holding the first occurrence of every distinct
// parent item, in parent order.
//
// A parent change can only move the first occurrence of the values it
// touches; every other value keeps its place relative to the rest. The view
// therefore rewrites just the runs of touched values that differ, which is a
// handful of local edits per change.
func (c *Collection[T]) Unique(scope *reactive.Scope) *Collection[T] {
	v := &uniqueView[T]{}
	v.out = newView(c.name, "unique", c.observer, distinct(c.ToSlice()))
	attach(c, v, scope)
	return v.out
}

func distinct[T comparable](state []T) []T {
	seen := make(map[T]struct{}, len(state))
	out := make([]T, 0, len(state))
	for _, x := range state {
		if _, ok := seen[x]; ok {
			continue
		}
		seen[x] = struct{}{}
		out = append(out, x)
	}
	return out
}

// hotRun is a maximal run of touched values, at the view position where it
// starts. Run i sits after exactly i untouched values.
type hotRun[T any] struct {
	at    int
	items []T
}

func hotRuns[T comparable](list []T, hot map[T]bool) []hotRun[T] {
	runs := []hotRun[T]{{}}
	for i, x := range list {
		if hot[x] {
			r := &runs[len(runs)-1]
			r.items = append(r.items, x)
			continue
		}
		runs = append(runs, hotRun[T]{at: i + 1})
	}
	return runs
}

// settle brings the view to the distinct items of state, given that only
// the values in touched can have changed place.
func (v *uniqueView[T]) settle(state []T, cause Op, touched ...T) error {
	hot := make(map[T]bool, len(touched))
	for _, x := range touched {
		hot[x] = true
	}
	next := distinct(state)
	before := hotRuns(v.out.ToSlice(), hot)
	after := hotRuns(next, hot)
	if len(before) != len(after) {
		// Only values unequal to themselves, such as NaN, get here.
		return v.out.recompute(next, cause)
	}

	// Right to left, so the positions of earlier runs stay valid.
	var err error
	for i := len(before) - 1; i >= 0; i-- {
		was, now := before[i], after[i]
		switch {
		case slices.Equal(was.items, now.items):
		case len(was.items) == 1 && len(now.items) == 1:
			err = joinErrors(err, v.out.replace(was.at, now.items[0]))
		default:
			if len(was.items) > 0 {
				err = joinErrors(err, v.out.removeAt(was.at, len(was.items)))
			}
			if len(now.items) > 0 {
				err = joinErrors(err, v.out.insertAt(was.at, now.items))
			}
		}
	}
	return err
}

func (v *uniqueView[T]) inserted(ch Change[T]) error {
	return v.settle(ch.NewState, ch.Op, ch.Items...)
}

func (v *uniqueView[T]) removed(ch Change[T]) error {
	return v.settle(ch.NewState, ch.Op, ch.Items...)
}

func (v *uniqueView[T]) cleared(Change[T]) error {
	return clearView(v.out)
}

func (v *uniqueView[T]) replaced(ch Change[T]) error {
	x := ch.Items[0]
	if ch.HasTarget && ch.Target == x {
		return nil
	}
	return v.settle(ch.NewState, ch.Op, ch.Target, x)
}

func (v *uniqueView[T]) swapped(ch Change[T]) error {
	if ch.Items[0] == ch.Items[1] {
		return nil
	}
	return v.settle(ch.NewState, ch.Op, ch.Items...)
}

func (v *uniqueView[T]) merged(ch Change[T]) error {
	return v.out.recompute(distinct(ch.NewState), OpMerge)
}
