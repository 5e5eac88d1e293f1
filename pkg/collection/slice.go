package collection

import (
	"fmt"

	"github.com/vango-dev/reactive/pkg/reactive"
)

type sliceView[T comparable] struct {
	out        *Collection[T]
	start, end int
	// n is the parent length as of the last applied change.
	n int
}

// Slice returns a view of the parent positions [start, end). A negative end
// means the window is unbounded on the right. Inserts and removals are
// translated into at most one removal and one insertion on the view.
//
// Slice panics if start is negative or end is non-negative and below start.
func (c *Collection[T]) Slice(start, end int, scope *reactive.Scope) *Collection[T] {
	if start < 0 || (end >= 0 && end < start) {
		panic(fmt.Sprintf("collection: invalid slice window [%d,%d)", start, end))
	}

	items := c.ToSlice()
	v := &sliceView[T]{start: start, end: end, n: len(items)}
	v.out = newView(c.name, fmt.Sprintf("slice[%d:%d]", start, end), c.observer, v.window(items))
	attach(c, v, scope)
	return v.out
}

// bound is the exclusive right edge of the window for a parent of length n.
func (v *sliceView[T]) bound(n int) int {
	if v.end >= 0 && v.end < n {
		return v.end
	}
	return n
}

func (v *sliceView[T]) width(n int) int {
	return max(0, v.bound(n)-v.start)
}

func (v *sliceView[T]) window(state []T) []T {
	w := v.width(len(state))
	if w == 0 {
		return nil
	}
	return state[v.start : v.start+w]
}

func (v *sliceView[T]) inserted(ch Change[T]) error {
	p, k := ch.Index, len(ch.Items)
	oldW := v.width(v.n)
	v.n += k
	newW := v.width(v.n)

	if p >= v.start {
		if v.end >= 0 && p >= v.end {
			return nil
		}
		fit := min(p+k, v.bound(v.n)) - p
		if fit <= 0 {
			return nil
		}
		err := v.out.insertAt(p-v.start, ch.Items[:fit])
		if over := oldW + fit - newW; over > 0 {
			err = joinErrors(err, v.out.removeAt(newW, over))
		}
		return err
	}

	// Everything in the window shifts right by k: the tail falls off and
	// items from before the window enter on the left.
	m := min(k, newW)
	var err error
	if drop := oldW - (newW - m); drop > 0 {
		err = v.out.removeAt(newW-m, drop)
	}
	if m > 0 {
		err = joinErrors(err, v.out.insertAt(0, ch.NewState[v.start:v.start+m]))
	}
	return err
}

func (v *sliceView[T]) removed(ch Change[T]) error {
	p, c := ch.Index, ch.Count
	oldW := v.width(v.n)
	v.n -= c
	newW := v.width(v.n)

	var err error
	var kept int
	if p >= v.start {
		if p >= v.start+oldW {
			return nil
		}
		r := min(p+c, v.start+oldW) - p
		err = v.out.removeAt(p-v.start, r)
		kept = oldW - r
	} else {
		// Everything in the window shifts left by c.
		d := min(c, oldW)
		if d > 0 {
			err = v.out.removeAt(0, d)
		}
		kept = oldW - d
	}

	if fill := newW - kept; fill > 0 {
		err = joinErrors(err, v.out.insertAt(kept, ch.NewState[v.start+kept:v.start+newW]))
	}
	return err
}

func (v *sliceView[T]) cleared(Change[T]) error {
	v.n = 0
	return clearView(v.out)
}

func (v *sliceView[T]) inWindow(p int) bool {
	return p >= v.start && p < v.start+v.width(v.n)
}

func (v *sliceView[T]) replaced(ch Change[T]) error {
	if !v.inWindow(ch.Index) {
		return nil
	}
	return v.out.replace(ch.Index-v.start, ch.Items[0])
}

func (v *sliceView[T]) swapped(ch Change[T]) error {
	p, q := ch.Index, ch.Index2
	inP, inQ := v.inWindow(p), v.inWindow(q)
	switch {
	case inP && inQ:
		return v.out.swap(p-v.start, q-v.start)
	case inP:
		return v.out.replace(p-v.start, ch.NewState[p])
	case inQ:
		return v.out.replace(q-v.start, ch.NewState[q])
	}
	return nil
}

func (v *sliceView[T]) merged(ch Change[T]) error {
	v.n = len(ch.NewState)
	return v.out.recompute(v.window(ch.NewState), OpMerge)
}
