package collection

import (
	"slices"

	"github.com/vango-dev/reactive/pkg/reactive"
)

type filterView[T comparable] struct {
	out  *Collection[T]
	keep func(T) bool
	// kept[i] records whether parent item i passed keep.
	kept []bool
}

// Filter returns a view of the items for which keep returns true, in parent
// order. keep must be pure.
func (c *Collection[T]) Filter(keep func(T) bool, scope *reactive.Scope) *Collection[T] {
	items := c.ToSlice()
	v := &filterView[T]{keep: keep, kept: make([]bool, len(items))}

	var sel []T
	for i, x := range items {
		if keep(x) {
			v.kept[i] = true
			sel = append(sel, x)
		}
	}

	v.out = newView(c.name, "filter", c.observer, sel)
	attach(c, v, scope)
	return v.out
}

// rank is the view position of parent position p.
func (v *filterView[T]) rank(p int) int {
	return countTrue(v.kept[:p])
}

func (v *filterView[T]) inserted(ch Change[T]) error {
	flags := make([]bool, len(ch.Items))
	var sel []T
	for i, x := range ch.Items {
		if v.keep(x) {
			flags[i] = true
			sel = append(sel, x)
		}
	}

	at := v.rank(ch.Index)
	v.kept = slices.Insert(v.kept, ch.Index, flags...)
	if len(sel) == 0 {
		return nil
	}
	return v.out.insertAt(at, sel)
}

func (v *filterView[T]) removed(ch Change[T]) error {
	at := v.rank(ch.Index)
	n := countTrue(v.kept[ch.Index : ch.Index+ch.Count])
	v.kept = slices.Delete(v.kept, ch.Index, ch.Index+ch.Count)
	if n == 0 {
		return nil
	}
	return v.out.removeAt(at, n)
}

func (v *filterView[T]) cleared(Change[T]) error {
	v.kept = v.kept[:0]
	return clearView(v.out)
}

func (v *filterView[T]) replaced(ch Change[T]) error {
	p, x := ch.Index, ch.Items[0]
	now := v.keep(x)
	was := v.kept[p]
	at := v.rank(p)
	v.kept[p] = now

	switch {
	case was && now:
		return v.out.replace(at, x)
	case was:
		return v.out.removeAt(at, 1)
	case now:
		return v.out.insertAt(at, []T{x})
	}
	return nil
}

func (v *filterView[T]) swapped(ch Change[T]) error {
	p, q := ordered(ch.Index, ch.Index2)
	kp, kq := v.kept[p], v.kept[q]

	switch {
	case p == q || (!kp && !kq):
		return nil
	case kp && kq:
		return v.out.swap(v.rank(p), v.rank(q))
	}

	// One kept item moved past the others between p and q.
	r := v.rank(p)
	between := countTrue(v.kept[p+1 : q])
	v.kept[p], v.kept[q] = kq, kp
	if between == 0 {
		return nil
	}

	from, to := r, r+between
	if kq {
		from, to = to, from
	}
	return v.out.move(from, to)
}

func (v *filterView[T]) merged(ch Change[T]) error {
	known := make(map[T]bool, len(ch.PreviousState))
	for i, x := range ch.PreviousState {
		known[x] = v.kept[i]
	}

	kept := make([]bool, len(ch.NewState))
	var sel []T
	for i, x := range ch.NewState {
		k, ok := known[x]
		if !ok {
			k = v.keep(x)
			known[x] = k
		}
		if k {
			kept[i] = true
			sel = append(sel, x)
		}
	}

	v.kept = kept
	return v.out.recompute(sel, OpMerge)
}
