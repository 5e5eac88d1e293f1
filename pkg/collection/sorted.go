package collection

import (
	"cmp"
	"slices"
	"sort"

	"github.com/vango-dev/reactive/pkg/reactive"
)

type sortView[T comparable] struct {
	out *Collection[T]
	cmp func(a, b T) int
	// src[j] is the parent position of view item j.
	src []int
}

// Sort returns a view of the parent items ordered by cmp. Items that
// compare equal keep their parent order, so the view always equals a stable
// sort of the parent. cmp must be a pure, consistent ordering.
//
// Inserts, removals and replacements cost O(log n) comparisons plus the
// slice moves. A parent swap of two equal items swaps them in the view; a
// swap of unequal items leaves the view untouched unless it reorders an item
// among its equals, in which case both items are moved.
func (c *Collection[T]) Sort(cmp func(a, b T) int, scope *reactive.Scope) *Collection[T] {
	v := &sortView[T]{cmp: cmp}
	items, src := v.sortAll(c.ToSlice())
	v.src = src
	v.out = newView(c.name, "sort", c.observer, items)
	attach(c, v, scope)
	return v.out
}

// Sorted is Sort with the natural order of T.
func Sorted[T interface {
	comparable
	cmp.Ordered
}](parent *Collection[T], scope *reactive.Scope) *Collection[T] {
	return parent.Sort(cmp.Compare[T], scope)
}

func (v *sortView[T]) sortAll(state []T) ([]T, []int) {
	src := make([]int, len(state))
	for i := range src {
		src[i] = i
	}
	slices.SortStableFunc(src, func(a, b int) int {
		return v.cmp(state[a], state[b])
	})
	items := make([]T, len(state))
	for j, p := range src {
		items[j] = state[p]
	}
	return items, src
}

// compare orders (x at parent position px) against (y at py).
func (v *sortView[T]) compare(x T, px int, y T, py int) int {
	if c := v.cmp(x, y); c != 0 {
		return c
	}
	return cmp.Compare(px, py)
}

// search returns the view position where (x, p) belongs among items, whose
// parent positions are src, skipping view position skip when it is
// non-negative.
func (v *sortView[T]) search(items []T, src []int, x T, p, skip int) int {
	n := len(items)
	if skip >= 0 {
		n--
	}
	return sort.Search(n, func(k int) bool {
		if skip >= 0 && k >= skip {
			k++
		}
		return v.compare(items[k], src[k], x, p) > 0
	})
}

// viewPos returns the view position of parent position p.
func (v *sortView[T]) viewPos(p int) int {
	return slices.Index(v.src, p)
}

type placement[T any] struct {
	item T
	src  int
	at   int
}

func (v *sortView[T]) inserted(ch Change[T]) error {
	p, k := ch.Index, len(ch.Items)

	// Work out every landing position before touching anything, so a
	// panicking comparator leaves the view intact.
	src := slices.Clone(v.src)
	for j := range src {
		if src[j] >= p {
			src[j] += k
		}
	}
	items := v.out.ToSlice()
	batch := make([]placement[T], k)
	for i, x := range ch.Items {
		batch[i] = placement[T]{item: x, src: p + i}
	}
	slices.SortStableFunc(batch, func(a, b placement[T]) int {
		return v.cmp(a.item, b.item)
	})
	for i := range batch {
		batch[i].at = v.search(items, src, batch[i].item, batch[i].src, -1)
	}
	v.src = src

	var err error
	for i := 0; i < len(batch); {
		// Items landing in the same gap go in as one insertion.
		j := i + 1
		for j < len(batch) && batch[j].at == batch[i].at {
			j++
		}
		run := make([]T, 0, j-i)
		srcs := make([]int, 0, j-i)
		for _, b := range batch[i:j] {
			run = append(run, b.item)
			srcs = append(srcs, b.src)
		}
		at := batch[i].at + i
		v.src = slices.Insert(v.src, at, srcs...)
		err = joinErrors(err, v.out.insertAt(at, run))
		i = j
	}
	return err
}

func (v *sortView[T]) removed(ch Change[T]) error {
	p, c := ch.Index, ch.Count

	var at []int
	for j, s := range v.src {
		if s >= p && s < p+c {
			at = append(at, j)
		}
	}

	var err error
	// Remove runs of adjacent view positions from the right.
	for hi := len(at) - 1; hi >= 0; {
		lo := hi
		for lo > 0 && at[lo-1] == at[lo]-1 {
			lo--
		}
		v.src = slices.Delete(v.src, at[lo], at[hi]+1)
		err = joinErrors(err, v.out.removeAt(at[lo], hi-lo+1))
		hi = lo - 1
	}

	for j := range v.src {
		if v.src[j] >= p+c {
			v.src[j] -= c
		}
	}
	return err
}

func (v *sortView[T]) cleared(Change[T]) error {
	v.src = v.src[:0]
	return clearView(v.out)
}

func (v *sortView[T]) replaced(ch Change[T]) error {
	p, x := ch.Index, ch.Items[0]
	j := v.viewPos(p)
	items := v.out.ToSlice()
	at := v.search(items, v.src, x, p, j)
	if at == j {
		return v.out.replace(j, x)
	}

	v.src = slices.Delete(v.src, j, j+1)
	err := v.out.removeAt(j, 1)
	v.src = slices.Insert(v.src, at, p)
	return joinErrors(err, v.out.insertAt(at, []T{x}))
}

func (v *sortView[T]) swapped(ch Change[T]) error {
	p, q := ch.Index, ch.Index2
	if p == q {
		return nil
	}
	jp, jq := v.viewPos(p), v.viewPos(q)
	items := v.out.ToSlice()

	if v.cmp(items[jp], items[jq]) == 0 {
		// Equal items trade places; the parent positions stay in order.
		return v.out.swap(jp, jq)
	}

	src := slices.Clone(v.src)
	src[jp], src[jq] = q, p
	if v.inOrder(items, src, jp) && v.inOrder(items, src, jq) {
		v.src = src
		return nil
	}

	// One of them moved among its equals. Take both out and put each back
	// where it now belongs; landing spots are found before the view moves.
	lo, hi := ordered(jp, jq)
	rest := slices.Delete(slices.Delete(slices.Clone(items), hi, hi+1), lo, lo+1)
	restSrc := slices.Delete(slices.Delete(src, hi, hi+1), lo, lo+1)
	moves := []placement[T]{{item: items[jp], src: q}, {item: items[jq], src: p}}
	for i := range moves {
		m := &moves[i]
		m.at = v.search(rest, restSrc, m.item, m.src, -1)
		rest = slices.Insert(rest, m.at, m.item)
		restSrc = slices.Insert(restSrc, m.at, m.src)
	}

	v.src = restSrc
	err := v.out.removeAt(hi, 1)
	err = joinErrors(err, v.out.removeAt(lo, 1))
	for _, m := range moves {
		err = joinErrors(err, v.out.insertAt(m.at, []T{m.item}))
	}
	return err
}

// inOrder reports whether view position j is ordered against its
// neighbours.
func (v *sortView[T]) inOrder(items []T, src []int, j int) bool {
	if j > 0 && v.compare(items[j-1], src[j-1], items[j], src[j]) > 0 {
		return false
	}
	if j+1 < len(items) && v.compare(items[j], src[j], items[j+1], src[j+1]) > 0 {
		return false
	}
	return true
}

func (v *sortView[T]) merged(ch Change[T]) error {
	next, src := v.sortAll(ch.NewState)
	v.src = src
	return v.out.recompute(next, OpMerge)
}
