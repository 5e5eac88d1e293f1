package collection

import (
	"fmt"
	"slices"

	"github.com/vango-dev/reactive/pkg/reactive"
)

type groupView[T, K comparable] struct {
	out      *KeyedMap[K, *Collection[T]]
	key      func(T) K
	keys     []K
	name     string
	observer Observer
}

// GroupBy returns a read-only map from key to a view of the parent items
// with that key, in parent order. A group disappears from the map when its
// last item leaves; the group collection is cleared first. key must be pure.
func GroupBy[T, K comparable](parent *Collection[T], key func(T) K, scope *reactive.Scope) *KeyedMap[K, *Collection[T]] {
	v := &groupView[T, K]{
		key:      key,
		name:     parent.name + ".groupBy",
		observer: parent.observer,
	}
	v.out = newKeyedMap[K, *Collection[T]](config{name: v.name, observer: v.observer}, "map")
	v.out.readOnly = true

	items := parent.ToSlice()
	v.keys = make([]K, len(items))
	for i, x := range items {
		v.keys[i] = key(x)
	}
	for _, b := range v.buckets(v.keys, items) {
		_ = v.out.set(b.key, v.newGroup(b.key, b.items))
	}

	attach(parent, v, scope)
	return v.out
}

type bucket[T, K comparable] struct {
	key   K
	items []T
	at    int
}

// buckets splits items by key in order of first appearance.
func (v *groupView[T, K]) buckets(keys []K, items []T) []*bucket[T, K] {
	var order []*bucket[T, K]
	byKey := make(map[K]*bucket[T, K])
	for i, k := range keys {
		b, ok := byKey[k]
		if !ok {
			b = &bucket[T, K]{key: k}
			byKey[k] = b
			order = append(order, b)
		}
		b.items = append(b.items, items[i])
	}
	return order
}

func (v *groupView[T, K]) newGroup(k K, items []T) *Collection[T] {
	return newView(v.name, fmt.Sprint(k), v.observer, items)
}

func (v *groupView[T, K]) group(k K) *Collection[T] {
	g, _ := v.out.Get(k)
	return g
}

// rank is the position inside group k of an item at parent position p.
func (v *groupView[T, K]) rank(p int, k K) int {
	n := 0
	for _, kk := range v.keys[:p] {
		if kk == k {
			n++
		}
	}
	return n
}

func (v *groupView[T, K]) addTo(k K, at int, items []T) error {
	if g := v.group(k); g != nil {
		return g.insertAt(at, items)
	}
	return v.out.set(k, v.newGroup(k, items))
}

func (v *groupView[T, K]) removeFrom(k K, at, n int) error {
	g := v.group(k)
	err := g.removeAt(at, n)
	if g.Len() == 0 {
		_, derr := v.out.delete(k)
		err = joinErrors(err, derr)
	}
	return err
}

func (v *groupView[T, K]) inserted(ch Change[T]) error {
	keys := make([]K, len(ch.Items))
	for i, x := range ch.Items {
		keys[i] = v.key(x)
	}
	batches := v.buckets(keys, ch.Items)
	for _, b := range batches {
		b.at = v.rank(ch.Index, b.key)
	}
	v.keys = slices.Insert(v.keys, ch.Index, keys...)

	var err error
	for _, b := range batches {
		err = joinErrors(err, v.addTo(b.key, b.at, b.items))
	}
	return err
}

func (v *groupView[T, K]) removed(ch Change[T]) error {
	p, c := ch.Index, ch.Count
	batches := v.buckets(v.keys[p:p+c], ch.Items)
	for _, b := range batches {
		b.at = v.rank(p, b.key)
	}
	v.keys = slices.Delete(v.keys, p, p+c)

	var err error
	for _, b := range batches {
		err = joinErrors(err, v.removeFrom(b.key, b.at, len(b.items)))
	}
	return err
}

func (v *groupView[T, K]) cleared(Change[T]) error {
	v.keys = v.keys[:0]
	var err error
	for _, g := range v.out.Values() {
		err = joinErrors(err, clearView(g))
	}
	if v.out.Len() > 0 {
		err = joinErrors(err, v.out.clear())
	}
	return err
}

func (v *groupView[T, K]) replaced(ch Change[T]) error {
	p, x := ch.Index, ch.Items[0]
	kOld, kNew := v.keys[p], v.key(x)
	if kOld == kNew {
		return v.group(kOld).replace(v.rank(p, kOld), x)
	}

	rOld, rNew := v.rank(p, kOld), v.rank(p, kNew)
	v.keys[p] = kNew
	err := v.removeFrom(kOld, rOld, 1)
	return joinErrors(err, v.addTo(kNew, rNew, []T{x}))
}

func (v *groupView[T, K]) swapped(ch Change[T]) error {
	p, q := ordered(ch.Index, ch.Index2)
	ka, kb := v.keys[p], v.keys[q]
	if p == q {
		return nil
	}
	if ka == kb {
		return v.group(ka).swap(v.rank(p, ka), v.rank(q, ka))
	}

	// Each item only changes rank inside its group by the members of that
	// group it jumps over.
	var overA, overB int
	for _, k := range v.keys[p+1 : q] {
		switch k {
		case ka:
			overA++
		case kb:
			overB++
		}
	}
	ra, rb := v.rank(p, ka), v.rank(q, kb)
	v.keys[p], v.keys[q] = kb, ka

	err := v.group(ka).move(ra, ra+overA)
	return joinErrors(err, v.group(kb).move(rb, rb-overB))
}

func (v *groupView[T, K]) merged(ch Change[T]) error {
	known := make(map[T]K, len(ch.PreviousState))
	for i, x := range ch.PreviousState {
		known[x] = v.keys[i]
	}
	keys := make([]K, len(ch.NewState))
	for i, x := range ch.NewState {
		k, ok := known[x]
		if !ok {
			k = v.key(x)
			known[x] = k
		}
		keys[i] = k
	}
	v.keys = keys

	next := make(map[K][]T)
	batches := v.buckets(keys, ch.NewState)
	for _, b := range batches {
		next[b.key] = b.items
	}

	var err error
	for _, k := range v.out.Keys() {
		items, ok := next[k]
		g := v.group(k)
		if !ok {
			err = joinErrors(err, clearView(g))
			_, derr := v.out.delete(k)
			err = joinErrors(err, derr)
			continue
		}
		err = joinErrors(err, g.recompute(items, OpMerge))
	}
	for _, b := range batches {
		if !v.out.Has(b.key) {
			err = joinErrors(err, v.out.set(b.key, v.newGroup(b.key, b.items)))
		}
	}
	return err
}
