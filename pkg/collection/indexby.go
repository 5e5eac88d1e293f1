package collection

import (
	"slices"

	"github.com/vango-dev/reactive/pkg/reactive"
)

type indexView[T, K comparable] struct {
	out  *KeyedMap[K, T]
	key  func(T) K
	keys []K
	vals []T
}

// IndexBy returns a read-only map from key to the first parent item with
// that key. Each parent change re-resolves only the keys it touched. key
// must be pure.
func IndexBy[T, K comparable](parent *Collection[T], key func(T) K, scope *reactive.Scope) *KeyedMap[K, T] {
	v := &indexView[T, K]{key: key}
	v.out = newKeyedMap[K, T](config{name: parent.name + ".indexBy", observer: parent.observer}, "map")
	v.out.readOnly = true

	v.vals = parent.ToSlice()
	v.keys = make([]K, len(v.vals))
	for i, x := range v.vals {
		k := key(x)
		v.keys[i] = k
		if !v.out.Has(k) {
			_ = v.out.set(k, x)
		}
	}

	attach(parent, v, scope)
	return v.out
}

// firstAt maps each of keys to its first position in the mirror, or -1,
// in a single pass that stops once every key has been found.
func (v *indexView[T, K]) firstAt(keys []K) map[K]int {
	first := make(map[K]int, len(keys))
	for _, k := range keys {
		first[k] = -1
	}
	pending := len(first)
	for i, k := range v.keys {
		if pending == 0 {
			break
		}
		if j, ok := first[k]; ok && j < 0 {
			first[k] = i
			pending--
		}
	}
	return first
}

// resolve brings the entries for keys in line with the first occurrence of
// each key in the mirror.
func (v *indexView[T, K]) resolve(keys ...K) error {
	var err error
	first := v.firstAt(keys)
	for _, k := range keys {
		i, todo := first[k]
		if !todo {
			continue
		}
		delete(first, k)

		cur, ok := v.out.Get(k)
		switch {
		case i < 0 && ok:
			_, derr := v.out.delete(k)
			err = joinErrors(err, derr)
		case i >= 0 && (!ok || cur != v.vals[i]):
			err = joinErrors(err, v.out.set(k, v.vals[i]))
		}
	}
	return err
}

func (v *indexView[T, K]) inserted(ch Change[T]) error {
	keys := make([]K, len(ch.Items))
	for i, x := range ch.Items {
		keys[i] = v.key(x)
	}
	v.keys = slices.Insert(v.keys, ch.Index, keys...)
	v.vals = slices.Insert(v.vals, ch.Index, ch.Items...)
	return v.resolve(keys...)
}

func (v *indexView[T, K]) removed(ch Change[T]) error {
	p, c := ch.Index, ch.Count
	keys := slices.Clone(v.keys[p : p+c])
	v.keys = slices.Delete(v.keys, p, p+c)
	v.vals = slices.Delete(v.vals, p, p+c)
	return v.resolve(keys...)
}

func (v *indexView[T, K]) cleared(Change[T]) error {
	v.keys, v.vals = v.keys[:0], v.vals[:0]
	if v.out.Len() == 0 {
		return nil
	}
	return v.out.clear()
}

func (v *indexView[T, K]) replaced(ch Change[T]) error {
	p, x := ch.Index, ch.Items[0]
	kOld, kNew := v.keys[p], v.key(x)
	v.keys[p], v.vals[p] = kNew, x
	return v.resolve(kOld, kNew)
}

func (v *indexView[T, K]) swapped(ch Change[T]) error {
	p, q := ch.Index, ch.Index2
	v.keys[p], v.keys[q] = v.keys[q], v.keys[p]
	v.vals[p], v.vals[q] = v.vals[q], v.vals[p]
	return v.resolve(v.keys[p], v.keys[q])
}

func (v *indexView[T, K]) merged(ch Change[T]) error {
	known := make(map[T]K, len(ch.PreviousState))
	for i, x := range ch.PreviousState {
		known[x] = v.keys[i]
	}
	affected := slices.Clone(v.keys)

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
	v.vals = slices.Clone(ch.NewState)
	return v.resolve(append(affected, keys...)...)
}
