package collection

import "github.com/vango-dev/reactive/pkg/reactive"

// Union returns a live set holding the members of s or other.
func (s *KeyedSet[T]) Union(other *KeyedSet[T], scope *reactive.Scope) *KeyedSet[T] {
	return algebra(s, other, "union", func(a, b bool) bool { return a || b }, scope)
}

// Intersection returns a live set holding the members of both s and other.
func (s *KeyedSet[T]) Intersection(other *KeyedSet[T], scope *reactive.Scope) *KeyedSet[T] {
	return algebra(s, other, "intersection", func(a, b bool) bool { return a && b }, scope)
}

// Difference returns a live set holding the members of s that are not in
// other.
func (s *KeyedSet[T]) Difference(other *KeyedSet[T], scope *reactive.Scope) *KeyedSet[T] {
	return algebra(s, other, "difference", func(a, b bool) bool { return a && !b }, scope)
}

// SymmetricDifference returns a live set holding the members of exactly one
// of s and other.
func (s *KeyedSet[T]) SymmetricDifference(other *KeyedSet[T], scope *reactive.Scope) *KeyedSet[T] {
	return algebra(s, other, "symmetricDifference", func(a, b bool) bool { return a != b }, scope)
}

// algebra builds a read-only set whose membership of x is member(a.Has(x),
// b.Has(x)). Only the initial fill scans the inputs; afterwards each input
// change re-evaluates the one key it names.
func algebra[T comparable](a, b *KeyedSet[T], kind string, member func(inA, inB bool) bool, scope *reactive.Scope) *KeyedSet[T] {
	cfg := config{
		name:     a.Name() + "." + kind + "(" + b.Name() + ")",
		observer: a.m.observer,
	}
	res := &KeyedSet[T]{m: newKeyedMap[T, struct{}](cfg, "set")}
	res.m.readOnly = true

	for x := range a.All() {
		if member(true, b.Has(x)) {
			_, _ = res.add(x)
		}
	}
	for x := range b.All() {
		if !a.Has(x) && member(false, true) {
			_, _ = res.add(x)
		}
	}

	sync := func(x T) error {
		want := member(a.Has(x), b.Has(x))
		has := res.Has(x)
		switch {
		case want && !has:
			_, err := res.add(x)
			return err
		case !want && has:
			_, err := res.m.delete(x)
			return err
		}
		return nil
	}

	watch := func(ch MapChange[T, struct{}]) error {
		if ch.Op != MapClear {
			return sync(ch.Key)
		}
		var err error
		for _, x := range ch.Cleared {
			err = joinErrors(err, sync(x))
		}
		return err
	}

	a.m.listenErr(watch, scope)
	b.m.listenErr(watch, scope)
	return res
}
