package collection

import (
	"fmt"
	"iter"

	"github.com/vango-dev/reactive/pkg/reactive"
)

// SetChange records one set mutation. A clear carries the removed members
// in Cleared.
type SetChange[T comparable] struct {
	Op      MapOp
	Value   T
	Cleared []T
}

// KeyedSet is an insertion-ordered observable set. It shares its machinery
// with KeyedMap: every member is a key with no value.
type KeyedSet[T comparable] struct {
	m *KeyedMap[T, struct{}]
}

// NewKeyedSet creates a set holding items. Duplicates are dropped.
func NewKeyedSet[T comparable](items []T, opts ...Option) *KeyedSet[T] {
	s := &KeyedSet[T]{m: newKeyedMap[T, struct{}](buildConfig(opts), "set")}
	for _, x := range items {
		// Fresh map: nothing listens yet and nothing can fail.
		_, _ = s.add(x)
	}
	return s
}

// Name returns the set's name.
func (s *KeyedSet[T]) Name() string {
	return s.m.name
}

// ReadOnly reports whether the set is a live set-algebra result.
func (s *KeyedSet[T]) ReadOnly() bool {
	return s.m.readOnly
}

// Has reports whether x is a member.
func (s *KeyedSet[T]) Has(x T) bool {
	return s.m.Has(x)
}

// Len returns the number of members.
func (s *KeyedSet[T]) Len() int {
	return s.m.Len()
}

// ToSlice returns the members in insertion order.
func (s *KeyedSet[T]) ToSlice() []T {
	return s.m.Keys()
}

// All iterates over a snapshot of the members in insertion order.
func (s *KeyedSet[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for x := range s.m.All() {
			if !yield(x) {
				return
			}
		}
	}
}

// Size returns the cell tracking the number of members.
func (s *KeyedSet[T]) Size() *reactive.Cell[int] {
	return s.m.size
}

// Add inserts x and reports whether it was new. Adding a member that is
// already present fires nothing.
func (s *KeyedSet[T]) Add(x T) (bool, error) {
	if err := s.m.writable(); err != nil {
		return false, err
	}
	return s.add(x)
}

func (s *KeyedSet[T]) add(x T) (bool, error) {
	if s.m.Has(x) {
		return false, nil
	}
	return true, s.m.set(x, struct{}{})
}

// Delete removes x and reports whether it was present.
func (s *KeyedSet[T]) Delete(x T) (bool, error) {
	if err := s.m.writable(); err != nil {
		return false, err
	}
	return s.m.delete(x)
}

// Clear removes every member.
func (s *KeyedSet[T]) Clear() error {
	if err := s.m.writable(); err != nil {
		return err
	}
	return s.m.clear()
}

func toSetChange[T comparable](ch MapChange[T, struct{}]) SetChange[T] {
	return SetChange[T]{Op: ch.Op, Value: ch.Key, Cleared: ch.Cleared}
}

// Listen registers fn for every future change of the set. Additions are
// reported with Op MapSet.
func (s *KeyedSet[T]) Listen(fn func(SetChange[T]), scope *reactive.Scope) *reactive.Handle {
	return s.m.Listen(func(ch MapChange[T, struct{}]) { fn(toSetChange(ch)) }, scope)
}

// ListenKey registers fn for future changes of member x only.
func (s *KeyedSet[T]) ListenKey(x T, fn func(SetChange[T]), scope *reactive.Scope) *reactive.Handle {
	return s.m.ListenKey(x, func(ch MapChange[T, struct{}]) { fn(toSetChange(ch)) }, scope)
}

// String implements fmt.Stringer.
func (s *KeyedSet[T]) String() string {
	return fmt.Sprintf("%s%v", s.m.name, s.m.Keys())
}
