package collection

import (
	"slices"

	"github.com/vango-dev/reactive/pkg/reactive"
)

type flattenView[T, U comparable] struct {
	out    *Collection[U]
	expand func(T) []U
	// parts[i] is the expansion of parent item i.
	parts [][]U
}

// Flatten returns a view holding the concatenated expansions of the parent
// items, in parent order. expand must be pure; the slices it returns are
// copied.
func Flatten[T, U comparable](parent *Collection[T], expand func(T) []U, scope *reactive.Scope) *Collection[U] {
	v := &flattenView[T, U]{expand: expand}
	items := parent.ToSlice()
	v.parts = v.expandAll(items)
	v.out = newView(parent.name, "flatten", parent.observer, concat(v.parts))
	attach(parent, v, scope)
	return v.out
}

func (v *flattenView[T, U]) expandAll(items []T) [][]U {
	parts := make([][]U, len(items))
	for i, x := range items {
		parts[i] = slices.Clone(v.expand(x))
	}
	return parts
}

func concat[U any](parts [][]U) []U {
	return slices.Concat(parts...)
}

// offset is the view position where the expansion of parent item p starts.
func (v *flattenView[T, U]) offset(p int) int {
	n := 0
	for _, part := range v.parts[:p] {
		n += len(part)
	}
	return n
}

func (v *flattenView[T, U]) inserted(ch Change[T]) error {
	parts := v.expandAll(ch.Items)
	at := v.offset(ch.Index)
	v.parts = slices.Insert(v.parts, ch.Index, parts...)
	return v.out.insertAt(at, concat(parts))
}

func (v *flattenView[T, U]) removed(ch Change[T]) error {
	at := v.offset(ch.Index)
	n := 0
	for _, part := range v.parts[ch.Index : ch.Index+ch.Count] {
		n += len(part)
	}
	v.parts = slices.Delete(v.parts, ch.Index, ch.Index+ch.Count)
	if n == 0 {
		return nil
	}
	return v.out.removeAt(at, n)
}

func (v *flattenView[T, U]) cleared(Change[T]) error {
	v.parts = nil
	return clearView(v.out)
}

func (v *flattenView[T, U]) replaced(ch Change[T]) error {
	p := ch.Index
	part := slices.Clone(v.expand(ch.Items[0]))
	at := v.offset(p)
	old := v.parts[p]
	v.parts[p] = part

	if len(old) == 1 && len(part) == 1 {
		if old[0] == part[0] {
			return nil
		}
		return v.out.replace(at, part[0])
	}

	return v.splice(at, len(old), part)
}

// splice replaces the n view items at at with part.
func (v *flattenView[T, U]) splice(at, n int, part []U) error {
	var err error
	if n > 0 {
		err = v.out.removeAt(at, n)
	}
	if len(part) > 0 {
		err = joinErrors(err, v.out.insertAt(at, part))
	}
	return err
}

func (v *flattenView[T, U]) swapped(ch Change[T]) error {
	p, q := ordered(ch.Index, ch.Index2)
	a, b := v.parts[p], v.parts[q]
	if p == q || slices.Equal(a, b) {
		return nil
	}

	atP, atQ := v.offset(p), v.offset(q)
	v.parts[p], v.parts[q] = b, a
	if len(a) == 1 && len(b) == 1 {
		return v.out.swap(atP, atQ)
	}
	// The later range goes first so atP stays valid.
	err := v.splice(atQ, len(b), a)
	return joinErrors(err, v.splice(atP, len(a), b))
}

func (v *flattenView[T, U]) merged(ch Change[T]) error {
	known := make(map[T][]U, len(ch.PreviousState))
	for i, x := range ch.PreviousState {
		known[x] = v.parts[i]
	}

	parts := make([][]U, len(ch.NewState))
	for i, x := range ch.NewState {
		part, ok := known[x]
		if !ok {
			part = slices.Clone(v.expand(x))
			known[x] = part
		}
		parts[i] = part
	}

	v.parts = parts
	return v.out.recompute(concat(parts), OpMerge)
}
