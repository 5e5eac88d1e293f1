package collection

import (
	"fmt"
	"slices"
)

// Kind is the coarse classification of a change.
type Kind uint8

const (
	KindAdd Kind = iota + 1
	KindRemove
	KindReplace
	KindSwap
	KindMerge
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindAdd:
		return "add"
	case KindRemove:
		return "remove"
	case KindReplace:
		return "replace"
	case KindSwap:
		return "swap"
	case KindMerge:
		return "merge"
	default:
		return "unknown"
	}
}

// Op is the fine-grained sub-kind of a change. Consumers dispatch on Op.
type Op uint8

const (
	OpAppend Op = iota + 1
	OpPrepend
	OpInsert
	OpRemoveLeft
	OpRemoveRight
	OpRemove
	OpClear
	OpMerge
	OpReplace
	OpSwap
)

var opNames = [...]string{
	OpAppend:      "append",
	OpPrepend:     "prepend",
	OpInsert:      "insert",
	OpRemoveLeft:  "removeLeft",
	OpRemoveRight: "removeRight",
	OpRemove:      "remove",
	OpClear:       "clear",
	OpMerge:       "merge",
	OpReplace:     "replace",
	OpSwap:        "swap",
}

// String returns a human-readable name for the op.
func (o Op) String() string {
	if int(o) < len(opNames) && opNames[o] != "" {
		return opNames[o]
	}
	return "unknown"
}

// Kind returns the coarse kind the op belongs to.
func (o Op) Kind() Kind {
	switch o {
	case OpAppend, OpPrepend, OpInsert:
		return KindAdd
	case OpRemoveLeft, OpRemoveRight, OpRemove, OpClear:
		return KindRemove
	case OpReplace:
		return KindReplace
	case OpSwap:
		return KindSwap
	case OpMerge:
		return KindMerge
	default:
		return 0
	}
}

// Change is an immutable record of one collection mutation.
//
// Field usage per op:
//
//	append, prepend, insert         Index = insert position, Items = inserted, Count = len(Items)
//	removeLeft, removeRight, remove Index = first removed position, Items = removed, Count = len(Items)
//	clear                           Index = 0, Items = removed, Count = len(Items), PreviousState set
//	replace                         Index, Items = [new], Target = old, HasTarget, Count = 1
//	swap                            Index, Index2, Items = [item at Index, item at Index2] before the swap, Count = 2
//	merge                           Count = len(NewState), PreviousState and NewState set
//
// NewState is the content right after the change and is shared by every
// listener of one fire; treat it and Items as read-only.
type Change[T any] struct {
	Kind  Kind
	Op    Op
	Index int
	// Index2 is the second position of a swap.
	Index2 int
	Count  int
	Items  []T

	NewState      []T
	PreviousState []T

	// Target is the replaced element when HasTarget is set.
	Target    T
	HasTarget bool
}

// Apply replays the change on prev, the content before the change, and
// returns the resulting content. prev is not modified. Replaying a change on
// the content it was produced from returns a slice equal to NewState.
func (c Change[T]) Apply(prev []T) ([]T, error) {
	n := len(prev)
	out := slices.Clone(prev)

	switch c.Op {
	case OpAppend, OpPrepend, OpInsert:
		if c.Index < 0 || c.Index > n {
			return nil, c.bounds(n)
		}
		return slices.Insert(out, c.Index, c.Items...), nil

	case OpRemoveLeft, OpRemoveRight, OpRemove:
		if c.Index < 0 || c.Count < 0 || c.Index+c.Count > n {
			return nil, c.bounds(n)
		}
		return slices.Delete(out, c.Index, c.Index+c.Count), nil

	case OpClear:
		return []T{}, nil

	case OpReplace:
		if c.Index < 0 || c.Index >= n || len(c.Items) != 1 {
			return nil, c.bounds(n)
		}
		out[c.Index] = c.Items[0]
		return out, nil

	case OpSwap:
		if c.Index < 0 || c.Index >= n || c.Index2 < 0 || c.Index2 >= n {
			return nil, c.bounds(n)
		}
		out[c.Index], out[c.Index2] = out[c.Index2], out[c.Index]
		return out, nil

	case OpMerge:
		return slices.Clone(c.NewState), nil

	default:
		return nil, fmt.Errorf("collection: cannot apply change with op %d", c.Op)
	}
}

func (c Change[T]) bounds(n int) error {
	return &BoundsError{Op: c.Op.String(), Index: c.Index, Count: c.Count, Len: n}
}
