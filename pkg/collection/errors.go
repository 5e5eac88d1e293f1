package collection

import (
	"errors"
	"fmt"

	"github.com/vango-dev/reactive/pkg/reactive"
)

// Sentinel errors.
var (
	// ErrOutOfRange is wrapped by every BoundsError.
	ErrOutOfRange = errors.New("collection: index out of range")

	// ErrReadOnly is returned when a view or a set-algebra result is mutated
	// directly.
	ErrReadOnly = errors.New("collection: read-only view")

	// ErrNotFound is returned when an item addressed by identity is absent.
	ErrNotFound = errors.New("collection: item not found")
)

// BoundsError reports an operation that addressed positions outside the
// current content.
type BoundsError struct {
	// Op is the operation that failed.
	Op string
	// Index is the first addressed position.
	Index int
	// Count is the number of addressed positions.
	Count int
	// Len is the length of the collection at the time of the call.
	Len int
}

// Error implements the error interface.
func (e *BoundsError) Error() string {
	if e.Count <= 1 {
		return fmt.Sprintf("collection: %s index %d out of range [0,%d)", e.Op, e.Index, e.Len)
	}
	return fmt.Sprintf("collection: %s range [%d,%d) out of range [0,%d)", e.Op, e.Index, e.Index+e.Count, e.Len)
}

// Unwrap returns ErrOutOfRange for errors.Is support.
func (e *BoundsError) Unwrap() error {
	return ErrOutOfRange
}

// ReentrancyError is the panic value raised when a collection is mutated
// from inside the delivery of one of its own changes.
type ReentrancyError struct {
	// Collection is the name of the re-entered collection.
	Collection string
	// ID is its unique identifier.
	ID uint64
}

// Error implements the error interface.
func (e *ReentrancyError) Error() string {
	return fmt.Sprintf("collection: %q (%d) mutated while delivering its own change", e.Collection, e.ID)
}

// Unwrap returns reactive.ErrReentrantUpdate for errors.Is support.
func (e *ReentrancyError) Unwrap() error {
	return reactive.ErrReentrantUpdate
}
