package reactive

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	// ErrReentrantUpdate is wrapped by the panic value raised when a cell is
	// updated from inside its own in-flight update in the same direction.
	ErrReentrantUpdate = errors.New("reactive: reentrant update")

	// ErrOperator is wrapped by every OperatorError.
	ErrOperator = errors.New("reactive: operator failed")
)

// Direction identifies the propagation direction of an update.
type Direction uint8

const (
	// Downstream is producer to consumers.
	Downstream Direction = iota
	// Upstream is consumer edit back to the producer.
	Upstream
)

// String returns a human-readable name for the direction.
func (d Direction) String() string {
	switch d {
	case Downstream:
		return "downstream"
	case Upstream:
		return "upstream"
	default:
		return "unknown"
	}
}

// ReentrancyError is the panic value for a reentrant update.
type ReentrancyError struct {
	// CellID is the ID of the cell that was re-entered.
	CellID uint64
	// Direction is the direction that was already updating.
	Direction Direction
}

// Error implements the error interface.
func (e *ReentrancyError) Error() string {
	return fmt.Sprintf("reactive: cell %d re-entered while updating %s", e.CellID, e.Direction)
}

// Unwrap returns ErrReentrantUpdate for errors.Is support.
func (e *ReentrancyError) Unwrap() error {
	return ErrReentrantUpdate
}

// OperatorError wraps a failure returned by a user-supplied projection,
// predicate or combinator.
type OperatorError struct {
	// Stage names the operator kind ("map", "filter", "async map", ...).
	Stage string
	// Direction is the direction being processed when the operator failed.
	Direction Direction
	// Err is the error returned by the operator.
	Err error
}

// Error implements the error interface.
func (e *OperatorError) Error() string {
	return fmt.Sprintf("reactive: %s %s operator: %v", e.Direction, e.Stage, e.Err)
}

// Unwrap returns both ErrOperator and the underlying cause.
func (e *OperatorError) Unwrap() []error {
	return []error{ErrOperator, e.Err}
}
