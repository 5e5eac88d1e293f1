// Package reactive provides the single-value half of the reactive engine:
// event channels, cancellation scopes, cells and the operator pipeline that
// derives cells from other cells.
//
// # Cells
//
// Cell[T] holds one value and notifies its downstream listeners synchronously
// on every update:
//
//	count := reactive.NewCell(0)
//	count.Listen(func(n int) { fmt.Println("count:", n) }, scope)
//	_ = count.Update(1) // prints "count: 1" before returning
//
// Duplex[T] adds an upstream direction for two-way bound values. An editor
// writes with UpdateUpstream; passive observers listen downstream and only
// see upstream edits when fan-out is enabled.
//
// # Pipelines
//
// Transform derives a cell by pushing every parent update through a chain of
// typed stages:
//
//	label, err := reactive.Transform(count,
//	    reactive.Then(
//	        reactive.Filter(func(n int) bool { return n >= 0 }),
//	        reactive.Map(strconv.Itoa),
//	    ),
//	    scope,
//	)
//
// A rejecting filter drops the update. Operator faults go to the derived
// cell's error handler for that direction, or are returned from the Update
// call that triggered them.
//
// # Scopes
//
// Every subscription is registered under a Scope. Cancelling the scope is the
// only way to stop a derived pipeline; nothing is reclaimed implicitly.
//
// # Concurrency
//
// Delivery is synchronous on the updating goroutine. Asynchronous stages
// resume on their own goroutine and may complete out of order. Updating a
// cell from inside its own listener in the same direction panics with a
// *ReentrancyError.
package reactive
