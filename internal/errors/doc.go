// Package errors provides structured, actionable error messages for
// reactivectl.
//
// Every error carries a code (e.g. "R201") registered with a category, a
// short message and a longer explanation. Errors raised while reading a
// script point at the offending line and show it in context:
//
//	err := errors.New("R202").
//	    WithLocation("demo.yaml", 12, 11).
//	    WithSuggestion("Use one of: filter, map, sort, reverse, slice, unique")
//
//	errors.PrintError(os.Stderr, err)
//
// prints
//
//	error[R202]: Unknown view type
//	   --> demo.yaml:12:11
//	   |
//	10 |   - name: evens
//	11 |     source: nums
//	12 |     type: filtr
//	   |           ^
//	13 |     fn: even
//	   = hint: Use one of: filter, map, sort, reverse, slice, unique
package errors
