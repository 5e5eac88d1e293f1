// Package collection provides observable ordered collections, the derived
// views that maintain themselves from structured change records, and
// keyed map/set collections with live set algebra.
//
// Every mutation of a Collection fires exactly one Change. A Change carries
// a coarse Kind, a fine-grained Op, the indexes and items involved, and a
// private snapshot of the content right after the edit (NewState):
//
//	todos := collection.New([]string{"write", "test"})
//	todos.Listen(func(ch collection.Change[string]) {
//	    fmt.Println(ch.Op, ch.Index, ch.Items, ch.NewState)
//	}, scope)
//	_ = todos.Push("ship") // append 2 [ship] [write test ship]
//
// Views subscribe to their parent's changes and apply the equivalent local
// edit to their own content. Only a parent merge, which has no local
// equivalent, makes a view recompute, and that is delivered as a merge:
//
//	open := todos.Filter(func(s string) bool { return s != "done" }, scope)
//	sorted := open.Sort(strings.Compare, scope)
//	lengths := collection.Map(todos, func(s string) int { return len(s) }, scope)
//
// A view's content is always what a from-scratch computation over the
// parent's current content would produce. Views are read-only: mutating one
// directly returns ErrReadOnly.
//
// KeyedMap and KeyedSet notify on a whole-collection channel and on per-key
// channels. Union, Intersection, Difference and SymmetricDifference build
// live result sets that do O(1) work per input change.
package collection
