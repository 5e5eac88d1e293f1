// Package script loads and plays YAML mutation scripts against an integer
// collection and a tree of views derived from it.
//
// A script names a root collection, its initial content, the views to
// derive and the steps to apply:
//
//	name: evens
//	collection: nums
//	initial: [5, 2, 8, 1]
//	views:
//	  - name: evens
//	    type: filter
//	    fn: even
//	  - name: ranked
//	    type: sort
//	    source: evens
//	    order: desc
//	steps:
//	  - op: push
//	    items: [4, 6]
//	  - op: set
//	    index: 0
//	    value: 10
//
// A view reads from the root collection unless source names a view declared
// before it. The Player prints every view after every step; in verify mode
// it also rebuilds the whole graph from the current root content and fails
// as soon as a view differs from its rebuilt twin.
package script
