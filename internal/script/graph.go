package script

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/vango-dev/reactive/pkg/collection"
	"github.com/vango-dev/reactive/pkg/reactive"
)

// node is a built view: a list, a group map or an index map.
type node struct {
	name   string
	list   *collection.Collection[int]
	groups *collection.KeyedMap[int, *collection.Collection[int]]
	index  *collection.KeyedMap[int, int]
}

// graph is the root collection plus every view, in declaration order.
type graph struct {
	root  *collection.Collection[int]
	nodes []*node
}

// build derives the views of s from root under scope.
func build(s *Script, root *collection.Collection[int], scope *reactive.Scope) *graph {
	g := &graph{root: root}
	byName := map[string]*node{s.Collection: {name: s.Collection, list: root}}
	g.nodes = append(g.nodes, byName[s.Collection])

	for _, v := range s.Views {
		src := byName[v.Source].list
		n := &node{name: v.Name}

		switch v.Type {
		case TypeFilter:
			n.list = src.Filter(predicates[v.Fn], scope)
		case TypeMap:
			n.list = collection.Map(src, mappers[v.Fn], scope)
		case TypeSort:
			order := cmp.Compare[int]
			if v.Order == "desc" {
				order = func(a, b int) int { return cmp.Compare(b, a) }
			}
			n.list = src.Sort(order, scope)
		case TypeReverse:
			n.list = src.Reverse(scope)
		case TypeSlice:
			end := -1
			if v.End != nil {
				end = *v.End
			}
			n.list = src.Slice(v.Start, end, scope)
		case TypeUnique:
			n.list = src.Unique(scope)
		case TypeFlatten:
			n.list = collection.Flatten(src, expanders[v.Fn], scope)
		case TypeGroupBy:
			n.groups = collection.GroupBy(src, mappers[v.Fn], scope)
		case TypeIndexBy:
			n.index = collection.IndexBy(src, mappers[v.Fn], scope)
		}

		byName[v.Name] = n
		g.nodes = append(g.nodes, n)
	}
	return g
}

// render prints the current content of a node. Maps are printed with their
// keys in ascending order.
func (n *node) render() string {
	switch {
	case n.groups != nil:
		keys := n.groups.Keys()
		slices.Sort(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			g, _ := n.groups.Get(k)
			parts[i] = fmt.Sprintf("%d: %v", k, g.ToSlice())
		}
		return "{" + strings.Join(parts, ", ") + "}"

	case n.index != nil:
		keys := n.index.Keys()
		slices.Sort(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			v, _ := n.index.Get(k)
			parts[i] = fmt.Sprintf("%d: %d", k, v)
		}
		return "{" + strings.Join(parts, ", ") + "}"

	default:
		return fmt.Sprint(n.list.ToSlice())
	}
}
