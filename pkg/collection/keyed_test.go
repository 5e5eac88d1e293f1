package collection_test

import (
	"fmt"
	"math/rand"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/reactive/pkg/collection"
	"github.com/vango-dev/reactive/pkg/reactive"
)

func TestKeyedMapPickScenario(t *testing.T) {
	m := collection.NewKeyedMap[string, int]()
	picked := m.Pick("x", nil)
	assert.False(t, picked.Value().Present)

	require.NoError(t, m.Set("x", 5))
	assert.Equal(t, collection.Lookup[int]{Value: 5, Present: true}, picked.Value())

	deleted, err := m.Delete("x")
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.Equal(t, collection.Lookup[int]{}, picked.Value())
}

func TestKeyedMapChannels(t *testing.T) {
	m := collection.NewKeyedMap[string, int](collection.WithName("scores"))

	var all []collection.MapChange[string, int]
	var onlyA []collection.MapChange[string, int]
	m.Listen(func(ch collection.MapChange[string, int]) { all = append(all, ch) }, nil)
	m.ListenKey("a", func(ch collection.MapChange[string, int]) { onlyA = append(onlyA, ch) }, nil)

	require.NoError(t, m.Set("a", 1))
	require.NoError(t, m.Set("b", 2))
	require.NoError(t, m.Set("a", 3))
	deleted, err := m.Delete("missing")
	require.NoError(t, err)
	assert.False(t, deleted)

	require.Len(t, all, 3)
	require.Len(t, onlyA, 2)
	assert.Equal(t, collection.MapSet, onlyA[1].Op)
	assert.Equal(t, 3, onlyA[1].Value)
	assert.True(t, onlyA[1].HadPrevious)
	assert.Equal(t, 1, onlyA[1].Previous)

	assert.Equal(t, []string{"a", "b"}, m.Keys(), "overwriting keeps the insertion position")
	assert.Equal(t, []int{3, 2}, m.Values())
	assert.Equal(t, 2, m.Size().Value())
}

func TestKeyedMapClear(t *testing.T) {
	m := collection.NewKeyedMap[string, int]()
	require.NoError(t, m.Set("a", 1))
	require.NoError(t, m.Set("b", 2))

	var whole []collection.MapChange[string, int]
	var perKey []string
	m.Listen(func(ch collection.MapChange[string, int]) { whole = append(whole, ch) }, nil)
	for _, k := range []string{"a", "b"} {
		m.ListenKey(k, func(ch collection.MapChange[string, int]) {
			perKey = append(perKey, fmt.Sprintf("%s %s %d", ch.Op, ch.Key, ch.Previous))
		}, nil)
	}

	require.NoError(t, m.Clear())
	require.Len(t, whole, 1)
	assert.Equal(t, collection.MapClear, whole[0].Op)
	assert.Equal(t, []string{"a", "b"}, whole[0].Cleared)
	assert.Equal(t, []string{"delete a 1", "delete b 2"}, perKey)
	assert.Equal(t, 0, m.Len())
	assert.Equal(t, 0, m.Size().Value())
}

func TestKeyedMapPickScopeCancellation(t *testing.T) {
	scope := reactive.NewScope(nil)
	m := collection.NewKeyedMap[string, int]()
	picked := m.Pick("x", scope)

	require.NoError(t, m.Set("x", 1))
	scope.Cancel()
	require.NoError(t, m.Set("x", 2))
	assert.Equal(t, 1, picked.Value().Value)
}

func TestKeyedMapReentrancyPanics(t *testing.T) {
	m := collection.NewKeyedMap[string, int]()
	m.Listen(func(collection.MapChange[string, int]) { _ = m.Set("again", 0) }, nil)

	assert.PanicsWithError(t, (&collection.ReentrancyError{Collection: m.Name(), ID: m.ID()}).Error(), func() {
		_ = m.Set("x", 1)
	})
}

func TestKeyedSet(t *testing.T) {
	s := collection.NewKeyedSet([]int{3, 1, 3, 2}, collection.WithName("ids"))
	assert.Equal(t, []int{3, 1, 2}, s.ToSlice())
	assert.Equal(t, "ids", s.Name())

	var changes []collection.SetChange[int]
	s.Listen(func(ch collection.SetChange[int]) { changes = append(changes, ch) }, nil)

	added, err := s.Add(1)
	require.NoError(t, err)
	assert.False(t, added)
	assert.Empty(t, changes, "adding a member twice fires nothing")

	added, err = s.Add(4)
	require.NoError(t, err)
	assert.True(t, added)
	deleted, err := s.Delete(3)
	require.NoError(t, err)
	assert.True(t, deleted)

	require.Len(t, changes, 2)
	assert.Equal(t, collection.SetChange[int]{Op: collection.MapSet, Value: 4}, changes[0])
	assert.Equal(t, collection.SetChange[int]{Op: collection.MapDelete, Value: 3}, changes[1])
	assert.Equal(t, 3, s.Size().Value())
}

func TestSetIntersectionScenario(t *testing.T) {
	scope := reactive.NewScope(nil)
	defer scope.Cancel()

	s1 := collection.NewKeyedSet([]int{1, 2})
	s2 := collection.NewKeyedSet([]int{2, 3})
	inter := s1.Intersection(s2, scope)

	_, err := s1.Add(3)
	require.NoError(t, err)

	got := inter.ToSlice()
	slices.Sort(got)
	assert.Equal(t, []int{2, 3}, got)
	assert.True(t, inter.ReadOnly())
	_, err = inter.Add(9)
	assert.ErrorIs(t, err, collection.ErrReadOnly)
}

func asSet(xs []int) map[int]bool {
	out := make(map[int]bool, len(xs))
	for _, x := range xs {
		out[x] = true
	}
	return out
}

func TestSetAlgebraConsistency(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	scope := reactive.NewScope(nil)
	defer scope.Cancel()

	a := collection.NewKeyedSet([]int{1, 2, 3})
	b := collection.NewKeyedSet([]int{3, 4})
	union := a.Union(b, scope)
	inter := a.Intersection(b, scope)
	diff := a.Difference(b, scope)
	sym := a.SymmetricDifference(b, scope)

	check := func(step string) {
		inA, inB := asSet(a.ToSlice()), asSet(b.ToSlice())
		want := map[string]map[int]bool{"union": {}, "inter": {}, "diff": {}, "sym": {}}
		for x := 0; x < 10; x++ {
			if inA[x] || inB[x] {
				want["union"][x] = true
			}
			if inA[x] && inB[x] {
				want["inter"][x] = true
			}
			if inA[x] && !inB[x] {
				want["diff"][x] = true
			}
			if inA[x] != inB[x] {
				want["sym"][x] = true
			}
		}
		assert.Equal(t, want["union"], asSet(union.ToSlice()), "union after %s", step)
		assert.Equal(t, want["inter"], asSet(inter.ToSlice()), "intersection after %s", step)
		assert.Equal(t, want["diff"], asSet(diff.ToSlice()), "difference after %s", step)
		assert.Equal(t, want["sym"], asSet(sym.ToSlice()), "symmetric difference after %s", step)
	}
	check("construction")

	for step := 0; step < 300; step++ {
		target := a
		if r.Intn(2) == 0 {
			target = b
		}
		x := r.Intn(10)
		var desc string
		switch r.Intn(9) {
		case 0:
			desc = "clear"
			require.NoError(t, target.Clear())
		case 1, 2, 3, 4:
			desc = fmt.Sprintf("add %d", x)
			_, err := target.Add(x)
			require.NoError(t, err)
		default:
			desc = fmt.Sprintf("delete %d", x)
			_, err := target.Delete(x)
			require.NoError(t, err)
		}
		check(fmt.Sprintf("step %d (%s)", step, desc))
	}
}

func TestSetAlgebraStopsOnCancel(t *testing.T) {
	scope := reactive.NewScope(nil)
	a := collection.NewKeyedSet([]string{"x"})
	b := collection.NewKeyedSet[string](nil)
	union := a.Union(b, scope)

	scope.Cancel()
	_, err := b.Add("y")
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, union.ToSlice())
}
