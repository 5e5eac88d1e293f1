package collection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/reactive/pkg/reactive"
)

func keyChannels[K comparable, V any](m *KeyedMap[K, V]) int {
	m.keysMu.Lock()
	defer m.keysMu.Unlock()
	return len(m.keys)
}

func TestKeyChannelsDroppedWithLastListener(t *testing.T) {
	m := NewKeyedMap[string, int]()
	scope := reactive.NewScope(nil)
	nop := func(MapChange[string, int]) {}

	h := m.ListenKey("a", nop, nil)
	m.ListenKey("b", nop, scope)
	m.Pick("c", scope)
	require.Equal(t, 3, keyChannels(m))

	h.Cancel()
	assert.Equal(t, 2, keyChannels(m), "a was never set, its channel still goes")

	scope.Cancel()
	assert.Equal(t, 0, keyChannels(m))

	dead := reactive.NewScope(nil)
	dead.Cancel()
	m.ListenKey("d", nop, dead)
	assert.Equal(t, 0, keyChannels(m), "a stillborn subscription leaves nothing behind")

	got := 0
	m.ListenKey("a", func(ch MapChange[string, int]) { got = ch.Value }, nil)
	require.NoError(t, m.Set("a", 7))
	assert.Equal(t, 7, got, "listening again after a prune still works")
}
