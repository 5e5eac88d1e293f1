package collection

import (
	"container/list"
	"fmt"
	"iter"
	"sync"
	"sync/atomic"

	"github.com/vango-dev/reactive/pkg/reactive"
)

// MapOp is the kind of a keyed-collection change.
type MapOp uint8

const (
	MapSet MapOp = iota + 1
	MapDelete
	MapClear
)

// String returns a human-readable name for the op.
func (o MapOp) String() string {
	switch o {
	case MapSet:
		return "set"
	case MapDelete:
		return "delete"
	case MapClear:
		return "clear"
	default:
		return "unknown"
	}
}

// MapChange records one keyed mutation.
//
// A clear fires a MapDelete per key on the per-key channels and a single
// MapClear carrying the removed keys in Cleared on the whole-map channel.
type MapChange[K comparable, V any] struct {
	Op    MapOp
	Key   K
	Value V
	// Previous holds the value replaced or deleted when HadPrevious is set.
	Previous    V
	HadPrevious bool
	Cleared     []K
}

type entry[K comparable, V any] struct {
	key   K
	value V
}

// KeyedMap is an insertion-ordered observable map. Set and Delete fire one
// change on the whole-map channel and one on the key's channel when anyone
// listens to that key.
type KeyedMap[K comparable, V any] struct {
	id       uint64
	name     string
	observer Observer
	readOnly bool

	mu      sync.RWMutex
	entries map[K]*list.Element
	order   *list.List

	changes reactive.Channel[MapChange[K, V]]
	keysMu  sync.Mutex
	keys    map[K]*reactive.Channel[MapChange[K, V]]
	busy    atomic.Bool
	size    *reactive.Cell[int]
}

// NewKeyedMap creates an empty keyed map.
func NewKeyedMap[K comparable, V any](opts ...Option) *KeyedMap[K, V] {
	return newKeyedMap[K, V](buildConfig(opts), "map")
}

func newKeyedMap[K comparable, V any](cfg config, kind string) *KeyedMap[K, V] {
	m := &KeyedMap[K, V]{
		id:       nextID(),
		name:     cfg.name,
		observer: cfg.observer,
		entries:  make(map[K]*list.Element),
		order:    list.New(),
		keys:     make(map[K]*reactive.Channel[MapChange[K, V]]),
		size:     reactive.NewCell(0),
	}
	if m.name == "" {
		m.name = fmt.Sprintf("%s-%d", kind, m.id)
	}
	return m
}

// ID returns the unique identifier for this map.
func (m *KeyedMap[K, V]) ID() uint64 {
	return m.id
}

// Name returns the map's name.
func (m *KeyedMap[K, V]) Name() string {
	return m.name
}

// ReadOnly reports whether the map is maintained by a view.
func (m *KeyedMap[K, V]) ReadOnly() bool {
	return m.readOnly
}

// Get returns the value stored under k.
func (m *KeyedMap[K, V]) Get(k K) (V, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if e, ok := m.entries[k]; ok {
		return e.Value.(*entry[K, V]).value, true
	}
	var zero V
	return zero, false
}

// Has reports whether k is present.
func (m *KeyedMap[K, V]) Has(k K) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.entries[k]
	return ok
}

// Len returns the number of entries.
func (m *KeyedMap[K, V]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Keys returns the keys in insertion order.
func (m *KeyedMap[K, V]) Keys() []K {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]K, 0, len(m.entries))
	for e := m.order.Front(); e != nil; e = e.Next() {
		keys = append(keys, e.Value.(*entry[K, V]).key)
	}
	return keys
}

// Values returns the values in key insertion order.
func (m *KeyedMap[K, V]) Values() []V {
	m.mu.RLock()
	defer m.mu.RUnlock()
	values := make([]V, 0, len(m.entries))
	for e := m.order.Front(); e != nil; e = e.Next() {
		values = append(values, e.Value.(*entry[K, V]).value)
	}
	return values
}

// All iterates over a snapshot of the entries in insertion order.
func (m *KeyedMap[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		m.mu.RLock()
		snap := make([]entry[K, V], 0, len(m.entries))
		for e := m.order.Front(); e != nil; e = e.Next() {
			snap = append(snap, *e.Value.(*entry[K, V]))
		}
		m.mu.RUnlock()

		for _, en := range snap {
			if !yield(en.key, en.value) {
				return
			}
		}
	}
}

// Size returns the cell tracking the number of entries.
func (m *KeyedMap[K, V]) Size() *reactive.Cell[int] {
	return m.size
}

// Listen registers fn for every future change of the map.
func (m *KeyedMap[K, V]) Listen(fn func(MapChange[K, V]), scope *reactive.Scope) *reactive.Handle {
	return m.changes.Subscribe(fn, scope)
}

func (m *KeyedMap[K, V]) listenErr(fn func(MapChange[K, V]) error, scope *reactive.Scope) *reactive.Handle {
	return m.changes.SubscribeErr(fn, scope)
}

// ListenKey registers fn for future changes of key k only. The key's
// channel is dropped again when its last listener is cancelled.
func (m *KeyedMap[K, V]) ListenKey(k K, fn func(MapChange[K, V]), scope *reactive.Scope) *reactive.Handle {
	return m.subscribeKey(k, func(kc *reactive.Channel[MapChange[K, V]]) *reactive.Handle {
		return kc.Subscribe(fn, scope)
	})
}

func (m *KeyedMap[K, V]) listenKeyErr(k K, fn func(MapChange[K, V]) error, scope *reactive.Scope) *reactive.Handle {
	return m.subscribeKey(k, func(kc *reactive.Channel[MapChange[K, V]]) *reactive.Handle {
		return kc.SubscribeErr(fn, scope)
	})
}

func (m *KeyedMap[K, V]) subscribeKey(k K, subscribe func(*reactive.Channel[MapChange[K, V]]) *reactive.Handle) *reactive.Handle {
	for {
		kc := m.keyChannel(k)
		h := subscribe(kc)
		if !h.Active() {
			m.prune(k, kc)
			return h
		}

		m.keysMu.Lock()
		live := m.keys[k] == kc
		m.keysMu.Unlock()
		if live {
			return h
		}
		// Pruned before the subscription landed; start over on a fresh
		// channel.
		h.Cancel()
	}
}

func (m *KeyedMap[K, V]) keyChannel(k K) *reactive.Channel[MapChange[K, V]] {
	m.keysMu.Lock()
	defer m.keysMu.Unlock()
	kc, ok := m.keys[k]
	if !ok {
		kc = &reactive.Channel[MapChange[K, V]]{}
		kc.OnIdle(func() { m.prune(k, kc) })
		m.keys[k] = kc
	}
	return kc
}

// prune drops the channel of k if it is still registered and unused.
func (m *KeyedMap[K, V]) prune(k K, kc *reactive.Channel[MapChange[K, V]]) {
	m.keysMu.Lock()
	defer m.keysMu.Unlock()
	if m.keys[k] == kc && kc.Len() == 0 {
		delete(m.keys, k)
	}
}

// fireKey delivers ch to the listeners of its key.
func (m *KeyedMap[K, V]) fireKey(k K, ch MapChange[K, V]) error {
	m.keysMu.Lock()
	kc, ok := m.keys[k]
	m.keysMu.Unlock()
	if !ok {
		return nil
	}
	return kc.Fire(ch)
}

// Pick returns a cell tracking the entry under k.
func (m *KeyedMap[K, V]) Pick(k K, scope *reactive.Scope) *reactive.Cell[Lookup[V]] {
	v, ok := m.Get(k)
	cell := reactive.NewCell(Lookup[V]{Value: v, Present: ok})
	m.listenKeyErr(k, func(ch MapChange[K, V]) error {
		if ch.Op == MapSet {
			return cell.Update(Lookup[V]{Value: ch.Value, Present: true})
		}
		return cell.Update(Lookup[V]{})
	}, scope)
	return cell
}

// Lookup is the value of a picked key. Present is false while the key is
// absent, in which case Value is the zero value.
type Lookup[V any] struct {
	Value   V
	Present bool
}

func (m *KeyedMap[K, V]) writable() error {
	if m.readOnly {
		return fmt.Errorf("%w: %s", ErrReadOnly, m.name)
	}
	return nil
}

func (m *KeyedMap[K, V]) begin() {
	if !m.busy.CompareAndSwap(false, true) {
		panic(&ReentrancyError{Collection: m.name, ID: m.id})
	}
}

func (m *KeyedMap[K, V]) end() {
	m.busy.Store(false)
}

// Set stores v under k. A new key goes to the end of the order; replacing
// the value of an existing key keeps its position.
func (m *KeyedMap[K, V]) Set(k K, v V) error {
	if err := m.writable(); err != nil {
		return err
	}
	return m.set(k, v)
}

// Delete removes k and reports whether it was present. Deleting an absent
// key fires nothing.
func (m *KeyedMap[K, V]) Delete(k K) (bool, error) {
	if err := m.writable(); err != nil {
		return false, err
	}
	return m.delete(k)
}

// Clear removes every entry.
func (m *KeyedMap[K, V]) Clear() error {
	if err := m.writable(); err != nil {
		return err
	}
	return m.clear()
}

func (m *KeyedMap[K, V]) set(k K, v V) error {
	m.begin()
	defer m.end()

	ch := MapChange[K, V]{Op: MapSet, Key: k, Value: v}
	m.mu.Lock()
	if e, ok := m.entries[k]; ok {
		en := e.Value.(*entry[K, V])
		ch.Previous, ch.HadPrevious = en.value, true
		en.value = v
	} else {
		m.entries[k] = m.order.PushBack(&entry[K, V]{key: k, value: v})
	}
	n := len(m.entries)
	m.mu.Unlock()

	return m.fire(ch, n, !ch.HadPrevious)
}

func (m *KeyedMap[K, V]) delete(k K) (bool, error) {
	m.begin()
	defer m.end()

	m.mu.Lock()
	e, ok := m.entries[k]
	if !ok {
		m.mu.Unlock()
		return false, nil
	}
	en := m.order.Remove(e).(*entry[K, V])
	delete(m.entries, k)
	n := len(m.entries)
	m.mu.Unlock()

	ch := MapChange[K, V]{Op: MapDelete, Key: k, Previous: en.value, HadPrevious: true}
	return true, m.fire(ch, n, true)
}

func (m *KeyedMap[K, V]) clear() error {
	m.begin()
	defer m.end()

	m.mu.Lock()
	removed := make([]entry[K, V], 0, len(m.entries))
	for e := m.order.Front(); e != nil; e = e.Next() {
		removed = append(removed, *e.Value.(*entry[K, V]))
	}
	m.entries = make(map[K]*list.Element)
	m.order.Init()
	m.mu.Unlock()

	if m.observer != nil {
		m.observer.ObserveChange(m.name, MapClear.String(), len(removed))
	}

	var err error
	keys := make([]K, len(removed))
	for i, en := range removed {
		keys[i] = en.key
		err = joinErrors(err, m.fireKey(en.key, MapChange[K, V]{
			Op: MapDelete, Key: en.key, Previous: en.value, HadPrevious: true,
		}))
	}
	err = joinErrors(err, m.changes.Fire(MapChange[K, V]{Op: MapClear, Cleared: keys}))
	if len(removed) > 0 {
		err = joinErrors(err, m.size.Update(0))
	}
	return err
}

// fire delivers a set or delete to the key's listeners, then to the map's,
// then updates the size cell when it changed.
func (m *KeyedMap[K, V]) fire(ch MapChange[K, V], n int, resized bool) error {
	if m.observer != nil {
		m.observer.ObserveChange(m.name, ch.Op.String(), 1)
	}
	err := m.fireKey(ch.Key, ch)
	err = joinErrors(err, m.changes.Fire(ch))
	if resized {
		err = joinErrors(err, m.size.Update(n))
	}
	return err
}

// String implements fmt.Stringer.
func (m *KeyedMap[K, V]) String() string {
	return fmt.Sprintf("%s%v", m.name, m.Keys())
}
