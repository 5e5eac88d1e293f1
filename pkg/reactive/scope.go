package reactive

import (
	"sync"
	"sync/atomic"
)

// Scope ties the lifetime of subscriptions to an owner. Cancelling a scope
// runs every registered callback exactly once, cancels its child scopes and
// then becomes terminal.
//
// Scopes form a hierarchy: a scope created with a parent is cancelled when
// the parent is cancelled. This mirrors the ownership of the things that
// subscribe, such as a view owned by a page owned by a session.
type Scope struct {
	id uint64

	parent *Scope

	children   []*Scope
	childrenMu sync.Mutex

	// callbacks registered via OnCancel. Removed entries are nil'd in place
	// and compacted once they outnumber the live ones.
	callbacks  []*cancelCallback
	removed    int
	callbackMu sync.Mutex

	cancelled atomic.Bool

	doneOnce sync.Once
	done     chan struct{}
}

type cancelCallback struct {
	fn func()
}

// NewScope creates a scope. If parent is non-nil the new scope is registered
// as its child; if the parent is already cancelled the new scope is returned
// cancelled.
func NewScope(parent *Scope) *Scope {
	s := &Scope{
		id:     nextID(),
		parent: parent,
	}

	if parent != nil {
		parent.addChild(s)
	}

	return s
}

// ID returns the unique identifier for this scope.
func (s *Scope) ID() uint64 {
	return s.id
}

// Parent returns the parent scope, or nil for a root scope.
func (s *Scope) Parent() *Scope {
	return s.parent
}

// Cancelled reports whether Cancel has been called.
func (s *Scope) Cancelled() bool {
	return s.cancelled.Load()
}

// Done returns a channel that is closed when the scope is cancelled.
func (s *Scope) Done() <-chan struct{} {
	s.doneOnce.Do(func() {
		s.done = make(chan struct{})
	})
	return s.done
}

func (s *Scope) addChild(child *Scope) {
	if s.cancelled.Load() {
		child.Cancel()
		return
	}

	s.childrenMu.Lock()
	s.children = append(s.children, child)
	s.childrenMu.Unlock()

	// Lost a race with Cancel: make sure the child does not outlive us.
	if s.cancelled.Load() {
		child.Cancel()
	}
}

func (s *Scope) removeChild(child *Scope) {
	s.childrenMu.Lock()
	defer s.childrenMu.Unlock()

	for i, c := range s.children {
		if c == child {
			s.children = append(s.children[:i], s.children[i+1:]...)
			return
		}
	}
}

// OnCancel registers fn to run when the scope is cancelled. If the scope is
// already cancelled fn runs immediately. The returned function deregisters
// fn without running it; calling it more than once is harmless.
func (s *Scope) OnCancel(fn func()) (remove func()) {
	if s.cancelled.Load() {
		fn()
		return func() {}
	}

	cb := &cancelCallback{fn: fn}

	s.callbackMu.Lock()
	s.callbacks = append(s.callbacks, cb)
	s.callbackMu.Unlock()

	return func() {
		s.callbackMu.Lock()
		defer s.callbackMu.Unlock()
		if cb.fn == nil {
			return
		}
		cb.fn = nil
		s.removed++
		if s.removed > 16 && s.removed*2 > len(s.callbacks) {
			s.compactLocked()
		}
	}
}

func (s *Scope) compactLocked() {
	live := s.callbacks[:0]
	for _, cb := range s.callbacks {
		if cb.fn != nil {
			live = append(live, cb)
		}
	}
	for i := len(live); i < len(s.callbacks); i++ {
		s.callbacks[i] = nil
	}
	s.callbacks = live
	s.removed = 0
}

// Cancel cancels the scope. Children are cancelled first, last created
// first, then callbacks run in reverse registration order. Cancel is
// idempotent.
func (s *Scope) Cancel() {
	if s.cancelled.Swap(true) {
		return
	}

	if s.parent != nil {
		s.parent.removeChild(s)
	}

	s.childrenMu.Lock()
	children := s.children
	s.children = nil
	s.childrenMu.Unlock()

	for i := len(children) - 1; i >= 0; i-- {
		children[i].Cancel()
	}

	s.callbackMu.Lock()
	callbacks := s.callbacks
	s.callbacks = nil
	s.removed = 0
	s.callbackMu.Unlock()

	for i := len(callbacks) - 1; i >= 0; i-- {
		s.callbackMu.Lock()
		fn := callbacks[i].fn
		callbacks[i].fn = nil
		s.callbackMu.Unlock()
		if fn != nil {
			fn()
		}
	}

	s.doneOnce.Do(func() {
		s.done = make(chan struct{})
	})
	close(s.done)
}
