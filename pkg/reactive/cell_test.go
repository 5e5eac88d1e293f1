package reactive

import (
	"errors"
	"testing"
)

func TestCellBasic(t *testing.T) {
	c := NewCell(1)

	if c.Value() != 1 {
		t.Errorf("expected initial value 1, got %d", c.Value())
	}
	if !c.Primed() {
		t.Error("NewCell should be primed")
	}

	if err := c.Update(2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Value() != 2 {
		t.Errorf("expected 2, got %d", c.Value())
	}
}

func TestEmptyCell(t *testing.T) {
	c := NewEmptyCell[string]()

	if c.Primed() {
		t.Error("empty cell should not be primed")
	}

	seen := 0
	c.ListenAndRepeat(func(string) { seen++ }, nil)
	if seen != 0 {
		t.Error("ListenAndRepeat should not deliver for an unprimed cell")
	}

	_ = c.Update("x")
	if !c.Primed() || seen != 1 {
		t.Errorf("expected primed cell and 1 delivery, got primed=%v seen=%d", c.Primed(), seen)
	}
}

func TestCellListen(t *testing.T) {
	ds := NewCell(1)

	seen := 0
	ds.Listen(func(v int) { seen = v }, nil)
	_ = ds.Update(2)

	if seen != 2 {
		t.Errorf("expected listener to see 2, got %d", seen)
	}
}

func TestCellListenAndRepeat(t *testing.T) {
	c := NewCell(7)

	got := []int{}
	c.ListenAndRepeat(func(v int) { got = append(got, v) }, nil)
	_ = c.Update(8)

	if len(got) != 2 || got[0] != 7 || got[1] != 8 {
		t.Errorf("expected [7 8], got %v", got)
	}
}

func TestCellListenOnce(t *testing.T) {
	c := NewCell(0)

	calls := 0
	c.ListenOnce(func(int) { calls++ }, nil)
	_ = c.Update(1)
	_ = c.Update(2)

	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestCellReentrantUpdatePanics(t *testing.T) {
	ds := NewCell(1)

	var recovered any
	ds.Listen(func(v int) {
		if v != 2 {
			return
		}
		defer func() { recovered = recover() }()
		_ = ds.Update(3)
	}, nil)

	if err := ds.Update(2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err, ok := recovered.(error)
	if !ok {
		t.Fatalf("expected a panic with an error value, got %v", recovered)
	}
	if !errors.Is(err, ErrReentrantUpdate) {
		t.Errorf("expected ErrReentrantUpdate, got %v", err)
	}

	var re *ReentrancyError
	if !errors.As(err, &re) || re.Direction != Downstream || re.CellID != ds.ID() {
		t.Errorf("unexpected reentrancy error %#v", re)
	}

	if ds.Value() != 2 {
		t.Errorf("reentrant update must not change the value, got %d", ds.Value())
	}

	// The guard is released once the outer update returns.
	if err := ds.Update(4); err != nil || ds.Value() != 4 {
		t.Errorf("expected cell to accept updates again, value=%d err=%v", ds.Value(), err)
	}
}

func TestCellReentrancyRecoveredInsideListener(t *testing.T) {
	src := NewCell(0)
	dst := NewEmptyCell[int]()

	dst.Listen(func(int) {
		defer func() { _ = recover() }()
		_ = dst.Update(99)
	}, nil)

	var recovered any
	src.Listen(func(v int) {
		defer func() { recovered = recover() }()
		_ = dst.Update(v)
	}, nil)

	_ = src.Update(1)

	if recovered != nil {
		t.Errorf("inner panic should have been recovered by dst's listener, got %v", recovered)
	}
	if dst.Value() != 1 {
		t.Errorf("expected dst to keep the outer value 1, got %d", dst.Value())
	}
}

func TestCellScopeCancellation(t *testing.T) {
	c := NewCell(0)
	scope := NewScope(nil)

	calls := 0
	c.Listen(func(int) { calls++ }, scope)

	_ = c.Update(1)
	scope.Cancel()
	_ = c.Update(2)

	if calls != 1 {
		t.Errorf("expected 1 call before cancellation, got %d", calls)
	}
	if c.ListenerCount() != 0 {
		t.Errorf("expected listener to be detached, %d remain", c.ListenerCount())
	}
}

func TestCellOnErrorRemove(t *testing.T) {
	c := NewCell(0)

	remove := c.OnError(Downstream, func(error) {})
	remove()

	err := errors.New("boom")
	if got := c.routeError(Downstream, err); got != err {
		t.Errorf("expected error to be returned without handlers, got %v", got)
	}
}

func TestDuplexUpstream(t *testing.T) {
	d := NewDuplex("a", false)

	up, down := []string{}, []string{}
	d.ListenUpstream(func(v string) { up = append(up, v) }, nil)
	d.Listen(func(v string) { down = append(down, v) }, nil)

	_ = d.UpdateUpstream("b")

	if len(up) != 1 || up[0] != "b" {
		t.Errorf("expected upstream delivery [b], got %v", up)
	}
	if len(down) != 0 {
		t.Errorf("without fan-out downstream must not fire, got %v", down)
	}
	if d.Value() != "b" {
		t.Errorf("expected value b, got %s", d.Value())
	}

	_ = d.Update("c")
	if len(up) != 1 || len(down) != 1 {
		t.Errorf("downstream update should only reach downstream listeners: up=%v down=%v", up, down)
	}
}

func TestDuplexFanOut(t *testing.T) {
	d := NewDuplex(0, true)

	observers := 0
	d.Listen(func(int) { observers++ }, nil)
	d.Listen(func(int) { observers++ }, nil)

	_ = d.UpdateUpstream(5)

	if observers != 2 {
		t.Errorf("fan-out should reach both observers, got %d", observers)
	}

	d.SetFanOut(false)
	_ = d.UpdateUpstream(6)
	if observers != 2 {
		t.Errorf("fan-out disabled should not reach observers, got %d", observers)
	}
}

func TestDuplexReentrantUpstreamPanics(t *testing.T) {
	d := NewDuplex(0, false)

	var recovered any
	d.ListenUpstream(func(v int) {
		defer func() { recovered = recover() }()
		_ = d.UpdateUpstream(v + 1)
	}, nil)

	_ = d.UpdateUpstream(1)

	var re *ReentrancyError
	err, _ := recovered.(error)
	if !errors.As(err, &re) || re.Direction != Upstream {
		t.Errorf("expected upstream reentrancy panic, got %v", recovered)
	}
	if d.Value() != 1 {
		t.Errorf("expected value 1, got %d", d.Value())
	}
}

func TestDuplexFanOutUpstreamFromDownstreamListenerPanics(t *testing.T) {
	d := NewDuplex(1, true)

	var recovered any
	upstreamSaw := 0
	d.ListenUpstream(func(v int) { upstreamSaw = v }, nil)
	d.Listen(func(int) {
		defer func() { recovered = recover() }()
		_ = d.UpdateUpstream(99)
	}, nil)

	_ = d.Update(2)

	var re *ReentrancyError
	err, _ := recovered.(error)
	if !errors.As(err, &re) || re.Direction != Downstream {
		t.Errorf("expected downstream reentrancy panic, got %v", recovered)
	}
	if d.Value() != 2 {
		t.Errorf("value must stay 2, got %d", d.Value())
	}
	if upstreamSaw != 0 {
		t.Errorf("upstream listeners must not fire, saw %d", upstreamSaw)
	}
}

func TestDuplexDownstreamInsideUpstreamIsAllowed(t *testing.T) {
	d := NewDuplex(0, false)

	d.ListenUpstream(func(v int) {
		// Different direction: not a reentrant update.
		if err := d.Update(v * 10); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	}, nil)

	_ = d.UpdateUpstream(2)

	if d.Value() != 20 {
		t.Errorf("expected 20, got %d", d.Value())
	}
}
