package reactive

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"
)

func TestTransformMap(t *testing.T) {
	src := NewCell(2)
	scope := NewScope(nil)

	dst, err := Transform(src, Map(func(n int) string { return strconv.Itoa(n * 2) }), scope)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if dst.Value() != "4" || !dst.Primed() {
		t.Errorf("expected eager initial value 4, got %q primed=%v", dst.Value(), dst.Primed())
	}

	_ = src.Update(5)
	if dst.Value() != "10" {
		t.Errorf("expected 10, got %q", dst.Value())
	}
}

func TestTransformUnprimedSource(t *testing.T) {
	src := NewEmptyCell[int]()

	dst, err := Transform(src, Map(func(n int) int { return n + 1 }), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dst.Primed() {
		t.Error("derived cell of an unprimed source should be unprimed")
	}

	_ = src.Update(1)
	if dst.Value() != 2 {
		t.Errorf("expected 2, got %d", dst.Value())
	}
}

func TestTransformFilterDropsSilently(t *testing.T) {
	src := NewCell(1)

	op := Then(Filter(func(n int) bool { return n%2 == 0 }), Map(func(n int) int { return n * 10 }))
	dst, err := Transform(src, op, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dst.Primed() {
		t.Error("rejected initial value should leave the derived cell unprimed")
	}

	calls := 0
	dst.Listen(func(int) { calls++ }, nil)

	if err := src.Update(3); err != nil {
		t.Errorf("rejection must not be an error, got %v", err)
	}
	_ = src.Update(4)

	if calls != 1 || dst.Value() != 40 {
		t.Errorf("expected one delivery of 40, got calls=%d value=%d", calls, dst.Value())
	}
}

func TestOpFluentMethods(t *testing.T) {
	src := NewCell(0)

	tapped := []int{}
	op := Map(func(n int) int { return n + 1 }).
		Filter(func(n int) bool { return n > 1 }).
		Map(func(n int) int { return n * 3 }).
		Tap(func(n int) { tapped = append(tapped, n) })

	stages := op.Stages()
	want := []string{"map", "filter", "map", "tap"}
	if len(stages) != len(want) {
		t.Fatalf("expected stages %v, got %v", want, stages)
	}
	for i := range want {
		if stages[i] != want[i] {
			t.Errorf("stage %d: expected %s, got %s", i, want[i], stages[i])
		}
	}

	dst, _ := Transform(src, op, nil)
	_ = src.Update(1)

	if dst.Value() != 6 {
		t.Errorf("expected 6, got %d", dst.Value())
	}
	if len(tapped) != 1 || tapped[0] != 6 {
		t.Errorf("expected tap to see [6], got %v", tapped)
	}
}

func TestTransformOperatorErrorReturned(t *testing.T) {
	src := NewCell("1")
	dst, err := Transform(src, TryMap(strconv.Atoi), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err = src.Update("nope")
	if !errors.Is(err, ErrOperator) {
		t.Fatalf("expected operator error, got %v", err)
	}

	var numErr *strconv.NumError
	if !errors.As(err, &numErr) {
		t.Errorf("expected cause to be preserved, got %v", err)
	}
	if dst.Value() != 1 {
		t.Errorf("failed update must not change the derived value, got %d", dst.Value())
	}
}

func TestTransformInitialOperatorError(t *testing.T) {
	src := NewCell("x")

	dst, err := Transform(src, TryMap(strconv.Atoi), nil)
	if err == nil || dst != nil {
		t.Fatalf("expected initial error, got dst=%v err=%v", dst, err)
	}
	if src.ListenerCount() != 0 {
		t.Error("failed Transform should detach from its source")
	}
}

func TestTransformErrorHandler(t *testing.T) {
	src := NewCell("1")

	var handled []error
	dst, err := Transform(src, TryMap(strconv.Atoi), nil,
		WithErrorHandler(Downstream, func(err error) { handled = append(handled, err) }))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := src.Update("bad"); err != nil {
		t.Errorf("handled errors must not reach the caller, got %v", err)
	}
	if len(handled) != 1 || !errors.Is(handled[0], ErrOperator) {
		t.Errorf("expected one handled operator error, got %v", handled)
	}
	if dst.Value() != 1 {
		t.Errorf("expected value 1, got %d", dst.Value())
	}
}

func TestTransformErrorFromDeeperCellPassesThrough(t *testing.T) {
	root := NewCell("1")

	mid, _ := Transform(root, Map(func(s string) string { return s }), nil,
		WithErrorHandler(Downstream, func(error) { t.Error("mid handler must not see leaf faults") }))
	_, err := Transform(mid, TryMap(strconv.Atoi), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := root.Update("x"); !errors.Is(err, ErrOperator) {
		t.Errorf("expected leaf fault at the root caller, got %v", err)
	}
}

func TestTransformScopeCancellation(t *testing.T) {
	src := NewCell(0)
	scope := NewScope(nil)

	dst, _ := Transform(src, Map(func(n int) int { return n }), scope)
	_ = src.Update(1)
	scope.Cancel()
	_ = src.Update(2)

	if dst.Value() != 1 {
		t.Errorf("cancelled pipeline must not update, got %d", dst.Value())
	}
	if src.ListenerCount() != 0 {
		t.Errorf("expected pipeline to detach, %d listeners remain", src.ListenerCount())
	}
}

func TestTransformAsyncMap(t *testing.T) {
	src := NewEmptyCell[int]()

	op := AsyncMap(func(_ context.Context, n int) (int, error) { return n * 2, nil })
	if !op.Async() {
		t.Error("AsyncMap should report async")
	}

	dst, _ := Transform(src, op, nil)

	done := make(chan int, 4)
	dst.Listen(func(v int) { done <- v }, nil)

	if err := src.Update(21); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case v := <-done:
		if v != 42 {
			t.Errorf("expected 42, got %d", v)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for async value")
	}
}

func TestTransformAsyncFilter(t *testing.T) {
	src := NewEmptyCell[int]()

	dst, _ := Transform(src, AsyncFilter(func(_ context.Context, n int) (bool, error) {
		return n > 10, nil
	}), nil)

	got := make(chan int, 4)
	dst.Listen(func(v int) { got <- v }, nil)

	_ = src.Update(5)
	_ = src.Update(50)

	select {
	case v := <-got:
		if v != 50 {
			t.Errorf("expected only 50 to pass, got %d", v)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out")
	}
}

func TestTransformAsyncErrorHandler(t *testing.T) {
	src := NewEmptyCell[int]()

	errs := make(chan error, 1)
	_, err := Transform(src, AsyncMap(func(context.Context, int) (int, error) {
		return 0, errors.New("remote failed")
	}), nil, WithErrorHandler(Downstream, func(err error) { errs <- err }))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := src.Update(1); err != nil {
		t.Errorf("async faults never reach the caller, got %v", err)
	}

	select {
	case err := <-errs:
		var opErr *OperatorError
		if !errors.As(err, &opErr) || opErr.Stage != "async map" {
			t.Errorf("unexpected error %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for async error")
	}
}

func TestTransformAsyncDeliverySuppressedAfterCancel(t *testing.T) {
	src := NewEmptyCell[int]()
	scope := NewScope(nil)

	release := make(chan struct{})
	finished := make(chan struct{})
	dst, _ := Transform(src, AsyncMap(func(_ context.Context, n int) (int, error) {
		defer close(finished)
		<-release
		return n, nil
	}), scope)

	_ = src.Update(1)
	scope.Cancel()
	close(release)

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("in-flight operation should run to completion")
	}
	// Give the continuation a moment to (not) deliver.
	time.Sleep(10 * time.Millisecond)

	if dst.Primed() {
		t.Error("delivery after cancellation should be suppressed")
	}
}

func TestTransformAsyncOutOfOrder(t *testing.T) {
	src := NewEmptyCell[int]()

	slow := make(chan struct{})
	dst, _ := Transform(src, AsyncMap(func(_ context.Context, n int) (int, error) {
		if n == 1 {
			<-slow
		}
		return n, nil
	}), nil)

	var mu sync.Mutex
	order := []int{}
	got := make(chan struct{}, 2)
	dst.Listen(func(v int) {
		mu.Lock()
		order = append(order, v)
		mu.Unlock()
		got <- struct{}{}
	}, nil)

	_ = src.Update(1)
	_ = src.Update(2)
	<-got
	close(slow)
	<-got

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 2 || order[0] != 2 || order[1] != 1 {
		t.Errorf("expected the faster later input first, got %v", order)
	}
}

func TestTransformDuplex(t *testing.T) {
	celsius := NewDuplex(100.0, false)

	op := DuplexMap(
		func(c float64) float64 { return c*9/5 + 32 },
		func(f float64) float64 { return (f - 32) * 5 / 9 },
	)
	fahrenheit, err := TransformDuplex(celsius, op, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if fahrenheit.Value() != 212 {
		t.Errorf("expected 212, got %v", fahrenheit.Value())
	}

	_ = celsius.Update(0)
	if fahrenheit.Value() != 32 {
		t.Errorf("expected 32, got %v", fahrenheit.Value())
	}

	edits := []float64{}
	celsius.ListenUpstream(func(v float64) { edits = append(edits, v) }, nil)

	_ = fahrenheit.UpdateUpstream(212)
	if celsius.Value() != 100 {
		t.Errorf("expected upstream edit to reach the source, got %v", celsius.Value())
	}
	if len(edits) != 1 || edits[0] != 100 {
		t.Errorf("expected producer to see [100], got %v", edits)
	}
}

func TestTransformDuplexDirectionsAreIndependent(t *testing.T) {
	src := NewDuplex(1, false)

	downCalls, upCalls := 0, 0
	op := NewDuplexOp(
		Map(func(n int) int { downCalls++; return n * 2 }),
		Map(func(n int) int { upCalls++; return n / 2 }),
	)
	dst, _ := TransformDuplex(src, op, nil)
	downCalls = 0

	_ = src.Update(3)
	if downCalls != 1 || upCalls != 0 {
		t.Errorf("downstream update ran down=%d up=%d", downCalls, upCalls)
	}

	_ = dst.UpdateUpstream(10)
	if downCalls != 1 || upCalls != 1 {
		t.Errorf("upstream update ran down=%d up=%d", downCalls, upCalls)
	}
	if src.Value() != 5 {
		t.Errorf("expected 5, got %d", src.Value())
	}
}

func TestTransformDuplexSourceFanOutEchoes(t *testing.T) {
	src := NewDuplex(1, true)
	dst, _ := TransformDuplex(src, DuplexMap(
		func(n int) int { return n * 2 },
		func(n int) int { return n / 2 },
	), nil)

	seen := []int{}
	dst.Listen(func(v int) { seen = append(seen, v) }, nil)

	_ = dst.UpdateUpstream(8)

	if len(seen) != 1 || seen[0] != 8 {
		t.Errorf("expected the edit to echo back downstream once, got %v", seen)
	}
}

func TestThenDuplex(t *testing.T) {
	src := NewDuplex(2, false)

	op := ThenDuplex(
		DuplexMap(func(n int) int { return n + 1 }, func(n int) int { return n - 1 }),
		DuplexMap(func(n int) string { return strconv.Itoa(n) }, func(s string) int { n, _ := strconv.Atoi(s); return n }),
	)
	dst, _ := TransformDuplex(src, op, nil)

	if dst.Value() != "3" {
		t.Errorf("expected 3, got %q", dst.Value())
	}

	_ = dst.UpdateUpstream("10")
	if src.Value() != 9 {
		t.Errorf("expected 9, got %d", src.Value())
	}
}

func TestTransformDuplexUpstreamErrorHandler(t *testing.T) {
	src := NewDuplex(0, false)

	var upErrs []error
	op := NewDuplexOp(
		Map(strconv.Itoa),
		TryMap(strconv.Atoi),
	)
	dst, _ := TransformDuplex(src, op, nil,
		WithErrorHandler(Upstream, func(err error) { upErrs = append(upErrs, err) }))

	if err := dst.UpdateUpstream("abc"); err != nil {
		t.Errorf("handled upstream fault returned %v", err)
	}
	if len(upErrs) != 1 {
		t.Fatalf("expected 1 upstream error, got %d", len(upErrs))
	}

	var opErr *OperatorError
	if !errors.As(upErrs[0], &opErr) || opErr.Direction != Upstream {
		t.Errorf("expected upstream operator error, got %v", upErrs[0])
	}
	if src.Value() != 0 {
		t.Errorf("source must keep its value, got %d", src.Value())
	}
}

func TestTransformAsyncCompletionsDeliverOneAtATime(t *testing.T) {
	src := NewEmptyCell[int]()

	var gate sync.WaitGroup
	gate.Add(1)
	dst, _ := Transform(src, AsyncMap(func(_ context.Context, n int) (int, error) {
		gate.Wait()
		return n * 10, nil
	}), nil)

	got := make(chan int, 4)
	dst.Listen(func(v int) {
		time.Sleep(20 * time.Millisecond)
		got <- v
	}, nil)

	for i := 1; i <= 4; i++ {
		if err := src.Update(i); err != nil {
			t.Fatalf("update %d: %v", i, err)
		}
	}
	gate.Done()

	seen := map[int]bool{}
	for range 4 {
		select {
		case v := <-got:
			seen[v] = true
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out, got %v", seen)
		}
	}
	for _, want := range []int{10, 20, 30, 40} {
		if !seen[want] {
			t.Errorf("missing %d in %v", want, seen)
		}
	}
}
