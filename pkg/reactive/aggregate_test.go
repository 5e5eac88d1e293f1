package reactive

import (
	"errors"
	"fmt"
	"testing"
)

func TestAggregateSum(t *testing.T) {
	a := NewCell(1)
	b := NewCell(2)

	sum, err := Aggregate([]Source[int]{FromCell(a), FromCell(b), Const(10)}, func(values []int) (int, error) {
		total := 0
		for _, v := range values {
			total += v
		}
		return total, nil
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if sum.Value() != 13 {
		t.Errorf("expected eager initial 13, got %d", sum.Value())
	}

	_ = a.Update(5)
	if sum.Value() != 17 {
		t.Errorf("expected 17, got %d", sum.Value())
	}

	_ = b.Update(0)
	if sum.Value() != 15 {
		t.Errorf("expected 15, got %d", sum.Value())
	}
}

func TestSourceKinds(t *testing.T) {
	cases := []struct {
		src  Source[int]
		kind SourceKind
		name string
	}{
		{Const(1), SourceConst, "const"},
		{FromCell(NewCell(1)), SourceCell, "cell"},
		{FromDuplex(NewDuplex(1, false)), SourceDuplex, "duplex"},
	}

	for _, tc := range cases {
		if tc.src.Kind() != tc.kind || tc.kind.String() != tc.name {
			t.Errorf("expected %s, got %s", tc.name, tc.src.Kind())
		}
		if tc.src.Value() != 1 {
			t.Errorf("%s: expected value 1, got %d", tc.name, tc.src.Value())
		}
	}
}

func TestAggregateDuplexUpstreamWithoutFanOut(t *testing.T) {
	d := NewDuplex(1, false)

	doubled, _ := Aggregate([]Source[int]{FromDuplex(d)}, func(v []int) (int, error) {
		return v[0] * 2, nil
	}, nil)

	_ = d.UpdateUpstream(4)
	if doubled.Value() != 8 {
		t.Errorf("editor change should be seen without fan-out, got %d", doubled.Value())
	}
}

func TestAggregateDuplexFanOutRecomputesOnce(t *testing.T) {
	d := NewDuplex(1, true)

	calls := 0
	_, _ = Aggregate([]Source[int]{FromDuplex(d)}, func(v []int) (int, error) {
		calls++
		return v[0], nil
	}, nil)
	calls = 0

	_ = d.UpdateUpstream(2)
	if calls != 1 {
		t.Errorf("expected a single recompute with fan-out, got %d", calls)
	}
}

func TestAggregate2(t *testing.T) {
	name := NewCell("ada")
	age := NewCell(36)

	label, err := Aggregate2(FromCell(name), FromCell(age), func(n string, a int) (string, error) {
		return fmt.Sprintf("%s (%d)", n, a), nil
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_ = age.Update(37)
	if label.Value() != "ada (37)" {
		t.Errorf("unexpected label %q", label.Value())
	}
}

func TestAggregate3(t *testing.T) {
	x := NewCell(1)
	y := NewCell(2.5)

	out, _ := Aggregate3(FromCell(x), FromCell(y), Const("u"), func(a int, b float64, unit string) (string, error) {
		return fmt.Sprintf("%.1f%s", float64(a)+b, unit), nil
	}, nil)

	_ = x.Update(2)
	if out.Value() != "4.5u" {
		t.Errorf("unexpected value %q", out.Value())
	}
}

func TestAggregateErrors(t *testing.T) {
	a := NewCell(1)
	errNegative := errors.New("negative")

	check := func(v []int) (int, error) {
		if v[0] < 0 {
			return 0, errNegative
		}
		return v[0], nil
	}

	out, err := Aggregate([]Source[int]{FromCell(a)}, check, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err = a.Update(-1)
	if !errors.Is(err, errNegative) || !errors.Is(err, ErrOperator) {
		t.Errorf("expected operator fault at the caller, got %v", err)
	}
	if out.Value() != 1 {
		t.Errorf("failed recompute must keep the last value, got %d", out.Value())
	}

	// Initial failure is returned from Aggregate itself.
	bad := NewCell(-5)
	if _, err := Aggregate([]Source[int]{FromCell(bad)}, check, nil); !errors.Is(err, errNegative) {
		t.Errorf("expected initial error, got %v", err)
	}
	if bad.ListenerCount() != 0 {
		t.Error("failed Aggregate should detach from its sources")
	}
}

func TestAggregateScopeCancellation(t *testing.T) {
	a := NewCell(1)
	scope := NewScope(nil)

	out, _ := Aggregate([]Source[int]{FromCell(a)}, func(v []int) (int, error) { return v[0], nil }, scope)
	scope.Cancel()
	_ = a.Update(2)

	if out.Value() != 1 {
		t.Errorf("cancelled aggregate must not update, got %d", out.Value())
	}
}
