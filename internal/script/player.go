package script

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/vango-dev/reactive/internal/errors"
	"github.com/vango-dev/reactive/pkg/collection"
	"github.com/vango-dev/reactive/pkg/reactive"
)

// Option configures a Player.
type Option func(*Player)

// WithVerify checks recompute equivalence after the initial build and after
// every step.
func WithVerify(on bool) Option {
	return func(p *Player) {
		p.verify = on
	}
}

// WithObserver attaches o to the root collection and, through it, to every
// view.
func WithObserver(o collection.Observer) Option {
	return func(p *Player) {
		p.observer = o
	}
}

// WithLogger sets the logger for step records (default: slog.Default()).
func WithLogger(logger *slog.Logger) Option {
	return func(p *Player) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// Player applies the steps of a script one at a time and prints the graph
// after each of them.
type Player struct {
	script   *Script
	out      io.Writer
	verify   bool
	observer collection.Observer
	logger   *slog.Logger

	scope *reactive.Scope
	graph *graph
	next  int
}

// NewPlayer builds the graph of s and prints its initial state to out.
func NewPlayer(s *Script, out io.Writer, opts ...Option) (*Player, error) {
	p := &Player{
		script: s,
		out:    out,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}

	copts := []collection.Option{collection.WithName(s.Collection)}
	if p.observer != nil {
		copts = append(copts, collection.WithObserver(p.observer))
	}
	p.scope = reactive.NewScope(nil)
	p.graph = build(s, collection.New(s.Initial, copts...), p.scope)

	name := s.Name
	if name == "" {
		name = s.Collection
	}
	fmt.Fprintf(out, "script %s: %d views, %d steps\n", name, len(s.Views), len(s.Steps))
	if err := p.report("initial"); err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

// Root returns the root collection.
func (p *Player) Root() *collection.Collection[int] {
	return p.graph.root
}

// Lists returns the root collection and every list-shaped view, in
// declaration order.
func (p *Player) Lists() []*collection.Collection[int] {
	var lists []*collection.Collection[int]
	for _, n := range p.graph.nodes {
		if n.list != nil {
			lists = append(lists, n.list)
		}
	}
	return lists
}

// Done reports whether every step has been applied.
func (p *Player) Done() bool {
	return p.next >= len(p.script.Steps)
}

// Step applies the next step. It returns false once the script is
// exhausted.
func (p *Player) Step() (bool, error) {
	if p.Done() {
		return false, nil
	}
	st := p.script.Steps[p.next]
	p.next++

	if err := p.apply(st); err != nil {
		return false, p.script.errorAt("R300", st.pos.node).
			WithDetailf("step %d (%s) failed.", p.next, st).
			Wrap(err)
	}
	p.logger.Debug("applied step", "step", p.next, "op", st.Op, "len", p.graph.root.Len())

	if err := p.report(fmt.Sprintf("step %d: %s", p.next, st)); err != nil {
		return false, err
	}
	return true, nil
}

// Run applies every remaining step. It stops early when ctx is done.
func (p *Player) Run(ctx context.Context) error {
	for !p.Done() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := p.Step(); err != nil {
			return err
		}
	}
	return nil
}

// Rewind merges the initial content back into the root collection and
// restarts the steps.
func (p *Player) Rewind() error {
	p.next = 0
	if err := p.graph.root.Merge(p.script.Initial); err != nil {
		return errors.New("R300").WithDetail("rewind failed.").Wrap(err)
	}
	return p.report("rewind")
}

// Close detaches every view.
func (p *Player) Close() {
	p.scope.Cancel()
}

func (p *Player) apply(st Step) error {
	root := p.graph.root
	var err error
	switch st.Op {
	case OpPush:
		err = root.Push(st.Items...)
	case OpUnshift:
		err = root.Unshift(st.Items...)
	case OpInsert:
		err = root.InsertAt(st.Index, st.Items...)
	case OpPop:
		_, err = root.Pop()
	case OpShift:
		_, err = root.Shift()
	case OpRemoveAt:
		_, err = root.RemoveAt(st.Index)
	case OpRemoveRange:
		_, err = root.RemoveRange(st.Index, st.Count)
	case OpRemoveLeft:
		_, err = root.RemoveLeft(st.Count)
	case OpRemoveRight:
		_, err = root.RemoveRight(st.Count)
	case OpSet:
		err = root.SetAt(st.Index, st.Value)
	case OpSwap:
		err = root.Swap(st.Index, st.To)
	case OpClear:
		err = root.Clear()
	case OpMerge:
		err = root.Merge(st.Items)
	default:
		err = fmt.Errorf("unknown op %q", st.Op)
	}
	return err
}

// report prints every node under title and verifies when enabled.
func (p *Player) report(title string) error {
	width := 0
	for _, n := range p.graph.nodes {
		width = max(width, len(n.name))
	}

	fmt.Fprintf(p.out, "\n%s\n", title)
	for _, n := range p.graph.nodes {
		fmt.Fprintf(p.out, "  %-*s  %s\n", width, n.name, n.render())
	}

	if !p.verify {
		return nil
	}
	if err := p.check(); err != nil {
		return err
	}
	fmt.Fprintf(p.out, "  verified %d views\n", len(p.graph.nodes)-1)
	return nil
}

// check rebuilds the graph from the current root content and compares every
// view with its rebuilt twin.
func (p *Player) check() error {
	scope := reactive.NewScope(nil)
	defer scope.Cancel()

	root := collection.New(p.graph.root.ToSlice(), collection.WithName(p.script.Collection))
	fresh := build(p.script, root, scope)

	for i, n := range p.graph.nodes {
		got, want := n.render(), fresh.nodes[i].render()
		if got != want {
			return errors.New("R301").
				WithDetailf("view %q is %s; recomputed from %v it is %s.", n.name, got, root.ToSlice(), want)
		}
	}
	return nil
}
