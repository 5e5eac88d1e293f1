package script

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/reactive/internal/errors"
)

// DefaultCollection is the root collection name when a script sets none.
const DefaultCollection = "nums"

// View types.
const (
	TypeFilter  = "filter"
	TypeMap     = "map"
	TypeSort    = "sort"
	TypeReverse = "reverse"
	TypeSlice   = "slice"
	TypeUnique  = "unique"
	TypeFlatten = "flatten"
	TypeGroupBy = "groupBy"
	TypeIndexBy = "indexBy"
)

var viewTypes = []string{
	TypeFilter, TypeMap, TypeSort, TypeReverse, TypeSlice,
	TypeUnique, TypeFlatten, TypeGroupBy, TypeIndexBy,
}

// Step operations.
const (
	OpPush        = "push"
	OpUnshift     = "unshift"
	OpInsert      = "insert"
	OpPop         = "pop"
	OpShift       = "shift"
	OpRemoveAt    = "removeAt"
	OpRemoveRange = "removeRange"
	OpRemoveLeft  = "removeLeft"
	OpRemoveRight = "removeRight"
	OpSet         = "set"
	OpSwap        = "swap"
	OpClear       = "clear"
	OpMerge       = "merge"
)

var stepOps = []string{
	OpPush, OpUnshift, OpInsert, OpPop, OpShift, OpRemoveAt, OpRemoveRange,
	OpRemoveLeft, OpRemoveRight, OpSet, OpSwap, OpClear, OpMerge,
}

// Script is a parsed mutation script.
type Script struct {
	Name       string `yaml:"name"`
	Collection string `yaml:"collection"`
	Initial    []int  `yaml:"initial"`
	Views      []View `yaml:"views"`
	Steps      []Step `yaml:"steps"`

	// file is the path the script was loaded from, used in error locations.
	file string
}

// View declares one derived view.
type View struct {
	Name   string `yaml:"name"`
	Type   string `yaml:"type"`
	Source string `yaml:"source"`

	// Fn names the builtin used by filter, map, flatten, groupBy and indexBy.
	Fn string `yaml:"fn"`

	// Order is asc (default) or desc for sort views.
	Order string `yaml:"order"`

	// Start and End bound a slice view; a missing End is unbounded.
	Start int  `yaml:"start"`
	End   *int `yaml:"end"`

	pos positions
}

// Step is one mutation of the root collection.
type Step struct {
	Op    string `yaml:"op"`
	Items []int  `yaml:"items"`
	Index int    `yaml:"index"`
	To    int    `yaml:"to"`
	Count int    `yaml:"count"`
	Value int    `yaml:"value"`

	pos positions
}

// position is a line and column in the script source.
type position struct {
	line, col int
}

// positions records where a mapping and each of its values start.
type positions struct {
	node   position
	fields map[string]position
}

func (p positions) of(field string) position {
	if at, ok := p.fields[field]; ok {
		return at
	}
	return p.node
}

var (
	viewFields = fieldSet("name", "type", "source", "fn", "order", "start", "end")
	stepFields = fieldSet("op", "items", "index", "to", "count", "value")
)

func fieldSet(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

// scan checks the keys of a mapping node and records their positions.
func scan(node *yaml.Node, known map[string]bool) (positions, error) {
	p := positions{
		node:   position{node.Line, node.Column},
		fields: make(map[string]position),
	}
	if node.Kind != yaml.MappingNode {
		return p, fmt.Errorf("line %d: expected a mapping", node.Line)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		if !known[key.Value] {
			return p, fmt.Errorf("line %d: field %s not found", key.Line, key.Value)
		}
		p.fields[key.Value] = position{val.Line, val.Column}
	}
	return p, nil
}

// UnmarshalYAML decodes a view and records its source positions.
func (v *View) UnmarshalYAML(node *yaml.Node) error {
	pos, err := scan(node, viewFields)
	if err != nil {
		return err
	}
	type plain View
	if err := node.Decode((*plain)(v)); err != nil {
		return err
	}
	v.pos = pos
	return nil
}

// UnmarshalYAML decodes a step and records its source positions.
func (s *Step) UnmarshalYAML(node *yaml.Node) error {
	pos, err := scan(node, stepFields)
	if err != nil {
		return err
	}
	type plain Step
	if err := node.Decode((*plain)(s)); err != nil {
		return err
	}
	s.pos = pos
	return nil
}

// Line returns the line the step starts on.
func (s Step) Line() int {
	return s.pos.node.line
}

// String renders the step the way the player prints it.
func (s Step) String() string {
	switch s.Op {
	case OpPush, OpUnshift, OpMerge:
		return fmt.Sprintf("%s %v", s.Op, s.Items)
	case OpInsert:
		return fmt.Sprintf("%s %v at %d", s.Op, s.Items, s.Index)
	case OpRemoveAt:
		return fmt.Sprintf("%s %d", s.Op, s.Index)
	case OpRemoveRange:
		return fmt.Sprintf("%s %d+%d", s.Op, s.Index, s.Count)
	case OpRemoveLeft, OpRemoveRight:
		return fmt.Sprintf("%s %d", s.Op, s.Count)
	case OpSet:
		return fmt.Sprintf("%s %d = %d", s.Op, s.Index, s.Value)
	case OpSwap:
		return fmt.Sprintf("%s %d %d", s.Op, s.Index, s.To)
	default:
		return s.Op
	}
}

// Load reads and validates the script at path.
func Load(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("R200").WithDetailf("No script at %s.", path)
		}
		return nil, errors.New("R201").Wrap(err)
	}
	return Parse(data, path)
}

// Parse decodes and validates a script. file is only used to locate errors.
func Parse(data []byte, file string) (*Script, error) {
	s := &Script{file: file}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(s); err != nil {
		if stderrors.Is(err, io.EOF) {
			return nil, errors.New("R201").WithDetail("The script is empty.")
		}
		return nil, errors.New("R201").Wrap(err)
	}

	if s.Collection == "" {
		s.Collection = DefaultCollection
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// File returns the path the script was loaded from.
func (s *Script) File() string {
	return s.file
}

func (s *Script) errorAt(code string, at position) *errors.Error {
	e := errors.New(code)
	if s.file != "" && at.line > 0 {
		e.WithLocation(s.file, at.line, at.col)
	}
	return e
}

// validate resolves every name a view or step refers to.
func (s *Script) validate() error {
	// lists maps every declared name to whether it is list-shaped.
	lists := map[string]bool{s.Collection: true}

	for i := range s.Views {
		v := &s.Views[i]
		if v.Name == "" {
			return s.errorAt("R206", v.pos.node).
				WithDetailf("views[%d] has no name.", i)
		}
		if _, dup := lists[v.Name]; dup {
			return s.errorAt("R206", v.pos.of("name")).
				WithDetailf("%q is already declared.", v.Name)
		}

		if v.Source == "" {
			v.Source = s.Collection
		}
		isList, ok := lists[v.Source]
		if !ok {
			return s.errorAt("R203", v.pos.of("source")).
				WithSuggestion(fmt.Sprintf("Declare %q before %q or read from %q", v.Source, v.Name, s.Collection))
		}
		if !isList {
			return s.errorAt("R203", v.pos.of("source")).
				WithDetailf("%q is a %s view; views can only read from list views.", v.Source, s.typeOf(v.Source))
		}

		if err := s.validateView(v); err != nil {
			return err
		}
		lists[v.Name] = v.Type != TypeGroupBy && v.Type != TypeIndexBy
	}

	for i := range s.Steps {
		if err := s.validateStep(&s.Steps[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Script) typeOf(name string) string {
	for _, v := range s.Views {
		if v.Name == name {
			return v.Type
		}
	}
	return "list"
}

func (s *Script) validateView(v *View) error {
	needFn := func(table []string, ok bool) error {
		if ok {
			return nil
		}
		return s.errorAt("R204", v.pos.of("fn")).
			WithDetailf("%s views take fn: one of %s; got %q.", v.Type, strings.Join(table, ", "), v.Fn)
	}

	switch v.Type {
	case TypeFilter:
		_, ok := predicates[v.Fn]
		return needFn(names(predicates), ok)
	case TypeMap, TypeGroupBy, TypeIndexBy:
		_, ok := mappers[v.Fn]
		return needFn(names(mappers), ok)
	case TypeFlatten:
		_, ok := expanders[v.Fn]
		return needFn(names(expanders), ok)
	case TypeSort:
		switch v.Order {
		case "":
			v.Order = "asc"
		case "asc", "desc":
		default:
			return s.errorAt("R205", v.pos.of("order")).
				WithDetailf("order must be asc or desc, got %q.", v.Order)
		}
	case TypeSlice:
		if v.Start < 0 || (v.End != nil && *v.End < v.Start) {
			return s.errorAt("R205", v.pos.of("start")).
				WithDetailf("slice window [%d, %s) is invalid.", v.Start, v.endString())
		}
	case TypeReverse, TypeUnique:
	default:
		return s.errorAt("R202", v.pos.of("type")).
			WithSuggestion("Use one of: " + strings.Join(viewTypes, ", "))
	}
	return nil
}

func (v View) endString() string {
	if v.End == nil {
		return "end"
	}
	return fmt.Sprint(*v.End)
}

func (s *Script) validateStep(st *Step) error {
	for _, op := range stepOps {
		if st.Op == op {
			return nil
		}
	}
	return s.errorAt("R205", st.pos.of("op")).
		WithDetailf("unknown op %q.", st.Op).
		WithSuggestion("Use one of: " + strings.Join(stepOps, ", "))
}
