// Package scenario loads planning domains from YAML.
//
// A scenario names an initial state, a goal and a list of declarative
// actions. Actions may carry an injected fault that makes their first few
// executions fail, optionally recording facts on the live state as they do.
package scenario

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"io"
	"maps"
	"math"
	"os"
	"path"
	"slices"
	"strings"
	"sync"

	"github.com/joeycumines/go-goap/internal/goap"
	"gopkg.in/yaml.v3"
)

//go:embed scenarios/*.yaml
var builtin embed.FS

// Condition operators.
const (
	OpEqual    = "eq"
	OpNotEqual = "ne"
	OpExpr     = "expr"
)

// File is the YAML document.
type File struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Initial     map[string]any `yaml:"initial"`
	Goal        map[string]any `yaml:"goal"`
	Actions     []ActionSpec   `yaml:"actions"`
}

// ActionSpec declares one action.
type ActionSpec struct {
	ID            string          `yaml:"id"`
	Name          string          `yaml:"name"`
	Cost          *float64        `yaml:"cost"`
	Critical      bool            `yaml:"critical"`
	Preconditions []ConditionSpec `yaml:"preconditions"`
	Effects       []EffectSpec    `yaml:"effects"`
	Fail          *FailSpec       `yaml:"fail"`
}

// ConditionSpec declares a precondition. Op defaults to "eq", or to "expr"
// when Expr is set. An eq condition without a value requires the key to be
// absent.
type ConditionSpec struct {
	Key   string `yaml:"key"`
	Op    string `yaml:"op"`
	Value any    `yaml:"value"`
	Expr  string `yaml:"expr"`
}

// EffectSpec assigns Value to Key. A null value removes the key.
type EffectSpec struct {
	Key   string `yaml:"key"`
	Value any    `yaml:"value"`
}

// FailSpec makes the first Times executions fail with Message, applying Set
// to the live state each time.
type FailSpec struct {
	Times   int            `yaml:"times"`
	Message string         `yaml:"message"`
	Set     map[string]any `yaml:"set"`
}

// Scenario is a loaded, validated domain. Fault counters live in the
// scenario's actions, so each load starts afresh.
type Scenario struct {
	Name        string
	Description string
	Initial     *goap.WorldState
	Goal        *goap.Goal
	Registry    *goap.ActionRegistry
}

// Actions returns the actions in declaration order.
func (s *Scenario) Actions() []goap.Action { return s.Registry.All() }

// Load reads a scenario file.
func Load(filename string) (*Scenario, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open scenario: %w", err)
	}
	defer f.Close()
	s, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", filename, err)
	}
	return s, nil
}

// Parse decodes a scenario from YAML.
func Parse(data []byte) (*Scenario, error) {
	return Decode(bytes.NewReader(data))
}

// Decode reads a scenario from r. Unknown fields are rejected.
func Decode(r io.Reader) (*Scenario, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var f File
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty scenario")
		}
		return nil, fmt.Errorf("decode scenario: %w", err)
	}
	return f.Build()
}

// Builtin loads an embedded scenario by name.
func Builtin(name string) (*Scenario, error) {
	data, err := builtin.ReadFile(path.Join("scenarios", name+".yaml"))
	if err != nil {
		return nil, fmt.Errorf("unknown builtin scenario %q (available: %s)", name, strings.Join(BuiltinNames(), ", "))
	}
	return Parse(data)
}

// BuiltinNames lists the embedded scenarios.
func BuiltinNames() []string {
	entries, _ := builtin.ReadDir("scenarios")
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	slices.Sort(names)
	return names
}

// Build validates f and constructs its state, goal and actions. Every
// problem found is reported.
func (f *File) Build() (*Scenario, error) {
	var errs []error

	initial := goap.NewWorldState()
	for _, k := range slices.Sorted(maps.Keys(f.Initial)) {
		if err := setValue(initial, k, f.Initial[k]); err != nil {
			errs = append(errs, fmt.Errorf("initial: %w", err))
		}
	}

	if len(f.Goal) == 0 {
		errs = append(errs, errors.New("goal: at least one property is required"))
	}
	for _, k := range slices.Sorted(maps.Keys(f.Goal)) {
		if _, err := goap.NormalizeValue(f.Goal[k]); err != nil {
			errs = append(errs, fmt.Errorf("goal: %s: %w", k, err))
		}
	}

	registry, _ := goap.NewActionRegistry()
	for i, spec := range f.Actions {
		a, err := spec.build()
		if err != nil {
			errs = append(errs, fmt.Errorf("actions[%d]: %w", i, err))
			continue
		}
		if err := registry.Register(a); err != nil {
			errs = append(errs, fmt.Errorf("actions[%d]: %w", i, err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return nil, goap.WrapError(goap.KindInvalidRequest, err, "invalid scenario %q", f.Name)
	}
	return &Scenario{
		Name:        f.Name,
		Description: f.Description,
		Initial:     initial,
		Goal:        goap.NewGoal(f.Goal),
		Registry:    registry,
	}, nil
}

func setValue(ws *goap.WorldState, key string, value any) error {
	v, err := goap.NormalizeValue(value)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	ws.Set(key, v)
	return nil
}

func (s ActionSpec) build() (goap.Action, error) {
	if s.ID == "" {
		return nil, errors.New("id is required")
	}
	cost := 1.0
	if s.Cost != nil {
		cost = *s.Cost
	}
	if cost < 0 || math.IsNaN(cost) || math.IsInf(cost, 0) {
		return nil, fmt.Errorf("%s: cost must be finite and non-negative, got %v", s.ID, cost)
	}

	pre := make([]goap.Condition, 0, len(s.Preconditions))
	for i, c := range s.Preconditions {
		cond, err := c.build()
		if err != nil {
			return nil, fmt.Errorf("%s: preconditions[%d]: %w", s.ID, i, err)
		}
		pre = append(pre, cond)
	}

	eff := make([]goap.Effect, 0, len(s.Effects))
	for i, e := range s.Effects {
		if e.Key == "" {
			return nil, fmt.Errorf("%s: effects[%d]: key is required", s.ID, i)
		}
		v, err := goap.NormalizeValue(e.Value)
		if err != nil {
			return nil, fmt.Errorf("%s: effects[%d]: %w", s.ID, i, err)
		}
		eff = append(eff, goap.Set(e.Key, v))
	}

	a := &scriptedAction{BaseAction: goap.NewBaseAction(s.ID, s.Name, pre, eff, cost, s.Critical)}
	if s.Fail != nil {
		if s.Fail.Times < 0 {
			return nil, fmt.Errorf("%s: fail.times must be non-negative", s.ID)
		}
		for _, k := range slices.Sorted(maps.Keys(s.Fail.Set)) {
			if _, err := goap.NormalizeValue(s.Fail.Set[k]); err != nil {
				return nil, fmt.Errorf("%s: fail.set: %s: %w", s.ID, k, err)
			}
		}
		a.remaining = s.Fail.Times
		a.message = s.Fail.Message
		a.set = s.Fail.Set
	}
	return a, nil
}

func (c ConditionSpec) build() (goap.Condition, error) {
	op := c.Op
	if op == "" {
		op = OpEqual
		if c.Expr != "" {
			op = OpExpr
		}
	}
	switch op {
	case OpEqual, OpNotEqual:
		if c.Key == "" {
			return nil, errors.New("key is required")
		}
		v, err := goap.NormalizeValue(c.Value)
		if err != nil {
			return nil, err
		}
		if op == OpEqual {
			return goap.Equal(c.Key, v), nil
		}
		return goap.NotEqual(c.Key, v), nil
	case OpExpr:
		return goap.NewExprCondition(c.Key, c.Expr)
	default:
		return nil, fmt.Errorf("unknown op %q (want %s, %s or %s)", op, OpEqual, OpNotEqual, OpExpr)
	}
}

// scriptedAction is a declarative action whose first executions may fail.
type scriptedAction struct {
	*goap.BaseAction

	mu        sync.Mutex
	remaining int
	message   string
	set       map[string]any
}

func (a *scriptedAction) Execute(ctx context.Context, ws *goap.WorldState) goap.ActionResult {
	if err := ctx.Err(); err != nil {
		return goap.Failed("%s: %v", a.Name(), err)
	}
	a.mu.Lock()
	fail := a.remaining > 0
	if fail {
		a.remaining--
	}
	a.mu.Unlock()
	if !fail {
		return goap.Succeeded(map[string]any{"actionName": a.Name()})
	}
	for _, k := range slices.Sorted(maps.Keys(a.set)) {
		ws.Set(k, a.set[k])
	}
	msg := a.message
	if msg == "" {
		msg = "injected failure: " + a.Name()
	}
	return goap.Failed("%s", msg)
}
