package goap

import (
	"context"
	"fmt"
	"maps"
	"math"
	"slices"
)

// Action is the capability a driver supplies for each unit of work the
// planner may schedule. Implementations must be immutable with respect to
// planning: ID, preconditions, effects, cost and criticality never change, and
// CheckPreconditions / ApplyEffects must not mutate their argument.
//
// Execute is the only place side effects happen. It runs against the live
// world state, may read and write it directly (for example to record a
// discovered fact), and reports success or failure.
type Action interface {
	ID() string
	Name() string
	Preconditions() []Condition
	Effects() []Effect
	Cost() float64

	// Critical marks an action that should not be interrupted part way
	// through. It is advisory; the executor reports it but does not enforce it.
	Critical() bool

	// CheckPreconditions reports whether every precondition holds in ws.
	CheckPreconditions(ws *WorldState) bool

	// ApplyEffects returns a copy of ws with the effects applied in order.
	ApplyEffects(ws *WorldState) *WorldState

	// Execute performs the real work against the live state.
	Execute(ctx context.Context, ws *WorldState) ActionResult
}

// ActionResult reports the outcome of Action.Execute.
type ActionResult struct {
	Success bool
	// Message explains a failure. It is kept for diagnostics and replan
	// history.
	Message string
	// Data is optional auxiliary output.
	Data map[string]any
}

// Succeeded returns a successful result carrying a copy of data.
func Succeeded(data map[string]any) ActionResult {
	return ActionResult{Success: true, Data: maps.Clone(data)}
}

// Failed returns a failed result with a formatted message.
func Failed(format string, args ...any) ActionResult {
	return ActionResult{Message: fmt.Sprintf(format, args...)}
}

func (r ActionResult) String() string {
	if r.Success {
		return fmt.Sprintf("Success: %v", r.Data)
	}
	return "Failure: " + r.Message
}

// BaseAction carries an action's planning metadata. Embed it and add an
// Execute method to implement Action.
type BaseAction struct {
	id            string
	name          string
	preconditions []Condition
	effects       []Effect
	cost          float64
	critical      bool
}

// NewBaseAction creates the planning half of an action.
//
// It panics if id is empty or cost is negative or not finite: both would
// corrupt search, so they are treated as programming errors.
func NewBaseAction(id, name string, preconditions []Condition, effects []Effect, cost float64, critical bool) *BaseAction {
	if id == "" {
		panic("goap.NewBaseAction: id cannot be empty")
	}
	if cost < 0 || math.IsNaN(cost) || math.IsInf(cost, 0) {
		panic(fmt.Sprintf("goap.NewBaseAction: invalid cost %v (action=%s)", cost, id))
	}
	if name == "" {
		name = id
	}
	return &BaseAction{
		id:            id,
		name:          name,
		preconditions: slices.Clone(preconditions),
		effects:       slices.Clone(effects),
		cost:          cost,
		critical:      critical,
	}
}

func (a *BaseAction) ID() string     { return a.id }
func (a *BaseAction) Name() string   { return a.name }
func (a *BaseAction) Cost() float64  { return a.cost }
func (a *BaseAction) Critical() bool { return a.critical }

// Preconditions returns a copy of the precondition list.
func (a *BaseAction) Preconditions() []Condition { return slices.Clone(a.preconditions) }

// Effects returns a copy of the effect list.
func (a *BaseAction) Effects() []Effect { return slices.Clone(a.effects) }

func (a *BaseAction) CheckPreconditions(ws *WorldState) bool {
	return AllSatisfied(ws, a.preconditions)
}

func (a *BaseAction) ApplyEffects(ws *WorldState) *WorldState {
	return ApplyEffects(ws, a.effects)
}

func (a *BaseAction) String() string {
	return fmt.Sprintf("%s [%s]", a.name, a.id)
}

// ExecuteFunc is the side-effecting half of a FuncAction.
type ExecuteFunc func(ctx context.Context, ws *WorldState) ActionResult

// FuncAction is an Action whose Execute delegates to a function. A nil
// function always succeeds.
type FuncAction struct {
	*BaseAction
	execute ExecuteFunc
}

var _ Action = (*FuncAction)(nil)

// NewFuncAction combines base with execute.
func NewFuncAction(base *BaseAction, execute ExecuteFunc) *FuncAction {
	return &FuncAction{BaseAction: base, execute: execute}
}

func (a *FuncAction) Execute(ctx context.Context, ws *WorldState) ActionResult {
	if a.execute == nil {
		return Succeeded(map[string]any{"actionName": a.Name()})
	}
	return a.execute(ctx, ws)
}

// ActionBuilder provides a fluent API for building FuncAction instances.
type ActionBuilder struct {
	id            string
	name          string
	preconditions []Condition
	effects       []Effect
	cost          float64
	critical      bool
	execute       ExecuteFunc
}

// NewActionBuilder starts an action with the given id and a default cost of 1.
func NewActionBuilder(id string) *ActionBuilder {
	return &ActionBuilder{id: id, cost: 1}
}

// Name sets the display name.
func (b *ActionBuilder) Name(name string) *ActionBuilder {
	b.name = name
	return b
}

// Requires appends preconditions (all must hold).
func (b *ActionBuilder) Requires(conds ...Condition) *ActionBuilder {
	b.preconditions = append(b.preconditions, conds...)
	return b
}

// Sets appends a SetEffect.
func (b *ActionBuilder) Sets(key string, value any) *ActionBuilder {
	b.effects = append(b.effects, Set(key, value))
	return b
}

// WithEffects appends arbitrary effects.
func (b *ActionBuilder) WithEffects(effects ...Effect) *ActionBuilder {
	b.effects = append(b.effects, effects...)
	return b
}

// Cost sets the non-negative action cost.
func (b *ActionBuilder) Cost(cost float64) *ActionBuilder {
	b.cost = cost
	return b
}

// Critical marks the action as not to be interrupted.
func (b *ActionBuilder) Critical(critical bool) *ActionBuilder {
	b.critical = critical
	return b
}

// Executes sets the side-effecting function.
func (b *ActionBuilder) Executes(fn ExecuteFunc) *ActionBuilder {
	b.execute = fn
	return b
}

// Build creates the FuncAction. It panics under the same conditions as
// NewBaseAction.
func (b *ActionBuilder) Build() *FuncAction {
	return NewFuncAction(
		NewBaseAction(b.id, b.name, b.preconditions, b.effects, b.cost, b.critical),
		b.execute,
	)
}

// TotalCost sums the cost of actions.
func TotalCost(actions []Action) float64 {
	var total float64
	for _, a := range actions {
		total += a.Cost()
	}
	return total
}
