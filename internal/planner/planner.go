// Package planner turns a state, goal and action set into a goap.Plan, and
// checks plans against a state by simulation.
package planner

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joeycumines/go-goap/internal/goap"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/joeycumines/go-goap/internal/planner"

// PathFinder searches for an action sequence. *pathfinder.Pathfinder
// implements it.
type PathFinder interface {
	FindPath(ctx context.Context, start *goap.WorldState, goal *goap.Goal, actions []goap.Action) ([]goap.Action, bool)
}

// Planner wraps a PathFinder. It is stateless and safe for concurrent use.
type Planner struct {
	finder PathFinder
	logger *slog.Logger
	tracer trace.Tracer
}

// Option configures a Planner.
type Option func(*Planner)

// WithLogger sets the logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Planner) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithTracer sets the tracer used for planning spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(p *Planner) {
		if tracer != nil {
			p.tracer = tracer
		}
	}
}

// New creates a Planner around finder.
func New(finder PathFinder, opts ...Option) *Planner {
	if finder == nil {
		panic("planner.New: finder cannot be nil")
	}
	p := &Planner{finder: finder, logger: slog.Default(), tracer: otel.Tracer(tracerName)}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With("component", "planner")
	return p
}

// CreatePlan returns a plan leading from ws to goal.
//
// If goal already holds in ws the plan is empty and no search is performed.
// The boolean is false when no plan exists within the search bound, or when
// ws or goal is nil.
func (p *Planner) CreatePlan(ctx context.Context, ws *goap.WorldState, goal *goap.Goal, actions []goap.Action) (*goap.Plan, bool) {
	if ws == nil || goal == nil {
		p.logger.ErrorContext(ctx, "create plan called without state or goal")
		return nil, false
	}

	ctx, span := p.tracer.Start(ctx, "Planner.CreatePlan", trace.WithAttributes(
		attribute.String("goap.goal", goal.String()),
		attribute.Int("goap.actions", len(actions)),
	))
	defer span.End()

	if goal.IsSatisfied(ws) {
		plan := goap.NewPlan(nil)
		span.SetAttributes(
			attribute.String("goap.plan.id", plan.ID()),
			attribute.Bool("goap.plan.trivial", true),
		)
		p.logger.DebugContext(ctx, "goal already satisfied", "plan_id", plan.ID())
		return plan, true
	}

	path, ok := p.finder.FindPath(ctx, ws, goal, actions)
	if !ok {
		span.SetAttributes(attribute.Bool("goap.plan.found", false))
		p.logger.InfoContext(ctx, "no plan found", "goal", goal.String(), "state", ws.String())
		return nil, false
	}

	plan := goap.NewPlan(path)
	span.SetAttributes(
		attribute.Bool("goap.plan.found", true),
		attribute.String("goap.plan.id", plan.ID()),
		attribute.Int("goap.plan.length", plan.Len()),
		attribute.Float64("goap.plan.cost", plan.Cost()),
	)
	p.logger.InfoContext(ctx, "plan created",
		"plan_id", plan.ID(),
		"actions", plan.ActionIDs(),
		"cost", plan.Cost())
	return plan, true
}

// IsPlanValid reports whether plan, simulated from ws, reaches goal.
func IsPlanValid(plan *goap.Plan, ws *goap.WorldState, goal *goap.Goal) bool {
	return CheckPlan(plan, ws, goal) == nil
}

// CheckPlan simulates plan against a copy of ws and explains the first
// problem found. It never calls Execute and never mutates ws.
//
// A nil plan is invalid, and an empty plan is valid iff goal already holds.
func CheckPlan(plan *goap.Plan, ws *goap.WorldState, goal *goap.Goal) error {
	if plan == nil {
		return goap.NewError(goap.KindInvalidRequest, "no plan")
	}
	if goal == nil {
		return goap.NewError(goap.KindInvalidRequest, "no goal")
	}
	sim := ws.Copy()
	for i, action := range plan.Actions() {
		if !action.CheckPreconditions(sim) {
			unmet := goap.Unsatisfied(sim, action.Preconditions())
			return goap.NewError(goap.KindPreconditionViolation,
				"step %d: preconditions not met: %s", i+1, describe(unmet)).
				WithAction(action.ID())
		}
		sim = action.ApplyEffects(sim)
	}
	if !goal.IsSatisfied(sim) {
		unmet := goap.Unsatisfied(sim, goal.Conditions())
		return goap.NewError(goap.KindPlanningFailure, "goal not reached: %s", describe(unmet)).
			WithContext("final_state", sim.String())
	}
	return nil
}

func describe(conds []goap.Condition) string {
	out := make([]string, len(conds))
	for i, c := range conds {
		out[i] = goap.DescribeCondition(c)
	}
	return fmt.Sprint(out)
}
