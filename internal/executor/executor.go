// Package executor runs plans against a live world state and replans when
// reality diverges from the plan.
//
// Each installed plan is driven as a behaviour tree: a sequence whose leaves
// are the plan's actions. A leaf re-checks its action's preconditions against
// the live state, executes it, and on success replaces the live state with the
// action's effects applied. A failing leaf fails the sequence, which moves the
// executor into Replanning. The replan counter bounds recovery: once it
// reaches the configured maximum, execution ends in Failure.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	bt "github.com/joeycumines/go-behaviortree"
	"github.com/joeycumines/go-goap/internal/goap"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/joeycumines/go-goap/internal/executor"

// State is the executor's control state.
type State int

const (
	// Idle: no plan installed yet.
	Idle State = iota
	// Running: consuming the current plan's actions.
	Running
	// Replanning: the current plan failed and a new one is being made.
	Replanning
	// Success is terminal: the goal was reached.
	Success
	// Failure is terminal: see Outcome.Err.
	Failure
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Replanning:
		return "replanning"
	case Success:
		return "success"
	case Failure:
		return "failure"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Terminal reports whether s is Success or Failure.
func (s State) Terminal() bool { return s == Success || s == Failure }

// PlanCreator makes plans. *planner.Planner implements it.
type PlanCreator interface {
	CreatePlan(ctx context.Context, ws *goap.WorldState, goal *goap.Goal, actions []goap.Action) (*goap.Plan, bool)
}

// Outcome is the result of Execute.
type Outcome struct {
	Success bool
	// Replans is the number of times the executor entered Replanning.
	Replans int
	// Plan is the last installed plan, if any.
	Plan *goap.Plan
	// State is a copy of the final live world state.
	State *goap.WorldState
	// Err explains a failure; its kind is one of planning_failure,
	// replan_exhausted or cancelled.
	Err error
}

// Executor owns the live world state and drives plans against it.
//
// An Executor runs at most once and is not safe for concurrent use. Its query
// methods may be called from an Observer.
type Executor struct {
	planner PlanCreator
	goal    *goap.Goal
	actions []goap.Action

	maxReplans int
	observers  []Observer
	logger     *slog.Logger
	tracer     trace.Tracer
	now        func() time.Time

	live    *goap.WorldState
	state   State
	plan    *goap.Plan
	replans int
	history []ReplanRecord
	// failure is set by the leaf that failed the current plan.
	failure *goap.Error
	err     error
}

// New creates an Executor that will pursue goal from a copy of ws.
func New(planner PlanCreator, ws *goap.WorldState, goal *goap.Goal, actions []goap.Action, opts ...Option) (*Executor, error) {
	if planner == nil {
		return nil, goap.NewError(goap.KindInvalidRequest, "nil planner")
	}
	if ws == nil {
		return nil, goap.NewError(goap.KindInvalidRequest, "nil world state")
	}
	if goal == nil {
		return nil, goap.NewError(goap.KindInvalidRequest, "nil goal")
	}
	for i, a := range actions {
		if a == nil {
			return nil, goap.NewError(goap.KindInvalidRequest, "nil action at index %d", i)
		}
	}
	e := &Executor{
		planner:    planner,
		goal:       goal,
		actions:    append([]goap.Action(nil), actions...),
		maxReplans: DefaultMaxReplans,
		logger:     slog.Default(),
		tracer:     otel.Tracer(tracerName),
		now:        time.Now,
		live:       ws.Copy(),
	}
	for _, opt := range opts {
		if err := opt.applyOption(e); err != nil {
			return nil, err
		}
	}
	e.logger = e.logger.With("component", "executor")
	return e, nil
}

// State returns the current control state.
func (e *Executor) State() State { return e.state }

// WorldState returns a copy of the live world state.
func (e *Executor) WorldState() *goap.WorldState { return e.live.Copy() }

// Plan returns the installed plan, or nil.
func (e *Executor) Plan() *goap.Plan { return e.plan }

// Replans returns the replan counter.
func (e *Executor) Replans() int { return e.replans }

// MaxReplans returns the replan budget.
func (e *Executor) MaxReplans() int { return e.maxReplans }

// History returns a copy of the replan history.
func (e *Executor) History() []ReplanRecord {
	return append([]ReplanRecord(nil), e.history...)
}

// Execute plans, runs and replans until the goal is reached or recovery is
// exhausted. Failures are reported in the Outcome, never as panics. Calling
// Execute again after it has finished returns the same Outcome.
func (e *Executor) Execute(ctx context.Context) Outcome {
	if e.state.Terminal() {
		return e.outcome()
	}

	ctx, span := e.tracer.Start(ctx, "Executor.Execute", trace.WithAttributes(
		attribute.String("goap.goal", e.goal.String()),
		attribute.Int("goap.max_replans", e.maxReplans),
	))
	defer func() {
		span.SetAttributes(
			attribute.String("goap.state", e.state.String()),
			attribute.Int("goap.replans", e.replans),
		)
		if e.err != nil {
			span.RecordError(e.err)
			span.SetStatus(codes.Error, e.err.Error())
		}
		span.End()
	}()

	if err := ctx.Err(); err != nil {
		return e.finish(ctx, goap.WrapError(goap.KindCancelled, err, "execution cancelled before planning"))
	}

	plan, ok := e.planner.CreatePlan(ctx, e.live, e.goal, e.actions)
	if !ok {
		return e.finish(ctx, goap.NewError(goap.KindPlanningFailure, "no plan reaches %s", e.goal).
			WithContext("state", e.live.String()))
	}
	e.install(ctx, plan)

	for {
		if e.runPlan(ctx) {
			return e.finish(ctx, nil)
		}

		cause := e.failure
		if cause.Kind == goap.KindCancelled {
			return e.finish(ctx, cause)
		}

		e.state = Replanning
		e.replans++
		record := ReplanRecord{
			Attempt:   e.replans,
			Trigger:   cause.Kind,
			ActionID:  cause.ActionID,
			Message:   cause.Message,
			OldPlanID: e.plan.ID(),
			Timestamp: e.now(),
		}
		e.logger.InfoContext(ctx, "replanning",
			"attempt", e.replans,
			"max_replans", e.maxReplans,
			"trigger", cause.Kind,
			"action", cause.ActionID,
			"state", e.live.String())
		e.emit(Event{Type: EventReplanTriggered, PlanID: e.plan.ID(), ActionID: cause.ActionID, Message: cause.Message})

		if e.replans >= e.maxReplans {
			e.history = append(e.history, record)
			e.emit(Event{Type: EventReplanExhausted, PlanID: e.plan.ID(), Message: fmt.Sprintf("maximum number of replans reached (%d)", e.maxReplans)})
			return e.finish(ctx, goap.WrapError(goap.KindReplanExhausted, cause,
				"maximum number of replans reached (%d)", e.maxReplans).
				WithAction(cause.ActionID))
		}

		next, ok := e.planner.CreatePlan(ctx, e.live, e.goal, e.actions)
		if !ok {
			e.history = append(e.history, record)
			e.emit(Event{Type: EventReplanExhausted, PlanID: e.plan.ID(), Message: "no alternative plan"})
			return e.finish(ctx, goap.WrapError(goap.KindReplanExhausted, cause,
				"replan %d found no plan", e.replans).
				WithAction(cause.ActionID).
				WithContext("state", e.live.String()))
		}
		record.NewPlanID = next.ID()
		e.history = append(e.history, record)
		e.install(ctx, next)
	}
}

func (e *Executor) install(ctx context.Context, plan *goap.Plan) {
	e.plan = plan
	e.state = Running
	e.failure = nil
	e.logger.InfoContext(ctx, "plan installed",
		"plan_id", plan.ID(),
		"actions", plan.ActionIDs(),
		"cost", plan.Cost(),
		"replans", e.replans)
	e.emit(Event{Type: EventPlanInstalled, PlanID: plan.ID(), Message: plan.String()})
}

// runPlan ticks the installed plan as a sequence. It reports whether every
// action succeeded; otherwise e.failure explains why.
func (e *Executor) runPlan(ctx context.Context) bool {
	plan := e.plan
	leaves := make([]bt.Node, 0, plan.Len())
	for _, action := range plan.Actions() {
		leaves = append(leaves, e.leaf(ctx, plan, action))
	}
	status, err := bt.New(bt.Sequence, leaves...).Tick()
	if err != nil {
		// leaves never return errors; treat one as an execution failure
		e.failure = goap.WrapError(goap.KindExecutionFailure, err, "behaviour tree error")
		return false
	}
	return status == bt.Success
}

func (e *Executor) leaf(ctx context.Context, plan *goap.Plan, action goap.Action) bt.Node {
	return bt.New(func([]bt.Node) (bt.Status, error) {
		if err := ctx.Err(); err != nil {
			e.failure = goap.WrapError(goap.KindCancelled, err, "execution cancelled").WithAction(action.ID())
			return bt.Failure, nil
		}

		if !action.CheckPreconditions(e.live) {
			unmet := goap.Unsatisfied(e.live, action.Preconditions())
			e.failure = goap.NewError(goap.KindPreconditionViolation,
				"preconditions not met for %s: %s", action.Name(), describe(unmet)).
				WithAction(action.ID())
			e.logger.WarnContext(ctx, "preconditions not met",
				"plan_id", plan.ID(),
				"action", action.ID(),
				"unmet", describe(unmet))
			e.emit(Event{Type: EventPreconditionFailed, PlanID: plan.ID(), ActionID: action.ID(), Message: e.failure.Message})
			return bt.Failure, nil
		}

		e.logger.DebugContext(ctx, "executing action",
			"plan_id", plan.ID(),
			"action", action.ID(),
			"critical", action.Critical())
		e.emit(Event{Type: EventActionStarted, PlanID: plan.ID(), ActionID: action.ID(), Message: action.Name()})

		actx, span := e.tracer.Start(ctx, "Executor.Action", trace.WithAttributes(
			attribute.String("goap.action.id", action.ID()),
			attribute.String("goap.action.name", action.Name()),
			attribute.Float64("goap.action.cost", action.Cost()),
			attribute.Bool("goap.action.critical", action.Critical()),
			attribute.String("goap.plan.id", plan.ID()),
		))
		result := action.Execute(actx, e.live)
		if !result.Success {
			span.SetStatus(codes.Error, result.Message)
			span.End()
			if err := ctx.Err(); err != nil {
				e.failure = goap.WrapError(goap.KindCancelled, err, "cancelled during %s", action.Name()).WithAction(action.ID())
				return bt.Failure, nil
			}
			e.failure = goap.NewError(goap.KindExecutionFailure, "%s", failureMessage(action, result)).
				WithAction(action.ID())
			e.logger.WarnContext(ctx, "action failed",
				"plan_id", plan.ID(),
				"action", action.ID(),
				"message", result.Message)
			e.emit(Event{Type: EventActionFailed, PlanID: plan.ID(), ActionID: action.ID(), Message: e.failure.Message})
			return bt.Failure, nil
		}
		span.End()

		e.live = action.ApplyEffects(e.live)
		e.emit(Event{Type: EventActionSucceeded, PlanID: plan.ID(), ActionID: action.ID(), Message: action.Name()})
		return bt.Success, nil
	})
}

func (e *Executor) finish(ctx context.Context, err *goap.Error) Outcome {
	if err == nil {
		e.state = Success
		e.logger.InfoContext(ctx, "execution succeeded", "replans", e.replans, "state", e.live.String())
		e.emit(Event{Type: EventSucceeded, PlanID: e.planID()})
		return e.outcome()
	}
	e.state = Failure
	e.err = err
	e.logger.InfoContext(ctx, "execution failed",
		"kind", err.Kind,
		"error", err.Error(),
		"replans", e.replans,
		"state", e.live.String())
	e.emit(Event{Type: EventFailed, PlanID: e.planID(), ActionID: err.ActionID, Message: err.Error()})
	return e.outcome()
}

func (e *Executor) outcome() Outcome {
	return Outcome{
		Success: e.state == Success,
		Replans: e.replans,
		Plan:    e.plan,
		State:   e.live.Copy(),
		Err:     e.err,
	}
}

func (e *Executor) planID() string {
	if e.plan == nil {
		return ""
	}
	return e.plan.ID()
}

func (e *Executor) emit(ev Event) {
	if len(e.observers) == 0 {
		return
	}
	ev.Replans = e.replans
	ev.Time = e.now()
	for _, o := range e.observers {
		o.OnEvent(ev)
	}
}

func failureMessage(action goap.Action, result goap.ActionResult) string {
	if result.Message != "" {
		return result.Message
	}
	return "failed to execute action: " + action.Name()
}

func describe(conds []goap.Condition) string {
	out := make([]string, len(conds))
	for i, c := range conds {
		out[i] = goap.DescribeCondition(c)
	}
	return fmt.Sprint(out)
}
