package executor

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/joeycumines/go-goap/internal/goap"
	"github.com/joeycumines/go-goap/internal/pathfinder"
	"github.com/joeycumines/go-goap/internal/planner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newPlanner(t *testing.T) *planner.Planner {
	t.Helper()
	pf, err := pathfinder.New()
	require.NoError(t, err)
	return planner.New(pf)
}

// recorder collects events and the ids of executed actions.
type recorder struct {
	events   []Event
	executed []string
}

func (r *recorder) OnEvent(ev Event) {
	r.events = append(r.events, ev)
	if ev.Type == EventActionStarted {
		r.executed = append(r.executed, ev.ActionID)
	}
}

func (r *recorder) types() []EventType {
	out := make([]EventType, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}

func newExecutor(t *testing.T, ws *goap.WorldState, goal *goap.Goal, actions []goap.Action, opts ...Option) (*Executor, *recorder) {
	t.Helper()
	rec := new(recorder)
	e, err := New(newPlanner(t), ws, goal, actions, append([]Option{WithObserver(rec)}, opts...)...)
	require.NoError(t, err)
	return e, rec
}

func TestExecute_Success(t *testing.T) {
	t.Parallel()

	actions := []goap.Action{
		goap.NewActionBuilder("a").Sets("a", true).Build(),
		goap.NewActionBuilder("b").Requires(goap.Equal("a", true)).Sets("done", true).Build(),
	}
	e, rec := newExecutor(t, goap.NewWorldState(), goap.NewGoal(map[string]any{"done": true}), actions)
	require.Equal(t, Idle, e.State())

	out := e.Execute(context.Background())
	require.True(t, out.Success)
	require.NoError(t, out.Err)
	require.Equal(t, 0, out.Replans)
	require.Equal(t, Success, e.State())
	require.Equal(t, true, out.State.Value("done"))
	require.Equal(t, true, e.WorldState().Value("done"))
	require.Empty(t, e.History())
	require.Equal(t, []string{"a", "b"}, rec.executed)
	require.Equal(t, []EventType{
		EventPlanInstalled,
		EventActionStarted, EventActionSucceeded,
		EventActionStarted, EventActionSucceeded,
		EventSucceeded,
	}, rec.types())

	// a finished executor reports the same outcome
	again := e.Execute(context.Background())
	require.True(t, again.Success)
	require.Same(t, out.Plan, again.Plan)
	require.Len(t, rec.executed, 2)
}

func TestExecute_GoalAlreadySatisfied(t *testing.T) {
	t.Parallel()

	e, rec := newExecutor(t, goap.WorldStateFrom(map[string]any{"done": true}), goap.NewGoal(map[string]any{"done": true}), nil)
	out := e.Execute(context.Background())
	require.True(t, out.Success)
	require.True(t, out.Plan.Empty())
	require.Empty(t, rec.executed)
}

func TestExecute_FailsOnceThenSucceeds(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	flaky := goap.NewActionBuilder("flaky").Sets("done", true).
		Executes(func(context.Context, *goap.WorldState) goap.ActionResult {
			if calls.Add(1) == 1 {
				return goap.Failed("transient")
			}
			return goap.Succeeded(nil)
		}).Build()

	e, rec := newExecutor(t, goap.NewWorldState(), goap.NewGoal(map[string]any{"done": true}), []goap.Action{flaky})
	out := e.Execute(context.Background())
	require.True(t, out.Success)
	require.Equal(t, 1, out.Replans)
	require.Equal(t, []string{"flaky", "flaky"}, rec.executed)

	h := e.History()
	require.Len(t, h, 1)
	assert.Equal(t, 1, h[0].Attempt)
	assert.Equal(t, goap.KindExecutionFailure, h[0].Trigger)
	assert.Equal(t, "flaky", h[0].ActionID)
	assert.Equal(t, "transient", h[0].Message)
	assert.NotEmpty(t, h[0].OldPlanID)
	assert.NotEmpty(t, h[0].NewPlanID)
	assert.NotEqual(t, h[0].OldPlanID, h[0].NewPlanID)
	assert.False(t, h[0].Timestamp.IsZero())
}

func TestExecute_FallsBackToCostlierAlternative(t *testing.T) {
	t.Parallel()

	var fastCalls, slowCalls atomic.Int32
	fast := goap.NewActionBuilder("fast").
		Requires(goap.NotEqual("fastFailed", true)).
		Sets("done", true).
		Cost(1).
		Executes(func(_ context.Context, ws *goap.WorldState) goap.ActionResult {
			if fastCalls.Add(1) == 1 {
				ws.Set("fastFailed", true)
				return goap.Failed("fast path broke")
			}
			return goap.Succeeded(nil)
		}).Build()
	slow := goap.NewActionBuilder("slow").
		Sets("done", true).
		Cost(3).
		Executes(func(context.Context, *goap.WorldState) goap.ActionResult {
			slowCalls.Add(1)
			return goap.Succeeded(nil)
		}).Build()

	e, rec := newExecutor(t, goap.NewWorldState(), goap.NewGoal(map[string]any{"done": true}), []goap.Action{slow, fast})
	out := e.Execute(context.Background())
	require.True(t, out.Success)
	require.Equal(t, 1, out.Replans)
	require.LessOrEqual(t, out.Replans, e.MaxReplans())
	require.Equal(t, []string{"fast", "slow"}, rec.executed)
	require.Equal(t, []string{"slow"}, out.Plan.ActionIDs())
	require.Equal(t, int32(1), fastCalls.Load())
	require.Equal(t, int32(1), slowCalls.Load())
	// the fact recorded by the failed execution survives on the live state
	require.Equal(t, true, out.State.Value("fastFailed"))
}

func TestExecute_PreconditionDriftTriggersReplan(t *testing.T) {
	t.Parallel()

	var drifted atomic.Bool
	a := goap.NewActionBuilder("a").Sets("a", true).
		Executes(func(_ context.Context, ws *goap.WorldState) goap.ActionResult {
			if !drifted.Swap(true) {
				ws.Set("door", "locked")
			}
			return goap.Succeeded(nil)
		}).Build()
	b := goap.NewActionBuilder("b").
		Requires(goap.Equal("a", true), goap.NotEqual("door", "locked")).
		Sets("done", true).Build()
	unlock := goap.NewActionBuilder("unlock").
		Requires(goap.Equal("door", "locked")).
		Sets("door", "open").Build()

	e, rec := newExecutor(t, goap.NewWorldState(), goap.NewGoal(map[string]any{"done": true}), []goap.Action{a, b, unlock})
	out := e.Execute(context.Background())
	require.True(t, out.Success)
	require.Equal(t, 1, out.Replans)
	require.Equal(t, []string{"a", "unlock", "b"}, rec.executed)
	require.Contains(t, rec.types(), EventPreconditionFailed)

	h := e.History()
	require.Len(t, h, 1)
	require.Equal(t, goap.KindPreconditionViolation, h[0].Trigger)
	require.Equal(t, "b", h[0].ActionID)
}

func TestExecute_ReplanBudgetExhausted(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	broken := goap.NewActionBuilder("broken").Sets("done", true).
		Executes(func(context.Context, *goap.WorldState) goap.ActionResult {
			calls.Add(1)
			return goap.Failed("always broken")
		}).Build()

	e, rec := newExecutor(t, goap.NewWorldState(), goap.NewGoal(map[string]any{"done": true}), []goap.Action{broken})
	out := e.Execute(context.Background())
	require.False(t, out.Success)
	require.Equal(t, Failure, e.State())
	require.ErrorIs(t, out.Err, goap.ErrReplanExhausted)
	require.ErrorIs(t, out.Err, goap.ErrExecutionFailure)
	require.Equal(t, DefaultMaxReplans, out.Replans)
	// the initial plan plus two replacements
	require.Equal(t, int32(DefaultMaxReplans), calls.Load())

	h := e.History()
	require.Len(t, h, DefaultMaxReplans)
	require.NotEmpty(t, h[0].NewPlanID)
	require.NotEmpty(t, h[1].NewPlanID)
	require.Empty(t, h[2].NewPlanID)
	require.Equal(t, EventFailed, rec.types()[len(rec.events)-1])
	require.Contains(t, rec.types(), EventReplanExhausted)
}

func TestExecute_CustomReplanBudget(t *testing.T) {
	t.Parallel()

	broken := goap.NewActionBuilder("broken").Sets("done", true).
		Executes(func(context.Context, *goap.WorldState) goap.ActionResult {
			return goap.Failed("nope")
		}).Build()

	e, rec := newExecutor(t, goap.NewWorldState(), goap.NewGoal(map[string]any{"done": true}), []goap.Action{broken}, WithMaxReplans(0))
	out := e.Execute(context.Background())
	require.ErrorIs(t, out.Err, goap.ErrReplanExhausted)
	require.Equal(t, 1, out.Replans)
	require.Len(t, rec.executed, 1)
}

func TestExecute_NoInitialPlan(t *testing.T) {
	t.Parallel()

	e, rec := newExecutor(t, goap.NewWorldState(), goap.NewGoal(map[string]any{"done": true}), nil)
	out := e.Execute(context.Background())
	require.False(t, out.Success)
	require.ErrorIs(t, out.Err, goap.ErrPlanningFailure)
	require.Nil(t, out.Plan)
	require.Equal(t, 0, out.Replans)
	require.Equal(t, []EventType{EventFailed}, rec.types())
}

func TestExecute_ReplanFindsNoPlan(t *testing.T) {
	t.Parallel()

	sabotage := goap.NewActionBuilder("sabotage").
		Requires(goap.NotEqual("broken", true)).
		Sets("done", true).
		Executes(func(_ context.Context, ws *goap.WorldState) goap.ActionResult {
			ws.Set("broken", true)
			return goap.Failed("it broke")
		}).Build()

	e, _ := newExecutor(t, goap.NewWorldState(), goap.NewGoal(map[string]any{"done": true}), []goap.Action{sabotage})
	out := e.Execute(context.Background())
	require.False(t, out.Success)
	require.ErrorIs(t, out.Err, goap.ErrReplanExhausted)
	require.ErrorIs(t, out.Err, goap.ErrExecutionFailure)
	require.Equal(t, 1, out.Replans)
	require.Equal(t, true, out.State.Value("broken"))

	var gerr *goap.Error
	require.ErrorAs(t, out.Err, &gerr)
	require.Equal(t, "sabotage", gerr.ActionID)
}

func TestExecute_CancelledBeforeStart(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e, rec := newExecutor(t, goap.NewWorldState(), goap.NewGoal(map[string]any{"done": true}),
		[]goap.Action{goap.NewActionBuilder("a").Sets("done", true).Build()})
	out := e.Execute(ctx)
	require.False(t, out.Success)
	require.ErrorIs(t, out.Err, goap.ErrCancelled)
	require.ErrorIs(t, out.Err, context.Canceled)
	require.Empty(t, rec.executed)
}

func TestExecute_CancelledMidPlan(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	actions := []goap.Action{
		goap.NewActionBuilder("first").Sets("a", true).
			Executes(func(context.Context, *goap.WorldState) goap.ActionResult {
				cancel()
				return goap.Succeeded(nil)
			}).Build(),
		goap.NewActionBuilder("second").Requires(goap.Equal("a", true)).Sets("done", true).Build(),
	}
	e, rec := newExecutor(t, goap.NewWorldState(), goap.NewGoal(map[string]any{"done": true}), actions)
	out := e.Execute(ctx)
	require.False(t, out.Success)
	require.ErrorIs(t, out.Err, goap.ErrCancelled)
	require.Equal(t, 0, out.Replans)
	require.Equal(t, []string{"first"}, rec.executed)
	// completed actions keep their effects
	require.Equal(t, true, out.State.Value("a"))
}

func TestExecute_CancelledDuringAction(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	slow := goap.NewActionBuilder("slow").Sets("done", true).
		Executes(func(ctx context.Context, _ *goap.WorldState) goap.ActionResult {
			cancel()
			<-ctx.Done()
			return goap.Failed("interrupted")
		}).Build()

	e, _ := newExecutor(t, goap.NewWorldState(), goap.NewGoal(map[string]any{"done": true}), []goap.Action{slow})
	out := e.Execute(ctx)
	require.ErrorIs(t, out.Err, goap.ErrCancelled)
	require.Equal(t, 0, out.Replans)
	require.Empty(t, e.History())
}

func TestNew_OwnsACopyOfTheState(t *testing.T) {
	t.Parallel()

	ws := goap.WorldStateFrom(map[string]any{"x": 1})
	e, _ := newExecutor(t, ws, goap.NewGoal(nil), nil)
	ws.Set("x", 2)
	require.Equal(t, float64(1), e.WorldState().Value("x"))

	view := e.WorldState()
	view.Set("x", 3)
	require.Equal(t, float64(1), e.WorldState().Value("x"))
}

func TestNew_InvalidRequests(t *testing.T) {
	t.Parallel()

	p := newPlanner(t)
	goal := goap.NewGoal(nil)
	ws := goap.NewWorldState()

	_, err := New(nil, ws, goal, nil)
	require.ErrorIs(t, err, goap.ErrInvalidRequest)
	_, err = New(p, nil, goal, nil)
	require.ErrorIs(t, err, goap.ErrInvalidRequest)
	_, err = New(p, ws, nil, nil)
	require.ErrorIs(t, err, goap.ErrInvalidRequest)
	_, err = New(p, ws, goal, []goap.Action{nil})
	require.ErrorIs(t, err, goap.ErrInvalidRequest)
	_, err = New(p, ws, goal, nil, WithMaxReplans(-1))
	require.Error(t, err)
	_, err = New(p, ws, goal, nil, WithObserver(nil))
	require.Error(t, err)
}

func TestEvents_CarryReplanCountAndClock(t *testing.T) {
	t.Parallel()

	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	var calls atomic.Int32
	flaky := goap.NewActionBuilder("flaky").Sets("done", true).
		Executes(func(context.Context, *goap.WorldState) goap.ActionResult {
			if calls.Add(1) == 1 {
				return goap.Failed("once")
			}
			return goap.Succeeded(nil)
		}).Build()

	e, rec := newExecutor(t, goap.NewWorldState(), goap.NewGoal(map[string]any{"done": true}), []goap.Action{flaky},
		withClock(func() time.Time { return fixed }))
	require.True(t, e.Execute(context.Background()).Success)

	for _, ev := range rec.events {
		require.Equal(t, fixed, ev.Time)
	}
	first, last := rec.events[0], rec.events[len(rec.events)-1]
	require.Equal(t, 0, first.Replans)
	require.Equal(t, 1, last.Replans)
	require.Equal(t, fixed, e.History()[0].Timestamp)
}

func TestExecute_RecordsSpans(t *testing.T) {
	t.Parallel()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

	actions := []goap.Action{
		goap.NewActionBuilder("a").Sets("a", true).Critical(true).Build(),
		goap.NewActionBuilder("b").Requires(goap.Equal("a", true)).Sets("done", true).Build(),
	}
	e, _ := newExecutor(t, goap.NewWorldState(), goap.NewGoal(map[string]any{"done": true}), actions,
		WithTracer(tp.Tracer("test")))
	require.True(t, e.Execute(context.Background()).Success)

	var names []string
	for _, s := range sr.Ended() {
		names = append(names, s.Name())
	}
	require.Equal(t, []string{"Executor.Action", "Executor.Action", "Executor.Execute"}, names)
}

func TestState_String(t *testing.T) {
	tests := map[State]string{
		Idle:       "idle",
		Running:    "running",
		Replanning: "replanning",
		Success:    "success",
		Failure:    "failure",
		State(42):  "State(42)",
	}
	for s, want := range tests {
		if got := s.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", int(s), got, want)
		}
	}
	if !Success.Terminal() || !Failure.Terminal() || Running.Terminal() {
		t.Error("unexpected Terminal result")
	}
}
