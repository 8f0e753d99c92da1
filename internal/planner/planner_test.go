package planner

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/joeycumines/go-goap/internal/goap"
	"github.com/joeycumines/go-goap/internal/pathfinder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type countingFinder struct {
	calls atomic.Int32
	next  PathFinder
}

func (f *countingFinder) FindPath(ctx context.Context, start *goap.WorldState, goal *goap.Goal, actions []goap.Action) ([]goap.Action, bool) {
	f.calls.Add(1)
	return f.next.FindPath(ctx, start, goal, actions)
}

func newCountingPlanner(t *testing.T, opts ...Option) (*Planner, *countingFinder) {
	t.Helper()
	pf, err := pathfinder.New()
	require.NoError(t, err)
	cf := &countingFinder{next: pf}
	return New(cf, opts...), cf
}

func chain() []goap.Action {
	return []goap.Action{
		goap.NewActionBuilder("take_order").Requires(goap.Equal("customerPresent", true)).Sets("orderTaken", true).Build(),
		goap.NewActionBuilder("cook").Requires(goap.Equal("orderTaken", true)).Sets("cooked", true).Cost(2).Build(),
		goap.NewActionBuilder("serve").Requires(goap.Equal("cooked", true)).Sets("served", true).Build(),
	}
}

func TestCreatePlan_GoalAlreadySatisfiedSkipsSearch(t *testing.T) {
	t.Parallel()

	p, cf := newCountingPlanner(t)
	ws := goap.WorldStateFrom(map[string]any{"served": true})

	plan, ok := p.CreatePlan(context.Background(), ws, goap.NewGoal(map[string]any{"served": true}), chain())
	require.True(t, ok)
	require.True(t, plan.Empty())
	require.NotEmpty(t, plan.ID())
	require.Equal(t, int32(0), cf.calls.Load())
}

func TestCreatePlan_Found(t *testing.T) {
	t.Parallel()

	p, cf := newCountingPlanner(t)
	ws := goap.WorldStateFrom(map[string]any{"customerPresent": true})
	goal := goap.NewGoal(map[string]any{"served": true})

	plan, ok := p.CreatePlan(context.Background(), ws, goal, chain())
	require.True(t, ok)
	require.Equal(t, []string{"take_order", "cook", "serve"}, plan.ActionIDs())
	require.Equal(t, 4.0, plan.Cost())
	require.Equal(t, int32(1), cf.calls.Load())
	require.True(t, IsPlanValid(plan, ws, goal))

	again, ok := p.CreatePlan(context.Background(), ws, goal, chain())
	require.True(t, ok)
	require.NotEqual(t, plan.ID(), again.ID(), "every plan gets a fresh identity")
}

func TestCreatePlan_NotFound(t *testing.T) {
	t.Parallel()

	p, _ := newCountingPlanner(t)
	plan, ok := p.CreatePlan(context.Background(), goap.NewWorldState(), goap.NewGoal(map[string]any{"served": true}), chain())
	require.False(t, ok)
	require.Nil(t, plan)
}

func TestCreatePlan_NilInputs(t *testing.T) {
	t.Parallel()

	p, cf := newCountingPlanner(t)
	_, ok := p.CreatePlan(context.Background(), nil, goap.NewGoal(nil), nil)
	require.False(t, ok)
	_, ok = p.CreatePlan(context.Background(), goap.NewWorldState(), nil, nil)
	require.False(t, ok)
	require.Equal(t, int32(0), cf.calls.Load())
}

func TestIsPlanValid(t *testing.T) {
	t.Parallel()

	actions := chain()
	ws := goap.WorldStateFrom(map[string]any{"customerPresent": true})
	goal := goap.NewGoal(map[string]any{"served": true})

	require.False(t, IsPlanValid(nil, ws, goal))
	require.False(t, IsPlanValid(goap.NewPlan(nil), ws, goal))
	require.True(t, IsPlanValid(goap.NewPlan(nil), goap.WorldStateFrom(map[string]any{"served": true}), goal))

	// out of order
	bad := goap.NewPlan([]goap.Action{actions[1], actions[0], actions[2]})
	err := CheckPlan(bad, ws, goal)
	require.ErrorIs(t, err, goap.ErrPreconditionViolation)
	var gerr *goap.Error
	require.ErrorAs(t, err, &gerr)
	require.Equal(t, "cook", gerr.ActionID)
	require.Contains(t, gerr.Message, "orderTaken = true")

	// runs but stops short of the goal
	short := goap.NewPlan(actions[:2])
	err = CheckPlan(short, ws, goal)
	require.ErrorIs(t, err, goap.ErrPlanningFailure)
	require.False(t, IsPlanValid(short, ws, goal))

	require.ErrorIs(t, CheckPlan(goap.NewPlan(nil), ws, nil), goap.ErrInvalidRequest)
}

func TestIsPlanValid_NeverExecutesOrMutates(t *testing.T) {
	t.Parallel()

	var executed atomic.Bool
	a := goap.NewActionBuilder("a").Sets("done", true).
		Executes(func(context.Context, *goap.WorldState) goap.ActionResult {
			executed.Store(true)
			return goap.Succeeded(nil)
		}).Build()
	ws := goap.NewWorldState()

	require.True(t, IsPlanValid(goap.NewPlan([]goap.Action{a}), ws, goap.NewGoal(map[string]any{"done": true})))
	require.False(t, executed.Load())
	require.False(t, ws.Has("done"))
}

func TestCreatePlan_RecordsSpan(t *testing.T) {
	t.Parallel()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	pf, err := pathfinder.New(pathfinder.WithTracer(tp.Tracer("test")))
	require.NoError(t, err)
	p := New(pf, WithTracer(tp.Tracer("test")))

	ws := goap.WorldStateFrom(map[string]any{"customerPresent": true})
	plan, ok := p.CreatePlan(context.Background(), ws, goap.NewGoal(map[string]any{"served": true}), chain())
	require.True(t, ok)

	spans := sr.Ended()
	require.Len(t, spans, 2)
	// the search span ends first and is a child of the planning span
	search, create := spans[0], spans[1]
	assert.Equal(t, "Pathfinder.Search", search.Name())
	assert.Equal(t, "Planner.CreatePlan", create.Name())
	assert.Equal(t, create.SpanContext().SpanID(), search.Parent().SpanID())

	attrs := make(map[string]any)
	for _, kv := range create.Attributes() {
		attrs[string(kv.Key)] = kv.Value.AsInterface()
	}
	assert.Equal(t, plan.ID(), attrs["goap.plan.id"])
	assert.Equal(t, int64(3), attrs["goap.plan.length"])
}

func TestNew_NilFinderPanics(t *testing.T) {
	t.Parallel()
	require.Panics(t, func() { New(nil) })
}
