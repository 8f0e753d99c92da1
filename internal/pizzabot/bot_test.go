package pizzabot

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/joeycumines/go-goap/internal/executor"
	"github.com/joeycumines/go-goap/internal/goap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

type startedActions []string

func (s *startedActions) OnEvent(ev executor.Event) {
	if ev.Type == executor.EventActionStarted {
		*s = append(*s, ev.ActionID)
	}
}

func TestPlan_NoFaults(t *testing.T) {
	t.Parallel()

	bot, err := New(Config{Logger: quietLogger()})
	require.NoError(t, err)

	plan, ok := bot.Plan(context.Background())
	require.True(t, ok)
	assert.Equal(t, 10.0, plan.Cost())
	assert.Equal(t, []string{
		ActionTakeOrder,
		ActionCheckIngredients,
		ActionPrepareDough,
		ActionAddToppings,
		ActionBakePizza,
		ActionServePizza,
	}, plan.ActionIDs())
}

func TestServe_NoFaults(t *testing.T) {
	t.Parallel()

	var started startedActions
	bot, err := New(Config{Order: Pepperoni, Logger: quietLogger(), Observers: []executor.Observer{&started}})
	require.NoError(t, err)

	out, history, err := bot.Serve(context.Background())
	require.NoError(t, err)
	require.True(t, out.Success)
	require.Equal(t, 0, out.Replans)
	require.Empty(t, history)
	require.Equal(t, true, out.State.Value(PropPizzaServed))
	require.Equal(t, "Pepperoni", out.State.Value(PropPizzaType))
	require.NotContains(t, []string(started), ActionUsePremadeDough)
}

func TestServe_DoughFailureReplansToPremade(t *testing.T) {
	t.Parallel()

	var started startedActions
	bot, err := New(Config{
		Faults:    FailFirst(ActionPrepareDough, 1),
		Logger:    quietLogger(),
		Observers: []executor.Observer{&started},
	})
	require.NoError(t, err)

	out, history, err := bot.Serve(context.Background())
	require.NoError(t, err)
	require.True(t, out.Success)
	require.LessOrEqual(t, out.Replans, 3)
	require.Equal(t, 1, out.Replans)
	require.Equal(t, []string{
		ActionTakeOrder,
		ActionCheckIngredients,
		ActionPrepareDough,
		ActionUsePremadeDough,
		ActionAddToppings,
		ActionBakePizza,
		ActionServePizza,
	}, []string(started))
	require.Equal(t, []string{ActionUsePremadeDough, ActionAddToppings, ActionBakePizza, ActionServePizza}, out.Plan.ActionIDs())
	require.Equal(t, true, out.State.Value(PropDoughFailed))

	require.Len(t, history, 1)
	assert.Equal(t, goap.KindExecutionFailure, history[0].Trigger)
	assert.Equal(t, ActionPrepareDough, history[0].ActionID)
	assert.Equal(t, "the dough is too sticky", history[0].Message)
}

func TestServe_MissingIngredientsFails(t *testing.T) {
	t.Parallel()

	inv := FullInventory()
	inv["basil"] = false
	bot, err := New(Config{Inventory: inv, Logger: quietLogger()})
	require.NoError(t, err)

	out, history, err := bot.Serve(context.Background())
	require.NoError(t, err)
	require.False(t, out.Success)
	require.ErrorIs(t, out.Err, goap.ErrReplanExhausted)
	require.Equal(t, false, out.State.Value(PropIngredientsAvailable))
	require.Len(t, history, 1)
	require.Contains(t, history[0].Message, "basil")
}

func TestServe_PersistentFaultExhaustsReplans(t *testing.T) {
	t.Parallel()

	bot, err := New(Config{
		Faults: FailFirst(ActionAddToppings, 100),
		Logger: quietLogger(),
	})
	require.NoError(t, err)

	out, history, err := bot.Serve(context.Background())
	require.NoError(t, err)
	require.False(t, out.Success)
	require.ErrorIs(t, out.Err, goap.ErrReplanExhausted)
	require.Equal(t, executor.DefaultMaxReplans, out.Replans)
	require.Len(t, history, executor.DefaultMaxReplans)
}

func TestServe_BakingHonoursCancellation(t *testing.T) {
	t.Parallel()

	bot, err := New(Config{BakeTimeScale: time.Hour, Logger: quietLogger()})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
	defer cancel()

	out, _, err := bot.Serve(ctx)
	require.NoError(t, err)
	require.False(t, out.Success)
	require.ErrorIs(t, out.Err, goap.ErrCancelled)
	require.Equal(t, true, out.State.Value(PropToppingsAdded))
	require.Nil(t, out.State.Value(PropPizzaBaked))
}

func TestNew_RejectsUnknownPizza(t *testing.T) {
	t.Parallel()

	_, err := New(Config{Order: "Hawaiian"})
	require.ErrorIs(t, err, goap.ErrInvalidRequest)
}

func TestMenu(t *testing.T) {
	t.Parallel()

	require.Equal(t, []PizzaType{Margherita, Pepperoni, Vegetarian}, Menu())
	require.Equal(t, 8*time.Minute, Margherita.BakeTime())
	require.Equal(t, []string{"tomato sauce", "mozzarella", "basil"}, Margherita.Toppings())
	require.Contains(t, Vegetarian.Ingredients(), "onions")
	require.False(t, PizzaType("Hawaiian").Valid())

	p, err := ParsePizzaType("Vegetarian")
	require.NoError(t, err)
	require.Equal(t, Vegetarian, p)
	_, err = ParsePizzaType("Calzone")
	require.Error(t, err)

	inv := FullInventory()
	require.Empty(t, inv.Missing(Vegetarian))
	delete(inv, "onions")
	require.Equal(t, []string{"onions"}, inv.Missing(Vegetarian))
}

func TestFailFirst(t *testing.T) {
	t.Parallel()

	f := FailFirst(ActionPrepareDough, 2)
	require.False(t, f.ShouldFail(ActionBakePizza))
	require.True(t, f.ShouldFail(ActionPrepareDough))
	require.True(t, f.ShouldFail(ActionPrepareDough))
	require.False(t, f.ShouldFail(ActionPrepareDough))
	require.False(t, NoFaults.ShouldFail(ActionPrepareDough))
}
