package pizzabot

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/joeycumines/go-goap/internal/goap"
)

// World state properties used by the pizza domain.
const (
	PropCustomerPresent      = "customerPresent"
	PropOrderTaken           = "orderTaken"
	PropPizzaType            = "pizzaType"
	PropIngredientsChecked   = "ingredientsChecked"
	PropIngredientsAvailable = "ingredientsAvailable"
	PropDoughPrepared        = "doughPrepared"
	PropDoughFailed          = "doughPreparationFailed"
	PropToppingsAdded        = "toppingsAdded"
	PropPizzaBaked           = "pizzaBaked"
	PropPizzaServed          = "pizzaServed"
)

// Action ids.
const (
	ActionTakeOrder        = "take_order"
	ActionCheckIngredients = "check_ingredients"
	ActionPrepareDough     = "prepare_dough"
	ActionUsePremadeDough  = "use_premade_dough"
	ActionAddToppings      = "add_toppings"
	ActionBakePizza        = "bake_pizza"
	ActionServePizza       = "serve_pizza"
)

// Kitchen holds what the pizza actions act upon.
type Kitchen struct {
	// Order is the pizza the customer asks for.
	Order     PizzaType
	Inventory Inventory
	Faults    FaultInjector
	// BakeTimeScale is the real time slept per nominal minute of baking.
	// Zero skips the wait.
	BakeTimeScale time.Duration
	Logger        *slog.Logger
}

func (k *Kitchen) logger() *slog.Logger {
	if k.Logger != nil {
		return k.Logger
	}
	return slog.Default()
}

func (k *Kitchen) faulted(id string) bool {
	return k.Faults != nil && k.Faults.ShouldFail(id)
}

// Actions returns the pizza domain's actions in a stable order.
func (k *Kitchen) Actions() []goap.Action {
	return []goap.Action{
		&takeOrder{kitchenAction: k.action(ActionTakeOrder, "Take Order",
			[]goap.Condition{goap.Equal(PropCustomerPresent, true)},
			[]goap.Effect{goap.Set(PropOrderTaken, true), goap.Set(PropPizzaType, string(k.Order))},
			1, false)},
		&checkIngredients{kitchenAction: k.action(ActionCheckIngredients, "Check Ingredients",
			[]goap.Condition{goap.Equal(PropOrderTaken, true), goap.NotEqual(PropIngredientsChecked, true)},
			[]goap.Effect{goap.Set(PropIngredientsChecked, true), goap.Set(PropIngredientsAvailable, true)},
			1, false)},
		&prepareDough{kitchenAction: k.action(ActionPrepareDough, "Prepare Dough",
			[]goap.Condition{
				goap.Equal(PropIngredientsChecked, true),
				goap.Equal(PropIngredientsAvailable, true),
				goap.NotEqual(PropDoughFailed, true),
			},
			[]goap.Effect{goap.Set(PropDoughPrepared, true)},
			2, false)},
		&usePremadeDough{kitchenAction: k.action(ActionUsePremadeDough, "Use Premade Dough",
			[]goap.Condition{
				goap.Equal(PropIngredientsChecked, true),
				goap.Equal(PropIngredientsAvailable, true),
				goap.Equal(PropDoughFailed, true),
			},
			[]goap.Effect{goap.Set(PropDoughPrepared, true)},
			3, false)},
		&addToppings{kitchenAction: k.action(ActionAddToppings, "Add Toppings",
			[]goap.Condition{goap.Equal(PropDoughPrepared, true)},
			[]goap.Effect{goap.Set(PropToppingsAdded, true)},
			2, false)},
		&bakePizza{kitchenAction: k.action(ActionBakePizza, "Bake Pizza",
			[]goap.Condition{goap.Equal(PropToppingsAdded, true)},
			[]goap.Effect{goap.Set(PropPizzaBaked, true)},
			3, true)},
		&servePizza{kitchenAction: k.action(ActionServePizza, "Serve Pizza",
			[]goap.Condition{goap.Equal(PropPizzaBaked, true)},
			[]goap.Effect{goap.Set(PropPizzaServed, true)},
			1, false)},
	}
}

func (k *Kitchen) action(id, name string, pre []goap.Condition, eff []goap.Effect, cost float64, critical bool) kitchenAction {
	return kitchenAction{
		BaseAction: goap.NewBaseAction(id, name, pre, eff, cost, critical),
		kitchen:    k,
	}
}

// kitchenAction is the shared half of every pizza action.
type kitchenAction struct {
	*goap.BaseAction
	kitchen *Kitchen
}

func (a kitchenAction) say(ctx context.Context, msg string, args ...any) {
	a.kitchen.logger().InfoContext(ctx, msg, append([]any{"action", a.ID()}, args...)...)
}

func (a kitchenAction) done() goap.ActionResult {
	return goap.Succeeded(map[string]any{"actionName": a.Name()})
}

func pizzaType(ws *goap.WorldState) (PizzaType, bool) {
	s, _ := ws.Value(PropPizzaType).(string)
	p := PizzaType(s)
	return p, p.Valid()
}

type takeOrder struct{ kitchenAction }

func (a *takeOrder) Execute(ctx context.Context, _ *goap.WorldState) goap.ActionResult {
	a.say(ctx, "welcome, what kind of pizza would you like?", "menu", Menu())
	if a.kitchen.faulted(a.ID()) {
		return goap.Failed("customer walked away")
	}
	if !a.kitchen.Order.Valid() {
		return goap.Failed("unknown pizza type: %s", a.kitchen.Order)
	}
	a.say(ctx, "order received", "pizza", a.kitchen.Order)
	return a.done()
}

type checkIngredients struct{ kitchenAction }

// Execute records what it finds on the live state. The action succeeds only
// when everything is in stock; otherwise the recorded facts leave no plan.
func (a *checkIngredients) Execute(ctx context.Context, ws *goap.WorldState) goap.ActionResult {
	p, ok := pizzaType(ws)
	if !ok {
		return goap.Failed("unknown pizza type: %v", ws.Value(PropPizzaType))
	}
	if a.kitchen.faulted(a.ID()) {
		return goap.Failed("inventory system unavailable")
	}
	missing := a.kitchen.Inventory.Missing(p)
	ws.Set(PropIngredientsChecked, true)
	if len(missing) > 0 {
		ws.Set(PropIngredientsAvailable, false)
		a.say(ctx, "ingredients missing", "pizza", p, "missing", missing)
		return goap.Failed("missing ingredients: %s", strings.Join(missing, ", "))
	}
	ws.Set(PropIngredientsAvailable, true)
	a.say(ctx, "all ingredients available", "pizza", p)
	return a.done()
}

type prepareDough struct{ kitchenAction }

func (a *prepareDough) Execute(ctx context.Context, ws *goap.WorldState) goap.ActionResult {
	a.say(ctx, "mixing and kneading dough", "pizza", ws.Value(PropPizzaType))
	if a.kitchen.faulted(a.ID()) {
		// recorded so the planner stops offering this action
		ws.Set(PropDoughFailed, true)
		a.say(ctx, "the dough is too sticky")
		return goap.Failed("the dough is too sticky")
	}
	a.say(ctx, "dough ready")
	return a.done()
}

type usePremadeDough struct{ kitchenAction }

func (a *usePremadeDough) Execute(ctx context.Context, ws *goap.WorldState) goap.ActionResult {
	if a.kitchen.faulted(a.ID()) {
		return goap.Failed("no premade dough left")
	}
	a.say(ctx, "using premade dough", "pizza", ws.Value(PropPizzaType))
	return a.done()
}

type addToppings struct{ kitchenAction }

func (a *addToppings) Execute(ctx context.Context, ws *goap.WorldState) goap.ActionResult {
	p, ok := pizzaType(ws)
	if !ok {
		return goap.Failed("unknown pizza type: %v", ws.Value(PropPizzaType))
	}
	if a.kitchen.faulted(a.ID()) {
		return goap.Failed("dropped the toppings")
	}
	for i, topping := range p.Toppings() {
		a.say(ctx, "adding topping", "step", i+1, "topping", topping)
	}
	return a.done()
}

type bakePizza struct{ kitchenAction }

func (a *bakePizza) Execute(ctx context.Context, ws *goap.WorldState) goap.ActionResult {
	p, ok := pizzaType(ws)
	if !ok {
		return goap.Failed("unknown pizza type: %v", ws.Value(PropPizzaType))
	}
	if a.kitchen.faulted(a.ID()) {
		return goap.Failed("oven failed to heat")
	}
	a.say(ctx, "baking", "pizza", p, "minutes", p.BakeTime().Minutes())
	if wait := time.Duration(p.BakeTime().Minutes() * float64(a.kitchen.BakeTimeScale)); wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return goap.Failed("baking interrupted: %v", ctx.Err())
		case <-timer.C:
		}
	}
	a.say(ctx, "pizza is done baking")
	return a.done()
}

type servePizza struct{ kitchenAction }

func (a *servePizza) Execute(ctx context.Context, ws *goap.WorldState) goap.ActionResult {
	if a.kitchen.faulted(a.ID()) {
		return goap.Failed("dropped the pizza")
	}
	a.say(ctx, "here's your pizza, enjoy", "pizza", ws.Value(PropPizzaType))
	return a.done()
}
