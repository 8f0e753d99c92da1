// Package pizzabot is a small restaurant domain for the planner: a bot that
// takes an order, checks ingredients, makes the dough, tops, bakes and serves
// a pizza, replanning when the kitchen lets it down.
package pizzabot

import (
	"context"
	"log/slog"
	"time"

	"github.com/joeycumines/go-goap/internal/executor"
	"github.com/joeycumines/go-goap/internal/goap"
	"github.com/joeycumines/go-goap/internal/pathfinder"
	"github.com/joeycumines/go-goap/internal/planner"
)

// Config configures a Bot. The zero value serves a Margherita from a full
// inventory without faults or delays.
type Config struct {
	Order     PizzaType
	Inventory Inventory
	Faults    FaultInjector
	// BakeTimeScale is the real time slept per nominal minute of baking.
	BakeTimeScale time.Duration

	Heuristic     goap.Heuristic
	MaxIterations int
	// MaxReplans of zero selects executor.DefaultMaxReplans. Pass
	// executor.WithMaxReplans(0) in ExecutorOptions to forbid replanning.
	MaxReplans int
	Observers  []executor.Observer
	// ExecutorOptions are applied after the options derived from the fields
	// above.
	ExecutorOptions []executor.Option
	Logger          *slog.Logger
}

// Bot wires the pizza domain to a planner and executor.
type Bot struct {
	kitchen *Kitchen
	planner *planner.Planner
	config  Config
	logger  *slog.Logger
}

// InitialState is a customer at the counter.
func InitialState() *goap.WorldState {
	return goap.WorldStateFrom(map[string]any{PropCustomerPresent: true})
}

// Goal is a served pizza.
func Goal() *goap.Goal {
	return goap.NewGoal(map[string]any{PropPizzaServed: true})
}

// New creates a Bot.
func New(cfg Config) (*Bot, error) {
	if cfg.Order == "" {
		cfg.Order = Margherita
	}
	if _, err := ParsePizzaType(string(cfg.Order)); err != nil {
		return nil, goap.WrapError(goap.KindInvalidRequest, err, "invalid order")
	}
	if cfg.Inventory == nil {
		cfg.Inventory = FullInventory()
	}
	if cfg.Faults == nil {
		cfg.Faults = NoFaults
	}
	if cfg.MaxReplans == 0 {
		cfg.MaxReplans = executor.DefaultMaxReplans
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "pizzabot")

	var pfOpts []pathfinder.Option
	if cfg.Heuristic != nil {
		pfOpts = append(pfOpts, pathfinder.WithHeuristic(cfg.Heuristic))
	}
	if cfg.MaxIterations > 0 {
		pfOpts = append(pfOpts, pathfinder.WithMaxIterations(cfg.MaxIterations))
	}
	pfOpts = append(pfOpts, pathfinder.WithLogger(logger))
	pf, err := pathfinder.New(pfOpts...)
	if err != nil {
		return nil, err
	}

	return &Bot{
		kitchen: &Kitchen{
			Order:         cfg.Order,
			Inventory:     cfg.Inventory,
			Faults:        cfg.Faults,
			BakeTimeScale: cfg.BakeTimeScale,
			Logger:        logger,
		},
		planner: planner.New(pf, planner.WithLogger(logger)),
		config:  cfg,
		logger:  logger,
	}, nil
}

// Actions returns the bot's action set.
func (b *Bot) Actions() []goap.Action { return b.kitchen.Actions() }

// Plan computes the plan the bot would follow from a fresh start.
func (b *Bot) Plan(ctx context.Context) (*goap.Plan, bool) {
	return b.planner.CreatePlan(ctx, InitialState(), Goal(), b.Actions())
}

// Serve runs one order to completion.
func (b *Bot) Serve(ctx context.Context) (executor.Outcome, []executor.ReplanRecord, error) {
	opts := []executor.Option{
		executor.WithMaxReplans(b.config.MaxReplans),
		executor.WithLogger(b.logger),
	}
	for _, o := range b.config.Observers {
		opts = append(opts, executor.WithObserver(o))
	}
	opts = append(opts, b.config.ExecutorOptions...)
	exec, err := executor.New(b.planner, InitialState(), Goal(), b.Actions(), opts...)
	if err != nil {
		return executor.Outcome{}, nil, err
	}
	b.logger.InfoContext(ctx, "serving order", "pizza", b.kitchen.Order)
	out := exec.Execute(ctx)
	if out.Success {
		b.logger.InfoContext(ctx, "pizza served", "replans", out.Replans)
	} else {
		b.logger.WarnContext(ctx, "failed to serve pizza", "error", out.Err)
	}
	return out, exec.History(), nil
}
