package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/joeycumines/go-goap/internal/executor"
	"github.com/joeycumines/go-goap/internal/goap"
	"github.com/joeycumines/go-goap/internal/pizzabot"
)

func newPizzaCmd(a *app) *cobra.Command {
	var (
		pizzaType string
		failDough int
		missing   []string
		bakeScale time.Duration
		planOnly  bool
	)
	cmd := &cobra.Command{
		Use:   "pizza",
		Short: "Run the pizza bot demo",
		Long: `Serve one pizza with the pizza bot.

--fail-dough makes fresh dough fail that many times, forcing a replan onto
premade dough. --missing removes ingredients from the inventory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			order, err := pizzabot.ParsePizzaType(pizzaType)
			if err != nil {
				return err
			}
			inv := pizzabot.FullInventory()
			for _, m := range missing {
				inv[m] = false
			}
			h, err := goap.HeuristicByName(a.cfg.Planner.Heuristic)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			cfg := pizzabot.Config{
				Order:         order,
				Inventory:     inv,
				BakeTimeScale: bakeScale,
				Heuristic:     h,
				MaxIterations: a.cfg.Planner.MaxIterations,
				Observers:     []executor.Observer{narrator{out: out, logger: a.logger}},
				ExecutorOptions: []executor.Option{
					executor.WithMaxReplans(a.cfg.Executor.MaxReplans),
				},
				Logger: a.logger,
			}
			if failDough > 0 {
				cfg.Faults = pizzabot.FailFirst(pizzabot.ActionPrepareDough, failDough)
			}
			bot, err := pizzabot.New(cfg)
			if err != nil {
				return err
			}

			if planOnly {
				plan, found := bot.Plan(cmd.Context())
				if !found {
					return goap.NewError(goap.KindPlanningFailure, "no plan serves a %s", order)
				}
				_, err := fmt.Fprintf(out, "%scost: %g\n", plan, plan.Cost())
				return err
			}

			fmt.Fprintf(out, "order: %s (%s)\n", order, strings.Join(order.Toppings(), ", "))
			outcome, history, err := bot.Serve(cmd.Context())
			if err != nil {
				return err
			}
			report(out, outcome, history)
			return outcome.Err
		},
	}
	names := make([]string, 0, len(pizzabot.Menu()))
	for _, p := range pizzabot.Menu() {
		names = append(names, string(p))
	}
	f := cmd.Flags()
	f.StringVarP(&pizzaType, "type", "t", string(pizzabot.Margherita), "pizza to serve ("+strings.Join(names, ", ")+")")
	f.IntVar(&failDough, "fail-dough", 0, "fail fresh dough preparation this many times")
	f.StringSliceVar(&missing, "missing", nil, "ingredients to remove from the inventory")
	f.DurationVar(&bakeScale, "bake-scale", 0, "real time slept per minute of baking")
	f.BoolVar(&planOnly, "plan", false, "print the plan without executing it")
	return cmd
}
