package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/joeycumines/go-goap/internal/executor"
	"github.com/joeycumines/go-goap/internal/goap"
	"github.com/joeycumines/go-goap/internal/pathfinder"
	"github.com/joeycumines/go-goap/internal/planner"
	"github.com/joeycumines/go-goap/internal/scenario"
)

// loadScenario treats arg as a file path if it exists, otherwise as a builtin
// scenario name.
func loadScenario(arg string) (*scenario.Scenario, error) {
	if _, err := os.Stat(arg); err == nil {
		return scenario.Load(arg)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	return scenario.Builtin(arg)
}

// newPlanner builds a planner from the loaded configuration.
func (a *app) newPlanner() (*planner.Planner, error) {
	h, err := goap.HeuristicByName(a.cfg.Planner.Heuristic)
	if err != nil {
		return nil, err
	}
	pf, err := pathfinder.New(
		pathfinder.WithHeuristic(h),
		pathfinder.WithMaxIterations(a.cfg.Planner.MaxIterations),
		pathfinder.WithLogger(a.logger),
	)
	if err != nil {
		return nil, err
	}
	return planner.New(pf, planner.WithLogger(a.logger)), nil
}

// planView is the serialised form of a plan.
type planView struct {
	Scenario string     `json:"scenario" yaml:"scenario"`
	Found    bool       `json:"found" yaml:"found"`
	ID       string     `json:"id,omitempty" yaml:"id,omitempty"`
	Cost     float64    `json:"cost" yaml:"cost"`
	Actions  []string   `json:"actions" yaml:"actions"`
	Steps    []stepView `json:"steps,omitempty" yaml:"steps,omitempty"`
}

// stepView explains one planned action.
type stepView struct {
	ID       string   `json:"id" yaml:"id"`
	Name     string   `json:"name" yaml:"name"`
	Cost     float64  `json:"cost" yaml:"cost"`
	Requires []string `json:"requires" yaml:"requires"`
	Effects  []string `json:"effects" yaml:"effects"`
}

// explain lists each planned action with its preconditions and effects.
func explain(plan *goap.Plan) []stepView {
	steps := make([]stepView, 0, plan.Len())
	for _, act := range plan.Actions() {
		step := stepView{
			ID:       act.ID(),
			Name:     act.Name(),
			Cost:     act.Cost(),
			Requires: []string{},
			Effects:  []string{},
		}
		for _, c := range act.Preconditions() {
			step.Requires = append(step.Requires, goap.DescribeCondition(c))
		}
		for _, e := range act.Effects() {
			step.Effects = append(step.Effects, fmt.Sprint(e))
		}
		steps = append(steps, step)
	}
	return steps
}

func writePlan(out io.Writer, format string, v planView, plan *goap.Plan) error {
	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(out)
		defer enc.Close()
		return enc.Encode(v)
	case "text", "":
		if !v.Found {
			_, err := fmt.Fprintf(out, "%s: no plan found\n", v.Scenario)
			return err
		}
		if v.Steps == nil {
			_, err := fmt.Fprintf(out, "%scost: %g\n", plan, v.Cost)
			return err
		}
		for i, st := range v.Steps {
			if _, err := fmt.Fprintf(out, "%d. %s [%s] cost %g\n   requires: %s\n   effects:  %s\n",
				i+1, st.Name, st.ID, st.Cost, strings.Join(st.Requires, ", "), strings.Join(st.Effects, ", ")); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unsupported output format %q (use text, json or yaml)", format)
	}
}

func newPlanCmd(a *app) *cobra.Command {
	var (
		output   string
		explainP bool
	)
	cmd := &cobra.Command{
		Use:   "plan SCENARIO",
		Short: "Compute the cheapest plan for a scenario without executing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := loadScenario(args[0])
			if err != nil {
				return err
			}
			p, err := a.newPlanner()
			if err != nil {
				return err
			}
			plan, found := p.CreatePlan(cmd.Context(), sc.Initial, sc.Goal, sc.Actions())
			v := planView{Scenario: sc.Name, Found: found, Actions: []string{}}
			if !found {
				if err := writePlan(cmd.OutOrStdout(), output, v, nil); err != nil {
					return err
				}
				return goap.NewError(goap.KindPlanningFailure, "no plan reaches %s", sc.Goal)
			}
			v.ID, v.Cost, v.Actions = plan.ID(), plan.Cost(), plan.ActionIDs()
			if explainP {
				v.Steps = explain(plan)
			}
			return writePlan(cmd.OutOrStdout(), output, v, plan)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format (text, json, yaml)")
	cmd.Flags().BoolVar(&explainP, "explain", false, "list each step's preconditions and effects")
	return cmd
}

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate SCENARIO",
		Short: "Check that a scenario loads and that its goal is reachable",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := loadScenario(args[0])
			if err != nil {
				return err
			}
			p, err := a.newPlanner()
			if err != nil {
				return err
			}
			plan, found := p.CreatePlan(cmd.Context(), sc.Initial, sc.Goal, sc.Actions())
			if !found {
				return goap.NewError(goap.KindPlanningFailure, "scenario %s: no plan reaches %s", sc.Name, sc.Goal)
			}
			if err := planner.CheckPlan(plan, sc.Initial, sc.Goal); err != nil {
				return fmt.Errorf("scenario %s: %w", sc.Name, err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%d actions, plan of %d steps, cost %g)\n",
				sc.Name, sc.Registry.Len(), plan.Len(), plan.Cost())
			return err
		},
	}
}

func newRunCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run SCENARIO",
		Short: "Plan and execute a scenario, replanning on failure",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := loadScenario(args[0])
			if err != nil {
				return err
			}
			p, err := a.newPlanner()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			exec, err := executor.New(p, sc.Initial, sc.Goal, sc.Actions(),
				executor.WithMaxReplans(a.cfg.Executor.MaxReplans),
				executor.WithObserver(narrator{out: out, logger: a.logger}),
				executor.WithLogger(a.logger),
			)
			if err != nil {
				return err
			}
			outcome := exec.Execute(cmd.Context())
			report(out, outcome, exec.History())
			return outcome.Err
		},
	}
}
