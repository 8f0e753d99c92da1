package goap

import "fmt"

// Heuristic estimates the remaining cost from a state to a goal. Estimates
// must be non-negative.
type Heuristic interface {
	Estimate(ws *WorldState, goal *Goal, actions []Action) float64
}

// HeuristicFunc adapts a function to Heuristic.
type HeuristicFunc func(ws *WorldState, goal *Goal, actions []Action) float64

func (f HeuristicFunc) Estimate(ws *WorldState, goal *Goal, actions []Action) float64 {
	return f(ws, goal, actions)
}

// UnsatisfiedConditions counts the goal conditions that do not hold. It is the
// default heuristic: cheap, but only admissible when every action that fixes a
// condition costs at least 1.
type UnsatisfiedConditions struct{}

func (UnsatisfiedConditions) Estimate(ws *WorldState, goal *Goal, _ []Action) float64 {
	var n int
	for _, c := range goal.conditions {
		if !ws.Satisfies(c) {
			n++
		}
	}
	return float64(n)
}

// Zero always estimates 0, turning A* into uniform-cost search. It is
// admissible for every cost structure.
type Zero struct{}

func (Zero) Estimate(*WorldState, *Goal, []Action) float64 { return 0 }

// Heuristic names accepted by HeuristicByName.
const (
	HeuristicUnsatisfied = "unsatisfied"
	HeuristicZero        = "zero"
)

// HeuristicByName resolves a configured heuristic name.
func HeuristicByName(name string) (Heuristic, error) {
	switch name {
	case "", HeuristicUnsatisfied:
		return UnsatisfiedConditions{}, nil
	case HeuristicZero:
		return Zero{}, nil
	default:
		return nil, fmt.Errorf("goap: unknown heuristic %q", name)
	}
}
