package goap

import (
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
)

// Plan is an identified, immutable, ordered sequence of actions.
type Plan struct {
	id      string
	actions []Action
}

// NewPlan wraps a copy of actions with a fresh identity.
func NewPlan(actions []Action) *Plan {
	return &Plan{id: uuid.NewString(), actions: slices.Clone(actions)}
}

// ID returns the plan's unique identity.
func (p *Plan) ID() string { return p.id }

// Actions returns a copy of the action sequence.
func (p *Plan) Actions() []Action { return slices.Clone(p.actions) }

// Action returns the i'th action.
func (p *Plan) Action(i int) Action { return p.actions[i] }

// Len returns the number of actions.
func (p *Plan) Len() int { return len(p.actions) }

// Empty reports whether the plan has no actions, meaning the goal already
// held when it was made.
func (p *Plan) Empty() bool { return len(p.actions) == 0 }

// Cost sums the action costs.
func (p *Plan) Cost() float64 { return TotalCost(p.actions) }

// ActionIDs returns the ids in order.
func (p *Plan) ActionIDs() []string {
	ids := make([]string, len(p.actions))
	for i, a := range p.actions {
		ids[i] = a.ID()
	}
	return ids
}

func (p *Plan) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Plan %s:\n", p.id)
	for i, a := range p.actions {
		fmt.Fprintf(&b, "%d. %s\n", i+1, a.Name())
	}
	return b.String()
}
