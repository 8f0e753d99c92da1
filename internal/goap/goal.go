package goap

import (
	"slices"
	"strings"
)

// Goal is a conjunction of required property values.
//
// The equality conditions are derived once, in key order, when the goal is
// created.
type Goal struct {
	desired    map[string]Value
	keys       []string
	conditions []Condition
}

// NewGoal creates a goal from the desired (key, value) pairs. A nil value
// requires the key to be absent. It panics on unsupported value types.
func NewGoal(desired map[string]any) *Goal {
	g := &Goal{desired: make(map[string]Value, len(desired))}
	for k, v := range desired {
		g.desired[k] = mustNormalize(k, v)
		g.keys = append(g.keys, k)
	}
	slices.Sort(g.keys)
	g.conditions = make([]Condition, 0, len(g.keys))
	for _, k := range g.keys {
		g.conditions = append(g.conditions, &EqualCondition{key: k, expected: g.desired[k]})
	}
	return g
}

// IsSatisfied reports whether every required pair holds in ws.
func (g *Goal) IsSatisfied(ws *WorldState) bool {
	return AllSatisfied(ws, g.conditions)
}

// Conditions returns the derived equality conditions, in key order.
func (g *Goal) Conditions() []Condition {
	return slices.Clone(g.conditions)
}

// RequiredProperties returns the required keys, sorted.
func (g *Goal) RequiredProperties() []string {
	return slices.Clone(g.keys)
}

// DesiredValue returns the value required for key, and whether key is part of
// the goal at all.
func (g *Goal) DesiredValue(key string) (Value, bool) {
	v, ok := g.desired[key]
	return v, ok
}

// Len returns the number of required pairs.
func (g *Goal) Len() int {
	return len(g.keys)
}

func (g *Goal) String() string {
	parts := make([]string, 0, len(g.conditions))
	for _, c := range g.conditions {
		parts = append(parts, DescribeCondition(c))
	}
	return "Goal: {" + strings.Join(parts, ", ") + "}"
}
