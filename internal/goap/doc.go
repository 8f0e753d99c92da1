// Package goap holds the data model of the goal-oriented action planner:
// world states, the conditions and effects that read and write them, the
// Action capability supplied by drivers, goals, plans, and the heuristics used
// to guide search.
//
// Architecture:
//
//   - WorldState is a mutable map of property name to Value (bool, string or
//     float64). Copy yields an independent state; search forks a copy per node.
//   - Condition and Effect are small interfaces; EqualCondition,
//     NotEqualCondition, ExprCondition and SetEffect are the stock
//     implementations.
//   - Action is the capability a driver implements. BaseAction carries the
//     planning metadata (preconditions, effects, cost, criticality) and is
//     meant to be embedded; FuncAction adds an ExecuteFunc.
//   - Goal is a conjunction of required property values.
//   - Plan is an identified, immutable, ordered sequence of actions.
//
// Usage:
//
//	ws := goap.NewWorldState()
//	ws.Set("customerPresent", true)
//
//	takeOrder := goap.NewActionBuilder("take_order").
//	    Name("Take Order").
//	    Requires(goap.Equal("customerPresent", true)).
//	    Sets("orderTaken", true).
//	    Cost(1).
//	    Build()
//
//	goal := goap.NewGoal(map[string]any{"orderTaken": true})
//	next := takeOrder.ApplyEffects(ws) // ws is untouched
//	_ = goal.IsSatisfied(next)         // true
package goap
