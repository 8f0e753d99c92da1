package goap

import "fmt"

// Effect is a deterministic mutation of a world state.
type Effect interface {
	Key() string
	Apply(ws *WorldState)
}

// SetEffect assigns a value to a property. A nil value removes the property.
type SetEffect struct {
	key   string
	value Value
}

var _ Effect = (*SetEffect)(nil)

// Set creates a SetEffect. It panics if value is not a bool, string, number
// or nil.
func Set(key string, value any) *SetEffect {
	return &SetEffect{key: key, value: mustNormalize(key, value)}
}

func (e *SetEffect) Key() string { return e.key }

// Value returns the value the effect assigns.
func (e *SetEffect) Value() Value { return e.value }

func (e *SetEffect) Apply(ws *WorldState) {
	ws.Set(e.key, e.value)
}

func (e *SetEffect) String() string {
	return fmt.Sprintf("%s := %s", e.key, FormatValue(e.value))
}

// ApplyEffects copies ws and applies effects to the copy in list order, so a
// later effect on the same key wins. ws itself is never mutated.
func ApplyEffects(ws *WorldState, effects []Effect) *WorldState {
	next := ws.Copy()
	for _, e := range effects {
		e.Apply(next)
	}
	return next
}
