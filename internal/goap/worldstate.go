package goap

import (
	"iter"
	"maps"
	"slices"
	"strconv"
	"strings"
)

// WorldState is a mutable mapping from property name to Value.
//
// A WorldState is owned by exactly one party: the executor owns the live
// state, and every search node owns its own fork. It is not safe for
// concurrent use; share it by calling Copy, never by aliasing.
//
// The zero value is an empty state ready to use. Unknown keys read as absent.
type WorldState struct {
	props map[string]Value
}

// NewWorldState returns an empty state.
func NewWorldState() *WorldState {
	return &WorldState{}
}

// WorldStateFrom builds a state from a plain map, normalising every value.
// It panics if a value is not a bool, string or number.
func WorldStateFrom(props map[string]any) *WorldState {
	ws := &WorldState{props: make(map[string]Value, len(props))}
	for k, v := range props {
		ws.Set(k, v)
	}
	return ws
}

// Get returns the value stored under key and whether it is present.
func (ws *WorldState) Get(key string) (Value, bool) {
	if ws == nil || ws.props == nil {
		return nil, false
	}
	v, ok := ws.props[key]
	return v, ok
}

// Value returns the value stored under key, or nil if absent.
func (ws *WorldState) Value(key string) Value {
	v, _ := ws.Get(key)
	return v
}

// Set stores value under key in place. Numbers are normalised to float64 and
// a nil value removes the key. It panics on any other value type.
func (ws *WorldState) Set(key string, value any) {
	v := mustNormalize(key, value)
	if v == nil {
		ws.Delete(key)
		return
	}
	if ws.props == nil {
		ws.props = make(map[string]Value)
	}
	ws.props[key] = v
}

// Delete removes key, if present.
func (ws *WorldState) Delete(key string) {
	if ws.props == nil {
		return
	}
	delete(ws.props, key)
}

// Has reports whether key is present.
func (ws *WorldState) Has(key string) bool {
	_, ok := ws.Get(key)
	return ok
}

// Len returns the number of properties.
func (ws *WorldState) Len() int {
	if ws == nil {
		return 0
	}
	return len(ws.props)
}

// Keys returns the property names in lexicographic order.
func (ws *WorldState) Keys() []string {
	if ws == nil || len(ws.props) == 0 {
		return nil
	}
	return slices.Sorted(maps.Keys(ws.props))
}

// All is a read-only view over the properties, in key order.
func (ws *WorldState) All() iter.Seq2[string, Value] {
	return func(yield func(string, Value) bool) {
		for _, k := range ws.Keys() {
			if !yield(k, ws.props[k]) {
				return
			}
		}
	}
}

// Properties returns a snapshot of the properties. Values are immutable
// primitives, so the snapshot shares no mutable storage with ws.
func (ws *WorldState) Properties() map[string]Value {
	out := make(map[string]Value, ws.Len())
	if ws != nil {
		maps.Copy(out, ws.props)
	}
	return out
}

// Copy returns a structurally independent state.
func (ws *WorldState) Copy() *WorldState {
	c := &WorldState{}
	if ws != nil && len(ws.props) > 0 {
		c.props = maps.Clone(ws.props)
	}
	return c
}

// Satisfies evaluates condition against ws.
func (ws *WorldState) Satisfies(condition Condition) bool {
	return condition.IsSatisfied(ws)
}

// Equal reports whether both states hold the same set of (key, value) pairs.
func (ws *WorldState) Equal(other *WorldState) bool {
	if ws.Len() != other.Len() {
		return false
	}
	for k, v := range ws.All() {
		if ov, ok := other.Get(k); !ok || ov != v {
			return false
		}
	}
	return true
}

// Canonical serialises the state as `key=value;` pairs over sorted keys. Keys
// and string values are quoted, so two states produce the same string iff they
// are Equal, independent of the order their keys were inserted in.
func (ws *WorldState) Canonical() string {
	var b strings.Builder
	for k, v := range ws.All() {
		b.WriteString(strconv.Quote(k))
		b.WriteByte('=')
		b.WriteString(FormatValue(v))
		b.WriteByte(';')
	}
	return b.String()
}

func (ws *WorldState) String() string {
	if ws.Len() == 0 {
		return "{}"
	}
	parts := make([]string, 0, ws.Len())
	for k, v := range ws.All() {
		parts = append(parts, k+": "+FormatValue(v))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
