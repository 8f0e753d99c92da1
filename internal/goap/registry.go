package goap

import (
	"fmt"
	"sync"
)

// ActionRegistry is an ordered, id-unique set of actions.
//
// Registration order is preserved by All. The pathfinder expands actions in
// the order it is given, so a stable order keeps search outcomes reproducible.
type ActionRegistry struct {
	mu    sync.RWMutex
	order []Action
	byID  map[string]int
}

// NewActionRegistry returns a registry holding actions, in order.
func NewActionRegistry(actions ...Action) (*ActionRegistry, error) {
	r := &ActionRegistry{byID: make(map[string]int, len(actions))}
	for _, a := range actions {
		if err := r.Register(a); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register appends action. Registering a second action with the same id is an
// error.
func (r *ActionRegistry) Register(action Action) error {
	if action == nil {
		return fmt.Errorf("goap: cannot register nil action")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.byID == nil {
		r.byID = make(map[string]int)
	}
	if _, ok := r.byID[action.ID()]; ok {
		return fmt.Errorf("goap: duplicate action id %q", action.ID())
	}
	r.byID[action.ID()] = len(r.order)
	r.order = append(r.order, action)
	return nil
}

// Get returns the action with the given id, or nil.
func (r *ActionRegistry) Get(id string) Action {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i, ok := r.byID[id]; ok {
		return r.order[i]
	}
	return nil
}

// All returns the actions in registration order.
func (r *ActionRegistry) All() []Action {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Action, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of registered actions.
func (r *ActionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
