package pizzabot

import "sync"

// FaultInjector decides whether an action execution should fail. It is
// consulted once per Execute call.
type FaultInjector interface {
	ShouldFail(actionID string) bool
}

// FaultFunc adapts a function to FaultInjector.
type FaultFunc func(actionID string) bool

func (f FaultFunc) ShouldFail(actionID string) bool { return f(actionID) }

// NoFaults never fails.
var NoFaults FaultInjector = FaultFunc(func(string) bool { return false })

// FailFirst fails the first n executions of the named action, then lets it
// succeed.
func FailFirst(actionID string, n int) FaultInjector {
	return &countingFaults{target: actionID, remaining: n}
}

type countingFaults struct {
	mu        sync.Mutex
	target    string
	remaining int
}

func (c *countingFaults) ShouldFail(actionID string) bool {
	if actionID != c.target {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.remaining <= 0 {
		return false
	}
	c.remaining--
	return true
}
