package executor

import (
	"time"

	"github.com/joeycumines/go-goap/internal/goap"
)

// EventType identifies an executor event.
type EventType string

const (
	EventPlanInstalled      EventType = "plan_installed"
	EventActionStarted      EventType = "action_started"
	EventActionSucceeded    EventType = "action_succeeded"
	EventPreconditionFailed EventType = "precondition_failed"
	EventActionFailed       EventType = "action_failed"
	EventReplanTriggered    EventType = "replan_triggered"
	EventReplanExhausted    EventType = "replan_exhausted"
	EventSucceeded          EventType = "execution_succeeded"
	EventFailed             EventType = "execution_failed"
)

// Event describes one step of an execution.
type Event struct {
	Type     EventType
	PlanID   string
	ActionID string
	// Message carries the failure message or plan rendering, if any.
	Message string
	// Replans is the replan count when the event was emitted.
	Replans int
	Time    time.Time
}

// Observer receives events synchronously, on the goroutine running Execute.
type Observer interface {
	OnEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) OnEvent(ev Event) { f(ev) }

// ReplanRecord is one entry of the replan history.
type ReplanRecord struct {
	// Attempt counts from 1.
	Attempt int
	// Trigger is the failure that caused the replan.
	Trigger  goap.ErrorKind
	ActionID string
	Message  string
	// OldPlanID is the plan that failed; NewPlanID is its replacement, or
	// empty when no replacement was installed.
	OldPlanID string
	NewPlanID string
	Timestamp time.Time
}
