package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/joeycumines/go-goap/internal/executor"
)

// narrator prints executor events as they happen and mirrors them to the log.
type narrator struct {
	out    io.Writer
	logger *slog.Logger
}

func (n narrator) OnEvent(ev executor.Event) {
	n.logger.Debug("executor event",
		"type", ev.Type,
		"plan", ev.PlanID,
		"action", ev.ActionID,
		"replans", ev.Replans,
	)
	switch ev.Type {
	case executor.EventPlanInstalled:
		fmt.Fprintf(n.out, "plan %s installed\n", ev.PlanID)
	case executor.EventActionStarted:
		fmt.Fprintf(n.out, "  -> %s\n", ev.ActionID)
	case executor.EventActionSucceeded:
		fmt.Fprintf(n.out, "  ok %s\n", ev.ActionID)
	case executor.EventActionFailed, executor.EventPreconditionFailed:
		fmt.Fprintf(n.out, "  !! %s: %s\n", ev.ActionID, ev.Message)
	case executor.EventReplanTriggered:
		fmt.Fprintf(n.out, "replanning (attempt %d)\n", ev.Replans)
	case executor.EventReplanExhausted:
		fmt.Fprintf(n.out, "replanning exhausted: %s\n", ev.Message)
	}
}

// report prints the outcome summary and replan history.
func report(out io.Writer, o executor.Outcome, history []executor.ReplanRecord) {
	if o.Success {
		fmt.Fprintf(out, "goal reached after %d replan(s)\n", o.Replans)
	} else {
		fmt.Fprintf(out, "goal not reached after %d replan(s): %v\n", o.Replans, o.Err)
	}
	for _, r := range history {
		next := r.NewPlanID
		if next == "" {
			next = "none"
		}
		fmt.Fprintf(out, "  replan %d: %s at %s (%s), plan %s -> %s\n",
			r.Attempt, r.Trigger, r.ActionID, r.Message, r.OldPlanID, next)
	}
	if o.State != nil {
		fmt.Fprintf(out, "final state: %s\n", o.State)
	}
}
