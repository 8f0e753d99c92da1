package executor

import (
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// DefaultMaxReplans is the default replan budget.
const DefaultMaxReplans = 3

// Option configures an Executor.
type Option interface {
	applyOption(*Executor) error
}

type optionFunc func(*Executor) error

func (f optionFunc) applyOption(e *Executor) error { return f(e) }

// WithMaxReplans sets the replan budget. Replanning stops, and execution
// fails, once the replan counter reaches n. Default is DefaultMaxReplans.
func WithMaxReplans(n int) Option {
	return optionFunc(func(e *Executor) error {
		if n < 0 {
			return fmt.Errorf("max replans cannot be negative, got %d", n)
		}
		e.maxReplans = n
		return nil
	})
}

// WithObserver registers an event observer.
func WithObserver(o Observer) Option {
	return optionFunc(func(e *Executor) error {
		if o == nil {
			return fmt.Errorf("observer cannot be nil")
		}
		e.observers = append(e.observers, o)
		return nil
	})
}

// WithLogger sets the logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return optionFunc(func(e *Executor) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		e.logger = logger
		return nil
	})
}

// WithTracer sets the tracer for execution and per-action spans.
func WithTracer(tracer trace.Tracer) Option {
	return optionFunc(func(e *Executor) error {
		if tracer == nil {
			return fmt.Errorf("tracer cannot be nil")
		}
		e.tracer = tracer
		return nil
	})
}

// withClock overrides time.Now, for tests.
func withClock(now func() time.Time) Option {
	return optionFunc(func(e *Executor) error {
		e.now = now
		return nil
	})
}
