package pathfinder

import (
	"fmt"
	"log/slog"

	"github.com/joeycumines/go-goap/internal/goap"
	"go.opentelemetry.io/otel/trace"
)

// DefaultMaxIterations bounds the number of node expansions per search.
const DefaultMaxIterations = 10000

// Option configures a Pathfinder.
type Option interface {
	applyOption(*config) error
}

type optionFunc func(*config) error

func (f optionFunc) applyOption(c *config) error { return f(c) }

type config struct {
	heuristic     goap.Heuristic
	maxIterations int
	logger        *slog.Logger
	tracer        trace.Tracer
}

// WithHeuristic sets the cost-to-goal estimator.
// Default is goap.UnsatisfiedConditions.
func WithHeuristic(h goap.Heuristic) Option {
	return optionFunc(func(c *config) error {
		if h == nil {
			return fmt.Errorf("heuristic cannot be nil")
		}
		c.heuristic = h
		return nil
	})
}

// WithMaxIterations bounds the number of expansions before the search gives
// up. Default is DefaultMaxIterations.
func WithMaxIterations(n int) Option {
	return optionFunc(func(c *config) error {
		if n <= 0 {
			return fmt.Errorf("max iterations must be positive, got %d", n)
		}
		c.maxIterations = n
		return nil
	})
}

// WithLogger sets the logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return optionFunc(func(c *config) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		c.logger = logger
		return nil
	})
}

// WithTracer sets the tracer used for search spans.
func WithTracer(tracer trace.Tracer) Option {
	return optionFunc(func(c *config) error {
		if tracer == nil {
			return fmt.Errorf("tracer cannot be nil")
		}
		c.tracer = tracer
		return nil
	})
}
