// Package pathfinder implements A* search over world states.
//
// Vertices are world states identified by their canonical key, and edges are
// applicable actions weighted by cost. The open set is a priority queue with
// lazy deletion: improving a state's cost pushes a new entry, and stale
// entries are discarded when popped. Ties on f go to the entry pushed first,
// and successors are generated in the order actions are supplied, so a search
// is fully deterministic.
package pathfinder

import (
	"context"
	"log/slog"

	"github.com/joeycumines/go-goap/internal/goap"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/joeycumines/go-goap/internal/pathfinder"

// Pathfinder finds minimum-cost action sequences. It holds no per-search
// state and is safe for concurrent use.
type Pathfinder struct {
	heuristic     goap.Heuristic
	maxIterations int
	logger        *slog.Logger
	tracer        trace.Tracer
}

// Result describes one search.
type Result struct {
	// Path is the action sequence, in order. It is empty, not nil, when the
	// start state already satisfies the goal.
	Path  []goap.Action
	Found bool
	Cost  float64
	// Iterations is the number of nodes expanded.
	Iterations int
	// Generated counts successor states pushed onto the open set.
	Generated int
	// Exhausted is set when the iteration bound stopped the search.
	Exhausted bool
	// Err is set when ctx ended the search.
	Err error
}

// New creates a Pathfinder.
func New(opts ...Option) (*Pathfinder, error) {
	c := config{
		heuristic:     goap.UnsatisfiedConditions{},
		maxIterations: DefaultMaxIterations,
	}
	for _, opt := range opts {
		if err := opt.applyOption(&c); err != nil {
			return nil, err
		}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.tracer == nil {
		c.tracer = otel.Tracer(tracerName)
	}
	return &Pathfinder{
		heuristic:     c.heuristic,
		maxIterations: c.maxIterations,
		logger:        c.logger.With("component", "pathfinder"),
		tracer:        c.tracer,
	}, nil
}

// MaxIterations returns the expansion bound.
func (p *Pathfinder) MaxIterations() int { return p.maxIterations }

// FindPath returns the lowest-cost action sequence leading from start to a
// state satisfying goal. The boolean is false when no sequence was found
// within the iteration bound; that is an expected outcome, not an error.
//
// start is never mutated.
func (p *Pathfinder) FindPath(ctx context.Context, start *goap.WorldState, goal *goap.Goal, actions []goap.Action) ([]goap.Action, bool) {
	r := p.Search(ctx, start, goal, actions)
	return r.Path, r.Found
}

// Search is FindPath with search statistics.
func (p *Pathfinder) Search(ctx context.Context, start *goap.WorldState, goal *goap.Goal, actions []goap.Action) (result Result) {
	if goal == nil {
		result.Err = goap.NewError(goap.KindInvalidRequest, "nil goal")
		return result
	}
	ctx, span := p.tracer.Start(ctx, "Pathfinder.Search", trace.WithAttributes(
		attribute.Int("goap.actions", len(actions)),
		attribute.Int("goap.goal.conditions", goal.Len()),
	))
	defer func() {
		span.SetAttributes(
			attribute.Bool("goap.found", result.Found),
			attribute.Int("goap.iterations", result.Iterations),
			attribute.Int("goap.generated", result.Generated),
		)
		if result.Err != nil {
			span.RecordError(result.Err)
			span.SetStatus(codes.Error, result.Err.Error())
		}
		span.End()
	}()

	open := newOpenSet()
	closed := make(map[string]struct{})

	root := &node{state: start.Copy()}
	root.key = root.state.Canonical()
	root.f = p.heuristic.Estimate(root.state, goal, actions)
	open.offer(root)

	for result.Iterations < p.maxIterations {
		if err := ctx.Err(); err != nil {
			result.Err = err
			p.logger.DebugContext(ctx, "search cancelled", "iterations", result.Iterations, "error", err)
			return result
		}

		current, ok := open.pop()
		if !ok {
			p.logger.DebugContext(ctx, "open set exhausted without reaching goal",
				"iterations", result.Iterations,
				"generated", result.Generated)
			return result
		}
		result.Iterations++

		if goal.IsSatisfied(current.state) {
			result.Path = current.path()
			result.Found = true
			result.Cost = current.g
			p.logger.DebugContext(ctx, "path found",
				"length", len(result.Path),
				"cost", result.Cost,
				"iterations", result.Iterations,
				"generated", result.Generated)
			return result
		}

		closed[current.key] = struct{}{}

		for _, action := range actions {
			if !action.CheckPreconditions(current.state) {
				continue
			}
			next := action.ApplyEffects(current.state)
			key := next.Canonical()
			if _, done := closed[key]; done {
				continue
			}
			g := current.g + action.Cost()
			successor := &node{
				state:  next,
				key:    key,
				parent: current,
				action: action,
				g:      g,
				f:      g + p.heuristic.Estimate(next, goal, actions),
			}
			if open.offer(successor) {
				result.Generated++
			}
		}
	}

	result.Exhausted = true
	p.logger.WarnContext(ctx, "search iteration bound reached",
		"max_iterations", p.maxIterations,
		"generated", result.Generated,
		"open", open.size())
	return result
}
