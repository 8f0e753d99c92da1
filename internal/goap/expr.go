package goap

import (
	"container/list"
	"fmt"
	"log/slog"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// DefaultExprCacheSize is the default maximum number of compiled expressions
// kept in the shared cache.
const DefaultExprCacheSize = 1000

// exprCache is shared by every ExprCondition, so identical expressions used by
// many actions compile once.
var exprCache = NewExprLRUCache(DefaultExprCacheSize)

// SetExprCacheSize changes the capacity of the shared expression cache,
// evicting immediately if it shrinks.
func SetExprCacheSize(size int) {
	exprCache.Resize(size)
}

// ExprCacheCapacity returns the capacity of the shared expression cache.
func ExprCacheCapacity() int { return exprCache.Cap() }

// ExprCacheStats reports the shared expression cache statistics.
func ExprCacheStats() (size int, hits, misses int64) {
	size, hits, misses, _ = exprCache.Stats()
	return size, hits, misses
}

// ExprLRUCache is a thread-safe LRU cache of compiled expr-lang programs.
type ExprLRUCache struct {
	mu        sync.Mutex
	cache     map[string]*list.Element
	lru       *list.List
	maxSize   int
	hitCount  int64
	missCount int64
}

type exprEntry struct {
	expression string
	program    *vm.Program
}

// NewExprLRUCache creates a cache holding at most maxSize programs.
func NewExprLRUCache(maxSize int) *ExprLRUCache {
	if maxSize < 1 {
		maxSize = DefaultExprCacheSize
	}
	return &ExprLRUCache{
		cache:   make(map[string]*list.Element, maxSize),
		lru:     list.New(),
		maxSize: maxSize,
	}
}

// Get returns the program compiled for expression, marking it most recently
// used.
func (c *ExprLRUCache) Get(expression string) (*vm.Program, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	elem, ok := c.cache[expression]
	if !ok {
		c.missCount++
		return nil, false
	}
	c.hitCount++
	c.lru.MoveToFront(elem)
	return elem.Value.(*exprEntry).program, true
}

// Put stores program, evicting the least recently used entry when full.
func (c *ExprLRUCache) Put(expression string, program *vm.Program) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.cache[expression]; ok {
		c.lru.MoveToFront(elem)
		elem.Value.(*exprEntry).program = program
		return
	}
	c.cache[expression] = c.lru.PushFront(&exprEntry{expression: expression, program: program})
	c.evictLocked()
}

// Resize changes the capacity; values below 1 are treated as 1.
func (c *ExprLRUCache) Resize(maxSize int) {
	if maxSize < 1 {
		maxSize = 1
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.maxSize = maxSize
	c.evictLocked()
}

func (c *ExprLRUCache) evictLocked() {
	for c.lru.Len() > c.maxSize {
		elem := c.lru.Back()
		delete(c.cache, elem.Value.(*exprEntry).expression)
		c.lru.Remove(elem)
	}
}

// Cap returns the maximum number of cached programs.
func (c *ExprLRUCache) Cap() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.maxSize
}

// Len returns the number of cached programs.
func (c *ExprLRUCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Stats returns size, hit and miss counts, and the hit ratio.
func (c *ExprLRUCache) Stats() (size int, hits, misses int64, ratio float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if total := c.hitCount + c.missCount; total > 0 {
		ratio = float64(c.hitCount) / float64(total)
	}
	return c.lru.Len(), c.hitCount, c.missCount, ratio
}

func (c *ExprLRUCache) String() string {
	size, hits, misses, ratio := c.Stats()
	return fmt.Sprintf("ExprLRUCache{size=%d, hits=%d, misses=%d, hit_ratio=%.2f%%}",
		size, hits, misses, ratio*100)
}

// compileExpr returns the cached program for expression, compiling on a miss.
// Programs are compiled against an untyped map environment: every world state
// property is a variable, and unknown properties evaluate to nil.
func compileExpr(expression string) (*vm.Program, error) {
	if program, ok := exprCache.Get(expression); ok {
		return program, nil
	}
	program, err := expr.Compile(expression,
		expr.Env(map[string]any{}),
		expr.AsBool(),
		expr.AllowUndefinedVariables(),
	)
	if err != nil {
		return nil, err
	}
	exprCache.Put(expression, program)
	return program, nil
}

// ExprCondition is a Condition written as an expr-lang boolean expression over
// the world state's properties, e.g. `ovenTemp >= 200 && pizzaType != "Calzone"`.
//
// The expression is compiled when the condition is created. Evaluation errors
// (for instance ordering comparisons against an absent property) make the
// condition unsatisfied and are logged at debug level.
type ExprCondition struct {
	key        string
	expression string
	program    *vm.Program
}

var _ Condition = (*ExprCondition)(nil)

// NewExprCondition compiles expression. key names the property the condition
// is mostly about and may be empty.
func NewExprCondition(key, expression string) (*ExprCondition, error) {
	if expression == "" {
		return nil, fmt.Errorf("goap: empty expression for condition %q", key)
	}
	program, err := compileExpr(expression)
	if err != nil {
		return nil, fmt.Errorf("goap: compile condition %q: %w", expression, err)
	}
	return &ExprCondition{key: key, expression: expression, program: program}, nil
}

// MustExprCondition is NewExprCondition that panics on error.
func MustExprCondition(key, expression string) *ExprCondition {
	c, err := NewExprCondition(key, expression)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *ExprCondition) Key() string { return c.key }

// Expression returns the source expression.
func (c *ExprCondition) Expression() string { return c.expression }

func (c *ExprCondition) IsSatisfied(ws *WorldState) bool {
	env := make(map[string]any, ws.Len())
	for k, v := range ws.All() {
		env[k] = v
	}
	result, err := expr.Run(c.program, env)
	if err != nil {
		slog.Debug("goap: expression condition evaluation failed",
			"expression", c.expression,
			"error", err)
		return false
	}
	b, ok := result.(bool)
	return ok && b
}

func (c *ExprCondition) String() string {
	return c.expression
}
