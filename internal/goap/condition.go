package goap

import "fmt"

// Condition is a predicate over a world state. Conditions are stateless and
// may be shared across any number of states and searches.
type Condition interface {
	// Key is the property the condition is primarily about. It is used for
	// diagnostics and may be empty for conditions spanning several keys.
	Key() string

	// IsSatisfied evaluates the condition against ws.
	IsSatisfied(ws *WorldState) bool
}

// EqualCondition holds iff the property equals the expected value. An
// expected value of nil means the property must be absent.
type EqualCondition struct {
	key      string
	expected Value
}

var _ Condition = (*EqualCondition)(nil)

// Equal creates an EqualCondition. It panics if expected is not a bool,
// string, number or nil.
func Equal(key string, expected any) *EqualCondition {
	return &EqualCondition{key: key, expected: mustNormalize(key, expected)}
}

// Absent is Equal(key, nil).
func Absent(key string) *EqualCondition {
	return &EqualCondition{key: key}
}

func (c *EqualCondition) Key() string { return c.key }

// Expected returns the value the property must hold.
func (c *EqualCondition) Expected() Value { return c.expected }

func (c *EqualCondition) IsSatisfied(ws *WorldState) bool {
	actual, ok := ws.Get(c.key)
	if c.expected == nil {
		return !ok
	}
	return ok && actual == c.expected
}

func (c *EqualCondition) String() string {
	return fmt.Sprintf("%s = %s", c.key, FormatValue(c.expected))
}

// NotEqualCondition holds iff the property does not equal the given value.
// An absent property satisfies it whenever the unexpected value is non-nil.
type NotEqualCondition struct {
	key        string
	unexpected Value
}

var _ Condition = (*NotEqualCondition)(nil)

// NotEqual creates a NotEqualCondition. NotEqual(key, nil) means "key must be
// present".
func NotEqual(key string, unexpected any) *NotEqualCondition {
	return &NotEqualCondition{key: key, unexpected: mustNormalize(key, unexpected)}
}

// Present is NotEqual(key, nil).
func Present(key string) *NotEqualCondition {
	return &NotEqualCondition{key: key}
}

func (c *NotEqualCondition) Key() string { return c.key }

// Unexpected returns the value the property must not hold.
func (c *NotEqualCondition) Unexpected() Value { return c.unexpected }

func (c *NotEqualCondition) IsSatisfied(ws *WorldState) bool {
	actual, ok := ws.Get(c.key)
	if !ok {
		return c.unexpected != nil
	}
	return actual != c.unexpected
}

func (c *NotEqualCondition) String() string {
	return fmt.Sprintf("%s != %s", c.key, FormatValue(c.unexpected))
}

// AllSatisfied reports whether every condition holds in ws, stopping at the
// first that does not.
func AllSatisfied(ws *WorldState, conditions []Condition) bool {
	for _, c := range conditions {
		if !ws.Satisfies(c) {
			return false
		}
	}
	return true
}

// Unsatisfied returns the conditions that do not hold in ws, in order.
func Unsatisfied(ws *WorldState, conditions []Condition) []Condition {
	var out []Condition
	for _, c := range conditions {
		if !ws.Satisfies(c) {
			out = append(out, c)
		}
	}
	return out
}

// DescribeCondition renders c via fmt.Stringer when available, falling back
// to its key.
func DescribeCondition(c Condition) string {
	if s, ok := c.(fmt.Stringer); ok {
		return s.String()
	}
	return c.Key()
}
