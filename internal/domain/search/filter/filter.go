package filter

import "fmt"

// MaxConditions caps the size of each condition group.
const MaxConditions = 16

// Expression is a metadata pre-filter: every must condition holds, at least one
// should condition holds (when any are given) and no must_not condition holds.
type Expression struct {
	must    []Condition
	should  []Condition
	mustNot []Condition
}

// NewExpression validates group sizes and creates an Expression.
func NewExpression(must, should, mustNot []Condition) (Expression, error) {
	for name, group := range map[string][]Condition{"must": must, "should": should, "must_not": mustNot} {
		if len(group) > MaxConditions {
			return Expression{}, fmt.Errorf("too many %s conditions (max %d)", name, MaxConditions)
		}
	}
	return Expression{must: must, should: should, mustNot: mustNot}, nil
}

// Must returns the conditions that all have to hold.
func (e Expression) Must() []Condition { return e.must }

// Should returns the conditions of which at least one has to hold.
func (e Expression) Should() []Condition { return e.should }

// MustNot returns the conditions that may not hold.
func (e Expression) MustNot() []Condition { return e.mustNot }

// IsEmpty reports whether the expression has no conditions.
func (e Expression) IsEmpty() bool {
	return len(e.must) == 0 && len(e.should) == 0 && len(e.mustNot) == 0
}

// Matches evaluates the expression against flat metadata fields.
// Drivers without native pre-filtering use it to post-filter candidates.
func (e Expression) Matches(fields map[string]string) bool {
	for _, c := range e.must {
		if !c.holds(fields) {
			return false
		}
	}
	for _, c := range e.mustNot {
		if c.holds(fields) {
			return false
		}
	}
	if len(e.should) == 0 {
		return true
	}
	for _, c := range e.should {
		if c.holds(fields) {
			return true
		}
	}
	return false
}

// Condition is an exact equality test on one metadata field.
type Condition struct {
	key   string
	match string
}

// NewMatch creates an exact match condition.
func NewMatch(key, match string) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("filter key is required")
	}
	if match == "" {
		return Condition{}, fmt.Errorf("match value is required for key %q", key)
	}
	return Condition{key: key, match: match}, nil
}

// Key returns the field name.
func (c Condition) Key() string { return c.key }

// Match returns the value the field has to equal.
func (c Condition) Match() string { return c.match }

// IsMatch reports whether the condition carries a value.
func (c Condition) IsMatch() bool { return c.match != "" }

func (c Condition) holds(fields map[string]string) bool {
	v, ok := fields[c.key]
	return ok && v == c.match
}
