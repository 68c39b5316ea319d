// Package filter holds the store-independent metadata predicate applied during similarity search.
package filter

import "fmt"

// MaxConditions is the maximum number of conditions in one predicate.
const MaxConditions = 32

// Predicate is a conjunction of conditions. The zero value matches everything.
type Predicate struct {
	conditions []Condition
}

// NewPredicate validates and creates a conjunctive Predicate.
func NewPredicate(conditions ...Condition) (Predicate, error) {
	if len(conditions) > MaxConditions {
		return Predicate{}, fmt.Errorf("too many conditions (max %d)", MaxConditions)
	}
	return Predicate{conditions: conditions}, nil
}

// Conditions returns the conditions that must all hold.
func (p Predicate) Conditions() []Condition { return p.conditions }

// IsEmpty reports whether the predicate imposes no constraint.
func (p Predicate) IsEmpty() bool { return len(p.conditions) == 0 }

// Matches evaluates the predicate against exact-match and numeric fields.
// A range condition on an absent numeric field does not match.
func (p Predicate) Matches(tags map[string]string, numerics map[string]float64) bool {
	for _, c := range p.conditions {
		if c.IsMatch() {
			if tags[c.key] != c.match {
				return false
			}
			continue
		}
		v, ok := numerics[c.key]
		if !ok || !c.rangeExpr.Contains(v) {
			return false
		}
	}
	return true
}

// String renders the predicate for logs.
func (p Predicate) String() string {
	if p.IsEmpty() {
		return "*"
	}
	s := ""
	for i, c := range p.conditions {
		if i > 0 {
			s += " AND "
		}
		s += c.String()
	}
	return s
}

// Condition is a single filter clause: either an exact match or a numeric range.
type Condition struct {
	key       string
	match     string
	rangeExpr *Range
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

// NewRange creates a numeric range condition.
func NewRange(key string, r Range) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("filter key is required")
	}
	return Condition{key: key, rangeExpr: &r}, nil
}

// Key returns the field name.
func (c Condition) Key() string { return c.key }

// Match returns the exact match value.
func (c Condition) Match() string { return c.match }

// Range returns the numeric range expression.
func (c Condition) Range() *Range { return c.rangeExpr }

// IsMatch reports whether this is a match condition.
func (c Condition) IsMatch() bool { return c.match != "" }

// IsRange reports whether this is a range condition.
func (c Condition) IsRange() bool { return c.rangeExpr != nil }

func (c Condition) String() string {
	if c.IsMatch() {
		return fmt.Sprintf("%s == %q", c.key, c.match)
	}
	return c.key + " " + c.rangeExpr.String()
}

// Range is a numeric range with gt/gte/lt/lte boundaries.
type Range struct {
	gt  *float64
	gte *float64
	lt  *float64
	lte *float64
}

// NewRangeFilter validates and creates a Range.
// At least one boundary required. gt/gte and lt/lte are mutually exclusive.
func NewRangeFilter(gt, gte, lt, lte *float64) (Range, error) {
	if gt == nil && gte == nil && lt == nil && lte == nil {
		return Range{}, fmt.Errorf("at least one range boundary is required")
	}
	if gt != nil && gte != nil {
		return Range{}, fmt.Errorf("cannot specify both gt and gte")
	}
	if lt != nil && lte != nil {
		return Range{}, fmt.Errorf("cannot specify both lt and lte")
	}
	return Range{gt: gt, gte: gte, lt: lt, lte: lte}, nil
}

// Between creates the inclusive range min <= v <= max.
func Between(lower, upper float64) (Range, error) {
	if lower > upper {
		return Range{}, fmt.Errorf("lower bound %v exceeds upper bound %v", lower, upper)
	}
	return NewRangeFilter(nil, &lower, nil, &upper)
}

// GT returns the lower exclusive bound.
func (r Range) GT() *float64 { return r.gt }

// GTE returns the lower inclusive bound.
func (r Range) GTE() *float64 { return r.gte }

// LT returns the upper exclusive bound.
func (r Range) LT() *float64 { return r.lt }

// LTE returns the upper inclusive bound.
func (r Range) LTE() *float64 { return r.lte }

// Contains reports whether v satisfies every boundary.
func (r Range) Contains(v float64) bool {
	switch {
	case r.gt != nil && v <= *r.gt:
		return false
	case r.gte != nil && v < *r.gte:
		return false
	case r.lt != nil && v >= *r.lt:
		return false
	case r.lte != nil && v > *r.lte:
		return false
	}
	return true
}

func (r Range) String() string {
	s := ""
	add := func(op string, b *float64) {
		if b == nil {
			return
		}
		if s != "" {
			s += " AND "
		}
		s += fmt.Sprintf("%s %g", op, *b)
	}
	add(">", r.gt)
	add(">=", r.gte)
	add("<", r.lt)
	add("<=", r.lte)
	return s
}
