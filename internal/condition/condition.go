// Package condition normalizes raw field conditions into the canonical
// form consumed by the planner: per field, at most one membership
// constraint (eq folded into in) and at most one range constraint.
package condition

import (
	"reflect"
	"sort"
	"strings"
)

// Operator is a condition operator. Eq is folded into In during
// normalization: eq(x) plans identically to in({x}).
type Operator string

const (
	OpEq  Operator = "eq"
	OpLt  Operator = "lt"
	OpLte Operator = "lte"
	OpGt  Operator = "gt"
	OpGte Operator = "gte"
	OpIn  Operator = "in"
)

// IsRange reports whether the operator is an ordered range predicate.
func (op Operator) IsRange() bool {
	switch op {
	case OpLt, OpLte, OpGt, OpGte:
		return true
	}
	return false
}

// Supported reports whether the operator is in the supported set.
func (op Operator) Supported() bool {
	switch op {
	case OpEq, OpLt, OpLte, OpGt, OpGte, OpIn:
		return true
	}
	return false
}

// Condition is one raw constraint over a field. Value carries the
// operand for eq and range operators; Values carries the member set
// for in.
type Condition struct {
	Field  string
	Op     Operator
	Value  interface{}
	Values []interface{}
}

// Eq builds an equality condition.
func Eq(field string, value interface{}) Condition {
	return Condition{Field: field, Op: OpEq, Value: value}
}

// In builds a membership condition.
func In(field string, values ...interface{}) Condition {
	return Condition{Field: field, Op: OpIn, Values: values}
}

// Range builds an ordered range condition.
func Range(field string, op Operator, value interface{}) Condition {
	return Condition{Field: field, Op: op, Value: value}
}

// FieldConditions is the normalized constraint pair for one field.
type FieldConditions struct {
	Membership *Condition // Op == OpIn, Values non-empty
	Range      *Condition // Op is a range direction
}

// Set maps field name to its normalized conditions.
type Set map[string]FieldConditions

// Fields returns the constrained field names in sorted order.
func (s Set) Fields() []string {
	fields := make([]string, 0, len(s))
	for f := range s {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

// Clone returns a shallow copy safe for per-plan residual bookkeeping.
// The underlying Condition values are shared; planning never mutates them.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	for f, fc := range s {
		out[f] = fc
	}
	return out
}

// Empty reports whether no field carries a constraint.
func (s Set) Empty() bool {
	return len(s) == 0
}

// Signature returns a deterministic key describing the plan-relevant
// shape of the set: which fields are constrained, whether membership is
// single or multi valued, and whether a range rides along. Concrete
// operand values are excluded so one cached access decision serves all
// condition sets of the same shape.
func (s Set) Signature() string {
	var b strings.Builder
	for i, f := range s.Fields() {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(f)
		b.WriteByte('=')
		fc := s[f]
		if fc.Membership != nil {
			if len(fc.Membership.Values) == 1 {
				b.WriteString("m1")
			} else {
				b.WriteString("mN")
			}
		}
		if fc.Range != nil {
			b.WriteByte('r')
			b.WriteString(string(fc.Range.Op))
		}
	}
	return b.String()
}

func valueEqual(a, b interface{}) bool {
	return reflect.DeepEqual(a, b)
}
