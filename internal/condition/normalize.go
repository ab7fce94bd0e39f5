package condition

import (
	"fmt"

	dperrors "github.com/kartikbazzad/dynaplan/internal/errors"
)

// Normalize turns an unordered list of raw conditions into the canonical
// per-field form. Pure function, no side effects.
//
// Rules:
//   - eq(x) becomes in({x}); repeated eq/in on a field intersect
//   - an intersection that comes out empty can never match and is
//     rejected as conflicting
//   - at most one range condition per field; a second range condition,
//     whatever its direction, is rejected as conflicting
func Normalize(conds []Condition) (Set, error) {
	set := make(Set, len(conds))

	for _, c := range conds {
		if !c.Op.Supported() {
			return nil, fmt.Errorf("%w: %q on field %s", dperrors.ErrUnsupportedOperator, c.Op, c.Field)
		}
		if c.Field == "" {
			return nil, fmt.Errorf("%w: condition with empty field name", dperrors.ErrUnsupportedOperator)
		}

		fc := set[c.Field]

		switch {
		case c.Op == OpEq:
			merged, err := mergeMembership(c.Field, fc.Membership, []interface{}{c.Value})
			if err != nil {
				return nil, err
			}
			fc.Membership = merged

		case c.Op == OpIn:
			if len(c.Values) == 0 {
				return nil, fmt.Errorf("%w: empty in() on field %s", dperrors.ErrConflictingCondition, c.Field)
			}
			merged, err := mergeMembership(c.Field, fc.Membership, c.Values)
			if err != nil {
				return nil, err
			}
			fc.Membership = merged

		default: // range operator
			if fc.Range != nil {
				return nil, fmt.Errorf("%w: %s has both %s and %s",
					dperrors.ErrConflictingCondition, c.Field, fc.Range.Op, c.Op)
			}
			rc := c
			fc.Range = &rc
		}

		set[c.Field] = fc
	}

	return set, nil
}

// mergeMembership intersects a new member list into an existing
// membership condition, preserving first-seen order.
func mergeMembership(field string, existing *Condition, values []interface{}) (*Condition, error) {
	members := dedupe(values)

	if existing == nil {
		return &Condition{Field: field, Op: OpIn, Values: members}, nil
	}

	var intersection []interface{}
	for _, v := range existing.Values {
		for _, w := range members {
			if valueEqual(v, w) {
				intersection = append(intersection, v)
				break
			}
		}
	}

	if len(intersection) == 0 {
		return nil, fmt.Errorf("%w: %s has disjoint equality constraints", dperrors.ErrConflictingCondition, field)
	}

	return &Condition{Field: field, Op: OpIn, Values: intersection}, nil
}

func dedupe(values []interface{}) []interface{} {
	out := make([]interface{}, 0, len(values))
	for _, v := range values {
		dup := false
		for _, w := range out {
			if valueEqual(v, w) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, v)
		}
	}
	return out
}
