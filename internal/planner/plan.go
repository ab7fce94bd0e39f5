// Package planner chooses the cheapest valid access pattern for a
// normalized condition set against a schema descriptor. A chosen plan
// never drops a condition: whatever the access pattern cannot consume
// stays in the plan's residual set and is applied as a post-filter.
package planner

import (
	"fmt"
	"strings"

	"github.com/kartikbazzad/dynaplan/internal/condition"
)

// Kind is the access pattern of a plan.
type Kind int

const (
	KindGet      Kind = iota // Single-item lookup by full primary key
	KindBatchGet             // Multi-key lookup by full primary keys
	KindQuery                // Hash/range query on the primary key or an index
	KindScan                 // Full-table traversal, client-side filtering
)

func (k Kind) String() string {
	switch k {
	case KindGet:
		return "get"
	case KindBatchGet:
		return "batch_get"
	case KindQuery:
		return "query"
	case KindScan:
		return "scan"
	default:
		return "unknown"
	}
}

// RangePredicate is a key condition on the range field of a query plan.
// Op may be OpEq (exact range match) or one of the ordered directions.
type RangePredicate struct {
	Field string
	Op    condition.Operator
	Value interface{}
}

// Plan is one executable access against the store. The populated fields
// depend on Kind; the executor dispatches on Kind exhaustively.
type Plan struct {
	Kind  Kind
	Table string

	// KindGet
	Key map[string]interface{}

	// KindBatchGet
	Keys []map[string]interface{}

	// KindQuery
	IndexName string // "" means the primary key
	HashField string
	HashValue interface{}
	Range     *RangePredicate

	// Conditions the access pattern does not satisfy. Applied in memory
	// after items return. Shared across sibling fan-out plans.
	Residual condition.Set
}

// Describe renders a one-line human-readable form, used by planctl and logs.
func (p *Plan) Describe() string {
	var b strings.Builder
	b.WriteString(p.Kind.String())
	b.WriteString(" table=")
	b.WriteString(p.Table)

	switch p.Kind {
	case KindGet:
		fmt.Fprintf(&b, " key=%v", p.Key)
	case KindBatchGet:
		fmt.Fprintf(&b, " keys=%d", len(p.Keys))
	case KindQuery:
		if p.IndexName != "" {
			fmt.Fprintf(&b, " index=%s", p.IndexName)
		} else {
			b.WriteString(" index=primary")
		}
		fmt.Fprintf(&b, " %s=%v", p.HashField, p.HashValue)
		if p.Range != nil {
			fmt.Fprintf(&b, " %s %s %v", p.Range.Field, p.Range.Op, p.Range.Value)
		}
	}

	if len(p.Residual) > 0 {
		fmt.Fprintf(&b, " residual=%v", p.Residual.Fields())
	}

	return b.String()
}
