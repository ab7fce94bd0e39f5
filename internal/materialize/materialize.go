// Package materialize converts raw store items back into records and
// applies each plan's residual conditions as an in-memory filter, so no
// item violating an original condition ever reaches the caller.
package materialize

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/kartikbazzad/dynaplan/internal/condition"
	dperrors "github.com/kartikbazzad/dynaplan/internal/errors"
)

// Record is the caller-facing record shape: field name to value.
// Callers wanting typed structs bring their own Mapper.
type Record map[string]interface{}

// Mapper is the external schema-mapping collaborator: it translates
// between records and raw store items. Implementations must be safe for
// concurrent use.
type Mapper interface {
	ToItem(record Record) (map[string]types.AttributeValue, error)
	FromItem(item map[string]types.AttributeValue) (Record, error)
}

// DefaultMapper maps records through the SDK's attributevalue codec.
type DefaultMapper struct{}

func NewDefaultMapper() *DefaultMapper {
	return &DefaultMapper{}
}

func (m *DefaultMapper) ToItem(record Record) (map[string]types.AttributeValue, error) {
	item, err := attributevalue.MarshalMap(map[string]interface{}(record))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", dperrors.ErrMapping, err)
	}
	return item, nil
}

func (m *DefaultMapper) FromItem(item map[string]types.AttributeValue) (Record, error) {
	out := make(map[string]interface{}, len(item))
	if err := attributevalue.UnmarshalMap(item, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", dperrors.ErrMapping, err)
	}
	return Record(out), nil
}

// Materializer filters and converts raw items for one plan's results.
type Materializer struct {
	mapper Mapper
}

func New(mapper Mapper) *Materializer {
	return &Materializer{mapper: mapper}
}

// ToItem converts a record to a raw store item through the mapper.
func (m *Materializer) ToItem(record Record) (map[string]types.AttributeValue, error) {
	return m.mapper.ToItem(record)
}

// Records filters raw items against the residual conditions, then
// converts survivors through the mapper. Ordering of the input is
// preserved; the engine makes no cross-plan ordering promise.
func (m *Materializer) Records(items []map[string]types.AttributeValue, residual condition.Set) ([]Record, error) {
	filtered := FilterResidual(items, residual)

	records := make([]Record, 0, len(filtered))
	for _, item := range filtered {
		rec, err := m.mapper.FromItem(item)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// FilterResidual drops items that violate any residual condition. An
// item missing a constrained attribute cannot satisfy the constraint
// and is dropped.
func FilterResidual(items []map[string]types.AttributeValue, residual condition.Set) []map[string]types.AttributeValue {
	if len(residual) == 0 {
		return items
	}

	out := make([]map[string]types.AttributeValue, 0, len(items))
	for _, item := range items {
		if matches(item, residual) {
			out = append(out, item)
		}
	}
	return out
}

func matches(item map[string]types.AttributeValue, residual condition.Set) bool {
	for field, fc := range residual {
		av, present := item[field]
		if !present {
			return false
		}

		if fc.Membership != nil && !memberOf(av, fc.Membership.Values) {
			return false
		}

		if fc.Range != nil && !inRange(av, fc.Range.Op, fc.Range.Value) {
			return false
		}
	}
	return true
}

func memberOf(av types.AttributeValue, values []interface{}) bool {
	for _, v := range values {
		want, err := attributevalue.Marshal(v)
		if err != nil {
			continue
		}
		if attrEqual(av, want) {
			return true
		}
	}
	return false
}

func inRange(av types.AttributeValue, op condition.Operator, value interface{}) bool {
	want, err := attributevalue.Marshal(value)
	if err != nil {
		return false
	}

	cmp, ok := attrCompare(av, want)
	if !ok {
		return false
	}

	switch op {
	case condition.OpLt:
		return cmp < 0
	case condition.OpLte:
		return cmp <= 0
	case condition.OpGt:
		return cmp > 0
	case condition.OpGte:
		return cmp >= 0
	}
	return false
}
