package executor

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/kartikbazzad/dynaplan/internal/condition"
	"github.com/kartikbazzad/dynaplan/internal/planner"
)

// MarshalKey converts a field->value key into store attribute values.
func MarshalKey(key map[string]interface{}) (map[string]types.AttributeValue, error) {
	out := make(map[string]types.AttributeValue, len(key))
	for field, value := range key {
		av, err := attributevalue.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("marshal key field %s: %w", field, err)
		}
		out[field] = av
	}
	return out, nil
}

// MarshalKeys converts a list of keys.
func MarshalKeys(keys []map[string]interface{}) ([]map[string]types.AttributeValue, error) {
	out := make([]map[string]types.AttributeValue, 0, len(keys))
	for _, key := range keys {
		mk, err := MarshalKey(key)
		if err != nil {
			return nil, err
		}
		out = append(out, mk)
	}
	return out, nil
}

func compileGet(plan *planner.Plan) (*dynamodb.GetItemInput, error) {
	key, err := MarshalKey(plan.Key)
	if err != nil {
		return nil, err
	}
	return &dynamodb.GetItemInput{
		TableName: aws.String(plan.Table),
		Key:       key,
	}, nil
}

// compileQuery builds a key-condition query. The hash condition is
// always equality; the optional range predicate maps to the store's
// comparison syntax.
func compileQuery(plan *planner.Plan) (*dynamodb.QueryInput, error) {
	hv, err := attributevalue.Marshal(plan.HashValue)
	if err != nil {
		return nil, fmt.Errorf("marshal hash value for %s: %w", plan.HashField, err)
	}

	expr := "#hk = :hv"
	names := map[string]string{"#hk": plan.HashField}
	values := map[string]types.AttributeValue{":hv": hv}

	if plan.Range != nil {
		op, err := comparisonToken(plan.Range.Op)
		if err != nil {
			return nil, err
		}
		rv, err := attributevalue.Marshal(plan.Range.Value)
		if err != nil {
			return nil, fmt.Errorf("marshal range value for %s: %w", plan.Range.Field, err)
		}
		expr += fmt.Sprintf(" AND #rk %s :rv", op)
		names["#rk"] = plan.Range.Field
		values[":rv"] = rv
	}

	in := &dynamodb.QueryInput{
		TableName:                 aws.String(plan.Table),
		KeyConditionExpression:    aws.String(expr),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	}
	if plan.IndexName != "" {
		in.IndexName = aws.String(plan.IndexName)
	}
	return in, nil
}

// compileScan builds a bare scan; residual conditions are applied
// client-side by the materializer, never pushed into the store.
func compileScan(plan *planner.Plan) *dynamodb.ScanInput {
	return &dynamodb.ScanInput{
		TableName: aws.String(plan.Table),
	}
}

func comparisonToken(op condition.Operator) (string, error) {
	switch op {
	case condition.OpEq:
		return "=", nil
	case condition.OpLt:
		return "<", nil
	case condition.OpLte:
		return "<=", nil
	case condition.OpGt:
		return ">", nil
	case condition.OpGte:
		return ">=", nil
	}
	return "", fmt.Errorf("operator %q has no comparison form", op)
}
