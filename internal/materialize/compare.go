package materialize

import (
	"bytes"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// attrEqual reports equality between two attribute values of the same
// scalar kind. Numbers compare numerically, so "1.0" equals "1".
func attrEqual(a, b types.AttributeValue) bool {
	cmp, ok := attrCompare(a, b)
	if ok {
		return cmp == 0
	}

	// Non-ordered kinds: booleans and null.
	switch av := a.(type) {
	case *types.AttributeValueMemberBOOL:
		bv, ok := b.(*types.AttributeValueMemberBOOL)
		return ok && av.Value == bv.Value
	case *types.AttributeValueMemberNULL:
		_, ok := b.(*types.AttributeValueMemberNULL)
		return ok
	}
	return false
}

// attrCompare orders two attribute values of the same scalar kind:
// strings lexicographically, numbers numerically, binary bytewise.
// ok is false when the kinds differ or the kind has no ordering.
func attrCompare(a, b types.AttributeValue) (int, bool) {
	switch av := a.(type) {
	case *types.AttributeValueMemberS:
		bv, ok := b.(*types.AttributeValueMemberS)
		if !ok {
			return 0, false
		}
		switch {
		case av.Value < bv.Value:
			return -1, true
		case av.Value > bv.Value:
			return 1, true
		}
		return 0, true

	case *types.AttributeValueMemberN:
		bv, ok := b.(*types.AttributeValueMemberN)
		if !ok {
			return 0, false
		}
		af, errA := strconv.ParseFloat(av.Value, 64)
		bf, errB := strconv.ParseFloat(bv.Value, 64)
		if errA != nil || errB != nil {
			return 0, false
		}
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		}
		return 0, true

	case *types.AttributeValueMemberB:
		bv, ok := b.(*types.AttributeValueMemberB)
		if !ok {
			return 0, false
		}
		return bytes.Compare(av.Value, bv.Value), true
	}

	return 0, false
}
