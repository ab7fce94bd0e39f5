package condition

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dperrors "github.com/kartikbazzad/dynaplan/internal/errors"
)

func TestNormalize_EqFoldsToMembership(t *testing.T) {
	set, err := Normalize([]Condition{Eq("id", "a")})
	require.NoError(t, err)

	fc := set["id"]
	require.NotNil(t, fc.Membership)
	assert.Equal(t, OpIn, fc.Membership.Op)
	assert.Equal(t, []interface{}{"a"}, fc.Membership.Values)
	assert.Nil(t, fc.Range)
}

func TestNormalize_EqAndInIntersect(t *testing.T) {
	set, err := Normalize([]Condition{
		In("status", "open", "closed", "stale"),
		Eq("status", "closed"),
	})
	require.NoError(t, err)

	fc := set["status"]
	require.NotNil(t, fc.Membership)
	assert.Equal(t, []interface{}{"closed"}, fc.Membership.Values)
}

func TestNormalize_DisjointEqualityConflicts(t *testing.T) {
	_, err := Normalize([]Condition{Eq("id", "a"), Eq("id", "b")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, dperrors.ErrConflictingCondition))
}

func TestNormalize_TwoRangeDirectionsConflict(t *testing.T) {
	_, err := Normalize([]Condition{
		Range("age", OpGt, 10),
		Range("age", OpLt, 20),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, dperrors.ErrConflictingCondition))
}

func TestNormalize_MembershipAndRangeCoexist(t *testing.T) {
	set, err := Normalize([]Condition{
		Eq("age", 15),
		Range("age", OpGte, 10),
	})
	require.NoError(t, err)

	fc := set["age"]
	assert.NotNil(t, fc.Membership)
	assert.NotNil(t, fc.Range)
	assert.Equal(t, OpGte, fc.Range.Op)
}

func TestNormalize_UnsupportedOperator(t *testing.T) {
	_, err := Normalize([]Condition{{Field: "name", Op: "contains", Value: "x"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, dperrors.ErrUnsupportedOperator))
}

func TestNormalize_EmptyInConflicts(t *testing.T) {
	_, err := Normalize([]Condition{In("id")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, dperrors.ErrConflictingCondition))
}

func TestNormalize_DedupesMembers(t *testing.T) {
	set, err := Normalize([]Condition{In("id", "a", "b", "a")})
	require.NoError(t, err)
	assert.Len(t, set["id"].Membership.Values, 2)
}

func TestSignature_DistinguishesShapeNotValues(t *testing.T) {
	a, err := Normalize([]Condition{Eq("id", "x"), Range("age", OpGt, 1)})
	require.NoError(t, err)
	b, err := Normalize([]Condition{Eq("id", "y"), Range("age", OpGt, 99)})
	require.NoError(t, err)
	c, err := Normalize([]Condition{In("id", "x", "y"), Range("age", OpGt, 1)})
	require.NoError(t, err)

	assert.Equal(t, a.Signature(), b.Signature())
	assert.NotEqual(t, a.Signature(), c.Signature())
}

func TestSignature_FieldOrderIndependent(t *testing.T) {
	a, err := Normalize([]Condition{Eq("x", 1), Eq("y", 2)})
	require.NoError(t, err)
	b, err := Normalize([]Condition{Eq("y", 2), Eq("x", 1)})
	require.NoError(t, err)

	assert.Equal(t, a.Signature(), b.Signature())
}

func TestClone_IndependentOfOriginal(t *testing.T) {
	set, err := Normalize([]Condition{Eq("id", "a"), Range("age", OpLt, 5)})
	require.NoError(t, err)

	clone := set.Clone()
	delete(clone, "id")

	assert.Contains(t, set, "id")
	assert.NotContains(t, clone, "id")
}
