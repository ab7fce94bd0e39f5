package materialize

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kartikbazzad/dynaplan/internal/condition"
)

func s(v string) types.AttributeValue { return &types.AttributeValueMemberS{Value: v} }
func n(v string) types.AttributeValue { return &types.AttributeValueMemberN{Value: v} }

func mustSet(t *testing.T, conds ...condition.Condition) condition.Set {
	t.Helper()
	set, err := condition.Normalize(conds)
	require.NoError(t, err)
	return set
}

func TestFilterResidual_EmptySetPassesEverything(t *testing.T) {
	items := []map[string]types.AttributeValue{
		{"id": s("a")},
		{"id": s("b")},
	}

	out := FilterResidual(items, condition.Set{})
	assert.Len(t, out, 2)
}

func TestFilterResidual_Membership(t *testing.T) {
	items := []map[string]types.AttributeValue{
		{"status": s("active")},
		{"status": s("banned")},
		{"status": s("pending")},
	}

	set := mustSet(t, condition.In("status", "active", "pending"))
	out := FilterResidual(items, set)

	require.Len(t, out, 2)
	assert.Equal(t, s("active"), out[0]["status"])
	assert.Equal(t, s("pending"), out[1]["status"])
}

func TestFilterResidual_RangeOnNumbers(t *testing.T) {
	items := []map[string]types.AttributeValue{
		{"age": n("17")},
		{"age": n("18")},
		{"age": n("42")},
	}

	set := mustSet(t, condition.Range("age", condition.OpGte, 18))
	out := FilterResidual(items, set)

	require.Len(t, out, 2)
	assert.Equal(t, n("18"), out[0]["age"])
}

func TestFilterResidual_NumbersCompareNumerically(t *testing.T) {
	// Lexicographic comparison would order "9" after "10".
	items := []map[string]types.AttributeValue{
		{"age": n("9")},
		{"age": n("10")},
	}

	set := mustSet(t, condition.Range("age", condition.OpLt, 10))
	out := FilterResidual(items, set)

	require.Len(t, out, 1)
	assert.Equal(t, n("9"), out[0]["age"])
}

func TestFilterResidual_MissingAttributeDrops(t *testing.T) {
	items := []map[string]types.AttributeValue{
		{"id": s("a"), "status": s("active")},
		{"id": s("b")},
	}

	set := mustSet(t, condition.Eq("status", "active"))
	out := FilterResidual(items, set)

	require.Len(t, out, 1)
	assert.Equal(t, s("a"), out[0]["id"])
}

func TestFilterResidual_MembershipAndRangeOnSameField(t *testing.T) {
	items := []map[string]types.AttributeValue{
		{"score": n("5")},
		{"score": n("7")},
		{"score": n("9")},
	}

	set := mustSet(t,
		condition.In("score", 5, 7),
		condition.Range("score", condition.OpGt, 6),
	)
	out := FilterResidual(items, set)

	require.Len(t, out, 1)
	assert.Equal(t, n("7"), out[0]["score"])
}

func TestRecords_FiltersThenConverts(t *testing.T) {
	m := New(NewDefaultMapper())

	items := []map[string]types.AttributeValue{
		{"id": s("a"), "status": s("active")},
		{"id": s("b"), "status": s("banned")},
	}

	set := mustSet(t, condition.Eq("status", "active"))
	records, err := m.Records(items, set)
	require.NoError(t, err)

	require.Len(t, records, 1)
	assert.Equal(t, "a", records[0]["id"])
}

func TestDefaultMapper_RoundTrip(t *testing.T) {
	m := NewDefaultMapper()

	rec := Record{"id": "u1", "age": 30, "active": true}
	av, err := m.ToItem(rec)
	require.NoError(t, err)

	back, err := m.FromItem(av)
	require.NoError(t, err)

	assert.Equal(t, "u1", back["id"])
	assert.Equal(t, true, back["active"])
	// Numbers come back as float64 through the generic codec.
	assert.Equal(t, float64(30), back["age"])
}

func TestAttrEqual_MixedKindsNeverEqual(t *testing.T) {
	assert.False(t, attrEqual(s("1"), n("1")))
}

func TestAttrEqual_NumericFormsMatch(t *testing.T) {
	assert.True(t, attrEqual(n("1.0"), n("1")))
}

func TestAttrCompare_Strings(t *testing.T) {
	cmp, ok := attrCompare(s("apple"), s("banana"))
	require.True(t, ok)
	assert.Negative(t, cmp)
}

func TestAttrCompare_Binary(t *testing.T) {
	a := &types.AttributeValueMemberB{Value: []byte{0x01}}
	b := &types.AttributeValueMemberB{Value: []byte{0x02}}

	cmp, ok := attrCompare(a, b)
	require.True(t, ok)
	assert.Negative(t, cmp)
}

func TestAttrCompare_UnorderedKinds(t *testing.T) {
	a := &types.AttributeValueMemberBOOL{Value: true}
	b := &types.AttributeValueMemberBOOL{Value: true}

	_, ok := attrCompare(a, b)
	assert.False(t, ok)
	assert.True(t, attrEqual(a, b))
}
