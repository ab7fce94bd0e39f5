package schema

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dperrors "github.com/kartikbazzad/dynaplan/internal/errors"
	"github.com/kartikbazzad/dynaplan/internal/logger"
)

func testCatalog() *Catalog {
	return NewCatalog(logger.New(io.Discard, logger.LevelError, "[test]"))
}

func userDescriptor() *Descriptor {
	return &Descriptor{
		RecordType: "User",
		TableName:  "users",
		Fields:     []string{"id", "email", "status", "created_at"},
		Key: PrimaryKey{
			Hash: KeyDef{Field: "id", Kind: KindString},
		},
		Indexes: []Index{
			{
				Name:       "email-index",
				Hash:       KeyDef{Field: "email", Kind: KindString},
				Projection: ProjectAll,
			},
		},
	}
}

func TestRegisterAndDescribe(t *testing.T) {
	c := testCatalog()
	require.NoError(t, c.Register(userDescriptor()))

	d, err := c.Describe("User")
	require.NoError(t, err)
	assert.Equal(t, "users", d.TableName)
}

func TestDescribe_UnknownRecordType(t *testing.T) {
	c := testCatalog()

	_, err := c.Describe("Ghost")
	require.Error(t, err)
	assert.True(t, errors.Is(err, dperrors.ErrUnknownRecordType))
}

func TestRegister_DuplicateRejected(t *testing.T) {
	c := testCatalog()
	require.NoError(t, c.Register(userDescriptor()))

	err := c.Register(userDescriptor())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidSchema))
}

func TestList_SortedByRecordType(t *testing.T) {
	c := testCatalog()

	order := &Descriptor{
		RecordType: "Order",
		TableName:  "orders",
		Fields:     []string{"customer_id", "order_id"},
		Key: PrimaryKey{
			Hash:  KeyDef{Field: "customer_id", Kind: KindString},
			Range: &KeyDef{Field: "order_id", Kind: KindString},
		},
	}

	require.NoError(t, c.Register(userDescriptor()))
	require.NoError(t, c.Register(order))

	list := c.List()
	require.Len(t, list, 2)
	assert.Equal(t, "Order", list[0].RecordType)
	assert.Equal(t, "User", list[1].RecordType)
}

func TestValidate_RejectsBadDescriptors(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Descriptor)
	}{
		{"empty record type", func(d *Descriptor) { d.RecordType = "" }},
		{"empty table name", func(d *Descriptor) { d.TableName = "" }},
		{"empty hash field", func(d *Descriptor) { d.Key.Hash.Field = "" }},
		{"hash field not declared", func(d *Descriptor) { d.Key.Hash.Field = "missing" }},
		{"range field not declared", func(d *Descriptor) {
			d.Key.Range = &KeyDef{Field: "missing", Kind: KindNumber}
		}},
		{"empty index name", func(d *Descriptor) { d.Indexes[0].Name = "" }},
		{"duplicate index name", func(d *Descriptor) {
			d.Indexes = append(d.Indexes, d.Indexes[0])
		}},
		{"index hash not declared", func(d *Descriptor) { d.Indexes[0].Hash.Field = "missing" }},
		{"index range not declared", func(d *Descriptor) {
			d.Indexes[0].Range = &KeyDef{Field: "missing", Kind: KindNumber}
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := userDescriptor()
			tc.mutate(d)

			err := d.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidSchema))
		})
	}
}

func TestKeyFields(t *testing.T) {
	d := userDescriptor()
	assert.Equal(t, []string{"id"}, d.KeyFields())

	d.Fields = append(d.Fields, "sort")
	d.Key.Range = &KeyDef{Field: "sort", Kind: KindString}
	assert.Equal(t, []string{"id", "sort"}, d.KeyFields())
}

func TestLoadFile(t *testing.T) {
	content := `schemas:
  - recordtype: User
    tablename: users
    fields: [id, email, created_at]
    key:
      hash: {field: id, kind: S}
    indexes:
      - name: email-index
        hash: {field: email, kind: S}
        projection: ALL
  - recordtype: Order
    tablename: orders
    fields: [customer_id, order_id, status]
    key:
      hash: {field: customer_id, kind: S}
      range: {field: order_id, kind: S}
`
	path := filepath.Join(t.TempDir(), "schemas.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	c := testCatalog()
	require.NoError(t, c.LoadFile(path))

	user, err := c.Describe("User")
	require.NoError(t, err)
	require.Len(t, user.Indexes, 1)
	assert.Equal(t, "email-index", user.Indexes[0].Name)
	assert.Equal(t, ProjectAll, user.Indexes[0].Projection)

	order, err := c.Describe("Order")
	require.NoError(t, err)
	require.NotNil(t, order.Key.Range)
	assert.Equal(t, "order_id", order.Key.Range.Field)
}

func TestLoadFile_MissingFile(t *testing.T) {
	c := testCatalog()
	assert.Error(t, c.LoadFile(filepath.Join(t.TempDir(), "nope.yaml")))
}

func TestLoadFile_InvalidDescriptorRejected(t *testing.T) {
	content := `schemas:
  - recordtype: Broken
    tablename: ""
    fields: [id]
    key:
      hash: {field: id, kind: S}
`
	path := filepath.Join(t.TempDir(), "schemas.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	c := testCatalog()
	err := c.LoadFile(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidSchema))
}
