// Package schema describes record types as data: each record type maps to
// a table with a primary key and zero or more secondary indexes. Descriptors
// are loaded once at startup and shared read-only by all planner invocations.
package schema

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

var (
	ErrInvalidSchema = errors.New("invalid schema descriptor")
)

// KeyKind is the attribute type of a key field (DynamoDB scalar kinds).
type KeyKind string

const (
	KindString KeyKind = "S"
	KindNumber KeyKind = "N"
	KindBinary KeyKind = "B"
)

// KeyDef names a key attribute and its kind.
type KeyDef struct {
	Field string  `mapstructure:"field"`
	Kind  KeyKind `mapstructure:"kind"`
}

// PrimaryKey is the table's hash key plus optional range key.
type PrimaryKey struct {
	Hash  KeyDef  `mapstructure:"hash"`
	Range *KeyDef `mapstructure:"range"`
}

// Projection controls which attributes an index query can return without
// a follow-up fetch against the base table.
type Projection string

const (
	ProjectAll      Projection = "ALL"
	ProjectKeysOnly Projection = "KEYS_ONLY"
	ProjectInclude  Projection = "INCLUDE"
)

// Index describes a secondary index: its own hash/range pair over the
// same item set. Declaration order matters - the planner breaks ties by
// preferring the index declared first.
type Index struct {
	Name       string     `mapstructure:"name"`
	Hash       KeyDef     `mapstructure:"hash"`
	Range      *KeyDef    `mapstructure:"range"`
	Projection Projection `mapstructure:"projection"`
	Includes   []string   `mapstructure:"includes"`
}

// Descriptor is the static description of one record type. Immutable
// after registration; shared without locking.
type Descriptor struct {
	RecordType string     `mapstructure:"recordtype"`
	TableName  string     `mapstructure:"tablename"`
	Key        PrimaryKey `mapstructure:"key"`
	Indexes    []Index    `mapstructure:"indexes"`
	Fields     []string   `mapstructure:"fields"`
}

// HasField reports whether the descriptor declares the named field.
func (d *Descriptor) HasField(name string) bool {
	for _, f := range d.Fields {
		if f == name {
			return true
		}
	}
	return false
}

// KeyFields returns the primary key attribute names (hash, then range).
func (d *Descriptor) KeyFields() []string {
	fields := []string{d.Key.Hash.Field}
	if d.Key.Range != nil {
		fields = append(fields, d.Key.Range.Field)
	}
	return fields
}

// Validate checks descriptor invariants: non-empty names, key fields
// declared in the field list, every index hash field present in the
// schema, and no duplicate index names.
func (d *Descriptor) Validate() error {
	if d.RecordType == "" || !utf8.ValidString(d.RecordType) {
		return fmt.Errorf("%w: record type must be a non-empty UTF-8 string", ErrInvalidSchema)
	}
	if d.TableName == "" {
		return fmt.Errorf("%w: %s: table name cannot be empty", ErrInvalidSchema, d.RecordType)
	}
	if d.Key.Hash.Field == "" {
		return fmt.Errorf("%w: %s: primary hash field cannot be empty", ErrInvalidSchema, d.RecordType)
	}
	if !d.HasField(d.Key.Hash.Field) {
		return fmt.Errorf("%w: %s: hash field %q not declared in fields", ErrInvalidSchema, d.RecordType, d.Key.Hash.Field)
	}
	if d.Key.Range != nil && !d.HasField(d.Key.Range.Field) {
		return fmt.Errorf("%w: %s: range field %q not declared in fields", ErrInvalidSchema, d.RecordType, d.Key.Range.Field)
	}

	seen := make(map[string]bool, len(d.Indexes))
	for _, idx := range d.Indexes {
		if idx.Name == "" {
			return fmt.Errorf("%w: %s: index name cannot be empty", ErrInvalidSchema, d.RecordType)
		}
		if seen[idx.Name] {
			return fmt.Errorf("%w: %s: duplicate index name %q", ErrInvalidSchema, d.RecordType, idx.Name)
		}
		seen[idx.Name] = true

		if !d.HasField(idx.Hash.Field) {
			return fmt.Errorf("%w: %s: index %s hash field %q not declared in fields",
				ErrInvalidSchema, d.RecordType, idx.Name, idx.Hash.Field)
		}
		if idx.Range != nil && !d.HasField(idx.Range.Field) {
			return fmt.Errorf("%w: %s: index %s range field %q not declared in fields",
				ErrInvalidSchema, d.RecordType, idx.Name, idx.Range.Field)
		}
	}

	return nil
}
