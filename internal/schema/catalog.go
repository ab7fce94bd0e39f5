package schema

import (
	"fmt"
	"sort"
	"sync"

	"github.com/spf13/viper"

	dperrors "github.com/kartikbazzad/dynaplan/internal/errors"
	"github.com/kartikbazzad/dynaplan/internal/logger"
)

// Catalog holds the schema descriptor for every record type. It is
// populated at process start and read-only afterwards; the lock exists
// only to make registration itself safe.
type Catalog struct {
	mu     sync.RWMutex
	types  map[string]*Descriptor
	logger *logger.Logger
}

func NewCatalog(log *logger.Logger) *Catalog {
	return &Catalog{
		types:  make(map[string]*Descriptor),
		logger: log,
	}
}

// Register validates and adds a descriptor. Registering the same record
// type twice is an error; descriptors are never replaced at runtime.
func (c *Catalog) Register(d *Descriptor) error {
	if err := d.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.types[d.RecordType]; exists {
		return fmt.Errorf("%w: %s: already registered", ErrInvalidSchema, d.RecordType)
	}

	c.types[d.RecordType] = d
	c.logger.Info("Registered record type: %s (table=%s, indexes=%d)", d.RecordType, d.TableName, len(d.Indexes))
	return nil
}

// Describe returns the descriptor for a record type.
func (c *Catalog) Describe(recordType string) (*Descriptor, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	d, exists := c.types[recordType]
	if !exists {
		return nil, fmt.Errorf("%w: %s", dperrors.ErrUnknownRecordType, recordType)
	}

	return d, nil
}

// List returns all registered descriptors sorted by record type.
func (c *Catalog) List() []*Descriptor {
	c.mu.RLock()
	defer c.mu.RUnlock()

	list := make([]*Descriptor, 0, len(c.types))
	for _, d := range c.types {
		list = append(list, d)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].RecordType < list[j].RecordType })

	return list
}

// LoadFile registers every descriptor found in a YAML schema file.
//
// Layout:
//
//	schemas:
//	  - recordtype: User
//	    tablename: users
//	    fields: [id, email, created_at]
//	    key:
//	      hash: {field: id, kind: S}
//	    indexes:
//	      - name: email-index
//	        hash: {field: email, kind: S}
//	        projection: ALL
func (c *Catalog) LoadFile(path string) error {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read schema file %s: %w", path, err)
	}

	var file struct {
		Schemas []*Descriptor `mapstructure:"schemas"`
	}
	if err := v.Unmarshal(&file); err != nil {
		return fmt.Errorf("unmarshal schema file %s: %w", path, err)
	}

	for _, d := range file.Schemas {
		if err := c.Register(d); err != nil {
			return err
		}
	}

	c.logger.Info("Schema catalog loaded: %d record types from %s", len(file.Schemas), path)
	return nil
}
