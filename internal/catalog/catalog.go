// Package catalog loads table column lists from a YAML schema file and serves
// them to the lineage extractor.
//
// The file maps schemas to tables to columns:
//
//	default_schema: dbo
//	schemas:
//	  dbo:
//	    Customers: [id, name, lifetime]
//	  sales:
//	    Orders: [id, customer_id, amount]
package catalog

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/sqllineage/pkg/lineage"
)

// ErrDuplicateTable is returned when two entries fold to the same table.
var ErrDuplicateTable = errors.New("duplicate table")

// schemaFile is the on-disk layout.
type schemaFile struct {
	DefaultSchema string                         `yaml:"default_schema"`
	Schemas       map[string]map[string][]string `yaml:"schemas"`
}

// Catalog answers column lookups by case-insensitive schema and table name.
// It is read-only after loading and safe for concurrent use.
type Catalog struct {
	defaultSchema string
	tables        map[string][]string
	names         []string
}

var _ lineage.ColumnResolver = (*Catalog)(nil)

// Load reads a schema file from path.
func Load(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open schema file: %w", err)
	}
	defer func() { _ = f.Close() }()

	c, err := Parse(f, "")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Parse decodes a schema file. defaultSchema is used when the file does
// not name one; "dbo" when both are empty.
func Parse(r io.Reader, defaultSchema string) (*Catalog, error) {
	var sf schemaFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&sf); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("invalid schema file: %w", err)
	}

	c := &Catalog{
		defaultSchema: firstNonEmpty(sf.DefaultSchema, defaultSchema, "dbo"),
		tables:        make(map[string][]string),
	}

	fold := cases.Fold()
	for schema, tables := range sf.Schemas {
		for table, columns := range tables {
			key := fold.String(schema + "." + table)
			if _, ok := c.tables[key]; ok {
				return nil, fmt.Errorf("%w: %s.%s", ErrDuplicateTable, schema, table)
			}
			c.tables[key] = slices.Clone(columns)
			c.names = append(c.names, schema+"."+table)
		}
	}
	slices.Sort(c.names)
	return c, nil
}

// ResolveColumns implements lineage.ColumnResolver. An empty schema means
// the catalog's default schema.
func (c *Catalog) ResolveColumns(schema, table string) ([]string, bool) {
	if c == nil {
		return nil, false
	}
	if schema == "" {
		schema = c.defaultSchema
	}
	columns, ok := c.tables[cases.Fold().String(schema+"."+table)]
	if !ok {
		return nil, false
	}
	return slices.Clone(columns), true
}

// Tables returns the qualified names of all tables, sorted.
func (c *Catalog) Tables() []string {
	return slices.Clone(c.names)
}

// DefaultSchema returns the schema assumed for unqualified tables.
func (c *Catalog) DefaultSchema() string {
	return c.defaultSchema
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
