package services

import (
	"strings"
)

// FieldKind selects how the cleaner coerces a raw cell.
type FieldKind int

const (
	StringField FieldKind = iota
	ArrayField
	DateField
	DecimalField
	PersonsField
)

// FieldSpec describes one canonical field of an entity.
type FieldSpec struct {
	Name string
	// Column is the database column; defaults to the lower-cased name.
	Column string
	Kind   FieldKind
	MaxLen int
}

// ColumnName returns the storage column for the field.
func (f FieldSpec) ColumnName() string {
	if f.Column != "" {
		return f.Column
	}
	return strings.ToLower(f.Name)
}

// CompositeSpec pairs two split source columns into a list of person records.
type CompositeSpec struct {
	Field      string
	NameSource string
	IDSource   string
	IDPrefix   string
}

// EntityConfig parameterizes the import engine for one entity type.
type EntityConfig struct {
	Name  string
	Slug  string
	Table string
	// KeyExpr is the SQL expression that yields the natural key of a stored row.
	KeyExpr  string
	Synonyms []SynonymSet
	Fields   []FieldSpec
	Required []string
	// RequiredHeaders must be covered by the header mapping before any row is read.
	RequiredHeaders []string
	KeyFields       []string
	KeyLabel        string
	DisplayFields   []string
	StatusField     string
	DefaultStatus   string

	// NestedDocuments selects the smaller chunk size for rows carrying arrays.
	NestedDocuments      bool
	ChunkSize            int
	MaxConcurrentBatches int
	ReportUnmapped       bool
	Composite            *CompositeSpec
}

// Field looks up a field spec by canonical name.
func (c *EntityConfig) Field(name string) (FieldSpec, bool) {
	for _, f := range c.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// NaturalKey derives the lower-cased natural key of a record. It returns ""
// when any key field is empty.
func (c *EntityConfig) NaturalKey(rec Record) string {
	parts := make([]string, 0, len(c.KeyFields))
	for _, f := range c.KeyFields {
		s, _ := rec[f].(string)
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			return ""
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, "|")
}

// DuplicateMessage is the row error used for a repeated natural key.
func (c *EntityConfig) DuplicateMessage() string {
	return "Duplicate " + c.KeyLabel + " in file"
}

// CanonicalHeaders lists the fields a template file should carry.
func (c *EntityConfig) CanonicalHeaders() []string {
	out := make([]string, 0, len(c.Synonyms))
	for _, s := range c.Synonyms {
		out = append(out, s.Field)
	}
	return out
}

func (c *EntityConfig) withDefaults(opts EngineOptions) *EntityConfig {
	if c.ChunkSize <= 0 {
		c.ChunkSize = opts.ChunkSize
		if c.NestedDocuments && opts.NestedChunkSize > 0 {
			c.ChunkSize = opts.NestedChunkSize
		}
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = 200
	}
	if c.MaxConcurrentBatches <= 0 {
		c.MaxConcurrentBatches = opts.MaxConcurrentBatches
	}
	if c.MaxConcurrentBatches <= 0 {
		c.MaxConcurrentBatches = 3
	}
	if c.DefaultStatus == "" {
		c.DefaultStatus = "Active"
	}
	if c.StatusField == "" {
		c.StatusField = "status"
	}
	return c
}
