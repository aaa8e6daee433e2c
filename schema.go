package dynamodel

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Field declares one attribute of a schema.
type Field struct {
	Name string
	Kind Kind

	// HashKey marks the partition key. Every schema has exactly one.
	HashKey bool
	// RangeKey marks the sort key. A schema has at most one.
	RangeKey bool

	// Nullable fields may be absent when writing.
	// Fields with a Default are always nullable.
	Nullable bool
	// Default is used when a record has no value for this field.
	// It is either a value or a func() any producing one.
	Default any
}

func (f Field) required() bool {
	return !f.Nullable && f.Default == nil
}

func (f Field) defaultValue() (any, bool) {
	switch d := f.Default.(type) {
	case nil:
		return nil, false
	case func() any:
		return d(), true
	default:
		return cloneValue(d), true
	}
}

// IndexProjection determines which attributes are mirrored into indices.
type IndexProjection string

var (
	// Only the key attributes of the table and index are projected into the index.
	KeysOnlyProjection IndexProjection = IndexProjection(types.ProjectionTypeKeysOnly)
	// All of the table attributes are projected into the index.
	AllProjection IndexProjection = IndexProjection(types.ProjectionTypeAll)
	// Only the specified table attributes are projected into the index.
	IncludeProjection IndexProjection = IndexProjection(types.ProjectionTypeInclude)
)

// Throughput is a provisioned read and write capacity.
type Throughput struct {
	Read  int64
	Write int64
}

// Index declares a secondary index.
// An index with a Throughput is a global secondary index; without one it is local.
type Index struct {
	Name     string
	HashKey  string
	RangeKey string

	// Projection defaults to AllProjection.
	Projection IndexProjection
	// Include lists the non-key attributes projected by IncludeProjection.
	Include []string

	Throughput *Throughput
}

// Global returns true for global secondary indexes.
func (idx Index) Global() bool {
	return idx.Throughput != nil
}

// Schema is a named, ordered set of fields mapped onto a table.
// Derived data such as key definitions is computed once by NewSchema.
// A Schema is immutable and safe to share.
type Schema struct {
	table   string
	fields  []Field
	byName  map[string]int
	hash    int
	rng     int
	indexes []Index

	attribs []types.AttributeDefinition
	keys    []types.KeySchemaElement
	gsi     []types.GlobalSecondaryIndex
	lsi     []types.LocalSecondaryIndex
}

// NewSchema declares a schema for the given table.
func NewSchema(table string, fields []Field, indexes ...Index) (*Schema, error) {
	if table == "" {
		return nil, fmt.Errorf("dynamodel: schema needs a table name")
	}
	s := &Schema{
		table:   table,
		fields:  make([]Field, len(fields)),
		byName:  make(map[string]int, len(fields)),
		hash:    -1,
		rng:     -1,
		indexes: append([]Index(nil), indexes...),
	}
	copy(s.fields, fields)

	for i, f := range s.fields {
		switch {
		case f.Name == "":
			return nil, fmt.Errorf("dynamodel: %s: field %d has no name", table, i)
		case !f.Kind.known():
			return nil, fmt.Errorf("dynamodel: %s: field %s has unknown kind %q", table, f.Name, f.Kind)
		}
		if _, dupe := s.byName[f.Name]; dupe {
			return nil, fmt.Errorf("dynamodel: %s: duplicate field %s", table, f.Name)
		}
		s.byName[f.Name] = i
		if f.Default != nil {
			s.fields[i].Nullable = true
		}

		if f.HashKey {
			if s.hash >= 0 {
				return nil, fmt.Errorf("dynamodel: %s: more than one hash key (%s, %s)", table, s.fields[s.hash].Name, f.Name)
			}
			s.hash = i
		}
		if f.RangeKey {
			if s.rng >= 0 {
				return nil, fmt.Errorf("dynamodel: %s: more than one range key (%s, %s)", table, s.fields[s.rng].Name, f.Name)
			}
			s.rng = i
		}
		if (f.HashKey || f.RangeKey) && !f.Kind.IsScalar() {
			return nil, fmt.Errorf("dynamodel: %s: key %s must be a string, number or binary, not %s", table, f.Name, f.Kind)
		}
	}
	if s.hash < 0 {
		return nil, fmt.Errorf("dynamodel: %s: no hash key", table)
	}
	if s.hash == s.rng {
		return nil, fmt.Errorf("dynamodel: %s: %s cannot be both hash and range key", table, s.fields[s.hash].Name)
	}

	if err := s.derive(); err != nil {
		return nil, err
	}
	return s, nil
}

// MustSchema is like NewSchema but panics on error.
// It is meant for package-level schema declarations.
func MustSchema(table string, fields []Field, indexes ...Index) *Schema {
	s, err := NewSchema(table, fields, indexes...)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Schema) derive() error {
	s.keys = s.keySchema(s.fields[s.hash].Name, s.rangeKeyName())
	for _, k := range s.keys {
		s.addAttrib(aws.ToString(k.AttributeName))
	}

	seen := make(map[string]bool, len(s.indexes))
	for _, idx := range s.indexes {
		switch {
		case idx.Name == "":
			return fmt.Errorf("dynamodel: %s: index without name", s.table)
		case seen[idx.Name]:
			return fmt.Errorf("dynamodel: %s: duplicate index %s", s.table, idx.Name)
		case idx.HashKey == "":
			return fmt.Errorf("dynamodel: %s: index %s has no hash key", s.table, idx.Name)
		}
		seen[idx.Name] = true
		for _, name := range []string{idx.HashKey, idx.RangeKey} {
			if name == "" {
				continue
			}
			f, ok := s.Field(name)
			if !ok {
				return fmt.Errorf("dynamodel: %s: index %s uses undeclared field %s", s.table, idx.Name, name)
			}
			if !f.Kind.IsScalar() {
				return fmt.Errorf("dynamodel: %s: index %s key %s must be a string, number or binary, not %s", s.table, idx.Name, name, f.Kind)
			}
			s.addAttrib(name)
		}

		proj := &types.Projection{ProjectionType: types.ProjectionTypeAll}
		if idx.Projection != "" {
			proj.ProjectionType = types.ProjectionType(idx.Projection)
		}
		if idx.Projection == IncludeProjection {
			proj.NonKeyAttributes = append([]string(nil), idx.Include...)
		}

		ks := s.keySchema(idx.HashKey, idx.RangeKey)
		if idx.Global() {
			s.gsi = append(s.gsi, types.GlobalSecondaryIndex{
				IndexName:  aws.String(idx.Name),
				KeySchema:  ks,
				Projection: proj,
				ProvisionedThroughput: &types.ProvisionedThroughput{
					ReadCapacityUnits:  aws.Int64(idx.Throughput.Read),
					WriteCapacityUnits: aws.Int64(idx.Throughput.Write),
				},
			})
			continue
		}
		if idx.HashKey != s.fields[s.hash].Name {
			return fmt.Errorf("dynamodel: %s: local index %s must share the table hash key %s", s.table, idx.Name, s.fields[s.hash].Name)
		}
		s.lsi = append(s.lsi, types.LocalSecondaryIndex{
			IndexName:  aws.String(idx.Name),
			KeySchema:  ks,
			Projection: proj,
		})
	}
	return nil
}

func (s *Schema) keySchema(hashKey, rangeKey string) []types.KeySchemaElement {
	ks := []types.KeySchemaElement{{
		AttributeName: aws.String(hashKey),
		KeyType:       types.KeyTypeHash,
	}}
	if rangeKey != "" {
		ks = append(ks, types.KeySchemaElement{
			AttributeName: aws.String(rangeKey),
			KeyType:       types.KeyTypeRange,
		})
	}
	return ks
}

// addAttrib adds an attribute definition unless one already exists for name.
func (s *Schema) addAttrib(name string) {
	for _, attr := range s.attribs {
		if aws.ToString(attr.AttributeName) == name {
			return
		}
	}
	f, _ := s.Field(name)
	s.attribs = append(s.attribs, types.AttributeDefinition{
		AttributeName: aws.String(name),
		AttributeType: types.ScalarAttributeType(f.Kind),
	})
}

// Table returns the name of the table this schema maps to.
func (s *Schema) Table() string {
	return s.table
}

// Fields returns the declared fields in order.
func (s *Schema) Fields() []Field {
	return append([]Field(nil), s.fields...)
}

// Field looks up a field by name.
func (s *Schema) Field(name string) (Field, bool) {
	i, ok := s.byName[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

// Indexes returns the declared secondary indexes.
func (s *Schema) Indexes() []Index {
	return append([]Index(nil), s.indexes...)
}

// HashKey returns the hash key field.
func (s *Schema) HashKey() Field {
	return s.fields[s.hash]
}

// RangeKey returns the range key field, if there is one.
func (s *Schema) RangeKey() (Field, bool) {
	if s.rng < 0 {
		return Field{}, false
	}
	return s.fields[s.rng], true
}

func (s *Schema) rangeKeyName() string {
	if s.rng < 0 {
		return ""
	}
	return s.fields[s.rng].Name
}

// EncodeKey encodes a primary key. rangeKey is ignored for schemas without a range key.
func (s *Schema) EncodeKey(hashKey, rangeKey any) (Item, error) {
	hf := s.fields[s.hash]
	hav, err := hf.Kind.Encode(hf.Name, hashKey)
	if err != nil {
		return nil, err
	}
	key := Item{hf.Name: hav}
	if s.rng >= 0 {
		rf := s.fields[s.rng]
		if rangeKey == nil {
			return nil, &NullAttributeError{Field: rf.Name}
		}
		rav, err := rf.Kind.Encode(rf.Name, rangeKey)
		if err != nil {
			return nil, err
		}
		key[rf.Name] = rav
	}
	return key, nil
}

// cloneValue copies mutable default values so records never share them.
func cloneValue(v any) any {
	switch x := v.(type) {
	case Set:
		return x.Clone()
	case []any:
		return append([]any(nil), x...)
	case map[string]any:
		m := make(map[string]any, len(x))
		for k, v := range x {
			m[k] = v
		}
		return m
	case []byte:
		return append([]byte(nil), x...)
	}
	return v
}

func (s *Schema) hasIndex(name string) bool {
	for _, idx := range s.indexes {
		if idx.Name == name {
			return true
		}
	}
	return false
}
