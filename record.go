package dynamodel

import (
	"context"
	"fmt"
	"reflect"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
)

// Record is one item of a schema: a mapping from field names to native values.
// Values are validated against their field kinds only when the record is written.
//
// Records created through a Model are bound to it and can Save and Delete themselves.
type Record struct {
	schema *Schema
	model  *Model
	values map[string]any
}

// New creates a record from values, filling absent fields from their defaults.
// Names not declared by the schema are ignored.
func (s *Schema) New(values map[string]any) *Record {
	r := &Record{
		schema: s,
		values: make(map[string]any, len(s.fields)),
	}
	for name, v := range values {
		if _, ok := s.byName[name]; ok && v != nil {
			r.values[name] = v
		}
	}
	r.fillDefaults()
	return r
}

// Decode creates a record from a raw item.
// Attributes not declared by the schema are skipped; absent fields are filled from their defaults.
func (s *Schema) Decode(item Item) (*Record, error) {
	r := &Record{
		schema: s,
		values: make(map[string]any, len(s.fields)),
	}
	for name, av := range item {
		if _, ok := s.byName[name]; !ok {
			continue
		}
		v, err := Unmarshal(av)
		if err != nil {
			return nil, fmt.Errorf("dynamodel: %s: decoding %s: %w", s.table, name, err)
		}
		if v != nil {
			r.values[name] = v
		}
	}
	r.fillDefaults()
	return r, nil
}

func (r *Record) fillDefaults() {
	for _, f := range r.schema.fields {
		if _, ok := r.values[f.Name]; ok {
			continue
		}
		if v, ok := f.defaultValue(); ok && v != nil {
			r.values[f.Name] = v
		}
	}
}

// Schema returns the schema this record belongs to.
func (r *Record) Schema() *Schema {
	return r.schema
}

// Get returns the value of the named field, or nil if it is absent.
func (r *Record) Get(name string) any {
	return r.values[name]
}

// Has reports whether the named field has a value.
func (r *Record) Has(name string) bool {
	_, ok := r.values[name]
	return ok
}

// Set changes the value of the named field. Setting nil clears it.
// Only declared fields can be set.
func (r *Record) Set(name string, value any) error {
	if _, ok := r.schema.byName[name]; !ok {
		return fmt.Errorf("dynamodel: %s has no field %s", r.schema.table, name)
	}
	if value == nil {
		delete(r.values, name)
		return nil
	}
	r.values[name] = value
	return nil
}

// Values returns a copy of the record's values.
func (r *Record) Values() map[string]any {
	m := make(map[string]any, len(r.values))
	for k, v := range r.values {
		m[k] = v
	}
	return m
}

// Key encodes the record's primary key.
func (r *Record) Key() (Item, error) {
	var rangeKey any
	if rf, ok := r.schema.RangeKey(); ok {
		rangeKey = r.values[rf.Name]
	}
	hf := r.schema.HashKey()
	hashKey, ok := r.values[hf.Name]
	if !ok {
		return nil, &NullAttributeError{Field: hf.Name}
	}
	return r.schema.EncodeKey(hashKey, rangeKey)
}

// Item encodes the record for writing.
// Required fields without a value fail with *NullAttributeError.
// Empty optional fields are left out of the item, because DynamoDB
// does not store empty sets and treats absent attributes as null.
func (r *Record) Item() (Item, error) {
	item := make(Item, len(r.values))
	for _, f := range r.schema.fields {
		v, ok := r.values[f.Name]
		if !ok || isEmpty(v) {
			if f.required() || f.HashKey || f.RangeKey {
				return nil, &NullAttributeError{Field: f.Name}
			}
			continue
		}
		av, err := f.Kind.Encode(f.Name, v)
		if err != nil {
			return nil, err
		}
		item[f.Name] = av
	}
	return item, nil
}

// UnmarshalTo copies the record into out, which must be a pointer to a struct or map
// understood by the AWS attributevalue decoder.
// Set fields decode into Set, or into slices of their element type.
func (r *Record) UnmarshalTo(out any) error {
	item := make(Item, len(r.values))
	for _, f := range r.schema.fields {
		v, ok := r.values[f.Name]
		if !ok || isEmpty(v) {
			continue
		}
		av, err := f.Kind.Encode(f.Name, v)
		if err != nil {
			return err
		}
		item[f.Name] = av
	}
	return attributevalue.UnmarshalMap(item, out)
}

// Save writes the record to its model's table, replacing any existing item.
func (r *Record) Save(ctx context.Context) error {
	if r.model == nil {
		return ErrUnbound
	}
	return r.model.Save(ctx, r)
}

// Delete removes the item with this record's key from its model's table.
// Deleting an item that does not exist is not an error.
func (r *Record) Delete(ctx context.Context) error {
	if r.model == nil {
		return ErrUnbound
	}
	key, err := r.Key()
	if err != nil {
		return err
	}
	return r.model.deleteKey(key).Run(ctx)
}

func (r *Record) String() string {
	return fmt.Sprintf("%s%v", r.schema.table, r.values)
}

// isEmpty reports whether v would be absent in DynamoDB: nil, or an empty string, binary, set, list or map.
// Zero numbers and false are values.
func isEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case Set:
		return x.Len() == 0
	case *Set:
		return x == nil || x.Len() == 0
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String, reflect.Slice, reflect.Map:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
