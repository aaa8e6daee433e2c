package dynamodel

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// SchemaFile is the YAML form of a set of schemas:
//
//	tables:
//	  - name: articles
//	    fields:
//	      - {name: author, kind: S, hashKey: true}
//	      - {name: published_at, kind: S, rangeKey: true}
//	      - {name: tags, kind: SS, nullable: true}
//	      - {name: views, kind: N, default: 0}
//	    indexes:
//	      - name: by_views
//	        hashKey: views
//	        throughput: {read: 1, write: 1}
type SchemaFile struct {
	Tables []TableDef `yaml:"tables"`
}

// TableDef is one table of a SchemaFile.
type TableDef struct {
	Name    string     `yaml:"name"`
	Fields  []FieldDef `yaml:"fields"`
	Indexes []IndexDef `yaml:"indexes,omitempty"`
}

// FieldDef is the YAML form of a Field.
// A list default of a set kind becomes a Set.
type FieldDef struct {
	Name     string `yaml:"name"`
	Kind     Kind   `yaml:"kind"`
	HashKey  bool   `yaml:"hashKey,omitempty"`
	RangeKey bool   `yaml:"rangeKey,omitempty"`
	Nullable bool   `yaml:"nullable,omitempty"`
	Default  any    `yaml:"default,omitempty"`
}

// IndexDef is the YAML form of an Index.
type IndexDef struct {
	Name       string          `yaml:"name"`
	HashKey    string          `yaml:"hashKey"`
	RangeKey   string          `yaml:"rangeKey,omitempty"`
	Projection IndexProjection `yaml:"projection,omitempty"`
	Include    []string        `yaml:"include,omitempty"`
	Throughput *Throughput     `yaml:"throughput,omitempty"`
}

// LoadSchemas decodes a SchemaFile from r and declares its schemas.
func LoadSchemas(r io.Reader) ([]*Schema, error) {
	var file SchemaFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("dynamodel: decoding schema file: %w", err)
	}
	return file.Schemas()
}

// Schemas declares the schemas of every table in the file.
func (sf SchemaFile) Schemas() ([]*Schema, error) {
	schemas := make([]*Schema, 0, len(sf.Tables))
	for _, def := range sf.Tables {
		fields := make([]Field, 0, len(def.Fields))
		for _, fd := range def.Fields {
			f := Field{
				Name:     fd.Name,
				Kind:     fd.Kind,
				HashKey:  fd.HashKey,
				RangeKey: fd.RangeKey,
				Nullable: fd.Nullable,
				Default:  fd.Default,
			}
			if list, ok := fd.Default.([]any); ok && fd.Kind.IsSet() {
				f.Default = NewSet(list...)
			}
			fields = append(fields, f)
		}
		indexes := make([]Index, 0, len(def.Indexes))
		for _, id := range def.Indexes {
			indexes = append(indexes, Index(id))
		}
		s, err := NewSchema(def.Name, fields, indexes...)
		if err != nil {
			return nil, err
		}
		schemas = append(schemas, s)
	}
	return schemas, nil
}
