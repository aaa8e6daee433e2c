package dynamodel

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

func TestSchemaDerived(t *testing.T) {
	wantAttribs := []types.AttributeDefinition{
		{AttributeName: aws.String("author"), AttributeType: types.ScalarAttributeTypeS},
		{AttributeName: aws.String("published_at"), AttributeType: types.ScalarAttributeTypeS},
		{AttributeName: aws.String("title"), AttributeType: types.ScalarAttributeTypeS},
		{AttributeName: aws.String("views"), AttributeType: types.ScalarAttributeTypeN},
	}
	if !reflect.DeepEqual(articles.attribs, wantAttribs) {
		t.Errorf("bad attribute definitions.\nwant: %#v\n got: %#v", wantAttribs, articles.attribs)
	}

	wantKeys := []types.KeySchemaElement{
		{AttributeName: aws.String("author"), KeyType: types.KeyTypeHash},
		{AttributeName: aws.String("published_at"), KeyType: types.KeyTypeRange},
	}
	if !reflect.DeepEqual(articles.keys, wantKeys) {
		t.Errorf("bad key schema.\nwant: %#v\n got: %#v", wantKeys, articles.keys)
	}

	if len(articles.gsi) != 1 || aws.ToString(articles.gsi[0].IndexName) != "by_title" {
		t.Errorf("want one global index by_title, got %#v", articles.gsi)
	}
	if len(articles.lsi) != 1 || aws.ToString(articles.lsi[0].IndexName) != "by_views" {
		t.Errorf("want one local index by_views, got %#v", articles.lsi)
	}
	if got := articles.lsi[0].Projection.ProjectionType; got != types.ProjectionTypeKeysOnly {
		t.Errorf("by_views: want KEYS_ONLY projection, got %s", got)
	}
	if got := articles.gsi[0].Projection.ProjectionType; got != types.ProjectionTypeAll {
		t.Errorf("by_title: want ALL projection by default, got %s", got)
	}
}

func TestSchemaAccessors(t *testing.T) {
	if got := articles.HashKey().Name; got != "author" {
		t.Error("bad hash key:", got)
	}
	rk, ok := articles.RangeKey()
	if !ok || rk.Name != "published_at" {
		t.Error("bad range key:", rk, ok)
	}
	views, ok := articles.Field("views")
	if !ok || !views.Nullable {
		t.Error("a field with a default should be nullable:", views)
	}
	if _, ok := articles.Field("nope"); ok {
		t.Error("undeclared field found")
	}

	fields := articles.Fields()
	fields[0].Name = "changed"
	if articles.HashKey().Name != "author" {
		t.Error("Fields should return a copy")
	}
}

func TestNewSchemaErrors(t *testing.T) {
	hash := Field{Name: "id", Kind: StringKind, HashKey: true}
	tests := []struct {
		name    string
		table   string
		fields  []Field
		indexes []Index
		msg     string
	}{
		{
			name:   "no table",
			fields: []Field{hash},
			msg:    "table name",
		},
		{
			name:   "no hash key",
			table:  "t",
			fields: []Field{{Name: "id", Kind: StringKind}},
			msg:    "no hash key",
		},
		{
			name:   "two hash keys",
			table:  "t",
			fields: []Field{hash, {Name: "other", Kind: StringKind, HashKey: true}},
			msg:    "more than one hash key",
		},
		{
			name:   "two range keys",
			table:  "t",
			fields: []Field{hash, {Name: "a", Kind: NumberKind, RangeKey: true}, {Name: "b", Kind: NumberKind, RangeKey: true}},
			msg:    "more than one range key",
		},
		{
			name:   "hash and range",
			table:  "t",
			fields: []Field{{Name: "id", Kind: StringKind, HashKey: true, RangeKey: true}},
			msg:    "both hash and range",
		},
		{
			name:   "duplicate field",
			table:  "t",
			fields: []Field{hash, {Name: "id", Kind: NumberKind}},
			msg:    "duplicate field",
		},
		{
			name:   "unknown kind",
			table:  "t",
			fields: []Field{hash, {Name: "x", Kind: "X"}},
			msg:    "unknown kind",
		},
		{
			name:   "set key",
			table:  "t",
			fields: []Field{{Name: "id", Kind: StringSetKind, HashKey: true}},
			msg:    "must be a string, number or binary",
		},
		{
			name:    "index on undeclared field",
			table:   "t",
			fields:  []Field{hash},
			indexes: []Index{{Name: "idx", HashKey: "missing", Throughput: &Throughput{1, 1}}},
			msg:     "undeclared field",
		},
		{
			name:    "duplicate index",
			table:   "t",
			fields:  []Field{hash, {Name: "n", Kind: NumberKind}},
			indexes: []Index{{Name: "idx", HashKey: "n", Throughput: &Throughput{1, 1}}, {Name: "idx", HashKey: "n", Throughput: &Throughput{1, 1}}},
			msg:     "duplicate index",
		},
		{
			name:    "local index with another hash key",
			table:   "t",
			fields:  []Field{hash, {Name: "n", Kind: NumberKind}},
			indexes: []Index{{Name: "idx", HashKey: "n"}},
			msg:     "must share the table hash key",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewSchema(tc.table, tc.fields, tc.indexes...)
			if err == nil {
				t.Fatal("want error, got nil")
			}
			if !strings.Contains(err.Error(), tc.msg) {
				t.Errorf("error %q should contain %q", err, tc.msg)
			}
		})
	}
}

func TestMustSchemaPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustSchema should panic on an invalid schema")
		}
	}()
	MustSchema("t", nil)
}

func TestEncodeKey(t *testing.T) {
	key, err := articles.EncodeKey("amy", "2015-01-01")
	if err != nil {
		t.Fatal(err)
	}
	want := Item{
		"author":       &types.AttributeValueMemberS{Value: "amy"},
		"published_at": &types.AttributeValueMemberS{Value: "2015-01-01"},
	}
	if !reflect.DeepEqual(key, want) {
		t.Errorf("bad key. want %#v, got %#v", want, key)
	}

	_, err = articles.EncodeKey("amy", nil)
	var nae *NullAttributeError
	if !errors.As(err, &nae) || nae.Field != "published_at" {
		t.Errorf("missing range key: want NullAttributeError for published_at, got %v", err)
	}

	_, err = articles.EncodeKey(42, "2015-01-01")
	if !errors.Is(err, ErrValidation) {
		t.Errorf("wrong hash key kind: want validation error, got %v", err)
	}

	hashOnly := MustSchema("users", []Field{{Name: "id", Kind: NumberKind, HashKey: true}})
	key, err = hashOnly.EncodeKey(7, "ignored")
	if err != nil {
		t.Fatal(err)
	}
	if len(key) != 1 {
		t.Errorf("hash-only key should have one attribute, got %v", key)
	}
}
