package dynamodel

import (
	"reflect"
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

func TestSet(t *testing.T) {
	s := NewSet("a", "b", "a")
	if s.Len() != 2 {
		t.Errorf("duplicates should collapse: want 2 elements, got %d", s.Len())
	}
	if !s.Has("a") || s.Has("c") {
		t.Error("bad membership:", s)
	}
	s.Add("c")
	s.Remove("a")
	if want := []any{"b", "c"}; !reflect.DeepEqual(s.Values(), want) {
		t.Errorf("bad values. want %v, got %v", want, s.Values())
	}

	clone := s.Clone()
	clone.Add("z")
	if s.Has("z") {
		t.Error("clone shares storage with original")
	}

	var zero Set
	zero.Add(1)
	if !zero.Has(1) {
		t.Error("zero Set should be usable")
	}
}

func TestSetNumbersByValue(t *testing.T) {
	s := NewSet(1, int64(1), 1.0, uint8(1))
	if s.Len() != 1 {
		t.Errorf("numerically equal elements should collapse: got %v", s)
	}
	if !s.Has(1.0) {
		t.Error("1.0 should be found in {1}")
	}
	if NewSet(1.5).Has(1) {
		t.Error("1 should not be found in {1.5}")
	}
	if NewSet("1").Has(1) {
		t.Error("strings and numbers must not collide")
	}
}

func TestSetAttributeValue(t *testing.T) {
	type tagged struct {
		Tags Set
	}
	item, err := attributevalue.MarshalMap(tagged{Tags: NewSet("go", "aws")})
	if err != nil {
		t.Fatal(err)
	}
	want := &types.AttributeValueMemberSS{Value: []string{"aws", "go"}}
	if !reflect.DeepEqual(item["Tags"], want) {
		t.Errorf("bad encoding. want %#v, got %#v", want, item["Tags"])
	}

	var out tagged
	if err := attributevalue.UnmarshalMap(item, &out); err != nil {
		t.Fatal(err)
	}
	if !out.Tags.Equal(NewSet("go", "aws")) {
		t.Errorf("bad round trip: %v", out.Tags)
	}

	err = attributevalue.UnmarshalMap(map[string]types.AttributeValue{
		"Tags": &types.AttributeValueMemberS{Value: "go"},
	}, &out)
	if err == nil {
		t.Error("unmarshaling a string into a Set: want error, got nil")
	}
}

func TestSetMixedKinds(t *testing.T) {
	if _, err := Marshal(NewSet("a", 1)); err == nil {
		t.Error("mixed set: want error, got nil")
	}
}
