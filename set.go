package dynamodel

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Set is an unordered collection of distinct scalar values,
// used for the StringSet, NumberSet and BinarySet kinds.
// Numbers are compared by value, so 1 and 1.0 are the same element.
//
// Like a map, a Set shares its storage when copied.
type Set struct {
	elems map[string]any
}

var (
	_ attributevalue.Marshaler   = Set{}
	_ attributevalue.Unmarshaler = (*Set)(nil)
)

// NewSet returns a set containing values.
func NewSet(values ...any) Set {
	s := Set{elems: make(map[string]any, len(values))}
	for _, v := range values {
		s.Add(v)
	}
	return s
}

// Add inserts v unless an equal element is already present.
func (s *Set) Add(v any) {
	if s.elems == nil {
		s.elems = make(map[string]any)
	}
	key := setKey(v)
	if _, ok := s.elems[key]; !ok {
		s.elems[key] = v
	}
}

// Remove deletes v from the set.
func (s Set) Remove(v any) {
	delete(s.elems, setKey(v))
}

// Has reports whether v is in the set.
func (s Set) Has(v any) bool {
	_, ok := s.elems[setKey(v)]
	return ok
}

// Len returns the number of elements.
func (s Set) Len() int {
	return len(s.elems)
}

// Values returns the elements in a stable order.
func (s Set) Values() []any {
	keys := s.keys()
	vals := make([]any, 0, len(keys))
	for _, k := range keys {
		vals = append(vals, s.elems[k])
	}
	return vals
}

// Clone returns a copy that does not share storage with s.
func (s Set) Clone() Set {
	c := Set{elems: make(map[string]any, len(s.elems))}
	for k, v := range s.elems {
		c.elems[k] = v
	}
	return c
}

// Equal reports whether both sets hold the same elements.
func (s Set) Equal(other Set) bool {
	if len(s.elems) != len(other.elems) {
		return false
	}
	for k := range s.elems {
		if _, ok := other.elems[k]; !ok {
			return false
		}
	}
	return true
}

func (s Set) String() string {
	return fmt.Sprint(s.Values())
}

func (s Set) keys() []string {
	keys := make([]string, 0, len(s.elems))
	for k := range s.elems {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// elemKind infers the set kind from the elements. All elements must share a scalar kind.
func (s Set) elemKind() (Kind, error) {
	var kind Kind
	for _, v := range s.elems {
		var k Kind
		switch {
		case StringKind.Valid(v):
			k = StringSetKind
		case BinaryKind.Valid(v):
			k = BinarySetKind
		case NumberKind.Valid(v):
			k = NumberSetKind
		default:
			return "", fmt.Errorf("dynamodel: set element %v (%T) is not a string, number or binary", v, v)
		}
		if kind != "" && kind != k {
			return "", fmt.Errorf("dynamodel: set mixes %s and %s elements", kind.Elem(), k.Elem())
		}
		kind = k
	}
	return kind, nil
}

// encodeAs encodes the set as the given set kind. Elements must already be valid for it.
func (s Set) encodeAs(kind Kind) (types.AttributeValue, error) {
	keys := s.keys()
	switch kind {
	case StringSetKind:
		ss := make([]string, 0, len(keys))
		for _, k := range keys {
			ss = append(ss, reflect.ValueOf(s.elems[k]).String())
		}
		return &types.AttributeValueMemberSS{Value: ss}, nil
	case BinarySetKind:
		bs := make([][]byte, 0, len(keys))
		for _, k := range keys {
			bs = append(bs, reflect.ValueOf(s.elems[k]).Bytes())
		}
		return &types.AttributeValueMemberBS{Value: bs}, nil
	case NumberSetKind:
		ns := make([]string, 0, len(keys))
		for _, k := range keys {
			n, err := formatNumber(reflect.ValueOf(s.elems[k]))
			if err != nil {
				return nil, err
			}
			ns = append(ns, n)
		}
		return &types.AttributeValueMemberNS{Value: ns}, nil
	}
	return nil, fmt.Errorf("dynamodel: %s is not a set kind", kind)
}

// MarshalDynamoDBAttributeValue implements attributevalue.Marshaler.
// An empty set has no wire type and is encoded as NULL.
func (s Set) MarshalDynamoDBAttributeValue() (types.AttributeValue, error) {
	if s.Len() == 0 {
		return &types.AttributeValueMemberNULL{Value: true}, nil
	}
	kind, err := s.elemKind()
	if err != nil {
		return nil, err
	}
	return s.encodeAs(kind)
}

// UnmarshalDynamoDBAttributeValue implements attributevalue.Unmarshaler.
func (s *Set) UnmarshalDynamoDBAttributeValue(av types.AttributeValue) error {
	if _, ok := av.(*types.AttributeValueMemberNULL); ok {
		*s = NewSet()
		return nil
	}
	if !kindOf(av).IsSet() {
		return fmt.Errorf("dynamodel: cannot unmarshal %s into Set", avTypeName(av))
	}
	v, err := Unmarshal(av)
	if err != nil {
		return err
	}
	*s = v.(Set)
	return nil
}

// setKey identifies an element by kind and canonical text.
func setKey(v any) string {
	rv := reflect.ValueOf(v)
	switch {
	case !rv.IsValid():
		return "?nil"
	case rv.Kind() == reflect.String:
		return "S" + rv.String()
	case isByteSlice(rv):
		return "B" + string(rv.Bytes())
	case isNumber(rv):
		switch rv.Kind() {
		case reflect.Float32, reflect.Float64:
			f := rv.Float()
			if f == float64(int64(f)) {
				return fmt.Sprintf("N%d", int64(f))
			}
			return fmt.Sprintf("N%v", f)
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return fmt.Sprintf("N%d", rv.Int())
		default:
			return fmt.Sprintf("N%d", rv.Uint())
		}
	}
	return fmt.Sprintf("?%T:%#v", v, v)
}
