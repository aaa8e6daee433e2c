package dynamodel

import (
	"fmt"
	"math"
	"reflect"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Item is a type alias for the raw DynamoDB item type.
type Item = map[string]types.AttributeValue

// Kind is the type of a field, named after its DynamoDB wire type tag.
type Kind string

// Field kinds.
const (
	StringKind    Kind = "S"
	NumberKind    Kind = "N"
	BinaryKind    Kind = "B"
	BooleanKind   Kind = "BOOL"
	ListKind      Kind = "L"
	MapKind       Kind = "M"
	StringSetKind Kind = "SS"
	NumberSetKind Kind = "NS"
	BinarySetKind Kind = "BS"
)

var (
	acceptsString = []string{"string"}
	acceptsBinary = []string{"[]byte"}
	acceptsNumber = []string{"int", "int8", "int16", "int32", "int64",
		"uint", "uint8", "uint16", "uint32", "uint64", "float32", "float64"}
	acceptsBool = []string{"bool"}
	acceptsList = []string{"slice"}
	acceptsMap  = []string{"map[string]"}
)

// IsSet returns true for the homogeneous set kinds.
func (k Kind) IsSet() bool {
	switch k {
	case StringSetKind, NumberSetKind, BinarySetKind:
		return true
	}
	return false
}

// IsScalar returns true for kinds usable as table or index keys.
func (k Kind) IsScalar() bool {
	switch k {
	case StringKind, NumberKind, BinaryKind:
		return true
	}
	return false
}

// Elem returns the scalar kind of a set kind's elements, or k itself otherwise.
func (k Kind) Elem() Kind {
	switch k {
	case StringSetKind:
		return StringKind
	case NumberSetKind:
		return NumberKind
	case BinarySetKind:
		return BinaryKind
	}
	return k
}

func (k Kind) known() bool {
	switch k {
	case StringKind, NumberKind, BinaryKind, BooleanKind, ListKind, MapKind,
		StringSetKind, NumberSetKind, BinarySetKind:
		return true
	}
	return false
}

// Accepts lists the Go types acceptable for this kind.
// For set kinds, these are the acceptable element types of a Set.
func (k Kind) Accepts() []string {
	switch k.Elem() {
	case StringKind:
		return acceptsString
	case BinaryKind:
		return acceptsBinary
	case NumberKind:
		return acceptsNumber
	case BooleanKind:
		return acceptsBool
	case ListKind:
		return acceptsList
	case MapKind:
		return acceptsMap
	}
	return nil
}

// Valid reports whether v is acceptable for this kind.
// Set kinds require a Set whose every element is valid for the element kind;
// the empty set is valid.
func (k Kind) Valid(v any) bool {
	if k.IsSet() {
		set, ok := v.(Set)
		if !ok {
			if ptr, isPtr := v.(*Set); isPtr && ptr != nil {
				set, ok = *ptr, true
			}
		}
		if !ok {
			return false
		}
		elem := k.Elem()
		for _, e := range set.elems {
			if !elem.Valid(e) {
				return false
			}
		}
		return true
	}

	if v == nil {
		return false
	}
	rv := reflect.ValueOf(v)
	switch k {
	case StringKind:
		return rv.Kind() == reflect.String
	case BinaryKind:
		return isByteSlice(rv)
	case NumberKind:
		return isNumber(rv)
	case BooleanKind:
		return rv.Kind() == reflect.Bool
	case ListKind:
		return (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array) && !isByteSlice(rv)
	case MapKind:
		return rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String
	}
	return false
}

// Encode converts v into its wire representation.
// It returns a *ValidationError naming field if v is not valid for this kind.
func (k Kind) Encode(field string, v any) (types.AttributeValue, error) {
	if !k.Valid(v) {
		return nil, &ValidationError{Field: field, Value: v, Kind: k, Accepts: k.Accepts()}
	}

	switch k {
	case StringSetKind, NumberSetKind, BinarySetKind:
		set, ok := v.(Set)
		if !ok {
			set = *v.(*Set)
		}
		av, err := set.encodeAs(k)
		if err != nil {
			return nil, &ValidationError{Field: field, Value: v, Kind: k, Reason: err.Error()}
		}
		return av, nil
	case NumberKind:
		n, err := formatNumber(reflect.ValueOf(v))
		if err != nil {
			return nil, &ValidationError{Field: field, Value: v, Kind: k, Reason: err.Error()}
		}
		return &types.AttributeValueMemberN{Value: n}, nil
	}

	av, err := Marshal(v)
	if err != nil {
		return nil, &ValidationError{Field: field, Value: v, Kind: k, Reason: err.Error()}
	}
	return av, nil
}

// Decode converts a wire value into its native representation:
// string, int64, uint64 or float64, []byte, bool, []any, map[string]any or Set.
// The wire type is trusted over the kind, so data written by other clients still decodes.
func (k Kind) Decode(av types.AttributeValue) (any, error) {
	return Unmarshal(av)
}

func isByteSlice(rv reflect.Value) bool {
	return rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8
}

func isNumber(rv reflect.Value) bool {
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// kindOf returns the kind matching av's wire type, or "" for NULL and unknown members.
func kindOf(av types.AttributeValue) Kind {
	switch av.(type) {
	case *types.AttributeValueMemberS:
		return StringKind
	case *types.AttributeValueMemberN:
		return NumberKind
	case *types.AttributeValueMemberB:
		return BinaryKind
	case *types.AttributeValueMemberBOOL:
		return BooleanKind
	case *types.AttributeValueMemberL:
		return ListKind
	case *types.AttributeValueMemberM:
		return MapKind
	case *types.AttributeValueMemberSS:
		return StringSetKind
	case *types.AttributeValueMemberNS:
		return NumberSetKind
	case *types.AttributeValueMemberBS:
		return BinarySetKind
	}
	return ""
}

func avTypeName(av types.AttributeValue) string {
	if av == nil {
		return "<nil>"
	}
	switch av.(type) {
	case *types.AttributeValueMemberB:
		return "binary"
	case *types.AttributeValueMemberBS:
		return "binary set"
	case *types.AttributeValueMemberBOOL:
		return "boolean"
	case *types.AttributeValueMemberN:
		return "number"
	case *types.AttributeValueMemberS:
		return "string"
	case *types.AttributeValueMemberL:
		return "list"
	case *types.AttributeValueMemberNS:
		return "number set"
	case *types.AttributeValueMemberSS:
		return "string set"
	case *types.AttributeValueMemberM:
		return "map"
	case *types.AttributeValueMemberNULL:
		return "null"
	}
	return fmt.Sprintf("<unknown %T>", av)
}
