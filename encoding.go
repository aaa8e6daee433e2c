package dynamodel

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Marshal converts a Go value into a DynamoDB attribute value, inferring the wire type
// from the value's Go type. It does not consult any schema; it is what conditions
// and filter expressions use to encode their operands.
//
// Strings, []byte, bools and numbers become S, B, BOOL and N.
// A Set becomes SS, NS or BS depending on its elements.
// Slices and string-keyed maps become L and M.
// Anything else is handed to the AWS attributevalue encoder.
func Marshal(v any) (types.AttributeValue, error) {
	switch x := v.(type) {
	case nil:
		return &types.AttributeValueMemberNULL{Value: true}, nil
	case types.AttributeValue:
		return x, nil
	case string:
		return &types.AttributeValueMemberS{Value: x}, nil
	case []byte:
		return &types.AttributeValueMemberB{Value: x}, nil
	case bool:
		return &types.AttributeValueMemberBOOL{Value: x}, nil
	case Set:
		return x.MarshalDynamoDBAttributeValue()
	case *Set:
		return x.MarshalDynamoDBAttributeValue()
	case []any:
		return marshalList(x)
	case map[string]any:
		return marshalMap(x)
	}

	rv := reflect.ValueOf(v)
	switch {
	case isNumber(rv):
		n, err := formatNumber(rv)
		if err != nil {
			return nil, err
		}
		return &types.AttributeValueMemberN{Value: n}, nil
	case rv.Kind() == reflect.String:
		return &types.AttributeValueMemberS{Value: rv.String()}, nil
	case rv.Kind() == reflect.Bool:
		return &types.AttributeValueMemberBOOL{Value: rv.Bool()}, nil
	case isByteSlice(rv):
		return &types.AttributeValueMemberB{Value: rv.Bytes()}, nil
	case rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array:
		list := make([]any, rv.Len())
		for i := range list {
			list[i] = rv.Index(i).Interface()
		}
		return marshalList(list)
	case rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String:
		m := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			m[iter.Key().String()] = iter.Value().Interface()
		}
		return marshalMap(m)
	case rv.Kind() == reflect.Pointer:
		if rv.IsNil() {
			return &types.AttributeValueMemberNULL{Value: true}, nil
		}
		return Marshal(rv.Elem().Interface())
	}

	return attributevalue.Marshal(v)
}

func marshalList(list []any) (types.AttributeValue, error) {
	avs := make([]types.AttributeValue, 0, len(list))
	for i, v := range list {
		av, err := Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("dynamodel: list index %d: %w", i, err)
		}
		avs = append(avs, av)
	}
	return &types.AttributeValueMemberL{Value: avs}, nil
}

func marshalMap(m map[string]any) (types.AttributeValue, error) {
	avs := make(map[string]types.AttributeValue, len(m))
	for k, v := range m {
		av, err := Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("dynamodel: map key %q: %w", k, err)
		}
		avs[k] = av
	}
	return &types.AttributeValueMemberM{Value: avs}, nil
}

// Unmarshal converts a DynamoDB attribute value into a Go value.
// Numbers with a fractional part become float64, other numbers become int64.
// Sets become Set, lists []any, maps map[string]any and NULL becomes nil.
func Unmarshal(av types.AttributeValue) (any, error) {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return v.Value, nil
	case *types.AttributeValueMemberN:
		return decodeNumber(v.Value)
	case *types.AttributeValueMemberB:
		return v.Value, nil
	case *types.AttributeValueMemberBOOL:
		return v.Value, nil
	case *types.AttributeValueMemberNULL:
		return nil, nil
	case *types.AttributeValueMemberSS:
		set := NewSet()
		for _, s := range v.Value {
			set.Add(s)
		}
		return set, nil
	case *types.AttributeValueMemberBS:
		set := NewSet()
		for _, b := range v.Value {
			set.Add(b)
		}
		return set, nil
	case *types.AttributeValueMemberNS:
		set := NewSet()
		for _, s := range v.Value {
			n, err := decodeNumber(s)
			if err != nil {
				return nil, err
			}
			set.Add(n)
		}
		return set, nil
	case *types.AttributeValueMemberL:
		list := make([]any, 0, len(v.Value))
		for _, item := range v.Value {
			x, err := Unmarshal(item)
			if err != nil {
				return nil, err
			}
			list = append(list, x)
		}
		return list, nil
	case *types.AttributeValueMemberM:
		m := make(map[string]any, len(v.Value))
		for k, item := range v.Value {
			x, err := Unmarshal(item)
			if err != nil {
				return nil, err
			}
			m[k] = x
		}
		return m, nil
	}
	return nil, fmt.Errorf("dynamodel: unsupported attribute value: %s", avTypeName(av))
}

// formatNumber renders a number as decimal text.
// Whole floats keep a fractional part so they decode as floats again.
func formatNumber(rv reflect.Value) (string, error) {
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(rv.Uint(), 10), nil
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if !isFinite(f) {
			return "", errors.New("dynamodel: NaN and infinite numbers are not supported")
		}
		bits := 64
		if rv.Kind() == reflect.Float32 {
			bits = 32
		}
		s := strconv.FormatFloat(f, 'f', -1, bits)
		if !strings.Contains(s, ".") {
			s += ".0"
		}
		return s, nil
	}
	return "", fmt.Errorf("dynamodel: not a number: %v", rv.Type())
}

// decodeNumber parses the decimal text of a number.
// Text with a fractional separator is a float; otherwise it is an integer,
// Integers above int64 range decode as uint64 when they fit,
// otherwise (or with an exponent) as float.
func decodeNumber(s string) (any, error) {
	if !strings.Contains(s, ".") {
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, nil
		}
		if u, err := strconv.ParseUint(s, 10, 64); err == nil {
			return u, nil
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("dynamodel: invalid number %q: %w", s, err)
	}
	return f, nil
}
