package dynamodel

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Conditions maps "field__operator" keys to operand values, for example:
//
//	dynamodel.Conditions{
//		"published_at__eq":  "2015-01-01",
//		"title__beginswith": "How",
//		"meta.views__gt":    100,
//	}
//
// The operator is everything after the last "__", so field paths may contain "__" themselves.
type Conditions map[string]any

// Separator splits a condition key into its field path and operator.
const Separator = "__"

// Vocabulary maps operator suffixes to DynamoDB comparison operators.
type Vocabulary map[string]types.ComparisonOperator

// FullVocabulary is the set of operators allowed in filter conditions.
var FullVocabulary = Vocabulary{
	"eq":         types.ComparisonOperatorEq,
	"ne":         types.ComparisonOperatorNe,
	"lte":        types.ComparisonOperatorLe,
	"lt":         types.ComparisonOperatorLt,
	"gte":        types.ComparisonOperatorGe,
	"gt":         types.ComparisonOperatorGt,
	"null":       types.ComparisonOperatorNull,
	"contains":   types.ComparisonOperatorContains,
	"ncontains":  types.ComparisonOperatorNotContains,
	"beginswith": types.ComparisonOperatorBeginsWith,
	"in":         types.ComparisonOperatorIn,
	"between":    types.ComparisonOperatorBetween,
}

// KeyVocabulary is the set of operators allowed in key conditions.
var KeyVocabulary = Vocabulary{
	"eq":         types.ComparisonOperatorEq,
	"lte":        types.ComparisonOperatorLe,
	"lt":         types.ComparisonOperatorLt,
	"gte":        types.ComparisonOperatorGe,
	"gt":         types.ComparisonOperatorGt,
	"beginswith": types.ComparisonOperatorBeginsWith,
	"between":    types.ComparisonOperatorBetween,
}

// BuildConditions translates conds into legacy DynamoDB conditions, allowing only the
// operators in vocab. An empty conds returns nil.
//
// Special cases:
//   - null: a false value means NOT_NULL, anything else NULL. No operands are attached.
//   - between: the value must be a slice or array of exactly two operands.
//   - in: the value must be a slice, array or Set; every element becomes an operand.
//   - everything else: slices are turned into a Set first, then encoded as one operand.
func BuildConditions(conds Conditions, vocab Vocabulary) (map[string]types.Condition, error) {
	if len(conds) == 0 {
		return nil, nil
	}

	built := make(map[string]types.Condition, len(conds))
	for key, value := range conds {
		field, suffix := splitCondition(key)
		op, ok := vocab[suffix]
		if !ok {
			return nil, &ConditionNotRecognizedError{Operator: suffix, Key: key}
		}

		cond := types.Condition{ComparisonOperator: op}
		switch suffix {
		case "null":
			if b, isBool := value.(bool); isBool && !b {
				cond.ComparisonOperator = types.ComparisonOperatorNotNull
			} else {
				cond.ComparisonOperator = types.ComparisonOperatorNull
			}
		case "between":
			operands, ok := sequence(value)
			if !ok || len(operands) != 2 {
				return nil, &ValidationError{Field: field, Value: value,
					Reason: "between takes exactly 2 operands"}
			}
			avs, err := marshalOperands(field, operands)
			if err != nil {
				return nil, err
			}
			cond.AttributeValueList = avs
		case "in":
			operands, ok := sequence(value)
			if !ok {
				return nil, &ValidationError{Field: field, Value: value,
					Reason: "in takes a slice, array or Set of operands"}
			}
			avs, err := marshalOperands(field, operands)
			if err != nil {
				return nil, err
			}
			cond.AttributeValueList = avs
		default:
			if _, isSet := value.(Set); !isSet {
				if operands, ok := sequence(value); ok {
					value = NewSet(operands...)
				}
			}
			avs, err := marshalOperands(field, []any{value})
			if err != nil {
				return nil, err
			}
			cond.AttributeValueList = avs
		}
		built[field] = cond
	}
	return built, nil
}

func splitCondition(key string) (field, op string) {
	i := strings.LastIndex(key, Separator)
	if i < 0 {
		return "", key
	}
	return key[:i], key[i+len(Separator):]
}

// sequence returns the elements of a slice, array or Set.
// []byte is binary data, not a sequence.
func sequence(v any) ([]any, bool) {
	switch x := v.(type) {
	case []any:
		return x, true
	case Set:
		return x.Values(), true
	case *Set:
		if x == nil {
			return nil, false
		}
		return x.Values(), true
	}
	rv := reflect.ValueOf(v)
	if (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) || isByteSlice(rv) {
		return nil, false
	}
	elems := make([]any, rv.Len())
	for i := range elems {
		elems[i] = rv.Index(i).Interface()
	}
	return elems, true
}

func marshalOperands(field string, operands []any) ([]types.AttributeValue, error) {
	avs := make([]types.AttributeValue, 0, len(operands))
	for _, operand := range operands {
		av, err := Marshal(operand)
		if err != nil {
			return nil, &ValidationError{Field: field, Value: operand, Reason: err.Error()}
		}
		avs = append(avs, av)
	}
	return avs, nil
}

// conditionExpr renders built conditions in expression syntax, so they can share a request
// with an expression filter. Field names always go through name placeholders and are
// treated as top-level attribute names, the same as in legacy conditions.
// Fields are rendered in name order.
func conditionExpr(ph *placeholders, conds map[string]types.Condition) ([]string, error) {
	fields := make([]string, 0, len(conds))
	for field := range conds {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	exprs := make([]string, 0, len(fields))
	for _, field := range fields {
		cond := conds[field]
		name := ph.name(field)
		vals := make([]string, 0, len(cond.AttributeValueList))
		for _, av := range cond.AttributeValueList {
			v, err := ph.value(av)
			if err != nil {
				return nil, err
			}
			vals = append(vals, v)
		}

		var expr string
		switch op := cond.ComparisonOperator; op {
		case types.ComparisonOperatorNull:
			expr = "attribute_not_exists(" + name + ")"
		case types.ComparisonOperatorNotNull:
			expr = "attribute_exists(" + name + ")"
		case types.ComparisonOperatorIn:
			expr = name + " IN (" + strings.Join(vals, ", ") + ")"
		case types.ComparisonOperatorBetween:
			expr = name + " BETWEEN " + vals[0] + " AND " + vals[1]
		case types.ComparisonOperatorContains:
			expr = "contains(" + name + ", " + vals[0] + ")"
		case types.ComparisonOperatorNotContains:
			expr = "NOT contains(" + name + ", " + vals[0] + ")"
		case types.ComparisonOperatorBeginsWith:
			expr = "begins_with(" + name + ", " + vals[0] + ")"
		default:
			sym, ok := comparisonSymbols[op]
			if !ok {
				return nil, fmt.Errorf("dynamodel: no expression form for operator %s", op)
			}
			expr = name + " " + sym + " " + vals[0]
		}
		exprs = append(exprs, expr)
	}
	return exprs, nil
}

var comparisonSymbols = map[types.ComparisonOperator]string{
	types.ComparisonOperatorEq: "=",
	types.ComparisonOperatorNe: "<>",
	types.ComparisonOperatorLe: "<=",
	types.ComparisonOperatorLt: "<",
	types.ComparisonOperatorGe: ">=",
	types.ComparisonOperatorGt: ">",
}
