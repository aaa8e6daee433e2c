package dynamodel

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Update represents changes to an existing item.
// It uses the UpdateItem API.
// See: http://docs.aws.amazon.com/amazondynamodb/latest/APIReference/API_UpdateItem.html
type Update struct {
	model *Model

	hashValue  any
	rangeValue any

	ub      expression.UpdateBuilder
	changes int

	err error
}

// Update creates a new request to modify the item with the given hash key.
// If the item does not exist, it is created with only the key and the changed fields.
func (m *Model) Update(hashKey any) *Update {
	return &Update{
		model:     m,
		hashValue: hashKey,
	}
}

// Range specifies the range key of the item to update.
func (u *Update) Range(value any) *Update {
	u.rangeValue = value
	return u
}

// Set changes the named field to value, which must be valid for the field's kind.
// Setting an empty value removes the field.
func (u *Update) Set(name string, value any) *Update {
	f, ok := u.field(name)
	if !ok {
		return u
	}
	if isEmpty(value) {
		return u.Remove(name)
	}
	av, err := f.Kind.Encode(name, value)
	if err != nil {
		u.setError(err)
		return u
	}
	u.ub = u.ub.Set(expression.Name(name), expression.Value(encoded{av}))
	u.changes++
	return u
}

// Add adds value to the named field, which must be a number or a set.
// For sets, value must be a Set of the field's element kind.
func (u *Update) Add(name string, value any) *Update {
	f, ok := u.field(name)
	if !ok {
		return u
	}
	if f.Kind != NumberKind && !f.Kind.IsSet() {
		u.setError(fmt.Errorf("dynamodel: %s: cannot add to %s field %s", u.model.Table(), f.Kind, name))
		return u
	}
	av, err := f.Kind.Encode(name, value)
	if err != nil {
		u.setError(err)
		return u
	}
	u.ub = u.ub.Add(expression.Name(name), expression.Value(encoded{av}))
	u.changes++
	return u
}

// Remove deletes the named field from the item.
// Required fields cannot be removed.
func (u *Update) Remove(name string) *Update {
	f, ok := u.field(name)
	if !ok {
		return u
	}
	if f.required() {
		u.setError(&NullAttributeError{Field: name})
		return u
	}
	u.ub = u.ub.Remove(expression.Name(name))
	u.changes++
	return u
}

func (u *Update) field(name string) (Field, bool) {
	f, ok := u.model.schema.Field(name)
	switch {
	case !ok:
		u.setError(fmt.Errorf("dynamodel: %s has no field %s", u.model.Table(), name))
		return Field{}, false
	case f.HashKey || f.RangeKey:
		u.setError(fmt.Errorf("dynamodel: %s: cannot update key field %s", u.model.Table(), name))
		return Field{}, false
	}
	return f, true
}

// Run executes this update.
func (u *Update) Run(ctx context.Context) error {
	_, err := u.run(ctx, types.ReturnValueNone)
	return err
}

// Value executes this update and returns the item as it is after the update.
func (u *Update) Value(ctx context.Context) (*Record, error) {
	res, err := u.run(ctx, types.ReturnValueAllNew)
	if err != nil {
		return nil, err
	}
	return u.model.Decode(res.Attributes)
}

func (u *Update) run(ctx context.Context, returnValues types.ReturnValue) (*dynamodb.UpdateItemOutput, error) {
	if u.err != nil {
		return nil, u.err
	}
	req, err := u.input()
	if err != nil {
		return nil, err
	}
	req.ReturnValues = returnValues

	var res *dynamodb.UpdateItemOutput
	db := u.model.db
	err = db.retry(ctx, func() error {
		var err error
		res, err = db.client.UpdateItem(ctx, req)
		return err
	})
	return res, err
}

func (u *Update) input() (*dynamodb.UpdateItemInput, error) {
	if u.changes == 0 {
		return nil, fmt.Errorf("dynamodel: %s: update has no changes", u.model.Table())
	}
	key, err := u.model.schema.EncodeKey(u.hashValue, u.rangeValue)
	if err != nil {
		return nil, err
	}
	expr, err := expression.NewBuilder().WithUpdate(u.ub).Build()
	if err != nil {
		return nil, fmt.Errorf("dynamodel: %s: building update: %w", u.model.Table(), err)
	}
	return &dynamodb.UpdateItemInput{
		TableName:                 &u.model.schema.table,
		Key:                       key,
		UpdateExpression:          expr.Update(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}, nil
}

func (u *Update) setError(err error) {
	if u.err == nil {
		u.err = err
	}
}

// encoded hands an already encoded value to the expression builder as is.
type encoded struct {
	av types.AttributeValue
}

var _ attributevalue.Marshaler = encoded{}

func (e encoded) MarshalDynamoDBAttributeValue() (types.AttributeValue, error) {
	return e.av, nil
}
