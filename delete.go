package dynamodel

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// Delete is a request to delete an item.
// Deleting an item that does not exist succeeds.
// See: http://docs.aws.amazon.com/amazondynamodb/latest/APIReference/API_DeleteItem.html
type Delete struct {
	model *Model

	hashValue  any
	rangeValue any
	key        Item

	condition Compiled

	err error
}

// Delete creates a new request to delete the item with the given hash key.
// For tables with a range key, specify it with Range.
func (m *Model) Delete(hashKey any) *Delete {
	return &Delete{
		model:     m,
		hashValue: hashKey,
	}
}

func (m *Model) deleteKey(key Item) *Delete {
	return &Delete{
		model: m,
		key:   key,
	}
}

// Range specifies the range key of the item to delete.
func (d *Delete) Range(value any) *Delete {
	d.rangeValue = value
	return d
}

// If specifies a condition for this delete to succeed.
func (d *Delete) If(cond Expr) *Delete {
	compiled, err := Compile(cond)
	d.setError(err)
	d.condition = compiled
	return d
}

// Run executes this delete request.
func (d *Delete) Run(ctx context.Context) error {
	if d.err != nil {
		return d.err
	}
	req, err := d.input()
	if err != nil {
		return err
	}

	db := d.model.db
	return db.retry(ctx, func() error {
		_, err := db.client.DeleteItem(ctx, req)
		return err
	})
}

func (d *Delete) input() (*dynamodb.DeleteItemInput, error) {
	key := d.key
	if key == nil {
		var err error
		if key, err = d.model.schema.EncodeKey(d.hashValue, d.rangeValue); err != nil {
			return nil, err
		}
	}
	input := &dynamodb.DeleteItemInput{
		TableName: &d.model.schema.table,
		Key:       key,
	}
	if d.condition.Text != "" {
		input.ConditionExpression = &d.condition.Text
		input.ExpressionAttributeValues = d.condition.Values
		input.ExpressionAttributeNames = d.condition.Names
	}
	return input, nil
}

func (d *Delete) setError(err error) {
	if d.err == nil {
		d.err = err
	}
}
