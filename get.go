package dynamodel

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// Get is a request to read a single item by its primary key.
// See: http://docs.aws.amazon.com/amazondynamodb/latest/APIReference/API_GetItem.html
type Get struct {
	model *Model

	hashValue  any
	rangeValue any

	projection []string
	consistent bool
}

// Get creates a new request to read the item with the given hash key.
// For tables with a range key, specify it with Range.
func (m *Model) Get(hashKey any) *Get {
	return &Get{
		model:     m,
		hashValue: hashKey,
	}
}

// Range specifies the range key of the item to read.
func (g *Get) Range(value any) *Get {
	g.rangeValue = value
	return g
}

// Consistent, if on is true, will make this read strongly consistent.
func (g *Get) Consistent(on bool) *Get {
	g.consistent = on
	return g
}

// Project limits the result attributes to the given names.
func (g *Get) Project(names ...string) *Get {
	g.projection = append(g.projection, names...)
	return g
}

// One reads the item and decodes it into a record.
// It returns ErrItemNotFound if there is no such item.
func (g *Get) One(ctx context.Context) (*Record, error) {
	req, err := g.input()
	if err != nil {
		return nil, err
	}

	var res *dynamodb.GetItemOutput
	db := g.model.db
	err = db.retry(ctx, func() error {
		var err error
		res, err = db.client.GetItem(ctx, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	if res.Item == nil {
		return nil, ErrItemNotFound
	}
	return g.model.Decode(res.Item)
}

func (g *Get) input() (*dynamodb.GetItemInput, error) {
	key, err := g.model.schema.EncodeKey(g.hashValue, g.rangeValue)
	if err != nil {
		return nil, err
	}
	input := &dynamodb.GetItemInput{
		TableName:      &g.model.schema.table,
		Key:            key,
		ConsistentRead: &g.consistent,
	}
	if len(g.projection) > 0 {
		ph := new(placeholders)
		proj := ph.projection(g.projection)
		input.ProjectionExpression = &proj
		input.ExpressionAttributeNames = ph.names
	}
	return input, nil
}
