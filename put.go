package dynamodel

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Put is a request to create or replace an item.
// See: http://docs.aws.amazon.com/amazondynamodb/latest/APIReference/API_PutItem.html
type Put struct {
	model *Model

	item      Item
	condition Compiled

	err error
}

// Put creates a new request to create or replace an item built from values.
// Absent fields are filled from their defaults.
func (m *Model) Put(values map[string]any) *Put {
	return m.putRecord(m.New(values))
}

func (m *Model) putRecord(r *Record) *Put {
	item, err := r.Item()
	return &Put{
		model: m,
		item:  item,
		err:   err,
	}
}

// Save writes r to this model's table, replacing any existing item.
func (m *Model) Save(ctx context.Context, r *Record) error {
	return m.putRecord(r).Run(ctx)
}

// If specifies a condition for this put to succeed,
// for example dynamodel.Raw("attribute_not_exists($)", "id").
func (p *Put) If(cond Expr) *Put {
	compiled, err := Compile(cond)
	p.setError(err)
	p.condition = compiled
	return p
}

// Run executes this put.
func (p *Put) Run(ctx context.Context) error {
	if p.err != nil {
		return p.err
	}

	req := p.input()
	db := p.model.db
	return db.retry(ctx, func() error {
		_, err := db.client.PutItem(ctx, req)
		return err
	})
}

// Item returns the encoded item this put will write.
func (p *Put) Item() (Item, error) {
	return p.item, p.err
}

func (p *Put) input() *dynamodb.PutItemInput {
	input := &dynamodb.PutItemInput{
		TableName:    &p.model.schema.table,
		Item:         p.item,
		ReturnValues: types.ReturnValueNone,
	}
	if p.condition.Text != "" {
		input.ConditionExpression = &p.condition.Text
		input.ExpressionAttributeValues = p.condition.Values
		input.ExpressionAttributeNames = p.condition.Names
	}
	return input
}

func (p *Put) setError(err error) {
	if p.err == nil {
		p.err = err
	}
}
