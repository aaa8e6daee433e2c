package dynamodel

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// StreamView determines what information is written to a table's stream.
type StreamView string

var (
	// Only the key attributes of the modified item are written to the stream.
	KeysOnlyView StreamView = StreamView(types.StreamViewTypeKeysOnly)
	// The entire item, as it appears after it was modified, is written to the stream.
	NewImageView StreamView = StreamView(types.StreamViewTypeNewImage)
	// The entire item, as it appeared before it was modified, is written to the stream.
	OldImageView StreamView = StreamView(types.StreamViewTypeOldImage)
	// Both the new and the old item images of the item are written to the stream.
	NewAndOldImagesView StreamView = StreamView(types.StreamViewTypeNewAndOldImages)
)

// Default provisioned capacity of new tables.
const (
	DefaultReadUnits  = 5
	DefaultWriteUnits = 5
)

// CreateTable is a request to create a model's table.
// Key schema, attribute definitions and secondary indexes come from the schema.
// See: http://docs.aws.amazon.com/amazondynamodb/latest/APIReference/API_CreateTable.html
type CreateTable struct {
	model      *Model
	readUnits  int64
	writeUnits int64
	onDemand   bool
	streamView StreamView
	tags       []types.Tag
}

// CreateTable begins a new operation to create this model's table.
func (m *Model) CreateTable() *CreateTable {
	return &CreateTable{
		model:      m,
		readUnits:  DefaultReadUnits,
		writeUnits: DefaultWriteUnits,
	}
}

// Provision specifies the provisioned read and write capacity for this table.
// If Provision isn't called, the table will be created with DefaultReadUnits and DefaultWriteUnits.
// Global secondary indexes use the Throughput they were declared with.
func (ct *CreateTable) Provision(readUnits, writeUnits int64) *CreateTable {
	ct.readUnits, ct.writeUnits = readUnits, writeUnits
	return ct
}

// OnDemand specifies on-demand (pay per request) billing mode if enabled is true.
// Provisioned capacity is ignored.
func (ct *CreateTable) OnDemand(enabled bool) *CreateTable {
	ct.onDemand = enabled
	return ct
}

// Stream enables DynamoDB Streams for this table which the specified type of view.
// Streams are disabled by default.
func (ct *CreateTable) Stream(view StreamView) *CreateTable {
	ct.streamView = view
	return ct
}

// Tag specifies a metadata tag for this table. Multiple tags may be specified.
// A later tag with the same key replaces an earlier one.
func (ct *CreateTable) Tag(key, value string) *CreateTable {
	for i, tag := range ct.tags {
		if aws.ToString(tag.Key) == key {
			ct.tags[i].Value = aws.String(value)
			return ct
		}
	}
	ct.tags = append(ct.tags, types.Tag{
		Key:   aws.String(key),
		Value: aws.String(value),
	})
	return ct
}

// Run creates this table or returns an error.
func (ct *CreateTable) Run(ctx context.Context) error {
	input := ct.input()
	db := ct.model.db
	return db.retry(ctx, func() error {
		_, err := db.client.CreateTable(ctx, input)
		return err
	})
}

func (ct *CreateTable) input() *dynamodb.CreateTableInput {
	s := ct.model.schema
	input := &dynamodb.CreateTableInput{
		TableName:            aws.String(s.table),
		AttributeDefinitions: append([]types.AttributeDefinition(nil), s.attribs...),
		KeySchema:            append([]types.KeySchemaElement(nil), s.keys...),
		Tags:                 ct.tags,
	}
	if ct.onDemand {
		input.BillingMode = types.BillingModePayPerRequest
	} else {
		input.BillingMode = types.BillingModeProvisioned
		input.ProvisionedThroughput = &types.ProvisionedThroughput{
			ReadCapacityUnits:  aws.Int64(ct.readUnits),
			WriteCapacityUnits: aws.Int64(ct.writeUnits),
		}
	}
	if ct.streamView != "" {
		input.StreamSpecification = &types.StreamSpecification{
			StreamEnabled:  aws.Bool(true),
			StreamViewType: types.StreamViewType(ct.streamView),
		}
	}
	for _, idx := range s.lsi {
		input.LocalSecondaryIndexes = append(input.LocalSecondaryIndexes, idx)
	}
	for _, idx := range s.gsi {
		if ct.onDemand {
			idx.ProvisionedThroughput = nil
		}
		input.GlobalSecondaryIndexes = append(input.GlobalSecondaryIndexes, idx)
	}
	return input
}
