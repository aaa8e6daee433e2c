package dynamodel

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Model binds a schema to a DB. It is the entry point for every item operation.
type Model struct {
	db     *DB
	schema *Schema
}

// Model returns a handle for working with the table described by schema.
func (db *DB) Model(schema *Schema) *Model {
	return &Model{
		db:     db,
		schema: schema,
	}
}

// Schema returns this model's schema.
func (m *Model) Schema() *Schema {
	return m.schema
}

// Table returns the name of this model's table.
func (m *Model) Table() string {
	return m.schema.table
}

// New creates a record bound to this model. See Schema.New.
func (m *Model) New(values map[string]any) *Record {
	r := m.schema.New(values)
	r.model = m
	return r
}

// Decode decodes a raw item into a record bound to this model. See Schema.Decode.
func (m *Model) Decode(item Item) (*Record, error) {
	r, err := m.schema.Decode(item)
	if err != nil {
		return nil, err
	}
	r.model = m
	return r, nil
}

// DeleteTable is a request to delete a table.
// See: http://docs.aws.amazon.com/amazondynamodb/latest/APIReference/API_DeleteTable.html
type DeleteTable struct {
	model *Model
}

// DeleteTable begins a new request to delete this model's table.
func (m *Model) DeleteTable() *DeleteTable {
	return &DeleteTable{model: m}
}

// Run executes this request and deletes the table.
func (dt *DeleteTable) Run(ctx context.Context) error {
	input := dt.input()
	db := dt.model.db
	return db.retry(ctx, func() error {
		_, err := db.client.DeleteTable(ctx, input)
		return err
	})
}

func (dt *DeleteTable) input() *dynamodb.DeleteTableInput {
	name := dt.model.Table()
	return &dynamodb.DeleteTableInput{
		TableName: &name,
	}
}

// CreateTables creates a table for each schema concurrently, provisioned with the given
// read and write capacity. It returns the first error encountered.
func (db *DB) CreateTables(ctx context.Context, readUnits, writeUnits int64, schemas ...*Schema) error {
	grp, ctx := errgroup.WithContext(ctx)
	for _, schema := range schemas {
		grp.Go(func() error {
			db.log.Debug("creating table", zap.String("table", schema.Table()))
			return db.Model(schema).CreateTable().Provision(readUnits, writeUnits).Run(ctx)
		})
	}
	return grp.Wait()
}

// DeleteTables deletes the table of each schema concurrently.
// It returns the first error encountered.
func (db *DB) DeleteTables(ctx context.Context, schemas ...*Schema) error {
	grp, ctx := errgroup.WithContext(ctx)
	for _, schema := range schemas {
		grp.Go(func() error {
			db.log.Debug("deleting table", zap.String("table", schema.Table()))
			return db.Model(schema).DeleteTable().Run(ctx)
		})
	}
	return grp.Wait()
}
