package dynamodel

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// DynamoDB API limit, 25 operations per request
const maxWriteOps = 25

// BatchWrite is a BatchWriteItem operation.
// Every put and delete is encoded and validated when it is added,
// so a batch with an invalid operation fails before anything is written.
type BatchWrite struct {
	model *Model
	ops   []types.WriteRequest
	err   error
}

// BatchWrite creates a new batch write request, to which
// puts and deletes can be added.
func (m *Model) BatchWrite() *BatchWrite {
	return &BatchWrite{model: m}
}

// Put adds put operations for records built from values.
func (bw *BatchWrite) Put(values ...map[string]any) *BatchWrite {
	for _, v := range values {
		bw.put(bw.model.New(v))
	}
	return bw
}

// PutRecord adds put operations for the given records.
func (bw *BatchWrite) PutRecord(recs ...*Record) *BatchWrite {
	for _, r := range recs {
		bw.put(r)
	}
	return bw
}

func (bw *BatchWrite) put(r *Record) {
	item, err := r.Item()
	if err != nil {
		bw.setError(err)
		return
	}
	bw.ops = append(bw.ops, types.WriteRequest{PutRequest: &types.PutRequest{
		Item: item,
	}})
}

// Delete adds delete operations for the given keys to this batch.
func (bw *BatchWrite) Delete(keys ...Keyed) *BatchWrite {
	for _, k := range keys {
		if k == nil {
			continue
		}
		key, err := bw.model.schema.EncodeKey(k.HashKey(), k.RangeKey())
		if err != nil {
			bw.setError(err)
			continue
		}
		bw.ops = append(bw.ops, types.WriteRequest{DeleteRequest: &types.DeleteRequest{
			Key: key,
		}})
	}
	return bw
}

// Run executes this batch in chunks of 25 operations.
// Operations the store reports as unprocessed are put back in front of the queue
// and sent again with exponential backoff.
// An error could indicate that some records have been written and some have not.
// Consult the wrote return amount to figure out how many operations have succeeded.
func (bw *BatchWrite) Run(ctx context.Context) (wrote int, err error) {
	if bw.err != nil {
		return 0, bw.err
	}
	if len(bw.ops) == 0 {
		return 0, ErrNoInput
	}

	db := bw.model.db
	table := bw.model.Table()
	boff := db.newBatchBackoff(ctx)

	pending := bw.ops
	for len(pending) > 0 {
		n := min(len(pending), maxWriteOps)
		ops := pending[:n]
		pending = pending[n:]

		req := bw.input(ops)
		var res *dynamodb.BatchWriteItemOutput
		err := db.retry(ctx, func() error {
			var err error
			res, err = db.client.BatchWriteItem(ctx, req)
			return err
		})
		if err != nil {
			return wrote, err
		}

		unprocessed := res.UnprocessedItems[table]
		wrote += len(ops) - len(unprocessed)
		db.log.Debug("batch write",
			zap.String("table", table),
			zap.Int("ops", len(ops)),
			zap.Int("unprocessed", len(unprocessed)),
		)
		if len(unprocessed) == 0 {
			boff.Reset()
			continue
		}

		pending = append(unprocessed[:len(unprocessed):len(unprocessed)], pending...)
		next := boff.NextBackOff()
		if next == backoff.Stop {
			db.log.Warn("batch write: giving up on unprocessed items",
				zap.String("table", table), zap.Int("remaining", len(pending)))
			return wrote, &unprocessedError{table: table, count: len(pending), last: ctx.Err()}
		}
		if err := sleep(ctx, next); err != nil {
			return wrote, err
		}
	}
	return wrote, nil
}

func (bw *BatchWrite) input(ops []types.WriteRequest) *dynamodb.BatchWriteItemInput {
	return &dynamodb.BatchWriteItemInput{
		RequestItems: map[string][]types.WriteRequest{
			bw.model.Table(): ops,
		},
	}
}

func (bw *BatchWrite) setError(err error) {
	if bw.err == nil {
		bw.err = err
	}
}
