package dynamodel

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// DynamoDB API limit, 100 operations per request
const maxGetOps = 100

// BatchGet is a BatchGetItem operation.
type BatchGet struct {
	model      *Model
	keys       []Item
	consistent bool
	projection []string
	err        error
}

// BatchGet creates a new request reading the items with the given keys.
// Any number of keys may be given; they are requested in chunks of 100.
func (m *Model) BatchGet(keys ...Keyed) *BatchGet {
	bg := &BatchGet{model: m}
	bg.add(keys)
	return bg
}

// And adds more keys to be gotten.
func (bg *BatchGet) And(keys ...Keyed) *BatchGet {
	bg.add(keys)
	return bg
}

func (bg *BatchGet) add(keys []Keyed) {
	for _, k := range keys {
		if k == nil {
			continue
		}
		key, err := bg.model.schema.EncodeKey(k.HashKey(), k.RangeKey())
		bg.setError(err)
		bg.keys = append(bg.keys, key)
	}
}

// Consistent will, if on is true, make this batch use a strongly consistent read.
func (bg *BatchGet) Consistent(on bool) *BatchGet {
	bg.consistent = on
	return bg
}

// Project limits the result attributes to the given names.
// The key attributes are always included.
func (bg *BatchGet) Project(names ...string) *BatchGet {
	bg.projection = append(bg.projection, names...)
	return bg
}

// All returns every item found. Results are not in any particular order.
// It returns ErrItemNotFound if none of the items exist.
//
// Keys the store reports as unprocessed are put back in front of the queue and requested
// again with exponential backoff. If the batch retry timeout passes without progress,
// All returns the records it has so far and an error matching ErrUnprocessed.
func (bg *BatchGet) All(ctx context.Context) ([]*Record, error) {
	if bg.err != nil {
		return nil, bg.err
	}
	if len(bg.keys) == 0 {
		return nil, ErrNoInput
	}

	db := bg.model.db
	table := bg.model.Table()
	boff := db.newBatchBackoff(ctx)

	var recs []*Record
	pending := bg.keys
	for len(pending) > 0 {
		n := min(len(pending), maxGetOps)
		chunk := pending[:n]
		pending = pending[n:]

		req := bg.input(chunk)
		var res *dynamodb.BatchGetItemOutput
		err := db.retry(ctx, func() error {
			var err error
			res, err = db.client.BatchGetItem(ctx, req)
			return err
		})
		if err != nil {
			return recs, err
		}

		for _, item := range res.Responses[table] {
			rec, err := bg.model.Decode(item)
			if err != nil {
				return recs, err
			}
			recs = append(recs, rec)
		}

		var unprocessed []Item
		if kas, ok := res.UnprocessedKeys[table]; ok {
			unprocessed = kas.Keys
		}
		db.log.Debug("batch get",
			zap.String("table", table),
			zap.Int("keys", len(chunk)),
			zap.Int("found", len(res.Responses[table])),
			zap.Int("unprocessed", len(unprocessed)),
		)
		if len(unprocessed) == 0 {
			boff.Reset()
			continue
		}

		// requeue in front, so they are part of the next request
		pending = append(unprocessed[:len(unprocessed):len(unprocessed)], pending...)
		next := boff.NextBackOff()
		if next == backoff.Stop {
			db.log.Warn("batch get: giving up on unprocessed keys",
				zap.String("table", table), zap.Int("remaining", len(pending)))
			return recs, &unprocessedError{table: table, count: len(pending), last: ctx.Err()}
		}
		if err := sleep(ctx, next); err != nil {
			return recs, err
		}
	}

	if len(recs) == 0 {
		return nil, ErrItemNotFound
	}
	return recs, nil
}

func (bg *BatchGet) input(keys []Item) *dynamodb.BatchGetItemInput {
	kas := types.KeysAndAttributes{
		Keys: keys,
	}
	if bg.consistent {
		kas.ConsistentRead = aws.Bool(true)
	}
	if len(bg.projection) > 0 {
		ph := new(placeholders)
		kas.ProjectionExpression = aws.String(ph.projection(bg.projectionWithKeys()))
		kas.ExpressionAttributeNames = ph.names
	}
	return &dynamodb.BatchGetItemInput{
		RequestItems: map[string]types.KeysAndAttributes{
			bg.model.Table(): kas,
		},
	}
}

// projectionWithKeys returns the projection plus any key attributes it is missing.
func (bg *BatchGet) projectionWithKeys() []string {
	names := append([]string(nil), bg.projection...)
	s := bg.model.schema
	for _, key := range []string{s.HashKey().Name, s.rangeKeyName()} {
		if key == "" {
			continue
		}
		found := false
		for _, name := range names {
			if name == key {
				found = true
				break
			}
		}
		if !found {
			names = append(names, key)
		}
	}
	return names
}

func (bg *BatchGet) setError(err error) {
	if bg.err == nil {
		bg.err = err
	}
}
