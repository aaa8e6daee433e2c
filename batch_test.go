package dynamodel

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

func batchArticles(n int) ([]map[string]any, []Keyed) {
	values := make([]map[string]any, 0, n)
	keys := make([]Keyed, 0, n)
	for i := 0; i < n; i++ {
		date := fmt.Sprintf("2015-%03d", i)
		values = append(values, map[string]any{
			"author":       "amy",
			"published_at": date,
			"title":        "post",
			"views":        i,
		})
		keys = append(keys, Keys{"amy", date})
	}
	return values, keys
}

func TestBatchGetWrite(t *testing.T) {
	ctx := context.Background()
	fc := newFakeClient(articles)
	model := newTestDB(t, fc).Model(articles)
	values, keys := batchArticles(150)

	wrote, err := model.BatchWrite().Put(values...).Run(ctx)
	if err != nil {
		t.Fatal("unexpected error:", err)
	}
	if wrote != 150 {
		t.Error("wrong wrote count. want 150, got", wrote)
	}
	if n := fc.count("BatchWriteItem"); n != 6 {
		t.Error("150 puts should take 6 requests, got", n)
	}

	recs, err := model.BatchGet(keys...).All(ctx)
	if err != nil {
		t.Fatal("unexpected error:", err)
	}
	if len(recs) != 150 {
		t.Error("want 150 records, got", len(recs))
	}
	if n := fc.count("BatchGetItem"); n != 2 {
		t.Error("150 keys should take 2 requests, got", n)
	}

	wrote, err = model.BatchWrite().Delete(keys[:60]...).Run(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if wrote != 60 {
		t.Error("wrong wrote count. want 60, got", wrote)
	}
	if n := fc.count("BatchWriteItem"); n != 6+3 {
		t.Error("60 deletes should take 3 requests, got", n-6)
	}

	recs, err = model.BatchGet(keys[:60]...).All(ctx)
	if !errors.Is(err, ErrItemNotFound) {
		t.Error("all deleted: want ErrItemNotFound, got", err)
	}
	if len(recs) != 0 {
		t.Error("want no records, got", len(recs))
	}
}

func TestBatchGetUnprocessed(t *testing.T) {
	ctx := context.Background()
	fc := newFakeClient(articles)
	model := newTestDB(t, fc).Model(articles)
	values, keys := batchArticles(101)
	if _, err := model.BatchWrite().Put(values...).Run(ctx); err != nil {
		t.Fatal(err)
	}

	var requests [][]Item
	fc.batchGetItem = func(in *dynamodb.BatchGetItemInput) (*dynamodb.BatchGetItemOutput, error) {
		kas := in.RequestItems["articles"]
		requests = append(requests, kas.Keys)
		if len(requests) > 1 {
			return fc.getBatch(in)
		}
		// the first two keys are left for later
		out, err := fc.getBatch(&dynamodb.BatchGetItemInput{RequestItems: map[string]types.KeysAndAttributes{
			"articles": {Keys: kas.Keys[2:]},
		}})
		if err != nil {
			return nil, err
		}
		out.UnprocessedKeys = map[string]types.KeysAndAttributes{
			"articles": {Keys: kas.Keys[:2]},
		}
		return out, nil
	}

	recs, err := model.BatchGet(keys...).All(ctx)
	if err != nil {
		t.Fatal("unexpected error:", err)
	}
	if len(recs) != 101 {
		t.Error("want 101 records, got", len(recs))
	}
	if len(requests) != 2 {
		t.Fatal("want 2 requests, got", len(requests))
	}
	if len(requests[1]) != 3 {
		t.Fatal("second request should have 3 keys, got", len(requests[1]))
	}
	want := []Item{requests[0][0], requests[0][1]}
	if !reflect.DeepEqual(requests[1][:2], want) {
		t.Error("unprocessed keys should be requested first")
	}
}

func TestBatchGetGivesUp(t *testing.T) {
	ctx := context.Background()
	fc := newFakeClient(articles)
	fc.batchGetItem = func(in *dynamodb.BatchGetItemInput) (*dynamodb.BatchGetItemOutput, error) {
		return &dynamodb.BatchGetItemOutput{UnprocessedKeys: in.RequestItems}, nil
	}
	db := NewFromIface(fc, WithBatchRetryTimeout(time.Millisecond))

	_, keys := batchArticles(3)
	_, err := db.Model(articles).BatchGet(keys...).All(ctx)
	if !errors.Is(err, ErrUnprocessed) {
		t.Error("want ErrUnprocessed, got", err)
	}
}

func TestBatchWriteUnprocessed(t *testing.T) {
	ctx := context.Background()
	fc := newFakeClient(articles)
	model := newTestDB(t, fc).Model(articles)
	values, keys := batchArticles(30)

	calls := 0
	fc.batchWriteItem = func(in *dynamodb.BatchWriteItemInput) (*dynamodb.BatchWriteItemOutput, error) {
		calls++
		ops := in.RequestItems["articles"]
		if calls > 1 {
			return fc.writeBatch(in)
		}
		if _, err := fc.writeBatch(&dynamodb.BatchWriteItemInput{RequestItems: map[string][]types.WriteRequest{
			"articles": ops[:20],
		}}); err != nil {
			return nil, err
		}
		return &dynamodb.BatchWriteItemOutput{UnprocessedItems: map[string][]types.WriteRequest{
			"articles": ops[20:],
		}}, nil
	}

	wrote, err := model.BatchWrite().Put(values...).Run(ctx)
	if err != nil {
		t.Fatal("unexpected error:", err)
	}
	if wrote != 30 {
		t.Error("wrong wrote count. want 30, got", wrote)
	}
	// 25, then 5 unprocessed + 5 pending
	if calls != 2 {
		t.Error("want 2 requests, got", calls)
	}

	fc.batchWriteItem = nil
	recs, err := model.BatchGet(keys...).All(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 30 {
		t.Error("want 30 records written, got", len(recs))
	}
}

func TestBatchWriteGivesUp(t *testing.T) {
	ctx := context.Background()
	fc := newFakeClient(articles)
	fc.batchWriteItem = func(in *dynamodb.BatchWriteItemInput) (*dynamodb.BatchWriteItemOutput, error) {
		ops := in.RequestItems["articles"]
		return &dynamodb.BatchWriteItemOutput{UnprocessedItems: map[string][]types.WriteRequest{
			"articles": ops[1:],
		}}, nil
	}
	db := NewFromIface(fc, WithBatchRetryTimeout(time.Millisecond))

	values, _ := batchArticles(3)
	wrote, err := db.Model(articles).BatchWrite().Put(values...).Run(ctx)
	if !errors.Is(err, ErrUnprocessed) {
		t.Error("want ErrUnprocessed, got", err)
	}
	if wrote < 1 {
		t.Error("the processed item should be counted, got", wrote)
	}
}

func TestBatchValidation(t *testing.T) {
	ctx := context.Background()
	fc := newFakeClient(articles)
	model := newTestDB(t, fc).Model(articles)

	_, err := model.BatchWrite().
		Put(map[string]any{"author": "amy", "published_at": "x", "title": "ok"}).
		Put(map[string]any{"author": "amy", "published_at": "y"}).
		Run(ctx)
	if !errors.Is(err, ErrNullAttribute) {
		t.Error("missing title: want ErrNullAttribute, got", err)
	}
	_, err = model.BatchWrite().Delete(Keys{"amy", nil}).Run(ctx)
	if !errors.Is(err, ErrNullAttribute) {
		t.Error("missing range key: want ErrNullAttribute, got", err)
	}
	_, err = model.BatchWrite().Delete(nil, Keys{"amy", nil}).Run(ctx)
	if !errors.Is(err, ErrNullAttribute) {
		t.Error("nil key followed by a bad key: want ErrNullAttribute, got", err)
	}
	_, err = model.BatchGet(Keys{42, "x"}).All(ctx)
	if !errors.Is(err, ErrValidation) {
		t.Error("numeric author: want ErrValidation, got", err)
	}
	if _, err := model.BatchWrite().Run(ctx); !errors.Is(err, ErrNoInput) {
		t.Error("empty write: want ErrNoInput, got", err)
	}
	if _, err := model.BatchGet().All(ctx); !errors.Is(err, ErrNoInput) {
		t.Error("empty get: want ErrNoInput, got", err)
	}
	if n := fc.count("BatchWriteItem") + fc.count("BatchGetItem"); n != 0 {
		t.Error("invalid batches should not be sent, got", n)
	}
}

func TestBatchGetInput(t *testing.T) {
	db := newTestDB(t, newFakeClient())
	bg := db.Model(articles).BatchGet(Keys{"amy", "x"}).And(Keys{"bob", "y"}).Consistent(true).Project("title", "author")
	input := bg.input(bg.keys)
	kas := input.RequestItems["articles"]
	if len(kas.Keys) != 2 {
		t.Error("want 2 keys, got", len(kas.Keys))
	}
	if !aws.ToBool(kas.ConsistentRead) {
		t.Error("want consistent read")
	}
	if got, want := aws.ToString(kas.ProjectionExpression), "#1, #2, #3"; got != want {
		t.Errorf("bad projection. want %q, got %q", want, got)
	}
	wantNames := map[string]string{"#1": "title", "#2": "author", "#3": "published_at"}
	if !reflect.DeepEqual(kas.ExpressionAttributeNames, wantNames) {
		t.Errorf("projection should include the keys. want %v, got %v", wantNames, kas.ExpressionAttributeNames)
	}
}
