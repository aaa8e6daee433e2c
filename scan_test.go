package dynamodel

import (
	"context"
	"errors"
	"fmt"
	"math"
	"reflect"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// seedViews are the views of the seeded articles, in insertion order.
var seedViews = []int{1, 1, 2, 3, 4, 5}

func seedArticles(t *testing.T) (*fakeClient, *Model) {
	t.Helper()
	fc := newFakeClient(articles)
	model := newTestDB(t, fc).Model(articles)
	for i, views := range seedViews {
		err := model.Put(map[string]any{
			"author":       "amy",
			"published_at": fmt.Sprintf("2015-01-0%d", i+1),
			"title":        fmt.Sprintf("post %d", i+1),
			"views":        views,
		}).Run(context.Background())
		if err != nil {
			t.Fatal(err)
		}
	}
	return fc, model
}

func TestScan(t *testing.T) {
	ctx := context.Background()
	fc, model := seedArticles(t)

	recs, err := model.Scan(nil).All(ctx)
	if err != nil {
		t.Fatal("unexpected error:", err)
	}
	if len(recs) != len(seedViews) {
		t.Errorf("want %d records, got %d", len(seedViews), len(recs))
	}

	count, err := model.Scan(nil).Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != int64(len(seedViews)) {
		t.Errorf("bad count. want %d, got %d", len(seedViews), count)
	}

	recs, err = model.Scan(Conditions{"views__gt": 2}).All(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 3 {
		t.Errorf("views > 2: want 3 records, got %d", len(recs))
	}
	for _, rec := range recs {
		if rec.Get("views").(int64) <= 2 {
			t.Error("filter not applied:", rec)
		}
	}

	count, err = model.Scan(Conditions{"views__eq": 1}).Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Error("views = 1: want count 2, got", count)
	}

	if n := fc.count("Scan"); n != 4 {
		t.Error("each call should be a single request, got", n)
	}
}

func TestScanLimit(t *testing.T) {
	ctx := context.Background()
	fc, model := seedArticles(t)

	recs, err := model.Scan(nil).SearchLimit(2).Limit(3).All(ctx)
	if err != nil {
		t.Fatal("unexpected error:", err)
	}
	if len(recs) != 3 {
		t.Errorf("want 3 records, got %d", len(recs))
	}
	if n := fc.count("Scan"); n != 2 {
		t.Errorf("pages of 2 should need 2 requests for 3 records, got %d", n)
	}
	last := fc.inputs[len(fc.inputs)-1].(*dynamodb.ScanInput)
	if got := aws.ToInt32(last.Limit); got != 1 {
		t.Errorf("second page should only ask for the remaining record, got limit %d", got)
	}

	if _, err := model.Scan(nil).Limit(math.MaxInt32 + 10).All(ctx); err != nil {
		t.Fatal(err)
	}
	if got := aws.ToInt32(fc.inputs[len(fc.inputs)-1].(*dynamodb.ScanInput).Limit); got != math.MaxInt32 {
		t.Errorf("a huge limit should be clamped to the largest page limit, got %d", got)
	}

	count, err := model.Scan(nil).Limit(4).Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 4 {
		t.Error("count should stop at the limit, got", count)
	}
}

func TestScanLimitFiltered(t *testing.T) {
	ctx := context.Background()
	fc, model := seedArticles(t)

	// pages evaluate [1 1] [2 3] [4 5]
	recs, err := model.Scan(Conditions{"views__gt": 1}).SearchLimit(2).Limit(3).All(ctx)
	if err != nil {
		t.Fatal(err)
	}
	var views []int64
	for _, rec := range recs {
		views = append(views, rec.Get("views").(int64))
	}
	if want := []int64{2, 3, 4}; !reflect.DeepEqual(views, want) {
		t.Errorf("bad results. want views %v, got %v", want, views)
	}
	if n := fc.count("Scan"); n != 3 {
		t.Errorf("want 3 requests, got %d", n)
	}
	for _, in := range fc.inputs[len(seedViews):] {
		if got := aws.ToInt32(in.(*dynamodb.ScanInput).Limit); got != 2 {
			t.Error("filtered pages should keep the search limit, got", got)
		}
	}

	count, err := model.Scan(Conditions{"views__gt": 1}).SearchLimit(2).Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 4 {
		t.Error("bad filtered count:", count)
	}
}

func TestScanStartFrom(t *testing.T) {
	ctx := context.Background()
	_, model := seedArticles(t)

	itr := model.Scan(nil).Limit(3).Iter()
	var first []*Record
	for itr.Next(ctx) {
		first = append(first, itr.Record())
	}
	if err := itr.Err(); err != nil {
		t.Fatal(err)
	}
	lek := itr.LastEvaluatedKey()
	if lek == nil {
		t.Fatal("want a continuation key")
	}

	rest, err := model.Scan(nil).StartFrom(lek).All(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(first)+len(rest) != len(seedViews) {
		t.Errorf("want %d records in total, got %d + %d", len(seedViews), len(first), len(rest))
	}
	if rest[0].Get("published_at") != "2015-01-04" {
		t.Error("continued from the wrong place:", rest[0])
	}

	// stopping in the middle of a page
	itr = model.Scan(nil).Iter()
	itr.Next(ctx)
	itr.Next(ctx)
	lek = itr.LastEvaluatedKey()
	wantKey := Item{
		"author":       &types.AttributeValueMemberS{Value: "amy"},
		"published_at": &types.AttributeValueMemberS{Value: "2015-01-02"},
	}
	if !reflect.DeepEqual(lek, wantKey) {
		t.Errorf("bad mid-page key.\nwant: %#v\n got: %#v", wantKey, lek)
	}
	rest, err = model.Scan(nil).StartFrom(lek).All(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(rest) != 4 {
		t.Error("want 4 remaining records, got", len(rest))
	}

	// exhausted
	itr = model.Scan(nil).Iter()
	for itr.Next(ctx) {
	}
	if lek := itr.LastEvaluatedKey(); lek != nil {
		t.Error("exhausted iterator should have no continuation key:", lek)
	}
}

func TestScanCursorIsRestartable(t *testing.T) {
	ctx := context.Background()
	_, model := seedArticles(t)

	cur := model.Scan(nil).Limit(2).Cursor()
	for i := 0; i < 2; i++ {
		recs, err := cur.All(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if len(recs) != 2 || recs[0].Get("published_at") != "2015-01-01" {
			t.Errorf("traversal %d did not start over: %v", i, recs)
		}
	}
}

func TestScanInput(t *testing.T) {
	db := newTestDB(t, newFakeClient())
	scan := db.Model(articles).Scan(Conditions{"views__gte": 10}).
		Filter(Contains("title", "go")).
		Project("title").
		Segment(1, 4)

	input, err := scan.input(false)
	if err != nil {
		t.Fatal(err)
	}
	if input.ScanFilter != nil || input.AttributesToGet != nil {
		t.Error("legacy parameters should not be mixed with expressions")
	}
	if got, want := aws.ToString(input.FilterExpression), "#1 >= :1 AND contains(title, :2)"; got != want {
		t.Errorf("bad filter.\nwant: %s\n got: %s", want, got)
	}
	if got := aws.ToString(input.ProjectionExpression); got != "#2" {
		t.Error("bad projection:", got)
	}
	wantNames := map[string]string{"#1": "views", "#2": "title"}
	if !reflect.DeepEqual(input.ExpressionAttributeNames, wantNames) {
		t.Errorf("bad names. want %v, got %v", wantNames, input.ExpressionAttributeNames)
	}
	if aws.ToInt32(input.Segment) != 1 || aws.ToInt32(input.TotalSegments) != 4 {
		t.Error("bad segment:", input.Segment, input.TotalSegments)
	}

	counts, err := scan.input(true)
	if err != nil {
		t.Fatal(err)
	}
	if counts.Select != types.SelectCount || counts.ProjectionExpression != nil {
		t.Error("count requests should select COUNT without a projection")
	}

	legacy, err := db.Model(articles).Scan(Conditions{"views__gte": 10}).Project("title").input(false)
	if err != nil {
		t.Fatal(err)
	}
	if legacy.FilterExpression != nil || len(legacy.ScanFilter) != 1 || !reflect.DeepEqual(legacy.AttributesToGet, []string{"title"}) {
		t.Errorf("without an expression, legacy parameters should be used: %#v", legacy)
	}
}

func TestScanErrors(t *testing.T) {
	ctx := context.Background()
	fc := newFakeClient(articles)
	model := newTestDB(t, fc).Model(articles)

	_, err := model.Scan(Conditions{"views__like": 1}).All(ctx)
	if !errors.Is(err, ErrConditionNotRecognized) {
		t.Error("want ErrConditionNotRecognized, got", err)
	}
	_, err = model.Scan(nil).Index("nope").Count(ctx)
	if err == nil {
		t.Error("unknown index: want error, got nil")
	}
	_, err = model.Scan(nil).Segment(4, 4).All(ctx)
	if err == nil {
		t.Error("bad segment: want error, got nil")
	}
	if n := fc.count("Scan"); n != 0 {
		t.Error("invalid scans should not be sent, got", n)
	}

	fc.scan = func(*dynamodb.ScanInput) (*dynamodb.ScanOutput, error) {
		return nil, &types.ResourceNotFoundException{Message: aws.String("gone")}
	}
	_, err = model.Scan(nil).All(ctx)
	var notFound *types.ResourceNotFoundException
	if !errors.As(err, &notFound) {
		t.Error("want the client error, got", err)
	}
}
