package dynamodel

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

func TestRetryCustom(t *testing.T) {
	t.Parallel()
	retryer := func() aws.Retryer {
		return retry.NewStandard(func(so *retry.StandardOptions) {
			so.MaxAttempts = 1
		})
	}
	db := New(aws.Config{
		Region:  "local",
		Retryer: retryer,
	})

	var runs int
	err := db.retry(context.Background(), func() error {
		runs++
		return &types.ProvisionedThroughputExceededException{}
	})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if want := 1; runs != want {
		t.Error("wrong number of runs. want:", want, "got:", runs)
	}
}

func TestRetryThrottled(t *testing.T) {
	t.Parallel()
	db := newTestDB(t, newFakeClient())

	var runs int
	err := db.retry(context.Background(), func() error {
		runs++
		if runs < 2 {
			return &types.ProvisionedThroughputExceededException{Message: aws.String("slow down")}
		}
		return nil
	})
	if err != nil {
		t.Fatal("unexpected error:", err)
	}
	if runs != 2 {
		t.Error("wrong number of runs. want: 2 got:", runs)
	}
}

func TestRetryGivesUp(t *testing.T) {
	t.Parallel()
	db := NewFromIface(newFakeClient(), WithRetryTimeout(time.Millisecond))

	var runs int
	err := db.retry(context.Background(), func() error {
		runs++
		return &types.ProvisionedThroughputExceededException{}
	})
	var pte *types.ProvisionedThroughputExceededException
	if !errors.As(err, &pte) {
		t.Error("want the last error, got", err)
	}
	if runs > 2 {
		t.Error("should give up once the timeout passes, got runs:", runs)
	}
}

func TestRetryNotRetryable(t *testing.T) {
	t.Parallel()
	db := newTestDB(t, newFakeClient())

	var runs int
	err := db.retry(context.Background(), func() error {
		runs++
		return &types.ConditionalCheckFailedException{}
	})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if runs != 1 {
		t.Error("wrong number of runs. want: 1 got:", runs)
	}
}

func TestRetryCanceled(t *testing.T) {
	t.Parallel()
	db := newTestDB(t, newFakeClient())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := db.retry(ctx, func() error {
		return &types.ProvisionedThroughputExceededException{}
	})
	if !errors.Is(err, context.Canceled) {
		t.Error("want context.Canceled, got", err)
	}
}
