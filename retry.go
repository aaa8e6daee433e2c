package dynamodel

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	"github.com/aws/smithy-go"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// DefaultRetryTimeout is the maximum amount of time a single request will be
// retried for when throttled, unless overridden with WithRetryTimeout.
const DefaultRetryTimeout = 1 * time.Minute

// DefaultBatchRetryTimeout is the maximum amount of time batch requests will keep
// re-requesting unprocessed items, unless overridden with WithBatchRetryTimeout.
const DefaultBatchRetryTimeout = 2 * time.Minute

var retryables = retry.IsErrorRetryables(retry.DefaultRetryables)

// retry calls f until it succeeds, returns a non-retryable error, or the backoff runs out.
// If the caller configured their own aws.Retryer, the SDK handles retrying and f is only called once.
func (db *DB) retry(ctx context.Context, f func() error) error {
	if db.retryer != nil {
		return f()
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = db.retryTimeout
	var err error
	var next time.Duration
	for {
		if err = f(); err == nil {
			return nil
		}
		if !canRetry(err) {
			return err
		}
		if next = b.NextBackOff(); next == backoff.Stop {
			db.log.Debug("retry: giving up", zap.Duration("elapsed", b.GetElapsedTime()), zap.Error(err))
			return err
		}
		db.log.Debug("retry: sleeping", zap.Duration("next", next), zap.Error(err))
		if err := sleep(ctx, next); err != nil {
			return err
		}
	}
}

func canRetry(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var ae smithy.APIError
	if errors.As(err, &ae) {
		switch ae.ErrorCode() {
		case "ProvisionedThroughputExceededException",
			"ThrottlingException",
			"RequestLimitExceeded":
			return true
		}
	}

	return retryables.IsErrorRetryable(err) == aws.TrueTernary
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// newBatchBackoff returns the backoff used between re-requests of unprocessed batch items.
func (db *DB) newBatchBackoff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = db.batchRetryTimeout
	return backoff.WithContext(b, ctx)
}
