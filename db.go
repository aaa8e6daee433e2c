package dynamodel

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"
)

// Client is the subset of the DynamoDB API used by dynamodel.
// *dynamodb.Client satisfies it.
type Client interface {
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	DeleteTable(ctx context.Context, params *dynamodb.DeleteTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteTableOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	BatchGetItem(ctx context.Context, params *dynamodb.BatchGetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchGetItemOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

var _ Client = (*dynamodb.Client)(nil)

// DB is a DynamoDB client that knows how to work with schemas.
//
// A DB is not safe for concurrent use by multiple goroutines
// unless the underlying Client is (the SDK client is).
type DB struct {
	client            Client
	retryer           func() aws.Retryer
	retryTimeout      time.Duration
	batchRetryTimeout time.Duration
	log               *zap.Logger
}

// Option configures a DB.
type Option func(*DB)

// WithLogger sets the logger used for debug output about paging, batching and retries.
func WithLogger(logger *zap.Logger) Option {
	return func(db *DB) {
		if logger != nil {
			db.log = logger
		}
	}
}

// WithRetryTimeout sets the maximum amount of time a throttled request will be retried for.
// It has no effect when the aws.Config passed to New has its own Retryer.
func WithRetryTimeout(d time.Duration) Option {
	return func(db *DB) {
		db.retryTimeout = d
	}
}

// WithBatchRetryTimeout sets the maximum amount of time batch requests will keep
// re-requesting items reported as unprocessed before failing with ErrUnprocessed.
func WithBatchRetryTimeout(d time.Duration) Option {
	return func(db *DB) {
		db.batchRetryTimeout = d
	}
}

// New creates a new DB with the given AWS configuration.
func New(cfg aws.Config, opts ...Option) *DB {
	db := newDB(dynamodb.NewFromConfig(cfg), opts)
	db.retryer = cfg.Retryer
	return db
}

// NewFromIface creates a new DB with the given client.
func NewFromIface(client Client, opts ...Option) *DB {
	return newDB(client, opts)
}

func newDB(client Client, opts []Option) *DB {
	db := &DB{
		client:            client,
		retryTimeout:      DefaultRetryTimeout,
		batchRetryTimeout: DefaultBatchRetryTimeout,
		log:               zap.NewNop(),
	}
	for _, opt := range opts {
		opt(db)
	}
	return db
}

// Client returns this DB's internal client used to make API requests.
func (db *DB) Client() Client {
	return db.client
}

// Logger returns the logger used by this DB.
func (db *DB) Logger() *zap.Logger {
	return db.log
}
