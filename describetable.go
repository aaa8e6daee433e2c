package dynamodel

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// Status is an enumeration of table and index statuses.
type Status string

// Table and index statuses.
const (
	CreatingStatus Status = Status(types.TableStatusCreating)
	UpdatingStatus Status = Status(types.TableStatusUpdating)
	DeletingStatus Status = Status(types.TableStatusDeleting)
	ActiveStatus   Status = Status(types.TableStatusActive)
)

// Description contains information about a table.
type Description struct {
	Name    string
	ARN     string
	Status  Status
	Created time.Time

	// Attribute name of the hash key (a.k.a. partition key).
	HashKey string
	// Attribute name of the range key (a.k.a. sort key) or blank if nonexistant.
	RangeKey string

	// Provisioned throughput for this table. Zero for on-demand tables.
	Throughput Throughput
	OnDemand   bool

	// The number of items of the table, updated every 6 hours.
	Items int64
	// The size of this table in bytes, updated every 6 hours.
	Size int64

	// Names of the secondary indexes, global first.
	Indexes []string

	StreamEnabled bool
	StreamView    StreamView
}

// Active returns true if this table is ready to use.
func (d Description) Active() bool {
	return d.Status == ActiveStatus
}

// Describe requests information about this model's table.
// See: http://docs.aws.amazon.com/amazondynamodb/latest/APIReference/API_DescribeTable.html
func (m *Model) Describe(ctx context.Context) (Description, error) {
	input := &dynamodb.DescribeTableInput{
		TableName: aws.String(m.Table()),
	}

	var result *dynamodb.DescribeTableOutput
	db := m.db
	err := db.retry(ctx, func() error {
		var err error
		result, err = db.client.DescribeTable(ctx, input)
		return err
	})
	if err != nil {
		return Description{}, err
	}
	return newDescription(result.Table), nil
}

// WaitUntilActive polls the table description until the table and its global indexes
// are active, or ctx is done.
func (m *Model) WaitUntilActive(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 0
	b.MaxInterval = 5 * time.Second

	return backoff.Retry(func() error {
		desc, err := m.Describe(ctx)
		var notFound *types.ResourceNotFoundException
		switch {
		case errors.As(err, &notFound):
			// may not be visible yet right after creation
			return err
		case err != nil:
			return backoff.Permanent(err)
		case !desc.Active():
			m.db.log.Debug("waiting for table", zap.String("table", m.Table()), zap.String("status", string(desc.Status)))
			return fmt.Errorf("dynamodel: table %s is %s", m.Table(), desc.Status)
		}
		return nil
	}, backoff.WithContext(b, ctx))
}

func newDescription(table *types.TableDescription) Description {
	if table == nil {
		return Description{}
	}
	desc := Description{
		Name:   aws.ToString(table.TableName),
		ARN:    aws.ToString(table.TableArn),
		Status: Status(table.TableStatus),
		Items:  aws.ToInt64(table.ItemCount),
		Size:   aws.ToInt64(table.TableSizeBytes),
	}
	if table.CreationDateTime != nil {
		desc.Created = *table.CreationDateTime
	}

	for _, ks := range table.KeySchema {
		switch ks.KeyType {
		case types.KeyTypeHash:
			desc.HashKey = aws.ToString(ks.AttributeName)
		case types.KeyTypeRange:
			desc.RangeKey = aws.ToString(ks.AttributeName)
		}
	}

	if table.ProvisionedThroughput != nil {
		desc.Throughput = Throughput{
			Read:  aws.ToInt64(table.ProvisionedThroughput.ReadCapacityUnits),
			Write: aws.ToInt64(table.ProvisionedThroughput.WriteCapacityUnits),
		}
	}
	if table.BillingModeSummary != nil {
		desc.OnDemand = table.BillingModeSummary.BillingMode == types.BillingModePayPerRequest
	}

	for _, idx := range table.GlobalSecondaryIndexes {
		desc.Indexes = append(desc.Indexes, aws.ToString(idx.IndexName))
		if idx.IndexStatus != "" && idx.IndexStatus != types.IndexStatusActive && desc.Status == ActiveStatus {
			// the table is usable but the index is still being built
			desc.Status = Status(idx.IndexStatus)
		}
	}
	for _, idx := range table.LocalSecondaryIndexes {
		desc.Indexes = append(desc.Indexes, aws.ToString(idx.IndexName))
	}

	if table.StreamSpecification != nil {
		desc.StreamEnabled = aws.ToBool(table.StreamSpecification.StreamEnabled)
		desc.StreamView = StreamView(table.StreamSpecification.StreamViewType)
	}
	return desc
}
