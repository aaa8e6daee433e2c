package dynamodel

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Scan is a request to scan all the data in a table.
// See: http://docs.aws.amazon.com/amazondynamodb/latest/APIReference/API_Scan.html
type Scan struct {
	model *Model

	filterConds map[string]types.Condition
	filter      Expr

	index         string
	limit         int
	searchLimit   int32
	projection    []string
	consistent    bool
	startKey      Item
	segment       int32
	totalSegments int32

	err error
}

// Scan creates a new request to scan this model's table,
// keeping only the items matched by filterConds (which may be nil).
func (m *Model) Scan(filterConds Conditions) *Scan {
	s := &Scan{model: m}
	built, err := BuildConditions(filterConds, FullVocabulary)
	s.setError(err)
	s.filterConds = built
	return s
}

// Index specifies the name of the index that Scan will operate on.
func (s *Scan) Index(name string) *Scan {
	if !s.model.schema.hasIndex(name) {
		s.setError(fmt.Errorf("dynamodel: %s has no index %s", s.model.Table(), name))
	}
	s.index = name
	return s
}

// Where adds filter conditions. Multiple calls are combined.
func (s *Scan) Where(filterConds Conditions) *Scan {
	built, err := BuildConditions(filterConds, FullVocabulary)
	s.setError(err)
	s.filterConds = mergeConditions(s.filterConds, built)
	return s
}

// Filter narrows the results with an expression. Multiple calls are combined with And.
// Filter conditions are kept and must hold as well.
func (s *Scan) Filter(e Expr) *Scan {
	s.filter = andFilter(s.filter, e)
	return s
}

// Limit specifies the maximum number of records to return, across all pages.
func (s *Scan) Limit(limit int) *Scan {
	s.limit = limit
	return s
}

// SearchLimit specifies the maximum number of items evaluated by each page request,
// before filtering.
func (s *Scan) SearchLimit(limit int32) *Scan {
	s.searchLimit = limit
	return s
}

// Project limits the result attributes to the given names.
func (s *Scan) Project(names ...string) *Scan {
	s.projection = append(s.projection, names...)
	return s
}

// Consistent, if on is true, will make this scan use a strongly consistent read.
func (s *Scan) Consistent(on bool) *Scan {
	s.consistent = on
	return s
}

// Segment makes this a parallel scan reading only the given segment of totalSegments.
func (s *Scan) Segment(segment, totalSegments int32) *Scan {
	if segment < 0 || segment >= totalSegments {
		s.setError(fmt.Errorf("dynamodel: invalid scan segment %d of %d", segment, totalSegments))
	}
	s.segment, s.totalSegments = segment, totalSegments
	return s
}

// StartFrom makes this scan continue from a previous one.
// Use Iter.LastEvaluatedKey to get a continuation key.
func (s *Scan) StartFrom(key Item) *Scan {
	s.startKey = key
	return s
}

// Cursor returns the result set of this scan. Later changes to the scan do not affect it.
func (s *Scan) Cursor() *Cursor {
	c := &Cursor{
		model:       s.model,
		op:          "scan",
		index:       s.index,
		limit:       s.limit,
		searchLimit: s.searchLimit,
		filtered:    len(s.filterConds) > 0 || s.filter != nil,
		startKey:    s.startKey,
		err:         s.err,
	}
	if c.err != nil {
		return c
	}

	items, err := s.input(false)
	if err != nil {
		c.err = err
		return c
	}
	counts, err := s.input(true)
	if err != nil {
		c.err = err
		return c
	}

	db := s.model.db
	c.fetch = func(ctx context.Context, startKey Item, limit int32, countOnly bool) (page, error) {
		req := *items
		if countOnly {
			req = *counts
		}
		req.ExclusiveStartKey = startKey
		if limit > 0 {
			req.Limit = aws.Int32(limit)
		}

		var res *dynamodb.ScanOutput
		err := db.retry(ctx, func() error {
			var err error
			res, err = db.client.Scan(ctx, &req)
			return err
		})
		if err != nil {
			return page{}, err
		}
		return newPage(res.Items, res.Count, res.LastEvaluatedKey), nil
	}
	return c
}

// Iter starts reading the results of this scan.
func (s *Scan) Iter() *Iter {
	return s.Cursor().Iter()
}

// All returns every result of this scan, up to the limit.
func (s *Scan) All(ctx context.Context) ([]*Record, error) {
	return s.Cursor().All(ctx)
}

// Count returns the number of results of this scan, up to the limit, without fetching them.
func (s *Scan) Count(ctx context.Context) (int64, error) {
	return s.Cursor().Count(ctx)
}

func (s *Scan) input(countOnly bool) (*dynamodb.ScanInput, error) {
	input := &dynamodb.ScanInput{
		TableName:      &s.model.schema.table,
		ConsistentRead: aws.Bool(s.consistent),
	}
	if s.index != "" {
		input.IndexName = aws.String(s.index)
	}
	if s.totalSegments > 0 {
		input.Segment = aws.Int32(s.segment)
		input.TotalSegments = aws.Int32(s.totalSegments)
	}
	if countOnly {
		input.Select = types.SelectCount
	}

	if s.filter == nil {
		input.ScanFilter = s.filterConds
		if len(s.projection) > 0 && !countOnly {
			input.AttributesToGet = s.projection
		}
		return input, nil
	}

	ph := new(placeholders)
	filter, err := filterExpr(ph, s.filterConds, s.filter)
	if err != nil {
		return nil, err
	}
	input.FilterExpression = &filter
	if len(s.projection) > 0 && !countOnly {
		input.ProjectionExpression = aws.String(ph.projection(s.projection))
	}
	input.ExpressionAttributeNames = ph.names
	input.ExpressionAttributeValues = ph.values
	return input, nil
}

func (s *Scan) setError(err error) {
	if s.err == nil {
		s.err = err
	}
}
