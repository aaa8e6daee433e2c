package dynamodel

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Order is used for specifying the order of results.
type Order bool

// Orders for sorting results.
const (
	Ascending  Order = true  // ScanIndexForward = true
	Descending Order = false // ScanIndexForward = false
)

// Query is a request to read the items sharing a hash key, optionally narrowed by range key.
// See: http://docs.aws.amazon.com/amazondynamodb/latest/APIReference/API_Query.html
type Query struct {
	model *Model

	keyConds    map[string]types.Condition
	filterConds map[string]types.Condition
	filter      Expr

	index       string
	order       Order
	limit       int
	searchLimit int32
	projection  []string
	consistent  bool
	startKey    Item

	err error
}

// Query creates a new request reading the items matched by keyConds,
// which may only use the operators of KeyVocabulary:
//
//	model.Query(dynamodel.Conditions{"user_id__eq": 42, "date__beginswith": "2015-"})
func (m *Model) Query(keyConds Conditions) *Query {
	q := &Query{
		model: m,
		order: Ascending,
	}
	built, err := BuildConditions(keyConds, KeyVocabulary)
	q.setError(err)
	if err == nil && len(built) == 0 {
		q.setError(fmt.Errorf("dynamodel: %s: query needs at least one key condition", m.Table()))
	}
	q.keyConds = built
	return q
}

// Index specifies the name of the index that this query will operate on.
func (q *Query) Index(name string) *Query {
	if !q.model.schema.hasIndex(name) {
		q.setError(fmt.Errorf("dynamodel: %s has no index %s", q.model.Table(), name))
	}
	q.index = name
	return q
}

// Where narrows the results with filter conditions, which may use every operator of FullVocabulary.
// Multiple calls are combined.
func (q *Query) Where(filterConds Conditions) *Query {
	built, err := BuildConditions(filterConds, FullVocabulary)
	q.setError(err)
	q.filterConds = mergeConditions(q.filterConds, built)
	return q
}

// Filter narrows the results with an expression. Multiple calls are combined with And.
// Filter conditions from Where are kept and must hold as well.
func (q *Query) Filter(e Expr) *Query {
	q.filter = andFilter(q.filter, e)
	return q
}

// Order specifies the desired result order.
// Requires a range key (a.k.a. sort key) to be specified.
func (q *Query) Order(order Order) *Query {
	q.order = order
	return q
}

// Limit specifies the maximum number of records to return, across all pages.
func (q *Query) Limit(limit int) *Query {
	q.limit = limit
	return q
}

// SearchLimit specifies the maximum number of items evaluated by each page request,
// before filtering.
func (q *Query) SearchLimit(limit int32) *Query {
	q.searchLimit = limit
	return q
}

// Project limits the result attributes to the given names.
func (q *Query) Project(names ...string) *Query {
	q.projection = append(q.projection, names...)
	return q
}

// Consistent, if on is true, will make this query strongly consistent.
func (q *Query) Consistent(on bool) *Query {
	q.consistent = on
	return q
}

// StartFrom makes this query continue from a previous one.
// Use Iter.LastEvaluatedKey to get a continuation key.
func (q *Query) StartFrom(key Item) *Query {
	q.startKey = key
	return q
}

// Cursor returns the result set of this query. Later changes to the query do not affect it.
func (q *Query) Cursor() *Cursor {
	c := &Cursor{
		model:       q.model,
		op:          "query",
		index:       q.index,
		limit:       q.limit,
		searchLimit: q.searchLimit,
		filtered:    len(q.filterConds) > 0 || q.filter != nil,
		startKey:    q.startKey,
		err:         q.err,
	}
	if c.err != nil {
		return c
	}

	items, err := q.input(false)
	if err != nil {
		c.err = err
		return c
	}
	counts, err := q.input(true)
	if err != nil {
		c.err = err
		return c
	}

	db := q.model.db
	c.fetch = func(ctx context.Context, startKey Item, limit int32, countOnly bool) (page, error) {
		req := *items
		if countOnly {
			req = *counts
		}
		req.ExclusiveStartKey = startKey
		if limit > 0 {
			req.Limit = aws.Int32(limit)
		}

		var res *dynamodb.QueryOutput
		err := db.retry(ctx, func() error {
			var err error
			res, err = db.client.Query(ctx, &req)
			return err
		})
		if err != nil {
			return page{}, err
		}
		return newPage(res.Items, res.Count, res.LastEvaluatedKey), nil
	}
	return c
}

// Iter starts reading the results of this query.
func (q *Query) Iter() *Iter {
	return q.Cursor().Iter()
}

// All returns every result of this query, up to the limit.
func (q *Query) All(ctx context.Context) ([]*Record, error) {
	return q.Cursor().All(ctx)
}

// Count returns the number of results of this query, up to the limit, without fetching them.
func (q *Query) Count(ctx context.Context) (int64, error) {
	return q.Cursor().Count(ctx)
}

func (q *Query) input(countOnly bool) (*dynamodb.QueryInput, error) {
	input := &dynamodb.QueryInput{
		TableName:        &q.model.schema.table,
		ConsistentRead:   aws.Bool(q.consistent),
		ScanIndexForward: aws.Bool(bool(q.order)),
	}
	if q.index != "" {
		input.IndexName = aws.String(q.index)
	}
	if countOnly {
		input.Select = types.SelectCount
	}

	// DynamoDB refuses requests mixing legacy conditions and expressions,
	// so once there is an expression filter everything is rendered as expressions.
	if q.filter == nil {
		input.KeyConditions = q.keyConds
		input.QueryFilter = q.filterConds
		if len(q.projection) > 0 && !countOnly {
			input.AttributesToGet = q.projection
		}
		return input, nil
	}

	ph := new(placeholders)
	keyExprs, err := conditionExpr(ph, q.keyConds)
	if err != nil {
		return nil, err
	}
	input.KeyConditionExpression = aws.String(strings.Join(keyExprs, " AND "))
	filter, err := filterExpr(ph, q.filterConds, q.filter)
	if err != nil {
		return nil, err
	}
	input.FilterExpression = &filter
	if len(q.projection) > 0 && !countOnly {
		input.ProjectionExpression = aws.String(ph.projection(q.projection))
	}
	input.ExpressionAttributeNames = ph.names
	input.ExpressionAttributeValues = ph.values
	return input, nil
}

func (q *Query) setError(err error) {
	if q.err == nil {
		q.err = err
	}
}

// filterExpr renders filter conditions and an expression as one filter expression.
func filterExpr(ph *placeholders, conds map[string]types.Condition, e Expr) (string, error) {
	parts, err := conditionExpr(ph, conds)
	if err != nil {
		return "", err
	}
	text, err := e.build(ph)
	if err != nil {
		return "", err
	}
	return strings.Join(append(parts, text), " AND "), nil
}

func andFilter(prev, next Expr) Expr {
	if prev == nil {
		return next
	}
	return And(prev, next)
}

func mergeConditions(dst, src map[string]types.Condition) map[string]types.Condition {
	if len(src) == 0 {
		return dst
	}
	if dst == nil {
		dst = make(map[string]types.Condition, len(src))
	}
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func newPage(items []Item, count int32, lastKey Item) page {
	p := page{items: items, count: count}
	if len(lastKey) > 0 {
		p.lastKey = lastKey
	}
	return p
}
