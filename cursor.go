package dynamodel

import (
	"context"
	"math"

	"go.uber.org/zap"
)

// page is one response of a paginated operation.
type page struct {
	items   []Item
	count   int32
	lastKey Item
}

// fetchFunc requests one page starting after startKey.
// limit is the store-side page limit, or 0 for none.
// When countOnly is set the page has a count but no items.
type fetchFunc func(ctx context.Context, startKey Item, limit int32, countOnly bool) (page, error)

// Cursor is a lazily paginated result set of a query or scan.
// It holds only the request parameters: every traversal (Iter, Records, All, Count)
// starts from the first page and issues its own requests.
type Cursor struct {
	model *Model
	op    string
	index string

	fetch fetchFunc
	// limit is the client-side cap on results across all pages.
	limit int
	// searchLimit is the per-page cap on evaluated items.
	searchLimit int32
	// filtered requests evaluate more items than they return,
	// so the remaining limit cannot be passed to the store.
	filtered bool
	startKey Item

	err error
}

// pageLimit returns the store-side limit for a request, given how many results are still wanted.
func (c *Cursor) pageLimit(remaining int) int32 {
	limit := c.searchLimit
	if remaining > math.MaxInt32 {
		remaining = math.MaxInt32
	}
	if c.limit > 0 && !c.filtered && (limit == 0 || int32(remaining) < limit) {
		limit = int32(remaining)
	}
	return limit
}

func (c *Cursor) logPage(n int, p page) {
	c.model.db.log.Debug("fetched page",
		zap.String("op", c.op),
		zap.String("table", c.model.Table()),
		zap.String("index", c.index),
		zap.Int("page", n),
		zap.Int("items", len(p.items)),
		zap.Int32("count", p.count),
		zap.Bool("more", p.lastKey != nil),
	)
}

// Iter starts a new traversal of the result set.
func (c *Cursor) Iter() *Iter {
	return &Iter{
		cursor:  c,
		lastKey: c.startKey,
		err:     c.err,
	}
}

// All returns every record of the result set, up to the limit.
func (c *Cursor) All(ctx context.Context) ([]*Record, error) {
	var recs []*Record
	iter := c.Iter()
	for iter.Next(ctx) {
		recs = append(recs, iter.Record())
	}
	return recs, iter.Err()
}

// Count returns the number of matching items, up to the limit, without fetching them.
func (c *Cursor) Count(ctx context.Context) (int64, error) {
	if c.err != nil {
		return 0, c.err
	}

	var total int64
	startKey := c.startKey
	for n := 1; ; n++ {
		p, err := c.fetch(ctx, startKey, c.pageLimit(c.limit-int(total)), true)
		if err != nil {
			return total, err
		}
		c.logPage(n, p)
		total += int64(p.count)
		if c.limit > 0 && total >= int64(c.limit) {
			return int64(c.limit), nil
		}
		if p.lastKey == nil {
			return total, nil
		}
		startKey = p.lastKey
	}
}

// Iter is one traversal of a Cursor. It requests pages only as Next needs them,
// so abandoning it midway issues no further requests.
type Iter struct {
	cursor *Cursor

	items   []Item
	idx     int
	pages   int
	yielded int
	lastKey Item
	done    bool

	rec *Record
	err error
}

// Next advances to the next record, fetching another page if needed.
// It returns false when the results are exhausted, the limit is reached, or an error occurs.
func (itr *Iter) Next(ctx context.Context) bool {
	c := itr.cursor
	if itr.err != nil {
		return false
	}
	if c.limit > 0 && itr.yielded >= c.limit {
		return false
	}

	for itr.idx >= len(itr.items) {
		// the first page has no continuation key unless the cursor starts from one,
		// every later page needs one
		if itr.done || (itr.pages > 0 && itr.lastKey == nil) {
			itr.done = true
			return false
		}
		p, err := c.fetch(ctx, itr.lastKey, c.pageLimit(c.limit-itr.yielded), false)
		if err != nil {
			itr.err = err
			return false
		}
		itr.pages++
		c.logPage(itr.pages, p)
		itr.items, itr.idx = p.items, 0
		itr.lastKey = p.lastKey
	}

	rec, err := c.model.Decode(itr.items[itr.idx])
	if err != nil {
		itr.err = err
		return false
	}
	itr.idx++
	itr.yielded++
	itr.rec = rec
	return true
}

// Record returns the current record.
func (itr *Iter) Record() *Record {
	return itr.rec
}

// Err returns the error encountered, if any.
// You should check this after Next is finished.
func (itr *Iter) Err() error {
	return itr.err
}

// LastEvaluatedKey returns a key that can be passed to StartFrom to continue
// after the last record returned by Next. It returns nil when there are no more results.
func (itr *Iter) LastEvaluatedKey() Item {
	if itr.idx < len(itr.items) && itr.idx > 0 {
		// stopped in the middle of a page
		return itr.cursor.keyOf(itr.items[itr.idx-1])
	}
	return itr.lastKey
}

// keyOf extracts the attributes of item making up a continuation key:
// the table key plus the key of the index being read, if any.
func (c *Cursor) keyOf(item Item) Item {
	s := c.model.schema
	names := []string{s.HashKey().Name, s.rangeKeyName()}
	for _, idx := range s.indexes {
		if idx.Name == c.index {
			names = append(names, idx.HashKey, idx.RangeKey)
		}
	}
	key := make(Item, len(names))
	for _, name := range names {
		if av, ok := item[name]; ok && name != "" {
			key[name] = av
		}
	}
	return key
}
