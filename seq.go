package dynamodel

import (
	"context"
	"iter"
)

// Records returns a record iterator compatible with Go 1.23 `for ... range` loops.
// Each call starts a new traversal. Breaking out of the loop stops further requests.
// An error ends the sequence and is yielded with a nil record.
func (c *Cursor) Records(ctx context.Context) iter.Seq2[*Record, error] {
	return func(yield func(*Record, error) bool) {
		itr := c.Iter()
		for itr.Next(ctx) {
			if !yield(itr.Record(), nil) {
				return
			}
		}
		if err := itr.Err(); err != nil {
			yield(nil, err)
		}
	}
}

// Records iterates over the results of this query. See Cursor.Records.
func (q *Query) Records(ctx context.Context) iter.Seq2[*Record, error] {
	return q.Cursor().Records(ctx)
}

// Records iterates over the results of this scan. See Cursor.Records.
func (s *Scan) Records(ctx context.Context) iter.Seq2[*Record, error] {
	return s.Cursor().Records(ctx)
}
