/*
Package dynamodel maps declared record schemas onto DynamoDB tables.

A Schema lists the fields of a table with their kinds, keys and defaults.
Records are plain maps of field names to Go values, validated against the
field kinds when they are written:

	var articles = dynamodel.MustSchema("articles", []dynamodel.Field{
		{Name: "author", Kind: dynamodel.StringKind, HashKey: true},
		{Name: "published_at", Kind: dynamodel.StringKind, RangeKey: true},
		{Name: "title", Kind: dynamodel.StringKind},
		{Name: "views", Kind: dynamodel.NumberKind, Default: 0},
		{Name: "tags", Kind: dynamodel.StringSetKind, Nullable: true},
	})

	db := dynamodel.New(cfg)
	model := db.Model(articles)
	err := model.Put(map[string]any{"author": "amy", "published_at": "2015-01-01", "title": "hello"}).Run(ctx)
	rec, err := model.Get("amy").Range("2015-01-01").One(ctx)

Queries and scans take Django-style conditions, where the suffix after the last
"__" is the operator:

	recs, err := model.Query(dynamodel.Conditions{"author__eq": "amy"}).
		Where(dynamodel.Conditions{"views__gt": 100}).
		All(ctx)

More complex filters can be built as expression trees with Eq, Gt, Contains, And, Or and Raw.

Results of queries and scans are paginated lazily by Cursor. Limit caps the number
of records across all pages, while SearchLimit caps the items evaluated per request.

BatchGet and BatchWrite accept any number of keys or operations and split them
into requests of 100 and 25, re-requesting whatever DynamoDB reports as unprocessed.

# Retrying

Requests that fail because of throttling are retried with exponential backoff
for up to DefaultRetryTimeout, unless the aws.Config has its own Retryer.
*/
package dynamodel
