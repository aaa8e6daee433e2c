package dynamodel

import (
	"context"
)

type dbKey struct{}

// NewContext returns a copy of ctx carrying db, so request handlers can
// reach their models without a package-level DB.
func NewContext(ctx context.Context, db *DB) context.Context {
	return context.WithValue(ctx, dbKey{}, db)
}

// FromContext returns the DB carried by ctx, or nil.
func FromContext(ctx context.Context) *DB {
	db, _ := ctx.Value(dbKey{}).(*DB)
	return db
}

// ModelFromContext binds schema to the DB carried by ctx.
// It returns false if ctx has no DB.
func ModelFromContext(ctx context.Context, schema *Schema) (*Model, bool) {
	db := FromContext(ctx)
	if db == nil {
		return nil, false
	}
	return db.Model(schema), true
}
