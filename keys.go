package dynamodel

// Keyed provides hash key and range key values.
type Keyed interface {
	HashKey() any
	RangeKey() any
}

// Keys provides an easy way to specify the hash and range keys.
//
//	model.BatchGet([]dynamodel.Keyed{dynamodel.Keys{1, "2015-10"}, dynamodel.Keys{42, "2015-12"}}...).
//		All(ctx)
type Keys [2]any

// HashKey returns the hash key's value.
func (k Keys) HashKey() any { return k[0] }

// RangeKey returns the range key's value.
func (k Keys) RangeKey() any { return k[1] }

// HashKey returns the value of the record's hash key.
func (r *Record) HashKey() any {
	return r.values[r.schema.HashKey().Name]
}

// RangeKey returns the value of the record's range key, or nil for tables without one.
func (r *Record) RangeKey() any {
	return r.values[r.schema.rangeKeyName()]
}

var _ Keyed = (*Record)(nil)
