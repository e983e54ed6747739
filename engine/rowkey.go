package engine

import "github.com/mitchellh/hashstructure"

// RowKey is the stable stringification hash key used by Distinct, Intersect,
// Except, and merge-aggregate's GROUP BY regrouping. Nulls
// of any kind hash equal to each other; values of different Kind never
// collide because StringKey prefixes the Kind tag.
func RowKey(v []Value) (uint64, error) {
	parts := make([]string, len(v))
	for i, val := range v {
		parts[i] = val.StringKey()
	}
	// hashstructure gives a stable hash over the ordered string vector,
	// rather than hand-rolled concatenation.
	return hashstructure.Hash(parts, nil)
}

// GroupKey builds the hash key for a GROUP BY column projection.
func GroupKey(r Row, columns []string) (uint64, error) {
	vals := make([]Value, len(columns))
	for i, c := range columns {
		vals[i] = r.MustGet(c)
	}
	return RowKey(vals)
}
