package engine

import "strings"

// Row is an ordered mapping from attribute name to Value, plus the logical
// name of the originating entity. Attribute lookup is case-insensitive.
// Rows are immutable once yielded: operators that augment a row build a new
// Row that shares the unchanged Values rather than mutating in place.
type Row struct {
	Entity  string
	names   []string
	lowered []string
	values  []Value
}

// NewRow builds a Row from parallel name/value slices. The slices are
// copied defensively so later mutation by the caller can't leak through.
func NewRow(entity string, names []string, values []Value) Row {
	n := make([]string, len(names))
	lowered := make([]string, len(names))
	v := make([]Value, len(values))
	copy(n, names)
	copy(v, values)
	for i, name := range n {
		lowered[i] = strings.ToLower(name)
	}
	return Row{Entity: entity, names: n, lowered: lowered, values: v}
}

// Len returns the number of attributes on the row.
func (r Row) Len() int { return len(r.names) }

// Names returns the attribute names in their declared order.
func (r Row) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// At returns the value at a positional index.
func (r Row) At(i int) Value { return r.values[i] }

// Get performs a case-insensitive attribute lookup.
func (r Row) Get(name string) (Value, bool) {
	lower := strings.ToLower(name)
	for i, n := range r.lowered {
		if n == lower {
			return r.values[i], true
		}
	}
	return Value{}, false
}

// MustGet returns the value for name, or Null if the attribute is absent.
// Projection uses this: a missing source column yields null.
func (r Row) MustGet(name string) Value {
	v, ok := r.Get(name)
	if !ok {
		return Null()
	}
	return v
}

// With returns a new Row with name set to value, appending if name is not
// already present (case-insensitively) or replacing the existing slot.
func (r Row) With(name string, value Value) Row {
	lower := strings.ToLower(name)
	for i, n := range r.lowered {
		if n == lower {
			names := append([]string(nil), r.names...)
			lowered := append([]string(nil), r.lowered...)
			values := append([]Value(nil), r.values...)
			values[i] = value
			return Row{Entity: r.Entity, names: names, lowered: lowered, values: values}
		}
	}
	names := append(append([]string(nil), r.names...), name)
	lowered := append(append([]string(nil), r.lowered...), lower)
	values := append(append([]Value(nil), r.values...), value)
	return Row{Entity: r.Entity, names: names, lowered: lowered, values: values}
}

// Project builds a new Row containing only the requested attribute names,
// in the requested order; missing attributes become null.
func (r Row) Project(names []string) Row {
	values := make([]Value, len(names))
	for i, n := range names {
		values[i] = r.MustGet(n)
	}
	return NewRow(r.Entity, names, values)
}

// Vector returns the row's values in declared order, used by the
// hash-key builders for Distinct/Intersect/Except/merge-aggregate grouping.
func (r Row) Vector() []Value {
	out := make([]Value, len(r.values))
	copy(out, r.values)
	return out
}
