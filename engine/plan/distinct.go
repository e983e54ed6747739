package plan

import "github.com/ppds-sql/queryengine/engine"

// Distinct streams rows, emitting the first occurrence of each row-value
// vector. Uses the stable hashstructure-backed stringification
// (engine.RowKey) for the hash key; nulls compare equal to each other.
type Distinct struct {
	Source engine.Node
}

// NewDistinct wraps source, suppressing duplicate rows.
func NewDistinct(source engine.Node) *Distinct { return &Distinct{Source: source} }

func (d *Distinct) Description() string     { return "Distinct" }
func (d *Distinct) Children() []engine.Node { return []engine.Node{d.Source} }
func (d *Distinct) EstimatedRows() int64    { return d.Source.EstimatedRows() }

func (d *Distinct) Execute(ctx *engine.ExecContext) (engine.RowIter, error) {
	iter, err := d.Source.Execute(ctx)
	if err != nil {
		return nil, err
	}
	return &distinctIter{source: iter, seen: map[uint64]struct{}{}}, nil
}

type distinctIter struct {
	source engine.RowIter
	seen   map[uint64]struct{}
}

func (it *distinctIter) Next(ctx *engine.ExecContext) (engine.Row, error) {
	for {
		if err := ctx.Err(); err != nil {
			return engine.Row{}, err
		}
		row, err := it.source.Next(ctx)
		if err != nil {
			return engine.Row{}, err
		}
		key, err := engine.RowKey(row.Vector())
		if err != nil {
			return engine.Row{}, err
		}
		if _, ok := it.seen[key]; ok {
			continue
		}
		it.seen[key] = struct{}{}
		return row, nil
	}
}

func (it *distinctIter) Close(ctx *engine.ExecContext) error { return it.source.Close(ctx) }
