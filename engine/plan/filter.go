package plan

import "github.com/ppds-sql/queryengine/engine"

// Filter applies a compiled boolean predicate to each row. The
// predicate is opaque: it is supplied either by the expression compiler
// directly or bridged from a legacy AST form, but the client filter never
// inspects which.
type Filter struct {
	Source    engine.Node
	Predicate engine.PredicateFunc
}

// NewFilter wraps source, keeping only rows for which predicate is true.
func NewFilter(source engine.Node, predicate engine.PredicateFunc) *Filter {
	return &Filter{Source: source, Predicate: predicate}
}

func (f *Filter) Description() string     { return "Filter" }
func (f *Filter) Children() []engine.Node { return []engine.Node{f.Source} }
func (f *Filter) EstimatedRows() int64    { return -1 }

func (f *Filter) Execute(ctx *engine.ExecContext) (engine.RowIter, error) {
	iter, err := f.Source.Execute(ctx)
	if err != nil {
		return nil, err
	}
	return &filterIter{source: iter, predicate: f.Predicate}, nil
}

type filterIter struct {
	source    engine.RowIter
	predicate engine.PredicateFunc
}

func (it *filterIter) Next(ctx *engine.ExecContext) (engine.Row, error) {
	for {
		if err := ctx.Err(); err != nil {
			return engine.Row{}, err
		}
		row, err := it.source.Next(ctx)
		if err != nil {
			return engine.Row{}, err
		}
		ok, err := it.predicate(row)
		if err != nil {
			return engine.Row{}, err
		}
		if ok {
			return row, nil
		}
	}
}

func (it *filterIter) Close(ctx *engine.ExecContext) error { return it.source.Close(ctx) }
