package plan

import "github.com/ppds-sql/queryengine/engine"

// InsertValues is the child-less insert operator: compiled scalar
// expressions per column per literal row. The row cap applies
// to the literal rows.
type InsertValues struct {
	Entity  string
	Rows    [][]ColumnExpr
	RowCap  int64
	Options engine.WriteOptions
}

func (n *InsertValues) Description() string     { return "InsertValues(" + n.Entity + ")" }
func (n *InsertValues) Children() []engine.Node { return nil }
func (n *InsertValues) EstimatedRows() int64    { return 1 }

func (n *InsertValues) Execute(ctx *engine.ExecContext) (engine.RowIter, error) {
	if n.RowCap > 0 && int64(len(n.Rows)) > n.RowCap {
		return nil, engine.ErrRowCapExceeded.New("INSERT", n.RowCap)
	}

	requests := make([]engine.WriteRequest, len(n.Rows))
	for i, row := range n.Rows {
		attrs, err := evalColumns(engine.Row{}, row)
		if err != nil {
			return nil, err
		}
		requests[i] = engine.WriteRequest{Entity: n.Entity, Operation: engine.WriteCreate, Attributes: attrs}
	}

	affected, err := ctx.WriteExecutor.Execute(ctx, requests, n.Options)
	if err != nil {
		return nil, engine.ErrBackEnd.Wrap(err, err.Error())
	}
	return engine.NewSliceIter([]engine.Row{Summary("INSERT", n.Entity, affected)}), nil
}

// InsertSelect's child is a SELECT plan; output columns map positionally
// to the declared target columns.
type InsertSelect struct {
	Entity        string
	Source        engine.Node
	TargetColumns []string
	RowCap        int64
	Options       engine.WriteOptions
}

func (n *InsertSelect) Description() string     { return "InsertSelect(" + n.Entity + ")" }
func (n *InsertSelect) Children() []engine.Node { return []engine.Node{n.Source} }
func (n *InsertSelect) EstimatedRows() int64    { return n.Source.EstimatedRows() }

func (n *InsertSelect) Execute(ctx *engine.ExecContext) (engine.RowIter, error) {
	rows, err := pullCapped(ctx, n.Source, n.RowCap, "INSERT")
	if err != nil {
		return nil, err
	}

	requests := make([]engine.WriteRequest, len(rows))
	for i, row := range rows {
		attrs := make(map[string]engine.Value, len(n.TargetColumns))
		for col, val := range zipPositional(n.TargetColumns, row) {
			attrs[col] = val
		}
		requests[i] = engine.WriteRequest{Entity: n.Entity, Operation: engine.WriteCreate, Attributes: attrs}
	}

	affected, err := ctx.WriteExecutor.Execute(ctx, requests, n.Options)
	if err != nil {
		return nil, engine.ErrBackEnd.Wrap(err, err.Error())
	}
	return engine.NewSliceIter([]engine.Row{Summary("INSERT", n.Entity, affected)}), nil
}

// zipPositional maps the child row's values positionally onto
// targetColumns.
func zipPositional(targetColumns []string, row engine.Row) map[string]engine.Value {
	out := make(map[string]engine.Value, len(targetColumns))
	for i, col := range targetColumns {
		if i < row.Len() {
			out[col] = row.At(i)
		} else {
			out[col] = engine.Null()
		}
	}
	return out
}
