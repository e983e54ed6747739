package plan

import "github.com/ppds-sql/queryengine/engine"

// TempTableScan reads a previously materialized temp table from the
// session by name (referenced in FROM by the
// conventional "#name" local-temp-table naming). The lookup happens at
// execution time, since the table may have been created by an earlier
// statement in the same script against the same session.
type TempTableScan struct {
	Name string
}

func (t *TempTableScan) Description() string     { return "TempTableScan(" + t.Name + ")" }
func (t *TempTableScan) Children() []engine.Node { return nil }
func (t *TempTableScan) EstimatedRows() int64    { return -1 }

func (t *TempTableScan) Execute(ctx *engine.ExecContext) (engine.RowIter, error) {
	if ctx.Session == nil {
		return nil, engine.ErrMissingSession.New()
	}
	rows, ok := ctx.Session.TempTables.Get(t.Name)
	if !ok {
		return nil, engine.ErrUnsupportedStatement.New("temp table " + t.Name + " does not exist")
	}
	return engine.NewSliceIter(rows), nil
}

// CreateTempTable materializes Source's rows into the session's temp-table
// store under Name, replacing any earlier table of the same name.
type CreateTempTable struct {
	Name   string
	Source engine.Node
}

func (s CreateTempTable) Execute(ctx *engine.ExecContext) ([]engine.Row, error) {
	if ctx.Session == nil {
		return nil, engine.ErrMissingSession.New()
	}
	iter, err := s.Source.Execute(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := engine.StreamAll(ctx, iter)
	if err != nil {
		return nil, err
	}
	ctx.Session.TempTables.Create(s.Name, rows)
	return nil, nil
}

// DropTempTable removes Name from the session's temp-table store.
type DropTempTable struct {
	Name string
}

func (s DropTempTable) Execute(ctx *engine.ExecContext) ([]engine.Row, error) {
	if ctx.Session == nil {
		return nil, engine.ErrMissingSession.New()
	}
	ctx.Session.TempTables.Drop(s.Name)
	return nil, nil
}
