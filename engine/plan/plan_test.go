package plan

import (
	"context"
	"testing"

	"github.com/ppds-sql/queryengine/engine"
)

// Shared test doubles for the operator tests in this package.

// fixedNode streams a fixed row slice.
type fixedNode struct{ rows []engine.Row }

func rowsOf(rows ...engine.Row) *fixedNode { return &fixedNode{rows: rows} }

func (n *fixedNode) Description() string     { return "fixed" }
func (n *fixedNode) Children() []engine.Node { return nil }
func (n *fixedNode) EstimatedRows() int64    { return int64(len(n.rows)) }
func (n *fixedNode) Execute(ctx *engine.ExecContext) (engine.RowIter, error) {
	return engine.NewSliceIter(n.rows), nil
}

// failingNode yields its rows, then fails with err instead of EOF.
type failingNode struct {
	rows []engine.Row
	err  error
}

func (n *failingNode) Description() string     { return "failing" }
func (n *failingNode) Children() []engine.Node { return nil }
func (n *failingNode) EstimatedRows() int64    { return -1 }
func (n *failingNode) Execute(ctx *engine.ExecContext) (engine.RowIter, error) {
	return &failingIter{rows: n.rows, err: n.err}, nil
}

type failingIter struct {
	rows []engine.Row
	pos  int
	err  error
}

func (it *failingIter) Next(ctx *engine.ExecContext) (engine.Row, error) {
	if it.pos < len(it.rows) {
		row := it.rows[it.pos]
		it.pos++
		return row, nil
	}
	return engine.Row{}, it.err
}

func (it *failingIter) Close(ctx *engine.ExecContext) error { return nil }

// pagedExec is a QueryExecutor scripted with a fixed page sequence,
// ignoring query text.
type pagedExec struct {
	pages []engine.QueryResult
	calls int
}

func (e *pagedExec) ExecuteQuery(ctx context.Context, queryText string, pageSize int, pagingCookie string, includeCount bool) (engine.QueryResult, error) {
	if e.calls >= len(e.pages) {
		return engine.QueryResult{}, nil
	}
	page := e.pages[e.calls]
	e.calls++
	return page, nil
}

func testCtx(t *testing.T) *engine.ExecContext {
	t.Helper()
	return engine.NewExecContext(context.Background(), engine.NewSession())
}

func drainNode(t *testing.T, ctx *engine.ExecContext, node engine.Node) []engine.Row {
	t.Helper()
	iter, err := node.Execute(ctx)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	rows, err := engine.StreamAll(ctx, iter)
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	return rows
}

func intRow(names []string, vals ...int64) engine.Row {
	values := make([]engine.Value, len(vals))
	for i, v := range vals {
		values[i] = engine.Int(v)
	}
	return engine.NewRow("", names, values)
}
