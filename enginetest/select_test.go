package enginetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ppds-sql/queryengine/engine"
	"github.com/ppds-sql/queryengine/engine/ast"
	"github.com/ppds-sql/queryengine/engine/builder"
	"github.com/ppds-sql/queryengine/enginetest/fixture"
)

// identityGenerator maps a SelectSpec to its entity name, which is exactly
// the "query text" the fixture backend resolves tables by.
type identityGenerator struct{}

func (identityGenerator) Generate(statement interface{}) (engine.GeneratedQuery, error) {
	spec := statement.(*ast.SelectSpec)
	return engine.GeneratedQuery{QueryText: spec.From.Entity}, nil
}

func testBuilder() *builder.Builder {
	return &builder.Builder{
		Generator: identityGenerator{},
		Compiler:  fixture.Compiler{},
	}
}

func seedNames(backend *fixture.Backend, entity string, names ...string) {
	rows := make([]engine.Row, len(names))
	for i, n := range names {
		rows[i] = engine.NewRow(entity, []string{"name"}, []engine.Value{engine.String(n)})
	}
	backend.Seed(entity, rows)
}

func runStatement(t *testing.T, b *builder.Builder, ec *engine.ExecContext, stmt ast.Statement) []engine.Row {
	t.Helper()
	res, err := b.Build(stmt)
	require.NoError(t, err)
	rows, err := drain(t, ec, res.Root)
	require.NoError(t, err)
	return rows
}

func TestSelectEndToEnd(t *testing.T) {
	backend := fixture.NewBackend()
	seedNames(backend, "account", "Contoso", "Fabrikam")
	ec := newExecContext(t, backend)

	sel := &ast.Select{Query: &ast.SelectSpec{
		Columns: []ast.SelectColumn{{SourceColumn: "name", Alias: "name"}},
		From:    ast.FromClause{Entity: "account"},
	}}
	rows := runStatement(t, testBuilder(), ec, sel)

	require.Len(t, rows, 2)
	require.Equal(t, "Contoso", rows[0].MustGet("name").String())
	require.Equal(t, "Fabrikam", rows[1].MustGet("name").String())
}

func TestUnionEndToEndDeduplicates(t *testing.T) {
	backend := fixture.NewBackend()
	seedNames(backend, "account", "a", "b")
	seedNames(backend, "contact", "b", "c")
	ec := newExecContext(t, backend)

	branch := func(entity string) *ast.SelectSpec {
		return &ast.SelectSpec{
			Columns: []ast.SelectColumn{{SourceColumn: "name", Alias: "name"}},
			From:    ast.FromClause{Entity: entity},
		}
	}
	sel := &ast.Select{Query: &ast.BinaryQuery{
		Op:    ast.SetOpUnion,
		Left:  branch("account"),
		Right: branch("contact"),
	}}
	rows := runStatement(t, testBuilder(), ec, sel)

	got := make([]string, len(rows))
	for i, row := range rows {
		got[i] = row.MustGet("name").String()
	}
	require.Equal(t, []string{"a", "b", "c"}, got)
}

func TestOffsetFetchEndToEnd(t *testing.T) {
	backend := fixture.NewBackend()
	seedNames(backend, "account", "a", "b", "c", "d")
	ec := newExecContext(t, backend)

	offset, fetch := int64(1), int64(2)
	sel := &ast.Select{
		Query: &ast.SelectSpec{
			Columns: []ast.SelectColumn{{SourceColumn: "name", Alias: "name"}},
			From:    ast.FromClause{Entity: "account"},
		},
		Offset: &offset,
		Fetch:  &fetch,
	}
	rows := runStatement(t, testBuilder(), ec, sel)

	require.Len(t, rows, 2)
	require.Equal(t, "b", rows[0].MustGet("name").String())
	require.Equal(t, "c", rows[1].MustGet("name").String())
}

func TestFullOuterJoinEndToEnd(t *testing.T) {
	backend := fixture.NewBackend()
	// The fixture stands in for the back end's server-side LEFT OUTER
	// join: the "account" rows arrive already carrying the joined
	// contactid.
	backend.Seed("account", []engine.Row{
		engine.NewRow("account", []string{"name", "contactid"},
			[]engine.Value{engine.String("Contoso"), engine.String("c1")}),
	})
	backend.Seed("contact", []engine.Row{
		engine.NewRow("contact", []string{"contactid", "fullname"},
			[]engine.Value{engine.String("c1"), engine.String("Ada")}),
		engine.NewRow("contact", []string{"contactid", "fullname"},
			[]engine.Value{engine.String("c2"), engine.String("Grace")}),
	})
	ec := newExecContext(t, backend)

	sel := &ast.Select{Query: &ast.SelectSpec{
		Columns: []ast.SelectColumn{{Wildcard: true}},
		From: ast.FromClause{
			Entity: "account",
			Join: &ast.JoinClause{
				Entity:      "contact",
				FullOuter:   true,
				LeftKey:     "contactid",
				RightKey:    "contactid",
				LeftColumns: []string{"name"},
			},
		},
	}}
	rows := runStatement(t, testBuilder(), ec, sel)
	require.Len(t, rows, 2)

	var unmatched *engine.Row
	for i := range rows {
		if rows[i].MustGet("fullname").String() == "Grace" {
			unmatched = &rows[i]
		}
	}
	require.NotNil(t, unmatched, "unmatched right row missing from FULL OUTER result")
	require.True(t, unmatched.MustGet("name").IsNull())
}

func TestCursorScriptEndToEnd(t *testing.T) {
	backend := fixture.NewBackend()
	seedNames(backend, "account", "first", "second")
	ec := newExecContext(t, backend)
	b := testBuilder()

	query := &ast.Select{Query: &ast.SelectSpec{
		Columns: []ast.SelectColumn{{SourceColumn: "name", Alias: "name"}},
		From:    ast.FromClause{Entity: "account"},
	}}

	runStatement(t, b, ec, &ast.DeclareCursor{Name: "c", Query: query})
	runStatement(t, b, ec, &ast.OpenCursor{Name: "c"})
	runStatement(t, b, ec, &ast.FetchCursor{Name: "c", TargetVars: []string{"@name"}})

	v, ok := ec.Session.Variables.Lookup("@name")
	require.True(t, ok)
	require.Equal(t, "first", v.String())

	rows := runStatement(t, b, ec, &ast.FetchCursor{Name: "c"})
	require.Len(t, rows, 1)
	require.Equal(t, "second", rows[0].MustGet("name").String())

	runStatement(t, b, ec, &ast.CloseCursor{Name: "c"})
	runStatement(t, b, ec, &ast.DeallocateCursor{Name: "c"})

	res, err := b.Build(&ast.OpenCursor{Name: "c"})
	require.NoError(t, err)
	_, err = drain(t, ec, res.Root)
	require.True(t, engine.ErrCursorProtocol.Is(err))
}

func TestTempTableScriptEndToEnd(t *testing.T) {
	backend := fixture.NewBackend()
	seedNames(backend, "account", "kept")
	ec := newExecContext(t, backend)
	b := testBuilder()

	source := &ast.Select{Query: &ast.SelectSpec{
		Columns: []ast.SelectColumn{{SourceColumn: "name", Alias: "name"}},
		From:    ast.FromClause{Entity: "account"},
	}}
	runStatement(t, b, ec, &ast.CreateTempTable{Name: "#stash", Source: source})

	fromTemp := &ast.Select{Query: &ast.SelectSpec{
		Columns: []ast.SelectColumn{{Wildcard: true}},
		From:    ast.FromClause{Entity: "#stash"},
	}}
	rows := runStatement(t, b, ec, fromTemp)
	require.Len(t, rows, 1)
	require.Equal(t, "kept", rows[0].MustGet("name").String())
}

func TestSessionSharedAcrossStatements(t *testing.T) {
	backend := fixture.NewBackend()
	ec := newExecContext(t, backend)
	b := testBuilder()

	runStatement(t, b, ec, &ast.DeclareVariable{
		Name: "@x",
		Init: fixture.Literal{Value: engine.Int(41)},
	})
	runStatement(t, b, ec, &ast.Assign{
		Name:  "@x",
		Value: fixture.Literal{Value: engine.Int(42)},
	})

	v, ok := ec.Session.Variables.Lookup("@x")
	require.True(t, ok)
	n, _ := v.AsInt()
	require.EqualValues(t, 42, n)
}

func TestCancelledContextAbortsExecution(t *testing.T) {
	backend := fixture.NewBackend()
	seedNames(backend, "account", "a")

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	ec := engine.NewExecContext(cancelled, engine.NewSession())
	ec.QueryExecutor = backend
	ec.Compiler = fixture.Compiler{}

	sel := &ast.Select{Query: &ast.SelectSpec{
		Columns: []ast.SelectColumn{{Wildcard: true}},
		From:    ast.FromClause{Entity: "account"},
	}}
	res, err := testBuilder().Build(sel)
	require.NoError(t, err)
	_, err = drain(t, ec, res.Root)
	require.Error(t, err)
}
