package driver_test

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	sqledriver "github.com/ppds-sql/queryengine/driver"
	"github.com/ppds-sql/queryengine/engine"
	"github.com/ppds-sql/queryengine/engine/ast"
	"github.com/ppds-sql/queryengine/engine/builder"
	"github.com/ppds-sql/queryengine/enginetest/fixture"
)

// literalResolver always resolves to a fixed statement, ignoring queryText
// and params, enough to exercise the driver's plumbing end to end without
// a real external parser.
type literalResolver struct {
	stmt ast.Statement
}

func (r literalResolver) Resolve(queryText string, params map[string]engine.Value) (ast.Statement, error) {
	return r.stmt, nil
}

type identityGenerator struct{}

func (identityGenerator) Generate(statement interface{}) (engine.GeneratedQuery, error) {
	spec := statement.(*ast.SelectSpec)
	return engine.GeneratedQuery{QueryText: spec.From.Entity}, nil
}

func TestDriverSelectRoundTrip(t *testing.T) {
	backend := fixture.NewBackend()
	backend.Seed("contact", []engine.Row{
		engine.NewRow("contact", []string{"name", "email"},
			[]engine.Value{engine.String("Ada Lovelace"), engine.String("ada@example.com")}),
	})

	stmt := &ast.Select{
		Query: &ast.SelectSpec{
			Columns: []ast.SelectColumn{
				{SourceColumn: "name", Alias: "name"},
				{SourceColumn: "email", Alias: "email"},
			},
			From: ast.FromClause{Entity: "contact"},
		},
	}

	drv := sqledriver.New(sqledriver.Collaborators{
		Resolver: literalResolver{stmt: stmt},
		Builder: &builder.Builder{
			Generator: identityGenerator{},
			Compiler:  fixture.Compiler{},
		},
		NewSession:    engine.NewSession,
		QueryExecutor: backend,
	})

	sql.Register("ppds-test-select", drv)
	db, err := sql.Open("ppds-test-select", "")
	require.NoError(t, err)
	defer db.Close()

	rows, err := db.Query("SELECT name, email FROM contact")
	require.NoError(t, err)
	defer rows.Close()

	var name, email string
	require.True(t, rows.Next())
	require.NoError(t, rows.Scan(&name, &email))
	require.Equal(t, "Ada Lovelace", name)
	require.Equal(t, "ada@example.com", email)
	require.False(t, rows.Next())
}

func TestDriverInsertRoundTrip(t *testing.T) {
	backend := fixture.NewBackend()

	stmt := &ast.Insert{
		Entity: "contact",
		LiteralRows: [][]ast.ColumnAssign{
			{{Column: "name", Value: fixture.Literal{Value: engine.String("Grace Hopper")}}},
		},
	}

	drv := sqledriver.New(sqledriver.Collaborators{
		Resolver: literalResolver{stmt: stmt},
		Builder: &builder.Builder{
			Generator: identityGenerator{},
			Compiler:  fixture.Compiler{},
		},
		NewSession:    engine.NewSession,
		WriteExecutor: backend,
	})

	sql.Register("ppds-test-insert", drv)
	db, err := sql.Open("ppds-test-insert", "")
	require.NoError(t, err)
	defer db.Close()

	result, err := db.Exec("INSERT INTO contact (name) VALUES ('Grace Hopper')")
	require.NoError(t, err)
	affected, err := result.RowsAffected()
	require.NoError(t, err)
	require.EqualValues(t, 1, affected)

	writes := backend.Writes()
	require.Len(t, writes, 1)
	require.Equal(t, "contact", writes[0].Entity)
}
