// Copyright 2020-2021 Dolthub, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"

	sqledriver "github.com/ppds-sql/queryengine/driver"
	"github.com/ppds-sql/queryengine/engine"
	"github.com/ppds-sql/queryengine/engine/ast"
	"github.com/ppds-sql/queryengine/engine/builder"
)

// memoryQueryExecutor answers every ExecuteQuery call with a fixed set of
// rows, standing in for the FetchXML-speaking back end a real deployment
// wires in.
type memoryQueryExecutor struct {
	rows []engine.Row
}

func (m memoryQueryExecutor) ExecuteQuery(ctx context.Context, queryText string, pageSize int, pagingCookie string, includeCount bool) (engine.QueryResult, error) {
	return engine.QueryResult{Records: m.rows}, nil
}

// passthroughGenerator treats the opaque statement as already being
// query text, skipping FetchXML translation entirely; a real deployment
// plugs in the actual AST-to-FetchXML generator here.
type passthroughGenerator struct{}

func (passthroughGenerator) Generate(statement interface{}) (engine.GeneratedQuery, error) {
	return engine.GeneratedQuery{QueryText: fmt.Sprintf("%v", statement)}, nil
}

// singleSelectResolver resolves any query text to the same fixed SELECT
// shape, enough to exercise the driver end to end in this example.
type singleSelectResolver struct{}

func (singleSelectResolver) Resolve(queryText string, params map[string]engine.Value) (ast.Statement, error) {
	return &ast.Select{
		Query: &ast.SelectSpec{
			Columns: []ast.SelectColumn{
				{SourceColumn: "name", Alias: "name"},
				{SourceColumn: "email", Alias: "email"},
			},
			From: ast.FromClause{Entity: "contact"},
		},
		RawSQL: queryText,
	}, nil
}

func collaborators() sqledriver.Collaborators {
	rows := []engine.Row{
		engine.NewRow("contact", []string{"name", "email"},
			[]engine.Value{engine.String("John Doe"), engine.String("john@doe.com")}),
		engine.NewRow("contact", []string{"name", "email"},
			[]engine.Value{engine.String("Jane Doe"), engine.String("jane@doe.com")}),
	}

	b := &builder.Builder{
		Generator: passthroughGenerator{},
		Compiler:  nil, // no WHERE/SET expressions in this example
	}

	return sqledriver.Collaborators{
		Resolver:      singleSelectResolver{},
		Builder:       b,
		NewSession:    engine.NewSession,
		QueryExecutor: memoryQueryExecutor{rows: rows},
	}
}
