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

package driver

import (
	"context"
	"database/sql/driver"

	"github.com/ppds-sql/queryengine/engine"
)

// Stmt is a prepared statement: just the query text, since resolving and
// building the plan happens fresh on every Exec/Query. The parser/AST
// builder is an external, per-call boundary; there is no reusable
// compiled-plan cache at this layer.
type Stmt struct {
	conn      *Conn
	queryText string
}

// Close does nothing; Stmt carries no resources of its own.
func (s *Stmt) Close() error {
	return nil
}

// NumInput reports that the driver doesn't know its placeholder count
// up front: the resolver discovers bound names while parsing queryText.
func (s *Stmt) NumInput() int {
	return -1
}

// Exec executes a query that doesn't return rows, such as an INSERT,
// UPDATE, DELETE, or MERGE.
func (s *Stmt) Exec(args []driver.Value) (driver.Result, error) {
	params, err := valuesToParams(args)
	if err != nil {
		return nil, err
	}
	return s.exec(context.Background(), params)
}

// Query executes a query that may return rows, such as a SELECT.
func (s *Stmt) Query(args []driver.Value) (driver.Rows, error) {
	params, err := valuesToParams(args)
	if err != nil {
		return nil, err
	}
	return s.query(context.Background(), params)
}

// ExecContext executes a query that doesn't return rows, honoring ctx
// cancellation through to the engine's per-operator ctx.Err() checks.
func (s *Stmt) ExecContext(ctx context.Context, args []driver.NamedValue) (driver.Result, error) {
	params, err := namedValuesToParams(args)
	if err != nil {
		return nil, err
	}
	return s.exec(ctx, params)
}

// QueryContext executes a query that may return rows.
func (s *Stmt) QueryContext(ctx context.Context, args []driver.NamedValue) (driver.Rows, error) {
	params, err := namedValuesToParams(args)
	if err != nil {
		return nil, err
	}
	return s.query(ctx, params)
}

func (s *Stmt) buildRoot(params map[string]engine.Value) (engine.Node, error) {
	stmt, err := s.conn.driver.collab.Resolver.Resolve(s.queryText, params)
	if err != nil {
		return nil, err
	}
	result, err := s.conn.driver.collab.Builder.Build(stmt)
	if err != nil {
		return nil, err
	}
	return result.Root, nil
}

func (s *Stmt) exec(ctx context.Context, params map[string]engine.Value) (driver.Result, error) {
	root, err := s.buildRoot(params)
	if err != nil {
		return nil, err
	}
	ec := s.conn.newExecContext(ctx)
	iter, err := root.Execute(ec)
	if err != nil {
		return nil, err
	}
	rows, err := engine.StreamAll(ec, iter)
	if err != nil {
		return nil, err
	}
	var affected int64
	if len(rows) == 1 {
		if v, ok := rows[0].Get("rows_affected"); ok {
			affected, _ = v.AsInt()
		}
	}
	return &Result{rowsAffected: affected}, nil
}

func (s *Stmt) query(ctx context.Context, params map[string]engine.Value) (driver.Rows, error) {
	root, err := s.buildRoot(params)
	if err != nil {
		return nil, err
	}
	ec := s.conn.newExecContext(ctx)
	iter, err := root.Execute(ec)
	if err != nil {
		return nil, err
	}

	// Peek the first row to discover column names: Row carries its own
	// schema, there is no separate column-list type in this engine.
	first, ferr := iter.Next(ec)
	var buffered []engine.Row
	var columns []string
	switch {
	case ferr == engine.EOF:
		// no rows; columns unknowable
	case ferr != nil:
		iter.Close(ec)
		return nil, ferr
	default:
		buffered = append(buffered, first)
		columns = first.Names()
	}

	return &Rows{ctx: ec, columns: columns, iter: &prependIter{buffered: buffered, rest: iter}}, nil
}

// prependIter replays buffered rows (the peeked first row) before falling
// through to the underlying iterator.
type prependIter struct {
	buffered []engine.Row
	pos      int
	rest     engine.RowIter
}

func (p *prependIter) Next(ctx *engine.ExecContext) (engine.Row, error) {
	if p.pos < len(p.buffered) {
		row := p.buffered[p.pos]
		p.pos++
		return row, nil
	}
	return p.rest.Next(ctx)
}

func (p *prependIter) Close(ctx *engine.ExecContext) error {
	return p.rest.Close(ctx)
}
