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

// Conn is a connection to the engine. One Conn owns one engine.Session
// exclusively, so statements prepared and run on the same Conn see each
// other's variables, cursors, impersonation, and temp tables.
type Conn struct {
	id      uint32
	driver  *Driver
	session *engine.Session
}

// Prepare validates nothing up front — the statement resolver only runs
// when the statement is executed — and returns a handle carrying the
// query text.
func (c *Conn) Prepare(query string) (driver.Stmt, error) {
	return &Stmt{conn: c, queryText: query}, nil
}

// Close does nothing; the session is released with the Conn.
func (c *Conn) Close() error {
	return nil
}

// Begin returns a fake transaction: the engine has no transaction
// concept of its own.
func (c *Conn) Begin() (driver.Tx, error) {
	return fakeTransaction{}, nil
}

func (c *Conn) newExecContext(ctx context.Context) *engine.ExecContext {
	collab := c.driver.collab
	ec := engine.NewExecContext(ctx, c.session)
	ec.QueryExecutor = collab.QueryExecutor
	ec.MetadataExecutor = collab.MetadataExecutor
	ec.TDSExecutor = collab.TDSExecutor
	ec.MessageExecutor = collab.MessageExecutor
	ec.WriteExecutor = collab.WriteExecutor
	ec.Compiler = collab.Compiler
	if collab.Tracer != nil {
		ec.Tracer = collab.Tracer
	}
	if collab.Log != nil {
		ec.Log = collab.Log
	}
	return ec
}

type fakeTransaction struct{}

func (fakeTransaction) Commit() error   { return nil }
func (fakeTransaction) Rollback() error { return nil }
