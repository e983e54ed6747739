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

// Package driver exposes the engine as a stdlib database/sql driver.
// Query text still reaches an external parser/AST builder; this
// package's job is only to carry a database/sql caller's string queries
// and driver.Value arguments to that resolver, run the resulting plan
// through the engine, and translate rows/results back to database/sql
// shapes.
package driver

import (
	"context"
	"database/sql/driver"
	"sync"

	opentracing "github.com/opentracing/opentracing-go"
	"github.com/sirupsen/logrus"

	"github.com/ppds-sql/queryengine/engine"
	"github.com/ppds-sql/queryengine/engine/ast"
	"github.com/ppds-sql/queryengine/engine/builder"
)

// StatementResolver turns query text and bound parameters into a
// statement tree. The driver treats it as opaque, the same way the engine
// treats the expression compiler and FetchXML generator as opaque.
type StatementResolver interface {
	Resolve(queryText string, params map[string]engine.Value) (ast.Statement, error)
}

// Collaborators bundles everything a Driver needs to build and execute
// plans: the statement resolver, the plan builder, a session factory, and
// the execution-time back-end handles every engine.ExecContext carries.
// Tracer and Log are optional; a nil value falls back to
// engine.NewExecContext's defaults (a no-op tracer, a logrus entry tagged
// "engine").
type Collaborators struct {
	Resolver   StatementResolver
	Builder    *builder.Builder
	NewSession func() *engine.Session

	QueryExecutor    engine.QueryExecutor
	MetadataExecutor engine.MetadataExecutor
	TDSExecutor      engine.TDSExecutor
	MessageExecutor  engine.MessageExecutor
	WriteExecutor    engine.WriteExecutor
	Compiler         engine.ExpressionCompiler

	Tracer opentracing.Tracer
	Log    *logrus.Entry
}

// Driver exposes an engine as a stdlib SQL driver.
type Driver struct {
	collab Collaborators

	procs ProcessManager
}

// New returns a driver over the given collaborators.
func New(collab Collaborators) *Driver {
	return &Driver{collab: collab, procs: &SimpleProcessManager{}}
}

// Open returns a new connection to the database. The dsn is accepted but
// unused: all per-execution back-end wiring lives in Collaborators, set up
// once at process start rather than parsed out of a connection string.
func (d *Driver) Open(dsn string) (driver.Conn, error) {
	connector, err := d.OpenConnector(dsn)
	if err != nil {
		return nil, err
	}
	return connector.Connect(context.Background())
}

// OpenConnector returns a Connector that can mint any number of equivalent
// Conns.
func (d *Driver) OpenConnector(dsn string) (driver.Connector, error) {
	return &Connector{driver: d}, nil
}

func (d *Driver) nextConnectionID() uint32 {
	return d.procs.NextConnectionID()
}

// Connector represents a driver in a fixed configuration and can create
// any number of equivalent Conns for use by multiple goroutines.
type Connector struct {
	driver *Driver

	mu sync.Mutex
}

// Driver returns the owning driver.
func (c *Connector) Driver() driver.Driver { return c.driver }

// Connect returns a new connection to the database.
func (c *Connector) Connect(context.Context) (driver.Conn, error) {
	id := c.driver.nextConnectionID()
	session := c.driver.collab.NewSession()
	return &Conn{
		id:      id,
		driver:  c.driver,
		session: session,
	}, nil
}
