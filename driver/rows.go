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
	"database/sql/driver"

	"github.com/ppds-sql/queryengine/engine"
)

// Rows is an iterator over an executed query's results, wrapping an
// engine.RowIter rather than a materialized slice so a SELECT's prefetch
// buffer keeps draining lazily as database/sql pulls rows.
type Rows struct {
	ctx     *engine.ExecContext
	columns []string
	iter    engine.RowIter
}

// Columns returns the names of the columns.
func (r *Rows) Columns() []string {
	return r.columns
}

// Close closes the rows iterator.
func (r *Rows) Close() error {
	return r.iter.Close(r.ctx)
}

// Next populates dest with the next row's values, or returns io.EOF
// (engine.EOF) when the stream is exhausted.
func (r *Rows) Next(dest []driver.Value) error {
	row, err := r.iter.Next(r.ctx)
	if err != nil {
		return err
	}
	for i, name := range r.columns {
		dest[i] = driverValue(row.MustGet(name))
	}
	return nil
}
