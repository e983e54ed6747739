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

import "errors"

// Result wraps a DML operator's Summary row (plan.Summary: operation,
// entity, rows_affected). The engine has no auto-increment identity
// concept — every write is keyed by a caller-supplied or back-end-assigned
// GUID — so LastInsertId is always unsupported.
type Result struct {
	rowsAffected int64
}

// LastInsertId always fails: the engine's primary keys are GUIDs assigned
// by the back end, not an auto-increment counter.
func (r *Result) LastInsertId() (int64, error) {
	return 0, errors.New("LastInsertId is not supported: entity keys are GUIDs, not auto-increment")
}

// RowsAffected returns the DML summary row's rows_affected count.
func (r *Result) RowsAffected() (int64, error) {
	return r.rowsAffected, nil
}
