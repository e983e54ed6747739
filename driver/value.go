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
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/ppds-sql/queryengine/engine"
)

// ErrUnsupportedType is returned when a query argument of an unsupported
// type is passed to a statement.
var ErrUnsupportedType = fmt.Errorf("unsupported type")

// engineValue converts a database/sql driver.Value bind argument into an
// engine.Value. The driver never invents type coercion rules of its own;
// it just hands the typed value to the resolver/compiler.
func engineValue(v driver.Value) (engine.Value, error) {
	switch val := v.(type) {
	case nil:
		return engine.Null(), nil
	case int64:
		return engine.Int(val), nil
	case float64:
		return engine.Decimal(new(big.Rat).SetFloat64(val)), nil
	case bool:
		return engine.Bool(val), nil
	case []byte:
		return engine.Binary(val), nil
	case string:
		return engine.String(val), nil
	case time.Time:
		return engine.Timestamp(val), nil
	default:
		return engine.Value{}, fmt.Errorf("%w: %T", ErrUnsupportedType, v)
	}
}

// valuesToParams builds the positional "0", "1", ... parameter map
// Resolve expects for the ordinal-placeholder calling convention
// (Stmt.Exec/Query).
func valuesToParams(vals []driver.Value) (map[string]engine.Value, error) {
	if len(vals) == 0 {
		return nil, nil
	}
	out := make(map[string]engine.Value, len(vals))
	for i, v := range vals {
		ev, err := engineValue(v)
		if err != nil {
			return nil, err
		}
		out[strconv.Itoa(i)] = ev
	}
	return out, nil
}

// namedValuesToParams builds the parameter map for the context-aware
// calling convention (Stmt.ExecContext/QueryContext), preferring the
// caller's bind name and falling back to a positional "v<ordinal>" name.
func namedValuesToParams(namedVals []driver.NamedValue) (map[string]engine.Value, error) {
	if len(namedVals) == 0 {
		return nil, nil
	}
	out := make(map[string]engine.Value, len(namedVals))
	for _, nv := range namedVals {
		name := nv.Name
		if name == "" {
			name = "v" + strconv.Itoa(nv.Ordinal)
		}
		ev, err := engineValue(nv.Value)
		if err != nil {
			return nil, err
		}
		out[name] = ev
	}
	return out, nil
}

// driverValue converts an engine.Value back into a database/sql
// driver.Value: Decimal converts to float64, so precision beyond float64
// is lost; GUID and Ref render as their textual form since database/sql
// has no native UUID type.
func driverValue(v engine.Value) driver.Value {
	switch v.Kind() {
	case engine.KindNull:
		return nil
	case engine.KindBool:
		b, _ := v.AsBool()
		return b
	case engine.KindInt:
		i, _ := v.AsInt()
		return i
	case engine.KindDecimal:
		d, _ := v.AsDecimal()
		f, _ := d.Float64()
		return f
	case engine.KindString:
		s, _ := v.AsString()
		return s
	case engine.KindTimestamp:
		t, _ := v.AsTimestamp()
		return t
	case engine.KindBinary:
		b, _ := v.AsBinary()
		return b
	case engine.KindGUID, engine.KindRef:
		return v.String()
	default:
		return nil
	}
}
