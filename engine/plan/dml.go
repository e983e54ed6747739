package plan

import "github.com/ppds-sql/queryengine/engine"

// Summary is the single result row every DML operator emits:
// {operation, entity, rows_affected}.
func Summary(operation, entity string, rowsAffected int64) engine.Row {
	return engine.NewRow("", []string{"operation", "entity", "rows_affected"},
		[]engine.Value{engine.String(operation), engine.String(entity), engine.Int(rowsAffected)})
}

// ColumnExpr computes one DML column's write value from a source row via
// an opaque scalar callable (used by insert-values literal rows and by
// update's SET expressions).
type ColumnExpr struct {
	Column string
	Value  engine.ScalarFunc
}

func evalColumns(row engine.Row, exprs []ColumnExpr) (map[string]engine.Value, error) {
	out := make(map[string]engine.Value, len(exprs))
	for _, e := range exprs {
		v, err := e.Value(row)
		if err != nil {
			return nil, err
		}
		out[e.Column] = v
	}
	return out, nil
}

// pullCapped drains source up to cap rows; if cap is reached before the
// source is exhausted, it fails with row-cap-exceeded before any write is
// attempted: no write happens until the cap is known to be respected.
func pullCapped(ctx *engine.ExecContext, source engine.Node, cap int64, opName string) ([]engine.Row, error) {
	iter, err := source.Execute(ctx)
	if err != nil {
		return nil, err
	}
	defer iter.Close(ctx)

	var rows []engine.Row
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := iter.Next(ctx)
		if err == engine.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}
		if cap > 0 && int64(len(rows)) >= cap {
			return nil, engine.ErrRowCapExceeded.New(opName, cap)
		}
		rows = append(rows, row)
	}
}
