package plan

import "github.com/ppds-sql/queryengine/engine"

// FullOuterJoin completes a server-side join client-side.
// The back end evaluates the join server-side as a LEFT OUTER join
// (the legacy adapter downgraded FULL OUTER to LEFT); this operator
// restores FULL OUTER semantics by separately scanning the right side,
// tracking which right-side keys the left-joined stream matched, and
// emitting the unmatched right rows padded with nulls for the left
// columns.
type FullOuterJoin struct {
	LeftJoined  engine.Node // the server-side LEFT OUTER joined stream
	Right       engine.Node // an independent scan of the right entity
	RightKeyCol string      // column on LeftJoined rows holding the right-side key, null when unmatched
	RightIDCol  string      // column on Right rows holding that same key
	LeftColumns []string    // left-side column names, used to null-pad unmatched right rows
}

// NewFullOuterJoin builds a FULL OUTER completion over an already
// server-joined (LEFT OUTER) stream and an independent right-side scan.
func NewFullOuterJoin(leftJoined, right engine.Node, rightKeyCol, rightIDCol string, leftColumns []string) *FullOuterJoin {
	return &FullOuterJoin{
		LeftJoined:  leftJoined,
		Right:       right,
		RightKeyCol: rightKeyCol,
		RightIDCol:  rightIDCol,
		LeftColumns: leftColumns,
	}
}

func (f *FullOuterJoin) Description() string     { return "FullOuterJoin" }
func (f *FullOuterJoin) Children() []engine.Node { return []engine.Node{f.LeftJoined, f.Right} }
func (f *FullOuterJoin) EstimatedRows() int64    { return -1 }

func (f *FullOuterJoin) Execute(ctx *engine.ExecContext) (engine.RowIter, error) {
	leftIter, err := f.LeftJoined.Execute(ctx)
	if err != nil {
		return nil, err
	}
	leftRows, err := engine.StreamAll(ctx, leftIter)
	if err != nil {
		return nil, err
	}

	matched := map[string]struct{}{}
	for _, row := range leftRows {
		if key, ok := row.Get(f.RightKeyCol); ok && !key.IsNull() {
			matched[key.StringKey()] = struct{}{}
		}
	}

	rightIter, err := f.Right.Execute(ctx)
	if err != nil {
		return nil, err
	}
	rightRows, err := engine.StreamAll(ctx, rightIter)
	if err != nil {
		return nil, err
	}

	out := make([]engine.Row, 0, len(leftRows)+len(rightRows))
	out = append(out, leftRows...)
	for _, row := range rightRows {
		key, ok := row.Get(f.RightIDCol)
		if ok && !key.IsNull() {
			if _, seen := matched[key.StringKey()]; seen {
				continue
			}
		}
		padded := row
		for _, col := range f.LeftColumns {
			padded = padded.With(col, engine.Null())
		}
		out = append(out, padded)
	}
	return engine.NewSliceIter(out), nil
}
