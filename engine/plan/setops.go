package plan

import "github.com/ppds-sql/queryengine/engine"

// setOpKind distinguishes Intersect from Except; both are two-input
// hash-set operators with identity based on the same row-value vector as
// Distinct.
type setOpKind int

const (
	setOpIntersect setOpKind = iota
	setOpExcept
)

type setOp struct {
	Left, Right engine.Node
	kind        setOpKind
}

// NewIntersect returns rows present in both left and right.
func NewIntersect(left, right engine.Node) engine.Node {
	return &setOp{Left: left, Right: right, kind: setOpIntersect}
}

// NewExcept returns rows present in left but not in right.
func NewExcept(left, right engine.Node) engine.Node {
	return &setOp{Left: left, Right: right, kind: setOpExcept}
}

func (s *setOp) Description() string {
	if s.kind == setOpIntersect {
		return "Intersect"
	}
	return "Except"
}
func (s *setOp) Children() []engine.Node { return []engine.Node{s.Left, s.Right} }
func (s *setOp) EstimatedRows() int64    { return -1 }

func (s *setOp) Execute(ctx *engine.ExecContext) (engine.RowIter, error) {
	rightIter, err := s.Right.Execute(ctx)
	if err != nil {
		return nil, err
	}
	rightRows, err := engine.StreamAll(ctx, rightIter)
	if err != nil {
		return nil, err
	}
	rightKeys := map[uint64]struct{}{}
	for _, row := range rightRows {
		key, err := engine.RowKey(row.Vector())
		if err != nil {
			return nil, err
		}
		rightKeys[key] = struct{}{}
	}

	leftIter, err := s.Left.Execute(ctx)
	if err != nil {
		return nil, err
	}
	return &setOpIter{source: leftIter, rightKeys: rightKeys, kind: s.kind, seen: map[uint64]struct{}{}}, nil
}

type setOpIter struct {
	source    engine.RowIter
	rightKeys map[uint64]struct{}
	kind      setOpKind
	seen      map[uint64]struct{}
}

func (it *setOpIter) Next(ctx *engine.ExecContext) (engine.Row, error) {
	for {
		if err := ctx.Err(); err != nil {
			return engine.Row{}, err
		}
		row, err := it.source.Next(ctx)
		if err != nil {
			return engine.Row{}, err
		}
		key, err := engine.RowKey(row.Vector())
		if err != nil {
			return engine.Row{}, err
		}
		if _, dup := it.seen[key]; dup {
			continue
		}
		_, inRight := it.rightKeys[key]
		keep := inRight
		if it.kind == setOpExcept {
			keep = !inRight
		}
		if !keep {
			continue
		}
		it.seen[key] = struct{}{}
		return row, nil
	}
}

func (it *setOpIter) Close(ctx *engine.ExecContext) error { return it.source.Close(ctx) }
