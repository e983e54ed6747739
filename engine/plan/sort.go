package plan

import (
	"sort"

	"github.com/ppds-sql/queryengine/engine"
)

// Sort is the client-side ORDER BY completion operator: it materializes its
// entire input and yields it back in order.
// Used when ORDER BY references columns or expressions the back end can't
// sort server-side.
type Sort struct {
	Source  engine.Node
	OrderBy []OrderKey
}

// NewSort builds a client-sort operator over source.
func NewSort(source engine.Node, orderBy []OrderKey) *Sort {
	return &Sort{Source: source, OrderBy: orderBy}
}

func (s *Sort) Description() string     { return "Sort" }
func (s *Sort) Children() []engine.Node { return []engine.Node{s.Source} }
func (s *Sort) EstimatedRows() int64    { return s.Source.EstimatedRows() }

func (s *Sort) Execute(ctx *engine.ExecContext) (engine.RowIter, error) {
	iter, err := s.Source.Execute(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := engine.StreamAll(ctx, iter)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(rows, func(a, b int) bool {
		for _, key := range s.OrderBy {
			va, vb := rows[a].MustGet(key.Column), rows[b].MustGet(key.Column)
			cmp := compareValues(va, vb)
			if cmp == 0 {
				continue
			}
			if key.Desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
	return engine.NewSliceIter(rows), nil
}
