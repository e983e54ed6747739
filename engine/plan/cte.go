package plan

import "github.com/ppds-sql/queryengine/engine"

// cteCache is shared by every CTEScan referencing the same WITH-clause
// entry: the defining query runs once, on whichever reference executes
// first, and every other reference just replays the cached rows.
type cteCache struct {
	done bool
	rows []engine.Row
}

// CTEScan is one reference to a non-recursive CTE. The Builder constructs
// one shared *cteCache per WITH-clause entry and hands every reference a
// CTEScan pointing at it.
type CTEScan struct {
	Name   string
	Define engine.Node
	cache  *cteCache
}

// NewCTE builds the defining node's shared cache and the first CTEScan
// referencing it; the Builder clones additional CTEScan values (same name,
// same Define, same cache pointer) for further references.
func NewCTE(name string, define engine.Node) *CTEScan {
	return &CTEScan{Name: name, Define: define, cache: &cteCache{}}
}

// Ref returns another scan over the same shared cache, for a second
// reference to the same CTE within one statement.
func (c *CTEScan) Ref() *CTEScan {
	return &CTEScan{Name: c.Name, Define: c.Define, cache: c.cache}
}

func (c *CTEScan) Description() string     { return "CTEScan(" + c.Name + ")" }
func (c *CTEScan) Children() []engine.Node { return nil }
func (c *CTEScan) EstimatedRows() int64    { return -1 }

func (c *CTEScan) Execute(ctx *engine.ExecContext) (engine.RowIter, error) {
	if !c.cache.done {
		iter, err := c.Define.Execute(ctx)
		if err != nil {
			return nil, err
		}
		rows, err := engine.StreamAll(ctx, iter)
		if err != nil {
			return nil, err
		}
		c.cache.rows = rows
		c.cache.done = true
	}
	return engine.NewSliceIter(c.cache.rows), nil
}
