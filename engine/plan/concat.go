package plan

import "github.com/ppds-sql/queryengine/engine"

// Concatenate sequentially drains each input in list order.
// Requires >= 2 inputs and preserves duplicates.
type Concatenate struct {
	Inputs []engine.Node
}

// NewConcatenate builds a concatenation over inputs, in list order.
func NewConcatenate(inputs []engine.Node) *Concatenate {
	return &Concatenate{Inputs: inputs}
}

func (c *Concatenate) Description() string     { return "Concatenate" }
func (c *Concatenate) Children() []engine.Node { return c.Inputs }
func (c *Concatenate) EstimatedRows() int64 {
	total := int64(0)
	for _, in := range c.Inputs {
		r := in.EstimatedRows()
		if r < 0 {
			return -1
		}
		total += r
	}
	return total
}

func (c *Concatenate) Execute(ctx *engine.ExecContext) (engine.RowIter, error) {
	if len(c.Inputs) < 2 {
		return nil, engine.ErrUnsupportedStatement.New("concatenate requires at least 2 inputs")
	}
	return &concatIter{inputs: c.Inputs, idx: 0}, nil
}

type concatIter struct {
	inputs  []engine.Node
	idx     int
	current engine.RowIter
}

func (it *concatIter) Next(ctx *engine.ExecContext) (engine.Row, error) {
	for {
		if err := ctx.Err(); err != nil {
			return engine.Row{}, err
		}
		if it.current == nil {
			if it.idx >= len(it.inputs) {
				return engine.Row{}, engine.EOF
			}
			iter, err := it.inputs[it.idx].Execute(ctx)
			if err != nil {
				return engine.Row{}, err
			}
			it.current = iter
		}
		row, err := it.current.Next(ctx)
		if err == engine.EOF {
			it.current.Close(ctx)
			it.current = nil
			it.idx++
			continue
		}
		if err != nil {
			return engine.Row{}, err
		}
		return row, nil
	}
}

func (it *concatIter) Close(ctx *engine.ExecContext) error {
	if it.current != nil {
		return it.current.Close(ctx)
	}
	return nil
}
