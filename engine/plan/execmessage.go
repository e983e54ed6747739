package plan

import "github.com/ppds-sql/queryengine/engine"

// ExecuteMessage invokes a named back-end message with compiled parameter
// expressions and exposes the response as a single output row keyed by the
// response's parameter names.
type ExecuteMessage struct {
	Name   string
	Params []ColumnExpr
}

func (n *ExecuteMessage) Description() string     { return "ExecuteMessage(" + n.Name + ")" }
func (n *ExecuteMessage) Children() []engine.Node { return nil }
func (n *ExecuteMessage) EstimatedRows() int64    { return 1 }

func (n *ExecuteMessage) Execute(ctx *engine.ExecContext) (engine.RowIter, error) {
	if ctx.MessageExecutor == nil {
		return nil, engine.ErrUnsupportedStatement.New("EXECUTE " + n.Name + " (no message executor configured)")
	}
	params, err := evalColumns(engine.Row{}, n.Params)
	if err != nil {
		return nil, err
	}
	result, err := ctx.MessageExecutor.ExecuteMessage(ctx, n.Name, params)
	if err != nil {
		return nil, engine.ErrBackEnd.Wrap(err, err.Error())
	}
	names := make([]string, 0, len(result))
	values := make([]engine.Value, 0, len(result))
	for k, v := range result {
		names = append(names, k)
		values = append(values, v)
	}
	return engine.NewSliceIter([]engine.Row{engine.NewRow("", names, values)}), nil
}
