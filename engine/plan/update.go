package plan

import "github.com/ppds-sql/queryengine/engine"

// Update's child is a synthetic SELECT of the target entity's primary key
// column plus every column referenced in the SET expressions.
// Each SET expression is evaluated once per child row and the resulting
// payload is keyed by primary key.
type Update struct {
	Entity    string
	Source    engine.Node
	KeyColumn string
	Sets      []ColumnExpr
	RowCap    int64
	Options   engine.WriteOptions
}

func (n *Update) Description() string     { return "Update(" + n.Entity + ")" }
func (n *Update) Children() []engine.Node { return []engine.Node{n.Source} }
func (n *Update) EstimatedRows() int64    { return n.Source.EstimatedRows() }

func (n *Update) Execute(ctx *engine.ExecContext) (engine.RowIter, error) {
	rows, err := pullCapped(ctx, n.Source, n.RowCap, "UPDATE")
	if err != nil {
		return nil, err
	}

	requests := make([]engine.WriteRequest, 0, len(rows))
	for _, row := range rows {
		key, ok := row.Get(n.KeyColumn)
		if !ok || key.IsNull() {
			return nil, engine.ErrMissingKey.New(n.Entity, n.KeyColumn)
		}
		attrs, err := evalColumns(row, n.Sets)
		if err != nil {
			return nil, err
		}
		requests = append(requests, engine.WriteRequest{
			Entity:     n.Entity,
			Operation:  engine.WriteUpdate,
			ID:         key,
			Attributes: attrs,
		})
	}

	affected, err := ctx.WriteExecutor.Execute(ctx, requests, n.Options)
	if err != nil {
		return nil, engine.ErrBackEnd.Wrap(err, err.Error())
	}
	return engine.NewSliceIter([]engine.Row{Summary("UPDATE", n.Entity, affected)}), nil
}
