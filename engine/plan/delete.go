package plan

import "github.com/ppds-sql/queryengine/engine"

// Delete's child is a synthetic SELECT of only the target entity's primary
// key column.
type Delete struct {
	Entity    string
	Source    engine.Node
	KeyColumn string
	RowCap    int64
	Options   engine.WriteOptions
}

func (n *Delete) Description() string     { return "Delete(" + n.Entity + ")" }
func (n *Delete) Children() []engine.Node { return []engine.Node{n.Source} }
func (n *Delete) EstimatedRows() int64    { return n.Source.EstimatedRows() }

func (n *Delete) Execute(ctx *engine.ExecContext) (engine.RowIter, error) {
	rows, err := pullCapped(ctx, n.Source, n.RowCap, "DELETE")
	if err != nil {
		return nil, err
	}

	requests := make([]engine.WriteRequest, 0, len(rows))
	for _, row := range rows {
		key, ok := row.Get(n.KeyColumn)
		if !ok || key.IsNull() {
			return nil, engine.ErrMissingKey.New(n.Entity, n.KeyColumn)
		}
		requests = append(requests, engine.WriteRequest{
			Entity:    n.Entity,
			Operation: engine.WriteDelete,
			ID:        key,
		})
	}

	affected, err := ctx.WriteExecutor.Execute(ctx, requests, n.Options)
	if err != nil {
		return nil, engine.ErrBackEnd.Wrap(err, err.Error())
	}
	return engine.NewSliceIter([]engine.Row{Summary("DELETE", n.Entity, affected)}), nil
}
