package plan

import "github.com/ppds-sql/queryengine/engine"

// Merge's child is the source stream; the target entity is searched by
// ON-equality on a single column per side. At most one matched
// action and one not-matched action apply.
type Merge struct {
	Entity          string
	Source          engine.Node
	Target          engine.Node
	SourceKeyColumn string
	TargetKeyColumn string

	MatchedUpdate    []ColumnExpr // nil if WHEN MATCHED has no UPDATE action
	MatchedDelete    bool
	NotMatchedInsert []ColumnExpr // nil if WHEN NOT MATCHED has no INSERT action

	RowCap  int64
	Options engine.WriteOptions
}

func (n *Merge) Description() string     { return "Merge(" + n.Entity + ")" }
func (n *Merge) Children() []engine.Node { return []engine.Node{n.Source, n.Target} }
func (n *Merge) EstimatedRows() int64    { return n.Source.EstimatedRows() }

func (n *Merge) Execute(ctx *engine.ExecContext) (engine.RowIter, error) {
	targetIter, err := n.Target.Execute(ctx)
	if err != nil {
		return nil, err
	}
	targetRows, err := engine.StreamAll(ctx, targetIter)
	if err != nil {
		return nil, err
	}

	targetByKey := make(map[string]engine.Row, len(targetRows))
	for _, row := range targetRows {
		key, ok := row.Get(n.TargetKeyColumn)
		if ok && !key.IsNull() {
			targetByKey[key.StringKey()] = row
		}
	}

	sourceRows, err := pullCapped(ctx, n.Source, n.RowCap, "MERGE")
	if err != nil {
		return nil, err
	}

	var requests []engine.WriteRequest
	for _, srow := range sourceRows {
		skey, ok := srow.Get(n.SourceKeyColumn)
		if !ok || skey.IsNull() {
			return nil, engine.ErrMissingKey.New(n.Entity, n.SourceKeyColumn)
		}

		trow, matched := targetByKey[skey.StringKey()]
		switch {
		case matched && n.MatchedDelete:
			tkey, _ := trow.Get(n.TargetKeyColumn)
			requests = append(requests, engine.WriteRequest{
				Entity: n.Entity, Operation: engine.WriteDelete, ID: tkey,
			})
		case matched && n.MatchedUpdate != nil:
			attrs, err := evalColumns(srow, n.MatchedUpdate)
			if err != nil {
				return nil, err
			}
			tkey, _ := trow.Get(n.TargetKeyColumn)
			requests = append(requests, engine.WriteRequest{
				Entity: n.Entity, Operation: engine.WriteUpdate, ID: tkey, Attributes: attrs,
			})
		case !matched && n.NotMatchedInsert != nil:
			attrs, err := evalColumns(srow, n.NotMatchedInsert)
			if err != nil {
				return nil, err
			}
			requests = append(requests, engine.WriteRequest{
				Entity: n.Entity, Operation: engine.WriteCreate, Attributes: attrs,
			})
		}
	}

	affected, err := ctx.WriteExecutor.Execute(ctx, requests, n.Options)
	if err != nil {
		return nil, engine.ErrBackEnd.Wrap(err, err.Error())
	}
	return engine.NewSliceIter([]engine.Row{Summary("MERGE", n.Entity, affected)}), nil
}
