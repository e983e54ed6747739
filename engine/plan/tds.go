package plan

import "github.com/ppds-sql/queryengine/engine"

// TDSPassthrough sends the original SQL text to a SQL-speaking back-end
// endpoint and streams its rows directly, bypassing FetchXML, when hints
// and the compatibility predicate allow it. A nil TDSExecutor
// on the ExecContext fails at execution: the Builder is expected to have
// checked availability before routing here, but the node still fails
// loudly rather than silently falling back.
type TDSPassthrough struct {
	SQLText string
}

// NewTDSPassthrough builds a TDS passthrough leaf over sqlText.
func NewTDSPassthrough(sqlText string) *TDSPassthrough { return &TDSPassthrough{SQLText: sqlText} }

func (t *TDSPassthrough) Description() string     { return "TDSPassthrough" }
func (t *TDSPassthrough) Children() []engine.Node { return nil }
func (t *TDSPassthrough) EstimatedRows() int64    { return -1 }

func (t *TDSPassthrough) Execute(ctx *engine.ExecContext) (engine.RowIter, error) {
	if ctx.TDSExecutor == nil {
		return nil, engine.ErrUnsupportedStatement.New("TDS passthrough requested but no TDS executor is configured")
	}
	rows, err := ctx.TDSExecutor.ExecuteSQL(ctx, t.SQLText)
	if err != nil {
		return nil, engine.ErrBackEnd.Wrap(err, err.Error())
	}
	ctx.Stats.AddRows(int64(len(rows)))
	return engine.NewSliceIter(rows), nil
}
