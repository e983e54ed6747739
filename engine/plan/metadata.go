package plan

import "github.com/ppds-sql/queryengine/engine"

// MetadataScan queries an external metadata executor for a pseudo-entity
// (entity, attribute, relationship). Filter predicates apply
// client-side; the executor receives only the requested column list. Row
// count statistics count only rows that survive the filter.
type MetadataScan struct {
	PseudoEntity     string
	RequestedColumns []string
	Filter           engine.PredicateFunc // nil means no client-side filter
}

// NewMetadataScan builds a metadata scan over pseudoEntity.
func NewMetadataScan(pseudoEntity string, columns []string) *MetadataScan {
	return &MetadataScan{PseudoEntity: pseudoEntity, RequestedColumns: columns}
}

func (m *MetadataScan) Description() string     { return "MetadataScan(" + m.PseudoEntity + ")" }
func (m *MetadataScan) Children() []engine.Node { return nil }
func (m *MetadataScan) EstimatedRows() int64    { return -1 }

func (m *MetadataScan) Execute(ctx *engine.ExecContext) (engine.RowIter, error) {
	rows, err := ctx.MetadataExecutor.QueryMetadata(ctx, m.PseudoEntity, m.RequestedColumns)
	if err != nil {
		return nil, engine.ErrBackEnd.Wrap(err, err.Error())
	}

	if m.Filter == nil {
		ctx.Stats.AddRows(int64(len(rows)))
		return engine.NewSliceIter(rows), nil
	}

	kept := make([]engine.Row, 0, len(rows))
	for _, row := range rows {
		ok, err := m.Filter(row)
		if err != nil {
			return nil, err
		}
		if ok {
			kept = append(kept, row)
		}
	}
	ctx.Stats.AddRows(int64(len(kept)))
	return engine.NewSliceIter(kept), nil
}
