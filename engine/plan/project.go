package plan

import "github.com/ppds-sql/queryengine/engine"

// ProjectColumn declares one output column: either a pass-through of a
// source attribute, a rename of a source attribute, or a value computed by
// a row→value callable. Missing source columns yield null.
type ProjectColumn struct {
	Output       string
	SourceColumn string            // pass-through / rename; "" if Compute is set
	Compute      engine.ScalarFunc // computed column; nil if SourceColumn is set
}

// Project restricts rows to a list of output columns.
type Project struct {
	Source  engine.Node
	Columns []ProjectColumn
}

// NewProject builds a projection over source.
func NewProject(source engine.Node, columns []ProjectColumn) *Project {
	return &Project{Source: source, Columns: columns}
}

func (p *Project) Description() string     { return "Project" }
func (p *Project) Children() []engine.Node { return []engine.Node{p.Source} }
func (p *Project) EstimatedRows() int64    { return p.Source.EstimatedRows() }

func (p *Project) Execute(ctx *engine.ExecContext) (engine.RowIter, error) {
	iter, err := p.Source.Execute(ctx)
	if err != nil {
		return nil, err
	}
	return &projectIter{source: iter, columns: p.Columns}, nil
}

type projectIter struct {
	source  engine.RowIter
	columns []ProjectColumn
}

func (it *projectIter) Next(ctx *engine.ExecContext) (engine.Row, error) {
	row, err := it.source.Next(ctx)
	if err != nil {
		return engine.Row{}, err
	}

	names := make([]string, len(it.columns))
	values := make([]engine.Value, len(it.columns))
	for i, col := range it.columns {
		names[i] = col.Output
		if col.Compute != nil {
			v, err := col.Compute(row)
			if err != nil {
				return engine.Row{}, err
			}
			values[i] = v
			continue
		}
		values[i] = row.MustGet(col.SourceColumn)
	}
	return engine.NewRow(row.Entity, names, values), nil
}

func (it *projectIter) Close(ctx *engine.ExecContext) error { return it.source.Close(ctx) }
