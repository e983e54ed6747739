package builder

import (
	"github.com/ppds-sql/queryengine/engine"
	"github.com/ppds-sql/queryengine/engine/ast"
	"github.com/ppds-sql/queryengine/engine/hints"
	"github.com/ppds-sql/queryengine/engine/plan"
)

// writeOptions resolves batch strategy and write options from hints and
// profile defaults.
func (b *Builder) writeOptions(h hints.Set) engine.WriteOptions {
	p := b.profile()
	opts := engine.WriteOptions{
		BatchSize:     p.BatchSize,
		BypassPlugins: p.BypassPlugins,
		BypassFlows:   p.BypassFlows,
		NoLock:        p.NoLock,
	}
	if h.BatchSize != nil {
		opts.BatchSize = *h.BatchSize
	}
	if h.BypassPlugins {
		opts.BypassPlugins = true
	}
	if h.BypassFlows {
		opts.BypassFlows = true
	}
	if h.NoLock {
		opts.NoLock = true
	}
	return opts
}

func (b *Builder) rowCap(h hints.Set) int64 {
	if h.MaxRows != nil {
		return int64(*h.MaxRows)
	}
	return b.profile().DMLRowCap
}

func (b *Builder) compileColumnExprs(assigns []ast.ColumnAssign) ([]plan.ColumnExpr, error) {
	out := make([]plan.ColumnExpr, len(assigns))
	for i, a := range assigns {
		fn, err := b.Compiler.CompileScalar(a.Value)
		if err != nil {
			return nil, err
		}
		out[i] = plan.ColumnExpr{Column: a.Column, Value: fn}
	}
	return out, nil
}

func (b *Builder) buildInsert(s *ast.Insert) (*Result, error) {
	rawSQL := ""
	if s.Source != nil {
		rawSQL = s.Source.RawSQL
	}
	h := hints.Parse(ast.OptionsClause{}, rawSQL)
	options := b.writeOptions(h)
	cap := b.rowCap(h)

	if s.Source != nil {
		src, err := b.buildSelect(s.Source)
		if err != nil {
			return nil, err
		}
		root := &plan.InsertSelect{
			Entity:        s.Entity,
			Source:        src.Root,
			TargetColumns: s.TargetColumns,
			RowCap:        cap,
			Options:       options,
		}
		return &Result{Root: root, Entity: s.Entity}, nil
	}

	rows := make([][]plan.ColumnExpr, len(s.LiteralRows))
	for i, row := range s.LiteralRows {
		exprs, err := b.compileColumnExprs(row)
		if err != nil {
			return nil, err
		}
		rows[i] = exprs
	}
	root := &plan.InsertValues{Entity: s.Entity, Rows: rows, RowCap: cap, Options: options}
	return &Result{Root: root, Entity: s.Entity}, nil
}

// syntheticKeySelect builds the child SELECT an UPDATE/DELETE plans over:
// the target entity's primary-key column (plus any extra columns), scoped
// by the original WHERE.
func (b *Builder) syntheticKeySelect(entity string, where ast.Expr, extraColumns []string) (*Result, error) {
	keyCol := b.primaryKey(entity)
	cols := []ast.SelectColumn{{SourceColumn: keyCol, Alias: keyCol}}
	for _, c := range extraColumns {
		cols = append(cols, ast.SelectColumn{SourceColumn: c, Alias: c})
	}
	spec := &ast.SelectSpec{
		Columns:     cols,
		From:        ast.FromClause{Entity: entity},
		ClientWhere: where,
	}
	return b.buildSpec(spec, nil, "")
}

func (b *Builder) buildUpdate(s *ast.Update) (*Result, error) {
	h := hints.Parse(ast.OptionsClause{}, "")
	extra := make([]string, 0, len(s.Sets))
	for _, set := range s.Sets {
		extra = append(extra, set.Column)
	}
	child, err := b.syntheticKeySelect(s.Entity, s.Where, extra)
	if err != nil {
		return nil, err
	}
	sets, err := b.compileColumnExprs(s.Sets)
	if err != nil {
		return nil, err
	}
	keyCol := s.KeyColumn
	if keyCol == "" {
		keyCol = b.primaryKey(s.Entity)
	}
	root := &plan.Update{
		Entity:    s.Entity,
		Source:    child.Root,
		KeyColumn: keyCol,
		Sets:      sets,
		RowCap:    b.rowCap(h),
		Options:   b.writeOptions(h),
	}
	return &Result{Root: root, Entity: s.Entity}, nil
}

func (b *Builder) buildDelete(s *ast.Delete) (*Result, error) {
	h := hints.Parse(ast.OptionsClause{}, "")
	child, err := b.syntheticKeySelect(s.Entity, s.Where, nil)
	if err != nil {
		return nil, err
	}
	keyCol := s.KeyColumn
	if keyCol == "" {
		keyCol = b.primaryKey(s.Entity)
	}
	root := &plan.Delete{
		Entity:    s.Entity,
		Source:    child.Root,
		KeyColumn: keyCol,
		RowCap:    b.rowCap(h),
		Options:   b.writeOptions(h),
	}
	return &Result{Root: root, Entity: s.Entity}, nil
}

func (b *Builder) buildMerge(s *ast.Merge) (*Result, error) {
	rawSQL := ""
	if s.Source != nil {
		rawSQL = s.Source.RawSQL
	}
	h := hints.Parse(ast.OptionsClause{}, rawSQL)
	src, err := b.buildSelect(s.Source)
	if err != nil {
		return nil, err
	}

	targetCol := s.TargetKeyColumn
	if targetCol == "" {
		targetCol = b.primaryKey(s.Entity)
	}
	targetSpec := &ast.SelectSpec{
		Columns: []ast.SelectColumn{{SourceColumn: targetCol, Alias: targetCol}},
		From:    ast.FromClause{Entity: s.Entity},
	}
	target, err := b.buildSpec(targetSpec, nil, "")
	if err != nil {
		return nil, err
	}

	root := &plan.Merge{
		Entity:          s.Entity,
		Source:          src.Root,
		Target:          target.Root,
		SourceKeyColumn: s.SourceKeyColumn,
		TargetKeyColumn: targetCol,
		RowCap:          b.rowCap(h),
		Options:         b.writeOptions(h),
	}

	if s.Matched.Delete {
		root.MatchedDelete = true
	} else if s.Matched.Update != nil {
		exprs, err := b.compileColumnExprs(*s.Matched.Update)
		if err != nil {
			return nil, err
		}
		root.MatchedUpdate = exprs
	}
	if s.NotMatched.Insert != nil {
		exprs, err := b.compileColumnExprs(s.NotMatched.Insert)
		if err != nil {
			return nil, err
		}
		root.NotMatchedInsert = exprs
	}

	return &Result{Root: root, Entity: s.Entity}, nil
}

func (b *Builder) buildExecuteMessage(s *ast.Execute) (*Result, error) {
	params, err := b.compileColumnExprs(s.Params)
	if err != nil {
		return nil, err
	}
	root := &plan.ExecuteMessage{Name: s.MessageName, Params: params}
	return &Result{Root: root}, nil
}
