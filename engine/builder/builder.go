// Package builder walks a statement AST and dispatches by statement kind,
// producing a plan result: root node, originating entity name, and
// back-end query text for diagnostics.
package builder

import (
	"fmt"
	"strings"
	"time"

	"github.com/ppds-sql/queryengine/engine"
	"github.com/ppds-sql/queryengine/engine/ast"
	"github.com/ppds-sql/queryengine/engine/hints"
	"github.com/ppds-sql/queryengine/engine/partition"
	"github.com/ppds-sql/queryengine/engine/plan"
	"github.com/ppds-sql/queryengine/engine/profile"
)

// Result is the Builder's output for one statement: the plan root, the
// originating entity (empty for statements with no single target), and
// the back-end query text used for diagnostics.
type Result struct {
	Root      engine.Node
	Entity    string
	QueryText string
}

// DateRangeResolver returns the known [min, max) creation-timestamp bounds
// for entity, used to seed the partitioner for a partitioned aggregate.
type DateRangeResolver func(entity string) (min, max time.Time, err error)

// TemplateQueryFunc rebuilds a query's text for a narrowed date interval,
// used by both partitioned-aggregation routing and the adaptive scan's own
// cap-triggered bisection.
type TemplateQueryFunc func(entity, baseQueryText string, interval partition.Descriptor) string

// PrimaryKeyResolver returns entity's primary-key attribute name, used to
// shape the synthetic SELECTs that UPDATE/DELETE/MERGE plan over.
type PrimaryKeyResolver func(entity string) string

// Builder holds the external collaborators and policy knobs the SELECT
// shaping pipeline and DML routing need.
type Builder struct {
	Generator engine.FetchXMLGenerator
	Compiler  engine.ExpressionCompiler
	Profile   *profile.Profile

	// TDSCompatible is the TDS compatibility predicate. A nil func means
	// TDS passthrough is never selected.
	TDSCompatible func(rawSQL string) bool

	// EstimateRows estimates a FetchXML query's matching record count, used
	// to decide whether an aggregate needs partitioning. A nil func
	// disables partitioned-aggregate routing (always executes as a single
	// scan).
	EstimateRows func(queryText string) int64

	DateRange     DateRangeResolver
	TemplateQuery TemplateQueryFunc
	PrimaryKey    PrimaryKeyResolver

	// CallerPaged, when true, disables the automatic Prefetch wrap: the
	// caller drives paging itself and buffering ahead would fight it.
	CallerPaged bool
}

func (b *Builder) profile() *profile.Profile {
	if b.Profile != nil {
		return b.Profile
	}
	return profile.Default()
}

// Build dispatches stmt to the matching plan construction. A failure is
// tagged with the statement's parser-supplied source position, when it
// has one, so the caller can point back into the original SQL text.
func (b *Builder) Build(stmt ast.Statement) (*Result, error) {
	res, err := b.build(stmt)
	if err != nil {
		return nil, engine.AtLocation(err, locationOf(stmt))
	}
	return res, nil
}

func locationOf(stmt ast.Statement) engine.Location {
	if p, ok := stmt.(interface{ Position() ast.Pos }); ok {
		pos := p.Position()
		return engine.Location{Line: pos.Line, Column: pos.Column}
	}
	return engine.Location{}
}

func (b *Builder) build(stmt ast.Statement) (*Result, error) {
	switch s := stmt.(type) {
	case *ast.Select:
		return b.buildSelect(s)
	case *ast.Insert:
		return b.buildInsert(s)
	case *ast.Update:
		return b.buildUpdate(s)
	case *ast.Delete:
		return b.buildDelete(s)
	case *ast.Merge:
		return b.buildMerge(s)
	case *ast.Execute:
		return b.buildExecuteMessage(s)
	case *ast.If, *ast.While, *ast.DeclareVariable, *ast.Assign, *ast.Begin, *ast.TryCatch,
		*ast.DeclareCursor, *ast.OpenCursor, *ast.FetchCursor, *ast.CloseCursor, *ast.DeallocateCursor,
		*ast.ExecuteAs, *ast.Revert, *ast.CreateTempTable, *ast.DropTempTable:
		root, err := b.buildScriptBlock([]ast.Statement{stmt})
		if err != nil {
			return nil, err
		}
		return &Result{Root: root}, nil
	default:
		return nil, engine.ErrUnsupportedStatement.New(fmt.Sprintf("%T", stmt))
	}
}

// ---- SELECT ----

func (b *Builder) buildSelect(s *ast.Select) (*Result, error) {
	ctes := map[string]*plan.CTEScan{}
	cteOrdinal := map[string]int{}
	for i, cte := range s.CTEs {
		// Two WITH entries under one name would make every reference to
		// that name ambiguous; enumerate the clashing definitions.
		if prev, dup := cteOrdinal[strings.ToLower(cte.Name)]; dup {
			return nil, engine.ErrAmbiguousMatch.New(cte.Name, []string{
				fmt.Sprintf("WITH entry %d", prev+1),
				fmt.Sprintf("WITH entry %d", i+1),
			})
		}
		cteOrdinal[strings.ToLower(cte.Name)] = i
		if referencesSelf(cte) {
			return nil, engine.ErrUnsupportedStatement.New("recursive CTE " + cte.Name)
		}
		defineResult, err := b.buildQueryExpression(cte.Query.Query, ctes, cte.Query.RawSQL)
		if err != nil {
			return nil, err
		}
		ctes[strings.ToLower(cte.Name)] = plan.NewCTE(cte.Name, defineResult.Root)
	}

	result, err := b.buildQueryExpression(s.Query, ctes, s.RawSQL)
	if err != nil {
		return nil, err
	}
	root := result.Root

	if len(s.OrderBy) > 0 {
		root = plan.NewSort(root, toOrderKeys(s.OrderBy))
	}

	if s.Offset != nil || s.Fetch != nil {
		offset, fetch := int64(0), int64(-1)
		if s.Offset != nil {
			offset = *s.Offset
		}
		if s.Fetch != nil {
			fetch = *s.Fetch
		}
		root, err = plan.NewOffsetFetch(root, offset, fetch)
		if err != nil {
			return nil, err
		}
	}

	return &Result{Root: root, Entity: result.Entity, QueryText: result.QueryText}, nil
}

func referencesSelf(cte ast.CTE) bool {
	return selectReferencesEntity(cte.Query, cte.Name)
}

func selectReferencesEntity(s *ast.Select, name string) bool {
	if s == nil {
		return false
	}
	return queryExprReferencesEntity(s.Query, name)
}

func queryExprReferencesEntity(qe ast.QueryExpression, name string) bool {
	switch q := qe.(type) {
	case *ast.SelectSpec:
		return strings.EqualFold(q.From.Entity, name)
	case *ast.BinaryQuery:
		return queryExprReferencesEntity(q.Left, name) || queryExprReferencesEntity(q.Right, name)
	}
	return false
}

// buildQueryExpression plans a single-select or a flattened binary set
// operation.
func (b *Builder) buildQueryExpression(qe ast.QueryExpression, ctes map[string]*plan.CTEScan, rawSQL string) (*Result, error) {
	switch q := qe.(type) {
	case *ast.SelectSpec:
		return b.buildSpec(q, ctes, rawSQL)
	case *ast.BinaryQuery:
		return b.buildBinary(q, ctes, rawSQL)
	default:
		return nil, engine.ErrUnsupportedStatement.New(fmt.Sprintf("query expression %T", qe))
	}
}

func (b *Builder) buildBinary(q *ast.BinaryQuery, ctes map[string]*plan.CTEScan, rawSQL string) (*Result, error) {
	branches, allEverywhere, op, err := flattenUnion(q)
	if err != nil {
		return nil, err
	}

	switch op {
	case ast.SetOpUnion:
		return b.buildUnion(branches, allEverywhere, ctes, rawSQL)
	case ast.SetOpIntersect, ast.SetOpExcept:
		if len(branches) != 2 {
			return nil, engine.ErrUnsupportedStatement.New("INTERSECT/EXCEPT require exactly two branches")
		}
		return b.buildTwoBranchSetOp(branches, op, ctes, rawSQL)
	default:
		return nil, engine.ErrUnsupportedStatement.New("unknown set operator")
	}
}

// flattenUnion flattens a right-deep UNION tree into branches sharing the
// same operator, and reports whether ALL held at every boundary; distinct
// applies if any boundary omits ALL.
func flattenUnion(q *ast.BinaryQuery) ([]ast.QueryExpression, bool, ast.SetOp, error) {
	op := q.Op
	if op != ast.SetOpUnion {
		return []ast.QueryExpression{q.Left, q.Right}, q.All, op, nil
	}
	var branches []ast.QueryExpression
	allEverywhere := true
	var walk func(qe ast.QueryExpression)
	walk = func(qe ast.QueryExpression) {
		if bq, ok := qe.(*ast.BinaryQuery); ok && bq.Op == ast.SetOpUnion {
			walk(bq.Left)
			if !bq.All {
				allEverywhere = false
			}
			walk(bq.Right)
			return
		}
		branches = append(branches, qe)
	}
	walk(q)
	return branches, allEverywhere, op, nil
}

func (b *Builder) buildUnion(branches []ast.QueryExpression, allEverywhere bool, ctes map[string]*plan.CTEScan, rawSQL string) (*Result, error) {
	if len(branches) < 2 {
		return nil, engine.ErrUnsupportedStatement.New("UNION requires at least two branches")
	}
	var nodes []engine.Node
	var width = -1
	var first *Result
	for _, br := range branches {
		res, err := b.buildQueryExpression(br, ctes, rawSQL)
		if err != nil {
			return nil, err
		}
		if first == nil {
			first = res
		}
		if spec, ok := br.(*ast.SelectSpec); ok && !hasWildcard(spec.Columns) {
			n := len(spec.Columns)
			if width == -1 {
				width = n
			} else if width != n {
				return nil, engine.ErrBranchArityMismatch.New(width, n)
			}
		}
		nodes = append(nodes, res.Root)
	}
	var root engine.Node = plan.NewConcatenate(nodes)
	if !allEverywhere {
		root = plan.NewDistinct(root)
	}
	entity, query := "", ""
	if first != nil {
		entity, query = first.Entity, first.QueryText
	}
	return &Result{Root: root, Entity: entity, QueryText: query}, nil
}

func hasWildcard(cols []ast.SelectColumn) bool {
	for _, c := range cols {
		if c.Wildcard {
			return true
		}
	}
	return false
}

func (b *Builder) buildTwoBranchSetOp(branches []ast.QueryExpression, op ast.SetOp, ctes map[string]*plan.CTEScan, rawSQL string) (*Result, error) {
	left, err := b.buildQueryExpression(branches[0], ctes, rawSQL)
	if err != nil {
		return nil, err
	}
	right, err := b.buildQueryExpression(branches[1], ctes, rawSQL)
	if err != nil {
		return nil, err
	}
	var root engine.Node
	if op == ast.SetOpIntersect {
		root = plan.NewIntersect(left.Root, right.Root)
	} else {
		root = plan.NewExcept(left.Root, right.Root)
	}
	return &Result{Root: root, Entity: left.Entity, QueryText: left.QueryText}, nil
}

// buildSpec implements the SELECT shaping pipeline for a single spec.
func (b *Builder) buildSpec(spec *ast.SelectSpec, ctes map[string]*plan.CTEScan, rawSQL string) (*Result, error) {
	// Step: CTE reference.
	if cte, ok := ctes[strings.ToLower(spec.From.Entity)]; ok && spec.From.TVF == nil && !spec.From.IsMetadata {
		return b.finishSpec(spec, cte.Ref(), spec.From.Entity, "")
	}

	// Step 0: local temp table.
	if strings.HasPrefix(spec.From.Entity, "#") {
		return b.finishSpec(spec, &plan.TempTableScan{Name: spec.From.Entity}, spec.From.Entity, "")
	}

	// Step 1: table-valued function.
	if spec.From.TVF != nil {
		root, err := b.buildTVF(spec.From.TVF)
		if err != nil {
			return nil, err
		}
		return b.finishSpec(spec, root, spec.From.TVF.Alias, "")
	}

	// Step 2: metadata pseudo-schema.
	if spec.From.IsMetadata {
		cols := projectedSourceColumns(spec.Columns)
		scan := plan.NewMetadataScan(spec.From.Entity, cols)
		if spec.ClientWhere != nil {
			pred, err := b.Compiler.CompilePredicate(spec.ClientWhere)
			if err != nil {
				return nil, err
			}
			scan.Filter = pred
		}
		return b.finishSpec(spec, scan, spec.From.Entity, "")
	}

	hintSet := hints.Parse(spec.Options, rawSQL)

	// Step 3: TDS passthrough of the original SQL text.
	if hintSet.UseTDS && b.TDSCompatible != nil && b.TDSCompatible(rawSQL) {
		return b.finishSpec(spec, plan.NewTDSPassthrough(rawSQL), spec.From.Entity, rawSQL)
	}

	// Step 4: FetchXML generation, partitioned-aggregate routing.
	generated, err := b.Generator.Generate(spec)
	if err != nil {
		return nil, err
	}
	forceClient := hintSet.ForceClientAggregation || b.profile().ForceClientAggregation
	if len(spec.Aggregates) > 0 && !forceClient && b.wantsPartitioning(generated.QueryText) {
		root, err := b.buildPartitionedAggregate(spec, generated.QueryText, hintSet)
		if err != nil {
			return nil, err
		}
		return b.finishSpec(spec, root, spec.From.Entity, generated.QueryText)
	}

	// Step 5: scan + conditional wraps.
	scan := plan.NewScan(spec.From.Entity, generated.QueryText)
	if spec.Top != nil {
		scan.TopN = int(*spec.Top)
	}
	if spec.From.Join != nil {
		// The back end evaluates the join server-side, so a parent's child
		// rows may straddle page boundaries; the scan needs the parent key
		// to flag continuations.
		scan.ServerSideJoin = true
		scan.ParentKeyAttr = b.primaryKey(spec.From.Entity)
	}
	var root engine.Node = scan
	if join := spec.From.Join; join != nil && join.FullOuter {
		root, err = b.completeFullOuter(root, join)
		if err != nil {
			return nil, err
		}
	}
	if !hasAggregateMarker(spec) && !b.CallerPaged {
		root = plan.NewPrefetch(root, b.profile().PrefetchBuffer)
	}
	if spec.ClientWhere != nil {
		pred, err := b.Compiler.CompilePredicate(spec.ClientWhere)
		if err != nil {
			return nil, err
		}
		root = plan.NewFilter(root, pred)
	}
	return b.finishSpec(spec, root, spec.From.Entity, generated.QueryText)
}

func hasAggregateMarker(spec *ast.SelectSpec) bool { return len(spec.Aggregates) > 0 }

// primaryKey resolves entity's primary-key attribute name, defaulting to
// the back end's "<entity>id" convention when no resolver is configured.
func (b *Builder) primaryKey(entity string) string {
	if b.PrimaryKey != nil {
		return b.PrimaryKey(entity)
	}
	return entity + "id"
}

// completeFullOuter restores FULL OUTER semantics over a server-side
// (LEFT OUTER) joined scan: an independent scan of the right entity
// supplies the rows the joined stream never matched, null-padded on the
// left columns.
func (b *Builder) completeFullOuter(root engine.Node, join *ast.JoinClause) (engine.Node, error) {
	rightSpec := &ast.SelectSpec{
		Columns: []ast.SelectColumn{{Wildcard: true}},
		From:    ast.FromClause{Entity: join.Entity},
	}
	generated, err := b.Generator.Generate(rightSpec)
	if err != nil {
		return nil, err
	}
	right := plan.NewScan(join.Entity, generated.QueryText)
	return plan.NewFullOuterJoin(root, right, join.LeftKey, join.RightKey, join.LeftColumns), nil
}

func (b *Builder) wantsPartitioning(queryText string) bool {
	if b.EstimateRows == nil || b.DateRange == nil || b.TemplateQuery == nil {
		return false
	}
	cap := b.profile().AggregatePartitionCap
	if cap <= 0 {
		cap = 50000
	}
	return b.EstimateRows(queryText) > cap
}

// buildPartitionedAggregate wires adaptive scan + parallel partition +
// merge-aggregate over entity's date range.
func (b *Builder) buildPartitionedAggregate(spec *ast.SelectSpec, baseQueryText string, hintSet hints.Set) (engine.Node, error) {
	entity := spec.From.Entity
	min, max, err := b.DateRange(entity)
	if err != nil {
		return nil, err
	}
	cap := b.profile().AggregatePartitionCap
	if cap <= 0 {
		cap = 50000
	}
	estimate := b.EstimateRows(baseQueryText)
	descriptors := partition.Plan(estimate, min, max, cap)

	nodes := make([]engine.Node, len(descriptors))
	for i, d := range descriptors {
		nodes[i] = plan.NewAdaptiveAggregateScan(entity, d, func(interval partition.Descriptor) string {
			return b.TemplateQuery(entity, baseQueryText, interval)
		})
	}

	// p comes from the query hint when present, else the profile default.
	parallelism := b.profile().MaxDOP
	if hintSet.MaxDOP != nil {
		parallelism = *hintSet.MaxDOP
	}
	parallel := plan.NewParallelPartition(nodes, parallelism)

	aggSpecs := make([]plan.AggSpec, 0, len(spec.Aggregates))
	for _, a := range spec.Aggregates {
		ps := plan.AggSpec{Alias: a.Alias, SourceColumn: a.SourceColumn}
		switch strings.ToUpper(a.Func) {
		case "COUNT":
			ps.Func = plan.AggCount
		case "SUM":
			ps.Func = plan.AggSum
		case "MIN":
			ps.Func = plan.AggMin
		case "MAX":
			ps.Func = plan.AggMax
		case "AVG":
			ps.Func = plan.AggAvg
			ps.WeightColumn = "__cnt_" + a.Alias
		default:
			return nil, engine.ErrUnsupportedExpression.New("aggregate function " + a.Func)
		}
		aggSpecs = append(aggSpecs, ps)
	}
	return plan.NewMergeAggregate(parallel, spec.GroupBy, aggSpecs), nil
}

// finishSpec applies HAVING/window/projection/distinct common to
// every FROM resolution.
func (b *Builder) finishSpec(spec *ast.SelectSpec, root engine.Node, entity, queryText string) (*Result, error) {
	if spec.Having != nil {
		pred, err := b.Compiler.CompilePredicate(spec.Having)
		if err != nil {
			return nil, err
		}
		root = plan.NewFilter(root, pred)
	}

	if defs := windowDefs(spec.Columns); len(defs) > 0 {
		window := plan.NewWindow(root, defs)
		window.MaterializationLimit = b.profile().WindowMaterializationLimit
		root = window
	}

	if cols, ok := projectionColumns(spec.Columns, b.Compiler); ok {
		root = plan.NewProject(root, cols)
	}

	if spec.Distinct {
		root = plan.NewDistinct(root)
	}

	return &Result{Root: root, Entity: entity, QueryText: queryText}, nil
}

func windowDefs(cols []ast.SelectColumn) []plan.WindowDef {
	var defs []plan.WindowDef
	for _, c := range cols {
		if c.Window == nil {
			continue
		}
		def := plan.WindowDef{
			Output:      c.Alias,
			Operand:     c.Window.Operand,
			PartitionBy: c.Window.PartitionBy,
			OrderBy:     toWindowOrderKeys(c.Window.OrderBy),
			CountStar:   c.Window.CountStar,
		}
		switch strings.ToUpper(c.Window.Func) {
		case "ROW_NUMBER":
			def.Func = plan.WindowRowNumber
		case "RANK":
			def.Func = plan.WindowRank
		case "DENSE_RANK":
			def.Func = plan.WindowDenseRank
		case "SUM":
			def.Func = plan.WindowSum
		case "COUNT":
			def.Func = plan.WindowCount
		case "AVG":
			def.Func = plan.WindowAvg
		case "MIN":
			def.Func = plan.WindowMin
		case "MAX":
			def.Func = plan.WindowMax
		}
		defs = append(defs, def)
	}
	return defs
}

// projectionColumns builds the Project operator's column list, skipping
// window-only columns (already bound onto the row by Window) and
// returning ok=false for a bare `SELECT *` that needs no projection.
func projectionColumns(cols []ast.SelectColumn, compiler engine.ExpressionCompiler) ([]plan.ProjectColumn, bool) {
	if len(cols) == 1 && cols[0].Wildcard {
		return nil, false
	}
	out := make([]plan.ProjectColumn, 0, len(cols))
	for _, c := range cols {
		if c.Wildcard {
			continue
		}
		alias := c.Alias
		if alias == "" {
			alias = c.SourceColumn
		}
		pc := plan.ProjectColumn{Output: alias, SourceColumn: c.SourceColumn}
		if c.Computed != nil {
			fn, err := compiler.CompileScalar(c.Computed)
			if err == nil {
				pc.Compute = fn
				pc.SourceColumn = ""
			}
		}
		if c.Window != nil {
			pc.SourceColumn = alias // window already bound the value under its output name
		}
		out = append(out, pc)
	}
	return out, true
}

func projectedSourceColumns(cols []ast.SelectColumn) []string {
	var out []string
	for _, c := range cols {
		if c.SourceColumn != "" {
			out = append(out, c.SourceColumn)
		}
	}
	return out
}

func (b *Builder) buildTVF(tvf *ast.TVFCall) (engine.Node, error) {
	switch strings.ToUpper(tvf.Name) {
	case "STRING_SPLIT":
		if len(tvf.Args) < 2 {
			return nil, engine.ErrUnsupportedExpression.New("STRING_SPLIT requires 2 arguments")
		}
		input, ok1 := tvf.Args[0].(string)
		sep, ok2 := tvf.Args[1].(string)
		if !ok1 || !ok2 {
			return nil, engine.ErrUnsupportedExpression.New("STRING_SPLIT arguments must be string literals")
		}
		withOrdinal := len(tvf.Args) > 2
		return plan.NewStringSplit(input, sep, withOrdinal), nil
	default:
		return nil, engine.ErrUnsupportedStatement.New("table-valued function " + tvf.Name)
	}
}

func toOrderKeys(terms []ast.OrderTerm) []plan.OrderKey {
	out := make([]plan.OrderKey, len(terms))
	for i, t := range terms {
		out[i] = plan.OrderKey{Column: t.Column, Desc: t.Desc}
	}
	return out
}

func toWindowOrderKeys(terms []ast.OrderTerm) []plan.OrderKey { return toOrderKeys(terms) }
