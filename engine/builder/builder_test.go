package builder

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ppds-sql/queryengine/engine"
	"github.com/ppds-sql/queryengine/engine/ast"
	"github.com/ppds-sql/queryengine/engine/partition"
	"github.com/ppds-sql/queryengine/engine/plan"
	"github.com/ppds-sql/queryengine/enginetest/fixture"
)

// fakeGen is a FetchXMLGenerator that returns a fixed query text.
type fakeGen struct{}

func (fakeGen) Generate(statement interface{}) (engine.GeneratedQuery, error) {
	return engine.GeneratedQuery{QueryText: "<fetch/>"}, nil
}

func testBuilder() *Builder {
	return &Builder{
		Generator: fakeGen{},
		Compiler:  fixture.Compiler{},
	}
}

func wildcardSelect(entity string) *ast.Select {
	return &ast.Select{Query: &ast.SelectSpec{
		Columns: []ast.SelectColumn{{Wildcard: true}},
		From:    ast.FromClause{Entity: entity},
	}}
}

func TestBuildSelectWrapsScanInPrefetch(t *testing.T) {
	b := testBuilder()
	res, err := b.Build(wildcardSelect("account"))
	require.NoError(t, err)
	require.IsType(t, &plan.Prefetch{}, res.Root)
	require.Equal(t, "account", res.Entity)
	require.Equal(t, "<fetch/>", res.QueryText)
}

func TestBuildSelectCallerPagedSkipsPrefetch(t *testing.T) {
	b := testBuilder()
	b.CallerPaged = true
	res, err := b.Build(wildcardSelect("account"))
	require.NoError(t, err)
	require.IsType(t, &plan.Scan{}, res.Root)
}

func TestBuildSelectClientWhereAddsFilter(t *testing.T) {
	b := testBuilder()
	sel := wildcardSelect("account")
	sel.Query.(*ast.SelectSpec).ClientWhere = fixture.Equals{Column: "name", Value: engine.String("x")}

	res, err := b.Build(sel)
	require.NoError(t, err)
	require.IsType(t, &plan.Filter{}, res.Root)
}

func TestBuildSelectOffsetFetchNegativeFailsAtPlanTime(t *testing.T) {
	b := testBuilder()
	sel := wildcardSelect("account")
	neg := int64(-1)
	sel.Offset = &neg

	_, err := b.Build(sel)
	require.True(t, engine.ErrInvalidLiteral.Is(err))
}

func TestBuildFailureCarriesStatementPosition(t *testing.T) {
	b := testBuilder()
	sel := wildcardSelect("account")
	sel.Pos = ast.Pos{Line: 3, Column: 14}
	neg := int64(-1)
	sel.Offset = &neg

	_, err := b.Build(sel)
	require.Error(t, err)
	loc, ok := engine.LocationOf(err)
	require.True(t, ok)
	require.Equal(t, engine.Location{Line: 3, Column: 14}, loc)
	require.True(t, engine.ErrInvalidLiteral.Is(errors.Unwrap(err)))
}

func TestBuildDuplicateCTENameIsAmbiguous(t *testing.T) {
	b := testBuilder()
	define := func() *ast.Select {
		return &ast.Select{Query: &ast.SelectSpec{
			Columns: []ast.SelectColumn{{Wildcard: true}},
			From:    ast.FromClause{Entity: "account"},
		}}
	}
	sel := wildcardSelect("t")
	sel.CTEs = []ast.CTE{
		{Name: "t", Query: define()},
		{Name: "T", Query: define()},
	}

	_, err := b.Build(sel)
	require.True(t, engine.ErrAmbiguousMatch.Is(err))
	require.Contains(t, err.Error(), "WITH entry 1")
	require.Contains(t, err.Error(), "WITH entry 2")
}

func TestBuildJoinSetsServerSideScanFlags(t *testing.T) {
	b := testBuilder()
	b.CallerPaged = true
	sel := wildcardSelect("account")
	sel.Query.(*ast.SelectSpec).From.Join = &ast.JoinClause{
		Entity:   "contact",
		LeftKey:  "contactid",
		RightKey: "contactid",
	}

	res, err := b.Build(sel)
	require.NoError(t, err)
	scan, ok := res.Root.(*plan.Scan)
	require.True(t, ok)
	require.True(t, scan.ServerSideJoin)
	require.Equal(t, "accountid", scan.ParentKeyAttr)
}

func TestBuildFullOuterJoinCompletesClientSide(t *testing.T) {
	b := testBuilder()
	b.CallerPaged = true
	sel := wildcardSelect("account")
	sel.Query.(*ast.SelectSpec).From.Join = &ast.JoinClause{
		Entity:      "contact",
		FullOuter:   true,
		LeftKey:     "contactid",
		RightKey:    "contactid",
		LeftColumns: []string{"name"},
	}

	res, err := b.Build(sel)
	require.NoError(t, err)
	join, ok := res.Root.(*plan.FullOuterJoin)
	require.True(t, ok)
	require.Equal(t, "contactid", join.RightKeyCol)
	require.Equal(t, []string{"name"}, join.LeftColumns)

	left, ok := join.Children()[0].(*plan.Scan)
	require.True(t, ok)
	require.True(t, left.ServerSideJoin)
	require.IsType(t, &plan.Scan{}, join.Children()[1])
}

func TestBuildUnionArityMismatchFails(t *testing.T) {
	b := testBuilder()
	sel := &ast.Select{Query: &ast.BinaryQuery{
		Op: ast.SetOpUnion,
		Left: &ast.SelectSpec{
			Columns: []ast.SelectColumn{{SourceColumn: "a"}},
			From:    ast.FromClause{Entity: "account"},
		},
		Right: &ast.SelectSpec{
			Columns: []ast.SelectColumn{{SourceColumn: "a"}, {SourceColumn: "b"}},
			From:    ast.FromClause{Entity: "contact"},
		},
	}}
	_, err := b.Build(sel)
	require.True(t, engine.ErrBranchArityMismatch.Is(err))
}

func unionOf(all bool) *ast.Select {
	branch := func(entity string) *ast.SelectSpec {
		return &ast.SelectSpec{
			Columns: []ast.SelectColumn{{SourceColumn: "a"}},
			From:    ast.FromClause{Entity: entity},
		}
	}
	return &ast.Select{Query: &ast.BinaryQuery{
		Op:    ast.SetOpUnion,
		All:   all,
		Left:  branch("account"),
		Right: branch("contact"),
	}}
}

func TestBuildUnionAllSkipsDistinct(t *testing.T) {
	b := testBuilder()
	res, err := b.Build(unionOf(true))
	require.NoError(t, err)
	require.IsType(t, &plan.Concatenate{}, res.Root)
}

func TestBuildUnionWithoutAllAppliesDistinct(t *testing.T) {
	b := testBuilder()
	res, err := b.Build(unionOf(false))
	require.NoError(t, err)
	require.IsType(t, &plan.Distinct{}, res.Root)
}

func TestBuildRecursiveCTERejected(t *testing.T) {
	b := testBuilder()
	sel := wildcardSelect("t")
	sel.CTEs = []ast.CTE{{
		Name: "t",
		Query: &ast.Select{Query: &ast.SelectSpec{
			Columns: []ast.SelectColumn{{Wildcard: true}},
			From:    ast.FromClause{Entity: "t"},
		}},
	}}
	_, err := b.Build(sel)
	require.True(t, engine.ErrUnsupportedStatement.Is(err))
}

func TestBuildTDSPassthroughRequiresHintAndPredicate(t *testing.T) {
	b := testBuilder()
	b.TDSCompatible = func(rawSQL string) bool { return true }

	sel := wildcardSelect("account")
	sel.RawSQL = "-- ppds:USE_TDS\nSELECT * FROM account"
	res, err := b.Build(sel)
	require.NoError(t, err)
	tds, ok := res.Root.(*plan.TDSPassthrough)
	require.True(t, ok)
	require.Equal(t, sel.RawSQL, tds.SQLText)

	// Without the hint the same statement takes the FetchXML path.
	plain := wildcardSelect("account")
	plain.RawSQL = "SELECT * FROM account"
	res, err = b.Build(plain)
	require.NoError(t, err)
	require.IsType(t, &plan.Prefetch{}, res.Root)
}

func partitioningBuilder() *Builder {
	b := testBuilder()
	b.EstimateRows = func(queryText string) int64 { return 150000 }
	b.DateRange = func(entity string) (time.Time, time.Time, error) {
		start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 0, 182), nil
	}
	b.TemplateQuery = func(entity, baseQueryText string, interval partition.Descriptor) string {
		return baseQueryText
	}
	return b
}

func aggregateSelect(rawSQL string) *ast.Select {
	return &ast.Select{
		RawSQL: rawSQL,
		Query: &ast.SelectSpec{
			Columns:    []ast.SelectColumn{{SourceColumn: "cnt"}},
			From:       ast.FromClause{Entity: "account"},
			GroupBy:    []string{"region"},
			Aggregates: []ast.AggregateSpec{{Alias: "cnt", Func: "COUNT", SourceColumn: "cnt"}},
		},
	}
}

func TestBuildPartitionedAggregateShape(t *testing.T) {
	b := partitioningBuilder()
	res, err := b.Build(aggregateSelect(""))
	require.NoError(t, err)

	// finishSpec adds the projection over the merge-aggregate output.
	project, ok := res.Root.(*plan.Project)
	require.True(t, ok)
	merge, ok := project.Children()[0].(*plan.MergeAggregate)
	require.True(t, ok)
	parallel, ok := merge.Children()[0].(*plan.ParallelPartition)
	require.True(t, ok)
	// 150000 rows over a 50000-row cap: three partitions.
	require.Len(t, parallel.Children(), 3)
	for _, child := range parallel.Children() {
		require.IsType(t, &plan.AdaptiveAggregateScan{}, child)
	}
}

func TestBuildPartitionedAggregateHonorsMaxDOPHint(t *testing.T) {
	b := partitioningBuilder()
	res, err := b.Build(aggregateSelect("-- ppds:MAXDOP 2"))
	require.NoError(t, err)

	project := res.Root.(*plan.Project)
	merge := project.Children()[0].(*plan.MergeAggregate)
	parallel := merge.Children()[0].(*plan.ParallelPartition)
	require.Equal(t, 2, parallel.P)
}

func TestBuildAvgAggregateInjectsWeightColumn(t *testing.T) {
	b := partitioningBuilder()
	sel := aggregateSelect("")
	spec := sel.Query.(*ast.SelectSpec)
	spec.Aggregates = []ast.AggregateSpec{{Alias: "avg_rev", Func: "AVG", SourceColumn: "revenue"}}
	spec.Columns = []ast.SelectColumn{{SourceColumn: "avg_rev"}}

	res, err := b.Build(sel)
	require.NoError(t, err)

	project := res.Root.(*plan.Project)
	merge := project.Children()[0].(*plan.MergeAggregate)
	require.Len(t, merge.Aggregates, 1)
	require.Equal(t, plan.AggAvg, merge.Aggregates[0].Func)
	require.NotEmpty(t, merge.Aggregates[0].WeightColumn)
}

func TestBuildForceClientAggregationHintSkipsPartitioning(t *testing.T) {
	b := partitioningBuilder()
	res, err := b.Build(aggregateSelect("-- ppds:FORCE_CLIENT_AGGREGATION"))
	require.NoError(t, err)
	// Aggregate specs present but partitioning forced off: a plain scan,
	// and no prefetch because the statement is an aggregate.
	project := res.Root.(*plan.Project)
	require.IsType(t, &plan.Scan{}, project.Children()[0])
}

func TestBuildUpdateShapesSyntheticKeySelect(t *testing.T) {
	b := testBuilder()
	b.PrimaryKey = func(entity string) string { return entity + "id" }

	res, err := b.Build(&ast.Update{
		Entity: "account",
		Sets: []ast.ColumnAssign{
			{Column: "name", Value: fixture.Literal{Value: engine.String("renamed")}},
		},
	})
	require.NoError(t, err)

	update, ok := res.Root.(*plan.Update)
	require.True(t, ok)
	require.Equal(t, "accountid", update.KeyColumn)
	require.NotNil(t, update.Source)
}

func TestBuildDeleteUsesPrimaryKeyResolver(t *testing.T) {
	b := testBuilder()
	b.PrimaryKey = func(entity string) string { return "custom_pk" }

	res, err := b.Build(&ast.Delete{Entity: "account"})
	require.NoError(t, err)
	del := res.Root.(*plan.Delete)
	require.Equal(t, "custom_pk", del.KeyColumn)
}

func TestBuildControlFlowWrapsInScriptBlock(t *testing.T) {
	b := testBuilder()
	res, err := b.Build(&ast.DeclareVariable{
		Name: "@x",
		Init: fixture.Literal{Value: engine.Int(1)},
	})
	require.NoError(t, err)
	require.IsType(t, &plan.ScriptBlock{}, res.Root)
}

func TestBuildMetadataSelectRoutesToMetadataScan(t *testing.T) {
	b := testBuilder()
	sel := &ast.Select{Query: &ast.SelectSpec{
		Columns: []ast.SelectColumn{{SourceColumn: "logicalname"}},
		From:    ast.FromClause{Entity: "entity", IsMetadata: true},
	}}
	res, err := b.Build(sel)
	require.NoError(t, err)
	project := res.Root.(*plan.Project)
	require.IsType(t, &plan.MetadataScan{}, project.Children()[0])
}

func TestBuildStringSplitTVF(t *testing.T) {
	b := testBuilder()
	sel := &ast.Select{Query: &ast.SelectSpec{
		Columns: []ast.SelectColumn{{Wildcard: true}},
		From: ast.FromClause{TVF: &ast.TVFCall{
			Name: "STRING_SPLIT",
			Args: []ast.Expr{"a,b", ","},
		}},
	}}
	res, err := b.Build(sel)
	require.NoError(t, err)
	require.IsType(t, &plan.StringSplit{}, res.Root)
}

func TestBuildUnsupportedStatementFails(t *testing.T) {
	b := testBuilder()
	_, err := b.Build(nil)
	require.True(t, engine.ErrUnsupportedStatement.Is(err))
}
