package plan

import (
	"context"
	"testing"

	"github.com/opentracing/opentracing-go/mocktracer"
	"github.com/stretchr/testify/require"

	"github.com/ppds-sql/queryengine/engine"
)

func accountRow(name string) engine.Row {
	return engine.NewRow("account", []string{"name"}, []engine.Value{engine.String(name)})
}

func TestScanConcatenatesPagesInOrder(t *testing.T) {
	exec := &pagedExec{pages: []engine.QueryResult{
		{
			Records:      []engine.Row{accountRow("a"), accountRow("b")},
			MoreRecords:  true,
			PagingCookie: "c1",
			PageNumber:   1,
		},
		{
			Records:    []engine.Row{accountRow("c")},
			PageNumber: 2,
		},
	}}
	ctx := testCtx(t)
	ctx.QueryExecutor = exec

	rows := drainNode(t, ctx, NewScan("account", "<fetch/>"))

	require.Len(t, rows, 3)
	require.Equal(t, "a", rows[0].MustGet("name").String())
	require.Equal(t, "b", rows[1].MustGet("name").String())
	require.Equal(t, "c", rows[2].MustGet("name").String())
	require.EqualValues(t, 2, ctx.Stats.PagesFetched())
	require.EqualValues(t, 3, ctx.Stats.RowsRead())
	require.Equal(t, 2, exec.calls)
}

func TestScanFinishesSpanWithPageAndRowTags(t *testing.T) {
	tracer := mocktracer.New()
	exec := &pagedExec{pages: []engine.QueryResult{
		{Records: []engine.Row{accountRow("a")}, MoreRecords: true, PagingCookie: "c1"},
		{Records: []engine.Row{accountRow("b")}},
	}}
	ctx := testCtx(t)
	ctx.QueryExecutor = exec
	ctx.Tracer = tracer

	drainNode(t, ctx, NewScan("account", "<fetch/>"))

	spans := tracer.FinishedSpans()
	require.Len(t, spans, 1)
	require.Equal(t, "Scan(account)", spans[0].OperationName)
	require.Equal(t, 2, spans[0].Tag("pages"))
	require.EqualValues(t, int64(2), spans[0].Tag("rows"))
}

func TestScanAutoPageOffStopsAfterFirstPage(t *testing.T) {
	exec := &pagedExec{pages: []engine.QueryResult{
		{Records: []engine.Row{accountRow("a")}, MoreRecords: true, PagingCookie: "c1"},
		{Records: []engine.Row{accountRow("b")}},
	}}
	ctx := testCtx(t)
	ctx.QueryExecutor = exec

	scan := NewScan("account", "<fetch/>")
	scan.AutoPage = false
	rows := drainNode(t, ctx, scan)

	require.Len(t, rows, 1)
	require.Equal(t, 1, exec.calls)
}

type sizeRecordingExec struct {
	pagedExec
	sizes []int
}

func (e *sizeRecordingExec) ExecuteQuery(ctx context.Context, queryText string, pageSize int, pagingCookie string, includeCount bool) (engine.QueryResult, error) {
	e.sizes = append(e.sizes, pageSize)
	return e.pagedExec.ExecuteQuery(ctx, queryText, pageSize, pagingCookie, includeCount)
}

func TestScanTopNRewritesToSinglePage(t *testing.T) {
	// TOP and paging are mutually exclusive at the back end: a TOP-N scan
	// becomes one first-page-of-size-N request, capped at the page limit.
	exec := &sizeRecordingExec{pagedExec: pagedExec{pages: []engine.QueryResult{
		{Records: []engine.Row{accountRow("a")}, MoreRecords: true, PagingCookie: "c1"},
	}}}
	ctx := testCtx(t)
	ctx.QueryExecutor = exec

	scan := NewScan("account", "<fetch/>")
	scan.TopN = 10
	drainNode(t, ctx, scan)

	require.Equal(t, []int{10}, exec.sizes)
	require.Equal(t, 1, exec.calls)
}

func TestScanTopNCappedAtPageLimit(t *testing.T) {
	exec := &sizeRecordingExec{pagedExec: pagedExec{pages: []engine.QueryResult{{}}}}
	ctx := testCtx(t)
	ctx.QueryExecutor = exec

	scan := NewScan("account", "<fetch/>")
	scan.TopN = 99999
	drainNode(t, ctx, scan)

	require.Equal(t, []int{5000}, exec.sizes)
}

func TestScanRowCapStopsEarly(t *testing.T) {
	exec := &pagedExec{pages: []engine.QueryResult{
		{Records: []engine.Row{accountRow("a"), accountRow("b"), accountRow("c")}},
	}}
	ctx := testCtx(t)
	ctx.QueryExecutor = exec

	scan := NewScan("account", "<fetch/>")
	scan.RowCap = 2
	rows := drainNode(t, ctx, scan)
	require.Len(t, rows, 2)
}

func joinedRow(parent, child string) engine.Row {
	return engine.NewRow("account", []string{"accountid", "contact"},
		[]engine.Value{engine.String(parent), engine.String(child)})
}

func TestScanFlagsParentGroupStraddlingPageBoundary(t *testing.T) {
	// Page 1 ends mid-way through parent p2's children; page 2 leads with
	// two more p2 children before moving on to p3. The leading p2 rows
	// must be flagged as a continuation of the previous row group.
	exec := &pagedExec{pages: []engine.QueryResult{
		{
			Records:      []engine.Row{joinedRow("p1", "c1"), joinedRow("p2", "c2")},
			MoreRecords:  true,
			PagingCookie: "c1",
		},
		{
			Records: []engine.Row{joinedRow("p2", "c3"), joinedRow("p2", "c4"), joinedRow("p3", "c5")},
		},
	}}
	ctx := testCtx(t)
	ctx.QueryExecutor = exec

	scan := NewScan("account", "<fetch/>")
	scan.ServerSideJoin = true
	scan.ParentKeyAttr = "accountid"

	iter, err := scan.Execute(ctx)
	require.NoError(t, err)
	defer iter.Close(ctx)

	cont, ok := iter.(GroupContinuity)
	require.True(t, ok)

	var flags []bool
	for {
		_, err := iter.Next(ctx)
		if err == engine.EOF {
			break
		}
		require.NoError(t, err)
		flags = append(flags, cont.ContinuesGroup())
	}
	require.Equal(t, []bool{false, false, true, true, false}, flags)
}

func TestScanWithoutServerSideJoinSkipsBoundaryBookkeeping(t *testing.T) {
	exec := &pagedExec{pages: []engine.QueryResult{
		{Records: []engine.Row{joinedRow("p1", "c1")}, MoreRecords: true, PagingCookie: "x"},
		{Records: []engine.Row{joinedRow("p1", "c2")}},
	}}
	ctx := testCtx(t)
	ctx.QueryExecutor = exec

	scan := NewScan("account", "<fetch/>")
	iter, err := scan.Execute(ctx)
	require.NoError(t, err)
	defer iter.Close(ctx)

	cont := iter.(GroupContinuity)
	for {
		_, err := iter.Next(ctx)
		if err == engine.EOF {
			break
		}
		require.NoError(t, err)
		require.False(t, cont.ContinuesGroup())
	}
}

type errorExec struct{ err error }

func (e errorExec) ExecuteQuery(ctx context.Context, queryText string, pageSize int, pagingCookie string, includeCount bool) (engine.QueryResult, error) {
	return engine.QueryResult{}, e.err
}

func TestScanWrapsBackEndFailure(t *testing.T) {
	ctx := testCtx(t)
	ctx.QueryExecutor = errorExec{err: context.DeadlineExceeded}

	iter, err := NewScan("account", "<fetch/>").Execute(ctx)
	require.NoError(t, err)
	_, err = iter.Next(ctx)
	require.True(t, engine.ErrBackEnd.Is(err))
}

func TestScanHonorsCancellation(t *testing.T) {
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	ctx := engine.NewExecContext(cancelled, engine.NewSession())
	ctx.QueryExecutor = &pagedExec{}

	iter, err := NewScan("account", "<fetch/>").Execute(ctx)
	require.NoError(t, err)
	_, err = iter.Next(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
