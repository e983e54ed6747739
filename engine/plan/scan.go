// Package plan implements the streaming plan-node runtime:
// leaf scans, unary and n-ary operators, DML operators, and control-flow
// and session operators. Every node conforms to engine.Node; Execute
// returns an engine.RowIter that pulls from its children or from a
// back-end contract.
package plan

import (
	opentracing "github.com/opentracing/opentracing-go"

	"github.com/ppds-sql/queryengine/engine"
)

// maxTopPageSize caps a rewritten TOP-N request at the back end's 5,000-row
// page size.
const maxTopPageSize = 5000

// defaultPageSize is used when the caller does not override it.
const defaultPageSize = 5000

// Scan is the paged entity scan leaf: it converts a back-end
// query to a stream of rows by iterating pages.
type Scan struct {
	QueryText      string
	Entity         string
	AutoPage       bool
	Aggregate      bool
	IncludeCount   bool
	StartPage      int
	StartCookie    string
	RowCap         int64 // 0 = unbounded
	PageSize       int
	TopN           int // 0 = no TOP rewrite
	ServerSideJoin bool
	ParentKeyAttr  string // attribute identifying the parent row when ServerSideJoin
}

// NewScan builds a scan over queryText against entity. Scans default to
// auto-paging at the back end's 5,000-row page size.
func NewScan(entity, queryText string) *Scan {
	return &Scan{
		QueryText: queryText,
		Entity:    entity,
		AutoPage:  true,
		PageSize:  defaultPageSize,
	}
}

func (s *Scan) Description() string     { return "Scan(" + s.Entity + ")" }
func (s *Scan) Children() []engine.Node { return nil }
func (s *Scan) EstimatedRows() int64 {
	if s.RowCap > 0 {
		return s.RowCap
	}
	return -1
}

func (s *Scan) Execute(ctx *engine.ExecContext) (engine.RowIter, error) {
	pageSize := s.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	// Top-N handling: TOP and paging are mutually exclusive at the back
	// end, so a TOP-N request is rewritten to a first-page-of-size-N fetch
	// capped at the page-size limit. The original query text is preserved
	// for diagnostics.
	autoPage := s.AutoPage
	if s.TopN > 0 {
		n := s.TopN
		if n > maxTopPageSize {
			n = maxTopPageSize
		}
		pageSize = n
		autoPage = false
	}

	span, finish := ctx.StartSpan(s.Description())
	return &scanIter{
		scan:       s,
		cookie:     s.StartCookie,
		page:       firstPageNumber(s.StartPage),
		pageSize:   pageSize,
		autoPage:   autoPage,
		span:       span,
		finishSpan: finish,
	}, nil
}

func firstPageNumber(start int) int {
	if start > 0 {
		return start
	}
	return 1
}

// GroupContinuity is implemented by row sources that can report whether
// the most recently returned row continues the previous row group across
// a page boundary rather than starting a new one. A streaming consumer
// that groups by parent without materializing its input type-asserts its
// source iterator and honors the signal; consumers that buffer the whole
// input first (merge-aggregate, window) reassemble split groups in the
// buffer and don't need it.
type GroupContinuity interface {
	ContinuesGroup() bool
}

type scanIter struct {
	scan     *Scan
	cookie   string
	page     int
	pageSize int
	autoPage bool

	buffer  []engine.Row
	pos     int
	done    bool
	yielded int64
	pages   int

	span       opentracing.Span
	finishSpan func()

	// Server-side join bookkeeping: the parent identifier of the last row
	// emitted on the previous page, and whether the rows currently being
	// yielded are still a continuation of that parent's row group.
	lastParentID   engine.Value
	haveParent     bool
	atBoundary     boundaryState
	continuesGroup bool
}

type boundaryState int

const (
	boundaryNone boundaryState = iota
	boundaryPending
)

func (it *scanIter) Next(ctx *engine.ExecContext) (engine.Row, error) {
	for {
		if err := ctx.Err(); err != nil {
			return engine.Row{}, err
		}
		if it.pos < len(it.buffer) {
			row := it.buffer[it.pos]
			it.pos++
			if it.scan.RowCap > 0 && it.yielded >= it.scan.RowCap {
				return engine.Row{}, engine.EOF
			}
			it.yielded++
			it.trackParent(row)
			return row, nil
		}
		if it.done {
			return engine.Row{}, engine.EOF
		}
		if err := it.fetchPage(ctx); err != nil {
			return engine.Row{}, err
		}
	}
}

// trackParent updates the server-side-join boundary bookkeeping for one
// yielded row. A row group straddles a page boundary when a new page's
// leading rows carry the same parent identifier the previous page ended
// on; those leading rows are flagged as a continuation, and the flag
// drops as soon as a new parent appears. Scans without a server-side join
// skip all of this.
func (it *scanIter) trackParent(row engine.Row) {
	if !it.scan.ServerSideJoin || it.scan.ParentKeyAttr == "" {
		return
	}
	pid := row.MustGet(it.scan.ParentKeyAttr)
	if it.atBoundary == boundaryPending {
		it.continuesGroup = it.haveParent && !pid.IsNull() &&
			pid.StringKey() == it.lastParentID.StringKey()
		if !it.continuesGroup {
			it.atBoundary = boundaryNone
		}
	} else {
		it.continuesGroup = false
	}
	it.lastParentID = pid
	it.haveParent = !pid.IsNull()
}

// ContinuesGroup reports whether the row most recently returned by Next
// continues the previous page's final row group.
func (it *scanIter) ContinuesGroup() bool { return it.continuesGroup }

func (it *scanIter) fetchPage(ctx *engine.ExecContext) error {
	result, err := ctx.QueryExecutor.ExecuteQuery(ctx, it.scan.QueryText, it.pageSize, it.cookie, it.scan.IncludeCount)
	if err != nil {
		return engine.ErrBackEnd.Wrap(err, err.Error())
	}
	ctx.Stats.AddPage()
	ctx.Stats.AddRows(int64(len(result.Records)))
	it.pages++

	it.buffer = result.Records
	it.pos = 0
	if it.scan.ServerSideJoin && it.haveParent {
		it.atBoundary = boundaryPending
	}

	if !result.MoreRecords || !it.autoPage {
		it.done = true
	} else {
		it.cookie = result.PagingCookie
		it.page = result.PageNumber + 1
	}
	return nil
}

func (it *scanIter) Close(ctx *engine.ExecContext) error {
	if it.finishSpan != nil {
		it.span.SetTag("pages", it.pages)
		it.span.SetTag("rows", it.yielded)
		it.finishSpan()
		it.finishSpan = nil
	}
	it.buffer = nil
	it.done = true
	return nil
}
