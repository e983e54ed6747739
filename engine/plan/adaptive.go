package plan

import (
	"fmt"

	"github.com/ppds-sql/queryengine/engine"
	"github.com/ppds-sql/queryengine/engine/partition"
)

// MaxSplitDepth caps adaptive-split recursion so pathological data (a
// partition that always trips the aggregate cap) can't recurse forever.
const MaxSplitDepth = 12

// TemplateQuery builds the back-end query text for a partition's interval,
// injecting a filter on the owning entity's creation timestamp.
type TemplateQuery func(interval partition.Descriptor) string

// AdaptiveAggregateScan is a leaf carrying a template query and a date
// interval. On execution it injects a filter for the interval,
// runs the query, and yields the rows; on an aggregate-cap error it splits
// the interval at the midpoint and recurses on both halves.
type AdaptiveAggregateScan struct {
	Entity   string
	Interval partition.Descriptor
	Template TemplateQuery
	PageSize int
}

// NewAdaptiveAggregateScan builds a leaf over entity for the given interval.
func NewAdaptiveAggregateScan(entity string, interval partition.Descriptor, template TemplateQuery) *AdaptiveAggregateScan {
	return &AdaptiveAggregateScan{Entity: entity, Interval: interval, Template: template, PageSize: defaultPageSize}
}

func (a *AdaptiveAggregateScan) Description() string {
	return fmt.Sprintf("AdaptiveAggregateScan(%s, depth=%d)", a.Entity, a.Interval.Depth)
}
func (a *AdaptiveAggregateScan) Children() []engine.Node { return nil }
func (a *AdaptiveAggregateScan) EstimatedRows() int64    { return -1 }

func (a *AdaptiveAggregateScan) Execute(ctx *engine.ExecContext) (engine.RowIter, error) {
	span, finish := ctx.StartSpan(a.Description())
	defer finish()

	rows, err := a.run(ctx, a.Interval)
	if err != nil {
		return nil, err
	}
	span.SetTag("rows", len(rows))
	return engine.NewSliceIter(rows), nil
}

func (a *AdaptiveAggregateScan) run(ctx *engine.ExecContext, interval partition.Descriptor) ([]engine.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	queryText := a.Template(interval)
	result, err := ctx.QueryExecutor.ExecuteQuery(ctx, queryText, a.pageSize(), "", false)
	if err == nil {
		ctx.Stats.AddPage()
		ctx.Stats.AddRows(int64(len(result.Records)))
		return result.Records, nil
	}

	if !engine.ErrAggregateCapExceeded.Is(err) {
		return nil, engine.ErrBackEnd.Wrap(err, err.Error())
	}
	if interval.Depth >= MaxSplitDepth {
		return nil, engine.ErrAggregateCapExceeded.New()
	}

	ctx.Log.WithField("depth", interval.Depth).Debug("aggregate cap exceeded, splitting interval")
	ctx.Stats.AddRetry()

	left, right := interval.Split()
	leftRows, err := a.run(ctx, left)
	if err != nil {
		return nil, err
	}
	rightRows, err := a.run(ctx, right)
	if err != nil {
		return nil, err
	}
	return append(leftRows, rightRows...), nil
}

func (a *AdaptiveAggregateScan) pageSize() int {
	if a.PageSize > 0 {
		return a.PageSize
	}
	return defaultPageSize
}
