package plan

import (
	"github.com/ppds-sql/queryengine/engine"
)

// AggFunc enumerates the mergeable aggregate functions.
// COUNT(DISTINCT) is deliberately absent: partial distinct counts can't be
// summed without double-counting, so it is never partitioned.
type AggFunc int

const (
	AggCount AggFunc = iota
	AggSum
	AggMin
	AggMax
	AggAvg
)

// AggSpec describes one aggregate column to merge: its output alias, the
// merge function, the source column holding partial values, and — for
// AggAvg — the companion count-column alias the Builder injected so the
// merge can compute a weighted average.
type AggSpec struct {
	Alias        string
	Func         AggFunc
	SourceColumn string
	WeightColumn string // AggAvg only; "" triggers the unweighted-mean fallback
}

// MergeAggregate regroups the multiplexed partition stream by the GROUP BY
// columns (stringified, nulls grouped together) and combines partial
// aggregates per function.
type MergeAggregate struct {
	Source     engine.Node
	GroupBy    []string
	Aggregates []AggSpec
}

// NewMergeAggregate builds a merge-aggregate operator over source.
func NewMergeAggregate(source engine.Node, groupBy []string, aggregates []AggSpec) *MergeAggregate {
	return &MergeAggregate{Source: source, GroupBy: groupBy, Aggregates: aggregates}
}

func (m *MergeAggregate) Description() string     { return "MergeAggregate" }
func (m *MergeAggregate) Children() []engine.Node { return []engine.Node{m.Source} }
func (m *MergeAggregate) EstimatedRows() int64    { return -1 }

type aggAccumulator struct {
	keyRow              engine.Row
	sums                map[string]engine.Value
	counts              map[string]int64
	weightedNumerator   map[string]engine.Value
	weightedDenominator map[string]engine.Value
	mins                map[string]engine.Value
	maxes               map[string]engine.Value
}

func (m *MergeAggregate) Execute(ctx *engine.ExecContext) (engine.RowIter, error) {
	iter, err := m.Source.Execute(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := engine.StreamAll(ctx, iter)
	if err != nil {
		return nil, err
	}

	order := []uint64{}
	groups := map[uint64]*aggAccumulator{}

	for _, row := range rows {
		key, err := engine.GroupKey(row, m.GroupBy)
		if err != nil {
			return nil, err
		}
		acc, ok := groups[key]
		if !ok {
			acc = &aggAccumulator{
				keyRow:              row.Project(m.GroupBy),
				sums:                map[string]engine.Value{},
				counts:              map[string]int64{},
				weightedNumerator:   map[string]engine.Value{},
				weightedDenominator: map[string]engine.Value{},
				mins:                map[string]engine.Value{},
				maxes:               map[string]engine.Value{},
			}
			groups[key] = acc
			order = append(order, key)
		}
		m.accumulate(acc, row)
	}

	out := make([]engine.Row, 0, len(order))
	for _, key := range order {
		out = append(out, m.finalize(groups[key]))
	}
	return engine.NewSliceIter(out), nil
}

func (m *MergeAggregate) accumulate(acc *aggAccumulator, row engine.Row) {
	for _, spec := range m.Aggregates {
		val := row.MustGet(spec.SourceColumn)
		switch spec.Func {
		case AggCount, AggSum:
			cur, ok := acc.sums[spec.Alias]
			if !ok {
				acc.sums[spec.Alias] = val
			} else {
				acc.sums[spec.Alias] = engine.Add(cur, val)
			}
		case AggMin:
			cur, ok := acc.mins[spec.Alias]
			if !ok {
				acc.mins[spec.Alias] = val
			} else {
				acc.mins[spec.Alias] = engine.Min(cur, val)
			}
		case AggMax:
			cur, ok := acc.maxes[spec.Alias]
			if !ok {
				acc.maxes[spec.Alias] = val
			} else {
				acc.maxes[spec.Alias] = engine.Max(cur, val)
			}
		case AggAvg:
			if spec.WeightColumn != "" {
				weight := row.MustGet(spec.WeightColumn)
				num, hasNum := acc.weightedNumerator[spec.Alias]
				den, hasDen := acc.weightedDenominator[spec.Alias]
				contribution := multiply(val, weight)
				if !hasNum {
					num = contribution
				} else {
					num = engine.Add(num, contribution)
				}
				if !hasDen {
					den = weight
				} else {
					den = engine.Add(den, weight)
				}
				acc.weightedNumerator[spec.Alias] = num
				acc.weightedDenominator[spec.Alias] = den
			} else {
				// Fallback when no companion COUNT was emitted: unweighted
				// mean over the partial averages seen.
				cur, ok := acc.sums[spec.Alias]
				if !ok {
					acc.sums[spec.Alias] = val
				} else {
					acc.sums[spec.Alias] = engine.Add(cur, val)
				}
				acc.counts[spec.Alias]++
			}
		}
	}
}

func (m *MergeAggregate) finalize(acc *aggAccumulator) engine.Row {
	row := acc.keyRow
	for _, spec := range m.Aggregates {
		var val engine.Value
		switch spec.Func {
		case AggCount, AggSum:
			val = acc.sums[spec.Alias]
		case AggMin:
			val = acc.mins[spec.Alias]
		case AggMax:
			val = acc.maxes[spec.Alias]
		case AggAvg:
			if spec.WeightColumn != "" {
				num, hasNum := acc.weightedNumerator[spec.Alias]
				den, hasDen := acc.weightedDenominator[spec.Alias]
				if !hasNum || !hasDen {
					val = engine.Null()
				} else {
					val = divide(num, den)
				}
			} else {
				sum := acc.sums[spec.Alias]
				count := acc.counts[spec.Alias]
				if count == 0 {
					val = engine.Null()
				} else {
					val = divideByInt(sum, count)
				}
			}
		}
		row = row.With(spec.Alias, val)
	}
	return row
}
