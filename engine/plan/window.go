package plan

import (
	"sort"

	"github.com/ppds-sql/queryengine/engine"
)

// WindowFunc enumerates the supported window functions. The
// frame is always the whole partition in this release: SUM/COUNT/AVG/
// MIN/MAX do not honor a ROWS/RANGE clause.
type WindowFunc int

const (
	WindowRowNumber WindowFunc = iota
	WindowRank
	WindowDenseRank
	WindowSum
	WindowCount
	WindowAvg
	WindowMin
	WindowMax
)

// OrderKey is one ORDER BY term within a window definition.
type OrderKey struct {
	Column string
	Desc   bool
}

// WindowDef describes one window definition: output name, function,
// operand column (ignored for ROW_NUMBER/RANK/DENSE_RANK), partition keys,
// order keys, and a count-star flag for COUNT(*).
type WindowDef struct {
	Output      string
	Func        WindowFunc
	Operand     string
	PartitionBy []string
	OrderBy     []OrderKey
	CountStar   bool
}

// DefaultMaterializationLimit caps the window operator's input buffer
// ; exceeding it is a fatal, typed error recommending WHERE or
// TOP, not a silent truncation.
const DefaultMaterializationLimit = 500000

// Window materializes its entire input, then computes one or more window
// definitions per row.
type Window struct {
	Source               engine.Node
	Definitions          []WindowDef
	MaterializationLimit int
}

// NewWindow builds a window operator over source.
func NewWindow(source engine.Node, defs []WindowDef) *Window {
	return &Window{Source: source, Definitions: defs, MaterializationLimit: DefaultMaterializationLimit}
}

func (w *Window) Description() string     { return "Window" }
func (w *Window) Children() []engine.Node { return []engine.Node{w.Source} }
func (w *Window) EstimatedRows() int64    { return w.Source.EstimatedRows() }

func (w *Window) Execute(ctx *engine.ExecContext) (engine.RowIter, error) {
	iter, err := w.Source.Execute(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := w.materialize(ctx, iter)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return engine.NewSliceIter(nil), nil
	}

	limit := w.MaterializationLimit
	if limit <= 0 {
		limit = DefaultMaterializationLimit
	}

	results := make([]engine.Row, len(rows))
	copy(results, rows)

	for _, def := range w.Definitions {
		if err := w.applyDefinition(def, results); err != nil {
			return nil, err
		}
	}
	return engine.NewSliceIter(results), nil
}

func (w *Window) materialize(ctx *engine.ExecContext, iter engine.RowIter) ([]engine.Row, error) {
	defer iter.Close(ctx)
	limit := w.MaterializationLimit
	if limit <= 0 {
		limit = DefaultMaterializationLimit
	}
	var rows []engine.Row
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := iter.Next(ctx)
		if err == engine.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}
		if len(rows) >= limit {
			return nil, engine.ErrMaterializationLimitExceeded.New(limit)
		}
		rows = append(rows, row)
	}
}

func (w *Window) applyDefinition(def WindowDef, rows []engine.Row) error {
	partitions := partitionRows(rows, def.PartitionBy)
	for _, idxs := range partitions {
		sortPartition(rows, idxs, def.OrderBy)
		if err := assignWindowValues(rows, idxs, def); err != nil {
			return err
		}
	}
	return nil
}

// partitionRows groups row indices by their PARTITION BY key, preserving
// first-seen order of partition keys.
func partitionRows(rows []engine.Row, partitionBy []string) [][]int {
	if len(partitionBy) == 0 {
		idxs := make([]int, len(rows))
		for i := range rows {
			idxs[i] = i
		}
		return [][]int{idxs}
	}
	order := []uint64{}
	groups := map[uint64][]int{}
	for i, row := range rows {
		key, _ := engine.GroupKey(row, partitionBy)
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], i)
	}
	out := make([][]int, 0, len(order))
	for _, key := range order {
		out = append(out, groups[key])
	}
	return out
}

func sortPartition(rows []engine.Row, idxs []int, orderBy []OrderKey) {
	if len(orderBy) == 0 {
		return
	}
	sort.SliceStable(idxs, func(a, b int) bool {
		ra, rb := rows[idxs[a]], rows[idxs[b]]
		for _, key := range orderBy {
			va, vb := ra.MustGet(key.Column), rb.MustGet(key.Column)
			cmp := compareValues(va, vb)
			if cmp == 0 {
				continue
			}
			if key.Desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
}

// compareValues orders Values for sort/window purposes: nulls sort first,
// then numeric comparison for numeric kinds, else lexical string
// comparison.
func compareValues(a, b engine.Value) int {
	if a.IsNull() && b.IsNull() {
		return 0
	}
	if a.IsNull() {
		return -1
	}
	if b.IsNull() {
		return 1
	}
	if ra, ok := toRat(a); ok {
		if rb, ok := toRat(b); ok {
			return ra.Cmp(rb)
		}
	}
	as, bs := a.String(), b.String()
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	default:
		return 0
	}
}

func assignWindowValues(rows []engine.Row, idxs []int, def WindowDef) error {
	switch def.Func {
	case WindowRowNumber:
		for seq, idx := range idxs {
			rows[idx] = rows[idx].With(def.Output, engine.Int(int64(seq+1)))
		}
		return nil
	case WindowRank:
		assignRank(rows, idxs, def, false)
		return nil
	case WindowDenseRank:
		assignRank(rows, idxs, def, true)
		return nil
	}

	// SUM/COUNT/AVG/MIN/MAX apply over the whole partition.
	var sum engine.Value = engine.Null()
	var count int64
	var min, max engine.Value
	haveMinMax := false
	for _, idx := range idxs {
		var v engine.Value
		if def.CountStar {
			v = engine.Int(1)
		} else {
			v = rows[idx].MustGet(def.Operand)
		}
		if !v.IsNull() {
			count++
			sum = engine.Add(sum, v)
			if !haveMinMax {
				min, max = v, v
				haveMinMax = true
			} else {
				min = engine.Min(min, v)
				max = engine.Max(max, v)
			}
		}
	}

	var result engine.Value
	switch def.Func {
	case WindowSum:
		result = sum
	case WindowCount:
		result = engine.Int(count)
	case WindowAvg:
		if count == 0 {
			result = engine.Null()
		} else {
			result = divideByInt(sum, count)
		}
	case WindowMin:
		if haveMinMax {
			result = min
		} else {
			result = engine.Null()
		}
	case WindowMax:
		if haveMinMax {
			result = max
		} else {
			result = engine.Null()
		}
	}
	for _, idx := range idxs {
		rows[idx] = rows[idx].With(def.Output, result)
	}
	return nil
}

// assignRank assigns RANK (dense-with-gaps: ties share a rank, the next
// rank equals the 1-based position) or DENSE_RANK (dense-no-gaps) within
// an already order-sorted partition.
func assignRank(rows []engine.Row, idxs []int, def WindowDef, dense bool) {
	var rank int64
	var seen int64
	var prev []engine.Value
	for i, idx := range idxs {
		cur := make([]engine.Value, len(def.OrderBy))
		for k, key := range def.OrderBy {
			cur[k] = rows[idx].MustGet(key.Column)
		}
		seen++
		if i == 0 || !sameValues(prev, cur) {
			if dense {
				rank++
			} else {
				rank = seen
			}
		}
		rows[idx] = rows[idx].With(def.Output, engine.Int(rank))
		prev = cur
	}
}

func sameValues(a, b []engine.Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].StringKey() != b[i].StringKey() {
			return false
		}
	}
	return true
}
