package plan

import "github.com/ppds-sql/queryengine/engine"

// OffsetFetch discards the first Offset rows, then yields up to Fetch more
// (Fetch == -1 means unbounded). Integer literals only; negative Offset or
// Fetch < -1 fail at plan time.
type OffsetFetch struct {
	Source engine.Node
	Offset int64
	Fetch  int64
}

// NewOffsetFetch builds an offset/fetch operator. fetch == -1 means
// unbounded.
func NewOffsetFetch(source engine.Node, offset, fetch int64) (*OffsetFetch, error) {
	if offset < 0 {
		return nil, engine.ErrInvalidLiteral.New("OFFSET", offset)
	}
	if fetch < -1 {
		return nil, engine.ErrInvalidLiteral.New("FETCH", fetch)
	}
	return &OffsetFetch{Source: source, Offset: offset, Fetch: fetch}, nil
}

func (o *OffsetFetch) Description() string     { return "OffsetFetch" }
func (o *OffsetFetch) Children() []engine.Node { return []engine.Node{o.Source} }
func (o *OffsetFetch) EstimatedRows() int64 {
	if o.Fetch >= 0 {
		return o.Fetch
	}
	return -1
}

func (o *OffsetFetch) Execute(ctx *engine.ExecContext) (engine.RowIter, error) {
	iter, err := o.Source.Execute(ctx)
	if err != nil {
		return nil, err
	}
	return &offsetFetchIter{source: iter, remainingOffset: o.Offset, fetch: o.Fetch}, nil
}

type offsetFetchIter struct {
	source          engine.RowIter
	remainingOffset int64
	fetch           int64
	yielded         int64
	done            bool
}

func (it *offsetFetchIter) Next(ctx *engine.ExecContext) (engine.Row, error) {
	if it.done {
		return engine.Row{}, engine.EOF
	}
	if it.fetch >= 0 && it.yielded >= it.fetch {
		it.done = true
		return engine.Row{}, engine.EOF
	}
	for it.remainingOffset > 0 {
		if err := ctx.Err(); err != nil {
			return engine.Row{}, err
		}
		_, err := it.source.Next(ctx)
		if err != nil {
			return engine.Row{}, err
		}
		it.remainingOffset--
	}
	row, err := it.source.Next(ctx)
	if err != nil {
		return engine.Row{}, err
	}
	it.yielded++
	return row, nil
}

func (it *offsetFetchIter) Close(ctx *engine.ExecContext) error { return it.source.Close(ctx) }
