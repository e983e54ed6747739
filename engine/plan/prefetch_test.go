package plan

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ppds-sql/queryengine/engine"
)

// countingNode counts rows as the producer pulls them, so tests can
// observe how far ahead of the consumer the producer ran.
type countingNode struct {
	total    int
	produced int64
}

func (n *countingNode) Description() string     { return "counting" }
func (n *countingNode) Children() []engine.Node { return nil }
func (n *countingNode) EstimatedRows() int64    { return int64(n.total) }
func (n *countingNode) Execute(ctx *engine.ExecContext) (engine.RowIter, error) {
	return &countingIter{node: n}, nil
}

type countingIter struct {
	node *countingNode
	pos  int
}

func (it *countingIter) Next(ctx *engine.ExecContext) (engine.Row, error) {
	if it.pos >= it.node.total {
		return engine.Row{}, engine.EOF
	}
	row := intRow([]string{"n"}, int64(it.pos))
	it.pos++
	atomic.AddInt64(&it.node.produced, 1)
	return row, nil
}

func (it *countingIter) Close(ctx *engine.ExecContext) error { return nil }

func TestPrefetchDeliversAllRowsInOrder(t *testing.T) {
	source := &countingNode{total: 50}
	ctx := testCtx(t)

	rows := drainNode(t, ctx, NewPrefetch(source, 8))

	require.Len(t, rows, 50)
	for i, row := range rows {
		n, _ := row.MustGet("n").AsInt()
		require.EqualValues(t, i, n)
	}
}

func TestPrefetchBoundsProducerLead(t *testing.T) {
	// With buffer b, the producer may hold one row in hand beyond the b
	// buffered ones: produced <= consumed + b + 1 at every observation.
	const buffer = 5
	source := &countingNode{total: 200}
	ctx := testCtx(t)

	iter, err := NewPrefetch(source, buffer).Execute(ctx)
	require.NoError(t, err)
	defer iter.Close(ctx)

	consumed := int64(0)
	for {
		_, err := iter.Next(ctx)
		if err == engine.EOF {
			break
		}
		require.NoError(t, err)
		consumed++
		if consumed%10 == 0 {
			time.Sleep(5 * time.Millisecond)
			produced := atomic.LoadInt64(&source.produced)
			require.LessOrEqual(t, produced, consumed+buffer+1,
				"producer ran too far ahead of consumer")
		}
	}
	require.EqualValues(t, 200, consumed)
}

func TestPrefetchSurfacesSourceFailure(t *testing.T) {
	boom := errors.New("boom")
	source := &failingNode{rows: []engine.Row{intRow([]string{"n"}, 1)}, err: boom}
	ctx := testCtx(t)

	iter, err := NewPrefetch(source, 4).Execute(ctx)
	require.NoError(t, err)
	defer iter.Close(ctx)

	_, err = iter.Next(ctx)
	require.NoError(t, err)
	_, err = iter.Next(ctx)
	require.ErrorIs(t, err, boom)
}

func TestPrefetchCancellationDoesNotHang(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	ctx := engine.NewExecContext(parent, engine.NewSession())

	source := &countingNode{total: 1000000}
	iter, err := NewPrefetch(source, 2).Execute(ctx)
	require.NoError(t, err)

	_, err = iter.Next(ctx)
	require.NoError(t, err)

	cancel()
	done := make(chan struct{})
	go func() {
		iter.Close(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("prefetch Close hung after cancellation")
	}
}

func TestPrefetchInvalidBufferFallsBackToDefault(t *testing.T) {
	p := NewPrefetch(&countingNode{total: 3}, 0)
	ctx := testCtx(t)
	rows := drainNode(t, ctx, p)
	require.Len(t, rows, 3)
}

func TestPrefetchCloseWithoutDrainReleasesProducer(t *testing.T) {
	source := &countingNode{total: 100000}
	ctx := testCtx(t)

	iter, err := NewPrefetch(source, 3).Execute(ctx)
	require.NoError(t, err)
	_, err = iter.Next(ctx)
	require.NoError(t, err)
	require.NoError(t, iter.Close(ctx))
}
