package plan

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/ppds-sql/queryengine/engine"
)

// DefaultParallelism is used when no query hint, profile default, or
// explicit construction argument supplies p.
const DefaultParallelism = 4

// ParallelPartition runs up to P child pipelines concurrently and
// multiplexes their outputs. Row order across partitions is
// unspecified; order within a partition is preserved. Cancellation or
// failure of any partition cancels the rest and surfaces the first
// failure, via golang.org/x/sync's errgroup+semaphore.
type ParallelPartition struct {
	Partitions []engine.Node
	P          int
}

// NewParallelPartition runs partitions with at most p running concurrently.
// p <= 0 falls back to DefaultParallelism.
func NewParallelPartition(partitions []engine.Node, p int) *ParallelPartition {
	if p <= 0 {
		p = DefaultParallelism
	}
	return &ParallelPartition{Partitions: partitions, P: p}
}

func (pp *ParallelPartition) Description() string     { return "ParallelPartition" }
func (pp *ParallelPartition) Children() []engine.Node { return pp.Partitions }
func (pp *ParallelPartition) EstimatedRows() int64 {
	total := int64(0)
	for _, p := range pp.Partitions {
		r := p.EstimatedRows()
		if r < 0 {
			return -1
		}
		total += r
	}
	return total
}

func (pp *ParallelPartition) Execute(ctx *engine.ExecContext) (engine.RowIter, error) {
	span, finishSpan := ctx.StartSpan(pp.Description())
	span.SetTag("partitions", len(pp.Partitions))
	span.SetTag("parallelism", pp.P)

	out := make(chan engine.Row, pp.P)
	groupCtx, cancel := context.WithCancel(ctx.Context)
	g, gctx := errgroup.WithContext(groupCtx)
	sem := semaphore.NewWeighted(int64(pp.P))

	execCtx := ctx.WithContext(gctx)

	var wg sync.WaitGroup
	for _, part := range pp.Partitions {
		part := part
		wg.Add(1)
		g.Go(func() error {
			defer wg.Done()
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			iter, err := part.Execute(execCtx)
			if err != nil {
				return err
			}
			defer iter.Close(execCtx)

			for {
				row, err := iter.Next(execCtx)
				if err == engine.EOF {
					return nil
				}
				if err != nil {
					return err
				}
				select {
				case out <- row:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
		})
	}

	errc := make(chan error, 1)
	go func() {
		wg.Wait()
		close(out)
		errc <- g.Wait()
	}()

	return &parallelIter{out: out, errc: errc, cancel: cancel, finishSpan: finishSpan}, nil
}

type parallelIter struct {
	out        <-chan engine.Row
	errc       chan error
	cancel     context.CancelFunc
	err        error
	done       bool
	finishSpan func()
}

func (it *parallelIter) Next(ctx *engine.ExecContext) (engine.Row, error) {
	if it.done {
		return engine.Row{}, engine.EOF
	}
	select {
	case row, ok := <-it.out:
		if !ok {
			it.done = true
			if err := <-it.errc; err != nil {
				return engine.Row{}, err
			}
			return engine.Row{}, engine.EOF
		}
		return row, nil
	case <-ctx.Done():
		it.Close(ctx)
		return engine.Row{}, ctx.Err()
	}
}

func (it *parallelIter) Close(ctx *engine.ExecContext) error {
	it.cancel()
	if !it.done {
		it.done = true
		for range it.out {
			// drain so partition goroutines blocked on a send don't leak
		}
		<-it.errc
	}
	if it.finishSpan != nil {
		it.finishSpan()
		it.finishSpan = nil
	}
	return nil
}
