package plan

import (
	"context"
	"sync"

	"github.com/ppds-sql/queryengine/engine"
)

// DefaultPrefetchBuffer is the default channel capacity.
const DefaultPrefetchBuffer = 5000

// Prefetch runs its Source in a producer goroutine and yields from a
// bounded channel to the consumer, overlapping back-end I/O
// with downstream consumption.
type Prefetch struct {
	Source engine.Node
	Buffer int
}

// NewPrefetch wraps source with a bounded producer/consumer pipe of
// capacity buffer. An invalid buffer <= 0 falls back to
// DefaultPrefetchBuffer rather than complicating every call site with a
// constructor error.
func NewPrefetch(source engine.Node, buffer int) *Prefetch {
	return &Prefetch{Source: source, Buffer: buffer}
}

func (p *Prefetch) Description() string     { return "Prefetch" }
func (p *Prefetch) Children() []engine.Node { return []engine.Node{p.Source} }
func (p *Prefetch) EstimatedRows() int64    { return p.Source.EstimatedRows() }

func (p *Prefetch) Execute(ctx *engine.ExecContext) (engine.RowIter, error) {
	buffer := p.Buffer
	if buffer <= 0 {
		buffer = DefaultPrefetchBuffer
	}

	childCtx, cancel := context.WithCancel(ctx.Context)
	producerExecCtx := ctx.WithContext(childCtx)

	it := &prefetchIter{
		rows:   make(chan engine.Row, buffer),
		errc:   make(chan error, 1),
		done:   make(chan struct{}),
		cancel: cancel,
	}

	sourceIter, err := p.Source.Execute(producerExecCtx)
	if err != nil {
		cancel()
		return nil, err
	}

	it.wg.Add(1)
	go it.produce(producerExecCtx, sourceIter)

	return it, nil
}

// prefetchIter implements the bounded producer/consumer contract:
// rows are delivered in source order, exactly the source's row
// count is delivered unless cancelled or the producer fails, and the
// operator never hangs on cancel.
type prefetchIter struct {
	rows   chan engine.Row
	errc   chan error
	done   chan struct{}
	cancel context.CancelFunc
	wg     sync.WaitGroup

	closeOnce sync.Once
}

func (it *prefetchIter) produce(ctx *engine.ExecContext, source engine.RowIter) {
	defer it.wg.Done()
	defer source.Close(ctx)
	defer close(it.rows)

	for {
		row, err := source.Next(ctx)
		if err == engine.EOF {
			return
		}
		if err != nil {
			select {
			case it.errc <- err:
			default:
			}
			return
		}
		select {
		case it.rows <- row:
		case <-it.done:
			return
		}
	}
}

func (it *prefetchIter) Next(ctx *engine.ExecContext) (engine.Row, error) {
	select {
	case row, ok := <-it.rows:
		if !ok {
			select {
			case err := <-it.errc:
				return engine.Row{}, err
			default:
				return engine.Row{}, engine.EOF
			}
		}
		return row, nil
	case <-ctx.Done():
		it.Close(ctx)
		return engine.Row{}, ctx.Err()
	}
}

func (it *prefetchIter) Close(ctx *engine.ExecContext) error {
	it.closeOnce.Do(func() {
		close(it.done)
		it.cancel()
	})
	it.wg.Wait()
	return nil
}
