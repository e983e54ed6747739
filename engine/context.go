package engine

import (
	"context"

	opentracing "github.com/opentracing/opentracing-go"
	"github.com/sirupsen/logrus"
)

// ExecContext is shared across a single plan execution: handles
// to the back-end query executor, metadata executor, optional TDS
// executor, an expression evaluator, a session, and a mutable statistics
// record. It embeds context.Context, which is this engine's cancellation
// signal — every operator checks ctx.Err() at row boundaries and before
// back-end calls.
type ExecContext struct {
	context.Context

	QueryExecutor    QueryExecutor
	MetadataExecutor MetadataExecutor
	TDSExecutor      TDSExecutor
	MessageExecutor  MessageExecutor
	WriteExecutor    WriteExecutor
	Compiler         ExpressionCompiler

	Session *Session
	Stats   *Stats
	Log     *logrus.Entry
	Tracer  opentracing.Tracer
}

// NewExecContext builds an ExecContext over a parent context.Context and a
// session. Stats starts zeroed; Log defaults to a standard logrus entry
// tagged with the "engine" subsystem field.
func NewExecContext(parent context.Context, session *Session) *ExecContext {
	if parent == nil {
		parent = context.Background()
	}
	return &ExecContext{
		Context: parent,
		Session: session,
		Stats:   &Stats{},
		Log:     logrus.WithField("subsystem", "engine"),
		Tracer:  opentracing.NoopTracer{},
	}
}

// WithContext returns a shallow copy of ec with its embedded
// context.Context replaced, used to thread a derived/cancellable context
// into a child operator (parallel-partition, prefetch) without disturbing
// the shared Session/Stats.
func (ec *ExecContext) WithContext(ctx context.Context) *ExecContext {
	cp := *ec
	cp.Context = ctx
	return &cp
}

// StartSpan starts an opentracing span for a plan-node Execute call,
// named after the node's description. Callers must call the returned
// Finish. A nil Tracer yields a no-op span.
func (ec *ExecContext) StartSpan(operationName string) (opentracing.Span, func()) {
	tracer := ec.Tracer
	if tracer == nil {
		tracer = opentracing.NoopTracer{}
	}
	span := tracer.StartSpan(operationName)
	return span, span.Finish
}
