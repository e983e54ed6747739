package engine

import "context"

// The types in this file are the contract surface for every external
// collaborator the engine depends on: the FetchXML-speaking back end, the
// metadata catalog, the optional TDS endpoint, the FetchXML generator, and
// the expression compiler. engine/plan and engine/builder consume these
// interfaces but never implement them; enginetest/fixture implements the
// query, metadata, write, and expression-compiler contracts for tests, and
// individual test files define further stubs of their own.

// QueryResult is the back end's response to one page request.
type QueryResult struct {
	Records      []Row
	MoreRecords  bool
	PagingCookie string
	PageNumber   int
	Count        *int
}

// QueryExecutor is the back-end entity query executor.
type QueryExecutor interface {
	ExecuteQuery(ctx context.Context, queryText string, pageSize int, pagingCookie string, includeCount bool) (QueryResult, error)
}

// MetadataExecutor answers metadata pseudo-schema queries (entity,
// attribute, relationship) for the metadata scan leaf.
type MetadataExecutor interface {
	QueryMetadata(ctx context.Context, pseudoEntity string, requestedColumns []string) ([]Row, error)
}

// TDSExecutor is the optional SQL-speaking passthrough endpoint. A nil
// TDSExecutor disables TDS passthrough at plan time.
type TDSExecutor interface {
	ExecuteSQL(ctx context.Context, sqlText string) ([]Row, error)
}

// MessageExecutor invokes a named back-end message with typed parameters
// for the execute-message operator.
type MessageExecutor interface {
	ExecuteMessage(ctx context.Context, name string, params map[string]Value) (map[string]Value, error)
}

// VirtualColumn describes an alias the FetchXML generator introduced to
// back a SQL-visible column with no raw backing attribute.
type VirtualColumn struct {
	SourceColumn string
	Kind         string
}

// GeneratedQuery is the FetchXML generator's output.
type GeneratedQuery struct {
	QueryText      string
	VirtualColumns map[string]VirtualColumn
}

// FetchXMLGenerator is implemented by the external AST-to-FetchXML
// translator. The Builder calls it once per routed SELECT/DML statement.
type FetchXMLGenerator interface {
	Generate(statement interface{}) (GeneratedQuery, error)
}

// ScalarFunc is an opaque row-to-value callable produced by the expression
// compiler. The runtime never inspects how it was built.
type ScalarFunc func(row Row) (Value, error)

// PredicateFunc is an opaque row-to-bool callable produced by the
// expression compiler.
type PredicateFunc func(row Row) (bool, error)

// ExpressionCompiler is implemented by the external expression compiler.
type ExpressionCompiler interface {
	CompileScalar(expr interface{}) (ScalarFunc, error)
	CompilePredicate(expr interface{}) (PredicateFunc, error)
}

// WriteOp is the kind of write a DML operator submits.
type WriteOp int

const (
	WriteCreate WriteOp = iota
	WriteUpdate
	WriteDelete
)

// WriteRequest is one row's worth of write payload: a create carries no
// ID, an update/delete is keyed by the target entity's primary key.
type WriteRequest struct {
	Entity     string
	Operation  WriteOp
	ID         Value // primary key; IsNull() for WriteCreate
	Attributes map[string]Value
}

// WriteOptions carries the batch strategy and options DML operators read
// from query hints and profile defaults: single vs. batched
// submission, bypass-plugins, bypass-flows, no-lock.
type WriteOptions struct {
	BatchSize     int
	BypassPlugins bool
	BypassFlows   bool
	NoLock        bool
}

// WriteExecutor submits a batch of writes to the back end and returns the
// number of rows affected. This is the DML write counterpart to
// QueryExecutor; naming it keeps the DML operators (engine/plan) as free
// of back-end specifics as the scans.
type WriteExecutor interface {
	Execute(ctx context.Context, requests []WriteRequest, options WriteOptions) (rowsAffected int64, err error)
}
