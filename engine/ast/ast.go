// Package ast defines the statement tree the builder dispatches on.
// The engine does not parse SQL itself; an external parser populates
// these nodes, and expressions (WHERE, SET, computed columns) stay opaque
// interface{} values that only the external expression compiler
// understands.
package ast

// Statement is any of the node kinds the builder dispatches on.
type Statement interface{ isStatement() }

// Pos is a statement's position within the original SQL text (1-based
// line and column), populated by the external parser. The zero value
// means unknown. Embedding Pos gives every statement node the Position
// method the builder uses to tag failures.
type Pos struct {
	Line   int
	Column int
}

// Position returns the embedded position.
func (p Pos) Position() Pos { return p }

// Expr wraps an opaque expression handed to the expression compiler
// unexamined.
type Expr = interface{}

// Select carries with-ctes, a query expression (single spec or a binary
// set operation tree), order-by, and offset/fetch.
type Select struct {
	Pos

	CTEs    []CTE
	Query   QueryExpression
	OrderBy []OrderTerm
	Offset  *int64
	Fetch   *int64
	RawSQL  string // original SQL text, used by the TDS compatibility predicate and hint-comment scan
}

func (*Select) isStatement() {}

// QueryExpression is either *SelectSpec or *BinaryQuery.
type QueryExpression interface{ isQueryExpression() }

// CTE is one WITH-clause entry. Recursive is decided by the builder
// by scanning Query for a self-reference, not supplied by the parser.
type CTE struct {
	Name    string
	Columns []string
	Query   *Select
}

// SelectSpec carries columns, from, where, group-by, having, top,
// distinct, and options-clause.
type SelectSpec struct {
	Columns     []SelectColumn
	From        FromClause
	Where       Expr // pushed down to the FetchXML generator
	ClientWhere Expr // residual predicate the back end can't express (cross-column comparisons, computed expressions); applied client-side after the scan
	GroupBy     []string
	Having      Expr
	Top         *int64
	Distinct    bool
	Options     OptionsClause

	// Aggregates is non-nil when the external analyzer identified this
	// query as a groupable aggregate; nil otherwise.
	Aggregates []AggregateSpec
}

func (*SelectSpec) isQueryExpression() {}

// SetOp names a binary query-expression operator.
type SetOp int

const (
	SetOpUnion SetOp = iota
	SetOpIntersect
	SetOpExcept
)

// BinaryQuery is a two-branch UNION/INTERSECT/EXCEPT node. Right-deep
// UNION chains are represented as nested BinaryQuery values; the builder
// flattens them.
type BinaryQuery struct {
	Op    SetOp
	All   bool
	Left  QueryExpression
	Right QueryExpression
}

func (*BinaryQuery) isQueryExpression() {}

// SelectColumn is one projected output column: pass-through, a rename,
// or a computed expression.
type SelectColumn struct {
	SourceColumn string      // pass-through or rename source; empty if Computed is set
	Alias        string      // output name; defaults to SourceColumn if empty
	Computed     Expr        // non-nil for a computed column
	Wildcard     bool        // SELECT * or SELECT alias.*
	Window       *WindowSpec // non-nil for an OVER(...) window column
}

// WindowSpec describes one window definition attached to an output
// column: function, operand, partition/order keys, count-star flag.
type WindowSpec struct {
	Func        string
	Operand     string
	PartitionBy []string
	OrderBy     []OrderTerm
	CountStar   bool
}

// AggregateSpec identifies one aggregate-function output column of a
// groupable aggregate query, pre-identified by the external
// analyzer so the builder can decide whether to route to partitioned
// aggregation without itself inspecting the SELECT list's expressions.
type AggregateSpec struct {
	Alias        string
	Func         string // COUNT, SUM, MIN, MAX, AVG
	SourceColumn string
}

// FromClause names the scan target: a regular entity, the metadata
// pseudo-schema, or a table-valued function call, with an optional
// server-side linked-entity join.
type FromClause struct {
	Entity     string
	IsMetadata bool
	TVF        *TVFCall
	Join       *JoinClause
}

// JoinClause is a server-side linked-entity join attached to From. The
// back end evaluates at most LEFT OUTER server-side; FullOuter asks the
// engine to restore FULL OUTER semantics by completing the unmatched
// right-side rows client-side after the scan.
type JoinClause struct {
	Entity      string // right-side entity
	FullOuter   bool
	LeftKey     string   // column on the joined stream carrying the right-side key
	RightKey    string   // key column on the right entity
	LeftColumns []string // left-side output columns, null-padded on unmatched right rows
}

// TVFCall is a table-valued function invocation in FROM, e.g. STRING_SPLIT.
type TVFCall struct {
	Name  string
	Args  []Expr
	Alias string
}

// OptionsClause is the T-SQL OPTION(...) clause; only MAXDOP is extracted.
type OptionsClause struct {
	MaxDOP *int
}

// OrderTerm is one ORDER BY entry.
type OrderTerm struct {
	Column string
	Desc   bool
}

// Insert, Update, Delete, Merge carry enough for the builder to construct
// the corresponding plan.DML nodes; row sourcing (literal rows
// vs. a SELECT) is distinguished by which fields are set.
type Insert struct {
	Pos

	Entity        string
	TargetColumns []string
	LiteralRows   [][]ColumnAssign // set for insert-values
	Source        *Select          // set for insert-select
}

func (*Insert) isStatement() {}

type ColumnAssign struct {
	Column string
	Value  Expr
}

type Update struct {
	Pos

	Entity    string
	Sets      []ColumnAssign
	Where     Expr
	KeyColumn string
}

func (*Update) isStatement() {}

type Delete struct {
	Pos

	Entity    string
	Where     Expr
	KeyColumn string
}

func (*Delete) isStatement() {}

type MergeAction struct {
	Update *[]ColumnAssign // WHEN MATCHED ... UPDATE SET
	Delete bool            // WHEN MATCHED ... DELETE
	Insert []ColumnAssign  // WHEN NOT MATCHED ... INSERT
}

type Merge struct {
	Pos

	Entity          string
	Source          *Select
	SourceKeyColumn string
	TargetKeyColumn string
	Matched         MergeAction
	NotMatched      MergeAction
}

func (*Merge) isStatement() {}

// Control-flow statement kinds.

type If struct {
	Pos

	Cond Expr
	Then []Statement
	Else []Statement
}

func (*If) isStatement() {}

type While struct {
	Pos

	Cond Expr
	Body []Statement
}

func (*While) isStatement() {}

type DeclareVariable struct {
	Pos

	Name string
	Init Expr
}

func (*DeclareVariable) isStatement() {}

type Assign struct {
	Pos

	Name  string
	Value Expr
}

func (*Assign) isStatement() {}

type Begin struct {
	Pos

	Body []Statement
}

func (*Begin) isStatement() {}

type TryCatch struct {
	Pos

	Try   []Statement
	Catch []Statement
}

func (*TryCatch) isStatement() {}

type DeclareCursor struct {
	Pos

	Name  string
	Query *Select
}

func (*DeclareCursor) isStatement() {}

type OpenCursor struct {
	Pos

	Name string
}

func (*OpenCursor) isStatement() {}

type FetchCursor struct {
	Pos

	Name       string
	TargetVars []string
}

func (*FetchCursor) isStatement() {}

type CloseCursor struct {
	Pos

	Name string
}

func (*CloseCursor) isStatement() {}

type DeallocateCursor struct {
	Pos

	Name string
}

func (*DeallocateCursor) isStatement() {}

type ExecuteAs struct {
	Pos

	Principal string
}

func (*ExecuteAs) isStatement() {}

type Revert struct{ Pos }

func (*Revert) isStatement() {}

// Execute is the EXEC <message> statement.
type Execute struct {
	Pos

	MessageName string
	Params      []ColumnAssign
}

func (*Execute) isStatement() {}

type CreateTempTable struct {
	Pos

	Name   string
	Source *Select
}

func (*CreateTempTable) isStatement() {}

type DropTempTable struct {
	Pos

	Name string
}

func (*DropTempTable) isStatement() {}
