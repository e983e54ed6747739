package plan

import "github.com/ppds-sql/queryengine/engine"

// Statement is one element of a script block's statement list.
// Unlike engine.Node, a Statement may have no rows of its own (DECLARE, SET,
// IF) or may run its nested statements zero, one, or many times (WHILE);
// Execute returns whatever rows the statement (or its nested statements)
// produced, draining them eagerly so control flow can decide what runs next.
type Statement interface {
	Execute(ctx *engine.ExecContext) ([]engine.Row, error)
}

// NodeStatement wraps an ordinary query or DML plan node as a script
// statement, draining it to completion.
type NodeStatement struct {
	Node engine.Node
}

func (s NodeStatement) Execute(ctx *engine.ExecContext) ([]engine.Row, error) {
	iter, err := s.Node.Execute(ctx)
	if err != nil {
		return nil, err
	}
	return engine.StreamAll(ctx, iter)
}

// DeclareVariable creates name in the session's current scope frame, set to
// the evaluated expression. DECLARE with a session missing fails
// at execution time via Execute's own check, matching cursor/impersonation
// statements' dependence on a session.
type DeclareVariable struct {
	Name string
	Expr engine.ScalarFunc
}

func (s DeclareVariable) Execute(ctx *engine.ExecContext) ([]engine.Row, error) {
	if ctx.Session == nil {
		return nil, engine.ErrMissingSession.New()
	}
	v, err := s.Expr(engine.Row{})
	if err != nil {
		return nil, err
	}
	ctx.Session.Variables.Declare(s.Name, v)
	return nil, nil
}

// SetVariable assigns name in the nearest declaring frame.
type SetVariable struct {
	Name string
	Expr engine.ScalarFunc
}

func (s SetVariable) Execute(ctx *engine.ExecContext) ([]engine.Row, error) {
	if ctx.Session == nil {
		return nil, engine.ErrMissingSession.New()
	}
	v, err := s.Expr(engine.Row{})
	if err != nil {
		return nil, err
	}
	ctx.Session.Variables.Assign(s.Name, v)
	return nil, nil
}

// If evaluates Cond against the empty row and runs Then or Else.
type If struct {
	Cond engine.PredicateFunc
	Then []Statement
	Else []Statement
}

func (s If) Execute(ctx *engine.ExecContext) ([]engine.Row, error) {
	ok, err := s.Cond(engine.Row{})
	if err != nil {
		return nil, err
	}
	if ok {
		return runStatements(ctx, s.Then)
	}
	return runStatements(ctx, s.Else)
}

// While runs Body for as long as Cond evaluates true, checking
// ctx.Err() between iterations so a cancelled execution context stops the
// loop instead of running it to completion.
type While struct {
	Cond engine.PredicateFunc
	Body []Statement
}

func (s While) Execute(ctx *engine.ExecContext) ([]engine.Row, error) {
	var out []engine.Row
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ok, err := s.Cond(engine.Row{})
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		rows, err := runStatements(ctx, s.Body)
		if err != nil {
			return nil, err
		}
		out = append(out, rows...)
	}
}

// TryCatch runs Try; any error that is not a cancellation transfers control
// to Catch instead of aborting the script; recoverable handling stays
// local to the operator that introduces it — here, the try/catch block
// itself.
type TryCatch struct {
	Try   []Statement
	Catch []Statement
}

func (s TryCatch) Execute(ctx *engine.ExecContext) ([]engine.Row, error) {
	rows, err := runStatements(ctx, s.Try)
	if err == nil {
		return rows, nil
	}
	if ctx.Err() != nil {
		return nil, err
	}
	return runStatements(ctx, s.Catch)
}

func runStatements(ctx *engine.ExecContext, stmts []Statement) ([]engine.Row, error) {
	var out []engine.Row
	for _, stmt := range stmts {
		rows, err := stmt.Execute(ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, rows...)
	}
	return out, nil
}

// ScriptBlock is the root control-flow node: an ordered
// statement list threaded through the session, drained into a single output
// stream. Nested BEGIN/END blocks are themselves statement lists stored
// inline in Then/Else/Body/Try/Catch; ScriptBlock is only the outermost
// boundary that exposes the engine.Node contract.
type ScriptBlock struct {
	Statements []Statement
}

func (n *ScriptBlock) Description() string     { return "ScriptBlock" }
func (n *ScriptBlock) Children() []engine.Node { return nil }
func (n *ScriptBlock) EstimatedRows() int64    { return -1 }

func (n *ScriptBlock) Execute(ctx *engine.ExecContext) (engine.RowIter, error) {
	rows, err := runStatements(ctx, n.Statements)
	if err != nil {
		return nil, err
	}
	return engine.NewSliceIter(rows), nil
}
