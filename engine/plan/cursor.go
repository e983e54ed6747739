package plan

import "github.com/ppds-sql/queryengine/engine"

// DeclareCursor binds Name to Source in the session. Duplicate
// DECLARE fails via engine.Session.DeclareCursor.
type DeclareCursor struct {
	Name   string
	Source engine.Node
}

func (s DeclareCursor) Execute(ctx *engine.ExecContext) ([]engine.Row, error) {
	if ctx.Session == nil {
		return nil, engine.ErrMissingSession.New()
	}
	return nil, ctx.Session.DeclareCursor(s.Name, s.Source)
}

// OpenCursor executes the bound source plan to completion, materializing
// all rows.
type OpenCursor struct {
	Name string
}

func (s OpenCursor) Execute(ctx *engine.ExecContext) ([]engine.Row, error) {
	if ctx.Session == nil {
		return nil, engine.ErrMissingSession.New()
	}
	c, err := ctx.Session.Cursor(s.Name)
	if err != nil {
		return nil, err
	}
	return nil, c.Open(ctx)
}

// FetchCursor advances the cursor by one row. With TargetVars set, the
// fetched row's values bind positionally into those session variables and
// FetchCursor produces no output rows (FETCH ... INTO); with no
// TargetVars, the fetched row becomes FetchCursor's single output row
// (bare FETCH NEXT FROM). Fetching past the end of the cursor yields no
// rows and no error (the cursor's own terminal flag records
// exhaustion).
type FetchCursor struct {
	Name       string
	TargetVars []string
}

func (s FetchCursor) Execute(ctx *engine.ExecContext) ([]engine.Row, error) {
	if ctx.Session == nil {
		return nil, engine.ErrMissingSession.New()
	}
	c, err := ctx.Session.Cursor(s.Name)
	if err != nil {
		return nil, err
	}
	row, ok, err := c.Fetch()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	if len(s.TargetVars) == 0 {
		return []engine.Row{row}, nil
	}
	for i, name := range s.TargetVars {
		if i < row.Len() {
			ctx.Session.Variables.Assign(name, row.At(i))
		} else {
			ctx.Session.Variables.Assign(name, engine.Null())
		}
	}
	return nil, nil
}

// CloseCursor releases materialized rows without removing the binding.
type CloseCursor struct {
	Name string
}

func (s CloseCursor) Execute(ctx *engine.ExecContext) ([]engine.Row, error) {
	if ctx.Session == nil {
		return nil, engine.ErrMissingSession.New()
	}
	c, err := ctx.Session.Cursor(s.Name)
	if err != nil {
		return nil, err
	}
	c.Close()
	return nil, nil
}

// DeallocateCursor removes the cursor binding entirely.
type DeallocateCursor struct {
	Name string
}

func (s DeallocateCursor) Execute(ctx *engine.ExecContext) ([]engine.Row, error) {
	if ctx.Session == nil {
		return nil, engine.ErrMissingSession.New()
	}
	return nil, ctx.Session.DeallocateCursor(s.Name)
}
