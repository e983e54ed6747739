package plan

import "github.com/ppds-sql/queryengine/engine"

// ExecuteAs pushes a principal identifier onto the session's impersonation
// stack. Subsequent statements run under this principal until a
// matching Revert, which the caller is responsible for issuing — the
// impersonation stack is not auto-popped on error.
type ExecuteAs struct {
	Principal string
}

func (s ExecuteAs) Execute(ctx *engine.ExecContext) ([]engine.Row, error) {
	if ctx.Session == nil {
		return nil, engine.ErrMissingSession.New()
	}
	ctx.Session.PushPrincipal(s.Principal)
	return nil, nil
}

// Revert pops the current impersonated principal. An empty
// stack is a harmless no-op.
type Revert struct{}

func (s Revert) Execute(ctx *engine.ExecContext) ([]engine.Row, error) {
	if ctx.Session == nil {
		return nil, engine.ErrMissingSession.New()
	}
	ctx.Session.PopPrincipal()
	return nil, nil
}
