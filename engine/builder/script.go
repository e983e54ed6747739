package builder

import (
	"github.com/ppds-sql/queryengine/engine/ast"
	"github.com/ppds-sql/queryengine/engine/plan"
)

// buildScriptBlock wraps a statement list in a root script node. Used
// both for an
// explicit BEGIN/END block and for a single control-flow statement passed
// to Build directly.
func (b *Builder) buildScriptBlock(stmts []ast.Statement) (*plan.ScriptBlock, error) {
	built, err := b.buildStatements(stmts)
	if err != nil {
		return nil, err
	}
	return &plan.ScriptBlock{Statements: built}, nil
}

// buildStatements converts an AST statement list into plan.Statement
// values, flattening nested BEGIN/END blocks inline (script.go's
// ScriptBlock doc comment: nested blocks are statement lists, not nodes).
func (b *Builder) buildStatements(stmts []ast.Statement) ([]plan.Statement, error) {
	var out []plan.Statement
	for _, s := range stmts {
		if block, ok := s.(*ast.Begin); ok {
			nested, err := b.buildStatements(block.Body)
			if err != nil {
				return nil, err
			}
			out = append(out, nested...)
			continue
		}
		stmt, err := b.buildStatement(s)
		if err != nil {
			return nil, err
		}
		out = append(out, stmt)
	}
	return out, nil
}

func (b *Builder) buildStatement(s ast.Statement) (plan.Statement, error) {
	switch st := s.(type) {
	case *ast.Select:
		r, err := b.buildSelect(st)
		if err != nil {
			return nil, err
		}
		return plan.NodeStatement{Node: r.Root}, nil
	case *ast.Insert:
		r, err := b.buildInsert(st)
		if err != nil {
			return nil, err
		}
		return plan.NodeStatement{Node: r.Root}, nil
	case *ast.Update:
		r, err := b.buildUpdate(st)
		if err != nil {
			return nil, err
		}
		return plan.NodeStatement{Node: r.Root}, nil
	case *ast.Delete:
		r, err := b.buildDelete(st)
		if err != nil {
			return nil, err
		}
		return plan.NodeStatement{Node: r.Root}, nil
	case *ast.Merge:
		r, err := b.buildMerge(st)
		if err != nil {
			return nil, err
		}
		return plan.NodeStatement{Node: r.Root}, nil
	case *ast.Execute:
		r, err := b.buildExecuteMessage(st)
		if err != nil {
			return nil, err
		}
		return plan.NodeStatement{Node: r.Root}, nil

	case *ast.DeclareVariable:
		fn, err := b.Compiler.CompileScalar(st.Init)
		if err != nil {
			return nil, err
		}
		return plan.DeclareVariable{Name: st.Name, Expr: fn}, nil
	case *ast.Assign:
		fn, err := b.Compiler.CompileScalar(st.Value)
		if err != nil {
			return nil, err
		}
		return plan.SetVariable{Name: st.Name, Expr: fn}, nil

	case *ast.If:
		cond, err := b.Compiler.CompilePredicate(st.Cond)
		if err != nil {
			return nil, err
		}
		then, err := b.buildStatements(st.Then)
		if err != nil {
			return nil, err
		}
		els, err := b.buildStatements(st.Else)
		if err != nil {
			return nil, err
		}
		return plan.If{Cond: cond, Then: then, Else: els}, nil

	case *ast.While:
		cond, err := b.Compiler.CompilePredicate(st.Cond)
		if err != nil {
			return nil, err
		}
		body, err := b.buildStatements(st.Body)
		if err != nil {
			return nil, err
		}
		return plan.While{Cond: cond, Body: body}, nil

	case *ast.TryCatch:
		try, err := b.buildStatements(st.Try)
		if err != nil {
			return nil, err
		}
		catch, err := b.buildStatements(st.Catch)
		if err != nil {
			return nil, err
		}
		return plan.TryCatch{Try: try, Catch: catch}, nil

	case *ast.DeclareCursor:
		src, err := b.buildSelect(st.Query)
		if err != nil {
			return nil, err
		}
		return plan.DeclareCursor{Name: st.Name, Source: src.Root}, nil
	case *ast.OpenCursor:
		return plan.OpenCursor{Name: st.Name}, nil
	case *ast.FetchCursor:
		return plan.FetchCursor{Name: st.Name, TargetVars: st.TargetVars}, nil
	case *ast.CloseCursor:
		return plan.CloseCursor{Name: st.Name}, nil
	case *ast.DeallocateCursor:
		return plan.DeallocateCursor{Name: st.Name}, nil

	case *ast.ExecuteAs:
		return plan.ExecuteAs{Principal: st.Principal}, nil
	case *ast.Revert:
		return plan.Revert{}, nil

	case *ast.CreateTempTable:
		src, err := b.buildSelect(st.Source)
		if err != nil {
			return nil, err
		}
		return plan.CreateTempTable{Name: st.Name, Source: src.Root}, nil
	case *ast.DropTempTable:
		return plan.DropTempTable{Name: st.Name}, nil

	default:
		r, err := b.Build(s)
		if err != nil {
			return nil, err
		}
		return plan.NodeStatement{Node: r.Root}, nil
	}
}
