package fixture

import (
	"fmt"

	"github.com/ppds-sql/queryengine/engine"
)

// Compiler is a minimal engine.ExpressionCompiler over three opaque
// expression shapes: the scalars Column (a source-row attribute reference)
// and Literal (a fixed value), and the predicate Equals (column equals
// literal). Real deployments plug in a full expression
// compiler; this fixture exercises the same contract
// with just enough expressiveness for DML and filter tests.
type Compiler struct{}

// Column references a source-row attribute by name.
type Column struct{ Name string }

// Literal is a fixed engine.Value.
type Literal struct{ Value engine.Value }

// Equals is a column-equals-literal predicate.
type Equals struct {
	Column string
	Value  engine.Value
}

func (Compiler) CompileScalar(expr interface{}) (engine.ScalarFunc, error) {
	switch e := expr.(type) {
	case Column:
		return func(row engine.Row) (engine.Value, error) {
			return row.MustGet(e.Name), nil
		}, nil
	case Literal:
		return func(row engine.Row) (engine.Value, error) {
			return e.Value, nil
		}, nil
	default:
		return nil, fmt.Errorf("fixture: unsupported scalar expression %T", expr)
	}
}

func (Compiler) CompilePredicate(expr interface{}) (engine.PredicateFunc, error) {
	switch e := expr.(type) {
	case Equals:
		return func(row engine.Row) (bool, error) {
			v := row.MustGet(e.Column)
			return v.StringKey() == e.Value.StringKey(), nil
		}, nil
	default:
		return nil, fmt.Errorf("fixture: unsupported predicate expression %T", expr)
	}
}
