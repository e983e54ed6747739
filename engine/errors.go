package engine

import (
	"errors"
	"fmt"

	goerrors "gopkg.in/src-d/go-errors.v1"
)

// Typed error kinds: gopkg.in/src-d/go-errors.v1 gives callers a
// Kind.Is(err) check instead of string matching or a bespoke error struct
// per case. Plan-time kinds first. Authentication failures surface as the
// external executor's own error wrapped in ErrBackEnd, and cancellation
// surfaces as the context's error, so neither has a kind of its own here.
var (
	ErrUnsupportedStatement  = goerrors.NewKind("unsupported statement: %s")
	ErrUnsupportedExpression = goerrors.NewKind("unsupported expression: %s")
	ErrBranchArityMismatch   = goerrors.NewKind("set operation branches have mismatched column counts: %d vs %d")
	ErrInvalidLiteral        = goerrors.NewKind("invalid literal for %s: %v")
	ErrMissingSession        = goerrors.NewKind("statement requires a session")
	ErrAmbiguousMatch        = goerrors.NewKind("ambiguous match for %q: candidates %v")
	ErrMissingKey            = goerrors.NewKind("row from %s is missing required key column %q")
)

// Execution-time kinds.
var (
	ErrAggregateCapExceeded         = goerrors.NewKind("aggregate query exceeded the 50,000-row cap")
	ErrMaterializationLimitExceeded = goerrors.NewKind("window operator materialized more than %d rows; add a WHERE clause or TOP to reduce the input")
	ErrRowCapExceeded               = goerrors.NewKind("%s would affect more than %d rows")
	ErrCursorProtocol               = goerrors.NewKind("cursor protocol violation: %s")
	ErrBackEnd                      = goerrors.NewKind("back-end error: %s")
)

// Location is the best-known source position within the original SQL text
// that a user-visible failure can be attributed to. The zero value means
// the position is unknown.
type Location struct {
	Line   int
	Column int
}

// IsKnown reports whether the location carries an actual position.
func (l Location) IsKnown() bool { return l.Line != 0 || l.Column != 0 }

// PlanError decorates an underlying error with a source location. The
// Builder attaches one whenever the statement it is dispatching carries a
// parser-supplied position (ast.Pos).
type PlanError struct {
	Err      error
	Location Location
}

func (e *PlanError) Error() string {
	return fmt.Sprintf("line %d, column %d: %s", e.Location.Line, e.Location.Column, e.Err.Error())
}

func (e *PlanError) Unwrap() error { return e.Err }

// AtLocation wraps err with a source location. An unknown location leaves
// err untouched, so typed-kind matching on unlocated errors keeps working
// without an unwrap step.
func AtLocation(err error, loc Location) error {
	if err == nil || !loc.IsKnown() {
		return err
	}
	return &PlanError{Err: err, Location: loc}
}

// LocationOf reports the source location attached to err, if any.
func LocationOf(err error) (Location, bool) {
	var pe *PlanError
	if errors.As(err, &pe) {
		return pe.Location, true
	}
	return Location{}, false
}
