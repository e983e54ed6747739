package plan

import (
	"strings"

	"github.com/ppds-sql/queryengine/engine"
)

// StringSplit is the STRING_SPLIT table-valued function: it yields one row
// per separator-delimited token, optionally with a 1-based ordinal column.
type StringSplit struct {
	Input         string
	Separator     string
	WithOrdinal   bool
	ValueColumn   string
	OrdinalColumn string
}

// NewStringSplit builds a STRING_SPLIT(input, separator) TVF node.
func NewStringSplit(input, separator string, withOrdinal bool) *StringSplit {
	return &StringSplit{
		Input:         input,
		Separator:     separator,
		WithOrdinal:   withOrdinal,
		ValueColumn:   "value",
		OrdinalColumn: "ordinal",
	}
}

func (s *StringSplit) Description() string     { return "StringSplit" }
func (s *StringSplit) Children() []engine.Node { return nil }
func (s *StringSplit) EstimatedRows() int64    { return -1 }

func (s *StringSplit) Execute(ctx *engine.ExecContext) (engine.RowIter, error) {
	var tokens []string
	if s.Input == "" {
		tokens = nil
	} else if s.Separator == "" {
		tokens = []string{s.Input}
	} else {
		tokens = strings.Split(s.Input, s.Separator)
	}

	rows := make([]engine.Row, len(tokens))
	for i, tok := range tokens {
		if s.WithOrdinal {
			rows[i] = engine.NewRow("", []string{s.ValueColumn, s.OrdinalColumn},
				[]engine.Value{engine.String(tok), engine.Int(int64(i + 1))})
		} else {
			rows[i] = engine.NewRow("", []string{s.ValueColumn}, []engine.Value{engine.String(tok)})
		}
	}
	return engine.NewSliceIter(rows), nil
}
