// Package hints parses query hints from two sources: the
// OPTIONS clause's MAXDOP, and single-line `-- ppds:NAME [value]` comment
// tokens. Hints override profile defaults. The builder takes no separate
// per-query API parameters for these settings, so a hint that is present
// always wins over the profile value.
package hints

import (
	"strconv"
	"strings"

	"github.com/ppds-sql/queryengine/engine/ast"
)

// Set is the parsed hint surface for one statement.
type Set struct {
	MaxDOP                 *int
	UseTDS                 bool
	BypassPlugins          bool
	BypassFlows            bool
	NoLock                 bool
	BatchSize              *int
	MaxRows                *int
	ForceClientAggregation bool
}

const commentPrefix = "-- ppds:"

// Parse extracts hints from an OPTIONS clause and from `-- ppds:` comment
// tokens found in rawSQL, one per line. Unrecognized names are silently
// dropped.
func Parse(options ast.OptionsClause, rawSQL string) Set {
	var s Set
	if options.MaxDOP != nil {
		v := *options.MaxDOP
		s.MaxDOP = &v
	}
	for _, line := range strings.Split(rawSQL, "\n") {
		line = strings.TrimSpace(line)
		idx := strings.Index(line, commentPrefix)
		if idx < 0 {
			continue
		}
		token := strings.TrimSpace(line[idx+len(commentPrefix):])
		name, value, _ := strings.Cut(token, " ")
		name = strings.ToUpper(strings.TrimSpace(name))
		value = strings.TrimSpace(value)
		applyToken(&s, name, value)
	}
	return s
}

func applyToken(s *Set, name, value string) {
	switch name {
	case "USE_TDS":
		s.UseTDS = true
	case "BYPASS_PLUGINS":
		s.BypassPlugins = true
	case "BYPASS_FLOWS":
		s.BypassFlows = true
	case "NOLOCK":
		s.NoLock = true
	case "FORCE_CLIENT_AGGREGATION":
		s.ForceClientAggregation = true
	case "BATCH_SIZE":
		if n, err := strconv.Atoi(value); err == nil {
			s.BatchSize = &n
		}
	case "MAX_ROWS":
		if n, err := strconv.Atoi(value); err == nil {
			s.MaxRows = &n
		}
	case "MAXDOP":
		if n, err := strconv.Atoi(value); err == nil {
			s.MaxDOP = &n
		}
	}
}
