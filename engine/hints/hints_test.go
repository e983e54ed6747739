package hints

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ppds-sql/queryengine/engine/ast"
)

func TestParseCommentTokens(t *testing.T) {
	raw := `-- ppds:USE_TDS
-- ppds:BYPASS_PLUGINS
-- ppds:BATCH_SIZE 250
-- ppds:MAX_ROWS 1000
-- ppds:MAXDOP 8
SELECT name FROM account`

	s := Parse(ast.OptionsClause{}, raw)
	require.True(t, s.UseTDS)
	require.True(t, s.BypassPlugins)
	require.False(t, s.BypassFlows)
	require.NotNil(t, s.BatchSize)
	require.Equal(t, 250, *s.BatchSize)
	require.NotNil(t, s.MaxRows)
	require.Equal(t, 1000, *s.MaxRows)
	require.NotNil(t, s.MaxDOP)
	require.Equal(t, 8, *s.MaxDOP)
}

func TestParseUnrecognizedHintsSilentlyDropped(t *testing.T) {
	s := Parse(ast.OptionsClause{}, "-- ppds:NO_SUCH_HINT 42\nSELECT 1")
	require.Equal(t, Set{}, s)
}

func TestParseMaxDOPFromOptionsClause(t *testing.T) {
	four := 4
	s := Parse(ast.OptionsClause{MaxDOP: &four}, "")
	require.NotNil(t, s.MaxDOP)
	require.Equal(t, 4, *s.MaxDOP)
}

func TestParseCommentTokenOverridesOptionsClause(t *testing.T) {
	// Both sources set MAXDOP; the comment token is applied last.
	two := 2
	s := Parse(ast.OptionsClause{MaxDOP: &two}, "-- ppds:MAXDOP 6")
	require.Equal(t, 6, *s.MaxDOP)
}

func TestParseMalformedIntValueIgnored(t *testing.T) {
	s := Parse(ast.OptionsClause{}, "-- ppds:BATCH_SIZE lots")
	require.Nil(t, s.BatchSize)
}

func TestParseFlagsCaseAndNolock(t *testing.T) {
	s := Parse(ast.OptionsClause{}, "-- ppds:nolock\n-- ppds:FORCE_CLIENT_AGGREGATION")
	require.True(t, s.NoLock)
	require.True(t, s.ForceClientAggregation)
}
