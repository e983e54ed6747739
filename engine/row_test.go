package engine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRowLookupIsCaseInsensitive(t *testing.T) {
	row := NewRow("account", []string{"Name", "Revenue"},
		[]Value{String("Contoso"), Int(100)})

	v, ok := row.Get("name")
	require.True(t, ok)
	require.Equal(t, "Contoso", v.String())

	v, ok = row.Get("REVENUE")
	require.True(t, ok)
	n, _ := v.AsInt()
	require.EqualValues(t, 100, n)

	_, ok = row.Get("missing")
	require.False(t, ok)
}

func TestRowMustGetMissingYieldsNull(t *testing.T) {
	row := NewRow("account", []string{"name"}, []Value{String("x")})
	require.True(t, row.MustGet("nope").IsNull())
}

func TestRowWithDoesNotMutateOriginal(t *testing.T) {
	row := NewRow("account", []string{"name"}, []Value{String("before")})

	updated := row.With("name", String("after"))
	appended := row.With("extra", Int(1))

	require.Equal(t, "before", row.MustGet("name").String())
	require.Equal(t, "after", updated.MustGet("name").String())
	require.Equal(t, 1, row.Len())
	require.Equal(t, 2, appended.Len())
}

func TestRowWithReplacesCaseInsensitively(t *testing.T) {
	row := NewRow("account", []string{"Name"}, []Value{String("a")})
	updated := row.With("NAME", String("b"))
	require.Equal(t, 1, updated.Len())
	require.Equal(t, "b", updated.MustGet("name").String())
}

func TestRowProjectOrdersAndNullPads(t *testing.T) {
	row := NewRow("account", []string{"a", "b"}, []Value{Int(1), Int(2)})
	projected := row.Project([]string{"b", "missing", "a"})

	require.Equal(t, []string{"b", "missing", "a"}, projected.Names())
	require.EqualValues(t, 2, mustInt(t, projected.At(0)))
	require.True(t, projected.At(1).IsNull())
	require.EqualValues(t, 1, mustInt(t, projected.At(2)))
}

func mustInt(t *testing.T, v Value) int64 {
	t.Helper()
	n, ok := v.AsInt()
	require.True(t, ok)
	return n
}
