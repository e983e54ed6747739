package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAtLocationUnknownPositionLeavesErrorUntouched(t *testing.T) {
	err := ErrInvalidLiteral.New("OFFSET", -1)
	located := AtLocation(err, Location{})

	require.Same(t, err, located)
	require.True(t, ErrInvalidLiteral.Is(located))
	_, ok := LocationOf(located)
	require.False(t, ok)
}

func TestAtLocationAttachesKnownPosition(t *testing.T) {
	err := ErrInvalidLiteral.New("OFFSET", -1)
	located := AtLocation(err, Location{Line: 3, Column: 14})

	loc, ok := LocationOf(located)
	require.True(t, ok)
	require.Equal(t, Location{Line: 3, Column: 14}, loc)

	// The message leads with the position; the underlying kind stays
	// reachable through the error chain.
	require.Contains(t, located.Error(), "line 3, column 14")
	require.True(t, ErrInvalidLiteral.Is(errors.Unwrap(located)))
}

func TestAtLocationNilErrorStaysNil(t *testing.T) {
	require.NoError(t, AtLocation(nil, Location{Line: 1, Column: 1}))
}

func TestLocationIsKnown(t *testing.T) {
	require.False(t, Location{}.IsKnown())
	require.True(t, Location{Line: 1}.IsKnown())
	require.True(t, Location{Column: 7}.IsKnown())
}
