package engine

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStringKeyNeverCollidesAcrossKinds(t *testing.T) {
	// The group-by key is typed: integer 1 and string "1" must not land in
	// the same group even though they render identically.
	require.NotEqual(t, Int(1).StringKey(), String("1").StringKey())
	require.NotEqual(t, Bool(true).StringKey(), String("true").StringKey())
}

func TestStringKeyNullsCompareEqual(t *testing.T) {
	require.Equal(t, Null().StringKey(), Null().StringKey())
}

func TestRowKeyStableAcrossEquivalentVectors(t *testing.T) {
	a, err := RowKey([]Value{Int(1), String("x"), Null()})
	require.NoError(t, err)
	b, err := RowKey([]Value{Int(1), String("x"), Null()})
	require.NoError(t, err)
	require.Equal(t, a, b)

	c, err := RowKey([]Value{String("1"), String("x"), Null()})
	require.NoError(t, err)
	require.NotEqual(t, a, c)
}

func TestFloat64Coercion(t *testing.T) {
	f, ok := Int(3).Float64()
	require.True(t, ok)
	require.Equal(t, 3.0, f)

	f, ok = Decimal(big.NewRat(7, 2)).Float64()
	require.True(t, ok)
	require.Equal(t, 3.5, f)

	f, ok = String("2.5").Float64()
	require.True(t, ok)
	require.Equal(t, 2.5, f)

	_, ok = Timestamp(time.Now()).Float64()
	require.False(t, ok)
}

func TestAddTreatsLoneNullAsIdentity(t *testing.T) {
	sum := Add(Int(5), Null())
	r, ok := sum.AsDecimal()
	require.True(t, ok)
	require.Equal(t, 0, r.Cmp(big.NewRat(5, 1)))

	require.True(t, Add(Null(), Null()).IsNull())
}

func TestMinMaxNullHandling(t *testing.T) {
	require.EqualValues(t, 2, mustInt(t, Min(Int(2), Int(9))))
	require.EqualValues(t, 9, mustInt(t, Max(Int(2), Int(9))))

	// One null operand: the non-null side wins.
	require.EqualValues(t, 4, mustInt(t, Min(Null(), Int(4))))
	require.EqualValues(t, 4, mustInt(t, Max(Int(4), Null())))

	// All null stays null.
	require.True(t, Min(Null(), Null()).IsNull())
}

func TestWeightedAverage(t *testing.T) {
	// Σ(avg·count) / Σcount: (10·100 + 20·300) / 400 = 17.5.
	avg := WeightedAverage(
		[]Value{Int(10), Int(20)},
		[]Value{Int(100), Int(300)},
	)
	r, ok := avg.AsDecimal()
	require.True(t, ok)
	require.Equal(t, 0, r.Cmp(big.NewRat(35, 2)))
}

func TestWeightedAverageZeroWeightIsNull(t *testing.T) {
	require.True(t, WeightedAverage([]Value{Int(10)}, []Value{Int(0)}).IsNull())
}

func TestDecimalFromString(t *testing.T) {
	v, err := DecimalFromString("12.75")
	require.NoError(t, err)
	r, _ := v.AsDecimal()
	require.Equal(t, 0, r.Cmp(big.NewRat(51, 4)))

	_, err = DecimalFromString("not a number")
	require.Error(t, err)
}
