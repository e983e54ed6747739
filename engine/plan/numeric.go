package plan

import (
	"math/big"

	"github.com/ppds-sql/queryengine/engine"
)

func toRat(v engine.Value) (*big.Rat, bool) {
	switch v.Kind() {
	case engine.KindInt:
		i, _ := v.AsInt()
		return new(big.Rat).SetInt64(i), true
	case engine.KindDecimal:
		d, _ := v.AsDecimal()
		return new(big.Rat).Set(d), true
	default:
		f, ok := v.Float64()
		if !ok {
			return nil, false
		}
		r := new(big.Rat).SetFloat64(f)
		if r == nil {
			return nil, false
		}
		return r, true
	}
}

// multiply returns a*b as a decimal Value, or null if either operand is
// non-numeric.
func multiply(a, b engine.Value) engine.Value {
	ra, oka := toRat(a)
	rb, okb := toRat(b)
	if !oka || !okb {
		return engine.Null()
	}
	return engine.Decimal(new(big.Rat).Mul(ra, rb))
}

// divide returns a/b as a decimal Value, or null if either operand is
// non-numeric or b is zero.
func divide(a, b engine.Value) engine.Value {
	ra, oka := toRat(a)
	rb, okb := toRat(b)
	if !oka || !okb || rb.Sign() == 0 {
		return engine.Null()
	}
	return engine.Decimal(new(big.Rat).Quo(ra, rb))
}

// divideByInt returns a/n as a decimal Value.
func divideByInt(a engine.Value, n int64) engine.Value {
	if n == 0 {
		return engine.Null()
	}
	return divide(a, engine.Int(n))
}
