package engine

import "math/big"

// Add returns a + b, treating nulls as additive identity unless both are
// null, in which case the result is null. Shared by the window aggregate
// functions (engine/plan) and the merge-aggregate combine rules
// (engine/plan), so both honor the same numeric coercion policy.
func Add(a, b Value) Value {
	if a.IsNull() && b.IsNull() {
		return Null()
	}
	ra, oka := toRat(a)
	rb, okb := toRat(b)
	if !oka && !okb {
		return Null()
	}
	if !oka {
		ra = new(big.Rat)
	}
	if !okb {
		rb = new(big.Rat)
	}
	return Decimal(new(big.Rat).Add(ra, rb))
}

// Min returns the smaller of a and b by numeric value; all-null inputs
// stay null.
func Min(a, b Value) Value { return minMax(a, b, true) }

// Max returns the larger of a and b by numeric value.
func Max(a, b Value) Value { return minMax(a, b, false) }

func minMax(a, b Value, wantMin bool) Value {
	if a.IsNull() {
		return b
	}
	if b.IsNull() {
		return a
	}
	ra, oka := toRat(a)
	rb, okb := toRat(b)
	if !oka || !okb {
		if wantMin {
			if a.String() <= b.String() {
				return a
			}
			return b
		}
		if a.String() >= b.String() {
			return a
		}
		return b
	}
	cmp := ra.Cmp(rb)
	if (wantMin && cmp <= 0) || (!wantMin && cmp >= 0) {
		return a
	}
	return b
}

// WeightedAverage computes Σ(avg_i·count_i) / Σcount_i. If the total
// weight is zero, it returns null.
func WeightedAverage(avgs, counts []Value) Value {
	numerator := new(big.Rat)
	denominator := new(big.Rat)
	for i := range avgs {
		a, okA := toRat(avgs[i])
		c, okC := toRat(counts[i])
		if !okA || !okC {
			continue
		}
		numerator.Add(numerator, new(big.Rat).Mul(a, c))
		denominator.Add(denominator, c)
	}
	if denominator.Sign() == 0 {
		return Null()
	}
	return Decimal(new(big.Rat).Quo(numerator, denominator))
}

func toRat(v Value) (*big.Rat, bool) {
	switch v.Kind() {
	case KindInt:
		i, _ := v.AsInt()
		return new(big.Rat).SetInt64(i), true
	case KindDecimal:
		d, _ := v.AsDecimal()
		return new(big.Rat).Set(d), true
	case KindString:
		s, _ := v.AsString()
		r, ok := new(big.Rat).SetString(s)
		return r, ok
	default:
		return nil, false
	}
}
