// Package engine implements the row/value model, the plan-node contract,
// and the per-execution context shared by every operator in engine/plan.
package engine

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	uuid "github.com/satori/go.uuid"
	"github.com/spf13/cast"
)

// Kind tags the runtime type carried by a Value. The engine never infers
// types at plan time; every Value already knows what it is.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindDecimal
	KindString
	KindTimestamp
	KindGUID
	KindBinary
	KindRef
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindDecimal:
		return "decimal"
	case KindString:
		return "string"
	case KindTimestamp:
		return "timestamp"
	case KindGUID:
		return "guid"
	case KindBinary:
		return "binary"
	case KindRef:
		return "ref"
	default:
		return "unknown"
	}
}

// Ref is a composite reference carried by association-typed attributes:
// a display name alongside the foreign key and the logical name of the
// entity it points at.
type Ref struct {
	Display string
	Key     uuid.UUID
	Logical string
}

// Value is a tagged scalar. The zero Value is KindNull.
type Value struct {
	kind Kind
	b    bool
	i    int64
	d    *big.Rat
	s    string
	t    time.Time
	g    uuid.UUID
	bin  []byte
	ref  Ref
}

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

func Null() Value { return Value{kind: KindNull} }

func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Decimal builds a decimal Value from a big.Rat. The merge-aggregate
// weighted-average formula needs exact rational arithmetic, not float64
// accumulation error.
func Decimal(r *big.Rat) Value { return Value{kind: KindDecimal, d: r} }

func DecimalFromString(s string) (Value, error) {
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return Value{}, fmt.Errorf("invalid decimal literal %q", s)
	}
	return Decimal(r), nil
}

func String(s string) Value { return Value{kind: KindString, s: s} }

func Timestamp(t time.Time) Value { return Value{kind: KindTimestamp, t: t.UTC()} }

func GUID(g uuid.UUID) Value { return Value{kind: KindGUID, g: g} }

func Binary(b []byte) Value { return Value{kind: KindBinary, bin: b} }

func Reference(ref Ref) Value { return Value{kind: KindRef, ref: ref} }

func (v Value) AsBool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

func (v Value) AsInt() (int64, bool) {
	if v.kind != KindInt {
		return 0, false
	}
	return v.i, true
}

func (v Value) AsDecimal() (*big.Rat, bool) {
	if v.kind != KindDecimal {
		return nil, false
	}
	return v.d, true
}

func (v Value) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.s, true
}

func (v Value) AsTimestamp() (time.Time, bool) {
	if v.kind != KindTimestamp {
		return time.Time{}, false
	}
	return v.t, true
}

func (v Value) AsGUID() (uuid.UUID, bool) {
	if v.kind != KindGUID {
		return uuid.UUID{}, false
	}
	return v.g, true
}

func (v Value) AsBinary() ([]byte, bool) {
	if v.kind != KindBinary {
		return nil, false
	}
	return v.bin, true
}

func (v Value) AsRef() (Ref, bool) {
	if v.kind != KindRef {
		return Ref{}, false
	}
	return v.ref, true
}

// Float64 coerces numeric-ish kinds to a float64, using cast for the
// string path so window/aggregate arithmetic doesn't hand-roll
// parsing the way a bare stdlib rendition would.
func (v Value) Float64() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindDecimal:
		f, _ := v.d.Float64()
		return f, true
	case KindString:
		f, err := cast.ToFloat64E(v.s)
		return f, err == nil
	case KindBool:
		if v.b {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// StringKey renders a Value into the typed stringification used by the
// group-by / Distinct / Intersect / Except hash keys:
// the Kind prefixes the payload so values of different runtime type never
// collide on the same textual rendering (e.g. integer 1 vs string "1").
func (v Value) StringKey() string {
	var sb strings.Builder
	sb.WriteString(v.kind.String())
	sb.WriteByte(':')
	switch v.kind {
	case KindNull:
		// nulls compare equal to each other regardless of payload
	case KindBool:
		fmt.Fprintf(&sb, "%v", v.b)
	case KindInt:
		fmt.Fprintf(&sb, "%d", v.i)
	case KindDecimal:
		sb.WriteString(v.d.RatString())
	case KindString:
		sb.WriteString(v.s)
	case KindTimestamp:
		sb.WriteString(v.t.Format(time.RFC3339Nano))
	case KindGUID:
		sb.WriteString(v.g.String())
	case KindBinary:
		sb.Write(v.bin)
	case KindRef:
		fmt.Fprintf(&sb, "%s|%s|%s", v.ref.Display, v.ref.Key, v.ref.Logical)
	}
	return sb.String()
}

func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "NULL"
	case KindBool:
		return fmt.Sprintf("%v", v.b)
	case KindInt:
		return fmt.Sprintf("%d", v.i)
	case KindDecimal:
		return v.d.FloatString(10)
	case KindString:
		return v.s
	case KindTimestamp:
		return v.t.Format(time.RFC3339)
	case KindGUID:
		return v.g.String()
	case KindBinary:
		return fmt.Sprintf("0x%x", v.bin)
	case KindRef:
		return v.ref.Display
	default:
		return ""
	}
}
