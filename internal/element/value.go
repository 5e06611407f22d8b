// internal/element/value.go
package element

import (
	"math"
	"strconv"
)

// Value is the staged content of one element.
// Which field is meaningful depends on the element Type: integer types use Int
// (U64 carries the raw bit pattern), F32/F64 use Float, Bool uses Bool and Str uses Text.
type Value struct {
	Int   int64
	Float float64
	Bool  bool
	Text  string
}

// snapEpsilon absorbs binary representation error of decimal inputs (0.29*100 = 28.999999999999996)
// before truncation.
const snapEpsilon = 1e-9

// Number returns v as a double. Str yields 0; use Text.
func (t Type) Number(v Value) float64 {
	switch t {
	case U16, I16, U32, I32, I64:
		return float64(v.Int)
	case U64:
		return float64(uint64(v.Int))
	case F32, F64:
		return v.Float
	case Bool:
		if v.Bool {
			return 1
		}
	}
	return 0
}

// FromNumber coerces f into t. Integer types truncate toward zero and saturate at
// the range of the type; NaN becomes zero.
func (t Type) FromNumber(f float64) Value {
	switch t {
	case U16:
		return Value{Int: clampInt(f, 0, math.MaxUint16)}
	case I16:
		return Value{Int: clampInt(f, math.MinInt16, math.MaxInt16)}
	case U32:
		return Value{Int: clampInt(f, 0, math.MaxUint32)}
	case I32:
		return Value{Int: clampInt(f, math.MinInt32, math.MaxInt32)}
	case I64:
		return Value{Int: TruncInt64(f)}
	case U64:
		return Value{Int: int64(truncUint64(f))}
	case F32:
		return Value{Float: float64(float32(f))}
	case F64:
		return Value{Float: f}
	case Bool:
		return Value{Bool: f != 0}
	case Str:
		return Value{Text: strconv.FormatFloat(f, 'f', -1, 64)}
	}
	return Value{}
}

// Truncate drops the fractional part of f, first snapping values that sit within
// rounding noise of an integer.
func Truncate(f float64) float64 {
	r := math.Round(f)
	if math.Abs(f-r) <= snapEpsilon*math.Max(1, math.Abs(f)) {
		return r
	}
	return math.Trunc(f)
}

// TruncInt64 truncates f into the int64 range.
func TruncInt64(f float64) int64 {
	if math.IsNaN(f) {
		return 0
	}
	f = Truncate(f)
	if f >= math.MaxInt64 {
		return math.MaxInt64
	}
	if f <= math.MinInt64 {
		return math.MinInt64
	}
	return int64(f)
}

func truncUint64(f float64) uint64 {
	if math.IsNaN(f) {
		return 0
	}
	f = Truncate(f)
	if f <= 0 {
		return 0
	}
	if f >= math.MaxUint64 {
		return math.MaxUint64
	}
	return uint64(f)
}

func clampInt(f float64, lo, hi int64) int64 {
	v := TruncInt64(f)
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
