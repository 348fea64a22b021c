package numeric

import "math"

// Value is a number together with the Type it was produced as. It is the
// payload carried by literal tokens, stack pushes/pops, and instruction
// immediates.
type Value struct {
	Type Type
	// Bits holds integer values (unsigned or signed, masked to the type's
	// width, so signed values are not sign-extended here; AsInt64 does
	// that) in their native bit pattern; Float holds the
	// floating-point payload for Fp32/Fp64. Only one is meaningful,
	// selected by Type.Interpretation().
	Bits  uint64
	Float float64
}

// FromUint64 builds a Value of an unsigned or signed integer Type, masking
// to the type's width.
func FromUint64(t Type, v uint64) Value {
	return Value{Type: t, Bits: v & t.Bitmask()}
}

// FromFloat64 builds a Value of Fp32 or Fp64, narrowing to float32
// precision for Fp32.
func FromFloat64(t Type, v float64) Value {
	if t == Fp32 {
		v = float64(float32(v))
	}
	return Value{Type: t, Float: v}
}

// AsUint64 returns the integer payload, valid only when Type.IsInteger().
func (v Value) AsUint64() uint64 { return v.Bits }

// AsInt64 reinterprets the integer payload as two's-complement signed,
// sign-extended from the type's width.
func (v Value) AsInt64() int64 {
	shift := 64 - 8*uint(v.Type.SizeInBytes())
	return int64(v.Bits<<shift) >> shift
}

// AsFloat64 returns the floating-point payload, valid only when
// Type.Interpretation() == Float.
func (v Value) AsFloat64() float64 { return v.Float }

// Cast converts v (of its own Type) to a Value of target type to, following
// §4.5.4's cast<A↦B> semantics: value-preserving where representable,
// truncating toward zero for float-to-integer conversions.
//
// Integer-to-float conversions of uint64/sint64 preserve the exact integer
// value up to 2^53; beyond that magnitude, precision loss is permitted (the
// target's native float64 rounding behavior is used as-is), per the design
// note on big-integer handling.
func Cast(v Value, to Type) Value {
	if v.Type == to {
		return v
	}
	switch {
	case v.Type.IsInteger() && to.IsInteger():
		if v.Type.Interpretation() == Signed {
			return FromUint64(to, uint64(v.AsInt64()))
		}
		return FromUint64(to, v.AsUint64())
	case v.Type.IsInteger() && !to.IsInteger():
		var f float64
		if v.Type.Interpretation() == Signed {
			f = float64(v.AsInt64())
		} else {
			f = float64(v.AsUint64())
		}
		return FromFloat64(to, f)
	case !v.Type.IsInteger() && to.IsInteger():
		f := math.Trunc(v.AsFloat64())
		if to.Interpretation() == Signed {
			return FromUint64(to, uint64(int64(f)))
		}
		return FromUint64(to, uint64(f))
	default: // float to float
		return FromFloat64(to, v.AsFloat64())
	}
}
