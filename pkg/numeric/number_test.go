package numeric

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBitmask(t *testing.T) {
	tests := []struct {
		typ  Type
		want uint64
	}{
		{Uint8, 0xFF},
		{Uint16, 0xFFFF},
		{Uint32, 0xFFFFFFFF},
		{Uint64, 0xFFFFFFFFFFFFFFFF},
		{Sint8, 0xFF},
		{Sint64, 0xFFFFFFFFFFFFFFFF},
		{Fp32, 0xFFFFFFFF},
		{Fp64, 0xFFFFFFFFFFFFFFFF},
	}
	for _, tt := range tests {
		t.Run(tt.typ.String(), func(t *testing.T) {
			require.Equal(t, tt.want, tt.typ.Bitmask())
		})
	}
}

func TestExactlyOneVariantPerPair(t *testing.T) {
	seen := map[[2]any]Type{}
	for _, typ := range All {
		key := [2]any{typ.Interpretation(), typ.SizeInBytes()}
		if other, ok := seen[key]; ok {
			t.Fatalf("duplicate (interpretation,size) pair for %v and %v", typ, other)
		}
		seen[key] = typ
	}
	// Floats only at 4 and 8 bytes.
	require.True(t, Fp32.SizeInBytes() == 4)
	require.True(t, Fp64.SizeInBytes() == 8)
}

func TestCastIdentity(t *testing.T) {
	for _, typ := range All {
		var v Value
		if typ.IsInteger() {
			v = FromUint64(typ, 42)
		} else {
			v = FromFloat64(typ, 42.5)
		}
		got := Cast(v, typ)
		require.Equal(t, v, got, "cast<%s↦%s> should be identity", typ, typ)
	}
}

func TestCastFloatToIntTruncates(t *testing.T) {
	v := FromFloat64(Fp32, 52.4)
	got := Cast(v, Sint32)
	require.EqualValues(t, 52, got.AsInt64())
}

func TestCastSignedWidening(t *testing.T) {
	neg1 := int64(-1)
	v := FromUint64(Sint8, uint64(neg1)) // 0xFF
	got := Cast(v, Sint32)
	require.EqualValues(t, -1, got.AsInt64())
}

func TestUint64RoundTripBeyond32Bits(t *testing.T) {
	const big = uint64(1) << 40
	v := FromUint64(Uint64, big)
	require.Equal(t, big, v.AsUint64())
}

func TestFloatIntegerBoundary(t *testing.T) {
	const exact = uint64(1) << 53
	v := FromUint64(Uint64, exact)
	f := Cast(v, Fp64)
	back := Cast(f, Uint64)
	require.Equal(t, exact, back.AsUint64())
}
