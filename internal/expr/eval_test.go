package expr

import (
	"qcc/internal/ctypes"
	"qcc/internal/token"
	"testing"
)

// TestFoldBinaryRoundTripSignedInt is spec.md §8's round-trip property for
// the signed-int operator matrix: constant-fold must match what the same
// operation produces when executed directly at the same bit width.
func TestFoldBinaryRoundTripSignedInt(t *testing.T) {
	cases := []struct {
		op       token.Kind
		a, b     int64
		expectFn func(a, b int64) int64
	}{
		{token.ADD, 7, 35, func(a, b int64) int64 { return a + b }},
		{token.SUB, 100, 58, func(a, b int64) int64 { return a - b }},
		{token.MUL, -6, 7, func(a, b int64) int64 { return a * b }},
		{token.DIV, -100, 7, func(a, b int64) int64 { return a / b }},
		{token.MOD, -100, 7, func(a, b int64) int64 { return a % b }},
		{token.BAND, 0x0f, 0xff, func(a, b int64) int64 { return a & b }},
		{token.BOR, 0x10, 0x01, func(a, b int64) int64 { return a | b }},
		{token.XOR, 0x1f, 0x0f, func(a, b int64) int64 { return a ^ b }},
		{token.SHL, 3, 4, func(a, b int64) int64 { return a << uint64(b) }},
		{token.SHR, -64, 2, func(a, b int64) int64 { return a >> uint64(b) }},
	}
	for _, c := range cases {
		l := mkConstInt(ctypes.Int, uint64(c.a))
		r := mkConstInt(ctypes.Int, uint64(c.b))
		got := foldBinary(c.op, l, r)
		want := int64(int32(c.expectFn(c.a, c.b)))
		if int64(int32(got.ConstI)) != want {
			t.Errorf("foldBinary(%v, %d, %d) = %d, want %d", c.op, c.a, c.b, int32(got.ConstI), want)
		}
	}
}

// TestFoldBinaryRoundTripUnsignedInt mirrors the above for the unsigned
// branch, where shifts and division are logical/unsigned rather than
// arithmetic/signed.
func TestFoldBinaryRoundTripUnsignedInt(t *testing.T) {
	cases := []struct {
		op   token.Kind
		a, b uint32
		want uint32
	}{
		{token.ADD, 0xfffffff0, 0x20, 0x10},
		{token.DIV, 0xffffffff, 2, 0x7fffffff},
		{token.SHR, 0x80000000, 4, 0x08000000},
	}
	for _, c := range cases {
		l := mkConstInt(ctypes.UInt, uint64(c.a))
		r := mkConstInt(ctypes.UInt, uint64(c.b))
		got := foldBinary(c.op, l, r)
		if uint32(got.ConstI) != c.want {
			t.Errorf("foldBinary(%v, %#x, %#x) = %#x, want %#x", c.op, c.a, c.b, uint32(got.ConstI), c.want)
		}
	}
}

// TestFoldBinaryFloat checks the float branch of the operator matrix.
func TestFoldBinaryFloat(t *testing.T) {
	l := mkConstFloat(ctypes.Double, 10)
	r := mkConstFloat(ctypes.Double, 4)
	if got := foldBinary(token.DIV, l, r); got.ConstF != 2.5 {
		t.Errorf("foldBinary(DIV, 10.0, 4.0) = %v, want 2.5", got.ConstF)
	}
	if got := foldBinary(token.LESS, l, r); got.ConstI != 0 {
		t.Errorf("foldBinary(LESS, 10.0, 4.0) = %d, want 0", got.ConstI)
	}
}

// TestEvalFoldsConstantBinaryExpr exercises Eval end to end over a small
// KBinary tree, the shape internal/expr's parser actually builds.
func TestEvalFoldsConstantBinaryExpr(t *testing.T) {
	e := &Expr{Kind: KBinary, Type: ctypes.Int, Op: token.ADD,
		L: mkConstInt(ctypes.Int, 3), R: mkConstInt(ctypes.Int, 4)}
	got := Eval(e)
	if got.Kind != KConst || got.ConstI != 7 {
		t.Fatalf("Eval(3+4) = %+v, want constant 7", got)
	}
}
