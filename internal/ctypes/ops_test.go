package ctypes

import "testing"

// TestPromoteLeavesWideIntegersUnchanged is the regression case for the
// widthBits==-1 sentinel: a non-bit-field long/unsigned long/long long/
// unsigned long long must promote to itself, never fall through to the
// int/unsigned-int branch meant for sub-int-rank operands.
func TestPromoteLeavesWideIntegersUnchanged(t *testing.T) {
	for _, ty := range []*Type{Long, ULong, LLong, ULLong} {
		if got := Promote(ty, -1); got != ty {
			t.Errorf("Promote(%v, -1) = %v, want unchanged", ty.Basic, got)
		}
	}
}

// TestPromoteSubIntRank checks the rank <= int side of promote(): char,
// signed or unsigned, promotes to plain int (its whole value range fits).
func TestPromoteSubIntRank(t *testing.T) {
	for _, ty := range []*Type{Bool, Char, SChar, UChar, Short, UShort} {
		if got := Promote(ty, -1); got != Int {
			t.Errorf("Promote(%v, -1) = %v, want Int", ty.Basic, got)
		}
	}
}

// TestPromoteIntRankUnchanged checks that int/unsigned int are left as
// themselves: they are already at promote's target rank.
func TestPromoteIntRankUnchanged(t *testing.T) {
	if got := Promote(Int, -1); got != Int {
		t.Errorf("Promote(Int, -1) = %v, want Int", got)
	}
	if got := Promote(UInt, -1); got != UInt {
		t.Errorf("Promote(UInt, -1) = %v, want UInt", got)
	}
}

// TestPromoteBitfieldWidth checks that a narrow bit-field promotes based
// on its declared width, not its storage unit's full size: a 3-bit
// unsigned int bit-field's value always fits signed int.
func TestPromoteBitfieldWidth(t *testing.T) {
	if got := Promote(UInt, 3); got != Int {
		t.Errorf("Promote(UInt, 3) = %v, want Int", got)
	}
}

// TestPromoteIdempotent is spec.md §8's promotion idempotence property:
// promoting an already-promoted type is a no-op.
func TestPromoteIdempotent(t *testing.T) {
	for _, ty := range []*Type{Bool, Char, UChar, Short, Int, UInt, Long, ULong, LLong, ULLong, Float} {
		once := Promote(ty, -1)
		twice := Promote(once, -1)
		if once != twice {
			t.Errorf("Promote not idempotent for %v: once=%v twice=%v", ty.Basic, once, twice)
		}
	}
}

// TestCommonRealSymmetric is spec.md §8's common-real symmetry property:
// the usual arithmetic conversions must not depend on operand order.
func TestCommonRealSymmetric(t *testing.T) {
	pairs := [][2]*Type{
		{Int, Long}, {UInt, Int}, {Long, ULLong}, {Float, Double}, {Int, Double}, {UInt, UInt},
	}
	for _, p := range pairs {
		a := CommonReal(p[0], -1, p[1], -1)
		b := CommonReal(p[1], -1, p[0], -1)
		if a != b {
			t.Errorf("CommonReal(%v,%v) = %v but CommonReal(%v,%v) = %v", p[0].Basic, p[1].Basic, a, p[1].Basic, p[0].Basic, b)
		}
	}
}

// TestCommonRealRank checks the ordinary same-signedness case takes the
// higher-ranked operand.
func TestCommonRealRank(t *testing.T) {
	if got := CommonReal(Int, -1, Long, -1); got != Long {
		t.Errorf("CommonReal(Int, Long) = %v, want Long", got)
	}
}

// TestCommonRealUnsignedWins checks that at equal rank, the unsigned
// operand wins (C11 6.3.1.8p1).
func TestCommonRealUnsignedWins(t *testing.T) {
	if got := CommonReal(Int, -1, UInt, -1); got != UInt {
		t.Errorf("CommonReal(Int, UInt) = %v, want UInt", got)
	}
}

// TestCommonRealFloatDominates checks the float/double short-circuit
// before any integer promotion happens.
func TestCommonRealFloatDominates(t *testing.T) {
	if got := CommonReal(Int, -1, Double, -1); got != Double {
		t.Errorf("CommonReal(Int, Double) = %v, want Double", got)
	}
	if got := CommonReal(Float, -1, Double, -1); got != Double {
		t.Errorf("CommonReal(Float, Double) = %v, want Double", got)
	}
}

// TestTypeSingletonsSharedIdentity is spec.md §8's type-singleton
// property: the basic types are singletons, so any two paths that should
// reach "plain int" (or another basic type) must hand back the exact same
// *Type object, not merely an equal-looking copy.
func TestTypeSingletonsSharedIdentity(t *testing.T) {
	viaPromote := Promote(Char, -1)
	viaCommonReal := CommonReal(Int, -1, Int, -1)
	viaBitfield := Promote(UInt, 3)
	if viaPromote != Int {
		t.Errorf("Promote(Char, -1) did not return the Int singleton: %p vs %p", viaPromote, Int)
	}
	if viaCommonReal != Int {
		t.Errorf("CommonReal(Int, Int) did not return the Int singleton: %p vs %p", viaCommonReal, Int)
	}
	if viaBitfield != Int {
		t.Errorf("Promote(UInt, 3) did not return the Int singleton: %p vs %p", viaBitfield, Int)
	}
	if viaPromote != viaCommonReal || viaCommonReal != viaBitfield {
		t.Error("three different paths to Int produced three different objects")
	}
}

func TestCompatibleBasic(t *testing.T) {
	if !Compatible(Int, Int) {
		t.Error("Int should be compatible with itself")
	}
	if Compatible(Int, UInt) {
		t.Error("Int and UInt should not be compatible (differ in signedness)")
	}
}

func TestCompatibleEnumWithBase(t *testing.T) {
	e := MkEnum("E", Int)
	if !Compatible(e, Int) {
		t.Error("an enum should be compatible with its own integer base")
	}
	if !Compatible(Int, e) {
		t.Error("Compatible should be symmetric for enum/base")
	}
	e2 := MkEnum("E2", Int)
	if Compatible(e, e2) {
		t.Error("two distinct enums sharing a base should not be compatible")
	}
}

func TestCompatiblePointerQualifiers(t *testing.T) {
	p1 := MkPointer(Int, QualConst)
	p2 := MkPointer(Int, QualConst)
	if !Compatible(p1, p2) {
		t.Error("pointers to the same base with the same qualifiers should be compatible")
	}
	p3 := MkPointer(Int, QualNone)
	if Compatible(p1, p3) {
		t.Error("pointers differing in qualifiers should not be compatible")
	}
}

func TestAdjustArrayDecaysToPointer(t *testing.T) {
	arr := MkArray(Int, QualConst, 4)
	adj, q := Adjust(arr, QualNone)
	if adj.Kind != POINTER || adj.Base != Int {
		t.Fatalf("array should decay to pointer-to-element, got %+v", adj)
	}
	if adj.Qual&QualConst == 0 {
		t.Error("decayed pointer should carry the array element's qualifiers")
	}
	if q != QualNone {
		t.Error("decayed array's own qualifier result should be QualNone")
	}
}

func TestAdjustFunctionDecaysToPointer(t *testing.T) {
	fn := MkFunc(Int, nil, false, true, false, true)
	adj, _ := Adjust(fn, QualNone)
	if adj.Kind != POINTER || adj.Base != fn {
		t.Fatalf("function should decay to pointer-to-function, got %+v", adj)
	}
}

func TestMemberAnonymousNesting(t *testing.T) {
	inner := MkStruct("")
	inner.Members = &Member{Name: "y", Type: Int, Offset: 4}
	inner.Size = 8

	outer := MkStruct("S")
	outer.Members = &Member{Name: "", Type: inner, Offset: 8, Next: nil}

	m, off := Member(outer, "y")
	if m == nil {
		t.Fatal("expected to find y through the anonymous sub-aggregate")
	}
	if off != 12 {
		t.Errorf("expected accumulated offset 8+4=12, got %d", off)
	}
}
