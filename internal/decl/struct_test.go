package decl

import (
	"strings"
	"testing"

	"qcc/internal/ctypes"
	"qcc/internal/token"
)

// builderHarness wires up a minimal Parser for exercising StructBuilder
// directly, mirroring internal/stmt's harness helper: addMember only
// reaches p.fatalf (via p.ts) on malformed input, which these layout
// tests never produce, so Expr/IR are left nil.
func builderHarness(t *testing.T) *Parser {
	t.Helper()
	ts := token.NewScanner("test.c", strings.NewReader(""))
	return NewParser(ts, nil, nil)
}

func qt(t *ctypes.Type) QualType { return QualType{Type: t} }

// TestUnionLayoutOffsetsAndSize checks spec.md §4.3's union invariant: all
// members sit at offset 0, and the union's size is the max (not the sum)
// of its member sizes.
func TestUnionLayoutOffsetsAndSize(t *testing.T) {
	p := builderHarness(t)
	u := ctypes.MkUnion("U")
	b := newStructBuilder(u)
	b.addMember(p, "x", qt(ctypes.Int), -1)
	b.addMember(p, "y", qt(ctypes.MkArray(ctypes.Char, 0, 10)), -1)

	for m := u.Members; m != nil; m = m.Next {
		if m.Offset != 0 {
			t.Fatalf("union member %q: expected offset 0, got %d", m.Name, m.Offset)
		}
	}
	if u.Size != 10 {
		t.Fatalf("expected union size 10 (max member size), got %d", u.Size)
	}
}

// TestStructLayoutCumulativeOffsets is the struct-side control: offsets
// grow and size accumulates, unlike the union case above.
func TestStructLayoutCumulativeOffsets(t *testing.T) {
	p := builderHarness(t)
	s := ctypes.MkStruct("S")
	b := newStructBuilder(s)
	b.addMember(p, "x", qt(ctypes.Int), -1)
	b.addMember(p, "y", qt(ctypes.MkArray(ctypes.Char, 0, 10)), -1)

	if s.Members.Offset != 0 {
		t.Fatalf("expected first member at offset 0, got %d", s.Members.Offset)
	}
	if s.Members.Next.Offset != 4 {
		t.Fatalf("expected second member at offset 4, got %d", s.Members.Next.Offset)
	}
	if s.Size != 14 {
		t.Fatalf("expected struct size 14 (sum of members), got %d", s.Size)
	}
}

// TestUnionBitfieldsShareOffsetZero checks that bit-field members inside a
// union also stay at offset 0 rather than packing into successive storage
// units the way a struct's bit-fields do.
func TestUnionBitfieldsShareOffsetZero(t *testing.T) {
	p := builderHarness(t)
	u := ctypes.MkUnion("U")
	b := newStructBuilder(u)
	b.addMember(p, "a", qt(ctypes.UInt), 3)
	b.addMember(p, "b", qt(ctypes.UInt), 5)

	for m := u.Members; m != nil; m = m.Next {
		if m.Offset != 0 {
			t.Fatalf("union bit-field %q: expected offset 0, got %d", m.Name, m.Offset)
		}
	}
	if u.Size != 4 {
		t.Fatalf("expected union size 4 (max storage unit), got %d", u.Size)
	}
}
