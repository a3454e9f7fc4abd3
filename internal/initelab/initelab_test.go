package initelab

import (
	"strings"
	"testing"

	"qcc/internal/ctypes"
	"qcc/internal/expr"
	"qcc/internal/sym"
	"qcc/internal/target"
	"qcc/internal/token"
)

func harness(t *testing.T, src string) (*Parser, *sym.Scope) {
	t.Helper()
	tgt, ok := target.New("")
	if !ok {
		t.Fatal("no default target")
	}
	ts := token.NewScanner("test.c", strings.NewReader(src))
	noType := func(*sym.Scope) (*ctypes.Type, ctypes.Qual, bool) { return nil, 0, false }
	noInit := func(*sym.Scope, *ctypes.Type) interface{} { return nil }
	ep := expr.NewParser(ts, noType, noInit)
	p := NewParser(ts, ep)
	s := sym.NewFileScope(tgt.VaList)
	return p, s
}

// TestAddKeepsSortedNonOverlapping directly exercises the sorted insertion
// invariant spec.md §8's "init coverage" property names: inserted in
// scrambled order, the list comes out start-ascending with adjacent
// ranges touching but never overlapping.
func TestAddKeepsSortedNonOverlapping(t *testing.T) {
	p := &Parser{}
	p.add(mkInit(8, 12, ctypes.Bitfield{}, nil))
	p.add(mkInit(0, 4, ctypes.Bitfield{}, nil))
	p.add(mkInit(4, 8, ctypes.Bitfield{}, nil))

	var starts, ends []uint64
	for i := p.head; i != nil; i = i.Next {
		starts = append(starts, i.Start)
		ends = append(ends, i.End)
	}
	wantStarts := []uint64{0, 4, 8}
	wantEnds := []uint64{4, 8, 12}
	if len(starts) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(starts))
	}
	for i := range starts {
		if starts[i] != wantStarts[i] || ends[i] != wantEnds[i] {
			t.Fatalf("entry %d: got [%d,%d), want [%d,%d)", i, starts[i], ends[i], wantStarts[i], wantEnds[i])
		}
	}
	for i := 1; i < len(starts); i++ {
		if starts[i] < ends[i-1] {
			t.Fatalf("entries %d and %d overlap: [%d,%d) then [%d,%d)", i-1, i, starts[i-1], ends[i-1], starts[i], ends[i])
		}
	}
}

// TestParseArrayInitializerCoversRanges elaborates `{1, 2, 3}` against an
// int[3] and checks every flattened range is sorted, non-overlapping, and
// fits within [0, sizeof(object)*8] per spec.md §8's init-coverage
// property, plus that the array's 3 elements each got exactly one Init.
func TestParseArrayInitializerCoversRanges(t *testing.T) {
	p, s := harness(t, `{1, 2, 3}`)
	arr := ctypes.MkArray(ctypes.Int, ctypes.QualNone, 3)
	init := p.Parse(s, arr)

	var got []*Init
	for i := init; i != nil; i = i.Next {
		got = append(got, i)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 flattened initializers, got %d", len(got))
	}
	limit := arr.Size * 8
	prevEnd := uint64(0)
	for idx, i := range got {
		start, end := bitStart(i), bitEnd(i)
		if start < prevEnd {
			t.Fatalf("entry %d starts at bit %d before previous end %d", idx, start, prevEnd)
		}
		if end > limit {
			t.Fatalf("entry %d ends at bit %d beyond object size %d", idx, end, limit)
		}
		prevEnd = end
	}
}

// TestParseScalarInitializerSingleRange covers the simplest case: a plain
// int initializer produces exactly one Init spanning the whole object.
func TestParseScalarInitializerSingleRange(t *testing.T) {
	p, s := harness(t, `42`)
	init := p.Parse(s, ctypes.Int)
	if init == nil || init.Next != nil {
		t.Fatalf("expected exactly one Init for a scalar initializer")
	}
	if init.Start != 0 || init.End != ctypes.Int.Size {
		t.Fatalf("expected range [0,%d), got [%d,%d)", ctypes.Int.Size, init.Start, init.End)
	}
}
