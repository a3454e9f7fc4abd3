package ir

import (
	"testing"

	"qcc/internal/ctypes"
	"qcc/internal/cutil"
	"qcc/internal/ssa"
	"qcc/internal/sym"
	"qcc/internal/target"
)

// TestSwitchOneEqualityTestPerKey is spec.md §8's switch-tree property:
// for any set of case keys, the lowered decision tree executes exactly
// one equality test per key, and distinct keys land on distinct blocks.
func TestSwitchOneEqualityTestPerKey(t *testing.T) {
	tgt, ok := target.New("")
	if !ok {
		t.Fatal("no default target")
	}
	b := NewBuilder(tgt, NewTypeTable())

	f := ssa.NewFunc("f", ctypes.MkFunc(ctypes.Int, nil, false, true, false, true))
	v := f.Temp()

	keys := []uint64{1, 1000000, 18446744073709551613 /* uint64(-3) */, 42, 7}
	tree := cutil.NewTree[*ssa.Block]()
	dests := make(map[uint64]*ssa.Block)
	for _, k := range keys {
		blk := ssa.MkBlock("case")
		tree.Insert(k, blk)
		dests[k] = blk
	}
	deflt := ssa.MkBlock("default")

	sw := &sym.SwitchCases{Tree: tree, Default: deflt}
	b.Switch(f, &v, ctypes.Int, sw)

	eqCount := 0
	jnzTargets := map[*ssa.Block]bool{}
	for blk := f.Start; blk != nil; blk = blk.Next {
		for _, inst := range blk.Insts {
			if inst.Op == ssa.ICeqW || inst.Op == ssa.ICeqL {
				eqCount++
			}
		}
		if blk.Jump.Kind == ssa.JumpJnz {
			jnzTargets[blk.Jump.Succ[0]] = true
		}
	}

	if eqCount != len(keys) {
		t.Fatalf("expected %d equality tests (one per key), got %d", len(keys), eqCount)
	}
	for _, blk := range dests {
		if !jnzTargets[blk] {
			t.Errorf("case block %p never reached as a jnz true-target", blk)
		}
	}
}
