package stmt

import (
	"strings"
	"testing"

	"qcc/internal/ctypes"
	"qcc/internal/expr"
	"qcc/internal/ir"
	"qcc/internal/ssa"
	"qcc/internal/sym"
	"qcc/internal/target"
	"qcc/internal/token"
)

// harness wires up the minimal Expr/IR/Parser trio a test needs, with a
// Decl callback that never recognizes a declaration (these tests only
// exercise control flow, not mixed declarations-and-statements).
func harness(t *testing.T, src string, ft *ctypes.Type) (*Parser, *ssa.Func, *sym.Scope) {
	t.Helper()
	tgt, ok := target.New("")
	if !ok {
		t.Fatal("no default target")
	}
	ts := token.NewScanner("test.c", strings.NewReader(src))
	noType := func(*sym.Scope) (*ctypes.Type, ctypes.Qual, bool) { return nil, 0, false }
	noInit := func(*sym.Scope, *ctypes.Type) interface{} { return nil }
	ep := expr.NewParser(ts, noType, noInit)
	b := ir.NewBuilder(tgt, ir.NewTypeTable())
	noDecl := func(*sym.Scope, *ssa.Func) bool { return false }
	sp := NewParser(ts, ep, b, noDecl)

	f := ssa.NewFunc("f", ft)
	sc := sym.NewFileScope(tgt.VaList)
	sc = sym.NewScope(sc)
	b.Prologue(f, sc, "f")
	return sp, f, sc
}

func countBlocks(f *ssa.Func) int {
	n := 0
	for b := f.Start; b != nil; b = b.Next {
		n++
	}
	return n
}

func intFunc() *ctypes.Type {
	return ctypes.MkFunc(ctypes.Int, nil, false, true, false, true)
}

func TestStmtIfElse(t *testing.T) {
	sp, f, s := harness(t, `if (1) x: ; else ;`, intFunc())
	sp.Stmt(f, s)
	if countBlocks(f) < 4 {
		t.Fatalf("expected at least 4 blocks (start, true, false, ...), got %d", countBlocks(f))
	}
	if f.Start.Jump.Kind != ssa.JumpNone {
		t.Fatalf("start block should still be open for Prologue's body label, got jump kind %v", f.Start.Jump.Kind)
	}
}

func TestStmtWhileBreakContinue(t *testing.T) {
	sp, f, s := harness(t, `while (1) { continue; break; }`, intFunc())
	sp.Stmt(f, s)
	var jmps, jnzs int
	for b := f.Start; b != nil; b = b.Next {
		switch b.Jump.Kind {
		case ssa.JumpJmp:
			jmps++
		case ssa.JumpJnz:
			jnzs++
		}
	}
	if jnzs == 0 {
		t.Fatal("expected at least one conditional jump for the while condition")
	}
	if jmps == 0 {
		t.Fatal("expected the continue statement to lower to a jmp back to the condition")
	}
}

func TestStmtSwitchCaseDefault(t *testing.T) {
	sp, f, s := harness(t, `switch (1) { case 1: break; case 2: break; default: break; }`, intFunc())
	sp.Stmt(f, s)
	if countBlocks(f) == 0 {
		t.Fatal("expected blocks to be emitted")
	}
}

func TestStmtSwitchDuplicateCase(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected a diagnostic panic for a duplicate case value")
		}
	}()
	sp, f, s := harness(t, `switch (1) { case 1: ; case 1: ; }`, intFunc())
	sp.Stmt(f, s)
}

func TestStmtBreakOutsideLoop(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected a diagnostic panic for break outside a loop or switch")
		}
	}()
	sp, f, s := harness(t, `break;`, intFunc())
	sp.Stmt(f, s)
}

func TestStmtGotoForward(t *testing.T) {
	sp, f, s := harness(t, `{ goto done; done: ; }`, intFunc())
	sp.Stmt(f, s)
	g, ok := f.Gotos["done"]
	if !ok {
		t.Fatal("expected a goto label named 'done'")
	}
	if !g.Defined {
		t.Fatal("expected 'done' label to be marked defined")
	}
}

func TestStmtReturnVoidRejectsValue(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected a diagnostic panic for returning a value from a void function")
		}
	}()
	voidFunc := ctypes.MkFunc(ctypes.Void, nil, false, true, false, true)
	sp, f, s := harness(t, `return 1;`, voidFunc)
	sp.Stmt(f, s)
}

func TestStmtFor(t *testing.T) {
	sp, f, s := harness(t, `for (;;) { break; }`, intFunc())
	sp.Stmt(f, s)
	var sawJmpToStart bool
	for b := f.Start; b != nil; b = b.Next {
		if b.Jump.Kind == ssa.JumpJmp && b.Jump.Succ[0] != nil && b.Jump.Succ[0].Label.Name == "for_body" {
			sawJmpToStart = true
		}
	}
	if !sawJmpToStart {
		t.Fatal("expected the empty for-condition to jump straight into the loop body")
	}
}
