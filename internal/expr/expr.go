// Package expr implements the C expression grammar and constant folder
// (spec.md §4.4), grounded on original_source/expr.c/expr.h/eval.c.
//
// Expr is a single closed tagged-variant struct switched on by Kind,
// deliberately not an interface with per-kind Accept methods: spec.md §9
// calls for exhaustive matching on a tagged variant over OO dispatch for
// token-kind-driven parsing, so the sentra teacher's own visitor-pattern
// Expr/Stmt AST is not carried forward here.
package expr

import (
	"qcc/internal/ctypes"
	"qcc/internal/ssa"
	"qcc/internal/sym"
	"qcc/internal/token"
)

// Kind tags the variant an Expr is, mirroring enum exprkind in expr.h.
type Kind int

const (
	KIdent Kind = iota
	KConst
	KString
	KCall
	KIncDec
	KCompound
	KUnary
	KCast
	KBinary
	KCond
	KAssign
	KComma
	KBuiltin
	KBitfield
	KTemp
)

// Expr is a node in the expression tree. Only the fields relevant to Kind
// are meaningful; this mirrors expr.h's tagged union directly rather than
// through Go's own (tagless) union-incapable type system, at the cost of
// a few unused fields per node — the same tradeoff cproc's C union avoids
// but Go has no equivalent of without reflection or code generation.
type Expr struct {
	Kind    Kind
	Type    *ctypes.Type
	Qual    ctypes.Qual
	Lvalue  bool
	Decayed bool
	Next    *Expr // comma-list / call-argument list linkage

	Decl *sym.Decl // KIdent

	ConstI uint64 // KConst (integer payload, also bool payload)
	ConstF float64

	StrData []byte // KString, raw decoded bytes already in target element width

	Base *Expr // KUnary/KCast/KIncDec/KBitfield/KCompound(decay)/KBuiltin base

	Op   token.Kind // KUnary/KBinary/KIncDec operator
	Post bool       // KIncDec: true for postfix

	L, R *Expr // KBinary, KAssign

	CondE, CondT, CondF *Expr // KCond: e ? t : f

	CallFunc *Expr
	CallArgs *Expr // linked list via Next
	NArgs    int

	Bits ctypes.Bitfield // KBitfield

	Builtin    sym.BuiltinKind // KBuiltin
	BuiltinArg *Expr

	CompoundInit interface{} // KCompound: *initelab.Init, set by the caller (avoids expr->initelab import)

	Temp *ssa.Value // KTemp: filled in by internal/ir once the value is known
}

func mk(kind Kind, t *ctypes.Type, base *Expr) *Expr {
	return &Expr{Kind: kind, Type: t, Base: base}
}

func mkConstInt(t *ctypes.Type, v uint64) *Expr {
	e := mk(KConst, t, nil)
	e.ConstI = v
	return e
}

func mkConstFloat(t *ctypes.Type, v float64) *Expr {
	e := mk(KConst, t, nil)
	e.ConstF = v
	return e
}

// IsNullPointerConst reports whether e is a null pointer constant per
// C11 6.3.2.3p3 (a folded KConst of integer 0, or of pointer-to-void
// type with integer value 0) — mirrors expr.c's nullpointer, applied
// after folding by the caller.
func IsNullPointerConst(e *Expr) bool {
	if e.Kind != KConst {
		return false
	}
	if !e.Type.IsInt() && !(e.Type.Kind == ctypes.POINTER && e.Type.Base == ctypes.Void) {
		return false
	}
	return e.ConstI == 0
}

func bitfieldWidth(e *Expr) int {
	if e.Kind != KBitfield {
		return -1
	}
	return e.Bits.Width(int(e.Type.Size) * 8)
}

// ExprConvert wraps e in a cast to t unless the types are already
// compatible, mirroring exprconvert.
func ExprConvert(e *Expr, t *ctypes.Type) *Expr {
	if ctypes.Compatible(e.Type, t) {
		return e
	}
	return mk(KCast, t, e)
}

// Promote applies integer/float promotion to e, mirroring exprpromote.
func Promote(e *Expr) *Expr {
	t := ctypes.Promote(e.Type, bitfieldWidth(e))
	return ExprConvert(e, t)
}

func commonReal(l, r *Expr) (*Expr, *Expr, *ctypes.Type) {
	t := ctypes.CommonReal(l.Type, bitfieldWidth(l), r.Type, bitfieldWidth(r))
	return ExprConvert(l, t), ExprConvert(r, t), t
}
