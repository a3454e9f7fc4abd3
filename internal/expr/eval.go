package expr

import (
	"qcc/internal/ctypes"
	"qcc/internal/sym"
	"qcc/internal/token"
)

// Eval performs constant folding, mirroring eval.c's eval. cproc's source
// tree carries two eval signatures across its history (a single-arg
// unconditional fold in eval.c, and a 2-arg eval(e, EVALARITH) called
// from expr.c); qcc simplifies to the single unconditional fold eval.c
// itself implements, since nothing downstream needs a partial-fold mode
// and the 2-arg call sites only ever pass EVALARITH.
func Eval(e *Expr) *Expr {
	switch e.Kind {
	case KIdent:
		// Only enumerator/folded-constant decls fold away to a literal;
		// an ordinary object or function identifier stays an lvalue
		// reference for internal/ir to resolve against its storage.
		if e.Decl == nil || e.Decl.Kind != sym.DeclConst {
			break
		}
		folded := mk(KConst, e.Type, nil)
		folded.ConstI = e.Decl.IntConst
		return folded
	case KUnary:
		l := Eval(e.Base)
		if e.Op != token.BAND {
			break
		}
		switch l.Kind {
		case KUnary:
			if l.Op == token.MUL {
				return Eval(l.Base)
			}
		}
	case KCast:
		l := Eval(e.Base)
		if l.Kind == KConst {
			folded := mk(KConst, e.Type, nil)
			switch {
			case l.Type.IsInt() && e.Type.IsFloat():
				folded.ConstF = float64(int64(l.ConstI))
			case l.Type.IsFloat() && e.Type.IsInt():
				folded.ConstI = uint64(int64(l.ConstF))
			default:
				folded.ConstI, folded.ConstF = l.ConstI, l.ConstF
			}
			return folded
		}
		if l.Type.Kind == ctypes.POINTER && e.Type.Kind == ctypes.POINTER {
			return l
		}
	case KBinary:
		l := Eval(e.L)
		r := Eval(e.R)
		e.L, e.R = l, r
		if l.Kind != KConst {
			break
		}
		if e.Op == token.LOR {
			if l.ConstI != 0 {
				return l
			}
			return r
		}
		if e.Op == token.LAND {
			if l.ConstI == 0 {
				return l
			}
			return r
		}
		if r.Kind != KConst {
			break
		}
		return foldBinary(e.Op, l, r)
	case KCond:
		c := Eval(e.CondE)
		if c.Kind != KConst {
			break
		}
		if c.ConstI != 0 {
			return Eval(e.CondT)
		}
		return Eval(e.CondF)
	}
	return e
}

// foldBinary computes the constant result of op on two folded constants
// l, r, mirroring eval.c's giant op|class-flag switch; here dispatched on
// (type class, signedness) instead of bit-packing the flags into the
// token kind, since Go switches don't need the C trick of OR-ing a flag
// into an enum to keep one switch table.
func foldBinary(op token.Kind, l, r *Expr) *Expr {
	t := l.Type
	result := mk(KConst, t, nil)
	if !t.IsFloat() && (op == token.DIV || op == token.MOD) && r.ConstI == 0 {
		fatalf("division by zero in constant expression")
	}
	switch {
	case t.IsFloat():
		lf, rf := l.ConstF, r.ConstF
		switch op {
		case token.MUL:
			result.ConstF = lf * rf
		case token.DIV:
			result.ConstF = lf / rf
		case token.ADD:
			result.ConstF = lf + rf
		case token.SUB:
			result.ConstF = lf - rf
		case token.LESS:
			result.ConstI = boolU64(lf < rf)
		case token.GREATER:
			result.ConstI = boolU64(lf > rf)
		case token.LEQ:
			result.ConstI = boolU64(lf <= rf)
		case token.GEQ:
			result.ConstI = boolU64(lf >= rf)
		case token.EQL:
			result.ConstI = boolU64(lf == rf)
		case token.NEQ:
			result.ConstI = boolU64(lf != rf)
		default:
			fatalf("internal error; unknown binary expression")
		}
	case t.IsSigned:
		li, ri := int64(l.ConstI), int64(r.ConstI)
		switch op {
		case token.MUL:
			result.ConstI = uint64(li * ri)
		case token.DIV:
			result.ConstI = uint64(li / ri)
		case token.MOD:
			result.ConstI = uint64(li % ri)
		case token.ADD:
			result.ConstI = uint64(li + ri)
		case token.SUB:
			result.ConstI = uint64(li - ri)
		case token.SHL:
			result.ConstI = uint64(li << uint64(ri))
		case token.SHR:
			result.ConstI = uint64(li >> uint64(ri))
		case token.BAND:
			result.ConstI = uint64(li & ri)
		case token.BOR:
			result.ConstI = uint64(li | ri)
		case token.XOR:
			result.ConstI = uint64(li ^ ri)
		case token.LESS:
			result.ConstI = boolU64(li < ri)
		case token.GREATER:
			result.ConstI = boolU64(li > ri)
		case token.LEQ:
			result.ConstI = boolU64(li <= ri)
		case token.GEQ:
			result.ConstI = boolU64(li >= ri)
		case token.EQL:
			result.ConstI = boolU64(li == ri)
		case token.NEQ:
			result.ConstI = boolU64(li != ri)
		default:
			fatalf("internal error; unknown binary expression")
		}
	default:
		lu, ru := l.ConstI, r.ConstI
		switch op {
		case token.MUL:
			result.ConstI = lu * ru
		case token.DIV:
			result.ConstI = lu / ru
		case token.MOD:
			result.ConstI = lu % ru
		case token.ADD:
			result.ConstI = lu + ru
		case token.SUB:
			result.ConstI = lu - ru
		case token.SHL:
			result.ConstI = lu << ru
		case token.SHR:
			result.ConstI = lu >> ru
		case token.BAND:
			result.ConstI = lu & ru
		case token.BOR:
			result.ConstI = lu | ru
		case token.XOR:
			result.ConstI = lu ^ ru
		case token.LESS:
			result.ConstI = boolU64(lu < ru)
		case token.GREATER:
			result.ConstI = boolU64(lu > ru)
		case token.LEQ:
			result.ConstI = boolU64(lu <= ru)
		case token.GEQ:
			result.ConstI = boolU64(lu >= ru)
		case token.EQL:
			result.ConstI = boolU64(lu == ru)
		case token.NEQ:
			result.ConstI = boolU64(lu != ru)
		default:
			fatalf("internal error; unknown binary expression")
		}
	}
	return result
}

func boolU64(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}
