package expr

import (
	"qcc/internal/cerr"
	"qcc/internal/ctypes"
	"qcc/internal/token"
)

// curLoc is set by the Parser before each call into these helpers so
// error sites report an accurate location without threading a Location
// argument through every one of expr.c's tiny builder functions.
var curLoc token.Location

func fatalf(format string, args ...interface{}) {
	cerr.Fatalf(cerr.KindSyntax, cerr.Location(curLoc), format, args...)
}

// Decay implements C11 6.3.2.1: an array-typed expression decays to a
// pointer to its first element, and a function designator decays to a
// pointer to the function, mirroring expr.c's decay.
func Decay(e *Expr) *Expr {
	switch e.Type.Kind {
	case ctypes.ARRAY:
		d := mkUnary(token.BAND, e)
		d.Type = ctypes.MkPointer(e.Type.Base, e.Type.Qual)
		d.Decayed = true
		return d
	case ctypes.FUNC:
		d := mkUnary(token.BAND, e)
		d.Decayed = true
		return d
	}
	return e
}

// mkUnary builds '&' or '*' applied to base, mirroring mkunaryexpr; the
// other unary operators never reach here: UnaryExpr builds unary '-' as
// its own KUnary node and rewrites '+', '~' and '!' itself.
func mkUnary(op token.Kind, base *Expr) *Expr {
	switch op {
	case token.BAND:
		if base.Decayed {
			base = base.Base
		}
		if !base.Lvalue && base.Type.Kind != ctypes.FUNC && base.Type.Kind != ctypes.STRUCT && base.Type.Kind != ctypes.UNION {
			fatalf("'&' operand is not an lvalue or function designator")
		}
		if base.Kind == KBitfield {
			fatalf("cannot take address of bit-field")
		}
		e := mk(KUnary, ctypes.MkPointer(base.Type, base.Qual), base)
		e.Op = op
		return e
	case token.MUL:
		if base.Type.Kind != ctypes.POINTER {
			fatalf("cannot dereference non-pointer")
		}
		e := mk(KUnary, base.Type.Base, base)
		e.Qual = base.Type.Qual
		e.Lvalue = true
		e.Op = op
		return Decay(e)
	}
	fatalf("internal error: unknown unary operator")
	return nil
}

// ExprAssign checks and converts e for assignment (including implicit
// argument/return/initializer conversion) to t, mirroring exprassign.
func ExprAssign(e *Expr, t *ctypes.Type) *Expr {
	et := e.Type
	switch t.Kind {
	case ctypes.BASIC:
		if t.Basic == ctypes.BoolKind {
			if !et.IsArith() && et.Kind != ctypes.POINTER {
				fatalf("assignment to bool must be from arithmetic or pointer type")
			}
			break
		}
		if !t.IsArith() {
			fatalf("internal error: non-arithmetic basic type")
		}
		if !et.IsArith() {
			fatalf("assignment to arithmetic type must be from arithmetic type")
		}
	case ctypes.POINTER:
		folded := Eval(e)
		if IsNullPointerConst(folded) {
			break
		}
		if et.Kind != ctypes.POINTER {
			fatalf("assignment to pointer must be from pointer or null pointer constant")
		}
		if t.Base != ctypes.Void && et.Base != ctypes.Void && !ctypes.Compatible(t.Base, et.Base) {
			fatalf("base types of pointer assignment must be compatible or void")
		}
		if et.Qual&t.Qual != et.Qual {
			fatalf("assignment to pointer discards qualifiers")
		}
	case ctypes.STRUCT, ctypes.UNION:
		if !ctypes.Compatible(t, et) {
			fatalf("assignment to aggregate type must be from compatible type")
		}
	default:
		if !t.IsArith() {
			fatalf("internal error: unexpected assignment target type")
		}
		if !et.IsArith() {
			fatalf("assignment to arithmetic type must be from arithmetic type")
		}
	}
	return ExprConvert(e, t)
}

// MkBinary builds and type-checks a binary expression, mirroring
// mkbinaryexpr: each operator's operand requirements and result type are
// computed here, including the pointer-arithmetic scale-by-size rewrite
// for + and - and the comma-free compare/logical-op special cases.
func MkBinary(op token.Kind, l, r *Expr) *Expr {
	lt, rt := l.Type, r.Type
	var t *ctypes.Type
	switch op {
	case token.LOR, token.LAND:
		if !lt.IsScalar() {
			fatalf("left operand of '%s' operator must be scalar", op)
		}
		if !rt.IsScalar() {
			fatalf("right operand of '%s' operator must be scalar", op)
		}
		t = ctypes.Int
	case token.EQL, token.NEQ:
		t = ctypes.Int
		if lt.IsArith() && rt.IsArith() {
			l, r, _ = commonReal(l, r)
			break
		}
		if lt.Kind != ctypes.POINTER {
			l, r = r, l
			lt, rt = rt, lt
		}
		if lt.Kind != ctypes.POINTER {
			fatalf("invalid operands to '%s' operator", op)
		}
		fl, fr := Eval(l), Eval(r)
		switch {
		case IsNullPointerConst(fr):
			r = ExprConvert(r, lt)
		case IsNullPointerConst(fl):
			l = ExprConvert(l, rt)
		default:
			if rt.Kind != ctypes.POINTER {
				fatalf("invalid operands to '%s' operator", op)
			}
			if lt.Base.Kind == ctypes.VOID {
				l, r = r, l
				lt, rt = rt, lt
			}
			if rt.Base.Kind == ctypes.VOID && lt.Base.Kind != ctypes.FUNC {
				r = ExprConvert(r, lt)
			} else if !ctypes.Compatible(lt.Base, rt.Base) {
				fatalf("pointer operands to '%s' operator are to incompatible types", op)
			}
		}
	case token.LESS, token.GREATER, token.LEQ, token.GEQ:
		t = ctypes.Int
		switch {
		case (lt.IsInt() || lt.IsFloat()) && (rt.IsInt() || rt.IsFloat()):
			l, r, _ = commonReal(l, r)
		case lt.Kind == ctypes.POINTER && rt.Kind == ctypes.POINTER:
			if !ctypes.Compatible(lt.Base, rt.Base) || lt.Base.Kind == ctypes.FUNC {
				fatalf("pointer operands to '%s' operator must be to compatible object types", op)
			}
		default:
			fatalf("invalid operands to '%s' operator", op)
		}
	case token.BOR, token.XOR, token.BAND:
		l, r, t = commonReal(l, r)
	case token.ADD:
		if lt.IsArith() && rt.IsArith() {
			l, r, t = commonReal(l, r)
			break
		}
		if rt.Kind == ctypes.POINTER {
			l, r = r, l
			lt, rt = rt, lt
		}
		if lt.Kind != ctypes.POINTER || !rt.IsInt() {
			fatalf("invalid operands to '+' operator")
		}
		t = lt
		if t.Base.Incomplete || t.Base.Kind == ctypes.FUNC {
			fatalf("pointer operand to '+' must be to complete object type")
		}
		r = MkBinary(token.MUL, ExprConvert(r, ctypes.ULong), mkConstInt(ctypes.ULong, t.Base.Size))
	case token.SUB:
		if lt.IsArith() && rt.IsArith() {
			l, r, t = commonReal(l, r)
			break
		}
		if lt.Kind != ctypes.POINTER || (!rt.IsInt() && rt.Kind != ctypes.POINTER) {
			fatalf("invalid operands to '-' operator")
		}
		if lt.Base.Incomplete || lt.Base.Kind == ctypes.FUNC {
			fatalf("pointer operand to '-' must be to complete object type")
		}
		if rt.IsInt() {
			t = lt
			r = MkBinary(token.MUL, ExprConvert(r, ctypes.ULong), mkConstInt(ctypes.ULong, t.Base.Size))
		} else {
			if !ctypes.Compatible(lt.Base, rt.Base) {
				fatalf("pointer operands to '-' are to incompatible types")
			}
			t = ctypes.Long
			diff := MkBinary(token.SUB, ExprConvert(l, ctypes.Long), ExprConvert(r, ctypes.Long))
			scale := mkConstInt(ctypes.Long, lt.Base.Size)
			return mkBinaryNode(token.DIV, diff, scale, t)
		}
	case token.MOD:
		if !lt.IsInt() || !rt.IsInt() {
			fatalf("operands to '%%' operator must be integer")
		}
		l, r, t = commonReal(l, r)
	case token.MUL, token.DIV:
		if !lt.IsArith() || !rt.IsArith() {
			fatalf("operands to '%s' operator must be arithmetic", op)
		}
		l, r, t = commonReal(l, r)
	case token.SHL, token.SHR:
		if !lt.IsInt() || !rt.IsInt() {
			fatalf("operands to '%s' operator must be integer", op)
		}
		l = Promote(l)
		r = Promote(r)
		t = l.Type
	default:
		fatalf("internal error: unknown binary operator")
	}
	return mkBinaryNode(op, l, r, t)
}

func mkBinaryNode(op token.Kind, l, r *Expr, t *ctypes.Type) *Expr {
	e := mk(KBinary, t, nil)
	e.Op = op
	e.L, e.R = l, r
	return e
}

