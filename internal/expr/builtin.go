package expr

import (
	"math"

	"qcc/internal/ctypes"
	"qcc/internal/sym"
	"qcc/internal/token"
)

// builtinCall parses a call to one of the twelve compiler built-ins
// scopeinit installs, mirroring builtinfunc. va_start and va_arg parse
// into a KBuiltin node carrying the raw argument; internal/ir, which has
// the target descriptor in scope, checks that argument against
// internal/target's va_list type. va_copy parses into a plain KAssign and
// va_end into a void KCast, and neither gets a va_list check.
func (p *Parser) builtinCall(s *sym.Scope, kind sym.BuiltinKind) *Expr {
	switch kind {
	case sym.BuiltinAlloca:
		arg := ExprAssign(p.AssignExpr(s), ctypes.ULong)
		e := mk(KBuiltin, ctypes.MkPointer(ctypes.Void, ctypes.QualNone), nil)
		e.Builtin = kind
		e.BuiltinArg = arg
		return e
	case sym.BuiltinConstantP:
		folded := Eval(p.CondExpr(s))
		return mkConstInt(ctypes.Int, boolU64(folded.Kind == KConst))
	case sym.BuiltinExpect:
		e := p.AssignExpr(s)
		p.sync()
		expect(p, token.COMMA, "after expression")
		p.AssignExpr(s) // expected value, discarded: qcc treats __builtin_expect as a no-op hint
		return e
	case sym.BuiltinInff:
		return mkConstFloat(ctypes.Float, math.Inf(1))
	case sym.BuiltinNanf:
		e := p.AssignExpr(s)
		if !e.Decayed || e.Base.Kind != KString || len(e.Base.StrData) > 1 {
			fatalf("__builtin_nanf currently only supports empty string literals")
		}
		return mkConstFloat(ctypes.Float, math.NaN())
	case sym.BuiltinOffsetof:
		t, _, ok := p.TypeName(s)
		if !ok {
			fatalf("expected type name for __builtin_offsetof")
		}
		p.sync()
		expect(p, token.COMMA, "after type name")
		name := expect(p, token.IDENT, "after ','")
		if t.Kind != ctypes.STRUCT && t.Kind != ctypes.UNION {
			fatalf("type is not a struct/union type")
		}
		m, offset := ctypes.Member(t, name)
		if m == nil {
			fatalf("struct/union has no member named '%s'", name)
		}
		offset += p.designator(s, m.Type)
		return mkConstInt(ctypes.ULong, offset)
	case sym.BuiltinTypesCompatibleP:
		t1, _, ok1 := p.TypeName(s)
		if !ok1 {
			fatalf("expected type name for __builtin_types_compatible_p")
		}
		p.sync()
		expect(p, token.COMMA, "after type name")
		t2, _, ok2 := p.TypeName(s)
		if !ok2 {
			fatalf("expected type name for __builtin_types_compatible_p")
		}
		return mkConstInt(ctypes.Int, boolU64(ctypes.Compatible(t1, t2)))
	case sym.BuiltinUnreachable:
		e := mk(KBuiltin, ctypes.Void, nil)
		e.Builtin = kind
		return e
	case sym.BuiltinVaArg:
		arg := p.AssignExpr(s)
		p.sync()
		expect(p, token.COMMA, "after va_list")
		t, qual, ok := p.TypeName(s)
		if !ok {
			fatalf("expected type name for __builtin_va_arg")
		}
		e := mk(KBuiltin, t, arg)
		e.Qual = qual
		e.Builtin = kind
		return e
	case sym.BuiltinVaCopy:
		dst := p.AssignExpr(s)
		p.sync()
		expect(p, token.COMMA, "after target va_list")
		src := p.AssignExpr(s)
		e := mk(KAssign, ctypes.Void, nil)
		e.L, e.R = dst, src
		return e
	case sym.BuiltinVaEnd:
		e := p.AssignExpr(s)
		return mk(KCast, ctypes.Void, e)
	case sym.BuiltinVaStart:
		arg := p.AssignExpr(s)
		p.sync()
		expect(p, token.COMMA, "after va_list")
		param := p.AssignExpr(s)
		if param.Kind != KIdent {
			fatalf("expected parameter identifier")
		}
		e := mk(KBuiltin, ctypes.Void, arg)
		e.Builtin = kind
		return e
	default:
		fatalf("internal error: unknown builtin")
		return nil
	}
}

// designator parses a sequence of [index]/.member designators starting
// from type t, accumulating an additional byte offset, used by
// __builtin_offsetof; mirrors expr.c's designator (marked there as a
// near-duplicate of init.c's, not merged here either for the same reason).
func (p *Parser) designator(s *sym.Scope, t *ctypes.Type) uint64 {
	var offset uint64
	for {
		switch p.cur().Kind {
		case token.LBRACK:
			if t.Kind != ctypes.ARRAY {
				fatalf("index designator is only valid for array types")
			}
			p.next()
			i := p.IntConstExpr(s, false)
			p.sync()
			expect(p, token.RBRACK, "for index designator")
			t = t.Base
			offset += i * t.Size
		case token.PERIOD:
			if t.Kind != ctypes.STRUCT && t.Kind != ctypes.UNION {
				fatalf("member designator only valid for struct/union types")
			}
			p.next()
			name := expect(p, token.IDENT, "for member designator")
			m, off := ctypes.Member(t, name)
			if m == nil {
				fatalf("struct/union has no member named '%s'", name)
			}
			offset += off
			t = m.Type
		default:
			return offset
		}
	}
}
