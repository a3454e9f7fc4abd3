package expr

import (
	"qcc/internal/ctypes"
	"qcc/internal/sym"
	"qcc/internal/token"
)

// TypeNamer parses a C type-name (6.7.7) if one is present at the current
// token, returning ok=false (and consuming nothing) otherwise. It is
// supplied by internal/parser's declarator grammar: expr and the
// declaration parser are mutually recursive in C (a cast or sizeof can
// open a type-name, and a declarator's array bound or an initializer is
// an expression), so qcc breaks the cycle with this callback rather than
// merging the two packages into one, the way cproc's single translation
// unit does with forward declarations.
type TypeNamer func(s *sym.Scope) (t *ctypes.Type, qual ctypes.Qual, ok bool)

// InitParser parses a brace-initializer for t, returning an
// opaque value internal/ir and internal/initelab know how to interpret;
// it is stashed in Expr.CompoundInit uninspected by this package.
type InitParser func(s *sym.Scope, t *ctypes.Type) interface{}

// Parser turns a token.Stream into Expr trees per the C11 §6.5 grammar.
type Parser struct {
	ts       token.Stream
	TypeName TypeNamer
	ParseInit InitParser
}

func NewParser(ts token.Stream, typeName TypeNamer, parseInit InitParser) *Parser {
	return &Parser{ts: ts, TypeName: typeName, ParseInit: parseInit}
}

func (p *Parser) cur() token.Token { return p.ts.Cur() }
func (p *Parser) sync()            { curLoc = p.cur().Loc }
func (p *Parser) next()            { p.ts.Next() }

// Expr parses a full comma expression, per expr() in expr.c.
func (p *Parser) Expr(s *sym.Scope) *Expr {
	first := p.AssignExpr(s)
	if p.cur().Kind != token.COMMA {
		return first
	}
	end := &first.Next
	last := first
	for p.cur().Kind == token.COMMA {
		p.next()
		e := p.AssignExpr(s)
		*end = e
		end = &e.Next
		last = e
	}
	return mk(KComma, last.Type, first)
}

// ConstExpr parses and folds a constant expression, mirroring constexpr.
func (p *Parser) ConstExpr(s *sym.Scope) *Expr {
	return Eval(p.CondExpr(s))
}

// IntConstExpr parses a constant expression required to be an integer,
// mirroring intconstexpr; allowneg controls whether a negative folded
// value is accepted (array bounds and similar contexts reject it).
func (p *Parser) IntConstExpr(s *sym.Scope, allowNeg bool) uint64 {
	p.sync()
	e := p.ConstExpr(s)
	if e.Kind != KConst || !e.Type.IsInt() {
		fatalf("not an integer constant expression")
	}
	if !allowNeg && e.Type.IsSigned && e.ConstI>>63 != 0 {
		fatalf("integer constant expression cannot be negative")
	}
	return e.ConstI
}

// AssignExpr parses an assignment-expression, mirroring assignexpr: a
// compound assignment `E1 OP= E2` is rewritten as `T = &E1, *T = *T OP E2`
// using a KTemp placeholder slot filled in later by internal/ir, so the
// lvalue is evaluated exactly once.
func (p *Parser) AssignExpr(s *sym.Scope) *Expr {
	l := p.CondExpr(s)
	if l.Kind == KBinary || l.Kind == KComma || l.Kind == KCast {
		return l
	}
	var op token.Kind
	switch p.cur().Kind {
	case token.ASSIGN:
		op = token.NONE
	case token.MULASSIGN:
		op = token.MUL
	case token.DIVASSIGN:
		op = token.DIV
	case token.MODASSIGN:
		op = token.MOD
	case token.ADDASSIGN:
		op = token.ADD
	case token.SUBASSIGN:
		op = token.SUB
	case token.SHLASSIGN:
		op = token.SHL
	case token.SHRASSIGN:
		op = token.SHR
	case token.BANDASSIGN:
		op = token.BAND
	case token.XORASSIGN:
		op = token.XOR
	case token.BORASSIGN:
		op = token.BOR
	default:
		return l
	}
	if !l.Lvalue {
		fatalf("left side of assignment expression is not an lvalue")
	}
	p.sync()
	p.next()
	r := p.AssignExpr(s)
	if op == token.NONE {
		return mkAssign(l, r)
	}
	var bit *Expr
	base := l
	if base.Kind == KBitfield {
		bit = base
		base = base.Base
	}
	tmp := mk(KTemp, ctypes.MkPointer(base.Type, base.Qual), nil)
	tmp.Lvalue = true
	seq := mkAssign(tmp, mkUnary(token.BAND, base))
	deref := mkUnary(token.MUL, tmp)
	if bit != nil {
		bit.Base = deref
		deref = bit
	}
	rhs := MkBinary(op, deref, r)
	seq.Next = mkAssign(deref, rhs)
	return mk(KComma, deref.Type, seq)
}

func mkAssign(l, r *Expr) *Expr {
	e := mk(KAssign, l.Type, nil)
	e.L = l
	e.R = ExprConvert(r, l.Type)
	return e
}

func precedence(k token.Kind) int {
	switch k {
	case token.LOR:
		return 0
	case token.LAND:
		return 1
	case token.BOR:
		return 2
	case token.XOR:
		return 3
	case token.BAND:
		return 4
	case token.EQL, token.NEQ:
		return 5
	case token.LESS, token.GREATER, token.LEQ, token.GEQ:
		return 6
	case token.SHL, token.SHR:
		return 7
	case token.ADD, token.SUB:
		return 8
	case token.MUL, token.DIV, token.MOD:
		return 9
	}
	return -1
}

// binaryExpr implements precedence climbing, mirroring binaryexpr.
func (p *Parser) binaryExpr(s *sym.Scope, l *Expr, minPrec int) *Expr {
	if l == nil {
		l = p.CastExpr(s)
	}
	for {
		j := precedence(p.cur().Kind)
		if j < minPrec {
			break
		}
		op := p.cur().Kind
		p.sync()
		p.next()
		r := p.CastExpr(s)
		for {
			k := precedence(p.cur().Kind)
			if k <= j {
				break
			}
			r = p.binaryExpr(s, r, k)
		}
		l = MkBinary(op, l, r)
	}
	return l
}

// CondExpr parses a conditional-expression, mirroring condexpr.
func (p *Parser) CondExpr(s *sym.Scope) *Expr {
	e := p.binaryExpr(s, nil, 0)
	if p.cur().Kind != token.QUESTION {
		return e
	}
	p.next()
	l := p.Expr(s)
	p.sync()
	expect(p, token.COLON, "in conditional expression")
	r := p.CondExpr(s)

	lt, rt := l.Type, r.Type
	var t *ctypes.Type
	switch {
	case lt == rt:
		t = lt
	case lt.IsArith() && rt.IsArith():
		l, r, t = commonReal(l, r)
	case lt.Kind == ctypes.VOID && rt.Kind == ctypes.VOID:
		t = ctypes.Void
	default:
		fl, fr := Eval(l), Eval(r)
		switch {
		case IsNullPointerConst(fl) && rt.Kind == ctypes.POINTER:
			t = rt
		case IsNullPointerConst(fr) && lt.Kind == ctypes.POINTER:
			t = lt
		case lt.Kind == ctypes.POINTER && rt.Kind == ctypes.POINTER:
			qual := lt.Qual | rt.Qual
			lb, rb := lt.Base, rt.Base
			switch {
			case lb.Kind == ctypes.VOID || rb.Kind == ctypes.VOID:
				t = ctypes.MkPointer(ctypes.Void, qual)
			case ctypes.Compatible(lb, rb):
				t = ctypes.MkPointer(ctypes.Composite(lb, rb), qual)
			default:
				fatalf("operands of conditional operator must have compatible types")
			}
		default:
			fatalf("invalid operands to conditional operator")
		}
	}
	fe := Eval(e)
	if fe.Kind == KConst && fe.Type.IsInt() {
		if fe.ConstI != 0 {
			return ExprConvert(l, t)
		}
		return ExprConvert(r, t)
	}
	cond := mk(KCond, t, nil)
	cond.CondE, cond.CondT, cond.CondF = fe, l, r
	return cond
}

func expect(p *Parser, k token.Kind, where string) string {
	return p.ts.Expect(k, where)
}

func (p *Parser) consume(k token.Kind) bool { return p.ts.Consume(k) }

// CastExpr parses a cast-expression, mirroring castexpr: a parenthesized
// type-name either starts a cast chain or a compound literal; if no type
// name is present the parens instead belong to a parenthesized expression
// continued as a postfix-expression.
func (p *Parser) CastExpr(s *sym.Scope) *Expr {
	var chain, last *Expr
	for p.cur().Kind == token.LPAREN {
		p.next()
		t, tq, ok := p.TypeName(s)
		if !ok {
			inner := p.Expr(s)
			p.sync()
			expect(p, token.RPAREN, "after expression to match '('")
			return p.PostfixExpr(s, inner)
		}
		p.sync()
		expect(p, token.RPAREN, "after type name")
		if p.cur().Kind == token.LBRACE {
			e := mk(KCompound, t, nil)
			e.Qual = tq
			e.Lvalue = true
			e.CompoundInit = p.ParseInit(s, t)
			return p.PostfixExpr(s, Decay(e))
		}
		if t != ctypes.Void && !t.IsScalar() {
			fatalf("cast type must be scalar")
		}
		node := mk(KCast, t, nil)
		if chain == nil {
			chain = node
		} else {
			last.Base = node
		}
		last = node
	}
	e := p.UnaryExpr(s)
	if last != nil {
		if last.Type != ctypes.Void && !e.Type.IsScalar() {
			fatalf("cast operand must have scalar type")
		}
		last.Base = e
		return chain
	}
	return e
}

func (p *Parser) mkIncDec(op token.Kind, base *Expr, post bool) *Expr {
	if !base.Lvalue {
		fatalf("operand of '%s' operator must be an lvalue", op)
	}
	if base.Qual&ctypes.QualConst != 0 {
		fatalf("operand of '%s' operator is const qualified", op)
	}
	e := mk(KIncDec, base.Type, base)
	e.Op = op
	e.Post = post
	return e
}

// UnaryExpr parses a unary-expression, mirroring unaryexpr. ++/-- recurse
// into unary-expr and &/* into cast-expr per the grammar; unary '+' only
// promotes its operand, '~' and '!' desugar into an XOR with all-ones and
// a compare against zero, and unary '-' stays a KUnary node with Op SUB,
// which internal/ir lowers to ssa.INeg.
func (p *Parser) UnaryExpr(s *sym.Scope) *Expr {
	op := p.cur().Kind
	switch op {
	case token.INC, token.DEC:
		p.sync()
		p.next()
		l := p.UnaryExpr(s)
		return p.mkIncDec(op, l, false)
	case token.BAND, token.MUL:
		p.sync()
		p.next()
		return mkUnary(op, p.CastExpr(s))
	case token.ADD:
		p.next()
		e := p.CastExpr(s)
		if !e.Type.IsArith() {
			fatalf("operand of unary '+' operator must have arithmetic type")
		}
		if e.Type.IsInt() {
			e = Promote(e)
		}
		return e
	case token.SUB:
		p.next()
		e := p.CastExpr(s)
		if !e.Type.IsArith() {
			fatalf("operand of unary '-' operator must have arithmetic type")
		}
		if e.Type.IsInt() {
			e = Promote(e)
		}
		n := mk(KUnary, e.Type, e)
		n.Op = op
		return n
	case token.BNOT:
		p.next()
		e := p.CastExpr(s)
		if !e.Type.IsInt() {
			fatalf("operand of '~' operator must have integer type")
		}
		e = Promote(e)
		return MkBinary(token.XOR, e, mkConstInt(e.Type, ^uint64(0)))
	case token.LNOT:
		p.next()
		e := p.CastExpr(s)
		if !e.Type.IsScalar() {
			fatalf("operator '!' must have scalar operand")
		}
		return MkBinary(token.EQL, e, mkConstInt(ctypes.Int, 0))
	case token.SIZEOF, token.ALIGNOF:
		return p.sizeofOrAlignof(s, op)
	}
	return p.PostfixExpr(s, nil)
}

func (p *Parser) sizeofOrAlignof(s *sym.Scope, op token.Kind) *Expr {
	p.next()
	var t *ctypes.Type
	var e *Expr
	if p.consume(token.LPAREN) {
		if tn, _, ok := p.TypeName(s); ok {
			t = tn
			p.sync()
			expect(p, token.RPAREN, "after type name")
			if op == token.SIZEOF && p.cur().Kind == token.LBRACE {
				p.ParseInit(s, t)
			}
		} else {
			e = p.Expr(s)
			p.sync()
			expect(p, token.RPAREN, "after expression")
			if op == token.SIZEOF {
				e = p.PostfixExpr(s, e)
			}
		}
	} else if op == token.SIZEOF {
		e = p.UnaryExpr(s)
	} else {
		fatalf("expected '(' after 'alignof'")
	}
	if t == nil {
		if e.Decayed {
			e = e.Base
		}
		if e.Kind == KBitfield {
			fatalf("%s operator applied to bitfield expression", op)
		}
		t = e.Type
	}
	if t.Incomplete {
		fatalf("%s operator applied to incomplete type", op)
	}
	if t.Kind == ctypes.FUNC {
		fatalf("%s operator applied to function type", op)
	}
	if op == token.SIZEOF {
		return mkConstInt(ctypes.ULong, t.Size)
	}
	return mkConstInt(ctypes.ULong, uint64(t.Align))
}

// PostfixExpr parses a postfix-expression continuing from an
// already-parsed primary r (or parses one itself when r is nil),
// mirroring postfixexpr: subscript, call, member access, and post-inc/dec
// all loop here since each can chain (`a[i].m++(x)` etc).
func (p *Parser) PostfixExpr(s *sym.Scope, r *Expr) *Expr {
	if r == nil {
		r = p.PrimaryExpr(s)
	}
	for {
		switch p.cur().Kind {
		case token.LBRACK:
			p.sync()
			p.next()
			idx := p.Expr(s)
			arr := r
			if arr.Type.Kind != ctypes.POINTER {
				if idx.Type.Kind != ctypes.POINTER {
					fatalf("either array or index must be pointer type")
				}
				arr, idx = idx, arr
			}
			if arr.Type.Base.Incomplete {
				fatalf("array is pointer to incomplete type")
			}
			if !idx.Type.IsInt() {
				fatalf("index is not an integer type")
			}
			r = mkUnary(token.MUL, MkBinary(token.ADD, arr, idx))
			p.sync()
			expect(p, token.RBRACK, "after array index")
		case token.LPAREN:
			p.sync()
			p.next()
			if r.Kind == KIdent && r.Decl != nil && r.Decl.Kind == sym.DeclBuiltin {
				r = p.builtinCall(s, r.Decl.Builtin)
				p.sync()
				expect(p, token.RPAREN, "after builtin parameters")
				continue
			}
			r = p.call(s, r)
		case token.PERIOD:
			r = mkUnary(token.BAND, r)
			fallthrough
		case token.ARROW:
			r = p.member(s, r)
		case token.INC, token.DEC:
			op := p.cur().Kind
			p.sync()
			r = p.mkIncDec(op, r, true)
			p.next()
		default:
			return r
		}
	}
}

func (p *Parser) call(s *sym.Scope, r *Expr) *Expr {
	if r.Type.Kind != ctypes.POINTER || r.Type.Base.Kind != ctypes.FUNC {
		fatalf("called object is not a function")
	}
	ft := r.Type.Base
	e := mk(KCall, ft.Base, nil)
	e.CallFunc = r
	param := ft.Params
	var end **Expr = &e.CallArgs
	for p.cur().Kind != token.RPAREN {
		if e.CallArgs != nil {
			p.sync()
			expect(p, token.COMMA, "or ')' after function call argument")
		}
		if param == nil && !ft.IsVararg && ft.ParamInfo {
			fatalf("too many arguments for function call")
		}
		arg := p.AssignExpr(s)
		if !ft.IsPrototype || (ft.IsVararg && param == nil) {
			arg = Promote(arg)
		} else {
			arg = ExprAssign(arg, param.Type)
		}
		*end = arg
		end = &arg.Next
		e.NArgs++
		if param != nil {
			param = param.Next
		}
	}
	if param != nil && !ft.IsVararg && ft.ParamInfo {
		fatalf("not enough arguments for function call")
	}
	p.next()
	return Decay(e)
}

func (p *Parser) member(s *sym.Scope, r *Expr) *Expr {
	op := p.cur().Kind
	if r.Type.Kind != ctypes.POINTER || (r.Type.Base.Kind != ctypes.STRUCT && r.Type.Base.Kind != ctypes.UNION) {
		fatalf("'%s' operator must be applied to pointer to struct/union", op)
	}
	t := r.Type.Base
	tq := r.Type.Qual
	p.next()
	if p.cur().Kind != token.IDENT {
		fatalf("expected identifier after '%s' operator", op)
	}
	lvalue := op == token.ARROW || r.Base.Lvalue
	name := p.cur().Lit
	m, offset := ctypes.Member(t, name)
	if m == nil {
		fatalf("struct/union has no member named '%s'", name)
	}
	base := MkBinary(token.ADD, ExprConvert(r, ctypes.ULong), mkConstInt(ctypes.ULong, offset))
	base.Type = ctypes.MkPointer(m.Type, tq|m.Qual)
	res := mkUnary(token.MUL, base)
	res.Lvalue = lvalue
	if m.IsBitfield {
		bf := mk(KBitfield, res.Type, res)
		bf.Lvalue = lvalue
		bf.Bits = m.Bits
		res = bf
	}
	p.next()
	return res
}
