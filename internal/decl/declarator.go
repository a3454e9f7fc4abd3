package decl

import (
	"qcc/internal/ctypes"
	"qcc/internal/sym"
	"qcc/internal/token"
)

// isTypeName reports whether the current token could open a type-name:
// a type-specifier/qualifier/storage-class/function-specifier keyword,
// or an identifier bound to a typedef in s. Used to disambiguate a K&R
// identifier-list from a prototype parameter-list, and a parenthesized
// nested declarator from a function declarator's own parameter list,
// mirroring istypename()'s callers in decl.c.
func (p *Parser) isTypeName(s *sym.Scope) bool {
	switch p.cur().Kind {
	case token.VOID, token.CHAR, token.SHORT, token.INT, token.LONG, token.FLOAT, token.DOUBLE,
		token.SIGNED, token.UNSIGNED, token.BOOL, token.COMPLEX, token.STRUCT, token.UNION, token.ENUM,
		token.CONST, token.VOLATILE, token.RESTRICT, token.ATOMIC, token.TYPEOF, token.ALIGNAS,
		token.TYPEDEF, token.EXTERN, token.STATIC, token.AUTO, token.REGISTER, token.THREAD_LOCAL,
		token.INLINE, token.NORETURN:
		return true
	case token.IDENT:
		d, ok := s.GetDecl(p.cur().Lit, true)
		return ok && d.Kind == sym.DeclTypedef
	}
	return false
}

// declarator parses a declarator (6.7.6) applied to base, mirroring
// declarator()/declaratortypes() together. name receives the declared
// identifier's spelling; it may be nil only when allowAbstract is true
// (an abstract declarator, as in a type-name or a parameter with no
// name).
//
// Structurally this differs from decl.c's approach of threading one
// shared intrusive linked list through the recursive descent (so a
// later insertion can still land before an earlier one by node identity)
// — Go has no pointer-stable equivalent of that list short of hand
// rolling one, so this instead allocates a placeholder Type ("hole") for
// a parenthesized nested declarator's position and backpatches its
// fields once the enclosing suffix is known, the same technique chibicc
// and similar recursive-descent C front ends use. A leading pointer run
// is wrapped around base *before* any trailing array/function suffix, so
// `*a[3]` comes out "array of pointer to int" rather than "pointer to
// array of int", matching 6.7.6's precedence of postfix [] and ()  over
// prefix *.
func (p *Parser) declarator(s *sym.Scope, base QualType, name *string, allowAbstract bool) QualType {
	var starQuals []ctypes.Qual
	for p.ts.Consume(token.MUL) {
		var tq ctypes.Qual
		for p.typeQual(&tq) {
		}
		starQuals = append(starQuals, tq)
	}

	wrapped := base
	for _, q := range starQuals {
		t := ctypes.MkPointer(wrapped.Type, wrapped.Qual)
		wrapped = QualType{Type: t, Qual: q}
	}

	var result QualType
	switch {
	case p.cur().Kind == token.LPAREN:
		p.next()
		if allowAbstract && (p.cur().Kind == token.MUL || p.cur().Kind == token.LPAREN ||
			(p.cur().Kind == token.IDENT && !p.isTypeName(s))) {
			result = p.declaratorSuffixFrom(s, wrapped, true)
			break
		}
		hole := &ctypes.Type{}
		inner := p.declarator(s, QualType{Type: hole}, name, allowAbstract)
		p.expect(token.RPAREN, "to close parenthesized declarator")
		suffixed := p.declaratorSuffix(s, wrapped)
		*hole = *suffixed.Type
		result = inner
	case p.cur().Kind == token.IDENT:
		if name == nil {
			p.fatalf("identifier not allowed in abstract declarator")
		}
		*name = p.cur().Lit
		p.next()
		result = p.declaratorSuffix(s, wrapped)
	default:
		if !allowAbstract {
			p.fatalf("expected '(' or identifier in declarator")
		}
		result = p.declaratorSuffix(s, wrapped)
	}

	p.skipAttributes()
	return result
}

// consumeAsmName recognizes a trailing `__asm__("name")` declarator
// suffix (the scanner has no dedicated token for the GNU extension; it
// is matched purely by identifier spelling), reporting the asm name if
// one was present. Only decl's top-level declarator call checks for
// this, mirroring decl()'s own consume(T__ASM__) done once after the
// declarator returns rather than inside declarator() itself.
func (p *Parser) consumeAsmName() string {
	if p.cur().Kind != token.IDENT || p.cur().Lit != "__asm__" {
		return ""
	}
	p.next()
	p.expect(token.LPAREN, "after '__asm__'")
	name := p.expect(token.STRINGLIT, "as asm name")
	p.expect(token.RPAREN, "to close '__asm__'")
	return name
}

// declaratorSuffix parses zero or more trailing array/function suffixes
// applied to base.
func (p *Parser) declaratorSuffix(s *sym.Scope, base QualType) QualType {
	return p.declaratorSuffixFrom(s, base, false)
}

// declaratorSuffixFrom is declaratorSuffix's entry point for the case
// where the caller has already consumed the first suffix's opening '('
// while disambiguating it from a nested parenthesized declarator.
func (p *Parser) declaratorSuffixFrom(s *sym.Scope, base QualType, parenConsumed bool) QualType {
	result := base
	for {
		if parenConsumed || p.cur().Kind == token.LPAREN {
			if !parenConsumed {
				p.next()
			}
			parenConsumed = false
			result = p.funcSuffix(s, result)
			continue
		}
		if p.cur().Kind == token.LBRACK {
			p.next()
			result = p.arraySuffix(s, result)
			continue
		}
		return result
	}
}

// arraySuffix parses the body of a `[ ... ]` array declarator suffix,
// mirroring declaratortypes()'s TLBRACK branch. The leading
// static/type-qualifier run is consumed and, beyond folding qualifiers
// into the array type, otherwise has no further effect — qcc has no
// array-parameter-decay-hinting pass that would use `static`'s promise
// of a minimum length.
func (p *Parser) arraySuffix(s *sym.Scope, base QualType) QualType {
	var tq ctypes.Qual
	for p.ts.Consume(token.STATIC) || p.typeQual(&tq) {
	}
	if p.ts.Consume(token.MUL) {
		p.fatalf("variable length arrays are not supported")
	}
	var length uint64
	if p.cur().Kind != token.RBRACK {
		length = p.Expr.IntConstExpr(s, false)
	}
	p.expect(token.RBRACK, "to close array declarator")
	if base.Type.Kind == ctypes.FUNC {
		p.fatalf("array of function is not allowed")
	}
	if base.Type.Incomplete {
		p.fatalf("array has incomplete element type")
	}
	t := ctypes.MkArray(base.Type, tq, length)
	return QualType{Type: t, Qual: ctypes.QualNone}
}

// funcSuffix parses a function declarator's parameter-type-list or
// identifier-list (the '(' has already been consumed), mirroring
// declaratortypes()'s TLPAREN branch plus parameter()/paramdecl()'s
// K&R-vs-prototype disambiguation.
func (p *Parser) funcSuffix(s *sym.Scope, ret QualType) QualType {
	if ret.Type.Kind == ctypes.FUNC {
		p.fatalf("function returning function is not allowed")
	}
	if ret.Type.Kind == ctypes.ARRAY {
		p.fatalf("function returning array is not allowed")
	}

	ft := &ctypes.Type{Kind: ctypes.FUNC, Base: ret.Type, Align: 1, Size: 1}

	switch {
	case p.cur().Kind == token.IDENT && !p.isTypeName(s):
		var head, tail *ctypes.Param
		for {
			nm := p.cur().Lit
			p.next()
			prm := &ctypes.Param{Name: nm}
			if head == nil {
				head = prm
			} else {
				tail.Next = prm
			}
			tail = prm
			if !p.ts.Consume(token.COMMA) || p.cur().Kind != token.IDENT {
				break
			}
		}
		ft.Params = head
	case p.cur().Kind != token.RPAREN:
		var head, tail *ctypes.Param
		for {
			if p.ts.Consume(token.ELLIPSIS) {
				ft.IsVararg = true
				break
			}
			prm := p.parameter(s)
			if head == nil {
				head = prm
			} else {
				tail.Next = prm
			}
			tail = prm
			if !p.ts.Consume(token.COMMA) {
				break
			}
		}
		if head != nil && head.Next == nil && head.Name == "" && head.Type.Kind == ctypes.VOID {
			head = nil
		}
		ft.Params = head
		ft.IsPrototype = true
	}

	ft.ParamInfo = ft.IsPrototype || ft.Params != nil || p.cur().Kind == token.LBRACE
	p.expect(token.RPAREN, "to close function declarator")
	return QualType{Type: ft, Qual: ctypes.QualNone}
}

// parameter parses one parameter-declaration of a prototype parameter
// list, mirroring parameter(). Only `register` is a legal storage class
// here (6.7.6.3p2); the array/function-to-pointer adjustment of 6.7.6.3p7
// is applied via ctypes.Adjust before the parameter is recorded.
func (p *Parser) parameter(s *sym.Scope) *ctypes.Param {
	var sc storageClass
	qt := p.declSpecs(s, &sc, nil, nil)
	if qt.Type == nil {
		p.fatalf("expected a parameter declaration")
	}
	if sc != scNone && sc != scRegister {
		p.fatalf("invalid storage class specifier in parameter declaration")
	}
	var name string
	result := p.declarator(s, qt, &name, true)
	t, q := ctypes.Adjust(result.Type, result.Qual)
	return &ctypes.Param{Name: name, Type: t, Qual: q}
}

// paramDecl parses one K&R old-style parameter-type declaration
// (`int argc; char **argv;` between an identifier-list declarator and
// the function body), filling in the matching entries of params by
// name, mirroring paramdecl(). It reports whether a declaration was
// present at all, so the caller knows when to stop and expect '{'.
func (p *Parser) paramDecl(s *sym.Scope, params *ctypes.Param) bool {
	var sc storageClass
	qt := p.declSpecs(s, &sc, nil, nil)
	if qt.Type == nil {
		return false
	}
	if sc != scNone && sc != scRegister {
		p.fatalf("invalid storage class specifier in parameter declaration")
	}
	for {
		var name string
		result := p.declarator(s, qt, &name, false)
		var found *ctypes.Param
		for prm := params; prm != nil; prm = prm.Next {
			if prm.Name == name {
				found = prm
				break
			}
		}
		if found == nil {
			p.fatalf("old-style parameter list has no parameter named '%s'", name)
		}
		t, q := ctypes.Adjust(result.Type, result.Qual)
		found.Type, found.Qual = t, q
		if !p.ts.Consume(token.COMMA) {
			break
		}
	}
	p.expect(token.SEMICOLON, "after parameter declarator")
	return true
}
