package decl

import (
	"qcc/internal/ctypes"
	"qcc/internal/initelab"
	"qcc/internal/ssa"
	"qcc/internal/sym"
	"qcc/internal/token"
)

// TypeName parses a type-name (6.7.7: declaration specifiers followed by
// an optional abstract declarator) if the current token can open one,
// reporting ok=false and consuming nothing otherwise, mirroring
// typename(). This is the concrete TypeNamer wired back into
// expr.Parser by the top-level orchestrator, breaking the expr/decl
// mutual-recursion the same way stmt.DeclParser does.
func (p *Parser) TypeName(s *sym.Scope) (*ctypes.Type, ctypes.Qual, bool) {
	if !p.startsDeclSpecs(s) {
		return nil, ctypes.QualNone, false
	}
	qt := p.declSpecs(s, nil, nil, nil)
	if qt.Type == nil {
		return nil, ctypes.QualNone, false
	}
	result := p.declarator(s, qt, nil, true)
	return result.Type, result.Qual, true
}

// startsDeclSpecs peeks at the current token to decide whether a
// declaration-specifier sequence begins here, without consuming
// anything, mirroring the istypename-style lookahead typename()'s
// caller performs before committing to a cast or compound literal.
func (p *Parser) startsDeclSpecs(s *sym.Scope) bool {
	switch p.cur().Kind {
	case token.VOID, token.BOOL, token.CHAR, token.SHORT, token.INT, token.LONG, token.FLOAT, token.DOUBLE,
		token.SIGNED, token.UNSIGNED, token.STRUCT, token.UNION, token.ENUM, token.TYPEOF,
		token.CONST, token.VOLATILE, token.RESTRICT, token.ATOMIC, token.ALIGNAS:
		return true
	case token.IDENT:
		d, ok := s.GetDecl(p.cur().Lit, true)
		return ok && d.Kind == sym.DeclTypedef
	}
	return false
}

// getLinkage implements 6.2.2's linkage-determination rules, mirroring
// getlinkage(): static gives internal linkage at file scope and none at
// block scope; extern (or any function declaration, which is always
// implicitly extern absent static) inherits a prior visible
// declaration's linkage or defaults to external; anything else gets
// external linkage at file scope and none at block scope.
func getLinkage(kind sym.DeclKind, sc storageClass, prior *sym.Decl, fileScope bool) sym.Linkage {
	if sc&scStatic != 0 {
		if fileScope {
			return sym.LinkIntern
		}
		return sym.LinkNone
	}
	if sc&scExtern != 0 || kind == sym.DeclFunc {
		if prior != nil {
			return prior.Linkage
		}
		return sym.LinkExtern
	}
	if fileScope {
		return sym.LinkExtern
	}
	return sym.LinkNone
}

// declCommon resolves one declarator against any identically-named prior
// declaration (in this scope, or — for anything with linkage — at file
// scope), checking for redeclaration mismatches and installing the
// result in s, mirroring declcommon().
func (p *Parser) declCommon(s *sym.Scope, fileScope bool, kind sym.DeclKind, name, asmName string, t *ctypes.Type, tq ctypes.Qual, sc storageClass, prior *sym.Decl) *sym.Decl {
	kindStr := "object"
	if kind == sym.DeclFunc {
		kindStr = "function"
	}

	if prior != nil {
		if prior.Linkage == sym.LinkNone {
			p.fatalf("%s '%s' with no linkage redeclared", kindStr, name)
		}
		linkage := getLinkage(kind, sc, prior, fileScope)
		if prior.Linkage != linkage {
			p.fatalf("%s '%s' redeclared with different linkage", kindStr, name)
		}
		if !ctypes.Compatible(t, prior.Type) || tq != prior.Qual {
			p.fatalf("%s '%s' redeclared with incompatible type", kindStr, name)
		}
		if asmName != "" && (prior.AsmName == "" || prior.AsmName != asmName) {
			p.fatalf("%s '%s' redeclared with different assembler name", kindStr, name)
		}
		if composite := ctypes.Composite(t, prior.Type); composite != nil {
			prior.Type = composite
		}
		return prior
	}

	if s.Parent != nil {
		prior, _ = s.Parent.GetDecl(name, true)
	}
	linkage := getLinkage(kind, sc, prior, fileScope)
	if linkage != sym.LinkNone && s.Parent != nil {
		var fileDecl *sym.Decl
		fileDecl, _ = s.GetDecl(name, true)
		if fileDecl != nil && fileDecl.Linkage != sym.LinkNone {
			if fileDecl.Kind != kind {
				p.fatalf("'%s' redeclared with different kind", name)
			}
			if fileDecl.Linkage != linkage {
				p.fatalf("%s '%s' redeclared with different linkage", kindStr, name)
			}
			if !ctypes.Compatible(t, fileDecl.Type) || tq != fileDecl.Qual {
				p.fatalf("%s '%s' redeclared with incompatible type", kindStr, name)
			}
			if asmName == "" {
				asmName = fileDecl.AsmName
			} else if fileDecl.AsmName == "" || fileDecl.AsmName != asmName {
				p.fatalf("%s '%s' redeclared with different assembler name", kindStr, name)
			}
			if composite := ctypes.Composite(t, fileDecl.Type); composite != nil {
				t = composite
			}
		}
	}

	d := sym.MkDecl(kind, t, tq, linkage)
	s.PutDecl(name, d)
	if kind == sym.DeclFunc || linkage != sym.LinkNone || sc&scStatic != 0 {
		symName := name
		if asmName != "" {
			symName = asmName
		}
		d.Value = ssa.MkGlobal(symName, linkage == sym.LinkNone && asmName == "")
		d.AsmName = asmName
	}
	return d
}

// Decl parses one declaration (including, at file scope with a compound
// statement in place of a semicolon, a function definition), satisfying
// stmt.DeclParser's signature; f is nil at file scope and non-nil while
// parsing a block-scope declaration inside a function body, mirroring
// decl()'s single entry point for both contexts. It reports whether a
// declaration was found at all (false lets the caller fall back to
// parsing an expression statement).
func (p *Parser) Decl(s *sym.Scope, f *ssa.Func) bool {
	if p.staticAssert(s) {
		return true
	}

	var sc storageClass
	var fs funcSpec
	var align int
	base := p.declSpecs(s, &sc, &fs, &align)
	if base.Type == nil {
		return false
	}

	fileScope := f == nil
	if fileScope {
		if sc&scAuto != 0 {
			p.fatalf("external declaration must not contain 'auto'")
		}
		if sc&scRegister != 0 {
			p.fatalf("external declaration must not contain 'register'")
		}
	} else if sc == scThreadLocal {
		p.fatalf("block scope declaration containing 'thread_local' must also contain 'static' or 'extern'")
	}
	if sc&scThreadLocal != 0 {
		p.fatalf("'_Thread_local' is not supported")
	}

	if p.ts.Consume(token.SEMICOLON) {
		return true
	}

	allowFunc := fileScope
	for {
		var name string
		qt := p.declarator(s, base, &name, false)
		asmName := p.consumeAsmName()
		p.skipAttributes()
		if asmName != "" {
			allowFunc = false
		}

		kind := sym.DeclObject
		switch {
		case sc&scTypedef != 0:
			kind = sym.DeclTypedef
		case qt.Type.Kind == ctypes.FUNC:
			kind = sym.DeclFunc
		}

		prior, _ := s.GetDecl(name, false)
		if prior != nil && prior.Kind != kind {
			p.fatalf("'%s' redeclared with different kind", name)
		}

		switch kind {
		case sym.DeclTypedef:
			if align != 0 {
				p.fatalf("typedef '%s' declared with alignment specifier", name)
			}
			if asmName != "" {
				p.fatalf("typedef '%s' declared with assembler label", name)
			}
			if prior == nil {
				s.PutDecl(name, sym.MkDecl(sym.DeclTypedef, qt.Type, qt.Qual, sym.LinkNone))
			} else if !sameType(prior.Type, qt.Type) || prior.Qual != qt.Qual {
				p.fatalf("typedef '%s' redefined with different type", name)
			}

		case sym.DeclObject:
			if align != 0 && align < qt.Type.Align {
				p.fatalf("object '%s' requires alignment %d, which is stricter than specified alignment %d", name, qt.Type.Align, align)
			}
			d := p.declCommon(s, fileScope, kind, name, asmName, qt.Type, qt.Qual, sc, prior)
			if align > d.Align {
				d.Align = align
			}
			var init *initelab.Init
			if p.ts.Consume(token.ASSIGN) {
				if !fileScope && d.Linkage != sym.LinkNone {
					what := "internal"
					if d.Linkage == sym.LinkExtern {
						what = "external"
					}
					p.fatalf("object '%s' with block scope and %s linkage cannot have an initializer", name, what)
				}
				if d.Defined {
					p.fatalf("object '%s' redefined", name)
				}
				raw := p.Expr.ParseInit(s, d.Type)
				init, _ = raw.(*initelab.Init)
			} else if d.Linkage != sym.LinkNone {
				if sc&scExtern == 0 && !d.Defined && !d.Tentative {
					d.Tentative = true
					p.Tentative = append(p.Tentative, d)
				}
				break
			}
			if d.Linkage != sym.LinkNone || sc&scStatic != 0 {
				p.Globals = append(p.Globals, &GlobalDef{Decl: d, Init: init})
			} else {
				p.IR.Init(f, d, init)
			}
			d.Defined = true
			d.Tentative = false

		case sym.DeclFunc:
			if align != 0 {
				p.fatalf("function '%s' declared with alignment specifier", name)
			}
			qt.Type.IsNoreturn = qt.Type.IsNoreturn || fs&fsNoreturn != 0
			if !fileScope && sc != scNone && sc != scExtern {
				p.fatalf("function '%s' with block scope may only have storage class 'extern'", name)
			}
			if !qt.Type.IsPrototype && qt.Type.Params != nil {
				if !allowFunc {
					p.fatalf("function definition not allowed here")
				}
				for p.paramDecl(s, qt.Type.Params) {
				}
				if p.cur().Kind != token.LBRACE {
					p.fatalf("function declaration with identifier list is not part of a definition")
				}
				for prm := qt.Type.Params; prm != nil; prm = prm.Next {
					if prm.Type == nil {
						p.fatalf("old-style function definition does not declare '%s'", prm.Name)
					}
				}
			}
			d := p.declCommon(s, fileScope, kind, name, asmName, qt.Type, qt.Qual, sc, prior)
			inlineDefn := d.Linkage == sym.LinkExtern && fs&fsInline != 0 && sc&scExtern == 0 &&
				(prior == nil || prior.InlineDefn)
			d.InlineDefn = inlineDefn
			if p.cur().Kind == token.LBRACE {
				if !allowFunc {
					p.fatalf("function definition not allowed here")
				}
				if d.Defined {
					p.fatalf("function '%s' redefined", name)
				}
				sf := ssa.NewFunc(name, qt.Type)
				funcScope := sym.NewScope(s)
				p.IR.Prologue(sf, funcScope, name)
				p.StmtP.Stmt(sf, funcScope)
				p.Funcs = append(p.Funcs, &FuncDef{Decl: d, Func: sf})
				d.Defined = true
				return true
			}
		}

		if p.ts.Consume(token.SEMICOLON) {
			return true
		}
		p.expect(token.COMMA, "or ';' after declarator")
		allowFunc = false
	}
}

// sameType decides whether a typedef redefinition names an acceptable
// type, standing where typesame() is used in decl() for redeclaring a
// typedef. It accepts the identical Type or any type Compatible with it,
// so a compatible but distinct type (an enum and its integer base, for
// instance) is also accepted as the same type.
func sameType(t1, t2 *ctypes.Type) bool {
	return t1 == t2 || ctypes.Compatible(t1, t2)
}
