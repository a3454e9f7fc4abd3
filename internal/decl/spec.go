// Package decl implements the C11 §6.7 declaration grammar: declaration
// specifiers, declarators, struct/union/enum bodies, and the top-level
// external-declaration / function-definition entry point, grounded on
// original_source/decl.c.
package decl

import (
	"qcc/internal/cerr"
	"qcc/internal/ctypes"
	"qcc/internal/expr"
	"qcc/internal/initelab"
	"qcc/internal/ir"
	"qcc/internal/ssa"
	"qcc/internal/stmt"
	"qcc/internal/sym"
	"qcc/internal/token"
)

// storageClass is a bitset of the storage-class specifiers accumulated
// while parsing declaration specifiers, mirroring decl.c's SC* flags.
type storageClass uint

const (
	scNone storageClass = 0
	scTypedef storageClass = 1 << iota
	scExtern
	scStatic
	scAuto
	scRegister
	scThreadLocal
)

// storageClassSpec consumes one storage-class-specifier token if present,
// folding it into *sc under the combination rules of 6.7.1p2 (only
// thread_local may combine, and only with static or extern), mirroring
// storageclass(). sc is nil where a storage class is syntactically
// disallowed (a struct member, a parameter already committed to one, a
// type-name).
func (p *Parser) storageClassSpec(sc *storageClass) bool {
	var add storageClass
	switch p.cur().Kind {
	case token.TYPEDEF:
		add = scTypedef
	case token.EXTERN:
		add = scExtern
	case token.STATIC:
		add = scStatic
	case token.AUTO:
		add = scAuto
	case token.REGISTER:
		add = scRegister
	case token.THREAD_LOCAL:
		add = scThreadLocal
	default:
		return false
	}
	if sc == nil {
		p.fatalf("storage class specifier not allowed in this declaration")
	}
	if *sc != scNone {
		combo := *sc | add
		if combo != scThreadLocal|scStatic && combo != scThreadLocal|scExtern {
			p.fatalf("invalid combination of storage class specifiers")
		}
	}
	*sc |= add
	p.next()
	return true
}

// typeQual consumes one type-qualifier token if present, folding it into
// *tq, mirroring typequal(). _Atomic is recognized and rejected rather
// than silently ignored, matching cproc's treatment of atomic types as
// unsupported.
func (p *Parser) typeQual(tq *ctypes.Qual) bool {
	switch p.cur().Kind {
	case token.CONST:
		*tq |= ctypes.QualConst
	case token.VOLATILE:
		*tq |= ctypes.QualVolatile
	case token.RESTRICT:
		*tq |= ctypes.QualRestrict
	case token.ATOMIC:
		p.fatalf("'_Atomic' is not supported")
	default:
		return false
	}
	p.next()
	return true
}

// funcSpec is a bitset of the function specifiers (inline, _Noreturn).
type funcSpec uint

const (
	fsNone funcSpec = 0
	fsInline funcSpec = 1 << iota
	fsNoreturn
)

func (p *Parser) funcSpecifier(fs *funcSpec) bool {
	var add funcSpec
	switch p.cur().Kind {
	case token.INLINE:
		add = fsInline
	case token.NORETURN:
		add = fsNoreturn
	default:
		return false
	}
	if fs == nil {
		p.fatalf("function specifier not allowed in this declaration")
	}
	*fs |= add
	p.next()
	return true
}

// QualType pairs a Type with the qualifiers applied directly to it,
// mirroring decl.c's struct qualtype; declSpecs and declarator thread
// this pair through the specifier/declarator grammar instead of
// separately-returned (type, qual) values.
type QualType struct {
	Type *ctypes.Type
	Qual ctypes.Qual
}

func alignUp(n, a uint64) uint64 {
	if a == 0 {
		return n
	}
	return (n + a - 1) &^ (a - 1)
}

// typeSpec is a bitset over the basic type-specifier keywords (void,
// char, short, int, long (twice for long long), float, double, signed,
// unsigned, _Bool), mirroring decl.c's TS* flags consumed by declSpecs.
type typeSpec uint

const (
	tsVoid typeSpec = 1 << iota
	tsBool
	tsChar
	tsShort
	tsInt
	tsLong
	tsLong2
	tsFloat
	tsDouble
	tsSigned
	tsUnsigned
)

// skipAttributes consumes zero or more GNU `__attribute__((...))`
// trivia, balancing parens; attribute-syntax.c is the only corpus use
// of the extension and never inspects the argument list, so qcc keeps
// it as inert trivia rather than modeling GNU attribute semantics.
func (p *Parser) skipAttributes() {
	for p.cur().Kind == token.IDENT && p.cur().Lit == "__attribute__" {
		p.next()
		p.expect(token.LPAREN, "after '__attribute__'")
		depth := 1
		for depth > 0 {
			switch p.cur().Kind {
			case token.LPAREN:
				depth++
			case token.RPAREN:
				depth--
			case token.EOF:
				p.fatalf("unterminated '__attribute__'")
			}
			p.next()
		}
	}
}

// declSpecs parses a declaration-specifier sequence (6.7), mirroring
// declspecs(). sc, fs may be nil where that class of specifier is
// syntactically disallowed at this position (struct members and
// type-names pass both as nil; parameters pass fs as nil and collect sc
// so the caller can allow only 'register'). align, when non-nil, receives the strictest
// _Alignas operand seen.
func (p *Parser) declSpecs(s *sym.Scope, sc *storageClass, fs *funcSpec, align *int) QualType {
	var ts typeSpec
	var tq ctypes.Qual
	var t *ctypes.Type
	var ntypes int

	for {
		p.skipAttributes()
		switch p.cur().Kind {
		case token.TYPEDEF, token.EXTERN, token.STATIC, token.AUTO, token.REGISTER, token.THREAD_LOCAL:
			if p.storageClassSpec(sc) {
				continue
			}
		case token.INLINE, token.NORETURN:
			if p.funcSpecifier(fs) {
				continue
			}
		case token.CONST, token.VOLATILE, token.RESTRICT, token.ATOMIC:
			if p.typeQual(&tq) {
				continue
			}
		case token.ALIGNAS:
			p.next()
			p.expect(token.LPAREN, "after '_Alignas'")
			var a int
			if tn, _, ok := p.TypeName(s); ok {
				a = tn.Align
			} else {
				a = int(p.Expr.IntConstExpr(s, false))
			}
			p.expect(token.RPAREN, "to close '_Alignas'")
			if align == nil {
				p.fatalf("'_Alignas' not allowed in this declaration")
			}
			if a > *align {
				*align = a
			}
			continue
		case token.VOID:
			ts |= tsVoid
		case token.BOOL:
			ts |= tsBool
		case token.CHAR:
			ts |= tsChar
		case token.SHORT:
			ts |= tsShort
		case token.INT:
			ts |= tsInt
		case token.LONG:
			if ts&tsLong != 0 {
				ts |= tsLong2
			} else {
				ts |= tsLong
			}
		case token.FLOAT:
			ts |= tsFloat
		case token.DOUBLE:
			ts |= tsDouble
		case token.SIGNED:
			ts |= tsSigned
		case token.UNSIGNED:
			ts |= tsUnsigned
		case token.STRUCT, token.UNION, token.ENUM:
			ntypes++
			t = p.tagSpec(s)
			continue
		case token.TYPEOF:
			p.next()
			p.expect(token.LPAREN, "after 'typeof'")
			if tn, q, ok := p.TypeName(s); ok {
				t = tn
				tq |= q
			} else {
				e := p.Expr.Expr(s)
				t = e.Type
				tq |= e.Qual
			}
			p.expect(token.RPAREN, "to close 'typeof'")
			ntypes++
			continue
		case token.IDENT:
			if t != nil || ts != 0 {
				goto done
			}
			d, ok := s.GetDecl(p.cur().Lit, true)
			if !ok || d.Kind != sym.DeclTypedef {
				goto done
			}
			t = d.Type
			tq |= d.Qual
			ntypes++
		default:
			goto done
		}
		p.next()
		if ntypes > 1 {
			p.fatalf("multiple type specifiers in declaration")
		}
	}
done:
	if ntypes > 1 || (t != nil && ts != 0) {
		p.fatalf("multiple type specifiers in declaration")
	}
	if t == nil && ts != 0 {
		t = basicFromSpec(p, ts)
	}
	if t == nil {
		if tq != ctypes.QualNone || (sc != nil && *sc != scNone) || (fs != nil && *fs != fsNone) {
			p.fatalf("declaration has no type specifier")
		}
		return QualType{}
	}
	if tq != ctypes.QualNone && t.Kind == ctypes.ARRAY {
		t = ctypes.MkArray(t.Base, t.Qual|tq, t.Length)
		tq = ctypes.QualNone
	}
	return QualType{Type: t, Qual: tq}
}

// basicFromSpec maps a fully-accumulated typeSpec bitset to the concrete
// basic-type singleton it denotes, mirroring declspecs()'s switch over
// combinations of TS* flags.
func basicFromSpec(p *Parser, ts typeSpec) *ctypes.Type {
	switch ts {
	case tsVoid:
		return ctypes.Void
	case tsBool:
		return ctypes.Bool
	case tsChar:
		return ctypes.Char
	case tsSigned | tsChar:
		return ctypes.SChar
	case tsUnsigned | tsChar:
		return ctypes.UChar
	case tsShort, tsShort | tsInt, tsSigned | tsShort, tsSigned | tsShort | tsInt:
		return ctypes.Short
	case tsUnsigned | tsShort, tsUnsigned | tsShort | tsInt:
		return ctypes.UShort
	case tsInt, tsSigned, tsSigned | tsInt:
		return ctypes.Int
	case tsUnsigned, tsUnsigned | tsInt:
		return ctypes.UInt
	case tsLong, tsLong | tsInt, tsSigned | tsLong, tsSigned | tsLong | tsInt:
		return ctypes.Long
	case tsUnsigned | tsLong, tsUnsigned | tsLong | tsInt:
		return ctypes.ULong
	case tsLong | tsLong2, tsLong | tsLong2 | tsInt, tsSigned | tsLong | tsLong2, tsSigned | tsLong | tsLong2 | tsInt:
		return ctypes.LLong
	case tsUnsigned | tsLong | tsLong2, tsUnsigned | tsLong | tsLong2 | tsInt:
		return ctypes.ULLong
	case tsFloat:
		return ctypes.Float
	case tsDouble:
		return ctypes.Double
	case tsLong | tsDouble:
		return ctypes.LDouble
	default:
		p.fatalf("invalid combination of type specifiers")
		return nil
	}
}

func (p *Parser) cur() token.Token { return p.ts.Cur() }
func (p *Parser) next()            { p.ts.Next() }

func (p *Parser) loc() cerr.Location { return cerr.Location(p.cur().Loc) }

func (p *Parser) fatalf(format string, args ...interface{}) {
	cerr.Fatalf(cerr.KindSyntax, p.loc(), format, args...)
}

func (p *Parser) expect(k token.Kind, where string) string {
	return p.ts.Expect(k, where)
}

// Parser parses declarations against a shared token stream, delegating
// expression parsing to Expr and SSA construction to IR; StmtP drives
// compound-statement bodies once internal/parser wires it in (the decl/
// stmt construction cycle is broken the same way expr.TypeNamer breaks
// expr/declarator: StmtP is a bound method set after both Parsers exist).
type Parser struct {
	ts   token.Stream
	Expr *expr.Parser
	IR   *ir.Builder
	StmtP *stmt.Parser

	// Globals accumulates every object with linkage that has an
	// initializer, plus every block-scope static object, and Funcs every
	// function definition, for internal/emit to print once translation
	// finishes; Tentative holds
	// the tentative (uninitialized, possibly-merged) object definitions
	// 6.9.2 resolves only once the whole translation unit has been seen.
	Globals   []*GlobalDef
	Funcs     []*FuncDef
	Tentative []*sym.Decl
}

// GlobalDef is one file-scope or static object with an initializer (or
// none, for a plain non-tentative `extern`-less declaration with no
// initializer, which still needs zero-fill space reserved).
type GlobalDef struct {
	Decl *sym.Decl
	Init *initelab.Init
}

// FuncDef is one function definition lowered to SSA, ready for
// internal/emit.
type FuncDef struct {
	Decl *sym.Decl
	Func *ssa.Func
}

func NewParser(ts token.Stream, ep *expr.Parser, irb *ir.Builder) *Parser {
	return &Parser{ts: ts, Expr: ep, IR: irb}
}
