// Package stmt implements the C11 §6.8 statement grammar, lowering each
// statement straight into SSA through internal/ir as it parses, grounded
// on original_source/stmt.c's stmt and gotolabel.
package stmt

import (
	"qcc/internal/cerr"
	"qcc/internal/ctypes"
	"qcc/internal/cutil"
	"qcc/internal/expr"
	"qcc/internal/ir"
	"qcc/internal/ssa"
	"qcc/internal/sym"
	"qcc/internal/token"
)

// DeclParser parses a declaration, if one starts at the current token,
// installing any declared names into s and lowering any accompanying
// initializers against f; it reports whether anything was consumed.
// internal/stmt and the declaration parser are mutually recursive (a
// compound statement or a for-loop's init clause can be either a
// declaration or an expression statement), so qcc breaks the cycle with
// this callback rather than merging the two packages, the same way
// expr.TypeNamer breaks the expr/declarator cycle.
type DeclParser func(s *sym.Scope, f *ssa.Func) bool

// Parser parses and lowers statements against a shared token stream,
// delegating expression parsing to an *expr.Parser and SSA construction
// to an *ir.Builder.
type Parser struct {
	ts   token.Stream
	Expr *expr.Parser
	IR   *ir.Builder
	Decl DeclParser
}

func NewParser(ts token.Stream, ep *expr.Parser, b *ir.Builder, decl DeclParser) *Parser {
	return &Parser{ts: ts, Expr: ep, IR: b, Decl: decl}
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

// gotoLabel recognizes a "ident :" label prefix, installing it as the
// target of any goto referencing that name and binding the func's block
// cursor to it, mirroring gotolabel. It reports whether a label was
// consumed, so Stmt's caller can keep stripping labels before the
// statement they prefix.
func (p *Parser) gotoLabel(f *ssa.Func) bool {
	if p.cur().Kind != token.IDENT {
		return false
	}
	name := p.cur().Lit
	if !p.ts.Peek(token.COLON) {
		return false
	}
	g := f.Goto(name)
	g.Defined = true
	f.Label(g.Block)
	return true
}

// Stmt parses and lowers one statement, mirroring stmt(). s carries the
// lexical scope (and, for loops/switches, the break/continue/case
// targets Stmt's own nested scopes install); f is the enclosing
// function being built.
func (p *Parser) Stmt(f *ssa.Func, s *sym.Scope) {
	for p.gotoLabel(f) {
	}

	switch p.cur().Kind {

	// 6.8.1 Labeled statements
	case token.CASE:
		p.next()
		if s.Switch == nil {
			p.fatalf("'case' label must be in switch")
		}
		blk := ssa.MkBlock("switch_case")
		f.Label(blk)
		i := p.Expr.IntConstExpr(s, true)
		p.switchCase(s.Switch, i, blk)
		p.expect(token.COLON, "after case expression")
		p.Stmt(f, s)

	case token.DEFAULT:
		p.next()
		if s.Switch == nil {
			p.fatalf("'default' label must be in switch")
		}
		if s.Switch.Default != nil {
			p.fatalf("multiple 'default' labels")
		}
		p.expect(token.COLON, "after 'default'")
		s.Switch.Default = ssa.MkBlock("switch_default")
		f.Label(s.Switch.Default)
		p.Stmt(f, s)

	// 6.8.2 Compound statement
	case token.LBRACE:
		p.next()
		inner := sym.NewScope(s)
		for p.cur().Kind != token.RBRACE {
			if p.gotoLabel(f) {
				continue
			}
			if !p.Decl(inner, f) {
				p.Stmt(f, inner)
			}
		}
		p.next()

	// 6.8.3 Expression statement
	case token.SEMICOLON:
		p.next()

	// 6.8.4 Selection statements
	case token.IF:
		p.next()
		inner := sym.NewScope(s)
		p.expect(token.LPAREN, "after 'if'")
		e := expr.ExprConvert(p.Expr.Expr(inner), ctypes.Bool)
		v := p.IR.Expr(f, e)
		p.expect(token.RPAREN, "after expression")

		trueBlk := ssa.MkBlock("if_true")
		falseBlk := ssa.MkBlock("if_false")
		p.IR.Jnz(f, v, e.Type, trueBlk, falseBlk)

		f.Label(trueBlk)
		p.Stmt(f, sym.NewScope(inner))

		if p.ts.Consume(token.ELSE) {
			joinBlk := ssa.MkBlock("if_join")
			f.Jmp(joinBlk)
			f.Label(falseBlk)
			p.Stmt(f, sym.NewScope(inner))
			f.Label(joinBlk)
		} else {
			f.Label(falseBlk)
		}

	case token.SWITCH:
		p.next()
		outer := sym.NewScope(s)
		p.expect(token.LPAREN, "after 'switch'")
		e := p.Expr.Expr(outer)
		p.expect(token.RPAREN, "after expression")

		if !e.Type.IsInt() {
			p.fatalf("controlling expression of switch statement must have integer type")
		}
		e = expr.Promote(e)

		condBlk := ssa.MkBlock("switch_cond")
		joinBlk := ssa.MkBlock("switch_join")

		v := p.IR.Expr(f, e)
		f.Jmp(condBlk)

		sw := &sym.SwitchCases{}
		body := sym.NewScope(outer)
		body.BreakLabel = joinBlk
		body.Switch = sw
		p.Stmt(f, body)
		f.Jmp(joinBlk)

		f.Label(condBlk)
		if sw.Default == nil {
			sw.Default = joinBlk
		}
		p.IR.Switch(f, v, e.Type, sw)

		f.Label(joinBlk)

	// 6.8.5 Iteration statements
	case token.WHILE:
		p.next()
		outer := sym.NewScope(s)
		p.expect(token.LPAREN, "after 'while'")
		e := p.Expr.Expr(outer)
		p.expect(token.RPAREN, "after expression")

		condBlk := ssa.MkBlock("while_cond")
		bodyBlk := ssa.MkBlock("while_body")
		joinBlk := ssa.MkBlock("while_join")

		f.Label(condBlk)
		v := p.IR.Expr(f, e)
		p.IR.Jnz(f, v, e.Type, bodyBlk, joinBlk)
		f.Label(bodyBlk)

		body := sym.NewScope(outer)
		body.ContinueLabel = condBlk
		body.BreakLabel = joinBlk
		p.Stmt(f, body)
		f.Jmp(condBlk)

		f.Label(joinBlk)

	case token.DO:
		p.next()

		bodyBlk := ssa.MkBlock("do_body")
		joinBlk := ssa.MkBlock("do_join")

		outer := sym.NewScope(s)
		body := sym.NewScope(outer)
		body.ContinueLabel = bodyBlk
		body.BreakLabel = joinBlk
		f.Label(bodyBlk)
		p.Stmt(f, body)

		p.expect(token.WHILE, "after 'do' statement")
		p.expect(token.LPAREN, "after 'while'")
		e := p.Expr.Expr(outer)
		p.expect(token.RPAREN, "after expression")

		v := p.IR.Expr(f, e)
		p.IR.Jnz(f, v, e.Type, bodyBlk, joinBlk)
		f.Label(joinBlk)
		p.expect(token.SEMICOLON, "after 'do' statement")

	case token.FOR:
		p.next()
		p.expect(token.LPAREN, "after 'for'")
		outer := sym.NewScope(s)
		if !p.Decl(outer, f) {
			if p.cur().Kind != token.SEMICOLON {
				e := p.Expr.Expr(outer)
				p.IR.Expr(f, e)
			}
			p.expect(token.SEMICOLON, "after 'for' init clause")
		}

		condBlk := ssa.MkBlock("for_cond")
		bodyBlk := ssa.MkBlock("for_body")
		contBlk := ssa.MkBlock("for_cont")
		joinBlk := ssa.MkBlock("for_join")

		f.Label(condBlk)
		if p.cur().Kind != token.SEMICOLON {
			e := p.Expr.Expr(outer)
			v := p.IR.Expr(f, e)
			p.IR.Jnz(f, v, e.Type, bodyBlk, joinBlk)
		} else {
			f.Jmp(bodyBlk)
		}
		p.expect(token.SEMICOLON, "after 'for' condition")
		var post *expr.Expr
		if p.cur().Kind != token.RPAREN {
			post = p.Expr.Expr(outer)
		}
		p.expect(token.RPAREN, "after 'for' clauses")

		f.Label(bodyBlk)
		body := sym.NewScope(outer)
		body.BreakLabel = joinBlk
		body.ContinueLabel = contBlk
		p.Stmt(f, body)

		f.Label(contBlk)
		if post != nil {
			p.IR.Expr(f, post)
		}
		f.Jmp(condBlk)
		f.Label(joinBlk)

	// 6.8.6 Jump statements
	case token.GOTO:
		p.next()
		name := p.expect(token.IDENT, "after 'goto'")
		f.Jmp(f.Goto(name).Block)
		p.expect(token.SEMICOLON, "after 'goto' statement")

	case token.CONTINUE:
		p.next()
		if s.ContinueLabel == nil {
			p.fatalf("'continue' statement must be in loop")
		}
		f.Jmp(s.ContinueLabel)
		p.expect(token.SEMICOLON, "after 'continue' statement")

	case token.BREAK:
		p.next()
		if s.BreakLabel == nil {
			p.fatalf("'break' statement must be in loop or switch")
		}
		f.Jmp(s.BreakLabel)
		p.expect(token.SEMICOLON, "after 'break' statement")

	case token.RETURN:
		p.next()
		ret := f.Type.Base
		var v *ssa.Value
		if ret.Kind != ctypes.VOID {
			e := expr.ExprConvert(p.Expr.Expr(s), ret)
			v = p.IR.Expr(f, e)
		} else if p.cur().Kind != token.SEMICOLON {
			p.fatalf("'return' with a value in a function returning void")
		}
		f.Ret(v)
		p.expect(token.SEMICOLON, "after 'return' statement")

	default:
		e := p.Expr.Expr(s)
		p.IR.Expr(f, e)
		p.expect(token.SEMICOLON, "after expression statement")
	}
}

// switchCase inserts key's target block into sw's case tree, mirroring
// switchcase's duplicate-value check.
func (p *Parser) switchCase(sw *sym.SwitchCases, key uint64, blk *ssa.Block) {
	if sw.Tree == nil {
		sw.Tree = cutil.NewTree[*ssa.Block]()
	}
	if _, inserted := sw.Tree.Insert(key, blk); !inserted {
		p.fatalf("duplicate 'case' value")
	}
}
