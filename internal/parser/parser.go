// Package parser is qcc's top-level orchestrator: it wires internal/expr,
// internal/decl, internal/stmt, and internal/ir against a shared token
// stream and target, then drives the translation-unit loop, grounded on
// original_source/main.c's compile() driving repeated decl(&filescope,
// NULL) calls until end of input.
package parser

import (
	"io"

	"qcc/internal/cerr"
	"qcc/internal/ctypes"
	"qcc/internal/decl"
	"qcc/internal/expr"
	"qcc/internal/initelab"
	"qcc/internal/ir"
	"qcc/internal/stmt"
	"qcc/internal/sym"
	"qcc/internal/target"
	"qcc/internal/token"
)

// Result is everything internal/emit needs once a translation unit has
// been fully parsed: the accumulated global objects, function
// definitions, tentative definitions still to resolve, and the shared
// type table any emitted aggregate types were registered against.
type Result struct {
	Globals   []*decl.GlobalDef
	Funcs     []*decl.FuncDef
	Tentative []*sym.Decl
	Strings   []ir.StringLiteral
	Types     *ir.TypeTable
	Target    *target.Target
}

// TranslationUnit scans and parses file from r against tgt, returning
// every top-level definition gathered, mirroring compile()'s loop:
//
//	while (!peek(TEOF))
//		if (!decl(&filescope, NULL))
//			error(&tok.loc, "expected declaration");
//
// The front end's mutually-recursive parsers (expr needs a type-name and
// initializer parser it cannot itself provide without importing decl;
// stmt needs decl for block-scope declarations; decl needs stmt for
// function bodies) are constructed in dependency order and cross-wired
// through the callback types each package declares for exactly this
// purpose (expr.TypeNamer, expr.InitParser, stmt.DeclParser), breaking
// what would otherwise be an import cycle between expr, decl, and stmt.
func TranslationUnit(file string, r io.Reader, tgt *target.Target) *Result {
	ts := token.NewScanner(file, r)
	types := ir.NewTypeTable()
	irb := ir.NewBuilder(tgt, types)

	dp := decl.NewParser(ts, nil, irb)

	// ip and ep are mutually dependent (ep's InitParser closure calls
	// ip.Parse; ip.NewParser wants ep up front), so ep is built first
	// against a closure capturing the not-yet-assigned ip variable; by
	// the time the closure actually runs, ip has been assigned below.
	var ip *initelab.Parser
	ep := expr.NewParser(ts, dp.TypeName, func(s *sym.Scope, t *ctypes.Type) interface{} {
		return ip.Parse(s, t)
	})
	ip = initelab.NewParser(ts, ep)
	dp.Expr = ep

	sp := stmt.NewParser(ts, ep, irb, dp.Decl)
	dp.StmtP = sp

	fileScope := sym.NewFileScope(tgt.VaList)
	for ts.Cur().Kind != token.EOF {
		if !dp.Decl(fileScope, nil) {
			cerr.Fatalf(cerr.KindSyntax, cerr.Location(ts.Cur().Loc), "expected a declaration")
		}
	}

	return &Result{
		Globals:   dp.Globals,
		Funcs:     dp.Funcs,
		Tentative: dp.Tentative,
		Strings:   irb.Strings,
		Types:     types,
		Target:    tgt,
	}
}
