// Package sym holds the Decl tagged variant and Scope nesting structure of
// spec.md §3/§4.2, grounded on original_source/cc.h and scope.c.
package sym

import (
	"qcc/internal/ctypes"
	"qcc/internal/ssa"
)

// DeclKind tags the variant a Decl is.
type DeclKind int

const (
	DeclTypedef DeclKind = iota
	DeclObject
	DeclFunc
	DeclConst
	DeclBuiltin
)

// Linkage classifies a Decl's external visibility.
type Linkage int

const (
	LinkNone Linkage = iota
	LinkIntern
	LinkExtern
)

// BuiltinKind enumerates the compiler built-ins injected into file scope
// at initialization (spec.md §6).
type BuiltinKind int

const (
	BuiltinAlloca BuiltinKind = iota
	BuiltinConstantP
	BuiltinExpect
	BuiltinInff
	BuiltinNanf
	BuiltinOffsetof
	BuiltinTypesCompatibleP
	BuiltinUnreachable
	BuiltinVaArg
	BuiltinVaCopy
	BuiltinVaEnd
	BuiltinVaStart
)

// Decl is a tagged variant {typedef, object, function, constant, builtin},
// per spec.md §3.
type Decl struct {
	Kind    DeclKind
	Linkage Linkage
	Type    *ctypes.Type
	Qual    ctypes.Qual
	Value   *ssa.Value // global label, local alloc address, or constant

	Align      int // may be stricter than Type requires
	Tentative  bool
	Defined    bool
	AsmName    string
	InlineDefn bool

	Builtin BuiltinKind

	// IntConst backs DeclConst entries; enumerators are the only
	// declarations that create them.
	IntConst uint64
}

func MkDecl(kind DeclKind, t *ctypes.Type, qual ctypes.Qual, linkage Linkage) *Decl {
	return &Decl{Kind: kind, Type: t, Qual: qual, Linkage: linkage}
}
