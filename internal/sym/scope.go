package sym

import (
	"qcc/internal/ctypes"
	"qcc/internal/cutil"
	"qcc/internal/ssa"
)

// SwitchCases is the per-switch case table a Scope carries while the
// statement parser (internal/stmt) is inside a switch body: an AVL tree
// keyed by the case constant, plus the default target if any. The type
// lives here, not in internal/stmt, so Scope need not import stmt (sym
// sits below stmt in the dependency order); internal/stmt only populates
// and reads the fields through the Scope it is handed.
type SwitchCases struct {
	Tree    *cutil.Tree[*ssa.Block]
	Default *ssa.Block
}

// Scope is one lexical nesting level: a decl/tag namespace pair plus the
// break/continue/switch-case scratch fields that loops and switches
// install and inner blocks inherit unless they themselves install a new
// one, grounded on original_source/cc.h's struct scope and scope.c.
type Scope struct {
	Decls *cutil.Map[*Decl]
	Tags  *cutil.Map[*ctypes.Type]

	BreakLabel    *ssa.Block
	ContinueLabel *ssa.Block
	Switch        *SwitchCases

	Parent *Scope
}

// NewScope mirrors mkscope: decl/tag maps are allocated lazily on first
// insert (PutDecl/PutTag), and the break/continue/switch scratch fields
// are copied down from parent so an unrelated inner block doesn't have to
// re-resolve them through the parent chain on every break/continue/case.
func NewScope(parent *Scope) *Scope {
	s := &Scope{Parent: parent}
	if parent != nil {
		s.BreakLabel = parent.BreakLabel
		s.ContinueLabel = parent.ContinueLabel
		s.Switch = parent.Switch
	}
	return s
}

// GetDecl mirrors scopegetdecl: looks up name in s, and in each ancestor
// in turn when recurse is true, stopping at the first hit.
func (s *Scope) GetDecl(name string, recurse bool) (*Decl, bool) {
	for cur := s; cur != nil; cur = cur.Parent {
		if cur.Decls != nil {
			if d, ok := cur.Decls.Get(name); ok {
				return d, true
			}
		}
		if !recurse {
			break
		}
	}
	return nil, false
}

// GetTag mirrors scopegettag.
func (s *Scope) GetTag(name string, recurse bool) (*ctypes.Type, bool) {
	for cur := s; cur != nil; cur = cur.Parent {
		if cur.Tags != nil {
			if t, ok := cur.Tags.Get(name); ok {
				return t, true
			}
		}
		if !recurse {
			break
		}
	}
	return nil, false
}

// PutDecl mirrors scopeputdecl: last-write-wins, no duplicate check — the
// caller (internal/decl) must call GetDecl(name, false) first and
// diagnose a redeclaration itself before overwriting.
func (s *Scope) PutDecl(name string, d *Decl) {
	if s.Decls == nil {
		s.Decls = cutil.NewMap[*Decl]()
	}
	s.Decls.Put(name, d)
}

// PutTag mirrors scopeputtag.
func (s *Scope) PutTag(name string, t *ctypes.Type) {
	if s.Tags == nil {
		s.Tags = cutil.NewMap[*ctypes.Type]()
	}
	s.Tags.Put(name, t)
}

// NewFileScope builds the file-scope singleton and injects the builtin
// declarations scopeinit registers: twelve __builtin_* function decls plus
// the __builtin_va_list typedef, bound to the target's va_list type.
func NewFileScope(valist *ctypes.Type) *Scope {
	s := NewScope(nil)
	for _, b := range fileScopeBuiltins {
		s.PutDecl(b.name, &Decl{Kind: DeclBuiltin, Builtin: b.kind})
	}
	s.PutDecl("__builtin_va_list", &Decl{Kind: DeclTypedef, Type: valist})
	return s
}

var fileScopeBuiltins = []struct {
	name string
	kind BuiltinKind
}{
	{"__builtin_alloca", BuiltinAlloca},
	{"__builtin_constant_p", BuiltinConstantP},
	{"__builtin_expect", BuiltinExpect},
	{"__builtin_inff", BuiltinInff},
	{"__builtin_nanf", BuiltinNanf},
	{"__builtin_offsetof", BuiltinOffsetof},
	{"__builtin_types_compatible_p", BuiltinTypesCompatibleP},
	{"__builtin_unreachable", BuiltinUnreachable},
	{"__builtin_va_arg", BuiltinVaArg},
	{"__builtin_va_copy", BuiltinVaCopy},
	{"__builtin_va_end", BuiltinVaEnd},
	{"__builtin_va_start", BuiltinVaStart},
}
