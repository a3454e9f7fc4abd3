package ir

import (
	"qcc/internal/ctypes"
	"qcc/internal/ssa"
)

// TypeTable assigns and memoizes the QBE aggregate-type references
// (`:tag.n`) a translation unit's struct/union types render as, mirroring
// original_source/qbe.c's emittype memoizing its result on type->value.
// ctypes.Type carries no such field of its own (every struct/union Type
// is freshly allocated and never deduplicated, per spec.md §3), so
// identity here is keyed by the *Type pointer instead. internal/emit
// walks Order() to print each registered type's body once, after every
// function and declaration has been lowered through a Builder sharing
// this table.
type TypeTable struct {
	refs   map[*ctypes.Type]*ssa.Value
	order  []*ctypes.Type
	nextID uint32
}

// NewTypeTable allocates an empty table; one is shared across an entire
// translation unit so the same struct/union type always resolves to the
// same QBE type name.
func NewTypeTable() *TypeTable {
	return &TypeTable{refs: make(map[*ctypes.Type]*ssa.Value)}
}

// Ref returns t's aggregate-type reference, registering t - and, through
// arrays, any struct/union member type it contains - on first use.
// Non-aggregate types have no reference and Ref returns nil, matching
// emittype's early return for anything but TYPESTRUCT/TYPEUNION.
func (tt *TypeTable) Ref(t *ctypes.Type) *ssa.Value {
	if t == nil || (t.Kind != ctypes.STRUCT && t.Kind != ctypes.UNION) {
		return nil
	}
	if v, ok := tt.refs[t]; ok {
		return v
	}
	for m := t.Members; m != nil; m = m.Next {
		sub := m.Type
		for sub.Kind == ctypes.ARRAY {
			sub = sub.Base
		}
		tt.Ref(sub)
	}
	tt.nextID++
	v := ssa.MkTypeRef(t.Tag, tt.nextID)
	tt.refs[t] = v
	tt.order = append(tt.order, t)
	return v
}

// Order returns the registered aggregate types in first-use order, the
// order internal/emit must print their `type :tag.n = ...` definitions
// in so a member type's definition always precedes its user's.
func (tt *TypeTable) Order() []*ctypes.Type { return tt.order }

// ValueOf returns t's reference if already registered, or nil.
func (tt *TypeTable) ValueOf(t *ctypes.Type) *ssa.Value { return tt.refs[t] }
