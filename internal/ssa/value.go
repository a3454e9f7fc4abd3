// Package ssa holds the textual-IR data model qcc's builder (internal/ir)
// constructs and internal/emit serializes: Value, Inst, Block, Func. It is
// a leaf with respect to internal/expr — expr's EXPRTEMP placeholder holds
// a *ssa.Value — so the builder (internal/ir), which walks expr trees and
// needs the full Inst/Block/Func machinery, can depend on both without a
// cycle. Grounded on original_source/qbe.c's struct value/inst/block/func.
package ssa

// ValueKind tags the variant a Value is, mirroring qbe.c's enum inside
// struct value.
type ValueKind int

const (
	VNone ValueKind = iota
	VGlobal
	VIntConst
	VFltConst
	VDblConst
	VTemp
	VTypeRef // aggregate type reference, e.g. :T.3
	VLabel
)

// Value is an IR operand: carries an id, an optional name, and the
// constant payload, per spec.md §3.
type Value struct {
	Kind ValueKind
	ID   uint32
	Name string // global/label/type-ref spelling; "" for temps and consts
	I    uint64 // int-const payload (also reinterpreted bits for float/double consts when convenient)
	F    float64
}

func (v *Value) IsNone() bool { return v == nil || v.Kind == VNone }
