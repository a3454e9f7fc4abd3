// Package target holds the per-architecture facts the rest of qcc needs:
// which QBE target name to emit for, and the shape of __builtin_va_list,
// grounded on original_source/targ.c's targinit and the targ->typevalist
// uses in expr.c/qbe.c/scope.c (backend.h's struct target itself was not
// among the retrieved sources; its shape is reconstructed here from those
// call sites).
package target

import "qcc/internal/ctypes"

// Target is the subset of cproc's struct target qcc's front end needs:
// its QBE/asm name and the concrete type backing __builtin_va_list.
type Target struct {
	Name   string
	VaList *ctypes.Type
}

// sysvVaList builds the x86_64 System V ABI va_list shape:
//
//	typedef struct {
//	        unsigned int gp_offset;
//	        unsigned int fp_offset;
//	        void *overflow_arg_area;
//	        void *reg_save_area;
//	} __va_list_tag[1];
//
// cproc's va_arg lowering (qbe.c) special-cases this exact layout; qcc's
// internal/ir mirrors that special case against this type.
func sysvVaList() *ctypes.Type {
	tag := ctypes.MkStruct("__va_list_tag")
	voidp := ctypes.MkPointer(ctypes.Void, ctypes.QualNone)
	members := []*ctypes.Member{
		{Name: "gp_offset", Type: ctypes.UInt, Offset: 0},
		{Name: "fp_offset", Type: ctypes.UInt, Offset: 4},
		{Name: "overflow_arg_area", Type: voidp, Offset: 8},
		{Name: "reg_save_area", Type: voidp, Offset: 16},
	}
	for i := len(members) - 1; i > 0; i-- {
		members[i-1].Next = members[i]
	}
	tag.Members = members[0]
	tag.Size = 24
	tag.Align = 8
	tag.Incomplete = false
	return ctypes.MkArray(tag, ctypes.QualNone, 1)
}

// aapcs64VaList builds the AArch64 AAPCS64 va_list shape:
//
//	typedef struct {
//	        void *__stack;
//	        void *__gr_top;
//	        void *__vr_top;
//	        int __gr_offs;
//	        int __vr_offs;
//	} va_list[1];
func aapcs64VaList() *ctypes.Type {
	tag := ctypes.MkStruct("__va_list")
	voidp := ctypes.MkPointer(ctypes.Void, ctypes.QualNone)
	members := []*ctypes.Member{
		{Name: "__stack", Type: voidp, Offset: 0},
		{Name: "__gr_top", Type: voidp, Offset: 8},
		{Name: "__vr_top", Type: voidp, Offset: 16},
		{Name: "__gr_offs", Type: ctypes.Int, Offset: 24},
		{Name: "__vr_offs", Type: ctypes.Int, Offset: 28},
	}
	for i := len(members) - 1; i > 0; i-- {
		members[i-1].Next = members[i]
	}
	tag.Members = members[0]
	tag.Size = 32
	tag.Align = 8
	tag.Incomplete = false
	return ctypes.MkArray(tag, ctypes.QualNone, 1)
}

var all = []*Target{
	{Name: "x86_64", VaList: sysvVaList()},
	{Name: "aarch64", VaList: aapcs64VaList()},
}

// New resolves name (the empty string selects the first entry, x86_64),
// mirroring targinit; an unrecognized name returns (nil, false) and the
// caller reports the error.
func New(name string) (*Target, bool) {
	if name == "" {
		return all[0], true
	}
	for _, t := range all {
		if t.Name == name {
			return t, true
		}
	}
	return nil, false
}
