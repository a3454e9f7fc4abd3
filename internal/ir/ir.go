// Package ir lowers a type-checked expression tree (internal/expr) and
// flattened initializer list (internal/initelab) into the SSA form
// internal/ssa models, grounded throughout on original_source/qbe.c's
// func* family: funcexpr, funclval, funcstore/funcload, funcinit,
// funcswitch, convert, and mkfunc's parameter-installation prologue.
// internal/emit (the textual printer) is a separate package; nothing
// here renders IR to text.
package ir

import (
	"encoding/binary"

	"qcc/internal/cerr"
	"qcc/internal/ctypes"
	"qcc/internal/cutil"
	"qcc/internal/expr"
	"qcc/internal/initelab"
	"qcc/internal/ssa"
	"qcc/internal/sym"
	"qcc/internal/target"
	"qcc/internal/token"
)

// ptrClass is the SSA class every address value carries: pointers are
// always the machine word, per qbe.c's own ad-hoc "(enum irclass)'l'" use
// at every address computation.
const ptrClass = ssa.ClassL

// Lvalue is an object's address plus, when the object denotes a
// bit-field, its storage-unit layout, mirroring struct lvalue.
type Lvalue struct {
	Addr *ssa.Value
	Bits ctypes.Bitfield
}

// StringLiteral is one string constant or __func__ spelling that needs a
// `data` definition, accumulated here (rather than emitted immediately)
// so internal/emit can print them once, in first-use order, the way
// qbe.c's stringdecl/funclval side effects feed emitdata.
type StringLiteral struct {
	Decl *sym.Decl
	Data []byte
	Type *ctypes.Type
}

// Builder lowers expressions and initializers against one translation
// unit's shared Target and TypeTable, accumulating the string literals
// it registers along the way.
type Builder struct {
	Target *target.Target
	Types  *TypeTable

	Strings  []StringLiteral
	strDedup map[*expr.Expr]*sym.Decl

	curFuncDecl    *sym.Decl
	curFuncNameStr string
}

// NewBuilder builds a Builder sharing t and types across however many
// functions and global initializers the caller lowers with it.
func NewBuilder(t *target.Target, types *TypeTable) *Builder {
	return &Builder{Target: t, Types: types, strDedup: make(map[*expr.Expr]*sym.Decl)}
}

// classOf returns the SSA class t's values are held in: the integer
// classes for everything scalar-integer-shaped (including pointers,
// which share 'l'), the float classes for float/double, and ClassNone
// for void/aggregates (which never live in a single SSA temp).
func classOf(t *ctypes.Type) ssa.Class {
	switch {
	case t.Kind == ctypes.POINTER:
		return ssa.ClassL
	case t.IsFloat():
		if t.Size == 4 {
			return ssa.ClassS
		}
		return ssa.ClassD
	case t.IsInt():
		if t.Size > 4 {
			return ssa.ClassL
		}
		return ssa.ClassW
	default:
		return ssa.ClassNone
	}
}

// loadOp/storeOp return the size-and-signedness-specific load/store
// opcode for a scalar type, mirroring qbetype's load/store table.
func loadOp(t *ctypes.Type) ssa.Op {
	switch {
	case t.Kind == ctypes.POINTER:
		return ssa.ILoadL
	case t.IsFloat():
		if t.Size == 4 {
			return ssa.ILoadS
		}
		return ssa.ILoadD
	case t.Size == 1:
		if t.IsSigned {
			return ssa.ILoadSB
		}
		return ssa.ILoadUB
	case t.Size == 2:
		if t.IsSigned {
			return ssa.ILoadSH
		}
		return ssa.ILoadUH
	case t.Size == 8:
		return ssa.ILoadL
	default:
		return ssa.ILoadW
	}
}

func storeOp(t *ctypes.Type) ssa.Op {
	switch {
	case t.Kind == ctypes.POINTER:
		return ssa.IStoreL
	case t.IsFloat():
		if t.Size == 4 {
			return ssa.IStoreS
		}
		return ssa.IStoreD
	case t.Size == 1:
		return ssa.IStoreB
	case t.Size == 2:
		return ssa.IStoreH
	case t.Size == 8:
		return ssa.IStoreL
	default:
		return ssa.IStoreW
	}
}

func allocOp(align int) ssa.Op {
	switch {
	case align > 8:
		return ssa.IAlloc16
	case align > 4:
		return ssa.IAlloc8
	default:
		return ssa.IAlloc4
	}
}

// Alloc reserves storage for d at the function's entry block, mirroring
// funcalloc: alloc instructions always land in f.Start regardless of
// where the declaration occurs lexically, so every local's address is
// live for the whole function and stack-slot packing sees the full set
// up front.
func (b *Builder) Alloc(f *ssa.Func, d *sym.Decl) {
	align := d.Type.Align
	if d.Align > align {
		align = d.Align
	}
	res := f.Temp()
	inst := &ssa.Inst{Op: allocOp(align), Class: ptrClass, Res: res, Arg: [2]*ssa.Value{ssa.MkIntConst(d.Type.Size)}}
	f.Start.Insts = append(f.Start.Insts, inst)
	d.Value = &inst.Res
	if align <= 16 {
		return
	}
	// Over-aligned locals: round the generic alloc16 result up to the
	// requested alignment by hand, mirroring funcalloc's extra add/and.
	mask := uint64(align - 1)
	add := &ssa.Inst{Op: ssa.IAdd, Class: ptrClass, Res: f.Temp(), Arg: [2]*ssa.Value{&inst.Res, ssa.MkIntConst(mask)}}
	and := &ssa.Inst{Op: ssa.IAnd, Class: ptrClass, Res: f.Temp(), Arg: [2]*ssa.Value{&add.Res, ssa.MkIntConst(^mask)}}
	f.Start.Insts = append(f.Start.Insts, add, and)
	d.Value = &and.Res
}

// bitsAdjust performs the shift-left/shift-right dance that isolates a
// bit-field's value within its storage unit, mirroring funcbits exactly
// (including its C-operator-precedence-preserving order of operations).
// signed selects an arithmetic vs. logical shift right, taken from the
// bit-field member's own declared type (ctypes.Bitfield itself carries no
// signedness, unlike cproc's struct bitfield).
func bitsAdjust(f *ssa.Func, class ssa.Class, v *ssa.Value, size uint64, b ctypes.Bitfield, signed bool) *ssa.Value {
	bits := int64(b.After)
	if bits != 0 {
		bits += int64(alignUp(size, 4)-size) * 8
		v = f.Emit(ssa.IShl, class, v, ssa.MkIntConst(uint64(bits)))
	}
	bits += int64(b.Before)
	if bits == 0 {
		return v
	}
	if signed {
		return f.Emit(ssa.ISar, class, v, ssa.MkIntConst(uint64(bits)))
	}
	return f.Emit(ssa.IShr, class, v, ssa.MkIntConst(uint64(bits)))
}

func alignUp(n, a uint64) uint64 { return (n + a - 1) &^ (a - 1) }

// copyMem emits an unrolled word-by-word copy from src to dst, using the
// widest load/store the alignment allows and single bytes for any tail,
// mirroring funccopy.
func (b *Builder) copyMem(f *ssa.Func, dst, src *ssa.Value, size uint64, align int) {
	op, step := loadStoreStep(align)
	var off uint64
	for off+step <= size {
		d := dst
		s := src
		if off != 0 {
			d = f.Emit(ssa.IAdd, ptrClass, dst, ssa.MkIntConst(off))
			s = f.Emit(ssa.IAdd, ptrClass, src, ssa.MkIntConst(off))
		}
		v := f.Emit(op.load, op.class, s, nil)
		f.Emit(op.store, ssa.ClassNone, d, v)
		off += step
	}
	for off < size {
		d := f.Emit(ssa.IAdd, ptrClass, dst, ssa.MkIntConst(off))
		s := f.Emit(ssa.IAdd, ptrClass, src, ssa.MkIntConst(off))
		v := f.Emit(ssa.ILoadUB, ssa.ClassW, s, nil)
		f.Emit(ssa.IStoreB, ssa.ClassNone, d, v)
		off++
	}
}

type loadStoreOp struct {
	load, store ssa.Op
	class       ssa.Class
}

func loadStoreStep(align int) (loadStoreOp, uint64) {
	switch {
	case align >= 8:
		return loadStoreOp{ssa.ILoadL, ssa.IStoreL, ssa.ClassL}, 8
	case align >= 4:
		return loadStoreOp{ssa.ILoadW, ssa.IStoreW, ssa.ClassW}, 4
	case align >= 2:
		return loadStoreOp{ssa.ILoadUH, ssa.IStoreH, ssa.ClassW}, 2
	default:
		return loadStoreOp{ssa.ILoadUB, ssa.IStoreB, ssa.ClassW}, 1
	}
}

// Store writes v (already converted to t) to lv, dispatching between the
// aggregate block-copy path, the bit-field read-modify-write path, and a
// plain scalar store, mirroring funcstore.
func (b *Builder) Store(f *ssa.Func, t *ctypes.Type, qual ctypes.Qual, lv Lvalue, v *ssa.Value) *ssa.Value {
	if qual&ctypes.QualConst != 0 {
		cerr.Internal(cerr.Location{}, "cannot store to a const-qualified object")
	}
	if t.Kind == ctypes.STRUCT || t.Kind == ctypes.UNION || t.Kind == ctypes.ARRAY {
		src := v
		b.copyMem(f, lv.Addr, src, t.Size, t.Align)
		return v
	}
	if lv.Bits.Before == 0 && lv.Bits.After == 0 {
		f.Emit(storeOp(t), ssa.ClassNone, lv.Addr, v)
		return v
	}
	class := classOf(t)
	size := t.Size * 8
	mask := (^uint64(0) >> (64 - size + uint64(lv.Bits.Before) + uint64(lv.Bits.After))) << lv.Bits.Before
	old := f.Emit(loadOp(t), class, lv.Addr, nil)
	old = f.Emit(ssa.IAnd, class, old, ssa.MkIntConst(^mask))
	shifted := f.Emit(ssa.IShl, class, v, ssa.MkIntConst(uint64(lv.Bits.Before)))
	shifted = f.Emit(ssa.IAnd, class, shifted, ssa.MkIntConst(mask))
	merged := f.Emit(ssa.IOr, class, old, shifted)
	f.Emit(storeOp(t), ssa.ClassNone, lv.Addr, merged)
	return v
}

// Load reads lv as a value of type t, mirroring funcload: aggregates
// yield their own address (the "value" of a struct/array lvalue is its
// address, per spec.md §3), bit-fields load the storage unit and run it
// through bitsAdjust, everything else is a plain scalar load.
func (b *Builder) Load(f *ssa.Func, t *ctypes.Type, lv Lvalue) *ssa.Value {
	if t.Kind == ctypes.STRUCT || t.Kind == ctypes.UNION || t.Kind == ctypes.ARRAY {
		return lv.Addr
	}
	class := classOf(t)
	v := f.Emit(loadOp(t), class, lv.Addr, nil)
	if lv.Bits.Before == 0 && lv.Bits.After == 0 {
		return v
	}
	return bitsAdjust(f, class, v, t.Size, lv.Bits, t.IsSigned)
}

// Convert lowers the cast from src to dst, mirroring convert()'s full
// opcode-selection switch, including narrowing to _Bool via an ordinary
// not-equal-to-zero compare rather than a dedicated bool opcode.
func (b *Builder) Convert(f *ssa.Func, dst, src *ctypes.Type, v *ssa.Value) *ssa.Value {
	if ctypes.Compatible(dst, src) {
		return v
	}
	if dst.Kind == ctypes.BASIC && dst.Basic == ctypes.BoolKind {
		return b.convertToBool(f, src, v)
	}
	if dst.IsInt() || dst.Kind == ctypes.POINTER {
		return b.convertToInt(f, dst, src, v)
	}
	return b.convertToFloat(f, dst, src, v)
}

func (b *Builder) convertToBool(f *ssa.Func, src *ctypes.Type, v *ssa.Value) *ssa.Value {
	if src.IsFloat() {
		op := ssa.ICneS
		zero := ssa.MkFltConst(0)
		if src.Size == 8 {
			op = ssa.ICneD
			zero = ssa.MkDblConst(0)
		}
		return f.Emit(op, ssa.ClassW, v, zero)
	}
	op := ssa.ICneW
	if src.Size > 4 {
		op = ssa.ICneL
	}
	return f.Emit(op, ssa.ClassW, v, ssa.MkIntConst(0))
}

func (b *Builder) convertToInt(f *ssa.Func, dst, src *ctypes.Type, v *ssa.Value) *ssa.Value {
	dstClass := classOf(dst)
	if src.IsFloat() {
		op := floatToIntOp(src, dst)
		return f.Emit(op, dstClass, v, nil)
	}
	// int -> int: narrow, extend, or re-class between w/l with the
	// signedness-appropriate extension op; a same-size same-signedness
	// conversion (e.g. pointer -> unsigned long) is a no-op reinterpret.
	switch {
	case dst.Size <= src.Size:
		if dstClass == classOf(src) {
			return v
		}
		return f.Emit(truncOp(dst), dstClass, v, nil)
	case src.Size == 4:
		if src.IsSigned {
			return f.Emit(ssa.IExtSW, ssa.ClassL, v, nil)
		}
		return f.Emit(ssa.IExtUW, ssa.ClassL, v, nil)
	case src.Size < 4:
		return f.Emit(extOp(src), dstClass, v, nil)
	default:
		return v
	}
}

// truncOp narrows a wider int down to dst's width, by sign/zero-extending
// from dst's own width after the fact (QBE has no dedicated truncate; the
// bit pattern below dst's width is already correct, the extension just
// canonicalizes the now-unused high bits the way qbe.c's convert() does
// for a narrowing destination).
func truncOp(dst *ctypes.Type) ssa.Op {
	return extOp(dst)
}

func extOp(t *ctypes.Type) ssa.Op {
	switch {
	case t.Size == 1:
		if t.IsSigned {
			return ssa.IExtSB
		}
		return ssa.IExtUB
	case t.Size == 2:
		if t.IsSigned {
			return ssa.IExtSH
		}
		return ssa.IExtUH
	default:
		return ssa.IExtUW
	}
}

func floatToIntOp(src, dst *ctypes.Type) ssa.Op {
	if src.Size == 4 {
		if dst.IsSigned {
			return ssa.IStoSI
		}
		return ssa.IStoUI
	}
	if dst.IsSigned {
		return ssa.IDtoSI
	}
	return ssa.IDtoUI
}

func (b *Builder) convertToFloat(f *ssa.Func, dst, src *ctypes.Type, v *ssa.Value) *ssa.Value {
	dstClass := classOf(dst)
	if src.IsInt() {
		op := intToFloatOp(src, dst)
		return f.Emit(op, dstClass, v, nil)
	}
	// float -> float: single <-> double.
	if dst.Size > src.Size {
		return f.Emit(ssa.IExtS, dstClass, v, nil)
	}
	if dst.Size < src.Size {
		return f.Emit(ssa.ITruncD, dstClass, v, nil)
	}
	return v
}

func intToFloatOp(src, dst *ctypes.Type) ssa.Op {
	wide := src.Size > 4
	if dst.Size == 4 {
		switch {
		case wide && src.IsSigned:
			return ssa.ISlToF
		case wide:
			return ssa.IUlToF
		case src.IsSigned:
			return ssa.ISwToF
		default:
			return ssa.IUwToF
		}
	}
	switch {
	case wide && src.IsSigned:
		return ssa.ISlToF
	case wide:
		return ssa.IUlToF
	case src.IsSigned:
		return ssa.ISwToF
	default:
		return ssa.IUwToF
	}
}

// Jnz is funcjnz's wrapper around ssa.Func.Jnz: the tested value is
// narrowed to _Bool first when its static type isn't already one, so a
// jnz on, say, a wide int or a float compares correctly against zero.
func (b *Builder) Jnz(f *ssa.Func, v *ssa.Value, t *ctypes.Type, t1, t2 *ssa.Block) {
	if !(t.Kind == ctypes.BASIC && t.Basic == ctypes.BoolKind) {
		v = b.convertToBool(f, t, v)
	}
	f.Jnz(v, t1, t2)
}

// internString registers e (a KString Expr) as a global data object,
// deduplicating on the Expr node's identity the way stringdecl keys off
// the parsed string's own node, and returns its decl.
func (b *Builder) internString(e *expr.Expr) *sym.Decl {
	if d, ok := b.strDedup[e]; ok {
		return d
	}
	d := sym.MkDecl(sym.DeclObject, e.Type, ctypes.QualConst, sym.LinkIntern)
	d.Value = ssa.MkGlobal("string", true)
	b.strDedup[e] = d
	b.Strings = append(b.Strings, StringLiteral{Decl: d, Data: e.StrData, Type: e.Type})
	return d
}

// flushFuncName emits the __func__ object's data definition the first
// time __func__ is actually referenced inside a function body, mirroring
// funclval's EXPRIDENT case: __func__ is installed in scope eagerly by
// Prologue but its spelling is only known to be used, and so only worth
// emitting, on first reference.
func (b *Builder) flushFuncName(d *sym.Decl) {
	if d != b.curFuncDecl {
		return
	}
	b.Strings = append(b.Strings, StringLiteral{
		Decl: d,
		Data: append([]byte(b.curFuncNameStr), 0),
		Type: d.Type,
	})
	b.curFuncDecl = nil
}

// Lval resolves e to an addressable Lvalue, mirroring funclval's switch
// over EXPRIDENT/EXPRSTRING/EXPRCOMPOUND/EXPRUNARY(TMUL)/default.
func (b *Builder) Lval(f *ssa.Func, e *expr.Expr) Lvalue {
	var lv Lvalue
	if e.Kind == expr.KBitfield {
		lv.Bits = e.Bits
		e = e.Base
	}
	switch e.Kind {
	case expr.KIdent:
		d := e.Decl
		if d.Kind != sym.DeclObject && d.Kind != sym.DeclFunc {
			cerr.Internal(cerr.Location{}, "identifier is not an object or function")
		}
		b.flushFuncName(d)
		lv.Addr = d.Value
	case expr.KString:
		lv.Addr = b.internString(e).Value
	case expr.KCompound:
		d := sym.MkDecl(sym.DeclObject, e.Type, e.Qual, sym.LinkNone)
		b.Init(f, d, asInit(e.CompoundInit))
		lv.Addr = d.Value
	case expr.KUnary:
		if e.Op != token.MUL {
			cerr.Internal(cerr.Location{}, "expression is not an object")
		}
		lv.Addr = b.Expr(f, e.Base)
	default:
		if e.Type.Kind != ctypes.STRUCT && e.Type.Kind != ctypes.UNION {
			cerr.Internal(cerr.Location{}, "expression is not an object")
		}
		lv.Addr = b.Expr(f, e)
	}
	return lv
}

func asInit(v interface{}) *initelab.Init {
	if v == nil {
		return nil
	}
	return v.(*initelab.Init)
}

// toBool lowers e and narrows it to _Bool unless it already is one,
// mirroring the convert-to-bool-by-compare step EXPRBINARY's TLOR/TLAND
// case applies to each operand before building the join phi.
func (b *Builder) toBool(f *ssa.Func, e *expr.Expr) *ssa.Value {
	v := b.Expr(f, e)
	if e.Type.Kind == ctypes.BASIC && e.Type.Basic == ctypes.BoolKind {
		return v
	}
	return b.convertToBool(f, e.Type, v)
}

// paramCount returns the number of declared parameters in t's list.
func paramCount(t *ctypes.Type) int {
	n := 0
	for p := t.Params; p != nil; p = p.Next {
		n++
	}
	return n
}

// Prologue installs a new function's entry machinery: per-parameter
// scope bindings (spilling register-class parameters to addressable
// local storage, leaving aggregate-by-value parameters as the address
// QBE's own call ABI already hands back) and the implicit __func__
// object, mirroring mkfunc.
func (b *Builder) Prologue(f *ssa.Func, s *sym.Scope, name string) {
	t := f.Type
	b.Types.Ref(t.Base)
	for p := t.Params; p != nil; p = p.Next {
		pt := p.Type
		if !t.IsPrototype {
			pt = ctypes.Promote(p.Type, -1)
		}
		b.Types.Ref(pt)
		pv := f.Temp()
		f.ParamValues = append(f.ParamValues, pv)
		if p.Name == "" {
			continue
		}
		d := sym.MkDecl(sym.DeclObject, p.Type, p.Qual, sym.LinkNone)
		if p.Type.Kind == ctypes.STRUCT || p.Type.Kind == ctypes.UNION {
			d.Value = &pv
		} else {
			v := &pv
			if !ctypes.Compatible(p.Type, pt) {
				v = b.Convert(f, p.Type, pt, &pv)
			}
			b.Alloc(f, d)
			b.Store(f, p.Type, ctypes.QualNone, Lvalue{Addr: d.Value}, v)
		}
		s.PutDecl(p.Name, d)
	}

	nameType := ctypes.MkArray(ctypes.Char, ctypes.QualConst, uint64(len(name))+1)
	nd := sym.MkDecl(sym.DeclObject, nameType, ctypes.QualConst, sym.LinkNone)
	nd.Value = ssa.MkGlobal("__func__", true)
	s.PutDecl("__func__", nd)
	b.curFuncDecl = nd
	b.curFuncNameStr = name

	f.Label(ssa.MkBlock("body"))
}

// Expr lowers e to the SSA value it evaluates to, mirroring funcexpr's
// switch over every expr.Kind. Aggregate-typed results are addresses
// (per Load's own convention), and a void-typed result is nil.
func (b *Builder) Expr(f *ssa.Func, e *expr.Expr) *ssa.Value {
	switch e.Kind {
	case expr.KIdent:
		return b.exprIdent(f, e)
	case expr.KConst:
		return b.exprConst(e)
	case expr.KString, expr.KBitfield, expr.KCompound:
		lv := b.Lval(f, e)
		return b.Load(f, e.Type, lv)
	case expr.KIncDec:
		return b.exprIncDec(f, e)
	case expr.KCall:
		return b.exprCall(f, e)
	case expr.KUnary:
		return b.exprUnary(f, e)
	case expr.KCast:
		v := b.Expr(f, e.Base)
		if e.Type.Kind == ctypes.VOID {
			return nil
		}
		return b.Convert(f, e.Type, e.Base.Type, v)
	case expr.KBinary:
		return b.exprBinary(f, e)
	case expr.KCond:
		return b.exprCond(f, e)
	case expr.KAssign:
		return b.exprAssign(f, e)
	case expr.KComma:
		cur := e.Base
		for cur.Next != nil {
			b.Expr(f, cur)
			cur = cur.Next
		}
		return b.Expr(f, cur)
	case expr.KBuiltin:
		return b.exprBuiltin(f, e)
	case expr.KTemp:
		return e.Temp
	default:
		cerr.Internal(cerr.Location{}, "unimplemented expression kind")
		return nil
	}
}

func (b *Builder) exprIdent(f *ssa.Func, e *expr.Expr) *ssa.Value {
	d := e.Decl
	switch d.Kind {
	case sym.DeclObject:
		b.flushFuncName(d)
		return b.Load(f, e.Type, Lvalue{Addr: d.Value})
	case sym.DeclConst:
		if d.Value != nil {
			return d.Value
		}
		return ssa.MkIntConst(d.IntConst)
	default:
		cerr.Internal(cerr.Location{}, "unimplemented declaration kind")
		return nil
	}
}

func (b *Builder) exprConst(e *expr.Expr) *ssa.Value {
	t := e.Type
	if t.IsInt() || t.Kind == ctypes.POINTER {
		return ssa.MkIntConst(e.ConstI)
	}
	if t.Size == 4 {
		return ssa.MkFltConst(e.ConstF)
	}
	return ssa.MkDblConst(e.ConstF)
}

func (b *Builder) exprIncDec(f *ssa.Func, e *expr.Expr) *ssa.Value {
	lv := b.Lval(f, e.Base)
	old := b.Load(f, e.Base.Type, lv)
	t := e.Base.Type
	var step *ssa.Value
	switch {
	case t.Kind == ctypes.POINTER:
		step = ssa.MkIntConst(t.Base.Size)
	case t.IsFloat():
		if t.Size == 4 {
			step = ssa.MkFltConst(1)
		} else {
			step = ssa.MkDblConst(1)
		}
	default:
		step = ssa.MkIntConst(1)
	}
	op := ssa.IAdd
	if e.Op == token.DEC {
		op = ssa.ISub
	}
	class := classOf(t)
	if t.Kind == ctypes.POINTER {
		class = ptrClass
	}
	updated := f.Emit(op, class, old, step)
	b.Store(f, t, ctypes.QualNone, lv, updated)
	if e.Post {
		return old
	}
	return updated
}

func (b *Builder) exprUnary(f *ssa.Func, e *expr.Expr) *ssa.Value {
	switch e.Op {
	case token.BAND:
		return b.Lval(f, e.Base).Addr
	case token.MUL:
		return b.Expr(f, e.Base)
	case token.SUB:
		v := b.Expr(f, e.Base)
		return f.Emit(ssa.INeg, classOf(e.Type), v, nil)
	default:
		cerr.Internal(cerr.Location{}, "unimplemented unary operator")
		return nil
	}
}

func (b *Builder) exprCall(f *ssa.Func, e *expr.Expr) *ssa.Value {
	callee := b.Expr(f, e.CallFunc)
	ft := e.CallFunc.Type
	if ft.Kind == ctypes.POINTER {
		ft = ft.Base
	}
	nfixed := paramCount(ft)
	args := make([]*ssa.Value, 0, e.NArgs)
	argTypes := make([]*ctypes.Type, 0, e.NArgs)
	for a := e.CallArgs; a != nil; a = a.Next {
		args = append(args, b.Expr(f, a))
		argTypes = append(argTypes, a.Type)
	}
	b.Types.Ref(ft.Base)
	for idx, v := range args {
		class := classOf(argTypes[idx])
		if argTypes[idx].Kind == ctypes.STRUCT || argTypes[idx].Kind == ctypes.UNION {
			class = ptrClass
			b.Types.Ref(argTypes[idx])
		}
		op := ssa.IArg
		if idx >= nfixed && ft.IsVararg {
			op = ssa.IVararg
		}
		f.Emit(op, class, v, nil)
	}
	class := classOf(ft.Base)
	if ft.Base.Kind == ctypes.STRUCT || ft.Base.Kind == ctypes.UNION {
		class = ptrClass
	}
	if ft.Base.Kind == ctypes.VOID {
		f.Emit(ssa.ICall, ssa.ClassNone, callee, nil)
		return nil
	}
	return f.Emit(ssa.ICall, class, callee, nil)
}

func (b *Builder) exprCond(f *ssa.Func, e *expr.Expr) *ssa.Value {
	tBlk := ssa.MkBlock("cond_true")
	fBlk := ssa.MkBlock("cond_false")
	joinBlk := ssa.MkBlock("cond_join")

	b.Jnz(f, b.Expr(f, e.CondE), e.CondE.Type, tBlk, fBlk)

	f.Label(tBlk)
	var val0 *ssa.Value
	if e.Type.Kind != ctypes.VOID {
		val0 = b.Expr(f, e.CondT)
	} else {
		b.Expr(f, e.CondT)
	}
	pred0 := f.End
	f.Jmp(joinBlk)

	f.Label(fBlk)
	var val1 *ssa.Value
	if e.Type.Kind != ctypes.VOID {
		val1 = b.Expr(f, e.CondF)
	} else {
		b.Expr(f, e.CondF)
	}
	pred1 := f.End
	f.Jmp(joinBlk)

	f.Label(joinBlk)
	if e.Type.Kind == ctypes.VOID {
		return nil
	}
	return f.SetPhi(classOf(e.Type), pred0, pred1, val0, val1)
}

func (b *Builder) exprAssign(f *ssa.Func, e *expr.Expr) *ssa.Value {
	if e.L.Kind == expr.KTemp {
		v := b.Expr(f, e.R)
		e.L.Temp = v
		return v
	}
	lv := b.Lval(f, e.L)
	v := b.Expr(f, e.R)
	return b.Store(f, e.L.Type, e.L.Qual, lv, v)
}

func (b *Builder) exprBinary(f *ssa.Func, e *expr.Expr) *ssa.Value {
	switch e.Op {
	case token.LOR, token.LAND:
		return b.exprShortCircuit(f, e)
	}
	l := b.Expr(f, e.L)
	r := b.Expr(f, e.R)
	op, class := binOp(e.Op, e.L.Type)
	return f.Emit(op, class, l, r)
}

func (b *Builder) exprShortCircuit(f *ssa.Func, e *expr.Expr) *ssa.Value {
	rhsBlk := ssa.MkBlock("logic_rhs")
	joinBlk := ssa.MkBlock("logic_join")

	l := b.toBool(f, e.L)
	pred0 := f.End
	if e.Op == token.LOR {
		f.Jnz(l, joinBlk, rhsBlk)
	} else {
		f.Jnz(l, rhsBlk, joinBlk)
	}

	f.Label(rhsBlk)
	r := b.toBool(f, e.R)
	pred1 := f.End
	f.Jmp(joinBlk)

	f.Label(joinBlk)
	short := ssa.MkIntConst(boolConst(e.Op == token.LOR))
	return f.SetPhi(ssa.ClassW, pred0, pred1, short, r)
}

func boolConst(v bool) uint64 {
	if v {
		return 1
	}
	return 0
}

func binOp(tok token.Kind, t *ctypes.Type) (ssa.Op, ssa.Class) {
	class := classOf(t)
	cmpClass := ssa.ClassW
	switch tok {
	case token.ADD:
		return ssa.IAdd, class
	case token.SUB:
		return ssa.ISub, class
	case token.MUL:
		return ssa.IMul, class
	case token.DIV:
		if t.IsFloat() {
			return ssa.IDiv, class
		}
		if t.IsSigned {
			return ssa.IDiv, class
		}
		return ssa.IUDiv, class
	case token.MOD:
		if t.IsSigned {
			return ssa.IRem, class
		}
		return ssa.IURem, class
	case token.BAND:
		return ssa.IAnd, class
	case token.BOR:
		return ssa.IOr, class
	case token.XOR:
		return ssa.IXor, class
	case token.SHL:
		return ssa.IShl, class
	case token.SHR:
		if t.IsSigned {
			return ssa.ISar, class
		}
		return ssa.IShr, class
	case token.EQL:
		return eqOp(t, true), cmpClass
	case token.NEQ:
		return eqOp(t, false), cmpClass
	case token.LESS:
		return relOp(t, "lt"), cmpClass
	case token.GREATER:
		return relOp(t, "gt"), cmpClass
	case token.LEQ:
		return relOp(t, "le"), cmpClass
	case token.GEQ:
		return relOp(t, "ge"), cmpClass
	default:
		cerr.Internal(cerr.Location{}, "unimplemented binary operator")
		return ssa.ONone, class
	}
}

// eqOp/relOp pick the per-class compare opcode for t, the class-dispatch
// table convert()'s callers (funcexpr's EXPRBINARY relational cases) use
// directly rather than through a shared helper.
func eqOp(t *ctypes.Type, eq bool) ssa.Op {
	if t.IsFloat() {
		if t.Size == 4 {
			if eq {
				return ssa.ICeqS
			}
			return ssa.ICneS
		}
		if eq {
			return ssa.ICeqD
		}
		return ssa.ICneD
	}
	wide := classOf(t) == ssa.ClassL
	if eq {
		if wide {
			return ssa.ICeqL
		}
		return ssa.ICeqW
	}
	if wide {
		return ssa.ICneL
	}
	return ssa.ICneW
}

func relOp(t *ctypes.Type, which string) ssa.Op {
	if t.IsFloat() {
		table := map[string]map[uint64]ssa.Op{
			"lt": {4: ssa.ICltS, 8: ssa.ICltD},
			"gt": {4: ssa.ICgtS, 8: ssa.ICgtD},
			"le": {4: ssa.ICleS, 8: ssa.ICleD},
			"ge": {4: ssa.ICgeS, 8: ssa.ICgeD},
		}
		return table[which][t.Size]
	}
	wide := classOf(t) == ssa.ClassL
	signed := t.IsSigned && t.Kind != ctypes.POINTER
	idx := 0
	if wide {
		idx |= 1
	}
	if signed {
		idx |= 2
	}
	table := map[string][4]ssa.Op{
		"lt": {ssa.ICultW, ssa.ICultL, ssa.ICsltW, ssa.ICsltL},
		"gt": {ssa.ICugtW, ssa.ICugtL, ssa.ICsgtW, ssa.ICsgtL},
		"le": {ssa.ICuleW, ssa.ICuleL, ssa.ICsleW, ssa.ICsleL},
		"ge": {ssa.ICugeW, ssa.ICugeL, ssa.ICsgeW, ssa.ICsgeL},
	}
	return table[which][idx]
}

func (b *Builder) exprBuiltin(f *ssa.Func, e *expr.Expr) *ssa.Value {
	switch e.Builtin {
	case sym.BuiltinAlloca:
		v := b.Expr(f, e.BuiltinArg)
		return f.Emit(ssa.IAlloc16, ptrClass, v, nil)
	case sym.BuiltinUnreachable:
		return nil
	case sym.BuiltinVaStart:
		b.checkVaList(e.Base)
		l := b.Expr(f, e.Base)
		f.Emit(ssa.IVAStart, ssa.ClassNone, l, nil)
		return nil
	case sym.BuiltinVaArg:
		b.checkVaList(e.Base)
		l := b.Expr(f, e.Base)
		return f.Emit(ssa.IVAArg, classOf(e.Type), l, nil)
	default:
		cerr.Internal(cerr.Location{}, "unimplemented builtin")
		return nil
	}
}

// checkVaList verifies e's type is a pointer to the target's va_list
// element struct, the identity check convert()/funcexpr defer to the
// BUILTINVASTART/BUILTINVAARG cases (internal/expr resolves every other
// builtin's shape at parse time; this one needs target.Target, which
// internal/expr never imports).
func (b *Builder) checkVaList(e *expr.Expr) {
	t := e.Type
	tag := b.Target.VaList.Base
	if t.Kind != ctypes.POINTER || !ctypes.Compatible(t.Base, tag) {
		cerr.Fatalf(cerr.KindType, cerr.Location{}, "argument is not a va_list")
	}
}

// zero stores zero bytes over [from, to) of an object based at addr,
// mirroring qbe.c's zero().
func zero(f *ssa.Func, addr *ssa.Value, align int, from, to uint64) {
	if from >= to {
		return
	}
	op, step := loadStoreStep(align)
	n := from
	for n+step <= to {
		d := addr
		if n != 0 {
			d = f.Emit(ssa.IAdd, ptrClass, addr, ssa.MkIntConst(n))
		}
		f.Emit(op.store, ssa.ClassNone, d, zeroConst(op.class))
		n += step
	}
	for n < to {
		d := f.Emit(ssa.IAdd, ptrClass, addr, ssa.MkIntConst(n))
		f.Emit(ssa.IStoreB, ssa.ClassNone, d, ssa.MkIntConst(0))
		n++
	}
}

func zeroConst(class ssa.Class) *ssa.Value {
	if class == ssa.ClassS {
		return ssa.MkFltConst(0)
	}
	if class == ssa.ClassD {
		return ssa.MkDblConst(0)
	}
	return ssa.MkIntConst(0)
}

func readWidth(data []byte, i, w uint64) uint64 {
	off := i * w
	switch w {
	case 1:
		return uint64(data[off])
	case 2:
		return uint64(binary.LittleEndian.Uint16(data[off:]))
	case 4:
		return uint64(binary.LittleEndian.Uint32(data[off:]))
	default:
		cerr.Internal(cerr.Location{}, "unsupported string element width")
		return 0
	}
}

// Init lowers a flattened initializer list against a freshly allocated
// object of d's type, mirroring funcinit: alloc, then per-Init
// zero-then-store, then a final zero() over any trailing uninitialized
// tail.
func (b *Builder) Init(f *ssa.Func, d *sym.Decl, head *initelab.Init) {
	b.Alloc(f, d)
	if head == nil {
		return
	}
	var max uint64
	for cur := head; cur != nil; cur = cur.Next {
		if cur.Expr.Kind == expr.KString {
			zero(f, d.Value, d.Type.Align, max, cur.Start)
			w := cur.Expr.Type.Base.Size
			data := cur.Expr.StrData
			n := uint64(len(data)) / w
			var i uint64
			for i = 0; i < n && cur.Start+i*w < cur.End; i++ {
				addr := f.Emit(ssa.IAdd, ptrClass, d.Value, ssa.MkIntConst(cur.Start+i*w))
				val := readWidth(data, i, w)
				b.Store(f, cur.Expr.Type.Base, ctypes.QualNone, Lvalue{Addr: addr, Bits: cur.Bits}, ssa.MkIntConst(val))
			}
			if off := cur.Start + i*w; off > max {
				max = off
			}
			continue
		}
		zero(f, d.Value, d.Type.Align, max, cur.Start)
		addr := d.Value
		if cur.Start > 0 {
			addr = f.Emit(ssa.IAdd, ptrClass, d.Value, ssa.MkIntConst(cur.Start))
		}
		src := b.Expr(f, cur.Expr)
		b.Store(f, cur.Expr.Type, ctypes.QualNone, Lvalue{Addr: addr, Bits: cur.Bits}, src)
		if cur.End > max {
			max = cur.End
		}
	}
	zero(f, d.Value, d.Type.Align, max, d.Type.Size)
}

// Switch lowers a switch's case table into a balanced binary-search
// decision tree against v, mirroring casesearch/funcswitch.
func (b *Builder) Switch(f *ssa.Func, v *ssa.Value, caseType *ctypes.Type, sw *sym.SwitchCases) {
	class := classOf(caseType)
	var root *cutil.Node[*ssa.Block]
	if sw.Tree != nil {
		root = sw.Tree.Root()
	}
	b.caseSearch(f, class, v, root, sw.Default)
}

func (b *Builder) caseSearch(f *ssa.Func, class ssa.Class, v *ssa.Value, n *cutil.Node[*ssa.Block], deflt *ssa.Block) {
	if n == nil {
		f.Jmp(deflt)
		return
	}
	neBlk := ssa.MkBlock("case_ne")
	ltBlk := ssa.MkBlock("case_lt")
	gtBlk := ssa.MkBlock("case_gt")

	key := ssa.MkIntConst(n.Key())
	ceq, clt := ssa.ICeqW, ssa.ICultW
	if class == ssa.ClassL {
		ceq, clt = ssa.ICeqL, ssa.ICultL
	}

	eq := f.Emit(ceq, ssa.ClassW, v, key)
	f.Jnz(eq, n.Val(), neBlk)

	f.Label(neBlk)
	lt := f.Emit(clt, ssa.ClassW, v, key)
	f.Jnz(lt, ltBlk, gtBlk)

	f.Label(ltBlk)
	b.caseSearch(f, class, v, n.Left(), deflt)

	f.Label(gtBlk)
	b.caseSearch(f, class, v, n.Right(), deflt)
}
