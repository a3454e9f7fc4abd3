// Package llvmshape is qcc's secondary, optional emitter: it re-lowers
// the same typed SSA values internal/emit already serializes to
// QBE-style IR into LLVM textual IR via github.com/llir/llvm, gated
// behind the driver's -emit-llvm flag (SPEC_FULL.md §3/§4.10). It is not
// a code-generation backend — no register allocation, no ISA selection —
// only a textual re-lowering for side-by-side comparison against the
// primary emitter's output, grounded in the teacher's dual-backend
// design (its vm and vmregister packages running the same bytecode
// through two different execution strategies).
package llvmshape

import (
	"fmt"
	"io"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"qcc/internal/cerr"
	"qcc/internal/ctypes"
	"qcc/internal/decl"
	"qcc/internal/emit"
	"qcc/internal/ssa"
	"qcc/internal/sym"
)

// Render writes res as one LLVM module to w. Struct/union layout is
// approximated as an opaque byte array (member offsets and bit-fields
// are internal/emit's concern, not this comparison emitter's — every
// access internal/ir lowers reaches internal/ssa already reduced to a
// scalar class, never a member name).
func Render(w io.Writer, res *emit.Result) error {
	b := &builder{
		m:       ir.NewModule(),
		globals: make(map[string]value.Value),
		funcs:   make(map[string]*ir.Func),
	}

	for _, g := range res.Globals {
		b.declareGlobal(g.Decl)
	}
	for _, d := range res.Tentative {
		if !d.Defined {
			b.declareGlobal(d)
		}
	}
	for _, fd := range res.Funcs {
		b.declareFunc(fd)
	}
	for _, fd := range res.Funcs {
		b.defineFunc(fd)
	}

	_, err := io.WriteString(w, b.m.String())
	return err
}

type builder struct {
	m       *ir.Module
	globals map[string]value.Value // by Decl.Value.Name
	funcs   map[string]*ir.Func    // by Func.Name
}

// llType maps a ctypes.Type to its nearest LLVM shape.
func llType(t *ctypes.Type) types.Type {
	switch t.Kind {
	case ctypes.VOID:
		return types.Void
	case ctypes.BASIC:
		if t.IsFloat() {
			if t.Size <= 4 {
				return types.Float
			}
			return types.Double
		}
		return intType(t.Size)
	case ctypes.POINTER:
		return types.NewPointer(llType(t.Base))
	case ctypes.ARRAY:
		return types.NewArray(t.Length, llType(t.Base))
	case ctypes.STRUCT, ctypes.UNION:
		return types.NewArray(t.Size, types.I8)
	case ctypes.ENUM:
		return types.I32
	default:
		return types.I64
	}
}

func intType(size uint64) *types.IntType {
	switch {
	case size <= 1:
		return types.I8
	case size <= 2:
		return types.I16
	case size <= 4:
		return types.I32
	default:
		return types.I64
	}
}

// classType maps an internal/ssa result class directly to an LLVM type —
// the same four-way split internal/emit's instClass encodes. Class 'l'
// covers both 64-bit integers and addresses; this emitter renders it as
// i64 throughout and converts it to a pointer with inttoptr only where a
// load, store, or indirect call needs one.
func classType(c ssa.Class) types.Type {
	switch c {
	case ssa.ClassW:
		return types.I32
	case ssa.ClassL:
		return types.I64
	case ssa.ClassS:
		return types.Float
	case ssa.ClassD:
		return types.Double
	default:
		return types.Void
	}
}

func (b *builder) declareGlobal(d *sym.Decl) {
	if d.Value == nil {
		return
	}
	name := d.Value.Name
	if _, ok := b.globals[name]; ok {
		return
	}
	g := b.m.NewGlobalDef(name, constant.NewZeroInitializer(llType(d.Type)))
	if d.Linkage == sym.LinkIntern {
		g.Linkage = enum.LinkageInternal
	}
	b.globals[name] = g
}

// declareFunc registers fd's LLVM signature without a body, mirroring
// internal/emit's own two-pass shape (types before uses, here functions
// before calls that might reference one defined later in the same unit).
func (b *builder) declareFunc(fd *decl.FuncDef) {
	ret, params, variadic := funcType(fd.Decl.Type)
	var irParams []*ir.Param
	i := 0
	for p := fd.Decl.Type.Params; p != nil; p = p.Next {
		irParams = append(irParams, ir.NewParam(fmt.Sprintf("p%d", i), params[i]))
		i++
	}
	f := b.m.NewFunc(fd.Func.Name, ret, irParams...)
	f.Sig.Variadic = variadic
	if fd.Decl.Linkage == sym.LinkIntern {
		f.Linkage = enum.LinkageInternal
	}
	b.funcs[fd.Func.Name] = f
}

// funcType builds the LLVM function-type shape of a C function type,
// the llType-collapsed counterpart of internal/emit's sigClass: an LLVM
// function carries real aggregate parameter/return types rather than
// qcc's `:tag.n` IR-level reference.
func funcType(t *ctypes.Type) (ret types.Type, params []types.Type, variadic bool) {
	ret = llType(t.Base)
	for p := t.Params; p != nil; p = p.Next {
		params = append(params, llType(p.Type))
	}
	return ret, params, t.IsVararg
}

// funcBuilder carries the per-function state defineFunc needs: the
// temp/block maps an internal/ssa.Func's values resolve through.
type funcBuilder struct {
	*builder
	f      *ir.Func
	temps  map[uint32]value.Value
	blocks map[uint32]*ir.Block
}

func (b *builder) defineFunc(fd *decl.FuncDef) {
	f := b.funcs[fd.Func.Name]
	fb := &funcBuilder{builder: b, f: f, temps: make(map[uint32]value.Value), blocks: make(map[uint32]*ir.Block)}

	for blk := fd.Func.Start; blk != nil; blk = blk.Next {
		fb.blocks[blk.Label.ID] = f.NewBlock(blockName(blk))
	}
	for i, pv := range fd.Func.ParamValues {
		fb.temps[pv.ID] = f.Params[i]
	}

	for blk := fd.Func.Start; blk != nil; blk = blk.Next {
		fb.defineBlock(blk)
	}
}

func blockName(blk *ssa.Block) string {
	if blk.Label.Name != "" {
		return fmt.Sprintf("%s.%d", blk.Label.Name, blk.Label.ID)
	}
	return fmt.Sprintf("b%d", blk.Label.ID)
}

func (fb *funcBuilder) defineBlock(blk *ssa.Block) {
	cur := fb.blocks[blk.Label.ID]

	if blk.Phi != nil && blk.Phi.Res.Kind != ssa.VNone {
		t0 := fb.blocks[blk.Phi.Pred[0].Label.ID]
		t1 := fb.blocks[blk.Phi.Pred[1].Label.ID]
		typ := classType(blk.Phi.Class)
		v0 := fb.operand(cur, blk.Phi.Val[0], blk.Phi.Class)
		v1 := fb.operand(cur, blk.Phi.Val[1], blk.Phi.Class)
		phi := cur.NewPhi(ir.NewIncoming(v0, t0), ir.NewIncoming(v1, t1))
		phi.Typ = typ
		fb.temps[blk.Phi.Res.ID] = phi
	}

	var pendingArgs []value.Value
	for _, inst := range blk.Insts {
		if inst.Op == ssa.IArg || inst.Op == ssa.IVararg {
			pendingArgs = append(pendingArgs, fb.operand(cur, inst.Arg[0], argClass(inst.Arg[0])))
			continue
		}
		if inst.Op == ssa.ICall {
			callee := fb.callee(cur, inst.Arg[0])
			res := cur.NewCall(callee, pendingArgs...)
			pendingArgs = nil
			if inst.Class != ssa.ClassNone {
				fb.temps[inst.Res.ID] = res
			}
			continue
		}
		fb.defineInst(cur, inst)
	}

	switch blk.Jump.Kind {
	case ssa.JumpRet:
		if blk.Jump.Arg == nil {
			cur.NewRet(nil)
		} else {
			cur.NewRet(fb.operand(cur, blk.Jump.Arg, retClass(fb.f)))
		}
	case ssa.JumpJmp:
		cur.NewBr(fb.blocks[blk.Jump.Succ[0].Label.ID])
	case ssa.JumpJnz:
		cond := fb.operand(cur, blk.Jump.Arg, ssa.ClassW)
		zero := constant.NewInt(cond.Type().(*types.IntType), 0)
		test := cur.NewICmp(enum.IPredNE, cond, zero)
		cur.NewCondBr(test, fb.blocks[blk.Jump.Succ[0].Label.ID], fb.blocks[blk.Jump.Succ[1].Label.ID])
	}
}

// callee resolves a call instruction's target: a direct call to a
// named function uses that function's real LLVM signature, while an
// indirect call through a function-pointer temp (itself rendered as a
// plain i64 address, like every other class-'l' value here) is cast
// back to a generic variadic function pointer — qcc's own IR carries no
// richer callee-type information at the call site than that.
func (fb *funcBuilder) callee(cur *ir.Block, v *ssa.Value) value.Value {
	if v.Kind == ssa.VGlobal {
		if f, ok := fb.funcs[v.Name]; ok {
			return f
		}
	}
	addr := fb.operand(cur, v, ssa.ClassL)
	sig := types.NewFunc(types.I64)
	sig.Variadic = true
	genericFn := types.NewPointer(sig)
	return cur.NewIntToPtr(addr, genericFn)
}

func retClass(f *ir.Func) ssa.Class {
	switch f.Sig.RetType {
	case types.I32:
		return ssa.ClassW
	case types.Float:
		return ssa.ClassS
	case types.Double:
		return ssa.ClassD
	default:
		return ssa.ClassL
	}
}

// argClass recovers a call argument's class from the Value itself when
// it is a constant (whose Kind tags its class directly); a temp or
// global argument was already produced at its own class by an earlier
// instruction, so its LLVM value's type speaks for itself and this
// result is only consulted for the constant case.
func argClass(v *ssa.Value) ssa.Class {
	switch v.Kind {
	case ssa.VFltConst:
		return ssa.ClassS
	case ssa.VDblConst:
		return ssa.ClassD
	case ssa.VGlobal:
		return ssa.ClassL
	default:
		return ssa.ClassL
	}
}

// defineInst translates one scalar instruction, covering the opcode
// families spec.md §3 lists: class-polymorphic arithmetic, compares,
// sized loads/stores, extensions/truncations, int<->float conversions,
// and stack allocation. va_start/va_arg are target-ABI machinery this
// comparison emitter does not attempt to re-derive (the primary emitter
// prints them as plain vastart/vaarg instructions) and are reported as an unsupported diagnostic instead of silently
// producing a wrong LLVM rendering.
func (fb *funcBuilder) defineInst(cur *ir.Block, inst *ssa.Inst) {
	a0 := func() value.Value { return fb.operand(cur, inst.Arg[0], inst.Class) }
	a1 := func() value.Value { return fb.operand(cur, inst.Arg[1], inst.Class) }
	isFloat := inst.Class == ssa.ClassS || inst.Class == ssa.ClassD

	var res value.Value
	switch inst.Op {
	case ssa.IAdd:
		if isFloat {
			res = cur.NewFAdd(a0(), a1())
		} else {
			res = cur.NewAdd(a0(), a1())
		}
	case ssa.ISub:
		if isFloat {
			res = cur.NewFSub(a0(), a1())
		} else {
			res = cur.NewSub(a0(), a1())
		}
	case ssa.IMul:
		if isFloat {
			res = cur.NewFMul(a0(), a1())
		} else {
			res = cur.NewMul(a0(), a1())
		}
	case ssa.IDiv:
		if isFloat {
			res = cur.NewFDiv(a0(), a1())
		} else {
			res = cur.NewSDiv(a0(), a1())
		}
	case ssa.IUDiv:
		res = cur.NewUDiv(a0(), a1())
	case ssa.IRem:
		if isFloat {
			res = cur.NewFRem(a0(), a1())
		} else {
			res = cur.NewSRem(a0(), a1())
		}
	case ssa.IURem:
		res = cur.NewURem(a0(), a1())
	case ssa.INeg:
		x := a0()
		if isFloat {
			res = cur.NewFSub(constant.NewFloat(x.Type().(*types.FloatType), 0), x)
		} else {
			res = cur.NewSub(constant.NewInt(x.Type().(*types.IntType), 0), x)
		}
	case ssa.IOr:
		res = cur.NewOr(a0(), a1())
	case ssa.IAnd:
		res = cur.NewAnd(a0(), a1())
	case ssa.IXor:
		res = cur.NewXor(a0(), a1())
	case ssa.ISar:
		res = cur.NewAShr(a0(), a1())
	case ssa.IShr:
		res = cur.NewLShr(a0(), a1())
	case ssa.IShl:
		res = cur.NewShl(a0(), a1())

	case ssa.ICeqW, ssa.ICeqL:
		res = cur.NewICmp(enum.IPredEQ, a0(), a1())
	case ssa.ICneW, ssa.ICneL:
		res = cur.NewICmp(enum.IPredNE, a0(), a1())
	case ssa.ICsltW, ssa.ICsltL:
		res = cur.NewICmp(enum.IPredSLT, a0(), a1())
	case ssa.ICultW, ssa.ICultL:
		res = cur.NewICmp(enum.IPredULT, a0(), a1())
	case ssa.ICsleW, ssa.ICsleL:
		res = cur.NewICmp(enum.IPredSLE, a0(), a1())
	case ssa.ICuleW, ssa.ICuleL:
		res = cur.NewICmp(enum.IPredULE, a0(), a1())
	case ssa.ICsgtW, ssa.ICsgtL:
		res = cur.NewICmp(enum.IPredSGT, a0(), a1())
	case ssa.ICugtW, ssa.ICugtL:
		res = cur.NewICmp(enum.IPredUGT, a0(), a1())
	case ssa.ICsgeW, ssa.ICsgeL:
		res = cur.NewICmp(enum.IPredSGE, a0(), a1())
	case ssa.ICugeW, ssa.ICugeL:
		res = cur.NewICmp(enum.IPredUGE, a0(), a1())
	case ssa.ICeqS, ssa.ICeqD:
		res = cur.NewFCmp(enum.FPredOEQ, a0(), a1())
	case ssa.ICneS, ssa.ICneD:
		res = cur.NewFCmp(enum.FPredONE, a0(), a1())
	case ssa.ICltS, ssa.ICltD:
		res = cur.NewFCmp(enum.FPredOLT, a0(), a1())
	case ssa.ICleS, ssa.ICleD:
		res = cur.NewFCmp(enum.FPredOLE, a0(), a1())
	case ssa.ICgtS, ssa.ICgtD:
		res = cur.NewFCmp(enum.FPredOGT, a0(), a1())
	case ssa.ICgeS, ssa.ICgeD:
		res = cur.NewFCmp(enum.FPredOGE, a0(), a1())

	case ssa.ILoadUB, ssa.ILoadSB, ssa.ILoadUH, ssa.ILoadSH, ssa.ILoadW, ssa.ILoadL, ssa.ILoadS, ssa.ILoadD:
		res = fb.load(cur, inst)
	case ssa.IStoreB, ssa.IStoreH, ssa.IStoreW, ssa.IStoreL, ssa.IStoreS, ssa.IStoreD:
		fb.store(cur, inst)
		return

	case ssa.IExtSB, ssa.IExtSH, ssa.IExtSW:
		res = cur.NewSExt(a0(), classType(inst.Class))
	case ssa.IExtUB, ssa.IExtUH, ssa.IExtUW:
		res = cur.NewZExt(a0(), classType(inst.Class))
	case ssa.IExtS:
		res = cur.NewFPExt(a0(), types.Double)
	case ssa.ITruncD:
		res = cur.NewFPTrunc(a0(), types.Float)

	case ssa.IStoSI, ssa.IDtoSI:
		res = cur.NewFPToSI(a0(), classType(inst.Class))
	case ssa.IStoUI, ssa.IDtoUI:
		res = cur.NewFPToUI(a0(), classType(inst.Class))
	case ssa.ISwToF, ssa.ISlToF:
		res = cur.NewSIToFP(a0(), classType(inst.Class))
	case ssa.IUwToF, ssa.IUlToF:
		res = cur.NewUIToFP(a0(), classType(inst.Class))

	case ssa.IAlloc4:
		res = cur.NewPtrToInt(cur.NewAlloca(types.I32), types.I64)
	case ssa.IAlloc8:
		res = cur.NewPtrToInt(cur.NewAlloca(types.I64), types.I64)
	case ssa.IAlloc16:
		res = cur.NewPtrToInt(cur.NewAlloca(types.NewArray(16, types.I8)), types.I64)

	case ssa.IVAStart, ssa.IVAArg:
		cerr.Fatalf(cerr.KindUnsupported, cerr.Location{}, "-emit-llvm: va_start/va_arg have no target-independent LLVM rendering")
	default:
		cerr.Internal(cerr.Location{}, "-emit-llvm: unhandled opcode %s", inst.Op)
	}

	if inst.Class != ssa.ClassNone && res != nil {
		fb.temps[inst.Res.ID] = res
	}
}

// load translates a sized load: the address operand is always rendered
// as a plain i64 (see classType's doc comment), so it is cast back to a
// pointer of the right element type with inttoptr immediately before
// the actual llvm.load.
func (fb *funcBuilder) load(cur *ir.Block, inst *ssa.Inst) value.Value {
	addr := fb.operand(cur, inst.Arg[0], ssa.ClassL)
	elemType, signed := loadShape(inst.Op)
	ptr := cur.NewIntToPtr(addr, types.NewPointer(elemType))
	v := cur.NewLoad(elemType, ptr)
	if elemType == classType(inst.Class) {
		return v
	}
	if signed {
		return cur.NewSExt(v, classType(inst.Class))
	}
	return cur.NewZExt(v, classType(inst.Class))
}

func loadShape(op ssa.Op) (types.Type, bool) {
	switch op {
	case ssa.ILoadUB:
		return types.I8, false
	case ssa.ILoadSB:
		return types.I8, true
	case ssa.ILoadUH:
		return types.I16, false
	case ssa.ILoadSH:
		return types.I16, true
	case ssa.ILoadW:
		return types.I32, true
	case ssa.ILoadL:
		return types.I64, true
	case ssa.ILoadS:
		return types.Float, false
	case ssa.ILoadD:
		return types.Double, false
	}
	return types.I64, false
}

func (fb *funcBuilder) store(cur *ir.Block, inst *ssa.Inst) {
	elemType := storeShape(inst.Op)
	val := fb.operand(cur, inst.Arg[0], classOfType(elemType))
	addr := fb.operand(cur, inst.Arg[1], ssa.ClassL)
	if val.Type() != elemType {
		val = cur.NewTrunc(val, elemType)
	}
	ptr := cur.NewIntToPtr(addr, types.NewPointer(elemType))
	cur.NewStore(val, ptr)
}

func storeShape(op ssa.Op) types.Type {
	switch op {
	case ssa.IStoreB:
		return types.I8
	case ssa.IStoreH:
		return types.I16
	case ssa.IStoreW:
		return types.I32
	case ssa.IStoreL:
		return types.I64
	case ssa.IStoreS:
		return types.Float
	case ssa.IStoreD:
		return types.Double
	}
	return types.I64
}

func classOfType(t types.Type) ssa.Class {
	switch t {
	case types.I8, types.I16, types.I32:
		return ssa.ClassW
	case types.Float:
		return ssa.ClassS
	case types.Double:
		return ssa.ClassD
	default:
		return ssa.ClassL
	}
}

// operand resolves v to an LLVM value at class c, the class the
// consuming instruction expects — ssa.Value itself does not carry a
// class for VIntConst/VFltConst/VDblConst (qbe.c's struct value doesn't
// either; the consumer's own class always disambiguates a constant's
// width).
func (fb *funcBuilder) operand(cur *ir.Block, v *ssa.Value, c ssa.Class) value.Value {
	switch v.Kind {
	case ssa.VIntConst:
		t := classType(c)
		it, ok := t.(*types.IntType)
		if !ok {
			it = types.I64
		}
		return constant.NewInt(it, int64(v.I))
	case ssa.VFltConst:
		return constant.NewFloat(types.Float, v.F)
	case ssa.VDblConst:
		return constant.NewFloat(types.Double, v.F)
	case ssa.VTemp:
		if val, ok := fb.temps[v.ID]; ok {
			return val
		}
		cerr.Internal(cerr.Location{}, "-emit-llvm: reference to undefined temp %%.%d", v.ID)
	case ssa.VGlobal:
		return cur.NewPtrToInt(fb.globalAddr(v.Name), types.I64)
	}
	cerr.Internal(cerr.Location{}, "-emit-llvm: value with no LLVM representation")
	return nil
}

// globalAddr resolves a global or function symbol to its LLVM pointer
// value, declaring an opaque i8 global on first reference to a symbol
// this translation unit never itself defined (an extern never given a
// definition here).
func (fb *funcBuilder) globalAddr(name string) value.Value {
	if g, ok := fb.globals[name]; ok {
		return g
	}
	if f, ok := fb.funcs[name]; ok {
		return f
	}
	g := fb.m.NewGlobalDecl(name, types.I8)
	fb.globals[name] = g
	return g
}
