package ssa

import "qcc/internal/ctypes"

var blockID uint32
var globalID uint32

// MkBlock allocates a new, empty block with the given debug name.
func MkBlock(name string) *Block {
	blockID++
	return &Block{Label: Value{Kind: VLabel, Name: name, ID: blockID}}
}

// MkGlobal allocates a global Value. Private globals (string-literal
// temporaries, tentative-definition padding, etc.) get an id suffix so
// the emitter can render a unique `$.Lname.id` symbol (spec.md §4.8);
// exported ones render as plain `$name`.
func MkGlobal(name string, private bool) *Value {
	globalID++
	return &Value{Kind: VGlobal, Name: name, ID: globalID, I: boolToU64(private)}
}

func boolToU64(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

func (v *Value) IsPrivateGlobal() bool { return v.Kind == VGlobal && v.I != 0 }

// MkIntConst allocates an integer-constant Value.
func MkIntConst(i uint64) *Value { return &Value{Kind: VIntConst, I: i} }

// MkFltConst / MkDblConst allocate float/double-constant Values.
func MkFltConst(f float64) *Value { return &Value{Kind: VFltConst, F: f} }
func MkDblConst(f float64) *Value { return &Value{Kind: VDblConst, F: f} }

// MkTypeRef allocates a reference to an emitted aggregate IR type
// (`:T.n`, spec.md §4.8).
func MkTypeRef(name string, id uint32) *Value {
	return &Value{Kind: VTypeRef, Name: name, ID: id}
}

// NewFunc allocates a function with a start block and advances straight
// to it, mirroring cproc's mkfunc (start block, then "body" label
// appended by the caller once parameters are installed).
func NewFunc(name string, t *ctypes.Type) *Func {
	start := MkBlock("start")
	return &Func{
		Name:  name,
		Type:  t,
		Start: start,
		End:   start,
		Gotos: make(map[string]*GotoLabel),
	}
}

// Temp allocates a fresh temporary Value with a monotonically increasing
// id scoped to this function.
func (f *Func) Temp() Value {
	f.lastID++
	return Value{Kind: VTemp, ID: f.lastID}
}

// Label appends b to the function's block list, per funclabel.
func (f *Func) Label(b *Block) {
	f.End.Next = b
	f.End = b
}

// Emit appends inst to the current end block, opening a fresh "dead"
// block first if the current block already has a terminator — spec.md
// §4.7's invariant that "once a block's jump is set, subsequent
// instruction emits open a new dead block". Per §9's Open Question, this
// dead block is intentionally never linked as anyone's predecessor; the
// emitter omits it rather than emit an orphan label (internal/emit).
func (f *Func) Emit(op Op, class Class, a0, a1 *Value) *Value {
	if f.End.Jump.Kind != JumpNone {
		f.Label(MkBlock("dead"))
	}
	inst := &Inst{Op: op, Class: class, Arg: [2]*Value{a0, a1}}
	if class != ClassNone && op != IArg {
		inst.Res = f.Temp()
	}
	f.End.Insts = append(f.End.Insts, inst)
	return &inst.Res
}

// Jmp sets an unconditional jump terminator, a no-op if one is already
// set (matches funcjmp: later terminators in unreachable code are
// dropped silently).
func (f *Func) Jmp(to *Block) {
	b := f.End
	if b.Jump.Kind == JumpNone {
		b.Jump = Jump{Kind: JumpJmp, Succ: [2]*Block{to}}
	}
}

// Jnz sets a conditional-jump terminator.
func (f *Func) Jnz(v *Value, t1, t2 *Block) {
	b := f.End
	if b.Jump.Kind == JumpNone {
		b.Jump = Jump{Kind: JumpJnz, Arg: v, Succ: [2]*Block{t1, t2}}
	}
}

// Ret sets a return terminator.
func (f *Func) Ret(v *Value) {
	b := f.End
	if b.Jump.Kind == JumpNone {
		b.Jump = Jump{Kind: JumpRet, Arg: v}
	}
}

// Goto resolves name to a shared label block, allocating one on first
// reference (the label statement itself marks Defined when reached).
func (f *Func) Goto(name string) *GotoLabel {
	if g, ok := f.Gotos[name]; ok {
		return g
	}
	b := MkBlock(name)
	g := &GotoLabel{Block: b, Label: &b.Label}
	f.Gotos[name] = g
	return g
}

// SetPhi installs a 2-input phi on the current end block.
func (f *Func) SetPhi(class Class, pred0, pred1 *Block, val0, val1 *Value) *Value {
	f.End.Phi = &Phi{Class: class, Pred: [2]*Block{pred0, pred1}, Val: [2]*Value{val0, val1}}
	f.End.Phi.Res = f.Temp()
	return &f.End.Phi.Res
}
