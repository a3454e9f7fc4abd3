// Package emit serializes a parsed translation unit to the textual
// QBE-style IR spec.md §4.8 describes: aggregate type definitions,
// data objects (globals, string literals, tentative fills), and function
// bodies, grounded throughout on original_source/qbe.c's emittype,
// emitfunc, emitinst, emitjump, dataitem, and emitdata.
package emit

import (
	"bufio"
	"fmt"
	"io"

	"github.com/google/uuid"

	"qcc/internal/cerr"
	"qcc/internal/ctypes"
	"qcc/internal/decl"
	"qcc/internal/expr"
	"qcc/internal/initelab"
	"qcc/internal/ir"
	"qcc/internal/ssa"
	"qcc/internal/sym"
	"qcc/internal/token"
)

// Writer serializes one translation unit's worth of definitions to an
// underlying io.Writer, buffering output the way the teacher's own
// file-producing code wraps an *os.File in a *bufio.Writer.
type Writer struct {
	w     *bufio.Writer
	types *ir.TypeTable // set for the duration of an All call
	uniq  string         // non-empty only in batch mode, see NewBatchWriter
}

// NewWriter wraps w for a single, standalone translation unit: the
// private-global suffix is just the Value's own monotonic id, since
// nothing else will be linked alongside this output.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// NewBatchWriter wraps w for one file among several internal/driver is
// assembling into a single combined IR stream (`qcc -c a.c b.c` compiled
// in one driver invocation). ssa numbers private globals from one
// package-level counter that is never reset, so within one process the
// ids do not repeat between files; in addition, batch callers get a short
// uuid-derived tag mixed into every private symbol this Writer renders.
func NewBatchWriter(w io.Writer) *Writer {
	tag := uuid.New().String()[:8]
	return &Writer{w: bufio.NewWriter(w), uniq: tag}
}

// Flush flushes buffered output, reporting any write error encountered.
func (w *Writer) Flush() error { return w.w.Flush() }

// Result is the subset of a translation unit's parsed output All needs;
// internal/parser.Result satisfies it field-for-field. Kept as its own
// type here rather than imported directly so internal/emit does not pull
// in internal/parser, which already imports internal/decl and
// internal/ir (internal/emit's own dependencies) — a one-way dependency
// edge stays one-way.
type Result struct {
	Globals   []*decl.GlobalDef
	Tentative []*sym.Decl
	Funcs     []*decl.FuncDef
	Strings   []ir.StringLiteral
	Types     *ir.TypeTable
}

// All serializes res in full: aggregate type definitions first (so a
// member type's `:tag.n` always appears before its first use), then data
// objects (explicit globals, string/__func__ literals, and zero-filled
// tentative definitions), then function bodies — the same dependency
// order original_source/main.c's compile() achieves implicitly by
// emitting each top-level declaration as soon as it is complete, since
// qcc's decl.Parser instead defers everything to translation-unit end for
// 6.9.2 tentative-definition resolution (spec.md §4.2).
func (w *Writer) All(res *Result) {
	w.types = res.Types
	for _, t := range res.Types.Order() {
		w.typeDef(t)
	}
	for _, sl := range res.Strings {
		w.stringData(sl)
	}
	for _, g := range res.Globals {
		w.data(g.Decl, g.Init)
	}
	for _, d := range res.Tentative {
		if !d.Defined {
			w.data(d, nil)
		}
	}
	for _, fd := range res.Funcs {
		w.funcDef(fd)
	}
}

func (w *Writer) value(v *ssa.Value) {
	if v == nil {
		fmt.Fprint(w.w, "0")
		return
	}
	switch v.Kind {
	case ssa.VGlobal:
		if v.IsPrivateGlobal() {
			if w.uniq != "" {
				fmt.Fprintf(w.w, "$.L%s.%s.%d", v.Name, w.uniq, v.ID)
			} else {
				fmt.Fprintf(w.w, "$.L%s.%d", v.Name, v.ID)
			}
		} else {
			fmt.Fprintf(w.w, "$%s", v.Name)
		}
	case ssa.VIntConst:
		fmt.Fprintf(w.w, "%d", v.I)
	case ssa.VFltConst:
		fmt.Fprintf(w.w, "s_%.17g", v.F)
	case ssa.VDblConst:
		fmt.Fprintf(w.w, "d_%.17g", v.F)
	case ssa.VTemp:
		if v.Name != "" {
			fmt.Fprintf(w.w, "%%%s.%d", v.Name, v.ID)
		} else {
			fmt.Fprintf(w.w, "%%.%d", v.ID)
		}
	case ssa.VTypeRef:
		fmt.Fprintf(w.w, ":%s.%d", v.Name, v.ID)
	case ssa.VLabel:
		fmt.Fprintf(w.w, "@%s.%d", v.Name, v.ID)
	default:
		cerr.Internal(cerr.Location{}, "emitting a value with no QBE representation")
	}
}

// sigClass prints a scalar or aggregate type's class in a function
// signature position: an already-registered struct/union prints its
// `:tag.n` reference, matching emitfunc's own use of emitclass against
// qbetype(t).base and t->value together; every other type prints its
// bare class letter.
func (w *Writer) sigClass(t *ctypes.Type) {
	if t.Kind == ctypes.STRUCT || t.Kind == ctypes.UNION {
		if ref := w.types.ValueOf(t); ref != nil {
			w.value(ref)
			return
		}
	}
	c := classOf(t)
	if c == ssa.ClassNone {
		cerr.Internal(cerr.Location{}, "type has no QBE representation")
	}
	w.w.WriteByte(byte(c))
}

// instClass prints an instruction's result class. Unlike sigClass,
// qcc's ir builder already lowers every struct/union-by-value argument
// or return to a plain pointer-class value before it ever reaches an
// ssa.Inst (spec.md §4.7's simplified aggregate-passing convention), so
// an Inst's Class is always one of the four scalar letters.
func (w *Writer) instClass(class ssa.Class) {
	if class == ssa.ClassNone {
		cerr.Internal(cerr.Location{}, "instruction has no result class")
	}
	w.w.WriteByte(byte(class))
}

// dataClass returns the one-letter data-section class for a scalar
// initializer's type: like classOf but with the byte/half granularity
// data directives need and instructions don't, mirroring qbetype(t).data.
func dataClass(t *ctypes.Type) byte {
	if t.IsFloat() {
		if t.Size == 4 {
			return 's'
		}
		return 'd'
	}
	switch t.Size {
	case 1:
		return 'b'
	case 2:
		return 'h'
	case 4:
		return 'w'
	default:
		return 'l'
	}
}

// classOf mirrors internal/ir's unexported helper of the same name:
// internal/emit cannot import it directly, and the rule is simple enough
// (and stable enough, being spec.md §3's own class assignment) to state
// again here rather than force an export internal/ir otherwise has no
// use for.
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

func alignUp(n, a uint64) uint64 { return (n + a - 1) &^ (a - 1) }

// typeDef prints one aggregate type's `type :tag.n = ...` definition,
// mirroring emittype. A struct groups members sharing a storage unit (the
// run a packed bit-field occupies) inside one brace-free field list; a
// union instead wraps every member individually in its own `{ ... }`.
func (w *Writer) typeDef(t *ctypes.Type) {
	fmt.Fprint(w.w, "type ")
	w.value(w.types.ValueOf(t))
	fmt.Fprint(w.w, " = { ")
	m := t.Members
	for m != nil {
		if t.Kind == ctypes.STRUCT {
			off := m.Offset + m.Type.Size
			other := m.Next
			for other != nil && other.Offset < alignUp(m.Offset+1, 8) {
				if other.Offset <= m.Offset {
					m = other
				}
				other = other.Next
			}
			off = m.Offset + m.Type.Size
			w.typeDefField(m)
			fmt.Fprint(w.w, ", ")
			for m != nil && m.Offset < off {
				m = m.Next
			}
		} else {
			fmt.Fprint(w.w, "{ ")
			w.typeDefField(m)
			fmt.Fprint(w.w, " } ")
			m = m.Next
		}
	}
	fmt.Fprintln(w.w, "}")
}

func (w *Writer) typeDefField(m *ctypes.Member) {
	sub := m.Type
	count := uint64(1)
	for sub.Kind == ctypes.ARRAY {
		count *= sub.Length
		sub = sub.Base
	}
	w.sigClass(sub)
	if count > 1 {
		fmt.Fprintf(w.w, " %d", count)
	}
}

// funcDef prints one function definition, mirroring emitfunc. A function
// whose last block has no terminator (its body falls off the end) gets a
// `ret` synthesized here: `ret 0` for an int-returning `main`, a bare
// `ret` otherwise. Blocks not reachable from the start block, such as the
// "dead" blocks ssa.Func.Emit opens after a terminator, are not printed.
func (w *Writer) funcDef(fd *decl.FuncDef) {
	f := fd.Func
	if f.End.Jump.Kind == ssa.JumpNone {
		var v *ssa.Value
		if f.Name == "main" && f.Type.Base.Kind == ctypes.BASIC && f.Type.Base.Basic == ctypes.IntKind {
			v = ssa.MkIntConst(0)
		}
		f.Ret(v)
	}
	if fd.Decl.Linkage == sym.LinkExtern {
		fmt.Fprintln(w.w, "export")
	}
	fmt.Fprint(w.w, "function ")
	if f.Type.Base.Kind != ctypes.VOID {
		w.sigClass(f.Type.Base)
		w.w.WriteByte(' ')
	}
	w.value(fd.Decl.Value)
	w.w.WriteByte('(')
	i := 0
	for prm := f.Type.Params; prm != nil; prm, i = prm.Next, i+1 {
		if i > 0 {
			fmt.Fprint(w.w, ", ")
		}
		w.sigClass(prm.Type)
		w.w.WriteByte(' ')
		w.value(&f.ParamValues[i])
	}
	if f.Type.IsVararg {
		fmt.Fprint(w.w, ", ...")
	}
	fmt.Fprintln(w.w, ") {")
	live := map[*ssa.Block]bool{}
	var mark func(b *ssa.Block)
	mark = func(b *ssa.Block) {
		if b == nil || live[b] {
			return
		}
		live[b] = true
		if b.Jump.Kind == ssa.JumpNone {
			mark(b.Next)
		}
		mark(b.Jump.Succ[0])
		mark(b.Jump.Succ[1])
	}
	mark(f.Start)
	for b := f.Start; b != nil; b = b.Next {
		if !live[b] {
			continue
		}
		w.value(&b.Label)
		w.w.WriteByte('\n')
		if b.Phi != nil && b.Phi.Res.Kind != ssa.VNone {
			w.w.WriteByte('\t')
			w.value(&b.Phi.Res)
			fmt.Fprintf(w.w, " =%c phi ", byte(b.Phi.Class))
			w.value(&b.Phi.Pred[0].Label)
			w.w.WriteByte(' ')
			w.value(b.Phi.Val[0])
			fmt.Fprint(w.w, ", ")
			w.value(&b.Phi.Pred[1].Label)
			w.w.WriteByte(' ')
			w.value(b.Phi.Val[1])
			w.w.WriteByte('\n')
		}
		insts := b.Insts
		for i := 0; i < len(insts); {
			i = w.inst(insts, i)
		}
		w.jump(&b.Jump)
	}
	fmt.Fprintln(w.w, "}")
}

// inst prints the instruction at insts[i], consuming and folding in a
// trailing run of IArg/IVararg pseudo-instructions when it is a call,
// mirroring emitinst. It returns the index just past everything consumed.
func (w *Writer) inst(insts []*ssa.Inst, i int) int {
	in := insts[i]
	w.w.WriteByte('\t')
	if in.Res.Kind != ssa.VNone {
		w.value(&in.Res)
		fmt.Fprint(w.w, " =")
		w.instClass(in.Class)
		w.w.WriteByte(' ')
	}
	fmt.Fprint(w.w, in.Op.String())
	w.w.WriteByte(' ')
	w.value(in.Arg[0])
	i++
	if in.Op == ssa.ICall {
		w.w.WriteByte('(')
		first := true
		for i < len(insts) {
			next := insts[i]
			if next.Op == ssa.IVararg {
				fmt.Fprint(w.w, ", ...")
				i++
				continue
			}
			if next.Op != ssa.IArg {
				break
			}
			if first {
				first = false
			} else {
				fmt.Fprint(w.w, ", ")
			}
			w.instClass(next.Class)
			w.w.WriteByte(' ')
			w.value(next.Arg[0])
			i++
		}
		w.w.WriteByte(')')
	} else if in.Arg[1] != nil {
		fmt.Fprint(w.w, ", ")
		w.value(in.Arg[1])
	}
	w.w.WriteByte('\n')
	return i
}

func (w *Writer) jump(j *ssa.Jump) {
	switch j.Kind {
	case ssa.JumpRet:
		fmt.Fprint(w.w, "\tret")
		if j.Arg != nil {
			w.w.WriteByte(' ')
			w.value(j.Arg)
		}
		w.w.WriteByte('\n')
	case ssa.JumpJmp:
		fmt.Fprint(w.w, "\tjmp ")
		w.value(&j.Succ[0].Label)
		w.w.WriteByte('\n')
	case ssa.JumpJnz:
		fmt.Fprint(w.w, "\tjnz ")
		w.value(j.Arg)
		fmt.Fprint(w.w, ", ")
		w.value(&j.Succ[0].Label)
		fmt.Fprint(w.w, ", ")
		w.value(&j.Succ[1].Label)
		w.w.WriteByte('\n')
	}
}

// stringData prints one interned string or __func__ literal as a data
// object, mirroring the EXPRSTRING half of dataitem plus emitdata's
// enclosing `data $name = align N { ... }` wrapper.
func (w *Writer) stringData(sl ir.StringLiteral) {
	fmt.Fprint(w.w, "data ")
	w.value(sl.Decl.Value)
	fmt.Fprintf(w.w, " = align %d { ", sl.Type.Align)
	fmt.Fprint(w.w, renderStringBody(sl.Data, int(sl.Type.Base.Size), sl.Type.Size))
	fmt.Fprintln(w.w, "}")
}

// renderStringBody renders a byte string's content as QBE data items:
// runs of printable bytes become one quoted string, everything else is
// escaped octal, and any width beyond what the decoded bytes cover pads
// with a trailing `z N`, mirroring dataitem's EXPRSTRING case.
func renderStringBody(data []byte, elemWidth int, totalSize uint64) string {
	if elemWidth == 1 {
		out := "\""
		var n uint64
		for n = 0; n < uint64(len(data)) && n < totalSize; n++ {
			c := data[n]
			if c >= 0x20 && c < 0x7f && c != '"' && c != '\\' {
				out += string(rune(c))
			} else {
				out += fmt.Sprintf("\\%03o", c)
			}
		}
		out += "\", "
		if n < totalSize {
			out += fmt.Sprintf("z %d, ", totalSize-n)
		}
		return out
	}
	var out string
	var n uint64
	count := uint64(len(data)) / uint64(elemWidth)
	for n = 0; n < count && n*uint64(elemWidth) < totalSize; n++ {
		var v uint64
		for b := 0; b < elemWidth; b++ {
			v |= uint64(data[n*uint64(elemWidth)+uint64(b)]) << (8 * uint(b))
		}
		out += fmt.Sprintf("%d ", v)
	}
	if n*uint64(elemWidth) < totalSize {
		out += fmt.Sprintf("z %d, ", totalSize-n*uint64(elemWidth))
	}
	return out
}

// data prints one global object's `data` definition: init == nil renders
// a single zero-filled region (a tentative definition, or equivalently a
// non-tentative declaration with linkage but no initializer), otherwise
// it walks init's position-sorted assignment list exactly as emitdata
// does, packing contiguous bit-field bytes and filling uncovered byte
// ranges with `z N`.
func (w *Writer) data(d *sym.Decl, init *initelab.Init) {
	align := d.Align
	if align == 0 {
		align = d.Type.Align
	}
	if d.Linkage == sym.LinkExtern {
		fmt.Fprint(w.w, "export ")
	}
	fmt.Fprint(w.w, "data ")
	w.value(d.Value)
	fmt.Fprintf(w.w, " = align %d { ", align)
	if init == nil {
		fmt.Fprintf(w.w, "z %d ", d.Type.Size)
		fmt.Fprintln(w.w, "}")
		return
	}

	var offset, bits uint64
	for cur := init; cur != nil; cur = cur.Next {
		start := cur.Start + uint64(cur.Bits.Before)/8
		end := cur.End - uint64(cur.Bits.After+7)/8
		if offset < start && bits != 0 {
			fmt.Fprintf(w.w, "b %d, ", bits&0xff)
			offset++
			bits = 0
		}
		if offset < start {
			fmt.Fprintf(w.w, "z %d, ", start-offset)
		}
		switch {
		case cur.Bits.Before != 0 || cur.Bits.After != 0:
			bits |= cur.Expr.ConstI << (uint(cur.Bits.Before) % 8)
			for off := start; off < end; off++ {
				fmt.Fprintf(w.w, "b %d, ", bits&0xff)
				bits >>= 8
			}
			bits &= 0x7f >> (uint(cur.Bits.After+7) % 8)
		default:
			t := cur.Expr.Type
			if t.Kind == ctypes.ARRAY {
				t = t.Base
			}
			fmt.Fprintf(w.w, "%c ", dataClass(t))
			w.dataItem(cur.Expr, cur.End-cur.Start)
			fmt.Fprint(w.w, ", ")
		}
		offset = end
	}
	if bits != 0 {
		fmt.Fprintf(w.w, "b %d, ", bits&0xff)
		offset++
	}
	if offset < d.Type.Size {
		fmt.Fprintf(w.w, "z %d ", d.Type.Size-offset)
	}
	fmt.Fprintln(w.w, "}")
}

// dataItem prints one scalar initializer constant expression, mirroring
// dataitem: a folded constant, a string literal (truncated/padded to
// size), the address of a global (`$g`), or a constant address plus an
// integer offset (`$g + 4`) — the only forms 6.6's restriction to address
// constants admits into a file-scope initializer.
func (w *Writer) dataItem(e *expr.Expr, size uint64) {
	switch e.Kind {
	case expr.KUnary:
		if e.Op != token.BAND || e.Base.Kind != expr.KIdent {
			cerr.Fatalf(cerr.KindType, cerr.Location{}, "initializer is not a constant expression")
		}
		if e.Base.Decl.Value.Kind != ssa.VGlobal {
			cerr.Internal(cerr.Location{}, "address-of target in initializer is not a global")
		}
		w.value(e.Base.Decl.Value)
	case expr.KBinary:
		if e.Op != token.ADD || e.L.Kind != expr.KUnary || e.R.Kind != expr.KConst {
			cerr.Fatalf(cerr.KindType, cerr.Location{}, "initializer is not a constant expression")
		}
		w.dataItem(e.L, 0)
		fmt.Fprint(w.w, " + ")
		w.dataItem(e.R, 0)
	case expr.KConst:
		if e.Type.IsFloat() {
			ch := byte('d')
			if e.Type.Size == 4 {
				ch = 's'
			}
			fmt.Fprintf(w.w, "%c_%.17g", ch, e.ConstF)
		} else {
			fmt.Fprintf(w.w, "%d", e.ConstI)
		}
	case expr.KString:
		fmt.Fprint(w.w, renderStringBody(e.StrData, int(e.Type.Base.Size), size))
	default:
		cerr.Fatalf(cerr.KindType, cerr.Location{}, "initializer is not a constant expression")
	}
}
