// Package initelab elaborates a brace-initializer (C11 6.7.9) into a flat,
// position-sorted list of scalar assignments against an object's storage,
// grounded on original_source/init.c's parseinit and its supporting
// initparser/object machinery.
package initelab

import (
	"qcc/internal/cerr"
	"qcc/internal/ctypes"
	"qcc/internal/expr"
	"qcc/internal/sym"
	"qcc/internal/token"
)

// Init is one flattened scalar initializer: assign Expr to the byte range
// [Start, End) of the initialized object, honoring Bits when the target is
// a bit-field. Mirrors struct init.
type Init struct {
	Start, End uint64
	Bits       ctypes.Bitfield
	Expr       *expr.Expr
	Next       *Init
}

func mkInit(start, end uint64, bits ctypes.Bitfield, e *expr.Expr) *Init {
	return &Init{Start: start, End: end, Bits: bits, Expr: e}
}

// object is one level of the initializer cursor stack, mirroring struct
// object; mem is set when the enclosing type is a struct/union, idx when
// it is an array.
type object struct {
	offset uint64
	typ    *ctypes.Type
	mem    *ctypes.Member
	idx    uint64
	isCur  bool
}

// Parser elaborates initializers against a shared token stream, delegating
// expression parsing to an *expr.Parser over the same stream. Unlike
// initparser's fixed 32-entry object array (a "TODO: keep track of type
// depth" workaround noted in the original), Parser grows its cursor stack
// on demand; Go's slices make the fixed-depth guess unnecessary.
type Parser struct {
	ts token.Stream
	ep *expr.Parser

	objs []object
	cur  int // index into objs; -1 denotes the NULL cursor
	sub  int

	head *Init
}

// NewParser builds a Parser over ts, delegating expression parsing to ep.
// ts and ep must share the same underlying token stream.
func NewParser(ts token.Stream, ep *expr.Parser) *Parser {
	return &Parser{ts: ts, ep: ep}
}

var curLoc token.Location

func (p *Parser) sync() { curLoc = p.ts.Cur().Loc }

func fatalf(format string, args ...interface{}) {
	cerr.Fatalf(cerr.KindSyntax, cerr.Location(curLoc), format, args...)
}

func bitEnd(i *Init) uint64   { return i.End*8 - uint64(i.Bits.After) }
func bitStart(i *Init) uint64 { return i.Start*8 + uint64(i.Bits.Before) }

// add inserts n into the sorted, non-overlapping initializer list,
// discarding any earlier initializer n fully covers, mirroring initadd.
func (p *Parser) add(n *Init) {
	pp := &p.head
	for *pp != nil {
		old := *pp
		switch {
		case bitEnd(old) <= bitStart(n):
			pp = &old.Next
		case bitEnd(n) <= bitStart(old):
			n.Next = old
			*pp = n
			return
		case bitEnd(old) <= bitEnd(n):
			rest := old.Next
			for rest != nil && bitEnd(rest) <= bitEnd(n) {
				rest = rest.Next
			}
			n.Next = rest
			*pp = n
			return
		default:
			pp = &old.Next
		}
	}
	n.Next = nil
	*pp = n
}

func updateArray(t *ctypes.Type, idx uint64) {
	if !t.Incomplete {
		return
	}
	if n := idx + 1; n > t.Length {
		t.Length = n
		t.Size = n * t.Base.Size
	}
}

// subobj pushes a new cursor level of type t at offset off (relative to
// the current sub-object), mirroring subobj.
func (p *Parser) subobj(t *ctypes.Type, off uint64) {
	off += p.objs[p.sub].offset
	p.sub++
	if p.sub == len(p.objs) {
		p.objs = append(p.objs, object{})
	}
	p.objs[p.sub] = object{typ: t, offset: off}
}

// findMember searches the current sub-object's members (recursing into
// anonymous sub-aggregates) for name, pushing a cursor level on success,
// mirroring findmember.
func (p *Parser) findMember(name string) bool {
	t := p.objs[p.sub].typ
	for m := t.Members; m != nil; m = m.Next {
		if m.Name != "" {
			if m.Name == name {
				p.objs[p.sub].mem = m
				p.subobj(m.Type, m.Offset)
				return true
			}
			continue
		}
		p.subobj(m.Type, m.Offset)
		if p.findMember(name) {
			return true
		}
		p.sub--
	}
	return false
}

// designator parses a sequence of [index]/.member designators and the
// trailing '=', repositioning the cursor at each step, mirroring
// designator.
func (p *Parser) designator(s *sym.Scope) {
	p.sub = p.cur
	for {
		t := p.objs[p.sub].typ
		switch p.ts.Cur().Kind {
		case token.LBRACK:
			if t.Kind != ctypes.ARRAY {
				p.sync()
				fatalf("index designator is only valid for array types")
			}
			p.ts.Next()
			idx := p.ep.IntConstExpr(s, false)
			p.objs[p.sub].idx = idx
			if t.Incomplete {
				updateArray(t, idx)
			} else if idx >= t.Length {
				p.sync()
				fatalf("index designator is larger than array length")
			}
			p.sync()
			p.ts.Expect(token.RBRACK, "for index designator")
			p.subobj(t.Base, idx*t.Base.Size)
		case token.PERIOD:
			if t.Kind != ctypes.STRUCT && t.Kind != ctypes.UNION {
				p.sync()
				fatalf("member designator only valid for struct/union types")
			}
			p.ts.Next()
			p.sync()
			name := p.ts.Expect(token.IDENT, "for member designator")
			if !p.findMember(name) {
				kind := "struct"
				if t.Kind == ctypes.UNION {
					kind = "union"
				}
				fatalf("%s has no member named '%s'", kind, name)
			}
		default:
			p.sync()
			p.ts.Expect(token.ASSIGN, "after designator")
			return
		}
	}
}

// focus descends the cursor into the first sub-object of the current
// level (array element 0, or a struct/union's first member), mirroring
// focus.
func (p *Parser) focus() {
	o := &p.objs[p.sub]
	var t *ctypes.Type
	switch o.typ.Kind {
	case ctypes.ARRAY:
		o.idx = 0
		if o.typ.Incomplete {
			updateArray(o.typ, 0)
		}
		t = o.typ.Base
	case ctypes.STRUCT, ctypes.UNION:
		o.mem = o.typ.Members
		t = o.mem.Type
	default:
		fatalf("internal error: initializer cursor has unexpected type")
		return
	}
	p.subobj(t, 0)
}

// advance pops the cursor back to the nearest enclosing array or struct
// level with a next element, and descends into it, mirroring advance.
// Note unions have no "next member" to advance into: once a union's
// active member is initialized, advancing past it always pops further.
func (p *Parser) advance() {
	for {
		p.sub--
		o := &p.objs[p.sub]
		switch o.typ.Kind {
		case ctypes.ARRAY:
			o.idx++
			if o.typ.Incomplete {
				updateArray(o.typ, o.idx)
			}
			if o.idx < o.typ.Length {
				p.subobj(o.typ.Base, o.typ.Base.Size*o.idx)
				return
			}
		case ctypes.STRUCT:
			o.mem = o.mem.Next
			if o.mem != nil {
				p.subobj(o.mem.Type, o.mem.Offset)
				return
			}
		}
		if p.sub == p.cur {
			p.sync()
			fatalf("too many initializers for type")
		}
	}
}

// addCurrent records the just-parsed expression e as the initializer for
// the current sub-object, mirroring the "add:" label of parseinit.
func (p *Parser) addCurrent(e *expr.Expr) {
	var bits ctypes.Bitfield
	if p.sub > 0 {
		if pt := p.objs[p.sub-1].typ; pt.Kind == ctypes.STRUCT || pt.Kind == ctypes.UNION {
			bits = p.objs[p.sub-1].mem.Bits
		}
	}
	o := p.objs[p.sub]
	p.add(mkInit(o.offset, o.offset+o.typ.Size, bits, e))
}

// finalize advances past a just-completed element, popping closed brace
// levels and checking for a separating comma, mirroring the "next:" label
// of parseinit. It returns (list, true) once the whole initializer has
// been consumed, or (nil, false) when the caller should parse another
// element.
func (p *Parser) finalize() (*Init, bool) {
	for {
		if p.objs[p.sub].typ.Incomplete {
			p.objs[p.sub].typ.Incomplete = false
		}
		if p.cur < 0 {
			return p.head, true
		}
		if p.ts.Cur().Kind == token.COMMA {
			p.ts.Next()
			if p.ts.Cur().Kind != token.RBRACE {
				return nil, false
			}
		} else if p.ts.Cur().Kind != token.RBRACE {
			p.sync()
			fatalf("expected ',' or '}' after initializer")
		}
		p.ts.Next()
		p.sub = p.cur
		for {
			if p.cur == 0 {
				p.cur = -1
			} else {
				p.cur--
			}
			if p.cur < 0 || p.objs[p.cur].isCur {
				break
			}
		}
	}
}

// Parse elaborates a brace-initializer for an object of type t, mirroring
// parseinit (6.7.9). s resolves identifiers in constant designator and
// initializer-value expressions.
func (p *Parser) Parse(s *sym.Scope, t *ctypes.Type) *Init {
	p.objs = []object{{typ: t}}
	p.cur = -1
	p.sub = 0
	p.head = nil
	if t.Incomplete && t.Kind != ctypes.ARRAY {
		p.sync()
		fatalf("initializer specified for incomplete type")
	}
outer:
	for {
		if p.cur >= 0 {
			switch p.ts.Cur().Kind {
			case token.LBRACK, token.PERIOD:
				p.designator(s)
			default:
				if p.sub != p.cur {
					p.advance()
				} else if o := p.objs[p.cur].typ; o.Kind == ctypes.STRUCT || o.Kind == ctypes.UNION {
					p.focus()
				}
			}
		}
		if p.ts.Consume(token.LBRACE) {
			if p.ts.Consume(token.RBRACE) {
				if p.objs[p.sub].typ.Incomplete {
					p.sync()
					fatalf("array of unknown size has empty initializer")
				}
				if init, done := p.finalize(); done {
					return init
				}
				continue outer
			}
			if p.cur == p.sub {
				if p.objs[p.cur].typ.IsScalar() {
					p.sync()
					fatalf("nested braces around scalar initializer")
				}
				// The top-of-loop dispatch above already focuses into the
				// first member whenever the cursor sits on a struct/union,
				// so reaching here with p.cur == p.sub means an array.
				p.focus()
			}
			p.cur = p.sub
			p.objs[p.cur].isCur = true
			continue outer
		}

		p.sync()
		e := p.ep.AssignExpr(s)
	coerce:
		for {
			ot := p.objs[p.sub].typ
			switch ot.Kind {
			case ctypes.ARRAY:
				if e.Decayed && e.Base != nil && e.Base.Kind == expr.KString && ot.Base.IsInt() {
					base := ot.Base
					str := e.Base
					elemT := str.Type.Base
					if !(base.IsChar() && elemT.IsChar()) && !ctypes.Compatible(base, elemT) {
						fatalf("cannot initialize array with string literal of different width")
					}
					if ot.Incomplete {
						updateArray(ot, uint64(len(str.StrData))-1)
					}
					e = str
					break coerce
				}
			case ctypes.STRUCT, ctypes.UNION:
				if ctypes.Compatible(e.Type, ot) {
					break coerce
				}
			default:
				if !ot.IsScalar() {
					fatalf("internal error: unexpected initializer target type")
				}
				e = expr.ExprAssign(e, ot)
				break coerce
			}
			p.focus()
		}
		p.addCurrent(e)
		if init, done := p.finalize(); done {
			return init
		}
	}
}
