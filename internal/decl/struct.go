package decl

import (
	"qcc/internal/ctypes"
	"qcc/internal/expr"
	"qcc/internal/sym"
	"qcc/internal/token"
)

// StructBuilder accumulates members into a struct/union type as its body
// is parsed, tracking the running size/alignment and the current
// bit-field storage unit, mirroring the layout bookkeeping decl.c keeps
// as local variables inside tagspec's struct/union branch.
type StructBuilder struct {
	t *ctypes.Type

	bitOffset uint64 // bit offset of the next bit-field within t.Size
	unitBits  int     // width of the storage unit the current bit-field run packs into
	tail      *ctypes.Member
}

func newStructBuilder(t *ctypes.Type) *StructBuilder {
	return &StructBuilder{t: t}
}

// addMember appends one named or anonymous member, folding in bit-field
// packing when width >= 0, mirroring addmember(). Plain (non-bitfield)
// members always start a fresh storage unit at the next aligned offset;
// a bit-field either extends the current storage unit (when it still has
// room) or starts a new one sized to mt's own representation.
func (b *StructBuilder) addMember(p *Parser, name string, mt QualType, width int) {
	t := b.t
	union := t.Kind == ctypes.UNION
	if width < 0 {
		var off uint64
		if union {
			if mt.Type.Size > t.Size {
				t.Size = mt.Type.Size
			}
		} else {
			off = alignUp(t.Size, uint64(mt.Type.Align))
			t.Size = off + mt.Type.Size
		}
		m := &ctypes.Member{Name: name, Type: mt.Type, Qual: mt.Qual, Offset: off}
		b.append(m)
		if mt.Type.Align > t.Align {
			t.Align = mt.Type.Align
		}
		b.unitBits = 0
		return
	}
	if !mt.Type.IsInt() {
		p.fatalf("bit-field must have integer type")
	}
	unitBits := int(mt.Type.Size) * 8
	if width > unitBits {
		p.fatalf("bit-field width exceeds width of its type")
	}
	if union {
		// every bit-field in a union starts its own storage unit at
		// offset 0; runs never pack across members.
		if mt.Type.Align > t.Align {
			t.Align = mt.Type.Align
		}
		if mt.Type.Size > t.Size {
			t.Size = mt.Type.Size
		}
		b.unitBits = 0
		if width == 0 {
			return
		}
		m := &ctypes.Member{
			Name: name, Type: mt.Type, Qual: mt.Qual, Offset: 0,
			IsBitfield: true,
			Bits:       ctypes.Bitfield{Before: 0, After: int16(unitBits - width)},
		}
		b.append(m)
		return
	}
	if b.unitBits == 0 || b.unitBits != unitBits || int(b.bitOffset)+width > unitBits {
		off := alignUp(t.Size, uint64(mt.Type.Align))
		b.bitOffset = 0
		b.unitBits = unitBits
		if mt.Type.Align > t.Align {
			t.Align = mt.Type.Align
		}
		if width == 0 {
			// an anonymous zero-width bit-field only forces the next
			// field to start a fresh storage unit; it names no member.
			b.unitBits = 0
			return
		}
		t.Size = off + mt.Type.Size
		m := &ctypes.Member{
			Name: name, Type: mt.Type, Qual: mt.Qual, Offset: off,
			IsBitfield: true,
			Bits:       ctypes.Bitfield{Before: 0, After: int16(unitBits - width)},
		}
		b.append(m)
		b.bitOffset = uint64(width)
		return
	}
	if width == 0 {
		b.unitBits = 0
		return
	}
	off := t.Size - mt.Type.Size
	m := &ctypes.Member{
		Name: name, Type: mt.Type, Qual: mt.Qual, Offset: off,
		IsBitfield: true,
		Bits:       ctypes.Bitfield{Before: int16(b.bitOffset), After: int16(unitBits - width - int(b.bitOffset))},
	}
	b.append(m)
	b.bitOffset += uint64(width)
}

func (b *StructBuilder) append(m *ctypes.Member) {
	if b.t.Members == nil {
		b.t.Members = m
	} else {
		b.tail.Next = m
	}
	b.tail = m
}

// structDecl parses one struct-declaration (a declspec-qualified list of
// declarators, each possibly followed by a bit-field width), including
// the anonymous-struct/union-member extension (6.7.2.1p13: a member with
// no declarator at all, itself a struct/union type, splices its own
// members in directly), mirroring structdecl().
func (p *Parser) structDecl(s *sym.Scope, b *StructBuilder) {
	if p.staticAssert(s) {
		return
	}
	qt := p.declSpecs(s, nil, nil, nil)
	if qt.Type == nil {
		p.fatalf("expected declaration specifiers in struct/union member")
	}
	if p.cur().Kind == token.SEMICOLON && (qt.Type.Kind == ctypes.STRUCT || qt.Type.Kind == ctypes.UNION) {
		// anonymous member: splice the nested aggregate's members in at
		// their own (adjusted) offsets rather than naming one member.
		var base uint64
		if b.t.Kind == ctypes.UNION {
			if qt.Type.Size > b.t.Size {
				b.t.Size = qt.Type.Size
			}
		} else {
			base = alignUp(b.t.Size, uint64(qt.Type.Align))
			b.t.Size = base + qt.Type.Size
		}
		for m := qt.Type.Members; m != nil; m = m.Next {
			nm := *m
			nm.Offset += base
			nm.Next = nil
			b.append(&nm)
		}
		if qt.Type.Align > b.t.Align {
			b.t.Align = qt.Type.Align
		}
		b.unitBits = 0
		p.next()
		return
	}
	for {
		var name string
		mt := qt
		if p.cur().Kind != token.COLON {
			result := p.declarator(s, qt, &name, false)
			mt = result
		}
		width := -1
		if p.ts.Consume(token.COLON) {
			width = int(p.Expr.IntConstExpr(s, false))
		}
		p.skipAttributes()
		if mt.Type.Incomplete && width < 0 {
			p.fatalf("member '%s' has incomplete type", name)
		}
		b.addMember(p, name, mt, width)
		if !p.ts.Consume(token.COMMA) {
			break
		}
	}
	p.expect(token.SEMICOLON, "after struct/union member declarator")
}

// staticAssert recognizes and checks a _Static_assert declaration,
// reporting whether one was present, mirroring staticassert().
func (p *Parser) staticAssert(s *sym.Scope) bool {
	if p.cur().Kind != token.STATIC_ASSERT {
		return false
	}
	p.next()
	p.expect(token.LPAREN, "after '_Static_assert'")
	cond := p.Expr.IntConstExpr(s, true)
	var msg string
	if p.ts.Consume(token.COMMA) {
		msg = p.expect(token.STRINGLIT, "as '_Static_assert' message")
	}
	p.expect(token.RPAREN, "to close '_Static_assert'")
	p.expect(token.SEMICOLON, "after '_Static_assert'")
	if cond == 0 {
		if msg != "" {
			p.fatalf("static assertion failed: %s", msg)
		}
		p.fatalf("static assertion failed")
	}
	return true
}

// tagSpec parses a struct-or-union-specifier or enum-specifier (6.7.2.1,
// 6.7.2.2), mirroring tagspec(). A tag with no body is a forward
// reference or use of a previously-completed type; a tag with a body
// installs (or completes) the type under that tag in s.
func (p *Parser) tagSpec(s *sym.Scope) *ctypes.Type {
	kind := p.cur().Kind
	p.next()
	p.skipAttributes()

	var tag string
	if p.cur().Kind == token.IDENT {
		tag = p.cur().Lit
		p.next()
	}

	var t *ctypes.Type
	var ok bool
	if tag != "" {
		t, ok = s.GetTag(tag, false)
		if !ok && s.Parent != nil && p.cur().Kind != token.LBRACE &&
			(kind == token.ENUM || p.cur().Kind != token.SEMICOLON) {
			t, ok = s.Parent.GetTag(tag, true)
		}
		if ok {
			switch {
			case kind == token.STRUCT && t.Kind != ctypes.STRUCT,
				kind == token.UNION && t.Kind != ctypes.UNION,
				kind == token.ENUM && t.Kind != ctypes.ENUM:
				p.fatalf("'%s' redeclared as a different kind of tag", tag)
			}
		}
	} else if p.cur().Kind != token.LBRACE {
		p.fatalf("expected identifier or '{' after '%s'", kind)
	}

	if t == nil {
		switch kind {
		case token.STRUCT:
			t = ctypes.MkStruct(tag)
		case token.UNION:
			t = ctypes.MkUnion(tag)
		case token.ENUM:
			t = ctypes.MkEnum(tag, ctypes.Int)
		}
		if tag != "" {
			s.PutTag(tag, t)
		}
	}

	if p.cur().Kind != token.LBRACE {
		return t
	}
	p.next()

	if !t.Incomplete {
		p.fatalf("redefinition of tag '%s'", tag)
	}

	if kind == token.ENUM {
		p.enumBody(s, t)
		return t
	}

	b := newStructBuilder(t)
	for p.cur().Kind != token.RBRACE {
		p.structDecl(s, b)
	}
	p.next()
	if t.Members == nil {
		p.fatalf("struct/union has no members")
	}
	t.Size = alignUp(t.Size, uint64(t.Align))
	t.Incomplete = false
	return t
}

// enumBody parses the body of an enum-specifier, tracking the exact
// enumerator-value overflow and int/unsigned-int widening rules of
// 6.7.2.2p3-4: an explicit value that needs more than 32 bits to
// represent is an error, and the enum's underlying type widens from int
// to unsigned int the first time a value in [2^31, 2^32) is seen (and it
// is itself an error for some other enumerator to then require a signed
// representation), mirroring tagspec()'s enum branch directly, including
// its reliance on uint64 wraparound to match the original's unsigned
// long long arithmetic.
func (p *Parser) enumBody(s *sym.Scope, t *ctypes.Type) {
	const signBit63 = uint64(1) << 63
	const negativeInt32Floor = ^uint64(0) << 31 // 0xFFFFFFFF80000000: -2^31 as uint64

	large := false
	signed := false
	var i uint64
	for p.cur().Kind == token.IDENT {
		name := p.cur().Lit
		p.next()
		p.skipAttributes()
		if p.ts.Consume(token.ASSIGN) {
			e := p.Expr.ConstExpr(s)
			if e.Kind != expr.KConst || !e.Type.IsInt() {
				p.fatalf("expected integer constant expression")
			}
			i = e.ConstI
			if e.Type.IsSigned && i >= signBit63 {
				if i < negativeInt32Floor {
					p.fatalf("enumerator '%s' value cannot be represented as 'int' or 'unsigned int'", name)
				}
				signed = true
			} else if i >= uint64(1)<<32 {
				p.fatalf("enumerator '%s' value cannot be represented as 'int' or 'unsigned int'", name)
			}
		} else if i == uint64(1)<<32 {
			p.fatalf("enumerator '%s' value cannot be represented as 'int' or 'unsigned int'", name)
		}

		d := sym.MkDecl(sym.DeclConst, ctypes.Int, ctypes.QualNone, sym.LinkNone)
		d.IntConst = i
		if i >= uint64(1)<<31 && i < signBit63 {
			large = true
			d.Type = ctypes.UInt
		}
		if large && signed {
			p.fatalf("neither 'int' nor 'unsigned int' can represent all enumerator values")
		}
		s.PutDecl(name, d)
		i++
		if !p.ts.Consume(token.COMMA) {
			break
		}
	}
	p.expect(token.RBRACE, "to close enum specifier")
	if large {
		t.Base, t.Size, t.Align, t.IsSigned = ctypes.UInt, ctypes.UInt.Size, ctypes.UInt.Align, false
	}
	t.Incomplete = false
}
