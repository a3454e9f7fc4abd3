package ctypes

// rank orders integer types for the usual arithmetic conversions,
// mirroring cproc's typerank (type.c).
func rank(t *Type) int {
	if t.Kind == ENUM {
		t = t.Base
	}
	switch t.Basic {
	case BoolKind:
		return 1
	case CharKind:
		return 2
	case ShortKind:
		return 3
	case IntKind:
		return 4
	case LongKind:
		return 5
	case LLongKind:
		return 6
	}
	return 0
}

// Compatible implements spec.md §4.1's compatible(t1, t2): same kind is
// required, except an enum is compatible with exactly its integer base
// (but not with another enum sharing that base).
func Compatible(t1, t2 *Type) bool {
	if t1 == t2 {
		return true
	}
	if t1.Kind != t2.Kind {
		return t1.Kind == ENUM && t2 == t1.Base || t2.Kind == ENUM && t1 == t2.Base
	}
	switch t1.Kind {
	case VOID:
		return true
	case POINTER:
		return t1.Qual == t2.Qual && Compatible(t1.Base, t2.Base)
	case ARRAY:
		if !t1.Incomplete && !t2.Incomplete && t1.Length != t2.Length {
			return false
		}
		return t1.Qual == t2.Qual && Compatible(t1.Base, t2.Base)
	case FUNC:
		if t1.IsVararg != t2.IsVararg {
			return false
		}
		p1, p2 := t1.Params, t2.Params
		for p1 != nil && p2 != nil {
			if !Compatible(p1.Type, p2.Type) {
				return false
			}
			p1, p2 = p1.Next, p2.Next
		}
		if p1 != nil || p2 != nil {
			return false
		}
		return Compatible(t1.Base, t2.Base)
	case STRUCT, UNION:
		// Freshly allocated aggregate types are never deduplicated
		// (spec.md §3), so two distinct struct/union types are
		// compatible only by identity, already handled above.
		return false
	case BASIC:
		return t1.Basic == t2.Basic && t1.IsSigned == t2.IsSigned
	}
	return false
}

// Composite implements spec.md §4.1's composite(t1, t2): for now returns
// t1 when compatible, matching cproc's typecomposite (explicitly a stub
// there too — "/* XXX: implement 6.2.7 */"). A more faithful
// implementation would merge function prototype information and
// completeness across redeclarations; see DESIGN.md's Open Question
// resolution for why qcc keeps the stub rather than inventing 6.2.7
// merge rules the teacher/pack give no grounding for.
func Composite(t1, t2 *Type) *Type {
	if !Compatible(t1, t2) {
		return nil
	}
	return t1
}

// Promote implements spec.md §4.1's promote(t, widthBits): float widens
// to double; an integer of rank <= int promotes to int if it fits
// signed, else unsigned int. widthBits == -1 means "use t's own declared
// width" (the non-bit-field case); a bit-field passes its declared width
// explicitly so a 3-bit field promotes based on 3 bits, not its storage
// unit's full size.
func Promote(t *Type, widthBits int) *Type {
	if t == Float {
		return Double
	}
	if !t.IsInt() {
		return t
	}
	w := widthBits
	if w == -1 {
		w = int(t.Size) * 8
	}
	if rank(t) > rank(Int) && w > int(Int.Size)*8 {
		return t
	}
	signBit := 0
	if t.IsSigned {
		signBit = 1
	}
	if w-signBit < int(Int.Size)*8 {
		return Int
	}
	return UInt
}

// CommonReal implements spec.md §4.1's commonreal(t1, w1, t2, w2): the
// usual arithmetic conversions for two arithmetic operands, each with its
// own bit-field width override (w=-1 when not a bit-field).
func CommonReal(t1 *Type, w1 int, t2 *Type, w2 int) *Type {
	if t1 == LDouble || t2 == LDouble {
		return LDouble
	}
	if t1 == Double || t2 == Double {
		return Double
	}
	if t1 == Float || t2 == Float {
		return Float
	}
	p1 := Promote(t1, w1)
	p2 := Promote(t2, w2)
	if p1 == p2 {
		return p1
	}
	if p1.IsSigned == p2.IsSigned {
		if rank(p1) > rank(p2) {
			return p1
		}
		return p2
	}
	// p1 becomes the unsigned one, p2 the signed one
	if p1.IsSigned {
		p1, p2 = p2, p1
	}
	if rank(p1) >= rank(p2) {
		return p1
	}
	if p1.Size < p2.Size {
		return p2
	}
	if p2 == Long {
		return ULong
	}
	if p2 == LLong {
		return ULLong
	}
	return p2
}

// Member implements spec.md §4.1's member(structOrUnion, name): recursive
// descent into anonymous sub-aggregates, accumulating byte offsets;
// returns the first match in preorder.
func Member(t *Type, name string) (*Member, uint64) {
	for m := t.Members; m != nil; m = m.Next {
		if m.Name != "" {
			if m.Name == name {
				return m, m.Offset
			}
			continue
		}
		if sub, off := Member(m.Type, name); sub != nil {
			return sub, m.Offset + off
		}
	}
	return nil, 0
}

// Adjust implements spec.md §4.1's adjust(t, qual): arrays decay to
// pointers with the array's element qualifiers merged with the incoming
// pointer qualifier set; functions decay to pointer-to-function. Mirrors
// cproc's typeadjust (C11 6.7.6.3p7), used for parameter types.
func Adjust(t *Type, qual Qual) (*Type, Qual) {
	switch t.Kind {
	case ARRAY:
		return MkPointer(t.Base, qual|t.Qual), QualNone
	case FUNC:
		return MkPointer(t, QualNone), qual
	}
	return t, qual
}
