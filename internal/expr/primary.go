package expr

import (
	"strconv"
	"strings"

	"qcc/internal/ctypes"
	"qcc/internal/sym"
	"qcc/internal/token"
)

// PrimaryExpr parses a primary-expression, mirroring primaryexpr. _Generic
// selection (6.5.1.1) is not implemented; qcc's target programs (spec.md
// §8's scenarios) never need it, and wiring the association-list grammar
// through TypeName would be the one place expr and the declarator parser
// would need three-way mutual recursion instead of two.
func (p *Parser) PrimaryExpr(s *sym.Scope) *Expr {
	p.sync()
	tok := p.cur()
	switch tok.Kind {
	case token.IDENT:
		d, ok := s.GetDecl(tok.Lit, true)
		if !ok {
			fatalf("undeclared identifier: %s", tok.Lit)
		}
		e := mk(KIdent, d.Type, nil)
		e.Qual = d.Qual
		e.Lvalue = d.Kind == sym.DeclObject
		e.Decl = d
		if d.Kind != sym.DeclBuiltin {
			e = Decay(e)
		}
		p.next()
		return e
	case token.STRINGLIT:
		data, elemType := p.concatStrings()
		e := mk(KString, nil, nil)
		e.StrData = data
		e.Type = ctypes.MkArray(elemType, ctypes.QualNone, uint64(len(data))/elemType.Size)
		e.Lvalue = true
		return Decay(e)
	case token.CHARCONST:
		lit := tok.Lit
		t := ctypes.Int
		switch lit[0] {
		case 'u':
			t = ctypes.UShort
			lit = lit[1:]
		case 'U':
			t = ctypes.UInt
			lit = lit[1:]
		}
		chr, _ := decodeChar(lit[1 : len(lit)-1])
		e := mkConstInt(t, uint64(chr))
		p.next()
		return e
	case token.NUMBER:
		e := p.numberLit(tok.Lit)
		p.next()
		return e
	case token.LPAREN:
		p.next()
		e := p.Expr(s)
		p.sync()
		expect(p, token.RPAREN, "after expression")
		return e
	default:
		fatalf("expected primary expression")
		return nil
	}
}

// concatStrings implements adjacent string-literal concatenation
// (6.4.5p5), mirroring stringconcat restricted to plain (narrow, non-u8/
// u/U/L-prefixed) string literals — qcc's scanner does not yet
// distinguish a wide-string prefix from a following identifier token
// (internal/token's documented simplification), so wide/u16/u32 string
// literals are out of scope here too.
func (p *Parser) concatStrings() ([]byte, *ctypes.Type) {
	var b strings.Builder
	for p.cur().Kind == token.STRINGLIT {
		lit := p.cur().Lit
		b.WriteString(lit[1 : len(lit)-1])
		p.next()
	}
	raw := b.String()
	out := make([]byte, 0, len(raw)+1)
	for len(raw) > 0 {
		c, n := decodeChar(raw)
		out = append(out, byte(c))
		raw = raw[n:]
	}
	out = append(out, 0)
	return out, ctypes.Char
}

// decodeChar decodes one source character (escape sequence or a single
// byte) from the start of s, mirroring decodechar restricted to ASCII/
// single-byte source text.
func decodeChar(s string) (rune, int) {
	if s[0] != '\\' {
		return rune(s[0]), 1
	}
	if len(s) < 2 {
		fatalf("truncated escape sequence")
	}
	switch s[1] {
	case '\'', '"', '?', '\\':
		return rune(s[1]), 2
	case 'a':
		return '\a', 2
	case 'b':
		return '\b', 2
	case 'f':
		return '\f', 2
	case 'n':
		return '\n', 2
	case 'r':
		return '\r', 2
	case 't':
		return '\t', 2
	case 'v':
		return '\v', 2
	case 'x':
		i := 2
		var v rune
		for i < len(s) && isHexDigit(s[i]) {
			v = v*16 + rune(hexVal(s[i]))
			i++
		}
		return v, i
	default:
		if s[1] >= '0' && s[1] <= '7' {
			i := 1
			var v rune
			n := 0
			for i < len(s) && s[i] >= '0' && s[i] <= '7' && n < 3 {
				v = v*8 + rune(s[i]-'0')
				i++
				n++
			}
			return v, i
		}
		fatalf("invalid escape sequence")
		return 0, 0
	}
}

func isHexDigit(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F'
}

func hexVal(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	default:
		return int(c-'A') + 10
	}
}

// intSuffixTypes mirrors expr.c's inttype limits[] table: the smallest
// type (in this promotion order) the constant's value fits in, honoring
// any u/l/ll suffix as a floor.
var intSuffixTypes = []struct {
	t    *ctypes.Type
	end1 string
	end2 string
}{
	{ctypes.Int, "", ""},
	{ctypes.UInt, "u", ""},
	{ctypes.Long, "l", ""},
	{ctypes.ULong, "ul", "lu"},
	{ctypes.LLong, "ll", ""},
	{ctypes.ULLong, "ull", "llu"},
}

func intType(val uint64, decimal bool, suffix string) *ctypes.Type {
	suffix = strings.ToLower(suffix)
	i := 0
	for ; i < len(intSuffixTypes); i++ {
		if suffix == intSuffixTypes[i].end1 || (intSuffixTypes[i].end2 != "" && suffix == intSuffixTypes[i].end2) {
			break
		}
	}
	if i == len(intSuffixTypes) {
		fatalf("invalid integer constant suffix '%s'", suffix)
	}
	step := 2
	if i%2 == 1 || decimal {
		step = 2
	} else {
		step = 1
	}
	for ; i < len(intSuffixTypes); i += step {
		t := intSuffixTypes[i].t
		limit := ^uint64(0) >> (uint(8-t.Size) << 3)
		if t.IsSigned {
			limit >>= 1
		}
		if val <= limit {
			return t
		}
	}
	fatalf("no suitable type for integer constant")
	return nil
}

// numberLit parses a pp-number token's spelling into a KConst, mirroring
// primaryexpr's TNUMBER case: base detection (0x/0b/octal/decimal), then
// either strtod-style float parsing (if a '.'/exponent marker is present)
// or strtoull-style integer parsing followed by suffix-driven type
// selection.
func (p *Parser) numberLit(lit string) *Expr {
	base := 10
	if len(lit) > 1 && lit[0] == '0' {
		switch lit[1] {
		case 'x', 'X':
			base = 16
		case 'b', 'B':
			base = 2
		default:
			base = 8
		}
	}
	floatMarkers := ".eE"
	if base == 16 {
		floatMarkers = ".pP"
	}
	if strings.ContainsAny(lit, floatMarkers) {
		end := len(lit)
		for end > 0 && isFloatSuffix(lit[end-1]) {
			end--
		}
		f, err := strconv.ParseFloat(lit[:end], 64)
		if err != nil {
			fatalf("invalid floating constant '%s'", lit)
		}
		suffix := strings.ToLower(lit[end:])
		switch suffix {
		case "":
			return mkConstFloat(ctypes.Double, f)
		case "f":
			return mkConstFloat(ctypes.Float, f)
		case "l":
			return mkConstFloat(ctypes.LDouble, f)
		default:
			fatalf("invalid floating constant suffix '%s'", lit[end:])
			return nil
		}
	}
	digits := lit
	if base == 2 || base == 16 {
		digits = lit[2:]
	}
	end := len(digits)
	for end > 0 && isIntSuffix(digits[end-1]) {
		end--
	}
	v, err := strconv.ParseUint(digits[:end], base, 64)
	if err != nil {
		fatalf("invalid integer constant '%s'", lit)
	}
	t := intType(v, base == 10, digits[end:])
	return mkConstInt(t, v)
}

func isFloatSuffix(c byte) bool {
	return c == 'f' || c == 'F' || c == 'l' || c == 'L'
}

func isIntSuffix(c byte) bool {
	return c == 'u' || c == 'U' || c == 'l' || c == 'L'
}
