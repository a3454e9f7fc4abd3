package token

// Kind enumerates every token the front end recognizes, mirroring
// original_source/cc.h's enum tokenkind. qcc keeps this as a plain int
// enum (rather than the string-typed TokenType the teacher scripting
// language uses) because Kind doubles as an index into the keyword and
// punctuator description tables below and is switched on pervasively
// through the parser — an int compares and jump-tables more cheaply than
// a string compare at every dispatch point.
type Kind int

const (
	NONE Kind = iota

	EOF

	IDENT
	NUMBER
	CHARCONST
	STRINGLIT

	// keywords
	AUTO
	BREAK
	CASE
	CHAR
	CONST
	CONTINUE
	DEFAULT
	DO
	DOUBLE
	ELSE
	ENUM
	EXTERN
	FLOAT
	FOR
	GOTO
	IF
	INLINE
	INT
	LONG
	REGISTER
	RESTRICT
	RETURN
	SHORT
	SIGNED
	SIZEOF
	STATIC
	STRUCT
	SWITCH
	TYPEDEF
	UNION
	UNSIGNED
	VOID
	VOLATILE
	WHILE
	ALIGNAS
	ALIGNOF
	ATOMIC
	BOOL
	COMPLEX
	GENERIC
	IMAGINARY
	NORETURN
	STATIC_ASSERT
	THREAD_LOCAL
	TYPEOF

	// punctuators
	LBRACK
	RBRACK
	LPAREN
	RPAREN
	LBRACE
	RBRACE
	PERIOD
	ARROW
	INC
	DEC
	BAND
	MUL
	ADD
	SUB
	BNOT
	LNOT
	DIV
	MOD
	SHL
	SHR
	LESS
	GREATER
	LEQ
	GEQ
	EQL
	NEQ
	XOR
	BOR
	LAND
	LOR
	QUESTION
	COLON
	SEMICOLON
	ELLIPSIS
	ASSIGN
	MULASSIGN
	DIVASSIGN
	MODASSIGN
	ADDASSIGN
	SUBASSIGN
	SHLASSIGN
	SHRASSIGN
	BANDASSIGN
	XORASSIGN
	BORASSIGN
	COMMA
)

var kindNames = map[Kind]string{
	EOF: "end of file",

	IDENT: "identifier", NUMBER: "number", CHARCONST: "character constant", STRINGLIT: "string literal",

	AUTO: "auto", BREAK: "break", CASE: "case", CHAR: "char", CONST: "const",
	CONTINUE: "continue", DEFAULT: "default", DO: "do", DOUBLE: "double",
	ELSE: "else", ENUM: "enum", EXTERN: "extern", FLOAT: "float", FOR: "for",
	GOTO: "goto", IF: "if", INLINE: "inline", INT: "int", LONG: "long",
	REGISTER: "register", RESTRICT: "restrict", RETURN: "return", SHORT: "short",
	SIGNED: "signed", SIZEOF: "sizeof", STATIC: "static", STRUCT: "struct",
	SWITCH: "switch", TYPEDEF: "typedef", UNION: "union", UNSIGNED: "unsigned",
	VOID: "void", VOLATILE: "volatile", WHILE: "while",
	ALIGNAS: "_Alignas", ALIGNOF: "_Alignof", ATOMIC: "_Atomic", BOOL: "_Bool",
	COMPLEX: "_Complex", GENERIC: "_Generic", IMAGINARY: "_Imaginary",
	NORETURN: "_Noreturn", STATIC_ASSERT: "_Static_assert", THREAD_LOCAL: "_Thread_local",
	TYPEOF: "typeof",

	LBRACK: "[", RBRACK: "]", LPAREN: "(", RPAREN: ")", LBRACE: "{", RBRACE: "}",
	PERIOD: ".", ARROW: "->", INC: "++", DEC: "--", BAND: "&", MUL: "*",
	ADD: "+", SUB: "-", BNOT: "~", LNOT: "!", DIV: "/", MOD: "%",
	SHL: "<<", SHR: ">>", LESS: "<", GREATER: ">", LEQ: "<=", GEQ: ">=",
	EQL: "==", NEQ: "!=", XOR: "^", BOR: "|", LAND: "&&", LOR: "||",
	QUESTION: "?", COLON: ":", SEMICOLON: ";", ELLIPSIS: "...", ASSIGN: "=",
	MULASSIGN: "*=", DIVASSIGN: "/=", MODASSIGN: "%=", ADDASSIGN: "+=",
	SUBASSIGN: "-=", SHLASSIGN: "<<=", SHRASSIGN: ">>=", BANDASSIGN: "&=",
	XORASSIGN: "^=", BORASSIGN: "|=", COMMA: ",",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "?"
}

// Keywords maps the spelling of each reserved word to its Kind, used by
// the scanner to reclassify an IDENT after scanning its spelling.
var Keywords = map[string]Kind{
	"auto": AUTO, "break": BREAK, "case": CASE, "char": CHAR, "const": CONST,
	"continue": CONTINUE, "default": DEFAULT, "do": DO, "double": DOUBLE,
	"else": ELSE, "enum": ENUM, "extern": EXTERN, "float": FLOAT, "for": FOR,
	"goto": GOTO, "if": IF, "inline": INLINE, "int": INT, "long": LONG,
	"register": REGISTER, "restrict": RESTRICT, "return": RETURN, "short": SHORT,
	"signed": SIGNED, "sizeof": SIZEOF, "static": STATIC, "struct": STRUCT,
	"switch": SWITCH, "typedef": TYPEDEF, "union": UNION, "unsigned": UNSIGNED,
	"void": VOID, "volatile": VOLATILE, "while": WHILE,
	"_Alignas": ALIGNAS, "_Alignof": ALIGNOF, "_Atomic": ATOMIC, "_Bool": BOOL,
	"_Complex": COMPLEX, "_Generic": GENERIC, "_Imaginary": IMAGINARY,
	"_Noreturn": NORETURN, "_Static_assert": STATIC_ASSERT, "_Thread_local": THREAD_LOCAL,
	"typeof": TYPEOF, "__typeof__": TYPEOF,
}
