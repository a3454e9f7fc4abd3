package token

// Stream is the narrow interface the parser uses to pull tokens from an
// upstream producer. Per spec, the lexical/preprocessing scanner is an
// external collaborator; the parser only ever talks to this interface, so
// a real implementation (this package's Scanner, or an actual cpp-backed
// one spawned by internal/driver) is interchangeable with a test double
// that replays a canned token slice.
type Stream interface {
	// Cur returns the current lookahead token without consuming it.
	Cur() Token
	// Next advances past the current token.
	Next()
	// Peek reports whether the token after the current one has kind k.
	// On a match both the current token and the matched lookahead are
	// consumed, leaving Cur positioned just past the match; on a miss
	// the current token is left untouched (matches cproc's peek, a
	// one-token-ahead test-and-advance used by gotolabel to recognize
	// "ident :" without a second lookahead slot in the parser itself).
	Peek(k Kind) bool
	// Expect requires the current token to have kind k, consumes it, and
	// returns its literal spelling; otherwise it raises a fatal
	// diagnostic naming where via cerr.
	Expect(k Kind, where string) string
	// Consume is a non-fatal test-and-advance.
	Consume(k Kind) bool
}
