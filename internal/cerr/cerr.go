// Package cerr is the single diagnostic sink for qcc. Every fatal condition
// in the front end is raised as a *Diagnostic via panic; cmd/qcc recovers
// it once, prints it, and exits nonzero. There is no recovery path inside
// the compiler itself (spec: "a single fatal message with source location,
// not recovery").
package cerr

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	pkgerrors "github.com/pkg/errors"
)

// Kind classifies a Diagnostic for callers that want to react differently
// (the LSP-less CLI does not today, but tests assert on Kind).
type Kind string

const (
	KindSyntax      Kind = "syntax error"
	KindType        Kind = "type error"
	KindConstant    Kind = "constant error"
	KindLinkage     Kind = "linkage error"
	KindUnsupported Kind = "not yet supported"
	KindInternal    Kind = "internal error"
)

// Location is the minimal source position every diagnostic anchors to.
// It mirrors internal/token.Location without importing it, so cerr stays
// a leaf package with no dependents cycling back through token.
type Location struct {
	File string
	Line int
	Col  int
}

func (l Location) String() string {
	if l.File == "" {
		return "<unknown>"
	}
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Col)
}

// Diagnostic is the single error type the front end ever raises.
type Diagnostic struct {
	Kind    Kind
	Message string
	Loc     Location
	// stack is non-nil only for KindInternal, captured via github.com/pkg/errors
	// so an operator running with -trap-internal can see where an
	// invariant broke without changing the fatal single-message contract
	// for ordinary diagnostics.
	stack error
}

func (d *Diagnostic) Error() string {
	return fmt.Sprintf("%s: %s: %s", d.Loc, d.Kind, d.Message)
}

// StackTrace renders the captured internal-error stack, or "" if none was
// captured (i.e. this is not a KindInternal diagnostic).
func (d *Diagnostic) StackTrace() string {
	if d.stack == nil {
		return ""
	}
	return fmt.Sprintf("%+v", d.stack)
}

// Fatalf raises a diagnostic of the given kind at loc and panics with it.
// Every call site in the front end funnels through here (or Internal).
func Fatalf(kind Kind, loc Location, format string, args ...interface{}) {
	panic(&Diagnostic{Kind: kind, Message: fmt.Sprintf(format, args...), Loc: loc})
}

// Internal raises a KindInternal diagnostic for an invariant violation
// that should never happen given a well-formed token stream. It captures
// a stack trace via github.com/pkg/errors since internal errors are the
// one class of diagnostic a maintainer needs to actually debug, not just
// report to the user.
func Internal(loc Location, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	panic(&Diagnostic{
		Kind:    KindInternal,
		Message: msg,
		Loc:     loc,
		stack:   pkgerrors.New(msg),
	})
}

// TrapInternal, when set by the -trap-internal driver flag, makes Guard
// print the captured stack trace for KindInternal diagnostics.
var TrapInternal bool

// Guard must be deferred directly (`defer cerr.Guard()`) at the top of
// main, with no wrapping closure — recover only stops a panic when called
// by the function that was itself passed to defer. It prints the single
// fatal diagnostic to stderr, colorized when stderr is a terminal (per
// go-isatty), and exits with status 1. Any non-Diagnostic panic value is
// re-raised so it surfaces as a real crash, not a swallowed bug.
func Guard() {
	r := recover()
	if r == nil {
		return
	}
	d, ok := r.(*Diagnostic)
	if !ok {
		panic(r)
	}
	if TrapInternal && d.Kind == KindInternal {
		if trace := d.StackTrace(); trace != "" {
			fmt.Fprintln(os.Stderr, trace)
		}
	}
	if isatty.IsTerminal(os.Stderr.Fd()) {
		fmt.Fprintf(os.Stderr, "\x1b[1;31mqcc: %s\x1b[0m\n", d.Error())
	} else {
		fmt.Fprintf(os.Stderr, "qcc: %s\n", d.Error())
	}
	os.Exit(1)
}
