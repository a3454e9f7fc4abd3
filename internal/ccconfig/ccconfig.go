// Package ccconfig parses qcc's command-line surface into a Config the
// driver and front end can consult without touching flag or os.Args
// themselves, grounded on original_source/main.c's ARGBEGIN/ARGEND
// option loop (-E, -o) plus the command-alias/flag-normalization
// conventions cmd/sentra/main.go uses ahead of its own flag handling.
package ccconfig

import (
	"flag"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"golang.org/x/mod/semver"

	"qcc/internal/target"
)

// stdAliases maps the -std value a caller may spell to the internal,
// semver-shaped feature-gate version qcc actually compares against.
// Only c11 is a complete front end today; later standards are accepted
// so a caller pinning -std=c17 does not fail outright. No part of the
// front end consults the gate, so every accepted value compiles the
// same language.
var stdAliases = map[string]string{
	"c11":   "v11.0.0",
	"gnu11": "v11.0.0",
	"c17":   "v17.0.0",
	"c18":   "v17.0.0",
	"c23":   "v23.0.0",
}

// Config is qcc's fully-resolved command line: which phases to run, where
// output goes, which target ABI to lower for, and the diagnostic/progress
// knobs spec.md §2's "Driver + config" row and SPEC_FULL.md §3's
// `-std`/`-v`/`-emit-llvm` additions describe.
type Config struct {
	Inputs []string // source files; empty means read stdin

	Output       string // -o; empty means stdout
	PPOnly       bool   // -E: stop after preprocessing, just echo tokens
	EmitLLVM     bool   // -emit-llvm: also write an LLVM-textual rendering
	Verbose      bool   // -v: report each input file's emitted IR byte count
	TrapInternal bool   // -trap-internal: print KindInternal stack traces

	TargetName string // -target; empty selects internal/target's default
	Std        string // -std, normalized to its semver feature-gate string

	// Jobs bounds internal/driver's errgroup concurrency across multiple
	// input files; 0 lets the driver pick a default.
	Jobs int
}

// StdAtLeast reports whether c.Std's feature gate is at or above want
// (itself one of stdAliases' values), the shape every "is this C17
// feature enabled" call site in the front end is expected to use instead
// of comparing raw -std strings.
func (c *Config) StdAtLeast(want string) bool {
	return semver.Compare(c.Std, want) >= 0
}

// ReportBytes formats n bytes for -v progress output, a no-op unless
// Verbose is set; callers in internal/emit/internal/driver need not
// guard the call themselves.
func (c *Config) ReportBytes(w io.Writer, section string, n uint64) {
	if !c.Verbose {
		return
	}
	fmt.Fprintf(w, "qcc: %s: %s emitted\n", section, humanize.Bytes(n))
}

// Parse parses args (normally os.Args[1:]) into a Config, mirroring
// ARGBEGIN/ARGEND's -E/-o handling plus the additional flags
// SPEC_FULL.md's domain-stack table assigns to this package. It never
// calls os.Exit itself; flag.ErrHelp and usage errors are returned so
// cmd/qcc can decide how to report them under its own cerr.Guard.
func Parse(args []string) (*Config, error) {
	fs := flag.NewFlagSet("qcc", flag.ContinueOnError)

	cfg := &Config{}
	fs.StringVar(&cfg.Output, "o", "", "write output to `file` instead of stdout")
	fs.BoolVar(&cfg.PPOnly, "E", false, "preprocess only, printing the token stream")
	fs.BoolVar(&cfg.EmitLLVM, "emit-llvm", false, "also emit an LLVM-textual rendering alongside the QBE-style IR")
	fs.BoolVar(&cfg.Verbose, "v", false, "report each input file's emitted IR byte count")
	fs.BoolVar(&cfg.TrapInternal, "trap-internal", false, "print a stack trace for internal-error diagnostics")
	fs.StringVar(&cfg.TargetName, "target", "", "`name` of the target ABI (x86_64, aarch64); default x86_64")
	std := fs.String("std", "c11", "language `standard` to target (c11, c17, c23)")
	fs.IntVar(&cfg.Jobs, "j", 0, "max `n` input files compiled concurrently (0: driver default)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	gate, ok := stdAliases[*std]
	if !ok {
		return nil, fmt.Errorf("unrecognized -std value %q", *std)
	}
	if !semver.IsValid(gate) {
		return nil, fmt.Errorf("internal error: -std %q maps to invalid feature-gate %q", *std, gate)
	}
	cfg.Std = gate

	if _, ok := target.New(cfg.TargetName); !ok {
		return nil, fmt.Errorf("unrecognized -target value %q", cfg.TargetName)
	}

	cfg.Inputs = fs.Args()
	return cfg, nil
}
