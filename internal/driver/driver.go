// Package driver chains qcc's own front end together with the external
// cpp, qbe, as, and ld collaborators spec.md §1 places out of scope,
// grounded on original_source/main.c's single-file freopen/compile/
// fflush shape, generalized to cmd/qcc's multi-file `-c a.c b.c` form
// with golang.org/x/sync/errgroup bounding how many files are preprocessed
// and parsed at once.
package driver

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"qcc/internal/ccconfig"
	"qcc/internal/emit"
	"qcc/internal/emit/llvmshape"
	"qcc/internal/parser"
	"qcc/internal/target"
)

// Tools names the external collaborator binaries a Driver invokes by
// path, overridable so tests can point them at stub scripts instead of
// a real toolchain (the driver's job ends at invoking them, per
// SPEC_FULL.md's "thin, mockable seam" note).
type Tools struct {
	Cpp string
	Qbe string
	As  string
	Ld  string
}

// DefaultTools resolves every collaborator from PATH under its usual
// name, mirroring the unqualified "cpp"/"qbe"/"as"/"ld" original_source
// assumes are already installed.
func DefaultTools() Tools {
	return Tools{Cpp: "cpp", Qbe: "qbe", As: "as", Ld: "ld"}
}

// Driver owns the config and collaborator paths for one invocation of
// cmd/qcc.
type Driver struct {
	Cfg   *ccconfig.Config
	Tools Tools
}

// New builds a Driver for cfg using the default toolchain lookup.
func New(cfg *ccconfig.Config) *Driver {
	return &Driver{Cfg: cfg, Tools: DefaultTools()}
}

// unitResult is one input file's preprocessed-and-compiled output: the
// QBE-style IR text ready for qbe, plus (when -emit-llvm is set) the
// LLVM-textual rendering alongside it.
type unitResult struct {
	file string
	ir   []byte
	llvm []byte
}

// Run compiles every input in d.Cfg.Inputs (or stdin, if none were
// given) and writes the combined result to d.Cfg.Output (stdout if
// empty), mirroring compile()'s single-file loop generalized across
// files with bounded concurrency.
//
// With -E set, Run stops after preprocessing and echoes each file's
// token stream the way original_source/main.c's pponly branch does;
// otherwise every file is parsed and lowered to IR, concatenated in
// input order (order matters: a later file's tentative definitions and
// private-global ids must not race ahead of an earlier file's), and
// qbe/as/ld are left for the caller's separate build step — qcc's own
// output contract ends at emitted IR (and, optionally, LLVM IR), per
// spec.md §1.
func (d *Driver) Run() error {
	inputs := d.Cfg.Inputs
	if len(inputs) == 0 {
		inputs = []string{""}
	}

	tgt, ok := target.New(d.Cfg.TargetName)
	if !ok {
		return fmt.Errorf("driver: unrecognized target %q", d.Cfg.TargetName)
	}

	if d.Cfg.PPOnly {
		return d.runPPOnly(inputs)
	}

	results := make([]*unitResult, len(inputs))
	g := new(errgroup.Group)
	limit := d.Cfg.Jobs
	if limit <= 0 {
		limit = 4
	}
	g.SetLimit(limit)

	for i, in := range inputs {
		i, in := i, in
		g.Go(func() error {
			r, err := d.compileOne(in, tgt)
			if err != nil {
				return fmt.Errorf("%s: %w", displayName(in), err)
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	out, closeOut, err := d.openOutput()
	if err != nil {
		return err
	}
	defer closeOut()

	for _, r := range results {
		if _, err := out.Write(r.ir); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}
	}

	if d.Cfg.EmitLLVM {
		llOut, closeLL, err := d.openLLVMOutput()
		if err != nil {
			return err
		}
		defer closeLL()
		for _, r := range results {
			if _, err := llOut.Write(r.llvm); err != nil {
				return fmt.Errorf("writing -emit-llvm output: %w", err)
			}
		}
	}
	return nil
}

// compileOne preprocesses in through d.Tools.Cpp, parses the result,
// and serializes it to IR (and, when requested, LLVM IR), entirely
// in-memory — one file's worth of work, safe to run concurrently with
// any other file's.
func (d *Driver) compileOne(in string, tgt *target.Target) (*unitResult, error) {
	pp, err := d.preprocess(in)
	if err != nil {
		return nil, fmt.Errorf("preprocessing: %w", err)
	}

	res := parser.TranslationUnit(displayName(in), bytes.NewReader(pp), tgt)

	var irBuf bytes.Buffer
	w := emit.NewWriter(&irBuf)
	if len(d.Cfg.Inputs) > 1 {
		w = emit.NewBatchWriter(&irBuf)
	}
	w.All(toEmitResult(res))
	if err := w.Flush(); err != nil {
		return nil, fmt.Errorf("flushing IR: %w", err)
	}
	d.Cfg.ReportBytes(os.Stderr, displayName(in), uint64(irBuf.Len()))

	ur := &unitResult{file: in, ir: irBuf.Bytes()}
	if d.Cfg.EmitLLVM {
		var llBuf bytes.Buffer
		if err := llvmshape.Render(&llBuf, toEmitResult(res)); err != nil {
			return nil, fmt.Errorf("-emit-llvm: %w", err)
		}
		ur.llvm = llBuf.Bytes()
	}
	return ur, nil
}

// toEmitResult narrows a parser.Result down to what emit.Result needs,
// keeping internal/emit's dependency edge one-way (see emit.Result's
// own doc comment).
func toEmitResult(res *parser.Result) *emit.Result {
	return &emit.Result{
		Globals:   res.Globals,
		Tentative: res.Tentative,
		Funcs:     res.Funcs,
		Strings:   res.Strings,
		Types:     res.Types,
	}
}

// preprocess runs in through d.Tools.Cpp, or reads it unpreprocessed if
// Cpp is the empty string (tests stub this out by clearing Tools.Cpp and
// handing already-preprocessed fixtures straight to the parser).
func (d *Driver) preprocess(in string) ([]byte, error) {
	if d.Tools.Cpp == "" {
		return readInput(in)
	}
	cmd := exec.Command(d.Tools.Cpp)
	if in != "" {
		cmd.Args = append(cmd.Args, in)
	} else {
		cmd.Stdin = os.Stdin
	}
	var out, errBuf bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errBuf
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s: %w: %s", d.Tools.Cpp, err, strings.TrimSpace(errBuf.String()))
	}
	return out.Bytes(), nil
}

func readInput(in string) ([]byte, error) {
	if in == "" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(in)
}

// runPPOnly echoes each file's preprocessed token stream without parsing
// it, the original_source pponly branch's direct equivalent: here the
// "token stream" is exactly what d.Tools.Cpp already produced, since
// qcc's own scanner is not engaged at all under -E.
func (d *Driver) runPPOnly(inputs []string) error {
	out, closeOut, err := d.openOutput()
	if err != nil {
		return err
	}
	defer closeOut()
	for _, in := range inputs {
		pp, err := d.preprocess(in)
		if err != nil {
			return fmt.Errorf("%s: preprocessing: %w", displayName(in), err)
		}
		if _, err := out.Write(pp); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}
	}
	return nil
}

func (d *Driver) openOutput() (io.Writer, func(), error) {
	if d.Cfg.Output == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(d.Cfg.Output)
	if err != nil {
		return nil, nil, fmt.Errorf("opening -o %s: %w", d.Cfg.Output, err)
	}
	return f, func() { f.Close() }, nil
}

func (d *Driver) openLLVMOutput() (io.Writer, func(), error) {
	if d.Cfg.Output == "" {
		return os.Stdout, func() {}, nil
	}
	path := d.Cfg.Output + ".ll"
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening -emit-llvm output %s: %w", path, err)
	}
	return f, func() { f.Close() }, nil
}

func displayName(in string) string {
	if in == "" {
		return "<stdin>"
	}
	return filepath.Clean(in)
}
