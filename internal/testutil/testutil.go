// Package testutil drives whole-program golden scenarios for qcc: a
// small C source is parsed and lowered exactly the way cmd/qcc's driver
// does, and the resulting QBE-style IR text is compared, after
// Canonicalize renumbers its ids, against a recorded expectation.
// Scenarios are stored as txtar archives (`input.c` + `expected.ssa`)
// rather than a pair of loose files per case, and each one compiles an
// entire translation unit rather than the single function body
// internal/stmt's shared test harness sets up.
package testutil

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"testing"

	"golang.org/x/tools/txtar"

	"qcc/internal/emit"
	"qcc/internal/parser"
	"qcc/internal/target"
)

// idPattern matches every id-bearing token internal/emit can print: a
// block label (@name.N), a temporary (%name.N or %.N), an aggregate type
// reference (:tag.N), or a private global (\$.Lname.N). Canonicalize
// uses it to make golden comparisons independent of the actual numeral,
// which is not reproducible: ssa.MkBlock and ssa.MkGlobal draw from
// package-level counters that run for the lifetime of the test binary,
// not per compilation, so the same function compiled twice in one test
// run does not print the same ids twice.
var idPattern = regexp.MustCompile(`@[A-Za-z0-9_]*\.[0-9]+|%[A-Za-z0-9_]*\.[0-9]+|:[A-Za-z0-9_]*\.[0-9]+|\$\.L[A-Za-z0-9_]*\.[0-9]+`)

// Canonicalize renumbers every id token in s to a small sequential
// number scoped to its own kind (label, temp, type ref, private global),
// assigned in order of first appearance. Fixtures are written in this
// canonical form; Run applies it to a Scenario's actual output before
// comparing, so an expected.ssa fixture only has to get the relative
// order of id allocation right, not any particular absolute value.
func Canonicalize(s string) string {
	seen := make(map[string]string)
	next := make(map[byte]int)
	return idPattern.ReplaceAllStringFunc(s, func(m string) string {
		if canon, ok := seen[m]; ok {
			return canon
		}
		i := strings.LastIndexByte(m, '.')
		kind := m[0]
		next[kind]++
		canon := fmt.Sprintf("%s%d", m[:i+1], next[kind])
		seen[m] = canon
		return canon
	})
}

// Scenario is one golden end-to-end case: compile Input, expect the
// emitted IR to equal Expected once both are canonicalized.
type Scenario struct {
	Name     string
	Input    string
	Expected string
}

// Load parses a txtar archive into a Scenario. The archive's comment
// (the text before the first file marker) is ignored; it exists only so
// a .txtar fixture can carry a one-line human description. The archive
// must contain exactly two files, "input.c" and "expected.ssa", in
// either order.
func Load(name string, data []byte) (Scenario, error) {
	ar := txtar.Parse(data)
	sc := Scenario{Name: name}
	var haveInput, haveExpected bool
	for _, f := range ar.Files {
		switch f.Name {
		case "input.c":
			sc.Input = string(f.Data)
			haveInput = true
		case "expected.ssa":
			sc.Expected = string(f.Data)
			haveExpected = true
		default:
			return Scenario{}, fmt.Errorf("testutil: %s: unexpected archive file %q", name, f.Name)
		}
	}
	if !haveInput {
		return Scenario{}, fmt.Errorf("testutil: %s: missing input.c", name)
	}
	if !haveExpected {
		return Scenario{}, fmt.Errorf("testutil: %s: missing expected.ssa", name)
	}
	return sc, nil
}

// LoadDir loads every *.txtar file in dir as a Scenario, named after its
// file (without extension) and sorted by that name so a test run's
// subtests come out in a stable order regardless of directory iteration
// order.
func LoadDir(dir string) ([]Scenario, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("testutil: reading %s: %w", dir, err)
	}
	var scenarios []Scenario
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".txtar" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("testutil: %w", err)
		}
		name := strings.TrimSuffix(e.Name(), ".txtar")
		sc, err := Load(name, data)
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, sc)
	}
	sort.Slice(scenarios, func(i, j int) bool { return scenarios[i].Name < scenarios[j].Name })
	return scenarios, nil
}

// Run compiles sc.Input the way a single-file, non-batch cmd/qcc
// invocation would (default target, no -emit-llvm) and reports a test
// failure if the emitted IR does not match sc.Expected. A front-end
// panic (cerr.Fatalf/Internal) is caught and reported as a test failure
// rather than crashing the test binary, since some day a Scenario may
// want to assert on a diagnostic instead of a clean compile — today
// every recorded Scenario is expected to compile cleanly.
func (sc Scenario) Run(t *testing.T) {
	t.Helper()
	t.Run(sc.Name, func(t *testing.T) {
		t.Helper()
		got, err := sc.compile()
		if err != nil {
			t.Fatalf("%s: %v", sc.Name, err)
		}
		got, want := Canonicalize(got), Canonicalize(sc.Expected)
		if got != want {
			t.Errorf("%s: output mismatch\n--- got ---\n%s\n--- want ---\n%s", sc.Name, got, want)
		}
	})
}

func (sc Scenario) compile() (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = e
			} else {
				err = fmt.Errorf("panic: %v", r)
			}
		}
	}()

	tgt, ok := target.New("")
	if !ok {
		return "", fmt.Errorf("no default target")
	}
	res := parser.TranslationUnit(sc.Name+".c", strings.NewReader(sc.Input), tgt)

	var buf bytes.Buffer
	w := emit.NewWriter(&buf)
	w.All(&emit.Result{
		Globals:   res.Globals,
		Tentative: res.Tentative,
		Funcs:     res.Funcs,
		Strings:   res.Strings,
		Types:     res.Types,
	})
	if err := w.Flush(); err != nil {
		return "", err
	}
	return buf.String(), nil
}
