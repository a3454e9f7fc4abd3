package testutil

import "testing"

// TestGolden runs every testdata/*.txtar scenario end to end: scan,
// parse, lower to SSA, emit QBE-style IR, compare against the recorded
// expectation. This is the one place qcc exercises its own front end as
// a whole rather than one package at a time.
func TestGolden(t *testing.T) {
	scenarios, err := LoadDir("testdata")
	if err != nil {
		t.Fatal(err)
	}
	if len(scenarios) == 0 {
		t.Fatal("no scenarios found in testdata")
	}
	for _, sc := range scenarios {
		sc.Run(t)
	}
}

func TestCanonicalizeOrdersByFirstAppearance(t *testing.T) {
	a := "@body.9\n\t%.3 =w loadw %.1\n\t%.3 =w loadw %.1\n\tret %.3\n"
	b := "@body.2\n\t%.7 =w loadw %.4\n\t%.7 =w loadw %.4\n\tret %.7\n"
	if Canonicalize(a) != Canonicalize(b) {
		t.Fatalf("expected canonical forms to match:\n%s\nvs\n%s", Canonicalize(a), Canonicalize(b))
	}
}

func TestCanonicalizeDistinguishesDistinctValues(t *testing.T) {
	a := "\t%.3 =w loadw %.1\n\t%.4 =w loadw %.2\n\tret %.3\n"
	b := "\t%.3 =w loadw %.1\n\t%.4 =w loadw %.2\n\tret %.4\n"
	if Canonicalize(a) == Canonicalize(b) {
		t.Fatalf("expected distinct return values to stay distinct after canonicalizing:\n%s", Canonicalize(a))
	}
}
