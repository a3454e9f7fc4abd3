package ir

import "testing"

// bitfieldRoundTrip mirrors, in plain Go arithmetic, the mask-and-set
// Store performs when writing a bit-field into a zeroed 4-byte (class w)
// storage unit, followed by bitsAdjust's shift-up/shift-down extraction
// on read (unsigned/logical case) — see Store's mask computation and
// bitsAdjust's doc comment in ir.go. Isolating the formula from SSA
// emission lets the read(write(v,x)) == truncate(x,width) property
// (spec.md §8) be checked directly.
func bitfieldRoundTrip(before, after int, val uint32) uint32 {
	width := uint(32 - before - after)
	mask := uint32((uint64(1)<<width)-1) << uint(before)
	merged := (val << uint(before)) & mask // storage starts zeroed

	shiftedUp := merged << uint(after)
	return shiftedUp >> uint(before+after)
}

func TestBitfieldReadWriteRoundTrip(t *testing.T) {
	cases := []struct {
		before, after int
		val           uint32
	}{
		{0, 29, 5},         // unsigned :3 at the low end (spec.md §8 scenario 5's `a`)
		{3, 24, 17},        // unsigned :5 packed after a :3 field (scenario 5's `b`)
		{0, 0, 0xdeadbeef}, // a full-word field: before = after = 0
		{16, 8, 0xff},      // an 8-bit field in the middle of a word
		{29, 0, 7},         // a 3-bit field at the top of the word
	}
	for _, c := range cases {
		width := uint(32 - c.before - c.after)
		want := c.val & uint32((uint64(1)<<width)-1)
		got := bitfieldRoundTrip(c.before, c.after, c.val)
		if got != want {
			t.Errorf("bitfieldRoundTrip(before=%d, after=%d, val=%#x) = %#x, want %#x (truncate to %d bits)",
				c.before, c.after, c.val, got, want, width)
		}
	}
}
