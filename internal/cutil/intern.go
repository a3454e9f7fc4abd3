package cutil

// Intern allocates stable ids keyed on raw decoded byte content, not the
// source spelling, so `"ab"` and `"a" "b"` (post string-literal
// concatenation) map to the same id. No qcc package calls NewIntern:
// internal/ir deduplicates string literals by expression node, not by
// content, and names each one `$.Lstring.N`, so two identical literals
// emit as two globals.
type Intern struct {
	ids  *Map[int]
	next int
}

func NewIntern() *Intern { return &Intern{ids: NewMap[int]()} }

// ID returns the stable id for data, allocating a fresh one on first
// sight. Keys are the raw bytes cast to a string, which is safe because
// Go string values are immutable content, not the caller's backing array.
func (in *Intern) ID(data []byte) (id int, isNew bool) {
	key := string(data)
	if id, ok := in.ids.Get(key); ok {
		return id, false
	}
	id = in.next
	in.next++
	in.ids.Put(key, id)
	return id, true
}
