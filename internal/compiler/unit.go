package compiler

import "fmt"

// Unit holds the append-only instruction stream and label table shared
// across every compile of an engine's lifetime -- spec.md §4.7's
// incremental driver keeps appending to the same Unit rather than
// starting over, so that labels and sub declarations from an earlier
// fragment remain callable from a later one.
type Unit struct {
	Instructions []Instruction
	Labels       map[string]int // label name -> instruction index
	Subs         map[string]string // sub name (as written) -> its entry label

	labelSeq int
}

// NewUnit returns an empty, ready-to-use Unit.
func NewUnit() *Unit {
	return &Unit{
		Labels: make(map[string]int),
		Subs:   make(map[string]string),
	}
}

// Reset discards all instructions, labels, and sub declarations, used
// when Engine.compile is called with incremental=false (spec.md §6.1).
func (u *Unit) Reset() {
	u.Instructions = nil
	u.Labels = make(map[string]int)
	u.Subs = make(map[string]string)
	u.labelSeq = 0
}

// Len returns the current instruction count -- also the index of the
// next instruction that will be appended, which the incremental driver
// uses as the resume point for IP after a successful append-only compile.
func (u *Unit) Len() int { return len(u.Instructions) }

func (u *Unit) emit(ins Instruction) int {
	u.Instructions = append(u.Instructions, ins)
	return len(u.Instructions) - 1
}

// FreshLabel allocates a compiler-generated label of the form
// "__<prefix>_<n>" with a monotonically increasing n, so generated labels
// never collide with each other across repeated incremental compiles
// (spec.md §4.5). The "__" prefix keeps them apart from user labels only
// by convention: the lexer accepts identifiers starting with "__", so a
// user label of the same form is not rejected.
func (u *Unit) FreshLabel(prefix string) string {
	u.labelSeq++
	return fmt.Sprintf("__%s_%d", prefix, u.labelSeq)
}
