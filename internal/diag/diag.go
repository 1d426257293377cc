// Package diag implements the append-only diagnostic bag spec.md §4.2
// describes: compile-time and runtime errors carrying a code, a source
// range, and a message. Grounded on the teacher's BASICError
// (pkg/tinybasic/errors.go) -- a structured error record with a category,
// message, and line number -- generalized here to a bag instead of a
// single in-flight error, since the incremental driver must inspect
// "was the only problem UnexpectedEndOfStream" across a whole compile.
package diag

import "fmt"

// Code identifies the kind of diagnostic. The non-exhaustive set named
// in spec.md §4.2 plus the runtime codes spec.md §6.3/§8 requires.
type Code string

const (
	UnexpectedEndOfStream  Code = "UnexpectedEndOfStream"
	UnexpectedToken        Code = "UnexpectedToken"
	UndefinedAssemblyLabel Code = "UndefinedAssemblyLabel"
	UnexpectedEmptyStack   Code = "UnexpectedEmptyStack"
	DivisionByZero         Code = "DivisionByZero"
	UnassignedVariable     Code = "UnassignedVariable"
	UnsupportedOperand     Code = "UnsupportedOperand"
	UnknownOpcode          Code = "UnknownOpcode"
	DuplicateLabel         Code = "DuplicateLabel"
	UnknownCall            Code = "UnknownCall"
)

// Position is a 1-based line/column source location.
type Position struct {
	Line   int
	Column int
}

// Range is a half-open span [Start, End) in source text. End may equal
// Start for a zero-width location (e.g. an EOF diagnostic).
type Range struct {
	Start Position
	End   Position
}

// Diagnostic is one bag entry.
type Diagnostic struct {
	Code    Code
	Range   Range
	Message string
}

// Bag is an append-only collection of Diagnostics. The zero value is a
// ready-to-use empty bag.
type Bag struct {
	items []Diagnostic
}

// Add appends a diagnostic, formatting Message as fmt.Sprintf(format, args...).
func (b *Bag) Add(code Code, rng Range, format string, args ...interface{}) {
	b.items = append(b.items, Diagnostic{
		Code:    code,
		Range:   rng,
		Message: fmt.Sprintf(format, args...),
	})
}

// Items returns all diagnostics recorded so far, in order.
func (b *Bag) Items() []Diagnostic {
	return b.items
}

// HasErrors reports whether any diagnostic has been recorded.
func (b *Bag) HasErrors() bool {
	return len(b.items) > 0
}

// Len reports how many diagnostics have been recorded.
func (b *Bag) Len() int {
	return len(b.items)
}

// Last returns the most recently added diagnostic and true, or the zero
// Diagnostic and false if the bag is empty.
func (b *Bag) Last() (Diagnostic, bool) {
	if len(b.items) == 0 {
		return Diagnostic{}, false
	}
	return b.items[len(b.items)-1], true
}

// OnlyUnexpectedEndOfStream reports whether the bag contains diagnostics
// and every one of them is UnexpectedEndOfStream -- the incremental
// driver's signal (spec.md §4.7) that the fragment just needs more lines.
func (b *Bag) OnlyUnexpectedEndOfStream() bool {
	if len(b.items) == 0 {
		return false
	}
	for _, d := range b.items {
		if d.Code != UnexpectedEndOfStream {
			return false
		}
	}
	return true
}

// Reset clears the bag for reuse.
func (b *Bag) Reset() {
	b.items = nil
}
