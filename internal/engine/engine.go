// Package engine implements the public ISB facade spec.md §6.1
// describes: a single type combining the lexer, parser, compiler, and
// vm stages behind `compile`/`parseAssembly`/`run`/`reset` and a set of
// read-only accessors over VM state, plus the incremental-compilation
// driver spec.md §4.7 describes for REPL use. Grounded on the teacher's
// `TinyBASIC` struct (pkg/tinybasic/tinybasic.go), the single type that
// owns a program's lexer/parser/compiler/VM and exposes the methods its
// callers (the terminal session, the REPL) actually use.
package engine

import (
	"github.com/isb-lang/isb/internal/compiler"
	"github.com/isb-lang/isb/internal/diag"
	"github.com/isb-lang/isb/internal/lexer"
	"github.com/isb-lang/isb/internal/parser"
	"github.com/isb-lang/isb/internal/value"
	"github.com/isb-lang/isb/internal/vm"
)

// Engine is the top-level ISB facade: one program's worth of compiled
// instructions, labels, and execution state.
type Engine struct {
	Name string

	unit  *compiler.Unit
	diags diag.Bag
	m     *vm.VM

	// lines accumulates every line of source ever submitted to compile,
	// across incremental compiles, for the codeLines accessor.
	lines []string
}

// New creates a named, empty Engine ready for its first compile --
// spec.md §6.1's `new(programName)`.
func New(name string) *Engine {
	e := &Engine{Name: name, unit: compiler.NewUnit()}
	e.m = vm.New(e.unit, &e.diags)
	return e
}

// Reset discards all compiled instructions, labels, sub declarations,
// accumulated source lines, diagnostics, and VM state, returning the
// Engine to the state New produced -- spec.md §6.1's `reset()`.
func (e *Engine) Reset() {
	e.unit.Reset()
	e.diags.Reset()
	e.lines = nil
	e.m.Reset()
}

// Compile lexes and parses source, then lowers it into e's instruction
// stream. When incremental is false, the Engine is fully reset first
// (a fresh program); when true, source is appended to the running
// program -- spec.md §4.7's incremental compilation model (Repl.SubmitLine
// appends to the same instruction stream but lowers its fragments
// itself rather than calling Compile). Returns true if no diagnostic was
// recorded by this call, matching spec.md §6.1's `compile(...) -> bool`.
func (e *Engine) Compile(source string, incremental bool) bool {
	if !incremental {
		e.Reset()
	}
	before := e.diags.Len()
	e.lines = append(e.lines, splitLines(source)...)

	toks := lexer.New(source, &e.diags).Tokens()
	prog := parser.New(toks, &e.diags).Parse()
	compiler.Lower(prog, e.unit, &e.diags)

	return e.diags.Len() == before
}

// ParseAssembly appends the instructions a raw assembly-text listing
// describes directly to e's instruction stream, bypassing the AST
// pipeline -- spec.md §4.5's second lowering entry point and §6.1's
// `parseAssembly(asmText)`.
func (e *Engine) ParseAssembly(asmText string) bool {
	before := e.diags.Len()
	compiler.ParseAssembly(asmText, e.unit, &e.diags)
	return e.diags.Len() == before
}

// Run resumes execution from the VM's current IP -- spec.md §6.1's
// `run(stopOnError) -> bool`, true if the run reached termination
// without recording a new diagnostic.
func (e *Engine) Run(stopOnError bool) bool {
	return e.m.Run(stopOnError)
}

// IP is the VM's current instruction pointer.
func (e *Engine) IP() int { return e.m.IP }

// StackCount is the VM's current value-stack depth.
func (e *Engine) StackCount() int { return e.m.StackCount() }

// StackTop returns the current top of the value stack without
// consuming it.
func (e *Engine) StackTop() (value.Value, bool) { return e.m.StackTop() }

// StackPop removes and returns the top of the value stack.
func (e *Engine) StackPop() (value.Value, bool) { return e.m.StackPop() }

// HasError reports whether any diagnostic (compile- or run-time) has
// been recorded since the last Reset.
func (e *Engine) HasError() bool { return e.diags.HasErrors() }

// ErrorInfo returns the most recent diagnostic, if any -- spec.md
// §6.1's `errorInfo`.
func (e *Engine) ErrorInfo() (diag.Diagnostic, bool) { return e.diags.Last() }

// Diagnostics returns every diagnostic recorded since the last Reset,
// in the order recorded.
func (e *Engine) Diagnostics() []diag.Diagnostic { return e.diags.Items() }

// CodeLines returns every line of source submitted to Compile so far,
// across incremental compiles -- spec.md §6.1's `codeLines`.
func (e *Engine) CodeLines() []string {
	out := make([]string, len(e.lines))
	copy(out, e.lines)
	return out
}

// AssemblyInTextFormat renders the Engine's current instruction stream
// back to its textual assembly form -- spec.md §6.1's
// `assemblyInTextFormat`, and the basis for spec.md §4.5's round-trip
// guarantee.
func (e *Engine) AssemblyInTextFormat() string { return compiler.Serialize(e.unit) }

func splitLines(source string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(source); i++ {
		if source[i] == '\n' {
			lines = append(lines, source[start:i])
			start = i + 1
		}
	}
	if start < len(source) {
		lines = append(lines, source[start:])
	}
	return lines
}
