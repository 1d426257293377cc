package engine

import (
	"strings"

	"github.com/isb-lang/isb/internal/compiler"
	"github.com/isb-lang/isb/internal/diag"
	"github.com/isb-lang/isb/internal/lexer"
	"github.com/isb-lang/isb/internal/parser"
	"github.com/isb-lang/isb/internal/value"
)

// Repl drives one Engine through spec.md §4.7's incremental compilation
// cycle: each submitted line is appended to a pending buffer and the
// whole buffer is re-lexed/re-parsed on a scratch diagnostic bag; if
// the only problems found are UnexpectedEndOfStream, the fragment is
// incomplete and the buffer is kept for the next line. Otherwise
// (clean parse, or a genuine syntax error) the buffer is lowered into
// the Engine's persistent instruction stream and cleared, and execution
// resumes at the first newly appended instruction.
//
// Grounded on the teacher's interactive line-buffering in
// `pkg/tinybasic/tinybasic.go` (`Execute`/`ExecuteInputResponse`,
// which append a line to a pending buffer and re-attempt compilation),
// generalized from TinyBASIC's immediate-mode command dispatch to
// ISB's diagnostic-driven "needs more lines" signal.
type Repl struct {
	Engine *Engine
	buffer []string
}

// NewRepl creates a Repl driving e.
func NewRepl(e *Engine) *Repl {
	return &Repl{Engine: e}
}

// FragmentOutcome reports what happened after submitting one line.
type FragmentOutcome struct {
	NeedsMore   bool // the fragment is incomplete; submit another line
	Ran         bool // the fragment compiled and was executed
	Value       value.Value
	HasValue    bool // Value is the fragment's top-of-stack result
	Diagnostics []diag.Diagnostic
}

// SubmitLine appends line to the pending buffer and attempts to
// compile and run the accumulated fragment.
func (r *Repl) SubmitLine(line string) FragmentOutcome {
	r.buffer = append(r.buffer, line)
	source := strings.Join(r.buffer, "\n") + "\n"

	var scratch diag.Bag
	toks := lexer.New(source, &scratch).Tokens()
	prog := parser.New(toks, &scratch).Parse()

	if scratch.HasErrors() && scratch.OnlyUnexpectedEndOfStream() {
		return FragmentOutcome{NeedsMore: true}
	}

	r.buffer = nil
	resumeIP := r.Engine.unit.Len()
	before := r.Engine.diags.Len()
	compiler.Lower(prog, r.Engine.unit, &r.Engine.diags)
	for _, d := range scratch.Items() {
		r.Engine.diags.Add(d.Code, d.Range, "%s", d.Message)
	}
	r.Engine.lines = append(r.Engine.lines, splitLines(source)...)

	if r.Engine.diags.Len() > before {
		return FragmentOutcome{Diagnostics: r.Engine.diags.Items()[before:]}
	}

	r.Engine.m.IP = resumeIP
	terminated := r.Engine.Run(true)
	out := FragmentOutcome{Ran: true, Diagnostics: r.Engine.diags.Items()[before:]}
	if terminated {
		if v, ok := r.Engine.StackPop(); ok {
			out.Value = v
			out.HasValue = true
		}
	}
	return out
}

// Pending reports whether a fragment is currently buffered awaiting
// more lines.
func (r *Repl) Pending() bool { return len(r.buffer) > 0 }
