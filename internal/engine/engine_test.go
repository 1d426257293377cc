package engine

import "testing"

func TestCompileAndRun(t *testing.T) {
	e := New("demo")
	if !e.Compile("x = 1 + 2\n", false) {
		t.Fatalf("unexpected diagnostics: %+v", e.Diagnostics())
	}
	if !e.Run(true) {
		t.Fatalf("unexpected run diagnostics: %+v", e.Diagnostics())
	}
	if e.HasError() {
		t.Fatalf("unexpected error: %+v", e.Diagnostics())
	}
}

func TestParseAssemblyAndRoundTrip(t *testing.T) {
	e := New("demo")
	if !e.ParseAssembly("push 3.14\n") {
		t.Fatalf("unexpected diagnostics: %+v", e.Diagnostics())
	}
	if !e.Run(true) {
		t.Fatalf("unexpected run diagnostics: %+v", e.Diagnostics())
	}
	top, ok := e.StackTop()
	if !ok || top.String() != "3.14" {
		t.Fatalf("want 3.14, got %+v (ok=%v)", top, ok)
	}
	if e.AssemblyInTextFormat() != "push 3.14\n" {
		t.Fatalf("unexpected serialized assembly: %q", e.AssemblyInTextFormat())
	}
}

func TestIncrementalCompileAppendsAndResumes(t *testing.T) {
	e := New("demo")
	if !e.Compile("x = 1\n", false) {
		t.Fatalf("unexpected diagnostics: %+v", e.Diagnostics())
	}
	e.Run(true)
	if !e.Compile("y = x + 1\n", true) {
		t.Fatalf("unexpected diagnostics on incremental compile: %+v", e.Diagnostics())
	}
	if !e.Run(true) {
		t.Fatalf("unexpected run diagnostics: %+v", e.Diagnostics())
	}
	if len(e.CodeLines()) != 2 {
		t.Fatalf("want 2 accumulated source lines, got %d: %+v", len(e.CodeLines()), e.CodeLines())
	}
}

func TestResetClearsEverything(t *testing.T) {
	e := New("demo")
	e.Compile("x = 1\n", false)
	e.Run(true)
	e.Reset()
	if e.HasError() || len(e.CodeLines()) != 0 || e.IP() != 0 {
		t.Fatalf("expected clean state after Reset, got lines=%v ip=%d err=%v", e.CodeLines(), e.IP(), e.HasError())
	}
}

func TestReplNeedsMoreThenCompletes(t *testing.T) {
	e := New("demo")
	r := NewRepl(e)

	out := r.SubmitLine("If 1 > 0 Then")
	if !out.NeedsMore {
		t.Fatalf("expected NeedsMore for an unterminated If, got %+v", out)
	}
	if !r.Pending() {
		t.Fatalf("expected a pending fragment")
	}

	out = r.SubmitLine("  x = 1")
	if !out.NeedsMore {
		t.Fatalf("expected NeedsMore for a still-unterminated If, got %+v", out)
	}

	out = r.SubmitLine("EndIf")
	if out.NeedsMore {
		t.Fatalf("expected the fragment to complete, got %+v", out)
	}
	if len(out.Diagnostics) != 0 {
		t.Fatalf("unexpected diagnostics: %+v", out.Diagnostics)
	}
	if r.Pending() {
		t.Fatalf("expected the pending buffer to clear after completion")
	}
}

func TestReplFragmentValue(t *testing.T) {
	e := New("demo")
	r := NewRepl(e)
	out := r.SubmitLine("3.14")
	if out.NeedsMore {
		t.Fatalf("unexpected NeedsMore: %+v", out)
	}
	if !out.HasValue || out.Value.String() != "3.14" {
		t.Fatalf("want fragment value 3.14, got %+v", out)
	}
}
