package compiler

import (
	"strings"
	"testing"

	"github.com/isb-lang/isb/internal/diag"
	"github.com/isb-lang/isb/internal/lexer"
	"github.com/isb-lang/isb/internal/parser"
)

func lowerSource(t *testing.T, src string) (*Unit, *diag.Bag) {
	t.Helper()
	var bag diag.Bag
	toks := lexer.New(src, &bag).Tokens()
	prog := parser.New(toks, &bag).Parse()
	u := NewUnit()
	Lower(prog, u, &bag)
	return u, &bag
}

func TestLowerScalarAssignment(t *testing.T) {
	u, bag := lowerSource(t, "x = 1 + 2\n")
	if bag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %+v", bag.Items())
	}
	want := []Op{Push, Push, Add, Store}
	assertOps(t, u, want)
}

func TestLowerArrayAssignmentAndRead(t *testing.T) {
	u, bag := lowerSource(t, "a[1] = \"v\"\nb = a[1]\n")
	if bag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %+v", bag.Items())
	}
	want := []Op{Push, Pushs, StoreArr, Push, LoadArr, Store}
	assertOps(t, u, want)
	if u.Instructions[2].Depth != 1 || u.Instructions[2].Str != "a" {
		t.Fatalf("unexpected store_arr instruction: %+v", u.Instructions[2])
	}
}

func TestLowerIfElseIfElse(t *testing.T) {
	src := "If x > 0 Then\n  y = 1\nElseIf x < 0 Then\n  y = -1\nElse\n  y = 0\nEndIf\n"
	u, bag := lowerSource(t, src)
	if bag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %+v", bag.Items())
	}
	var brIfCount, brCount int
	for _, ins := range u.Instructions {
		switch ins.Op {
		case BrIf:
			brIfCount++
		case Br:
			brCount++
		}
	}
	if brIfCount != 2 {
		t.Fatalf("want 2 br_if (one per condition), got %d", brIfCount)
	}
	if brCount == 0 {
		t.Fatalf("want unconditional branches for chaining and joins")
	}
	for name, idx := range u.Labels {
		if idx < 0 || idx > len(u.Instructions) {
			t.Fatalf("label %q resolves out of range: %d", name, idx)
		}
	}
}

func TestLowerForLoop(t *testing.T) {
	u, bag := lowerSource(t, "For i = 1 To 3\n  x = i\nEndFor\n")
	if bag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %+v", bag.Items())
	}
	var sawLe, sawAdd bool
	for _, ins := range u.Instructions {
		if ins.Op == Le {
			sawLe = true
		}
		if ins.Op == Add {
			sawAdd = true
		}
	}
	if !sawLe || !sawAdd {
		t.Fatalf("expected le (ascending test) and add (increment) in lowered For, got %+v", u.Instructions)
	}
}

func TestLowerWhileLoop(t *testing.T) {
	u, bag := lowerSource(t, "While x > 0\n  x = x - 1\nEndWhile\n")
	if bag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %+v", bag.Items())
	}
	if len(u.Instructions) == 0 {
		t.Fatalf("expected lowered instructions")
	}
}

func TestLowerSubDeclarationSkipsBodyInline(t *testing.T) {
	u, bag := lowerSource(t, "Sub greet\n  x = 1\nEndSub\ngreet()\n")
	if bag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %+v", bag.Items())
	}
	if u.Instructions[0].Op != Br {
		t.Fatalf("expected Sub declaration to open with an unconditional jump over its body, got %+v", u.Instructions[0])
	}
	var sawCall, sawRet bool
	for _, ins := range u.Instructions {
		if ins.Op == Call {
			sawCall = true
		}
		if ins.Op == Ret {
			sawRet = true
		}
	}
	if !sawCall || !sawRet {
		t.Fatalf("expected call/ret pair, got %+v", u.Instructions)
	}
}

func TestLowerUnknownCallDiagnoses(t *testing.T) {
	_, bag := lowerSource(t, "x = mystery() + 1\n")
	found := false
	for _, d := range bag.Items() {
		if d.Code == diag.UnknownCall {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected UnknownCall diagnostic, got %+v", bag.Items())
	}
}

func TestLowerGotoAndLabel(t *testing.T) {
	u, bag := lowerSource(t, "top:\nGoTo top\n")
	if bag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %+v", bag.Items())
	}
	idx, ok := u.Labels["top"]
	if !ok || idx != 0 {
		t.Fatalf("expected label %q to resolve to instruction 0, got %d, %v", "top", idx, ok)
	}
	if u.Instructions[0].Op != Br || u.Instructions[0].Str != "top" {
		t.Fatalf("expected br top, got %+v", u.Instructions[0])
	}
}

func TestIncrementalAppendAcrossFragmentsResolvesSub(t *testing.T) {
	var bag diag.Bag
	u := NewUnit()

	toks1 := lexer.New("Sub greet\n  x = 1\nEndSub\n", &bag).Tokens()
	prog1 := parser.New(toks1, &bag).Parse()
	Lower(prog1, u, &bag)

	toks2 := lexer.New("greet()\n", &bag).Tokens()
	prog2 := parser.New(toks2, &bag).Parse()
	resumeIP := u.Len()
	Lower(prog2, u, &bag)

	if bag.HasErrors() {
		t.Fatalf("unexpected diagnostics across fragments: %+v", bag.Items())
	}
	if u.Instructions[resumeIP].Op != Call {
		t.Fatalf("expected second fragment's call to resolve against the first fragment's Sub, got %+v", u.Instructions[resumeIP])
	}
}

func assertOps(t *testing.T, u *Unit, want []Op) {
	t.Helper()
	if len(u.Instructions) != len(want) {
		t.Fatalf("want %d instructions %v, got %d: %+v", len(want), want, len(u.Instructions), u.Instructions)
	}
	for i, op := range want {
		if u.Instructions[i].Op != op {
			t.Fatalf("instruction %d: want %s, got %s (%+v)", i, op, u.Instructions[i].Op, u.Instructions[i])
		}
	}
}

func TestAssemblyRoundTrip(t *testing.T) {
	src := "push 3.14\n"
	var bag diag.Bag
	u := NewUnit()
	ParseAssembly(src, u, &bag)
	if bag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %+v", bag.Items())
	}
	text := Serialize(u)

	u2 := NewUnit()
	var bag2 diag.Bag
	ParseAssembly(text, u2, &bag2)
	if bag2.HasErrors() {
		t.Fatalf("unexpected diagnostics reparsing: %+v", bag2.Items())
	}
	if len(u2.Instructions) != 1 || u2.Instructions[0].Op != Push || u2.Instructions[0].Num != "3.14" {
		t.Fatalf("round trip mismatch: %+v", u2.Instructions)
	}
}

func TestAssemblyRoundTripWithLabelsAndStrings(t *testing.T) {
	var bag diag.Bag
	u := NewUnit()
	Lower(parserProgram(t, "Sub greet\n  x = \"hi\"\nEndSub\ngreet()\n"), u, &bag)
	if bag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %+v", bag.Items())
	}
	text := Serialize(u)
	if !strings.Contains(text, "pushs") {
		t.Fatalf("expected a pushs instruction in serialized output:\n%s", text)
	}

	u2 := NewUnit()
	var bag2 diag.Bag
	ParseAssembly(text, u2, &bag2)
	if bag2.HasErrors() {
		t.Fatalf("unexpected diagnostics reparsing:\n%s\n%+v", text, bag2.Items())
	}
	if len(u2.Instructions) != len(u.Instructions) {
		t.Fatalf("instruction count mismatch after round trip: want %d got %d", len(u.Instructions), len(u2.Instructions))
	}
	if len(u2.Labels) != len(u.Labels) {
		t.Fatalf("label count mismatch after round trip: want %d got %d", len(u.Labels), len(u2.Labels))
	}
}

func TestAssemblyUnknownOpcodeDiagnoses(t *testing.T) {
	var bag diag.Bag
	u := NewUnit()
	ParseAssembly("frobnicate\n", u, &bag)
	if !bag.HasErrors() {
		t.Fatalf("expected UnknownOpcode diagnostic")
	}
	d, _ := bag.Last()
	if d.Code != diag.UnknownOpcode {
		t.Fatalf("want UnknownOpcode, got %s", d.Code)
	}
}

func TestAssemblyUndefinedLabelIsNotAParseTimeError(t *testing.T) {
	// br to a label that doesn't exist yet is legal assembly text --
	// resolution is a VM-time concern (diag.UndefinedAssemblyLabel),
	// not a parse-time one, since labels may be defined later in the
	// same incremental stream.
	var bag diag.Bag
	u := NewUnit()
	ParseAssembly("br nowhere\n", u, &bag)
	if bag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %+v", bag.Items())
	}
	if u.Instructions[0].Op != Br || u.Instructions[0].Str != "nowhere" {
		t.Fatalf("unexpected instruction: %+v", u.Instructions[0])
	}
}

func TestLowerIfEmitsSingleBrIfWithBothLabels(t *testing.T) {
	u, bag := lowerSource(t, "If x > 0 Then\n  y = 1\nEndIf\n")
	if bag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %+v", bag.Items())
	}
	var found bool
	for _, ins := range u.Instructions {
		if ins.Op != BrIf {
			continue
		}
		found = true
		if ins.Str == "" || ins.Str2 == "" {
			t.Fatalf("expected br_if to carry both a true- and a false-label, got %+v", ins)
		}
		if _, ok := u.Labels[ins.Str]; !ok {
			t.Fatalf("br_if true-label %q never defined", ins.Str)
		}
		if _, ok := u.Labels[ins.Str2]; !ok {
			t.Fatalf("br_if false-label %q never defined", ins.Str2)
		}
	}
	if !found {
		t.Fatalf("expected a br_if instruction, got %+v", u.Instructions)
	}
}

func TestAssemblyRoundTripBrIfTwoLabels(t *testing.T) {
	src := "push 1\nbr_if yes no\nyes:\npush 2\nno:\n"
	var bag diag.Bag
	u := NewUnit()
	ParseAssembly(src, u, &bag)
	if bag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %+v", bag.Items())
	}
	var brIf Instruction
	for _, ins := range u.Instructions {
		if ins.Op == BrIf {
			brIf = ins
		}
	}
	if brIf.Str != "yes" || brIf.Str2 != "no" {
		t.Fatalf("want br_if yes no, got %+v", brIf)
	}

	text := Serialize(u)
	if !strings.Contains(text, "br_if yes no") {
		t.Fatalf("expected serialized text to contain \"br_if yes no\", got:\n%s", text)
	}

	u2 := NewUnit()
	var bag2 diag.Bag
	ParseAssembly(text, u2, &bag2)
	if bag2.HasErrors() {
		t.Fatalf("unexpected diagnostics reparsing:\n%s\n%+v", text, bag2.Items())
	}
	if len(u2.Labels) != len(u.Labels) {
		t.Fatalf("label count mismatch after round trip: want %d got %d", len(u.Labels), len(u2.Labels))
	}
}

func TestAssemblyBrIfMissingSecondLabelDiagnoses(t *testing.T) {
	var bag diag.Bag
	u := NewUnit()
	ParseAssembly("br_if onlyone\n", u, &bag)
	if !bag.HasErrors() {
		t.Fatalf("expected a diagnostic for a br_if missing its false-label operand")
	}
}

func parserProgram(t *testing.T, src string) *parser.Program {
	t.Helper()
	var bag diag.Bag
	toks := lexer.New(src, &bag).Tokens()
	return parser.New(toks, &bag).Parse()
}
