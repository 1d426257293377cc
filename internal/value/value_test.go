package value

import "testing"

func TestNumberBoolTruthiness(t *testing.T) {
	if NewNumber(Zero).Bool() {
		t.Fatalf("expected Number(0) to be false")
	}
	if !NewNumber(MustParseDecimal("1")).Bool() {
		t.Fatalf("expected Number(1) to be true")
	}
}

func TestStringBoolTruthiness(t *testing.T) {
	cases := map[string]bool{
		"":        false,
		"false":   false,
		"FALSE":   false,
		"False":   false,
		"0":       true,
		"true":    true,
		"hello":   true,
		"  ":      true,
	}
	for in, want := range cases {
		if got := NewString(in).Bool(); got != want {
			t.Errorf("String(%q).Bool() = %v, want %v", in, got, want)
		}
	}
}

func TestStringAsNumberFallsBackToZero(t *testing.T) {
	if got := NewString("not a number").AsNumber(); !got.IsZero() {
		t.Fatalf("expected AsNumber() on a non-numeric string to be zero, got %s", got.String())
	}
	if got := NewString("42").AsNumber(); !Equal(got, MustParseDecimal("42")) {
		t.Fatalf("AsNumber() = %s, want 42", got.String())
	}
}

func TestArrayScalarViews(t *testing.T) {
	a := NewArray()
	if a.String() != "" {
		t.Fatalf("expected Array.String() to always be empty")
	}
	if !a.Bool() {
		t.Fatalf("expected Array.Bool() to always be true")
	}
	if !a.AsNumber().IsZero() {
		t.Fatalf("expected Array.AsNumber() to always be zero")
	}
}

func TestArrayGetMissingKeyYieldsEmptyString(t *testing.T) {
	a := NewArray()
	got := a.Get("missing")
	if got.Kind() != KindString || got.String() != "" {
		t.Fatalf("expected missing key to read as empty string, got %#v", got)
	}
}

func TestSetPathAutoPromotesIntermediateArrays(t *testing.T) {
	root := SetPath(String{}, []string{"0", "name"}, NewString("alice"))
	inner, ok := root.Get("0").(*Array)
	if !ok {
		t.Fatalf("expected root[0] to auto-promote to an array, got %#v", root.Get("0"))
	}
	if got := inner.Get("name"); got.String() != "alice" {
		t.Fatalf("root[0][name] = %q, want %q", got.String(), "alice")
	}
}

func TestSetPathOverwritesScalarAlongPath(t *testing.T) {
	root := NewArray()
	root.Set("0", NewString("scalar"))
	root = SetPath(root, []string{"0", "1"}, NewNumber(MustParseDecimal("5")))
	inner, ok := root.Get("0").(*Array)
	if !ok {
		t.Fatalf("expected a scalar encountered mid-path to be overwritten with an array")
	}
	if got := inner.Get("1"); !Equal(got.AsNumber(), MustParseDecimal("5")) {
		t.Fatalf("root[0][1] = %s, want 5", got.String())
	}
}

func TestGetPathMissingIntermediateYieldsEmptyString(t *testing.T) {
	root := NewArray()
	got := GetPath(root, []string{"0", "1"})
	if got.Kind() != KindString || got.String() != "" {
		t.Fatalf("expected reading through a missing intermediate array to yield empty string, got %#v", got)
	}
}

func TestGetPathThroughNonArrayYieldsEmptyString(t *testing.T) {
	got := GetPath(NewString("scalar"), []string{"0"})
	if got.Kind() != KindString || got.String() != "" {
		t.Fatalf("expected reading a path through a scalar to yield empty string, got %#v", got)
	}
}

func TestCloneDeepCopiesNestedArrays(t *testing.T) {
	inner := NewArray()
	inner.Set("x", NewNumber(MustParseDecimal("1")))
	outer := NewArray()
	outer.Set("a", inner)

	clone := outer.Clone()
	clonedInner := clone.Get("a").(*Array)
	clonedInner.Set("x", NewNumber(MustParseDecimal("99")))

	if got := inner.Get("x"); !Equal(got.AsNumber(), MustParseDecimal("1")) {
		t.Fatalf("mutating the clone's nested array mutated the original: got %s", got.String())
	}
}

func TestArrayKeysPreserveInsertionOrder(t *testing.T) {
	a := NewArray()
	a.Set("b", NewNumber(Zero))
	a.Set("a", NewNumber(Zero))
	a.Set("c", NewNumber(Zero))
	got := a.Keys()
	want := []string{"b", "a", "c"}
	if len(got) != len(want) {
		t.Fatalf("Keys() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Keys() = %v, want %v", got, want)
		}
	}
}

func TestCanonicalKeyUsesNormalizedNumericForm(t *testing.T) {
	a := CanonicalKey(NewNumber(MustParseDecimal("3.00")))
	b := CanonicalKey(NewNumber(MustParseDecimal("3")))
	if a != b {
		t.Fatalf("CanonicalKey(3.00) = %q, CanonicalKey(3) = %q, want equal", a, b)
	}
}

func TestCompareNumericWhenBothCoerceCleanly(t *testing.T) {
	if Compare(NewString("2"), NewString("10")) >= 0 {
		t.Fatalf("expected numeric string comparison: \"2\" < \"10\"")
	}
}

func TestCompareLexicographicWhenEitherOperandIsNotNumeric(t *testing.T) {
	if Compare(NewString("apple"), NewString("banana")) >= 0 {
		t.Fatalf("expected lexicographic comparison: \"apple\" < \"banana\"")
	}
	if Compare(NewString("10"), NewString("banana")) >= 0 {
		t.Fatalf("expected lexicographic fallback when one operand isn't numeric: \"10\" < \"banana\"")
	}
}

func TestCompareTreatsArraysAsNonNumericString(t *testing.T) {
	if Compare(NewArray(), NewString("")) != 0 {
		t.Fatalf("expected an empty array and empty string to compare equal lexicographically")
	}
}
