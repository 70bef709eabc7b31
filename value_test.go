package tomllib

import (
	"errors"
	"math"
	"testing"
)

// --- Integers ---

func TestNewInteger(t *testing.T) {
	if got := NewInteger(42).String(); got != "42" {
		t.Fatalf("expected 42, got %q", got)
	}
	if got := NewInteger(-17).String(); got != "-17" {
		t.Fatalf("expected -17, got %q", got)
	}
}

func TestIntegerFromString(t *testing.T) {
	inputs := []string{"0", "42", "-17", "+99", "1_000", "0xDEADBEEF", "0o755", "0b1010"}
	for _, input := range inputs {
		i, err := IntegerFromString(input)
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", input, err)
		}
		if i.String() != input {
			t.Fatalf("expected %q to keep its text, got %q", input, i.String())
		}
		if !i.Validate() {
			t.Fatalf("expected %q to validate", input)
		}
	}
}

func TestIntegerFromString_Rejects(t *testing.T) {
	inputs := []string{"", "0123", "1.5", "1__0", "_1", "1_", "0x", "+0x10", "inf", "abc"}
	for _, input := range inputs {
		if _, err := IntegerFromString(input); !errors.Is(err, ErrInvalidValue) {
			t.Fatalf("expected ErrInvalidValue for %q, got %v", input, err)
		}
	}
}

// --- Floats ---

func TestNewFloat(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{3.0, "3.0"},
		{-2.0, "-2.0"},
		{0.5, "0.5"},
		{50.5, "50.5"},
		{6.26e-34, "6.26e-34"},
		{1e21, "1e+21"},
	}
	for _, c := range cases {
		if got := NewFloat(c.in).String(); got != c.want {
			t.Fatalf("expected %q, got %q", c.want, got)
		}
	}
}

func TestNewFloat_SpecialValues(t *testing.T) {
	if got := NewFloat(math.Inf(1)).String(); got != "inf" {
		t.Fatalf("expected inf, got %q", got)
	}
	if got := NewFloat(math.Inf(-1)).String(); got != "-inf" {
		t.Fatalf("expected -inf, got %q", got)
	}
	if got := NewFloat(math.NaN()).String(); got != "nan" {
		t.Fatalf("expected nan, got %q", got)
	}
}

func TestFloatFromString(t *testing.T) {
	inputs := []string{"3.1415", "+1.0", "-0.01", "6.26e-34", "5e+22", "1e6", "inf", "-inf", "nan", "224_617.445_991_228"}
	for _, input := range inputs {
		f, err := FloatFromString(input)
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", input, err)
		}
		if f.String() != input {
			t.Fatalf("expected %q to keep its text, got %q", input, f.String())
		}
	}
}

func TestFloatFromString_Rejects(t *testing.T) {
	inputs := []string{"", "42", "5.", ".5", "1e", "1._5", "07.0"}
	for _, input := range inputs {
		if _, err := FloatFromString(input); !errors.Is(err, ErrInvalidValue) {
			t.Fatalf("expected ErrInvalidValue for %q, got %v", input, err)
		}
	}
}

// --- Booleans ---

func TestNewBoolean(t *testing.T) {
	if got := NewBoolean(true).String(); got != "true" {
		t.Fatalf("expected true, got %q", got)
	}
	if got := NewBoolean(false).String(); got != "false" {
		t.Fatalf("expected false, got %q", got)
	}
}

func TestBooleanFromString(t *testing.T) {
	for _, input := range []string{"true", "TRUE", "TrUe"} {
		b, err := BooleanFromString(input)
		if err != nil || !bool(b) {
			t.Fatalf("expected %q to parse true, got %v %v", input, b, err)
		}
	}
	b, err := BooleanFromString("False")
	if err != nil || bool(b) {
		t.Fatalf("expected False to parse false, got %v %v", b, err)
	}
	for _, input := range []string{"", "yes", "1"} {
		if _, err := BooleanFromString(input); !errors.Is(err, ErrInvalidValue) {
			t.Fatalf("expected ErrInvalidValue for %q, got %v", input, err)
		}
	}
}

// --- Strings ---

func TestNewBasicString(t *testing.T) {
	s, err := NewBasicString(`tab\t and \u00E9`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Type != StrBasic {
		t.Fatalf("expected basic type, got %s", s.Type)
	}
	if got := s.String(); got != `"tab\t and \u00E9"` {
		t.Fatalf("unexpected rendering: %q", got)
	}
}

func TestNewBasicString_Rejects(t *testing.T) {
	inputs := []string{
		`say "hi"`,      // unescaped quote ends the string early
		"line\nbreak",   // newline needs the multi-line form
		"ctrl\x01 char", // control characters are never allowed
		`bad \q escape`, // unknown escape
	}
	for _, input := range inputs {
		if _, err := NewBasicString(input); !errors.Is(err, ErrInvalidValue) {
			t.Fatalf("expected ErrInvalidValue for %q, got %v", input, err)
		}
	}
}

func TestNewMLBasicString(t *testing.T) {
	s, err := NewMLBasicString("line one\nline two")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := s.String(); got != "\"\"\"line one\nline two\"\"\"" {
		t.Fatalf("unexpected rendering: %q", got)
	}
}

func TestNewLiteralString(t *testing.T) {
	s, err := NewLiteralString(`C:\Users\nodejs`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := s.String(); got != `'C:\Users\nodejs'` {
		t.Fatalf("unexpected rendering: %q", got)
	}
	if _, err := NewLiteralString("it's"); !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("expected a bare quote to be rejected, got %v", err)
	}
	if _, err := NewLiteralString("line\nbreak"); err == nil {
		t.Fatal("expected a newline to be rejected")
	}
}

func TestNewMLLiteralString(t *testing.T) {
	s, err := NewMLLiteralString("a\nb")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := s.String(); got != "'''a\nb'''" {
		t.Fatalf("unexpected rendering: %q", got)
	}
	if _, err := NewMLLiteralString("a'''b"); err == nil {
		t.Fatal("expected an embedded terminator to be rejected")
	}
}

func TestStrType_String(t *testing.T) {
	cases := map[StrType]string{
		StrBasic:     "basic",
		StrMLBasic:   "ml-basic",
		StrLiteral:   "literal",
		StrMLLiteral: "ml-literal",
	}
	for st, want := range cases {
		if st.String() != want {
			t.Fatalf("expected %q, got %q", want, st.String())
		}
	}
}

// --- Containers ---

func TestArrayString(t *testing.T) {
	lit, err := NewLiteralString("barbaz")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	a := Array{
		NewInteger(3000),
		Array{NewInteger(40000), NewFloat(50.5)},
		lit,
	}
	if got := a.String(); got != "[3000, [40000, 50.5], 'barbaz']" {
		t.Fatalf("unexpected rendering: %q", got)
	}
	if !a.Validate() {
		t.Fatal("expected array to validate")
	}
}

func TestArrayValidate_Rejects(t *testing.T) {
	if (Array{NewInteger(1), nil}).Validate() {
		t.Fatal("expected nil element to fail validation")
	}
	if (Array{Integer{Text: "0123"}}).Validate() {
		t.Fatal("expected invalid element to fail validation")
	}
}

func TestInlineTableString(t *testing.T) {
	it := InlineTable{
		{Key: "x", Val: NewInteger(1)},
		{Key: `"dotted.key"`, Val: NewBoolean(true)},
	}
	if got := it.String(); got != `{x = 1, "dotted.key" = true}` {
		t.Fatalf("unexpected rendering: %q", got)
	}
	if !it.Validate() {
		t.Fatal("expected inline table to validate")
	}
}

func TestInlineTableValidate_Rejects(t *testing.T) {
	if (InlineTable{{Key: "has space", Val: NewInteger(1)}}).Validate() {
		t.Fatal("expected an unparseable key to fail validation")
	}
	if (InlineTable{{Key: "", Val: NewInteger(1)}}).Validate() {
		t.Fatal("expected an empty key to fail validation")
	}
	if (InlineTable{{Key: "ok", Val: nil}}).Validate() {
		t.Fatal("expected a nil value to fail validation")
	}
}

func TestTableMarker(t *testing.T) {
	if Table{}.String() != "" {
		t.Fatal("table markers carry no text")
	}
	if !(Table{}).Validate() {
		t.Fatal("table markers always validate")
	}
}

// --- Snapshot semantics ---

func TestValuesDetachFromDocument(t *testing.T) {
	d := parseFull(t, "x = [1, 2]\n")
	arr, ok := d.GetValue("x").(Array)
	if !ok {
		t.Fatalf("expected Array, got %T", d.GetValue("x"))
	}
	if !d.SetValue("x[0]", NewInteger(9)) {
		t.Fatal("expected the element write to succeed")
	}
	if arr[0].String() != "1" {
		t.Fatalf("snapshot should not track later edits, got %s", arr[0])
	}
	if got := d.GetValue("x[0]").String(); got != "9" {
		t.Fatalf("expected 9 after the write, got %q", got)
	}
}
