package tomllib

import (
	"errors"
	"math"
	"reflect"
	"strconv"
	"testing"
)

// --- GetValue ---

func TestGetValue_TopLevel(t *testing.T) {
	d := parseFull(t, "name = \"Alice\"\nage = 30\n")
	if got := d.GetValue("name").String(); got != `"Alice"` {
		t.Fatalf("expected quoted Alice, got %q", got)
	}
	if got := d.GetValue("age").String(); got != "30" {
		t.Fatalf("expected 30, got %q", got)
	}
}

func TestGetValue_Missing(t *testing.T) {
	d := parseFull(t, "a = 1\n")
	if v := d.GetValue("nope"); v != nil {
		t.Fatalf("expected nil for a missing key, got %v", v)
	}
	if v := d.GetValue("a.b"); v != nil {
		t.Fatalf("expected nil below a scalar, got %v", v)
	}
	if v := d.GetValue("a..b"); v != nil {
		t.Fatalf("malformed paths match nothing, got %v", v)
	}
	if v := d.GetValue("[0]"); v != nil {
		t.Fatalf("expected nil for a root index, got %v", v)
	}
}

func TestGetValue_RootIsTable(t *testing.T) {
	d := parseFull(t, "a = 1\n")
	if _, ok := d.GetValue("").(Table); !ok {
		t.Fatalf("expected the root to read as a table, got %T", d.GetValue(""))
	}
}

func TestGetValue_Tables(t *testing.T) {
	d := parseFull(t, "[server]\nhost = \"localhost\"\n[server.tls]\nenabled = true\n")
	if _, ok := d.GetValue("server").(Table); !ok {
		t.Fatalf("expected a table marker, got %T", d.GetValue("server"))
	}
	if _, ok := d.GetValue("server.tls").(Table); !ok {
		t.Fatalf("expected a table marker, got %T", d.GetValue("server.tls"))
	}
	if got := d.GetValue("server.tls.enabled").String(); got != "true" {
		t.Fatalf("expected true, got %q", got)
	}
}

func TestGetValue_ImplicitTable(t *testing.T) {
	d := parseFull(t, "[a.b]\nx = 1\n")
	if _, ok := d.GetValue("a").(Table); !ok {
		t.Fatalf("implicit tables still read as tables, got %T", d.GetValue("a"))
	}
}

func TestGetValue_DottedKeys(t *testing.T) {
	d := parseFull(t, "a.b.c = 1\n")
	if got := d.GetValue("a.b.c").String(); got != "1" {
		t.Fatalf("expected 1, got %q", got)
	}
	if _, ok := d.GetValue("a.b").(Table); !ok {
		t.Fatalf("dotted keys create tables, got %T", d.GetValue("a.b"))
	}
}

func TestGetValue_QuotedSegments(t *testing.T) {
	d := parseFull(t, "site.\"google.com\" = true\n'literal key' = 1\n\"quoted key\" = 2\n")
	if got := d.GetValue(`site."google.com"`).String(); got != "true" {
		t.Fatalf("expected true, got %q", got)
	}
	if got := d.GetValue("'literal key'").String(); got != "1" {
		t.Fatalf("expected 1, got %q", got)
	}
	if got := d.GetValue(`"quoted key"`).String(); got != "2" {
		t.Fatalf("expected 2, got %q", got)
	}
}

func TestGetValue_ArrayElements(t *testing.T) {
	d := parseFull(t, "x = [1, \"two\", [true]]\n")
	arr, ok := d.GetValue("x").(Array)
	if !ok || len(arr) != 3 {
		t.Fatalf("expected a 3-element array, got %v", d.GetValue("x"))
	}
	if got := d.GetValue("x[1]").String(); got != `"two"` {
		t.Fatalf("expected quoted two, got %q", got)
	}
	if got := d.GetValue("x[2][0]").String(); got != "true" {
		t.Fatalf("expected true, got %q", got)
	}
	if v := d.GetValue("x[3]"); v != nil {
		t.Fatalf("expected nil past the end, got %v", v)
	}
}

func TestGetValue_InlineTable(t *testing.T) {
	d := parseFull(t, "point = { x = 1, y = -2 }\n")
	it, ok := d.GetValue("point").(InlineTable)
	if !ok || len(it) != 2 {
		t.Fatalf("expected a 2-pair inline table, got %v", d.GetValue("point"))
	}
	if got := d.GetValue("point.y").String(); got != "-2" {
		t.Fatalf("expected -2, got %q", got)
	}
}

func TestGetValue_ArrayOfTables(t *testing.T) {
	d := parseFull(t, "[[p]]\nx = 1\n[[p]]\ny = 2\n")
	if v := d.GetValue("p"); v != nil {
		t.Fatalf("an array of tables has no single value, got %v", v)
	}
	if _, ok := d.GetValue("p[0]").(Table); !ok {
		t.Fatalf("expected a table marker for p[0], got %T", d.GetValue("p[0]"))
	}
	if got := d.GetValue("p[1].y").String(); got != "2" {
		t.Fatalf("expected 2, got %q", got)
	}
}

func TestHasValue(t *testing.T) {
	d := parseFull(t, "a = 1\n[t]\nb = 2\n")
	for _, path := range []string{"a", "t", "t.b", ""} {
		if !d.HasValue(path) {
			t.Fatalf("expected HasValue(%q) to be true", path)
		}
	}
	for _, path := range []string{"missing", "t.c", "a..b"} {
		if d.HasValue(path) {
			t.Fatalf("expected HasValue(%q) to be false", path)
		}
	}
}

// --- GetChildren ---

func TestGetChildren_Root(t *testing.T) {
	d := parseFull(t, "x = 1\ny = 2\n[t]\nz = 3\n")
	ch := d.GetChildren("")
	if !reflect.DeepEqual(ch, Keys{"x", "y", "t"}) {
		t.Fatalf("unexpected root children: %v", ch)
	}
}

func TestGetChildren_Table(t *testing.T) {
	d := parseFull(t, "[server]\nhost = \"h\"\nport = 1\n[server.tls]\nok = true\n")
	ch := d.GetChildren("server")
	if !reflect.DeepEqual(ch, Keys{"host", "port", "tls"}) {
		t.Fatalf("unexpected children: %v", ch)
	}
}

func TestGetChildren_QuotedChildKey(t *testing.T) {
	d := parseFull(t, "site.\"google.com\" = true\n")
	ch := d.GetChildren("site")
	if !reflect.DeepEqual(ch, Keys{`"google.com"`}) {
		t.Fatalf("unexpected children: %v", ch)
	}
	paths := ch.ChildKeys("site")
	if len(paths) != 1 || paths[0] != `site."google.com"` {
		t.Fatalf("unexpected child paths: %v", paths)
	}
	if got := d.GetValue(paths[0]).String(); got != "true" {
		t.Fatalf("child paths should feed back into GetValue, got %q", got)
	}
}

func TestGetChildren_Array(t *testing.T) {
	d := parseFull(t, "x = [10, 20, 30]\n")
	ch := d.GetChildren("x")
	cnt, ok := ch.(Count)
	if !ok || int(cnt) != 3 {
		t.Fatalf("expected Count(3), got %v", ch)
	}
	want := []string{"x[0]", "x[1]", "x[2]"}
	if got := ch.ChildKeys("x"); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected element paths: %v", got)
	}
}

func TestGetChildren_EmptyContainers(t *testing.T) {
	d := parseFull(t, "arr = []\nit = {}\n")
	ch := d.GetChildren("arr")
	if ch == nil {
		t.Fatal("an empty array is still a container")
	}
	if cnt, ok := ch.(Count); !ok || int(cnt) != 0 {
		t.Fatalf("expected Count(0), got %v", ch)
	}
	ch = d.GetChildren("it")
	if ch == nil {
		t.Fatal("an empty inline table is still a container")
	}
	if keys, ok := ch.(Keys); !ok || len(keys) != 0 {
		t.Fatalf("expected no keys, got %v", ch)
	}
}

func TestGetChildren_ArrayOfTables(t *testing.T) {
	d := parseFull(t, "[[p]]\nx = 1\n[[p]]\ny = 2\n")
	ch := d.GetChildren("p")
	cnt, ok := ch.(Count)
	if !ok || int(cnt) != 2 {
		t.Fatalf("expected Count(2), got %v", ch)
	}
	if got := ch.ChildKeys("p"); !reflect.DeepEqual(got, []string{"p[0]", "p[1]"}) {
		t.Fatalf("unexpected element paths: %v", got)
	}
	if !reflect.DeepEqual(d.GetChildren("p[1]"), Keys{"y"}) {
		t.Fatalf("unexpected element children: %v", d.GetChildren("p[1]"))
	}
}

func TestGetChildren_InlineTable(t *testing.T) {
	d := parseFull(t, "point = { x = 1, y = -2 }\n")
	if !reflect.DeepEqual(d.GetChildren("point"), Keys{"x", "y"}) {
		t.Fatalf("unexpected children: %v", d.GetChildren("point"))
	}
}

func TestGetChildren_ScalarAndMissing(t *testing.T) {
	d := parseFull(t, "a = 1\n")
	if ch := d.GetChildren("a"); ch != nil {
		t.Fatalf("scalars have no children, got %v", ch)
	}
	if ch := d.GetChildren("missing"); ch != nil {
		t.Fatalf("missing keys have no children, got %v", ch)
	}
}

func TestHasChildren(t *testing.T) {
	d := parseFull(t, "a = 1\narr = []\n[t]\nb = 2\n")
	for _, path := range []string{"", "arr", "t"} {
		if !d.HasChildren(path) {
			t.Fatalf("expected HasChildren(%q) to be true", path)
		}
	}
	for _, path := range []string{"a", "t.b", "missing"} {
		if d.HasChildren(path) {
			t.Fatalf("expected HasChildren(%q) to be false", path)
		}
	}
}

func TestCombineKeys(t *testing.T) {
	if got := CombineKeys("", "a"); got != "a" {
		t.Fatalf("expected a, got %q", got)
	}
	if got := CombineKeys("a", "b"); got != "a.b" {
		t.Fatalf("expected a.b, got %q", got)
	}
	if got := CombineKeysIndex("a", 3); got != "a[3]" {
		t.Fatalf("expected a[3], got %q", got)
	}
}

// --- Key path validation ---

func TestValidateKeyPath(t *testing.T) {
	valid := []string{"", "a", "a.b", `a."b.c"`, "'lit'", "a[0].b", "a[0][1]", "[0]", "[0].a"}
	for _, path := range valid {
		if err := ValidateKeyPath(path); err != nil {
			t.Fatalf("expected %q to validate, got %v", path, err)
		}
	}
	invalid := []string{"a..b", ".a", "a.", `"unclosed`, "a[", "a[x]", "a[-1]", "a.[0]", "a b"}
	for _, path := range invalid {
		if err := ValidateKeyPath(path); !errors.Is(err, ErrMalformedKeyPath) {
			t.Fatalf("expected ErrMalformedKeyPath for %q, got %v", path, err)
		}
	}
}

// --- CST lookups ---

func TestGet_ReturnsValueNode(t *testing.T) {
	d := parseFull(t, "x = [1, 2]\ns = \"v\"\n")
	if _, ok := d.Get("x").(*ArrayNode); !ok {
		t.Fatalf("expected *ArrayNode, got %T", d.Get("x"))
	}
	if _, ok := d.Get("s").(*StringNode); !ok {
		t.Fatalf("expected *StringNode, got %T", d.Get("s"))
	}
	if n := d.Get("missing"); n != nil {
		t.Fatalf("expected nil, got %v", n)
	}
}

func TestGet_Tables(t *testing.T) {
	d := parseFull(t, "[t]\nx = 1\n[a.b]\ny = 2\n")
	if _, ok := d.Get("t").(*TableNode); !ok {
		t.Fatalf("expected *TableNode, got %T", d.Get("t"))
	}
	if n := d.Get("a"); n != nil {
		t.Fatalf("implicit tables have no node, got %v", n)
	}
	if d.Table("t") == nil {
		t.Fatal("expected Table to find t")
	}
	if d.Table("a") != nil {
		t.Fatal("Table should not match an implicit table")
	}
	if d.Table("t.x") != nil {
		t.Fatal("Table should not match a key-value")
	}
}

func TestGet_ArrayOfTablesOccurrences(t *testing.T) {
	d := parseFull(t, "[[p]]\nx = 1\n[[p]]\ny = 2\n")
	occ, ok := d.Get("p[1]").(*ArrayOfTables)
	if !ok {
		t.Fatalf("expected *ArrayOfTables, got %T", d.Get("p[1]"))
	}
	if occ.Get("y") == nil {
		t.Fatal("expected the second occurrence to hold y")
	}
	if _, ok := d.Get("p").(*ArrayOfTables); !ok {
		t.Fatalf("expected the array name to resolve to an occurrence, got %T", d.Get("p"))
	}
}

func TestGetKeyValue(t *testing.T) {
	d := parseFull(t, "port = 8080\n[t]\nx = 1\n")
	kv := d.GetKeyValue("port")
	if kv == nil || kv.RawKey != "port" {
		t.Fatalf("unexpected key-value: %+v", kv)
	}
	if d.GetKeyValue("t") != nil {
		t.Fatal("tables are not key-values")
	}
	if d.GetKeyValue("missing") != nil {
		t.Fatal("expected nil for a missing key")
	}
}

// --- Relative lookups ---

func TestTableNode_Get(t *testing.T) {
	d := parseFull(t, "[t]\nhost = \"h\"\na.b = 1\npoint = {x = 7}\n")
	tbl := d.Table("t")
	if tbl == nil {
		t.Fatal("expected to find t")
	}
	kv := tbl.Get("host")
	if kv == nil || kv.RawKey != "host" {
		t.Fatalf("unexpected key-value: %+v", kv)
	}
	if tbl.Get("a.b") == nil {
		t.Fatal("expected the dotted key to match")
	}
	if tbl.Get("point.x") == nil {
		t.Fatal("expected descent into the inline table")
	}
	if tbl.Get("missing") != nil {
		t.Fatal("expected nil for a missing key")
	}
	if tbl.Get("") != nil {
		t.Fatal("expected nil for an empty key")
	}
}

func TestTableNode_Get_QuotedSegment(t *testing.T) {
	d := parseFull(t, "[dog]\n\"tater.man\".type = \"pug\"\n")
	kv := d.Table("dog").Get(`"tater.man".type`)
	if kv == nil {
		t.Fatal("expected the quoted segment to match")
	}
	s, ok := kv.Val.(*StringNode)
	if !ok || s.Value() != "pug" {
		t.Fatalf("unexpected value: %v", kv.Val)
	}
}

func TestArrayOfTables_Get(t *testing.T) {
	d := parseFull(t, "[[p]]\nname = \"first\"\n")
	occ, ok := d.Get("p[0]").(*ArrayOfTables)
	if !ok {
		t.Fatalf("expected *ArrayOfTables, got %T", d.Get("p[0]"))
	}
	if occ.Get("name") == nil {
		t.Fatal("expected to find name")
	}
	if occ.Get("missing") != nil {
		t.Fatal("expected nil for a missing key")
	}
}

func TestInlineTableNode_Get(t *testing.T) {
	d := parseFull(t, "point = {x = 1, nest = {y = 2}}\n")
	it, ok := d.Get("point").(*InlineTableNode)
	if !ok {
		t.Fatalf("expected *InlineTableNode, got %T", d.Get("point"))
	}
	if it.Get("x") == nil {
		t.Fatal("expected to find x")
	}
	if it.Get("nest.y") == nil {
		t.Fatal("expected descent into the nested inline table")
	}
}

// --- Node value extraction ---

func TestStringNode_Value(t *testing.T) {
	input := "tab = \"a\\tb\"\n" +
		"uni = \"caf\\u00E9\"\n" +
		"hex = \"\\x41\\x42\"\n" +
		"esc = \"\\e[0m\"\n" +
		"wide = \"\\U0001F600\"\n" +
		"mixed = \"say \\\"hi\\\" \\\\\"\n" +
		"lit = 'raw\\no'\n" +
		"ml = \"\"\"\nline one\nline two\"\"\"\n" +
		"fold = \"\"\"fold \\\n    me\"\"\"\n" +
		"mllit = '''\nkeep \\escapes'''\n"
	d := parseFull(t, input)

	cases := []struct {
		key, want string
	}{
		{"tab", "a\tb"},
		{"uni", "café"},
		{"hex", "AB"},
		{"esc", "\x1b[0m"},
		{"wide", "\U0001F600"},
		{"mixed", `say "hi" \`},
		{"lit", `raw\no`},
		{"ml", "line one\nline two"},
		{"fold", "fold me"},
		{"mllit", `keep \escapes`},
	}
	for _, c := range cases {
		n, ok := d.Get(c.key).(*StringNode)
		if !ok {
			t.Fatalf("%s: expected *StringNode, got %T", c.key, d.Get(c.key))
		}
		if got := n.Value(); got != c.want {
			t.Fatalf("%s: expected %q, got %q", c.key, c.want, got)
		}
	}
}

func TestNumberNode_Int(t *testing.T) {
	input := "plain = 42\npos = +42\nneg = -17\nsep = 1_000\n" +
		"hex = 0xFF\noct = 0o755\nbin = 0b1010\n"
	d := parseFull(t, input)

	cases := []struct {
		key  string
		want int64
	}{
		{"plain", 42},
		{"pos", 42},
		{"neg", -17},
		{"sep", 1000},
		{"hex", 255},
		{"oct", 493},
		{"bin", 10},
	}
	for _, c := range cases {
		n := d.Get(c.key).(*NumberNode)
		got, err := n.Int()
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", c.key, err)
		}
		if got != c.want {
			t.Fatalf("%s: expected %d, got %d", c.key, c.want, got)
		}
	}
}

func TestNumberNode_Int_Rejects(t *testing.T) {
	d := parseFull(t, "f = 3.14\ne = 1e3\ni = inf\n")
	for _, key := range []string{"f", "e", "i"} {
		if _, err := d.Get(key).(*NumberNode).Int(); !errors.Is(err, strconv.ErrSyntax) {
			t.Fatalf("%s: expected ErrSyntax, got %v", key, err)
		}
	}
}

func TestNumberNode_Int_Overflow(t *testing.T) {
	d := parseFull(t, "big = 9223372036854775808\n")
	if _, err := d.Get("big").(*NumberNode).Int(); !errors.Is(err, strconv.ErrRange) {
		t.Fatalf("expected ErrRange, got %v", err)
	}
}

func TestNumberNode_Float(t *testing.T) {
	input := "f = 3.14\nexp = 6.26e-34\nint = 42\nhex = 0x10\nsep = 1_000.5\n"
	d := parseFull(t, input)

	cases := []struct {
		key  string
		want float64
	}{
		{"f", 3.14},
		{"exp", 6.26e-34},
		{"int", 42},
		{"hex", 16},
		{"sep", 1000.5},
	}
	for _, c := range cases {
		got, err := d.Get(c.key).(*NumberNode).Float()
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", c.key, err)
		}
		if got != c.want {
			t.Fatalf("%s: expected %v, got %v", c.key, c.want, got)
		}
	}
}

func TestNumberNode_Float_Specials(t *testing.T) {
	d := parseFull(t, "p = inf\nn = -inf\nq = nan\n")
	if v, _ := d.Get("p").(*NumberNode).Float(); !math.IsInf(v, 1) {
		t.Fatalf("expected +inf, got %v", v)
	}
	if v, _ := d.Get("n").(*NumberNode).Float(); !math.IsInf(v, -1) {
		t.Fatalf("expected -inf, got %v", v)
	}
	if v, _ := d.Get("q").(*NumberNode).Float(); !math.IsNaN(v) {
		t.Fatalf("expected nan, got %v", v)
	}
}

func TestBooleanNode_Value(t *testing.T) {
	d := parseFull(t, "yes = true\nno = false\n")
	if !d.Get("yes").(*BooleanNode).Value() {
		t.Fatal("expected true")
	}
	if d.Get("no").(*BooleanNode).Value() {
		t.Fatal("expected false")
	}
}

func TestDateTimeNode_Value(t *testing.T) {
	d := parseFull(t, "odt = 1979-05-27T07:32:00Z\n")
	dt, err := d.Get("odt").(*DateTimeNode).Value()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := dt.String(); got != "1979-05-27T07:32:00Z" {
		t.Fatalf("unexpected datetime: %q", got)
	}
}

func TestDateTimeNode_Value_OutOfRange(t *testing.T) {
	d, res := Parse([]byte("d = 2024-02-30\n"))
	if res.State != FullError {
		t.Fatalf("expected FullError, got %s", res.State)
	}
	dt, err := d.Get("d").(*DateTimeNode).Value()
	if !errors.Is(err, ErrInvalidDateTime) {
		t.Fatalf("expected ErrInvalidDateTime, got %v", err)
	}
	// Components still come back as written.
	if dt.Date.Day != "30" {
		t.Fatalf("expected the day as written, got %q", dt.Date.Day)
	}
}
