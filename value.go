package tomllib

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// StrType identifies which of the four TOML string forms a String uses.
type StrType int

const (
	StrBasic StrType = iota
	StrMLBasic
	StrLiteral
	StrMLLiteral
)

func (t StrType) String() string {
	switch t {
	case StrBasic:
		return "basic"
	case StrMLBasic:
		return "ml-basic"
	case StrLiteral:
		return "literal"
	case StrMLLiteral:
		return "ml-literal"
	}
	return "unknown"
}

// Value is a snapshot of a TOML value, detached from the document it came
// from. String renders the canonical TOML form. Validate reports whether
// the value would render as valid TOML.
type Value interface {
	String() string
	Validate() bool
	isValue()
}

// Integer preserves the source text of an integer, so formats like 0xFF
// and 1_000 survive a get/set round trip.
type Integer struct {
	Text string
}

func (Integer) isValue() {}

func (i Integer) String() string { return i.Text }

func (i Integer) Validate() bool {
	clean := strings.ReplaceAll(i.Text, "_", "")
	if clean == "" || isSpecialFloat(clean) || !looksLikeNumber(i.Text) {
		return false
	}
	return classifyNumber(i.Text) == TokInteger && validateNumberText(i.Text) == ""
}

// NewInteger builds an Integer from an int64.
func NewInteger(v int64) Integer {
	return Integer{Text: strconv.FormatInt(v, 10)}
}

// IntegerFromString builds an Integer from TOML integer text, which may
// use underscores or a hex, octal or binary prefix.
func IntegerFromString(s string) (Integer, error) {
	i := Integer{Text: s}
	if !i.Validate() {
		return Integer{}, fmt.Errorf("%w: invalid integer %q", ErrInvalidValue, s)
	}
	return i, nil
}

// Float preserves the source text of a float.
type Float struct {
	Text string
}

func (Float) isValue() {}

func (f Float) String() string { return f.Text }

func (f Float) Validate() bool {
	clean := strings.ReplaceAll(f.Text, "_", "")
	if isSpecialFloat(clean) {
		return validateUnderscores(f.Text) == ""
	}
	if !looksLikeNumber(f.Text) {
		return false
	}
	return classifyNumber(f.Text) == TokFloat && validateNumberText(f.Text) == ""
}

// NewFloat builds a Float from a float64. Infinities and NaN map to the
// TOML words inf, -inf and nan.
func NewFloat(v float64) Float {
	switch {
	case math.IsInf(v, 1):
		return Float{Text: "inf"}
	case math.IsInf(v, -1):
		return Float{Text: "-inf"}
	case math.IsNaN(v):
		return Float{Text: "nan"}
	}
	s := strconv.FormatFloat(v, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return Float{Text: s}
}

// FloatFromString builds a Float from TOML float text.
func FloatFromString(s string) (Float, error) {
	f := Float{Text: s}
	if !f.Validate() {
		return Float{}, fmt.Errorf("%w: invalid float %q", ErrInvalidValue, s)
	}
	return f, nil
}

// Boolean is a TOML boolean value.
type Boolean bool

func (Boolean) isValue() {}

func (b Boolean) String() string {
	if b {
		return "true"
	}
	return "false"
}

func (b Boolean) Validate() bool { return true }

// NewBoolean builds a Boolean.
func NewBoolean(v bool) Boolean { return Boolean(v) }

// BooleanFromString builds a Boolean from text, ignoring case.
func BooleanFromString(s string) (Boolean, error) {
	switch strings.ToLower(s) {
	case "true":
		return Boolean(true), nil
	case "false":
		return Boolean(false), nil
	}
	return Boolean(false), fmt.Errorf("%w: invalid boolean %q", ErrInvalidValue, s)
}

// String is a TOML string value. Content holds the text between the
// quotes exactly as written, escapes included.
type String struct {
	Content string
	Type    StrType
}

func (String) isValue() {}

func (s String) String() string {
	switch s.Type {
	case StrMLBasic:
		return `"""` + s.Content + `"""`
	case StrLiteral:
		return "'" + s.Content + "'"
	case StrMLLiteral:
		return "'''" + s.Content + "'''"
	}
	return `"` + s.Content + `"`
}

func (s String) Validate() bool {
	want := TokBasicString
	switch s.Type {
	case StrMLBasic:
		want = TokMLBasicString
	case StrLiteral:
		want = TokLiteralString
	case StrMLLiteral:
		want = TokMLLiteralString
	}
	return validRenderedString(s.String(), want)
}

// validRenderedString re-lexes a rendered string and checks that a single
// token of the wanted type covers all of it. This catches content that
// would terminate the string early, like a bare quote.
func validRenderedString(rendered string, want TokenType) bool {
	lx := newLexer(rendered)
	lx.valueMode = true
	tok := lx.Next()
	if tok.Type != want || tok.Text != rendered {
		return false
	}
	return validateStringText(rendered) == ""
}

// NewBasicString builds a basic (double-quoted) String. Content is used
// as written, so escape sequences must already be escaped.
func NewBasicString(content string) (String, error) {
	return newStringValue(content, StrBasic)
}

// NewMLBasicString builds a multi-line basic String.
func NewMLBasicString(content string) (String, error) {
	return newStringValue(content, StrMLBasic)
}

// NewLiteralString builds a literal (single-quoted) String.
func NewLiteralString(content string) (String, error) {
	return newStringValue(content, StrLiteral)
}

// NewMLLiteralString builds a multi-line literal String.
func NewMLLiteralString(content string) (String, error) {
	return newStringValue(content, StrMLLiteral)
}

func newStringValue(content string, st StrType) (String, error) {
	s := String{Content: content, Type: st}
	if !s.Validate() {
		return String{}, fmt.Errorf("%w: invalid %s string content %q",
			ErrInvalidValue, st, content)
	}
	return s, nil
}

// Array is an ordered list of values.
type Array []Value

func (Array) isValue() {}

func (a Array) String() string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, v := range a {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(v.String())
	}
	sb.WriteByte(']')
	return sb.String()
}

func (a Array) Validate() bool {
	for _, v := range a {
		if v == nil || !v.Validate() {
			return false
		}
	}
	return true
}

// Pair is one key/value entry of an InlineTable. Key holds the canonical
// key text: bare where possible, quoted otherwise, dotted parts joined
// with dots.
type Pair struct {
	Key string
	Val Value
}

// InlineTable is an ordered list of key/value pairs.
type InlineTable []Pair

func (InlineTable) isValue() {}

func (t InlineTable) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, p := range t {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(p.Key)
		sb.WriteString(" = ")
		sb.WriteString(p.Val.String())
	}
	sb.WriteByte('}')
	return sb.String()
}

func (t InlineTable) Validate() bool {
	for _, p := range t {
		if p.Val == nil || !p.Val.Validate() {
			return false
		}
		if _, _, err := parseRawKey(p.Key); err != nil {
			return false
		}
	}
	return true
}

// Table marks a key that names a standard table. It carries no data; the
// table's entries are reached through their own keys.
type Table struct{}

func (Table) isValue() {}

func (Table) String() string { return "" }

func (Table) Validate() bool { return true }

// --- Node to value ---

func detectStrType(raw string) StrType {
	switch {
	case strings.HasPrefix(raw, `"""`):
		return StrMLBasic
	case strings.HasPrefix(raw, "'''"):
		return StrMLLiteral
	case len(raw) > 0 && raw[0] == '\'':
		return StrLiteral
	}
	return StrBasic
}

func stringInterior(raw string, st StrType) string {
	switch st {
	case StrMLBasic, StrMLLiteral:
		if len(raw) < 6 {
			return ""
		}
		return trimMLLeadingNewline(raw[3 : len(raw)-3])
	}
	if len(raw) < 2 {
		return ""
	}
	return raw[1 : len(raw)-1]
}

// nodeToValue snapshots a CST value node into a detached Value.
func nodeToValue(n Node) Value {
	switch node := n.(type) {
	case *NumberNode:
		clean := strings.ReplaceAll(node.Text(), "_", "")
		if isSpecialFloat(clean) || classifyNumber(node.Text()) == TokFloat {
			return Float{Text: node.Text()}
		}
		return Integer{Text: node.Text()}
	case *BooleanNode:
		return Boolean(node.Text() == "true")
	case *StringNode:
		st := detectStrType(node.Text())
		return String{Content: stringInterior(node.Text(), st), Type: st}
	case *DateTimeNode:
		return dtComponents(node.Text())
	case *ArrayNode:
		elems := node.Elements()
		arr := make(Array, 0, len(elems))
		for _, e := range elems {
			arr = append(arr, nodeToValue(e))
		}
		return arr
	case *InlineTableNode:
		entries := node.Entries()
		tbl := make(InlineTable, 0, len(entries))
		for _, kv := range entries {
			tbl = append(tbl, Pair{Key: canonKeyParts(kv.KeyParts), Val: nodeToValue(kv.Val)})
		}
		return tbl
	}
	return nil
}

// elementKind names a value's type for array homogeneity checks.
func elementKind(v Value) string {
	switch v.(type) {
	case Integer:
		return "integer"
	case Float:
		return "float"
	case Boolean:
		return "boolean"
	case String:
		return "string"
	case DateTime:
		return "datetime"
	case Array:
		return "array"
	case InlineTable:
		return "inline-table"
	case Table:
		return "table"
	}
	return "unknown"
}

// --- Value to node ---

// newValueNode builds a canonical CST node for a value. Containers get
// the canonical layout: comma-space separators, no trailing comma.
func newValueNode(v Value, line, col int) Node {
	switch val := v.(type) {
	case Integer, Float:
		return newNumberNode(v.String(), line, col)
	case Boolean:
		return newBooleanNode(v.String(), line, col)
	case String:
		return newStringNode(v.String(), line, col)
	case DateTime:
		return newDateTimeNode(v.String(), line, col)
	case Array:
		arr := &ArrayNode{baseNode: baseNode{nodeType: NodeArray, line: line, col: col}}
		items := []Node{newPunctNode("[", line, col)}
		for i, e := range val {
			if i > 0 {
				items = append(items,
					newPunctNode(",", line, col),
					newWhitespaceNode(" ", line, col))
			}
			items = append(items, newValueNode(e, line, col))
		}
		items = append(items, newPunctNode("]", line, col))
		arr.Items = items
		for _, it := range arr.Items {
			setNodeParent(it, arr)
		}
		return arr
	case InlineTable:
		tbl := &InlineTableNode{baseNode: baseNode{nodeType: NodeInlineTable, line: line, col: col}}
		items := []Node{newPunctNode("{", line, col)}
		for i, p := range val {
			if i > 0 {
				items = append(items,
					newPunctNode(",", line, col),
					newWhitespaceNode(" ", line, col))
			}
			items = append(items, newPairNode(p, line, col))
		}
		items = append(items, newPunctNode("}", line, col))
		tbl.Items = items
		for _, it := range tbl.Items {
			setNodeParent(it, tbl)
		}
		return tbl
	}
	return nil
}

func newPairNode(p Pair, line, col int) *KeyValue {
	parts, _, err := parseRawKey(p.Key)
	if err != nil {
		parts = []KeyPart{{Text: p.Key, Unquoted: p.Key}}
	}
	kv := &KeyValue{
		baseNode: baseNode{nodeType: NodeKeyValue, line: line, col: col},
		KeyParts: parts,
		RawKey:   p.Key,
		PreEq:    " ",
		PostEq:   " ",
		Val:      newValueNode(p.Val, line, col),
	}
	setNodeParent(kv.Val, kv)
	return kv
}
