package tomllib

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// --- Key path parsing ---

// pathSeg is one step of a parsed key path: a key name, or an array
// index when isIndex is set.
type pathSeg struct {
	name    string
	index   int
	isIndex bool
}

// parseKeyPath parses a key path like `servers."foo.com".ports[2]`.
// Segments are bare, basic-quoted or literal-quoted; each may be
// followed by one or more [n] indexes. Whitespace around dots is
// ignored. An empty path names the root table.
func parseKeyPath(path string) ([]pathSeg, error) {
	var segs []pathSeg
	i := skipPathWs(path, 0)
	if i >= len(path) {
		return nil, nil
	}
	for {
		if i >= len(path) {
			return nil, fmt.Errorf("%w: empty segment in %q", ErrMalformedKeyPath, path)
		}
		var (
			name  string
			err   error
			named = true
		)
		switch path[i] {
		case '"':
			name, i, err = pathBasicSeg(path, i)
		case '\'':
			name, i, err = pathLiteralSeg(path, i)
		case '[':
			// a positional segment may open the path; anywhere else it
			// must follow a name segment
			if len(segs) > 0 {
				return nil, fmt.Errorf("%w: index without key in %q", ErrMalformedKeyPath, path)
			}
			named = false
		default:
			name, i, err = pathBareSeg(path, i)
		}
		if err != nil {
			return nil, err
		}
		if named {
			segs = append(segs, pathSeg{name: name})
		}

		for i < len(path) && path[i] == '[' {
			var idx int
			idx, i, err = pathIndex(path, i)
			if err != nil {
				return nil, err
			}
			segs = append(segs, pathSeg{index: idx, isIndex: true})
		}

		i = skipPathWs(path, i)
		if i >= len(path) {
			break
		}
		if path[i] != '.' {
			return nil, fmt.Errorf("%w: unexpected %q in %q", ErrMalformedKeyPath, path[i], path)
		}
		i = skipPathWs(path, i+1)
	}
	return segs, nil
}

func skipPathWs(s string, i int) int {
	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	return i
}

func pathBareSeg(path string, i int) (string, int, error) {
	start := i
	for i < len(path) && isBareKeyChar(rune(path[i])) {
		i++
	}
	if i == start {
		return "", i, fmt.Errorf("%w: unexpected %q in %q", ErrMalformedKeyPath, path[i], path)
	}
	return path[start:i], i, nil
}

func pathBasicSeg(path string, i int) (string, int, error) {
	i++ // opening "
	start := i
	for i < len(path) {
		if path[i] == '\\' && i+1 < len(path) {
			i += 2
			continue
		}
		if path[i] == '"' {
			return parserProcessBasicEscapes(path[start:i]), i + 1, nil
		}
		i++
	}
	return "", i, fmt.Errorf("%w: unclosed quote in %q", ErrMalformedKeyPath, path)
}

func pathLiteralSeg(path string, i int) (string, int, error) {
	i++ // opening '
	start := i
	for i < len(path) {
		if path[i] == '\'' {
			return path[start:i], i + 1, nil
		}
		i++
	}
	return "", i, fmt.Errorf("%w: unclosed quote in %q", ErrMalformedKeyPath, path)
}

func pathIndex(path string, i int) (int, int, error) {
	i++ // opening [
	start := i
	for i < len(path) && isDecDigit(path[i]) {
		i++
	}
	if i == start || i >= len(path) || path[i] != ']' {
		return 0, i, fmt.Errorf("%w: bad index in %q", ErrMalformedKeyPath, path)
	}
	idx, err := strconv.Atoi(path[start:i])
	if err != nil {
		return 0, i, fmt.Errorf("%w: bad index in %q", ErrMalformedKeyPath, path)
	}
	return idx, i + 1, nil
}

// ValidateKeyPath reports whether a key path is well formed. The lookup
// methods treat malformed paths as not found; this surfaces the reason.
func ValidateKeyPath(path string) error {
	_, err := parseKeyPath(path)
	return err
}

// canonFromSegs renders parsed path segments in the canonical form the
// index is keyed by.
func canonFromSegs(segs []pathSeg) string {
	var sb strings.Builder
	for i, s := range segs {
		if s.isIndex {
			sb.WriteByte('[')
			sb.WriteString(strconv.Itoa(s.index))
			sb.WriteByte(']')
			continue
		}
		if i > 0 {
			sb.WriteByte('.')
		}
		sb.WriteString(canonSeg(s.name))
	}
	return sb.String()
}

func (d *Document) lookup(path string) *indexEntry {
	segs, err := parseKeyPath(path)
	if err != nil {
		return nil
	}
	return d.index[canonFromSegs(segs)]
}

// --- Indexed document queries ---

// GetValue returns a snapshot of the value at a key path, or nil when the
// path names nothing. Tables come back as the Table marker; array-of-tables
// names have no value, address their elements as name[i] instead.
func (d *Document) GetValue(path string) Value {
	e := d.lookup(path)
	switch {
	case e == nil:
		return nil
	case e.aot:
		return nil
	case e.table:
		return Table{}
	case e.node == nil:
		return nil
	}
	return nodeToValue(e.node)
}

// HasValue reports whether GetValue would return a value for the path.
func (d *Document) HasValue(path string) bool {
	return d.GetValue(path) != nil
}

// GetChildren describes what lives under a key path: Count for arrays and
// arrays of tables, Keys for tables and inline tables, nil for scalars and
// missing keys.
func (d *Document) GetChildren(path string) Children {
	e := d.lookup(path)
	if e == nil {
		return nil
	}
	switch {
	case e.aot:
		return Count(e.count)
	case e.table:
		return Keys(append([]string(nil), e.keys...))
	}
	switch n := e.node.(type) {
	case *ArrayNode:
		return Count(len(n.Elements()))
	case *InlineTableNode:
		return Keys(append([]string(nil), e.keys...))
	}
	return nil
}

// HasChildren reports whether the path names a container. Empty containers
// count: an empty table or array has children of length zero.
func (d *Document) HasChildren(path string) bool {
	return d.GetChildren(path) != nil
}

// Get returns the CST node a key path resolves to: the value node for a
// key-value, the TableNode for an explicit table, the ArrayOfTables
// occurrence for name[i]. Implicit tables and missing keys return nil.
func (d *Document) Get(path string) Node {
	e := d.lookup(path)
	if e == nil {
		return nil
	}
	return e.node
}

// GetKeyValue returns the KeyValue node that owns the value at a key
// path, or nil when the path does not name a key-value's value.
func (d *Document) GetKeyValue(path string) *KeyValue {
	e := d.lookup(path)
	if e == nil {
		return nil
	}
	return e.kv
}

// Table returns the TableNode at a key path, or nil when the path does
// not name an explicit table.
func (d *Document) Table(path string) *TableNode {
	e := d.lookup(path)
	if e == nil {
		return nil
	}
	t, _ := e.node.(*TableNode)
	return t
}

// --- Relative CST queries ---

// parseDottedPath parses a dotted key without index segments, for the
// node-level relative lookups. Malformed keys return nil, which matches
// nothing.
func parseDottedPath(path string) []string {
	segs, err := parseKeyPath(path)
	if err != nil {
		return nil
	}
	out := make([]string, 0, len(segs))
	for _, s := range segs {
		if s.isIndex {
			return nil
		}
		out = append(out, s.name)
	}
	return out
}

func matchKeyParts(parts []KeyPart, segs []string) bool {
	if len(parts) != len(segs) {
		return false
	}
	for i, p := range parts {
		if p.Unquoted != segs[i] {
			return false
		}
	}
	return true
}

// Get finds a KeyValue within the table's entries by dotted key.
// Returns nil if no matching key is found.
func (t *TableNode) Get(key string) *KeyValue {
	segs := parseDottedPath(key)
	return findInEntries(t.Entries, segs)
}

// Get finds a KeyValue within the array-of-tables' entries by dotted key.
// Returns nil if no matching key is found.
func (a *ArrayOfTables) Get(key string) *KeyValue {
	segs := parseDottedPath(key)
	return findInEntries(a.Entries, segs)
}

// Get finds a KeyValue within the inline table's entries by dotted key.
// Returns nil if no matching key is found.
func (n *InlineTableNode) Get(key string) *KeyValue {
	segs := parseDottedPath(key)
	return findInKVEntries(n.Entries(), segs)
}

func findInEntries(entries []Node, segs []string) *KeyValue {
	if len(segs) == 0 {
		return nil
	}
	for _, e := range entries {
		if kv, ok := e.(*KeyValue); ok {
			if matchKeyParts(kv.KeyParts, segs) {
				return kv
			}
		}
	}
	// Prefix match into inline tables.
	for _, e := range entries {
		if kv, ok := e.(*KeyValue); ok {
			n := len(kv.KeyParts)
			if n < len(segs) && matchKeyParts(kv.KeyParts, segs[:n]) {
				if it, ok := kv.Val.(*InlineTableNode); ok {
					if found := findInKVEntries(it.Entries(), segs[n:]); found != nil {
						return found
					}
				}
			}
		}
	}
	return nil
}

func findInKVEntries(entries []*KeyValue, segs []string) *KeyValue {
	if len(segs) == 0 {
		return nil
	}
	for _, kv := range entries {
		if matchKeyParts(kv.KeyParts, segs) {
			return kv
		}
	}
	// Prefix match into nested inline tables.
	for _, kv := range entries {
		n := len(kv.KeyParts)
		if n < len(segs) && matchKeyParts(kv.KeyParts, segs[:n]) {
			if it, ok := kv.Val.(*InlineTableNode); ok {
				if found := findInKVEntries(it.Entries(), segs[n:]); found != nil {
					return found
				}
			}
		}
	}
	return nil
}

// --- Value extraction methods ---

// Value returns the unquoted, unescaped string content.
func (n *StringNode) Value() string {
	raw := n.text
	if len(raw) < 2 {
		return raw
	}
	if strings.HasPrefix(raw, `"""`) && len(raw) >= 6 {
		return unquoteMultiLineBasic(raw)
	}
	if strings.HasPrefix(raw, "'''") && len(raw) >= 6 {
		return unquoteMultiLineLiteral(raw)
	}
	if raw[0] == '\'' {
		return raw[1 : len(raw)-1]
	}
	return parserProcessBasicEscapes(raw[1 : len(raw)-1])
}

func unquoteMultiLineBasic(raw string) string {
	inner := trimMLLeadingNewline(raw[3 : len(raw)-3])
	return processMultiLineBasicEscapes(inner)
}

func unquoteMultiLineLiteral(raw string) string {
	return trimMLLeadingNewline(raw[3 : len(raw)-3])
}

// processMultiLineBasicEscapes handles basic string escapes including
// line-ending backslashes in multi-line strings.
func processMultiLineBasicEscapes(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' {
			b.WriteByte(s[i])
			continue
		}
		i++
		if i >= len(s) {
			b.WriteByte('\\')
			break
		}
		switch s[i] {
		case '\n':
			i = skipMultiLineWs(s, i)
		case '\r':
			if i+1 < len(s) && s[i+1] == '\n' {
				i++
			}
			i = skipMultiLineWs(s, i)
		case ' ', '\t':
			if hasNewlineAfterWs(s, i) {
				i = skipMultiLineWs(s, i)
			} else {
				b.WriteByte('\\')
				b.WriteByte(s[i])
			}
		default:
			i--
			result := parserProcessSingleEscape(s, &i)
			b.WriteString(result)
		}
	}
	return b.String()
}

func skipMultiLineWs(s string, i int) int {
	for i+1 < len(s) && (s[i+1] == ' ' || s[i+1] == '\t' || s[i+1] == '\n' || s[i+1] == '\r') {
		i++
	}
	return i
}

// parserProcessSingleEscape processes a single escape sequence starting at
// the backslash position. It advances *pos past the escape.
//
//nolint:gocyclo
func parserProcessSingleEscape(s string, pos *int) string {
	i := *pos
	i++ // skip backslash
	if i >= len(s) {
		*pos = i - 1
		return `\`
	}
	switch s[i] {
	case 'b':
		*pos = i
		return "\b"
	case 't':
		*pos = i
		return "\t"
	case 'n':
		*pos = i
		return "\n"
	case 'f':
		*pos = i
		return "\f"
	case 'r':
		*pos = i
		return "\r"
	case '"':
		*pos = i
		return `"`
	case '\\':
		*pos = i
		return `\`
	case 'e':
		*pos = i
		return "\x1B"
	case 'x':
		return processHexEscape(s, i, 2, pos)
	case 'u':
		return processHexEscape(s, i, 4, pos)
	case 'U':
		return processHexEscape(s, i, 8, pos)
	default:
		*pos = i
		return `\` + string(s[i])
	}
}

func processHexEscape(s string, i, digits int, pos *int) string {
	if i+digits < len(s) {
		if n, err := strconv.ParseUint(s[i+1:i+1+digits], 16, 32); err == nil {
			*pos = i + digits
			return string(rune(n))
		}
	}
	*pos = i
	labels := map[int]string{2: `\x`, 4: `\u`, 8: `\U`}
	return labels[digits]
}

// Int parses the number as an int64.
// Returns an error if the number is a float.
func (n *NumberNode) Int() (int64, error) {
	clean := strings.ReplaceAll(n.text, "_", "")
	if isSpecialFloat(clean) {
		return 0, strconv.ErrSyntax
	}
	// Check prefix integers before float detection, since hex digits
	// contain 'e'/'E' which would falsely trigger float classification.
	switch {
	case strings.HasPrefix(clean, "0x"):
		return strconv.ParseInt(clean[2:], 16, 64)
	case strings.HasPrefix(clean, "0o"):
		return strconv.ParseInt(clean[2:], 8, 64)
	case strings.HasPrefix(clean, "0b"):
		return strconv.ParseInt(clean[2:], 2, 64)
	}
	if strings.ContainsAny(clean, ".eE") {
		return 0, strconv.ErrSyntax
	}
	clean = strings.TrimPrefix(clean, "+")
	return strconv.ParseInt(clean, 10, 64)
}

// Float parses the number as a float64.
// Also works on integers, converting them to float64.
func (n *NumberNode) Float() (float64, error) {
	clean := strings.ReplaceAll(n.text, "_", "")
	switch clean {
	case "inf", "+inf":
		return math.Inf(1), nil
	case "-inf":
		return math.Inf(-1), nil
	case "nan", "+nan", "-nan":
		return math.NaN(), nil
	}
	// Integer prefixes convert to float.
	switch {
	case strings.HasPrefix(clean, "0x"):
		v, err := strconv.ParseInt(clean[2:], 16, 64)
		return float64(v), err
	case strings.HasPrefix(clean, "0o"):
		v, err := strconv.ParseInt(clean[2:], 8, 64)
		return float64(v), err
	case strings.HasPrefix(clean, "0b"):
		v, err := strconv.ParseInt(clean[2:], 2, 64)
		return float64(v), err
	}
	clean = strings.TrimPrefix(clean, "+")
	return strconv.ParseFloat(clean, 64)
}

// Value returns the boolean value (true or false).
func (n *BooleanNode) Value() bool {
	return n.text == "true"
}

// Value returns the parsed datetime. When the text is out of range the
// components come back as written along with an error.
func (n *DateTimeNode) Value() (DateTime, error) {
	dt := dtComponents(n.text)
	if msg := validateDateTimeText(n.text); msg != "" {
		return dt, fmt.Errorf("%w: %s", ErrInvalidDateTime, msg)
	}
	return dt, nil
}
