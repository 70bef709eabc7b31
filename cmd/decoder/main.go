// Command decoder reads a TOML document on stdin and prints the tagged
// JSON form the toml-test suite compares decoders with. Documents that do
// not parse cleanly end to end exit nonzero so the suite counts them as
// rejected.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/joelself/tomllib"
)

func main() {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error reading stdin: %v\n", err)
		os.Exit(1)
	}

	doc, res := tomllib.Parse(data)
	if res.State != tomllib.Full {
		fmt.Fprintf(os.Stderr, "parse state %s, line %d\n", res.State, res.Line)
		for i := range res.Errors {
			fmt.Fprintf(os.Stderr, "%s\n", res.Errors[i].Error())
		}
		os.Exit(1)
	}

	jsonBytes, err := json.Marshal(documentToTaggedJSON(doc))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error marshaling JSON: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(string(jsonBytes))
}

func documentToTaggedJSON(doc *tomllib.Document) map[string]any {
	root := make(map[string]any)
	for _, n := range doc.Nodes {
		switch v := n.(type) {
		case *tomllib.KeyValue:
			setKeyValue(root, v)
		case *tomllib.TableNode:
			processTableNode(root, v)
		case *tomllib.ArrayOfTables:
			processAOTNode(root, v)
		}
	}
	return root
}

func setKeyValue(tbl map[string]any, kv *tomllib.KeyValue) {
	setNestedKey(tbl, kv.KeyParts, valueToTagged(kv.Val))
}

func processTableNode(root map[string]any, t *tomllib.TableNode) {
	tbl := resolveTablePath(root, t.HeaderParts)
	for _, entry := range t.Entries {
		if kv, ok := entry.(*tomllib.KeyValue); ok {
			setKeyValue(tbl, kv)
		}
	}
}

func processAOTNode(root map[string]any, a *tomllib.ArrayOfTables) {
	parts := a.HeaderParts
	parent := resolveTablePath(root, parts[:len(parts)-1])
	lastKey := parts[len(parts)-1].Unquoted
	arr, _ := parent[lastKey].([]any)
	entry := make(map[string]any)
	for _, e := range a.Entries {
		if kv, ok := e.(*tomllib.KeyValue); ok {
			setKeyValue(entry, kv)
		}
	}
	parent[lastKey] = append(arr, entry)
}

// resolveTablePath walks a header path, following arrays of tables to
// their most recent element.
func resolveTablePath(root map[string]any, parts []tomllib.KeyPart) map[string]any {
	cur := root
	for _, p := range parts {
		key := p.Unquoted
		switch v := cur[key].(type) {
		case []any:
			if len(v) == 0 {
				m := make(map[string]any)
				cur[key] = []any{m}
				cur = m
			} else if m, ok := v[len(v)-1].(map[string]any); ok {
				cur = m
			}
		case map[string]any:
			cur = v
		default:
			sub := make(map[string]any)
			cur[key] = sub
			cur = sub
		}
	}
	return cur
}

func setNestedKey(m map[string]any, parts []tomllib.KeyPart, value any) {
	cur := m
	for i, p := range parts {
		key := p.Unquoted
		if i == len(parts)-1 {
			cur[key] = value
			return
		}
		sub, ok := cur[key].(map[string]any)
		if !ok {
			sub = make(map[string]any)
			cur[key] = sub
		}
		cur = sub
	}
}

func valueToTagged(node tomllib.Node) any {
	if node == nil {
		return nil
	}
	switch n := node.(type) {
	case *tomllib.StringNode:
		return tagged("string", unquoteString(n.Text()))
	case *tomllib.NumberNode:
		return numberToTagged(n.Text())
	case *tomllib.BooleanNode:
		return tagged("bool", n.Text())
	case *tomllib.DateTimeNode:
		return datetimeToTagged(n.Text())
	case *tomllib.ArrayNode:
		elems := n.Elements()
		result := make([]any, 0, len(elems))
		for _, elem := range elems {
			result = append(result, valueToTagged(elem))
		}
		return result
	case *tomllib.InlineTableNode:
		result := make(map[string]any)
		for _, kv := range n.Entries() {
			setNestedKey(result, kv.KeyParts, valueToTagged(kv.Val))
		}
		return result
	default:
		return tagged("string", n.Text())
	}
}

func tagged(typ, val string) map[string]string {
	return map[string]string{"type": typ, "value": val}
}

func numberToTagged(text string) map[string]string {
	clean := strings.ReplaceAll(text, "_", "")
	switch clean {
	case "inf", "+inf":
		return tagged("float", "+inf")
	case "-inf":
		return tagged("float", "-inf")
	case "nan", "+nan", "-nan":
		return tagged("float", "nan")
	}
	if strings.HasPrefix(clean, "0x") || strings.HasPrefix(clean, "0o") || strings.HasPrefix(clean, "0b") {
		return tagged("integer", parseInteger(clean))
	}
	if strings.ContainsAny(clean, ".eE") {
		return tagged("float", parseFloat(clean))
	}
	return tagged("integer", parseInteger(clean))
}

func datetimeToTagged(text string) map[string]string {
	return tagged(detectDateTimeType(text), normalizeDatetime(text))
}

// normalizeDatetime maps a date-time onto the suite's reference form:
// a T separator and explicit seconds.
func normalizeDatetime(val string) string {
	if spaceIdx := strings.Index(val, " "); spaceIdx > 0 {
		if spaceIdx+1 < len(val) && isDigit(val[spaceIdx-1]) && isDigit(val[spaceIdx+1]) {
			val = val[:spaceIdx] + "T" + val[spaceIdx+1:]
		}
	}
	if tIdx := strings.Index(val, "t"); tIdx > 0 && isDigit(val[tIdx-1]) {
		val = val[:tIdx] + "T" + val[tIdx+1:]
	}
	return addMissingSeconds(val)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func addMissingSeconds(val string) string {
	colonCount := strings.Count(val, ":")
	if colonCount == 0 {
		return val
	}
	// Time-local has no date part: one colon means HH:MM.
	if !strings.Contains(val, "-") && !strings.Contains(val, "T") {
		if colonCount == 1 {
			return val + ":00"
		}
		return val
	}
	tIdx := strings.Index(val, "T")
	if tIdx < 0 {
		return val
	}
	timePart := val[tIdx+1:]
	// Split any offset off the end before counting colons.
	offsetStart := -1
	if zIdx := strings.IndexAny(timePart, "Zz"); zIdx >= 0 {
		offsetStart = zIdx
	} else if pIdx := strings.LastIndexAny(timePart, "+-"); pIdx > 0 {
		offsetStart = pIdx
	}
	timeCore, suffix := timePart, ""
	if offsetStart >= 0 {
		timeCore, suffix = timePart[:offsetStart], timePart[offsetStart:]
	}
	if strings.Count(timeCore, ":") == 1 {
		return val[:tIdx+1] + timeCore + ":00" + suffix
	}
	return val
}

//nolint:gocyclo
func detectDateTimeType(val string) string {
	if strings.ContainsAny(val, "Zz") {
		return "datetime"
	}
	hasT := strings.ContainsAny(val, "Tt")
	hasDash := strings.Count(val, "-") >= 2
	hasColon := strings.Contains(val, ":")

	if hasT && hasDash && hasColon {
		tPos := strings.IndexAny(val, "Tt")
		timePart := val[tPos+1:]
		if strings.Contains(timePart, "+") || lastDashIsOffset(timePart) {
			return "datetime"
		}
		return "datetime-local"
	}
	if hasDash && hasColon && strings.Contains(val, " ") {
		parts := strings.SplitN(val, " ", 2)
		if len(parts) == 2 && strings.Count(parts[0], "-") >= 2 {
			timePart := parts[1]
			if strings.Contains(timePart, "+") || lastDashIsOffset(timePart) {
				return "datetime"
			}
			return "datetime-local"
		}
	}
	if hasDash && !hasColon && !hasT {
		return "date-local"
	}
	if hasColon && !hasDash {
		return "time-local"
	}
	return "datetime"
}

func lastDashIsOffset(timePart string) bool {
	idx := strings.LastIndex(timePart, "-")
	if idx <= 0 {
		return false
	}
	return idx+1 < len(timePart) && isDigit(timePart[idx+1])
}

//nolint:gocyclo
func unquoteString(val string) string {
	if len(val) < 2 {
		return val
	}
	if strings.HasPrefix(val, `"""`) && strings.HasSuffix(val, `"""`) && len(val) >= 6 {
		return processBasicEscapes(trimFirstNewline(val[3 : len(val)-3]))
	}
	if strings.HasPrefix(val, "'''") && strings.HasSuffix(val, "'''") && len(val) >= 6 {
		return trimFirstNewline(val[3 : len(val)-3])
	}
	if val[0] == '\'' && val[len(val)-1] == '\'' {
		return val[1 : len(val)-1]
	}
	if val[0] == '"' && val[len(val)-1] == '"' {
		return processBasicEscapes(val[1 : len(val)-1])
	}
	return val
}

// trimFirstNewline drops the newline immediately after an opening
// multi-line delimiter, as the grammar requires.
func trimFirstNewline(s string) string {
	if strings.HasPrefix(s, "\r\n") {
		return s[2:]
	}
	if strings.HasPrefix(s, "\n") {
		return s[1:]
	}
	return s
}

//nolint:gocyclo
func processBasicEscapes(s string) string {
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
		case 'b':
			b.WriteByte('\b')
		case 't':
			b.WriteByte('\t')
		case 'n':
			b.WriteByte('\n')
		case 'f':
			b.WriteByte('\f')
		case 'r':
			b.WriteByte('\r')
		case '"':
			b.WriteByte('"')
		case '\\':
			b.WriteByte('\\')
		case 'e':
			b.WriteByte(0x1B)
		case 'x':
			if !writeHexRune(&b, s, i+1, 2) {
				b.WriteString(`\x`)
			} else {
				i += 2
			}
		case 'u':
			if !writeHexRune(&b, s, i+1, 4) {
				b.WriteString(`\u`)
			} else {
				i += 4
			}
		case 'U':
			if !writeHexRune(&b, s, i+1, 8) {
				b.WriteString(`\U`)
			} else {
				i += 8
			}
		case ' ', '\t':
			if hasNewlineAfterWs(s, i) {
				i = skipToNextNonWs(s, i)
				continue
			}
			b.WriteByte('\\')
			b.WriteByte(s[i])
		case '\n':
			i = skipMultiLineWhitespace(s, i)
		case '\r':
			if i+1 < len(s) && s[i+1] == '\n' {
				i++
			}
			i = skipMultiLineWhitespace(s, i)
		default:
			b.WriteByte('\\')
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

func writeHexRune(b *strings.Builder, s string, start, width int) bool {
	if start+width > len(s) {
		return false
	}
	n, err := strconv.ParseUint(s[start:start+width], 16, 32)
	if err != nil {
		return false
	}
	b.WriteRune(rune(n))
	return true
}

// skipMultiLineWhitespace consumes a line-ending backslash's run of
// whitespace, returning the index of its last character.
func skipMultiLineWhitespace(s string, i int) int {
	for i+1 < len(s) && (s[i+1] == ' ' || s[i+1] == '\t' || s[i+1] == '\n' || s[i+1] == '\r') {
		i++
	}
	return i
}

func hasNewlineAfterWs(s string, pos int) bool {
	i := pos
	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	return i < len(s) && (s[i] == '\n' || s[i] == '\r')
}

func skipToNextNonWs(s string, pos int) int {
	i := pos
	for i < len(s) && (s[i] == ' ' || s[i] == '\t' || s[i] == '\n' || s[i] == '\r') {
		i++
	}
	return i - 1
}

func parseInteger(val string) string {
	clean := strings.ReplaceAll(val, "_", "")
	var num int64
	var err error

	switch {
	case strings.HasPrefix(clean, "0x"):
		num, err = strconv.ParseInt(clean[2:], 16, 64)
	case strings.HasPrefix(clean, "0o"):
		num, err = strconv.ParseInt(clean[2:], 8, 64)
	case strings.HasPrefix(clean, "0b"):
		num, err = strconv.ParseInt(clean[2:], 2, 64)
	default:
		num, err = strconv.ParseInt(strings.TrimPrefix(clean, "+"), 10, 64)
	}
	if err != nil {
		return val
	}
	return strconv.FormatInt(num, 10)
}

func parseFloat(val string) string {
	clean := strings.TrimPrefix(strings.ReplaceAll(val, "_", ""), "+")
	num, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return val
	}
	if math.IsInf(num, 0) || math.IsNaN(num) {
		return val
	}
	result := strconv.FormatFloat(num, 'G', -1, 64)
	result = strings.ReplaceAll(result, "E+", "e+")
	result = strings.ReplaceAll(result, "E-", "e-")
	if !strings.Contains(result, ".") && !strings.Contains(result, "e") {
		result += ".0"
	}
	return result
}
