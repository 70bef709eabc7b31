// Command encoder reads the toml-test suite's tagged JSON form on stdin
// and prints an equivalent TOML document. The document is assembled
// through the library's construction surface, so the output is whatever
// those constructors render rather than hand-built text.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/joelself/tomllib"
)

func main() {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error reading stdin: %v\n", err)
		os.Exit(1)
	}

	var input map[string]any
	if err := json.Unmarshal(data, &input); err != nil {
		fmt.Fprintf(os.Stderr, "error parsing JSON: %v\n", err)
		os.Exit(1)
	}

	doc := tomllib.NewDocument()
	if err := encodeTable(doc, nil, input, nil); err != nil {
		fmt.Fprintf(os.Stderr, "error building document: %v\n", err)
		os.Exit(1)
	}
	fmt.Print(doc.String())
}

// entryAppender is the append surface shared by tables and array-of-tables
// headers. A nil appender sends entries to the document's root table.
type entryAppender interface {
	Append(*tomllib.KeyValue) error
}

func encodeTable(doc *tomllib.Document, owner entryAppender, m map[string]any, path []string) error {
	var scalarKeys, tableKeys, aotKeys []string
	for k, v := range m {
		switch categorize(v) {
		case catTable:
			tableKeys = append(tableKeys, k)
		case catArrayOfTables:
			aotKeys = append(aotKeys, k)
		default:
			scalarKeys = append(scalarKeys, k)
		}
	}
	sort.Strings(scalarKeys)
	sort.Strings(tableKeys)
	sort.Strings(aotKeys)

	for _, k := range scalarKeys {
		v, err := buildValue(m[k])
		if err != nil {
			return err
		}
		kv, err := tomllib.NewKeyValue(quoteKey(k), v)
		if err != nil {
			return err
		}
		if err := appendEntry(doc, owner, kv); err != nil {
			return err
		}
	}

	for _, k := range tableKeys {
		subPath := childPath(path, k)
		table, err := tomllib.NewTable(encodePath(subPath))
		if err != nil {
			return err
		}
		if err := appendHeader(doc, table); err != nil {
			return err
		}
		if err := encodeTable(doc, table, m[k].(map[string]any), subPath); err != nil {
			return err
		}
	}

	for _, k := range aotKeys {
		subPath := childPath(path, k)
		for _, elem := range m[k].([]any) {
			aot, err := tomllib.NewArrayOfTables(encodePath(subPath))
			if err != nil {
				return err
			}
			if err := appendHeader(doc, aot); err != nil {
				return err
			}
			tbl, ok := elem.(map[string]any)
			if !ok {
				continue
			}
			if err := encodeTable(doc, aot, tbl, subPath); err != nil {
				return err
			}
		}
	}
	return nil
}

func appendEntry(doc *tomllib.Document, owner entryAppender, kv *tomllib.KeyValue) error {
	if owner != nil {
		return owner.Append(kv)
	}
	return doc.Append(kv)
}

// appendHeader adds a table or array-of-tables header with a blank line
// before it when the document already has content.
func appendHeader(doc *tomllib.Document, n tomllib.Node) error {
	if len(doc.Nodes) > 0 {
		if err := doc.AppendBlankLine(); err != nil {
			return err
		}
	}
	return doc.Append(n)
}

func childPath(base []string, key string) []string {
	out := make([]string, len(base)+1)
	copy(out, base)
	out[len(base)] = key
	return out
}

type category int

const (
	catScalar category = iota
	catTable
	catArrayOfTables
	catArray
)

func categorize(v any) category {
	switch val := v.(type) {
	case map[string]any:
		if isTaggedValue(val) {
			return catScalar
		}
		return catTable
	case []any:
		if isArrayOfTables(val) {
			return catArrayOfTables
		}
		return catArray
	default:
		return catScalar
	}
}

func isTaggedValue(m map[string]any) bool {
	_, hasType := m["type"]
	_, hasValue := m["value"]
	return hasType && hasValue && len(m) == 2
}

func isArrayOfTables(arr []any) bool {
	if len(arr) == 0 {
		return false
	}
	for _, elem := range arr {
		m, ok := elem.(map[string]any)
		if !ok {
			return false
		}
		if isTaggedValue(m) {
			return false
		}
	}
	return true
}

// buildValue maps one JSON value onto the library's value form: tagged
// leaves to scalars, arrays to arrays, untagged maps to inline tables.
func buildValue(v any) (tomllib.Value, error) {
	switch val := v.(type) {
	case map[string]any:
		if isTaggedValue(val) {
			return taggedToValue(fmt.Sprint(val["type"]), fmt.Sprint(val["value"]))
		}
		return inlineTableValue(val)
	case []any:
		arr := make(tomllib.Array, 0, len(val))
		for _, elem := range val {
			ev, err := buildValue(elem)
			if err != nil {
				return nil, err
			}
			arr = append(arr, ev)
		}
		return arr, nil
	}
	return nil, fmt.Errorf("unexpected JSON shape %T", v)
}

func inlineTableValue(m map[string]any) (tomllib.Value, error) {
	keys := sortedKeys(m)
	t := make(tomllib.InlineTable, 0, len(keys))
	for _, k := range keys {
		v, err := buildValue(m[k])
		if err != nil {
			return nil, err
		}
		t = append(t, tomllib.Pair{Key: quoteKey(k), Val: v})
	}
	return t, nil
}

func taggedToValue(typ, val string) (tomllib.Value, error) {
	switch typ {
	case "string":
		return tomllib.NewBasicString(tomllib.EscapeBasicString(val))
	case "integer":
		return tomllib.IntegerFromString(val)
	case "float":
		return floatValue(val)
	case "bool":
		return tomllib.BooleanFromString(val)
	case "datetime", "datetime-local", "date-local", "time-local":
		return tomllib.DateTimeFromText(val)
	}
	return nil, fmt.Errorf("unknown tagged type %q", typ)
}

// floatValue completes bare numbers like "3" into the "3.0" form the
// float grammar requires before building the value.
func floatValue(val string) (tomllib.Value, error) {
	if !strings.ContainsAny(val, ".eE") && !isSpecialFloat(val) {
		val += ".0"
	}
	return tomllib.FloatFromString(val)
}

func isSpecialFloat(val string) bool {
	switch val {
	case "inf", "+inf", "-inf", "nan", "+nan", "-nan":
		return true
	}
	return false
}

func quoteKey(k string) string {
	if isBareKey(k) {
		return k
	}
	return `"` + tomllib.EscapeBasicString(k) + `"`
}

func isBareKey(s string) bool {
	if len(s) == 0 {
		return false
	}
	for _, r := range s {
		if !isBareKeyChar(r) {
			return false
		}
	}
	return true
}

func isBareKeyChar(r rune) bool {
	return (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') ||
		(r >= '0' && r <= '9') || r == '-' || r == '_'
}

func encodePath(parts []string) string {
	var b strings.Builder
	for i, p := range parts {
		if i > 0 {
			b.WriteString(".")
		}
		b.WriteString(quoteKey(p))
	}
	return b.String()
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
