package tomllib

import (
	"fmt"
	"strconv"
)

// Children describes what lives under a key: Count for arrays and arrays
// of tables, Keys for tables and inline tables.
type Children interface {
	isChildren()
	// ChildKeys returns the full key paths of the children, built by
	// joining each child onto base.
	ChildKeys(base string) []string
}

// Count is the child form for indexed containers.
type Count int

func (Count) isChildren() {}

// ChildKeys returns base[0] through base[n-1].
func (c Count) ChildKeys(base string) []string {
	out := make([]string, 0, int(c))
	for i := 0; i < int(c); i++ {
		out = append(out, CombineKeysIndex(base, i))
	}
	return out
}

// Keys is the child form for keyed containers, in document order.
type Keys []string

func (Keys) isChildren() {}

// ChildKeys returns each key joined onto base.
func (k Keys) ChildKeys(base string) []string {
	out := make([]string, 0, len(k))
	for _, key := range k {
		out = append(out, CombineKeys(base, key))
	}
	return out
}

// CombineKeys joins a child key onto a base path with a dot. An empty
// base names the root table, so the child stands alone.
func CombineKeys(base, child string) string {
	if base == "" {
		return child
	}
	return base + "." + child
}

// CombineKeysIndex joins an array index onto a base path.
func CombineKeysIndex(base string, index int) string {
	return base + "[" + strconv.Itoa(index) + "]"
}

// --- Canonical key segments ---

func isBareSeg(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' ||
			c >= '0' && c <= '9' || c == '_' || c == '-') {
			return false
		}
	}
	return true
}

// canonSeg renders one key segment in canonical form: bare when the
// characters allow it, basic-quoted otherwise.
func canonSeg(s string) string {
	if isBareSeg(s) {
		return s
	}
	return `"` + EscapeBasicString(s) + `"`
}

func canonKeyParts(parts []KeyPart) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += "."
		}
		out += canonSeg(p.Unquoted)
	}
	return out
}

// --- Index entries ---

// indexEntry records what a canonical key path resolves to.
type indexEntry struct {
	node     Node
	kv       *KeyValue
	aot      bool
	table    bool
	dotted   bool
	explicit bool
	count    int
	keys     []string
}

func nodeLine(n Node) int {
	if n == nil {
		return 0
	}
	if ln, ok := n.(interface{ Line() int }); ok {
		return ln.Line()
	}
	return 0
}

// --- Indexer ---

// indexer builds the flat key index from top-level nodes, collecting
// recoverable errors as it goes. The parser feeds it incrementally;
// reindex feeds it a whole document.
type indexer struct {
	idx        map[string]*indexEntry
	errs       []*ParseError
	prefix     string
	quarantine *ParseError
}

func newIndexer() *indexer {
	ix := &indexer{idx: make(map[string]*indexEntry)}
	ix.idx[""] = &indexEntry{table: true}
	return ix
}

func (ix *indexer) add(n Node) {
	switch node := n.(type) {
	case *TableNode:
		ix.enterTable(node)
		// Entries are empty while the parser feeds headers incrementally;
		// reindex hands over whole tables.
		for _, e := range node.Entries {
			ix.add(e)
		}
	case *ArrayOfTables:
		ix.enterAOT(node)
		for _, e := range node.Entries {
			ix.add(e)
		}
	case *KeyValue:
		ix.addKeyValue(node)
	}
}

func (ix *indexer) addErr(e *ParseError) {
	ix.errs = append(ix.errs, e)
}

func (ix *indexer) appendKey(parent, seg string) {
	if e := ix.idx[parent]; e != nil {
		e.keys = append(e.keys, seg)
	}
}

// resolveParents walks the leading segments of a header, creating
// implicit tables and following array-of-tables names to their most
// recent element. It returns the resolved prefix, or an error when a
// segment is already taken by a value.
func (ix *indexer) resolveParents(parts []KeyPart) (string, *ParseError) {
	cur := ""
	for _, p := range parts[:len(parts)-1] {
		seg := canonSeg(p.Unquoted)
		next := CombineKeys(cur, seg)
		e := ix.idx[next]
		switch {
		case e == nil:
			ix.idx[next] = &indexEntry{table: true}
			ix.appendKey(cur, seg)
			cur = next
		case e.aot:
			cur = CombineKeysIndex(next, e.count-1)
		case e.table:
			cur = next
		default:
			return "", &ParseError{Kind: InvalidTable, Key: next}
		}
	}
	return cur, nil
}

func (ix *indexer) enterTable(t *TableNode) {
	ix.quarantine = nil
	cur, perr := ix.resolveParents(t.HeaderParts)
	full := canonKeyParts(t.HeaderParts)
	if perr == nil {
		full = CombineKeys(cur, canonSeg(t.HeaderParts[len(t.HeaderParts)-1].Unquoted))
		perr = ix.claimTable(t, full)
	}
	ix.prefix = full
	if perr != nil {
		perr.Line = nodeLine(t)
		if perr.Key == "" {
			perr.Key = full
		}
		perr.TableValues = make(map[string]Value)
		ix.addErr(perr)
		ix.quarantine = perr
	}
}

func (ix *indexer) claimTable(t *TableNode, full string) *ParseError {
	e := ix.idx[full]
	switch {
	case e == nil:
		parent, seg := splitParent(full)
		ix.idx[full] = &indexEntry{node: t, table: true, explicit: true}
		ix.appendKey(parent, seg)
		return nil
	case e.table && !e.explicit && !e.dotted:
		// implicit table promoted by its own header
		e.node = t
		e.explicit = true
		return nil
	}
	return &ParseError{Kind: InvalidTable, Key: full}
}

func (ix *indexer) enterAOT(a *ArrayOfTables) {
	ix.quarantine = nil
	cur, perr := ix.resolveParents(a.HeaderParts)
	full := canonKeyParts(a.HeaderParts)
	if perr == nil {
		full = CombineKeys(cur, canonSeg(a.HeaderParts[len(a.HeaderParts)-1].Unquoted))
		perr = ix.claimAOT(a, full)
	}
	if perr != nil {
		ix.prefix = full
		perr.Line = nodeLine(a)
		if perr.Key == "" {
			perr.Key = full
		}
		perr.TableValues = make(map[string]Value)
		ix.addErr(perr)
		ix.quarantine = perr
		return
	}
	name := ix.idx[full]
	elem := CombineKeysIndex(full, name.count-1)
	ix.idx[elem] = &indexEntry{node: a, table: true, explicit: true}
	ix.prefix = elem
}

func (ix *indexer) claimAOT(a *ArrayOfTables, full string) *ParseError {
	e := ix.idx[full]
	switch {
	case e == nil:
		parent, seg := splitParent(full)
		ix.idx[full] = &indexEntry{node: a, aot: true, count: 1}
		ix.appendKey(parent, seg)
		return nil
	case e.aot:
		e.count++
		return nil
	}
	return &ParseError{Kind: InvalidTable, Key: full}
}

// splitParent splits a canonical key path on its last dot outside
// quotes. Quoted segments may contain dots and escaped quotes.
func splitParent(full string) (string, string) {
	depth := 0
	for i := len(full) - 1; i >= 0; i-- {
		switch full[i] {
		case '"':
			if !escapedAt(full, i) {
				depth ^= 1
			}
		case '.':
			if depth == 0 {
				return full[:i], full[i+1:]
			}
		}
	}
	return "", full
}

func escapedAt(s string, i int) bool {
	n := 0
	for j := i - 1; j >= 0 && s[j] == '\\'; j-- {
		n++
	}
	return n%2 == 1
}

func (ix *indexer) addKeyValue(kv *KeyValue) {
	full := CombineKeys(ix.prefix, canonKeyParts(kv.KeyParts))
	if ix.quarantine != nil {
		ix.quarantine.TableValues[full] = nodeToValue(kv.Val)
		return
	}
	cur := ix.prefix
	for _, p := range kv.KeyParts[:len(kv.KeyParts)-1] {
		seg := canonSeg(p.Unquoted)
		next := CombineKeys(cur, seg)
		e := ix.idx[next]
		switch {
		case e == nil:
			ix.idx[next] = &indexEntry{table: true, dotted: true}
			ix.appendKey(cur, seg)
			cur = next
		case e.table:
			cur = next
		default:
			ix.addErr(&ParseError{
				Kind:    GenericError,
				Key:     next,
				Line:    nodeLine(kv),
				Message: fmt.Sprintf("key %q conflicts with existing value %q", full, next),
			})
			return
		}
	}
	seg := canonSeg(kv.KeyParts[len(kv.KeyParts)-1].Unquoted)
	full = CombineKeys(cur, seg)
	if prev := ix.idx[full]; prev != nil {
		ix.addErr(&ParseError{
			Kind:  DuplicateKey,
			Key:   full,
			Line:  nodeLine(kv),
			Value: nodeToValue(kv.Val),
		})
		return
	}
	ix.idx[full] = &indexEntry{node: kv.Val, kv: kv}
	ix.appendKey(cur, seg)
	ix.indexValue(full, kv.Val)
}

// indexValue indexes the interior of a value node: array elements by
// position, inline table pairs by key. Datetime validity is checked here
// so a bad datetime stays in the tree as a recoverable error.
func (ix *indexer) indexValue(base string, n Node) {
	switch node := n.(type) {
	case *DateTimeNode:
		if msg := validateDateTimeText(node.Text()); msg != "" {
			ix.addErr(&ParseError{
				Kind: InvalidDateTime,
				Key:  base,
				Line: nodeLine(node),
				Text: node.Text(),
			})
		}
	case *ArrayNode:
		ix.indexArray(base, node)
	case *InlineTableNode:
		ix.indexInlineTable(base, node)
	}
}

func (ix *indexer) indexArray(base string, node *ArrayNode) {
	kinds := make(map[string]bool)
	for i, elem := range node.Elements() {
		path := CombineKeysIndex(base, i)
		ix.idx[path] = &indexEntry{node: elem}
		ix.indexValue(path, elem)
		kinds[elementKind(nodeToValue(elem))] = true
	}
	if len(kinds) > 1 {
		ix.addErr(&ParseError{
			Kind: MixedArray,
			Key:  base,
			Line: nodeLine(node),
		})
	}
}

func (ix *indexer) indexInlineTable(base string, node *InlineTableNode) {
	for _, kv := range node.Entries() {
		cur := base
		parts := kv.KeyParts
		conflict := false
		for _, p := range parts[:len(parts)-1] {
			seg := canonSeg(p.Unquoted)
			next := CombineKeys(cur, seg)
			e := ix.idx[next]
			switch {
			case e == nil:
				ix.idx[next] = &indexEntry{table: true, dotted: true}
				ix.appendKey(cur, seg)
				cur = next
			case e.table:
				cur = next
			default:
				ix.addErr(&ParseError{
					Kind:    GenericError,
					Key:     next,
					Line:    nodeLine(kv),
					Message: fmt.Sprintf("key conflicts with existing value %q", next),
				})
				conflict = true
			}
			if conflict {
				break
			}
		}
		if conflict {
			continue
		}
		seg := canonSeg(parts[len(parts)-1].Unquoted)
		full := CombineKeys(cur, seg)
		if prev := ix.idx[full]; prev != nil {
			ix.addErr(&ParseError{
				Kind:  DuplicateKey,
				Key:   full,
				Line:  nodeLine(kv),
				Value: nodeToValue(kv.Val),
			})
			continue
		}
		ix.idx[full] = &indexEntry{node: kv.Val, kv: kv}
		ix.appendKey(cur, seg)
		ix.indexValue(full, kv.Val)
	}
}

// --- Document reindexing ---

// reindex rebuilds the key index from the document's nodes and returns
// the recoverable errors found along the way.
func (d *Document) reindex() []*ParseError {
	ix := newIndexer()
	for _, n := range d.Nodes {
		ix.add(n)
	}
	d.index = ix.idx
	return ix.errs
}
