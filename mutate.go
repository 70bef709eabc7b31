package tomllib

import (
	"fmt"
	"strings"
)

// --- Key parsing and escaping ---

// parseRawKey parses a raw TOML key expression (bare, quoted, or dotted)
// through the lexer, so every mutation entry point gets full key syntax
// checks. It returns the parts and the key text with outer whitespace
// trimmed.
func parseRawKey(raw string) ([]KeyPart, string, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, "", ErrEmptyKey
	}
	p := newParser(raw)

	if p.at(TokWhitespace) {
		p.advance()
	}

	parts, keyRaw, err := p.parseKey()
	if err != nil {
		return nil, "", err
	}

	if p.at(TokWhitespace) {
		p.advance()
	}

	if !p.at(TokEOF) {
		return nil, "", fmt.Errorf("%w: %q", ErrUnexpectedContent, p.cur.Text)
	}

	return parts, keyRaw, nil
}

// EscapeBasicString escapes a Go string for use inside TOML double quotes.
func EscapeBasicString(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\b':
			b.WriteString(`\b`)
		case '\t':
			b.WriteString(`\t`)
		case '\n':
			b.WriteString(`\n`)
		case '\f':
			b.WriteString(`\f`)
		case '\r':
			b.WriteString(`\r`)
		default:
			escapeDefaultRune(&b, r)
		}
	}
	return b.String()
}

func escapeDefaultRune(b *strings.Builder, r rune) {
	switch {
	case r < 0x20 || r == 0x7F:
		b.WriteString(fmt.Sprintf(`\u%04X`, r))
	case r > 0xFFFF:
		b.WriteString(fmt.Sprintf(`\U%08X`, r))
	default:
		b.WriteRune(r)
	}
}

// --- SetValue ---

// SetValue writes v over the value at path. It reports false when the path
// does not resolve to a value, when v is nil or fails validation, or when
// the write would introduce a structural error such as a duplicate key
// inside a new inline table. SetValue never creates keys.
//
// When the new value has the same shape as the old one (any scalar over any
// scalar, an array of equal element count, an inline table with the same
// keys in the same order) all surrounding whitespace, comments, and
// separators are kept and only the changed leaves are rewritten. A shape
// change re-renders the value canonically and drops a same-line comment
// that described the old value.
func (d *Document) SetValue(path string, v Value) bool {
	if v == nil || !v.Validate() {
		return false
	}
	if _, ok := v.(Table); ok {
		return false
	}
	segs, err := parseKeyPath(path)
	if err != nil || len(segs) == 0 {
		return false
	}
	e := d.index[canonFromSegs(segs)]
	if e == nil || e.node == nil || !isValueNode(e.node) {
		return false
	}

	old := e.node
	repl := replaceValueNode(old, v)

	if e.kv != nil && e.kv.Val == old {
		return d.swapKeyValue(e.kv, old, repl, sameShape(old, v))
	}
	return d.swapArrayElement(old, repl)
}

// swapKeyValue installs repl as kv's value and revalidates the document,
// undoing the swap when the write introduced an error.
func (d *Document) swapKeyValue(kv *KeyValue, old, repl Node, preserved bool) bool {
	savedTrail := kv.TrailingTrivia
	kv.Val = repl
	setNodeParent(repl, kv)
	if !preserved && trailingHasComment(savedTrail) {
		kv.TrailingTrivia = nil
	}
	errs := d.reindex()
	if len(errs) > len(d.errs) {
		kv.Val = old
		kv.TrailingTrivia = savedTrail
		setNodeParent(repl, nil)
		d.reindex()
		return false
	}
	d.errs = errs
	return true
}

// swapArrayElement replaces old inside its parent array's item stream.
func (d *Document) swapArrayElement(old, repl Node) bool {
	arr, ok := old.Parent().(*ArrayNode)
	if !ok {
		return false
	}
	at := -1
	for i, it := range arr.Items {
		if it == old {
			at = i
			break
		}
	}
	if at < 0 {
		return false
	}
	arr.Items[at] = repl
	setNodeParent(repl, arr)
	errs := d.reindex()
	if len(errs) > len(d.errs) {
		arr.Items[at] = old
		setNodeParent(repl, nil)
		d.reindex()
		return false
	}
	d.errs = errs
	return true
}

func trailingHasComment(trivia []Node) bool {
	for _, t := range trivia {
		if t.Type() == NodeComment {
			return true
		}
	}
	return false
}

// replaceValueNode builds the node that writes v over old. Shape-preserving
// writes reproduce the old container's punctuation and trivia around fresh
// leaves; everything else renders canonically. The old subtree is never
// modified, so a failed write can fall back to it.
func replaceValueNode(old Node, v Value) Node {
	line := nodeLine(old)
	switch val := v.(type) {
	case Array:
		arr, ok := old.(*ArrayNode)
		if !ok || len(arr.Elements()) != len(val) {
			break
		}
		n := &ArrayNode{baseNode: baseNode{nodeType: NodeArray, line: line}}
		items := make([]Node, len(arr.Items))
		next := 0
		for i, it := range arr.Items {
			if isValueNode(it) {
				items[i] = replaceValueNode(it, val[next])
				next++
			} else {
				items[i] = cloneLeaf(it)
			}
		}
		n.Items = items
		for _, it := range items {
			setNodeParent(it, n)
		}
		return n
	case InlineTable:
		tbl, ok := old.(*InlineTableNode)
		if !ok || !samePairKeys(tbl.Entries(), val) {
			break
		}
		n := &InlineTableNode{baseNode: baseNode{nodeType: NodeInlineTable, line: line}}
		items := make([]Node, len(tbl.Items))
		next := 0
		for i, it := range tbl.Items {
			if kv, ok := it.(*KeyValue); ok {
				nkv := *kv
				nkv.Val = replaceValueNode(kv.Val, val[next].Val)
				setNodeParent(nkv.Val, &nkv)
				items[i] = &nkv
				next++
			} else {
				items[i] = cloneLeaf(it)
			}
		}
		n.Items = items
		for _, it := range items {
			setNodeParent(it, n)
		}
		return n
	}
	return newValueNode(v, line, 0)
}

// cloneLeaf copies a trivia or punctuation node so a rebuilt container does
// not share children with the tree it replaces.
func cloneLeaf(n Node) Node {
	line := nodeLine(n)
	switch n.Type() {
	case NodeWhitespace:
		return newWhitespaceNode(n.Text(), line, 0)
	case NodeComment:
		return newCommentNode(n.Text(), line, 0)
	case NodePunct:
		return newPunctNode(n.Text(), line, 0)
	}
	return n
}

// sameShape reports whether writing v over old keeps the old layout.
func sameShape(old Node, v Value) bool {
	switch val := v.(type) {
	case Array:
		arr, ok := old.(*ArrayNode)
		return ok && len(arr.Elements()) == len(val)
	case InlineTable:
		tbl, ok := old.(*InlineTableNode)
		return ok && samePairKeys(tbl.Entries(), val)
	case Table:
		return false
	default:
		switch old.(type) {
		case *StringNode, *NumberNode, *BooleanNode, *DateTimeNode:
			return true
		}
		return false
	}
}

// samePairKeys reports whether the inline table value writes the same keys,
// in the same order, as the parsed entries. Key spelling is compared in
// canonical form, so "a" matches a quoted "\"a\"".
func samePairKeys(kvs []*KeyValue, val InlineTable) bool {
	if len(kvs) != len(val) {
		return false
	}
	for i, kv := range kvs {
		parts, _, err := parseRawKey(val[i].Key)
		if err != nil {
			return false
		}
		if canonKeyParts(parts) != canonKeyParts(kv.KeyParts) {
			return false
		}
	}
	return true
}

// --- Node constructors ---

// NewDocument returns an empty document ready to Append into.
func NewDocument() *Document {
	return &Document{}
}

// NewKeyValue builds a key = value expression with canonical spacing and a
// trailing newline. The key may be bare, quoted, or dotted; v must be a
// valid inline value.
func NewKeyValue(key string, v Value) (*KeyValue, error) {
	if v == nil {
		return nil, ErrNilValue
	}
	if _, ok := v.(Table); ok {
		return nil, fmt.Errorf("%w: a table is not an inline value", ErrInvalidValue)
	}
	if !v.Validate() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidValue, v.String())
	}
	parts, keyRaw, err := parseRawKey(key)
	if err != nil {
		return nil, fmt.Errorf("invalid key: %w", err)
	}
	kv := &KeyValue{
		baseNode: baseNode{nodeType: NodeKeyValue},
		KeyParts: parts,
		RawKey:   keyRaw,
		PreEq:    " ",
		PostEq:   " ",
		Val:      newValueNode(v, 0, 0),
		Newline:  "\n",
	}
	setNodeParent(kv.Val, kv)
	return kv, nil
}

// NewTable builds an empty [key] table.
func NewTable(key string) (*TableNode, error) {
	parts, keyRaw, err := parseRawKey(key)
	if err != nil {
		return nil, fmt.Errorf("invalid table key: %w", err)
	}
	return &TableNode{
		baseNode:    baseNode{nodeType: NodeTable},
		HeaderParts: parts,
		RawHeader:   keyRaw,
		Newline:     "\n",
	}, nil
}

// NewArrayOfTables builds an empty [[key]] header.
func NewArrayOfTables(key string) (*ArrayOfTables, error) {
	parts, keyRaw, err := parseRawKey(key)
	if err != nil {
		return nil, fmt.Errorf("invalid array-of-tables key: %w", err)
	}
	return &ArrayOfTables{
		baseNode:    baseNode{nodeType: NodeArrayOfTables},
		HeaderParts: parts,
		RawHeader:   keyRaw,
		Newline:     "\n",
	}, nil
}

// NewComment builds a comment node. The text must carry its own leading
// '#' and may not contain line breaks or control characters other than tab.
func NewComment(text string) (*CommentNode, error) {
	if !strings.HasPrefix(text, "#") {
		return nil, fmt.Errorf("%w: comment must start with '#'", ErrInvalidValue)
	}
	for _, r := range text {
		if r == '\n' || r == '\r' {
			return nil, ErrCommentNewline
		}
		if (r < 0x20 && r != '\t') || r == 0x7F {
			return nil, fmt.Errorf("%w: U+%04X", ErrCommentControl, r)
		}
	}
	return newCommentNode(text, 0, 0), nil
}

// NewWhitespace builds a whitespace node from spaces, tabs, and line
// terminators.
func NewWhitespace(text string) (*WhitespaceNode, error) {
	for _, c := range text {
		if c != ' ' && c != '\t' && c != '\n' && c != '\r' {
			return nil, fmt.Errorf("%w: %q", ErrInvalidWsChar, c)
		}
	}
	return newWhitespaceNode(text, 0, 0), nil
}

// validateDocumentNode checks that node can appear at expression level.
func validateDocumentNode(node Node) error {
	if node == nil {
		return ErrNilNode
	}
	switch node.(type) {
	case *KeyValue, *TableNode, *ArrayOfTables, *CommentNode, *WhitespaceNode:
		return nil
	default:
		return fmt.Errorf("%w: %T; expected *KeyValue, *TableNode, *ArrayOfTables, *CommentNode, or *WhitespaceNode",
			ErrInvalidNodeType, node)
	}
}

// --- Structural editing ---

// revalidate reindexes after a structural edit and reports the first error
// the edit introduced. Callers undo the edit and reindex again on failure.
func (d *Document) revalidate() error {
	errs := d.reindex()
	if len(errs) > len(d.errs) {
		return mutationErr(d.firstNewError(errs))
	}
	d.errs = errs
	return nil
}

// firstNewError picks the error in errs that is not already recorded on the
// document. Insertion can shuffle error order, so this is a multiset diff
// rather than a suffix check.
func (d *Document) firstNewError(errs []*ParseError) *ParseError {
	old := make(map[string]int, len(d.errs))
	for _, e := range d.errs {
		old[errFingerprint(e)]++
	}
	for _, e := range errs {
		fp := errFingerprint(e)
		if old[fp] > 0 {
			old[fp]--
			continue
		}
		return e
	}
	return errs[len(errs)-1]
}

func errFingerprint(e *ParseError) string {
	return fmt.Sprintf("%d|%s|%d|%s", e.Kind, e.Key, e.Line, e.Message)
}

func mutationErr(pe *ParseError) error {
	switch pe.Kind {
	case DuplicateKey:
		return fmt.Errorf("%w: %q", ErrDuplicateKey, pe.Key)
	case InvalidTable, GenericError:
		return fmt.Errorf("%w: %s", ErrKeyConflict, pe)
	default:
		return fmt.Errorf("%w: %s", ErrInvalidValue, pe)
	}
}

// findDocument walks up the parent chain to the containing document.
func findDocument(n Node) *Document {
	for n != nil {
		if d, ok := n.(*Document); ok {
			return d
		}
		n = n.Parent()
	}
	return nil
}

// ensureLineBreak terminates the node before position i so the node at i
// starts on its own line. When the previous node cannot carry a terminator
// itself a newline node is spliced in.
func ensureLineBreak(nodes *[]Node, i int, parent Node) {
	if i <= 0 || i > len(*nodes) {
		return
	}
	switch prev := (*nodes)[i-1].(type) {
	case *KeyValue:
		if prev.Newline == "" {
			prev.Newline = "\n"
		}
	case *TableNode:
		if len(prev.Entries) > 0 {
			ensureLineBreak(&prev.Entries, len(prev.Entries), prev)
		} else if prev.Newline == "" {
			prev.Newline = "\n"
		}
	case *ArrayOfTables:
		if len(prev.Entries) > 0 {
			ensureLineBreak(&prev.Entries, len(prev.Entries), prev)
		} else if prev.Newline == "" {
			prev.Newline = "\n"
		}
	default:
		if strings.HasSuffix(prev.Text(), "\n") {
			return
		}
		nl := newWhitespaceNode("\n", 0, 0)
		setNodeParent(nl, parent)
		*nodes = append((*nodes)[:i], append([]Node{nl}, (*nodes)[i:]...)...)
	}
}

// ensureHeaderBreak terminates a table header line before entries are
// rendered under it.
func ensureHeaderBreak(owner Node) {
	switch t := owner.(type) {
	case *TableNode:
		if t.Newline == "" {
			t.Newline = "\n"
		}
	case *ArrayOfTables:
		if t.Newline == "" {
			t.Newline = "\n"
		}
	}
}

// --- Document mutation ---

// Append adds node to the end of the document. Structural nodes are
// validated against the key index; an edit that would corrupt the document
// is rolled back and reported.
func (d *Document) Append(node Node) error {
	if err := validateDocumentNode(node); err != nil {
		return err
	}
	if isTriviaNode(node) {
		d.Nodes = append(d.Nodes, node)
		setNodeParent(node, d)
		return nil
	}
	d.Nodes = append(d.Nodes, node)
	setNodeParent(node, d)
	if err := d.revalidate(); err != nil {
		d.Nodes = d.Nodes[:len(d.Nodes)-1]
		setNodeParent(node, nil)
		d.reindex()
		return err
	}
	ensureLineBreak(&d.Nodes, len(d.Nodes)-1, d)
	return nil
}

// InsertAt inserts node at position i among the document's top-level
// nodes, appending when i is past the end.
func (d *Document) InsertAt(i int, node Node) error {
	if err := validateDocumentNode(node); err != nil {
		return err
	}
	if i < 0 {
		i = 0
	}
	if i >= len(d.Nodes) {
		return d.Append(node)
	}
	d.Nodes = append(d.Nodes[:i], append([]Node{node}, d.Nodes[i:]...)...)
	setNodeParent(node, d)
	if isTriviaNode(node) {
		return nil
	}
	if err := d.revalidate(); err != nil {
		d.Nodes = append(d.Nodes[:i], d.Nodes[i+1:]...)
		setNodeParent(node, nil)
		d.reindex()
		return err
	}
	ensureLineBreak(&d.Nodes, i+1, d)
	ensureLineBreak(&d.Nodes, i, d)
	return nil
}

// Delete removes the key-value at path and its attached trivia. The path
// must name a key written as key = value; table headers and array elements
// are not deletable. Reports whether a node was removed.
func (d *Document) Delete(path string) bool {
	e := d.lookup(path)
	if e == nil || e.kv == nil {
		return false
	}
	removed := false
	switch owner := e.kv.Parent().(type) {
	case *Document:
		removed = removeNode(&owner.Nodes, e.kv)
	case *TableNode:
		removed = removeNode(&owner.Entries, e.kv)
	case *ArrayOfTables:
		removed = removeNode(&owner.Entries, e.kv)
	}
	if !removed {
		return false
	}
	setNodeParent(e.kv, nil)
	d.errs = d.reindex()
	return true
}

// DeleteTable removes the table whose header matches path, together with
// everything under it. Reports whether a table was removed.
func (d *Document) DeleteTable(path string) bool {
	segs := parseDottedPath(path)
	if segs == nil {
		return false
	}
	for i, n := range d.Nodes {
		t, ok := n.(*TableNode)
		if !ok || !matchKeyParts(t.HeaderParts, segs) {
			continue
		}
		d.Nodes = append(d.Nodes[:i], d.Nodes[i+1:]...)
		setNodeParent(t, nil)
		d.errs = d.reindex()
		return true
	}
	return false
}

func removeNode(nodes *[]Node, target Node) bool {
	for i, n := range *nodes {
		if n == target {
			*nodes = append((*nodes)[:i], (*nodes)[i+1:]...)
			return true
		}
	}
	return false
}

// AppendComment appends "# text" and a line terminator to the document.
func (d *Document) AppendComment(text string) error {
	cn, err := NewComment("# " + text)
	if err != nil {
		return err
	}
	ensureLineBreak(&d.Nodes, len(d.Nodes), d)
	if err := d.Append(cn); err != nil {
		return err
	}
	ws, _ := NewWhitespace("\n")
	return d.Append(ws)
}

// AppendBlankLine appends an empty line to the document.
func (d *Document) AppendBlankLine() error {
	ensureLineBreak(&d.Nodes, len(d.Nodes), d)
	ws, _ := NewWhitespace("\n")
	return d.Append(ws)
}

// --- Table mutation ---

// insertEntry splices kv into a table body at position at, clamping at to
// the body, and validates the result. An edit that would corrupt the
// document is undone. Tables not attached to a document get a local
// duplicate check instead of full validation.
func insertEntry(owner Node, entries *[]Node, at int, kv *KeyValue) error {
	if kv == nil {
		return ErrNilValue
	}
	if at < 0 {
		at = 0
	}
	if at > len(*entries) {
		at = len(*entries)
	}
	*entries = append((*entries)[:at], append([]Node{kv}, (*entries)[at:]...)...)
	setNodeParent(kv, owner)
	if d := findDocument(owner); d != nil {
		if err := d.revalidate(); err != nil {
			*entries = append((*entries)[:at], (*entries)[at+1:]...)
			setNodeParent(kv, nil)
			d.reindex()
			return err
		}
	} else if err := localDuplicateCheck(*entries); err != nil {
		*entries = append((*entries)[:at], (*entries)[at+1:]...)
		setNodeParent(kv, nil)
		return err
	}
	ensureHeaderBreak(owner)
	if at+1 < len(*entries) {
		ensureLineBreak(entries, at+1, owner)
	}
	ensureLineBreak(entries, at, owner)
	return nil
}

// localDuplicateCheck guards duplicate and prefix-conflicting keys in a
// table body that has no containing document yet.
func localDuplicateCheck(entries []Node) error {
	keys := make(map[string]bool)
	prefixes := make(map[string]bool)
	for _, e := range entries {
		kv, ok := e.(*KeyValue)
		if !ok {
			continue
		}
		path := canonKeyParts(kv.KeyParts)
		if keys[path] {
			return fmt.Errorf("%w: %q", ErrDuplicateKey, path)
		}
		if prefixes[path] {
			return fmt.Errorf("%w: %q", ErrKeyConflict, path)
		}
		keys[path] = true
		for i := 1; i < len(kv.KeyParts); i++ {
			prefix := canonKeyParts(kv.KeyParts[:i])
			if keys[prefix] {
				return fmt.Errorf("%w: %q", ErrKeyConflict, prefix)
			}
			prefixes[prefix] = true
		}
	}
	return nil
}

// Append adds kv to the end of the table's entries.
func (t *TableNode) Append(kv *KeyValue) error {
	return insertEntry(t, &t.Entries, len(t.Entries), kv)
}

// InsertAt inserts kv at position i in the table's entries, appending when
// i is past the end.
func (t *TableNode) InsertAt(i int, kv *KeyValue) error {
	return insertEntry(t, &t.Entries, i, kv)
}

// Delete removes the first entry matching the dotted key, which is
// relative to the table. Reports whether an entry was removed.
func (t *TableNode) Delete(key string) bool {
	segs := parseDottedPath(key)
	if segs == nil || !deleteFromEntries(&t.Entries, segs) {
		return false
	}
	if d := findDocument(t); d != nil {
		d.errs = d.reindex()
	}
	return true
}

// AppendComment appends "# text" and a line terminator to the table body.
func (t *TableNode) AppendComment(text string) error {
	cn, err := NewComment("# " + text)
	if err != nil {
		return err
	}
	ensureHeaderBreak(t)
	ensureLineBreak(&t.Entries, len(t.Entries), t)
	t.addEntry(cn)
	nl, _ := NewWhitespace("\n")
	t.addEntry(nl)
	return nil
}

// AppendBlankLine appends an empty line to the table body.
func (t *TableNode) AppendBlankLine() {
	ensureHeaderBreak(t)
	ensureLineBreak(&t.Entries, len(t.Entries), t)
	nl, _ := NewWhitespace("\n")
	t.addEntry(nl)
}

// --- Array-of-tables mutation ---

// Append adds kv to the end of this header's entries.
func (a *ArrayOfTables) Append(kv *KeyValue) error {
	return insertEntry(a, &a.Entries, len(a.Entries), kv)
}

// Delete removes the first entry matching the dotted key, which is
// relative to this header. Reports whether an entry was removed.
func (a *ArrayOfTables) Delete(key string) bool {
	segs := parseDottedPath(key)
	if segs == nil || !deleteFromEntries(&a.Entries, segs) {
		return false
	}
	if d := findDocument(a); d != nil {
		d.errs = d.reindex()
	}
	return true
}

// AppendComment appends "# text" and a line terminator to this header's
// entries.
func (a *ArrayOfTables) AppendComment(text string) error {
	cn, err := NewComment("# " + text)
	if err != nil {
		return err
	}
	ensureHeaderBreak(a)
	ensureLineBreak(&a.Entries, len(a.Entries), a)
	a.addEntry(cn)
	nl, _ := NewWhitespace("\n")
	a.addEntry(nl)
	return nil
}

// AppendBlankLine appends an empty line to this header's entries.
func (a *ArrayOfTables) AppendBlankLine() {
	ensureHeaderBreak(a)
	ensureLineBreak(&a.Entries, len(a.Entries), a)
	nl, _ := NewWhitespace("\n")
	a.addEntry(nl)
}

func deleteFromEntries(entries *[]Node, segs []string) bool {
	for i, e := range *entries {
		kv, ok := e.(*KeyValue)
		if !ok || !matchKeyParts(kv.KeyParts, segs) {
			continue
		}
		*entries = append((*entries)[:i], (*entries)[i+1:]...)
		setNodeParent(kv, nil)
		return true
	}
	return false
}
