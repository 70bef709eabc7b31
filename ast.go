package tomllib

import "strings"

// NodeType identifies the kind of a syntax tree node.
type NodeType int

const (
	NodeDocument NodeType = iota
	NodeKeyValue
	NodeTable
	NodeArrayOfTables
	NodeArray
	NodeInlineTable
	NodeString
	NodeNumber
	NodeBoolean
	NodeDateTime
	NodeComment
	NodeWhitespace
	NodePunct
)

func (t NodeType) String() string {
	switch t {
	case NodeDocument:
		return "document"
	case NodeKeyValue:
		return "keyvalue"
	case NodeTable:
		return "table"
	case NodeArrayOfTables:
		return "arrayoftables"
	case NodeArray:
		return "array"
	case NodeInlineTable:
		return "inlinetable"
	case NodeString:
		return "string"
	case NodeNumber:
		return "number"
	case NodeBoolean:
		return "boolean"
	case NodeDateTime:
		return "datetime"
	case NodeComment:
		return "comment"
	case NodeWhitespace:
		return "whitespace"
	case NodePunct:
		return "punct"
	}
	return "unknown"
}

// Node is one element of the concrete syntax tree. Text returns the exact
// source text the node covers, so serializing an unmodified tree reproduces
// the input byte for byte.
type Node interface {
	Type() NodeType
	Parent() Node
	Children() []Node
	Text() string
}

type baseNode struct {
	parent   Node
	nodeType NodeType
	line     int
	col      int
}

func (b *baseNode) Type() NodeType     { return b.nodeType }
func (b *baseNode) Parent() Node       { return b.parent }
func (b *baseNode) setParent(p Node)   { b.parent = p }
func (b *baseNode) Line() int          { return b.line }

type parentSetter interface{ setParent(Node) }

func setNodeParent(child, parent Node) {
	if ps, ok := child.(parentSetter); ok {
		ps.setParent(parent)
	}
}

// leafNode is a childless node holding a single token's text.
type leafNode struct {
	baseNode
	text string
}

func (l *leafNode) Children() []Node { return nil }
func (l *leafNode) Text() string     { return l.text }

// StringNode is a string token, quotes included.
type StringNode struct{ leafNode }

// NumberNode is an integer or float token.
type NumberNode struct{ leafNode }

// BooleanNode is a true or false token.
type BooleanNode struct{ leafNode }

// DateTimeNode is a date or datetime token.
type DateTimeNode struct{ leafNode }

// CommentNode is a comment from # through end of line.
type CommentNode struct{ leafNode }

// WhitespaceNode is a run of spaces, tabs or line terminators.
type WhitespaceNode struct{ leafNode }

// PunctNode is structural punctuation inside arrays and inline tables.
type PunctNode struct{ leafNode }

func newStringNode(text string, line, col int) *StringNode {
	return &StringNode{leafNode{baseNode{nodeType: NodeString, line: line, col: col}, text}}
}

func newNumberNode(text string, line, col int) *NumberNode {
	return &NumberNode{leafNode{baseNode{nodeType: NodeNumber, line: line, col: col}, text}}
}

func newBooleanNode(text string, line, col int) *BooleanNode {
	return &BooleanNode{leafNode{baseNode{nodeType: NodeBoolean, line: line, col: col}, text}}
}

func newDateTimeNode(text string, line, col int) *DateTimeNode {
	return &DateTimeNode{leafNode{baseNode{nodeType: NodeDateTime, line: line, col: col}, text}}
}

func newCommentNode(text string, line, col int) *CommentNode {
	return &CommentNode{leafNode{baseNode{nodeType: NodeComment, line: line, col: col}, text}}
}

func newWhitespaceNode(text string, line, col int) *WhitespaceNode {
	return &WhitespaceNode{leafNode{baseNode{nodeType: NodeWhitespace, line: line, col: col}, text}}
}

func newPunctNode(text string, line, col int) *PunctNode {
	return &PunctNode{leafNode{baseNode{nodeType: NodePunct, line: line, col: col}, text}}
}

// KeyPart is one dotted segment of a key. Text is the segment exactly as
// written (quotes included), Unquoted is the decoded segment used for
// lookups. DotBefore and DotAfter hold the dot and any whitespace around it
// so a dotted key can be reassembled verbatim.
type KeyPart struct {
	Text      string
	Unquoted  string
	IsQuoted  bool
	DotBefore string
	DotAfter  string
}

// KeyValue is a key = value pair with all surrounding trivia.
type KeyValue struct {
	baseNode
	LeadingTrivia  []Node // whitespace and comments on preceding lines
	KeyParts       []KeyPart
	RawKey         string // the key exactly as written, dots and all
	PreEq          string // whitespace between key and '='
	PostEq         string // whitespace between '=' and value
	Val            Node
	TrailingTrivia []Node // same-line whitespace and comment after the value
	Newline        string // line terminator, empty at EOF
}

func (kv *KeyValue) Children() []Node {
	out := make([]Node, 0, len(kv.LeadingTrivia)+len(kv.TrailingTrivia)+1)
	out = append(out, kv.LeadingTrivia...)
	if kv.Val != nil {
		out = append(out, kv.Val)
	}
	out = append(out, kv.TrailingTrivia...)
	return out
}

// Text returns the pair without leading trivia or line terminator.
func (kv *KeyValue) Text() string {
	var sb strings.Builder
	sb.WriteString(kv.RawKey)
	sb.WriteString(kv.PreEq)
	sb.WriteByte('=')
	sb.WriteString(kv.PostEq)
	if kv.Val != nil {
		sb.WriteString(kv.Val.Text())
	}
	return sb.String()
}

// TableNode is a standard [table] header plus the entries beneath it.
type TableNode struct {
	baseNode
	LeadingTrivia  []Node
	HeaderParts    []KeyPart
	RawHeader      string // text between the brackets, exactly as written
	Entries        []Node // key-values and trivia in document order
	TrailingTrivia []Node
	Newline        string
}

func (t *TableNode) Children() []Node {
	out := make([]Node, 0, len(t.LeadingTrivia)+len(t.Entries)+len(t.TrailingTrivia))
	out = append(out, t.LeadingTrivia...)
	out = append(out, t.TrailingTrivia...)
	out = append(out, t.Entries...)
	return out
}

// Text returns the header line without trivia.
func (t *TableNode) Text() string { return "[" + t.RawHeader + "]" }

// ArrayOfTables is one [[name]] header plus the entries beneath it. Each
// occurrence of the header is a separate node; together the occurrences
// form the elements of the named array.
type ArrayOfTables struct {
	baseNode
	LeadingTrivia  []Node
	HeaderParts    []KeyPart
	RawHeader      string
	Entries        []Node
	TrailingTrivia []Node
	Newline        string
}

func (t *ArrayOfTables) Children() []Node {
	out := make([]Node, 0, len(t.LeadingTrivia)+len(t.Entries)+len(t.TrailingTrivia))
	out = append(out, t.LeadingTrivia...)
	out = append(out, t.TrailingTrivia...)
	out = append(out, t.Entries...)
	return out
}

// Text returns the header line without trivia.
func (t *ArrayOfTables) Text() string { return "[[" + t.RawHeader + "]]" }

// ArrayNode is an array value. Items holds the complete token stream
// between and including the brackets: punctuation, whitespace, comments and
// the element values, so Text reproduces the array exactly as written.
type ArrayNode struct {
	baseNode
	Items []Node
}

func (a *ArrayNode) Children() []Node { return a.Items }

func (a *ArrayNode) Text() string {
	var sb strings.Builder
	for _, it := range a.Items {
		sb.WriteString(it.Text())
	}
	return sb.String()
}

// Elements returns just the element values, in order.
func (a *ArrayNode) Elements() []Node {
	var out []Node
	for _, it := range a.Items {
		if isValueNode(it) {
			out = append(out, it)
		}
	}
	return out
}

// InlineTableNode is a { key = value, ... } value. Items holds the complete
// token stream between and including the braces.
type InlineTableNode struct {
	baseNode
	Items []Node
}

func (t *InlineTableNode) Children() []Node { return t.Items }

func (t *InlineTableNode) Text() string {
	var sb strings.Builder
	for _, it := range t.Items {
		sb.WriteString(it.Text())
	}
	return sb.String()
}

// Entries returns just the key-value pairs, in order.
func (t *InlineTableNode) Entries() []*KeyValue {
	var out []*KeyValue
	for _, it := range t.Items {
		if kv, ok := it.(*KeyValue); ok {
			out = append(out, kv)
		}
	}
	return out
}

func isValueNode(n Node) bool {
	switch n.Type() {
	case NodeString, NodeNumber, NodeBoolean, NodeDateTime, NodeArray, NodeInlineTable:
		return true
	}
	return false
}

func isTriviaNode(n Node) bool {
	t := n.Type()
	return t == NodeComment || t == NodeWhitespace
}

// Walk visits n and every node below it in document order. Returning false
// from fn stops the walk.
func Walk(n Node, fn func(Node) bool) bool {
	if !fn(n) {
		return false
	}
	for _, c := range n.Children() {
		if !Walk(c, fn) {
			return false
		}
	}
	return true
}

func serializeNode(sb *strings.Builder, n Node) {
	switch node := n.(type) {
	case *KeyValue:
		serializeKeyValue(sb, node)
	case *TableNode:
		serializeTrivia(sb, node.LeadingTrivia)
		sb.WriteString(node.Text())
		serializeTrivia(sb, node.TrailingTrivia)
		sb.WriteString(node.Newline)
		for _, e := range node.Entries {
			serializeNode(sb, e)
		}
	case *ArrayOfTables:
		serializeTrivia(sb, node.LeadingTrivia)
		sb.WriteString(node.Text())
		serializeTrivia(sb, node.TrailingTrivia)
		sb.WriteString(node.Newline)
		for _, e := range node.Entries {
			serializeNode(sb, e)
		}
	default:
		sb.WriteString(n.Text())
	}
}

func serializeTrivia(sb *strings.Builder, trivia []Node) {
	for _, t := range trivia {
		sb.WriteString(t.Text())
	}
}

func serializeKeyValue(sb *strings.Builder, kv *KeyValue) {
	serializeTrivia(sb, kv.LeadingTrivia)
	sb.WriteString(kv.Text())
	serializeTrivia(sb, kv.TrailingTrivia)
	sb.WriteString(kv.Newline)
}
