// Package tomllib parses TOML documents into a format-preserving syntax
// tree. Serializing an unmodified document reproduces the input byte for
// byte, values are addressable through dotted key paths, and values can be
// replaced in place while keeping the surrounding whitespace and comments
// intact.
//
// Parsing is tolerant: recoverable problems such as duplicate keys, mixed
// arrays, conflicting table headers and out-of-range datetimes are collected
// as ParseError values while parsing continues, so as much of the document
// as possible stays queryable.
package tomllib

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyKey          = errors.New("empty key")
	ErrUnexpectedContent = errors.New("unexpected content after key")
	ErrNilValue          = errors.New("nil value")
	ErrNilNode           = errors.New("nil node")
	ErrInvalidValue      = errors.New("invalid value")
	ErrInvalidDateTime   = errors.New("invalid datetime")
	ErrMalformedKeyPath  = errors.New("malformed key path")
	ErrDuplicateKey      = errors.New("duplicate key")
	ErrKeyConflict       = errors.New("key conflicts with existing key")
	ErrKeyNotFound       = errors.New("key not found")
	ErrIndexOutOfRange   = errors.New("index out of range")
	ErrInvalidNodeType   = errors.New("invalid node type")
	ErrCommentNewline    = errors.New("comment contains newline")
	ErrCommentControl    = errors.New("comment contains control character")
	ErrInvalidWsChar     = errors.New("whitespace contains non-whitespace character")
)

// ParseState is the terminal state of a parse.
type ParseState int

const (
	// Full means the whole input parsed with no errors.
	Full ParseState = iota
	// FullError means the whole input parsed but recoverable errors were
	// collected along the way.
	FullError
	// Partial means parsing stalled partway through; the parsed prefix is
	// usable and Remainder holds the rest of the input.
	Partial
	// PartialError is Partial plus collected recoverable errors.
	PartialError
	// Failure means nothing could be parsed at all.
	Failure
)

func (s ParseState) String() string {
	switch s {
	case Full:
		return "Full"
	case FullError:
		return "FullError"
	case Partial:
		return "Partial"
	case PartialError:
		return "PartialError"
	case Failure:
		return "Failure"
	}
	return "Unknown"
}

// ParseResult describes how much of the input a Parse call understood.
// Line is the 1-based physical line of the first unparsed construct for
// Partial and Failure states. Column is always 0; only line granularity is
// tracked.
type ParseResult struct {
	State     ParseState
	Remainder string // unparsed tail of the input, Partial states only
	Line      int
	Column    int
	Errors    []ParseError
}

// ErrorKind classifies a recoverable parse error.
type ErrorKind int

const (
	MixedArray ErrorKind = iota
	DuplicateKey
	InvalidTable
	InvalidDateTime
	IntegerOverflow
	IntegerUnderflow
	InvalidInteger
	Infinity
	NegativeInfinity
	LossOfPrecision
	InvalidFloat
	InvalidBoolean
	InvalidString
	GenericError
)

func (k ErrorKind) String() string {
	switch k {
	case MixedArray:
		return "MixedArray"
	case DuplicateKey:
		return "DuplicateKey"
	case InvalidTable:
		return "InvalidTable"
	case InvalidDateTime:
		return "InvalidDateTime"
	case IntegerOverflow:
		return "IntegerOverflow"
	case IntegerUnderflow:
		return "IntegerUnderflow"
	case InvalidInteger:
		return "InvalidInteger"
	case Infinity:
		return "Infinity"
	case NegativeInfinity:
		return "NegativeInfinity"
	case LossOfPrecision:
		return "LossOfPrecision"
	case InvalidFloat:
		return "InvalidFloat"
	case InvalidBoolean:
		return "InvalidBoolean"
	case InvalidString:
		return "InvalidString"
	case GenericError:
		return "GenericError"
	}
	return "Unknown"
}

// ParseError is one recoverable error collected during parsing. Column is
// always 0. The payload fields depend on Kind: DuplicateKey carries the
// shadowed value in Value, InvalidTable carries the quarantined entries in
// TableValues, InvalidDateTime carries the offending token text in Text.
type ParseError struct {
	Kind        ErrorKind
	Key         string
	Line        int
	Column      int
	Value       Value
	TableValues map[string]Value
	Text        string
	Message     string
}

func (e *ParseError) Error() string {
	switch e.Kind {
	case MixedArray:
		return fmt.Sprintf("line %d: array %q mixes value types", e.Line, e.Key)
	case DuplicateKey:
		return fmt.Sprintf("line %d: duplicate key %q", e.Line, e.Key)
	case InvalidTable:
		return fmt.Sprintf("line %d: invalid table %q", e.Line, e.Key)
	case InvalidDateTime:
		return fmt.Sprintf("line %d: invalid datetime %q for key %q", e.Line, e.Text, e.Key)
	}
	if e.Message != "" {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return fmt.Sprintf("line %d: %s for key %q", e.Line, e.Kind, e.Key)
}

// Document is a parsed TOML document: the syntax tree plus a flat index
// from fully-qualified key paths to the nodes holding their values.
type Document struct {
	Nodes []Node

	source string
	index  map[string]*indexEntry
	errs   []*ParseError
}

func (d *Document) Type() NodeType   { return NodeDocument }
func (d *Document) Parent() Node     { return nil }
func (d *Document) Children() []Node { return d.Nodes }
func (d *Document) Text() string     { return d.String() }

// String renders the document. For an unmodified parse the output is the
// input, byte for byte.
func (d *Document) String() string {
	var sb strings.Builder
	sb.Grow(len(d.source))
	for _, n := range d.Nodes {
		serializeNode(&sb, n)
	}
	return sb.String()
}

// Walk traverses the document in pre-order. Visitor returns false to stop.
func (d *Document) Walk(visitor func(Node) bool) {
	Walk(d, visitor)
}

// Tables returns all top-level TableNode nodes in document order.
func (d *Document) Tables() []*TableNode {
	var out []*TableNode
	for _, n := range d.Nodes {
		if t, ok := n.(*TableNode); ok {
			out = append(out, t)
		}
	}
	return out
}

// ArraysOfTables returns all ArrayOfTables nodes in document order.
func (d *Document) ArraysOfTables() []*ArrayOfTables {
	var out []*ArrayOfTables
	for _, n := range d.Nodes {
		if a, ok := n.(*ArrayOfTables); ok {
			out = append(out, a)
		}
	}
	return out
}

// Parse parses input and returns the document together with a result
// describing how much of the input was understood. The document is never
// nil; on Failure it is empty. Failure is reserved for nil input and input
// that is not valid UTF-8; anything else yields at least a Partial parse.
func Parse(input []byte) (*Document, ParseResult) {
	if input == nil {
		return newDocument(""), ParseResult{State: Failure, Line: 1}
	}
	if pos := invalidUTF8Pos(input); pos >= 0 {
		line := 1 + bytes.Count(input[:pos], []byte{'\n'})
		return newDocument(""), ParseResult{State: Failure, Line: line}
	}
	p := newParser(string(input))
	return p.parse()
}

func newDocument(source string) *Document {
	return &Document{source: source, index: make(map[string]*indexEntry)}
}
