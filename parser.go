package tomllib

import (
	"fmt"
	"strconv"
	"strings"
)

// parser builds a CST from a token stream, collecting recoverable errors
// through an indexer and stopping at the first unrecoverable one.
type parser struct {
	lex    *lexer
	cur    Token
	source string
}

func newParser(source string) *parser {
	p := &parser{
		lex:    newLexer(source),
		source: source,
	}
	p.cur = p.lex.Next()
	return p
}

func (p *parser) advance() Token {
	prev := p.cur
	p.cur = p.lex.Next()
	return prev
}

func (p *parser) at(t TokenType) bool { return p.cur.Type == t }

// parseFail is an unrecoverable failure inside one expression. The parse
// loop turns it into a Partial result; it never reaches callers.
type parseFail struct {
	msg  string
	pos  int
	line int
}

func (f *parseFail) Error() string { return f.msg }

func (p *parser) failHere(msg string) *parseFail {
	return &parseFail{msg: msg, pos: p.cur.Pos, line: p.cur.Line}
}

func (p *parser) failTok(msg string, tok Token) *parseFail {
	return &parseFail{msg: msg, pos: tok.Pos, line: tok.Line}
}

// tableTarget is something that can hold child entries.
type tableTarget interface {
	addEntry(Node)
}

func (t *TableNode) addEntry(n Node) {
	setNodeParent(n, t)
	t.Entries = append(t.Entries, n)
}

func (a *ArrayOfTables) addEntry(n Node) {
	setNodeParent(n, a)
	a.Entries = append(a.Entries, n)
}

func (p *parser) parse() (*Document, ParseResult) {
	doc := newDocument(p.source)
	ix := newIndexer()
	var ct tableTarget // current table receiving entries

	stalled := false
	stallPos, stallLine := 0, 0

	for !p.at(TokEOF) {
		trivia, badTok := p.collectLeadingTrivia()
		if badTok != nil {
			p.attachOrphanTrivia(doc, ct, trivia)
			stalled, stallPos, stallLine = true, badTok.Pos, badTok.Line
			break
		}
		if p.at(TokEOF) {
			p.attachOrphanTrivia(doc, ct, trivia)
			break
		}

		// Expressions roll back whole on failure: everything before this
		// point is kept, everything from it on becomes the remainder.
		contentPos, contentLine := p.cur.Pos, p.cur.Line

		if p.at(TokLBracket) {
			node, err := p.parseTableOrArrayHeader(trivia)
			if err != nil {
				p.attachOrphanTrivia(doc, ct, trivia)
				stalled, stallPos, stallLine = true, contentPos, contentLine
				break
			}
			setNodeParent(node, doc)
			doc.Nodes = append(doc.Nodes, node)
			if t, ok := node.(tableTarget); ok {
				ct = t
			}
			ix.add(node)
			continue
		}

		kv, err := p.parseKeyVal(trivia)
		if err != nil {
			p.attachOrphanTrivia(doc, ct, trivia)
			stalled, stallPos, stallLine = true, contentPos, contentLine
			break
		}
		trailErr := p.addTrailingTrivia(kv)

		if ct != nil {
			ct.addEntry(kv)
		} else {
			setNodeParent(kv, doc)
			doc.Nodes = append(doc.Nodes, kv)
		}
		ix.add(kv)

		// The key-value itself parsed, so it stays; the stall begins at
		// whatever should have been its line ending.
		if trailErr != nil {
			stalled, stallPos, stallLine = true, trailErr.pos, trailErr.line
			break
		}
	}

	doc.index = ix.idx
	doc.errs = ix.errs

	res := ParseResult{State: Full}
	if len(ix.errs) > 0 {
		res.State = FullError
		res.Errors = derefErrors(ix.errs)
	}
	if stalled {
		res.Remainder = p.source[stallPos:]
		res.Line = stallLine
		if len(ix.errs) > 0 {
			res.State = PartialError
		} else {
			res.State = Partial
		}
	}
	return doc, res
}

func derefErrors(errs []*ParseError) []ParseError {
	out := make([]ParseError, 0, len(errs))
	for _, e := range errs {
		out = append(out, *e)
	}
	return out
}

func (p *parser) attachOrphanTrivia(doc *Document, ct tableTarget, trivia []Node) {
	for _, t := range trivia {
		if ct != nil {
			ct.addEntry(t)
		} else {
			setNodeParent(t, doc)
			doc.Nodes = append(doc.Nodes, t)
		}
	}
}

// collectLeadingTrivia gathers whitespace, newlines, and comments. A
// comment with invalid characters stops collection and is returned so
// the caller can stall at it.
func (p *parser) collectLeadingTrivia() ([]Node, *Token) {
	var nodes []Node
	for p.at(TokWhitespace) || p.at(TokNewline) || p.at(TokComment) {
		tok := p.advance()
		if tok.Type == TokComment {
			if msg := validateCommentText(tok.Text); msg != "" {
				return nodes, &tok
			}
			nodes = append(nodes, newCommentNode(tok.Text, tok.Line, tok.Col))
			continue
		}
		nodes = append(nodes, newWhitespaceNode(tok.Text, tok.Line, tok.Col))
	}
	return nodes, nil
}

// addTrailingTrivia collects whitespace and comment after a value on the
// same line, and requires a newline or EOF to follow.
func (p *parser) addTrailingTrivia(kv *KeyValue) *parseFail {
	if p.at(TokWhitespace) {
		tok := p.advance()
		kv.TrailingTrivia = append(kv.TrailingTrivia, newWhitespaceNode(tok.Text, tok.Line, tok.Col))
	}
	if p.at(TokComment) {
		tok := p.advance()
		if msg := validateCommentText(tok.Text); msg != "" {
			return p.failTok(msg, tok)
		}
		kv.TrailingTrivia = append(kv.TrailingTrivia, newCommentNode(tok.Text, tok.Line, tok.Col))
	}
	if p.at(TokNewline) {
		tok := p.advance()
		kv.Newline = tok.Text
		return nil
	}
	if p.at(TokEOF) {
		return nil
	}
	return p.failHere("expected newline or end of file after value")
}

// parseTableOrArrayHeader handles [ and [[ disambiguation.
func (p *parser) parseTableOrArrayHeader(trivia []Node) (Node, error) {
	headerLine, headerCol := p.cur.Line, p.cur.Col
	p.advance() // first [

	if p.at(TokLBracket) {
		p.advance() // second [
		return p.parseArrayOfTablesBody(trivia, headerLine, headerCol)
	}

	return p.parseTableHeaderBody(trivia, headerLine, headerCol)
}

func (p *parser) parseTableHeaderBody(trivia []Node, hdrLine, hdrCol int) (Node, error) {
	rawHeader, parts, err := p.parseKeyInHeader()
	if err != nil {
		return nil, err
	}

	if !p.at(TokRBracket) {
		return nil, p.failHere("expected ']' to close table header")
	}
	p.advance()

	trailing, nl, err := p.collectHeaderTrailing()
	if err != nil {
		return nil, err
	}

	return &TableNode{
		baseNode:       baseNode{nodeType: NodeTable, line: hdrLine, col: hdrCol},
		LeadingTrivia:  trivia,
		RawHeader:      rawHeader,
		HeaderParts:    parts,
		TrailingTrivia: trailing,
		Newline:        nl,
	}, nil
}

func (p *parser) parseArrayOfTablesBody(trivia []Node, hdrLine, hdrCol int) (Node, error) {
	rawHeader, parts, err := p.parseKeyInHeader()
	if err != nil {
		return nil, err
	}

	if !p.at(TokRBracket) {
		return nil, p.failHere("expected ']]' to close array of tables header")
	}
	p.advance()
	if !p.at(TokRBracket) {
		return nil, p.failHere("expected ']]' to close array of tables header")
	}
	p.advance()

	trailing, nl, err := p.collectHeaderTrailing()
	if err != nil {
		return nil, err
	}

	return &ArrayOfTables{
		baseNode:       baseNode{nodeType: NodeArrayOfTables, line: hdrLine, col: hdrCol},
		LeadingTrivia:  trivia,
		RawHeader:      rawHeader,
		HeaderParts:    parts,
		TrailingTrivia: trailing,
		Newline:        nl,
	}, nil
}

func (p *parser) collectHeaderTrailing() ([]Node, string, error) {
	var nodes []Node
	if p.at(TokWhitespace) {
		tok := p.advance()
		nodes = append(nodes, newWhitespaceNode(tok.Text, tok.Line, tok.Col))
	}
	if p.at(TokComment) {
		tok := p.advance()
		if msg := validateCommentText(tok.Text); msg != "" {
			return nil, "", p.failTok(msg, tok)
		}
		nodes = append(nodes, newCommentNode(tok.Text, tok.Line, tok.Col))
	}
	nl := ""
	if p.at(TokNewline) {
		tok := p.advance()
		nl = tok.Text
	} else if !p.at(TokEOF) {
		return nil, "", p.failHere("expected newline or end of file after table header")
	}
	return nodes, nl, nil
}

// parseKeyInHeader parses a key inside [ ] or [[ ]], returning raw text
// and parts.
func (p *parser) parseKeyInHeader() (string, []KeyPart, error) {
	var raw strings.Builder

	if p.at(TokWhitespace) {
		raw.WriteString(p.cur.Text)
		p.advance()
	}

	parts, keyRaw, err := p.parseKey()
	if err != nil {
		return "", nil, err
	}
	raw.WriteString(keyRaw)

	if p.at(TokWhitespace) {
		raw.WriteString(p.cur.Text)
		p.advance()
	}

	return raw.String(), parts, nil
}

// parseKey parses a simple or dotted key.
func (p *parser) parseKey() ([]KeyPart, string, error) {
	var parts []KeyPart
	var raw strings.Builder

	part, err := p.parseSimpleKey()
	if err != nil {
		return nil, "", err
	}
	raw.WriteString(part.Text)
	parts = append(parts, part)

	for p.at(TokDot) || (p.at(TokWhitespace) && p.lex.peekForDot()) {
		dotBefore := ""
		if p.at(TokWhitespace) {
			dotBefore = p.cur.Text
			raw.WriteString(dotBefore)
			p.advance()
		}
		if !p.at(TokDot) {
			break
		}
		raw.WriteString(".")
		p.advance()

		dotAfter := ""
		if p.at(TokWhitespace) {
			dotAfter = p.cur.Text
			raw.WriteString(dotAfter)
			p.advance()
		}

		part, err = p.parseSimpleKey()
		if err != nil {
			return nil, "", err
		}
		part.DotBefore = dotBefore
		part.DotAfter = dotAfter
		raw.WriteString(part.Text)
		parts = append(parts, part)
	}

	return parts, raw.String(), nil
}

func (p *parser) parseSimpleKey() (KeyPart, error) {
	switch p.cur.Type { //nolint:exhaustive
	case TokBareKey, TokBoolean, TokInteger, TokFloat, TokDateTime:
		tok := p.advance()
		for _, r := range tok.Text {
			if !isBareKeyChar(r) {
				return KeyPart{}, p.failTok(
					fmt.Sprintf("invalid character %q in bare key %q", r, tok.Text), tok)
			}
		}
		return KeyPart{Text: tok.Text, Unquoted: tok.Text}, nil
	case TokBasicString:
		tok := p.advance()
		if msg := validateStringText(tok.Text); msg != "" {
			return KeyPart{}, p.failTok(msg, tok)
		}
		return KeyPart{Text: tok.Text, Unquoted: unquoteBasicStr(tok.Text), IsQuoted: true}, nil
	case TokLiteralString:
		tok := p.advance()
		if msg := validateStringText(tok.Text); msg != "" {
			return KeyPart{}, p.failTok(msg, tok)
		}
		return KeyPart{Text: tok.Text, Unquoted: unquoteLiteralStr(tok.Text), IsQuoted: true}, nil
	default:
		return KeyPart{}, p.failHere("expected key")
	}
}

func isBareKeyChar(r rune) bool {
	return (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') ||
		(r >= '0' && r <= '9') || r == '-' || r == '_'
}

func (p *parser) parseKeyVal(trivia []Node) (*KeyValue, error) {
	kvLine, kvCol := p.cur.Line, p.cur.Col
	parts, rawKey, err := p.parseKey()
	if err != nil {
		return nil, err
	}

	preEq := ""
	if p.at(TokWhitespace) {
		preEq = p.cur.Text
		p.advance()
	}

	if !p.at(TokEquals) {
		return nil, p.failHere("expected '='")
	}
	p.lex.valueMode = true // switch to value context so . is part of floats
	p.advance()

	postEq := ""
	if p.at(TokWhitespace) {
		postEq = p.cur.Text
		p.advance()
	}

	val, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	p.lex.valueMode = false // back to key context

	kv := &KeyValue{
		baseNode:      baseNode{nodeType: NodeKeyValue, line: kvLine, col: kvCol},
		LeadingTrivia: trivia,
		KeyParts:      parts,
		RawKey:        rawKey,
		PreEq:         preEq,
		PostEq:        postEq,
		Val:           val,
	}
	setNodeParent(val, kv)
	return kv, nil
}

// parseValue parses a TOML value.
func (p *parser) parseValue() (Node, error) {
	switch p.cur.Type { //nolint:exhaustive
	case TokBasicString, TokMLBasicString, TokLiteralString, TokMLLiteralString:
		return p.parseStringValue()
	case TokInteger, TokFloat:
		return p.parseNumberValue()
	case TokBoolean:
		tok := p.advance()
		return newBooleanNode(tok.Text, tok.Line, tok.Col), nil
	case TokDateTime:
		// Range errors on datetimes are recoverable, so the node is kept
		// as written and checked when it is indexed.
		tok := p.advance()
		return newDateTimeNode(tok.Text, tok.Line, tok.Col), nil
	case TokLBracket:
		return p.parseArray()
	case TokLBrace:
		return p.parseInlineTable()
	default:
		return nil, p.failHere("expected value")
	}
}

func (p *parser) parseStringValue() (Node, error) {
	tok := p.advance()
	if msg := validateStringText(tok.Text); msg != "" {
		return nil, p.failTok(msg, tok)
	}
	return newStringNode(tok.Text, tok.Line, tok.Col), nil
}

func (p *parser) parseNumberValue() (Node, error) {
	tok := p.advance()
	if msg := validateNumberText(tok.Text); msg != "" {
		return nil, p.failTok(msg, tok)
	}
	return newNumberNode(tok.Text, tok.Line, tok.Col), nil
}

func (p *parser) parseArray() (Node, error) {
	arr := &ArrayNode{baseNode: baseNode{nodeType: NodeArray, line: p.cur.Line, col: p.cur.Col}}
	open := p.advance() // [
	items := []Node{newPunctNode(open.Text, open.Line, open.Col)}

	if err := p.collectValueTrivia(&items); err != nil {
		return nil, err
	}

	for !p.at(TokRBracket) && !p.at(TokEOF) {
		p.lex.valueMode = true // array elements are values
		val, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		items = append(items, val)
		p.lex.valueMode = true // restore after parseValue (inline table may unset it)
		if err := p.collectValueTrivia(&items); err != nil {
			return nil, err
		}

		if p.at(TokComma) {
			tok := p.advance()
			items = append(items, newPunctNode(tok.Text, tok.Line, tok.Col))
			if err := p.collectValueTrivia(&items); err != nil {
				return nil, err
			}
		} else if !p.at(TokRBracket) {
			return nil, p.failHere("expected ',' or ']' in array")
		}
	}

	if !p.at(TokRBracket) {
		return nil, p.failHere("expected ']' to close array")
	}
	closeTok := p.advance()
	items = append(items, newPunctNode(closeTok.Text, closeTok.Line, closeTok.Col))

	arr.Items = items
	for _, it := range items {
		setNodeParent(it, arr)
	}
	return arr, nil
}

func (p *parser) parseInlineTable() (Node, error) {
	tbl := &InlineTableNode{baseNode: baseNode{nodeType: NodeInlineTable, line: p.cur.Line, col: p.cur.Col}}
	p.lex.valueMode = false // keys inside inline table
	open := p.advance()     // {
	items := []Node{newPunctNode(open.Text, open.Line, open.Col)}

	if err := p.collectInlineWs(&items); err != nil {
		return nil, err
	}

	for !p.at(TokRBrace) && !p.at(TokEOF) {
		kv, err := p.parseKeyVal(nil)
		if err != nil {
			return nil, err
		}
		items = append(items, kv)
		if err := p.collectInlineWs(&items); err != nil {
			return nil, err
		}

		if p.at(TokComma) {
			tok := p.advance()
			items = append(items, newPunctNode(tok.Text, tok.Line, tok.Col))
			if err := p.collectInlineWs(&items); err != nil {
				return nil, err
			}
			if p.at(TokRBrace) {
				return nil, p.failHere("trailing comma not allowed in inline table")
			}
		} else if !p.at(TokRBrace) {
			return nil, p.failHere("expected ',' or '}' in inline table")
		}
	}

	if !p.at(TokRBrace) {
		return nil, p.failHere("expected '}' to close inline table")
	}
	closeTok := p.advance()
	items = append(items, newPunctNode(closeTok.Text, closeTok.Line, closeTok.Col))

	tbl.Items = items
	for _, it := range items {
		setNodeParent(it, tbl)
	}
	return tbl, nil
}

// collectValueTrivia keeps whitespace, newlines and comments inside an
// array as nodes, so the array renders back byte for byte.
func (p *parser) collectValueTrivia(items *[]Node) error {
	for p.at(TokWhitespace) || p.at(TokNewline) || p.at(TokComment) {
		tok := p.advance()
		if tok.Type == TokComment {
			if msg := validateCommentText(tok.Text); msg != "" {
				return p.failTok(msg, tok)
			}
			*items = append(*items, newCommentNode(tok.Text, tok.Line, tok.Col))
			continue
		}
		*items = append(*items, newWhitespaceNode(tok.Text, tok.Line, tok.Col))
	}
	return nil
}

// collectInlineWs keeps whitespace inside an inline table. Newlines and
// comments cannot appear between braces.
func (p *parser) collectInlineWs(items *[]Node) error {
	if p.at(TokWhitespace) {
		tok := p.advance()
		*items = append(*items, newWhitespaceNode(tok.Text, tok.Line, tok.Col))
	}
	if p.at(TokNewline) || p.at(TokComment) {
		return p.failHere("newline not allowed in inline table")
	}
	return nil
}

func unquoteBasicStr(s string) string {
	if len(s) < 2 {
		return s
	}
	return parserProcessBasicEscapes(s[1 : len(s)-1])
}

func unquoteLiteralStr(s string) string {
	if len(s) < 2 {
		return s
	}
	return s[1 : len(s)-1]
}

//nolint:gocyclo
func parserProcessBasicEscapes(s string) string {
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
			if i+2 < len(s) {
				if n, err := strconv.ParseUint(s[i+1:i+3], 16, 32); err == nil {
					b.WriteRune(rune(n))
					i += 2
					continue
				}
			}
			b.WriteString(`\x`)
		case 'u':
			if i+4 < len(s) {
				if n, err := strconv.ParseUint(s[i+1:i+5], 16, 32); err == nil {
					b.WriteRune(rune(n))
					i += 4
					continue
				}
			}
			b.WriteString(`\u`)
		case 'U':
			if i+8 < len(s) {
				if n, err := strconv.ParseUint(s[i+1:i+9], 16, 32); err == nil {
					b.WriteRune(rune(n))
					i += 8
					continue
				}
			}
			b.WriteString(`\U`)
		default:
			b.WriteByte('\\')
			b.WriteByte(s[i])
		}
	}
	return b.String()
}
