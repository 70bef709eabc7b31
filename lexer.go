package tomllib

import "strings"

// TokenType identifies a lexical token.
type TokenType int

const (
	TokError TokenType = iota - 1

	TokEOF TokenType = iota
	TokNewline
	TokWhitespace
	TokComment

	TokEquals
	TokDot
	TokComma
	TokLBracket
	TokRBracket
	TokLBrace
	TokRBrace

	TokBareKey
	TokBasicString
	TokMLBasicString
	TokLiteralString
	TokMLLiteralString
	TokInteger
	TokFloat
	TokBoolean
	TokDateTime
)

// Token is one lexical token. Text is a slice of the source, never a copy.
// Pos is the byte offset of the token start; Line and Col are 1-based.
type Token struct {
	Type TokenType
	Text string
	Pos  int
	Line int
	Col  int
}

// lexer scans TOML source into tokens. It always emits single brackets,
// never [[ or ]]; the parser handles array-of-tables disambiguation.
// valueMode switches dot handling: in key position a dot separates key
// parts, in value position it stays inside numeric tokens so floats and
// datetimes lex as one token.
type lexer struct {
	src       string
	pos       int
	line      int
	col       int
	valueMode bool
}

func newLexer(src string) *lexer {
	return &lexer{src: src, line: 1, col: 1}
}

func (l *lexer) atEnd() bool { return l.pos >= len(l.src) }

func (l *lexer) peek() byte {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func (l *lexer) peekNext() byte {
	if l.pos+1 >= len(l.src) {
		return 0
	}
	return l.src[l.pos+1]
}

func (l *lexer) advance() {
	if l.pos >= len(l.src) {
		return
	}
	if l.src[l.pos] == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	l.pos++
}

func (l *lexer) makeToken(typ TokenType, start, startLine, startCol int) Token {
	return Token{Type: typ, Text: l.src[start:l.pos], Pos: start, Line: startLine, Col: startCol}
}

func (l *lexer) errToken(start, startLine, startCol int) Token {
	return Token{Type: TokError, Text: l.src[start:l.pos], Pos: start, Line: startLine, Col: startCol}
}

// Next returns the next token.
//
//nolint:gocyclo
func (l *lexer) Next() Token {
	if l.atEnd() {
		return Token{Type: TokEOF, Pos: l.pos, Line: l.line, Col: l.col}
	}

	ch := l.peek()
	startLine, startCol, start := l.line, l.col, l.pos

	switch {
	case ch == '\n' || (ch == '\r' && l.peekNext() == '\n'):
		return l.scanNewline()
	case ch == ' ' || ch == '\t':
		return l.scanWhitespace()
	case ch == '#':
		return l.scanComment()
	case ch == '=':
		l.advance()
		return l.makeToken(TokEquals, start, startLine, startCol)
	case ch == '.':
		l.advance()
		return l.makeToken(TokDot, start, startLine, startCol)
	case ch == ',':
		l.advance()
		return l.makeToken(TokComma, start, startLine, startCol)
	case ch == '[':
		l.advance()
		return l.makeToken(TokLBracket, start, startLine, startCol)
	case ch == ']':
		l.advance()
		return l.makeToken(TokRBracket, start, startLine, startCol)
	case ch == '{':
		l.advance()
		return l.makeToken(TokLBrace, start, startLine, startCol)
	case ch == '}':
		l.advance()
		return l.makeToken(TokRBrace, start, startLine, startCol)
	case ch == '"':
		return l.scanString('"', TokBasicString, TokMLBasicString, true)
	case ch == '\'':
		return l.scanString('\'', TokLiteralString, TokMLLiteralString, false)
	default:
		return l.scanBareOrValue()
	}
}

func (l *lexer) scanNewline() Token {
	start, startLine, startCol := l.pos, l.line, l.col
	if l.peek() == '\r' {
		l.advance()
	}
	l.advance()
	return l.makeToken(TokNewline, start, startLine, startCol)
}

func (l *lexer) scanWhitespace() Token {
	start, startLine, startCol := l.pos, l.line, l.col
	for !l.atEnd() && (l.peek() == ' ' || l.peek() == '\t') {
		l.advance()
	}
	return l.makeToken(TokWhitespace, start, startLine, startCol)
}

func (l *lexer) scanComment() Token {
	start, startLine, startCol := l.pos, l.line, l.col
	for !l.atEnd() && l.peek() != '\n' && l.peek() != '\r' {
		l.advance()
	}
	return l.makeToken(TokComment, start, startLine, startCol)
}

func (l *lexer) scanString(quote byte, single, multi TokenType, escapes bool) Token {
	start, startLine, startCol := l.pos, l.line, l.col
	l.advance()
	if l.peek() == quote && l.peekNext() == quote {
		l.advance()
		l.advance()
		return l.scanMultiLineString(quote, multi, escapes, start, startLine, startCol)
	}
	return l.scanSingleLineString(quote, single, escapes, start, startLine, startCol)
}

func (l *lexer) scanSingleLineString(quote byte, typ TokenType, escapes bool, start, startLine, startCol int) Token {
	for !l.atEnd() {
		ch := l.peek()
		if ch == '\n' || ch == '\r' {
			return l.errToken(start, startLine, startCol)
		}
		if escapes && ch == '\\' {
			l.advance()
			if !l.atEnd() {
				l.advance()
			}
			continue
		}
		if ch == quote {
			l.advance()
			return l.makeToken(typ, start, startLine, startCol)
		}
		l.advance()
	}
	return l.errToken(start, startLine, startCol)
}

// scanMultiLineString scans past the opening triple quote. The closing
// delimiter may be followed by up to two extra quotes, which belong to the
// content.
func (l *lexer) scanMultiLineString(quote byte, typ TokenType, escapes bool, start, startLine, startCol int) Token {
	for !l.atEnd() {
		ch := l.peek()
		if escapes && ch == '\\' {
			l.advance()
			if !l.atEnd() {
				l.advance()
			}
			continue
		}
		if ch == quote {
			count := 0
			for !l.atEnd() && l.peek() == quote && count < 5 {
				l.advance()
				count++
			}
			if count >= 3 {
				return l.makeToken(typ, start, startLine, startCol)
			}
			continue
		}
		l.advance()
	}
	return l.errToken(start, startLine, startCol)
}

// scanBareOrValue scans bare keys, booleans, numbers, datetimes and special
// floats.
func (l *lexer) scanBareOrValue() Token {
	start, startLine, startCol := l.pos, l.line, l.col

	// In numeric context (starts with digit or sign+digit) a dot is part of
	// the token, not a key separator.
	numCtx := l.startsNumeric()

	for !l.atEnd() && !isTokenDelimiter(l.peek(), numCtx) {
		l.advance()
	}

	text := l.src[start:l.pos]
	if text == "" {
		l.advance()
		return l.errToken(start, startLine, startCol)
	}

	// Space-separated datetime: "1979-05-27 07:32:00Z".
	if numCtx && isFullDate(text) && l.peekSpaceTime() {
		l.advance()
		for !l.atEnd() && !isTokenDelimiter(l.peek(), true) {
			l.advance()
		}
		text = l.src[start:l.pos]
	}

	return Token{Type: classifyBareToken(text), Text: text, Pos: start, Line: startLine, Col: startCol}
}

func (l *lexer) startsNumeric() bool {
	if !l.valueMode {
		return false
	}
	ch := l.peek()
	if isDecDigit(ch) {
		return true
	}
	return (ch == '+' || ch == '-') && isDecDigit(l.peekNext())
}

func isTokenDelimiter(ch byte, numCtx bool) bool {
	switch ch {
	case ' ', '\t', '\n', '\r', '#', '=', ',', '[', ']', '{', '}', '"', '\'':
		return true
	case '.':
		return !numCtx
	}
	return false
}

func classifyBareToken(s string) TokenType {
	if s == "true" || s == "false" {
		return TokBoolean
	}
	if isSpecialFloat(s) {
		return TokFloat
	}
	if isDateTimeLike(s) {
		return TokDateTime
	}
	if looksLikeNumber(s) {
		return classifyNumber(s)
	}
	return TokBareKey
}

func isSpecialFloat(s string) bool {
	switch s {
	case "inf", "+inf", "-inf", "nan", "+nan", "-nan":
		return true
	}
	return false
}

// isDateTimeLike catches well-formed and malformed date/time shapes alike,
// so range errors surface as datetime errors rather than key errors.
func isDateTimeLike(s string) bool {
	if len(s) < 5 || !isDecDigit(s[0]) {
		return false
	}
	if strings.ContainsRune(s, ':') {
		return true
	}
	return strings.Count(s, "-") >= 2
}

func looksLikeNumber(s string) bool {
	s = stripSign(s)
	if len(s) == 0 {
		return false
	}
	return isDecDigit(s[0]) || (s[0] == '0' && len(s) > 1 && isBasePrefix(s[1]))
}

func isBasePrefix(ch byte) bool {
	return ch == 'x' || ch == 'o' || ch == 'b'
}

func classifyNumber(s string) TokenType {
	s = stripSign(s)
	if len(s) > 1 && s[0] == '0' && isBasePrefix(s[1]) {
		return TokInteger
	}
	if strings.ContainsAny(s, ".eE") {
		return TokFloat
	}
	return TokInteger
}

func isFullDate(s string) bool {
	return len(s) == 10 && isDecDigit(s[0]) && s[4] == '-' && s[7] == '-'
}

// peekSpaceTime reports whether a space followed by HH: comes next.
func (l *lexer) peekSpaceTime() bool {
	if l.pos+3 >= len(l.src) || l.src[l.pos] != ' ' {
		return false
	}
	return isDecDigit(l.src[l.pos+1]) && isDecDigit(l.src[l.pos+2]) && l.src[l.pos+3] == ':'
}

// peekForDot reports whether the next non-blank character past the current
// token is a dot. Used to decide whether whitespace after a key part
// belongs to a dotted key.
func (l *lexer) peekForDot() bool {
	pos := l.pos
	for pos < len(l.src) && (l.src[pos] == ' ' || l.src[pos] == '\t') {
		pos++
	}
	return pos < len(l.src) && l.src[pos] == '.'
}
