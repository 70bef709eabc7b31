package tomllib

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// --- UTF-8 validation ---

// invalidUTF8Pos returns the byte offset of the first invalid UTF-8 byte,
// or -1 when data is valid.
func invalidUTF8Pos(data []byte) int {
	for i := 0; i < len(data); {
		r, size := utf8.DecodeRune(data[i:])
		if r == utf8.RuneError && size == 1 {
			return i
		}
		i += size
	}
	return -1
}

// --- Comment validation ---

// validateCommentText checks a comment for invalid chars.
func validateCommentText(s string) string {
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			return "invalid UTF-8 in comment"
		}
		if r != '\t' && isControlChar(r) {
			return fmt.Sprintf("control character U+%04X in comment", r)
		}
		i += size
	}
	return ""
}

func isControlChar(r rune) bool {
	return (r >= 0 && r <= 0x1F) || r == 0x7F
}

// --- String validation ---

// validateStringText validates a TOML string token (with quotes).
func validateStringText(raw string) string {
	if len(raw) < 2 {
		return "invalid string"
	}
	if strings.HasPrefix(raw, `"""`) {
		if len(raw) < 6 {
			return "invalid string"
		}
		return validateBasicContent(trimMLLeadingNewline(raw[3:len(raw)-3]), true)
	}
	if strings.HasPrefix(raw, "'''") {
		if len(raw) < 6 {
			return "invalid string"
		}
		return validateLiteralContent(trimMLLeadingNewline(raw[3:len(raw)-3]), true)
	}
	if raw[0] == '\'' {
		return validateLiteralContent(raw[1:len(raw)-1], false)
	}
	return validateBasicContent(raw[1:len(raw)-1], false)
}

func trimMLLeadingNewline(inner string) string {
	if strings.HasPrefix(inner, "\r\n") {
		return inner[2:]
	}
	if len(inner) > 0 && inner[0] == '\n' {
		return inner[1:]
	}
	return inner
}

func validateBasicContent(s string, multiline bool) string {
	for i := 0; i < len(s); {
		if s[i] == '\\' {
			i++
			if i >= len(s) {
				return "trailing backslash in string"
			}
			newI, msg := validateBasicEscape(s, i, multiline)
			if msg != "" {
				return msg
			}
			i = newI
			continue
		}
		if msg := checkBareCarriageReturn(s, i, multiline); msg != "" {
			return msg
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			return "invalid UTF-8 in string"
		}
		if msg := checkStringControlChar(r, multiline); msg != "" {
			return msg
		}
		i += size
	}
	return ""
}

func checkBareCarriageReturn(s string, i int, multiline bool) string {
	if multiline && s[i] == '\r' && (i+1 >= len(s) || s[i+1] != '\n') {
		return "bare carriage return in multi-line string"
	}
	return ""
}

func checkStringControlChar(r rune, multiline bool) string {
	if r == '\t' {
		return ""
	}
	if isControlChar(r) {
		if multiline && (r == '\n' || r == '\r') {
			return ""
		}
		return fmt.Sprintf("control character U+%04X in string", r)
	}
	return ""
}

func validateBasicEscape(s string, i int, multiline bool) (int, string) {
	switch s[i] {
	case 'b', 't', 'n', 'f', 'r', '"', '\\', 'e':
		return i + 1, ""
	case 'x':
		return validateUnicodeEscape(s, i, 2)
	case 'u':
		return validateUnicodeEscape(s, i, 4)
	case 'U':
		return validateUnicodeEscape(s, i, 8)
	case '\n', '\r':
		if !multiline {
			return 0, "invalid escape sequence"
		}
		return skipLineEndingBackslash(s, i), ""
	case ' ', '\t':
		return validateWsBackslash(s, i, multiline)
	default:
		return 0, fmt.Sprintf("invalid escape sequence '\\%c'", s[i])
	}
}

func validateUnicodeEscape(s string, i, digits int) (int, string) {
	label := `\u`
	switch digits {
	case 2:
		label = `\x`
	case 8:
		label = `\U`
	}
	if i+digits >= len(s) {
		return 0, fmt.Sprintf("incomplete %s escape", label)
	}
	for j := 1; j <= digits; j++ {
		if !isHexDigit(s[i+j]) {
			return 0, fmt.Sprintf("invalid %s escape", label)
		}
	}
	n, _ := strconv.ParseUint(s[i+1:i+1+digits], 16, 32)
	if n >= 0xD800 && n <= 0xDFFF {
		return 0, fmt.Sprintf("invalid unicode scalar U+%04X", n)
	}
	if n > 0x10FFFF {
		return 0, fmt.Sprintf("unicode codepoint U+%04X out of range", n)
	}
	return i + 1 + digits, ""
}

func skipLineEndingBackslash(s string, i int) int {
	if s[i] == '\r' && i+1 < len(s) && s[i+1] == '\n' {
		i++
	}
	i++
	for i < len(s) && isWhitespaceOrNewline(s[i]) {
		i++
	}
	return i
}

func isWhitespaceOrNewline(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func validateWsBackslash(s string, i int, multiline bool) (int, string) {
	if multiline && hasNewlineAfterWs(s, i) {
		return skipToNextNonWs(s, i) + 1, ""
	}
	return 0, fmt.Sprintf("invalid escape sequence '\\%c'", s[i])
}

func validateLiteralContent(s string, multiline bool) string {
	for i := 0; i < len(s); {
		if msg := checkBareCarriageReturn(s, i, multiline); msg != "" {
			return msg
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			return "invalid UTF-8 in literal string"
		}
		if msg := checkLiteralControlChar(r, multiline); msg != "" {
			return msg
		}
		i += size
	}
	return ""
}

func checkLiteralControlChar(r rune, multiline bool) string {
	if r == '\t' {
		return ""
	}
	if isControlChar(r) {
		if multiline && (r == '\n' || r == '\r') {
			return ""
		}
		return fmt.Sprintf("control character U+%04X in literal string", r)
	}
	return ""
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
	for i < len(s) && isWhitespaceOrNewline(s[i]) {
		i++
	}
	return i - 1
}

// --- Number validation ---

// validateNumberText validates a TOML integer or float token.
func validateNumberText(text string) string {
	raw := text
	clean := strings.ReplaceAll(raw, "_", "")

	if isSpecialFloat(clean) {
		return validateUnderscores(raw)
	}
	if hasUnsignedPrefix(clean) || hasSignedPrefix(clean) {
		return checkPrefixNumber(raw, clean)
	}
	if msg := checkDecimalLeadingZeros(raw, clean); msg != "" {
		return msg
	}
	if strings.ContainsAny(clean, ".eE") {
		return validateFloatText(raw, clean)
	}
	return validateDecimalDigits(raw, clean)
}

func checkPrefixNumber(raw, clean string) string {
	if hasUnsignedPrefix(clean) {
		return checkUnsignedPrefix(raw, clean)
	}
	if hasSignedPrefix(clean) {
		return fmt.Sprintf("sign not allowed on %s integer", clean[1:3])
	}
	return ""
}

func hasUnsignedPrefix(clean string) bool {
	if len(clean) <= 1 {
		return false
	}
	return clean[0] == '0' && isBasePrefix(clean[1])
}

func hasSignedPrefix(clean string) bool {
	if len(clean) <= 2 {
		return false
	}
	if clean[0] != '+' && clean[0] != '-' {
		return false
	}
	return clean[1] == '0' && isBasePrefix(clean[2])
}

func checkUnsignedPrefix(raw, clean string) string {
	switch clean[1] {
	case 'x':
		return validatePrefixIntBody(raw, clean, "0x", isHexDigit)
	case 'o':
		return validatePrefixIntBody(raw, clean, "0o", isOctDigit)
	case 'b':
		return validatePrefixIntBody(raw, clean, "0b", isBinDigit)
	}
	return ""
}

func checkDecimalLeadingZeros(raw, clean string) string {
	num := stripSign(clean)
	if len(num) <= 1 {
		return ""
	}
	if num[0] == '0' && num[1] != '.' && num[1] != 'e' && num[1] != 'E' {
		return fmt.Sprintf("leading zeros not allowed: %s", raw)
	}
	return ""
}

func stripSign(s string) string {
	if len(s) > 0 && (s[0] == '+' || s[0] == '-') {
		return s[1:]
	}
	return s
}

func validateDecimalDigits(raw, clean string) string {
	num := stripSign(clean)
	if len(num) == 0 {
		return fmt.Sprintf("invalid integer: %s", raw)
	}
	for i := 0; i < len(num); i++ {
		if !isDecDigit(num[i]) {
			return fmt.Sprintf("invalid character in integer: %s", raw)
		}
	}
	return validateUnderscores(raw)
}

func validatePrefixIntBody(raw, clean, prefix string, validDigit func(byte) bool) string {
	body := clean[len(prefix):]
	if len(body) == 0 {
		return fmt.Sprintf("incomplete %s integer: %s", prefix, raw)
	}
	for i := 0; i < len(body); i++ {
		if !validDigit(body[i]) {
			return fmt.Sprintf("invalid digit in %s integer: %s", prefix, raw)
		}
	}
	return validateUnderscoresInBody(raw, len(prefix))
}

func validateFloatText(raw, clean string) string {
	if strings.Count(clean, ".") > 1 {
		return fmt.Sprintf("multiple dots in float: %s", raw)
	}
	eCount := strings.Count(clean, "e") + strings.Count(clean, "E")
	if eCount > 1 {
		return fmt.Sprintf("multiple exponents in float: %s", raw)
	}
	if msg := checkUnderscoreAdjacent(raw); msg != "" {
		return msg
	}
	if msg := validateUnderscores(raw); msg != "" {
		return msg
	}
	return validateFloatParts(raw, clean)
}

func validateFloatParts(raw, clean string) string {
	num := stripSign(clean)
	dotIdx := strings.Index(num, ".")
	eIdx := strings.IndexAny(num, "eE")

	if dotIdx >= 0 && eIdx >= 0 && dotIdx > eIdx {
		return fmt.Sprintf("dot after exponent: %s", raw)
	}
	if dotIdx >= 0 {
		if msg := validateFloatDotParts(raw, num, dotIdx, eIdx); msg != "" {
			return msg
		}
	}
	if eIdx >= 0 {
		if msg := validateFloatExponent(raw, clean, dotIdx, eIdx); msg != "" {
			return msg
		}
	}
	return ""
}

func validateFloatDotParts(raw, num string, dotIdx, eIdx int) string {
	if dotIdx == 0 || dotIdx == len(num)-1 {
		return fmt.Sprintf("invalid float: %s", raw)
	}
	afterDot := num[dotIdx+1:]
	if eIdx >= 0 {
		afterDot = afterDot[:eIdx-dotIdx-1]
	}
	if len(afterDot) == 0 {
		return fmt.Sprintf("no digits after decimal point: %s", raw)
	}
	return ""
}

func validateFloatExponent(raw, clean string, dotIdx, eIdx int) string {
	eClean := strings.IndexAny(clean, "eE")
	after := clean[eClean+1:]
	if len(after) > 0 && (after[0] == '+' || after[0] == '-') {
		after = after[1:]
	}
	if len(after) == 0 {
		return fmt.Sprintf("no digits in exponent: %s", raw)
	}
	if dotIdx >= 0 && dotIdx == eIdx-1 {
		return fmt.Sprintf("no digits between dot and exponent: %s", raw)
	}
	return ""
}

func checkUnderscoreAdjacent(raw string) string {
	for i := 0; i < len(raw); i++ {
		if raw[i] != '_' {
			continue
		}
		if i > 0 && isFloatSeparator(raw[i-1]) {
			return fmt.Sprintf("underscore after %c: %s", raw[i-1], raw)
		}
		if i+1 < len(raw) && isFloatSeparator(raw[i+1]) {
			return fmt.Sprintf("underscore before %c: %s", raw[i+1], raw)
		}
	}
	return ""
}

func isFloatSeparator(c byte) bool {
	return c == '.' || c == 'e' || c == 'E'
}

func validateUnderscores(raw string) string {
	start := 0
	if len(raw) > 0 && (raw[0] == '+' || raw[0] == '-') {
		start = 1
	}
	if start >= len(raw) {
		return ""
	}
	return validateUnderscoresInBody(raw, start)
}

func validateUnderscoresInBody(s string, start int) string {
	body := s[start:]
	if len(body) == 0 {
		return ""
	}
	if body[0] == '_' {
		return fmt.Sprintf("leading underscore: %s", s)
	}
	if body[len(body)-1] == '_' {
		return fmt.Sprintf("trailing underscore: %s", s)
	}
	for i := 1; i < len(body); i++ {
		if body[i] == '_' && body[i-1] == '_' {
			return fmt.Sprintf("double underscore: %s", s)
		}
	}
	return ""
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func isDecDigit(c byte) bool { return c >= '0' && c <= '9' }
func isOctDigit(c byte) bool { return c >= '0' && c <= '7' }
func isBinDigit(c byte) bool { return c == '0' || c == '1' }

// --- DateTime validation ---

var (
	dtDatePat   = `(\d{4})-(\d{2})-(\d{2})`
	dtTimePat   = `(\d{2}):(\d{2}):(\d{2})(\.\d+)?`
	dtOffsetPat = `([Zz]|[+-]\d{2}:\d{2})`

	dtReOffsetDT  = regexp.MustCompile(`^` + dtDatePat + `[T t]` + dtTimePat + dtOffsetPat + `$`)
	dtReLocalDT   = regexp.MustCompile(`^` + dtDatePat + `[T t]` + dtTimePat + `$`)
	dtReLocalDate = regexp.MustCompile(`^` + dtDatePat + `$`)
	dtReLocalTime = regexp.MustCompile(`^` + dtTimePat + `$`)
)

// validateDateTimeText validates a TOML datetime token: offset datetime,
// local datetime, local date or local time. Seconds are required.
func validateDateTimeText(text string) string {
	switch {
	case dtReOffsetDT.MatchString(text):
		return validateDateTimeParts(text, true)
	case dtReLocalDT.MatchString(text):
		return validateDateTimeParts(text, false)
	case dtReLocalDate.MatchString(text):
		return validateDateText(text)
	case dtReLocalTime.MatchString(text):
		return validateTimeText(text)
	}
	return fmt.Sprintf("invalid datetime format: %s", text)
}

func validateDateTimeParts(text string, hasOffset bool) string {
	sep := strings.IndexAny(text, "Tt ")
	datePart := text[:sep]
	timePart := text[sep+1:]

	if hasOffset {
		if idx := strings.IndexAny(timePart, "Zz"); idx >= 0 {
			timePart = timePart[:idx]
		} else if idx := strings.LastIndexAny(timePart, "+-"); idx > 0 {
			if msg := validateOffsetText(timePart[idx+1:], text); msg != "" {
				return msg
			}
			timePart = timePart[:idx]
		}
	}

	if msg := validateDateText(datePart); msg != "" {
		return msg
	}
	return validateTimeText(timePart)
}

func validateOffsetText(offset, full string) string {
	parts := strings.Split(offset, ":")
	if len(parts) != 2 || len(parts[0]) != 2 || len(parts[1]) != 2 {
		return fmt.Sprintf("invalid offset format: %s", full)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h > 23 {
		return fmt.Sprintf("offset hour out of range: %s", full)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m > 59 {
		return fmt.Sprintf("offset minute out of range: %s", full)
	}
	return ""
}

func validateDateText(s string) string {
	parts := strings.Split(s, "-")
	if len(parts) != 3 {
		return fmt.Sprintf("invalid date: %s", s)
	}
	if len(parts[0]) != 4 {
		return fmt.Sprintf("year must be 4 digits: %s", s)
	}
	if len(parts[1]) != 2 {
		return fmt.Sprintf("month must be 2 digits: %s", s)
	}
	if len(parts[2]) != 2 {
		return fmt.Sprintf("day must be 2 digits: %s", s)
	}
	return checkDateRanges(parts, s)
}

func checkDateRanges(parts []string, s string) string {
	year, _ := strconv.Atoi(parts[0])
	month, _ := strconv.Atoi(parts[1])
	day, _ := strconv.Atoi(parts[2])

	if year < 1 {
		return fmt.Sprintf("year out of range: %s", s)
	}
	if month < 1 || month > 12 {
		return fmt.Sprintf("month out of range: %s", s)
	}
	if day < 1 || day > daysInMonth(year, month) {
		return fmt.Sprintf("day %d out of range for month %d: %s", day, month, s)
	}
	return ""
}

func daysInMonth(year, month int) int {
	days := [13]int{0, 31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}
	if month == 2 && isLeapYear(year) {
		return 29
	}
	return days[month]
}

func isLeapYear(y int) bool {
	return y%4 == 0 && (y%100 != 0 || y%400 == 0)
}

func validateTimeText(s string) string {
	main := s
	if frac := strings.Index(s, "."); frac >= 0 {
		if frac+1 >= len(s) {
			return fmt.Sprintf("trailing dot in time: %s", s)
		}
		main = s[:frac]
	}
	parts := strings.Split(main, ":")
	if len(parts) != 3 {
		return fmt.Sprintf("time must have HH:MM:SS: %s", s)
	}
	for _, p := range parts {
		if len(p) != 2 {
			return fmt.Sprintf("time fields must be 2 digits: %s", s)
		}
	}
	hour, _ := strconv.Atoi(parts[0])
	minute, _ := strconv.Atoi(parts[1])
	sec, _ := strconv.Atoi(parts[2])
	if hour > 23 {
		return fmt.Sprintf("hour out of range: %s", s)
	}
	if minute > 59 {
		return fmt.Sprintf("minute out of range: %s", s)
	}
	if sec > 59 {
		return fmt.Sprintf("second out of range: %s", s)
	}
	return ""
}
