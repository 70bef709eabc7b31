package tomllib

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Date is the calendar part of a DateTime. Fields hold the digit strings
// exactly as they render: a 4-digit year and 2-digit month and day.
type Date struct {
	Year  string
	Month string
	Day   string
}

// String renders the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Year + "-" + d.Month + "-" + d.Day
}

func (d Date) isZero() bool {
	return d.Year == "" && d.Month == "" && d.Day == ""
}

// Validate reports whether the date fields form a real calendar date.
func (d Date) Validate() bool {
	if len(d.Year) != 4 || len(d.Month) != 2 || len(d.Day) != 2 {
		return false
	}
	if !allDigits(d.Year) || !allDigits(d.Month) || !allDigits(d.Day) {
		return false
	}
	return checkDateRanges([]string{d.Year, d.Month, d.Day}, d.String()) == ""
}

// TimeOffset is a time zone offset: either Zulu or a signed HH:MM pair.
type TimeOffset struct {
	Zulu   bool
	Sign   byte
	Hour   string
	Minute string
}

// String renders the offset as Z or +HH:MM / -HH:MM.
func (o TimeOffset) String() string {
	if o.Zulu {
		return "Z"
	}
	return string(o.Sign) + o.Hour + ":" + o.Minute
}

// Validate reports whether the offset fields are in range.
func (o TimeOffset) Validate() bool {
	if o.Zulu {
		return true
	}
	if o.Sign != '+' && o.Sign != '-' {
		return false
	}
	if len(o.Hour) != 2 || len(o.Minute) != 2 {
		return false
	}
	if !allDigits(o.Hour) || !allDigits(o.Minute) {
		return false
	}
	h, _ := strconv.Atoi(o.Hour)
	m, _ := strconv.Atoi(o.Minute)
	return h <= 23 && m <= 59
}

// Time is the clock part of a DateTime. Fraction holds the digits after
// the decimal point without the point itself, empty when absent.
type Time struct {
	Hour     string
	Minute   string
	Second   string
	Fraction string
	Offset   *TimeOffset
}

// String renders the time as HH:MM:SS with optional fraction and offset.
func (t Time) String() string {
	var sb strings.Builder
	sb.WriteString(t.Hour)
	sb.WriteByte(':')
	sb.WriteString(t.Minute)
	sb.WriteByte(':')
	sb.WriteString(t.Second)
	if t.Fraction != "" {
		sb.WriteByte('.')
		sb.WriteString(t.Fraction)
	}
	if t.Offset != nil {
		sb.WriteString(t.Offset.String())
	}
	return sb.String()
}

// Validate reports whether the time fields are in range.
func (t Time) Validate() bool {
	if len(t.Hour) != 2 || len(t.Minute) != 2 || len(t.Second) != 2 {
		return false
	}
	if !allDigits(t.Hour) || !allDigits(t.Minute) || !allDigits(t.Second) {
		return false
	}
	h, _ := strconv.Atoi(t.Hour)
	m, _ := strconv.Atoi(t.Minute)
	s, _ := strconv.Atoi(t.Second)
	if h > 23 || m > 59 || s > 59 {
		return false
	}
	if t.Fraction != "" && !allDigits(t.Fraction) {
		return false
	}
	if t.Offset != nil && !t.Offset.Validate() {
		return false
	}
	return true
}

// DateTime is a TOML datetime value: a date with an optional time, or a
// local time alone when parsed from a time-only value.
type DateTime struct {
	Date Date
	Time *Time
}

func (DateTime) isValue() {}

// String renders the datetime in canonical form with a 'T' separator.
func (dt DateTime) String() string {
	if dt.Date.isZero() {
		if dt.Time == nil {
			return ""
		}
		return dt.Time.String()
	}
	if dt.Time == nil {
		return dt.Date.String()
	}
	return dt.Date.String() + "T" + dt.Time.String()
}

// Validate reports whether the datetime fields form a real moment.
func (dt DateTime) Validate() bool {
	if dt.Date.isZero() {
		return dt.Time != nil && dt.Time.Validate()
	}
	if !dt.Date.Validate() {
		return false
	}
	return dt.Time == nil || dt.Time.Validate()
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isDecDigit(s[i]) {
			return false
		}
	}
	return true
}

// --- Constructors ---

// DateFromInts builds a date-only datetime, zero-padding each field.
func DateFromInts(year, month, day int) (DateTime, error) {
	return DateFromStrings(
		fmt.Sprintf("%04d", year),
		fmt.Sprintf("%02d", month),
		fmt.Sprintf("%02d", day),
	)
}

// DateFromStrings builds a date-only datetime from digit strings.
func DateFromStrings(year, month, day string) (DateTime, error) {
	dt := DateTime{Date: Date{Year: year, Month: month, Day: day}}
	if !dt.Validate() {
		return DateTime{}, fmt.Errorf("%w: %q", ErrInvalidDateTime, dt.String())
	}
	return dt, nil
}

// DateTimeFromInts builds a local datetime, zero-padding each field.
func DateTimeFromInts(year, month, day, hour, minute, second int) (DateTime, error) {
	return DateTimeFromStrings(
		fmt.Sprintf("%04d", year), fmt.Sprintf("%02d", month), fmt.Sprintf("%02d", day),
		fmt.Sprintf("%02d", hour), fmt.Sprintf("%02d", minute), fmt.Sprintf("%02d", second),
	)
}

// DateTimeFromStrings builds a local datetime from digit strings.
func DateTimeFromStrings(year, month, day, hour, minute, second string) (DateTime, error) {
	dt := DateTime{
		Date: Date{Year: year, Month: month, Day: day},
		Time: &Time{Hour: hour, Minute: minute, Second: second},
	}
	if !dt.Validate() {
		return DateTime{}, fmt.Errorf("%w: %q", ErrInvalidDateTime, dt.String())
	}
	return dt, nil
}

// DateTimeFracFromInts builds a local datetime with a fractional second.
// The fraction argument supplies the digits after the decimal point.
func DateTimeFracFromInts(year, month, day, hour, minute, second, frac int) (DateTime, error) {
	return DateTimeFracFromStrings(
		fmt.Sprintf("%04d", year), fmt.Sprintf("%02d", month), fmt.Sprintf("%02d", day),
		fmt.Sprintf("%02d", hour), fmt.Sprintf("%02d", minute), fmt.Sprintf("%02d", second),
		strconv.Itoa(frac),
	)
}

// DateTimeFracFromStrings builds a local datetime with a fractional second.
func DateTimeFracFromStrings(year, month, day, hour, minute, second, frac string) (DateTime, error) {
	dt := DateTime{
		Date: Date{Year: year, Month: month, Day: day},
		Time: &Time{Hour: hour, Minute: minute, Second: second, Fraction: frac},
	}
	if !dt.Validate() {
		return DateTime{}, fmt.Errorf("%w: %q", ErrInvalidDateTime, dt.String())
	}
	return dt, nil
}

// DateTimeZuluFromInts builds a UTC datetime, zero-padding each field.
func DateTimeZuluFromInts(year, month, day, hour, minute, second int) (DateTime, error) {
	return DateTimeZuluFromStrings(
		fmt.Sprintf("%04d", year), fmt.Sprintf("%02d", month), fmt.Sprintf("%02d", day),
		fmt.Sprintf("%02d", hour), fmt.Sprintf("%02d", minute), fmt.Sprintf("%02d", second),
	)
}

// DateTimeZuluFromStrings builds a UTC datetime from digit strings.
func DateTimeZuluFromStrings(year, month, day, hour, minute, second string) (DateTime, error) {
	dt := DateTime{
		Date: Date{Year: year, Month: month, Day: day},
		Time: &Time{Hour: hour, Minute: minute, Second: second, Offset: &TimeOffset{Zulu: true}},
	}
	if !dt.Validate() {
		return DateTime{}, fmt.Errorf("%w: %q", ErrInvalidDateTime, dt.String())
	}
	return dt, nil
}

// DateTimeFullZuluFromInts builds a UTC datetime with a fractional second.
func DateTimeFullZuluFromInts(year, month, day, hour, minute, second, frac int) (DateTime, error) {
	return DateTimeFullZuluFromStrings(
		fmt.Sprintf("%04d", year), fmt.Sprintf("%02d", month), fmt.Sprintf("%02d", day),
		fmt.Sprintf("%02d", hour), fmt.Sprintf("%02d", minute), fmt.Sprintf("%02d", second),
		strconv.Itoa(frac),
	)
}

// DateTimeFullZuluFromStrings builds a UTC datetime with a fractional second.
func DateTimeFullZuluFromStrings(year, month, day, hour, minute, second, frac string) (DateTime, error) {
	dt := DateTime{
		Date: Date{Year: year, Month: month, Day: day},
		Time: &Time{Hour: hour, Minute: minute, Second: second, Fraction: frac,
			Offset: &TimeOffset{Zulu: true}},
	}
	if !dt.Validate() {
		return DateTime{}, fmt.Errorf("%w: %q", ErrInvalidDateTime, dt.String())
	}
	return dt, nil
}

// DateTimeOffsetFromInts builds an offset datetime. Sign must be '+' or '-'.
func DateTimeOffsetFromInts(year, month, day, hour, minute, second int, sign byte, offHour, offMinute int) (DateTime, error) {
	return DateTimeOffsetFromStrings(
		fmt.Sprintf("%04d", year), fmt.Sprintf("%02d", month), fmt.Sprintf("%02d", day),
		fmt.Sprintf("%02d", hour), fmt.Sprintf("%02d", minute), fmt.Sprintf("%02d", second),
		sign, fmt.Sprintf("%02d", offHour), fmt.Sprintf("%02d", offMinute),
	)
}

// DateTimeOffsetFromStrings builds an offset datetime from digit strings.
func DateTimeOffsetFromStrings(year, month, day, hour, minute, second string, sign byte, offHour, offMinute string) (DateTime, error) {
	dt := DateTime{
		Date: Date{Year: year, Month: month, Day: day},
		Time: &Time{Hour: hour, Minute: minute, Second: second,
			Offset: &TimeOffset{Sign: sign, Hour: offHour, Minute: offMinute}},
	}
	if !dt.Validate() {
		return DateTime{}, fmt.Errorf("%w: %q", ErrInvalidDateTime, dt.String())
	}
	return dt, nil
}

// DateTimeFullFromInts builds an offset datetime with a fractional second.
func DateTimeFullFromInts(year, month, day, hour, minute, second, frac int, sign byte, offHour, offMinute int) (DateTime, error) {
	return DateTimeFullFromStrings(
		fmt.Sprintf("%04d", year), fmt.Sprintf("%02d", month), fmt.Sprintf("%02d", day),
		fmt.Sprintf("%02d", hour), fmt.Sprintf("%02d", minute), fmt.Sprintf("%02d", second),
		strconv.Itoa(frac), sign, fmt.Sprintf("%02d", offHour), fmt.Sprintf("%02d", offMinute),
	)
}

// DateTimeFullFromStrings builds an offset datetime with a fractional second.
func DateTimeFullFromStrings(year, month, day, hour, minute, second, frac string, sign byte, offHour, offMinute string) (DateTime, error) {
	dt := DateTime{
		Date: Date{Year: year, Month: month, Day: day},
		Time: &Time{Hour: hour, Minute: minute, Second: second, Fraction: frac,
			Offset: &TimeOffset{Sign: sign, Hour: offHour, Minute: offMinute}},
	}
	if !dt.Validate() {
		return DateTime{}, fmt.Errorf("%w: %q", ErrInvalidDateTime, dt.String())
	}
	return dt, nil
}

// TimeFromInts builds a local time with no date part, zero-padding each
// field.
func TimeFromInts(hour, minute, second int) (DateTime, error) {
	return TimeFromStrings(
		fmt.Sprintf("%02d", hour), fmt.Sprintf("%02d", minute), fmt.Sprintf("%02d", second),
	)
}

// TimeFromStrings builds a local time with no date part from digit strings.
func TimeFromStrings(hour, minute, second string) (DateTime, error) {
	dt := DateTime{Time: &Time{Hour: hour, Minute: minute, Second: second}}
	if !dt.Validate() {
		return DateTime{}, fmt.Errorf("%w: %q", ErrInvalidDateTime, dt.String())
	}
	return dt, nil
}

// TimeFracFromInts builds a local time with a fractional second.
func TimeFracFromInts(hour, minute, second, frac int) (DateTime, error) {
	return TimeFracFromStrings(
		fmt.Sprintf("%02d", hour), fmt.Sprintf("%02d", minute), fmt.Sprintf("%02d", second),
		strconv.Itoa(frac),
	)
}

// TimeFracFromStrings builds a local time with a fractional second.
func TimeFracFromStrings(hour, minute, second, frac string) (DateTime, error) {
	dt := DateTime{Time: &Time{Hour: hour, Minute: minute, Second: second, Fraction: frac}}
	if !dt.Validate() {
		return DateTime{}, fmt.Errorf("%w: %q", ErrInvalidDateTime, dt.String())
	}
	return dt, nil
}

// --- Parsing ---

var parseDateTimeRe = regexp.MustCompile(
	`^(\d{4})-(\d{2})-(\d{2})` +
		`(?:T(\d{2}):(\d{2}):(\d{2})(?:\.(\d+))?(Z|[+-]\d{2}:\d{2})?)?$`)

// ParseDateTime parses a canonical datetime string. The date is required;
// time, fraction and offset are optional in that order.
func ParseDateTime(s string) (DateTime, error) {
	m := parseDateTimeRe.FindStringSubmatch(s)
	if m == nil {
		return DateTime{}, fmt.Errorf("%w: %q", ErrInvalidDateTime, s)
	}
	dt := DateTime{Date: Date{Year: m[1], Month: m[2], Day: m[3]}}
	if m[4] != "" {
		t := &Time{Hour: m[4], Minute: m[5], Second: m[6], Fraction: m[7]}
		if m[8] != "" {
			t.Offset = parseOffset(m[8])
		}
		dt.Time = t
	}
	if !dt.Validate() {
		return DateTime{}, fmt.Errorf("%w: %q", ErrInvalidDateTime, s)
	}
	return dt, nil
}

func parseOffset(s string) *TimeOffset {
	if s == "Z" || s == "z" {
		return &TimeOffset{Zulu: true}
	}
	return &TimeOffset{Sign: s[0], Hour: s[1:3], Minute: s[4:6]}
}

// DateTimeFromText builds a DateTime from any of the four datetime forms
// the grammar accepts: offset datetime, local datetime, local date, or
// local time. Unlike ParseDateTime it also takes a space separator and a
// lowercase z or t.
func DateTimeFromText(s string) (DateTime, error) {
	if msg := validateDateTimeText(s); msg != "" {
		return DateTime{}, fmt.Errorf("%w: %s", ErrInvalidDateTime, msg)
	}
	return dtComponents(s), nil
}

// dtComponents splits datetime node text into a DateTime without any
// validation, so values survive the round trip even when out of range.
func dtComponents(text string) DateTime {
	var dt DateTime
	rest := text
	if len(rest) >= 10 && isFullDate(rest[:10]) {
		dt.Date = Date{Year: rest[:4], Month: rest[5:7], Day: rest[8:10]}
		if len(rest) <= 10 {
			return dt
		}
		rest = rest[11:]
	}
	if rest == "" || !strings.Contains(rest, ":") {
		return dt
	}
	t := &Time{}
	if idx := strings.IndexAny(rest, "Zz"); idx >= 0 {
		t.Offset = &TimeOffset{Zulu: true}
		rest = rest[:idx]
	} else if idx := strings.LastIndexAny(rest, "+-"); idx > 0 {
		t.Offset = parseLenientOffset(rest[idx:])
		rest = rest[:idx]
	}
	if idx := strings.Index(rest, "."); idx >= 0 {
		t.Fraction = rest[idx+1:]
		rest = rest[:idx]
	}
	parts := strings.SplitN(rest, ":", 3)
	if len(parts) > 0 {
		t.Hour = parts[0]
	}
	if len(parts) > 1 {
		t.Minute = parts[1]
	}
	if len(parts) > 2 {
		t.Second = parts[2]
	}
	dt.Time = t
	return dt
}

func parseLenientOffset(s string) *TimeOffset {
	o := &TimeOffset{Sign: s[0]}
	body := s[1:]
	if idx := strings.Index(body, ":"); idx >= 0 {
		o.Hour = body[:idx]
		o.Minute = body[idx+1:]
	} else {
		o.Hour = body
	}
	return o
}
