package costbasis

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DateFormat is the ISO-8601 layout of a day.
const DateFormat = "2006-01-02"

// lenientDateFormat also accepts single digit months and days.
const lenientDateFormat = "2006-1-2"

// TimestampFormat is the format used to write event timestamps.
const TimestampFormat = time.RFC3339Nano

// Date is a calendar day in UTC. It is comparable with ==.
//
// Event timestamps keep their full precision; reporting windows and snapshot
// cutoffs are whole days.
type Date struct {
	year  int
	month time.Month
	day   int
}

// NewDate returns the Date of year, month and day, normalized like time.Date:
// NewDate(2024, 2, 30) is March 1st.
func NewDate(year int, month time.Month, day int) Date {
	y, m, d := midnight(year, month, day).Date()
	return Date{y, m, d}
}

// DateOf returns the UTC day of an instant.
func DateOf(t time.Time) Date { return NewDate(t.UTC().Date()) }

// Today returns the current UTC day. The engine never reads the clock, only
// the command line defaults do.
func Today() Date { return DateOf(time.Now()) }

func midnight(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func (d Date) Year() int         { return d.year }
func (d Date) Month() time.Month { return d.month }
func (d Date) Day() int          { return d.day }

// IsZero reports whether d is the zero Date, an open boundary in a Range.
func (d Date) IsZero() bool { return d == Date{} }

// String returns the date as "2006-01-02", and "" for the zero Date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Start().Format(DateFormat)
}

// Start returns the first instant of the day.
func (d Date) Start() time.Time { return midnight(d.year, d.month, d.day) }

// End returns the first instant of the next day: t is on day d when
// !t.Before(d.Start()) && t.Before(d.End()).
func (d Date) End() time.Time { return midnight(d.year, d.month, d.day+1) }

func (d Date) Before(x Date) bool { return d.Start().Before(x.Start()) }
func (d Date) After(x Date) bool  { return d.Start().After(x.Start()) }

// Add returns the date n days after d, or before when n is negative.
func (d Date) Add(n int) Date { return NewDate(d.year, d.month, d.day+n) }

// StartOf returns the first day of the period containing d. Weeks start on
// Monday.
func (d Date) StartOf(p Period) Date {
	switch p {
	case Weekly:
		sinceMonday := (int(d.Start().Weekday()) + 6) % 7
		return d.Add(-sinceMonday)
	case Monthly:
		return NewDate(d.year, d.month, 1)
	case Quarterly:
		return NewDate(d.year, d.month-(d.month-1)%3, 1)
	case Yearly:
		return NewDate(d.year, time.January, 1)
	default:
		return d
	}
}

// EndOf returns the last day of the period containing d.
func (d Date) EndOf(p Period) Date {
	start := d.StartOf(p)
	switch p {
	case Weekly:
		return start.Add(6)
	case Monthly:
		return NewDate(start.year, start.month+1, 0)
	case Quarterly:
		return NewDate(start.year, start.month+3, 0)
	case Yearly:
		return NewDate(start.year+1, time.January, 0)
	default:
		return d
	}
}

var relativeDateRE = regexp.MustCompile(`^([+-])(\d+)([dwmqy])$`)

// shift moves a date by n units of a relative date.
var shift = map[string]func(d Date, n int) Date{
	"d": func(d Date, n int) Date { return d.Add(n) },
	"w": func(d Date, n int) Date { return d.Add(7 * n) },
	"m": func(d Date, n int) Date { return NewDate(d.year, d.month+time.Month(n), d.day) },
	"q": func(d Date, n int) Date { return NewDate(d.year, d.month+time.Month(3*n), d.day) },
	"y": func(d Date, n int) Date { return NewDate(d.year+n, d.month, d.day) },
}

// ParseDate parses "2025-07-01", the lenient "2025-7-1", or a date relative
// to today like "-1d", "+2w", "-3m", "-1q" or "-1y". "0d" is today. Relative
// dates other than "0d" need a sign.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "0d" {
		return Today(), nil
	}
	if m := relativeDateRE.FindStringSubmatch(s); m != nil {
		n, err := strconv.Atoi(m[2])
		if err != nil {
			return Date{}, fmt.Errorf("invalid relative date %q: %w", s, err)
		}
		if m[1] == "-" {
			n = -n
		}
		return shift[m[3]](Today(), n), nil
	}
	return parseDay(s)
}

// parseDay parses an absolute day only.
func parseDay(s string) (Date, error) {
	t, err := time.Parse(lenientDateFormat, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q, want format %q: %w", s, DateFormat, err)
	}
	return NewDate(t.Date()), nil
}

// UnmarshalJSON reads an absolute day. An empty string is the zero Date.
func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	v, err := parseDay(s)
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// MarshalJSON writes the date as a string, or null for the zero Date.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

var (
	_ json.Marshaler   = Date{}
	_ json.Unmarshaler = (*Date)(nil)
)
