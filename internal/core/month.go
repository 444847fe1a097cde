package core

import (
	"encoding/json"
	"fmt"
	"time"
)

// MonthFormat is the wire and storage representation of a month.
const MonthFormat = "2006-01"

// DateFormat is the wire and storage representation of a date.
const DateFormat = "2006-01-02"

// Month is a civil year-month with no day or time component. Monthly
// aggregate rows are keyed by it and calculated entity ids embed its string
// form.
type Month struct {
	y int
	m time.Month
}

// NewMonth returns a normalized Month for the given year and month.
func NewMonth(year int, month time.Month) Month {
	t := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return Month{y: t.Year(), m: t.Month()}
}

// MonthOf returns the month containing t.
func MonthOf(t time.Time) Month { return NewMonth(t.Year(), t.Month()) }

// ParseMonth parses a "YYYY-MM" string.
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse(MonthFormat, s)
	if err != nil {
		return Month{}, fmt.Errorf("invalid month %q want format %q: %w", s, MonthFormat, err)
	}
	return NewMonth(t.Year(), t.Month()), nil
}

// MustParseMonth is like ParseMonth but panics on error. Intended for tests
// and constants.
func MustParseMonth(s string) Month {
	m, err := ParseMonth(s)
	if err != nil {
		panic(err.Error())
	}
	return m
}

// Year returns the year.
func (m Month) Year() int { return m.y }

// Month returns the month of the year.
func (m Month) Month() time.Month { return m.m }

// IsZero reports whether m is the zero Month.
func (m Month) IsZero() bool { return m.y == 0 && m.m == 0 }

// AddMonths returns the month n months after m (n may be negative).
func (m Month) AddMonths(n int) Month {
	return NewMonth(m.y, m.m+time.Month(n))
}

// MonthsApart returns the number of months from m to x; positive when x is
// later.
func (m Month) MonthsApart(x Month) int {
	return (x.y-m.y)*12 + int(x.m) - int(m.m)
}

// Before reports whether m precedes x.
func (m Month) Before(x Month) bool {
	return m.y < x.y || (m.y == x.y && m.m < x.m)
}

// After reports whether m follows x.
func (m Month) After(x Month) bool { return x.Before(m) }

// FirstDay returns the date of the first day of the month.
func (m Month) FirstDay() Date { return NewDate(m.y, m.m, 1) }

// LastDay returns the date of the last day of the month.
func (m Month) LastDay() Date { return NewDate(m.y, m.m+1, 0) }

// String formats the month as "YYYY-MM".
func (m Month) String() string {
	return time.Date(m.y, m.m, 1, 0, 0, 0, 0, time.UTC).Format(MonthFormat)
}

// MarshalJSON encodes the month as a "YYYY-MM" string.
func (m Month) MarshalJSON() ([]byte, error) { return json.Marshal(m.String()) }

// UnmarshalJSON decodes a "YYYY-MM" string.
func (m *Month) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseMonth(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Date is a civil date with day granularity, always in UTC. Transactions and
// schedule anchors carry a Date, never a wall-clock time.
type Date struct {
	y int
	m time.Month
	d int
}

// NewDate returns a normalized Date; out-of-range days roll over the way
// time.Date does, so NewDate(2026, time.March, 0) is the last day of February.
func NewDate(year int, month time.Month, day int) Date {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return Date{y: t.Year(), m: t.Month(), d: t.Day()}
}

// DateOf returns the date containing t.
func DateOf(t time.Time) Date { return NewDate(t.Year(), t.Month(), t.Day()) }

// ParseDate parses a "YYYY-MM-DD" string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateFormat, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q want format %q: %w", s, DateFormat, err)
	}
	return DateOf(t), nil
}

// MustParseDate is like ParseDate but panics on error.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err.Error())
	}
	return d
}

func (d Date) time() time.Time {
	return time.Date(d.y, d.m, d.d, 0, 0, 0, 0, time.UTC)
}

// Year returns the year.
func (d Date) Year() int { return d.y }

// MonthOfYear returns the month of the year.
func (d Date) MonthOfYear() time.Month { return d.m }

// Day returns the day of the month.
func (d Date) Day() int { return d.d }

// Month returns the month containing the date.
func (d Date) Month() Month { return NewMonth(d.y, d.m) }

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool { return d.y == 0 && d.m == 0 && d.d == 0 }

// AddDays returns the date n days after d.
func (d Date) AddDays(n int) Date { return NewDate(d.y, d.m, d.d+n) }

// AddMonthsClamped returns the date n months later, clamping the day to the
// end of the target month so an anchor on the 31st lands on the 30th or 28th
// where needed.
func (d Date) AddMonthsClamped(n int) Date {
	target := NewMonth(d.y, d.m).AddMonths(n)
	day := d.d
	if last := target.LastDay().Day(); day > last {
		day = last
	}
	return NewDate(target.Year(), target.Month(), day)
}

// Before reports whether d precedes x.
func (d Date) Before(x Date) bool { return d.time().Before(x.time()) }

// After reports whether d follows x.
func (d Date) After(x Date) bool { return d.time().After(x.time()) }

// Equal reports whether the two dates are the same day.
func (d Date) Equal(x Date) bool { return d == x }

// String formats the date as "YYYY-MM-DD".
func (d Date) String() string { return d.time().Format(DateFormat) }

// MarshalJSON encodes the date as a "YYYY-MM-DD" string.
func (d Date) MarshalJSON() ([]byte, error) { return json.Marshal(d.String()) }

// UnmarshalJSON decodes a "YYYY-MM-DD" string.
func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
