package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateKey is a calendar month and day without a year.
// The canonical text form is zero-padded "MM DD", which sorts in calendar order.
type DateKey struct {
	Month time.Month
	Day   int
}

// daysIn holds the maximum day per month. February allows the 29th so a
// leap-day entry can be queued in any year.
var daysIn = [13]int{0, 31, 29, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

// NewDateKey validates and builds a DateKey.
func NewDateKey(month, day int) (DateKey, error) {
	if month < 1 || month > 12 {
		return DateKey{}, fmt.Errorf("month %d out of range 1-12", month)
	}
	if day < 1 || day > daysIn[month] {
		return DateKey{}, fmt.Errorf("day %d out of range for %s", day, time.Month(month))
	}
	return DateKey{Month: time.Month(month), Day: day}, nil
}

// DateKeyFor returns the key for the calendar date of t in t's location.
func DateKeyFor(t time.Time) DateKey {
	return DateKey{Month: t.Month(), Day: t.Day()}
}

// ParseDateKey accepts "MM DD", "M D", "MM-DD" and "MM/DD".
func ParseDateKey(s string) (DateKey, error) {
	fields := strings.FieldsFunc(strings.TrimSpace(s), func(r rune) bool {
		return r == ' ' || r == '-' || r == '/'
	})
	if len(fields) != 2 {
		return DateKey{}, fmt.Errorf("date %q must look like \"MM DD\"", s)
	}
	month, err := strconv.Atoi(fields[0])
	if err != nil {
		return DateKey{}, fmt.Errorf("date %q: invalid month: %w", s, err)
	}
	day, err := strconv.Atoi(fields[1])
	if err != nil {
		return DateKey{}, fmt.Errorf("date %q: invalid day: %w", s, err)
	}
	return NewDateKey(month, day)
}

// String returns the canonical "MM DD" form.
func (k DateKey) String() string {
	return fmt.Sprintf("%02d %02d", int(k.Month), k.Day)
}

// IsZero reports whether the key is unset.
func (k DateKey) IsZero() bool {
	return k.Month == 0 && k.Day == 0
}

// Before reports whether k falls earlier in the calendar year than other.
func (k DateKey) Before(other DateKey) bool {
	if k.Month != other.Month {
		return k.Month < other.Month
	}
	return k.Day < other.Day
}

// MarshalText implements encoding.TextMarshaler.
func (k DateKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *DateKey) UnmarshalText(b []byte) error {
	parsed, err := ParseDateKey(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
