package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// TodayKeyword resolves to the current local date.
	TodayKeyword = "today"

	minYear = 1900
	maxYear = 2999
)

// ProcessingDate is the calendar date a run's rows are tagged with.
// The zero value is invalid; use ParseProcessingDate or DateOf.
type ProcessingDate struct {
	year  int
	month time.Month
	day   int
}

// ParseProcessingDate parses d/m/yyyy or dd/mm/yyyy. Day must be 1..31, month 1..12,
// year 1900..2999, and the combination must be a real calendar date.
// The keyword "today" yields the current local date.
func ParseProcessingDate(s string) (ProcessingDate, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, TodayKeyword) {
		return DateOf(time.Now()), nil
	}

	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return ProcessingDate{}, fmt.Errorf("invalid date %q: expected dd/mm/yyyy", s)
	}

	var nums [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || p == "" || p[0] == '+' || p[0] == '-' {
			return ProcessingDate{}, fmt.Errorf("invalid date %q: expected dd/mm/yyyy", s)
		}
		nums[i] = n
	}
	day, month, year := nums[0], nums[1], nums[2]

	switch {
	case day < 1 || day > 31:
		return ProcessingDate{}, fmt.Errorf("invalid date %q: day %d out of range 1-31", s, day)
	case month < 1 || month > 12:
		return ProcessingDate{}, fmt.Errorf("invalid date %q: month %d out of range 1-12", s, month)
	case year < minYear || year > maxYear:
		return ProcessingDate{}, fmt.Errorf("invalid date %q: year %d out of range %d-%d", s, year, minYear, maxYear)
	}

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day {
		return ProcessingDate{}, fmt.Errorf("invalid date %q: %s has no day %d", s, time.Month(month), day)
	}

	return ProcessingDate{year: year, month: time.Month(month), day: day}, nil
}

// MustParseProcessingDate is like ParseProcessingDate but panics on error.
// Intended for constants in tests and seeders.
func MustParseProcessingDate(s string) ProcessingDate {
	d, err := ParseProcessingDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// DateOf returns the processing date of t in t's location.
func DateOf(t time.Time) ProcessingDate {
	y, m, d := t.Date()
	return ProcessingDate{year: y, month: m, day: d}
}

// IsZero reports whether d was never set.
func (d ProcessingDate) IsZero() bool {
	return d.year == 0
}

// String formats the date as dd/mm/yyyy, the form stored in Job_Date columns.
func (d ProcessingDate) String() string {
	return fmt.Sprintf("%02d/%02d/%04d", d.day, int(d.month), d.year)
}

// Time returns midnight UTC of the date.
func (d ProcessingDate) Time() time.Time {
	return time.Date(d.year, d.month, d.day, 0, 0, 0, 0, time.UTC)
}

// AddDays returns the date n days later (or earlier for negative n).
func (d ProcessingDate) AddDays(n int) ProcessingDate {
	return DateOf(d.Time().AddDate(0, 0, n))
}

// MarshalText implements encoding.TextMarshaler so reports render dd/mm/yyyy.
func (d ProcessingDate) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *ProcessingDate) UnmarshalText(text []byte) error {
	parsed, err := ParseProcessingDate(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
