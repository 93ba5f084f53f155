// Package datetime provides date utilities and the day-count conventions used
// to turn pairs of dates into elapsed-year fractions.
package datetime

import (
	"fmt"
	"strings"
	"time"

	"github.com/iwvelando/loan-eir/pkg/constants"
)

const (
	// DateLayout is the format expected in loan files and is also the output
	// date format.
	DateLayout = constants.DateLayout
)

// MustParseTime parses a date string using the given layout and panics on error.
// This is intended for use in tests where the date string is known to be valid.
func MustParseTime(layout, dateStr string) time.Time {
	t, err := time.Parse(layout, dateStr)
	if err != nil {
		panic(err)
	}
	return t
}

// MustParseDate parses a DateLayout string and panics on error.
func MustParseDate(dateStr string) time.Time {
	return MustParseTime(DateLayout, dateStr)
}

// ParseDate parses a DateLayout string. An empty string yields the zero time
// without error so optional dates can be passed straight through.
func ParseDate(dateStr string) (time.Time, error) {
	trimmed := strings.TrimSpace(dateStr)
	if trimmed == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(DateLayout, trimmed)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected %s", dateStr, DateLayout)
	}
	return t, nil
}

// Truncate drops the clock portion of t and moves it to UTC so calendar
// comparisons do not depend on time zones or daylight saving.
func Truncate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SameDay reports whether two instants fall on the same calendar date.
func SameDay(a, b time.Time) bool {
	return Truncate(a).Equal(Truncate(b))
}

// DateBeforeDate returns true if firstDate is strictly before secondDate at
// day granularity.
func DateBeforeDate(firstDate, secondDate time.Time) bool {
	return Truncate(firstDate).Before(Truncate(secondDate))
}

// FormatDate renders a date in DateLayout, or an empty string for the zero time.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}
