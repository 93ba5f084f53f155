package datetime

import (
	"fmt"
	"strings"
	"time"

	"github.com/iwvelando/loan-eir/pkg/constants"
)

// DayCount names a day-count convention.
type DayCount string

// Supported day-count conventions.
const (
	// Actual365 divides actual elapsed days by 365.
	Actual365 DayCount = "ACT/365"
	// Actual360 divides actual elapsed days by 360.
	Actual360 DayCount = "ACT/360"
	// Actual36525 divides actual elapsed days by 365.25.
	Actual36525 DayCount = "ACT/365.25"
	// Thirty360 is the US 30/360 bond basis.
	Thirty360 DayCount = "30/360"
	// Thirty360E is the Eurobond 30E/360 basis.
	Thirty360E DayCount = "30E/360"
)

// DefaultDayCount is used when no convention is configured.
const DefaultDayCount = DayCount(constants.DefaultDayCount)

var dayCountAliases = map[string]DayCount{
	"ACT/365":     Actual365,
	"ACTUAL/365":  Actual365,
	"ACT/365F":    Actual365,
	"FIXED":       Actual365,
	"ACT/360":     Actual360,
	"ACTUAL/360":  Actual360,
	"MONEYMARKET": Actual360,
	"ACT/365.25":  Actual36525,
	"AFB":         Actual36525,
	"30/360":      Thirty360,
	"30U/360":     Thirty360,
	"BONDBASIS":   Thirty360,
	"30E/360":     Thirty360E,
	"EUROBOND":    Thirty360E,
}

// ParseDayCount resolves a convention name (case-insensitive, common aliases
// accepted). An empty name selects DefaultDayCount.
func ParseDayCount(name string) (DayCount, error) {
	key := strings.ToUpper(strings.TrimSpace(name))
	if key == "" {
		return DefaultDayCount, nil
	}
	if dc, ok := dayCountAliases[key]; ok {
		return dc, nil
	}
	return "", fmt.Errorf("unsupported day count convention %q", name)
}

// String returns the canonical convention name.
func (dc DayCount) String() string {
	return string(dc)
}

// YearsBetween returns the elapsed time from d0 to d1 in years under the
// given convention. It is exactly 0 when both dates fall on the same day,
// never negative (d1 before d0 clamps to 0) and non-decreasing in d1.
// An unknown convention falls back to DefaultDayCount.
func YearsBetween(d0, d1 time.Time, convention DayCount) float64 {
	start := Truncate(d0)
	end := Truncate(d1)
	if !end.After(start) {
		return 0
	}

	var years float64
	switch convention {
	case Actual360:
		years = float64(actualDays(start, end)) / 360
	case Actual36525:
		years = float64(actualDays(start, end)) / 365.25
	case Thirty360:
		years = float64(days360US(start, end)) / 360
	case Thirty360E:
		years = float64(days360E(start, end)) / 360
	default:
		years = float64(actualDays(start, end)) / constants.DaysPerYear
	}

	if years < 0 {
		return 0
	}
	return years
}

// actualDays counts calendar days between two dates. It works on day numbers
// rather than Duration, which overflows past about 292 years.
func actualDays(start, end time.Time) int {
	return int(dayNumber(end) - dayNumber(start))
}

const secondsPerDay = 24 * 60 * 60

func dayNumber(t time.Time) int64 {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / secondsPerDay
}

// days360US applies the 30/360 US rules: a 31st start becomes the 30th, and a
// 31st end becomes the 30th when the start is on the 30th or 31st.
func days360US(start, end time.Time) int {
	y1, m1, d1 := start.Date()
	y2, m2, d2 := end.Date()

	if d1 == 31 {
		d1 = 30
	}
	if d2 == 31 && d1 >= 30 {
		d2 = 30
	}
	return (y2-y1)*360 + int(m2-m1)*30 + (d2 - d1)
}

// days360E applies 30E/360: any 31st becomes the 30th.
func days360E(start, end time.Time) int {
	y1, m1, d1 := start.Date()
	y2, m2, d2 := end.Date()

	if d1 == 31 {
		d1 = 30
	}
	if d2 == 31 {
		d2 = 30
	}
	return (y2-y1)*360 + int(m2-m1)*30 + (d2 - d1)
}
