package datetime

import (
	"fmt"
	"strings"
	"time"

	"github.com/iwvelando/loan-eir/pkg/constants"
)

// FrequencyUnit is the calendar unit a repayment frequency is expressed in.
type FrequencyUnit string

// Supported frequency units.
const (
	Days   FrequencyUnit = "days"
	Weeks  FrequencyUnit = "weeks"
	Months FrequencyUnit = "months"
	Years  FrequencyUnit = "years"
)

// ParseFrequencyUnit resolves a unit name such as "months" or "MONTHLY". An
// empty name selects Months.
func ParseFrequencyUnit(name string) (FrequencyUnit, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "month", "months", "monthly":
		return Months, nil
	case "day", "days", "daily":
		return Days, nil
	case "week", "weeks", "weekly":
		return Weeks, nil
	case "year", "years", "yearly", "annual", "annually":
		return Years, nil
	default:
		return "", fmt.Errorf("unsupported frequency unit %q", name)
	}
}

// Advance steps date forward by n periods of every units each. Month and year
// steps use calendar arithmetic; n may be zero.
func Advance(date time.Time, unit FrequencyUnit, every, n int) time.Time {
	if every <= 0 {
		every = 1
	}
	step := every * n
	switch unit {
	case Days:
		return date.AddDate(0, 0, step)
	case Weeks:
		return date.AddDate(0, 0, 7*step)
	case Years:
		return date.AddDate(step, 0, 0)
	default:
		return date.AddDate(0, step, 0)
	}
}

// PeriodsPerYear returns how many periods of every units fit in a year.
func PeriodsPerYear(unit FrequencyUnit, every int) float64 {
	if every <= 0 {
		every = 1
	}
	switch unit {
	case Days:
		return float64(constants.DaysPerYear) / float64(every)
	case Weeks:
		return float64(constants.WeeksPerYear) / float64(every)
	case Years:
		return 1 / float64(every)
	default:
		return float64(constants.MonthsPerYear) / float64(every)
	}
}
