package cashflow

import (
	"sort"
	"time"

	"github.com/iwvelando/loan-eir/pkg/datetime"
	"github.com/shopspring/decimal"
)

// Build assembles the lender's cash-flow sequence for a loan.
//
// Every tranche is an outflow reduced by the upfront charges effective on or
// before its date; each upfront charge is netted once, against the earliest
// tranche it qualifies for, and an upfront charge with no effective date is
// netted against the first tranche. Upfront charges dated after the last
// tranche are kept as inflows on their own date. Repayment periods numbered
// above zero are inflows of their total due, zero totals included. Ongoing and
// periodic charges are inflows on their effective date, or on the first
// disbursement date when they have none.
//
// The result is sorted by date with same-day entries merged. It is empty when
// there are no tranches or no contributing periods.
func Build(tranches []Tranche, periods []RepaymentPeriod, charges []Charge) []Entry {
	if len(tranches) == 0 || contributingPeriods(periods) == 0 {
		return nil
	}

	ordered := make([]Tranche, len(tranches))
	copy(ordered, tranches)
	sort.SliceStable(ordered, func(i, j int) bool {
		return datetime.DateBeforeDate(ordered[i].Date, ordered[j].Date)
	})
	firstDisbursement := ordered[0].Date

	var upfront, recurring []Charge
	for _, charge := range charges {
		if charge.IsUpfront() {
			upfront = append(upfront, charge)
		} else {
			recurring = append(recurring, charge)
		}
	}
	sort.SliceStable(upfront, func(i, j int) bool {
		return datetime.DateBeforeDate(upfront[i].EffectiveDate, upfront[j].EffectiveDate)
	})
	netted := make([]bool, len(upfront))

	entries := make([]Entry, 0, len(ordered)+len(periods)+len(charges))

	for _, tranche := range ordered {
		amount := tranche.PrincipalAmount.Neg()
		for i, charge := range upfront {
			if netted[i] {
				continue
			}
			if charge.EffectiveDate.IsZero() || !datetime.DateBeforeDate(tranche.Date, charge.EffectiveDate) {
				amount = amount.Add(charge.Amount)
				netted[i] = true
			}
		}
		entries = append(entries, Entry{Date: tranche.Date, Amount: amount})
	}

	for i, charge := range upfront {
		if !netted[i] {
			entries = append(entries, Entry{Date: charge.EffectiveDate, Amount: charge.Amount})
		}
	}

	for _, period := range periods {
		if !period.Contributes() {
			continue
		}
		entries = append(entries, Entry{Date: period.DueDate, Amount: period.TotalDue()})
	}

	for _, charge := range recurring {
		entries = append(entries, Entry{Date: chargeDate(charge, firstDisbursement), Amount: charge.Amount})
	}

	return Normalize(entries)
}

// Normalize returns a copy of entries with dates truncated to the day, sorted
// ascending, and same-day amounts summed into a single entry.
func Normalize(entries []Entry) []Entry {
	if len(entries) == 0 {
		return nil
	}

	sorted := make([]Entry, len(entries))
	for i, entry := range entries {
		sorted[i] = Entry{Date: datetime.Truncate(entry.Date), Amount: entry.Amount}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	merged := make([]Entry, 0, len(sorted))
	for _, entry := range sorted {
		last := len(merged) - 1
		if last >= 0 && merged[last].Date.Equal(entry.Date) {
			merged[last].Amount = merged[last].Amount.Add(entry.Amount)
			continue
		}
		merged = append(merged, entry)
	}
	return merged
}

func contributingPeriods(periods []RepaymentPeriod) int {
	n := 0
	for _, period := range periods {
		if period.Contributes() {
			n++
		}
	}
	return n
}

func chargeDate(charge Charge, fallback time.Time) time.Time {
	if charge.EffectiveDate.IsZero() {
		return fallback
	}
	return charge.EffectiveDate
}

// Summary describes the shape of a cash-flow sequence.
type Summary struct {
	Count        int
	TotalOutflow decimal.Decimal
	TotalInflow  decimal.Decimal
	First        time.Time
	Last         time.Time
	SignChanges  int
}

// Summarize walks entries in the order given; pass a normalized sequence to
// get chronological sign changes. Zero amounts are ignored when counting sign
// changes.
func Summarize(entries []Entry) Summary {
	summary := Summary{
		Count:        len(entries),
		TotalOutflow: decimal.Zero,
		TotalInflow:  decimal.Zero,
	}
	if len(entries) == 0 {
		return summary
	}

	summary.First = entries[0].Date
	summary.Last = entries[len(entries)-1].Date

	previousSign := 0
	for _, entry := range entries {
		sign := entry.Amount.Sign()
		switch {
		case sign < 0:
			summary.TotalOutflow = summary.TotalOutflow.Add(entry.Amount.Abs())
		case sign > 0:
			summary.TotalInflow = summary.TotalInflow.Add(entry.Amount)
		default:
			continue
		}
		if previousSign != 0 && sign != previousSign {
			summary.SignChanges++
		}
		previousSign = sign
	}
	return summary
}

// Net is total inflow minus total outflow.
func (s Summary) Net() decimal.Decimal {
	return s.TotalInflow.Sub(s.TotalOutflow)
}

// Solvable reports whether the sequence has both an outflow and an inflow.
func (s Summary) Solvable() bool {
	return s.TotalOutflow.IsPositive() && s.TotalInflow.IsPositive()
}
