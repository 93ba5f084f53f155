package irr

import (
	"math"

	"github.com/iwvelando/loan-eir/pkg/cashflow"
	"github.com/iwvelando/loan-eir/pkg/datetime"
)

// series is a normalized cash-flow sequence in float form with each entry's
// elapsed years from the first entry precomputed.
type series struct {
	amounts     []float64
	years       []float64
	inflow      float64
	outflow     float64
	magnitude   float64
	span        float64
	signChanges int
}

func newSeries(entries []cashflow.Entry, convention datetime.DayCount) (series, error) {
	normalized := cashflow.Normalize(entries)
	if len(normalized) < 2 {
		return series{}, &DegenerateCashFlowError{
			Entries: len(normalized),
			Reason:  "at least two cash flows on distinct dates are required",
		}
	}

	summary := cashflow.Summarize(normalized)
	if !summary.Solvable() {
		return series{}, &DegenerateCashFlowError{
			Entries: len(normalized),
			Reason:  "cash flows must include at least one outflow and one inflow",
		}
	}

	flows := seriesFrom(normalized, convention)
	flows.signChanges = summary.SignChanges
	if flows.span <= 0 {
		return series{}, &DegenerateCashFlowError{
			Entries: len(normalized),
			Reason:  "cash flows span no elapsed time under the day-count convention",
		}
	}
	return flows, nil
}

// seriesFrom expects entries already normalized.
func seriesFrom(normalized []cashflow.Entry, convention datetime.DayCount) series {
	flows := series{
		amounts: make([]float64, len(normalized)),
		years:   make([]float64, len(normalized)),
	}
	anchor := normalized[0].Date
	for i, entry := range normalized {
		amount := entry.Amount.InexactFloat64()
		flows.amounts[i] = amount
		flows.years[i] = datetime.YearsBetween(anchor, entry.Date, convention)
		if amount > 0 {
			flows.inflow += amount
		} else {
			flows.outflow -= amount
		}
	}
	flows.magnitude = flows.inflow + flows.outflow
	flows.span = flows.years[len(flows.years)-1]
	return flows
}

func (f series) npv(rate float64) float64 {
	base := 1 + rate
	total := 0.0
	for i, amount := range f.amounts {
		if amount == 0 {
			continue
		}
		total += amount * math.Pow(base, -f.years[i])
	}
	return total
}

// derivative is dNPV/dr = Σ -t·amount·(1+r)^(-t-1).
func (f series) derivative(rate float64) float64 {
	base := 1 + rate
	total := 0.0
	for i, amount := range f.amounts {
		if amount == 0 || f.years[i] == 0 {
			continue
		}
		total -= f.years[i] * amount * math.Pow(base, -f.years[i]-1)
	}
	return total
}

// initialGuess is the simple money-weighted rate: total return over the span.
func (f series) initialGuess() float64 {
	if f.outflow == 0 || f.span == 0 {
		return 0
	}
	return (f.inflow/f.outflow - 1) / f.span
}
