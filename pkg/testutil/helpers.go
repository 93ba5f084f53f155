// Package testutil provides common utility functions for testing.
package testutil

import (
	"time"

	"github.com/iwvelando/loan-eir/pkg/cashflow"
	"github.com/iwvelando/loan-eir/pkg/datetime"
	"github.com/iwvelando/loan-eir/pkg/eir"
	"github.com/shopspring/decimal"
)

// FixedTime is the calculation timestamp returned by FixedClock.
var FixedTime = time.Date(2025, time.June, 30, 12, 0, 0, 0, time.UTC)

// FixedClock returns a clock that always reports t.
func FixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// FindResult finds a result by loan ID in the results slice.
// Returns a pointer to the result if found, nil otherwise.
func FindResult(results []eir.Result, loanID string) *eir.Result {
	for i := range results {
		if results[i].LoanID == loanID {
			return &results[i]
		}
	}
	return nil
}

// ScheduledLoan builds an authoritative-schedule loan: principal disbursed on
// start and n monthly installments of installment each, booked as principal.
func ScheduledLoan(loanID, start, principal, installment string, n int) eir.LoanData {
	startDate := datetime.MustParseDate(start)
	amount := decimal.RequireFromString(principal)
	payment := decimal.RequireFromString(installment)

	periods := []cashflow.RepaymentPeriod{{PeriodNumber: 0, DueDate: startDate, PrincipalDue: amount}}
	for i := 1; i <= n; i++ {
		periods = append(periods, cashflow.RepaymentPeriod{
			PeriodNumber: i,
			DueDate:      datetime.Advance(startDate, datetime.Months, 1, i),
			PrincipalDue: payment,
		})
	}

	return eir.LoanData{
		LoanID:               loanID,
		Principal:            amount,
		DisbursementTranches: []cashflow.Tranche{{Date: startDate, PrincipalAmount: amount}},
		RepaymentPeriods:     periods,
		RepaymentFrequency:   eir.Frequency{Every: 1, Unit: datetime.Months},
		NumberOfRepayments:   n,
		TermInMonths:         n,
		CurrencyCode:         "INR",
	}
}

// TwelvePercentLoan is 100,000 repaid over 12 months at a 12% nominal annual
// rate: an effective rate of about 12.68%.
func TwelvePercentLoan() eir.LoanData {
	return ScheduledLoan("twelve-percent", "2024-01-01", "100000", "8884.88", 12)
}

// UpfrontChargeLoan is 50,000 repaid in 6 monthly installments of 8,900,
// optionally with a 2,500 processing fee deducted from the disbursement.
func UpfrontChargeLoan(withCharge bool) eir.LoanData {
	loan := ScheduledLoan("upfront-charge", "2025-01-01", "50000", "8900", 6)
	if withCharge {
		loan.Charges = []cashflow.Charge{{
			Name:          "processing fee",
			Amount:        decimal.NewFromInt(2500),
			Timing:        cashflow.TimingUpfront,
			EffectiveDate: datetime.MustParseDate("2025-01-01"),
		}}
	}
	return loan
}

// SummaryLoan has only summary terms: 10,000 over 10 months.
func SummaryLoan() eir.LoanData {
	return eir.LoanData{
		LoanID:       "summary-only",
		Principal:    decimal.NewFromInt(10000),
		TermInMonths: 10,
		CurrencyCode: "INR",
	}
}
