package validation

import (
	"fmt"

	"github.com/iwvelando/loan-eir/pkg/cashflow"
	"github.com/iwvelando/loan-eir/pkg/datetime"
	"github.com/iwvelando/loan-eir/pkg/eir"
	"github.com/shopspring/decimal"
)

// ValidatePeriodDates warns about contributing periods due on or before the
// first disbursement.
func ValidatePeriodDates(loanName string, firstDisbursement string, periods []cashflow.RepaymentPeriod) []string {
	var warnings []string
	if firstDisbursement == "" {
		return warnings
	}

	seen := make(map[int]bool, len(periods))
	for _, period := range periods {
		if seen[period.PeriodNumber] {
			warnings = append(warnings, fmt.Sprintf("Loan '%s' period %d appears more than once",
				loanName, period.PeriodNumber))
		}
		seen[period.PeriodNumber] = true

		if !period.Contributes() || period.DueDate.IsZero() {
			continue
		}
		due := datetime.FormatDate(period.DueDate)
		if due <= firstDisbursement {
			warnings = append(warnings, fmt.Sprintf("Loan '%s' period %d is due on or before the first disbursement (%s <= %s)",
				loanName, period.PeriodNumber, due, firstDisbursement))
		}
	}
	return warnings
}

// ValidateChargeDates warns about charges whose date is inferred.
func ValidateChargeDates(loanName string, charges []cashflow.Charge) []string {
	var warnings []string
	for _, charge := range charges {
		if !charge.EffectiveDate.IsZero() || !charge.Timing.Valid() {
			continue
		}
		if charge.IsUpfront() {
			warnings = append(warnings, fmt.Sprintf("Loan '%s' upfront charge '%s' has no effective date - netted against the first disbursement",
				loanName, charge.Name))
		} else {
			warnings = append(warnings, fmt.Sprintf("Loan '%s' %s charge '%s' has no effective date - collected on the first disbursement date",
				loanName, charge.Timing, charge.Name))
		}
	}
	return warnings
}

// ValidateTerms warns when summary terms disagree with each other or with
// the schedule.
func ValidateTerms(loanName string, loan eir.LoanData) []string {
	var warnings []string

	tranches := decimal.Zero
	for _, tranche := range loan.DisbursementTranches {
		tranches = tranches.Add(tranche.PrincipalAmount)
	}
	if len(loan.DisbursementTranches) > 0 && loan.Principal.IsPositive() && !tranches.Equal(loan.Principal) {
		warnings = append(warnings, fmt.Sprintf("Loan '%s' tranches total %s but principal is %s",
			loanName, tranches, loan.Principal))
	}

	if loan.RepaymentFrequency.Monthly() && loan.TermInMonths > 0 && loan.NumberOfRepayments > 0 &&
		loan.TermInMonths != loan.NumberOfRepayments {
		warnings = append(warnings, fmt.Sprintf("Loan '%s' is repaid monthly but has %d repayments over %d months",
			loanName, loan.NumberOfRepayments, loan.TermInMonths))
	}

	contributing := 0
	for _, period := range loan.RepaymentPeriods {
		if period.Contributes() {
			contributing++
		}
	}
	if contributing > 0 && loan.NumberOfRepayments > 0 && contributing != loan.NumberOfRepayments {
		warnings = append(warnings, fmt.Sprintf("Loan '%s' schedule has %d periods but %d repayments are declared",
			loanName, contributing, loan.NumberOfRepayments))
	}

	return warnings
}

// ValidateLoan performs comprehensive loan validation and returns warnings.
// Hard errors are left to the calculator, which reports them as failed
// results.
func ValidateLoan(loan eir.LoanData) []string {
	name := loan.LoanID
	if name == "" {
		name = "unnamed"
	}

	first := ""
	for _, tranche := range loan.DisbursementTranches {
		if tranche.Date.IsZero() {
			continue
		}
		date := datetime.FormatDate(tranche.Date)
		if first == "" || date < first {
			first = date
		}
	}

	var warnings []string
	warnings = append(warnings, ValidatePeriodDates(name, first, loan.RepaymentPeriods)...)
	warnings = append(warnings, ValidateChargeDates(name, loan.Charges)...)
	warnings = append(warnings, ValidateTerms(name, loan)...)
	return warnings
}
