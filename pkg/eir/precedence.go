package eir

import (
	"github.com/iwvelando/loan-eir/pkg/cashflow"
	"github.com/iwvelando/loan-eir/pkg/constants"
	"github.com/iwvelando/loan-eir/pkg/datetime"
	"github.com/iwvelando/loan-eir/pkg/loans"
	"github.com/shopspring/decimal"
)

// Every derived figure in a Result comes from exactly one rule of the tables
// below, tried in order; the rule that fired is recorded as the figure's
// source.
//
// EMI:
//  1. SCHEDULE_INSTALLMENT      first contributing period with a non-zero
//     total due (authoritative schedules only)
//  2. AMORTIZED_NOMINAL_RATE    equal installment amortizing Principal at
//     NominalAnnualRate over the tenure
//  3. FLAT_PRINCIPAL_OVER_TERM  Principal / TermInMonths, or
//     Principal / NumberOfRepayments when there is no term or the loan
//     is not repaid monthly
//
// Net disbursement:
//  1. EXPLICIT_NET_DISBURSAL          NetDisbursalAmount
//  2. TRANCHES_LESS_UPFRONT_CHARGES   Σ tranches − Σ upfront charges
//  3. PRINCIPAL_LESS_UPFRONT_CHARGES  Principal − Σ upfront charges
//
// Tenure:
//  1. CONTRIBUTING_PERIODS  number of periods numbered above zero
//  2. NUMBER_OF_REPAYMENTS
//  3. TERM_IN_MONTHS
//
// Principal: Principal when positive, else Σ tranches.

// EMISource names the rule that produced EMIAmount.
type EMISource string

// EMI rules.
const (
	EMIFromSchedule    EMISource = "SCHEDULE_INSTALLMENT"
	EMIFromNominalRate EMISource = "AMORTIZED_NOMINAL_RATE"
	EMIFlatOverTerm    EMISource = "FLAT_PRINCIPAL_OVER_TERM"
	EMIUnavailable     EMISource = "UNAVAILABLE"
)

// NetDisbursementSource names the rule that produced NetDisbursementAmount.
type NetDisbursementSource string

// Net disbursement rules.
const (
	NetFromExplicit  NetDisbursementSource = "EXPLICIT_NET_DISBURSAL"
	NetFromTranches  NetDisbursementSource = "TRANCHES_LESS_UPFRONT_CHARGES"
	NetFromPrincipal NetDisbursementSource = "PRINCIPAL_LESS_UPFRONT_CHARGES"
)

// TenureSource names the rule that produced TenureInPeriods.
type TenureSource string

// Tenure rules.
const (
	TenureFromPeriods    TenureSource = "CONTRIBUTING_PERIODS"
	TenureFromRepayments TenureSource = "NUMBER_OF_REPAYMENTS"
	TenureFromTerm       TenureSource = "TERM_IN_MONTHS"
	TenureUnavailable    TenureSource = "UNAVAILABLE"
)

func principalRule(loan LoanData) decimal.Decimal {
	if loan.Principal.IsPositive() {
		return loan.Principal
	}
	return sumTranches(loan.DisbursementTranches)
}

func tenureRule(loan LoanData, kind InputKind) (int, TenureSource) {
	if kind == AuthoritativeSchedule {
		return len(contributingPeriods(loan.RepaymentPeriods)), TenureFromPeriods
	}
	if loan.NumberOfRepayments > 0 {
		return loan.NumberOfRepayments, TenureFromRepayments
	}
	if loan.TermInMonths > 0 {
		return loan.TermInMonths, TenureFromTerm
	}
	return 0, TenureUnavailable
}

func netDisbursementRule(loan LoanData, principal decimal.Decimal) (decimal.Decimal, NetDisbursementSource) {
	if loan.NetDisbursalAmount.Valid {
		return loan.NetDisbursalAmount.Decimal, NetFromExplicit
	}
	upfront := sumUpfrontCharges(loan.Charges)
	if len(loan.DisbursementTranches) > 0 {
		return sumTranches(loan.DisbursementTranches).Sub(upfront), NetFromTranches
	}
	return principal.Sub(upfront), NetFromPrincipal
}

// emiRule applies the EMI table. Rules 2 and 3 mark the result approximate.
func emiRule(loan LoanData, kind InputKind, principal decimal.Decimal, tenure int, frequency Frequency) (decimal.Decimal, EMISource) {
	if kind == AuthoritativeSchedule {
		for _, period := range contributingPeriods(loan.RepaymentPeriods) {
			if total := period.TotalDue(); !total.IsZero() {
				return total, EMIFromSchedule
			}
		}
	}

	if loan.NominalAnnualRate.Valid && tenure > 0 && principal.IsPositive() {
		periodsPerYear := datetime.PeriodsPerYear(frequency.Unit, frequency.Every)
		return loans.CalculateInstallment(principal, loan.NominalAnnualRate.Decimal, periodsPerYear, tenure), EMIFromNominalRate
	}

	divisor := loan.TermInMonths
	if divisor <= 0 || (loan.NumberOfRepayments > 0 && !frequency.Monthly()) {
		divisor = loan.NumberOfRepayments
	}
	if divisor > 0 && principal.IsPositive() {
		return principal.Div(decimal.NewFromInt(int64(divisor))).Round(constants.CurrencyPlaces), EMIFlatOverTerm
	}
	return decimal.Zero, EMIUnavailable
}

// frequencyRule resolves unit aliases; an empty or unknown unit is monthly.
func frequencyRule(loan LoanData) Frequency {
	unit, err := datetime.ParseFrequencyUnit(string(loan.RepaymentFrequency.Unit))
	if err != nil {
		unit = datetime.Months
	}
	every := loan.RepaymentFrequency.Every
	if every <= 0 {
		every = 1
	}
	return Frequency{Every: every, Unit: unit}
}

func sumTranches(tranches []cashflow.Tranche) decimal.Decimal {
	total := decimal.Zero
	for _, tranche := range tranches {
		total = total.Add(tranche.PrincipalAmount)
	}
	return total
}

func sumUpfrontCharges(charges []cashflow.Charge) decimal.Decimal {
	total := decimal.Zero
	for _, charge := range charges {
		if charge.IsUpfront() {
			total = total.Add(charge.Amount)
		}
	}
	return total
}
