package eir

import (
	"fmt"
	"sort"
	"time"

	"github.com/iwvelando/loan-eir/pkg/cashflow"
	"github.com/iwvelando/loan-eir/pkg/constants"
	"github.com/iwvelando/loan-eir/pkg/datetime"
	"github.com/shopspring/decimal"
)

// InputKind is the variant of loan data a calculation works from.
type InputKind int

// Input variants.
const (
	// SummaryOnly loans lack disbursement tranches or contributing repayment
	// periods and are solved from summary terms.
	SummaryOnly InputKind = iota
	// AuthoritativeSchedule loans carry tranches and at least one contributing
	// repayment period.
	AuthoritativeSchedule
)

func (k InputKind) String() string {
	if k == AuthoritativeSchedule {
		return string(ProvenanceAuthoritative)
	}
	return string(ProvenanceSummaryOnly)
}

// Classify selects the input variant. It is called once per calculation.
func Classify(loan LoanData) InputKind {
	if len(loan.DisbursementTranches) == 0 {
		return SummaryOnly
	}
	for _, period := range loan.RepaymentPeriods {
		if period.Contributes() {
			return AuthoritativeSchedule
		}
	}
	return SummaryOnly
}

// contributingPeriods returns the periods numbered above zero ordered by
// period number.
func contributingPeriods(periods []cashflow.RepaymentPeriod) []cashflow.RepaymentPeriod {
	out := make([]cashflow.RepaymentPeriod, 0, len(periods))
	for _, period := range periods {
		if period.Contributes() {
			out = append(out, period)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PeriodNumber < out[j].PeriodNumber
	})
	return out
}

// hasSummaryTerms reports whether anything usable by the fallback method is
// present.
func hasSummaryTerms(loan LoanData) bool {
	return !loan.Principal.IsZero() || loan.NetDisbursalAmount.Valid ||
		loan.NumberOfRepayments != 0 || loan.TermInMonths != 0
}

// validateCharges applies to both variants: timing must be known and amounts
// non-negative.
func validateCharges(charges []cashflow.Charge) error {
	for i, charge := range charges {
		field := fmt.Sprintf("charges[%d]", i)
		if !charge.Timing.Valid() {
			return invalid(field+".timing", "unknown charge timing %q", charge.Timing)
		}
		if charge.Amount.IsNegative() {
			return invalid(field+".amount", "negative amount %s", charge.Amount)
		}
	}
	return nil
}

func validateSchedule(loan LoanData) error {
	for i, tranche := range loan.DisbursementTranches {
		field := fmt.Sprintf("disbursementTranches[%d]", i)
		if tranche.Date.IsZero() {
			return invalid(field+".date", "missing disbursement date")
		}
		if !tranche.PrincipalAmount.IsPositive() {
			return invalid(field+".principalAmount", "principal must be positive, got %s", tranche.PrincipalAmount)
		}
	}

	for i, period := range loan.RepaymentPeriods {
		if !period.Contributes() {
			continue
		}
		field := fmt.Sprintf("repaymentPeriods[%d]", i)
		if period.DueDate.IsZero() {
			return invalid(field+".dueDate", "missing due date for period %d", period.PeriodNumber)
		}
		components := []struct {
			name   string
			amount decimal.Decimal
		}{
			{"principalDue", period.PrincipalDue},
			{"interestDue", period.InterestDue},
			{"feeDue", period.FeeDue},
			{"penaltyDue", period.PenaltyDue},
		}
		for _, component := range components {
			if component.amount.IsNegative() {
				return invalid(field+"."+component.name, "negative amount %s", component.amount)
			}
		}
	}
	return validateCharges(loan.Charges)
}

// validateSummary checks the terms the fallback method needs; principal is
// the amount resolved by principalRule.
func validateSummary(loan LoanData, principal decimal.Decimal) error {
	if loan.Principal.IsNegative() {
		return invalid("principal", "negative amount %s", loan.Principal)
	}
	if !principal.IsPositive() {
		return invalid("principal", "missing principal")
	}
	if loan.NetDisbursalAmount.Valid && !loan.NetDisbursalAmount.Decimal.IsPositive() {
		return invalid("netDisbursalAmount", "net disbursal must be positive, got %s", loan.NetDisbursalAmount.Decimal)
	}
	if loan.NumberOfRepayments < 0 {
		return invalid("numberOfRepayments", "negative count %d", loan.NumberOfRepayments)
	}
	if loan.TermInMonths < 0 {
		return invalid("termInMonths", "negative term %d", loan.TermInMonths)
	}
	if loan.NumberOfRepayments == 0 && loan.TermInMonths == 0 {
		return invalid("numberOfRepayments", "empty schedule: neither numberOfRepayments nor termInMonths given")
	}
	if loan.NominalAnnualRate.Valid && loan.NominalAnnualRate.Decimal.IsNegative() {
		return invalid("nominalAnnualRate", "negative rate %s", loan.NominalAnnualRate.Decimal)
	}
	if loan.RepaymentFrequency.Every < 0 {
		return invalid("repaymentFrequency.every", "negative interval %d", loan.RepaymentFrequency.Every)
	}
	if unit := loan.RepaymentFrequency.Unit; unit != "" {
		if _, err := datetime.ParseFrequencyUnit(string(unit)); err != nil {
			return invalid("repaymentFrequency.unit", "%v", err)
		}
	}
	for i, tranche := range loan.DisbursementTranches {
		if tranche.Date.IsZero() {
			return invalid(fmt.Sprintf("disbursementTranches[%d].date", i), "missing disbursement date")
		}
	}
	return validateCharges(loan.Charges)
}

// anchorDate is where a synthetic schedule starts: the first disbursement,
// else the expected disbursement date, else a fixed date so results stay
// reproducible.
func anchorDate(loan LoanData) time.Time {
	var first time.Time
	for _, tranche := range loan.DisbursementTranches {
		if first.IsZero() || datetime.DateBeforeDate(tranche.Date, first) {
			first = tranche.Date
		}
	}
	if !first.IsZero() {
		return datetime.Truncate(first)
	}
	if !loan.ExpectedDisbursementDate.IsZero() {
		return datetime.Truncate(loan.ExpectedDisbursementDate)
	}
	return constants.SyntheticAnchorDate
}
