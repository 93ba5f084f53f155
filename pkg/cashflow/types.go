// Package cashflow turns loan disbursements, repayment periods and charges
// into a single chronological, signed cash-flow sequence.
//
// Amounts are signed from the lender's point of view: disbursements are
// negative, repayments and collected fees are positive.
package cashflow

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Entry is one dated, signed cash flow.
type Entry struct {
	Date   time.Time       `json:"date"`
	Amount decimal.Decimal `json:"amount"`
}

// Tranche is one disbursement of principal to the borrower.
type Tranche struct {
	Date            time.Time
	PrincipalAmount decimal.Decimal
}

// RepaymentPeriod is one row of a repayment schedule. Period 0 is the
// disbursement placeholder row and never contributes a repayment.
type RepaymentPeriod struct {
	PeriodNumber int
	DueDate      time.Time
	PrincipalDue decimal.Decimal
	InterestDue  decimal.Decimal
	FeeDue       decimal.Decimal
	PenaltyDue   decimal.Decimal
}

// TotalDue is the sum of every component due in the period.
func (p RepaymentPeriod) TotalDue() decimal.Decimal {
	return p.PrincipalDue.Add(p.InterestDue).Add(p.FeeDue).Add(p.PenaltyDue)
}

// Contributes reports whether the period produces a repayment cash flow.
func (p RepaymentPeriod) Contributes() bool {
	return p.PeriodNumber > 0
}

// ChargeTiming says when a charge is collected.
type ChargeTiming string

// Charge timings.
const (
	// TimingUpfront charges are deducted from the disbursement.
	TimingUpfront ChargeTiming = "upfront"
	// TimingOngoing charges are collected on their own date during the loan.
	TimingOngoing ChargeTiming = "ongoing"
	// TimingPeriodic charges recur with the schedule; each occurrence is its
	// own Charge.
	TimingPeriodic ChargeTiming = "periodic"
)

// ParseChargeTiming resolves a timing name. There is no default: an unknown
// or empty timing is an error.
func ParseChargeTiming(name string) (ChargeTiming, error) {
	switch ChargeTiming(strings.ToLower(strings.TrimSpace(name))) {
	case TimingUpfront:
		return TimingUpfront, nil
	case TimingOngoing:
		return TimingOngoing, nil
	case TimingPeriodic:
		return TimingPeriodic, nil
	default:
		return "", fmt.Errorf("unknown charge timing %q", name)
	}
}

// Valid reports whether t is one of the known timings.
func (t ChargeTiming) Valid() bool {
	switch t {
	case TimingUpfront, TimingOngoing, TimingPeriodic:
		return true
	}
	return false
}

// Charge is a fee levied on the loan.
type Charge struct {
	Name          string
	Amount        decimal.Decimal
	Timing        ChargeTiming
	EffectiveDate time.Time
}

// IsUpfront reports whether the charge is netted against a disbursement.
func (c Charge) IsUpfront() bool {
	return c.Timing == TimingUpfront
}
