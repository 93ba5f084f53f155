// Package eir computes a loan's Effective Interest Rate: the annualized
// internal rate of return of the loan's disbursement and repayment cash flows.
//
// Loans carrying an authoritative repayment schedule are solved from their
// actual cash flows (IRR_METHOD). Loans described only by summary terms are
// solved from a synthetic schedule of equal installments (FRONTEND_METHOD)
// and the result says so.
package eir

import (
	"time"

	"github.com/iwvelando/loan-eir/pkg/cashflow"
	"github.com/iwvelando/loan-eir/pkg/datetime"
	"github.com/shopspring/decimal"
)

// Frequency is the spacing between repayments, e.g. every 2 weeks.
type Frequency struct {
	Every int                    `json:"every"`
	Unit  datetime.FrequencyUnit `json:"unit"`
}

// Monthly reports whether the frequency is one calendar month.
func (f Frequency) Monthly() bool {
	return (f.Unit == "" || f.Unit == datetime.Months) && f.Every <= 1
}

// LoanData is the resolved input for one calculation.
type LoanData struct {
	LoanID                   string
	Principal                decimal.Decimal
	NetDisbursalAmount       decimal.NullDecimal
	DisbursementTranches     []cashflow.Tranche
	RepaymentPeriods         []cashflow.RepaymentPeriod
	Charges                  []cashflow.Charge
	RepaymentFrequency       Frequency
	NumberOfRepayments       int
	TermInMonths             int
	NominalAnnualRate        decimal.NullDecimal
	ExpectedDisbursementDate time.Time
	CurrencyCode             string
}

// Status is the calculation lifecycle state.
type Status string

// Calculation states.
const (
	StatusPending   Status = "PENDING"
	StatusComputing Status = "COMPUTING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
)

// Method names how the rate was computed.
type Method string

// Calculation methods.
const (
	// MethodIRR solves the authoritative schedule's actual cash flows.
	MethodIRR Method = "IRR_METHOD"
	// MethodFrontend solves a synthetic equal-installment schedule built from
	// summary terms.
	MethodFrontend Method = "FRONTEND_METHOD"
)

// Provenance names the kind of input the result was derived from.
type Provenance string

// Input provenances.
const (
	ProvenanceAuthoritative Provenance = "AUTHORITATIVE_SCHEDULE"
	ProvenanceSummaryOnly   Provenance = "SUMMARY_ONLY"
)

// WarningCode identifies an approximation that was applied.
type WarningCode string

// Warning codes.
const (
	WarningFallbackMethod WarningCode = "APPROXIMATE_FALLBACK_METHOD"
	WarningApproximateEMI WarningCode = "APPROXIMATE_EMI"
	WarningMultipleRoots  WarningCode = "MULTIPLE_ROOTS_POSSIBLE"
)

// Warning flags a result that is usable but approximate.
type Warning struct {
	Code    WarningCode `json:"code"`
	Message string      `json:"message"`
}

// SolverSummary reports how the rate was found.
type SolverSummary struct {
	Strategy     string  `json:"strategy,omitempty"`
	Iterations   int     `json:"iterations"`
	InitialGuess float64 `json:"initialGuess"`
	Residual     float64 `json:"residual"`
	Tolerance    float64 `json:"tolerance"`
	Approximate  bool    `json:"approximate"`
	DayCount     string  `json:"dayCount"`
}

// Result is the outcome of one calculation. It is a value: a new calculation
// produces a new Result.
type Result struct {
	LoanID string `json:"loanId,omitempty"`
	// EffectiveInterestRate is an annual percentage, 12.68 meaning 12.68%.
	// It is zero when Status is FAILED.
	EffectiveInterestRate decimal.Decimal       `json:"effectiveInterestRate"`
	Method                Method                `json:"method"`
	Provenance            Provenance            `json:"provenance"`
	Status                Status                `json:"status"`
	Reason                string                `json:"reason,omitempty"`
	CalculationDate       time.Time             `json:"calculationDate"`
	EMIAmount             decimal.Decimal       `json:"emiAmount"`
	EMISource             EMISource             `json:"emiSource"`
	PrincipalAmount       decimal.Decimal       `json:"principalAmount"`
	NetDisbursementAmount decimal.Decimal       `json:"netDisbursementAmount"`
	NetDisbursementSource NetDisbursementSource `json:"netDisbursementSource"`
	TenureInPeriods       int                   `json:"tenureInPeriods"`
	TenureSource          TenureSource          `json:"tenureSource"`
	CurrencyCode          string                `json:"currencyCode,omitempty"`
	Warnings              []Warning             `json:"warnings,omitempty"`
	Solver                SolverSummary         `json:"solver"`
	CashFlows             []cashflow.Entry      `json:"cashFlows,omitempty"`
}

// Completed reports whether a rate was computed.
func (r Result) Completed() bool {
	return r.Status == StatusCompleted
}

// HasWarning reports whether the result carries the given warning code.
func (r Result) HasWarning(code WarningCode) bool {
	for _, w := range r.Warnings {
		if w.Code == code {
			return true
		}
	}
	return false
}
