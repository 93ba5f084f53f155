package irr

import (
	"errors"
	"fmt"
)

var (
	// ErrDegenerateCashFlow is returned when the cash flows cannot have a
	// meaningful rate of return.
	ErrDegenerateCashFlow = errors.New("degenerate cash flow")

	// ErrNonConvergence is returned when no rate satisfying the tolerance was
	// found within the iteration and bracket-scan budgets.
	ErrNonConvergence = errors.New("rate of return did not converge")
)

// DegenerateCashFlowError explains why a cash-flow sequence cannot be solved.
type DegenerateCashFlowError struct {
	Entries int
	Reason  string
}

func (e *DegenerateCashFlowError) Error() string {
	return fmt.Sprintf("%s (%d entries): %s", ErrDegenerateCashFlow, e.Entries, e.Reason)
}

func (e *DegenerateCashFlowError) Unwrap() error {
	return ErrDegenerateCashFlow
}

// NonConvergenceError carries the solver state at the point it gave up.
type NonConvergenceError struct {
	Iterations int
	LastRate   float64
	Reason     string
}

func (e *NonConvergenceError) Error() string {
	return fmt.Sprintf("%s after %d iterations: %s", ErrNonConvergence, e.Iterations, e.Reason)
}

func (e *NonConvergenceError) Unwrap() error {
	return ErrNonConvergence
}
