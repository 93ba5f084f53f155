package eir

import (
	"errors"
	"fmt"
	"time"

	"github.com/iwvelando/loan-eir/pkg/cashflow"
	"github.com/iwvelando/loan-eir/pkg/constants"
	"github.com/iwvelando/loan-eir/pkg/datetime"
	"github.com/iwvelando/loan-eir/pkg/irr"
	"github.com/iwvelando/loan-eir/pkg/loans"
	"github.com/iwvelando/loan-eir/pkg/mathutil"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Settings configure a Calculator. Zero fields take defaults.
type Settings struct {
	DayCount datetime.DayCount
	Solver   irr.Options
	// RatePrecision is the number of decimal places kept on the percentage.
	RatePrecision int32
	// Now stamps CalculationDate; it defaults to time.Now.
	Now func() time.Time
}

// DefaultSettings returns the calculator defaults.
func DefaultSettings() Settings {
	return Settings{
		DayCount:      datetime.DefaultDayCount,
		Solver:        irr.DefaultOptions(),
		RatePrecision: constants.RatePlaces,
		Now:           time.Now,
	}
}

// Calculator computes effective interest rates. It holds only immutable
// configuration and is safe for concurrent use.
type Calculator struct {
	logger    *zap.Logger
	solver    *irr.Solver
	schedules *loans.ScheduleGenerator
	dayCount  datetime.DayCount
	precision int32
	now       func() time.Time
}

// NewCalculator creates a calculator with the given settings.
// If logger is nil, it will use a no-op logger.
func NewCalculator(logger *zap.Logger, settings Settings) *Calculator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if settings.DayCount == "" {
		settings.DayCount = datetime.DefaultDayCount
	}
	if settings.RatePrecision <= 0 {
		settings.RatePrecision = constants.RatePlaces
	}
	if settings.Now == nil {
		settings.Now = time.Now
	}

	return &Calculator{
		logger:    logger,
		solver:    irr.NewSolver(logger, settings.Solver),
		schedules: loans.NewScheduleGenerator(logger),
		dayCount:  settings.DayCount,
		precision: settings.RatePrecision,
		now:       settings.Now,
	}
}

// DayCount returns the convention used to discount cash flows.
func (c *Calculator) DayCount() datetime.DayCount {
	return c.dayCount
}

// Calculate computes the effective interest rate of loan. It never panics
// and never returns an error: every failure is reported as a FAILED result
// with a Reason and a zero rate.
func (c *Calculator) Calculate(loan LoanData) (result Result) {
	state := newLifecycle()
	result = Result{
		LoanID:       loan.LoanID,
		Status:       state.status,
		CurrencyCode: loan.CurrencyCode,
		Solver:       SolverSummary{DayCount: c.dayCount.String()},
	}

	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("calculation panicked",
				zap.String("op", "eir.Calculate"),
				zap.String("loan", loan.LoanID),
				zap.Any("panic", r),
			)
			result = c.finish(state, result, fmt.Errorf("internal error: %v", r))
		}
	}()

	result.CalculationDate = c.now().UTC()

	if err := state.transition(StatusComputing); err != nil {
		return c.finish(state, result, err)
	}
	result.Status = state.status

	kind := Classify(loan)
	c.logger.Debug("calculation started",
		zap.String("op", "eir.Calculate"),
		zap.String("loan", loan.LoanID),
		zap.Stringer("input", kind),
	)

	var err error
	if kind == AuthoritativeSchedule {
		err = c.fromSchedule(loan, &result)
	} else {
		err = c.fromSummary(loan, &result)
	}
	return c.finish(state, result, err)
}

// fromSchedule solves the loan's actual cash flows.
func (c *Calculator) fromSchedule(loan LoanData, result *Result) error {
	result.Method = MethodIRR
	result.Provenance = ProvenanceAuthoritative

	if err := validateSchedule(loan); err != nil {
		return err
	}

	frequency := frequencyRule(loan)
	principal := principalRule(loan)
	result.PrincipalAmount = principal
	result.TenureInPeriods, result.TenureSource = tenureRule(loan, AuthoritativeSchedule)
	result.NetDisbursementAmount, result.NetDisbursementSource = netDisbursementRule(loan, principal)
	result.EMIAmount, result.EMISource = emiRule(loan, AuthoritativeSchedule, principal, result.TenureInPeriods, frequency)
	if result.EMISource != EMIFromSchedule && result.EMISource != EMIUnavailable {
		result.Warnings = append(result.Warnings, approximateEMIWarning(result.EMISource))
	}

	flows := cashflow.Build(loan.DisbursementTranches, loan.RepaymentPeriods, loan.Charges)
	result.CashFlows = flows
	return c.solve(flows, result)
}

// fromSummary solves a synthetic schedule: the net disbursement paid out on
// the anchor date followed by equal installments one repayment interval
// apart.
func (c *Calculator) fromSummary(loan LoanData, result *Result) error {
	result.Method = MethodFrontend
	result.Provenance = ProvenanceSummaryOnly

	if len(loan.DisbursementTranches) == 0 && len(loan.RepaymentPeriods) == 0 && !hasSummaryTerms(loan) {
		return ErrInsufficientData
	}

	principal := principalRule(loan)
	if err := validateSummary(loan, principal); err != nil {
		return err
	}

	frequency := frequencyRule(loan)
	result.PrincipalAmount = principal
	result.TenureInPeriods, result.TenureSource = tenureRule(loan, SummaryOnly)
	result.NetDisbursementAmount, result.NetDisbursementSource = netDisbursementRule(loan, principal)
	result.EMIAmount, result.EMISource = emiRule(loan, SummaryOnly, principal, result.TenureInPeriods, frequency)
	result.Warnings = append(result.Warnings, Warning{
		Code:    WarningFallbackMethod,
		Message: "no authoritative repayment schedule; rate solved from a synthetic equal-installment schedule",
	})
	if result.EMISource != EMIUnavailable {
		result.Warnings = append(result.Warnings, approximateEMIWarning(result.EMISource))
	}

	if !result.NetDisbursementAmount.IsPositive() {
		return invalid("netDisbursalAmount", "net disbursement must be positive, got %s", result.NetDisbursementAmount)
	}
	if !result.EMIAmount.IsPositive() {
		return invalid("emiAmount", "no installment could be derived")
	}

	rate := decimal.Zero
	if loan.NominalAnnualRate.Valid {
		rate = loan.NominalAnnualRate.Decimal
	}
	anchor := anchorDate(loan)
	schedule, err := c.schedules.GenerateSchedule(loans.ScheduleTerms{
		Principal:   principal,
		AnnualRate:  rate,
		Installment: result.EMIAmount,
		Start:       anchor,
		Unit:        frequency.Unit,
		Every:       frequency.Every,
		Periods:     result.TenureInPeriods,
	})
	if err != nil {
		return fmt.Errorf("failed to build synthetic schedule: %w", err)
	}

	tranches := []cashflow.Tranche{{Date: anchor, PrincipalAmount: result.NetDisbursementAmount}}
	flows := cashflow.Build(tranches, schedule, nil)
	result.CashFlows = flows
	return c.solve(flows, result)
}

func (c *Calculator) solve(flows []cashflow.Entry, result *Result) error {
	solution, err := c.solver.Solve(flows, c.dayCount)
	if err != nil {
		return err
	}
	if !mathutil.IsFinite(solution.Rate) {
		return &irr.NonConvergenceError{
			Iterations: solution.Iterations,
			LastRate:   solution.Rate,
			Reason:     "solver produced a non-finite rate",
		}
	}

	result.Solver = SolverSummary{
		Strategy:     string(solution.Strategy),
		Iterations:   solution.Iterations,
		InitialGuess: solution.InitialGuess,
		Residual:     solution.Residual,
		Tolerance:    solution.Tolerance,
		Approximate:  solution.Approximate,
		DayCount:     c.dayCount.String(),
	}
	// Discounting on elapsed years already makes the rate annual-effective.
	result.EffectiveInterestRate = decimal.NewFromFloat(mathutil.ToPercentage(solution.Rate)).Round(c.precision)
	if solution.Approximate {
		result.Warnings = append(result.Warnings, Warning{
			Code:    WarningMultipleRoots,
			Message: "cash flows change sign more than once; the rate nearest the initial estimate was reported",
		})
	}
	return nil
}

// finish moves the calculation to its terminal status.
func (c *Calculator) finish(state *lifecycle, result Result, err error) Result {
	to := StatusCompleted
	if err != nil {
		to = StatusFailed
	}
	if terr := state.transition(to); terr != nil {
		c.logger.Error("calculation lifecycle violated",
			zap.String("op", "eir.Calculate"),
			zap.String("loan", result.LoanID),
			zap.Error(terr),
		)
		if err == nil {
			err = terr
		}
		to = StatusFailed
	}

	result.Status = to
	if to == StatusFailed {
		result.EffectiveInterestRate = decimal.Zero
		result.Reason = reason(err)
		c.logger.Warn("calculation failed",
			zap.String("op", "eir.Calculate"),
			zap.String("loan", result.LoanID),
			zap.String("method", string(result.Method)),
			zap.String("reason", result.Reason),
		)
		return result
	}

	c.logger.Info("calculation completed",
		zap.String("op", "eir.Calculate"),
		zap.String("loan", result.LoanID),
		zap.String("method", string(result.Method)),
		zap.String("eir", result.EffectiveInterestRate.String()),
		zap.String("strategy", result.Solver.Strategy),
		zap.Int("iterations", result.Solver.Iterations),
	)
	return result
}

func reason(err error) string {
	if errors.Is(err, ErrInsufficientData) {
		return ErrInsufficientData.Error()
	}
	return err.Error()
}

func approximateEMIWarning(source EMISource) Warning {
	return Warning{
		Code:    WarningApproximateEMI,
		Message: fmt.Sprintf("installment derived by rule %s rather than taken from a repayment schedule", source),
	}
}
