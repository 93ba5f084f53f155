package loans

import (
	"errors"
	"fmt"
	"time"

	"github.com/iwvelando/loan-eir/pkg/cashflow"
	"github.com/iwvelando/loan-eir/pkg/datetime"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrInvalidTerms is returned when schedule terms cannot produce a schedule.
var ErrInvalidTerms = errors.New("invalid schedule terms")

// ScheduleTerms describe an equal-installment loan.
type ScheduleTerms struct {
	Principal decimal.Decimal
	// AnnualRate is the nominal annual rate in percent; zero is interest free.
	AnnualRate decimal.Decimal
	// Installment overrides the amortized installment when positive.
	Installment decimal.Decimal
	Start       time.Time
	Unit        datetime.FrequencyUnit
	Every       int
	Periods     int
}

// ScheduleGenerator builds repayment schedules from summary loan terms.
type ScheduleGenerator struct {
	logger *zap.Logger
}

// NewScheduleGenerator creates a new generator instance.
func NewScheduleGenerator(logger *zap.Logger) *ScheduleGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleGenerator{logger: logger}
}

// GenerateSchedule creates an equal-installment schedule. Row 0 is the
// disbursement placeholder; rows 1..Periods fall due one frequency step apart
// from Start. Every installment totals the same amount: the final row repays
// the remaining balance and its interest absorbs the rounding residual. When
// the installment was rounded down the final row is larger instead.
func (g *ScheduleGenerator) GenerateSchedule(terms ScheduleTerms) ([]cashflow.RepaymentPeriod, error) {
	if terms.Periods <= 0 {
		return nil, fmt.Errorf("%w: periods must be positive, got %d", ErrInvalidTerms, terms.Periods)
	}
	if !terms.Principal.IsPositive() {
		return nil, fmt.Errorf("%w: principal must be positive, got %s", ErrInvalidTerms, terms.Principal)
	}
	if terms.AnnualRate.IsNegative() {
		return nil, fmt.Errorf("%w: annual rate must not be negative, got %s", ErrInvalidTerms, terms.AnnualRate)
	}
	if terms.Start.IsZero() {
		return nil, fmt.Errorf("%w: start date is required", ErrInvalidTerms)
	}

	periodsPerYear := datetime.PeriodsPerYear(terms.Unit, terms.Every)
	installment := terms.Installment
	if !installment.IsPositive() {
		installment = CalculateInstallment(terms.Principal, terms.AnnualRate, periodsPerYear, terms.Periods)
	}

	g.logger.Debug("generating repayment schedule",
		zap.String("op", "loans.GenerateSchedule"),
		zap.String("principal", terms.Principal.String()),
		zap.String("installment", installment.String()),
		zap.Int("periods", terms.Periods),
	)

	schedule := make([]cashflow.RepaymentPeriod, 0, terms.Periods+1)
	schedule = append(schedule, cashflow.RepaymentPeriod{
		PeriodNumber: 0,
		DueDate:      terms.Start,
		PrincipalDue: terms.Principal,
	})

	remaining := terms.Principal
	for n := 1; n <= terms.Periods; n++ {
		interest := CalculateInterestPayment(remaining, terms.AnnualRate, periodsPerYear)
		principal := installment.Sub(interest)
		if n == terms.Periods || principal.GreaterThan(remaining) {
			principal = remaining
			interest = installment.Sub(principal)
			// A rounded-down installment leaves a residual; the last
			// row repays it rather than carrying negative interest.
			if interest.IsNegative() {
				interest = decimal.Zero
			}
		}
		remaining = remaining.Sub(principal)

		schedule = append(schedule, cashflow.RepaymentPeriod{
			PeriodNumber: n,
			DueDate:      datetime.Advance(terms.Start, terms.Unit, terms.Every, n),
			PrincipalDue: principal,
			InterestDue:  interest,
			FeeDue:       decimal.Zero,
			PenaltyDue:   decimal.Zero,
		})
	}

	return schedule, nil
}

// OutstandingAfter returns the principal still owed after the first n
// contributing periods of schedule.
func OutstandingAfter(schedule []cashflow.RepaymentPeriod, n int) decimal.Decimal {
	outstanding := decimal.Zero
	for _, period := range schedule {
		if !period.Contributes() {
			outstanding = outstanding.Add(period.PrincipalDue)
			continue
		}
		if period.PeriodNumber <= n {
			outstanding = outstanding.Sub(period.PrincipalDue)
		}
	}
	return outstanding
}
