package config

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/iwvelando/loan-eir/pkg/cashflow"
	"github.com/iwvelando/loan-eir/pkg/datetime"
	"github.com/iwvelando/loan-eir/pkg/eir"
	"github.com/mitchellh/mapstructure"
	"github.com/shopspring/decimal"
)

// Loan indicates a loan and its parameters as written in a config file.
// Dates are YYYY-MM-DD strings; amounts may be numbers or strings.
type Loan struct {
	LoanID                   string              `yaml:"loanId" json:"loanId"`
	CurrencyCode             string              `yaml:"currencyCode,omitempty" json:"currencyCode,omitempty"`
	Principal                decimal.Decimal     `yaml:"principal" json:"principal"`
	NetDisbursalAmount       decimal.NullDecimal `yaml:"netDisbursalAmount,omitempty" json:"netDisbursalAmount,omitempty"`
	NominalAnnualRate        decimal.NullDecimal `yaml:"nominalAnnualRate,omitempty" json:"nominalAnnualRate,omitempty"`
	ExpectedDisbursementDate string              `yaml:"expectedDisbursementDate,omitempty" json:"expectedDisbursementDate,omitempty"`
	TermInMonths             int                 `yaml:"termInMonths,omitempty" json:"termInMonths,omitempty"`
	NumberOfRepayments       int                 `yaml:"numberOfRepayments,omitempty" json:"numberOfRepayments,omitempty"`
	RepaymentEvery           int                 `yaml:"repaymentEvery,omitempty" json:"repaymentEvery,omitempty"`
	RepaymentFrequency       string              `yaml:"repaymentFrequency,omitempty" json:"repaymentFrequency,omitempty"`
	Tranches                 []Tranche           `yaml:"tranches,omitempty" json:"tranches,omitempty"`
	Schedule                 []Period            `yaml:"schedule,omitempty" json:"schedule,omitempty"`
	Charges                  []Charge            `yaml:"charges,omitempty" json:"charges,omitempty"`
}

// Tranche is one disbursement.
type Tranche struct {
	Date   string          `yaml:"date" json:"date"`
	Amount decimal.Decimal `yaml:"amount" json:"amount"`
}

// Period is one repayment schedule row.
type Period struct {
	Period    int             `yaml:"period" json:"period"`
	DueDate   string          `yaml:"dueDate" json:"dueDate"`
	Principal decimal.Decimal `yaml:"principal,omitempty" json:"principal,omitempty"`
	Interest  decimal.Decimal `yaml:"interest,omitempty" json:"interest,omitempty"`
	Fee       decimal.Decimal `yaml:"fee,omitempty" json:"fee,omitempty"`
	Penalty   decimal.Decimal `yaml:"penalty,omitempty" json:"penalty,omitempty"`
}

// Charge is a fee levied on the loan. A charge with Every set recurs from
// Date through EndDate, one occurrence per Every Frequency units; EndDate
// defaults to the last scheduled due date.
type Charge struct {
	Name      string          `yaml:"name" json:"name"`
	Amount    decimal.Decimal `yaml:"amount" json:"amount"`
	Timing    string          `yaml:"timing" json:"timing"`
	Date      string          `yaml:"date,omitempty" json:"date,omitempty"`
	Every     int             `yaml:"every,omitempty" json:"every,omitempty"`
	Frequency string          `yaml:"frequency,omitempty" json:"frequency,omitempty"`
	EndDate   string          `yaml:"endDate,omitempty" json:"endDate,omitempty"`
}

// ToLoanData converts a config loan into calculator input. Malformed dates,
// frequencies and charge timings are reported with the offending field.
func (loan *Loan) ToLoanData() (eir.LoanData, error) {
	data := eir.LoanData{
		LoanID:             loan.LoanID,
		Principal:          loan.Principal,
		NetDisbursalAmount: loan.NetDisbursalAmount,
		NominalAnnualRate:  loan.NominalAnnualRate,
		TermInMonths:       loan.TermInMonths,
		NumberOfRepayments: loan.NumberOfRepayments,
		CurrencyCode:       loan.CurrencyCode,
	}

	unit, err := datetime.ParseFrequencyUnit(loan.RepaymentFrequency)
	if err != nil {
		return eir.LoanData{}, loan.fieldError("repaymentFrequency", err)
	}
	every := loan.RepaymentEvery
	if every == 0 {
		every = 1
	}
	data.RepaymentFrequency = eir.Frequency{Every: every, Unit: unit}

	if loan.ExpectedDisbursementDate != "" {
		data.ExpectedDisbursementDate, err = datetime.ParseDate(loan.ExpectedDisbursementDate)
		if err != nil {
			return eir.LoanData{}, loan.fieldError("expectedDisbursementDate", err)
		}
	}

	for i, tranche := range loan.Tranches {
		date, err := datetime.ParseDate(tranche.Date)
		if err != nil {
			return eir.LoanData{}, loan.fieldError(fmt.Sprintf("tranches[%d].date", i), err)
		}
		data.DisbursementTranches = append(data.DisbursementTranches, cashflow.Tranche{
			Date:            date,
			PrincipalAmount: tranche.Amount,
		})
	}

	for i, period := range loan.Schedule {
		var due time.Time
		if period.DueDate != "" {
			due, err = datetime.ParseDate(period.DueDate)
			if err != nil {
				return eir.LoanData{}, loan.fieldError(fmt.Sprintf("schedule[%d].dueDate", i), err)
			}
		}
		data.RepaymentPeriods = append(data.RepaymentPeriods, cashflow.RepaymentPeriod{
			PeriodNumber: period.Period,
			DueDate:      due,
			PrincipalDue: period.Principal,
			InterestDue:  period.Interest,
			FeeDue:       period.Fee,
			PenaltyDue:   period.Penalty,
		})
	}

	for i, charge := range loan.Charges {
		timing, err := cashflow.ParseChargeTiming(charge.Timing)
		if err != nil {
			return eir.LoanData{}, loan.fieldError(fmt.Sprintf("charges[%d].timing", i), err)
		}
		converted := cashflow.Charge{Name: charge.Name, Amount: charge.Amount, Timing: timing}
		if charge.Date != "" {
			converted.EffectiveDate, err = datetime.ParseDate(charge.Date)
			if err != nil {
				return eir.LoanData{}, loan.fieldError(fmt.Sprintf("charges[%d].date", i), err)
			}
		}
		if charge.Every <= 0 {
			data.Charges = append(data.Charges, converted)
			continue
		}

		occurrences, err := charge.occurrences(converted, lastDueDate(data.RepaymentPeriods))
		if err != nil {
			return eir.LoanData{}, loan.fieldError(fmt.Sprintf("charges[%d]", i), err)
		}
		data.Charges = append(data.Charges, occurrences...)
	}

	return data, nil
}

// occurrences expands a recurring charge into one Charge per date.
func (charge *Charge) occurrences(first cashflow.Charge, lastDue time.Time) ([]cashflow.Charge, error) {
	if first.EffectiveDate.IsZero() {
		return nil, fmt.Errorf("recurring charge '%s' needs a start date", charge.Name)
	}
	unit, err := datetime.ParseFrequencyUnit(charge.Frequency)
	if err != nil {
		return nil, err
	}

	// Unspecified endDate goes to the last scheduled due date.
	end := lastDue
	if charge.EndDate != "" {
		end, err = datetime.ParseDate(charge.EndDate)
		if err != nil {
			return nil, err
		}
	}
	if end.IsZero() {
		return nil, fmt.Errorf("recurring charge '%s' needs an end date", charge.Name)
	}
	if end.Before(first.EffectiveDate) {
		return nil, fmt.Errorf("recurring charge '%s' ends before it starts", charge.Name)
	}

	var charges []cashflow.Charge
	for n := 0; ; n++ {
		date := datetime.Advance(first.EffectiveDate, unit, charge.Every, n)
		if date.After(end) {
			break
		}
		occurrence := first
		occurrence.EffectiveDate = date
		charges = append(charges, occurrence)
	}
	return charges, nil
}

func lastDueDate(periods []cashflow.RepaymentPeriod) time.Time {
	var last time.Time
	for _, period := range periods {
		if period.DueDate.After(last) {
			last = period.DueDate
		}
	}
	return last
}

func (loan *Loan) fieldError(field string, err error) error {
	return fmt.Errorf("loan '%s' %s: %w", loan.LoanID, field, err)
}

// LoanData converts every configured loan, stopping at the first error.
func (c *Configuration) LoanData() ([]eir.LoanData, error) {
	loans := make([]eir.LoanData, 0, len(c.Loans))
	for i := range c.Loans {
		data, err := c.Loans[i].ToLoanData()
		if err != nil {
			return nil, err
		}
		loans = append(loans, data)
	}
	return loans, nil
}

var (
	decimalType     = reflect.TypeOf(decimal.Decimal{})
	nullDecimalType = reflect.TypeOf(decimal.NullDecimal{})
)

// decimalHook lets config documents carry amounts as numbers or strings.
func decimalHook() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		switch to {
		case decimalType:
			return toDecimal(data)
		case nullDecimalType:
			if data == nil {
				return decimal.NullDecimal{}, nil
			}
			if s, ok := data.(string); ok && strings.TrimSpace(s) == "" {
				return decimal.NullDecimal{}, nil
			}
			d, err := toDecimal(data)
			if err != nil {
				return nil, err
			}
			return decimal.NewNullDecimal(d), nil
		}
		return data, nil
	}
}

func toDecimal(data interface{}) (decimal.Decimal, error) {
	switch v := data.(type) {
	case nil:
		return decimal.Zero, nil
	case decimal.Decimal:
		return v, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return decimal.Zero, nil
		}
		d, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return decimal.Zero, fmt.Errorf("invalid amount %q: %w", v, err)
		}
		return d, nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int32:
		return decimal.NewFromInt32(v), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case uint64:
		return decimal.NewFromString(fmt.Sprintf("%d", v))
	case float32:
		return decimal.NewFromFloat32(v), nil
	case float64:
		return decimal.NewFromFloat(v), nil
	}
	return decimal.Zero, fmt.Errorf("cannot use %T as an amount", data)
}
