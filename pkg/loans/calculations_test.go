package loans

import (
	"errors"
	"testing"
	"time"

	"github.com/iwvelando/loan-eir/pkg/cashflow"
	"github.com/iwvelando/loan-eir/pkg/datetime"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func TestCalculateInstallment(t *testing.T) {
	tests := []struct {
		name           string
		principal      string
		annualRate     string
		periodsPerYear float64
		periods        int
		expectedRange  []float64 // [min, max] expected range
	}{
		{
			name:           "Standard 30-year mortgage",
			principal:      "240000",
			annualRate:     "6.0",
			periodsPerYear: 12,
			periods:        360,
			expectedRange:  []float64{1400, 1500}, // Around $1439
		},
		{
			name:           "5-year car loan",
			principal:      "20000",
			annualRate:     "4.0",
			periodsPerYear: 12,
			periods:        60,
			expectedRange:  []float64{360, 380}, // Around $368
		},
		{
			name:           "Zero interest loan",
			principal:      "10000",
			annualRate:     "0",
			periodsPerYear: 12,
			periods:        60,
			expectedRange:  []float64{166.67, 166.67},
		},
		{
			name:           "Twelve percent nominal over a year",
			principal:      "100000",
			annualRate:     "12",
			periodsPerYear: 12,
			periods:        12,
			expectedRange:  []float64{8884.88, 8884.88},
		},
		{
			name:           "Weekly interest free",
			principal:      "5200",
			annualRate:     "0",
			periodsPerYear: 52,
			periods:        52,
			expectedRange:  []float64{100, 100},
		},
		{
			name:           "Tenure long enough to overflow compounding",
			principal:      "100000",
			annualRate:     "12",
			periodsPerYear: 12,
			periods:        100000,
			expectedRange:  []float64{1000, 1000}, // interest only
		},
		{
			name:           "No periods",
			principal:      "5000",
			annualRate:     "5",
			periodsPerYear: 12,
			periods:        0,
			expectedRange:  []float64{0, 0},
		},
		{
			name:           "No principal",
			principal:      "0",
			annualRate:     "5",
			periodsPerYear: 12,
			periods:        12,
			expectedRange:  []float64{0, 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CalculateInstallment(dec(tt.principal), dec(tt.annualRate), tt.periodsPerYear, tt.periods).InexactFloat64()

			if result < tt.expectedRange[0] || result > tt.expectedRange[1] {
				t.Errorf("CalculateInstallment() = %.2f, expected range [%.2f, %.2f]",
					result, tt.expectedRange[0], tt.expectedRange[1])
			}
		})
	}
}

func TestCalculateInterestPayment(t *testing.T) {
	tests := []struct {
		name               string
		remainingPrincipal string
		annualInterestRate string
		periodsPerYear     float64
		expected           string
	}{
		{
			name:               "Standard mortgage interest",
			remainingPrincipal: "200000",
			annualInterestRate: "6.0",
			periodsPerYear:     12,
			expected:           "1000", // 200000 * 0.06 / 12
		},
		{
			name:               "Car loan interest",
			remainingPrincipal: "15000",
			annualInterestRate: "4.5",
			periodsPerYear:     12,
			expected:           "56.25", // 15000 * 0.045 / 12
		},
		{
			name:               "Zero interest",
			remainingPrincipal: "10000",
			annualInterestRate: "0",
			periodsPerYear:     12,
			expected:           "0",
		},
		{
			name:               "Quarterly",
			remainingPrincipal: "5000",
			annualInterestRate: "24.0",
			periodsPerYear:     4,
			expected:           "300", // 5000 * 0.24 / 4
		},
		{
			name:               "Rounded to cents",
			remainingPrincipal: "174769.55",
			annualInterestRate: "4.5",
			periodsPerYear:     12,
			expected:           "655.39",
		},
		{
			name:               "No periods per year",
			remainingPrincipal: "100",
			annualInterestRate: "6.0",
			periodsPerYear:     0,
			expected:           "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CalculateInterestPayment(dec(tt.remainingPrincipal), dec(tt.annualInterestRate), tt.periodsPerYear)

			if !result.Equal(dec(tt.expected)) {
				t.Errorf("CalculateInterestPayment() = %s, expected %s", result, tt.expected)
			}
		})
	}
}

func TestScheduleGenerator_GenerateSchedule(t *testing.T) {
	generator := NewScheduleGenerator(zap.NewNop())
	start := datetime.MustParseDate("2025-01-15")

	schedule, err := generator.GenerateSchedule(ScheduleTerms{
		Principal:  dec("100000"),
		AnnualRate: dec("12"),
		Start:      start,
		Unit:       datetime.Months,
		Every:      1,
		Periods:    12,
	})
	if err != nil {
		t.Fatalf("GenerateSchedule() error = %v", err)
	}

	if len(schedule) != 13 {
		t.Fatalf("GenerateSchedule() produced %d rows, expected 13", len(schedule))
	}

	placeholder := schedule[0]
	if placeholder.Contributes() || !placeholder.DueDate.Equal(start) || !placeholder.PrincipalDue.Equal(dec("100000")) {
		t.Errorf("Row 0 should be the disbursement placeholder, got %+v", placeholder)
	}

	totalPrincipal := decimal.Zero
	for i, period := range schedule[1:] {
		if period.PeriodNumber != i+1 {
			t.Errorf("Row %d has period number %d", i+1, period.PeriodNumber)
		}
		if !period.TotalDue().Equal(dec("8884.88")) {
			t.Errorf("Period %d total due = %s, expected 8884.88", period.PeriodNumber, period.TotalDue())
		}
		expectedDue := start.AddDate(0, i+1, 0)
		if !period.DueDate.Equal(expectedDue) {
			t.Errorf("Period %d due %s, expected %s", period.PeriodNumber, period.DueDate, expectedDue)
		}
		totalPrincipal = totalPrincipal.Add(period.PrincipalDue)
	}

	if !totalPrincipal.Equal(dec("100000")) {
		t.Errorf("Principal repaid = %s, expected 100000", totalPrincipal)
	}
	if !schedule[1].InterestDue.Equal(dec("1000")) {
		t.Errorf("First interest = %s, expected 1000", schedule[1].InterestDue)
	}
	if !OutstandingAfter(schedule, 12).IsZero() {
		t.Errorf("OutstandingAfter(12) = %s, expected 0", OutstandingAfter(schedule, 12))
	}
}

func TestScheduleGenerator_InstallmentOverride(t *testing.T) {
	generator := NewScheduleGenerator(nil)

	schedule, err := generator.GenerateSchedule(ScheduleTerms{
		Principal:   dec("10000"),
		Installment: dec("1000"),
		Start:       datetime.MustParseDate("2025-01-01"),
		Unit:        datetime.Weeks,
		Every:       2,
		Periods:     10,
	})
	if err != nil {
		t.Fatalf("GenerateSchedule() error = %v", err)
	}

	for _, period := range schedule[1:] {
		if !period.PrincipalDue.Equal(dec("1000")) || !period.InterestDue.IsZero() {
			t.Errorf("Period %d = %s principal + %s interest, expected 1000 + 0",
				period.PeriodNumber, period.PrincipalDue, period.InterestDue)
		}
	}
	if due := schedule[10].DueDate; !due.Equal(datetime.MustParseDate("2025-05-21")) {
		t.Errorf("Final due date = %s, expected 2025-05-21", due.Format(datetime.DateLayout))
	}
}

func TestScheduleGenerator_RoundedDownInstallment(t *testing.T) {
	generator := NewScheduleGenerator(nil)

	// 10000 / 3 rounds to 3333.33, a cent short of the balance.
	schedule, err := generator.GenerateSchedule(ScheduleTerms{
		Principal:   dec("10000"),
		Installment: dec("3333.33"),
		Start:       datetime.MustParseDate("2025-01-01"),
		Unit:        datetime.Months,
		Every:       1,
		Periods:     3,
	})
	if err != nil {
		t.Fatalf("GenerateSchedule() error = %v", err)
	}

	totalPrincipal := decimal.Zero
	for _, period := range schedule[1:] {
		if period.InterestDue.IsNegative() {
			t.Errorf("Period %d has negative interest %s", period.PeriodNumber, period.InterestDue)
		}
		totalPrincipal = totalPrincipal.Add(period.PrincipalDue)
	}
	if !totalPrincipal.Equal(dec("10000")) {
		t.Errorf("Schedule repays %s, expected 10000", totalPrincipal)
	}
	if last := schedule[3].TotalDue(); !last.Equal(dec("3333.34")) {
		t.Errorf("Final installment = %s, expected 3333.34", last)
	}
}

func TestScheduleGenerator_InvalidTerms(t *testing.T) {
	generator := NewScheduleGenerator(nil)
	valid := ScheduleTerms{
		Principal: dec("1000"),
		Start:     datetime.MustParseDate("2025-01-01"),
		Periods:   3,
	}

	tests := []struct {
		name   string
		modify func(*ScheduleTerms)
	}{
		{"no periods", func(s *ScheduleTerms) { s.Periods = 0 }},
		{"zero principal", func(s *ScheduleTerms) { s.Principal = decimal.Zero }},
		{"negative rate", func(s *ScheduleTerms) { s.AnnualRate = dec("-1") }},
		{"no start", func(s *ScheduleTerms) { s.Start = time.Time{} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			terms := valid
			tt.modify(&terms)
			_, err := generator.GenerateSchedule(terms)
			if !errors.Is(err, ErrInvalidTerms) {
				t.Errorf("GenerateSchedule() error = %v, expected ErrInvalidTerms", err)
			}
		})
	}

	if _, err := generator.GenerateSchedule(valid); err != nil {
		t.Errorf("GenerateSchedule() with valid terms error = %v", err)
	}
}

func TestOutstandingAfter(t *testing.T) {
	schedule := []cashflow.RepaymentPeriod{
		{PeriodNumber: 0, PrincipalDue: dec("900")},
		{PeriodNumber: 1, PrincipalDue: dec("300")},
		{PeriodNumber: 2, PrincipalDue: dec("300")},
		{PeriodNumber: 3, PrincipalDue: dec("300")},
	}

	if got := OutstandingAfter(schedule, 0); !got.Equal(dec("900")) {
		t.Errorf("OutstandingAfter(0) = %s, expected 900", got)
	}
	if got := OutstandingAfter(schedule, 2); !got.Equal(dec("300")) {
		t.Errorf("OutstandingAfter(2) = %s, expected 300", got)
	}
}

func TestNewScheduleGenerator(t *testing.T) {
	logger := zap.NewNop()
	generator := NewScheduleGenerator(logger)

	if generator == nil {
		t.Error("NewScheduleGenerator() returned nil")
		return
	}

	if generator.logger != logger {
		t.Error("NewScheduleGenerator() logger not set correctly")
	}

	if NewScheduleGenerator(nil).logger == nil {
		t.Error("NewScheduleGenerator(nil) should fall back to a no-op logger")
	}
}
