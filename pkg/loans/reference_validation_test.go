package loans

import (
	"fmt"
	"math"
	"testing"

	"github.com/iwvelando/loan-eir/pkg/datetime"
	"go.uber.org/zap"
)

// ReferencePayment represents a single payment from the reference schedule
type ReferencePayment struct {
	Month            int
	Payment          float64
	PrincipalPayment float64
	Interest         float64
	LoanBalance      float64
}

// getReferenceSchedule returns the authoritative amortization schedule data
// Based on: Loan amount $175,000, Interest rate 4.5%, Term 360 months
// Calculator: https://www.fidelitygroup.com/amortizing-loan-calculator
func getReferenceSchedule() []ReferencePayment {
	return []ReferencePayment{
		{1, 886.70, 230.45, 656.25, 174769.55},
		{2, 886.70, 231.31, 655.39, 174538.24},
		{3, 886.70, 232.18, 654.52, 174306.06},
		{4, 886.70, 233.05, 653.65, 174073.00},
		{5, 886.70, 233.93, 652.77, 173839.08},
		{6, 886.70, 234.80, 651.90, 173604.28},
		{7, 886.70, 235.68, 651.02, 173368.59},
		{8, 886.70, 236.57, 650.13, 173132.03},
		{9, 886.70, 237.45, 649.25, 172894.57},
		{10, 886.70, 238.34, 648.35, 172656.23},
		{11, 886.70, 239.24, 647.46, 172416.99},
		{12, 886.70, 240.14, 646.56, 172176.85},
		// Adding key milestone months for validation
		{24, 886.70, 251.17, 635.53, 169224.01},
		{36, 886.70, 262.71, 623.99, 166135.52},
		{60, 886.70, 287.40, 599.30, 159526.36},
		{120, 886.70, 359.76, 526.94, 140156.51},
		{180, 886.70, 450.35, 436.35, 115909.42},
		{240, 886.70, 563.75, 322.95, 85557.02},
		{300, 886.70, 705.70, 181.00, 47562.00},
		{359, 886.70, 880.09, 6.61, 883.39},
		{360, 886.70, 883.39, 3.31, 0.00},
	}
}

func TestScheduleAgainstReferenceSchedule(t *testing.T) {
	generator := NewScheduleGenerator(zap.NewNop())

	schedule, err := generator.GenerateSchedule(ScheduleTerms{
		Principal:  dec("175000"),
		AnnualRate: dec("4.5"),
		Start:      datetime.MustParseDate("2025-01-01"),
		Unit:       datetime.Months,
		Every:      1,
		Periods:    360,
	})
	if err != nil {
		t.Fatalf("GenerateSchedule() error = %v", err)
	}

	referenceData := getReferenceSchedule()
	tolerance := 0.75 // Per-period rounding drifts a few cents by the final payment

	for _, ref := range referenceData {
		if ref.Month >= len(schedule) {
			t.Errorf("Month %d not found in generated schedule", ref.Month)
			continue
		}
		period := schedule[ref.Month]

		t.Run(fmt.Sprintf("Month_%d", ref.Month), func(t *testing.T) {
			payment := period.TotalDue().InexactFloat64()
			principal := period.PrincipalDue.InexactFloat64()
			interest := period.InterestDue.InexactFloat64()
			balance := OutstandingAfter(schedule, ref.Month).InexactFloat64()

			// Test total payment amount
			if math.Abs(payment-ref.Payment) > 0.001 {
				t.Errorf("Payment amount mismatch: got %.2f, expected %.2f", payment, ref.Payment)
			}

			// Test principal payment
			if math.Abs(principal-ref.PrincipalPayment) > tolerance {
				t.Errorf("Principal payment mismatch: got %.2f, expected %.2f (diff: %.2f)",
					principal, ref.PrincipalPayment, math.Abs(principal-ref.PrincipalPayment))
			}

			// Test interest payment
			if math.Abs(interest-ref.Interest) > tolerance {
				t.Errorf("Interest payment mismatch: got %.2f, expected %.2f (diff: %.2f)",
					interest, ref.Interest, math.Abs(interest-ref.Interest))
			}

			// Test remaining balance
			if math.Abs(balance-ref.LoanBalance) > tolerance {
				t.Errorf("Remaining balance mismatch: got %.2f, expected %.2f (diff: %.2f)",
					balance, ref.LoanBalance, math.Abs(balance-ref.LoanBalance))
			}
		})
	}
}

func TestInstallmentAgainstReference(t *testing.T) {
	installment := CalculateInstallment(dec("175000"), dec("4.5"), 12, 360)

	if !installment.Equal(dec("886.70")) {
		t.Errorf("CalculateInstallment() = %s, expected 886.70", installment)
	}
}

func TestInterestCalculationAgainstReference(t *testing.T) {
	// Test based on a 30-year $300,000 mortgage at 6% APR
	annualRate := dec("6.0")

	// Reference values calculated using standard amortization formulas
	// These are the expected remaining principal balances at specific months
	referenceValues := map[int]struct {
		remainingPrincipal string
		interestPayment    float64
	}{
		1:   {remainingPrincipal: "298501.31", interestPayment: 1500.00},
		12:  {remainingPrincipal: "295188.16", interestPayment: 1475.94},
		24:  {remainingPrincipal: "289042.25", interestPayment: 1445.21},
		60:  {remainingPrincipal: "270762.08", interestPayment: 1353.81},
		120: {remainingPrincipal: "220446.41", interestPayment: 1102.23},
		180: {remainingPrincipal: "151235.80", interestPayment: 756.18},
		240: {remainingPrincipal: "60708.53", interestPayment: 303.54},
	}

	tolerance := 10.0 // Allow $10 tolerance for rounding differences

	for month, expected := range referenceValues {
		calculatedInterest := CalculateInterestPayment(dec(expected.remainingPrincipal), annualRate, 12).InexactFloat64()

		diff := math.Abs(calculatedInterest - expected.interestPayment)
		if diff > tolerance {
			t.Errorf("CalculateInterestPayment() for month %d = %.2f, expected %.2f (diff: %.2f)",
				month, calculatedInterest, expected.interestPayment, diff)
		}
	}
}

func TestFullScheduleConsistency(t *testing.T) {
	generator := NewScheduleGenerator(zap.NewNop())

	schedule, err := generator.GenerateSchedule(ScheduleTerms{
		Principal:  dec("175000"),
		AnnualRate: dec("4.5"),
		Start:      datetime.MustParseDate("2025-01-01"),
		Unit:       datetime.Months,
		Periods:    360,
	})
	if err != nil {
		t.Fatalf("GenerateSchedule() error = %v", err)
	}

	// Verify schedule has the placeholder plus the expected number of payments
	if len(schedule) != 361 {
		t.Errorf("Schedule should have 361 rows, got %d", len(schedule))
	}

	// Verify final balance is exactly zero
	if final := OutstandingAfter(schedule, 360); !final.IsZero() {
		t.Errorf("Final remaining principal should be zero, got %s", final)
	}

	// Verify final payment falls due thirty years out
	if due := schedule[360].DueDate; !due.Equal(datetime.MustParseDate("2055-01-01")) {
		t.Errorf("Final payment due %s, expected 2055-01-01", due.Format(datetime.DateLayout))
	}

	// Verify principal decreases monotonically
	previousBalance := 175000.0
	for month := 1; month <= 360; month++ {
		balance := OutstandingAfter(schedule, month).InexactFloat64()
		if balance >= previousBalance {
			t.Errorf("Remaining principal should decrease each month: month %d balance %.2f >= previous %.2f",
				month, balance, previousBalance)
			break
		}
		previousBalance = balance
	}
}

func TestReferenceScheduleDataIntegrity(t *testing.T) {
	referenceData := getReferenceSchedule()

	// Verify reference data makes sense
	for i, payment := range referenceData {
		t.Run(fmt.Sprintf("RefData_Month_%d", payment.Month), func(t *testing.T) {
			// Principal + Interest should equal Payment (within small tolerance)
			calculatedPayment := payment.PrincipalPayment + payment.Interest
			if math.Abs(calculatedPayment-payment.Payment) > 0.01 {
				t.Errorf("Reference data inconsistent: Principal(%.2f) + Interest(%.2f) = %.2f, but Payment = %.2f",
					payment.PrincipalPayment, payment.Interest, calculatedPayment, payment.Payment)
			}

			// Loan balance should decrease over time
			if i > 0 && payment.LoanBalance >= referenceData[i-1].LoanBalance {
				t.Errorf("Reference loan balance should decrease: Month %d balance %.2f >= Month %d balance %.2f",
					payment.Month, payment.LoanBalance, referenceData[i-1].Month, referenceData[i-1].LoanBalance)
			}
		})
	}
}
