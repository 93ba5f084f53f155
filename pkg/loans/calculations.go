// Package loans provides installment and amortization schedule utilities.
package loans

import (
	"math"

	"github.com/iwvelando/loan-eir/pkg/constants"
	"github.com/shopspring/decimal"
)

var percentDivisor = decimal.NewFromFloat(constants.PercentageMultiplier)

// PeriodicRate converts an annual nominal rate in percent to the rate applied
// per repayment period.
func PeriodicRate(annualRatePercent decimal.Decimal, periodsPerYear float64) decimal.Decimal {
	if periodsPerYear <= 0 {
		return decimal.Zero
	}
	return annualRatePercent.Div(percentDivisor).Div(decimal.NewFromFloat(periodsPerYear))
}

// CalculateInstallment calculates the equal installment for a loan using the
// standard amortization formula, rounded to currency precision. A zero rate
// divides principal evenly over the periods.
func CalculateInstallment(principal, annualRatePercent decimal.Decimal, periodsPerYear float64, periods int) decimal.Decimal {
	if periods <= 0 || !principal.IsPositive() {
		return decimal.Zero
	}
	if annualRatePercent.IsZero() {
		// For zero interest, simply divide the principal by term
		return principal.Div(decimal.NewFromInt(int64(periods))).Round(constants.CurrencyPlaces)
	}

	// (1+r)^-n underflows to 0 for long tenures, leaving interest-only.
	rate := PeriodicRate(annualRatePercent, periodsPerYear).InexactFloat64()
	discountFactor := 1 - math.Pow(1+rate, -float64(periods))
	installment := principal.InexactFloat64() * rate / discountFactor
	return decimal.NewFromFloat(installment).Round(constants.CurrencyPlaces)
}

// CalculateInterestPayment calculates the interest portion of a payment on
// the remaining principal, rounded to currency precision.
func CalculateInterestPayment(remainingPrincipal, annualRatePercent decimal.Decimal, periodsPerYear float64) decimal.Decimal {
	return remainingPrincipal.Mul(PeriodicRate(annualRatePercent, periodsPerYear)).Round(constants.CurrencyPlaces)
}
