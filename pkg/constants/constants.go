// Package constants provides shared constants for the loan-eir application.
package constants

import "time"

// DateLayout is the format expected in loan files and is also the output
// date format.
const DateLayout = "2006-01-02"

// Financial constants
const (
	// MonthsPerYear is the number of months in a year
	MonthsPerYear = 12

	// WeeksPerYear is the number of whole weeks in a year
	WeeksPerYear = 52

	// DaysPerYear is the denominator of the default ACT/365 day count
	DaysPerYear = 365

	// DecimalPrecision is the precision for currency rounding (2 decimal places)
	DecimalPrecision = 100

	// CurrencyPlaces is the number of decimal places kept on monetary results
	CurrencyPlaces = 2

	// RatePlaces is the number of decimal places kept on the reported
	// percentage rate
	RatePlaces = 4

	// PercentageMultiplier is used for percentage conversions
	PercentageMultiplier = 100.0

	// CurrencyTolerance is the tolerance for currency comparisons (1 cent)
	CurrencyTolerance = 0.01
)

// Solver defaults
const (
	// DefaultToleranceFactor scales the total absolute cash flow to get the
	// NPV tolerance.
	DefaultToleranceFactor = 1e-7

	// DefaultMaxIterations bounds the Newton-Raphson phase.
	DefaultMaxIterations = 100

	// DefaultBisectionIterations bounds the bisection phase.
	DefaultBisectionIterations = 200

	// DefaultMinRate is the lower clamp for candidate rates; rates at or below
	// -1 make the discount factor undefined.
	DefaultMinRate = -0.99

	// DefaultMaxRate is the upper clamp for candidate rates (1000%).
	DefaultMaxRate = 10.0

	// DerivativeThreshold is the smallest derivative magnitude Newton will
	// divide by.
	DerivativeThreshold = 1e-12
)

// DefaultDayCount is the name of the default day-count convention.
const DefaultDayCount = "ACT/365"

// SyntheticAnchorDate anchors summary-only schedules that carry no
// disbursement date.
var SyntheticAnchorDate = time.Date(2001, time.January, 1, 0, 0, 0, 0, time.UTC)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"

	// OutputFormatJSON is the JSON output format
	OutputFormatJSON = "json"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default engine configuration file name
	DefaultConfigFile = "config.yaml"

	// DefaultLoanFile is the default loan input file name
	DefaultLoanFile = "loan.yaml"

	// DefaultServerConfigFile is the default server configuration file name
	DefaultServerConfigFile = "server-config.yaml"

	// EnvPrefix is the prefix for environment overrides of the engine config
	EnvPrefix = "LOANEIR"
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address
	DefaultServerAddress = ":8080"

	// DefaultMaxRequestSizeBytes is the default maximum request body size (256 KB)
	DefaultMaxRequestSizeBytes int64 = 256 * 1024

	// DefaultBatchConcurrency bounds concurrent calculations in a batch request
	DefaultBatchConcurrency = 8

	// MaxBatchSize bounds the number of loans in a batch request
	MaxBatchSize = 500
)
