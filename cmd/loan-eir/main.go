package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/iwvelando/loan-eir/internal/config"
	"github.com/iwvelando/loan-eir/internal/logging"
	"github.com/iwvelando/loan-eir/pkg/constants"
	"github.com/iwvelando/loan-eir/pkg/eir"
	"github.com/iwvelando/loan-eir/pkg/output"
	"github.com/iwvelando/loan-eir/pkg/validation"
	"go.uber.org/zap"
)

// options are the command line overrides applied on top of the config file.
type options struct {
	outputFormat string
	dayCount     string
	noCashFlows  bool
}

// run computes and prints the EIR of every configured loan. It returns the
// number of failed results.
func run(logger *zap.Logger, conf *config.Configuration, opts options, w io.Writer) (int, error) {
	if opts.dayCount != "" {
		conf.Engine.DayCount = opts.dayCount
	}
	if opts.noCashFlows {
		conf.Engine.IncludeCashFlows = false
	}

	// CLI override takes precedence over config
	outputFormat := conf.Output.Format
	if opts.outputFormat != "" {
		outputFormat = opts.outputFormat
	}
	if outputFormat == "" {
		outputFormat = constants.OutputFormatPretty
	}
	if err := validation.ValidateOutputFormat(outputFormat); err != nil {
		return 0, err
	}

	warnings, err := conf.ValidateConfiguration()
	if err != nil {
		return 0, fmt.Errorf("invalid configuration: %w", err)
	}
	for _, warning := range warnings {
		logger.Warn("Configuration warning: "+warning,
			zap.String("op", "main"),
		)
	}

	loans, err := conf.LoanData()
	if err != nil {
		return 0, fmt.Errorf("failed to read loans: %w", err)
	}
	settings, err := conf.Settings()
	if err != nil {
		return 0, err
	}

	calculator := eir.NewCalculator(logger, settings)
	results := make([]eir.Result, 0, len(loans))
	failed := 0
	for _, loan := range loans {
		for _, warning := range validation.ValidateLoan(loan) {
			logger.Warn("Loan warning: "+warning,
				zap.String("op", "main"),
			)
		}

		result := calculator.Calculate(loan)
		if !result.Completed() {
			failed++
		}
		if !conf.Engine.IncludeCashFlows {
			result.CashFlows = nil
		}
		results = append(results, result)
	}

	if err := output.Write(w, outputFormat, results); err != nil {
		return failed, fmt.Errorf("failed to write output: %w", err)
	}
	return failed, nil
}

func main() {
	// Process command line flags first to get config location
	configLocation := flag.String("config", constants.DefaultConfigFile, "path to configuration file holding engine settings and loans")
	outputFormatFlag := flag.String("output-format", "", "type of output override: pretty, csv, json")
	logLevel := flag.String("log-level", "", "log level override (debug, info, warn, error)")
	dayCount := flag.String("day-count", "", "day count override (ACT/365, ACT/360, ACT/365.25, 30/360, 30E/360)")
	noCashFlows := flag.Bool("no-cash-flows", false, "omit cash flows from the output")
	flag.Parse()

	conf, err := config.LoadConfiguration(*configLocation)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load configuration at %s\", \"error\": \"%v\"}\n", *configLocation, err)
		os.Exit(1)
	}

	logger, err := logging.New(conf.Logging, *logLevel)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to initialize logger\", \"error\": \"%v\"}\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	failed, err := run(logger, conf, options{
		outputFormat: *outputFormatFlag,
		dayCount:     *dayCount,
		noCashFlows:  *noCashFlows,
	}, os.Stdout)
	if err != nil {
		logger.Fatal("failed to compute effective interest rates",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}
	if failed > 0 {
		logger.Warn("some loans could not be calculated",
			zap.String("op", "main"),
			zap.Int("failed", failed),
		)
	}
}
