// Package output provides utilities for formatting and displaying EIR results.
package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/iwvelando/loan-eir/pkg/constants"
	"github.com/iwvelando/loan-eir/pkg/datetime"
	"github.com/iwvelando/loan-eir/pkg/eir"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Write renders results in the named format.
func Write(w io.Writer, format string, results []eir.Result) error {
	switch format {
	case constants.OutputFormatPretty:
		PrettyFormat(w, results)
		return nil
	case constants.OutputFormatCSV:
		return CsvFormat(w, results)
	case constants.OutputFormatJSON:
		return JSONFormat(w, results)
	}
	return fmt.Errorf("unsupported output format %s", format)
}

// PrettyFormat outputs a human-readable rather than machine-readable report.
func PrettyFormat(w io.Writer, results []eir.Result) {
	p := message.NewPrinter(language.English)
	for i, result := range results {
		_, _ = fmt.Fprintf(w, "--- Results for loan %s ---\n", displayID(result))
		_, _ = fmt.Fprintf(w, "Status                | %s\n", result.Status)
		if !result.Completed() {
			_, _ = fmt.Fprintf(w, "Reason                | %s\n", result.Reason)
		}
		_, _ = fmt.Fprintf(w, "Effective rate        | %s%%\n", result.EffectiveInterestRate.StringFixed(constants.RatePlaces))
		_, _ = fmt.Fprintf(w, "Method                | %s (%s)\n", result.Method, result.Provenance)
		_, _ = p.Fprintf(w, "Principal             | %s%.2f\n", currencyPrefix(result), result.PrincipalAmount.InexactFloat64())
		_, _ = p.Fprintf(w, "Net disbursement      | %s%.2f (%s)\n", currencyPrefix(result), result.NetDisbursementAmount.InexactFloat64(), result.NetDisbursementSource)
		_, _ = p.Fprintf(w, "EMI                   | %s%.2f (%s)\n", currencyPrefix(result), result.EMIAmount.InexactFloat64(), result.EMISource)
		_, _ = fmt.Fprintf(w, "Tenure                | %d periods (%s)\n", result.TenureInPeriods, result.TenureSource)
		if result.Solver.Strategy != "" {
			_, _ = fmt.Fprintf(w, "Solver                | %s, %d iterations, %s\n", result.Solver.Strategy, result.Solver.Iterations, result.Solver.DayCount)
		}
		for _, warning := range result.Warnings {
			_, _ = fmt.Fprintf(w, "Warning               | %s: %s\n", warning.Code, warning.Message)
		}

		if len(result.CashFlows) > 0 {
			_, _ = fmt.Fprintf(w, "\nDate       | Amount\n")
			_, _ = fmt.Fprintf(w, "____       | ______\n")
			for _, entry := range result.CashFlows {
				_, _ = p.Fprintf(w, "%s | %.2f\n", datetime.FormatDate(entry.Date), entry.Amount.InexactFloat64())
			}
		}
		if i < len(results)-1 {
			_, _ = fmt.Fprintf(w, "\n")
		}
	}
}

// CsvFormat outputs one row per result in comma-separated value format.
func CsvFormat(w io.Writer, results []eir.Result) error {
	writer := csv.NewWriter(w)
	header := []string{
		"loan id", "status", "eir (%)", "method", "provenance",
		"principal", "net disbursement", "net disbursement source",
		"emi", "emi source", "tenure", "tenure source",
		"currency", "warnings", "reason",
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, result := range results {
		codes := make([]string, 0, len(result.Warnings))
		for _, warning := range result.Warnings {
			codes = append(codes, string(warning.Code))
		}
		row := []string{
			result.LoanID,
			string(result.Status),
			result.EffectiveInterestRate.StringFixed(constants.RatePlaces),
			string(result.Method),
			string(result.Provenance),
			result.PrincipalAmount.StringFixed(constants.CurrencyPlaces),
			result.NetDisbursementAmount.StringFixed(constants.CurrencyPlaces),
			string(result.NetDisbursementSource),
			result.EMIAmount.StringFixed(constants.CurrencyPlaces),
			string(result.EMISource),
			fmt.Sprintf("%d", result.TenureInPeriods),
			string(result.TenureSource),
			result.CurrencyCode,
			strings.Join(codes, ","),
			result.Reason,
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// JSONFormat outputs the results as an indented JSON array.
func JSONFormat(w io.Writer, results []eir.Result) error {
	if results == nil {
		results = []eir.Result{}
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(results)
}

func displayID(result eir.Result) string {
	if result.LoanID == "" {
		return "(unnamed)"
	}
	return result.LoanID
}

func currencyPrefix(result eir.Result) string {
	if result.CurrencyCode == "" {
		return ""
	}
	return result.CurrencyCode + " "
}
