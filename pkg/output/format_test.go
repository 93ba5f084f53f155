package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"github.com/iwvelando/loan-eir/pkg/cashflow"
	"github.com/iwvelando/loan-eir/pkg/datetime"
	"github.com/iwvelando/loan-eir/pkg/eir"
	"github.com/shopspring/decimal"
)

func sampleResults() []eir.Result {
	return []eir.Result{
		{
			LoanID:                "loan-a",
			EffectiveInterestRate: decimal.RequireFromString("12.6825"),
			Method:                eir.MethodIRR,
			Provenance:            eir.ProvenanceAuthoritative,
			Status:                eir.StatusCompleted,
			EMIAmount:             decimal.RequireFromString("8884.88"),
			EMISource:             eir.EMIFromSchedule,
			PrincipalAmount:       decimal.NewFromInt(100000),
			NetDisbursementAmount: decimal.NewFromInt(100000),
			NetDisbursementSource: eir.NetFromTranches,
			TenureInPeriods:       12,
			TenureSource:          eir.TenureFromPeriods,
			CurrencyCode:          "INR",
			Solver:                eir.SolverSummary{Strategy: "newton", Iterations: 4, DayCount: "ACT/365"},
			CashFlows: []cashflow.Entry{
				{Date: datetime.MustParseDate("2024-01-01"), Amount: decimal.NewFromInt(-100000)},
				{Date: datetime.MustParseDate("2024-02-01"), Amount: decimal.RequireFromString("8884.88")},
			},
		},
		{
			LoanID:                "loan-b",
			EffectiveInterestRate: decimal.Zero,
			Status:                eir.StatusFailed,
			Reason:                "insufficient cash flow data",
			Warnings: []eir.Warning{
				{Code: eir.WarningFallbackMethod, Message: "no repayment schedule"},
				{Code: eir.WarningApproximateEMI, Message: "flat"},
			},
		},
	}
}

func TestPrettyFormat(t *testing.T) {
	var buf bytes.Buffer
	PrettyFormat(&buf, sampleResults())
	output := buf.String()

	expected := []string{
		"--- Results for loan loan-a ---",
		"Effective rate        | 12.6825%",
		"Principal             | INR 100,000.00",
		"EMI                   | INR 8,884.88 (SCHEDULE_INSTALLMENT)",
		"Tenure                | 12 periods (CONTRIBUTING_PERIODS)",
		"Solver                | newton, 4 iterations, ACT/365",
		"2024-01-01 | -100,000.00",
		"2024-02-01 | 8,884.88",
		"--- Results for loan loan-b ---",
		"Reason                | insufficient cash flow data",
		"Warning               | APPROXIMATE_FALLBACK_METHOD: no repayment schedule",
	}
	for _, fragment := range expected {
		if !strings.Contains(output, fragment) {
			t.Errorf("PrettyFormat output missing %q\n%s", fragment, output)
		}
	}

	if strings.Count(output, "Reason") != 1 {
		t.Errorf("PrettyFormat should only print a reason for failed results")
	}
}

func TestPrettyFormatEmptyResults(t *testing.T) {
	var buf bytes.Buffer
	PrettyFormat(&buf, nil)
	if buf.Len() != 0 {
		t.Errorf("PrettyFormat with no results should print nothing, got %q", buf.String())
	}
}

func TestPrettyFormatUnnamedLoan(t *testing.T) {
	var buf bytes.Buffer
	PrettyFormat(&buf, []eir.Result{{Status: eir.StatusCompleted}})
	if !strings.Contains(buf.String(), "--- Results for loan (unnamed) ---") {
		t.Errorf("PrettyFormat should label unnamed loans, got %q", buf.String())
	}
}

func TestCsvFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := CsvFormat(&buf, sampleResults()); err != nil {
		t.Fatalf("CsvFormat() error = %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("CsvFormat() produced unreadable CSV: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("CsvFormat() produced %d records, expected header plus 2 rows", len(records))
	}

	header := records[0]
	if header[0] != "loan id" || header[2] != "eir (%)" {
		t.Errorf("unexpected CSV header %v", header)
	}
	for _, record := range records {
		if len(record) != len(header) {
			t.Errorf("record %v has %d fields, expected %d", record, len(record), len(header))
		}
	}

	first := records[1]
	if first[0] != "loan-a" || first[1] != "COMPLETED" || first[2] != "12.6825" {
		t.Errorf("unexpected first row %v", first)
	}
	if first[8] != "8884.88" {
		t.Errorf("EMI column = %s, expected 8884.88", first[8])
	}

	second := records[2]
	if second[13] != "APPROXIMATE_FALLBACK_METHOD,APPROXIMATE_EMI" {
		t.Errorf("warnings column = %q", second[13])
	}
	if second[14] != "insufficient cash flow data" {
		t.Errorf("reason column = %q", second[14])
	}
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := JSONFormat(&buf, sampleResults()); err != nil {
		t.Fatalf("JSONFormat() error = %v", err)
	}

	var decoded []map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("JSONFormat() produced invalid JSON: %v", err)
	}
	if len(decoded) != 2 {
		t.Fatalf("decoded %d results, expected 2", len(decoded))
	}
	if decoded[0]["effectiveInterestRate"] != "12.6825" {
		t.Errorf("effectiveInterestRate = %v", decoded[0]["effectiveInterestRate"])
	}
	flows, ok := decoded[0]["cashFlows"].([]interface{})
	if !ok || len(flows) != 2 {
		t.Fatalf("cashFlows = %v", decoded[0]["cashFlows"])
	}
	if flow := flows[0].(map[string]interface{}); flow["amount"] != "-100000" {
		t.Errorf("first cash flow amount = %v", flow["amount"])
	}

	buf.Reset()
	if err := JSONFormat(&buf, nil); err != nil {
		t.Fatalf("JSONFormat(nil) error = %v", err)
	}
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Errorf("JSONFormat(nil) = %q, expected []", buf.String())
	}
}

func TestWrite(t *testing.T) {
	for _, format := range []string{"pretty", "csv", "json"} {
		var buf bytes.Buffer
		if err := Write(&buf, format, sampleResults()); err != nil {
			t.Errorf("Write(%s) error = %v", format, err)
		}
		if !strings.Contains(buf.String(), "loan-a") {
			t.Errorf("Write(%s) output missing loan id", format)
		}
	}

	if err := Write(&bytes.Buffer{}, "xml", nil); err == nil {
		t.Errorf("Write(xml) expected error")
	}
}
