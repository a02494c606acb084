package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"qb-reconciliation-service/internal/balance"
	"qb-reconciliation-service/internal/dedup"
	"qb-reconciliation-service/internal/importer"
	"qb-reconciliation-service/internal/linker"
	"qb-reconciliation-service/internal/models"
)

func consoleGenerator(t *testing.T) *Generator {
	t.Helper()
	gen, err := NewGenerator(FormatConsole, true)
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}
	return gen
}

func TestNewGeneratorRejectsUnknownFormat(t *testing.T) {
	if _, err := NewGenerator("yaml", false); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestImportSummaryConsole(t *testing.T) {
	gen := consoleGenerator(t)
	var buf bytes.Buffer

	summary := &importer.Summary{
		BatchID:      "batch-1",
		Transactions: 42,
		Linked:       &linker.Result{LinkedViaPrimary: 40, LinkedViaCounter: 1, Unresolved: 1},
		Warnings:     []string{"invalid date at row 7 (date='garbage')"},
	}
	if err := gen.ImportSummary(&buf, summary); err != nil {
		t.Fatalf("ImportSummary: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"IMPORT SUMMARY", "batch-1", "42", "40 primary", "WARNINGS", "row 7"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestImportSummaryJSON(t *testing.T) {
	gen, err := NewGenerator(FormatJSON, true)
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}
	var buf bytes.Buffer

	summary := &importer.Summary{BatchID: "batch-1", Transactions: 3}
	if err := gen.ImportSummary(&buf, summary); err != nil {
		t.Fatalf("ImportSummary: %v", err)
	}

	var decoded importer.Summary
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.BatchID != "batch-1" || decoded.Transactions != 3 {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestImportSummaryCapsWarnings(t *testing.T) {
	gen := consoleGenerator(t)
	var buf bytes.Buffer

	summary := &importer.Summary{BatchID: "b", Transactions: 1}
	for i := 0; i < 14; i++ {
		summary.Warnings = append(summary.Warnings, "warning")
	}
	if err := gen.ImportSummary(&buf, summary); err != nil {
		t.Fatalf("ImportSummary: %v", err)
	}
	if !strings.Contains(buf.String(), "and 4 more") {
		t.Errorf("overflow note missing:\n%s", buf.String())
	}
}

func TestDuplicateGroupsMarksKeeper(t *testing.T) {
	gen := consoleGenerator(t)
	var buf bytes.Buffer

	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	keep := &models.Transaction{ID: "tx-keep", Date: day, Amount: decimal.NewFromInt(-10), Description: "Coffee"}
	drop := &models.Transaction{ID: "tx-drop", Date: day, Amount: decimal.NewFromInt(-10), Description: "Coffee"}
	groups := []*dedup.Group{{
		Transactions: []*models.Transaction{keep, drop},
		Keep:         keep,
	}}

	if err := gen.DuplicateGroups(&buf, groups); err != nil {
		t.Fatalf("DuplicateGroups: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "keep") || !strings.Contains(out, "delete") {
		t.Errorf("keeper markers missing:\n%s", out)
	}
	if !strings.Contains(out, "tx-keep") || !strings.Contains(out, "tx-drop") {
		t.Errorf("transaction ids missing:\n%s", out)
	}
}

func TestDebtViewConsole(t *testing.T) {
	gen := consoleGenerator(t)
	var buf bytes.Buffer

	rate := decimal.NewFromInt(24)
	months := 18
	payoff := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	view := &balance.DebtView{
		Strategy:    balance.StrategyAvalanche,
		TotalDebt:   decimal.NewFromInt(4000),
		WeightedAPR: decimal.NewFromInt(24),
		Entries: []*balance.DebtEntry{
			{
				Account:        &models.Account{Name: "Visa", InterestRate: &rate},
				Balance:        decimal.NewFromInt(3000),
				MonthsToPayoff: &months,
				PayoffDate:     &payoff,
			},
			{
				Account:     &models.Account{Name: "Underwater Card"},
				Balance:     decimal.NewFromInt(1000),
				NeverPayoff: true,
			},
		},
	}

	if err := gen.DebtView(&buf, view); err != nil {
		t.Fatalf("DebtView: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"avalanche", "4000.00", "Visa", "18 months", "never at current payment"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestHoldingsConsole(t *testing.T) {
	gen := consoleGenerator(t)
	var buf bytes.Buffer

	holdings := []models.Holding{
		{Symbol: "VTI", Quantity: decimal.RequireFromString("10.5"), Price: decimal.NewFromInt(200), MarketValue: decimal.NewFromInt(2100)},
		{Symbol: "BND", Quantity: decimal.NewFromInt(5), Price: decimal.NewFromInt(80), MarketValue: decimal.NewFromInt(400)},
	}
	if err := gen.Holdings(&buf, holdings); err != nil {
		t.Fatalf("Holdings: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"VTI", "10.5", "2100.00", "BND", "TOTAL", "2500.00"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestLedgerConsole(t *testing.T) {
	gen := consoleGenerator(t)
	var buf bytes.Buffer

	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	rows := []*balance.LedgerRow{
		{
			Transaction: &models.Transaction{Date: day, Amount: decimal.NewFromInt(-50), Description: "Coffee"},
			Balance:     decimal.NewFromInt(950),
		},
	}
	if err := gen.Ledger(&buf, rows); err != nil {
		t.Fatalf("Ledger: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"2024-01-15", "-50.00", "950.00", "Coffee"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
