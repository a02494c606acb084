// Package report renders pipeline results to the console or as JSON.
package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/shopspring/decimal"

	"qb-reconciliation-service/internal/balance"
	"qb-reconciliation-service/internal/dedup"
	"qb-reconciliation-service/internal/importer"
	"qb-reconciliation-service/internal/mapping"
	"qb-reconciliation-service/internal/models"
	"qb-reconciliation-service/pkg/errors"
)

// OutputFormat determines how results are rendered.
type OutputFormat string

const (
	FormatConsole OutputFormat = "console"
	FormatJSON    OutputFormat = "json"
)

// IsValid reports whether the format is supported.
func (f OutputFormat) IsValid() bool {
	return f == FormatConsole || f == FormatJSON
}

// maxWarnings caps warning display. The underlying warning set is
// never truncated, only what is printed.
const maxWarnings = 10

// Generator renders results in a configured format.
type Generator struct {
	format  OutputFormat
	noColor bool
}

// NewGenerator creates a report generator for the given format.
func NewGenerator(format OutputFormat, noColor bool) (*Generator, error) {
	if !format.IsValid() {
		return nil, errors.ConfigurationError("output_format", format, nil)
	}
	return &Generator{format: format, noColor: noColor}, nil
}

func (g *Generator) header(w io.Writer, title string) {
	if g.noColor {
		fmt.Fprintf(w, "=== %s ===\n", title)
		return
	}
	color.New(color.Bold).Fprintf(w, "=== %s ===\n", title)
}

func (g *Generator) amount(d decimal.Decimal) string {
	s := d.StringFixed(2)
	if g.noColor {
		return s
	}
	if d.IsNegative() {
		return color.RedString(s)
	}
	return color.GreenString(s)
}

func (g *Generator) writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// ImportSummary renders the outcome of a committed import.
func (g *Generator) ImportSummary(w io.Writer, summary *importer.Summary) error {
	if g.format == FormatJSON {
		return g.writeJSON(w, summary)
	}

	g.header(w, "IMPORT SUMMARY")
	fmt.Fprintf(w, "Batch:        %s\n", summary.BatchID)
	fmt.Fprintf(w, "Transactions: %d\n", summary.Transactions)
	if summary.Skipped > 0 {
		fmt.Fprintf(w, "Skipped:      %d (ignored accounts)\n", summary.Skipped)
	}
	if summary.Linked != nil {
		fmt.Fprintf(w, "Linked:       %d primary, %d counter\n",
			summary.Linked.LinkedViaPrimary, summary.Linked.LinkedViaCounter)
		fmt.Fprintf(w, "Unresolved:   %d\n", summary.Linked.Unresolved)
	}
	g.printWarnings(w, summary.Warnings)
	return nil
}

// UnmappedNames renders the names an import needs decisions for.
func (g *Generator) UnmappedNames(w io.Writer, unmapped []mapping.UnmappedName) error {
	if g.format == FormatJSON {
		return g.writeJSON(w, unmapped)
	}

	g.header(w, "UNMAPPED ACCOUNT NAMES")
	fmt.Fprintf(w, "Names needing a decision: %d\n\n", len(unmapped))
	for _, u := range unmapped {
		fmt.Fprintf(w, "  %s\n", u.Name)
		fmt.Fprintf(w, "    suggested: %s", u.Suggestion)
		if u.IsBalanceSheet {
			fmt.Fprintf(w, " (%s)", u.SuggestedType)
		}
		fmt.Fprintf(w, "\n")
		for _, m := range u.Similar {
			fmt.Fprintf(w, "    similar:   %s (%.2f)\n", m.Name, m.Score)
		}
	}
	return nil
}

// DuplicateGroups renders exact duplicate groups with the proposed
// keeper marked.
func (g *Generator) DuplicateGroups(w io.Writer, groups []*dedup.Group) error {
	if g.format == FormatJSON {
		return g.writeJSON(w, groups)
	}

	g.header(w, "DUPLICATE TRANSACTIONS")
	fmt.Fprintf(w, "Duplicate groups: %d\n\n", len(groups))
	for i, group := range groups {
		fmt.Fprintf(w, "Group %d (%d transactions):\n", i+1, len(group.Transactions))
		for _, tx := range group.Transactions {
			marker := "  delete"
			if tx.ID == group.Keep.ID {
				marker = "  keep  "
			}
			fmt.Fprintf(w, "%s %s  %s  %s  [%s]\n",
				marker, tx.Date.Format("2006-01-02"), g.amount(tx.Amount), tx.Description, tx.ID)
		}
		fmt.Fprintf(w, "\n")
	}
	return nil
}

// PotentialPairs renders potential duplicate pairs for review.
func (g *Generator) PotentialPairs(w io.Writer, pairs []*dedup.PotentialPair) error {
	if g.format == FormatJSON {
		return g.writeJSON(w, pairs)
	}

	g.header(w, "POTENTIAL DUPLICATES")
	fmt.Fprintf(w, "Pairs needing review: %d\n\n", len(pairs))
	for i, pair := range pairs {
		fmt.Fprintf(w, "Pair %d:\n", i+1)
		fmt.Fprintf(w, "  new:      %s  %s  %s\n",
			pair.New.Date.Format("2006-01-02"), g.amount(pair.New.Amount), pair.New.Description)
		fmt.Fprintf(w, "  existing: %s  %s  %s\n",
			pair.Existing.Date.Format("2006-01-02"), g.amount(pair.Existing.Amount), pair.Existing.Description)
	}
	return nil
}

// Holdings renders parsed brokerage positions.
func (g *Generator) Holdings(w io.Writer, holdings []models.Holding) error {
	if g.format == FormatJSON {
		return g.writeJSON(w, holdings)
	}

	g.header(w, "INVESTMENT HOLDINGS")
	fmt.Fprintf(w, "%-10s %14s %14s %14s\n", "SYMBOL", "QUANTITY", "PRICE", "VALUE")
	total := decimal.Zero
	for _, h := range holdings {
		fmt.Fprintf(w, "%-10s %14s %14s %14s\n",
			h.Symbol, h.Quantity.String(), h.Price.StringFixed(2), h.MarketValue.StringFixed(2))
		total = total.Add(h.MarketValue)
	}
	fmt.Fprintf(w, "%-10s %14s %14s %14s\n", "TOTAL", "", "", total.StringFixed(2))
	return nil
}

// Ledger renders an account's running ledger.
func (g *Generator) Ledger(w io.Writer, rows []*balance.LedgerRow) error {
	if g.format == FormatJSON {
		return g.writeJSON(w, rows)
	}

	g.header(w, "ACCOUNT LEDGER")
	fmt.Fprintf(w, "%-12s %12s %14s  %s\n", "DATE", "AMOUNT", "BALANCE", "DESCRIPTION")
	for _, row := range rows {
		fmt.Fprintf(w, "%-12s %12s %14s  %s\n",
			row.Transaction.Date.Format("2006-01-02"),
			row.Transaction.Amount.StringFixed(2),
			g.amount(row.Balance),
			row.Transaction.Description)
	}
	return nil
}

// AccountBalance renders a computed balance with its anchor.
func (g *Generator) AccountBalance(w io.Writer, view *balance.AccountView) error {
	if g.format == FormatJSON {
		return g.writeJSON(w, view)
	}

	g.header(w, "ACCOUNT BALANCE")
	fmt.Fprintf(w, "Account: %s\n", view.AccountID)
	fmt.Fprintf(w, "Balance: %s\n", g.amount(view.Balance))
	if view.AnchorDate != nil {
		fmt.Fprintf(w, "Anchor:  %s as of %s\n",
			view.Anchor.StringFixed(2), view.AnchorDate.Format("2006-01-02"))
	}
	return nil
}

// DebtView renders the liability payoff view in strategy order.
func (g *Generator) DebtView(w io.Writer, view *balance.DebtView) error {
	if g.format == FormatJSON {
		return g.writeJSON(w, view)
	}

	g.header(w, "DEBT PAYOFF PLAN")
	fmt.Fprintf(w, "Strategy:     %s\n", view.Strategy)
	fmt.Fprintf(w, "Total Debt:   %s\n", view.TotalDebt.StringFixed(2))
	fmt.Fprintf(w, "Weighted APR: %s%%\n\n", view.WeightedAPR.StringFixed(2))
	for i, entry := range view.Entries {
		fmt.Fprintf(w, "%d. %s\n", i+1, entry.Account.Name)
		fmt.Fprintf(w, "   Owed: %s", entry.Balance.StringFixed(2))
		if entry.Account.InterestRate != nil {
			fmt.Fprintf(w, "  APR: %s%%", entry.Account.InterestRate.StringFixed(2))
		}
		fmt.Fprintf(w, "\n")
		switch {
		case entry.NeverPayoff:
			fmt.Fprintf(w, "   Payoff: never at current payment\n")
		case entry.MonthsToPayoff != nil:
			fmt.Fprintf(w, "   Payoff: %d months (%s)\n",
				*entry.MonthsToPayoff, entry.PayoffDate.Format("2006-01"))
		}
	}
	return nil
}

func (g *Generator) printWarnings(w io.Writer, warnings []string) {
	if len(warnings) == 0 {
		return
	}
	fmt.Fprintf(w, "\n")
	g.header(w, "WARNINGS")
	shown := warnings
	if len(shown) > maxWarnings {
		shown = shown[:maxWarnings]
	}
	for _, warning := range shown {
		if g.noColor {
			fmt.Fprintf(w, "  %s\n", warning)
		} else {
			fmt.Fprintf(w, "  %s\n", color.YellowString(warning))
		}
	}
	if len(warnings) > maxWarnings {
		fmt.Fprintf(w, "  ... and %d more\n", len(warnings)-maxWarnings)
	}
}
