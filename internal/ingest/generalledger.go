package ingest

import (
	"strings"

	"qb-reconciliation-service/internal/models"
	"qb-reconciliation-service/pkg/errors"
	"qb-reconciliation-service/pkg/logger"
)

// generalLedgerColumns holds the resolved column indexes for the General
// Ledger dialect.
type generalLedgerColumns struct {
	date   int
	amount int
	qbType int
	name   int
	memo   int
	split  int
}

func resolveGeneralLedgerColumns(table *Table) (*generalLedgerColumns, *errors.ReconcileError) {
	cols := &generalLedgerColumns{
		date:   table.ColumnIndexContains("date"),
		amount: table.ColumnIndex("amount"),
		qbType: table.ColumnIndexContains("transaction type"),
		name:   table.ColumnIndex("name", "payee"),
		memo:   table.ColumnIndexContains("memo"),
		split:  table.ColumnIndexContains("split"),
	}

	if cols.amount == -1 {
		cols.amount = table.ColumnIndexContains("amount")
	}
	if cols.amount == -1 {
		cols.amount = table.ColumnIndex("total")
	}
	if cols.qbType == -1 {
		cols.qbType = table.ColumnIndex("type")
	}
	if cols.memo == -1 {
		cols.memo = table.ColumnIndex("description")
	}

	if cols.date == -1 {
		return nil, errors.ParseError(errors.CodeMissingColumn, table.HeaderLine+1, "date", "", nil)
	}
	if cols.amount == -1 {
		return nil, errors.ParseError(errors.CodeMissingColumn, table.HeaderLine+1, "amount", "", nil)
	}
	return cols, nil
}

// ParseGeneralLedger parses the grouped dialect: transactions appear
// under account header rows. Besides the flat transaction list it
// returns the distinct set of discovered account names, each flagged as
// balance-sheet or income/expense with a suggested concrete type.
func ParseGeneralLedger(table *Table, log logger.Logger) (*Result, error) {
	log = log.WithComponent("general_ledger_parser")

	cols, colErr := resolveGeneralLedgerColumns(table)
	if colErr != nil {
		log.WithError(colErr).Error("Required column missing")
		return nil, colErr
	}

	result := &Result{}
	seen := make(map[string]bool)
	currentAccount := ""

	for i, row := range table.Rows {
		line := table.SourceLine(i)
		dateStr := table.Cell(row, cols.date)

		if dateStr == "" {
			// Rows without a date are group structure: an account
			// header opens a group, a "Total for ..." row closes it,
			// and beginning-balance rows carry no transaction.
			label := firstNonEmptyCell(row)
			if label == "" {
				continue
			}
			lower := strings.ToLower(label)
			switch {
			case strings.HasPrefix(lower, "total"):
				currentAccount = ""
			case strings.Contains(lower, "beginning balance"):
				// no-op
			default:
				currentAccount = label
				if !seen[label] {
					seen[label] = true
					suggested, balanceSheet := SuggestAccountType(label)
					result.DiscoveredAccounts = append(result.DiscoveredAccounts, models.DiscoveredAccount{
						Name:           label,
						IsBalanceSheet: balanceSheet,
						SuggestedType:  suggested,
					})
				}
			}
			continue
		}

		date, err := models.ParseDate(dateStr)
		if err != nil {
			result.Warnings = append(result.Warnings,
				errors.ParseError(errors.CodeInvalidDate, line, "date", dateStr, err))
			continue
		}

		if currentAccount == "" {
			result.Warnings = append(result.Warnings,
				errors.ParseError(errors.CodeInvalidData, line, "account", "", nil).
					WithSuggestion("transaction row appears outside any account group"))
			continue
		}

		amountStr := table.Cell(row, cols.amount)
		amount, err := models.ParseAmount(amountStr)
		if err != nil {
			result.Warnings = append(result.Warnings,
				errors.ParseError(errors.CodeInvalidAmount, line, "amount", amountStr, err))
			continue
		}

		qbType := table.Cell(row, cols.qbType)
		tx := &models.Transaction{
			Date:              date,
			Amount:            amount,
			Description:       buildDescription(table.Cell(row, cols.name), table.Cell(row, cols.memo)),
			Type:              DetermineType(qbType, amount),
			QBTransactionType: qbType,
			QBAccount:         currentAccount,
			SplitAccount:      table.Cell(row, cols.split),
		}
		result.Transactions = append(result.Transactions, tx)
	}

	log.WithFields(logger.Fields{
		"transactions":        len(result.Transactions),
		"discovered_accounts": len(result.DiscoveredAccounts),
		"warnings":            len(result.Warnings),
	}).Info("General Ledger parsing completed")

	return result, nil
}

func firstNonEmptyCell(row []string) string {
	for _, cell := range row {
		if v := strings.TrimSpace(cell); v != "" {
			return v
		}
	}
	return ""
}
