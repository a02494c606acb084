package ingest

import (
	"strings"

	"qb-reconciliation-service/internal/models"
	"qb-reconciliation-service/pkg/errors"
	"qb-reconciliation-service/pkg/logger"
)

// transactionDetailColumns holds the resolved column indexes for the
// Transaction Detail dialect. Date and amount are required; the rest are
// best-effort.
type transactionDetailColumns struct {
	date    int
	amount  int
	qbType  int
	name    int
	memo    int
	class   int
	split   int
	account int
}

func resolveTransactionDetailColumns(table *Table) (*transactionDetailColumns, *errors.ReconcileError) {
	cols := &transactionDetailColumns{
		date:   table.ColumnIndexContains("date"),
		amount: table.ColumnIndex("amount"),
		qbType: table.ColumnIndexContains("transaction type"),
		name:   table.ColumnIndex("name", "payee"),
		memo:   table.ColumnIndexContains("memo"),
		class:  table.ColumnIndex("class"),
		split:  table.ColumnIndexContains("split"),
		// QuickBooks emits "Account full name" twice: once for the
		// transaction's own account, once for the offsetting account.
		// The offsetting one is what category mapping needs, and
		// duplicate-column renaming preserves left-to-right order, so
		// take the last occurrence.
		account: table.LastColumnIndex("account full name", "account"),
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

// ParseTransactionDetail parses the one-row-per-transaction dialect.
func ParseTransactionDetail(table *Table, log logger.Logger) (*Result, error) {
	log = log.WithComponent("transaction_detail_parser")

	cols, colErr := resolveTransactionDetailColumns(table)
	if colErr != nil {
		log.WithError(colErr).Error("Required column missing")
		return nil, colErr
	}

	result := &Result{}
	for i, row := range table.Rows {
		line := table.SourceLine(i)

		dateStr := table.Cell(row, cols.date)
		date, err := models.ParseDate(dateStr)
		if err != nil {
			result.Warnings = append(result.Warnings,
				errors.ParseError(errors.CodeInvalidDate, line, "date", dateStr, err))
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
			QBAccount:         table.Cell(row, cols.account),
			SplitAccount:      table.Cell(row, cols.split),
		}
		result.Transactions = append(result.Transactions, tx)
	}

	log.WithFields(logger.Fields{
		"transactions": len(result.Transactions),
		"warnings":     len(result.Warnings),
	}).Info("Transaction Detail parsing completed")

	return result, nil
}

// buildDescription merges the payee name and memo into one display
// string.
func buildDescription(name, memo string) string {
	name = strings.TrimSpace(name)
	memo = strings.TrimSpace(memo)
	switch {
	case name == "":
		return memo
	case memo == "" || strings.EqualFold(name, memo):
		return name
	default:
		return name + " - " + memo
	}
}
