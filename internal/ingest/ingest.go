package ingest

import (
	"qb-reconciliation-service/internal/models"
	"qb-reconciliation-service/pkg/errors"
	"qb-reconciliation-service/pkg/logger"
)

// Dialect identifies the logical layout of an export.
type Dialect string

const (
	DialectTransactionDetail Dialect = "transaction_detail"
	DialectGeneralLedger     Dialect = "general_ledger"
	DialectHoldings          Dialect = "holdings"
)

// IsValid checks that the dialect is known.
func (d Dialect) IsValid() bool {
	return d == DialectTransactionDetail || d == DialectGeneralLedger || d == DialectHoldings
}

// Result is the outcome of ingesting one file. Warnings hold the
// per-row issues for rows that were skipped; ingestion is best-effort
// and never fails on a bad row.
type Result struct {
	Transactions       []*models.Transaction      `json:"transactions,omitempty"`
	DiscoveredAccounts []models.DiscoveredAccount `json:"discovered_accounts,omitempty"`
	Holdings           []models.Holding           `json:"holdings,omitempty"`
	Warnings           []*errors.ReconcileError   `json:"warnings,omitempty"`
}

// WarningMessages renders the warnings as strings, capped at max for
// display. The underlying list is never capped.
func (r *Result) WarningMessages(max int) []string {
	limit := len(r.Warnings)
	if max > 0 && max < limit {
		limit = max
	}
	messages := make([]string, 0, limit)
	for _, w := range r.Warnings[:limit] {
		messages = append(messages, w.Error())
	}
	return messages
}

// Ingest decodes raw file bytes and parses them with the dialect's
// parser. The physical format (CSV, OOXML, legacy workbook) is detected
// from the filename; holdings are accepted as delimited text only.
func Ingest(raw []byte, filename string, dialect Dialect) (*Result, error) {
	log := logger.GetGlobalLogger().WithComponent("ingest").WithFields(logger.Fields{
		"filename": filename,
		"dialect":  string(dialect),
	})

	if !dialect.IsValid() {
		return nil, errors.ConfigurationError("dialect", string(dialect), nil)
	}
	if len(raw) == 0 {
		return nil, errors.ParseError(errors.CodeEmptyFile, 0, "", "", nil)
	}

	format := DetectFormat(filename)
	if dialect == DialectHoldings && format != FormatCSV {
		return nil, errors.ConfigurationError("format", string(format), nil).
			WithSuggestion("holdings files are accepted as delimited text only")
	}

	rows, err := ReadRows(raw, format)
	if err != nil {
		log.WithError(err).Error("Failed to read file rows")
		return nil, err
	}

	table := BuildTable(rows)
	log.WithFields(logger.Fields{
		"header_line": table.HeaderLine,
		"data_rows":   len(table.Rows),
	}).Debug("Header row detected")

	switch dialect {
	case DialectGeneralLedger:
		return ParseGeneralLedger(table, log)
	case DialectHoldings:
		return ParseHoldings(table, log)
	default:
		return ParseTransactionDetail(table, log)
	}
}
