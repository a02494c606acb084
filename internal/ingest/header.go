package ingest

import (
	"strings"
)

// headerKeywords is the fixed set used to recognize the true header row.
// A row qualifies when at least two distinct keywords match.
var headerKeywords = []string{
	"date",
	"amount",
	"total",
	"transaction type",
	"type",
	"account",
	"name",
}

// headerScanLimit bounds how many leading rows are scanned; QuickBooks
// exports carry at most a few title/metadata rows.
const headerScanLimit = 10

// FindHeaderRow scans the first rows for the header. A row counts as the
// header when it matches at least 2 of the keyword set after
// case-insensitive substring comparison. Returns 0 when no row
// qualifies.
func FindHeaderRow(rows [][]string) int {
	limit := headerScanLimit
	if len(rows) < limit {
		limit = len(rows)
	}

	for i := 0; i < limit; i++ {
		if countHeaderKeywords(rows[i]) >= 2 {
			return i
		}
	}
	return 0
}

func countHeaderKeywords(row []string) int {
	joined := strings.ToLower(strings.Join(row, " "))
	count := 0
	for _, keyword := range headerKeywords {
		if strings.Contains(joined, keyword) {
			count++
		}
	}
	return count
}

// BuildTable locates the header row, discards everything before it, and
// returns the table of data rows that follow. Empty rows are dropped.
func BuildTable(rows [][]string) *Table {
	headerIdx := FindHeaderRow(rows)

	table := &Table{
		Headers:    rows[headerIdx],
		HeaderLine: headerIdx,
	}
	for _, row := range rows[headerIdx+1:] {
		if isEmptyRow(row) {
			continue
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}
