// Package ingest parses QuickBooks General Ledger and Transaction Detail
// exports, plus brokerage holdings files, from delimited text or
// spreadsheet workbooks.
//
// Parsing is best-effort: rows with bad dates or missing required fields
// are skipped and recorded as warnings; the rest of the file is still
// parsed. The whole file is read into memory before any result is
// returned.
package ingest

import (
	"strings"
)

// Table is a parsed grid with its header row. Headers are kept
// positional, never collapsed into a map, because QuickBooks exports can
// emit the same header twice ("Account full name" appears once for the
// transaction's own account and once for the offsetting account) and
// both columns must stay addressable.
type Table struct {
	Headers []string
	Rows    [][]string
	// HeaderLine is the zero-based line index of the header row in the
	// source file, used to report row numbers in warnings.
	HeaderLine int
}

// Cell returns the value at the column index for the row, or "" when the
// row is shorter than the header.
func (t *Table) Cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}

// ColumnIndex returns the first column whose header equals any of the
// given names, case-insensitively, or -1.
func (t *Table) ColumnIndex(names ...string) int {
	for i, header := range t.Headers {
		h := strings.TrimSpace(header)
		for _, name := range names {
			if strings.EqualFold(h, name) {
				return i
			}
		}
	}
	return -1
}

// LastColumnIndex returns the last column whose header equals any of the
// given names, case-insensitively, or -1. Duplicate-column renaming
// (suffixing with an index) preserves left-to-right order, so matching
// also accepts a "name_N" suffix form.
func (t *Table) LastColumnIndex(names ...string) int {
	found := -1
	for i, header := range t.Headers {
		h := strings.TrimSpace(header)
		for _, name := range names {
			if strings.EqualFold(h, name) || hasIndexSuffix(h, name) {
				found = i
			}
		}
	}
	return found
}

// ColumnIndexContains returns the first column whose header contains any
// of the given substrings, case-insensitively, or -1.
func (t *Table) ColumnIndexContains(substrs ...string) int {
	for i, header := range t.Headers {
		h := strings.ToLower(strings.TrimSpace(header))
		for _, sub := range substrs {
			if strings.Contains(h, strings.ToLower(sub)) {
				return i
			}
		}
	}
	return -1
}

// hasIndexSuffix reports whether header is name plus a "_N" suffix, the
// renaming convention for duplicated columns.
func hasIndexSuffix(header, name string) bool {
	h := strings.ToLower(header)
	n := strings.ToLower(name)
	if !strings.HasPrefix(h, n+"_") {
		return false
	}
	suffix := h[len(n)+1:]
	if suffix == "" {
		return false
	}
	for _, r := range suffix {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// SourceLine converts a data-row index into the one-based line number in
// the original file, for warning messages.
func (t *Table) SourceLine(rowIdx int) int {
	return t.HeaderLine + rowIdx + 2
}

// isEmptyRow reports whether all fields are empty or whitespace.
func isEmptyRow(row []string) bool {
	for _, field := range row {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}
