package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// dateFormats are tried in order. The first three are the formats
// QuickBooks exports actually use; the rest are a generic fallback.
var dateFormats = []string{
	"01/02/2006",
	"2006-01-02",
	"01-02-2006",
	"1/2/2006",
	"2006/01/02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"Jan 2, 2006",
	"January 2, 2006",
}

// ParseDate parses a date string in MM/DD/YYYY, YYYY-MM-DD, or
// MM-DD-YYYY form, falling back to a set of generic formats.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("date string cannot be empty")
	}

	var lastErr error
	for _, format := range dateFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		} else {
			lastErr = err
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse date '%s': %w", s, lastErr)
}

// FormatDate renders a date the way the ledger displays it.
func FormatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

// ParseAmount parses a currency amount string. Currency symbols,
// thousands separators, and whitespace are stripped; a parenthesized
// value denotes a negative amount, so "(1,234.56)" parses to -1234.56.
// An empty string parses to zero.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}

	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, " ", "")
	if s == "" || s == "-" {
		return decimal.Zero, nil
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount format '%s': %w", s, err)
	}

	if negative {
		d = d.Neg()
	}
	return d, nil
}
