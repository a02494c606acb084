package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		expected  time.Time
		wantError bool
	}{
		{
			name:     "US format",
			input:    "01/15/2024",
			expected: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "ISO format",
			input:    "2024-01-15",
			expected: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "dashed US format",
			input:    "01-15-2024",
			expected: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "single digit month and day",
			input:    "1/5/2024",
			expected: time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "surrounding whitespace",
			input:    "  2024-01-15  ",
			expected: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "empty string",
			input:     "",
			wantError: true,
		},
		{
			name:      "not a date",
			input:     "Beginning Balance",
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.input)
			if tt.wantError {
				if err == nil {
					t.Errorf("ParseDate(%q) expected error, got %v", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDate(%q) unexpected error: %v", tt.input, err)
			}
			if !got.Equal(tt.expected) {
				t.Errorf("ParseDate(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestDateRoundTrip(t *testing.T) {
	inputs := []string{"01/15/2024", "2024-01-15", "01-15-2024"}
	for _, input := range inputs {
		parsed, err := ParseDate(input)
		if err != nil {
			t.Fatalf("ParseDate(%q) unexpected error: %v", input, err)
		}
		if got := FormatDate(parsed); got != "2024-01-15" {
			t.Errorf("FormatDate(ParseDate(%q)) = %q, want 2024-01-15", input, got)
		}
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		expected  decimal.Decimal
		wantError bool
	}{
		{
			name:     "plain",
			input:    "100.50",
			expected: decimal.NewFromFloat(100.50),
		},
		{
			name:     "currency symbol and thousands separator",
			input:    "$2,000.00",
			expected: decimal.NewFromInt(2000),
		},
		{
			name:     "parenthesized negative",
			input:    "(1,234.56)",
			expected: decimal.NewFromFloat(-1234.56),
		},
		{
			name:     "explicit negative",
			input:    "-45.00",
			expected: decimal.NewFromInt(-45),
		},
		{
			name:     "empty string is zero",
			input:    "",
			expected: decimal.Zero,
		},
		{
			name:     "whitespace only is zero",
			input:    "   ",
			expected: decimal.Zero,
		},
		{
			name:      "not numeric",
			input:     "abc",
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.input)
			if tt.wantError {
				if err == nil {
					t.Errorf("ParseAmount(%q) expected error, got %s", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAmount(%q) unexpected error: %v", tt.input, err)
			}
			if !got.Equal(tt.expected) {
				t.Errorf("ParseAmount(%q) = %s, want %s", tt.input, got, tt.expected)
			}
		})
	}
}
