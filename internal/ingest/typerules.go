package ingest

import (
	"strings"

	"qb-reconciliation-service/internal/models"

	"github.com/shopspring/decimal"
)

// typeRule maps a QuickBooks transaction-type label keyword to a
// classified type. Rules are evaluated in order, first match wins.
type TypeRule struct {
	Keyword string
	Result  models.TransactionType
}

// typeRules is the ordered rule table for transaction-type inference.
// Expense labels are listed before income labels on purpose: "Credit
// Card Credit" must hit the expense bucket before the bare "credit"
// income-side keywords could false-match, and "Bill Payment" must not be
// read as an income "payment".
var typeRules = []TypeRule{
	{"credit card expense", models.TransactionTypeExpense},
	{"credit card charge", models.TransactionTypeExpense},
	{"credit card credit", models.TransactionTypeExpense},
	{"bill payment", models.TransactionTypeExpense},
	{"bill", models.TransactionTypeExpense},
	{"check", models.TransactionTypeExpense},
	{"debit", models.TransactionTypeExpense},
	{"purchase", models.TransactionTypeExpense},
	{"deposit", models.TransactionTypeIncome},
	{"payment", models.TransactionTypeIncome},
	{"invoice", models.TransactionTypeIncome},
	{"sales receipt", models.TransactionTypeIncome},
	{"refund", models.TransactionTypeIncome},
	{"sales", models.TransactionTypeIncome},
	{"income", models.TransactionTypeIncome},
	{"transfer", models.TransactionTypeTransfer},
	{"journal entry", models.TransactionTypeTransfer},
	{"journal", models.TransactionTypeTransfer},
}

// TypeRules exposes the rule table so tests can enumerate the ordering.
func TypeRules() []TypeRule {
	rules := make([]TypeRule, len(typeRules))
	copy(rules, typeRules)
	return rules
}

// DetermineType infers a transaction's classified type from its
// QuickBooks transaction-type label, falling back on the amount's sign
// for labels no rule matches.
func DetermineType(qbType string, amount decimal.Decimal) models.TransactionType {
	label := strings.ToLower(strings.TrimSpace(qbType))
	if label != "" {
		for _, rule := range typeRules {
			if strings.Contains(label, rule.Keyword) {
				return rule.Result
			}
		}
	}

	if amount.Sign() <= 0 {
		return models.TransactionTypeExpense
	}
	return models.TransactionTypeIncome
}

// accountTypeRule maps an account-name keyword to a suggested internal
// account type. Liability keywords come first; a "Home Loan Checking"
// promo name should still read as a loan.
type AccountTypeRule struct {
	Keyword string
	Result  models.AccountType
}

var accountTypeRules = []AccountTypeRule{
	{"credit card", models.AccountTypeCreditCard},
	{"mortgage", models.AccountTypeMortgage},
	{"loan", models.AccountTypeLoan},
	{"checking", models.AccountTypeChecking},
	{"savings", models.AccountTypeSavings},
	{"investment", models.AccountTypeInvestment},
	{"brokerage", models.AccountTypeInvestment},
	{"retirement", models.AccountTypeRetirement},
	{"401k", models.AccountTypeRetirement},
	{"ira", models.AccountTypeRetirement},
}

// SuggestAccountType guesses whether a discovered QuickBooks account
// name is a balance-sheet account and, when it is, which concrete type
// it looks like. Names with no balance-sheet keyword are treated as
// income/expense categories.
func SuggestAccountType(name string) (models.AccountType, bool) {
	lower := strings.ToLower(name)
	for _, rule := range accountTypeRules {
		if containsWord(lower, rule.Keyword) {
			return rule.Result, true
		}
	}
	return models.AccountTypeOther, false
}

// containsWord matches keyword on word boundaries for short keywords
// ("ira" must not match "admiration") and by substring for multi-word
// keywords.
func containsWord(s, keyword string) bool {
	if strings.Contains(keyword, " ") || len(keyword) > 4 {
		return strings.Contains(s, keyword)
	}
	for _, word := range strings.FieldsFunc(s, func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	}) {
		if word == keyword {
			return true
		}
	}
	return false
}
