// Package models defines the domain records shared by the import
// pipeline: accounts, categories, transactions, balance anchors, import
// batches, and the persisted QuickBooks mapping records.
package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// AccountType is the closed set of internal account types.
type AccountType string

const (
	AccountTypeChecking   AccountType = "checking"
	AccountTypeSavings    AccountType = "savings"
	AccountTypeCreditCard AccountType = "credit_card"
	AccountTypeInvestment AccountType = "investment"
	AccountTypeRetirement AccountType = "retirement"
	AccountTypeLoan       AccountType = "loan"
	AccountTypeMortgage   AccountType = "mortgage"
	AccountTypeOther      AccountType = "other"
)

// IsValid checks if the account type is one of the closed set.
func (t AccountType) IsValid() bool {
	switch t {
	case AccountTypeChecking, AccountTypeSavings, AccountTypeCreditCard,
		AccountTypeInvestment, AccountTypeRetirement, AccountTypeLoan,
		AccountTypeMortgage, AccountTypeOther:
		return true
	}
	return false
}

// IsLiability reports whether the type is a liability type.
func (t AccountType) IsLiability() bool {
	return t == AccountTypeCreditCard || t == AccountTypeLoan || t == AccountTypeMortgage
}

// NetWorthBucket groups accounts for net-worth views.
type NetWorthBucket string

const (
	BucketCash        NetWorthBucket = "cash"
	BucketInvestments NetWorthBucket = "investments"
	BucketRealEstate  NetWorthBucket = "real_estate"
	BucketCrypto      NetWorthBucket = "crypto"
	BucketRetirement  NetWorthBucket = "retirement"
	BucketLiabilities NetWorthBucket = "liabilities"
)

// DefaultBucket returns the net-worth bucket implied by an account type.
func DefaultBucket(t AccountType) NetWorthBucket {
	switch t {
	case AccountTypeCreditCard, AccountTypeLoan, AccountTypeMortgage:
		return BucketLiabilities
	case AccountTypeInvestment:
		return BucketInvestments
	case AccountTypeRetirement:
		return BucketRetirement
	default:
		return BucketCash
	}
}

// Account is an internal account owned by a user. QBAliases holds the
// QuickBooks account names mapped onto it.
type Account struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	Name      string         `json:"name"`
	Type      AccountType    `json:"type"`
	Bucket    NetWorthBucket `json:"bucket"`
	Active    bool           `json:"active"`
	QBAliases []string       `json:"qb_aliases,omitempty"`

	// Debt fields, set only on liability accounts.
	InterestRate   *decimal.Decimal `json:"interest_rate,omitempty"`   // APR percent
	MinimumPayment *decimal.Decimal `json:"minimum_payment,omitempty"` // per month
	PayoffPriority *int             `json:"payoff_priority,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Validate performs basic validation on the Account.
func (a *Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("account name cannot be empty")
	}
	if !a.Type.IsValid() {
		return fmt.Errorf("invalid account type: %s", a.Type)
	}
	if strings.TrimSpace(a.UserID) == "" {
		return fmt.Errorf("account must have an owning user")
	}
	return nil
}

// IsLiability reports whether the account is a liability.
func (a *Account) IsLiability() bool {
	return a.Type.IsLiability()
}

// HasAlias reports whether the account carries the QuickBooks name as an
// alias, case-insensitively.
func (a *Account) HasAlias(name string) bool {
	name = strings.TrimSpace(name)
	for _, alias := range a.QBAliases {
		if strings.EqualFold(strings.TrimSpace(alias), name) {
			return true
		}
	}
	return false
}

// AddAlias appends a QuickBooks name to the alias set, de-duplicated
// case-insensitively. Returns true if the alias was added.
func (a *Account) AddAlias(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" || a.HasAlias(name) {
		return false
	}
	a.QBAliases = append(a.QBAliases, name)
	return true
}

// BalanceSource tags where a balance anchor came from.
type BalanceSource string

const (
	BalanceSourceManual     BalanceSource = "manual"
	BalanceSourceImport     BalanceSource = "import"
	BalanceSourceCalculated BalanceSource = "calculated"
)

// AccountBalance is an (account, date) anchor snapshot of an absolute
// balance.
type AccountBalance struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	AccountID string          `json:"account_id"`
	Date      time.Time       `json:"date"`
	Balance   decimal.Decimal `json:"balance"`
	Source    BalanceSource   `json:"source"`
	CreatedAt time.Time       `json:"created_at"`
}

// CategoryType is the classification of a category.
type CategoryType string

const (
	CategoryTypeIncome   CategoryType = "income"
	CategoryTypeExpense  CategoryType = "expense"
	CategoryTypeTransfer CategoryType = "transfer"
)

// Category is a user-defined income/expense category with an optional
// parent (single-level hierarchy). Alias sets of parent and child are
// managed independently.
type Category struct {
	ID        string       `json:"id"`
	UserID    string       `json:"user_id"`
	Name      string       `json:"name"`
	Type      CategoryType `json:"type"`
	ParentID  *string      `json:"parent_id,omitempty"`
	Color     string       `json:"color,omitempty"`
	QBAliases []string     `json:"qb_aliases,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

// HasAlias reports whether the category carries the QuickBooks name as an
// alias, case-insensitively.
func (c *Category) HasAlias(name string) bool {
	name = strings.TrimSpace(name)
	for _, alias := range c.QBAliases {
		if strings.EqualFold(strings.TrimSpace(alias), name) {
			return true
		}
	}
	return false
}

// AddAlias appends a QuickBooks name to the alias set, de-duplicated
// case-insensitively. Returns true if the alias was added.
func (c *Category) AddAlias(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" || c.HasAlias(name) {
		return false
	}
	c.QBAliases = append(c.QBAliases, name)
	return true
}

// TransactionType is the classified type of a transaction.
type TransactionType string

const (
	TransactionTypeIncome   TransactionType = "income"
	TransactionTypeExpense  TransactionType = "expense"
	TransactionTypeTransfer TransactionType = "transfer"
)

// IsValid checks if the transaction type is valid.
func (t TransactionType) IsValid() bool {
	return t == TransactionTypeIncome || t == TransactionTypeExpense || t == TransactionTypeTransfer
}

// Transaction is a single imported or manual transaction. Amount follows
// the owning account's convention: positive increases the account's
// balance (for liabilities, the amount owed).
type Transaction struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	Date        time.Time       `json:"date"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Type        TransactionType `json:"type"`

	AccountID     *string `json:"account_id,omitempty"`
	CategoryID    *string `json:"category_id,omitempty"`
	ImportBatchID *string `json:"import_batch_id,omitempty"`

	// QuickBooks-native fields carried through from the export.
	QBTransactionType string `json:"qb_transaction_type,omitempty"`
	QBAccount         string `json:"qb_account,omitempty"`
	SplitAccount      string `json:"split_account,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	// Seq is assigned at insert and breaks date ties so ledger ordering
	// is stable across reloads.
	Seq int64 `json:"seq"`
}

// Validate performs basic validation on the Transaction.
func (t *Transaction) Validate() error {
	if strings.TrimSpace(t.UserID) == "" {
		return fmt.Errorf("transaction must have an owning user")
	}
	if t.Date.IsZero() {
		return fmt.Errorf("transaction date cannot be zero")
	}
	if !t.Type.IsValid() {
		return fmt.Errorf("invalid transaction type: %s", t.Type)
	}
	return nil
}

// String returns a string representation of the Transaction.
func (t *Transaction) String() string {
	return fmt.Sprintf("Transaction{ID: %s, Date: %s, Amount: %s, Desc: %q}",
		t.ID, t.Date.Format("2006-01-02"), t.Amount.String(), t.Description)
}

// BatchStatus is the lifecycle state of an import batch.
type BatchStatus string

const (
	BatchStatusPending    BatchStatus = "pending"
	BatchStatusProcessing BatchStatus = "processing"
	BatchStatusCompleted  BatchStatus = "completed"
	BatchStatusFailed     BatchStatus = "failed"
)

// ImportBatch tracks one upload. Deleting a batch cascades deletion of
// its transactions.
type ImportBatch struct {
	ID          string            `json:"id"`
	UserID      string            `json:"user_id"`
	Filename    string            `json:"filename"`
	FileType    string            `json:"file_type"`
	Status      BatchStatus       `json:"status"`
	RecordCount int               `json:"record_count"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// Validate performs basic validation on the ImportBatch.
func (b *ImportBatch) Validate() error {
	if strings.TrimSpace(b.UserID) == "" {
		return fmt.Errorf("import batch must have an owning user")
	}
	if strings.TrimSpace(b.Filename) == "" {
		return fmt.Errorf("import batch filename cannot be empty")
	}
	return nil
}

// IncomeExpense is the two-way classification remembered for QuickBooks
// labels and account names.
type IncomeExpense string

const (
	ClassIncome  IncomeExpense = "income"
	ClassExpense IncomeExpense = "expense"
)

// IgnoredAccount records a QuickBooks account name the user declared
// irrelevant; rows against it are skipped on import.
type IgnoredAccount struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// TransactionTypeClass remembers the income/expense classification of a
// QuickBooks transaction-type label across imports.
type TransactionTypeClass struct {
	ID     string        `json:"id"`
	UserID string        `json:"user_id"`
	QBType string        `json:"qb_type"`
	Class  IncomeExpense `json:"class"`
}

// AccountNameClass remembers the income/expense classification of a
// QuickBooks account name, independent of category assignment.
type AccountNameClass struct {
	ID     string        `json:"id"`
	UserID string        `json:"user_id"`
	Name   string        `json:"name"`
	Class  IncomeExpense `json:"class"`
}

// Holding is one position parsed from a brokerage export.
type Holding struct {
	Symbol      string          `json:"symbol"`
	Quantity    decimal.Decimal `json:"quantity"`
	CostBasis   decimal.Decimal `json:"cost_basis"`
	MarketValue decimal.Decimal `json:"market_value"`
	Price       decimal.Decimal `json:"price"`
}

// DiscoveredAccount is a QuickBooks account name found during General
// Ledger parsing, with the ingestion heuristics' guesses attached.
type DiscoveredAccount struct {
	Name           string      `json:"name"`
	IsBalanceSheet bool        `json:"is_balance_sheet"`
	SuggestedType  AccountType `json:"suggested_type"`
}
