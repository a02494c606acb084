// Package store defines the persistence interface the import pipeline
// consumes, and an in-memory implementation the CLI and tests run
// against.
//
// Every operation is scoped to the current user carried in the context;
// an absent user is an authorization failure before any read or write.
// The hosted relational store behind the dashboard implements the same
// interface.
package store

import (
	"context"
	"time"

	"qb-reconciliation-service/internal/models"
	"qb-reconciliation-service/pkg/errors"
)

type contextKey string

const userKey contextKey = "current_user"

// WithUser returns a context carrying the current user identity.
func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userKey, userID)
}

// CurrentUser resolves the current user from the context. Absence is a
// hard failure for every entry point.
func CurrentUser(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userKey).(string)
	if !ok || userID == "" {
		return "", errors.AuthorizationError(errors.CodeNoUser, "")
	}
	return userID, nil
}

// TransactionFilter narrows transaction list queries. Nil fields are
// ignored. From/To bound the date range inclusively.
type TransactionFilter struct {
	AccountID    *string
	BatchID      *string
	UnlinkedOnly bool
	From         *time.Time
	To           *time.Time
}

// Store is the keyed record store the pipeline persists into. All
// queries are implicitly scoped to the current user from the context.
type Store interface {
	// Accounts
	ListAccounts(ctx context.Context) ([]*models.Account, error)
	GetAccount(ctx context.Context, id string) (*models.Account, error)
	InsertAccount(ctx context.Context, account *models.Account) error
	UpdateAccount(ctx context.Context, account *models.Account) error
	// DeleteAccount detaches (does not delete) the account's
	// transactions.
	DeleteAccount(ctx context.Context, id string) error

	// Categories
	ListCategories(ctx context.Context) ([]*models.Category, error)
	GetCategory(ctx context.Context, id string) (*models.Category, error)
	InsertCategory(ctx context.Context, category *models.Category) error
	UpdateCategory(ctx context.Context, category *models.Category) error
	DeleteCategory(ctx context.Context, id string) error

	// Transactions
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]*models.Transaction, error)
	GetTransaction(ctx context.Context, id string) (*models.Transaction, error)
	InsertTransaction(ctx context.Context, tx *models.Transaction) error
	UpdateTransaction(ctx context.Context, tx *models.Transaction) error
	DeleteTransaction(ctx context.Context, id string) error
	DeleteTransactionsByBatch(ctx context.Context, batchID string) (int, error)

	// Import batches
	ListBatches(ctx context.Context) ([]*models.ImportBatch, error)
	GetBatch(ctx context.Context, id string) (*models.ImportBatch, error)
	InsertBatch(ctx context.Context, batch *models.ImportBatch) error
	UpdateBatch(ctx context.Context, batch *models.ImportBatch) error
	DeleteBatch(ctx context.Context, id string) error

	// Balance anchors
	ListBalances(ctx context.Context, accountID string) ([]*models.AccountBalance, error)
	InsertBalance(ctx context.Context, balance *models.AccountBalance) error
	DeleteManualBalances(ctx context.Context, accountID string) (int, error)

	// Mapping records. Upserts conflict on (user, external name).
	ListIgnoredAccounts(ctx context.Context) ([]*models.IgnoredAccount, error)
	UpsertIgnoredAccount(ctx context.Context, name string) error
	DeleteIgnoredAccount(ctx context.Context, name string) error

	ListTransactionTypeClasses(ctx context.Context) ([]*models.TransactionTypeClass, error)
	UpsertTransactionTypeClass(ctx context.Context, qbType string, class models.IncomeExpense) error

	ListAccountNameClasses(ctx context.Context) ([]*models.AccountNameClass, error)
	UpsertAccountNameClass(ctx context.Context, name string, class models.IncomeExpense) error
}
