// Package balance computes account balances and running ledgers from
// linked transactions and manual balance anchors.
package balance

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"qb-reconciliation-service/internal/models"
	"qb-reconciliation-service/internal/store"
	"qb-reconciliation-service/pkg/logger"
)

// Engine derives balances from stored transactions and anchors.
type Engine struct {
	store store.Store
	log   logger.Logger
}

// NewEngine creates a balance engine backed by the given store.
func NewEngine(st store.Store) *Engine {
	return &Engine{
		store: st,
		log:   logger.GetGlobalLogger().WithComponent("balance"),
	}
}

// LedgerRow is one transaction with the balance after applying it.
type LedgerRow struct {
	Transaction *models.Transaction `json:"transaction"`
	Balance     decimal.Decimal     `json:"balance"`
}

// AccountView is a computed balance with its anchor provenance.
type AccountView struct {
	AccountID  string           `json:"account_id"`
	Balance    decimal.Decimal  `json:"balance"`
	AnchorDate *time.Time       `json:"anchor_date,omitempty"`
	Anchor     *decimal.Decimal `json:"anchor,omitempty"`
}

// latestManualAnchor returns the most recent manual balance for the
// account, or nil when none exists.
func (e *Engine) latestManualAnchor(ctx context.Context, accountID string) (*models.AccountBalance, error) {
	balances, err := e.store.ListBalances(ctx, accountID)
	if err != nil {
		return nil, err
	}
	var anchor *models.AccountBalance
	for _, b := range balances {
		if b.Source != models.BalanceSourceManual {
			continue
		}
		if anchor == nil || b.Date.After(anchor.Date) {
			anchor = b
		}
	}
	return anchor, nil
}

// ComputeAccountBalance returns the account's current balance: the
// latest manual anchor (zero when none exists) plus the sum of linked
// transaction amounts dated on or after the anchor date.
func (e *Engine) ComputeAccountBalance(ctx context.Context, accountID string) (*AccountView, error) {
	anchor, err := e.latestManualAnchor(ctx, accountID)
	if err != nil {
		return nil, err
	}

	view := &AccountView{AccountID: accountID, Balance: decimal.Zero}
	var since time.Time
	if anchor != nil {
		view.Balance = anchor.Balance
		view.AnchorDate = &anchor.Date
		b := anchor.Balance
		view.Anchor = &b
		since = anchor.Date
	}

	transactions, err := e.store.ListTransactions(ctx, store.TransactionFilter{AccountID: &accountID})
	if err != nil {
		return nil, err
	}
	for _, tx := range transactions {
		if anchor != nil && tx.Date.Before(since) {
			continue
		}
		view.Balance = view.Balance.Add(tx.Amount)
	}
	return view, nil
}

// ComputeLedger returns the account's transactions in ledger order,
// date ascending with insertion order breaking ties, each row carrying
// the running balance after that transaction. A nil from/to leaves that
// side unbounded. The running balance accumulates from the anchor even
// across rows the from bound excludes, so the first returned row's
// balance is the account's true balance at that point.
func (e *Engine) ComputeLedger(ctx context.Context, accountID string, from, to *time.Time) ([]*LedgerRow, error) {
	anchor, err := e.latestManualAnchor(ctx, accountID)
	if err != nil {
		return nil, err
	}

	transactions, err := e.store.ListTransactions(ctx, store.TransactionFilter{AccountID: &accountID, To: to})
	if err != nil {
		return nil, err
	}

	running := decimal.Zero
	var included []*models.Transaction
	for _, tx := range transactions {
		if anchor != nil && tx.Date.Before(anchor.Date) {
			continue
		}
		included = append(included, tx)
	}
	if anchor != nil {
		running = anchor.Balance
	}

	sort.SliceStable(included, func(i, j int) bool {
		if !included[i].Date.Equal(included[j].Date) {
			return included[i].Date.Before(included[j].Date)
		}
		return included[i].Seq < included[j].Seq
	})

	rows := make([]*LedgerRow, 0, len(included))
	for _, tx := range included {
		running = running.Add(tx.Amount)
		if from != nil && tx.Date.Before(*from) {
			continue
		}
		rows = append(rows, &LedgerRow{Transaction: tx, Balance: running})
	}
	return rows, nil
}

// SetStartingBalance replaces the account's manual anchor. Any existing
// manual anchors are removed first so the account carries at most one.
func (e *Engine) SetStartingBalance(ctx context.Context, accountID string, date time.Time, amount decimal.Decimal) error {
	removed, err := e.store.DeleteManualBalances(ctx, accountID)
	if err != nil {
		return err
	}
	if removed > 0 {
		e.log.WithFields(logger.Fields{
			"account_id": accountID,
			"removed":    removed,
		}).Debug("Replaced existing manual balance anchors")
	}
	return e.store.InsertBalance(ctx, &models.AccountBalance{
		AccountID: accountID,
		Date:      date,
		Balance:   amount,
		Source:    models.BalanceSourceManual,
	})
}
