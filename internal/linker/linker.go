// Package linker resolves each transaction's QuickBooks account
// reference to an internal account.
//
// Resolution tries the primary reference first, then the counter/split
// reference. A counter-side link negates the stored amount: the two
// sides of one QuickBooks entry are sign-opposite from each linked
// account's perspective, and the stored convention must reflect the
// linked account's own. Unresolved transactions stay unlinked; that is a
// reported count, not an error.
package linker

import (
	"context"

	"qb-reconciliation-service/internal/mapping"
	"qb-reconciliation-service/internal/models"
	"qb-reconciliation-service/internal/store"
	"qb-reconciliation-service/pkg/errors"
	"qb-reconciliation-service/pkg/logger"
)

// Scope selects which transactions a linking pass covers.
type Scope string

const (
	ScopeUnlinkedOnly Scope = "unlinked_only"
	ScopeAll          Scope = "all"
)

// updateChunkSize bounds request size for batch updates. Chunks are
// processed sequentially, not concurrently.
const updateChunkSize = 100

// Result summarizes one linking pass.
type Result struct {
	Total            int `json:"total"`
	Updated          int `json:"updated"`
	LinkedViaPrimary int `json:"linked_via_primary"`
	LinkedViaCounter int `json:"linked_via_counter"`
	Unresolved       int `json:"unresolved"`
	WriteFailures    int `json:"write_failures"`
}

// Engine links transactions to accounts using the loaded mapping
// context.
type Engine struct {
	store store.Store
	log   logger.Logger
}

// NewEngine creates a linking engine backed by the given store.
func NewEngine(st store.Store) *Engine {
	return &Engine{
		store: st,
		log:   logger.GetGlobalLogger().WithComponent("linker"),
	}
}

// Link resolves account links for the transactions in scope. Updates
// are written in sequential chunks; a failed write is counted against
// that record and the pass continues.
func (e *Engine) Link(ctx context.Context, mc *mapping.Context, scope Scope) (*Result, error) {
	filter := store.TransactionFilter{UnlinkedOnly: scope == ScopeUnlinkedOnly}
	transactions, err := e.store.ListTransactions(ctx, filter)
	if err != nil {
		return nil, err
	}

	result := &Result{Total: len(transactions)}
	var updates []*models.Transaction

	for _, tx := range transactions {
		account, viaCounter := resolve(mc, tx)
		if account == nil {
			result.Unresolved++
			continue
		}

		if viaCounter {
			result.LinkedViaCounter++
		} else {
			result.LinkedViaPrimary++
		}

		// Already linked to the resolved account: nothing to write.
		// A counter-side amount is negated once at link time, not on
		// every pass, so relink-all stays idempotent.
		if tx.AccountID != nil && *tx.AccountID == account.ID {
			continue
		}

		accountID := account.ID
		tx.AccountID = &accountID
		if viaCounter {
			tx.Amount = tx.Amount.Neg()
		}
		updates = append(updates, tx)
	}

	for start := 0; start < len(updates); start += updateChunkSize {
		end := start + updateChunkSize
		if end > len(updates) {
			end = len(updates)
		}
		for _, tx := range updates[start:end] {
			if err := e.store.UpdateTransaction(ctx, tx); err != nil {
				result.WriteFailures++
				e.log.WithError(errors.PersistenceError(errors.CodeWriteFailed, "transaction", tx.ID, err)).
					Warn("Failed to persist transaction link")
				continue
			}
			result.Updated++
		}
	}

	e.log.WithFields(logger.Fields{
		"scope":              string(scope),
		"total":              result.Total,
		"linked_via_primary": result.LinkedViaPrimary,
		"linked_via_counter": result.LinkedViaCounter,
		"unresolved":         result.Unresolved,
		"updated":            result.Updated,
	}).Info("Linking pass completed")

	return result, nil
}

// resolve finds the account for a transaction: primary reference first,
// counter reference second. The boolean reports a counter-side link.
func resolve(mc *mapping.Context, tx *models.Transaction) (*models.Account, bool) {
	if account := mc.AccountByAlias(tx.QBAccount); account != nil {
		return account, false
	}
	if account := mc.AccountByAlias(tx.SplitAccount); account != nil {
		return account, true
	}
	return nil, false
}
