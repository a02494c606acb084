// Package dedup finds duplicate transactions across the stored set.
//
// Exact duplicates share date, amount, normalized description, and
// QuickBooks account; detection proposes deletions and never mutates on
// its own. Potential duplicates share date, amount, and account but
// differ in description, and are surfaced per import batch for a
// keep/discard decision.
package dedup

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"qb-reconciliation-service/internal/models"
	"qb-reconciliation-service/internal/store"
	"qb-reconciliation-service/internal/textmatch"
	"qb-reconciliation-service/pkg/errors"
	"qb-reconciliation-service/pkg/logger"
)

// Detector finds and resolves duplicate transactions.
type Detector struct {
	store store.Store
	log   logger.Logger
}

// NewDetector creates a duplicate detector backed by the given store.
func NewDetector(st store.Store) *Detector {
	return &Detector{
		store: st,
		log:   logger.GetGlobalLogger().WithComponent("dedup"),
	}
}

// Group is a set of transactions that are exact duplicates of each
// other. Keep is the member proposed for retention, the earliest
// created; the rest are deletion candidates.
type Group struct {
	Key          string                `json:"key"`
	Transactions []*models.Transaction `json:"transactions"`
	Keep         *models.Transaction   `json:"keep"`
}

// Candidates returns the IDs of every group member except the proposed
// keeper.
func (g *Group) Candidates() []string {
	ids := make([]string, 0, len(g.Transactions)-1)
	for _, tx := range g.Transactions {
		if tx.ID != g.Keep.ID {
			ids = append(ids, tx.ID)
		}
	}
	return ids
}

// exactKey identifies a transaction up to duplication. Descriptions are
// normalized so formatting noise does not split a group.
func exactKey(tx *models.Transaction) string {
	return strings.Join([]string{
		models.FormatDate(tx.Date),
		tx.Amount.String(),
		textmatch.Normalize(tx.Description),
		strings.ToLower(strings.TrimSpace(tx.QBAccount)),
	}, "|")
}

// FindDuplicates groups all stored transactions by the exact duplicate
// key and returns groups with more than one member. Groups are ordered
// by date for stable presentation.
func (d *Detector) FindDuplicates(ctx context.Context) ([]*Group, error) {
	transactions, err := d.store.ListTransactions(ctx, store.TransactionFilter{})
	if err != nil {
		return nil, err
	}

	byKey := make(map[string][]*models.Transaction)
	for _, tx := range transactions {
		key := exactKey(tx)
		byKey[key] = append(byKey[key], tx)
	}

	var groups []*Group
	for key, members := range byKey {
		if len(members) < 2 {
			continue
		}
		keep := members[0]
		for _, tx := range members[1:] {
			if tx.CreatedAt.Before(keep.CreatedAt) {
				keep = tx
			}
		}
		groups = append(groups, &Group{Key: key, Transactions: members, Keep: keep})
	}

	sort.Slice(groups, func(i, j int) bool {
		ti, tj := groups[i].Transactions[0], groups[j].Transactions[0]
		if !ti.Date.Equal(tj.Date) {
			return ti.Date.Before(tj.Date)
		}
		return groups[i].Key < groups[j].Key
	})

	d.log.WithFields(logger.Fields{
		"transactions": len(transactions),
		"groups":       len(groups),
	}).Info("Exact duplicate scan completed")

	return groups, nil
}

// DeleteCandidates deletes the listed transaction IDs, as produced by
// group candidates. Each deletion is independent; failures are
// collected, and the count of successful deletions is returned.
func (d *Detector) DeleteCandidates(ctx context.Context, ids []string) (int, error) {
	deleted := 0
	var firstErr error
	for _, id := range ids {
		if err := d.store.DeleteTransaction(ctx, id); err != nil {
			if firstErr == nil {
				firstErr = errors.PersistenceError(errors.CodeDeleteFailed, "transaction", id, err)
			}
			d.log.WithError(err).WithField("transaction_id", id).Warn("Failed to delete duplicate")
			continue
		}
		deleted++
	}
	return deleted, firstErr
}

// PotentialPair is a new transaction from an import batch alongside an
// existing transaction that shares its date, amount, and account but
// carries a different description.
type PotentialPair struct {
	New      *models.Transaction `json:"new"`
	Existing *models.Transaction `json:"existing"`
}

// PairDecision resolves one potential duplicate pair.
type PairDecision string

const (
	KeepNew      PairDecision = "keep_new"
	KeepExisting PairDecision = "keep_existing"
	KeepBoth     PairDecision = "keep_both"
)

// pairKey matches on date, amount, and QuickBooks account only.
func pairKey(tx *models.Transaction) string {
	return fmt.Sprintf("%s|%s|%s",
		models.FormatDate(tx.Date),
		tx.Amount.String(),
		strings.ToLower(strings.TrimSpace(tx.QBAccount)))
}

// FindPotentialDuplicates compares a batch's transactions against the
// rest of the store and returns pairs that collide on date, amount, and
// account while differing in normalized description. Exact duplicates
// are excluded; those belong to FindDuplicates.
func (d *Detector) FindPotentialDuplicates(ctx context.Context, batchID string) ([]*PotentialPair, error) {
	all, err := d.store.ListTransactions(ctx, store.TransactionFilter{})
	if err != nil {
		return nil, err
	}

	existingByKey := make(map[string][]*models.Transaction)
	var batch []*models.Transaction
	for _, tx := range all {
		if tx.ImportBatchID != nil && *tx.ImportBatchID == batchID {
			batch = append(batch, tx)
			continue
		}
		existingByKey[pairKey(tx)] = append(existingByKey[pairKey(tx)], tx)
	}

	var pairs []*PotentialPair
	for _, tx := range batch {
		for _, existing := range existingByKey[pairKey(tx)] {
			if textmatch.Normalize(existing.Description) == textmatch.Normalize(tx.Description) {
				continue
			}
			pairs = append(pairs, &PotentialPair{New: tx, Existing: existing})
		}
	}

	d.log.WithFields(logger.Fields{
		"batch_id": batchID,
		"batch":    len(batch),
		"pairs":    len(pairs),
	}).Info("Potential duplicate scan completed")

	return pairs, nil
}

// ResolvePotentialDuplicates applies decisions to potential duplicate
// pairs. An unrecognized or missing decision keeps both transactions.
// The return value is the number of transactions deleted.
func (d *Detector) ResolvePotentialDuplicates(ctx context.Context, pairs []*PotentialPair, decisions map[int]PairDecision) (int, error) {
	deleted := 0
	for i, pair := range pairs {
		var target string
		switch decisions[i] {
		case KeepNew:
			target = pair.Existing.ID
		case KeepExisting:
			target = pair.New.ID
		default:
			continue
		}
		if err := d.store.DeleteTransaction(ctx, target); err != nil {
			return deleted, errors.PersistenceError(errors.CodeDeleteFailed, "transaction", target, err)
		}
		deleted++
	}
	return deleted, nil
}
