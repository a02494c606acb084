// Package importer orchestrates the import pipeline: parse an upload,
// classify the account names it references, resolve what the user
// decided about unmapped names, persist the transactions under an
// import batch, and link them to accounts.
package importer

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"qb-reconciliation-service/internal/balance"
	"qb-reconciliation-service/internal/dedup"
	"qb-reconciliation-service/internal/ingest"
	"qb-reconciliation-service/internal/linker"
	"qb-reconciliation-service/internal/mapping"
	"qb-reconciliation-service/internal/models"
	"qb-reconciliation-service/internal/store"
	"qb-reconciliation-service/pkg/errors"
	"qb-reconciliation-service/pkg/logger"
)

// Service wires the pipeline stages over one store.
type Service struct {
	store    store.Store
	linker   *linker.Engine
	balances *balance.Engine
	dedup    *dedup.Detector
	log      logger.Logger
}

// NewService creates the import service and its stage engines.
func NewService(st store.Store) *Service {
	return &Service{
		store:    st,
		linker:   linker.NewEngine(st),
		balances: balance.NewEngine(st),
		dedup:    dedup.NewDetector(st),
		log:      logger.GetGlobalLogger().WithComponent("importer"),
	}
}

// Balances exposes the balance engine for ledger and debt queries.
func (s *Service) Balances() *balance.Engine { return s.balances }

// Duplicates exposes the duplicate detector.
func (s *Service) Duplicates() *dedup.Detector { return s.dedup }

// Preview is the first half of an import: the parsed upload plus the
// classification of the account names it references. Nothing has been
// persisted yet.
type Preview struct {
	Dialect   ingest.Dialect     `json:"dialect"`
	Filename  string             `json:"filename"`
	Parsed    *ingest.Result     `json:"parsed"`
	Partition *mapping.Partition `json:"partition"`
	Mapping   *mapping.Context   `json:"-"`
}

// Prepare parses an upload and classifies its discovered account names
// against the user's existing mappings. The caller reviews
// Partition.Unmapped, collects decisions, and calls Commit.
func (s *Service) Prepare(ctx context.Context, raw []byte, filename string, dialect ingest.Dialect) (*Preview, error) {
	if _, err := store.CurrentUser(ctx); err != nil {
		return nil, err
	}

	parsed, err := ingest.Ingest(raw, filename, dialect)
	if err != nil {
		return nil, err
	}

	mc, err := mapping.LoadContext(ctx, s.store)
	if err != nil {
		return nil, err
	}

	// Remembered transaction-type classifications take precedence over
	// the keyword inference applied during parsing.
	for _, tx := range parsed.Transactions {
		if t, ok := mc.TransactionTypeFor(tx.QBTransactionType); ok {
			tx.Type = t
		}
	}

	partition := mc.ClassifyDiscovered(parsed.DiscoveredAccounts, s.log)

	s.log.WithFields(logger.Fields{
		"filename":     filename,
		"dialect":      string(dialect),
		"transactions": len(parsed.Transactions),
		"discovered":   len(parsed.DiscoveredAccounts),
		"unmapped":     len(partition.Unmapped),
		"warnings":     len(parsed.Warnings),
	}).Info("Upload prepared")

	return &Preview{
		Dialect:   dialect,
		Filename:  filename,
		Parsed:    parsed,
		Partition: partition,
		Mapping:   mc,
	}, nil
}

// Summary reports what a committed import did.
type Summary struct {
	BatchID      string         `json:"batch_id"`
	Transactions int            `json:"transactions"`
	Skipped      int            `json:"skipped,omitempty"`
	Linked       *linker.Result `json:"linked,omitempty"`
	Warnings     []string       `json:"warnings,omitempty"`
}

// insertChunkSize bounds request size for batch inserts.
const insertChunkSize = 100

// Commit resolves the user's mapping decisions, persists the upload's
// transactions under a new import batch, and links them. Decisions must
// cover every unmapped name; an incomplete or invalid decision set
// fails before any record is written.
func (s *Service) Commit(ctx context.Context, preview *Preview, decisions map[string]mapping.Decision) (*Summary, error) {
	userID, err := store.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}

	resolver := mapping.NewResolver(s.store)
	if err := resolver.Resolve(ctx, preview.Partition.Unmapped, decisions, preview.Mapping); err != nil {
		return nil, err
	}

	// Transactions against ignored names are dropped before anything is
	// written. The ignored set includes names the decisions above just
	// resolved, not only names ignored on a previous import.
	transactions := make([]*models.Transaction, 0, len(preview.Parsed.Transactions))
	skipped := 0
	for _, tx := range preview.Parsed.Transactions {
		if preview.Mapping.Classify(tx.QBAccount).State == mapping.StateIgnored {
			skipped++
			continue
		}
		transactions = append(transactions, tx)
	}

	batch := &models.ImportBatch{
		UserID:      userID,
		Filename:    preview.Filename,
		FileType:    strings.TrimPrefix(filepath.Ext(preview.Filename), "."),
		Status:      models.BatchStatusPending,
		RecordCount: len(transactions),
		Metadata:    map[string]string{"dialect": string(preview.Dialect)},
		CreatedAt:   time.Now(),
	}
	if err := s.store.InsertBatch(ctx, batch); err != nil {
		return nil, errors.PersistenceError(errors.CodeWriteFailed, "import_batch", "", err)
	}

	batch.Status = models.BatchStatusProcessing
	if err := s.store.UpdateBatch(ctx, batch); err != nil {
		return nil, errors.PersistenceError(errors.CodeWriteFailed, "import_batch", batch.ID, err)
	}

	inserted := 0
	for start := 0; start < len(transactions); start += insertChunkSize {
		end := start + insertChunkSize
		if end > len(transactions) {
			end = len(transactions)
		}
		for _, tx := range transactions[start:end] {
			tx.UserID = userID
			tx.ImportBatchID = &batch.ID
			if err := s.store.InsertTransaction(ctx, tx); err != nil {
				batch.Status = models.BatchStatusFailed
				if uerr := s.store.UpdateBatch(ctx, batch); uerr != nil {
					s.log.WithError(uerr).Warn("Failed to mark batch as failed")
				}
				return nil, errors.PersistenceError(errors.CodeWriteFailed, "transaction", tx.ID, err)
			}
			inserted++
		}
	}

	linked, err := s.linker.Link(ctx, preview.Mapping, linker.ScopeUnlinkedOnly)
	if err != nil {
		return nil, err
	}

	batch.Status = models.BatchStatusCompleted
	batch.RecordCount = inserted
	if err := s.store.UpdateBatch(ctx, batch); err != nil {
		return nil, errors.PersistenceError(errors.CodeWriteFailed, "import_batch", batch.ID, err)
	}

	s.log.WithFields(logger.Fields{
		"batch_id":     batch.ID,
		"transactions": inserted,
		"skipped":      skipped,
		"linked":       linked.LinkedViaPrimary + linked.LinkedViaCounter,
	}).Info("Import committed")

	return &Summary{
		BatchID:      batch.ID,
		Transactions: inserted,
		Skipped:      skipped,
		Linked:       linked,
		Warnings:     preview.Parsed.WarningMessages(10),
	}, nil
}

// Relink re-resolves account links for the given scope using the
// current mapping state. Used after aliases or mappings change.
func (s *Service) Relink(ctx context.Context, scope linker.Scope) (*linker.Result, error) {
	mc, err := mapping.LoadContext(ctx, s.store)
	if err != nil {
		return nil, err
	}
	return s.linker.Link(ctx, mc, scope)
}

// DeleteBatch removes an import batch and all of its transactions.
func (s *Service) DeleteBatch(ctx context.Context, batchID string) (int, error) {
	if _, err := s.store.GetBatch(ctx, batchID); err != nil {
		return 0, err
	}
	deleted, err := s.store.DeleteTransactionsByBatch(ctx, batchID)
	if err != nil {
		return 0, errors.PersistenceError(errors.CodeDeleteFailed, "transaction", batchID, err)
	}
	if err := s.store.DeleteBatch(ctx, batchID); err != nil {
		return deleted, errors.PersistenceError(errors.CodeDeleteFailed, "import_batch", batchID, err)
	}
	s.log.WithFields(logger.Fields{
		"batch_id": batchID,
		"deleted":  deleted,
	}).Info("Import batch deleted")
	return deleted, nil
}
