package importer

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"qb-reconciliation-service/internal/ingest"
	"qb-reconciliation-service/internal/linker"
	"qb-reconciliation-service/internal/mapping"
	"qb-reconciliation-service/internal/models"
	"qb-reconciliation-service/internal/store"
	"qb-reconciliation-service/pkg/errors"
)

func createTestLedgerCSV() []byte {
	lines := []string{
		"My Company LLC",
		"General Ledger",
		`,Date,Transaction Type,Name,Memo/Description,Split,Amount`,
		`Chase Checking,,,,,,`,
		`,,,,Beginning Balance,,`,
		`,01/15/2024,Check,Landlord,January rent,Rent,-1500.00`,
		`,01/16/2024,Deposit,Client A,Invoice 42,Consulting Income,2000.00`,
		`Total for Chase Checking,,,,,,`,
		`Opening Balance Equity,,,,,,`,
		`,01/01/2024,Journal Entry,,Setup,Chase Checking,500.00`,
		`Total for Opening Balance Equity,,,,,,`,
	}
	return []byte(strings.Join(lines, "\n"))
}

func importerFixture(t *testing.T) (context.Context, store.Store, *Service) {
	t.Helper()
	st := store.NewMemoryStore()
	ctx := store.WithUser(context.Background(), "u1")
	return ctx, st, NewService(st)
}

func TestPrepareClassifiesDiscoveredNames(t *testing.T) {
	ctx, _, svc := importerFixture(t)

	preview, err := svc.Prepare(ctx, createTestLedgerCSV(), "ledger.csv", ingest.DialectGeneralLedger)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	if len(preview.Parsed.Transactions) != 3 {
		t.Errorf("transactions = %d, want 3", len(preview.Parsed.Transactions))
	}
	// Nothing is mapped yet, so both discovered names need decisions.
	if len(preview.Partition.Unmapped) != 2 {
		t.Fatalf("unmapped = %d, want 2", len(preview.Partition.Unmapped))
	}
	if preview.Partition.Unmapped[0].Name != "Chase Checking" {
		t.Errorf("first unmapped = %q", preview.Partition.Unmapped[0].Name)
	}
	if preview.Partition.Unmapped[0].Suggestion != mapping.StateAsset {
		t.Errorf("suggestion = %s, want asset", preview.Partition.Unmapped[0].Suggestion)
	}
}

func TestPrepareAppliesRememberedTypeClassifications(t *testing.T) {
	ctx, st, svc := importerFixture(t)

	// The keyword rules read "Deposit" as income; a remembered
	// classification wins.
	if err := st.UpsertTransactionTypeClass(ctx, "Deposit", models.ClassExpense); err != nil {
		t.Fatalf("UpsertTransactionTypeClass: %v", err)
	}

	preview, err := svc.Prepare(ctx, createTestLedgerCSV(), "ledger.csv", ingest.DialectGeneralLedger)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	found := false
	for _, tx := range preview.Parsed.Transactions {
		if tx.QBTransactionType != "Deposit" {
			continue
		}
		found = true
		if tx.Type != models.TransactionTypeExpense {
			t.Errorf("deposit type = %s, want remembered expense", tx.Type)
		}
	}
	if !found {
		t.Fatal("no deposit row in the fixture")
	}
}

func TestPrepareRequiresUser(t *testing.T) {
	_, _, svc := importerFixture(t)

	_, err := svc.Prepare(context.Background(), createTestLedgerCSV(), "ledger.csv", ingest.DialectGeneralLedger)
	if err == nil {
		t.Fatal("expected error for missing user")
	}
	if !errors.IsCategory(err, errors.CategoryAuthorization) {
		t.Errorf("expected authorization error, got %v", err)
	}
}

func TestCommitBlocksOnMissingDecisions(t *testing.T) {
	ctx, st, svc := importerFixture(t)

	preview, err := svc.Prepare(ctx, createTestLedgerCSV(), "ledger.csv", ingest.DialectGeneralLedger)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	_, err = svc.Commit(ctx, preview, nil)
	if err == nil {
		t.Fatal("expected error without decisions")
	}
	if !errors.IsCategory(err, errors.CategoryMapping) {
		t.Errorf("expected mapping error, got %v", err)
	}

	// Rejected before any persistence.
	txs, _ := st.ListTransactions(ctx, store.TransactionFilter{})
	if len(txs) != 0 {
		t.Errorf("transactions persisted despite rejection: %d", len(txs))
	}
	batches, _ := st.ListBatches(ctx)
	if len(batches) != 0 {
		t.Errorf("batches persisted despite rejection: %d", len(batches))
	}
}

func TestCommitPersistsAndLinks(t *testing.T) {
	ctx, st, svc := importerFixture(t)

	preview, err := svc.Prepare(ctx, createTestLedgerCSV(), "ledger.csv", ingest.DialectGeneralLedger)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	decisions := map[string]mapping.Decision{
		"Chase Checking": {
			State:          mapping.StateAsset,
			NewAccountName: "Chase Checking",
			AccountType:    models.AccountTypeChecking,
		},
		"Opening Balance Equity": {State: mapping.StateIgnored},
	}

	summary, err := svc.Commit(ctx, preview, decisions)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	// The Opening Balance Equity journal entry is dropped with its
	// account's ignore decision.
	if summary.Transactions != 2 {
		t.Errorf("summary.Transactions = %d, want 2", summary.Transactions)
	}
	if summary.Skipped != 1 {
		t.Errorf("summary.Skipped = %d, want 1", summary.Skipped)
	}

	batch, err := st.GetBatch(ctx, summary.BatchID)
	if err != nil {
		t.Fatalf("GetBatch: %v", err)
	}
	if batch.Status != models.BatchStatusCompleted {
		t.Errorf("batch status = %s, want completed", batch.Status)
	}
	if batch.RecordCount != 2 {
		t.Errorf("batch record count = %d, want 2", batch.RecordCount)
	}

	// The two transactions under the Chase Checking group link via the
	// primary reference.
	accountID := ""
	txs, _ := st.ListTransactions(ctx, store.TransactionFilter{})
	linkedCount := 0
	for _, tx := range txs {
		if tx.QBAccount == "Opening Balance Equity" {
			t.Errorf("ignored account's transaction persisted: %s", tx.ID)
		}
		if tx.AccountID != nil {
			linkedCount++
			accountID = *tx.AccountID
		}
	}
	if linkedCount != 2 {
		t.Errorf("linked = %d, want 2", linkedCount)
	}
	if summary.Linked.LinkedViaPrimary != 2 || summary.Linked.LinkedViaCounter != 0 {
		t.Errorf("link result = %+v, want 2 primary and 0 counter", summary.Linked)
	}

	balView, err := svc.Balances().ComputeAccountBalance(ctx, accountID)
	if err != nil {
		t.Fatalf("ComputeAccountBalance: %v", err)
	}
	// -1500 + 2000
	if !balView.Balance.Equal(decimal.NewFromInt(500)) {
		t.Errorf("balance = %s, want 500", balView.Balance)
	}
}

func TestCommitSkipsRowsOfPreviouslyIgnoredName(t *testing.T) {
	ctx, st, svc := importerFixture(t)

	if err := st.UpsertIgnoredAccount(ctx, "Opening Balance Equity"); err != nil {
		t.Fatalf("UpsertIgnoredAccount: %v", err)
	}

	preview, err := svc.Prepare(ctx, createTestLedgerCSV(), "ledger.csv", ingest.DialectGeneralLedger)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	// Only the new balance-sheet name needs a decision.
	if len(preview.Partition.Unmapped) != 1 || preview.Partition.Unmapped[0].Name != "Chase Checking" {
		t.Fatalf("unmapped = %+v, want only Chase Checking", preview.Partition.Unmapped)
	}

	summary, err := svc.Commit(ctx, preview, map[string]mapping.Decision{
		"Chase Checking": {State: mapping.StateAsset, NewAccountName: "Chase Checking"},
	})
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if summary.Transactions != 2 || summary.Skipped != 1 {
		t.Errorf("summary = %+v, want 2 transactions and 1 skipped", summary)
	}

	txs, _ := st.ListTransactions(ctx, store.TransactionFilter{})
	for _, tx := range txs {
		if tx.QBAccount == "Opening Balance Equity" {
			t.Errorf("persisted a transaction for the ignored name: %s", tx.ID)
		}
	}
	if len(txs) != 2 {
		t.Errorf("persisted = %d, want 2", len(txs))
	}
}

func TestCommitSecondImportNeedsNoDecisions(t *testing.T) {
	ctx, _, svc := importerFixture(t)

	first, err := svc.Prepare(ctx, createTestLedgerCSV(), "ledger.csv", ingest.DialectGeneralLedger)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	decisions := map[string]mapping.Decision{
		"Chase Checking":         {State: mapping.StateAsset, NewAccountName: "Chase Checking"},
		"Opening Balance Equity": {State: mapping.StateIgnored},
	}
	if _, err := svc.Commit(ctx, first, decisions); err != nil {
		t.Fatalf("first Commit: %v", err)
	}

	// Same names again: everything is already mapped.
	second, err := svc.Prepare(ctx, createTestLedgerCSV(), "ledger.csv", ingest.DialectGeneralLedger)
	if err != nil {
		t.Fatalf("second Prepare: %v", err)
	}
	if len(second.Partition.Unmapped) != 0 {
		t.Fatalf("unmapped on re-import = %d, want 0", len(second.Partition.Unmapped))
	}
	if _, err := svc.Commit(ctx, second, nil); err != nil {
		t.Errorf("second Commit with no decisions: %v", err)
	}
}

func TestDeleteBatchCascades(t *testing.T) {
	ctx, st, svc := importerFixture(t)

	preview, err := svc.Prepare(ctx, createTestLedgerCSV(), "ledger.csv", ingest.DialectGeneralLedger)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	decisions := map[string]mapping.Decision{
		"Chase Checking":         {State: mapping.StateAsset, NewAccountName: "Chase Checking"},
		"Opening Balance Equity": {State: mapping.StateIgnored},
	}
	summary, err := svc.Commit(ctx, preview, decisions)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}

	deleted, err := svc.DeleteBatch(ctx, summary.BatchID)
	if err != nil {
		t.Fatalf("DeleteBatch: %v", err)
	}
	if deleted != 2 {
		t.Errorf("deleted = %d, want 2", deleted)
	}

	txs, _ := st.ListTransactions(ctx, store.TransactionFilter{})
	if len(txs) != 0 {
		t.Errorf("transactions left after batch delete: %d", len(txs))
	}
	if _, err := st.GetBatch(ctx, summary.BatchID); err == nil {
		t.Error("batch record survived deletion")
	}
}

func TestRelinkAfterMappingChange(t *testing.T) {
	ctx, st, svc := importerFixture(t)

	preview, err := svc.Prepare(ctx, createTestLedgerCSV(), "ledger.csv", ingest.DialectGeneralLedger)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	// Only the checking account is mapped; the ignored equity journal
	// entry is dropped on import, and the checking rows' splits
	// ("Rent", "Consulting Income") resolve nothing extra.
	decisions := map[string]mapping.Decision{
		"Chase Checking":         {State: mapping.StateAsset, NewAccountName: "Chase Checking"},
		"Opening Balance Equity": {State: mapping.StateIgnored},
	}
	if _, err := svc.Commit(ctx, preview, decisions); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	result, err := svc.Relink(ctx, linker.ScopeAll)
	if err != nil {
		t.Fatalf("Relink: %v", err)
	}
	if result.Updated != 0 {
		t.Errorf("relink with unchanged mappings updated %d records, want 0", result.Updated)
	}

	txs, _ := st.ListTransactions(ctx, store.TransactionFilter{})
	for _, tx := range txs {
		if tx.Amount.Equal(decimal.NewFromInt(1500)) {
			t.Errorf("relink flipped a linked amount: %s %s", tx.QBAccount, tx.Amount)
		}
	}
}
