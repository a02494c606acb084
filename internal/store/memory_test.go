package store

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"qb-reconciliation-service/internal/models"
	"qb-reconciliation-service/pkg/errors"
)

func userCtx(userID string) context.Context {
	return WithUser(context.Background(), userID)
}

func TestCurrentUser(t *testing.T) {
	if _, err := CurrentUser(context.Background()); err == nil {
		t.Fatal("expected error for context without user")
	} else if !errors.IsCategory(err, errors.CategoryAuthorization) {
		t.Errorf("expected authorization error, got %v", err)
	}

	userID, err := CurrentUser(userCtx("u1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if userID != "u1" {
		t.Errorf("CurrentUser = %q, want u1", userID)
	}
}

func TestOperationsRejectMissingUser(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if _, err := s.ListAccounts(ctx); err == nil {
		t.Error("ListAccounts accepted missing user")
	}
	if err := s.InsertAccount(ctx, &models.Account{Name: "a"}); err == nil {
		t.Error("InsertAccount accepted missing user")
	}
	if err := s.InsertTransaction(ctx, &models.Transaction{}); err == nil {
		t.Error("InsertTransaction accepted missing user")
	}
	if err := s.UpsertIgnoredAccount(ctx, "x"); err == nil {
		t.Error("UpsertIgnoredAccount accepted missing user")
	}
}

func TestUserScoping(t *testing.T) {
	s := NewMemoryStore()
	alice := userCtx("alice")
	bob := userCtx("bob")

	account := &models.Account{Name: "Checking", Type: models.AccountTypeChecking}
	if err := s.InsertAccount(alice, account); err != nil {
		t.Fatalf("InsertAccount: %v", err)
	}

	bobAccounts, err := s.ListAccounts(bob)
	if err != nil {
		t.Fatalf("ListAccounts: %v", err)
	}
	if len(bobAccounts) != 0 {
		t.Errorf("bob sees %d of alice's accounts", len(bobAccounts))
	}

	if _, err := s.GetAccount(bob, account.ID); err == nil {
		t.Error("bob can read alice's account by id")
	}
	if err := s.DeleteAccount(bob, account.ID); err == nil {
		t.Error("bob can delete alice's account")
	}
	if _, err := s.GetAccount(alice, account.ID); err != nil {
		t.Errorf("alice cannot read her own account: %v", err)
	}
}

func TestListTransactionsOrdering(t *testing.T) {
	s := NewMemoryStore()
	ctx := userCtx("u1")
	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	// Same date: insertion order must be preserved.
	first := &models.Transaction{Date: day, Amount: decimal.NewFromInt(1), Description: "first"}
	second := &models.Transaction{Date: day, Amount: decimal.NewFromInt(2), Description: "second"}
	earlier := &models.Transaction{Date: day.AddDate(0, 0, -1), Amount: decimal.NewFromInt(3), Description: "earlier"}
	for _, tx := range []*models.Transaction{first, second, earlier} {
		if err := s.InsertTransaction(ctx, tx); err != nil {
			t.Fatalf("InsertTransaction: %v", err)
		}
	}

	txs, err := s.ListTransactions(ctx, TransactionFilter{})
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	got := []string{txs[0].Description, txs[1].Description, txs[2].Description}
	want := []string{"earlier", "first", "second"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestTransactionFilters(t *testing.T) {
	s := NewMemoryStore()
	ctx := userCtx("u1")
	accountID := "acct-1"
	batchID := "batch-1"
	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	linked := &models.Transaction{Date: day, AccountID: &accountID, ImportBatchID: &batchID}
	unlinked := &models.Transaction{Date: day.AddDate(0, 0, 1)}
	for _, tx := range []*models.Transaction{linked, unlinked} {
		if err := s.InsertTransaction(ctx, tx); err != nil {
			t.Fatalf("InsertTransaction: %v", err)
		}
	}

	byAccount, _ := s.ListTransactions(ctx, TransactionFilter{AccountID: &accountID})
	if len(byAccount) != 1 || byAccount[0].ID != linked.ID {
		t.Errorf("AccountID filter returned %d rows", len(byAccount))
	}

	byBatch, _ := s.ListTransactions(ctx, TransactionFilter{BatchID: &batchID})
	if len(byBatch) != 1 {
		t.Errorf("BatchID filter returned %d rows", len(byBatch))
	}

	unlinkedOnly, _ := s.ListTransactions(ctx, TransactionFilter{UnlinkedOnly: true})
	if len(unlinkedOnly) != 1 || unlinkedOnly[0].ID != unlinked.ID {
		t.Errorf("UnlinkedOnly filter returned %d rows", len(unlinkedOnly))
	}

	from := day.AddDate(0, 0, 1)
	ranged, _ := s.ListTransactions(ctx, TransactionFilter{From: &from})
	if len(ranged) != 1 || ranged[0].ID != unlinked.ID {
		t.Errorf("From filter returned %d rows", len(ranged))
	}
}

func TestDeleteAccountDetachesTransactions(t *testing.T) {
	s := NewMemoryStore()
	ctx := userCtx("u1")

	account := &models.Account{Name: "Checking", Type: models.AccountTypeChecking}
	if err := s.InsertAccount(ctx, account); err != nil {
		t.Fatalf("InsertAccount: %v", err)
	}
	tx := &models.Transaction{Date: time.Now(), AccountID: &account.ID}
	if err := s.InsertTransaction(ctx, tx); err != nil {
		t.Fatalf("InsertTransaction: %v", err)
	}

	if err := s.DeleteAccount(ctx, account.ID); err != nil {
		t.Fatalf("DeleteAccount: %v", err)
	}

	got, err := s.GetTransaction(ctx, tx.ID)
	if err != nil {
		t.Fatalf("transaction deleted along with account: %v", err)
	}
	if got.AccountID != nil {
		t.Errorf("transaction still linked to deleted account %q", *got.AccountID)
	}
}

func TestDeleteTransactionsByBatch(t *testing.T) {
	s := NewMemoryStore()
	ctx := userCtx("u1")
	batchID := "batch-1"

	inBatch := &models.Transaction{Date: time.Now(), ImportBatchID: &batchID}
	outside := &models.Transaction{Date: time.Now()}
	for _, tx := range []*models.Transaction{inBatch, outside} {
		if err := s.InsertTransaction(ctx, tx); err != nil {
			t.Fatalf("InsertTransaction: %v", err)
		}
	}

	deleted, err := s.DeleteTransactionsByBatch(ctx, batchID)
	if err != nil {
		t.Fatalf("DeleteTransactionsByBatch: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}
	if _, err := s.GetTransaction(ctx, outside.ID); err != nil {
		t.Errorf("transaction outside the batch was deleted: %v", err)
	}
}

func TestDeleteManualBalancesOnly(t *testing.T) {
	s := NewMemoryStore()
	ctx := userCtx("u1")

	manual := &models.AccountBalance{AccountID: "a", Date: time.Now(), Balance: decimal.NewFromInt(100), Source: models.BalanceSourceManual}
	imported := &models.AccountBalance{AccountID: "a", Date: time.Now(), Balance: decimal.NewFromInt(200), Source: models.BalanceSourceImport}
	for _, b := range []*models.AccountBalance{manual, imported} {
		if err := s.InsertBalance(ctx, b); err != nil {
			t.Fatalf("InsertBalance: %v", err)
		}
	}

	deleted, err := s.DeleteManualBalances(ctx, "a")
	if err != nil {
		t.Fatalf("DeleteManualBalances: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}

	remaining, _ := s.ListBalances(ctx, "a")
	if len(remaining) != 1 || remaining[0].Source != models.BalanceSourceImport {
		t.Errorf("remaining balances = %+v, want only the imported one", remaining)
	}
}

func TestUpsertIgnoredAccountIsIdempotent(t *testing.T) {
	s := NewMemoryStore()
	ctx := userCtx("u1")

	for i := 0; i < 2; i++ {
		if err := s.UpsertIgnoredAccount(ctx, "Opening Balance Equity"); err != nil {
			t.Fatalf("UpsertIgnoredAccount: %v", err)
		}
	}

	ignored, err := s.ListIgnoredAccounts(ctx)
	if err != nil {
		t.Fatalf("ListIgnoredAccounts: %v", err)
	}
	if len(ignored) != 1 {
		t.Errorf("ignored = %d entries, want 1", len(ignored))
	}
}

func TestUpsertTransactionTypeClassReplaces(t *testing.T) {
	s := NewMemoryStore()
	ctx := userCtx("u1")

	if err := s.UpsertTransactionTypeClass(ctx, "Deposit", models.ClassIncome); err != nil {
		t.Fatalf("UpsertTransactionTypeClass: %v", err)
	}
	if err := s.UpsertTransactionTypeClass(ctx, "Deposit", models.ClassExpense); err != nil {
		t.Fatalf("UpsertTransactionTypeClass: %v", err)
	}

	classes, err := s.ListTransactionTypeClasses(ctx)
	if err != nil {
		t.Fatalf("ListTransactionTypeClasses: %v", err)
	}
	if len(classes) != 1 {
		t.Fatalf("classes = %d entries, want 1", len(classes))
	}
	if classes[0].Class != models.ClassExpense {
		t.Errorf("class = %s, want expense after upsert", classes[0].Class)
	}
}
