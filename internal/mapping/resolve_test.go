package mapping

import (
	"context"
	"testing"

	"qb-reconciliation-service/internal/models"
	"qb-reconciliation-service/internal/store"
	"qb-reconciliation-service/pkg/errors"
)

func resolverFixture(t *testing.T) (context.Context, store.Store, *Resolver, *Context) {
	t.Helper()
	st := store.NewMemoryStore()
	ctx := store.WithUser(context.Background(), "u1")
	mc, err := LoadContext(ctx, st)
	if err != nil {
		t.Fatalf("LoadContext: %v", err)
	}
	return ctx, st, NewResolver(st), mc
}

func TestResolveRejectsMissingDecisionsBeforeWriting(t *testing.T) {
	ctx, st, resolver, mc := resolverFixture(t)

	pending := []UnmappedName{
		{Name: "Chase Checking", Suggestion: StateAsset},
		{Name: "Pet Supplies", Suggestion: StateExpense},
	}
	decisions := map[string]Decision{
		"Chase Checking": {State: StateAsset, NewAccountName: "Chase Checking", AccountType: models.AccountTypeChecking},
	}

	err := resolver.Resolve(ctx, pending, decisions, mc)
	if err == nil {
		t.Fatal("expected error for missing decision")
	}
	if !errors.IsCategory(err, errors.CategoryMapping) {
		t.Errorf("expected mapping error, got %v", err)
	}

	// Rejection happens before any write.
	accounts, _ := st.ListAccounts(ctx)
	if len(accounts) != 0 {
		t.Errorf("accounts written despite rejection: %d", len(accounts))
	}
}

func TestResolveRejectsInvalidState(t *testing.T) {
	ctx, st, resolver, mc := resolverFixture(t)

	pending := []UnmappedName{{Name: "Mystery"}}
	decisions := map[string]Decision{"Mystery": {State: "bogus"}}

	if err := resolver.Resolve(ctx, pending, decisions, mc); err == nil {
		t.Fatal("expected error for invalid decision state")
	}
	classes, _ := st.ListAccountNameClasses(ctx)
	if len(classes) != 0 {
		t.Errorf("records written despite rejection: %d", len(classes))
	}
}

func TestResolveCreatesAccountWithAlias(t *testing.T) {
	ctx, st, resolver, mc := resolverFixture(t)

	pending := []UnmappedName{{
		Name:           "Chase Checking",
		Suggestion:     StateAsset,
		SuggestedType:  models.AccountTypeChecking,
		IsBalanceSheet: true,
	}}
	decisions := map[string]Decision{
		"Chase Checking": {State: StateAsset, NewAccountName: "Chase Checking"},
	}

	if err := resolver.Resolve(ctx, pending, decisions, mc); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	accounts, _ := st.ListAccounts(ctx)
	if len(accounts) != 1 {
		t.Fatalf("accounts = %d, want 1", len(accounts))
	}
	account := accounts[0]
	if account.Type != models.AccountTypeChecking {
		t.Errorf("type = %s, want suggested checking", account.Type)
	}
	if !account.HasAlias("Chase Checking") {
		t.Error("alias not seeded on the new account")
	}
	if !account.Active {
		t.Error("new account should be active")
	}

	// The in-memory mapping context sees the new account immediately.
	if mc.Classify("Chase Checking").State != StateAsset {
		t.Error("mapping context not updated with the new account")
	}
}

func TestResolveAttachesToExistingAccountByName(t *testing.T) {
	ctx, st, resolver, mc := resolverFixture(t)

	existing := &models.Account{
		Name:      "Visa",
		Type:      models.AccountTypeCreditCard,
		Active:    true,
		QBAliases: []string{"Visa"},
	}
	if err := st.InsertAccount(ctx, existing); err != nil {
		t.Fatalf("InsertAccount: %v", err)
	}
	mc.Accounts = append(mc.Accounts, existing)

	pending := []UnmappedName{{Name: "Visa Credit Card", Suggestion: StateLiability}}
	decisions := map[string]Decision{
		"Visa Credit Card": {State: StateLiability, NewAccountName: "Visa"},
	}

	if err := resolver.Resolve(ctx, pending, decisions, mc); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	accounts, _ := st.ListAccounts(ctx)
	if len(accounts) != 1 {
		t.Fatalf("accounts = %d, want 1 (no duplicate created)", len(accounts))
	}
	if !accounts[0].HasAlias("Visa Credit Card") {
		t.Error("alias not added to the existing account")
	}
}

func TestResolveIgnoredAndClassDecisions(t *testing.T) {
	ctx, st, resolver, mc := resolverFixture(t)

	pending := []UnmappedName{
		{Name: "Opening Balance Equity"},
		{Name: "Consulting Income"},
		{Name: "Pet Supplies"},
	}
	decisions := map[string]Decision{
		"Opening Balance Equity": {State: StateIgnored},
		"Consulting Income":      {State: StateIncome},
		"Pet Supplies":           {State: StateExpense},
	}

	if err := resolver.Resolve(ctx, pending, decisions, mc); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	ignored, _ := st.ListIgnoredAccounts(ctx)
	if len(ignored) != 1 || ignored[0].Name != "Opening Balance Equity" {
		t.Errorf("ignored = %+v", ignored)
	}

	classes, _ := st.ListAccountNameClasses(ctx)
	if len(classes) != 2 {
		t.Fatalf("name classes = %d, want 2", len(classes))
	}
	byName := map[string]models.IncomeExpense{}
	for _, c := range classes {
		byName[c.Name] = c.Class
	}
	if byName["Consulting Income"] != models.ClassIncome {
		t.Errorf("Consulting Income class = %s", byName["Consulting Income"])
	}
	if byName["Pet Supplies"] != models.ClassExpense {
		t.Errorf("Pet Supplies class = %s", byName["Pet Supplies"])
	}
}

func TestResolveIgnoredUpdatesContext(t *testing.T) {
	ctx, _, resolver, mc := resolverFixture(t)

	pending := []UnmappedName{{Name: "Opening Balance Equity"}}
	decisions := map[string]Decision{
		"Opening Balance Equity": {State: StateIgnored},
	}

	if err := resolver.Resolve(ctx, pending, decisions, mc); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	// The in-memory context sees the ignore immediately, so the same
	// pipeline run can drop the name's transactions.
	if mc.Classify("Opening Balance Equity").State != StateIgnored {
		t.Error("mapping context not updated with the ignore decision")
	}
}

func TestResolveRecordsTransactionTypeClasses(t *testing.T) {
	ctx, st, resolver, mc := resolverFixture(t)

	pending := []UnmappedName{{Name: "Bank Fees"}}
	decisions := map[string]Decision{
		"Bank Fees": {State: StateExpense, TransactionTypes: []string{"Service Charge"}},
	}

	if err := resolver.Resolve(ctx, pending, decisions, mc); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	classes, _ := st.ListTransactionTypeClasses(ctx)
	if len(classes) != 1 || classes[0].Class != models.ClassExpense {
		t.Fatalf("type classes = %+v, want one expense record", classes)
	}

	txType, ok := mc.TransactionTypeFor("service charge")
	if !ok || txType != models.TransactionTypeExpense {
		t.Errorf("TransactionTypeFor = %s, %v; want expense", txType, ok)
	}
}

func TestResolveAttachesCategoryAlias(t *testing.T) {
	ctx, st, resolver, mc := resolverFixture(t)

	category := &models.Category{Name: "Housing", Type: models.CategoryTypeExpense}
	if err := st.InsertCategory(ctx, category); err != nil {
		t.Fatalf("InsertCategory: %v", err)
	}

	pending := []UnmappedName{{Name: "Rent"}}
	decisions := map[string]Decision{
		"Rent": {State: StateExpense, CategoryID: category.ID},
	}

	if err := resolver.Resolve(ctx, pending, decisions, mc); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	got, err := st.GetCategory(ctx, category.ID)
	if err != nil {
		t.Fatalf("GetCategory: %v", err)
	}
	if !got.HasAlias("Rent") {
		t.Error("category alias not added")
	}
}
