package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"qb-reconciliation-service/internal/models"
	"qb-reconciliation-service/pkg/errors"

	"github.com/google/uuid"
)

// MemoryStore implements Store with RWMutex-guarded maps. It is the
// backing store for the CLI and for tests.
type MemoryStore struct {
	mu sync.RWMutex

	accounts     map[string]*models.Account
	categories   map[string]*models.Category
	transactions map[string]*models.Transaction
	batches      map[string]*models.ImportBatch
	balances     map[string]*models.AccountBalance
	ignored      map[string]*models.IgnoredAccount
	typeClasses  map[string]*models.TransactionTypeClass
	nameClasses  map[string]*models.AccountNameClass

	// seq breaks date ties in ledger ordering; assigned at transaction
	// insert, monotonically increasing.
	seq int64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts:     make(map[string]*models.Account),
		categories:   make(map[string]*models.Category),
		transactions: make(map[string]*models.Transaction),
		batches:      make(map[string]*models.ImportBatch),
		balances:     make(map[string]*models.AccountBalance),
		ignored:      make(map[string]*models.IgnoredAccount),
		typeClasses:  make(map[string]*models.TransactionTypeClass),
		nameClasses:  make(map[string]*models.AccountNameClass),
	}
}

func ensureID(id string) string {
	if id == "" {
		return uuid.NewString()
	}
	return id
}

// upsertKey is the conflict key for mapping records.
func upsertKey(userID, name string) string {
	return userID + "\x00" + strings.ToLower(strings.TrimSpace(name))
}

// Accounts

func (s *MemoryStore) ListAccounts(ctx context.Context) ([]*models.Account, error) {
	userID, err := CurrentUser(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var accounts []*models.Account
	for _, account := range s.accounts {
		if account.UserID == userID {
			accounts = append(accounts, account)
		}
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].Name < accounts[j].Name })
	return accounts, nil
}

func (s *MemoryStore) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	userID, err := CurrentUser(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.accounts[id]
	if !ok || account.UserID != userID {
		return nil, errors.PersistenceError(errors.CodeNotFound, "account", id, nil)
	}
	return account, nil
}

func (s *MemoryStore) InsertAccount(ctx context.Context, account *models.Account) error {
	userID, err := CurrentUser(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	account.ID = ensureID(account.ID)
	account.UserID = userID
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now()
	}
	s.accounts[account.ID] = account
	return nil
}

func (s *MemoryStore) UpdateAccount(ctx context.Context, account *models.Account) error {
	userID, err := CurrentUser(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.accounts[account.ID]
	if !ok || existing.UserID != userID {
		return errors.PersistenceError(errors.CodeNotFound, "account", account.ID, nil)
	}
	s.accounts[account.ID] = account
	return nil
}

func (s *MemoryStore) DeleteAccount(ctx context.Context, id string) error {
	userID, err := CurrentUser(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[id]
	if !ok || account.UserID != userID {
		return errors.PersistenceError(errors.CodeNotFound, "account", id, nil)
	}
	delete(s.accounts, id)

	// Detach, not delete: transactions survive account deletion with a
	// cleared account link.
	for _, tx := range s.transactions {
		if tx.UserID == userID && tx.AccountID != nil && *tx.AccountID == id {
			tx.AccountID = nil
		}
	}
	return nil
}

// Categories

func (s *MemoryStore) ListCategories(ctx context.Context) ([]*models.Category, error) {
	userID, err := CurrentUser(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var categories []*models.Category
	for _, category := range s.categories {
		if category.UserID == userID {
			categories = append(categories, category)
		}
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i].Name < categories[j].Name })
	return categories, nil
}

func (s *MemoryStore) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	userID, err := CurrentUser(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	category, ok := s.categories[id]
	if !ok || category.UserID != userID {
		return nil, errors.PersistenceError(errors.CodeNotFound, "category", id, nil)
	}
	return category, nil
}

func (s *MemoryStore) InsertCategory(ctx context.Context, category *models.Category) error {
	userID, err := CurrentUser(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	category.ID = ensureID(category.ID)
	category.UserID = userID
	if category.CreatedAt.IsZero() {
		category.CreatedAt = time.Now()
	}
	s.categories[category.ID] = category
	return nil
}

func (s *MemoryStore) UpdateCategory(ctx context.Context, category *models.Category) error {
	userID, err := CurrentUser(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.categories[category.ID]
	if !ok || existing.UserID != userID {
		return errors.PersistenceError(errors.CodeNotFound, "category", category.ID, nil)
	}
	s.categories[category.ID] = category
	return nil
}

func (s *MemoryStore) DeleteCategory(ctx context.Context, id string) error {
	userID, err := CurrentUser(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	category, ok := s.categories[id]
	if !ok || category.UserID != userID {
		return errors.PersistenceError(errors.CodeNotFound, "category", id, nil)
	}
	delete(s.categories, id)

	for _, tx := range s.transactions {
		if tx.UserID == userID && tx.CategoryID != nil && *tx.CategoryID == id {
			tx.CategoryID = nil
		}
	}
	return nil
}

// Transactions

func (s *MemoryStore) ListTransactions(ctx context.Context, filter TransactionFilter) ([]*models.Transaction, error) {
	userID, err := CurrentUser(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var txs []*models.Transaction
	for _, tx := range s.transactions {
		if tx.UserID != userID {
			continue
		}
		if filter.AccountID != nil && (tx.AccountID == nil || *tx.AccountID != *filter.AccountID) {
			continue
		}
		if filter.BatchID != nil && (tx.ImportBatchID == nil || *tx.ImportBatchID != *filter.BatchID) {
			continue
		}
		if filter.UnlinkedOnly && tx.AccountID != nil {
			continue
		}
		if filter.From != nil && tx.Date.Before(*filter.From) {
			continue
		}
		if filter.To != nil && tx.Date.After(*filter.To) {
			continue
		}
		txs = append(txs, tx)
	}

	sort.Slice(txs, func(i, j int) bool {
		if !txs[i].Date.Equal(txs[j].Date) {
			return txs[i].Date.Before(txs[j].Date)
		}
		return txs[i].Seq < txs[j].Seq
	})
	return txs, nil
}

func (s *MemoryStore) GetTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	userID, err := CurrentUser(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, ok := s.transactions[id]
	if !ok || tx.UserID != userID {
		return nil, errors.PersistenceError(errors.CodeNotFound, "transaction", id, nil)
	}
	return tx, nil
}

func (s *MemoryStore) InsertTransaction(ctx context.Context, tx *models.Transaction) error {
	userID, err := CurrentUser(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx.ID = ensureID(tx.ID)
	tx.UserID = userID
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now()
	}
	s.seq++
	tx.Seq = s.seq
	s.transactions[tx.ID] = tx
	return nil
}

func (s *MemoryStore) UpdateTransaction(ctx context.Context, tx *models.Transaction) error {
	userID, err := CurrentUser(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.transactions[tx.ID]
	if !ok || existing.UserID != userID {
		return errors.PersistenceError(errors.CodeNotFound, "transaction", tx.ID, nil)
	}
	s.transactions[tx.ID] = tx
	return nil
}

func (s *MemoryStore) DeleteTransaction(ctx context.Context, id string) error {
	userID, err := CurrentUser(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactions[id]
	if !ok || tx.UserID != userID {
		return errors.PersistenceError(errors.CodeNotFound, "transaction", id, nil)
	}
	delete(s.transactions, id)
	return nil
}

func (s *MemoryStore) DeleteTransactionsByBatch(ctx context.Context, batchID string) (int, error) {
	userID, err := CurrentUser(ctx)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for id, tx := range s.transactions {
		if tx.UserID == userID && tx.ImportBatchID != nil && *tx.ImportBatchID == batchID {
			delete(s.transactions, id)
			deleted++
		}
	}
	return deleted, nil
}

// Import batches

func (s *MemoryStore) ListBatches(ctx context.Context) ([]*models.ImportBatch, error) {
	userID, err := CurrentUser(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var batches []*models.ImportBatch
	for _, batch := range s.batches {
		if batch.UserID == userID {
			batches = append(batches, batch)
		}
	}
	sort.Slice(batches, func(i, j int) bool { return batches[i].CreatedAt.Before(batches[j].CreatedAt) })
	return batches, nil
}

func (s *MemoryStore) GetBatch(ctx context.Context, id string) (*models.ImportBatch, error) {
	userID, err := CurrentUser(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	batch, ok := s.batches[id]
	if !ok || batch.UserID != userID {
		return nil, errors.PersistenceError(errors.CodeNotFound, "import_batch", id, nil)
	}
	return batch, nil
}

func (s *MemoryStore) InsertBatch(ctx context.Context, batch *models.ImportBatch) error {
	userID, err := CurrentUser(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batch.ID = ensureID(batch.ID)
	batch.UserID = userID
	if batch.CreatedAt.IsZero() {
		batch.CreatedAt = time.Now()
	}
	s.batches[batch.ID] = batch
	return nil
}

func (s *MemoryStore) UpdateBatch(ctx context.Context, batch *models.ImportBatch) error {
	userID, err := CurrentUser(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.batches[batch.ID]
	if !ok || existing.UserID != userID {
		return errors.PersistenceError(errors.CodeNotFound, "import_batch", batch.ID, nil)
	}
	s.batches[batch.ID] = batch
	return nil
}

func (s *MemoryStore) DeleteBatch(ctx context.Context, id string) error {
	userID, err := CurrentUser(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batch, ok := s.batches[id]
	if !ok || batch.UserID != userID {
		return errors.PersistenceError(errors.CodeNotFound, "import_batch", id, nil)
	}
	delete(s.batches, id)
	return nil
}

// Balance anchors

func (s *MemoryStore) ListBalances(ctx context.Context, accountID string) ([]*models.AccountBalance, error) {
	userID, err := CurrentUser(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var balances []*models.AccountBalance
	for _, balance := range s.balances {
		if balance.UserID == userID && balance.AccountID == accountID {
			balances = append(balances, balance)
		}
	}
	sort.Slice(balances, func(i, j int) bool { return balances[i].Date.Before(balances[j].Date) })
	return balances, nil
}

func (s *MemoryStore) InsertBalance(ctx context.Context, balance *models.AccountBalance) error {
	userID, err := CurrentUser(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	balance.ID = ensureID(balance.ID)
	balance.UserID = userID
	if balance.CreatedAt.IsZero() {
		balance.CreatedAt = time.Now()
	}
	s.balances[balance.ID] = balance
	return nil
}

func (s *MemoryStore) DeleteManualBalances(ctx context.Context, accountID string) (int, error) {
	userID, err := CurrentUser(ctx)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for id, balance := range s.balances {
		if balance.UserID == userID && balance.AccountID == accountID && balance.Source == models.BalanceSourceManual {
			delete(s.balances, id)
			deleted++
		}
	}
	return deleted, nil
}

// Mapping records

func (s *MemoryStore) ListIgnoredAccounts(ctx context.Context) ([]*models.IgnoredAccount, error) {
	userID, err := CurrentUser(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var records []*models.IgnoredAccount
	for _, record := range s.ignored {
		if record.UserID == userID {
			records = append(records, record)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Name < records[j].Name })
	return records, nil
}

func (s *MemoryStore) UpsertIgnoredAccount(ctx context.Context, name string) error {
	userID, err := CurrentUser(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := upsertKey(userID, name)
	if _, ok := s.ignored[key]; !ok {
		s.ignored[key] = &models.IgnoredAccount{
			ID:        uuid.NewString(),
			UserID:    userID,
			Name:      strings.TrimSpace(name),
			CreatedAt: time.Now(),
		}
	}
	return nil
}

func (s *MemoryStore) DeleteIgnoredAccount(ctx context.Context, name string) error {
	userID, err := CurrentUser(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.ignored, upsertKey(userID, name))
	return nil
}

func (s *MemoryStore) ListTransactionTypeClasses(ctx context.Context) ([]*models.TransactionTypeClass, error) {
	userID, err := CurrentUser(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var records []*models.TransactionTypeClass
	for _, record := range s.typeClasses {
		if record.UserID == userID {
			records = append(records, record)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].QBType < records[j].QBType })
	return records, nil
}

func (s *MemoryStore) UpsertTransactionTypeClass(ctx context.Context, qbType string, class models.IncomeExpense) error {
	userID, err := CurrentUser(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := upsertKey(userID, qbType)
	if existing, ok := s.typeClasses[key]; ok {
		existing.Class = class
		return nil
	}
	s.typeClasses[key] = &models.TransactionTypeClass{
		ID:     uuid.NewString(),
		UserID: userID,
		QBType: strings.TrimSpace(qbType),
		Class:  class,
	}
	return nil
}

func (s *MemoryStore) ListAccountNameClasses(ctx context.Context) ([]*models.AccountNameClass, error) {
	userID, err := CurrentUser(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var records []*models.AccountNameClass
	for _, record := range s.nameClasses {
		if record.UserID == userID {
			records = append(records, record)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Name < records[j].Name })
	return records, nil
}

func (s *MemoryStore) UpsertAccountNameClass(ctx context.Context, name string, class models.IncomeExpense) error {
	userID, err := CurrentUser(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := upsertKey(userID, name)
	if existing, ok := s.nameClasses[key]; ok {
		existing.Class = class
		return nil
	}
	s.nameClasses[key] = &models.AccountNameClass{
		ID:     uuid.NewString(),
		UserID: userID,
		Name:   strings.TrimSpace(name),
		Class:  class,
	}
	return nil
}
