package mapping

import (
	"context"
	"strings"
	"time"

	"qb-reconciliation-service/internal/models"
	"qb-reconciliation-service/internal/store"
	"qb-reconciliation-service/pkg/errors"
	"qb-reconciliation-service/pkg/logger"
)

// Decision is one pending mapping choice for a discovered name. Pending
// decisions accumulate in a plain map keyed by name and are persisted
// only at the explicit resolve boundary, never per selection.
type Decision struct {
	State State `json:"state"`

	// Asset/liability decisions either attach to an existing account or
	// request a new one.
	AccountID      string             `json:"account_id,omitempty"`
	NewAccountName string             `json:"new_account_name,omitempty"`
	AccountType    models.AccountType `json:"account_type,omitempty"`

	// Income/expense decisions may also attach the name to a category.
	CategoryID string `json:"category_id,omitempty"`

	// Income/expense decisions may also record the QuickBooks
	// transaction-type labels seen with the name; remembered labels
	// classify matching transactions on later imports before keyword
	// inference runs.
	TransactionTypes []string `json:"transaction_types,omitempty"`
}

// Resolver persists mapping decisions.
type Resolver struct {
	store store.Store
	log   logger.Logger
}

// NewResolver creates a Resolver backed by the given store.
func NewResolver(st store.Store) *Resolver {
	return &Resolver{
		store: st,
		log:   logger.GetGlobalLogger().WithComponent("mapping_resolver"),
	}
}

// Resolve persists a decision for every pending name. The import is
// blocked while any discovered name lacks a decision, so missing or
// invalid decisions fail the whole call before anything is written.
// Writes are then issued sequentially; a failed write aborts with that
// record's identity (earlier writes stay in place).
func (r *Resolver) Resolve(ctx context.Context, pending []UnmappedName, decisions map[string]Decision, mc *Context) error {
	var missing, invalid []string
	for _, p := range pending {
		decision, ok := decisions[p.Name]
		if !ok {
			missing = append(missing, p.Name)
			continue
		}
		if !decision.State.IsValid() {
			invalid = append(invalid, p.Name)
		}
	}
	if len(missing) > 0 {
		return errors.MappingError(errors.CodeUnmappedNames, missing)
	}
	if len(invalid) > 0 {
		return errors.MappingError(errors.CodeUnknownDecision, invalid)
	}

	for _, p := range pending {
		decision := decisions[p.Name]
		if err := r.applyDecision(ctx, p, decision, mc); err != nil {
			r.log.WithError(err).WithField("name", p.Name).Error("Failed to persist mapping decision")
			return err
		}
		r.log.WithFields(logger.Fields{
			"name":  p.Name,
			"state": string(decision.State),
		}).Info("Mapping decision persisted")
	}
	return nil
}

func (r *Resolver) applyDecision(ctx context.Context, pending UnmappedName, decision Decision, mc *Context) error {
	switch decision.State {
	case StateIgnored:
		if err := r.store.UpsertIgnoredAccount(ctx, pending.Name); err != nil {
			return err
		}
		mc.Ignored[foldName(pending.Name)] = true
		return nil

	case StateAsset, StateLiability:
		return r.attachToAccount(ctx, pending, decision, mc)

	case StateIncome, StateExpense:
		class := models.ClassExpense
		if decision.State == StateIncome {
			class = models.ClassIncome
		}
		if err := r.store.UpsertAccountNameClass(ctx, pending.Name, class); err != nil {
			return err
		}
		mc.NameClasses[foldName(pending.Name)] = class
		for _, label := range decision.TransactionTypes {
			if err := r.store.UpsertTransactionTypeClass(ctx, label, class); err != nil {
				return err
			}
			mc.TypeClasses[foldName(label)] = class
		}
		if decision.CategoryID != "" {
			return r.attachToCategory(ctx, pending.Name, decision.CategoryID)
		}
		return nil

	default:
		return errors.MappingError(errors.CodeUnknownDecision, []string{pending.Name})
	}
}

// attachToAccount appends the QuickBooks name to an account's alias set,
// creating the account first when the decision asks for a new one. A
// requested new account whose display name already exists is attached
// to, never duplicated.
func (r *Resolver) attachToAccount(ctx context.Context, pending UnmappedName, decision Decision, mc *Context) error {
	var account *models.Account

	switch {
	case decision.AccountID != "":
		existing, err := r.store.GetAccount(ctx, decision.AccountID)
		if err != nil {
			return err
		}
		account = existing

	case decision.NewAccountName != "":
		if existing := mc.AccountByName(decision.NewAccountName); existing != nil {
			account = existing
			break
		}

		accountType := decision.AccountType
		if !accountType.IsValid() {
			accountType = defaultTypeFor(decision.State, pending.SuggestedType)
		}
		account = &models.Account{
			Name:      strings.TrimSpace(decision.NewAccountName),
			Type:      accountType,
			Bucket:    bucketFor(decision.State, accountType),
			Active:    true,
			QBAliases: []string{pending.Name},
			CreatedAt: time.Now(),
		}
		if err := r.store.InsertAccount(ctx, account); err != nil {
			return errors.PersistenceError(errors.CodeWriteFailed, "account", account.Name, err)
		}
		mc.Accounts = append(mc.Accounts, account)
		return nil

	default:
		return errors.MappingError(errors.CodeUnknownDecision, []string{pending.Name}).
			WithSuggestion("asset/liability decisions need an existing account or a new account name")
	}

	if account.AddAlias(pending.Name) {
		if err := r.store.UpdateAccount(ctx, account); err != nil {
			return errors.PersistenceError(errors.CodeWriteFailed, "account", account.ID, err)
		}
	}
	return nil
}

func (r *Resolver) attachToCategory(ctx context.Context, name, categoryID string) error {
	category, err := r.store.GetCategory(ctx, categoryID)
	if err != nil {
		return err
	}
	if category.AddAlias(name) {
		if err := r.store.UpdateCategory(ctx, category); err != nil {
			return errors.PersistenceError(errors.CodeWriteFailed, "category", category.ID, err)
		}
	}
	return nil
}

// defaultTypeFor picks a concrete account type when the decision didn't
// name one: the ingestion heuristic's guess when it agrees with the
// chosen side, else a generic type for that side.
func defaultTypeFor(state State, suggested models.AccountType) models.AccountType {
	if suggested.IsValid() && suggested.IsLiability() == (state == StateLiability) {
		return suggested
	}
	if state == StateLiability {
		return models.AccountTypeLoan
	}
	return models.AccountTypeChecking
}

func bucketFor(state State, accountType models.AccountType) models.NetWorthBucket {
	if state == StateLiability {
		return models.BucketLiabilities
	}
	return models.DefaultBucket(accountType)
}
