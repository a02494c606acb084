// Package mapping classifies discovered QuickBooks account names against
// the user's persisted mapping records, and persists the user's mapping
// decisions.
//
// The persisted mapping state is loaded once per pipeline invocation
// into a Context and threaded through classification and linking calls,
// rather than re-queried ad hoc. Classification is re-derived for every
// discovered name on every import, because mappings can change between
// imports.
package mapping

import (
	"context"
	"strings"

	"qb-reconciliation-service/internal/models"
	"qb-reconciliation-service/internal/store"
	"qb-reconciliation-service/internal/textmatch"
	"qb-reconciliation-service/pkg/logger"
)

// State is the disposition of a QuickBooks name. A name is unmapped
// until the user decides; a decision is terminal until the user edits or
// deletes the mapping.
type State string

const (
	StateUnmapped  State = "unmapped"
	StateIgnored   State = "ignored"
	StateAsset     State = "asset"
	StateLiability State = "liability"
	StateIncome    State = "income"
	StateExpense   State = "expense"
)

// IsValid checks the state is a user-assignable disposition.
func (s State) IsValid() bool {
	switch s {
	case StateIgnored, StateAsset, StateLiability, StateIncome, StateExpense:
		return true
	}
	return false
}

// Context holds the four persisted mapping sets for one pipeline run.
type Context struct {
	Ignored     map[string]bool
	Accounts    []*models.Account
	Categories  []*models.Category
	TypeClasses map[string]models.IncomeExpense
	NameClasses map[string]models.IncomeExpense
}

// LoadContext reads the user's mapping records from the store. Call once
// at the start of a pipeline invocation.
func LoadContext(ctx context.Context, st store.Store) (*Context, error) {
	ignored, err := st.ListIgnoredAccounts(ctx)
	if err != nil {
		return nil, err
	}
	accounts, err := st.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}
	categories, err := st.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	typeClasses, err := st.ListTransactionTypeClasses(ctx)
	if err != nil {
		return nil, err
	}
	nameClasses, err := st.ListAccountNameClasses(ctx)
	if err != nil {
		return nil, err
	}

	mc := &Context{
		Ignored:     make(map[string]bool, len(ignored)),
		Accounts:    accounts,
		Categories:  categories,
		TypeClasses: make(map[string]models.IncomeExpense, len(typeClasses)),
		NameClasses: make(map[string]models.IncomeExpense, len(nameClasses)),
	}
	for _, record := range ignored {
		mc.Ignored[foldName(record.Name)] = true
	}
	for _, record := range typeClasses {
		mc.TypeClasses[foldName(record.QBType)] = record.Class
	}
	for _, record := range nameClasses {
		mc.NameClasses[foldName(record.Name)] = record.Class
	}
	return mc, nil
}

func foldName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Classification is the resolved disposition of one QuickBooks name.
type Classification struct {
	State    State            `json:"state"`
	Account  *models.Account  `json:"account,omitempty"`
	Category *models.Category `json:"category,omitempty"`
}

// Classify resolves a QuickBooks name against the mapping sets, in
// order: ignored set, account aliases, category aliases, classification
// memory. Names nothing matches are unmapped.
func (mc *Context) Classify(name string) Classification {
	folded := foldName(name)

	if mc.Ignored[folded] {
		return Classification{State: StateIgnored}
	}

	for _, account := range mc.Accounts {
		if account.HasAlias(name) {
			state := StateAsset
			if account.IsLiability() {
				state = StateLiability
			}
			return Classification{State: state, Account: account}
		}
	}

	for _, category := range mc.Categories {
		if category.HasAlias(name) {
			state := StateExpense
			if category.Type == models.CategoryTypeIncome {
				state = StateIncome
			}
			return Classification{State: state, Category: category}
		}
	}

	if class, ok := mc.NameClasses[folded]; ok {
		return Classification{State: classToState(class)}
	}
	if class, ok := mc.TypeClasses[folded]; ok {
		return Classification{State: classToState(class)}
	}

	return Classification{State: StateUnmapped}
}

func classToState(class models.IncomeExpense) State {
	if class == models.ClassIncome {
		return StateIncome
	}
	return StateExpense
}

// TransactionTypeFor returns the remembered classification for a
// QuickBooks transaction-type label. Remembered labels override the
// keyword inference applied at parse time.
func (mc *Context) TransactionTypeFor(label string) (models.TransactionType, bool) {
	class, ok := mc.TypeClasses[foldName(label)]
	if !ok {
		return "", false
	}
	if class == models.ClassIncome {
		return models.TransactionTypeIncome, true
	}
	return models.TransactionTypeExpense, true
}

// AccountByAlias returns the account carrying the QuickBooks name as an
// alias, or nil.
func (mc *Context) AccountByAlias(name string) *models.Account {
	if strings.TrimSpace(name) == "" {
		return nil
	}
	for _, account := range mc.Accounts {
		if account.HasAlias(name) {
			return account
		}
	}
	return nil
}

// AccountByName returns the user's account with the given display name,
// case-insensitively, or nil.
func (mc *Context) AccountByName(name string) *models.Account {
	for _, account := range mc.Accounts {
		if strings.EqualFold(strings.TrimSpace(account.Name), strings.TrimSpace(name)) {
			return account
		}
	}
	return nil
}

// UnmappedName is a discovered name awaiting a user decision, with the
// heuristic suggestion and similar already-known names attached.
type UnmappedName struct {
	Name           string             `json:"name"`
	Suggestion     State              `json:"suggestion"`
	SuggestedType  models.AccountType `json:"suggested_type"`
	IsBalanceSheet bool               `json:"is_balance_sheet"`
	Similar        []textmatch.Match  `json:"similar,omitempty"`
}

// MappedName is a discovered name an existing mapping already covers.
type MappedName struct {
	Name           string `json:"name"`
	Classification `json:"classification"`
}

// Partition is the outcome of classifying a discovered-name set.
type Partition struct {
	Unmapped []UnmappedName `json:"unmapped,omitempty"`
	Mapped   []MappedName   `json:"mapped,omitempty"`
}

// similarityThreshold for suggesting nearby known names during review.
const similarityThreshold = 0.65

// ClassifyDiscovered partitions discovered names into mapped and
// unmapped. Classifying the same set twice with no intervening mapping
// changes yields identical partitions.
func (mc *Context) ClassifyDiscovered(discovered []models.DiscoveredAccount, log logger.Logger) *Partition {
	log = log.WithComponent("classification")

	knownNames := mc.knownAliasNames()
	partition := &Partition{}

	for _, d := range discovered {
		classification := mc.Classify(d.Name)
		if classification.State != StateUnmapped {
			partition.Mapped = append(partition.Mapped, MappedName{
				Name:           d.Name,
				Classification: classification,
			})
			continue
		}

		partition.Unmapped = append(partition.Unmapped, UnmappedName{
			Name:           d.Name,
			Suggestion:     SuggestState(d),
			SuggestedType:  d.SuggestedType,
			IsBalanceSheet: d.IsBalanceSheet,
			Similar:        textmatch.FindSimilar(d.Name, knownNames, similarityThreshold),
		})
	}

	log.WithFields(logger.Fields{
		"discovered": len(discovered),
		"mapped":     len(partition.Mapped),
		"unmapped":   len(partition.Unmapped),
	}).Info("Classified discovered account names")

	return partition
}

// knownAliasNames collects every alias already mapped, used as the
// candidate pool for similarity suggestions.
func (mc *Context) knownAliasNames() []string {
	var names []string
	for _, account := range mc.Accounts {
		names = append(names, account.QBAliases...)
	}
	for _, category := range mc.Categories {
		names = append(names, category.QBAliases...)
	}
	return names
}

// SuggestState derives the per-name suggestion presented for an
// unmapped General-Ledger-discovered name.
func SuggestState(d models.DiscoveredAccount) State {
	if d.IsBalanceSheet {
		if d.SuggestedType.IsLiability() {
			return StateLiability
		}
		return StateAsset
	}

	lower := strings.ToLower(d.Name)
	for _, keyword := range []string{"income", "revenue", "sales", "interest earned"} {
		if strings.Contains(lower, keyword) {
			return StateIncome
		}
	}
	return StateExpense
}
