package balance

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"qb-reconciliation-service/internal/models"
)

// PayoffStrategy orders debts for the payoff plan.
type PayoffStrategy string

const (
	StrategyAvalanche PayoffStrategy = "avalanche"
	StrategySnowball  PayoffStrategy = "snowball"
	StrategyManual    PayoffStrategy = "manual"
)

// IsValid reports whether the strategy is one of the known values.
func (s PayoffStrategy) IsValid() bool {
	switch s {
	case StrategyAvalanche, StrategySnowball, StrategyManual:
		return true
	}
	return false
}

// DebtEntry is one liability account in the debt view.
type DebtEntry struct {
	Account        *models.Account  `json:"account"`
	Balance        decimal.Decimal  `json:"balance"`
	MonthsToPayoff *int             `json:"months_to_payoff,omitempty"`
	PayoffDate     *time.Time       `json:"payoff_date,omitempty"`
	NeverPayoff    bool             `json:"never_payoff"`
}

// DebtView aggregates all liability accounts under a payoff strategy.
type DebtView struct {
	Strategy    PayoffStrategy  `json:"strategy"`
	Entries     []*DebtEntry    `json:"entries"`
	TotalDebt   decimal.Decimal `json:"total_debt"`
	WeightedAPR decimal.Decimal `json:"weighted_apr"`
}

// CalculateMonthsToPayoff returns the number of monthly payments needed
// to amortize balance at the given annual percentage rate. A nil result
// means the debt is never paid off at that payment: either the payment
// is not positive, or it does not cover the monthly interest.
func CalculateMonthsToPayoff(balance, apr, payment decimal.Decimal) *int {
	if balance.LessThanOrEqual(decimal.Zero) {
		zero := 0
		return &zero
	}
	if payment.LessThanOrEqual(decimal.Zero) {
		return nil
	}

	b, _ := balance.Float64()
	p, _ := payment.Float64()

	if apr.LessThanOrEqual(decimal.Zero) {
		months := int(math.Ceil(b / p))
		return &months
	}

	a, _ := apr.Float64()
	r := a / 100 / 12
	if p <= b*r {
		return nil
	}
	months := int(math.Ceil(-math.Log(1-r*b/p) / math.Log(1+r)))
	return &months
}

// ComputeDebtView builds the liability payoff view. Liability balances
// are reported as positive amounts owed. An empty strategy selects
// manual when any debt carries a payoff priority, avalanche otherwise;
// the view reports the strategy actually applied. The weighted APR
// averages interest rates by outstanding balance over accounts that
// carry a rate; rate-less debts are excluded from the average, not
// treated as zero.
func (e *Engine) ComputeDebtView(ctx context.Context, strategy PayoffStrategy) (*DebtView, error) {
	accounts, err := e.store.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}

	view := &DebtView{
		TotalDebt:   decimal.Zero,
		WeightedAPR: decimal.Zero,
	}

	rateWeighted := decimal.Zero
	rateTotal := decimal.Zero
	anyPriority := false

	for _, account := range accounts {
		if !account.IsLiability() || !account.Active {
			continue
		}
		if account.PayoffPriority != nil {
			anyPriority = true
		}

		bal, err := e.ComputeAccountBalance(ctx, account.ID)
		if err != nil {
			return nil, err
		}
		owed := bal.Balance.Abs()

		entry := &DebtEntry{Account: account, Balance: owed}
		if account.MinimumPayment != nil {
			apr := decimal.Zero
			if account.InterestRate != nil {
				apr = *account.InterestRate
			}
			months := CalculateMonthsToPayoff(owed, apr, *account.MinimumPayment)
			if months == nil {
				entry.NeverPayoff = true
			} else {
				entry.MonthsToPayoff = months
				date := time.Now().AddDate(0, *months, 0)
				entry.PayoffDate = &date
			}
		}

		view.Entries = append(view.Entries, entry)
		view.TotalDebt = view.TotalDebt.Add(owed)
		if account.InterestRate != nil && account.InterestRate.GreaterThan(decimal.Zero) {
			rateWeighted = rateWeighted.Add(account.InterestRate.Mul(owed))
			rateTotal = rateTotal.Add(owed)
		}
	}

	if rateTotal.GreaterThan(decimal.Zero) {
		view.WeightedAPR = rateWeighted.Div(rateTotal)
	}

	switch {
	case strategy == "":
		strategy = StrategyAvalanche
		if anyPriority {
			strategy = StrategyManual
		}
	case strategy == StrategyManual && !anyPriority:
		strategy = StrategyAvalanche
	}
	view.Strategy = strategy

	sortEntries(view.Entries, strategy, anyPriority)
	return view, nil
}

// sortEntries orders debts for the chosen strategy. Manual ordering is
// used set-wide as soon as any account carries a payoff priority;
// unprioritized accounts follow the prioritized ones in avalanche
// order.
func sortEntries(entries []*DebtEntry, strategy PayoffStrategy, anyPriority bool) {
	if strategy == StrategyManual && !anyPriority {
		strategy = StrategyAvalanche
	}

	switch strategy {
	case StrategyManual:
		sort.SliceStable(entries, func(i, j int) bool {
			pi, pj := entries[i].Account.PayoffPriority, entries[j].Account.PayoffPriority
			switch {
			case pi != nil && pj != nil:
				return *pi < *pj
			case pi != nil:
				return true
			case pj != nil:
				return false
			default:
				return avalancheLess(entries[i], entries[j])
			}
		})
	case StrategySnowball:
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].Balance.LessThan(entries[j].Balance)
		})
	default:
		sort.SliceStable(entries, func(i, j int) bool {
			return avalancheLess(entries[i], entries[j])
		})
	}
}

// avalancheLess orders by interest rate descending, then balance
// descending. A missing rate sorts as zero.
func avalancheLess(a, b *DebtEntry) bool {
	ra, rb := decimal.Zero, decimal.Zero
	if a.Account.InterestRate != nil {
		ra = *a.Account.InterestRate
	}
	if b.Account.InterestRate != nil {
		rb = *b.Account.InterestRate
	}
	if !ra.Equal(rb) {
		return ra.GreaterThan(rb)
	}
	return a.Balance.GreaterThan(b.Balance)
}
