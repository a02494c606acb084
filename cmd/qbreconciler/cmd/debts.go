package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"qb-reconciliation-service/internal/balance"
	"qb-reconciliation-service/internal/ingest"
	"qb-reconciliation-service/pkg/errors"
)

var (
	debtPaths    []string
	debtDialect  string
	debtStrategy string
)

var debtsCmd = &cobra.Command{
	Use:   "debts",
	Short: "Compute the liability payoff plan",
	Long: `Debts imports the given files, computes every liability account's
balance, and orders them under a payoff strategy: avalanche (highest
interest rate first), snowball (smallest balance first), or manual
(user-assigned priority). When no strategy is given, manual is used if
any debt carries a priority, else avalanche. Months to payoff come from
the standard
amortization formula using each account's interest rate and minimum
payment.`,
	RunE: runDebts,
}

func init() {
	rootCmd.AddCommand(debtsCmd)

	debtsCmd.Flags().StringSliceVarP(&debtPaths, "file", "f", nil, "export file to import (repeatable)")
	debtsCmd.Flags().StringVarP(&debtDialect, "dialect", "d", string(ingest.DialectGeneralLedger), "export dialect")
	debtsCmd.Flags().StringVarP(&debtStrategy, "strategy", "s", "", "payoff strategy (avalanche, snowball, manual; default manual when any debt has a priority, else avalanche)")

	debtsCmd.MarkFlagRequired("file")
}

func runDebts(cmd *cobra.Command, args []string) error {
	dialect := ingest.Dialect(debtDialect)
	if !dialect.IsValid() {
		return errors.ConfigurationError("dialect", debtDialect, nil)
	}
	strategy := balance.PayoffStrategy(debtStrategy)
	if debtStrategy != "" && !strategy.IsValid() {
		return errors.ConfigurationError("strategy", debtStrategy, nil)
	}

	gen, err := newReportGenerator()
	if err != nil {
		return err
	}

	ctx, svc := newPipeline()
	for _, path := range debtPaths {
		if _, _, err := importFile(ctx, svc, path, dialect, nil, true); err != nil {
			return err
		}
	}

	view, err := svc.Balances().ComputeDebtView(ctx, strategy)
	if err != nil {
		return err
	}
	return gen.DebtView(os.Stdout, view)
}
