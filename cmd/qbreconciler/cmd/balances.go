package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"qb-reconciliation-service/internal/ingest"
	"qb-reconciliation-service/internal/mapping"
	"qb-reconciliation-service/internal/models"
	"qb-reconciliation-service/pkg/errors"
)

var (
	balPaths       []string
	balDialect     string
	balAccount     string
	balLedger      bool
	balLedgerFrom  string
	balLedgerTo    string
	balAnchorDate  string
	balAnchorValue string
)

var balancesCmd = &cobra.Command{
	Use:   "balances",
	Short: "Compute account balances from imported transactions",
	Long: `Balances imports the given files, then computes the named account's
balance: the latest manual starting balance plus all linked transactions
dated on or after it. Pass --ledger for the running ledger instead of a
single figure. --starting-balance and --starting-date set a manual
anchor before computing.`,
	RunE: runBalances,
}

func init() {
	rootCmd.AddCommand(balancesCmd)

	balancesCmd.Flags().StringSliceVarP(&balPaths, "file", "f", nil, "export file to import (repeatable)")
	balancesCmd.Flags().StringVarP(&balDialect, "dialect", "d", string(ingest.DialectGeneralLedger), "export dialect")
	balancesCmd.Flags().StringVarP(&balAccount, "account", "a", "", "account name or QuickBooks alias")
	balancesCmd.Flags().BoolVar(&balLedger, "ledger", false, "print the running ledger")
	balancesCmd.Flags().StringVar(&balLedgerFrom, "from", "", "limit the ledger to rows on or after this date")
	balancesCmd.Flags().StringVar(&balLedgerTo, "to", "", "limit the ledger to rows on or before this date")
	balancesCmd.Flags().StringVar(&balAnchorDate, "starting-date", "", "manual starting balance date (YYYY-MM-DD)")
	balancesCmd.Flags().StringVar(&balAnchorValue, "starting-balance", "", "manual starting balance amount")

	balancesCmd.MarkFlagRequired("file")
	balancesCmd.MarkFlagRequired("account")
}

func runBalances(cmd *cobra.Command, args []string) error {
	dialect := ingest.Dialect(balDialect)
	if !dialect.IsValid() {
		return errors.ConfigurationError("dialect", balDialect, nil)
	}

	gen, err := newReportGenerator()
	if err != nil {
		return err
	}

	ctx, svc := newPipeline()
	var mc *mapping.Context
	for _, path := range balPaths {
		_, preview, err := importFile(ctx, svc, path, dialect, nil, true)
		if err != nil {
			return err
		}
		mc = preview.Mapping
	}

	account := mc.AccountByName(balAccount)
	if account == nil {
		account = mc.AccountByAlias(balAccount)
	}
	if account == nil {
		return errors.New(errors.CategoryValidation, errors.CodeNotFound,
			fmt.Sprintf("no account named %q", balAccount))
	}

	if balAnchorValue != "" {
		if balAnchorDate == "" {
			return errors.ConfigurationError("starting-date", "", fmt.Errorf("--starting-balance requires --starting-date"))
		}
		date, err := models.ParseDate(balAnchorDate)
		if err != nil {
			return err
		}
		amount, err := models.ParseAmount(balAnchorValue)
		if err != nil {
			return err
		}
		if err := svc.Balances().SetStartingBalance(ctx, account.ID, date, amount); err != nil {
			return err
		}
	}

	if balLedger {
		var from, to *time.Time
		if balLedgerFrom != "" {
			date, err := models.ParseDate(balLedgerFrom)
			if err != nil {
				return err
			}
			from = &date
		}
		if balLedgerTo != "" {
			date, err := models.ParseDate(balLedgerTo)
			if err != nil {
				return err
			}
			to = &date
		}
		rows, err := svc.Balances().ComputeLedger(ctx, account.ID, from, to)
		if err != nil {
			return err
		}
		return gen.Ledger(os.Stdout, rows)
	}

	view, err := svc.Balances().ComputeAccountBalance(ctx, account.ID)
	if err != nil {
		return err
	}
	return gen.AccountBalance(os.Stdout, view)
}
