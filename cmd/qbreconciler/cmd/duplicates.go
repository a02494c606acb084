package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"qb-reconciliation-service/internal/ingest"
	"qb-reconciliation-service/pkg/errors"
)

var (
	dupPaths     []string
	dupDialect   string
	dupApply     bool
	dupPotential bool
)

var duplicatesCmd = &cobra.Command{
	Use:   "duplicates",
	Short: "Find duplicate transactions across imports",
	Long: `Duplicates imports the given files in order, each as its own batch,
then scans for duplicates.

By default it reports exact duplicate groups (same date, amount,
normalized description, and QuickBooks account) with the earliest
transaction proposed as the keeper. Pass --apply to delete the proposed
candidates. Pass --potential to instead report same-day same-amount
transactions from the last imported batch whose descriptions differ
from existing records.`,
	RunE: runDuplicates,
}

func init() {
	rootCmd.AddCommand(duplicatesCmd)

	duplicatesCmd.Flags().StringSliceVarP(&dupPaths, "file", "f", nil, "export file to import (repeatable)")
	duplicatesCmd.Flags().StringVarP(&dupDialect, "dialect", "d", string(ingest.DialectGeneralLedger), "export dialect")
	duplicatesCmd.Flags().BoolVar(&dupApply, "apply", false, "delete the proposed duplicate candidates")
	duplicatesCmd.Flags().BoolVar(&dupPotential, "potential", false, "report potential duplicates for the last imported batch")

	duplicatesCmd.MarkFlagRequired("file")
}

func runDuplicates(cmd *cobra.Command, args []string) error {
	dialect := ingest.Dialect(dupDialect)
	if !dialect.IsValid() {
		return errors.ConfigurationError("dialect", dupDialect, nil)
	}

	gen, err := newReportGenerator()
	if err != nil {
		return err
	}

	ctx, svc := newPipeline()
	var lastBatchID string
	for _, path := range dupPaths {
		summary, _, err := importFile(ctx, svc, path, dialect, nil, true)
		if err != nil {
			return err
		}
		lastBatchID = summary.BatchID
	}

	if dupPotential {
		pairs, err := svc.Duplicates().FindPotentialDuplicates(ctx, lastBatchID)
		if err != nil {
			return err
		}
		return gen.PotentialPairs(os.Stdout, pairs)
	}

	groups, err := svc.Duplicates().FindDuplicates(ctx)
	if err != nil {
		return err
	}
	if err := gen.DuplicateGroups(os.Stdout, groups); err != nil {
		return err
	}

	if dupApply {
		var ids []string
		for _, group := range groups {
			ids = append(ids, group.Candidates()...)
		}
		deleted, err := svc.Duplicates().DeleteCandidates(ctx, ids)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Deleted %d duplicate transactions\n", deleted)
	}
	return nil
}
