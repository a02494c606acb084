package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"qb-reconciliation-service/internal/ingest"
	"qb-reconciliation-service/internal/mapping"
	"qb-reconciliation-service/pkg/errors"
)

var (
	importPaths   []string
	importDialect string
	decisionsFile string
	autoMap       bool
	listUnmapped  bool
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import QuickBooks export files",
	Long: `Import parses one or more QuickBooks export files, classifies the
account names they reference, resolves mapping decisions, and persists
the transactions.

Unmapped names need a decision before anything is written. Either pass
--auto to accept the classifier's suggestions, supply --decisions with a
JSON file keyed by name, or pass --list-unmapped to print the pending
names and exit without importing.`,
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringSliceVarP(&importPaths, "file", "f", nil, "export file to import (repeatable)")
	importCmd.Flags().StringVarP(&importDialect, "dialect", "d", string(ingest.DialectGeneralLedger), "export dialect (general_ledger, transaction_detail, holdings)")
	importCmd.Flags().StringVar(&decisionsFile, "decisions", "", "JSON file of mapping decisions keyed by name")
	importCmd.Flags().BoolVar(&autoMap, "auto", false, "accept suggested mappings for unmapped names")
	importCmd.Flags().BoolVar(&listUnmapped, "list-unmapped", false, "print unmapped names and exit without importing")

	importCmd.MarkFlagRequired("file")
}

func runImport(cmd *cobra.Command, args []string) error {
	dialect := ingest.Dialect(importDialect)
	if !dialect.IsValid() {
		return errors.ConfigurationError("dialect", importDialect, nil)
	}

	gen, err := newReportGenerator()
	if err != nil {
		return err
	}

	var decisions map[string]mapping.Decision
	if decisionsFile != "" {
		decisions, err = loadDecisions(decisionsFile)
		if err != nil {
			return err
		}
	}

	ctx, svc := newPipeline()
	for _, path := range importPaths {
		if dialect == ingest.DialectHoldings {
			raw, err := os.ReadFile(path)
			if err != nil {
				return errors.FileError(errors.CodeFileUnreadable, path, err)
			}
			preview, err := svc.Prepare(ctx, raw, path, dialect)
			if err != nil {
				return err
			}
			if err := gen.Holdings(os.Stdout, preview.Parsed.Holdings); err != nil {
				return err
			}
			continue
		}

		if listUnmapped {
			raw, err := os.ReadFile(path)
			if err != nil {
				return errors.FileError(errors.CodeFileUnreadable, path, err)
			}
			preview, err := svc.Prepare(ctx, raw, path, dialect)
			if err != nil {
				return err
			}
			if err := gen.UnmappedNames(os.Stdout, preview.Partition.Unmapped); err != nil {
				return err
			}
			continue
		}

		summary, _, err := importFile(ctx, svc, path, dialect, decisions, autoMap)
		if err != nil {
			return err
		}
		if err := gen.ImportSummary(os.Stdout, summary); err != nil {
			return err
		}
	}
	return nil
}
