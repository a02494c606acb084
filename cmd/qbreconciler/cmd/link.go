package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"qb-reconciliation-service/internal/ingest"
	"qb-reconciliation-service/internal/linker"
	"qb-reconciliation-service/pkg/errors"
)

var (
	linkPaths   []string
	linkDialect string
	linkAll     bool
)

var linkCmd = &cobra.Command{
	Use:   "link",
	Short: "Resolve transaction account links",
	Long: `Link imports the given files and re-resolves account links using the
current mappings. By default only unlinked transactions are considered;
--all re-resolves every transaction, moving links whose mapping has
changed. Re-running link is safe: a transaction already linked to the
resolved account is left untouched.`,
	RunE: runLink,
}

func init() {
	rootCmd.AddCommand(linkCmd)

	linkCmd.Flags().StringSliceVarP(&linkPaths, "file", "f", nil, "export file to import (repeatable)")
	linkCmd.Flags().StringVarP(&linkDialect, "dialect", "d", string(ingest.DialectGeneralLedger), "export dialect")
	linkCmd.Flags().BoolVar(&linkAll, "all", false, "re-resolve links for every transaction")

	linkCmd.MarkFlagRequired("file")
}

func runLink(cmd *cobra.Command, args []string) error {
	dialect := ingest.Dialect(linkDialect)
	if !dialect.IsValid() {
		return errors.ConfigurationError("dialect", linkDialect, nil)
	}

	ctx, svc := newPipeline()
	for _, path := range linkPaths {
		if _, _, err := importFile(ctx, svc, path, dialect, nil, true); err != nil {
			return err
		}
	}

	scope := linker.ScopeUnlinkedOnly
	if linkAll {
		scope = linker.ScopeAll
	}
	result, err := svc.Relink(ctx, scope)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "Total:      %d\n", result.Total)
	fmt.Fprintf(os.Stdout, "Primary:    %d\n", result.LinkedViaPrimary)
	fmt.Fprintf(os.Stdout, "Counter:    %d\n", result.LinkedViaCounter)
	fmt.Fprintf(os.Stdout, "Unresolved: %d\n", result.Unresolved)
	fmt.Fprintf(os.Stdout, "Updated:    %d\n", result.Updated)
	return nil
}
