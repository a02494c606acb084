package cmd

import (
	"context"
	"encoding/json"
	"os"

	"github.com/spf13/viper"

	"qb-reconciliation-service/internal/importer"
	"qb-reconciliation-service/internal/ingest"
	"qb-reconciliation-service/internal/mapping"
	"qb-reconciliation-service/internal/report"
	"qb-reconciliation-service/internal/store"
	"qb-reconciliation-service/pkg/errors"
)

// newPipeline builds the service stack for one CLI invocation. The CLI
// runs against the in-memory store, so each invocation imports its
// inputs and operates on them in one pass.
func newPipeline() (context.Context, *importer.Service) {
	st := store.NewMemoryStore()
	ctx := store.WithUser(context.Background(), viper.GetString("user"))
	return ctx, importer.NewService(st)
}

// newReportGenerator builds the output generator from global flags.
func newReportGenerator() (*report.Generator, error) {
	return report.NewGenerator(
		report.OutputFormat(viper.GetString("output_format")),
		viper.GetBool("no_color"),
	)
}

// loadDecisions reads a decisions file: a JSON object keyed by
// discovered name.
func loadDecisions(path string) (map[string]mapping.Decision, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.FileError(errors.CodeFileUnreadable, path, err)
	}
	decisions := make(map[string]mapping.Decision)
	if err := json.Unmarshal(raw, &decisions); err != nil {
		return nil, errors.FileError(errors.CodeFileCorrupted, path, err)
	}
	return decisions, nil
}

// autoDecisions accepts the classifier's suggestion for every unmapped
// name: new accounts for balance-sheet names, remembered
// income/expense classes for the rest.
func autoDecisions(unmapped []mapping.UnmappedName) map[string]mapping.Decision {
	decisions := make(map[string]mapping.Decision, len(unmapped))
	for _, u := range unmapped {
		d := mapping.Decision{State: u.Suggestion}
		if u.Suggestion == mapping.StateAsset || u.Suggestion == mapping.StateLiability {
			d.NewAccountName = u.Name
			d.AccountType = u.SuggestedType
		}
		decisions[u.Name] = d
	}
	return decisions
}

// importFile runs prepare and commit for one input file, using the
// given decisions (or the classifier's suggestions when auto is set).
func importFile(ctx context.Context, svc *importer.Service, path string, dialect ingest.Dialect, decisions map[string]mapping.Decision, auto bool) (*importer.Summary, *importer.Preview, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, errors.FileError(errors.CodeFileUnreadable, path, err)
	}

	preview, err := svc.Prepare(ctx, raw, path, dialect)
	if err != nil {
		return nil, nil, err
	}

	if auto {
		decisions = autoDecisions(preview.Partition.Unmapped)
	}

	summary, err := svc.Commit(ctx, preview, decisions)
	if err != nil {
		return nil, preview, err
	}
	return summary, preview, nil
}
