package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/viper"

	"qb-reconciliation-service/pkg/errors"
	"qb-reconciliation-service/pkg/logger"
)

// CLIErrorHandler provides user-friendly error handling for CLI operations.
type CLIErrorHandler struct {
	logger  logger.Logger
	verbose bool
}

// NewCLIErrorHandler creates a new CLI error handler.
func NewCLIErrorHandler() *CLIErrorHandler {
	return &CLIErrorHandler{
		logger:  logger.GetGlobalLogger().WithComponent("cli"),
		verbose: viper.GetBool("verbose"),
	}
}

// HandleError prints a user-facing message for the error and returns
// the process exit code.
func (h *CLIErrorHandler) HandleError(err error) int {
	if err == nil {
		return 0
	}

	h.logger.WithError(err).Error("Command failed")

	if rerr, ok := errors.AsReconcileError(err); ok {
		return h.handleReconcileError(rerr)
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return 1
}

func (h *CLIErrorHandler) handleReconcileError(err *errors.ReconcileError) int {
	fmt.Fprintf(os.Stderr, "Error: %s\n", err.Message)

	if len(err.Context) > 0 {
		fmt.Fprintf(os.Stderr, "\nContext:\n")
		for key, value := range err.Context {
			fmt.Fprintf(os.Stderr, "  %s: %v\n", key, value)
		}
	}

	if err.Suggestion != "" {
		fmt.Fprintf(os.Stderr, "\nSuggestion: %s\n", err.Suggestion)
	}

	if h.verbose && err.Cause != nil {
		fmt.Fprintf(os.Stderr, "\nCause: %v\n", err.Cause)
	}

	return err.ExitCode()
}
