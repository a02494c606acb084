package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"qb-reconciliation-service/pkg/logger"
)

var (
	cfgFile string
	verbose bool
	userID  string
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "qbreconciler",
	Short: "QuickBooks export reconciliation tool",
	Long: `Qbreconciler imports QuickBooks General Ledger and Transaction Detail
exports, maps the QuickBooks account names they reference onto dashboard
accounts and categories, links transactions, and reports balances, debt
payoff plans, and duplicates.

Examples:
  qbreconciler import --file ledger.csv --dialect general_ledger --auto
  qbreconciler duplicates --file ledger.csv --dialect general_ledger
  qbreconciler balances --file ledger.csv --dialect general_ledger --account "Chase Checking"
  qbreconciler debts --file ledger.csv --dialect general_ledger --strategy avalanche
  qbreconciler version`,
	Version: getVersionString(),
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (optional)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&userID, "user", "local", "user identity to scope records to")
	rootCmd.PersistentFlags().String("output-format", "console", "output format (console, json)")
	rootCmd.PersistentFlags().Bool("no-color", false, "disable colored output")
	rootCmd.PersistentFlags().String("log-level", "warn", "log level (debug, info, warn, error)")

	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("user", rootCmd.PersistentFlags().Lookup("user"))
	viper.BindPFlag("output_format", rootCmd.PersistentFlags().Lookup("output-format"))
	viper.BindPFlag("no_color", rootCmd.PersistentFlags().Lookup("no-color"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
}

// initConfig reads in config file and ENV variables.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)

		if err := viper.ReadInConfig(); err != nil {
			fmt.Fprintf(os.Stderr, "Error reading config file: %s\n", err)
			os.Exit(1)
		}

		if viper.GetBool("verbose") {
			fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
		}
	}

	viper.SetEnvPrefix("QBRECONCILER")
	viper.AutomaticEnv()

	level := viper.GetString("log_level")
	if viper.GetBool("verbose") {
		level = string(logger.DebugLevel)
	}
	logCfg := &logger.Config{Level: logger.Level(level), Format: logger.TextFormat}
	if log, err := logger.NewLogger(logCfg); err == nil {
		logger.SetGlobalLogger(log)
	}
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = getVersionString()
}

func getVersionString() string {
	if version == "dev" {
		return fmt.Sprintf("%s (commit %s, built %s)", version, commit, date)
	}
	return version
}
