package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"opsdeck/internal/config"
	"opsdeck/internal/logging"
)

var (
	// Global flags
	verbose    bool
	configPath string
	accountID  string
	storeID    string
	dataDir    string

	// Logger
	logger *zap.Logger

	// Loaded configuration, available to every subcommand after PreRun.
	cfg *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "opsdeck",
	Short: "opsdeck - fulfillment reconciliation for dropshipping ops",
	Long: `opsdeck reconciles order, shipment, and tracking exports into a
triaged exception queue, supplier follow-up drafts, and SLA escalations.

Each run normalizes the raw CSV exports, joins them line by line, and
persists a browsable run directory. Persistent issue state (owners, contact
threads, resolutions) lives in a JSON tracker with an append-only timeline.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Initialize logger
		zc := zap.NewProductionConfig()
		zc.Encoding = "console"
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		if verbose {
			zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zc.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if accountID != "" {
			cfg.Tenant.AccountID = accountID
		}
		if storeID != "" {
			cfg.Tenant.StoreID = storeID
		}
		if dataDir != "" {
			cfg.Paths.DataDir = dataDir
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		// Category file logs are opt-in via .opsdeck/logging.json.
		cwd, _ := os.Getwd()
		if err := logging.Initialize(cwd); err != nil {
			logger.Warn("file logging disabled", zap.Error(err))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Close()
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "opsdeck.yaml", "Config file path")
	rootCmd.PersistentFlags().StringVar(&accountID, "account", "", "Account ID (overrides config)")
	rootCmd.PersistentFlags().StringVar(&storeID, "store", "", "Store ID (overrides config)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Data directory (overrides config)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(issuesCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(timelineCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
