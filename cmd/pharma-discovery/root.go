package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/joelkehle/pharma-discovery/internal/config"
	"github.com/joelkehle/pharma-discovery/internal/logging"
	"github.com/joelkehle/pharma-discovery/internal/telemetry"
)

var (
	cfgFile  string
	envFile  string
	logLevel string
	dataDir  string

	cfg      config.Config
	logger   zerolog.Logger
	shutdown func(context.Context) error
)

var rootCmd = &cobra.Command{
	Use:   "pharma-discovery",
	Short: "Aggregate literature, trials, patents, trade and market signals for a drug",
	Long: `pharma-discovery collects public and synthesized intelligence for a drug name,
summarizes uploaded internal documents, and produces a combined record with an
AI recommendation and a repurposing decision.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return err
		}
		loaded, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		if logLevel != "" {
			loaded.Log.Level = logLevel
		}
		if dataDir != "" {
			loaded.DataDir = dataDir
		}
		cfg = loaded
		logger = logging.New(logging.Options{
			Level:   cfg.Log.Level,
			Format:  cfg.Log.Format,
			Output:  os.Stderr,
			Service: cfg.Telemetry.ServiceName,
		})
		shutdown, err = telemetry.Setup(cmd.Context(), cfg.Telemetry)
		if err != nil {
			logger.Warn().Err(err).Msg("telemetry_disabled")
			shutdown = nil
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if shutdown == nil {
			return nil
		}
		return shutdown(context.Background())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (YAML)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the config")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log level")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "override the snapshot root directory")
	rootCmd.AddCommand(analyzeCmd, serveCmd, reportCmd)
}

// Execute runs the root command. Interrupts cancel in-flight work.
func Execute() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	return rootCmd.ExecuteContext(ctx)
}
