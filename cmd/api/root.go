package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jwalitptl/orders-api/internal/config"
	"github.com/jwalitptl/orders-api/pkg/logger"
)

var (
	configFile string
	cfg        *config.Config
	appLogger  zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "orders-api",
	Short: "Orders HTTP API",
	Long:  `Orders HTTP API with query-string filtering, pagination and a uniform response envelope`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.LoadConfig(configFile)
		if err != nil {
			return err
		}
		cfg = loaded

		appLogger, err = logger.Setup(logger.Config{
			Level:  cfg.Log.Level,
			Format: cfg.Log.Format,
		})
		return err
	},
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("Failed to execute command")
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default: config.yaml in ., ./config or /app/config)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(tokenCmd)
}
