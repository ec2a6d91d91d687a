package main

import (
	migrate "github.com/rubenv/sql-migrate"
	"github.com/spf13/cobra"

	"github.com/jwalitptl/orders-api/internal/repository/postgres"
)

var migrateSteps int

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply or roll back schema migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigrations(cmd, migrate.Up, migrateSteps)
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back applied migrations (one by default)",
	RunE: func(cmd *cobra.Command, args []string) error {
		steps := migrateSteps
		if steps == 0 {
			steps = 1
		}
		return runMigrations(cmd, migrate.Down, steps)
	},
}

func init() {
	migrateCmd.PersistentFlags().IntVarP(&migrateSteps, "steps", "n", 0, "number of migrations to run (0 = all for up)")
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
}

func runMigrations(cmd *cobra.Command, dir migrate.MigrationDirection, steps int) error {
	db, err := postgres.NewDB(cmd.Context(), cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	n, err := postgres.Migrate(db, dir, steps)
	if err != nil {
		return err
	}

	appLogger.Info().Int("applied", n).Str("direction", direction(dir)).Msg("migrations finished")
	return nil
}

func direction(dir migrate.MigrationDirection) string {
	if dir == migrate.Down {
		return "down"
	}
	return "up"
}

