package postgres

import (
	"embed"
	"fmt"

	"github.com/jmoiron/sqlx"
	migrate "github.com/rubenv/sql-migrate"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// MigrationTable records applied migrations
const MigrationTable = "schema_migrations"

// Migrations returns the embedded schema migrations.
func Migrations() migrate.MigrationSource {
	return &migrate.EmbedFileSystemMigrationSource{
		FileSystem: migrationFS,
		Root:       "migrations",
	}
}

// Migrate applies up to max migrations in dir; max 0 applies all of them.
func Migrate(db *sqlx.DB, dir migrate.MigrationDirection, max int) (int, error) {
	ms := migrate.MigrationSet{TableName: MigrationTable}
	n, err := ms.ExecMax(db.DB, "postgres", Migrations(), dir, max)
	if err != nil {
		return n, fmt.Errorf("failed to run migrations: %w", err)
	}
	return n, nil
}
