package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/seuros/orgoals/internal/config"
	"github.com/seuros/orgoals/internal/database"
)

var migrateDownSteps int

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
	Long: `Apply or roll back schema migrations on the configured database.

PostgreSQL and SQLite carry their own migration sets; the one matching
database_url is used. serve and the data commands migrate up on their own.`,
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withConn(func(conn *database.Conn) error {
			if err := database.Migrate(conn); err != nil {
				return err
			}
			return printVersion(conn)
		})
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back migrations",
	Long: `Roll back the given number of migrations (default 1).

Examples:
  orgoals migrate down
  orgoals migrate down --steps 2`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withConn(func(conn *database.Conn) error {
			if err := database.MigrateDown(conn, migrateDownSteps); err != nil {
				return err
			}
			return printVersion(conn)
		})
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withConn(printVersion)
	},
}

var errNoDatabase = errors.New("no database_url configured; the in-memory store has no schema")

// connectDatabase is swappable for tests.
var connectDatabase = func(cfg *config.Config) (*database.Conn, error) {
	if cfg.DatabaseURL == "" {
		return nil, errNoDatabase
	}
	return database.ConnectWithURL(cfg.DatabaseURL, cfg.DatabaseDriver)
}

func withConn(fn func(conn *database.Conn) error) error {
	cfg, err := loadConfig("")
	if err != nil {
		return err
	}
	conn, err := connectDatabase(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()
	return fn(conn)
}

func printVersion(conn *database.Conn) error {
	version, dirty, err := database.MigrationVersion(conn)
	if err != nil {
		return err
	}
	switch {
	case version == 0:
		fmt.Println("Schema version: none")
	case dirty:
		fmt.Printf("Schema version: %d (dirty)\n", version)
	default:
		fmt.Printf("Schema version: %d\n", version)
	}
	return nil
}

func init() {
	migrateDownCmd.Flags().IntVar(&migrateDownSteps, "steps", 1, "Number of migrations to roll back")

	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
	migrateCmd.AddCommand(migrateVersionCmd)
	RootCmd.AddCommand(migrateCmd)
}
