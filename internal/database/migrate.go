package database

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"

	"github.com/seuros/orgoals/internal/logging"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationFS embed.FS

// MigrationFS returns the embedded migration files and the directory holding
// the set for dialect.
func MigrationFS(dialect Dialect) (embed.FS, string) {
	return migrationFS, "migrations/" + string(dialect)
}

func newMigrator(conn *Conn) (*migrate.Migrate, error) {
	fsys, dir := MigrationFS(conn.Dialect)
	src, err := iofs.New(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("load migrations: %w", err)
	}

	var drv migratedb.Driver
	switch conn.Dialect {
	case Postgres:
		drv, err = migratepg.WithInstance(conn.DB, &migratepg.Config{})
	case SQLite:
		drv, err = migratesqlite.WithInstance(conn.DB, &migratesqlite.Config{})
	default:
		return nil, fmt.Errorf("unsupported dialect %q", conn.Dialect)
	}
	if err != nil {
		return nil, fmt.Errorf("migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, string(conn.Dialect), drv)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	return m, nil
}

// Migrate applies every pending up migration.
func Migrate(conn *Conn) error {
	m, err := newMigrator(conn)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	version, dirty, _ := m.Version()
	logging.L().Info("migrations applied",
		zap.Uint("version", version),
		zap.Bool("dirty", dirty),
	)
	return nil
}

// MigrateDown reverts up to steps migrations.
func MigrateDown(conn *Conn, steps int) error {
	if steps <= 0 {
		return fmt.Errorf("steps must be positive, got %d", steps)
	}
	m, err := newMigrator(conn)
	if err != nil {
		return err
	}
	if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("revert migrations: %w", err)
	}
	return nil
}

// MigrationVersion reports the applied schema version. Version 0 with a nil
// error means no migration has run.
func MigrationVersion(conn *Conn) (uint, bool, error) {
	m, err := newMigrator(conn)
	if err != nil {
		return 0, false, err
	}
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}
