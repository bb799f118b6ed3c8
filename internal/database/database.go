package database

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/seuros/orgoals/internal/config"
	"github.com/seuros/orgoals/internal/logging"
)

// Dialect selects SQL flavour details: placeholder style, migration set and
// transaction isolation.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// openDB is swapped in tests.
var openDB = sql.Open

// Conn is an open database handle and the dialect it speaks.
type Conn struct {
	DB      *sql.DB
	Dialect Dialect
}

// Close closes the underlying handle.
func (c *Conn) Close() error {
	if c == nil || c.DB == nil {
		return nil
	}
	return c.DB.Close()
}

// ConnectWithURL opens and pings the database named by databaseURL.
// sqlite://, sqlite: and file: URLs open a modernc SQLite file; anything
// else is PostgreSQL through driver ("postgres" for lib/pq, "pgx" for
// pgx/v5/stdlib).
func ConnectWithURL(databaseURL, driver string) (*Conn, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database URL cannot be empty")
	}

	if path, ok := config.SQLitePath(databaseURL); ok {
		return openSQLite(path)
	}

	switch driver {
	case "", "postgres":
		driver = "postgres"
	case "pgx":
	default:
		return nil, fmt.Errorf("unknown database driver %q", driver)
	}

	db, err := openDB(driver, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err = db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logging.L().Info("database connected",
		zap.String("driver", driver),
		zap.String("url", config.RedactDatabaseURL(databaseURL)),
	)
	return &Conn{DB: db, Dialect: Postgres}, nil
}

func openSQLite(path string) (*Conn, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	dsn := filepath.Clean(path) +
		"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// one writer; transactions queue on the pool instead of failing busy
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	logging.L().Info("database connected", zap.String("driver", "sqlite"), zap.String("path", path))
	return &Conn{DB: db, Dialect: SQLite}, nil
}
