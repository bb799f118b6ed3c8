package database

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/seuros/orgoals/internal/models"
)

// PostgreSQL SQLSTATE codes.
const (
	pgUniqueViolation      = "23505"
	pgForeignKeyViolation  = "23503"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

// Classify maps driver errors onto the models error taxonomy. Errors that
// already carry a models sentinel, and errors no rule matches, pass through.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, models.ErrNotFound) ||
		errors.Is(err, models.ErrValidation) ||
		errors.Is(err, models.ErrConsistency) ||
		errors.Is(err, models.ErrConflict) {
		return err
	}

	switch sqlState(err) {
	case pgUniqueViolation:
		return models.NewValidationError("duplicate value: %v", err)
	case pgForeignKeyViolation:
		return fmt.Errorf("%w: %v", models.ErrNotFound, err)
	case pgSerializationFailure, pgDeadlockDetected:
		return fmt.Errorf("%w: %v", models.ErrConflict, err)
	}

	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_UNIQUE, sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY:
			return models.NewValidationError("duplicate value: %v", err)
		case sqlite3lib.SQLITE_CONSTRAINT_FOREIGNKEY:
			return fmt.Errorf("%w: %v", models.ErrNotFound, err)
		case sqlite3lib.SQLITE_BUSY, sqlite3lib.SQLITE_LOCKED:
			return fmt.Errorf("%w: %v", models.ErrConflict, err)
		}
	}

	return err
}

// sqlState extracts the SQLSTATE from either PostgreSQL driver.
func sqlState(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
