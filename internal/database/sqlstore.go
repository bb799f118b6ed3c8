package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/seuros/orgoals/internal/models"
	"github.com/seuros/orgoals/internal/store"
)

// SQLStore persists persons and goals in PostgreSQL or SQLite.
type SQLStore struct {
	conn     *Conn
	txOpts   *sql.TxOptions
	viewOpts *sql.TxOptions
}

// NewSQLStore wraps an open connection. PostgreSQL units of work run
// serializable so concurrent propagations over one chain cannot interleave;
// a losing transaction surfaces as models.ErrConflict.
func NewSQLStore(conn *Conn) *SQLStore {
	s := &SQLStore{conn: conn}
	if conn.Dialect == Postgres {
		s.txOpts = &sql.TxOptions{Isolation: sql.LevelSerializable}
		s.viewOpts = &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	}
	return s
}

// InTx runs fn in a database transaction.
func (s *SQLStore) InTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	return s.run(ctx, s.txOpts, fn)
}

// View runs fn in a read-only snapshot transaction on PostgreSQL. SQLite
// reads use a plain transaction.
func (s *SQLStore) View(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	return s.run(ctx, s.viewOpts, fn)
}

func (s *SQLStore) run(ctx context.Context, opts *sql.TxOptions, fn func(ctx context.Context, tx store.Tx) error) error {
	tx, err := s.conn.DB.BeginTx(ctx, opts)
	if err != nil {
		return Classify(fmt.Errorf("begin transaction: %w", err))
	}
	if err := fn(ctx, &sqlTx{tx: tx, dialect: s.conn.Dialect}); err != nil {
		_ = tx.Rollback()
		return Classify(err)
	}
	if err := tx.Commit(); err != nil {
		return Classify(fmt.Errorf("commit transaction: %w", err))
	}
	return nil
}

// Close closes the connection.
func (s *SQLStore) Close() error {
	return s.conn.Close()
}

type sqlTx struct {
	tx      *sql.Tx
	dialect Dialect
}

const (
	personColumns = "id, name, position, parent_id"
	goalColumns   = "id, person_id, name, definition, target, current_value, is_locked, is_private"
)

// rebind rewrites ? placeholders to $n for PostgreSQL. Queries in this file
// never contain a literal question mark.
func rebind(dialect Dialect, query string) string {
	if dialect != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func (t *sqlTx) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return t.tx.QueryContext(ctx, rebind(t.dialect, query), args...)
}

func (t *sqlTx) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return t.tx.QueryRowContext(ctx, rebind(t.dialect, query), args...)
}

func (t *sqlTx) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return t.tx.ExecContext(ctx, rebind(t.dialect, query), args...)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPerson(row scanner) (models.Person, error) {
	var (
		p      models.Person
		parent sql.NullInt64
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Position, &parent); err != nil {
		return models.Person{}, err
	}
	if parent.Valid {
		p.ParentID = &parent.Int64
	}
	return p, nil
}

func scanGoal(row scanner) (models.Goal, error) {
	var (
		g   models.Goal
		def sql.NullString
	)
	if err := row.Scan(&g.ID, &g.PersonID, &g.Name, &def, &g.Target, &g.CurrentValue, &g.IsLocked, &g.IsPrivate); err != nil {
		return models.Goal{}, err
	}
	if def.Valid {
		g.Definition = &def.String
	}
	return g, nil
}

func (t *sqlTx) listPersons(ctx context.Context, query string, args ...any) ([]models.Person, error) {
	rows, err := t.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query persons: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []models.Person{}
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, fmt.Errorf("scan person: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (t *sqlTx) listGoals(ctx context.Context, query string, args ...any) ([]models.Goal, error) {
	rows, err := t.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query goals: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []models.Goal{}
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func nullableID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}

func nullableString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func (t *sqlTx) ListPersons(ctx context.Context) ([]models.Person, error) {
	return t.listPersons(ctx, "SELECT "+personColumns+" FROM persons ORDER BY id")
}

func (t *sqlTx) GetPerson(ctx context.Context, id int64) (models.Person, error) {
	p, err := scanPerson(t.queryRow(ctx, "SELECT "+personColumns+" FROM persons WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Person{}, models.PersonNotFound(id)
	}
	if err != nil {
		return models.Person{}, fmt.Errorf("get person %d: %w", id, err)
	}
	return p, nil
}

func (t *sqlTx) Subordinates(ctx context.Context, id int64) ([]models.Person, error) {
	if _, err := t.GetPerson(ctx, id); err != nil {
		return nil, err
	}
	return t.listPersons(ctx, "SELECT "+personColumns+" FROM persons WHERE parent_id = ? ORDER BY id", id)
}

func (t *sqlTx) CreatePerson(ctx context.Context, np models.NewPerson) (models.Person, error) {
	if err := np.Validate(); err != nil {
		return models.Person{}, err
	}
	p := models.Person{Name: np.Name, Position: np.Position, ParentID: models.CopyID(np.ParentID)}
	err := t.queryRow(ctx,
		"INSERT INTO persons (name, position, parent_id) VALUES (?, ?, ?) RETURNING id",
		p.Name, p.Position, nullableID(p.ParentID),
	).Scan(&p.ID)
	if err != nil {
		return models.Person{}, fmt.Errorf("insert person: %w", err)
	}
	return p, nil
}

func (t *sqlTx) UpdatePerson(ctx context.Context, id int64, patch models.PersonPatch) (models.Person, error) {
	current, err := t.GetPerson(ctx, id)
	if err != nil {
		return models.Person{}, err
	}
	if err := patch.Validate(); err != nil {
		return models.Person{}, err
	}
	updated := patch.Apply(current)
	_, err = t.exec(ctx,
		"UPDATE persons SET name = ?, position = ?, parent_id = ? WHERE id = ?",
		updated.Name, updated.Position, nullableID(updated.ParentID), id,
	)
	if err != nil {
		return models.Person{}, fmt.Errorf("update person %d: %w", id, err)
	}
	return updated, nil
}

func (t *sqlTx) DeletePerson(ctx context.Context, id int64) error {
	if _, err := t.GetPerson(ctx, id); err != nil {
		return err
	}
	if _, err := t.exec(ctx, "DELETE FROM goals WHERE person_id = ?", id); err != nil {
		return fmt.Errorf("delete goals of person %d: %w", id, err)
	}
	if _, err := t.exec(ctx, "UPDATE persons SET parent_id = NULL WHERE parent_id = ?", id); err != nil {
		return fmt.Errorf("orphan children of person %d: %w", id, err)
	}
	if _, err := t.exec(ctx, "DELETE FROM persons WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete person %d: %w", id, err)
	}
	return nil
}

func (t *sqlTx) ListGoals(ctx context.Context) ([]models.Goal, error) {
	return t.listGoals(ctx, "SELECT "+goalColumns+" FROM goals ORDER BY id")
}

func (t *sqlTx) GetGoal(ctx context.Context, id int64) (models.Goal, error) {
	g, err := scanGoal(t.queryRow(ctx, "SELECT "+goalColumns+" FROM goals WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Goal{}, models.GoalNotFound(id)
	}
	if err != nil {
		return models.Goal{}, fmt.Errorf("get goal %d: %w", id, err)
	}
	return g, nil
}

func (t *sqlTx) GoalsByPerson(ctx context.Context, personID int64) ([]models.Goal, error) {
	return t.listGoals(ctx, "SELECT "+goalColumns+" FROM goals WHERE person_id = ? ORDER BY id", personID)
}

func (t *sqlTx) FindGoal(ctx context.Context, personID int64, name string) (models.Goal, error) {
	g, err := scanGoal(t.queryRow(ctx,
		"SELECT "+goalColumns+" FROM goals WHERE person_id = ? AND name = ?", personID, name))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Goal{}, models.GoalNameNotFound(personID, name)
	}
	if err != nil {
		return models.Goal{}, fmt.Errorf("find goal %q of person %d: %w", name, personID, err)
	}
	return g, nil
}

func (t *sqlTx) CreateGoal(ctx context.Context, ng models.NewGoal) (models.Goal, error) {
	if err := ng.Validate(); err != nil {
		return models.Goal{}, err
	}
	if _, err := t.GetPerson(ctx, ng.PersonID); err != nil {
		return models.Goal{}, err
	}
	if err := t.checkUniqueName(ctx, ng.PersonID, ng.Name, 0); err != nil {
		return models.Goal{}, err
	}
	g := models.Goal{
		PersonID:     ng.PersonID,
		Name:         ng.Name,
		Definition:   ng.Definition,
		Target:       ng.Target,
		CurrentValue: ng.CurrentValue,
		IsLocked:     ng.IsLocked,
		IsPrivate:    ng.IsPrivate,
	}
	err := t.queryRow(ctx,
		`INSERT INTO goals (person_id, name, definition, target, current_value, is_locked, is_private)
		 VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`,
		g.PersonID, g.Name, nullableString(g.Definition), g.Target, g.CurrentValue, g.IsLocked, g.IsPrivate,
	).Scan(&g.ID)
	if err != nil {
		return models.Goal{}, fmt.Errorf("insert goal: %w", err)
	}
	return g, nil
}

func (t *sqlTx) UpdateGoal(ctx context.Context, id int64, patch models.GoalPatch) (models.Goal, error) {
	current, err := t.GetGoal(ctx, id)
	if err != nil {
		return models.Goal{}, err
	}
	if err := patch.Validate(); err != nil {
		return models.Goal{}, err
	}
	updated := patch.Apply(current)
	if updated.PersonID != current.PersonID {
		if _, err := t.GetPerson(ctx, updated.PersonID); err != nil {
			return models.Goal{}, err
		}
	}
	if updated.PersonID != current.PersonID || updated.Name != current.Name {
		if err := t.checkUniqueName(ctx, updated.PersonID, updated.Name, id); err != nil {
			return models.Goal{}, err
		}
	}
	_, err = t.exec(ctx,
		`UPDATE goals SET person_id = ?, name = ?, definition = ?, target = ?,
		 current_value = ?, is_locked = ?, is_private = ? WHERE id = ?`,
		updated.PersonID, updated.Name, nullableString(updated.Definition), updated.Target,
		updated.CurrentValue, updated.IsLocked, updated.IsPrivate, id,
	)
	if err != nil {
		return models.Goal{}, fmt.Errorf("update goal %d: %w", id, err)
	}
	return updated, nil
}

func (t *sqlTx) DeleteGoal(ctx context.Context, id int64) error {
	res, err := t.exec(ctx, "DELETE FROM goals WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete goal %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return models.GoalNotFound(id)
	}
	return nil
}

func (t *sqlTx) checkUniqueName(ctx context.Context, personID int64, name string, except int64) error {
	existing, err := t.FindGoal(ctx, personID, name)
	if models.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if existing.ID != except {
		return models.NewValidationError("person %d already has a goal named %q", personID, name)
	}
	return nil
}

var _ store.Store = (*SQLStore)(nil)
var _ store.Tx = (*sqlTx)(nil)
