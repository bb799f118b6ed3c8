// Package store defines the hierarchy and goal store contracts and the
// unit-of-work they run in. Implementations live here (in-memory arena) and
// in internal/database (SQL).
package store

import (
	"context"
	"errors"

	"github.com/seuros/orgoals/internal/models"
)

// ErrReadOnly is returned by writes attempted inside View.
var ErrReadOnly = errors.New("write inside a read-only unit of work")

// Hierarchy holds persons and their parent edges.
type Hierarchy interface {
	ListPersons(ctx context.Context) ([]models.Person, error)
	GetPerson(ctx context.Context, id int64) (models.Person, error)
	// Subordinates returns direct children only. Missing id is NotFound.
	Subordinates(ctx context.Context, id int64) ([]models.Person, error)
	// CreatePerson does not check that ParentID exists.
	CreatePerson(ctx context.Context, p models.NewPerson) (models.Person, error)
	UpdatePerson(ctx context.Context, id int64, patch models.PersonPatch) (models.Person, error)
	// DeletePerson removes the person and its goals and sets parent_id to
	// null on every direct child.
	DeletePerson(ctx context.Context, id int64) error
}

// Goals holds goal records keyed by (person, name).
type Goals interface {
	ListGoals(ctx context.Context) ([]models.Goal, error)
	GetGoal(ctx context.Context, id int64) (models.Goal, error)
	GoalsByPerson(ctx context.Context, personID int64) ([]models.Goal, error)
	// FindGoal matches name exactly. Missing goal is NotFound.
	FindGoal(ctx context.Context, personID int64, name string) (models.Goal, error)
	CreateGoal(ctx context.Context, g models.NewGoal) (models.Goal, error)
	UpdateGoal(ctx context.Context, id int64, patch models.GoalPatch) (models.Goal, error)
	DeleteGoal(ctx context.Context, id int64) error
}

// Tx is one unit of work. It is only valid inside the InTx callback.
type Tx interface {
	Hierarchy
	Goals
}

// Store opens units of work. InTx commits when fn returns nil and rolls
// back every change otherwise. View runs fn against a consistent snapshot
// that fn must not write to; writes fail with ErrReadOnly on the in-memory
// store and are rejected by the database on PostgreSQL.
type Store interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	View(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	Close() error
}
