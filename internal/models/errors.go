package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrValidation  = errors.New("validation failed")
	ErrConsistency = errors.New("hierarchy inconsistent")
	ErrConflict    = errors.New("concurrent modification")
)

// NotFoundError names the missing entity.
type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// PersonNotFound returns a NotFoundError for a person id.
func PersonNotFound(id int64) error {
	return &NotFoundError{Entity: "person", ID: id}
}

// GoalNotFound returns a NotFoundError for a goal id.
func GoalNotFound(id int64) error {
	return &NotFoundError{Entity: "goal", ID: id}
}

// GoalNameNotFound returns a NotFoundError for a (person, name) lookup.
func GoalNameNotFound(personID int64, name string) error {
	return &NotFoundError{Entity: fmt.Sprintf("goal %q of person", name), ID: personID}
}

// ValidationError reports missing or malformed input.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError formats a ValidationError.
func NewValidationError(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// ConsistencyError reports a broken hierarchy: a dangling reference or a
// parent cycle. Path holds the person ids walked, in order.
type ConsistencyError struct {
	Msg  string
	Path []int64
}

func (e *ConsistencyError) Error() string {
	if e == nil {
		return ""
	}
	if len(e.Path) == 0 {
		return fmt.Sprintf("%s: %s", ErrConsistency.Error(), e.Msg)
	}
	parts := make([]string, len(e.Path))
	for i, id := range e.Path {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return fmt.Sprintf("%s: %s: %s", ErrConsistency.Error(), e.Msg, strings.Join(parts, " -> "))
}

func (e *ConsistencyError) Unwrap() error { return ErrConsistency }

// CycleError reports a parent cycle found while walking path.
func CycleError(path []int64) error {
	return &ConsistencyError{Msg: "parent cycle", Path: append([]int64(nil), path...)}
}

// DanglingError reports a reference to a person that does not exist.
func DanglingError(format string, args ...any) error {
	return &ConsistencyError{Msg: fmt.Sprintf(format, args...)}
}

// IsNotFound reports whether err is a not-found condition.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
