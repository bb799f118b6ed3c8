package models

import "strings"

// Goal is a named, numeric objective owned by a person. Goals with the same
// Name on a person and its parent are aggregated together.
type Goal struct {
	ID           int64   `json:"id" db:"id" yaml:"id"`
	PersonID     int64   `json:"person_id" db:"person_id" yaml:"person_id"`
	Name         string  `json:"name" db:"name" yaml:"name"`
	Definition   *string `json:"definition" db:"definition" yaml:"definition"`
	Target       float64 `json:"target" db:"target" yaml:"target"`
	CurrentValue float64 `json:"current_value" db:"current_value" yaml:"current_value"`
	IsLocked     bool    `json:"is_locked" db:"is_locked" yaml:"is_locked"`
	IsPrivate    bool    `json:"is_private" db:"is_private" yaml:"is_private"`
}

// NewGoal holds the fields accepted when creating a goal. Zero values match
// the documented defaults (target 0, current value 0, unlocked, public).
type NewGoal struct {
	PersonID     int64   `json:"person_id"`
	Name         string  `json:"name"`
	Definition   *string `json:"definition"`
	Target       float64 `json:"target"`
	CurrentValue float64 `json:"current_value"`
	IsLocked     bool    `json:"is_locked"`
	IsPrivate    bool    `json:"is_private"`
}

// Validate checks required fields.
func (n NewGoal) Validate() error {
	if n.PersonID <= 0 || strings.TrimSpace(n.Name) == "" {
		return NewValidationError("person_id and name required")
	}
	return nil
}

// GoalPatch is a partial update of any goal attribute. SetDefinition allows
// clearing the definition back to null.
type GoalPatch struct {
	PersonID      *int64
	Name          *string
	SetDefinition bool
	Definition    *string
	Target        *float64
	CurrentValue  *float64
	IsLocked      *bool
	IsPrivate     *bool
}

// Apply returns g with the patch applied.
func (gp GoalPatch) Apply(g Goal) Goal {
	if gp.PersonID != nil {
		g.PersonID = *gp.PersonID
	}
	if gp.Name != nil {
		g.Name = *gp.Name
	}
	if gp.SetDefinition {
		g.Definition = gp.Definition
	}
	if gp.Target != nil {
		g.Target = *gp.Target
	}
	if gp.CurrentValue != nil {
		g.CurrentValue = *gp.CurrentValue
	}
	if gp.IsLocked != nil {
		g.IsLocked = *gp.IsLocked
	}
	if gp.IsPrivate != nil {
		g.IsPrivate = *gp.IsPrivate
	}
	return g
}

// Validate rejects patches that would blank the name or detach the goal.
func (gp GoalPatch) Validate() error {
	if gp.Name != nil && strings.TrimSpace(*gp.Name) == "" {
		return NewValidationError("name cannot be empty")
	}
	if gp.PersonID != nil && *gp.PersonID <= 0 {
		return NewValidationError("person_id must be positive")
	}
	return nil
}

// ValuePatch builds a patch that only sets CurrentValue.
func ValuePatch(v float64) GoalPatch {
	return GoalPatch{CurrentValue: &v}
}
