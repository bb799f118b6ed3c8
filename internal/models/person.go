package models

import "strings"

// Person is a node in the organizational hierarchy.
// ParentID nil means the person is a root.
type Person struct {
	ID       int64  `json:"id" db:"id" yaml:"id"`
	Name     string `json:"name" db:"name" yaml:"name"`
	Position string `json:"position" db:"position" yaml:"position"`
	ParentID *int64 `json:"parent_id" db:"parent_id" yaml:"parent_id"`
}

// IsRoot reports whether the person has no parent.
func (p Person) IsRoot() bool {
	return p.ParentID == nil
}

// NewPerson holds the fields accepted when creating a person.
// ParentID is not checked for existence.
type NewPerson struct {
	Name     string `json:"name"`
	Position string `json:"position"`
	ParentID *int64 `json:"parent_id"`
}

// Validate checks required fields.
func (n NewPerson) Validate() error {
	var missing []string
	if strings.TrimSpace(n.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(n.Position) == "" {
		missing = append(missing, "position")
	}
	if len(missing) > 0 {
		return NewValidationError("%s required", strings.Join(missing, " and "))
	}
	return nil
}

// PersonPatch is a partial update. SetParent distinguishes "move to root"
// (SetParent with nil ParentID) from "leave parent alone".
type PersonPatch struct {
	Name      *string
	Position  *string
	SetParent bool
	ParentID  *int64
}

// Apply returns p with the patch applied.
func (pp PersonPatch) Apply(p Person) Person {
	if pp.Name != nil {
		p.Name = *pp.Name
	}
	if pp.Position != nil {
		p.Position = *pp.Position
	}
	if pp.SetParent {
		p.ParentID = CopyID(pp.ParentID)
	}
	return p
}

// Validate rejects patches that would blank required fields.
func (pp PersonPatch) Validate() error {
	if pp.Name != nil && strings.TrimSpace(*pp.Name) == "" {
		return NewValidationError("name cannot be empty")
	}
	if pp.Position != nil && strings.TrimSpace(*pp.Position) == "" {
		return NewValidationError("position cannot be empty")
	}
	return nil
}

// PersonWithSubordinates is the representation returned when direct reports
// are requested alongside the person.
type PersonWithSubordinates struct {
	Person
	Subordinates []Person `json:"subordinates"`
}

// TreeNode is one person in the serialized hierarchy.
type TreeNode struct {
	Person   `yaml:",inline"`
	Children []*TreeNode `json:"children" yaml:"children"`
}

// CopyID returns a fresh pointer holding the same id, or nil.
func CopyID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

// SameParent reports whether two optional parent ids are equal.
func SameParent(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
