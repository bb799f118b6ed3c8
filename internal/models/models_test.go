package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ptr[T any](v T) *T { return &v }

func TestNewPersonValidate(t *testing.T) {
	tests := []struct {
		name    string
		input   NewPerson
		wantErr string
	}{
		{"valid", NewPerson{Name: "Ada", Position: "CEO"}, ""},
		{"missing both", NewPerson{}, "name and position required"},
		{"blank name", NewPerson{Name: "  ", Position: "CEO"}, "name required"},
		{"missing position", NewPerson{Name: "Ada"}, "position required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.input.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrValidation)
			assert.EqualError(t, err, tt.wantErr)
		})
	}
}

func TestPersonPatch(t *testing.T) {
	base := Person{ID: 1, Name: "Ada", Position: "CEO", ParentID: ptr(int64(7))}

	kept := PersonPatch{Name: ptr("Grace")}.Apply(base)
	assert.Equal(t, "Grace", kept.Name)
	assert.Equal(t, int64(7), *kept.ParentID)

	root := PersonPatch{SetParent: true}.Apply(base)
	assert.True(t, root.IsRoot())
	assert.Equal(t, int64(7), *base.ParentID, "apply must not alias the input")

	moved := PersonPatch{SetParent: true, ParentID: ptr(int64(2))}.Apply(base)
	assert.Equal(t, int64(2), *moved.ParentID)

	assert.Error(t, PersonPatch{Name: ptr("")}.Validate())
	assert.Error(t, PersonPatch{Position: ptr(" ")}.Validate())
	assert.NoError(t, PersonPatch{}.Validate())
}

func TestSameParent(t *testing.T) {
	assert.True(t, SameParent(nil, nil))
	assert.True(t, SameParent(ptr(int64(1)), ptr(int64(1))))
	assert.False(t, SameParent(ptr(int64(1)), nil))
	assert.False(t, SameParent(nil, ptr(int64(1))))
	assert.False(t, SameParent(ptr(int64(1)), ptr(int64(2))))
	assert.Nil(t, CopyID(nil))
}

func TestNewGoalValidate(t *testing.T) {
	assert.NoError(t, NewGoal{PersonID: 1, Name: "Revenue"}.Validate())
	assert.EqualError(t, NewGoal{Name: "Revenue"}.Validate(), "person_id and name required")
	assert.EqualError(t, NewGoal{PersonID: 1, Name: " "}.Validate(), "person_id and name required")
}

func TestGoalPatch(t *testing.T) {
	base := Goal{ID: 1, PersonID: 2, Name: "Revenue", Definition: ptr("ARR"), Target: 10, CurrentValue: 5}

	g := GoalPatch{Target: ptr(20.0), IsLocked: ptr(true)}.Apply(base)
	assert.Equal(t, 20.0, g.Target)
	assert.True(t, g.IsLocked)
	assert.Equal(t, "ARR", *g.Definition)

	g = GoalPatch{SetDefinition: true}.Apply(base)
	assert.Nil(t, g.Definition)

	g = ValuePatch(42).Apply(base)
	assert.Equal(t, 42.0, g.CurrentValue)
	assert.Equal(t, base.Target, g.Target)

	assert.Error(t, GoalPatch{Name: ptr("")}.Validate())
	assert.Error(t, GoalPatch{PersonID: ptr(int64(0))}.Validate())
	assert.NoError(t, GoalPatch{IsPrivate: ptr(false)}.Validate())
}
