package handlers

import (
	"bytes"
	"encoding/json"

	"github.com/seuros/orgoals/internal/models"
)

// rawBody keeps the JSON fields of a PUT body undecoded so that an explicit
// null can be told apart from an absent key.
type rawBody map[string]json.RawMessage

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// field decodes key into dst when present. A null leaves dst untouched and
// reports present=true, null=true.
func (b rawBody) field(key string, dst any) (present, null bool, err error) {
	raw, ok := b[key]
	if !ok {
		return false, false, nil
	}
	if isNull(raw) {
		return true, true, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return true, false, models.NewValidationError("invalid %s", key)
	}
	return true, false, nil
}

// required decodes a key that may be absent but never null.
func required[T any](b rawBody, key string) (*T, error) {
	var v T
	present, null, err := b.field(key, &v)
	switch {
	case err != nil:
		return nil, err
	case null:
		return nil, models.NewValidationError("%s cannot be null", key)
	case !present:
		return nil, nil
	}
	return &v, nil
}

func decodePersonPatch(b rawBody) (models.PersonPatch, error) {
	var patch models.PersonPatch
	var err error
	if patch.Name, err = required[string](b, "name"); err != nil {
		return patch, err
	}
	if patch.Position, err = required[string](b, "position"); err != nil {
		return patch, err
	}
	var parent int64
	present, null, err := b.field("parent_id", &parent)
	if err != nil {
		return patch, err
	}
	if present {
		patch.SetParent = true
		if !null {
			patch.ParentID = &parent
		}
	}
	return patch, nil
}

func decodeGoalPatch(b rawBody) (models.GoalPatch, error) {
	var patch models.GoalPatch
	var err error
	if patch.PersonID, err = required[int64](b, "person_id"); err != nil {
		return patch, err
	}
	if patch.Name, err = required[string](b, "name"); err != nil {
		return patch, err
	}
	var def string
	present, null, err := b.field("definition", &def)
	if err != nil {
		return patch, err
	}
	if present {
		patch.SetDefinition = true
		if !null {
			patch.Definition = &def
		}
	}
	if patch.Target, err = required[float64](b, "target"); err != nil {
		return patch, err
	}
	if patch.CurrentValue, err = required[float64](b, "current_value"); err != nil {
		return patch, err
	}
	if patch.IsLocked, err = required[bool](b, "is_locked"); err != nil {
		return patch, err
	}
	if patch.IsPrivate, err = required[bool](b, "is_private"); err != nil {
		return patch, err
	}
	return patch, nil
}
