package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seuros/orgoals/internal/models"
)

func TestPersonCRUD(t *testing.T) {
	app := newTestApp(t)

	status, body := doJSON(t, app, http.MethodPost, "/api/persons/", `{"name":"Ada","position":"CEO"}`)
	require.Equal(t, http.StatusCreated, status, string(body))
	root := decode[models.Person](t, body)
	assert.Equal(t, "Ada", root.Name)
	assert.Nil(t, root.ParentID)

	status, body = doJSON(t, app, http.MethodPost, "/api/persons/",
		fmt.Sprintf(`{"name":"Bob","position":"VP","parent_id":%d}`, root.ID))
	require.Equal(t, http.StatusCreated, status, string(body))
	bob := decode[models.Person](t, body)
	require.NotNil(t, bob.ParentID)
	assert.Equal(t, root.ID, *bob.ParentID)

	status, body = doJSON(t, app, http.MethodGet, fmt.Sprintf("/api/persons/%d", bob.ID), "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Bob", decode[models.Person](t, body).Name)

	status, body = doJSON(t, app, http.MethodGet, fmt.Sprintf("/api/persons/%d?include=subordinates", root.ID), "")
	assert.Equal(t, http.StatusOK, status)
	withSubs := decode[models.PersonWithSubordinates](t, body)
	require.Len(t, withSubs.Subordinates, 1)
	assert.Equal(t, bob.ID, withSubs.Subordinates[0].ID)

	status, body = doJSON(t, app, http.MethodPut, fmt.Sprintf("/api/persons/%d", bob.ID), `{"position":"COO"}`)
	assert.Equal(t, http.StatusOK, status)
	updated := decode[models.Person](t, body)
	assert.Equal(t, "COO", updated.Position)
	assert.Equal(t, "Bob", updated.Name)
	require.NotNil(t, updated.ParentID, "absent parent_id leaves the parent alone")

	status, body = doJSON(t, app, http.MethodPut, fmt.Sprintf("/api/persons/%d", bob.ID), `{"parent_id":null}`)
	assert.Equal(t, http.StatusOK, status)
	assert.Nil(t, decode[models.Person](t, body).ParentID)

	status, body = doJSON(t, app, http.MethodGet, "/api/persons/", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]models.Person](t, body), 2)

	status, body = doJSON(t, app, http.MethodDelete, fmt.Sprintf("/api/persons/%d", bob.ID), "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Person deleted successfully", decode[map[string]any](t, body)["message"])

	status, _ = doJSON(t, app, http.MethodGet, fmt.Sprintf("/api/persons/%d", bob.ID), "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestPersonCreateValidation(t *testing.T) {
	app := newTestApp(t)

	tests := []struct {
		name string
		body string
		want string
	}{
		{"missing position", `{"name":"Ada"}`, "position required"},
		{"missing both", `{}`, "name and position required"},
		{"malformed json", `{"name":`, "invalid payload"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := doJSON(t, app, http.MethodPost, "/api/persons/", tt.body)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.Equal(t, tt.want, errorOf(t, body))
		})
	}
}

func TestPersonUpdateRejectsBadFields(t *testing.T) {
	app := newTestApp(t)
	_, body := doJSON(t, app, http.MethodPost, "/api/persons/", `{"name":"Ada","position":"CEO"}`)
	ada := decode[models.Person](t, body)
	path := fmt.Sprintf("/api/persons/%d", ada.ID)

	status, body := doJSON(t, app, http.MethodPut, path, `{"name":null}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "name cannot be null", errorOf(t, body))

	status, body = doJSON(t, app, http.MethodPut, path, `{"parent_id":"boss"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid parent_id", errorOf(t, body))

	status, body = doJSON(t, app, http.MethodPut, path, `{"name":"  "}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "name cannot be empty", errorOf(t, body))

	status, _ = doJSON(t, app, http.MethodPut, "/api/persons/999", `{"name":"Ghost"}`)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestPersonInvalidID(t *testing.T) {
	app := newTestApp(t)
	for _, path := range []string{"/api/persons/abc", "/api/persons/0", "/api/persons/-4/subordinates"} {
		status, body := doJSON(t, app, http.MethodGet, path, "")
		assert.Equal(t, http.StatusBadRequest, status, path)
		assert.Equal(t, "invalid id", errorOf(t, body))
	}
}

func TestPersonTreeAndChains(t *testing.T) {
	app := newTestApp(t)

	status, body := doJSON(t, app, http.MethodGet, "/api/persons/tree", "")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[]`, string(body))

	_, body = doJSON(t, app, http.MethodPost, "/api/persons/", `{"name":"Ada","position":"CEO"}`)
	ada := decode[models.Person](t, body)
	_, body = doJSON(t, app, http.MethodPost, "/api/persons/",
		fmt.Sprintf(`{"name":"Bob","position":"VP","parent_id":%d}`, ada.ID))
	bob := decode[models.Person](t, body)

	status, body = doJSON(t, app, http.MethodGet, "/api/persons/tree", "")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, fmt.Sprintf(`[{"id":%d,"name":"Ada","position":"CEO","parent_id":null,"children":[
		{"id":%d,"name":"Bob","position":"VP","parent_id":%d,"children":[]}]}]`, ada.ID, bob.ID, ada.ID), string(body))

	status, body = doJSON(t, app, http.MethodGet, fmt.Sprintf("/api/persons/%d/subordinates", ada.ID), "")
	assert.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]models.Person](t, body), 1)

	status, body = doJSON(t, app, http.MethodGet, fmt.Sprintf("/api/persons/%d/subordinates", bob.ID), "")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[]`, string(body))

	status, body = doJSON(t, app, http.MethodGet, fmt.Sprintf("/api/persons/%d/ancestors", bob.ID), "")
	assert.Equal(t, http.StatusOK, status)
	chain := decode[[]models.Person](t, body)
	require.Len(t, chain, 1)
	assert.Equal(t, ada.ID, chain[0].ID)

	status, _ = doJSON(t, app, http.MethodGet, "/api/persons/77/subordinates", "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestReparentIntoCycleIsServerError(t *testing.T) {
	app := newTestApp(t)
	_, body := doJSON(t, app, http.MethodPost, "/api/persons/", `{"name":"Ada","position":"CEO"}`)
	ada := decode[models.Person](t, body)
	_, body = doJSON(t, app, http.MethodPost, "/api/persons/",
		fmt.Sprintf(`{"name":"Bob","position":"VP","parent_id":%d}`, ada.ID))
	bob := decode[models.Person](t, body)
	status, _ := doJSON(t, app, http.MethodPost, "/api/goals/", fmt.Sprintf(`{"person_id":%d,"name":"Revenue","current_value":5}`, bob.ID))
	require.Equal(t, http.StatusCreated, status)

	status, body = doJSON(t, app, http.MethodPut, fmt.Sprintf("/api/persons/%d", ada.ID),
		fmt.Sprintf(`{"parent_id":%d}`, bob.ID))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Contains(t, errorOf(t, body), "parent cycle")

	status, body = doJSON(t, app, http.MethodGet, fmt.Sprintf("/api/persons/%d", ada.ID), "")
	assert.Equal(t, http.StatusOK, status)
	assert.Nil(t, decode[models.Person](t, body).ParentID, "failed move rolled back")
}

func TestPersonDetachedListsUnreachable(t *testing.T) {
	app := newTestApp(t)

	status, body := doJSON(t, app, http.MethodGet, "/api/persons/detached", "")
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[]`, string(body))

	_, body = doJSON(t, app, http.MethodPost, "/api/persons/", `{"name":"Ada","position":"CEO"}`)
	ada := decode[models.Person](t, body)
	status, body = doJSON(t, app, http.MethodPost, "/api/persons/", `{"name":"Ghost","position":"Contractor","parent_id":999}`)
	require.Equal(t, http.StatusCreated, status, string(body))
	ghost := decode[models.Person](t, body)

	_, body = doJSON(t, app, http.MethodGet, "/api/persons/tree", "")
	roots := decode[[]models.TreeNode](t, body)
	require.Len(t, roots, 1)
	assert.Equal(t, ada.ID, roots[0].ID)

	status, body = doJSON(t, app, http.MethodGet, "/api/persons/detached", "")
	require.Equal(t, http.StatusOK, status)
	detached := decode[[]models.Person](t, body)
	require.Len(t, detached, 1)
	assert.Equal(t, ghost.ID, detached[0].ID)
	require.NotNil(t, detached[0].ParentID)
	assert.Equal(t, int64(999), *detached[0].ParentID)

	status, _ = doJSON(t, app, http.MethodPut, fmt.Sprintf("/api/persons/%d", ghost.ID), fmt.Sprintf(`{"parent_id":%d}`, ada.ID))
	require.Equal(t, http.StatusOK, status)
	_, body = doJSON(t, app, http.MethodGet, "/api/persons/detached", "")
	assert.JSONEq(t, `[]`, string(body))
}
