package handlers

import (
	"github.com/gofiber/fiber/v3"

	"github.com/seuros/orgoals/internal/models"
)

// HandlePersonList → GET /api/persons/
func (a *API) HandlePersonList(c fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	persons, err := a.svc.ListPersons(ctx)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(persons)
}

// HandlePersonTree → GET /api/persons/tree
func (a *API) HandlePersonTree(c fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	tree, err := a.tree.Get(ctx)
	if err != nil {
		return writeError(c, err)
	}
	if tree == nil {
		tree = []*models.TreeNode{}
	}
	return c.JSON(tree)
}

// HandlePersonGet → GET /api/persons/:id
// ?include=subordinates embeds the direct reports.
func (a *API) HandlePersonGet(c fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return invalidID(c, "id")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	p, err := a.svc.GetPerson(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	if c.Query("include") != "subordinates" {
		return c.JSON(p)
	}
	subs, err := a.svc.Subordinates(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(models.PersonWithSubordinates{Person: p, Subordinates: nonNil(subs)})
}

// HandlePersonCreate → POST /api/persons/
func (a *API) HandlePersonCreate(c fiber.Ctx) error {
	var req models.NewPerson
	if err := c.Bind().JSON(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid payload"})
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	p, err := a.svc.CreatePerson(ctx, req)
	if err != nil {
		return writeError(c, err)
	}
	a.tree.Invalidate()
	return c.Status(fiber.StatusCreated).JSON(p)
}

// HandlePersonUpdate → PUT /api/persons/:id
func (a *API) HandlePersonUpdate(c fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return invalidID(c, "id")
	}
	var body rawBody
	if err := c.Bind().JSON(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid payload"})
	}
	patch, err := decodePersonPatch(body)
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	p, err := a.svc.UpdatePerson(ctx, id, patch)
	if err != nil {
		return writeError(c, err)
	}
	a.tree.Invalidate()
	return c.JSON(p)
}

// HandlePersonDelete → DELETE /api/persons/:id
func (a *API) HandlePersonDelete(c fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return invalidID(c, "id")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := a.svc.DeletePerson(ctx, id); err != nil {
		return writeError(c, err)
	}
	a.tree.Invalidate()
	return c.JSON(fiber.Map{"message": "Person deleted successfully"})
}

// HandlePersonSubordinates → GET /api/persons/:id/subordinates
func (a *API) HandlePersonSubordinates(c fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return invalidID(c, "id")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	subs, err := a.svc.Subordinates(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(nonNil(subs))
}

// HandlePersonDetached → GET /api/persons/detached
// Lists the persons missing from the tree: their manager was never created
// or the reporting line loops.
func (a *API) HandlePersonDetached(c fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	persons, err := a.svc.Detached(ctx)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(nonNil(persons))
}

// HandlePersonAncestors → GET /api/persons/:id/ancestors
func (a *API) HandlePersonAncestors(c fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return invalidID(c, "id")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	chain, err := a.svc.Ancestors(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(nonNil(chain))
}

// nonNil keeps empty lists rendering as [] instead of null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
