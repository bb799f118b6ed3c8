package handlers

import (
	"github.com/gofiber/fiber/v3"

	"github.com/seuros/orgoals/internal/models"
)

// HandleGoalList → GET /api/goals/
func (a *API) HandleGoalList(c fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	goals, err := a.svc.ListGoals(ctx)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(nonNil(goals))
}

// HandleGoalGet → GET /api/goals/:id
func (a *API) HandleGoalGet(c fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return invalidID(c, "id")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	g, err := a.svc.GetGoal(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(g)
}

// HandleGoalsForPerson → GET /api/goals/person/:person_id
func (a *API) HandleGoalsForPerson(c fiber.Ctx) error {
	personID, ok := parseID(c, "person_id")
	if !ok {
		return invalidID(c, "person_id")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	goals, err := a.svc.GoalsForPerson(ctx, personID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(nonNil(goals))
}

// HandleGoalCreate → POST /api/goals/
func (a *API) HandleGoalCreate(c fiber.Ctx) error {
	var req models.NewGoal
	if err := c.Bind().JSON(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid payload"})
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	g, err := a.svc.CreateGoal(ctx, req)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(g)
}

// HandleGoalUpdate → PUT /api/goals/:id
func (a *API) HandleGoalUpdate(c fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return invalidID(c, "id")
	}
	var body rawBody
	if err := c.Bind().JSON(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid payload"})
	}
	patch, err := decodeGoalPatch(body)
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	g, err := a.svc.UpdateGoal(ctx, id, patch)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(g)
}

// HandleGoalDelete → DELETE /api/goals/:id
func (a *API) HandleGoalDelete(c fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return invalidID(c, "id")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := a.svc.DeleteGoal(ctx, id); err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Goal deleted successfully"})
}

// HandleGoalPropagate → POST /api/goals/:id/propagate
// Re-runs propagation and reports every ancestor goal it touched.
func (a *API) HandleGoalPropagate(c fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return invalidID(c, "id")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := a.svc.Propagate(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	res.Changes = nonNil(res.Changes)
	return c.JSON(res)
}
