// Package handlers exposes the hierarchy and goal operations over HTTP.
package handlers

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/seuros/orgoals/internal/logging"
	"github.com/seuros/orgoals/internal/models"
	"github.com/seuros/orgoals/internal/service"
)

const requestTimeout = 10 * time.Second

// API binds the service to fiber routes.
type API struct {
	svc  *service.Service
	tree *TreeCache
}

// New returns an API whose tree endpoint is cached for treeTTL.
func New(svc *service.Service, treeTTL time.Duration) *API {
	return &API{
		svc:  svc,
		tree: NewTreeCache(svc.Tree, treeTTL),
	}
}

// Register mounts every route on router.
func (a *API) Register(router fiber.Router) {
	router.Get("/api/health", a.HandleHealth)
	router.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	persons := router.Group("/api/persons")
	persons.Get("/", a.HandlePersonList)
	persons.Post("/", a.HandlePersonCreate)
	persons.Get("/tree", a.HandlePersonTree)
	persons.Get("/detached", a.HandlePersonDetached)
	persons.Get("/:id", a.HandlePersonGet)
	persons.Put("/:id", a.HandlePersonUpdate)
	persons.Delete("/:id", a.HandlePersonDelete)
	persons.Get("/:id/subordinates", a.HandlePersonSubordinates)
	persons.Get("/:id/ancestors", a.HandlePersonAncestors)

	goals := router.Group("/api/goals")
	goals.Get("/", a.HandleGoalList)
	goals.Post("/", a.HandleGoalCreate)
	goals.Get("/person/:person_id", a.HandleGoalsForPerson)
	goals.Get("/:id", a.HandleGoalGet)
	goals.Put("/:id", a.HandleGoalUpdate)
	goals.Delete("/:id", a.HandleGoalDelete)
	goals.Post("/:id/propagate", a.HandleGoalPropagate)
}

// HandleHealth → GET /api/health
func (a *API) HandleHealth(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// ErrorHandler is the fiber.Config error handler. It renders errors that
// escape a handler with the same body shape the handlers use.
func ErrorHandler(c fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
	}
	return writeError(c, err)
}

// writeError maps the error taxonomy to a status code.
func writeError(c fiber.Ctx, err error) error {
	status := statusFor(err)
	msg := err.Error()
	if status == fiber.StatusInternalServerError {
		logging.L().Error("request failed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err))
		if !errors.Is(err, models.ErrConsistency) {
			msg = "internal error"
		}
	}
	return c.Status(status).JSON(fiber.Map{"error": msg})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, models.ErrValidation):
		return fiber.StatusBadRequest
	case errors.Is(err, models.ErrConflict):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

func requestContext(c fiber.Ctx) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Context(), requestTimeout)
}

func parseID(c fiber.Ctx, param string) (int64, bool) {
	id, err := strconv.ParseInt(c.Params(param), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func invalidID(c fiber.Ctx, param string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid " + param})
}
