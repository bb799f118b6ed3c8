package cli

import (
	"github.com/gofiber/fiber/v3"

	"github.com/seuros/orgoals/internal/handlers"
)

// createFiberConfig returns Fiber configuration.
func createFiberConfig(appName string) fiber.Config {
	return fiber.Config{
		AppName:      appName,
		ErrorHandler: handlers.ErrorHandler,
	}
}
