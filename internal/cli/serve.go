package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	fiberzap "github.com/gofiber/contrib/v3/zap"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	recoverer "github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/seuros/orgoals/internal/config"
	"github.com/seuros/orgoals/internal/handlers"
	"github.com/seuros/orgoals/internal/logging"
	"github.com/seuros/orgoals/internal/telemetry"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serve the REST API under /api, Prometheus metrics under /metrics,
and a health probe at /api/health.

Examples:
  orgoals serve
  orgoals serve --port 8080 --database-url sqlite://orgoals.db`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	cfg, err := loadConfig(servePort)
	if err != nil {
		return err
	}

	shutdownTracing, err := telemetry.Setup(parent, cfg.OTelEndpoint, Version)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(ctx)
	}()

	b, err := openBackend(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = b.Close() }()

	app := newServerApp(b)

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logging.L().Warn("shutdown failed", zap.Error(err))
		}
	}()

	store := "memory"
	if cfg.DatabaseURL != "" {
		store = config.RedactDatabaseURL(cfg.DatabaseURL)
	}
	logging.L().Info("orgoals listening",
		zap.String("port", cfg.Port),
		zap.String("store", store),
		zap.String("aggregation", cfg.Aggregation))

	if err := app.Listen(":"+cfg.Port, fiber.ListenConfig{DisableStartupMessage: true}); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// newServerApp builds the fiber app with middleware and routes.
func newServerApp(b *backend) *fiber.App {
	app := fiber.New(createFiberConfig("orgoals " + Version))

	app.Use(recoverer.New())
	app.Use(requestid.New())
	app.Use(fiberzap.New(fiberzap.Config{Logger: logging.L()}))
	if len(b.cfg.TrustedOrigins) > 0 {
		app.Use(cors.New(cors.Config{
			AllowOrigins: b.cfg.TrustedOrigins,
			AllowMethods: []string{fiber.MethodGet, fiber.MethodPost, fiber.MethodPut, fiber.MethodDelete},
			AllowHeaders: []string{fiber.HeaderContentType},
		}))
	}

	handlers.New(b.svc, b.cfg.TreeCacheTTL).Register(app)
	return app
}

func init() {
	serveCmd.Flags().StringVarP(&servePort, "port", "p", "", "Listen port; overrides config")
	RootCmd.AddCommand(serveCmd)
}
