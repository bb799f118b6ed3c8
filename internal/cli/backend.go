package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/seuros/orgoals/internal/config"
	"github.com/seuros/orgoals/internal/database"
	"github.com/seuros/orgoals/internal/logging"
	"github.com/seuros/orgoals/internal/propagation"
	"github.com/seuros/orgoals/internal/service"
	"github.com/seuros/orgoals/internal/store"
)

const commandTimeout = 30 * time.Second

var errEphemeralStore = errors.New("no database_url configured: this change would be lost when the command exits " +
	"(set DATABASE_URL, pass --database-url, or run orgoals config init)")

// backend is everything a data command needs. An ephemeral backend keeps its
// data in memory and loses it on Close.
type backend struct {
	cfg       *config.Config
	store     store.Store
	svc       *service.Service
	ephemeral bool
}

func (b *backend) Close() error {
	return b.store.Close()
}

// Swappable for tests.
var (
	loadConfig = func(port string) (*config.Config, error) {
		return config.LoadWithOverrides(flagDatabaseURL, port, flagAggregation)
	}
	openBackend = func(cfg *config.Config) (*backend, error) {
		return newBackend(cfg)
	}
)

// newBackend opens the configured store, migrating SQL databases to the
// latest schema, and wires the propagation engine.
func newBackend(cfg *config.Config) (*backend, error) {
	policy, err := propagation.PolicyByName(cfg.Aggregation)
	if err != nil {
		return nil, err
	}

	var st store.Store
	ephemeral := cfg.DatabaseURL == ""
	if ephemeral {
		logging.L().Warn("no database_url configured; using an in-memory store that is discarded on exit",
			zap.String("hint", "set DATABASE_URL or run orgoals config init"))
		st = store.NewMemory()
	} else {
		conn, err := database.ConnectWithURL(cfg.DatabaseURL, cfg.DatabaseDriver)
		if err != nil {
			return nil, fmt.Errorf("database connection failed: %w", err)
		}
		if err := database.Migrate(conn); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("migration failed: %w", err)
		}
		st = database.NewSQLStore(conn)
	}

	engine := propagation.New(
		propagation.WithPolicy(policy),
		propagation.WithMaxDepth(cfg.MaxDepth),
	)
	return &backend{
		cfg:       cfg,
		store:     st,
		svc:       service.New(st, engine, cfg.MaxDepth),
		ephemeral: ephemeral,
	}, nil
}

// withService loads config, opens the backend, and runs fn with a bounded
// context.
func withService(fn func(ctx context.Context, svc *service.Service) error) error {
	return runService(false, fn)
}

// withWriteService is withService for commands that change data. It refuses
// to run against an ephemeral backend, where the change would vanish.
func withWriteService(fn func(ctx context.Context, svc *service.Service) error) error {
	return runService(true, fn)
}

func runService(writes bool, fn func(ctx context.Context, svc *service.Service) error) error {
	cfg, err := loadConfig("")
	if err != nil {
		return err
	}
	b, err := openBackend(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = b.Close() }()
	if writes && b.ephemeral {
		return errEphemeralStore
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	return fn(ctx, b.svc)
}
