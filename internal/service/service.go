// Package service runs hierarchy and goal mutations together with the
// propagation they trigger, one unit of work per call.
package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/seuros/orgoals/internal/logging"
	"github.com/seuros/orgoals/internal/models"
	"github.com/seuros/orgoals/internal/propagation"
	"github.com/seuros/orgoals/internal/store"
)

// Service is safe for concurrent use; serialization is the store's job.
type Service struct {
	store    store.Store
	engine   *propagation.Engine
	maxDepth int
	logger   *zap.Logger
}

// New wires a Service. maxDepth bounds tree building; <= 0 uses the engine
// default.
func New(st store.Store, engine *propagation.Engine, maxDepth int) *Service {
	if engine == nil {
		engine = propagation.New()
	}
	if maxDepth <= 0 {
		maxDepth = propagation.DefaultMaxDepth
	}
	return &Service{
		store:    st,
		engine:   engine,
		maxDepth: maxDepth,
		logger:   logging.L(),
	}
}

// run executes fn in one unit of work and tags the log lines with an
// operation id.
func (s *Service) run(ctx context.Context, op string, fn func(ctx context.Context, tx store.Tx, log *zap.Logger) error) error {
	ctx = logging.StartOperation(ctx, op)
	log := logging.With(ctx, s.logger)
	err := s.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		return fn(ctx, tx, log)
	})
	if err != nil && !models.IsNotFound(err) {
		log.Warn("operation failed", zap.Error(err))
	}
	return err
}

func logChanges(log *zap.Logger, res propagation.Result) {
	if len(res.Changes) == 0 {
		return
	}
	log.Info("goals propagated", zap.Int("ancestors", len(res.Changes)))
}
