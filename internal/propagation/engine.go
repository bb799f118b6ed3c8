// Package propagation pushes goal values up the reporting hierarchy.
//
// A walk starts at a changed goal, moves to the owner's parent, finds (or
// creates) the parent's goal with the same name, recomputes it from every
// direct child's same-named public goal, and repeats from there. Locked goals
// keep their value but do not stop the walk; private goals stop it.
package propagation

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/seuros/orgoals/internal/logging"
	"github.com/seuros/orgoals/internal/models"
	"github.com/seuros/orgoals/internal/store"
)

// DefaultMaxDepth bounds a walk when no limit is configured.
const DefaultMaxDepth = 256

const tracerName = "github.com/seuros/orgoals/internal/propagation"

// Change describes one ancestor goal the walk visited.
type Change struct {
	GoalID   int64   `json:"goal_id" yaml:"goal_id"`
	PersonID int64   `json:"person_id" yaml:"person_id"`
	Name     string  `json:"name" yaml:"name"`
	Previous float64 `json:"previous" yaml:"previous"`
	Value    float64 `json:"value" yaml:"value"`
	Created  bool    `json:"created" yaml:"created"`
	Locked   bool    `json:"locked" yaml:"locked"`
}

// Result lists the ancestor goals a walk visited, nearest first.
type Result struct {
	Changes []Change `json:"changes" yaml:"changes"`
}

// Engine runs propagation walks inside a caller-provided unit of work.
type Engine struct {
	policy   Policy
	maxDepth int
	logger   *zap.Logger
	tracer   trace.Tracer
}

// Option configures an Engine.
type Option func(*Engine)

// WithPolicy replaces the default Sum policy.
func WithPolicy(p Policy) Option {
	return func(e *Engine) {
		if p != nil {
			e.policy = p
		}
	}
}

// WithMaxDepth bounds the number of ancestor levels one walk may visit.
func WithMaxDepth(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxDepth = n
		}
	}
}

// WithLogger sets the logger used for per-level debug output.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithTracerProvider overrides the global OTel tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Engine) {
		if tp != nil {
			e.tracer = tp.Tracer(tracerName)
		}
	}
}

// New returns an Engine using Sum and DefaultMaxDepth unless overridden.
func New(opts ...Option) *Engine {
	e := &Engine{
		policy:   Sum,
		maxDepth: DefaultMaxDepth,
		logger:   logging.L(),
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Propagate pushes goal goalID's value up the ancestor chain. A private goal
// is a no-op.
func (e *Engine) Propagate(ctx context.Context, tx store.Tx, goalID int64) (Result, error) {
	ctx, span := e.tracer.Start(ctx, "propagation.Propagate",
		trace.WithAttributes(attribute.Int64("goal.id", goalID)))
	defer span.End()

	start := time.Now()
	g, err := tx.GetGoal(ctx, goalID)
	if err != nil {
		return e.finish(span, start, Result{}, err)
	}
	if g.IsPrivate {
		walksTotal.WithLabelValues("noop").Inc()
		span.SetAttributes(attribute.Bool("goal.private", true))
		return Result{}, nil
	}

	var res Result
	err = e.walk(ctx, tx, g, &res)
	return e.finish(span, start, res, err)
}

// Refresh recomputes goal goalID from its owner's direct children and then
// propagates it upward. It is used when a contribution disappeared (a child
// goal was deleted, turned private, renamed, or its owner moved) and the
// goal itself must drop it. Locked and private goals keep their value; a
// locked goal still propagates.
func (e *Engine) Refresh(ctx context.Context, tx store.Tx, goalID int64) (Result, error) {
	ctx, span := e.tracer.Start(ctx, "propagation.Refresh",
		trace.WithAttributes(attribute.Int64("goal.id", goalID)))
	defer span.End()

	start := time.Now()
	h, err := tx.GetGoal(ctx, goalID)
	if err != nil {
		return e.finish(span, start, Result{}, err)
	}
	if h.IsPrivate {
		walksTotal.WithLabelValues("noop").Inc()
		return Result{}, nil
	}
	owner, err := tx.GetPerson(ctx, h.PersonID)
	if models.IsNotFound(err) {
		err = models.DanglingError("goal %d references missing person %d", h.ID, h.PersonID)
	}
	if err != nil {
		return e.finish(span, start, Result{}, err)
	}

	var res Result
	h, change, err := e.recompute(ctx, tx, owner, h, false)
	if err != nil {
		return e.finish(span, start, res, err)
	}
	res.Changes = append(res.Changes, change)
	err = e.walk(ctx, tx, h, &res)
	return e.finish(span, start, res, err)
}

// RefreshAt refreshes the goal named name on personID. A missing person or
// goal is skipped without error.
func (e *Engine) RefreshAt(ctx context.Context, tx store.Tx, personID int64, name string) (Result, error) {
	h, err := tx.FindGoal(ctx, personID, name)
	if models.IsNotFound(err) {
		return Result{}, nil
	}
	if err != nil {
		return Result{}, err
	}
	return e.Refresh(ctx, tx, h.ID)
}

// RefreshParentOf refreshes the goal named name on personID's parent. It is
// a silent no-op when the person is gone, is a root, or the parent has no
// such goal.
func (e *Engine) RefreshParentOf(ctx context.Context, tx store.Tx, personID int64, name string) (Result, error) {
	p, err := tx.GetPerson(ctx, personID)
	if models.IsNotFound(err) {
		return Result{}, nil
	}
	if err != nil {
		return Result{}, err
	}
	if p.ParentID == nil {
		return Result{}, nil
	}
	return e.RefreshAt(ctx, tx, *p.ParentID, name)
}

// walk moves from g to each ancestor in turn.
func (e *Engine) walk(ctx context.Context, tx store.Tx, g models.Goal, res *Result) error {
	path := make([]int64, 0, 8)
	visited := make(map[int64]bool)

	for {
		p, err := tx.GetPerson(ctx, g.PersonID)
		if models.IsNotFound(err) {
			return models.DanglingError("goal %d references missing person %d", g.ID, g.PersonID)
		}
		if err != nil {
			return err
		}
		path = append(path, p.ID)
		if visited[p.ID] {
			return models.CycleError(path)
		}
		visited[p.ID] = true

		if p.ParentID == nil {
			return nil
		}
		parentID := *p.ParentID
		if visited[parentID] {
			return models.CycleError(append(path, parentID))
		}
		if len(path) > e.maxDepth {
			return models.DanglingError("propagation from goal %d exceeded %d levels", g.ID, e.maxDepth)
		}

		q, err := tx.GetPerson(ctx, parentID)
		if models.IsNotFound(err) {
			return models.DanglingError("person %d references missing parent %d", p.ID, parentID)
		}
		if err != nil {
			return err
		}

		h, err := tx.FindGoal(ctx, q.ID, g.Name)
		created := false
		switch {
		case err == nil:
		case models.IsNotFound(err):
			created = true
			h = models.Goal{PersonID: q.ID, Name: g.Name}
		default:
			return err
		}

		if !created && h.IsPrivate {
			return nil
		}

		h, change, err := e.recompute(ctx, tx, q, h, created)
		if err != nil {
			return err
		}
		res.Changes = append(res.Changes, change)
		g = h
	}
}

// recompute sets h to the policy over owner's children and persists it. A
// goal with zero ID is created.
func (e *Engine) recompute(ctx context.Context, tx store.Tx, owner models.Person, h models.Goal, create bool) (models.Goal, Change, error) {
	change := Change{
		GoalID:   h.ID,
		PersonID: owner.ID,
		Name:     h.Name,
		Previous: h.CurrentValue,
		Value:    h.CurrentValue,
	}
	if h.IsLocked {
		change.Locked = true
		ancestorWrites.WithLabelValues("locked").Inc()
		logging.With(ctx, e.logger).Debug("locked goal kept its value",
			zap.Int64("person_id", owner.ID),
			zap.Int64("goal_id", h.ID),
			zap.String("name", h.Name),
			zap.Float64("value", h.CurrentValue))
		return h, change, nil
	}

	values, err := e.contributions(ctx, tx, owner.ID, h.Name)
	if err != nil {
		return h, change, err
	}
	value := e.policy(values)
	change.Value = value

	switch {
	case create:
		h, err = tx.CreateGoal(ctx, models.NewGoal{
			PersonID:     owner.ID,
			Name:         h.Name,
			CurrentValue: value,
		})
		if err != nil {
			return h, change, err
		}
		change.GoalID = h.ID
		change.Previous = 0
		change.Created = true
		ancestorWrites.WithLabelValues("created").Inc()
	case h.CurrentValue != value:
		h, err = tx.UpdateGoal(ctx, h.ID, models.ValuePatch(value))
		if err != nil {
			return h, change, err
		}
		ancestorWrites.WithLabelValues("updated").Inc()
	}

	logging.With(ctx, e.logger).Debug("ancestor goal recomputed",
		zap.Int64("person_id", owner.ID),
		zap.Int64("goal_id", h.ID),
		zap.String("name", h.Name),
		zap.Int("contributors", len(values)),
		zap.Float64("value", value),
		zap.Bool("created", create))
	return h, change, nil
}

// contributions collects the current values of every public goal named name
// owned by a direct child of parentID. Children without such a goal are
// absent from the result rather than counted as zero.
func (e *Engine) contributions(ctx context.Context, tx store.Tx, parentID int64, name string) ([]float64, error) {
	kids, err := tx.Subordinates(ctx, parentID)
	if err != nil {
		return nil, err
	}
	values := make([]float64, 0, len(kids))
	for _, kid := range kids {
		g, err := tx.FindGoal(ctx, kid.ID, name)
		if models.IsNotFound(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if g.IsPrivate {
			continue
		}
		values = append(values, g.CurrentValue)
	}
	return values, nil
}

func (e *Engine) finish(span trace.Span, start time.Time, res Result, err error) (Result, error) {
	walkDuration.Observe(time.Since(start).Seconds())
	walkLevels.Observe(float64(len(res.Changes)))
	span.SetAttributes(attribute.Int("propagation.levels", len(res.Changes)))
	if err != nil {
		walksTotal.WithLabelValues("error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, models.ErrConsistency) {
			e.logger.Error("propagation aborted", zap.Error(err))
		}
		return res, err
	}
	walksTotal.WithLabelValues("ok").Inc()
	return res, nil
}
