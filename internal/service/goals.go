package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/seuros/orgoals/internal/models"
	"github.com/seuros/orgoals/internal/propagation"
	"github.com/seuros/orgoals/internal/store"
)

// ListGoals returns every goal.
func (s *Service) ListGoals(ctx context.Context) ([]models.Goal, error) {
	var out []models.Goal
	err := s.store.View(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		out, err = tx.ListGoals(ctx)
		return err
	})
	return out, err
}

// GetGoal returns one goal.
func (s *Service) GetGoal(ctx context.Context, id int64) (models.Goal, error) {
	var out models.Goal
	err := s.store.View(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		out, err = tx.GetGoal(ctx, id)
		return err
	})
	return out, err
}

// GoalsForPerson returns the goals owned by personID, which must exist.
func (s *Service) GoalsForPerson(ctx context.Context, personID int64) ([]models.Goal, error) {
	var out []models.Goal
	err := s.store.View(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.GetPerson(ctx, personID); err != nil {
			return err
		}
		var err error
		out, err = tx.GoalsByPerson(ctx, personID)
		return err
	})
	return out, err
}

// CreateGoal adds a goal and, unless it is private, propagates it upward.
func (s *Service) CreateGoal(ctx context.Context, ng models.NewGoal) (models.Goal, error) {
	if err := ng.Validate(); err != nil {
		return models.Goal{}, err
	}
	var out models.Goal
	err := s.run(ctx, "goal.create", func(ctx context.Context, tx store.Tx, log *zap.Logger) error {
		if _, err := tx.GetPerson(ctx, ng.PersonID); err != nil {
			return err
		}
		var err error
		out, err = tx.CreateGoal(ctx, ng)
		if err != nil {
			return err
		}
		log.Info("goal created", zap.Int64("goal_id", out.ID), zap.Int64("person_id", out.PersonID))
		if out.IsPrivate {
			return nil
		}
		res, err := s.engine.Propagate(ctx, tx, out.ID)
		logChanges(log, res)
		return err
	})
	return out, err
}

// UpdateGoal patches a goal. A public result propagates from the goal; a
// contribution that left its old place (goal turned private, renamed, or
// moved to another person) is withdrawn by refreshing the old parent goal.
func (s *Service) UpdateGoal(ctx context.Context, id int64, patch models.GoalPatch) (models.Goal, error) {
	if err := patch.Validate(); err != nil {
		return models.Goal{}, err
	}
	var out models.Goal
	err := s.run(ctx, "goal.update", func(ctx context.Context, tx store.Tx, log *zap.Logger) error {
		before, err := tx.GetGoal(ctx, id)
		if err != nil {
			return err
		}
		out, err = tx.UpdateGoal(ctx, id, patch)
		if err != nil {
			return err
		}

		withdrawn := !before.IsPrivate &&
			(out.IsPrivate || out.Name != before.Name || out.PersonID != before.PersonID)
		if withdrawn {
			res, err := s.engine.RefreshParentOf(ctx, tx, before.PersonID, before.Name)
			if err != nil {
				return err
			}
			logChanges(log, res)
		}
		if !out.IsPrivate {
			res, err := s.engine.Propagate(ctx, tx, out.ID)
			if err != nil {
				return err
			}
			logChanges(log, res)
		}
		return nil
	})
	return out, err
}

// DeleteGoal removes a goal. Deleting a public goal refreshes the parent's
// goal of the same name, if any.
func (s *Service) DeleteGoal(ctx context.Context, id int64) error {
	return s.run(ctx, "goal.delete", func(ctx context.Context, tx store.Tx, log *zap.Logger) error {
		snapshot, err := tx.GetGoal(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.DeleteGoal(ctx, id); err != nil {
			return err
		}
		log.Info("goal deleted", zap.Int64("goal_id", id), zap.Int64("person_id", snapshot.PersonID))
		if snapshot.IsPrivate {
			return nil
		}
		res, err := s.engine.RefreshParentOf(ctx, tx, snapshot.PersonID, snapshot.Name)
		logChanges(log, res)
		return err
	})
}

// Propagate re-runs propagation from a goal without changing it.
func (s *Service) Propagate(ctx context.Context, goalID int64) (propagation.Result, error) {
	var res propagation.Result
	err := s.run(ctx, "goal.propagate", func(ctx context.Context, tx store.Tx, log *zap.Logger) error {
		var err error
		res, err = s.engine.Propagate(ctx, tx, goalID)
		logChanges(log, res)
		return err
	})
	return res, err
}
