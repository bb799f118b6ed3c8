package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/seuros/orgoals/internal/models"
	"github.com/seuros/orgoals/internal/propagation"
	"github.com/seuros/orgoals/internal/store"
)

// ListPersons returns every person.
func (s *Service) ListPersons(ctx context.Context) ([]models.Person, error) {
	var out []models.Person
	err := s.store.View(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		out, err = tx.ListPersons(ctx)
		return err
	})
	return out, err
}

// GetPerson returns one person.
func (s *Service) GetPerson(ctx context.Context, id int64) (models.Person, error) {
	var out models.Person
	err := s.store.View(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		out, err = tx.GetPerson(ctx, id)
		return err
	})
	return out, err
}

// Subordinates returns the direct reports of id.
func (s *Service) Subordinates(ctx context.Context, id int64) ([]models.Person, error) {
	var out []models.Person
	err := s.store.View(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		out, err = tx.Subordinates(ctx, id)
		return err
	})
	return out, err
}

// Ancestors returns the reporting chain above id, nearest first.
func (s *Service) Ancestors(ctx context.Context, id int64) ([]models.Person, error) {
	var out []models.Person
	err := s.store.View(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		out, err = store.Ancestors(ctx, tx, id, s.maxDepth)
		return err
	})
	return out, err
}

// Tree returns the hierarchy as a forest.
func (s *Service) Tree(ctx context.Context) ([]*models.TreeNode, error) {
	var out []*models.TreeNode
	err := s.store.View(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		out, err = store.Tree(ctx, tx, s.maxDepth)
		return err
	})
	return out, err
}

// Detached returns the persons Tree leaves out because no root reaches them.
func (s *Service) Detached(ctx context.Context) ([]models.Person, error) {
	var out []models.Person
	err := s.store.View(ctx, func(ctx context.Context, tx store.Tx) error {
		persons, err := tx.ListPersons(ctx)
		if err != nil {
			return err
		}
		out = store.Detached(persons)
		return nil
	})
	return out, err
}

// CreatePerson adds a person. The parent id is not checked.
func (s *Service) CreatePerson(ctx context.Context, np models.NewPerson) (models.Person, error) {
	if err := np.Validate(); err != nil {
		return models.Person{}, err
	}
	var out models.Person
	err := s.run(ctx, "person.create", func(ctx context.Context, tx store.Tx, log *zap.Logger) error {
		var err error
		out, err = tx.CreatePerson(ctx, np)
		if err == nil {
			log.Info("person created", zap.Int64("person_id", out.ID))
		}
		return err
	})
	return out, err
}

// UpdatePerson patches a person. Moving a person to another parent
// re-aggregates every public goal it owns along the old and the new chain.
func (s *Service) UpdatePerson(ctx context.Context, id int64, patch models.PersonPatch) (models.Person, error) {
	if err := patch.Validate(); err != nil {
		return models.Person{}, err
	}
	var out models.Person
	err := s.run(ctx, "person.update", func(ctx context.Context, tx store.Tx, log *zap.Logger) error {
		before, err := tx.GetPerson(ctx, id)
		if err != nil {
			return err
		}
		out, err = tx.UpdatePerson(ctx, id, patch)
		if err != nil {
			return err
		}
		if models.SameParent(before.ParentID, out.ParentID) {
			return nil
		}
		goals, err := tx.GoalsByPerson(ctx, id)
		if err != nil {
			return err
		}
		for _, g := range goals {
			if g.IsPrivate {
				continue
			}
			if before.ParentID != nil {
				res, err := s.engine.RefreshAt(ctx, tx, *before.ParentID, g.Name)
				if err != nil {
					return err
				}
				logChanges(log, res)
			}
			res, err := s.engine.Propagate(ctx, tx, g.ID)
			if err != nil {
				return err
			}
			logChanges(log, res)
		}
		log.Info("person moved", zap.Int64("person_id", id), zap.Int("goals", len(goals)))
		return nil
	})
	return out, err
}

// DeletePerson removes a person and its goals, orphans its direct reports,
// and re-aggregates the former parent's matching goals.
func (s *Service) DeletePerson(ctx context.Context, id int64) error {
	return s.run(ctx, "person.delete", func(ctx context.Context, tx store.Tx, log *zap.Logger) error {
		before, err := tx.GetPerson(ctx, id)
		if err != nil {
			return err
		}
		goals, err := tx.GoalsByPerson(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.DeletePerson(ctx, id); err != nil {
			return err
		}
		if before.ParentID != nil {
			for _, g := range goals {
				if g.IsPrivate {
					continue
				}
				var res propagation.Result
				res, err = s.engine.RefreshAt(ctx, tx, *before.ParentID, g.Name)
				if err != nil {
					return err
				}
				logChanges(log, res)
			}
		}
		log.Info("person deleted", zap.Int64("person_id", id))
		return nil
	})
}
