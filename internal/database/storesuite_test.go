package database

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seuros/orgoals/internal/models"
	"github.com/seuros/orgoals/internal/propagation"
	"github.com/seuros/orgoals/internal/service"
	"github.com/seuros/orgoals/internal/store"
)

func int64Ptr(v int64) *int64 { return &v }

func boolPtr(v bool) *bool { return &v }

// runStoreSuite exercises a migrated, empty SQL store end to end.
func runStoreSuite(t *testing.T, st store.Store) {
	ctx := context.Background()
	svc := service.New(st, propagation.New(), 0)

	a, err := svc.CreatePerson(ctx, models.NewPerson{Name: "Alice", Position: "CEO"})
	require.NoError(t, err)
	b, err := svc.CreatePerson(ctx, models.NewPerson{Name: "Bob", Position: "VP Sales", ParentID: int64Ptr(a.ID)})
	require.NoError(t, err)
	c, err := svc.CreatePerson(ctx, models.NewPerson{Name: "Carol", Position: "VP Ops", ParentID: int64Ptr(a.ID)})
	require.NoError(t, err)

	t.Run("subordinates in id order", func(t *testing.T) {
		subs, err := svc.Subordinates(ctx, a.ID)
		require.NoError(t, err)
		require.Len(t, subs, 2)
		assert.Equal(t, b.ID, subs[0].ID)
		assert.Equal(t, c.ID, subs[1].ID)

		_, err = svc.Subordinates(ctx, 9999)
		assert.True(t, models.IsNotFound(err))
	})

	var bGoal, cGoal models.Goal
	t.Run("propagation creates and aggregates the parent goal", func(t *testing.T) {
		bGoal, err = svc.CreateGoal(ctx, models.NewGoal{PersonID: b.ID, Name: "Revenue", Target: 200, CurrentValue: 100})
		require.NoError(t, err)

		parent := findGoal(t, st, a.ID, "Revenue")
		assert.Equal(t, 100.0, parent.CurrentValue)
		assert.Nil(t, parent.Definition)

		cGoal, err = svc.CreateGoal(ctx, models.NewGoal{PersonID: c.ID, Name: "Revenue", CurrentValue: 50})
		require.NoError(t, err)
		assert.Equal(t, 150.0, findGoal(t, st, a.ID, "Revenue").CurrentValue)
	})

	t.Run("duplicate goal name is a validation error", func(t *testing.T) {
		_, err := svc.CreateGoal(ctx, models.NewGoal{PersonID: b.ID, Name: "Revenue"})
		assert.ErrorIs(t, err, models.ErrValidation)
	})

	t.Run("private goal withdraws its contribution", func(t *testing.T) {
		_, err := svc.UpdateGoal(ctx, bGoal.ID, models.GoalPatch{IsPrivate: boolPtr(true)})
		require.NoError(t, err)
		assert.Equal(t, 50.0, findGoal(t, st, a.ID, "Revenue").CurrentValue)

		_, err = svc.UpdateGoal(ctx, bGoal.ID, models.GoalPatch{IsPrivate: boolPtr(false)})
		require.NoError(t, err)
		assert.Equal(t, 150.0, findGoal(t, st, a.ID, "Revenue").CurrentValue)
	})

	t.Run("failed unit of work leaves no trace", func(t *testing.T) {
		boom := errors.New("boom")
		err := st.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
			if _, err := tx.CreatePerson(ctx, models.NewPerson{Name: "Ghost", Position: "None"}); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		persons, err := svc.ListPersons(ctx)
		require.NoError(t, err)
		assert.Len(t, persons, 3)
	})

	t.Run("deleting a person orphans children and refreshes the parent", func(t *testing.T) {
		d, err := svc.CreatePerson(ctx, models.NewPerson{Name: "Dan", Position: "Rep", ParentID: int64Ptr(c.ID)})
		require.NoError(t, err)

		require.NoError(t, svc.DeletePerson(ctx, c.ID))

		_, err = svc.GetGoal(ctx, cGoal.ID)
		assert.True(t, models.IsNotFound(err))

		orphan, err := svc.GetPerson(ctx, d.ID)
		require.NoError(t, err)
		assert.True(t, orphan.IsRoot())

		assert.Equal(t, 100.0, findGoal(t, st, a.ID, "Revenue").CurrentValue)
	})

	t.Run("tree lists remaining roots", func(t *testing.T) {
		roots, err := svc.Tree(ctx)
		require.NoError(t, err)
		require.Len(t, roots, 2)
		assert.Equal(t, a.ID, roots[0].ID)
		require.Len(t, roots[0].Children, 1)
		assert.Equal(t, b.ID, roots[0].Children[0].ID)
	})
}

func findGoal(t *testing.T, st store.Store, personID int64, name string) models.Goal {
	t.Helper()
	var g models.Goal
	err := st.View(context.Background(), func(ctx context.Context, tx store.Tx) error {
		var err error
		g, err = tx.FindGoal(ctx, personID, name)
		return err
	})
	require.NoError(t, err)
	return g
}
