package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/seuros/orgoals/internal/logging"
	"github.com/seuros/orgoals/internal/models"
	"github.com/seuros/orgoals/internal/propagation"
	"github.com/seuros/orgoals/internal/store"
)

func ptr[T any](v T) *T { return &v }

func newTestService(t *testing.T, opts ...propagation.Option) *Service {
	t.Helper()
	restore := logging.Replace(zap.NewNop())
	t.Cleanup(restore)
	return New(store.NewMemory(), propagation.New(opts...), 0)
}

func mustPerson(t *testing.T, svc *Service, name string, parent *int64) models.Person {
	t.Helper()
	p, err := svc.CreatePerson(context.Background(), models.NewPerson{Name: name, Position: "Staff", ParentID: parent})
	require.NoError(t, err)
	return p
}

func mustGoal(t *testing.T, svc *Service, personID int64, name string, value float64) models.Goal {
	t.Helper()
	g, err := svc.CreateGoal(context.Background(), models.NewGoal{PersonID: personID, Name: name, CurrentValue: value})
	require.NoError(t, err)
	return g
}

func goalValue(t *testing.T, svc *Service, personID int64, name string) float64 {
	t.Helper()
	goals, err := svc.GoalsForPerson(context.Background(), personID)
	require.NoError(t, err)
	for _, g := range goals {
		if g.Name == name {
			return g.CurrentValue
		}
	}
	t.Fatalf("person %d has no goal %q", personID, name)
	return 0
}

func hasGoal(t *testing.T, svc *Service, personID int64, name string) bool {
	t.Helper()
	goals, err := svc.GoalsForPerson(context.Background(), personID)
	require.NoError(t, err)
	for _, g := range goals {
		if g.Name == name {
			return true
		}
	}
	return false
}

func TestCreateGoalPropagatesAndPrivacyWithdraws(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	a := mustPerson(t, svc, "A", nil)
	b := mustPerson(t, svc, "B", &a.ID)
	c := mustPerson(t, svc, "C", &a.ID)

	bGoal := mustGoal(t, svc, b.ID, "Revenue", 100)
	assert.Equal(t, 100.0, goalValue(t, svc, a.ID, "Revenue"))

	mustGoal(t, svc, c.ID, "Revenue", 50)
	assert.Equal(t, 150.0, goalValue(t, svc, a.ID, "Revenue"))

	updated, err := svc.UpdateGoal(ctx, bGoal.ID, models.GoalPatch{IsPrivate: ptr(true)})
	require.NoError(t, err)
	assert.True(t, updated.IsPrivate)
	assert.Equal(t, 50.0, goalValue(t, svc, a.ID, "Revenue"))

	// value changes on a private goal stay put
	_, err = svc.UpdateGoal(ctx, bGoal.ID, models.ValuePatch(1000))
	require.NoError(t, err)
	assert.Equal(t, 50.0, goalValue(t, svc, a.ID, "Revenue"))
}

func TestCreatePrivateGoalDoesNotPropagate(t *testing.T) {
	svc := newTestService(t)
	a := mustPerson(t, svc, "A", nil)
	b := mustPerson(t, svc, "B", &a.ID)

	_, err := svc.CreateGoal(context.Background(), models.NewGoal{PersonID: b.ID, Name: "Secret", CurrentValue: 5, IsPrivate: true})
	require.NoError(t, err)
	assert.False(t, hasGoal(t, svc, a.ID, "Secret"))
}

func TestCreateGoalRequiresExistingPerson(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.CreateGoal(context.Background(), models.NewGoal{PersonID: 42, Name: "Revenue"})
	assert.True(t, models.IsNotFound(err))

	_, err = svc.CreateGoal(context.Background(), models.NewGoal{Name: "Revenue"})
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = svc.GoalsForPerson(context.Background(), 42)
	assert.True(t, models.IsNotFound(err))
}

func TestUpdateGoalValueRepropagates(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	root := mustPerson(t, svc, "Root", nil)
	a := mustPerson(t, svc, "A", &root.ID)
	b := mustPerson(t, svc, "B", &a.ID)

	g := mustGoal(t, svc, b.ID, "Revenue", 10)
	_, err := svc.UpdateGoal(ctx, g.ID, models.ValuePatch(25))
	require.NoError(t, err)

	assert.Equal(t, 25.0, goalValue(t, svc, a.ID, "Revenue"))
	assert.Equal(t, 25.0, goalValue(t, svc, root.ID, "Revenue"))
}

func TestRenameGoalMovesContribution(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	a := mustPerson(t, svc, "A", nil)
	b := mustPerson(t, svc, "B", &a.ID)
	c := mustPerson(t, svc, "C", &a.ID)

	bGoal := mustGoal(t, svc, b.ID, "Revenue", 100)
	mustGoal(t, svc, c.ID, "Revenue", 50)

	_, err := svc.UpdateGoal(ctx, bGoal.ID, models.GoalPatch{Name: ptr("Sales")})
	require.NoError(t, err)

	assert.Equal(t, 50.0, goalValue(t, svc, a.ID, "Revenue"))
	assert.Equal(t, 100.0, goalValue(t, svc, a.ID, "Sales"))
}

func TestDeleteGoalRefreshesParent(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	a := mustPerson(t, svc, "A", nil)
	b := mustPerson(t, svc, "B", &a.ID)
	c := mustPerson(t, svc, "C", &a.ID)

	mustGoal(t, svc, b.ID, "Revenue", 100)
	cGoal := mustGoal(t, svc, c.ID, "Revenue", 50)

	require.NoError(t, svc.DeleteGoal(ctx, cGoal.ID))
	assert.Equal(t, 100.0, goalValue(t, svc, a.ID, "Revenue"))

	err := svc.DeleteGoal(ctx, cGoal.ID)
	assert.True(t, models.IsNotFound(err))
}

func TestDeleteGoalOnRootIsQuiet(t *testing.T) {
	svc := newTestService(t)
	a := mustPerson(t, svc, "A", nil)
	g := mustGoal(t, svc, a.ID, "Revenue", 1)

	require.NoError(t, svc.DeleteGoal(context.Background(), g.ID))
}

func TestDeletePersonOrphansAndRefreshes(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	a := mustPerson(t, svc, "A", nil)
	b := mustPerson(t, svc, "B", &a.ID)
	c := mustPerson(t, svc, "C", &a.ID)
	d := mustPerson(t, svc, "D", &c.ID)

	mustGoal(t, svc, b.ID, "Revenue", 100)
	cGoal := mustGoal(t, svc, c.ID, "Revenue", 50)

	require.NoError(t, svc.DeletePerson(ctx, c.ID))

	_, err := svc.GetGoal(ctx, cGoal.ID)
	assert.True(t, models.IsNotFound(err))

	orphan, err := svc.GetPerson(ctx, d.ID)
	require.NoError(t, err)
	assert.True(t, orphan.IsRoot())

	assert.Equal(t, 100.0, goalValue(t, svc, a.ID, "Revenue"))

	assert.True(t, models.IsNotFound(svc.DeletePerson(ctx, c.ID)))
}

func TestReparentRefreshesBothChains(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	root := mustPerson(t, svc, "Root", nil)
	a := mustPerson(t, svc, "A", &root.ID)
	b := mustPerson(t, svc, "B", &root.ID)
	c := mustPerson(t, svc, "C", &a.ID)

	mustGoal(t, svc, c.ID, "Revenue", 100)
	require.Equal(t, 100.0, goalValue(t, svc, a.ID, "Revenue"))
	require.Equal(t, 100.0, goalValue(t, svc, root.ID, "Revenue"))

	moved, err := svc.UpdatePerson(ctx, c.ID, models.PersonPatch{SetParent: true, ParentID: &b.ID})
	require.NoError(t, err)
	assert.Equal(t, b.ID, *moved.ParentID)

	assert.Equal(t, 0.0, goalValue(t, svc, a.ID, "Revenue"))
	assert.Equal(t, 100.0, goalValue(t, svc, b.ID, "Revenue"))
	assert.Equal(t, 100.0, goalValue(t, svc, root.ID, "Revenue"))

	subs, err := svc.Subordinates(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, c.ID, subs[0].ID)
}

func TestReparentIntoCycleRollsBack(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	a := mustPerson(t, svc, "A", nil)
	b := mustPerson(t, svc, "B", &a.ID)
	mustGoal(t, svc, b.ID, "Revenue", 10)

	_, err := svc.UpdatePerson(ctx, a.ID, models.PersonPatch{SetParent: true, ParentID: &b.ID})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrConsistency)

	after, err := svc.GetPerson(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, after.IsRoot())
	assert.Equal(t, 10.0, goalValue(t, svc, a.ID, "Revenue"))
}

func TestReparentIntoCycleWithoutGoalsIsAccepted(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	a := mustPerson(t, svc, "A", nil)
	b := mustPerson(t, svc, "B", &a.ID)
	mustPerson(t, svc, "C", nil)

	// nothing walks the new chain, so the cycle is stored as given
	_, err := svc.UpdatePerson(ctx, a.ID, models.PersonPatch{SetParent: true, ParentID: &b.ID})
	require.NoError(t, err)

	roots, err := svc.Tree(ctx)
	require.NoError(t, err)
	require.Len(t, roots, 1, "the detached cycle has no root")
	assert.Equal(t, "C", roots[0].Name)

	_, err = svc.Ancestors(ctx, a.ID)
	assert.ErrorIs(t, err, models.ErrConsistency)

	_, err = svc.CreateGoal(ctx, models.NewGoal{PersonID: b.ID, Name: "Revenue", CurrentValue: 1})
	assert.ErrorIs(t, err, models.ErrConsistency, "the first walk through the cycle fails")
}

func TestRenamePersonLeavesGoalsAlone(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	a := mustPerson(t, svc, "A", nil)

	p, err := svc.UpdatePerson(ctx, a.ID, models.PersonPatch{Name: ptr("Alice")})
	require.NoError(t, err)
	assert.Equal(t, "Alice", p.Name)

	_, err = svc.UpdatePerson(ctx, a.ID, models.PersonPatch{Name: ptr("")})
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = svc.UpdatePerson(ctx, 404, models.PersonPatch{Name: ptr("X")})
	assert.True(t, models.IsNotFound(err))
}

func TestManualPropagateReportsChanges(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, propagation.WithPolicy(propagation.Max))
	a := mustPerson(t, svc, "A", nil)
	b := mustPerson(t, svc, "B", &a.ID)
	c := mustPerson(t, svc, "C", &a.ID)

	bGoal := mustGoal(t, svc, b.ID, "Score", 3)
	mustGoal(t, svc, c.ID, "Score", 9)
	assert.Equal(t, 9.0, goalValue(t, svc, a.ID, "Score"))

	res, err := svc.Propagate(ctx, bGoal.ID)
	require.NoError(t, err)
	require.Len(t, res.Changes, 1)
	assert.Equal(t, a.ID, res.Changes[0].PersonID)
	assert.Equal(t, 9.0, res.Changes[0].Value)

	_, err = svc.Propagate(ctx, 999)
	assert.True(t, models.IsNotFound(err))
}

func TestTreeAndListings(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	a := mustPerson(t, svc, "A", nil)
	mustPerson(t, svc, "B", &a.ID)
	mustPerson(t, svc, "C", nil)

	roots, err := svc.Tree(ctx)
	require.NoError(t, err)
	require.Len(t, roots, 2)
	assert.Len(t, roots[0].Children, 1)

	persons, err := svc.ListPersons(ctx)
	require.NoError(t, err)
	assert.Len(t, persons, 3)

	goals, err := svc.ListGoals(ctx)
	require.NoError(t, err)
	assert.Empty(t, goals)
}

func TestAncestorsNearestFirst(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	a := mustPerson(t, svc, "A", nil)
	b := mustPerson(t, svc, "B", &a.ID)
	c := mustPerson(t, svc, "C", &b.ID)

	chain, err := svc.Ancestors(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, chain, 2)
	assert.Equal(t, b.ID, chain[0].ID)
	assert.Equal(t, a.ID, chain[1].ID)

	chain, err = svc.Ancestors(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, chain)

	_, err = svc.Ancestors(ctx, 404)
	assert.True(t, models.IsNotFound(err))
}

func TestOperationsAreTaggedInLogs(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	restore := logging.Replace(zap.New(core))
	defer restore()

	svc := New(store.NewMemory(), propagation.New(propagation.WithLogger(zap.NewNop())), 0)
	_, err := svc.CreatePerson(context.Background(), models.NewPerson{Name: "A", Position: "CEO"})
	require.NoError(t, err)

	entries := logs.FilterMessage("person created").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "person.create", fields["op"])
	assert.NotEmpty(t, fields["op_id"])
}

func TestPropagationLogsShareOperationID(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	restore := logging.Replace(zap.New(core))
	defer restore()

	svc := New(store.NewMemory(), propagation.New(propagation.WithLogger(zap.New(core))), 0)
	lead := mustPerson(t, svc, "Lead", nil)
	rep := mustPerson(t, svc, "Rep", &lead.ID)
	mustGoal(t, svc, rep.ID, "Revenue", 5)

	created := logs.FilterMessage("goal created").All()
	require.Len(t, created, 1)
	opID := created[0].ContextMap()["op_id"]
	require.NotEmpty(t, opID)

	recomputed := logs.FilterMessage("ancestor goal recomputed").All()
	require.Len(t, recomputed, 1)
	fields := recomputed[0].ContextMap()
	assert.Equal(t, opID, fields["op_id"])
	assert.Equal(t, "goal.create", fields["op"])
	assert.Equal(t, lead.ID, fields["person_id"])
}

// countingStore records which kind of unit of work each call opened.
type countingStore struct {
	*store.Memory
	writes, reads int
}

func (c *countingStore) InTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	c.writes++
	return c.Memory.InTx(ctx, fn)
}

func (c *countingStore) View(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	c.reads++
	return c.Memory.View(ctx, fn)
}

func TestReadsUseReadOnlyUnitsOfWork(t *testing.T) {
	ctx := context.Background()
	defer logging.Replace(zap.NewNop())()
	st := &countingStore{Memory: store.NewMemory()}
	svc := New(st, propagation.New(propagation.WithLogger(zap.NewNop())), 0)

	lead := mustPerson(t, svc, "Lead", nil)
	rep := mustPerson(t, svc, "Rep", &lead.ID)
	g := mustGoal(t, svc, rep.ID, "Revenue", 3)
	require.Equal(t, 3, st.writes)
	require.Zero(t, st.reads)

	_, err := svc.ListPersons(ctx)
	require.NoError(t, err)
	_, err = svc.GetPerson(ctx, lead.ID)
	require.NoError(t, err)
	_, err = svc.Subordinates(ctx, lead.ID)
	require.NoError(t, err)
	_, err = svc.Ancestors(ctx, rep.ID)
	require.NoError(t, err)
	_, err = svc.Tree(ctx)
	require.NoError(t, err)
	_, err = svc.Detached(ctx)
	require.NoError(t, err)
	_, err = svc.ListGoals(ctx)
	require.NoError(t, err)
	_, err = svc.GetGoal(ctx, g.ID)
	require.NoError(t, err)
	_, err = svc.GoalsForPerson(ctx, rep.ID)
	require.NoError(t, err)

	assert.Equal(t, 3, st.writes)
	assert.Equal(t, 9, st.reads)
}
