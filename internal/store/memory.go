package store

import (
	"context"
	"sort"
	"sync"

	"github.com/seuros/orgoals/internal/models"
)

// Memory is an in-process arena store. Persons and goals are keyed by
// integer id and children are tracked in an index keyed by parent id.
//
// InTx holds an exclusive lock for the whole callback and works on a copy of
// the arena, which replaces the live state only on success. View shares a
// read lock with other views and reads the live arena without copying.
// Neither is reentrant.
type Memory struct {
	mu    sync.RWMutex
	state *arena
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{state: newArena()}
}

// InTx runs fn against a private copy of the arena.
func (m *Memory) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	work := m.state.clone()
	if err := fn(ctx, work); err != nil {
		return err
	}
	m.state = work
	return nil
}

// View runs fn against the live arena under a read lock.
func (m *Memory) View(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return fn(ctx, readOnly{m.state})
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }

type idSet map[int64]struct{}

type arena struct {
	persons       map[int64]models.Person
	children      map[int64]idSet
	goals         map[int64]models.Goal
	goalsByPerson map[int64]idSet
	nextPerson    int64
	nextGoal      int64
}

func newArena() *arena {
	return &arena{
		persons:       make(map[int64]models.Person),
		children:      make(map[int64]idSet),
		goals:         make(map[int64]models.Goal),
		goalsByPerson: make(map[int64]idSet),
	}
}

func (a *arena) clone() *arena {
	c := &arena{
		persons:       make(map[int64]models.Person, len(a.persons)),
		children:      make(map[int64]idSet, len(a.children)),
		goals:         make(map[int64]models.Goal, len(a.goals)),
		goalsByPerson: make(map[int64]idSet, len(a.goalsByPerson)),
		nextPerson:    a.nextPerson,
		nextGoal:      a.nextGoal,
	}
	for id, p := range a.persons {
		p.ParentID = models.CopyID(p.ParentID)
		c.persons[id] = p
	}
	for id, g := range a.goals {
		if g.Definition != nil {
			def := *g.Definition
			g.Definition = &def
		}
		c.goals[id] = g
	}
	for id, set := range a.children {
		c.children[id] = set.clone()
	}
	for id, set := range a.goalsByPerson {
		c.goalsByPerson[id] = set.clone()
	}
	return c
}

func (s idSet) clone() idSet {
	out := make(idSet, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

func (s idSet) sorted() []int64 {
	out := make([]int64, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func link(index map[int64]idSet, key, id int64) {
	set, ok := index[key]
	if !ok {
		set = make(idSet)
		index[key] = set
	}
	set[id] = struct{}{}
}

func unlink(index map[int64]idSet, key, id int64) {
	set, ok := index[key]
	if !ok {
		return
	}
	delete(set, id)
	if len(set) == 0 {
		delete(index, key)
	}
}

func (a *arena) ListPersons(ctx context.Context) ([]models.Person, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(a.persons))
	for id := range a.persons {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]models.Person, 0, len(ids))
	for _, id := range ids {
		out = append(out, a.persons[id])
	}
	return out, nil
}

func (a *arena) GetPerson(ctx context.Context, id int64) (models.Person, error) {
	if err := ctx.Err(); err != nil {
		return models.Person{}, err
	}
	p, ok := a.persons[id]
	if !ok {
		return models.Person{}, models.PersonNotFound(id)
	}
	return p, nil
}

func (a *arena) Subordinates(ctx context.Context, id int64) ([]models.Person, error) {
	if _, err := a.GetPerson(ctx, id); err != nil {
		return nil, err
	}
	kids := a.children[id].sorted()
	out := make([]models.Person, 0, len(kids))
	for _, kid := range kids {
		out = append(out, a.persons[kid])
	}
	return out, nil
}

func (a *arena) CreatePerson(ctx context.Context, np models.NewPerson) (models.Person, error) {
	if err := ctx.Err(); err != nil {
		return models.Person{}, err
	}
	if err := np.Validate(); err != nil {
		return models.Person{}, err
	}
	a.nextPerson++
	p := models.Person{
		ID:       a.nextPerson,
		Name:     np.Name,
		Position: np.Position,
		ParentID: models.CopyID(np.ParentID),
	}
	a.persons[p.ID] = p
	if p.ParentID != nil {
		link(a.children, *p.ParentID, p.ID)
	}
	return p, nil
}

func (a *arena) UpdatePerson(ctx context.Context, id int64, patch models.PersonPatch) (models.Person, error) {
	current, err := a.GetPerson(ctx, id)
	if err != nil {
		return models.Person{}, err
	}
	if err := patch.Validate(); err != nil {
		return models.Person{}, err
	}
	updated := patch.Apply(current)
	if !models.SameParent(current.ParentID, updated.ParentID) {
		if current.ParentID != nil {
			unlink(a.children, *current.ParentID, id)
		}
		if updated.ParentID != nil {
			link(a.children, *updated.ParentID, id)
		}
	}
	a.persons[id] = updated
	return updated, nil
}

func (a *arena) DeletePerson(ctx context.Context, id int64) error {
	current, err := a.GetPerson(ctx, id)
	if err != nil {
		return err
	}
	for _, kid := range a.children[id].sorted() {
		child := a.persons[kid]
		child.ParentID = nil
		a.persons[kid] = child
	}
	delete(a.children, id)
	if current.ParentID != nil {
		unlink(a.children, *current.ParentID, id)
	}
	for _, gid := range a.goalsByPerson[id].sorted() {
		delete(a.goals, gid)
	}
	delete(a.goalsByPerson, id)
	delete(a.persons, id)
	return nil
}

func (a *arena) ListGoals(ctx context.Context) ([]models.Goal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(a.goals))
	for id := range a.goals {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]models.Goal, 0, len(ids))
	for _, id := range ids {
		out = append(out, a.goals[id])
	}
	return out, nil
}

func (a *arena) GetGoal(ctx context.Context, id int64) (models.Goal, error) {
	if err := ctx.Err(); err != nil {
		return models.Goal{}, err
	}
	g, ok := a.goals[id]
	if !ok {
		return models.Goal{}, models.GoalNotFound(id)
	}
	return g, nil
}

func (a *arena) GoalsByPerson(ctx context.Context, personID int64) ([]models.Goal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ids := a.goalsByPerson[personID].sorted()
	out := make([]models.Goal, 0, len(ids))
	for _, id := range ids {
		out = append(out, a.goals[id])
	}
	return out, nil
}

func (a *arena) FindGoal(ctx context.Context, personID int64, name string) (models.Goal, error) {
	goals, err := a.GoalsByPerson(ctx, personID)
	if err != nil {
		return models.Goal{}, err
	}
	for _, g := range goals {
		if g.Name == name {
			return g, nil
		}
	}
	return models.Goal{}, models.GoalNameNotFound(personID, name)
}

func (a *arena) CreateGoal(ctx context.Context, ng models.NewGoal) (models.Goal, error) {
	if err := ctx.Err(); err != nil {
		return models.Goal{}, err
	}
	if err := ng.Validate(); err != nil {
		return models.Goal{}, err
	}
	if _, ok := a.persons[ng.PersonID]; !ok {
		return models.Goal{}, models.PersonNotFound(ng.PersonID)
	}
	if err := a.checkUniqueName(ng.PersonID, ng.Name, 0); err != nil {
		return models.Goal{}, err
	}
	a.nextGoal++
	g := models.Goal{
		ID:           a.nextGoal,
		PersonID:     ng.PersonID,
		Name:         ng.Name,
		Definition:   ng.Definition,
		Target:       ng.Target,
		CurrentValue: ng.CurrentValue,
		IsLocked:     ng.IsLocked,
		IsPrivate:    ng.IsPrivate,
	}
	a.goals[g.ID] = g
	link(a.goalsByPerson, g.PersonID, g.ID)
	return g, nil
}

func (a *arena) UpdateGoal(ctx context.Context, id int64, patch models.GoalPatch) (models.Goal, error) {
	current, err := a.GetGoal(ctx, id)
	if err != nil {
		return models.Goal{}, err
	}
	if err := patch.Validate(); err != nil {
		return models.Goal{}, err
	}
	updated := patch.Apply(current)
	if updated.PersonID != current.PersonID {
		if _, ok := a.persons[updated.PersonID]; !ok {
			return models.Goal{}, models.PersonNotFound(updated.PersonID)
		}
	}
	if updated.PersonID != current.PersonID || updated.Name != current.Name {
		if err := a.checkUniqueName(updated.PersonID, updated.Name, id); err != nil {
			return models.Goal{}, err
		}
		unlink(a.goalsByPerson, current.PersonID, id)
		link(a.goalsByPerson, updated.PersonID, id)
	}
	a.goals[id] = updated
	return updated, nil
}

func (a *arena) DeleteGoal(ctx context.Context, id int64) error {
	current, err := a.GetGoal(ctx, id)
	if err != nil {
		return err
	}
	unlink(a.goalsByPerson, current.PersonID, id)
	delete(a.goals, id)
	return nil
}

func (a *arena) checkUniqueName(personID int64, name string, except int64) error {
	for gid := range a.goalsByPerson[personID] {
		if gid != except && a.goals[gid].Name == name {
			return models.NewValidationError("person %d already has a goal named %q", personID, name)
		}
	}
	return nil
}

// readOnly exposes an arena's reads and refuses its writes.
type readOnly struct {
	*arena
}

func (readOnly) CreatePerson(context.Context, models.NewPerson) (models.Person, error) {
	return models.Person{}, ErrReadOnly
}

func (readOnly) UpdatePerson(context.Context, int64, models.PersonPatch) (models.Person, error) {
	return models.Person{}, ErrReadOnly
}

func (readOnly) DeletePerson(context.Context, int64) error { return ErrReadOnly }

func (readOnly) CreateGoal(context.Context, models.NewGoal) (models.Goal, error) {
	return models.Goal{}, ErrReadOnly
}

func (readOnly) UpdateGoal(context.Context, int64, models.GoalPatch) (models.Goal, error) {
	return models.Goal{}, ErrReadOnly
}

func (readOnly) DeleteGoal(context.Context, int64) error { return ErrReadOnly }

var _ Store = (*Memory)(nil)
var _ Tx = (*arena)(nil)
var _ Tx = readOnly{}
