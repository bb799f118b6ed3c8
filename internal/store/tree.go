package store

import (
	"context"
	"sort"

	"github.com/seuros/orgoals/internal/models"
)

// ChildIndex maps a parent id to its direct children, in id order.
type ChildIndex map[int64][]models.Person

// IndexChildren builds the parent -> children index from parent pointers.
func IndexChildren(persons []models.Person) ChildIndex {
	idx := make(ChildIndex)
	for _, p := range persons {
		if p.ParentID == nil {
			continue
		}
		idx[*p.ParentID] = append(idx[*p.ParentID], p)
	}
	for _, kids := range idx {
		sort.Slice(kids, func(i, j int) bool { return kids[i].ID < kids[j].ID })
	}
	return idx
}

// BuildTree returns the forest rooted at every person without a parent.
// A person reached twice means the parent relation is broken and the build
// fails with a ConsistencyError; maxDepth <= 0 disables the depth bound.
func BuildTree(persons []models.Person, maxDepth int) ([]*models.TreeNode, error) {
	idx := IndexChildren(persons)
	visited := make(map[int64]bool, len(persons))

	var build func(p models.Person, path []int64) (*models.TreeNode, error)
	build = func(p models.Person, path []int64) (*models.TreeNode, error) {
		path = append(path, p.ID)
		if visited[p.ID] {
			return nil, models.CycleError(path)
		}
		if maxDepth > 0 && len(path) > maxDepth {
			return nil, models.DanglingError("tree deeper than %d levels", maxDepth)
		}
		visited[p.ID] = true

		node := &models.TreeNode{Person: p, Children: []*models.TreeNode{}}
		for _, child := range idx[p.ID] {
			sub, err := build(child, path)
			if err != nil {
				return nil, err
			}
			node.Children = append(node.Children, sub)
		}
		return node, nil
	}

	roots := make([]*models.TreeNode, 0)
	for _, p := range sortedByID(persons) {
		if !p.IsRoot() {
			continue
		}
		node, err := build(p, nil)
		if err != nil {
			return nil, err
		}
		roots = append(roots, node)
	}
	return roots, nil
}

// Tree loads every person through h and builds the forest.
func Tree(ctx context.Context, h Hierarchy, maxDepth int) ([]*models.TreeNode, error) {
	persons, err := h.ListPersons(ctx)
	if err != nil {
		return nil, err
	}
	return BuildTree(persons, maxDepth)
}

// Detached returns, in id order, the persons no root reaches: those whose
// parent chain ends at a missing person or loops. BuildTree leaves them out.
func Detached(persons []models.Person) []models.Person {
	idx := IndexChildren(persons)
	reached := make(map[int64]bool, len(persons))
	var stack []int64
	for _, p := range persons {
		if p.IsRoot() {
			stack = append(stack, p.ID)
		}
	}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if reached[id] {
			continue
		}
		reached[id] = true
		for _, kid := range idx[id] {
			stack = append(stack, kid.ID)
		}
	}

	out := make([]models.Person, 0)
	for _, p := range sortedByID(persons) {
		if !reached[p.ID] {
			out = append(out, p)
		}
	}
	return out
}

// Ancestors returns the parent chain of id, nearest first. It stops at a
// root and fails on a cycle or a dangling parent reference.
func Ancestors(ctx context.Context, h Hierarchy, id int64, maxDepth int) ([]models.Person, error) {
	p, err := h.GetPerson(ctx, id)
	if err != nil {
		return nil, err
	}
	path := []int64{p.ID}
	seen := map[int64]bool{p.ID: true}
	var out []models.Person
	for p.ParentID != nil {
		parentID := *p.ParentID
		path = append(path, parentID)
		if seen[parentID] {
			return nil, models.CycleError(path)
		}
		if maxDepth > 0 && len(out) >= maxDepth {
			return nil, models.DanglingError("ancestor chain of person %d deeper than %d levels", id, maxDepth)
		}
		seen[parentID] = true
		parent, err := h.GetPerson(ctx, parentID)
		if models.IsNotFound(err) {
			return nil, models.DanglingError("person %d references missing parent %d", p.ID, parentID)
		}
		if err != nil {
			return nil, err
		}
		out = append(out, parent)
		p = parent
	}
	return out, nil
}

func sortedByID(persons []models.Person) []models.Person {
	out := append([]models.Person(nil), persons...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
