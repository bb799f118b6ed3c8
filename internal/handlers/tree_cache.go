package handlers

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/seuros/orgoals/internal/logging"
	"github.com/seuros/orgoals/internal/models"
)

// TreeLoader builds the hierarchy forest.
type TreeLoader func(ctx context.Context) ([]*models.TreeNode, error)

// TreeCache holds the last built org tree for a TTL. Person mutations
// invalidate it; goal mutations do not change the tree.
type TreeCache struct {
	load      TreeLoader
	ttl       time.Duration
	mu        sync.RWMutex
	tree      []*models.TreeNode
	lastFetch time.Time
	valid     bool
	gen       uint64 // bumped by Invalidate; a refresh started earlier is not stored
}

// NewTreeCache returns a cache in front of load. ttl <= 0 disables caching.
func NewTreeCache(load TreeLoader, ttl time.Duration) *TreeCache {
	return &TreeCache{load: load, ttl: ttl}
}

// Get returns the cached tree, rebuilding it when missing or expired.
func (tc *TreeCache) Get(ctx context.Context) ([]*models.TreeNode, error) {
	if tc.ttl > 0 {
		tc.mu.RLock()
		if tc.valid && time.Since(tc.lastFetch) < tc.ttl {
			tree := tc.tree
			tc.mu.RUnlock()
			return tree, nil
		}
		tc.mu.RUnlock()
	}

	return tc.refresh(ctx)
}

func (tc *TreeCache) refresh(ctx context.Context) ([]*models.TreeNode, error) {
	tc.mu.RLock()
	gen := tc.gen
	tc.mu.RUnlock()

	tree, err := tc.load(ctx)
	if err != nil {
		return nil, err
	}
	if tc.ttl <= 0 {
		return tree, nil
	}

	tc.mu.Lock()
	if tc.gen == gen {
		tc.tree = tree
		tc.lastFetch = time.Now()
		tc.valid = true
	}
	tc.mu.Unlock()

	logging.L().Debug("tree cache refreshed", zap.Int("roots", len(tree)))
	return tree, nil
}

// Invalidate drops the cached tree (call on person CRUD).
func (tc *TreeCache) Invalidate() {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.valid = false
	tc.tree = nil
	tc.gen++
	logging.L().Debug("tree cache invalidated")
}
