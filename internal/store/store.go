// Package store defines the scene document store and opens the backend
// selected by configuration.
//
// Two backends exist: sqlite (the default, one JSON document per row) and
// valkey (one JSON value per key plus a sorted-set index). Both satisfy the
// same contract, exercised by the storetest conformance suite.
package store

import (
	"context"
	"fmt"

	"animlab/internal/config"
	"animlab/internal/scene"
	"animlab/internal/store/sqlite"
	"animlab/internal/store/valkey"
)

// Store is a keyed collection of scenes ordered by scene_id.
//
// Lookups of absent ids return an error wrapping scene.ErrNotFound; inserts of
// an existing id return an error wrapping scene.ErrConflict and leave the
// stored document untouched.
type Store interface {
	// List returns scenes ordered by id. limit <= 0 returns all.
	List(ctx context.Context, limit int) ([]scene.Scene, error)
	Get(ctx context.Context, id int) (scene.Scene, error)
	Insert(ctx context.Context, s scene.Scene) error
	// InsertMany inserts scenes, skipping ids that already exist, and returns
	// the number inserted.
	InsertMany(ctx context.Context, scenes []scene.Scene) (int, error)
	// Update applies the supplied patch fields and returns the stored scene.
	Update(ctx context.Context, id int, patch scene.Patch) (scene.Scene, error)
	Delete(ctx context.Context, id int) error
	// Search matches query case-insensitively against concept and narration.
	Search(ctx context.Context, query string, limit int) ([]scene.Scene, error)
	Count(ctx context.Context) (int, error)
	CountByVisual(ctx context.Context) (map[string]int, error)
	Close() error
}

var (
	_ Store = (*sqlite.Store)(nil)
	_ Store = (*valkey.Store)(nil)
)

// Open connects to the backend selected by cfg.Store.URL.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("open store: config is nil")
	}
	switch cfg.StoreDriver() {
	case config.DriverValkey:
		st, err := valkey.Open(ctx, cfg.Store.URL, cfg.Store.KeyPrefix)
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		st, err := sqlite.Open(ctx, cfg.Store.URL)
		if err != nil {
			return nil, err
		}
		return st, nil
	}
}

// Describe returns a log-safe description of the configured backend.
func Describe(cfg *config.Config) string {
	if cfg.StoreDriver() == config.DriverValkey {
		return "valkey"
	}
	return "sqlite:" + cfg.SQLitePath()
}
