// Package catalog composes the scene store with mirror synchronization and
// the on-disk audio count. HTTP handlers and CLI commands call it instead of
// touching the store directly so every mutation is followed by a mirror sync.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"animlab/internal/logging"
	"animlab/internal/scene"
	"animlab/internal/store"
)

// DefaultPageSize bounds list and search results.
const DefaultPageSize = 100

// Syncer rewrites the mirror file from the store.
type Syncer interface {
	Sync(ctx context.Context) error
}

// AudioCounter reports how many narration files exist.
type AudioCounter interface {
	CountAudio() (int, error)
}

// Stats summarizes the collection.
type Stats struct {
	TotalScenes int            `json:"total_scenes"`
	VisualTypes map[string]int `json:"visual_types"`
	AudioFiles  int            `json:"audio_files"`
}

// Service implements the scene operations exposed over HTTP and the CLI.
type Service struct {
	store    store.Store
	mirror   Syncer
	audio    AudioCounter
	pageSize int
	logger   *slog.Logger
}

// Option customizes a Service.
type Option func(*Service)

// WithPageSize overrides the list and search bound.
func WithPageSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// WithAudioCounter sets the source of the stats audio count.
func WithAudioCounter(counter AudioCounter) Option {
	return func(s *Service) { s.audio = counter }
}

// New builds a Service.
func New(st store.Store, mirror Syncer, logger *slog.Logger, opts ...Option) *Service {
	svc := &Service{
		store:    st,
		mirror:   mirror,
		pageSize: DefaultPageSize,
		logger:   logging.NewComponentLogger(logger, "catalog"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// List returns up to one page of scenes ordered by id.
func (s *Service) List(ctx context.Context) ([]scene.Scene, error) {
	return s.store.List(ctx, s.pageSize)
}

// Get returns a scene by id.
func (s *Service) Get(ctx context.Context, id int) (scene.Scene, error) {
	return s.store.Get(ctx, id)
}

// Create validates and stores a new scene, then syncs the mirror.
func (s *Service) Create(ctx context.Context, sc scene.Scene) (scene.Scene, error) {
	if err := sc.Validate(); err != nil {
		return scene.Scene{}, err
	}
	sc = sc.Clone()
	if err := s.store.Insert(ctx, sc); err != nil {
		return scene.Scene{}, err
	}
	logging.WithContext(logging.WithSceneID(ctx, sc.ID), s.logger).Info("scene created")
	if err := s.sync(ctx); err != nil {
		return scene.Scene{}, err
	}
	return sc, nil
}

// Update applies the supplied patch fields. An empty patch changes nothing and
// does not touch the mirror.
func (s *Service) Update(ctx context.Context, id int, patch scene.Patch) (scene.Scene, error) {
	if patch.Empty() {
		return s.store.Get(ctx, id)
	}
	updated, err := s.store.Update(ctx, id, patch)
	if err != nil {
		return scene.Scene{}, err
	}
	logging.WithContext(logging.WithSceneID(ctx, id), s.logger).Info("scene updated",
		logging.String("fields", strings.Join(patch.Fields(), ",")),
	)
	if err := s.sync(ctx); err != nil {
		return scene.Scene{}, err
	}
	return updated, nil
}

// Delete removes a scene and syncs the mirror.
func (s *Service) Delete(ctx context.Context, id int) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	logging.WithContext(logging.WithSceneID(ctx, id), s.logger).Info("scene deleted")
	return s.sync(ctx)
}

// Search returns up to one page of scenes matching query.
func (s *Service) Search(ctx context.Context, query string) ([]scene.Scene, error) {
	return s.store.Search(ctx, query, s.pageSize)
}

// Stats reports totals per visual and the number of narration files.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	total, err := s.store.Count(ctx)
	if err != nil {
		return Stats{}, err
	}
	visuals, err := s.store.CountByVisual(ctx)
	if err != nil {
		return Stats{}, err
	}
	stats := Stats{TotalScenes: total, VisualTypes: visuals}
	if s.audio != nil {
		n, err := s.audio.CountAudio()
		if err != nil {
			return Stats{}, fmt.Errorf("count audio files: %w", err)
		}
		stats.AudioFiles = n
	}
	return stats, nil
}

// Import bulk-inserts scenes, skipping existing ids, and syncs the mirror
// when anything was added.
func (s *Service) Import(ctx context.Context, scenes []scene.Scene) (int, error) {
	for _, sc := range scenes {
		if err := sc.Validate(); err != nil {
			return 0, fmt.Errorf("scene %d: %w", sc.ID, err)
		}
	}
	n, err := s.store.InsertMany(ctx, scenes)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		if err := s.sync(ctx); err != nil {
			return n, err
		}
	}
	return n, nil
}

// Sync rewrites the mirror on demand.
func (s *Service) Sync(ctx context.Context) error {
	return s.sync(ctx)
}

// sync detaches from the caller's cancellation: once the store has changed
// the mirror must follow even if the client went away.
func (s *Service) sync(ctx context.Context) error {
	if s.mirror == nil {
		return nil
	}
	if err := s.mirror.Sync(context.WithoutCancel(ctx)); err != nil {
		return fmt.Errorf("sync scene graph: %w", err)
	}
	return nil
}
