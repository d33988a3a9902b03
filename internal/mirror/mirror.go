// Package mirror keeps the JSON scene-graph file in step with the scene
// store. At startup it seeds an empty store from the file; after each
// mutation it rewrites the file with the full store content ordered by id.
package mirror

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"animlab/internal/fileutil"
	"animlab/internal/logging"
	"animlab/internal/scene"
)

// Source is the subset of the scene store the mirror reads and seeds.
type Source interface {
	List(ctx context.Context, limit int) ([]scene.Scene, error)
	InsertMany(ctx context.Context, scenes []scene.Scene) (int, error)
	Count(ctx context.Context) (int, error)
}

const (
	lockRetryDelay = 50 * time.Millisecond
	lockTimeout    = 10 * time.Second
)

// Mirror owns a single scene-graph file.
type Mirror struct {
	path   string
	source Source
	logger *slog.Logger

	mu          sync.Mutex
	lock        *flock.Flock
	lockTimeout time.Duration
}

// New returns a mirror that writes path from source.
func New(path string, source Source, logger *slog.Logger) *Mirror {
	return &Mirror{
		path:   path,
		source: source,
		logger: logging.NewComponentLogger(logger, "mirror"),
		lock:   flock.New(path + ".lock"),

		lockTimeout: lockTimeout,
	}
}

// Path returns the mirror file location.
func (m *Mirror) Path() string {
	return m.path
}

// Load reads and decodes the mirror file. A missing file yields no scenes.
func (m *Mirror) Load() ([]scene.Scene, error) {
	return ReadFile(m.path)
}

// ReadFile decodes a scene-graph file. A missing or blank file yields no
// scenes; anything that is not a JSON array of scenes is an error.
func ReadFile(path string) ([]scene.Scene, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read scene graph: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var scenes []scene.Scene
	if err := json.Unmarshal(data, &scenes); err != nil {
		return nil, fmt.Errorf("decode scene graph %s: %w", path, err)
	}
	for i := range scenes {
		scenes[i].Normalize()
	}
	return scenes, nil
}

// Seed populates an empty store from the mirror file and returns the number
// of scenes inserted. A store that already holds scenes is left alone.
func (m *Mirror) Seed(ctx context.Context) (int, error) {
	count, err := m.source.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count scenes: %w", err)
	}
	if count > 0 {
		m.logger.Debug("store already populated, skipping seed", logging.Int("scenes", count))
		return 0, nil
	}
	scenes, err := m.Load()
	if err != nil {
		return 0, err
	}
	if len(scenes) == 0 {
		m.logger.Info("no scenes to seed", logging.String("path", m.path))
		return 0, nil
	}
	inserted, err := m.source.InsertMany(ctx, scenes)
	if err != nil {
		return 0, fmt.Errorf("seed scenes: %w", err)
	}
	if skipped := len(scenes) - inserted; skipped > 0 {
		m.logger.Warn("duplicate scene ids in scene graph skipped",
			logging.Int("skipped", skipped),
			logging.String(logging.FieldEventType, "seed_duplicates"),
		)
	}
	m.logger.Info("seeded scenes from scene graph",
		logging.Int("scenes", inserted),
		logging.String("path", m.path),
	)
	return inserted, nil
}

// Sync rewrites the mirror file from the full store content.
func (m *Mirror) Sync(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	scenes, err := m.source.List(ctx, 0)
	if err != nil {
		return fmt.Errorf("list scenes for sync: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return fmt.Errorf("create scene graph directory: %w", err)
	}

	lockCtx, cancel := context.WithTimeout(ctx, m.lockTimeout)
	defer cancel()
	locked, err := m.lock.TryLockContext(lockCtx, lockRetryDelay)
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("lock scene graph: %s still held after %s", m.lock.Path(), m.lockTimeout)
	}
	if err != nil {
		return fmt.Errorf("lock scene graph: %w", err)
	}
	if !locked {
		return fmt.Errorf("lock scene graph: %s is held by another process", m.lock.Path())
	}
	defer func() { _ = m.lock.Unlock() }()

	if err := fileutil.WriteAtomic(m.path, 0o644, func(w io.Writer) error {
		return Encode(w, scenes)
	}); err != nil {
		return fmt.Errorf("write scene graph: %w", err)
	}
	m.logger.Debug("scene graph synced", logging.Int("scenes", len(scenes)))
	return nil
}

// Encode writes scenes as an indented JSON array. A nil slice encodes as [].
func Encode(w io.Writer, scenes []scene.Scene) error {
	if scenes == nil {
		scenes = []scene.Scene{}
	}
	for i := range scenes {
		scenes[i].Normalize()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(scenes)
}
