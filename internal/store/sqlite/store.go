package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"animlab/internal/scene"
)

// Store manages scene persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the scene database at dsn, which is either a
// filesystem path or a file: URI.
func Open(ctx context.Context, dsn string) (*Store, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, errors.New("open sqlite db: empty path")
	}
	path := dsn
	if !strings.HasPrefix(dsn, "file:") {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("ensure database directory: %w", err)
		}
	} else {
		path = strings.TrimPrefix(dsn, "file:")
		if idx := strings.Index(path, "?"); idx >= 0 {
			path = path[:idx]
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

const insertSQL = `INSERT INTO scenes (scene_id, visual, document, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(scene_id) DO NOTHING`

// Insert stores a new scene. An existing scene_id yields scene.ErrConflict.
func (s *Store) Insert(ctx context.Context, sc scene.Scene) error {
	doc, err := encode(sc)
	if err != nil {
		return err
	}
	now := timestamp()
	res, err := s.execWithRetry(ctx, insertSQL, sc.ID, sc.Visual, doc, now, now)
	if err != nil {
		return fmt.Errorf("insert scene %d: %w", sc.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert scene %d: rows affected: %w", sc.ID, err)
	}
	if affected == 0 {
		return fmt.Errorf("scene %d: %w", sc.ID, scene.ErrConflict)
	}
	return nil
}

// InsertMany stores scenes in a single transaction, skipping ids that already exist.
func (s *Store) InsertMany(ctx context.Context, scenes []scene.Scene) (int, error) {
	if len(scenes) == 0 {
		return 0, nil
	}
	docs := make([]string, len(scenes))
	for i, sc := range scenes {
		doc, err := encode(sc)
		if err != nil {
			return 0, err
		}
		docs[i] = doc
	}

	var inserted int
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		inserted = 0
		stmt, err := tx.PrepareContext(ctx, insertSQL)
		if err != nil {
			return err
		}
		defer stmt.Close()
		now := timestamp()
		for i, sc := range scenes {
			res, err := stmt.ExecContext(ctx, sc.ID, sc.Visual, docs[i], now, now)
			if err != nil {
				return fmt.Errorf("insert scene %d: %w", sc.ID, err)
			}
			if n, _ := res.RowsAffected(); n > 0 {
				inserted++
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("insert scenes: %w", err)
	}
	return inserted, nil
}

// Get fetches a scene by id.
func (s *Store) Get(ctx context.Context, id int) (scene.Scene, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT document FROM scenes WHERE scene_id = ?`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return scene.Scene{}, fmt.Errorf("scene %d: %w", id, scene.ErrNotFound)
	}
	if err != nil {
		return scene.Scene{}, fmt.Errorf("get scene %d: %w", id, err)
	}
	return decode(id, doc)
}

// Update applies patch to the stored scene and returns the result.
func (s *Store) Update(ctx context.Context, id int, patch scene.Patch) (scene.Scene, error) {
	var updated scene.Scene
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var doc string
		err := tx.QueryRowContext(ctx, `SELECT document FROM scenes WHERE scene_id = ?`, id).Scan(&doc)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("scene %d: %w", id, scene.ErrNotFound)
		}
		if err != nil {
			return err
		}
		current, err := decode(id, doc)
		if err != nil {
			return err
		}
		updated = patch.Apply(current)
		next, err := encode(updated)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE scenes SET visual = ?, document = ?, updated_at = ? WHERE scene_id = ?`,
			updated.Visual, next, timestamp(), id,
		)
		return err
	})
	if err != nil {
		if errors.Is(err, scene.ErrNotFound) {
			return scene.Scene{}, err
		}
		return scene.Scene{}, fmt.Errorf("update scene %d: %w", id, err)
	}
	return updated, nil
}

// Delete removes a scene by id.
func (s *Store) Delete(ctx context.Context, id int) error {
	res, err := s.execWithRetry(ctx, `DELETE FROM scenes WHERE scene_id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete scene %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete scene %d: rows affected: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("scene %d: %w", id, scene.ErrNotFound)
	}
	return nil
}

// List returns scenes ordered by id. limit <= 0 returns every scene.
func (s *Store) List(ctx context.Context, limit int) ([]scene.Scene, error) {
	query := `SELECT scene_id, document FROM scenes ORDER BY scene_id`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	out := make([]scene.Scene, 0)
	err := s.scan(ctx, query, args, func(sc scene.Scene) bool {
		out = append(out, sc)
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("list scenes: %w", err)
	}
	return out, nil
}

// Search returns scenes whose concept or narration contains query, ignoring
// case. Matching runs in Go because SQLite's LIKE folds ASCII only.
func (s *Store) Search(ctx context.Context, query string, limit int) ([]scene.Scene, error) {
	out := make([]scene.Scene, 0)
	err := s.scan(ctx, `SELECT scene_id, document FROM scenes ORDER BY scene_id`, nil, func(sc scene.Scene) bool {
		if sc.Matches(query) {
			out = append(out, sc)
		}
		return limit <= 0 || len(out) < limit
	})
	if err != nil {
		return nil, fmt.Errorf("search scenes: %w", err)
	}
	return out, nil
}

// Count returns the number of stored scenes.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM scenes`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count scenes: %w", err)
	}
	return count, nil
}

// CountByVisual returns the number of scenes per stored visual value.
func (s *Store) CountByVisual(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT visual, COUNT(1) FROM scenes GROUP BY visual`)
	if err != nil {
		return nil, fmt.Errorf("count visuals: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			visual string
			count  int
		)
		if err := rows.Scan(&visual, &count); err != nil {
			return nil, fmt.Errorf("scan visual count: %w", err)
		}
		counts[visual] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate visual counts: %w", err)
	}
	return counts, nil
}

func (s *Store) scan(ctx context.Context, query string, args []any, yield func(scene.Scene) bool) error {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id  int
			doc string
		)
		if err := rows.Scan(&id, &doc); err != nil {
			return err
		}
		sc, err := decode(id, doc)
		if err != nil {
			return err
		}
		if !yield(sc) {
			break
		}
	}
	return rows.Err()
}

func encode(sc scene.Scene) (string, error) {
	sc.Normalize()
	data, err := json.Marshal(sc)
	if err != nil {
		return "", fmt.Errorf("encode scene %d: %w", sc.ID, err)
	}
	return string(data), nil
}

func decode(id int, doc string) (scene.Scene, error) {
	var sc scene.Scene
	if err := json.Unmarshal([]byte(doc), &sc); err != nil {
		return scene.Scene{}, fmt.Errorf("decode scene %d: %w", id, err)
	}
	sc.ID = id
	sc.Normalize()
	return sc, nil
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
