// Package valkey stores scenes in Valkey (or Redis): one JSON value per scene
// plus a sorted set, scored by scene_id, that orders and indexes them.
package valkey

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/valkey-io/valkey-go"

	"animlab/internal/scene"
)

// Store implements the scene store on a Valkey client.
type Store struct {
	client valkey.Client
	prefix string
}

// Open parses url (valkey://, valkeys://, redis://, rediss://) and connects.
func Open(ctx context.Context, url, prefix string) (*Store, error) {
	opt, err := valkey.ParseURL(normalizeScheme(url))
	if err != nil {
		return nil, fmt.Errorf("parse valkey url: %w", err)
	}
	client, err := valkey.NewClient(opt)
	if err != nil {
		return nil, fmt.Errorf("connect valkey: %w", err)
	}
	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping valkey: %w", err)
	}
	return New(client, prefix), nil
}

// New wraps an existing client.
func New(client valkey.Client, prefix string) *Store {
	prefix = strings.Trim(strings.TrimSpace(prefix), ":")
	if prefix == "" {
		prefix = "animlab"
	}
	return &Store{client: client, prefix: prefix}
}

func normalizeScheme(url string) string {
	switch {
	case strings.HasPrefix(url, "valkeys://"):
		return "rediss://" + strings.TrimPrefix(url, "valkeys://")
	case strings.HasPrefix(url, "valkey://"):
		return "redis://" + strings.TrimPrefix(url, "valkey://")
	}
	return url
}

func (s *Store) sceneKey(id int) string {
	return s.prefix + ":scene:" + strconv.Itoa(id)
}

func (s *Store) indexKey() string {
	return s.prefix + ":scenes"
}

// Close releases the client.
func (s *Store) Close() error {
	s.client.Close()
	return nil
}

// Insert writes the scene with SET NX so an existing id is never overwritten.
func (s *Store) Insert(ctx context.Context, sc scene.Scene) error {
	doc, err := encode(sc)
	if err != nil {
		return err
	}
	err = s.client.Do(ctx, s.client.B().Set().Key(s.sceneKey(sc.ID)).Value(doc).Nx().Build()).Error()
	if valkey.IsValkeyNil(err) {
		return fmt.Errorf("scene %d: %w", sc.ID, scene.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("insert scene %d: %w", sc.ID, err)
	}
	member := strconv.Itoa(sc.ID)
	index := func(ctx context.Context) error {
		return s.client.Do(ctx, s.client.B().Zadd().Key(s.indexKey()).ScoreMember().ScoreMember(float64(sc.ID), member).Build()).Error()
	}
	undo := func(ctx context.Context) error {
		return s.client.Do(ctx, s.client.B().Del().Key(s.sceneKey(sc.ID)).Build()).Error()
	}
	if err := indexOrUndo(ctx, index, undo); err != nil {
		return fmt.Errorf("index scene %d: %w", sc.ID, err)
	}
	return nil
}

// indexOrUndo runs index after a document write. When indexing fails the
// write is undone, so a document never exists without its index entry.
func indexOrUndo(ctx context.Context, index, undo func(context.Context) error) error {
	err := index(ctx)
	if err == nil {
		return nil
	}
	if undoErr := undo(context.WithoutCancel(ctx)); undoErr != nil {
		return errors.Join(err, fmt.Errorf("remove unindexed document: %w", undoErr))
	}
	return err
}

// InsertMany inserts each scene in turn, skipping ids that already exist.
func (s *Store) InsertMany(ctx context.Context, scenes []scene.Scene) (int, error) {
	inserted := 0
	for _, sc := range scenes {
		err := s.Insert(ctx, sc)
		switch {
		case err == nil:
			inserted++
		case scene.Kind(err) == "conflict":
		default:
			return inserted, err
		}
	}
	return inserted, nil
}

// Get fetches a scene by id.
func (s *Store) Get(ctx context.Context, id int) (scene.Scene, error) {
	doc, err := s.client.Do(ctx, s.client.B().Get().Key(s.sceneKey(id)).Build()).ToString()
	if valkey.IsValkeyNil(err) {
		return scene.Scene{}, fmt.Errorf("scene %d: %w", id, scene.ErrNotFound)
	}
	if err != nil {
		return scene.Scene{}, fmt.Errorf("get scene %d: %w", id, err)
	}
	return decode(id, doc)
}

// Update applies patch and writes the result with SET XX, so a scene deleted
// between the read and the write is reported as missing instead of revived.
func (s *Store) Update(ctx context.Context, id int, patch scene.Patch) (scene.Scene, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return scene.Scene{}, err
	}
	updated := patch.Apply(current)
	doc, err := encode(updated)
	if err != nil {
		return scene.Scene{}, err
	}
	err = s.client.Do(ctx, s.client.B().Set().Key(s.sceneKey(id)).Value(doc).Xx().Build()).Error()
	if valkey.IsValkeyNil(err) {
		return scene.Scene{}, fmt.Errorf("scene %d: %w", id, scene.ErrNotFound)
	}
	if err != nil {
		return scene.Scene{}, fmt.Errorf("update scene %d: %w", id, err)
	}
	return updated, nil
}

// Delete removes the scene value and its index entry.
func (s *Store) Delete(ctx context.Context, id int) error {
	removed, err := s.client.Do(ctx, s.client.B().Del().Key(s.sceneKey(id)).Build()).AsInt64()
	if err != nil {
		return fmt.Errorf("delete scene %d: %w", id, err)
	}
	if err := s.client.Do(ctx, s.client.B().Zrem().Key(s.indexKey()).Member(strconv.Itoa(id)).Build()).Error(); err != nil {
		return fmt.Errorf("unindex scene %d: %w", id, err)
	}
	if removed == 0 {
		return fmt.Errorf("scene %d: %w", id, scene.ErrNotFound)
	}
	return nil
}

// List returns scenes in index order. limit <= 0 returns every scene.
func (s *Store) List(ctx context.Context, limit int) ([]scene.Scene, error) {
	stop := "-1"
	if limit > 0 {
		stop = strconv.Itoa(limit - 1)
	}
	members, err := s.client.Do(ctx, s.client.B().Zrange().Key(s.indexKey()).Min("0").Max(stop).Build()).AsStrSlice()
	if err != nil {
		return nil, fmt.Errorf("list scene index: %w", err)
	}
	return s.load(ctx, members)
}

// Search scans every scene and keeps those whose concept or narration contains query.
func (s *Store) Search(ctx context.Context, query string, limit int) ([]scene.Scene, error) {
	all, err := s.List(ctx, 0)
	if err != nil {
		return nil, err
	}
	out := make([]scene.Scene, 0)
	for _, sc := range all {
		if !sc.Matches(query) {
			continue
		}
		out = append(out, sc)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// Count returns the size of the scene index.
func (s *Store) Count(ctx context.Context) (int, error) {
	n, err := s.client.Do(ctx, s.client.B().Zcard().Key(s.indexKey()).Build()).AsInt64()
	if err != nil {
		return 0, fmt.Errorf("count scenes: %w", err)
	}
	return int(n), nil
}

// CountByVisual tallies the stored visual values.
func (s *Store) CountByVisual(ctx context.Context) (map[string]int, error) {
	all, err := s.List(ctx, 0)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, sc := range all {
		counts[sc.Visual]++
	}
	return counts, nil
}

func (s *Store) load(ctx context.Context, members []string) ([]scene.Scene, error) {
	out := make([]scene.Scene, 0, len(members))
	if len(members) == 0 {
		return out, nil
	}
	ids := make([]int, len(members))
	keys := make([]string, len(members))
	for i, member := range members {
		id, err := strconv.Atoi(member)
		if err != nil {
			return nil, fmt.Errorf("scene index member %q: %w", member, err)
		}
		ids[i] = id
		keys[i] = s.sceneKey(id)
	}
	values, err := s.client.Do(ctx, s.client.B().Mget().Key(keys...).Build()).ToArray()
	if err != nil {
		return nil, fmt.Errorf("load scenes: %w", err)
	}
	for i, value := range values {
		if value.IsNil() {
			// Index entry without a document: a delete is in flight.
			continue
		}
		doc, err := value.ToString()
		if err != nil {
			return nil, fmt.Errorf("load scene %d: %w", ids[i], err)
		}
		sc, err := decode(ids[i], doc)
		if err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, nil
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
