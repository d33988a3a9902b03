package mirror_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"animlab/internal/logging"
	"animlab/internal/mirror"
	"animlab/internal/scene"
	"animlab/internal/store/sqlite"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	st, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "animlab.db"))
	if err != nil {
		t.Fatalf("sqlite.Open returned error: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func writeGraph(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write scene graph: %v", err)
	}
}

func readGraph(t *testing.T, path string) []scene.Scene {
	t.Helper()
	scenes, err := mirror.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile returned error: %v", err)
	}
	return scenes
}

func TestSeedPopulatesEmptyStore(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	path := filepath.Join(t.TempDir(), "scene_graph.json")
	writeGraph(t, path, `[
  {"scene_id": 2, "concept": "Loss", "visual": "loss_curve", "narration": "n2"},
  {"scene_id": 1, "concept": "Intro", "explanation": ["a"], "equations": [], "visual": "none", "narration": "n1"},
  {"scene_id": 2, "concept": "Duplicate"}
]`)

	m := mirror.New(path, st, logging.NewNop())
	n, err := m.Seed(ctx)
	if err != nil {
		t.Fatalf("Seed returned error: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 seeded scenes, got %d", n)
	}
	got, err := st.Get(ctx, 2)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got.Concept != "Loss" {
		t.Fatalf("expected first occurrence to win, got %q", got.Concept)
	}
}

func TestSeedSkipsPopulatedStore(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	if err := st.Insert(ctx, scene.Scene{ID: 9, Concept: "Existing"}); err != nil {
		t.Fatalf("Insert returned error: %v", err)
	}
	path := filepath.Join(t.TempDir(), "scene_graph.json")
	writeGraph(t, path, `[{"scene_id": 1, "concept": "Intro"}]`)

	n, err := mirror.New(path, st, nil).Seed(ctx)
	if err != nil {
		t.Fatalf("Seed returned error: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected no seeding, got %d", n)
	}
	if count, _ := st.Count(ctx); count != 1 {
		t.Fatalf("expected store untouched, got %d scenes", count)
	}
}

func TestSeedMissingOrEmptyFile(t *testing.T) {
	for name, content := range map[string]string{"missing": "", "empty array": "[]", "blank": "  \n"} {
		t.Run(name, func(t *testing.T) {
			st := newStore(t)
			path := filepath.Join(t.TempDir(), "scene_graph.json")
			if name != "missing" {
				writeGraph(t, path, content)
			}
			n, err := mirror.New(path, st, nil).Seed(context.Background())
			if err != nil {
				t.Fatalf("Seed returned error: %v", err)
			}
			if n != 0 {
				t.Fatalf("expected nothing seeded, got %d", n)
			}
		})
	}
}

func TestSeedMalformedFileFails(t *testing.T) {
	st := newStore(t)
	path := filepath.Join(t.TempDir(), "scene_graph.json")
	writeGraph(t, path, `{"scene_id": 1}`)

	if _, err := mirror.New(path, st, nil).Seed(context.Background()); err == nil {
		t.Fatal("expected error for malformed scene graph")
	}
}

func TestSyncWritesOrderedIndentedArray(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	for _, id := range []int{3, 1, 2} {
		if err := st.Insert(ctx, scene.Scene{ID: id, Concept: "c"}); err != nil {
			t.Fatalf("Insert returned error: %v", err)
		}
	}
	path := filepath.Join(t.TempDir(), "out", "scene_graph.json")
	m := mirror.New(path, st, nil)
	if err := m.Sync(ctx); err != nil {
		t.Fatalf("Sync returned error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read mirror: %v", err)
	}
	if !strings.HasPrefix(string(data), "[\n  {\n    \"scene_id\": 1,") {
		t.Fatalf("expected indented array ordered by id, got:\n%s", data)
	}
	if !strings.Contains(string(data), `"explanation": []`) {
		t.Fatalf("expected empty lists encoded as [], got:\n%s", data)
	}

	stored, err := st.List(ctx, 0)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if !reflect.DeepEqual(readGraph(t, path), stored) {
		t.Fatal("mirror does not equal store content")
	}
}

func TestSyncEmptyStoreWritesEmptyArray(t *testing.T) {
	st := newStore(t)
	path := filepath.Join(t.TempDir(), "scene_graph.json")
	if err := mirror.New(path, st, nil).Sync(context.Background()); err != nil {
		t.Fatalf("Sync returned error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read mirror: %v", err)
	}
	var decoded []scene.Scene
	if err := json.Unmarshal(data, &decoded); err != nil || decoded == nil || len(decoded) != 0 {
		t.Fatalf("expected [], got %q (%v)", data, err)
	}
}

func TestConcurrentSyncsLeaveValidFile(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	for id := 1; id <= 20; id++ {
		if err := st.Insert(ctx, scene.Scene{ID: id, Concept: "c"}); err != nil {
			t.Fatalf("Insert returned error: %v", err)
		}
	}
	path := filepath.Join(t.TempDir(), "scene_graph.json")
	m := mirror.New(path, st, nil)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- m.Sync(ctx)
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("Sync returned error: %v", err)
		}
	}
	if got := readGraph(t, path); len(got) != 20 {
		t.Fatalf("expected 20 scenes in mirror, got %d", len(got))
	}
}

func TestSyncGivesUpWhenLockHeld(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	if err := st.Insert(ctx, scene.Scene{ID: 1, Concept: "c"}); err != nil {
		t.Fatalf("Insert returned error: %v", err)
	}
	path := filepath.Join(t.TempDir(), "scene_graph.json")
	m := mirror.New(path, st, nil)
	mirror.SetLockTimeoutForTest(m, 150*time.Millisecond)

	holder := flock.New(path + ".lock")
	locked, err := holder.TryLock()
	if err != nil || !locked {
		t.Fatalf("TryLock returned locked=%v err=%v", locked, err)
	}

	start := time.Now()
	err = m.Sync(ctx)
	if err == nil || !strings.Contains(err.Error(), "still held") {
		t.Fatalf("expected lock timeout error, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("Sync waited %s for the lock", elapsed)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected no mirror written while locked, got %v", err)
	}

	if err := holder.Unlock(); err != nil {
		t.Fatalf("Unlock returned error: %v", err)
	}
	if err := m.Sync(ctx); err != nil {
		t.Fatalf("Sync returned error after unlock: %v", err)
	}
	if got := readGraph(t, path); len(got) != 1 {
		t.Fatalf("expected 1 scene in mirror, got %d", len(got))
	}
}
