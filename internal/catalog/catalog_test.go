package catalog_test

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"animlab/internal/catalog"
	"animlab/internal/logging"
	"animlab/internal/mirror"
	"animlab/internal/scene"
	"animlab/internal/store/sqlite"
)

type countingSyncer struct {
	inner *mirror.Mirror
	calls int
}

func (c *countingSyncer) Sync(ctx context.Context) error {
	c.calls++
	return c.inner.Sync(ctx)
}

type fixedAudio int

func (f fixedAudio) CountAudio() (int, error) { return int(f), nil }

type fixture struct {
	svc    *catalog.Service
	store  *sqlite.Store
	syncer *countingSyncer
	path   string
}

func newFixture(t *testing.T, opts ...catalog.Option) fixture {
	t.Helper()
	dir := t.TempDir()
	st, err := sqlite.Open(context.Background(), filepath.Join(dir, "animlab.db"))
	if err != nil {
		t.Fatalf("sqlite.Open returned error: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	path := filepath.Join(dir, "scene_graph.json")
	syncer := &countingSyncer{inner: mirror.New(path, st, nil)}
	return fixture{
		svc:    catalog.New(st, syncer, logging.NewNop(), opts...),
		store:  st,
		syncer: syncer,
		path:   path,
	}
}

func (f fixture) assertMirrorMatchesStore(t *testing.T) {
	t.Helper()
	stored, err := f.store.List(context.Background(), 0)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	mirrored, err := mirror.ReadFile(f.path)
	if err != nil {
		t.Fatalf("ReadFile returned error: %v", err)
	}
	if mirrored == nil {
		mirrored = []scene.Scene{}
	}
	if !reflect.DeepEqual(mirrored, stored) {
		t.Fatalf("mirror diverged from store:\nmirror %+v\nstore  %+v", mirrored, stored)
	}
}

func TestCreateGetDeleteScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	created, err := f.svc.Create(ctx, scene.Scene{
		ID:          1,
		Concept:     "Intro",
		Explanation: []string{"a"},
		Equations:   []string{},
		Visual:      "none",
		Narration:   "n",
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	f.assertMirrorMatchesStore(t)

	got, err := f.svc.Get(ctx, 1)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if !reflect.DeepEqual(got, created) {
		t.Fatalf("Get mismatch:\n got %+v\nwant %+v", got, created)
	}

	if err := f.svc.Delete(ctx, 1); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if _, err := f.svc.Get(ctx, 1); !errors.Is(err, scene.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if scenes, _ := mirror.ReadFile(f.path); len(scenes) != 0 {
		t.Fatalf("expected empty mirror, got %+v", scenes)
	}
}

func TestDuplicateCreateLeavesStoreAndMirror(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	if _, err := f.svc.Create(ctx, scene.Scene{ID: 2, Concept: "First"}); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	calls := f.syncer.calls
	if _, err := f.svc.Create(ctx, scene.Scene{ID: 2, Concept: "Second"}); !errors.Is(err, scene.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if f.syncer.calls != calls {
		t.Fatal("conflicting create must not sync the mirror")
	}
	list, err := f.svc.List(ctx)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(list) != 1 || list[0].Concept != "First" {
		t.Fatalf("expected exactly the first scene, got %+v", list)
	}
	f.assertMirrorMatchesStore(t)
}

func TestCreateRequiresConcept(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.Create(context.Background(), scene.Scene{ID: 3, Concept: "  "}); !errors.Is(err, scene.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if f.syncer.calls != 0 {
		t.Fatal("invalid create must not sync")
	}
}

func TestEmptyPatchIsNoOp(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	if _, err := f.svc.Create(ctx, scene.Scene{ID: 4, Concept: "Loss", Narration: "n"}); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	calls := f.syncer.calls

	got, err := f.svc.Update(ctx, 4, scene.Patch{})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if got.Concept != "Loss" {
		t.Fatalf("unexpected scene %+v", got)
	}
	if f.syncer.calls != calls {
		t.Fatal("empty patch must not sync the mirror")
	}
	if _, err := f.svc.Update(ctx, 99, scene.Patch{}); !errors.Is(err, scene.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for absent id, got %v", err)
	}
}

func TestUpdateAppliesPatchAndSyncs(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	if _, err := f.svc.Create(ctx, scene.Scene{ID: 5, Concept: "Loss", Narration: "old"}); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	narration := ""
	got, err := f.svc.Update(ctx, 5, scene.Patch{Narration: &narration})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if got.Narration != "" || got.Concept != "Loss" {
		t.Fatalf("unexpected update result %+v", got)
	}
	f.assertMirrorMatchesStore(t)

	if _, err := f.svc.Update(ctx, 6, scene.Patch{Narration: &narration}); !errors.Is(err, scene.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListAndSearchHonourPageSize(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, catalog.WithPageSize(2))
	for id := 1; id <= 3; id++ {
		if _, err := f.svc.Create(ctx, scene.Scene{ID: id, Concept: "Neural Network"}); err != nil {
			t.Fatalf("Create returned error: %v", err)
		}
	}
	list, err := f.svc.List(ctx)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected page of 2, got %d", len(list))
	}
	found, err := f.svc.Search(ctx, "neural")
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(found) != 2 {
		t.Fatalf("expected search page of 2, got %d", len(found))
	}
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, catalog.WithAudioCounter(fixedAudio(3)))
	for id, visual := range map[int]string{1: "loss_curve", 2: "loss_curve", 3: "neural_network"} {
		if _, err := f.svc.Create(ctx, scene.Scene{ID: id, Concept: "c", Visual: visual}); err != nil {
			t.Fatalf("Create returned error: %v", err)
		}
	}
	stats, err := f.svc.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats returned error: %v", err)
	}
	want := catalog.Stats{
		TotalScenes: 3,
		VisualTypes: map[string]int{"loss_curve": 2, "neural_network": 1},
		AudioFiles:  3,
	}
	if !reflect.DeepEqual(stats, want) {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestImportSkipsExistingAndSyncs(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	if _, err := f.svc.Create(ctx, scene.Scene{ID: 1, Concept: "Kept"}); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	n, err := f.svc.Import(ctx, []scene.Scene{{ID: 1, Concept: "Dup"}, {ID: 2, Concept: "New"}})
	if err != nil {
		t.Fatalf("Import returned error: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 imported, got %d", n)
	}
	f.assertMirrorMatchesStore(t)

	if _, err := f.svc.Import(ctx, []scene.Scene{{ID: 7}}); !errors.Is(err, scene.ErrValidation) {
		t.Fatalf("expected ErrValidation for blank concept, got %v", err)
	}
}

func TestCreateIntoMissingMirrorDirectory(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	st, err := sqlite.Open(ctx, filepath.Join(dir, "animlab.db"))
	if err != nil {
		t.Fatalf("sqlite.Open returned error: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	path := filepath.Join(dir, "graphs", "scene_graph.json")
	f := fixture{
		svc:   catalog.New(st, mirror.New(path, st, nil), logging.NewNop()),
		store: st,
		path:  path,
	}

	if _, err := f.svc.Create(ctx, scene.Scene{ID: 1, Concept: "Vectors"}); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	f.assertMirrorMatchesStore(t)
}
