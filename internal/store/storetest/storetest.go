// Package storetest holds the behavioural suite every scene store backend
// must pass.
package storetest

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"animlab/internal/scene"
	"animlab/internal/store"
)

// Factory returns an empty store and registers its own cleanup.
type Factory func(t *testing.T) store.Store

// Run exercises a fresh store from open for each contract case.
func Run(t *testing.T, open Factory) {
	t.Helper()
	cases := []struct {
		name string
		fn   func(*testing.T, store.Store)
	}{
		{"InsertGetRoundTrip", testInsertGet},
		{"DuplicateInsertConflicts", testDuplicate},
		{"GetMissing", testGetMissing},
		{"UpdateAppliesSuppliedFields", testUpdate},
		{"UpdateMissing", testUpdateMissing},
		{"DeleteRemoves", testDelete},
		{"ListOrderedAndLimited", testListOrder},
		{"SearchCaseInsensitive", testSearch},
		{"InsertManySkipsDuplicates", testInsertMany},
		{"CountByVisual", testCountByVisual},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.fn(t, open(t))
		})
	}
}

// Sample returns a fully populated scene for id.
func Sample(id int) scene.Scene {
	return scene.Scene{
		ID:          id,
		Concept:     "Gradient Descent",
		Explanation: []string{"Start with random weights", "Step against the gradient"},
		Equations:   []string{`w \leftarrow w - \eta \nabla L`},
		Visual:      string(scene.VisualGradientDescent),
		Narration:   "We walk downhill on the loss surface.",
	}
}

func testInsertGet(t *testing.T, st store.Store) {
	ctx := context.Background()
	want := Sample(1)
	if err := st.Insert(ctx, want); err != nil {
		t.Fatalf("Insert returned error: %v", err)
	}
	got, err := st.Get(ctx, 1)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, want)
	}
}

func testDuplicate(t *testing.T, st store.Store) {
	ctx := context.Background()
	first := Sample(2)
	if err := st.Insert(ctx, first); err != nil {
		t.Fatalf("Insert returned error: %v", err)
	}
	second := Sample(2)
	second.Concept = "Replacement"
	err := st.Insert(ctx, second)
	if !errors.Is(err, scene.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	got, err := st.Get(ctx, 2)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got.Concept != first.Concept {
		t.Fatalf("duplicate insert modified stored scene: %+v", got)
	}
	if n, _ := st.Count(ctx); n != 1 {
		t.Fatalf("expected exactly one scene, got %d", n)
	}
}

func testGetMissing(t *testing.T, st store.Store) {
	if _, err := st.Get(context.Background(), 404); !errors.Is(err, scene.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := st.Delete(context.Background(), 404); !errors.Is(err, scene.ErrNotFound) {
		t.Fatalf("expected ErrNotFound from Delete, got %v", err)
	}
}

func testUpdate(t *testing.T, st store.Store) {
	ctx := context.Background()
	if err := st.Insert(ctx, Sample(3)); err != nil {
		t.Fatalf("Insert returned error: %v", err)
	}
	concept := "Momentum"
	empty := []string{}
	updated, err := st.Update(ctx, 3, scene.Patch{Concept: &concept, Equations: &empty})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	want := Sample(3)
	want.Concept = concept
	want.Equations = []string{}
	if !reflect.DeepEqual(updated, want) {
		t.Fatalf("unexpected update result:\n got %+v\nwant %+v", updated, want)
	}
	stored, err := st.Get(ctx, 3)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if !reflect.DeepEqual(stored, want) {
		t.Fatalf("stored scene mismatch:\n got %+v\nwant %+v", stored, want)
	}
}

func testUpdateMissing(t *testing.T, st store.Store) {
	concept := "x"
	if _, err := st.Update(context.Background(), 77, scene.Patch{Concept: &concept}); !errors.Is(err, scene.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func testDelete(t *testing.T, st store.Store) {
	ctx := context.Background()
	if err := st.Insert(ctx, Sample(5)); err != nil {
		t.Fatalf("Insert returned error: %v", err)
	}
	if err := st.Delete(ctx, 5); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if _, err := st.Get(ctx, 5); !errors.Is(err, scene.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	list, err := st.List(ctx, 0)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected empty list, got %+v", list)
	}
}

func testListOrder(t *testing.T, st store.Store) {
	ctx := context.Background()
	for _, id := range []int{30, 10, 20} {
		if err := st.Insert(ctx, Sample(id)); err != nil {
			t.Fatalf("Insert(%d) returned error: %v", id, err)
		}
	}
	all, err := st.List(ctx, 0)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if got := ids(all); !reflect.DeepEqual(got, []int{10, 20, 30}) {
		t.Fatalf("unexpected order %v", got)
	}
	limited, err := st.List(ctx, 2)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if got := ids(limited); !reflect.DeepEqual(got, []int{10, 20}) {
		t.Fatalf("unexpected limited list %v", got)
	}
}

func testSearch(t *testing.T, st store.Store) {
	ctx := context.Background()
	scenes := []scene.Scene{
		{ID: 1, Concept: "Linear Regression", Narration: "fit a line"},
		{ID: 2, Concept: "Loss", Narration: "the LINE of best fit"},
		{ID: 3, Concept: "Neurons", Narration: "weights", Explanation: []string{"linear layers"}},
	}
	for _, sc := range scenes {
		if err := st.Insert(ctx, sc); err != nil {
			t.Fatalf("Insert returned error: %v", err)
		}
	}
	found, err := st.Search(ctx, "LiNe", 0)
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if got := ids(found); !reflect.DeepEqual(got, []int{1, 2}) {
		t.Fatalf("unexpected search hits %v", got)
	}
	limited, err := st.Search(ctx, "line", 1)
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(limited) != 1 {
		t.Fatalf("expected limit to apply, got %v", ids(limited))
	}
	none, err := st.Search(ctx, "transformer", 0)
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if none == nil || len(none) != 0 {
		t.Fatalf("expected empty non-nil result, got %#v", none)
	}
}

func testInsertMany(t *testing.T, st store.Store) {
	ctx := context.Background()
	if err := st.Insert(ctx, Sample(1)); err != nil {
		t.Fatalf("Insert returned error: %v", err)
	}
	batch := []scene.Scene{Sample(1), Sample(2), Sample(3), Sample(2)}
	n, err := st.InsertMany(ctx, batch)
	if err != nil {
		t.Fatalf("InsertMany returned error: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 inserted, got %d", n)
	}
	if count, _ := st.Count(ctx); count != 3 {
		t.Fatalf("expected 3 scenes, got %d", count)
	}
}

func testCountByVisual(t *testing.T, st store.Store) {
	ctx := context.Background()
	visuals := []string{"loss_curve", "loss_curve", "", "custom"}
	for i, v := range visuals {
		sc := Sample(i + 1)
		sc.Visual = v
		if err := st.Insert(ctx, sc); err != nil {
			t.Fatalf("Insert returned error: %v", err)
		}
	}
	counts, err := st.CountByVisual(ctx)
	if err != nil {
		t.Fatalf("CountByVisual returned error: %v", err)
	}
	want := map[string]int{"loss_curve": 2, "": 1, "custom": 1}
	if !reflect.DeepEqual(counts, want) {
		t.Fatalf("unexpected counts %v", counts)
	}
}

func ids(scenes []scene.Scene) []int {
	out := make([]int, 0, len(scenes))
	for _, sc := range scenes {
		out = append(out, sc.ID)
	}
	return out
}
