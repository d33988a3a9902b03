package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"animlab/internal/store"
	"animlab/internal/store/sqlite"
	"animlab/internal/store/storetest"
)

func openTemp(t *testing.T) *sqlite.Store {
	t.Helper()
	st, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "animlab.db"))
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	return st
}

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		st := openTemp(t)
		t.Cleanup(func() { _ = st.Close() })
		return st
	})
}

func TestReopenKeepsScenes(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "animlab.db")

	st, err := sqlite.Open(ctx, path)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	if err := st.Insert(ctx, storetest.Sample(9)); err != nil {
		t.Fatalf("Insert returned error: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	reopened, err := sqlite.Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen returned error: %v", err)
	}
	defer reopened.Close()
	if reopened.Path() != path {
		t.Fatalf("unexpected path %q", reopened.Path())
	}
	got, err := reopened.Get(ctx, 9)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got.Concept != storetest.Sample(9).Concept {
		t.Fatalf("unexpected scene after reopen: %+v", got)
	}
}

func TestSchemaVersionMismatch(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "animlab.db")
	st, err := sqlite.Open(ctx, path)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	if _, err := sqlite.ExecForTest(st, "UPDATE schema_version SET version = 99"); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	_ = st.Close()

	if _, err := sqlite.Open(ctx, path); !errors.Is(err, sqlite.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestSearchHandlesNonASCII(t *testing.T) {
	ctx := context.Background()
	st := openTemp(t)
	defer st.Close()

	sc := storetest.Sample(1)
	sc.Concept = "Énergie potentielle"
	if err := st.Insert(ctx, sc); err != nil {
		t.Fatalf("Insert returned error: %v", err)
	}
	found, err := st.Search(ctx, "énergie", 0)
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(found) != 1 {
		t.Fatalf("expected unicode case-insensitive match, got %d", len(found))
	}
}
