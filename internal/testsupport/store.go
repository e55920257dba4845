package testsupport

import (
	"context"
	"testing"

	"menumatch/internal/config"
	"menumatch/internal/store"
)

// MustOpenStore opens the ledger configured in cfg and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(context.Background(), cfg.Ledger.Path)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}

// MustCreateRun inserts a running run for tests.
func MustCreateRun(t testing.TB, st *store.Store, mode string) store.Run {
	t.Helper()

	run, err := st.CreateRun(context.Background(), store.Run{Mode: mode, ImagesDir: "images", CatalogFile: "catalog.txt"})
	if err != nil {
		t.Fatalf("store.CreateRun: %v", err)
	}
	return run
}
