package testsupport

import (
	"testing"

	"biblestudy/internal/config"
	"biblestudy/internal/kvstore"
)

// MustOpenStore opens the state database for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *kvstore.SQLiteStore {
	t.Helper()
	store, err := kvstore.Open(cfg.Paths.StatePath)
	if err != nil {
		t.Fatalf("kvstore.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
