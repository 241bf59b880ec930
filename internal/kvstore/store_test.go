package kvstore_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"biblestudy/internal/kvstore"
)

func openStores(t *testing.T) map[string]kvstore.Store {
	t.Helper()
	sqlite, err := kvstore.Open(filepath.Join(t.TempDir(), "state", "state.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = sqlite.Close() })
	return map[string]kvstore.Store{
		"sqlite": sqlite,
		"memory": kvstore.NewMemory(),
	}
}

func TestStoreContract(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			if _, ok, err := store.Get(ctx, "missing"); err != nil || ok {
				t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
			}
			if err := store.Set(ctx, "bible-cache-john|3|kjv", `{"a":1}`); err != nil {
				t.Fatalf("Set: %v", err)
			}
			if err := store.Set(ctx, "bible-cache-john|3|kjv", `{"a":2}`); err != nil {
				t.Fatalf("Set overwrite: %v", err)
			}
			value, ok, err := store.Get(ctx, "bible-cache-john|3|kjv")
			if err != nil || !ok || value != `{"a":2}` {
				t.Fatalf("Get = %q %v %v", value, ok, err)
			}

			for _, key := range []string{"bible-cache-gen|1|web", "biblestudy-study-memory", "other"} {
				if err := store.Set(ctx, key, "x"); err != nil {
					t.Fatalf("Set %s: %v", key, err)
				}
			}
			keys, err := store.Keys(ctx, "bible-cache-")
			if err != nil {
				t.Fatalf("Keys: %v", err)
			}
			if len(keys) != 2 || keys[0] != "bible-cache-gen|1|web" || keys[1] != "bible-cache-john|3|kjv" {
				t.Fatalf("unexpected keys %v", keys)
			}

			removed, err := store.DeletePrefix(ctx, "bible-cache-")
			if err != nil || removed != 2 {
				t.Fatalf("DeletePrefix = %d, %v", removed, err)
			}
			all, err := store.Keys(ctx, "")
			if err != nil {
				t.Fatalf("Keys all: %v", err)
			}
			if len(all) != 2 || all[0] != "biblestudy-study-memory" || all[1] != "other" {
				t.Fatalf("expected non-cache keys to survive, got %v", all)
			}

			if err := store.Delete(ctx, "other"); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if _, ok, _ := store.Get(ctx, "other"); ok {
				t.Fatal("expected key deleted")
			}
		})
	}
}

func TestSQLitePrefixIsLiteral(t *testing.T) {
	store, err := kvstore.Open(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()
	ctx := context.Background()

	for _, key := range []string{"a%b-1", "axb-1", "a_b-1"} {
		if err := store.Set(ctx, key, "v"); err != nil {
			t.Fatalf("Set: %v", err)
		}
	}
	removed, err := store.DeletePrefix(ctx, "a%b")
	if err != nil || removed != 1 {
		t.Fatalf("expected only the literal prefix to match, removed=%d err=%v", removed, err)
	}
}

func TestSQLitePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	store, err := kvstore.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := store.Set(context.Background(), "k", "v"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, _, err := store.Get(context.Background(), "k"); !errors.Is(err, kvstore.ErrClosed) {
		t.Fatalf("expected ErrClosed after close, got %v", err)
	}

	reopened, err := kvstore.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	value, ok, err := reopened.Get(context.Background(), "k")
	if err != nil || !ok || value != "v" {
		t.Fatalf("expected persisted value, got %q %v %v", value, ok, err)
	}
	if reopened.Path() != path {
		t.Fatalf("unexpected path %q", reopened.Path())
	}
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	if _, err := kvstore.Open(" "); err == nil {
		t.Fatal("expected error for empty path")
	}
}
