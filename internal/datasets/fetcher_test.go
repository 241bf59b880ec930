package datasets

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"biblestudy/internal/offline"
	"biblestudy/internal/services"
	"biblestudy/internal/testsupport"
)

func newTestFetcher(t *testing.T, handler http.HandlerFunc) (*Fetcher, string) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	dir := filepath.Join(t.TempDir(), "datasets")
	return NewFetcher(srv.URL, dir, 2, WithBackoff(time.Millisecond, 2*time.Millisecond)), dir
}

func TestFetchWritesLoadableDataset(t *testing.T) {
	var path string
	fetcher, dir := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_, _ = w.Write(append([]byte{0xEF, 0xBB, 0xBF}, testsupport.DatasetJSON("kjv")...))
	})

	res, err := fetcher.Fetch(context.Background(), " KJV ")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if path != "/kjv.json" {
		t.Fatalf("requested %q", path)
	}
	if res.Translation != "kjv" || res.Books != 3 || res.Path != filepath.Join(dir, "kjv.json") {
		t.Fatalf("unexpected result %+v", res)
	}

	loader := offline.NewLoader(os.DirFS(dir), nil)
	chapter, err := loader.FetchChapter(context.Background(), "John", 3, "kjv")
	if err != nil {
		t.Fatalf("FetchChapter: %v", err)
	}
	if chapter.Verses[0].Text != testsupport.VerseText("kjv", "John", 3, 1) {
		t.Fatalf("verse text = %q", chapter.Verses[0].Text)
	}
}

func TestFetchRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	fetcher, _ := newTestFetcher(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write(testsupport.DatasetJSON("web"))
	})

	if _, err := fetcher.Fetch(context.Background(), "web"); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
}

func TestFetchGivesUpAndKeepsExistingFile(t *testing.T) {
	fetcher, dir := newTestFetcher(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	existing := filepath.Join(dir, "web.json")
	if err := os.WriteFile(existing, []byte("[]"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := fetcher.Fetch(context.Background(), "web")
	if !errors.Is(err, services.ErrTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if !strings.Contains(err.Error(), "HTTP error! status: 503") {
		t.Fatalf("unexpected message %v", err)
	}
	data, _ := os.ReadFile(existing)
	if string(data) != "[]" {
		t.Fatalf("existing file replaced: %q", data)
	}
}

func TestFetchNotFoundIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	fetcher, _ := newTestFetcher(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.NotFound(w, nil)
	})

	_, err := fetcher.Fetch(context.Background(), "kjv")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected 1 attempt, got %d", calls.Load())
	}
}

func TestFetchRejectsNonDataset(t *testing.T) {
	cases := map[string]string{
		"html":   "<html></html>",
		"object": `{"books":[]}`,
		"empty":  `[]`,
		"shape":  `[{"abbrev":"gn"}]`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			fetcher, dir := newTestFetcher(t, func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(body))
			})
			_, err := fetcher.Fetch(context.Background(), "kjv")
			if !errors.Is(err, services.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if _, statErr := os.Stat(filepath.Join(dir, "kjv.json")); !os.IsNotExist(statErr) {
				t.Fatalf("dataset written despite failure")
			}
		})
	}
}

func TestFetchRejectsUnlistedTranslation(t *testing.T) {
	fetcher, _ := newTestFetcher(t, func(w http.ResponseWriter, _ *http.Request) {
		t.Fatal("unexpected request")
	})
	_, err := fetcher.Fetch(context.Background(), "bbe")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestFetchAllDefaultsToAllowList(t *testing.T) {
	var requested []string
	fetcher, dir := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		requested = append(requested, r.URL.Path)
		tr := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/"), ".json")
		_, _ = w.Write(testsupport.DatasetJSON(tr))
	})

	results, err := fetcher.FetchAll(context.Background(), nil)
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if len(results) != 2 || strings.Join(requested, ",") != "/kjv.json,/web.json" {
		t.Fatalf("unexpected fetches %v", requested)
	}
	for _, name := range []string{"kjv.json", "web.json"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("missing %s: %v", name, err)
		}
	}
}

func TestFetchWithoutSourceIsConfigurationError(t *testing.T) {
	fetcher := NewFetcher("", t.TempDir(), 0)
	if _, err := fetcher.Fetch(context.Background(), "web"); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestURLSourcePrecedence(t *testing.T) {
	bare := NewFetcher("", t.TempDir(), 0)
	if got, err := bare.URL("kjv"); err != nil || got != DefaultSources["kjv"] {
		t.Fatalf("default kjv source = %q, %v", got, err)
	}
	if !strings.HasSuffix(DefaultSources["kjv"], "/en_kjv.json") {
		t.Fatalf("default kjv source should name en_kjv.json, got %q", DefaultSources["kjv"])
	}

	mirror := NewFetcher("https://mirror.example/bible/", t.TempDir(), 0)
	if got, _ := mirror.URL("kjv"); got != "https://mirror.example/bible/kjv.json" {
		t.Fatalf("mirror source = %q", got)
	}

	sourced := NewFetcher("https://mirror.example/bible", t.TempDir(), 0,
		WithSources(map[string]string{"WEB": " https://files.example/web-1.json ", "kjv": ""}))
	if got, _ := sourced.URL("web"); got != "https://files.example/web-1.json" {
		t.Fatalf("explicit web source = %q", got)
	}
	if got, _ := sourced.URL("kjv"); got != "https://mirror.example/bible/kjv.json" {
		t.Fatalf("empty source should fall back to mirror, got %q", got)
	}
}

func TestFetchUsesConfiguredSource(t *testing.T) {
	var requested string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requested = r.URL.Path
		_, _ = w.Write(testsupport.DatasetJSON("web"))
	}))
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	fetcher := NewFetcher("", dir, 0, WithSources(map[string]string{"web": srv.URL + "/files/en_web.json"}))
	if _, err := fetcher.Fetch(context.Background(), "web"); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if requested != "/files/en_web.json" {
		t.Fatalf("requested %q", requested)
	}
	if _, err := os.Stat(filepath.Join(dir, "web.json")); err != nil {
		t.Fatalf("dataset not written as web.json: %v", err)
	}
}
