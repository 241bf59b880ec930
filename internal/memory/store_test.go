package memory_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"biblestudy/internal/kvstore"
	"biblestudy/internal/memory"
	"biblestudy/internal/services"
)

type failingStore struct {
	kvstore.Store
	err error
}

func (f failingStore) Get(context.Context, string) (string, bool, error) { return "", false, f.err }
func (f failingStore) Set(context.Context, string, string) error         { return f.err }

func fixedClock() func() time.Time {
	now := time.Date(2026, 4, 5, 9, 30, 0, 0, time.UTC)
	return func() time.Time { return now }
}

func TestExplorerStateRoundTrip(t *testing.T) {
	kv := kvstore.NewMemory()
	store := memory.New(kv, nil)
	ctx := context.Background()

	state := memory.ExplorerState{
		LastBook:        "John",
		LastChapter:     3,
		LastTranslation: "kjv",
		ChapterAnalysis: &memory.ChapterAnalysis{
			Type:        "commentary",
			Text:        "Born again",
			Perspective: "catholic",
			BookName:    "John",
			Chapter:     3,
			Translation: "kjv",
		},
	}
	if err := store.SaveExplorer(ctx, state); err != nil {
		t.Fatalf("SaveExplorer: %v", err)
	}
	loaded := store.LoadExplorer(ctx)
	if loaded.LastBook != "John" || loaded.LastChapter != 3 || loaded.ChapterAnalysis == nil || loaded.ChapterAnalysis.Perspective != "catholic" {
		t.Fatalf("unexpected state %+v", loaded)
	}
	if _, ok, _ := kv.Get(ctx, "biblestudy-explorer-memory"); !ok {
		t.Fatal("expected explorer record under its key")
	}
	if study := store.LoadStudy(ctx); study.LastQuery != "" || study.LastResponse != nil {
		t.Fatalf("expected pages to be independent, got %+v", study)
	}
}

func TestAddChatMessageCapsHistory(t *testing.T) {
	store := memory.New(kvstore.NewMemory(), nil, memory.WithClock(fixedClock()))
	ctx := context.Background()
	for i := 1; i <= 55; i++ {
		if _, err := store.AddChatMessage(ctx, memory.PageStudy, memory.RoleUser, fmt.Sprintf("message %d", i)); err != nil {
			t.Fatalf("AddChatMessage %d: %v", i, err)
		}
	}
	history := store.ChatHistory(ctx, memory.PageStudy)
	if len(history) != memory.MaxChatHistory {
		t.Fatalf("expected %d messages, got %d", memory.MaxChatHistory, len(history))
	}
	if history[0].Content != "message 6" || history[len(history)-1].Content != "message 55" {
		t.Fatalf("expected oldest trimmed, got first=%q last=%q", history[0].Content, history[len(history)-1].Content)
	}
	if !history[0].Timestamp.Equal(fixedClock()()) {
		t.Fatalf("unexpected timestamp %v", history[0].Timestamp)
	}
	if len(store.ChatHistory(ctx, memory.PageExplorer)) != 0 {
		t.Fatal("explorer history should be untouched")
	}
}

func TestAddChatMessagePreservesOtherFields(t *testing.T) {
	store := memory.New(kvstore.NewMemory(), nil)
	ctx := context.Background()
	if err := store.SaveStudy(ctx, memory.StudyState{LastQuery: "grace"}); err != nil {
		t.Fatalf("SaveStudy: %v", err)
	}
	if _, err := store.AddChatMessage(ctx, memory.PageStudy, memory.RoleAssistant, "hello"); err != nil {
		t.Fatalf("AddChatMessage: %v", err)
	}
	state := store.LoadStudy(ctx)
	if state.LastQuery != "grace" || len(state.ChatHistory) != 1 || state.ChatHistory[0].Role != memory.RoleAssistant {
		t.Fatalf("unexpected state %+v", state)
	}
}

func TestAddChatMessageRejectsUnknownRole(t *testing.T) {
	store := memory.New(kvstore.NewMemory(), nil)
	if _, err := store.AddChatMessage(context.Background(), memory.PageStudy, memory.Role("system"), "x"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSaveTrimsOversizedHistory(t *testing.T) {
	store := memory.New(kvstore.NewMemory(), nil)
	ctx := context.Background()
	history := make([]memory.ChatMessage, 60)
	for i := range history {
		history[i] = memory.ChatMessage{Role: memory.RoleUser, Content: fmt.Sprint(i)}
	}
	if err := store.SaveExplorer(ctx, memory.ExplorerState{ChatHistory: history}); err != nil {
		t.Fatalf("SaveExplorer: %v", err)
	}
	got := store.LoadExplorer(ctx).ChatHistory
	if len(got) != memory.MaxChatHistory || got[0].Content != "10" {
		t.Fatalf("expected newest 50 kept, got %d starting at %q", len(got), got[0].Content)
	}
}

func TestLoadFailuresReturnEmptyState(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemory()
	if err := kv.Set(ctx, memory.PageExplorer.Key(), `{"lastBook": 12`); err != nil {
		t.Fatalf("seed: %v", err)
	}
	store := memory.New(kv, nil)
	if state := store.LoadExplorer(ctx); state.LastBook != "" || state.ChatHistory != nil {
		t.Fatalf("expected empty state for corrupt record, got %+v", state)
	}

	broken := memory.New(failingStore{Store: kvstore.NewMemory(), err: errors.New("disk gone")}, nil)
	if state := broken.LoadStudy(ctx); state.LastQuery != "" {
		t.Fatalf("expected empty state, got %+v", state)
	}
	if err := broken.SaveStudy(ctx, memory.StudyState{LastQuery: "x"}); !errors.Is(err, services.ErrTransport) {
		t.Fatalf("expected save failure to surface, got %v", err)
	}
}

func TestSaveJSONAndClear(t *testing.T) {
	store := memory.New(kvstore.NewMemory(), nil)
	ctx := context.Background()

	if err := store.SaveJSON(ctx, memory.PageStudy, []byte(`{"lastQuery":"hope","lastResponse":{"response":"r","sources":["https://www.esv.org/"],"timestamp":"2026-04-05T09:30:00Z"}}`)); err != nil {
		t.Fatalf("SaveJSON: %v", err)
	}
	loaded, err := store.Load(ctx, memory.PageStudy)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	study, ok := loaded.(memory.StudyState)
	if !ok || study.LastQuery != "hope" || study.LastResponse == nil || len(study.LastResponse.Sources) != 1 {
		t.Fatalf("unexpected study state %#v", loaded)
	}

	if err := store.SaveJSON(ctx, memory.PageStudy, []byte(`{"lastBook":"John"}`)); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected explorer field rejected on study page, got %v", err)
	}

	if err := store.Clear(ctx, memory.PageStudy); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if state := store.LoadStudy(ctx); state.LastQuery != "" {
		t.Fatalf("expected cleared state, got %+v", state)
	}
}

func TestParsePage(t *testing.T) {
	if page, err := memory.ParsePage(" Explorer "); err != nil || page != memory.PageExplorer {
		t.Fatalf("ParsePage: %v %v", page, err)
	}
	if _, err := memory.ParsePage("home"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
