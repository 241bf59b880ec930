package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"biblestudy/internal/prompt"
	"biblestudy/internal/testsupport"
)

type fakeGateway struct {
	mu       sync.Mutex
	requests []prompt.Request
}

func (g *fakeGateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req prompt.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	g.mu.Lock()
	g.requests = append(g.requests, req)
	g.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "response": string(req.Type) + " reply"})
}

func (g *fakeGateway) last(t *testing.T) prompt.Request {
	t.Helper()
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.requests) == 0 {
		t.Fatal("gateway received no requests")
	}
	return g.requests[len(g.requests)-1]
}

type cliTestEnv struct {
	baseDir    string
	configPath string
	datasetDir string
	logDir     string
	gateway    *fakeGateway
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()
	for _, key := range []string{"AZURE_OPENAI_API_KEY", "AZURE_OPENAI_ENDPOINT", "OPENAI_API_KEY", "BIBLESTUDY_API_TOKEN"} {
		t.Setenv(key, "")
	}

	gw := &fakeGateway{}
	gwServer := httptest.NewServer(gw)
	t.Cleanup(gwServer.Close)

	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"not found"}`))
	}))
	t.Cleanup(remote.Close)

	base := t.TempDir()
	env := &cliTestEnv{
		baseDir:    base,
		configPath: filepath.Join(base, "config.toml"),
		datasetDir: filepath.Join(base, "data", "datasets"),
		logDir:     filepath.Join(base, "logs"),
		gateway:    gw,
	}
	content := fmt.Sprintf(`[paths]
data_dir = %q
dataset_dir = %q
state_path = %q
log_dir = %q

[llm]
provider = "azure"
api_key = "secret-key"
endpoint = "https://example.openai.azure.com"

[bible_api]
base_url = %q

[server]
gateway_url = %q
`, filepath.Join(base, "data"), env.datasetDir, filepath.Join(base, "data", "state.db"), env.logDir,
		remote.URL, gwServer.URL)
	if err := os.WriteFile(env.configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	testsupport.WriteDatasets(t, env.datasetDir, "kjv", "web")
	return env
}

func runCLI(t *testing.T, env *cliTestEnv, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", env.configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q, got:\n%s", needle, haystack)
	}
}

func TestChapterCommandUsesTiers(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := runCLI(t, env, "", "chapter", "John", "11", "--translation", "kjv")
	if err != nil {
		t.Fatalf("chapter: %v", err)
	}
	requireContains(t, out, "John 11 (KJV)")
	requireContains(t, out, " 35  kjv Jesus wept.\n")
	requireContains(t, out, "[offline]")

	out, err = runCLI(t, env, "", "chapter", "john 11", "--translation", "KJV")
	if err != nil {
		t.Fatalf("chapter again: %v", err)
	}
	requireContains(t, out, "[persistent]")

	out, err = runCLI(t, env, "", "memory", "show", "explorer")
	if err != nil {
		t.Fatalf("memory show: %v", err)
	}
	requireContains(t, out, `"lastBook": "John"`)
	requireContains(t, out, `"lastChapter": 11`)
}

func TestChapterCommandErrors(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, err := runCLI(t, env, "", "chapter", "John", "three"); err == nil {
		t.Fatal("expected parse error")
	}
	_, err := runCLI(t, env, "", "chapter", "Obadiah", "1")
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestBooksCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := runCLI(t, env, "", "books", "--translation", "kjv")
	if err != nil {
		t.Fatalf("books: %v", err)
	}
	requireContains(t, out, "Genesis")
	requireContains(t, out, "Revelation")

	out, err = runCLI(t, env, "", "books", "--alpha", "--json")
	if err != nil {
		t.Fatalf("books --alpha: %v", err)
	}
	var books []struct {
		Name     string `json:"name"`
		Chapters int    `json:"chapters"`
	}
	if err := json.Unmarshal([]byte(out), &books); err != nil {
		t.Fatalf("decode books: %v", err)
	}
	if len(books) != 66 || books[0].Name != "1 Chronicles" {
		t.Fatalf("unexpected first book %q", books[0].Name)
	}
}

func TestCacheCommands(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, err := runCLI(t, env, "", "chapter", "Exodus", "4"); err != nil {
		t.Fatalf("chapter: %v", err)
	}
	out, err := runCLI(t, env, "", "cache", "list")
	if err != nil {
		t.Fatalf("cache list: %v", err)
	}
	requireContains(t, out, "exodus|4|web")

	out, err = runCLI(t, env, "", "cache", "stats", "--json")
	if err != nil {
		t.Fatalf("cache stats: %v", err)
	}
	var summary cacheSummary
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if summary.Entries != 1 || summary.ByTranslation["web"] != 1 || summary.RetentionDays != 7 {
		t.Fatalf("unexpected summary %+v", summary)
	}

	out, err = runCLI(t, env, "", "cache", "clear")
	if err != nil {
		t.Fatalf("cache clear: %v", err)
	}
	requireContains(t, out, "Removed 1 cached chapters")

	out, _ = runCLI(t, env, "", "cache", "list")
	requireContains(t, out, "Chapter cache is empty")
}

func TestSummarizeCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := runCLI(t, env, "", "summarize", "Genesis", "1")
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	requireContains(t, out, "chapter_summary reply")
	req := env.gateway.last(t)
	if req.Type != prompt.IntentChapterSummary || req.MaxTokens != prompt.SummaryMaxTokens {
		t.Fatalf("unexpected request %+v", req)
	}
	requireContains(t, req.Prompt, "Genesis 1")

	out, _ = runCLI(t, env, "", "memory", "show", "explorer")
	requireContains(t, out, `"type": "summary"`)
}

func TestCommentaryCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := runCLI(t, env, "", "commentary", "Genesis", "1", "--perspective", "enduring-word")
	if err != nil {
		t.Fatalf("commentary: %v", err)
	}
	requireContains(t, out, "Enduring Word Style")
	if req := env.gateway.last(t); req.MaxTokens != prompt.ChapterCommentaryMaxTokens {
		t.Fatalf("unexpected request %+v", req)
	}

	out, err = runCLI(t, env, "", "commentary", "Genesis", "1", "--verses", "2-3", "-p", "historical")
	if err != nil {
		t.Fatalf("selection commentary: %v", err)
	}
	requireContains(t, out, "Genesis 1:2-3")
	req := env.gateway.last(t)
	if req.Type != prompt.IntentCommentary || req.MaxTokens != prompt.SelectionCommentaryMaxTokens {
		t.Fatalf("unexpected request %+v", req)
	}
	requireContains(t, req.Prompt, testsupport.VerseText("web", "Genesis", 1, 2))

	if _, err := runCLI(t, env, "", "commentary", "Genesis", "1", "-p", "reformed"); err == nil {
		t.Fatal("expected unknown perspective error")
	}
}

func TestChatCommandRecordsTranscript(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := runCLI(t, env, "Who wrote this?\nexit\n", "chat", "John", "3")
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	requireContains(t, out, "Chatting about John 3")
	requireContains(t, out, "chat reply")
	requireContains(t, env.gateway.last(t).Prompt, "Who wrote this?")

	if _, err := runCLI(t, env, "", "chat", "John", "3", "-m", "And then?"); err != nil {
		t.Fatalf("chat -m: %v", err)
	}

	out, err = runCLI(t, env, "", "memory", "show", "explorer")
	if err != nil {
		t.Fatalf("memory show: %v", err)
	}
	var state struct {
		ChatHistory []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"chatHistory"`
	}
	if err := json.Unmarshal([]byte(out), &state); err != nil {
		t.Fatalf("decode memory: %v", err)
	}
	if len(state.ChatHistory) != 4 || state.ChatHistory[0].Content != "Who wrote this?" || state.ChatHistory[1].Role != "assistant" {
		t.Fatalf("unexpected transcript %+v", state.ChatHistory)
	}

	out, err = runCLI(t, env, "", "memory", "clear", "explorer")
	if err != nil {
		t.Fatalf("memory clear: %v", err)
	}
	requireContains(t, out, "Cleared explorer memory")
}

func TestInsightCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := runCLI(t, env, "", "insight", "grace", "and", "works")
	if err != nil {
		t.Fatalf("insight: %v", err)
	}
	requireContains(t, out, "theological_insight reply")
	requireContains(t, out, "Bible Gateway")

	out, _ = runCLI(t, env, "", "memory", "show", "study")
	requireContains(t, out, `"lastQuery": "grace and works"`)
}

func TestConfigCommands(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := runCLI(t, env, "", "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "<redacted>")
	if strings.Contains(out, "secret-key") {
		t.Fatalf("api key leaked:\n%s", out)
	}

	out, err = runCLI(t, env, "", "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")

	target := filepath.Join(t.TempDir(), "nested", "config.toml")
	out, err = runCLI(t, env, "", "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := runCLI(t, env, "", "config", "init", "--path", target); err == nil {
		t.Fatal("expected refusal to overwrite")
	}
}

func TestDoctorCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	if err := os.MkdirAll(env.logDir, 0o755); err != nil {
		t.Fatal(err)
	}

	out, err := runCLI(t, env, "", "doctor")
	if err != nil {
		t.Fatalf("doctor: %v\n%s", err, out)
	}
	requireContains(t, out, "== Local ==")
	requireContains(t, out, "[OK] kjv, web")
	requireContains(t, out, "skipped (use --remote)")

	if err := os.Remove(filepath.Join(env.datasetDir, "web.json")); err != nil {
		t.Fatal(err)
	}
	out, err = runCLI(t, env, "", "doctor", "--json")
	if err == nil || err.Error() != "1 check(s) failed" {
		t.Fatalf("expected one failure, got %v", err)
	}
	requireContains(t, out, `"passed": false`)
}

func TestDatasetFetchCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	mirror := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tr := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/"), ".json")
		_, _ = w.Write(testsupport.DatasetJSON(tr))
	}))
	defer mirror.Close()

	out, err := runCLI(t, env, "", "dataset", "fetch", "kjv", "--from", mirror.URL)
	if err != nil {
		t.Fatalf("dataset fetch: %v", err)
	}
	requireContains(t, out, "KJV")
	requireContains(t, out, filepath.Join(env.datasetDir, "kjv.json"))
}

func TestParseReference(t *testing.T) {
	cases := []struct {
		args    []string
		book    string
		chapter int
		ok      bool
	}{
		{[]string{"John", "3"}, "John", 3, true},
		{[]string{"1", "John", "4"}, "1 John", 4, true},
		{[]string{"Song of Solomon 2"}, "Song of Solomon", 2, true},
		{[]string{"John"}, "", 0, false},
		{[]string{"John", "0"}, "", 0, false},
	}
	for _, tc := range cases {
		book, chapter, err := parseReference(tc.args)
		if (err == nil) != tc.ok {
			t.Fatalf("%v: err = %v", tc.args, err)
		}
		if tc.ok && (book != tc.book || chapter != tc.chapter) {
			t.Fatalf("%v: got %q %d", tc.args, book, chapter)
		}
	}
}

func TestParseVerseRange(t *testing.T) {
	if start, end, err := parseVerseRange("16"); err != nil || start != 16 || end != 16 {
		t.Fatalf("single verse: %d-%d %v", start, end, err)
	}
	if start, end, err := parseVerseRange(" 3 - 5 "); err != nil || start != 3 || end != 5 {
		t.Fatalf("range: %d-%d %v", start, end, err)
	}
	for _, bad := range []string{"", "0", "5-3", "a-b"} {
		if _, _, err := parseVerseRange(bad); err == nil {
			t.Fatalf("%q: expected error", bad)
		}
	}
}
