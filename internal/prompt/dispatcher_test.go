package prompt_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"biblestudy/internal/prompt"
	"biblestudy/internal/services"
)

type recordingCompleter struct {
	mu       sync.Mutex
	requests []prompt.Request
	reply    string
	err      error
}

func (r *recordingCompleter) Complete(_ context.Context, req prompt.Request) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, req)
	return r.reply, r.err
}

func (r *recordingCompleter) last(t *testing.T) prompt.Request {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.requests) == 0 {
		t.Fatal("expected a request")
	}
	return r.requests[len(r.requests)-1]
}

func TestDispatcherRequestShapes(t *testing.T) {
	const text = "For God so loved the world"
	tests := []struct {
		name      string
		call      func(*prompt.Dispatcher) error
		intent    prompt.Intent
		maxTokens int
		contains  []string
	}{
		{
			name: "insight",
			call: func(d *prompt.Dispatcher) error {
				_, err := d.FetchInsight(context.Background(), "grace")
				return err
			},
			intent:    prompt.IntentTheologicalInsight,
			maxTokens: 2778,
			contains:  []string{"C.S. Lewis", `Topic: "grace"`},
		},
		{
			name: "summary",
			call: func(d *prompt.Dispatcher) error {
				_, err := d.SummarizeChapter(context.Background(), text, "John 3")
				return err
			},
			intent:    prompt.IntentChapterSummary,
			maxTokens: 1000,
			contains:  []string{"biblical passage: John 3.", "\n\n" + text},
		},
		{
			name: "chapter commentary",
			call: func(d *prompt.Dispatcher) error {
				_, err := d.ChapterCommentary(context.Background(), text, "John 3", prompt.PerspectiveCatholic)
				return err
			},
			intent:    prompt.IntentCommentary,
			maxTokens: 2000,
			contains:  []string{"Catholic tradition", "Here is the full chapter of John 3 for context:\n\n" + text},
		},
		{
			name: "selection commentary",
			call: func(d *prompt.Dispatcher) error {
				_, err := d.SelectionCommentary(context.Background(), "God so loved", "John 3", prompt.PerspectiveHistorical)
				return err
			},
			intent:    prompt.IntentCommentary,
			maxTokens: 1500,
			contains:  []string{"Augustine", "Here is the selected text from John 3:\n\n\"God so loved\""},
		},
		{
			name: "chat",
			call: func(d *prompt.Dispatcher) error {
				_, err := d.NewChatSession("John 3", text).SendMessage(context.Background(), "Who is Nicodemus?")
				return err
			},
			intent:    prompt.IntentChat,
			maxTokens: 1500,
			contains:  []string{"currently studying John 3", text, "User question: Who is Nicodemus?"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			completer := &recordingCompleter{reply: "ok"}
			if err := tc.call(prompt.NewDispatcher(completer, nil)); err != nil {
				t.Fatalf("call failed: %v", err)
			}
			req := completer.last(t)
			if req.Type != tc.intent || req.MaxTokens != tc.maxTokens {
				t.Fatalf("expected %s/%d, got %s/%d", tc.intent, tc.maxTokens, req.Type, req.MaxTokens)
			}
			for _, want := range tc.contains {
				if !strings.Contains(req.Prompt, want) {
					t.Fatalf("prompt missing %q:\n%s", want, req.Prompt)
				}
			}
		})
	}
}

func TestPerspectiveInstructionLeadsPrompt(t *testing.T) {
	for _, p := range prompt.Perspectives() {
		body := prompt.ChapterCommentaryPrompt("text", "Ruth 1", p)
		if !strings.HasPrefix(body, p.Instruction()+"\n\n") {
			t.Fatalf("%s: expected instruction first, got %q", p, body)
		}
		if p.Label() == string(p) {
			t.Fatalf("%s: expected a display label", p)
		}
	}
}

func TestInsightCarriesSources(t *testing.T) {
	d := prompt.NewDispatcher(&recordingCompleter{reply: "Grace is unmerited favour."}, nil)
	insight, err := d.FetchInsight(context.Background(), "grace")
	if err != nil {
		t.Fatalf("FetchInsight: %v", err)
	}
	if insight.Text != "Grace is unmerited favour." {
		t.Fatalf("unexpected text %q", insight.Text)
	}
	if len(insight.Sources) != 2 || insight.Sources[0].URI != "https://www.esv.org/" || insight.Sources[1].Title != "Bible Gateway" {
		t.Fatalf("unexpected sources %+v", insight.Sources)
	}
}

func TestDispatcherFailureMessages(t *testing.T) {
	cause := services.Wrap(services.ErrQuota, "", "", "quota exceeded", nil)
	d := prompt.NewDispatcher(&recordingCompleter{err: cause}, nil)
	ctx := context.Background()

	checks := []struct {
		want string
		call func() error
	}{
		{"Theological Insight Error", func() error { _, err := d.FetchInsight(ctx, "hope"); return err }},
		{"Failed to summarize chapter", func() error { _, err := d.SummarizeChapter(ctx, "text", "John 3"); return err }},
		{"Failed to generate commentary", func() error {
			_, err := d.ChapterCommentary(ctx, "text", "John 3", prompt.PerspectiveEnduringWord)
			return err
		}},
		{"Failed to generate commentary", func() error {
			_, err := d.SelectionCommentary(ctx, "a longer excerpt", "John 3", prompt.PerspectiveEnduringWord)
			return err
		}},
		{"Failed to process chat message", func() error {
			_, err := d.NewChatSession("John 3", "text").SendMessage(ctx, "why?")
			return err
		}},
	}
	for _, check := range checks {
		err := check.call()
		if err == nil || !strings.HasPrefix(err.Error(), check.want) {
			t.Fatalf("expected %q prefix, got %v", check.want, err)
		}
		if !strings.Contains(err.Error(), "quota exceeded") {
			t.Fatalf("expected underlying message preserved, got %v", err)
		}
		if !errors.Is(err, services.ErrQuota) {
			t.Fatalf("expected cause to unwrap, got %v", err)
		}
		var dispatchErr *prompt.Error
		if !errors.As(err, &dispatchErr) {
			t.Fatalf("expected *prompt.Error, got %T", err)
		}
	}
}

func TestDispatcherRejectsInvalidInputWithoutSending(t *testing.T) {
	completer := &recordingCompleter{reply: "ok"}
	d := prompt.NewDispatcher(completer, nil)
	ctx := context.Background()

	if _, err := d.SelectionCommentary(ctx, "God", "John 3", prompt.PerspectiveCatholic); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected short selection rejected, got %v", err)
	}
	if _, err := d.ChapterCommentary(ctx, "text", "John 3", prompt.Perspective("baptist")); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected unknown perspective rejected, got %v", err)
	}
	if _, err := d.FetchInsight(ctx, "  "); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected empty topic rejected, got %v", err)
	}
	if len(completer.requests) != 0 {
		t.Fatalf("expected no requests, got %d", len(completer.requests))
	}
}

func TestChatSessionResendsContextEveryTurn(t *testing.T) {
	completer := &recordingCompleter{reply: "answer"}
	session := prompt.NewDispatcher(completer, nil).NewChatSession("Psalm 23", "The LORD is my shepherd")
	for _, question := range []string{"first", "second"} {
		if _, err := session.SendMessage(context.Background(), question); err != nil {
			t.Fatalf("SendMessage: %v", err)
		}
	}
	if len(completer.requests) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(completer.requests))
	}
	second := completer.requests[1].Prompt
	if !strings.Contains(second, "The LORD is my shepherd") || strings.Contains(second, "first") {
		t.Fatalf("expected stateless turn with full context, got %q", second)
	}
	if session.Reference() != "Psalm 23" {
		t.Fatalf("unexpected reference %q", session.Reference())
	}
}

func TestParseHelpers(t *testing.T) {
	if p, err := prompt.ParsePerspective("Enduring-Word"); err != nil || p != prompt.PerspectiveEnduringWord {
		t.Fatalf("ParsePerspective: %v %v", p, err)
	}
	if _, err := prompt.ParsePerspective("orthodox"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if i, err := prompt.ParseIntent("chat"); err != nil || i != prompt.IntentChat {
		t.Fatalf("ParseIntent: %v %v", i, err)
	}
	_, err := prompt.ParseIntent("bogus")
	if !errors.Is(err, services.ErrValidation) || !strings.Contains(err.Error(), "theological_insight, chapter_summary, commentary, chat") {
		t.Fatalf("expected intent list in error, got %v", err)
	}
}

func TestGatewayClientSummaryRoundTrip(t *testing.T) {
	var got prompt.Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/chat" {
			t.Fatalf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Fatalf("expected bearer token, got %q", r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "response": "A summary."})
	}))
	defer server.Close()

	d := prompt.NewDispatcher(prompt.NewGatewayClient(server.URL+"/", prompt.WithBearerToken("secret")), nil)
	summary, err := d.SummarizeChapter(context.Background(), "text", "John 3")
	if err != nil {
		t.Fatalf("SummarizeChapter: %v", err)
	}
	if summary != "A summary." {
		t.Fatalf("unexpected summary %q", summary)
	}
	if got.Type != prompt.IntentChapterSummary || got.MaxTokens != 1000 {
		t.Fatalf("unexpected request %+v", got)
	}
}

func TestGatewayClientFailureEnvelopes(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   []string
		marker error
	}{
		{"success false", http.StatusOK, `{"success":false,"error":"x"}`, []string{"Failed to summarize chapter", "x"}, services.ErrTransport},
		{"success false without message", http.StatusOK, `{"success":false}`, []string{"API request failed"}, services.ErrTransport},
		{"http status", http.StatusTooManyRequests, `{"success":false,"error":"quota"}`, []string{"HTTP error! status: 429"}, services.ErrQuota},
		{"forbidden", http.StatusForbidden, `{"success":false}`, []string{"HTTP error! status: 403"}, services.ErrUpstreamAuth},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer server.Close()

			d := prompt.NewDispatcher(prompt.NewGatewayClient(server.URL), nil)
			_, err := d.SummarizeChapter(context.Background(), "text", "John 3")
			if err == nil {
				t.Fatal("expected failure")
			}
			for _, want := range tc.want {
				if !strings.Contains(err.Error(), want) {
					t.Fatalf("expected %q in %v", want, err)
				}
			}
			if !errors.Is(err, tc.marker) {
				t.Fatalf("expected %v, got %v", tc.marker, err)
			}
		})
	}
}

func TestGatewayClientEmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"response":""}`))
	}))
	defer server.Close()

	reply, err := prompt.NewGatewayClient(server.URL).Complete(context.Background(), prompt.Request{Prompt: "p", Type: prompt.IntentChat, MaxTokens: 10})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if reply != prompt.NoResponse {
		t.Fatalf("expected %q, got %q", prompt.NoResponse, reply)
	}
}
