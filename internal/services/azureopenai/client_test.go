package azureopenai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"biblestudy/internal/logging"
	"biblestudy/internal/services"
	"biblestudy/internal/services/llm"
)

type fakeCompletions struct {
	params openai.ChatCompletionNewParams
	resp   *openai.ChatCompletion
	err    error
}

func (f *fakeCompletions) New(_ context.Context, params openai.ChatCompletionNewParams, _ ...option.RequestOption) (*openai.ChatCompletion, error) {
	f.params = params
	return f.resp, f.err
}

func newTestClient(fake *fakeCompletions) *Client {
	return &Client{completions: fake, deployment: "gpt-4o-mini", logger: logging.NewNop()}
}

func TestNewClientRequiresCredentials(t *testing.T) {
	for _, cfg := range []Config{
		{Endpoint: "https://example.openai.azure.com"},
		{APIKey: "key"},
	} {
		if _, err := NewClient(cfg); !errors.Is(err, services.ErrConfiguration) {
			t.Fatalf("expected configuration error for %+v, got %v", cfg, err)
		}
	}
}

func TestNewClientDefaultsDeployment(t *testing.T) {
	client, err := NewClient(Config{APIKey: "key", Endpoint: "https://example.openai.azure.com"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if client.Deployment() != DefaultDeployment {
		t.Fatalf("expected default deployment, got %q", client.Deployment())
	}
}

func TestCompleteBuildsParams(t *testing.T) {
	fake := &fakeCompletions{resp: &openai.ChatCompletion{
		Model: "gpt-4o-mini",
		Choices: []openai.ChatCompletionChoice{{
			Message:      openai.ChatCompletionMessage{Content: " Grace abounds. "},
			FinishReason: "stop",
		}},
		Usage: openai.CompletionUsage{PromptTokens: 40, CompletionTokens: 10, TotalTokens: 50},
	}}
	client := newTestClient(fake)

	completion, err := client.Complete(context.Background(), llm.Request{
		System:      "You are a Bible scholar.",
		Prompt:      "Summarize Romans 5",
		MaxTokens:   1000,
		Temperature: 0.3,
		TopP:        0.95,
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if completion.Text != "Grace abounds." || completion.FinishReason != "stop" {
		t.Fatalf("unexpected completion %+v", completion)
	}
	if completion.Usage.TotalTokens != 50 || completion.Usage.PromptTokens != 40 {
		t.Fatalf("unexpected usage %+v", completion.Usage)
	}
	if string(fake.params.Model) != "gpt-4o-mini" {
		t.Fatalf("expected deployment as model, got %q", fake.params.Model)
	}
	if len(fake.params.Messages) != 2 {
		t.Fatalf("expected system and user messages, got %d", len(fake.params.Messages))
	}
	if fake.params.MaxTokens.Value != 1000 || fake.params.Temperature.Value != 0.3 || fake.params.TopP.Value != 0.95 {
		t.Fatalf("unexpected sampling params max=%v temp=%v top_p=%v",
			fake.params.MaxTokens.Value, fake.params.Temperature.Value, fake.params.TopP.Value)
	}
}

func TestCompleteMapsAPIErrors(t *testing.T) {
	tests := []struct {
		name   string
		apiErr *openai.Error
		marker error
	}{
		{"unauthorized", &openai.Error{StatusCode: http.StatusUnauthorized, Message: "invalid key"}, services.ErrUpstreamAuth},
		{"forbidden", &openai.Error{StatusCode: http.StatusForbidden, Message: "denied"}, services.ErrUpstreamAuth},
		{"not found", &openai.Error{StatusCode: http.StatusNotFound, Code: "DeploymentNotFound"}, services.ErrNotFound},
		{"quota", &openai.Error{StatusCode: http.StatusTooManyRequests, Code: "insufficient_quota", Message: "quota"}, services.ErrQuota},
		{"server", &openai.Error{StatusCode: http.StatusInternalServerError, Message: "boom"}, services.ErrTransport},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(&fakeCompletions{err: tc.apiErr})
			_, err := client.Complete(context.Background(), llm.Request{Prompt: "hello"})
			if !errors.Is(err, tc.marker) {
				t.Fatalf("expected %v, got %v", tc.marker, err)
			}
			statusErr, ok := llm.AsStatusError(err)
			if !ok || statusErr.StatusCode != tc.apiErr.StatusCode || statusErr.Code != tc.apiErr.Code {
				t.Fatalf("unexpected status error %+v", statusErr)
			}
			if statusErr.Message == "" {
				t.Fatal("expected message to be populated")
			}
		})
	}
}

func TestCompleteWrapsTransportFailures(t *testing.T) {
	client := newTestClient(&fakeCompletions{err: errors.New("dial tcp: connection refused")})
	_, err := client.Complete(context.Background(), llm.Request{Prompt: "hello"})
	if !errors.Is(err, services.ErrTransport) || !strings.Contains(err.Error(), "connection refused") {
		t.Fatalf("expected wrapped transport error, got %v", err)
	}
}

func TestCompleteTargetsDeploymentPath(t *testing.T) {
	var gotPath, gotVersion, gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotVersion = r.URL.Query().Get("api-version")
		gotKey = r.Header.Get("Api-Key")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   "gpt-4o-mini",
			"choices": []any{map[string]any{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": "Amen"},
			}},
			"usage": map[string]any{"prompt_tokens": 3, "completion_tokens": 1, "total_tokens": 4},
		})
	}))
	defer server.Close()

	client, err := NewClient(Config{
		APIKey:     "secret",
		Endpoint:   server.URL,
		Deployment: "demo",
		MaxRetries: -1,
	}, WithHTTPClient(server.Client()))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	completion, err := client.Complete(context.Background(), llm.Request{Prompt: "hello", Temperature: 0.7})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if completion.Text != "Amen" {
		t.Fatalf("unexpected text %q", completion.Text)
	}
	if !strings.Contains(gotPath, "/deployments/demo/chat/completions") {
		t.Fatalf("unexpected request path %q", gotPath)
	}
	if gotVersion != DefaultAPIVersion {
		t.Fatalf("expected api-version %q, got %q", DefaultAPIVersion, gotVersion)
	}
	if gotKey != "secret" {
		t.Fatalf("expected api-key header, got %q", gotKey)
	}
}
