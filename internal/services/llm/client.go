package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/tidwall/gjson"

	"biblestudy/internal/logging"
	"biblestudy/internal/services"
)

const (
	DefaultBaseURL = "https://openrouter.ai/api/v1/chat/completions"

	defaultHTTPTimeout    = 60 * time.Second
	defaultRetryMaxDelay  = 10 * time.Second
	defaultRetryBaseDelay = 1 * time.Second
	defaultRetryAttempts  = 3
)

// Config captures the runtime settings required to talk to an
// OpenAI-compatible chat completion endpoint.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	Referer        string
	Title          string
	TimeoutSeconds int
}

// Client wraps an OpenAI-compatible chat completion API (OpenRouter, OpenAI).
type Client struct {
	cfg        Config
	httpClient *http.Client
	retry      *retryablehttp.Client
	logger     *slog.Logger

	retryMaxAttempts int
	retryBaseDelay   time.Duration
	retryMaxDelay    time.Duration
	sleeper          func(time.Duration)
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetryMaxAttempts overrides the default attempt count (defaults to 3).
func WithRetryMaxAttempts(attempts int) Option {
	return func(c *Client) {
		c.retryMaxAttempts = attempts
	}
}

// WithRetryBackoff overrides the retry backoff delays.
func WithRetryBackoff(baseDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.retryBaseDelay = baseDelay
		c.retryMaxDelay = maxDelay
	}
}

// WithSleeper takes over the waits between attempts. Tests use it to record
// delays without sleeping.
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// WithLogger attaches a logger for retry diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logging.NewComponentLogger(logger, "llm")
	}
}

// NewClient constructs an LLM client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			APIKey:         strings.TrimSpace(cfg.APIKey),
			BaseURL:        strings.TrimSpace(cfg.BaseURL),
			Model:          strings.TrimSpace(cfg.Model),
			Referer:        strings.TrimSpace(cfg.Referer),
			Title:          strings.TrimSpace(cfg.Title),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient:       &http.Client{Timeout: timeout},
		logger:           logging.NewComponentLogger(nil, "llm"),
		retryMaxAttempts: defaultRetryAttempts,
		retryBaseDelay:   defaultRetryBaseDelay,
		retryMaxDelay:    defaultRetryMaxDelay,
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = DefaultBaseURL
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	client.retry = client.newRetryClient()
	return client
}

// newRetryClient wraps httpClient with the retry policy. Retry-After wins over
// the exponential schedule; exhausted quota is never retried.
func (c *Client) newRetryClient() *retryablehttp.Client {
	rc := retryablehttp.NewClient()
	rc.HTTPClient = c.httpClient
	rc.Logger = c.logger
	rc.RetryMax = c.retryAttempts() - 1
	rc.RetryWaitMin = c.retryBaseDelay
	rc.RetryWaitMax = c.retryMaxDelay
	rc.CheckRetry = c.checkRetry
	rc.Backoff = c.backoff
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	return rc
}

// Model reports the configured model identifier.
func (c *Client) Model() string {
	return c.cfg.Model
}

// Complete issues a chat completion for req. An empty model reply is not an
// error; callers decide how to present it.
func (c *Client) Complete(ctx context.Context, req Request) (Completion, error) {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return Completion{}, services.Wrap(services.ErrConfiguration, "llm", "complete", "api key required", nil)
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return Completion{}, services.Wrap(services.ErrValidation, "llm", "complete", "prompt required", nil)
	}
	payload := chatCompletionRequest{
		Model:       c.cfg.Model,
		Messages:    buildMessages(req),
		Temperature: req.Temperature,
	}
	if req.MaxTokens > 0 {
		payload.MaxTokens = req.MaxTokens
	}
	if req.TopP > 0 {
		topP := req.TopP
		payload.TopP = &topP
	}
	return c.completeWithRetry(ctx, payload, "llm complete")
}

// HealthCheck issues a tiny completion to verify the API key and model.
func (c *Client) HealthCheck(ctx context.Context) error {
	completion, err := c.Complete(ctx, Request{
		System:    "Reply with the single word OK.",
		Prompt:    "ping",
		MaxTokens: 5,
	})
	if err != nil {
		return err
	}
	if strings.TrimSpace(completion.Text) == "" {
		return services.Wrap(services.ErrTransport, "llm", "health", "empty reply", nil)
	}
	return nil
}

func buildMessages(req Request) []chatMessage {
	messages := make([]chatMessage, 0, 2)
	if system := strings.TrimSpace(req.System); system != "" {
		messages = append(messages, chatMessage{Role: "system", Content: system})
	}
	return append(messages, chatMessage{Role: "user", Content: req.Prompt})
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
	TopP        *float64      `json:"top_p,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message chatCompletionMessage `json:"message"`
		// Some providers return the streaming schema (delta) even when
		// stream=false.
		Delta        chatCompletionMessage `json:"delta"`
		Text         string                `json:"text"`
		FinishReason string                `json:"finish_reason"`
	} `json:"choices"`
	Usage Usage `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Code    any    `json:"code"`
	} `json:"error"`
}

type chatCompletionMessage struct {
	Content string `json:"content"`
	Refusal string `json:"refusal"`
}

func (c *Client) completeWithRetry(ctx context.Context, payload chatCompletionRequest, op string) (Completion, error) {
	completion, err := c.sendChatRequest(ctx, payload)
	if err != nil && c.retryAttempts() > 1 {
		if _, ok := AsStatusError(err); ok && retryableStatus(err) {
			return Completion{}, fmt.Errorf("%s: failed after %d attempts: %w", op, c.retryAttempts(), err)
		}
	}
	return completion, err
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func (c *Client) sendChatRequest(ctx context.Context, payload chatCompletionRequest) (Completion, error) {
	endpoint, err := url.JoinPath(c.cfg.BaseURL, "")
	if err != nil {
		return Completion{}, services.Wrap(services.ErrConfiguration, "llm", "build url", c.cfg.BaseURL, err)
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return Completion{}, fmt.Errorf("llm request: encode body: %w", err)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return Completion{}, fmt.Errorf("llm request: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.Referer != "" {
		req.Header.Set("HTTP-Referer", c.cfg.Referer)
		req.Header.Set("Referer", c.cfg.Referer)
	}
	if c.cfg.Title != "" {
		req.Header.Set("X-Title", c.cfg.Title)
	}
	resp, err := c.retry.Do(req)
	if err != nil {
		return Completion{}, services.Wrap(services.ErrTransport, "llm", "request",
			fmt.Sprintf("http error (timeout=%s)", c.timeoutDuration()), err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Completion{}, services.Wrap(services.ErrTransport, "llm", "read body",
			fmt.Sprintf("timeout=%s", c.timeoutDuration()), err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return Completion{}, newStatusError(resp, body)
	}
	var decoded chatCompletionResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return Completion{}, services.Wrap(services.ErrTransport, "llm", "decode response", summarizePayloadSnippet(string(body)), err)
	}
	if decoded.Error != nil {
		return Completion{}, &StatusError{
			StatusCode: resp.StatusCode,
			Code:       gjson.GetBytes(body, "error.code").String(),
			Message:    strings.TrimSpace(decoded.Error.Message),
			Body:       strings.TrimSpace(string(body)),
		}
	}
	completion := Completion{Model: decoded.Model, Usage: decoded.Usage}
	for _, choice := range decoded.Choices {
		if completion.FinishReason == "" {
			completion.FinishReason = strings.TrimSpace(choice.FinishReason)
		}
		if content := firstNonEmpty(choice.Message.Content, choice.Delta.Content, choice.Text); content != "" {
			completion.Text = content
			break
		}
	}
	return completion, nil
}

// newStatusError parses the provider error body. OpenAI-style bodies nest the
// detail under "error"; some proxies return a bare string.
func newStatusError(resp *http.Response, body []byte) *StatusError {
	retryAfter, _ := parseRetryAfter(resp.Header.Get("Retry-After"))
	statusErr := &StatusError{
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(body)),
		RetryAfter: retryAfter,
	}
	if !gjson.ValidBytes(body) {
		return statusErr
	}
	errField := gjson.GetBytes(body, "error")
	switch {
	case errField.IsObject():
		statusErr.Code = errField.Get("code").String()
		statusErr.Type = errField.Get("type").String()
		statusErr.Message = errField.Get("message").String()
	case errField.Type == gjson.String:
		statusErr.Message = errField.String()
	}
	if statusErr.Message == "" {
		statusErr.Message = gjson.GetBytes(body, "message").String()
	}
	return statusErr
}

func (c *Client) timeoutDuration() time.Duration {
	if c == nil || c.httpClient == nil {
		return defaultHTTPTimeout
	}
	if c.httpClient.Timeout <= 0 {
		return defaultHTTPTimeout
	}
	return c.httpClient.Timeout
}

func (c *Client) retryAttempts() int {
	if c == nil {
		return 1
	}
	if c.retryMaxAttempts <= 0 {
		return 1
	}
	return c.retryMaxAttempts
}

// checkRetry retries timeouts, rate limits and server errors. Quota
// exhaustion and client errors return immediately.
func (c *Client) checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded), nil
	}
	if resp.StatusCode != http.StatusRequestTimeout &&
		resp.StatusCode != http.StatusTooManyRequests &&
		resp.StatusCode < http.StatusInternalServerError {
		return false, nil
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		resp.Body = io.NopCloser(bytes.NewReader(body))
		if readErr == nil && newStatusError(resp, body).QuotaExhausted() {
			return false, nil
		}
	}
	return true, nil
}

func retryableStatus(err error) bool {
	statusErr, ok := AsStatusError(err)
	if !ok || statusErr.QuotaExhausted() {
		return false
	}
	code := statusErr.StatusCode
	return code == http.StatusRequestTimeout || code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

// backoff doubles from the base delay per attempt, capped at the max delay.
// A sleeper, when set, performs the wait itself.
func (c *Client) backoff(minDelay, maxDelay time.Duration, attempt int, resp *http.Response) time.Duration {
	delay := time.Duration(0)
	if resp != nil {
		if after, ok := parseRetryAfter(resp.Header.Get("Retry-After")); ok {
			delay = after
		}
	}
	if delay == 0 && minDelay > 0 {
		delay = minDelay
		for i := 0; i < attempt && (maxDelay <= 0 || delay < maxDelay); i++ {
			delay *= 2
		}
	}
	if maxDelay > 0 && delay > maxDelay {
		delay = maxDelay
	}
	c.logger.Debug("retrying chat completion", logging.Int("attempt", attempt+1), logging.Duration("delay", delay))
	if c.sleeper != nil {
		c.sleeper(delay)
		return 0
	}
	return delay
}

func parseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if when, err := http.ParseTime(value); err == nil {
		delay := time.Until(when)
		if delay < 0 {
			return 0, false
		}
		return delay, true
	}
	return 0, false
}

func summarizePayloadSnippet(content string) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "<empty>"
	}
	clean := strings.Join(strings.Fields(trimmed), " ")
	const limit = 160
	runes := []rune(clean)
	if len(runes) > limit {
		clean = string(runes[:limit]) + "..."
	}
	return clean
}
