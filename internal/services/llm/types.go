package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"biblestudy/internal/services"
)

// Request is a single system + user chat completion.
type Request struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64
	TopP        float64
}

// Usage reports token accounting as returned by the provider.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Completion is the first choice of a chat completion.
type Completion struct {
	Text         string `json:"text"`
	FinishReason string `json:"finish_reason,omitempty"`
	Model        string `json:"model,omitempty"`
	Usage        Usage  `json:"usage"`
}

// Completer issues chat completions against a provider.
type Completer interface {
	Complete(ctx context.Context, req Request) (Completion, error)
}

// StatusError is a non-success provider response. It unwraps to the
// services marker matching the status so callers can use errors.Is.
type StatusError struct {
	StatusCode int
	Code       string
	Type       string
	Message    string
	Body       string
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	detail := strings.TrimSpace(e.Message)
	if detail == "" {
		detail = strings.TrimSpace(e.Body)
	}
	if e.Code != "" {
		return fmt.Sprintf("llm request: http %d (%s): %s", e.StatusCode, e.Code, detail)
	}
	return fmt.Sprintf("llm request: http %d: %s", e.StatusCode, detail)
}

// QuotaExhausted reports whether the provider flagged the account as out of
// quota, independent of the status code used to say so.
func (e *StatusError) QuotaExhausted() bool {
	return e.Code == "insufficient_quota" || e.Type == "insufficient_quota"
}

func (e *StatusError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusUnauthorized, e.StatusCode == http.StatusForbidden:
		return services.ErrUpstreamAuth
	case e.StatusCode == http.StatusNotFound:
		return services.ErrNotFound
	case e.QuotaExhausted(), e.StatusCode == http.StatusTooManyRequests:
		return services.ErrQuota
	default:
		return services.ErrTransport
	}
}

// AsStatusError extracts a StatusError from err.
func AsStatusError(err error) (*StatusError, bool) {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr, true
	}
	return nil, false
}
