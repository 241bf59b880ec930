package prompt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"biblestudy/internal/services"
)

// Request is the body posted to the completion gateway.
type Request struct {
	Prompt    string `json:"prompt"`
	Type      Intent `json:"type"`
	MaxTokens int    `json:"maxTokens"`
}

// Completer executes a request and returns the model's reply text.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// NoResponse is the reply used when the gateway succeeds with empty text.
const NoResponse = "No response generated."

const (
	chatPath              = "/api/chat"
	defaultGatewayTimeout = 90 * time.Second
)

// GatewayClient posts requests to a running completion gateway.
type GatewayClient struct {
	endpoint   string
	token      string
	httpClient *http.Client
}

// GatewayOption customizes the client.
type GatewayOption func(*GatewayClient)

// WithGatewayHTTPClient overrides the HTTP client.
func WithGatewayHTTPClient(client *http.Client) GatewayOption {
	return func(c *GatewayClient) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBearerToken sends token in the Authorization header.
func WithBearerToken(token string) GatewayOption {
	return func(c *GatewayClient) {
		c.token = strings.TrimSpace(token)
	}
}

// NewGatewayClient targets baseURL (e.g. http://127.0.0.1:7480).
func NewGatewayClient(baseURL string, opts ...GatewayOption) *GatewayClient {
	c := &GatewayClient{
		endpoint:   strings.TrimRight(strings.TrimSpace(baseURL), "/") + chatPath,
		httpClient: &http.Client{Timeout: defaultGatewayTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type gatewayResponse struct {
	Success  bool   `json:"success"`
	Response string `json:"response"`
	Error    string `json:"error"`
	Details  string `json:"details"`
}

// Complete posts req and decodes the {success, response, error} envelope.
func (c *GatewayClient) Complete(ctx context.Context, req Request) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", services.Wrap(services.ErrConfiguration, "prompt", "gateway request", c.endpoint, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}
	if id, ok := services.RequestIDFromContext(ctx); ok {
		httpReq.Header.Set("X-Request-ID", id)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", services.Wrap(services.ErrTransport, "prompt", "gateway request", "", err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", services.Wrap(services.ErrTransport, "prompt", "read response", "", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		message := fmt.Sprintf("HTTP error! status: %d", resp.StatusCode)
		if detail := gjson.GetBytes(payload, "error").String(); detail != "" {
			message += " (" + detail + ")"
		}
		return "", services.Wrap(statusMarker(resp.StatusCode), "", "", message, nil)
	}

	var decoded gatewayResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return "", services.Wrap(services.ErrTransport, "prompt", "decode response", "", err)
	}
	if !decoded.Success {
		message := strings.TrimSpace(decoded.Error)
		if message == "" {
			message = "API request failed"
		}
		return "", services.Wrap(services.ErrTransport, "", "", message, nil)
	}
	if strings.TrimSpace(decoded.Response) == "" {
		return NoResponse, nil
	}
	return decoded.Response, nil
}

func statusMarker(status int) error {
	switch {
	case status == http.StatusBadRequest:
		return services.ErrValidation
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return services.ErrUpstreamAuth
	case status == http.StatusNotFound:
		return services.ErrNotFound
	case status == http.StatusTooManyRequests:
		return services.ErrQuota
	default:
		return services.ErrTransport
	}
}
