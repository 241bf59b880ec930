package azureopenai

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/azure"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"biblestudy/internal/logging"
	"biblestudy/internal/services"
	"biblestudy/internal/services/llm"
)

const (
	DefaultDeployment = "gpt-4o-mini"
	DefaultAPIVersion = "2025-01-01-preview"

	defaultTimeout    = 60 * time.Second
	defaultMaxRetries = 2
)

// Config holds the Azure OpenAI resource coordinates.
type Config struct {
	APIKey         string
	Endpoint       string
	Deployment     string
	APIVersion     string
	TimeoutSeconds int
	MaxRetries     int
}

type chatCompletions interface {
	New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// Client issues chat completions against an Azure OpenAI deployment.
type Client struct {
	completions chatCompletions
	deployment  string
	logger      *slog.Logger
}

// Option customizes the client.
type Option func(*options)

type options struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// WithHTTPClient overrides the HTTP client handed to the SDK.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// NewClient validates cfg and builds the SDK client. Missing credentials are
// a configuration error; nothing is defaulted except deployment and version.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if apiKey == "" || endpoint == "" {
		return nil, services.Wrap(services.ErrConfiguration, "azureopenai", "new client",
			"Azure OpenAI credentials are not set", nil)
	}
	deployment := strings.TrimSpace(cfg.Deployment)
	if deployment == "" {
		deployment = DefaultDeployment
	}
	apiVersion := strings.TrimSpace(cfg.APIVersion)
	if apiVersion == "" {
		apiVersion = DefaultAPIVersion
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.httpClient == nil {
		timeout := defaultTimeout
		if cfg.TimeoutSeconds > 0 {
			timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
		}
		o.httpClient = &http.Client{Timeout: timeout}
	}
	retries := cfg.MaxRetries
	if retries < 0 {
		retries = 0
	} else if retries == 0 {
		retries = defaultMaxRetries
	}

	client := openai.NewClient(
		azure.WithEndpoint(endpoint, apiVersion),
		azure.WithAPIKey(apiKey),
		option.WithHTTPClient(o.httpClient),
		option.WithMaxRetries(retries),
	)
	return &Client{
		completions: &client.Chat.Completions,
		deployment:  deployment,
		logger:      logging.NewComponentLogger(o.logger, "azureopenai"),
	}, nil
}

// Deployment reports the deployment used as the model name.
func (c *Client) Deployment() string {
	return c.deployment
}

// Complete sends req to the deployment and returns the first choice.
func (c *Client) Complete(ctx context.Context, req llm.Request) (llm.Completion, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return llm.Completion{}, services.Wrap(services.ErrValidation, "azureopenai", "complete", "prompt required", nil)
	}
	params := openai.ChatCompletionNewParams{
		Model:       shared.ChatModel(c.deployment),
		Messages:    buildMessages(req),
		Temperature: openai.Float(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.TopP > 0 {
		params.TopP = openai.Float(req.TopP)
	}

	completion, err := c.completions.New(ctx, params)
	if err != nil {
		return llm.Completion{}, convertError(err)
	}
	out := llm.Completion{
		Model: completion.Model,
		Usage: llm.Usage{
			PromptTokens:     int(completion.Usage.PromptTokens),
			CompletionTokens: int(completion.Usage.CompletionTokens),
			TotalTokens:      int(completion.Usage.TotalTokens),
		},
	}
	if len(completion.Choices) > 0 {
		choice := completion.Choices[0]
		out.Text = strings.TrimSpace(choice.Message.Content)
		out.FinishReason = string(choice.FinishReason)
	}
	c.logger.Debug("completion received",
		logging.String("deployment", c.deployment),
		logging.Int("total_tokens", out.Usage.TotalTokens),
		logging.String("finish_reason", out.FinishReason),
	)
	return out, nil
}

func buildMessages(req llm.Request) []openai.ChatCompletionMessageParamUnion {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if system := strings.TrimSpace(req.System); system != "" {
		messages = append(messages, openai.SystemMessage(system))
	}
	return append(messages, openai.UserMessage(req.Prompt))
}

// convertError maps SDK API errors onto llm.StatusError so the gateway can
// classify Azure and OpenAI-compatible failures the same way.
func convertError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		message := strings.TrimSpace(apiErr.Message)
		if message == "" {
			message = http.StatusText(apiErr.StatusCode)
		}
		return &llm.StatusError{
			StatusCode: apiErr.StatusCode,
			Code:       apiErr.Code,
			Type:       apiErr.Type,
			Message:    message,
		}
	}
	return services.Wrap(services.ErrTransport, "azureopenai", "complete", "request failed", err)
}
