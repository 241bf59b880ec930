package gateway

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"biblestudy/internal/logging"
	"biblestudy/internal/prompt"
	"biblestudy/internal/services"
	"biblestudy/internal/services/llm"
)

const (
	DefaultMaxTokens = 2000
	DefaultTopP      = 0.95
)

// Config describes the configured completion backend. Credentials are only
// checked for presence; the upstream client owns them.
type Config struct {
	Provider   string
	APIKey     string
	Endpoint   string
	Deployment string
	TopP       float64
}

// RequiresEndpoint reports whether the provider needs an explicit endpoint.
func (c Config) RequiresEndpoint() bool {
	return c.Provider == "" || strings.EqualFold(c.Provider, "azure")
}

// Configured reports whether the credentials needed to call upstream exist.
func (c Config) Configured() bool {
	if strings.TrimSpace(c.APIKey) == "" {
		return false
	}
	return !c.RequiresEndpoint() || strings.TrimSpace(c.Endpoint) != ""
}

// Result is a successful completion.
type Result struct {
	Text  string    `json:"response"`
	Usage llm.Usage `json:"usage"`
}

// Gateway selects a role per intent and forwards to the upstream model.
type Gateway struct {
	cfg      Config
	upstream llm.Completer
	logger   *slog.Logger
	now      func() time.Time
}

// New constructs a gateway. upstream may be nil when credentials are
// missing; every request then fails with a configuration error.
func New(cfg Config, upstream llm.Completer, logger *slog.Logger) *Gateway {
	if cfg.TopP <= 0 {
		cfg.TopP = DefaultTopP
	}
	return &Gateway{
		cfg:      cfg,
		upstream: upstream,
		logger:   logging.NewComponentLogger(logger, "gateway"),
		now:      time.Now,
	}
}

// Execute validates req and runs it upstream. Failures are *Failure values
// with the HTTP status to report.
func (g *Gateway) Execute(ctx context.Context, req prompt.Request) (Result, error) {
	logger := logging.WithContext(services.WithIntent(ctx, string(req.Type)), g.logger)
	if !g.cfg.Configured() || g.upstream == nil {
		logging.ErrorWithContext(logger, "completion backend credentials are missing", "gateway_unconfigured",
			logging.Bool("has_api_key", strings.TrimSpace(g.cfg.APIKey) != ""),
			logging.Bool("has_endpoint", strings.TrimSpace(g.cfg.Endpoint) != ""),
			logging.String(logging.FieldErrorHint, "set llm.api_key and llm.endpoint or AZURE_OPENAI_API_KEY and AZURE_OPENAI_ENDPOINT"),
		)
		return Result{}, newFailure(http.StatusInternalServerError, MsgConfiguration, services.ErrConfiguration)
	}
	if strings.TrimSpace(req.Prompt) == "" || strings.TrimSpace(string(req.Type)) == "" {
		return Result{}, newFailure(http.StatusBadRequest, MsgMissingFields, services.ErrValidation)
	}
	role, ok := RoleFor(req.Type)
	if !ok {
		return Result{}, newFailure(http.StatusBadRequest, InvalidTypeMessage(), services.ErrValidation)
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	logger.Info("forwarding completion request",
		logging.String("type", string(req.Type)),
		logging.Any("temperature", role.Temperature),
		logging.Int("max_tokens", maxTokens),
	)
	started := g.now()
	completion, err := g.upstream.Complete(ctx, llm.Request{
		System:      role.System,
		Prompt:      req.Prompt,
		MaxTokens:   maxTokens,
		Temperature: role.Temperature,
		TopP:        g.cfg.TopP,
	})
	if err != nil {
		failure := classify(err)
		logging.ErrorWithContext(logger, "upstream completion failed", "upstream_failed",
			logging.Int("status", failure.Status),
			logging.Int("upstream_status", failure.UpstreamStatus),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, failure.Message),
		)
		return Result{}, failure
	}
	text := completion.Text
	if strings.TrimSpace(text) == "" {
		text = prompt.NoResponse
	}
	logger.Info("completion returned",
		logging.Duration("elapsed", g.now().Sub(started)),
		logging.Int("total_tokens", completion.Usage.TotalTokens),
	)
	return Result{Text: text, Usage: completion.Usage}, nil
}

// Local runs the gateway in-process as a prompt.Completer, for the CLI.
type Local struct {
	Gateway *Gateway
}

// NewLocal wraps g.
func NewLocal(g *Gateway) *Local {
	return &Local{Gateway: g}
}

// Complete implements prompt.Completer.
func (l *Local) Complete(ctx context.Context, req prompt.Request) (string, error) {
	result, err := l.Gateway.Execute(ctx, req)
	if err != nil {
		return "", err
	}
	return result.Text, nil
}
