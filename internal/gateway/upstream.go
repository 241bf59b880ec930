package gateway

import (
	"log/slog"
	"strings"

	"biblestudy/internal/config"
	"biblestudy/internal/logging"
	"biblestudy/internal/services/azureopenai"
	"biblestudy/internal/services/llm"
)

// UpstreamOption adjusts how NewUpstream builds the backend client.
type UpstreamOption func(*upstreamOptions)

type upstreamOptions struct {
	singleAttempt bool
}

// WithSingleAttempt disables client retries. Readiness checks use it so a
// dead backend fails fast.
func WithSingleAttempt() UpstreamOption {
	return func(o *upstreamOptions) {
		o.singleAttempt = true
	}
}

// ConfigFrom maps the llm section to the gateway's credential view.
func ConfigFrom(cfg config.LLM) Config {
	return Config{
		Provider:   cfg.Provider,
		APIKey:     cfg.APIKey,
		Endpoint:   cfg.Endpoint,
		Deployment: cfg.Deployment,
		TopP:       cfg.TopP,
	}
}

// NewUpstream builds the completion client for the configured provider.
// Missing credentials surface as a configuration error.
func NewUpstream(cfg config.LLM, logger *slog.Logger, opts ...UpstreamOption) (llm.Completer, error) {
	o := upstreamOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if strings.EqualFold(cfg.Provider, config.ProviderOpenAI) {
		clientOpts := []llm.Option{llm.WithLogger(logger)}
		if o.singleAttempt {
			clientOpts = append(clientOpts, llm.WithRetryMaxAttempts(1))
		}
		return llm.NewClient(llm.Config{
			APIKey:         cfg.APIKey,
			BaseURL:        cfg.BaseURL,
			Model:          cfg.Model,
			Referer:        cfg.Referer,
			Title:          cfg.Title,
			TimeoutSeconds: cfg.TimeoutSeconds,
		}, clientOpts...), nil
	}
	retries := 0
	if o.singleAttempt {
		retries = -1
	}
	return azureopenai.NewClient(azureopenai.Config{
		APIKey:         cfg.APIKey,
		Endpoint:       cfg.Endpoint,
		Deployment:     cfg.Deployment,
		APIVersion:     cfg.APIVersion,
		TimeoutSeconds: cfg.TimeoutSeconds,
		MaxRetries:     retries,
	}, azureopenai.WithLogger(logger))
}

// buildUpstream is a package-level variable so tests can override it.
var buildUpstream = NewUpstream

// NewFromConfig wires a gateway to the configured backend. When credentials
// are missing, or the client cannot be built, the gateway is still returned
// and reports configuration failures per request.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) *Gateway {
	gcfg := ConfigFrom(cfg.LLM)
	var upstream llm.Completer
	if gcfg.Configured() {
		client, err := buildUpstream(cfg.LLM, logger)
		if err != nil {
			logging.ErrorWithContext(logging.NewComponentLogger(logger, "gateway"),
				"completion backend client could not be built", "gateway_upstream_failed",
				logging.String("provider", gcfg.Provider),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the llm section of the config"),
			)
		} else {
			upstream = client
		}
	}
	return New(gcfg, upstream, logger)
}
