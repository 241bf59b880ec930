package preflight

import (
	"context"
	"strings"

	"biblestudy/internal/config"
)

// CheckBackendFromConfig evaluates completion backend status from config and
// connectivity.
func CheckBackendFromConfig(ctx context.Context, cfg *config.Config) Result {
	name := backendName(cfg)

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if strings.TrimSpace(cfg.LLM.APIKey) == "" {
		return Result{Name: name, Detail: "Missing API key"}
	}
	if cfg.LLM.Provider == config.ProviderAzure && strings.TrimSpace(cfg.LLM.Endpoint) == "" {
		return Result{Name: name, Detail: "Missing endpoint"}
	}
	return CheckLLM(ctx, name, cfg.LLM)
}

// CheckGatewayURLFromConfig reports whether the CLI talks to a remote
// gateway instead of the in-process one.
func CheckGatewayURLFromConfig(cfg *config.Config) Result {
	const name = "Gateway"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if url := strings.TrimSpace(cfg.Server.GatewayURL); url != "" {
		return Result{Name: name, Passed: true, Detail: "remote " + url}
	}
	return Result{Name: name, Passed: true, Detail: "in-process"}
}

func backendName(cfg *config.Config) string {
	if cfg != nil && cfg.LLM.Provider == config.ProviderOpenAI {
		return "OpenAI-compatible API"
	}
	return "Azure OpenAI"
}
