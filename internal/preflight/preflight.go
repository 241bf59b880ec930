package preflight

import (
	"context"

	"biblestudy/internal/config"
)

// Result holds the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// RunAll checks the local paths and dataset files. Network checks are opt-in
// via RunRemote because they cost a completion.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	results = append(results, CheckDirectoryAccess("Data directory", cfg.Paths.DataDir))
	results = append(results, CheckDirectoryAccess("Dataset directory", cfg.Paths.DatasetDir))
	if cfg.Paths.LogDir != "" {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	}
	results = append(results, CheckDatasets(cfg.Paths.DatasetDir))
	return results
}

// RunRemote checks the chapter service and, when configured, the completion
// backend.
func RunRemote(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	results := []Result{CheckBibleAPI(ctx, cfg.BibleAPI.BaseURL)}
	results = append(results, CheckBackendFromConfig(ctx, cfg))
	return results
}

// Failed returns the checks that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
