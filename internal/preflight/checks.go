package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"biblestudy/internal/config"
	"biblestudy/internal/gateway"
	"biblestudy/internal/offline"
	"biblestudy/internal/services"
	"biblestudy/internal/services/bibleapi"
	"biblestudy/internal/services/llm"
)

const (
	llmCheckTimeout    = 30 * time.Second
	remoteCheckTimeout = 5 * time.Second
)

type healthChecker interface {
	HealthCheck(ctx context.Context) error
}

// CheckLLM verifies that the completion backend is reachable and the
// credentials are accepted. It uses a 30-second timeout and a single attempt.
func CheckLLM(ctx context.Context, name string, cfg config.LLM) Result {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return Result{Name: name, Detail: "API key missing"}
	}
	if strings.EqualFold(cfg.Provider, config.ProviderAzure) && strings.TrimSpace(cfg.Endpoint) == "" {
		return Result{Name: name, Detail: "endpoint missing"}
	}

	client, err := gateway.NewUpstream(cfg, nil, gateway.WithSingleAttempt())
	if err != nil {
		return Result{Name: name, Detail: summarizeLLMError(err)}
	}
	return checkCompleter(ctx, name, client)
}

func checkCompleter(ctx context.Context, name string, client llm.Completer) Result {
	checkCtx, cancel := context.WithTimeout(ctx, llmCheckTimeout)
	defer cancel()

	if hc, ok := client.(healthChecker); ok {
		if err := hc.HealthCheck(checkCtx); err != nil {
			return Result{Name: name, Detail: summarizeLLMError(err)}
		}
		return Result{Name: name, Passed: true, Detail: "API reachable"}
	}
	if _, err := client.Complete(checkCtx, llm.Request{
		System:    "Reply with the single word OK.",
		Prompt:    "ping",
		MaxTokens: 5,
	}); err != nil {
		return Result{Name: name, Detail: summarizeLLMError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "API reachable"}
}

// CheckBibleAPI fetches John 1 to confirm the remote chapter service answers.
func CheckBibleAPI(ctx context.Context, baseURL string) Result {
	const name = "Bible API"

	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return Result{Name: name, Detail: "missing url"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, remoteCheckTimeout)
	defer cancel()

	client := bibleapi.NewClient(base, remoteCheckTimeout)
	chapter, err := client.FetchChapter(checkCtx, "John", 1, "web")
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Result{Name: name, Detail: "reachability check timed out"}
		}
		return Result{Name: name, Detail: fmt.Sprintf("reachability check failed (%v)", err)}
	}
	if len(chapter.Verses) == 0 {
		return Result{Name: name, Detail: "reachable but returned no verses"}
	}
	return Result{Name: name, Passed: true, Detail: "Reachable"}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckDatasets reports which offline translation files are present in dir.
// Missing files are not fatal to the service, so the detail names them for
// `biblestudy dataset fetch`.
func CheckDatasets(dir string) Result {
	const name = "Offline datasets"

	var present, missing []string
	for _, translation := range offline.AvailableTranslations() {
		path := filepath.Join(dir, offline.FileName(translation))
		info, err := os.Stat(path)
		if err != nil || info.IsDir() || info.Size() == 0 {
			missing = append(missing, translation)
			continue
		}
		if err := unix.Access(path, unix.R_OK); err != nil {
			missing = append(missing, translation)
			continue
		}
		present = append(present, translation)
	}
	if len(missing) > 0 {
		return Result{Name: name, Detail: fmt.Sprintf("missing %s in %s", strings.Join(missing, ", "), dir)}
	}
	return Result{Name: name, Passed: true, Detail: strings.Join(present, ", ")}
}

// summarizeLLMError produces a human-readable summary for LLM health check failures.
func summarizeLLMError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (LLM API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (LLM API unreachable)"
	}
	switch {
	case errors.Is(err, services.ErrUpstreamAuth):
		return "credentials rejected by the completion backend"
	case errors.Is(err, services.ErrQuota):
		return "quota exhausted or rate limited"
	case errors.Is(err, services.ErrNotFound):
		return "model or deployment not found"
	}
	return err.Error()
}
