package testsupport

import (
	"path/filepath"
	"testing"

	"biblestudy/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.DatasetDir = filepath.Join(base, "data", "datasets")
	cfgVal.Paths.StatePath = filepath.Join(base, "data", "state.db")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Server.Bind = "127.0.0.1:0"
	cfgVal.LLM.APIKey = "test-key"
	cfgVal.LLM.Endpoint = "https://example.openai.azure.com"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithoutLLMCredentials clears the completion backend key and endpoint.
func WithoutLLMCredentials() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.LLM.APIKey = ""
		b.cfg.LLM.Endpoint = ""
	}
}

// WithAPIToken sets the server bearer token.
func WithAPIToken(token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Server.APIToken = token
	}
}

// WithBibleAPI points the remote chapter tier at baseURL.
func WithBibleAPI(baseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.BibleAPI.BaseURL = baseURL
	}
}

// WithDatasets writes the fixture datasets into the configured dataset
// directory.
func WithDatasets(translations ...string) ConfigOption {
	return func(b *configBuilder) {
		WriteDatasets(b.t, b.cfg.Paths.DatasetDir, translations...)
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.LogDir)
}
