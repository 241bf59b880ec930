package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains on-disk locations used by the service.
type Paths struct {
	DataDir    string `toml:"data_dir"`
	DatasetDir string `toml:"dataset_dir"`
	StatePath  string `toml:"state_path"`
	LogDir     string `toml:"log_dir"`
}

// LLM contains completion backend settings. Provider selects between the
// Azure OpenAI deployment and an OpenAI-compatible chat completions API.
type LLM struct {
	Provider       string  `toml:"provider"`
	APIKey         string  `toml:"api_key"`
	Endpoint       string  `toml:"endpoint"`
	Deployment     string  `toml:"deployment"`
	APIVersion     string  `toml:"api_version"`
	BaseURL        string  `toml:"base_url"`
	Model          string  `toml:"model"`
	Referer        string  `toml:"referer"`
	Title          string  `toml:"title"`
	TopP           float64 `toml:"top_p"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
}

// BibleAPI contains settings for the remote chapter text service and the
// offline dataset sources. DatasetURLs maps a translation to the full URL of
// its dataset file; DatasetBaseURL is a mirror serving <translation>.json.
type BibleAPI struct {
	BaseURL         string            `toml:"base_url"`
	TimeoutSeconds  int               `toml:"timeout_seconds"`
	DatasetBaseURL  string            `toml:"dataset_base_url"`
	DatasetURLs     map[string]string `toml:"dataset_urls"`
	DownloadRetries int               `toml:"download_retries"`
}

// Cache contains chapter cache tuning.
type Cache struct {
	MemoryCapacity int  `toml:"memory_capacity"`
	RetentionDays  int  `toml:"retention_days"`
	SingleFlight   bool `toml:"single_flight"`
}

// Server contains HTTP listener settings.
type Server struct {
	Bind       string `toml:"bind"`
	APIToken   string `toml:"api_token"`
	GatewayURL string `toml:"gateway_url"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for biblestudy.
//
// Configuration sections by subsystem:
//   - Paths: data, dataset, state database and log locations
//   - LLM: completion backend credentials and model selection
//   - BibleAPI: remote chapter service and dataset mirror
//   - Cache: chapter cache capacity, retention and de-duplication
//   - Server: HTTP bind address, bearer token and remote gateway URL
//   - Logging: log format, level, and retention
type Config struct {
	Paths    Paths    `toml:"paths"`
	LLM      LLM      `toml:"llm"`
	BibleAPI BibleAPI `toml:"bible_api"`
	Cache    Cache    `toml:"cache"`
	Server   Server   `toml:"server"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and environment fallbacks applied.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("biblestudy.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the data, dataset and log directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.DataDir, c.Paths.DatasetDir, c.Paths.LogDir}
	if dir := filepath.Dir(c.Paths.StatePath); c.Paths.StatePath != "" {
		dirs = append(dirs, dir)
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LockPath returns the single-instance lock file used by the server.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "biblestudy.lock")
}

// LogPath returns the server log file path.
func (c *Config) LogPath() string {
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return ""
	}
	return filepath.Join(c.Paths.LogDir, "biblestudy.log")
}

// LLMConfigured reports whether the completion backend has the credentials
// it needs for the selected provider.
func (c *Config) LLMConfigured() bool {
	if strings.TrimSpace(c.LLM.APIKey) == "" {
		return false
	}
	if c.LLM.Provider == ProviderAzure {
		return strings.TrimSpace(c.LLM.Endpoint) != ""
	}
	return strings.TrimSpace(c.LLM.BaseURL) != ""
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	expanded, err := homedir.Expand(pathValue)
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	cleaned := filepath.Clean(expanded)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the configuration as TOML with secrets redacted.
func (c *Config) Encode() (string, error) {
	clone := *c
	if clone.LLM.APIKey != "" {
		clone.LLM.APIKey = redacted
	}
	if clone.Server.APIToken != "" {
		clone.Server.APIToken = redacted
	}
	data, err := toml.Marshal(clone)
	if err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	return string(data), nil
}
