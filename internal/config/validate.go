package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateBibleAPI(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	if strings.TrimSpace(c.Paths.StatePath) == "" {
		return errors.New("paths.state_path must be set")
	}
	return nil
}

func (c *Config) validateLLM() error {
	switch c.LLM.Provider {
	case ProviderAzure, ProviderOpenAI:
	default:
		return fmt.Errorf("llm.provider: unsupported value %q (want %q or %q)", c.LLM.Provider, ProviderAzure, ProviderOpenAI)
	}
	if c.LLM.TopP > 1 {
		return fmt.Errorf("llm.top_p must be between 0 and 1, got %v", c.LLM.TopP)
	}
	if c.LLM.Endpoint != "" {
		if err := validateURL("llm.endpoint", c.LLM.Endpoint); err != nil {
			return err
		}
	}
	return validateURL("llm.base_url", c.LLM.BaseURL)
}

func (c *Config) validateBibleAPI() error {
	if err := validateURL("bible_api.base_url", c.BibleAPI.BaseURL); err != nil {
		return err
	}
	if c.BibleAPI.DatasetBaseURL != "" {
		if err := validateURL("bible_api.dataset_base_url", c.BibleAPI.DatasetBaseURL); err != nil {
			return err
		}
	}
	for tr, u := range c.BibleAPI.DatasetURLs {
		if err := validateURL("bible_api.dataset_urls."+tr, u); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateCache() error {
	if c.Cache.MemoryCapacity < 1 {
		return fmt.Errorf("cache.memory_capacity must be positive, got %d", c.Cache.MemoryCapacity)
	}
	if c.Cache.RetentionDays < 1 {
		return fmt.Errorf("cache.retention_days must be positive, got %d", c.Cache.RetentionDays)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

// ValidateLLM reports a configuration error when the completion backend is
// missing credentials. Commands that call the backend directly use it
// before constructing a client.
func (c *Config) ValidateLLM() error {
	if strings.TrimSpace(c.LLM.APIKey) == "" {
		return errors.New("llm.api_key must be set (or AZURE_OPENAI_API_KEY / OPENAI_API_KEY)")
	}
	if c.LLM.Provider == ProviderAzure && strings.TrimSpace(c.LLM.Endpoint) == "" {
		return errors.New("llm.endpoint must be set (or AZURE_OPENAI_ENDPOINT)")
	}
	return nil
}

func validateURL(field, value string) error {
	parsed, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s: expected http(s) URL, got %q", field, value)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s: missing host in %q", field, value)
	}
	return nil
}
