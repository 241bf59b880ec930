package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLLM()
	c.normalizeBibleAPI()
	c.normalizeCache()
	c.normalizeServer()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.DatasetDir) == "" {
		c.Paths.DatasetDir = filepath.Join(c.Paths.DataDir, "datasets")
	}
	if c.Paths.DatasetDir, err = expandPath(c.Paths.DatasetDir); err != nil {
		return fmt.Errorf("paths.dataset_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StatePath) == "" {
		c.Paths.StatePath = filepath.Join(c.Paths.DataDir, defaultStateFile)
	}
	if c.Paths.StatePath, err = expandPath(c.Paths.StatePath); err != nil {
		return fmt.Errorf("paths.state_path: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeLLM() {
	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	if c.LLM.Provider == "" {
		c.LLM.Provider = ProviderAzure
	}

	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	if c.LLM.APIKey == "" {
		envKey := "AZURE_OPENAI_API_KEY"
		if c.LLM.Provider == ProviderOpenAI {
			envKey = "OPENAI_API_KEY"
		}
		if value, ok := os.LookupEnv(envKey); ok {
			c.LLM.APIKey = strings.TrimSpace(value)
		}
	}
	c.LLM.Endpoint = strings.TrimSpace(c.LLM.Endpoint)
	if c.LLM.Endpoint == "" {
		if value, ok := os.LookupEnv("AZURE_OPENAI_ENDPOINT"); ok {
			c.LLM.Endpoint = strings.TrimSpace(value)
		}
	}
	c.LLM.Deployment = strings.TrimSpace(c.LLM.Deployment)
	if value, ok := os.LookupEnv("DEPLOYMENT_NAME"); ok && strings.TrimSpace(value) != "" {
		c.LLM.Deployment = strings.TrimSpace(value)
	}
	if c.LLM.Deployment == "" {
		c.LLM.Deployment = defaultDeployment
	}
	c.LLM.APIVersion = strings.TrimSpace(c.LLM.APIVersion)
	if value, ok := os.LookupEnv("AZURE_OPENAI_API_VERSION"); ok && strings.TrimSpace(value) != "" {
		c.LLM.APIVersion = strings.TrimSpace(value)
	}
	if c.LLM.APIVersion == "" {
		c.LLM.APIVersion = defaultAPIVersion
	}

	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultOpenAIBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultOpenAIModel
	}
	c.LLM.Referer = strings.TrimSpace(c.LLM.Referer)
	if c.LLM.Referer == "" {
		c.LLM.Referer = defaultReferer
	}
	c.LLM.Title = strings.TrimSpace(c.LLM.Title)
	if c.LLM.Title == "" {
		c.LLM.Title = defaultTitle
	}
	if c.LLM.TopP <= 0 {
		c.LLM.TopP = defaultTopP
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeout
	}
}

func (c *Config) normalizeBibleAPI() {
	c.BibleAPI.BaseURL = strings.TrimRight(strings.TrimSpace(c.BibleAPI.BaseURL), "/")
	if c.BibleAPI.BaseURL == "" {
		c.BibleAPI.BaseURL = defaultBibleAPIURL
	}
	if c.BibleAPI.TimeoutSeconds <= 0 {
		c.BibleAPI.TimeoutSeconds = defaultBibleTimeout
	}
	c.BibleAPI.DatasetBaseURL = strings.TrimRight(strings.TrimSpace(c.BibleAPI.DatasetBaseURL), "/")
	if len(c.BibleAPI.DatasetURLs) > 0 {
		urls := make(map[string]string, len(c.BibleAPI.DatasetURLs))
		for tr, u := range c.BibleAPI.DatasetURLs {
			if u = strings.TrimSpace(u); u != "" {
				urls[strings.ToLower(strings.TrimSpace(tr))] = u
			}
		}
		c.BibleAPI.DatasetURLs = urls
	}
	if c.BibleAPI.DownloadRetries < 0 {
		c.BibleAPI.DownloadRetries = 0
	}
}

func (c *Config) normalizeCache() {
	if c.Cache.MemoryCapacity == 0 {
		c.Cache.MemoryCapacity = defaultCacheCapacity
	}
	if c.Cache.RetentionDays == 0 {
		c.Cache.RetentionDays = defaultCacheDays
	}
}

func (c *Config) normalizeServer() {
	c.Server.Bind = strings.TrimSpace(c.Server.Bind)
	if c.Server.Bind == "" {
		c.Server.Bind = defaultBind
	}
	c.Server.APIToken = strings.TrimSpace(c.Server.APIToken)
	if c.Server.APIToken == "" {
		if value, ok := os.LookupEnv("BIBLESTUDY_API_TOKEN"); ok {
			c.Server.APIToken = strings.TrimSpace(value)
		}
	}
	c.Server.GatewayURL = strings.TrimRight(strings.TrimSpace(c.Server.GatewayURL), "/")
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
