package config

const (
	ProviderAzure  = "azure"
	ProviderOpenAI = "openai"

	defaultConfigPath    = "~/.config/biblestudy/config.toml"
	defaultDataDir       = "~/.local/share/biblestudy"
	defaultDatasetDir    = "~/.local/share/biblestudy/datasets"
	defaultStateFile     = "state.db"
	defaultLogDir        = "~/.local/share/biblestudy/logs"
	defaultDeployment    = "gpt-4o-mini"
	defaultAPIVersion    = "2025-01-01-preview"
	defaultOpenAIBaseURL = "https://openrouter.ai/api/v1/chat/completions"
	defaultOpenAIModel   = "openai/gpt-4o-mini"
	defaultReferer       = "https://github.com/biblestudy/biblestudy"
	defaultTitle         = "biblestudy"
	defaultTopP          = 0.95
	defaultLLMTimeout    = 60
	defaultBibleAPIURL   = "https://bible-api.com"
	defaultBibleTimeout  = 20
	defaultDownloadTries = 3
	defaultCacheCapacity = 50
	defaultCacheDays     = 7
	defaultBind          = "127.0.0.1:7480"
	defaultLogFormat     = "console"
	defaultLogLevel      = "info"
	defaultLogRetention  = 30

	redacted = "<redacted>"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:    defaultDataDir,
			DatasetDir: defaultDatasetDir,
			LogDir:     defaultLogDir,
		},
		LLM: LLM{
			Provider:       ProviderAzure,
			Deployment:     defaultDeployment,
			APIVersion:     defaultAPIVersion,
			BaseURL:        defaultOpenAIBaseURL,
			Model:          defaultOpenAIModel,
			Referer:        defaultReferer,
			Title:          defaultTitle,
			TopP:           defaultTopP,
			TimeoutSeconds: defaultLLMTimeout,
		},
		BibleAPI: BibleAPI{
			BaseURL:         defaultBibleAPIURL,
			TimeoutSeconds:  defaultBibleTimeout,
			DownloadRetries: defaultDownloadTries,
		},
		Cache: Cache{
			MemoryCapacity: defaultCacheCapacity,
			RetentionDays:  defaultCacheDays,
		},
		Server: Server{
			Bind: defaultBind,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetention,
		},
	}
}
