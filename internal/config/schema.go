package config

// Config holds intake configuration.
// Stored at: ./config.yaml or {home}/config.yaml
type Config struct {
	LLMProviders map[string]LLMProviderCfg `mapstructure:"llm_providers" yaml:"llm_providers"`
	Defaults     DefaultsCfg               `mapstructure:"defaults" yaml:"defaults"`
	Pipeline     PipelineCfg               `mapstructure:"pipeline" yaml:"pipeline"`
	Server       ServerCfg                 `mapstructure:"server" yaml:"server"`
	Prompts      PromptsCfg                `mapstructure:"prompts" yaml:"prompts"`
	Log          LogCfg                    `mapstructure:"log" yaml:"log"`
}

// LLMProviderCfg configures an LLM provider.
type LLMProviderCfg struct {
	Type       string  `mapstructure:"type" yaml:"type"`                         // "openai", "openrouter", "anthropic"
	Model      string  `mapstructure:"model" yaml:"model"`                       // Model name
	APIKey     string  `mapstructure:"api_key" yaml:"api_key"`                   // API key (supports ${ENV_VAR} syntax)
	BaseURL    string  `mapstructure:"base_url" yaml:"base_url,omitempty"`       // Optional endpoint override
	RateLimit  float64 `mapstructure:"rate_limit" yaml:"rate_limit"`             // Requests per second, 0 = unlimited
	MaxRetries *int    `mapstructure:"max_retries" yaml:"max_retries,omitempty"` // Transport retries, 0 disables; unset uses the client default
	Enabled    bool    `mapstructure:"enabled" yaml:"enabled"`
}

// DefaultsCfg specifies default provider selections.
type DefaultsCfg struct {
	LLMProvider string  `mapstructure:"llm_provider" yaml:"llm_provider"` // Provider used as the oracle
	Model       string  `mapstructure:"model" yaml:"model"`               // Overrides the provider model when set
	Temperature float64 `mapstructure:"temperature" yaml:"temperature"`   // 0 = provider default
	MaxTokens   int     `mapstructure:"max_tokens" yaml:"max_tokens"`     // 0 = provider default
}

// PipelineCfg tunes the fast path and the vision fallback.
type PipelineCfg struct {
	Mode         string `mapstructure:"mode" yaml:"mode"`                     // auto, text or vision
	MinTextChars int    `mapstructure:"min_text_chars" yaml:"min_text_chars"` // below this a PDF counts as scanned
	MaxTextPages int    `mapstructure:"max_text_pages" yaml:"max_text_pages"`
	RenderDPI    int    `mapstructure:"render_dpi" yaml:"render_dpi"`
	Pdftoppm     string `mapstructure:"pdftoppm" yaml:"pdftoppm"` // binary name or path
}

// ServerCfg configures the HTTP server.
type ServerCfg struct {
	Host        string `mapstructure:"host" yaml:"host"`
	Port        string `mapstructure:"port" yaml:"port"`
	MaxUploadMB int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb"`
}

// PromptsCfg configures prompt overrides.
type PromptsCfg struct {
	// OverrideDir holds <key>.tmpl files replacing embedded prompts.
	OverrideDir string `mapstructure:"override_dir" yaml:"override_dir"`
}

// LogCfg configures the process logger.
type LogCfg struct {
	Level  string `mapstructure:"level" yaml:"level"`   // debug, info, warn, error
	Format string `mapstructure:"format" yaml:"format"` // text or json
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		LLMProviders: map[string]LLMProviderCfg{
			"openai": {
				Type:    "openai",
				Model:   "gpt-5-mini",
				APIKey:  "${OPENAI_API_KEY}",
				Enabled: true,
			},
			"openrouter": {
				Type:      "openrouter",
				Model:     "openai/gpt-5-mini",
				APIKey:    "${OPENROUTER_API_KEY}",
				RateLimit: 2,
				Enabled:   true,
			},
			"anthropic": {
				Type:    "anthropic",
				Model:   "claude-sonnet-4-5",
				APIKey:  "${ANTHROPIC_API_KEY}",
				Enabled: true,
			},
		},
		Defaults: DefaultsCfg{
			LLMProvider: "openai",
		},
		Pipeline: PipelineCfg{
			Mode:         "auto",
			MinTextChars: 50,
			MaxTextPages: 2,
			RenderDPI:    200,
			Pdftoppm:     "pdftoppm",
		},
		Server: ServerCfg{
			Host:        "127.0.0.1",
			Port:        "8080",
			MaxUploadMB: 20,
		},
		Log: LogCfg{
			Level:  "info",
			Format: "text",
		},
	}
}

// GetLLMProvider returns an LLM provider config by name.
func (c *Config) GetLLMProvider(name string) (LLMProviderCfg, bool) {
	cfg, ok := c.LLMProviders[name]
	return cfg, ok
}

// EnabledLLMProviders returns all enabled LLM providers.
func (c *Config) EnabledLLMProviders() map[string]LLMProviderCfg {
	result := make(map[string]LLMProviderCfg)
	for name, cfg := range c.LLMProviders {
		if cfg.Enabled {
			result[name] = cfg
		}
	}
	return result
}

// MaxUploadBytes returns the upload limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	mb := c.Server.MaxUploadMB
	if mb <= 0 {
		mb = DefaultConfig().Server.MaxUploadMB
	}
	return int64(mb) << 20
}
