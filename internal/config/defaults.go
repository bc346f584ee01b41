package config

import (
	"errors"
	"fmt"
	"sort"
	"unicode"
)

// ErrNoDefault is returned when no default value exists for a config key.
var ErrNoDefault = errors.New("no default exists")

// ErrInvalidKey is returned when a config key contains invalid characters.
var ErrInvalidKey = errors.New("invalid config key")

// Entry is one documented configuration key.
type Entry struct {
	Key         string `json:"key" yaml:"key"`
	Value       any    `json:"value" yaml:"value"`
	Description string `json:"description" yaml:"description"`
}

// DefaultEntries returns every documented key with its default value.
func DefaultEntries() []Entry {
	d := DefaultConfig()
	entries := []Entry{
		// ===================
		// Oracle selection
		// ===================
		{
			Key:         "defaults.llm_provider",
			Value:       d.Defaults.LLMProvider,
			Description: "LLM provider used as the classification and extraction oracle",
		},
		{
			Key:         "defaults.model",
			Value:       d.Defaults.Model,
			Description: "Model override for the oracle provider (empty uses the provider model)",
		},
		{
			Key:         "defaults.temperature",
			Value:       d.Defaults.Temperature,
			Description: "Sampling temperature (0 uses the provider default)",
		},
		{
			Key:         "defaults.max_tokens",
			Value:       d.Defaults.MaxTokens,
			Description: "Maximum completion tokens (0 uses the provider default)",
		},

		// ===================
		// Pipeline
		// ===================
		{
			Key:         "pipeline.mode",
			Value:       d.Pipeline.Mode,
			Description: "auto (text then vision), text, or vision",
		},
		{
			Key:         "pipeline.min_text_chars",
			Value:       d.Pipeline.MinTextChars,
			Description: "PDFs whose stripped text is shorter than this are treated as scanned",
		},
		{
			Key:         "pipeline.max_text_pages",
			Value:       d.Pipeline.MaxTextPages,
			Description: "Number of leading PDF pages read by the fast path",
		},
		{
			Key:         "pipeline.render_dpi",
			Value:       d.Pipeline.RenderDPI,
			Description: "Resolution page 1 is rendered at for vision mode",
		},
		{
			Key:         "pipeline.pdftoppm",
			Value:       d.Pipeline.Pdftoppm,
			Description: "pdftoppm binary used to rasterize PDFs",
		},

		// ===================
		// Server
		// ===================
		{
			Key:         "server.host",
			Value:       d.Server.Host,
			Description: "Address the HTTP server binds to",
		},
		{
			Key:         "server.port",
			Value:       d.Server.Port,
			Description: "Port the HTTP server listens on",
		},
		{
			Key:         "server.max_upload_mb",
			Value:       d.Server.MaxUploadMB,
			Description: "Largest accepted upload in megabytes",
		},

		// ===================
		// Prompts and logging
		// ===================
		{
			Key:         "prompts.override_dir",
			Value:       d.Prompts.OverrideDir,
			Description: "Directory of <key>.tmpl files overriding embedded prompts",
		},
		{
			Key:         "log.level",
			Value:       d.Log.Level,
			Description: "debug, info, warn or error",
		},
		{
			Key:         "log.format",
			Value:       d.Log.Format,
			Description: "text or json",
		},
	}

	names := make([]string, 0, len(d.LLMProviders))
	for name := range d.LLMProviders {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		p := d.LLMProviders[name]
		prefix := "llm_providers." + name
		entries = append(entries,
			Entry{Key: prefix + ".type", Value: p.Type, Description: "Provider type for " + name},
			Entry{Key: prefix + ".model", Value: p.Model, Description: "Default model for " + name},
			Entry{Key: prefix + ".api_key", Value: p.APIKey, Description: name + " API key (uses environment variable)"},
			Entry{Key: prefix + ".rate_limit", Value: p.RateLimit, Description: "Requests per second for " + name + " (0 = unlimited)"},
			Entry{Key: prefix + ".enabled", Value: p.Enabled, Description: "Whether " + name + " is enabled"},
		)
	}
	return entries
}

// GetDefault returns the default entry for a key, or nil if none exists.
func GetDefault(key string) *Entry {
	for _, e := range DefaultEntries() {
		if e.Key == key {
			return &e
		}
	}
	return nil
}

// DefaultValue returns the default value for key.
func DefaultValue(key string) (any, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	e := GetDefault(key)
	if e == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoDefault, key)
	}
	return e.Value, nil
}

// ValidateKey checks if a config key contains only allowed characters.
// Valid keys contain: letters, digits, dots, underscores, and hyphens.
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: key cannot be empty", ErrInvalidKey)
	}
	for i, r := range key {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '.' && r != '_' && r != '-' {
			return fmt.Errorf("%w: invalid character %q at position %d", ErrInvalidKey, r, i)
		}
	}
	// Don't allow keys starting or ending with dots
	if key[0] == '.' || key[len(key)-1] == '.' {
		return fmt.Errorf("%w: key cannot start or end with a dot", ErrInvalidKey)
	}
	return nil
}
