package providers

import (
	"os"
)

// TestConfig holds provider API keys loaded from environment variables so
// integration tests can use the same configuration pattern as production.
type TestConfig struct {
	OpenAIAPIKey     string
	OpenRouterAPIKey string
	AnthropicAPIKey  string
}

// LoadTestConfig loads provider API keys from environment variables.
func LoadTestConfig() TestConfig {
	return TestConfig{
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenRouterAPIKey: os.Getenv("OPENROUTER_API_KEY"),
		AnthropicAPIKey:  os.Getenv("ANTHROPIC_API_KEY"),
	}
}

// HasOpenAI returns true if the OpenAI API key is configured.
func (c TestConfig) HasOpenAI() bool { return c.OpenAIAPIKey != "" }

// HasOpenRouter returns true if the OpenRouter API key is configured.
func (c TestConfig) HasOpenRouter() bool { return c.OpenRouterAPIKey != "" }

// HasAnthropic returns true if the Anthropic API key is configured.
func (c TestConfig) HasAnthropic() bool { return c.AnthropicAPIKey != "" }

// HasAnyLLM returns true if any LLM provider is configured.
func (c TestConfig) HasAnyLLM() bool {
	return c.HasOpenAI() || c.HasOpenRouter() || c.HasAnthropic()
}

// ToRegistryConfig converts test config to a RegistryConfig.
// Only includes providers that have API keys configured.
func (c TestConfig) ToRegistryConfig() RegistryConfig {
	cfg := RegistryConfig{LLMProviders: make(map[string]LLMProviderConfig)}
	if c.HasOpenAI() {
		cfg.LLMProviders[TypeOpenAI] = LLMProviderConfig{Type: TypeOpenAI, APIKey: c.OpenAIAPIKey, Enabled: true}
	}
	if c.HasOpenRouter() {
		cfg.LLMProviders[TypeOpenRouter] = LLMProviderConfig{Type: TypeOpenRouter, APIKey: c.OpenRouterAPIKey, RateLimit: 1, Enabled: true}
	}
	if c.HasAnthropic() {
		cfg.LLMProviders[TypeAnthropic] = LLMProviderConfig{Type: TypeAnthropic, APIKey: c.AnthropicAPIKey, Enabled: true}
	}
	return cfg
}
