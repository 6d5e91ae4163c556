package llm

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Provider names accepted in Config.Provider.
const (
	ProviderAnthropic  = "anthropic"
	ProviderOpenAI     = "openai"
	ProviderGemini     = "gemini"
	ProviderOpenRouter = "openrouter"
	ProviderMock       = "mock"
)

// Config holds all LLM provider configuration.
type Config struct {
	Provider string `yaml:"provider"`

	Anthropic  AnthropicConfig  `yaml:"anthropic"`
	OpenAI     OpenAIConfig     `yaml:"openai"`
	Gemini     GeminiConfig     `yaml:"gemini"`
	OpenRouter OpenRouterConfig `yaml:"openrouter"`
	Mock       MockConfig       `yaml:"mock"`
	Retry      RetryConfig      `yaml:"retry"`

	// Timeout bounds a single Generate call including retries.
	Timeout time.Duration `yaml:"timeout"`
}

// AnthropicConfig holds Anthropic-specific configuration.
type AnthropicConfig struct {
	APIKey string `yaml:"-"`
	Model  string `yaml:"model"`
}

// OpenAIConfig holds OpenAI-specific configuration.
type OpenAIConfig struct {
	APIKey  string `yaml:"-"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

// GeminiConfig holds Gemini-specific configuration.
type GeminiConfig struct {
	APIKey string `yaml:"-"`
	Model  string `yaml:"model"`
}

// OpenRouterConfig holds OpenRouter-specific configuration.
type OpenRouterConfig struct {
	APIKey  string `yaml:"-"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

// MockConfig drives the offline provider. Reply, when set, is returned
// for every request, which lets the llm predictor run without a network.
type MockConfig struct {
	Reply string `yaml:"reply"`
}

// RetryConfig configures retry behavior for transient failures.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	InitialWait time.Duration `yaml:"initial_wait"`
	MaxWait     time.Duration `yaml:"max_wait"`
	Multiplier  float64       `yaml:"multiplier"`
}

// modelAliases maps short names accepted in config to vendor model IDs.
// Anything not listed is sent to the vendor unchanged.
var modelAliases = map[string]map[string]string{
	ProviderAnthropic: {
		"haiku":  "claude-haiku-4-5",
		"sonnet": "claude-sonnet-4-5",
	},
	ProviderOpenAI: {
		"mini": "gpt-4o-mini",
		"4o":   "gpt-4o",
	},
	ProviderGemini: {
		"flash": "gemini-2.5-flash",
		"pro":   "gemini-2.5-pro",
	},
}

// ResolveModel expands a model alias for provider.
func ResolveModel(provider, name string) string {
	if id, ok := modelAliases[provider][name]; ok {
		return id
	}
	return name
}

func errMissingKey(provider string) error {
	return fmt.Errorf("SKILLPATH_%s_API_KEY is required for the %s provider", strings.ToUpper(provider), provider)
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Provider:   ProviderAnthropic,
		Anthropic:  AnthropicConfig{Model: "haiku"},
		OpenAI:     OpenAIConfig{Model: "mini"},
		Gemini:     GeminiConfig{Model: "flash"},
		OpenRouter: OpenRouterConfig{Model: "google/gemini-2.5-flash"},
		Retry: RetryConfig{
			MaxAttempts: 3,
			InitialWait: 1 * time.Second,
			MaxWait:     10 * time.Second,
			Multiplier:  2.0,
		},
		Timeout: 30 * time.Second,
	}
}

// envBindings lists the SKILLPATH_* variables that override Config fields.
func envBindings(c *Config) map[string]*string {
	return map[string]*string{
		"SKILLPATH_LLM_PROVIDER":       &c.Provider,
		"SKILLPATH_ANTHROPIC_API_KEY":  &c.Anthropic.APIKey,
		"SKILLPATH_ANTHROPIC_MODEL":    &c.Anthropic.Model,
		"SKILLPATH_OPENAI_API_KEY":     &c.OpenAI.APIKey,
		"SKILLPATH_OPENAI_MODEL":       &c.OpenAI.Model,
		"SKILLPATH_OPENAI_BASE_URL":    &c.OpenAI.BaseURL,
		"SKILLPATH_GEMINI_API_KEY":     &c.Gemini.APIKey,
		"SKILLPATH_GEMINI_MODEL":       &c.Gemini.Model,
		"SKILLPATH_OPENROUTER_API_KEY": &c.OpenRouter.APIKey,
		"SKILLPATH_OPENROUTER_MODEL":   &c.OpenRouter.Model,
		"SKILLPATH_MOCK_REPLY":         &c.Mock.Reply,
	}
}

// ApplyEnv overrides fields of c with any SKILLPATH_* variables that are set.
func ApplyEnv(c *Config) {
	for name, field := range envBindings(c) {
		if v := os.Getenv(name); v != "" {
			*field = v
		}
	}
}

// ConfigFromEnv builds a Config from environment variables, falling back
// to defaults for unset values.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	ApplyEnv(&cfg)
	return cfg
}

// DiscoverConfig checks standard API key env vars in priority order
// (Gemini, OpenAI, Anthropic, OpenRouter) and returns a Config for the first
// provider whose key is found.
func DiscoverConfig() (Config, bool) {
	cfg := DefaultConfig()

	candidates := []struct {
		env      string
		provider string
		key      *string
	}{
		{"GEMINI_API_KEY", ProviderGemini, &cfg.Gemini.APIKey},
		{"OPENAI_API_KEY", ProviderOpenAI, &cfg.OpenAI.APIKey},
		{"ANTHROPIC_API_KEY", ProviderAnthropic, &cfg.Anthropic.APIKey},
		{"OPENROUTER_API_KEY", ProviderOpenRouter, &cfg.OpenRouter.APIKey},
	}
	for _, p := range candidates {
		if k := os.Getenv(p.env); k != "" {
			cfg.Provider = p.provider
			*p.key = k
			return cfg, true
		}
	}
	return Config{}, false
}

// Validate checks that the selected provider has its required API key set.
func (c Config) Validate() error {
	var key string
	switch c.Provider {
	case ProviderAnthropic:
		key = c.Anthropic.APIKey
	case ProviderOpenAI:
		key = c.OpenAI.APIKey
	case ProviderGemini:
		key = c.Gemini.APIKey
	case ProviderOpenRouter:
		key = c.OpenRouter.APIKey
	case ProviderMock:
		return nil
	default:
		return fmt.Errorf("unknown LLM provider: %q", c.Provider)
	}
	if key == "" {
		return errMissingKey(c.Provider)
	}
	return nil
}
