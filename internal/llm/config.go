package llm

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Provider names.
const (
	ProviderAnthropic  = "anthropic"
	ProviderOpenAI     = "openai"
	ProviderGemini     = "gemini"
	ProviderOpenRouter = "openrouter"
	ProviderMock       = "mock"
)

// defaultModels are the models used when none is configured.
var defaultModels = map[string]string{
	ProviderAnthropic:  "claude-haiku-4-5",
	ProviderOpenAI:     "gpt-4o-mini",
	ProviderGemini:     "gemini-2.0-flash",
	ProviderOpenRouter: "google/gemini-2.0-flash-001",
}

// Config selects and configures one provider.
type Config struct {
	Provider string
	APIKey   string
	Model    string
	BaseURL  string // OpenAI-compatible endpoints only
	Timeout  time.Duration
	Retry    RetryConfig
}

// RetryConfig is exponential backoff with jitter.
type RetryConfig struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
}

// DefaultConfig returns a Config with no provider selected.
func DefaultConfig() Config {
	return Config{
		Timeout: 20 * time.Second,
		Retry: RetryConfig{
			MaxAttempts: 3,
			InitialWait: 500 * time.Millisecond,
			MaxWait:     5 * time.Second,
			Multiplier:  2,
		},
	}
}

// ConfigFromEnv reads HACKDOJO_LLM_* variables over the defaults.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	cfg.Provider = strings.ToLower(os.Getenv("HACKDOJO_LLM_PROVIDER"))
	cfg.APIKey = os.Getenv("HACKDOJO_LLM_API_KEY")
	cfg.Model = os.Getenv("HACKDOJO_LLM_MODEL")
	cfg.BaseURL = os.Getenv("HACKDOJO_LLM_BASE_URL")
	if v := os.Getenv("HACKDOJO_LLM_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Timeout = d
		}
	}
	return cfg
}

// standardKeys are probed by DiscoverConfig, in order.
var standardKeys = []struct {
	env, provider string
}{
	{"ANTHROPIC_API_KEY", ProviderAnthropic},
	{"OPENAI_API_KEY", ProviderOpenAI},
	{"GEMINI_API_KEY", ProviderGemini},
	{"OPENROUTER_API_KEY", ProviderOpenRouter},
}

// DiscoverConfig returns a Config for the first provider whose standard API
// key variable is set.
func DiscoverConfig() (Config, bool) {
	for _, k := range standardKeys {
		if key := os.Getenv(k.env); key != "" {
			cfg := DefaultConfig()
			cfg.Provider = k.provider
			cfg.APIKey = key
			return cfg, true
		}
	}
	return Config{}, false
}

// Resolve returns the explicit HACKDOJO_LLM_* configuration when a provider
// is named there, else whatever DiscoverConfig finds.
func Resolve() (Config, bool) {
	if cfg := ConfigFromEnv(); cfg.Provider != "" {
		return cfg, true
	}
	return DiscoverConfig()
}

// model returns the configured model or the provider's default.
func (c Config) model() string {
	if c.Model != "" {
		return c.Model
	}
	return defaultModels[c.Provider]
}

// Validate checks the configuration can build a provider.
func (c Config) Validate() error {
	switch c.Provider {
	case ProviderMock:
		return nil
	case ProviderAnthropic, ProviderOpenAI, ProviderGemini, ProviderOpenRouter:
		if c.APIKey == "" {
			return fmt.Errorf("%s: API key is required", c.Provider)
		}
		return nil
	case "":
		return fmt.Errorf("no LLM provider configured")
	default:
		return fmt.Errorf("unknown LLM provider %q", c.Provider)
	}
}
