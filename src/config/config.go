// Package config loads and validates the agent configuration from JSON.
package config

import (
	"fmt"
	"os"
	"regexp"

	"github.com/segmentio/encoding/json"
)

// Config is the top-level configuration loaded from JSON.
type Config struct {
	Server  ServerConfig  `json:"server"`
	LLM     LLMConfig     `json:"llm"`
	Scoring ScoringConfig `json:"scoring"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Addr string `json:"addr"` // e.g. ":8000"
}

// LLMConfig controls the chat-completion client. The API key itself is
// never stored in the file; APIKeyEnv names the environment variable
// that holds it.
type LLMConfig struct {
	Endpoint       string   `json:"endpoint,omitempty"` // custom base URL; empty uses the provider default
	Model          string   `json:"model"`
	APIKeyEnv      string   `json:"apiKeyEnv"`
	Temperature    *float32 `json:"temperature,omitempty"`
	MaxTokens      int      `json:"maxTokens"`
	TimeoutSeconds int      `json:"timeoutSeconds"`
}

// ScoringConfig controls input defense behaviour.
type ScoringConfig struct {
	MaxMessageLength        int      `json:"maxMessageLength"`
	DisableBuiltInPatterns  bool     `json:"disableBuiltInPatterns,omitempty"`
	CustomInjectionPatterns []string `json:"customInjectionPatterns,omitempty"`
}

const (
	DefaultAddr             = ":8000"
	DefaultModel            = "gpt-4o-mini"
	DefaultAPIKeyEnv        = "OPENAI_API_KEY"
	DefaultTemperature      = float32(0.7)
	DefaultMaxTokens        = 1024
	DefaultTimeoutSeconds   = 60
	DefaultMaxMessageLength = 2000
)

// Load reads and parses a JSON config file, applies defaults, and validates.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}

	applyDefaults(&cfg)

	if err := validate(cfg); err != nil {
		return Config{}, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns the configuration used when no config file is given.
func Default() Config {
	var cfg Config
	applyDefaults(&cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = DefaultAddr
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = DefaultModel
	}
	if cfg.LLM.APIKeyEnv == "" {
		cfg.LLM.APIKeyEnv = DefaultAPIKeyEnv
	}
	if cfg.LLM.Temperature == nil {
		t := DefaultTemperature
		cfg.LLM.Temperature = &t
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = DefaultMaxTokens
	}
	if cfg.LLM.TimeoutSeconds == 0 {
		cfg.LLM.TimeoutSeconds = DefaultTimeoutSeconds
	}
	if cfg.Scoring.MaxMessageLength == 0 {
		cfg.Scoring.MaxMessageLength = DefaultMaxMessageLength
	}
}

func validate(cfg Config) error {
	if cfg.LLM.MaxTokens < 1 {
		return fmt.Errorf("llm.maxTokens must be positive, got %d", cfg.LLM.MaxTokens)
	}
	if cfg.LLM.TimeoutSeconds < 1 {
		return fmt.Errorf("llm.timeoutSeconds must be positive, got %d", cfg.LLM.TimeoutSeconds)
	}
	if cfg.LLM.Temperature != nil {
		if t := *cfg.LLM.Temperature; t < 0 || t > 1 {
			return fmt.Errorf("llm.temperature must be in [0, 1], got %v", t)
		}
	}
	if cfg.Scoring.MaxMessageLength < 1 {
		return fmt.Errorf("scoring.maxMessageLength must be positive, got %d", cfg.Scoring.MaxMessageLength)
	}

	for i, pattern := range cfg.Scoring.CustomInjectionPatterns {
		if _, err := regexp.Compile(pattern); err != nil {
			return fmt.Errorf("scoring.customInjectionPatterns[%d]: invalid regex %q: %w", i, pattern, err)
		}
	}

	return nil
}
