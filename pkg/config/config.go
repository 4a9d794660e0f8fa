// Package config loads process configuration from a YAML file with
// environment variable overrides, and manages encrypted secrets.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"fellowship/pkg/scenario"
)

// Environment variable overrides.
const (
	EnvScenario        = "SCENARIO"
	EnvPingPongLimit   = "PING_PONG_LIMIT"
	EnvMysteryMaxTurns = "MYSTERY_MAX_TURNS"
)

// Secret names the process needs, by provider.
const (
	SecretGitHubToken     = "GITHUB_TOKEN"
	SecretOneAPIKey       = "ONE_API_KEY"
	SecretAnthropicAPIKey = "ANTHROPIC_API_KEY"
	SecretGeminiAPIKey    = "GEMINI_API_KEY"
	SecretOpenAIAPIKey    = "OPENAI_API_KEY"
)

// LLMConfig selects the model provider and model.
type LLMConfig struct {
	Provider   string `yaml:"provider"`
	Model      string `yaml:"model"`
	OllamaHost string `yaml:"ollama_host"`
}

// Config is the full process configuration.
type Config struct {
	Scenario        string    `yaml:"scenario"`
	AgentsDir       string    `yaml:"agents_dir"`
	QuoteCachePath  string    `yaml:"quote_cache_path"`
	MetricsAddr     string    `yaml:"metrics_addr"`
	LLM             LLMConfig `yaml:"llm"`
	PingPongLimit   int       `yaml:"ping_pong_limit"`
	MysteryMaxTurns int       `yaml:"mystery_max_turns"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() Config {
	return Config{
		AgentsDir:       "agents",
		PingPongLimit:   scenario.DefaultPingPongLimit,
		MysteryMaxTurns: scenario.DefaultMysteryMaxTurns,
		LLM: LLMConfig{
			Provider:   "github",
			Model:      "openai/gpt-4.1",
			OllamaHost: "http://localhost:11434",
		},
	}
}

// Load reads configuration from the given YAML file, falling back to
// defaults when the path is empty or the file does not exist, then applies
// environment variable overrides.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// No file is fine; defaults plus env cover the demo case.
		case err != nil:
			return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		}
	}

	applyEnvOverrides(&cfg)

	if err := validate(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnvOverrides lets environment variables win over file values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv(EnvScenario); v != "" {
		cfg.Scenario = strings.ToLower(v)
	}
	if v := os.Getenv(EnvPingPongLimit); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.PingPongLimit = n
		}
	}
	if v := os.Getenv(EnvMysteryMaxTurns); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MysteryMaxTurns = n
		}
	}
}

// validate rejects configurations the process cannot run with.
func validate(cfg *Config) error {
	if cfg.PingPongLimit <= 0 {
		return fmt.Errorf("ping_pong_limit must be positive, got %d", cfg.PingPongLimit)
	}
	if cfg.MysteryMaxTurns <= 0 {
		return fmt.Errorf("mystery_max_turns must be positive, got %d", cfg.MysteryMaxTurns)
	}
	if cfg.LLM.Provider == "" {
		return fmt.Errorf("llm.provider must be set")
	}
	if cfg.LLM.Model == "" {
		return fmt.Errorf("llm.model must be set")
	}
	return nil
}

// ProviderSecretName returns the secret the given provider authenticates with.
// Ollama needs none and returns the empty string.
func ProviderSecretName(provider string) string {
	switch strings.ToLower(provider) {
	case "github":
		return SecretGitHubToken
	case "openai":
		return SecretOpenAIAPIKey
	case "anthropic":
		return SecretAnthropicAPIKey
	case "gemini":
		return SecretGeminiAPIKey
	default:
		return ""
	}
}
