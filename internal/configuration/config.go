package configuration

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config represents the application configuration
type Config struct {
	LLM   LLMConfig   `toml:"llm"`
	Agent AgentConfig `toml:"agent"`
}

// LLMConfig holds provider credentials, models, and the fallback order.
// Providers lists provider names in cascade priority; an entry whose
// credential is absent is skipped at wiring time.
type LLMConfig struct {
	Providers []string `toml:"providers"`

	GeminiKey     string `toml:"gemini_api_key"`
	GroqKey       string `toml:"groq_api_key"`
	OpenRouterKey string `toml:"openrouter_api_key"`
	AnthropicKey  string `toml:"anthropic_api_key"`
	OpenAIKey     string `toml:"openai_api_key"`
	OllamaHost    string `toml:"ollama_host"`

	GeminiModel     string `toml:"gemini_model"`
	GroqModel       string `toml:"groq_model"`
	OpenRouterModel string `toml:"openrouter_model"`
	AnthropicModel  string `toml:"anthropic_model"`
	OpenAIModel     string `toml:"openai_model"`
	OllamaModel     string `toml:"ollama_model"`
}

type AgentConfig struct {
	MaxRounds              int    `toml:"max_rounds"`
	ProviderTimeoutSeconds int    `toml:"provider_timeout_seconds"`
	ResultsDir             string `toml:"results_dir"`
	Debug                  bool   `toml:"debug"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Providers: []string{"gemini", "groq", "openrouter"},
		},
		Agent: AgentConfig{
			MaxRounds:              10,
			ProviderTimeoutSeconds: 60,
		},
	}
}

// LoadConfig loads configuration from file with fallback to defaults
func LoadConfig() (*Config, error) {
	config := DefaultConfig()

	// Try multiple config locations in order (XDG conventions)
	configPaths := []string{
		"./config.toml", // Current directory (for development)
		filepath.Join(os.Getenv("HOME"), ".config", "triagent", "config.toml"),
		"/etc/triagent/config.toml",
	}

	var loadedPath string
	for _, path := range configPaths {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
			loadedPath = path
			break
		}
	}

	// Environment variables take precedence over file values
	applyEnvOverrides(config)

	if loadedPath != "" {
		fmt.Printf("Loaded config from: %s\n", loadedPath)
	}

	return config, nil
}

func applyEnvOverrides(config *Config) {
	envKeys := map[string]*string{
		"GEMINI_API_KEY":     &config.LLM.GeminiKey,
		"GROQ_API_KEY":       &config.LLM.GroqKey,
		"OPENROUTER_API_KEY": &config.LLM.OpenRouterKey,
		"ANTHROPIC_API_KEY":  &config.LLM.AnthropicKey,
		"OPENAI_API_KEY":     &config.LLM.OpenAIKey,
		"OLLAMA_HOST":        &config.LLM.OllamaHost,
		"GEMINI_MODEL":       &config.LLM.GeminiModel,
		"GROQ_MODEL":         &config.LLM.GroqModel,
		"OPENROUTER_MODEL":   &config.LLM.OpenRouterModel,
		"ANTHROPIC_MODEL":    &config.LLM.AnthropicModel,
		"OPENAI_MODEL":       &config.LLM.OpenAIModel,
		"OLLAMA_MODEL":       &config.LLM.OllamaModel,
	}
	for env, target := range envKeys {
		if v := os.Getenv(env); v != "" {
			*target = v
		}
	}

	if providers := os.Getenv("LLM_PROVIDERS"); providers != "" {
		var names []string
		for _, p := range strings.Split(providers, ",") {
			if p = strings.TrimSpace(p); p != "" {
				names = append(names, p)
			}
		}
		if len(names) > 0 {
			config.LLM.Providers = names
		}
	}
	if debug := os.Getenv("DEBUG"); debug == "true" {
		config.Agent.Debug = true
	}
}

// CredentialFor reports whether the named provider has what it needs to be
// wired into the cascade. Ollama needs no key, only a reachable host.
func (c *Config) CredentialFor(provider string) bool {
	switch strings.ToLower(provider) {
	case "gemini":
		return c.LLM.GeminiKey != ""
	case "groq":
		return c.LLM.GroqKey != ""
	case "openrouter":
		return c.LLM.OpenRouterKey != ""
	case "anthropic":
		return c.LLM.AnthropicKey != ""
	case "openai":
		return c.LLM.OpenAIKey != ""
	case "ollama":
		return true
	default:
		return false
	}
}
