package agent

import (
	"fmt"
	"strings"

	"fellowship/pkg/llm"
	"fellowship/pkg/llm/anthropic"
	"fellowship/pkg/llm/gemini"
	"fellowship/pkg/llm/ollama"
	"fellowship/pkg/llm/openai"
)

// Supported LLM providers.
const (
	ProviderGitHub    = "github"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
	ProviderOllama    = "ollama"
)

// NewLLMClient constructs a model client for the named provider.
// The apiKey is ignored for ollama; host is ignored for everything else.
func NewLLMClient(provider, model, apiKey, host string) (llm.Client, error) {
	switch strings.ToLower(provider) {
	case ProviderGitHub:
		return openai.NewGitHubModelsClient(apiKey, model), nil
	case ProviderOpenAI:
		return openai.NewClient(apiKey, model), nil
	case ProviderAnthropic:
		return anthropic.NewClient(apiKey, model), nil
	case ProviderGemini:
		return gemini.NewClient(apiKey, model), nil
	case ProviderOllama:
		return ollama.NewClient(host, model), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: github, openai, anthropic, gemini, ollama)", provider)
	}
}
