package llm

import (
	"context"
	"fmt"

	"github.com/liliang-cn/docuchat/internal/config"
)

// Default models per provider
const (
	DefaultGeminiModel = "gemini-2.0-flash"
	DefaultClaudeModel = "claude-sonnet-4-20250514"
	DefaultOpenAIModel = "gpt-4o-mini"
	DefaultOllamaModel = "llama3.2"

	defaultOllamaBaseURL = "http://localhost:11434/v1"
)

// NewProvider builds the configured provider, wrapped in a rate limiter.
func NewProvider(ctx context.Context, cfg config.LLMConfig) (Provider, error) {
	var provider Provider

	switch cfg.Provider {
	case config.ProviderGemini, "":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("llm.api_key is required for gemini")
		}
		p, err := NewGeminiProvider(ctx, cfg.APIKey, modelOrDefault(cfg.Model, DefaultGeminiModel))
		if err != nil {
			return nil, err
		}
		provider = p
	case config.ProviderClaude:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("llm.api_key is required for claude")
		}
		provider = NewAnthropicProvider(cfg.APIKey, cfg.BaseURL, modelOrDefault(cfg.Model, DefaultClaudeModel))
	case config.ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("llm.api_key is required for openai")
		}
		provider = NewOpenAIProvider(config.ProviderOpenAI, cfg.APIKey, cfg.BaseURL, modelOrDefault(cfg.Model, DefaultOpenAIModel))
	case config.ProviderOllama:
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = defaultOllamaBaseURL
		}
		// Ollama ignores the key.
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = "ollama"
		}
		provider = NewOpenAIProvider(config.ProviderOllama, apiKey, baseURL, modelOrDefault(cfg.Model, DefaultOllamaModel))
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", cfg.Provider)
	}

	return NewRateLimitedProvider(provider, cfg.RequestsPerMinute), nil
}

func modelOrDefault(model, fallback string) string {
	if model == "" {
		return fallback
	}
	return model
}
