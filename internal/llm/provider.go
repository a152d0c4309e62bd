package llm

import (
	"fmt"
	"strings"

	"eventarb/internal/config"
)

// NewFromConfig builds the configured provider adapter.
func NewFromConfig(cfg config.LLMConfig) (Completer, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("llm api key is required")
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "anthropic":
		return NewAnthropicCompleter(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.MaxTokens, cfg.Timeout), nil
	case "openai":
		return NewOpenAICompleter(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.MaxTokens, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", cfg.Provider)
	}
}
