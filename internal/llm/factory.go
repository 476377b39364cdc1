package llm

import (
	"fmt"
	"strings"

	"github.com/skovand/lexica/internal/model"
)

// NewGenerator creates a generation provider from configuration. An
// empty provider name returns (nil, nil): generation disabled.
func NewGenerator(config Config) (Generator, error) {
	switch strings.ToLower(config.Provider) {
	case "openai":
		return NewOpenAIGenerator(config)

	case "anthropic", "claude":
		return NewAnthropicGenerator(config)

	case "ollama":
		return NewOllamaGenerator(config)

	case "":
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: openai, anthropic, ollama)", config.Provider)
	}
}

// ConfigFromModel converts model.LLMConfig to llm.Config
func ConfigFromModel(cfg model.LLMConfig) Config {
	return Config{
		Provider:  cfg.Provider,
		Model:     cfg.Model,
		APIKey:    cfg.APIKey,
		BaseURL:   cfg.BaseURL,
		Timeout:   cfg.Timeout,
		MaxTokens: cfg.MaxTokens,
	}
}
