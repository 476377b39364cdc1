package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

// OpenAIGenerator implements Generator for OpenAI models
type OpenAIGenerator struct {
	client *openai.Client
	config Config
}

// NewOpenAIGenerator creates a new OpenAI generator
func NewOpenAIGenerator(config Config) (*OpenAIGenerator, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	return &OpenAIGenerator{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
	}, nil
}

// Name returns the provider name
func (g *OpenAIGenerator) Name() string {
	return "openai"
}

// IsAvailable checks if the provider is properly configured
func (g *OpenAIGenerator) IsAvailable(ctx context.Context) bool {
	_, err := g.client.ListModels(ctx)
	return err == nil
}

// Generate produces text via the Chat Completions API
func (g *OpenAIGenerator) Generate(ctx context.Context, system, user string) (string, error) {
	model := g.config.Model
	if model == "" {
		model = openai.GPT4oMini
	}

	maxTokens := g.config.MaxTokens
	if maxTokens == 0 {
		maxTokens = 1000
	}

	timeout := time.Duration(g.config.Timeout) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	ctxWithTimeout, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		MaxTokens:   maxTokens,
		Temperature: 0, // Grounded extraction wants determinism, not creativity
	}

	resp, err := g.client.CreateChatCompletion(ctxWithTimeout, req)
	if err != nil {
		return "", g.classify(err)
	}

	if len(resp.Choices) == 0 {
		return "", &Error{Provider: g.Name(), Message: "no choices in response", Transient: true}
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// classify maps go-openai errors onto the transient/non-transient taxonomy
func (g *OpenAIGenerator) classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &Error{
			Provider:   g.Name(),
			StatusCode: apiErr.HTTPStatusCode,
			Message:    apiErr.Message,
			Transient:  transientStatus(apiErr.HTTPStatusCode),
		}
	}
	// Network-level failures (connection refused, timeout) are transient
	return &Error{Provider: g.Name(), Message: err.Error(), Transient: true}
}
