// Package llm provides the narrow interface to the external text
// generation capability and its provider implementations.
package llm

import (
	"context"
	"errors"
	"fmt"
)

// Generator is the single operation the answering pipeline consumes.
// Everything above this interface treats generation as an opaque
// text-in, text-out capability.
type Generator interface {
	// Name returns the provider name
	Name() string

	// Generate produces text for the given system instructions and user
	// content. The call honors ctx cancellation and the configured
	// per-call timeout.
	Generate(ctx context.Context, system, user string) (string, error)

	// IsAvailable checks whether the provider is configured and reachable
	IsAvailable(ctx context.Context) bool
}

// Error classifies a generation failure as transient (timeout,
// rate-limit, server error, malformed response) or not (invalid
// request). Transient failures are retried with bounded backoff;
// the rest are surfaced immediately.
type Error struct {
	Provider   string
	StatusCode int
	Message    string
	Transient  bool
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: %s (status %d)", e.Provider, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// IsTransient reports whether err is worth retrying. Context deadline
// expiry counts as transient: the per-call timeout fired, not the
// caller's overall budget.
func IsTransient(err error) bool {
	var genErr *Error
	if errors.As(err, &genErr) {
		return genErr.Transient
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// transientStatus reports whether an HTTP status indicates a transient
// provider failure.
func transientStatus(code int) bool {
	return code == 408 || code == 429 || code >= 500
}

// Config holds generation provider configuration
type Config struct {
	// Provider name: "openai", "anthropic", "ollama", "" = disabled
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI/Anthropic
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama)
	BaseURL string

	// Timeout per generation call, seconds
	Timeout int

	// MaxTokens for response generation
	MaxTokens int
}

// DefaultConfig returns sensible defaults with generation disabled
func DefaultConfig() Config {
	return Config{
		Provider:  "",
		Timeout:   30,
		MaxTokens: 1000,
	}
}
